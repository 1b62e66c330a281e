package domain

// Timeframe selects the bucket granularity for time-based analytics.
type Timeframe string

const (
	TimeframeDaily   Timeframe = "daily"
	TimeframeWeekly  Timeframe = "weekly"
	TimeframeMonthly Timeframe = "monthly"
)

func (t Timeframe) Valid() bool {
	switch t {
	case TimeframeDaily, TimeframeWeekly, TimeframeMonthly:
		return true
	}
	return false
}

// BucketFormat returns the Postgres to_char pattern that truncates
// first_appeared to this granularity (ISO week for weekly).
func (t Timeframe) BucketFormat() string {
	switch t {
	case TimeframeWeekly:
		return "IYYY-IW"
	case TimeframeMonthly:
		return "YYYY-MM"
	default:
		return "YYYY-MM-DD"
	}
}
