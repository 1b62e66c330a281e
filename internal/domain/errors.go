package domain

import "errors"

var (
	// ErrInvalidURL means the sitemap URL could not be parsed into a hostname.
	// The run aborts before any network or storage work.
	ErrInvalidURL = errors.New("invalid sitemap URL")

	// ErrTimeout means the ingestion budget expired mid-run. Batches committed
	// before expiry stay committed; the result carries the partial count.
	ErrTimeout = errors.New("ingestion deadline exceeded")
)
