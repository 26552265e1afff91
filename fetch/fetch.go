// Package fetch retrieves the raw HTML for configured sources. Retry policy,
// header shaping and request pacing live here, not in the detection core.
package fetch

import (
	"context"

	"policywatch/types"
)

// Fetcher returns usable HTML for a source or a terminal failure for this
// run. The core never retries on its own.
type Fetcher interface {
	Fetch(ctx context.Context, src types.Source) (string, error)
}
