package sink

import (
	"context"

	"mercator-hq/csmlog/pkg/csm/check"
)

// Sink receives the checks extracted from one input.
type Sink interface {
	// Publish delivers checks extracted from source. It returns once the
	// checks are accepted by the backend.
	Publish(ctx context.Context, source string, checks []*check.ContentSecurityCheck) error

	// Close flushes pending messages and releases resources.
	Close() error
}
