// Package upstream sends chat messages to whatever answers them: the
// site's automation webhook, or an LLM directly when no webhook is wired.
package upstream

import (
	"context"
	"fmt"
	"time"
)

// Outbound is one user submission on its way upstream.
type Outbound struct {
	Message   string
	Timestamp time.Time
	SessionID string
}

// Upstream produces a reply for an outbound message. Implementations make
// at most one network call per Reply and never retry.
type Upstream interface {
	Reply(ctx context.Context, out Outbound) (string, error)
}

// StatusError reports a non-2xx response from the webhook.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned status %d", e.Code)
}
