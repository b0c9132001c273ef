// internal/browser/context_utils.go
package browser

import (
	"context"
	"time"
)

// CombineContext derives a context from primary that is also canceled when
// secondary is done. Values and deadline come from primary only; chromedp
// keeps its target handle in primary while secondary carries the step deadline.
func CombineContext(primary, secondary context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(primary)
	stop := context.AfterFunc(secondary, cancel)
	return combined, func() {
		stop()
		cancel()
	}
}

// Detach returns a context that keeps the values of ctx but ignores its
// cancellation and deadline. Cleanup must still run after a step has timed out.
func Detach(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

// DetachWithTimeout is Detach bounded by its own timeout.
func DetachWithTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(Detach(ctx), timeout)
}
