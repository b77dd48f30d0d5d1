// Package reliability provides the retry and circuit breaker patterns used by
// the paperless workers.
//
//   - Retry policies: bounded exponential backoff and fixed delay, used when a
//     worker republishes a result and when a supervised worker loop restarts
//   - Circuit breaker: stops calling a failing collaborator (the summarizer)
//     for a cool-down period so requeued commands are not burned on a dead
//     backend
//
// Errors can opt out of retries by wrapping them with Permanent.
//
// Example usage:
//
//	policy := reliability.NewExponentialBackoff(100*time.Millisecond, 5*time.Second, 2.0, 3)
//	err := reliability.Retry(ctx, policy, func() error {
//	    return publisher.Send(ctx, event)
//	})
package reliability
