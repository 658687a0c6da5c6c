// Package retry runs operations with bounded retries, exponential backoff and jitter.
//
// The operation receives a CancelFunc. Calling it marks the current failure as terminal:
// the loop stops right away and Do returns the error that was passed to cancel. Validation
// failures inside a conditional update use this to abort instead of being retried like a
// network fault.
//
//	v, err := retry.Do(ctx, retry.GetPolicy, func(ctx context.Context, cancel retry.CancelFunc) ([]byte, error) {
//		v, ok, err := s.Get(key)
//		if err != nil {
//			return nil, err // retried
//		}
//		if !ok {
//			cancel(ErrMissing) // not retried
//			return nil, nil
//		}
//		return v, nil
//	})
//
// The delay before retry n (n = 1, 2, ...) is InitialDelay × Factor^n plus up to 25% jitter.
// The loop is built on cenkalti/backoff.
package retry
