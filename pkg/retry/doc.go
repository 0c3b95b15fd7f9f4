/*
Package retry wraps every device operation in the reconnect-and-retry policy.

A failed attempt is classified with domain.Classify:

  - Transient: a reconnect is scheduled to run immediately before the next attempt.
  - Protocol (or unclassified): the error is logged and the operation is retried as is.
  - Fatal: no further attempt is made.

Once the attempt bound is exhausted, or on a Fatal failure, the call returns a
*domain.TakeoverError. Nothing survives between two calls: each Do owns its RetryContext.

# Usage

	p := retry.New(
		retry.WithReconnect(transport.Reconnect),
		retry.WithLogger(logger),
	)

	out, err := retry.Do(ctx, p, "dumpsys", func(ctx context.Context) ([]byte, error) {
		return transport.Shell(ctx, "dumpsys", "window", "windows")
	})
*/
package retry
