package httpreq

import (
	"math"
	"time"
)

const (
	retryBackoffBase   = time.Second
	retryBackoffFactor = 10.0
)

// retryLayer re-issues the request on classified recoverable failures
// (IOError always; StatusError for 403, 408, and >=500) up to
// opts.Retries times, with exponential backoff (base 1s, factor 10)
// between attempts. A non-idempotent method is only retried when
// RetryNonIdempotent is set, and a streamed (already-consumed) body
// can never be replayed regardless of idempotency.
func retryLayer(c *call, next Next) (*Response, error) {
	var prior []error

	for attempt := 0; ; attempt++ {
		resp, err := next(c)
		if err == nil {
			return resp, nil
		}

		giveUp := !isRecoverable(err, c.opts.RetryHTTPCodes) ||
			!(c.req.Idempotent() || c.opts.RetryNonIdempotent) ||
			(!c.req.Body.IsBuffered() && c.req.Body.Streamed()) ||
			attempt >= c.opts.Retries

		if giveUp {
			return nil, &RetryError{Attempts: attempt + 1, Last: err, Prior: prior}
		}
		prior = append(prior, err)

		c.resp.reset()

		delay := time.Duration(float64(retryBackoffBase) * math.Pow(retryBackoffFactor, float64(attempt)))
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-c.ctx.Done():
			timer.Stop()
			return nil, c.ctx.Err()
		}
	}
}
