package clients

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"net"
	"time"

	"github.com/jsamuelsen/platform-service/internal/platform/config"
)

// backoff yields exponentially growing, jittered pauses between attempts.
type backoff struct {
	initial time.Duration
	ceiling time.Duration
	factor  float64
	jitter  float64
}

func newBackoff(cfg config.RetryConfig) backoff {
	b := backoff{
		initial: cfg.InitialInterval,
		ceiling: cfg.MaxInterval,
		factor:  cfg.Multiplier,
		jitter:  cfg.JitterFactor,
	}

	if b.factor < 1 {
		b.factor = 1
	}

	return b
}

// delay is the pause before retry n, counting from 1.
func (b backoff) delay(n int) time.Duration {
	d := float64(b.initial) * math.Pow(b.factor, float64(n-1))
	if b.ceiling > 0 {
		d = math.Min(d, float64(b.ceiling))
	}

	if b.jitter > 0 {
		d += d * b.jitter * (rand.Float64()*2 - 1) //nolint:gosec // spread only
	}

	return time.Duration(d)
}

func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// transient reports a transport failure another attempt might survive.
// Cancellation and caller deadlines never qualify.
func transient(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}

	var op *net.OpError

	return errors.As(err, &op)
}
