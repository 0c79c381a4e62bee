package resilience

import "time"

// Policy bounds retries and the per-operation circuit breaker.
type Policy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64

	BreakerEnabled     bool
	BreakerMinRequests uint32
	BreakerTripRatio   float64
	BreakerCooldown    time.Duration
	BreakerProbeCalls  uint32
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     1 * time.Second,
		Multiplier:     2.0,

		BreakerEnabled:     true,
		BreakerMinRequests: 10,
		BreakerTripRatio:   0.5,
		BreakerCooldown:    30 * time.Second,
		BreakerProbeCalls:  2,
	}
}

func (p Policy) withDefaults() Policy {
	def := DefaultPolicy()
	out := p

	if out.MaxAttempts <= 0 {
		out.MaxAttempts = def.MaxAttempts
	}
	if out.InitialBackoff <= 0 {
		out.InitialBackoff = def.InitialBackoff
	}
	if out.MaxBackoff < out.InitialBackoff {
		out.MaxBackoff = out.InitialBackoff
	}
	if out.Multiplier < 1 {
		out.Multiplier = def.Multiplier
	}
	if out.BreakerMinRequests == 0 {
		out.BreakerMinRequests = def.BreakerMinRequests
	}
	if out.BreakerTripRatio <= 0 || out.BreakerTripRatio > 1 {
		out.BreakerTripRatio = def.BreakerTripRatio
	}
	if out.BreakerCooldown <= 0 {
		out.BreakerCooldown = def.BreakerCooldown
	}
	if out.BreakerProbeCalls == 0 {
		out.BreakerProbeCalls = def.BreakerProbeCalls
	}
	return out
}

// backoff returns the wait before attempt n+1, n starting at 1.
func (p Policy) backoff(n int) time.Duration {
	wait := float64(p.InitialBackoff)
	for i := 1; i < n; i++ {
		wait *= p.Multiplier
		if time.Duration(wait) >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	return time.Duration(wait)
}
