package wifi

import (
	"math/rand"
	"sync"
	"time"
)

// Default backoff parameters.
const (
	// InitialBackoff is the initial reconnection delay of BackoffPolicy.
	InitialBackoff = 1 * time.Second

	// MaxBackoff is the maximum reconnection delay of BackoffPolicy.
	MaxBackoff = 60 * time.Second

	// BackoffMultiplier is the factor by which the delay increases.
	BackoffMultiplier = 2.0

	// JitterFactor is the maximum jitter as a fraction of the base delay.
	JitterFactor = 0.25
)

// ReconnectPolicy decides how the module reacts to losing the wireless
// link. Next is called with the number of failed attempts since the last
// successful association, starting at 0. It returns the delay before the
// next attempt and whether to attempt at all.
type ReconnectPolicy interface {
	Next(attempt int) (time.Duration, bool)
}

// ImmediatePolicy retries without delay, forever. It is the default.
type ImmediatePolicy struct{}

func (ImmediatePolicy) Next(int) (time.Duration, bool) { return 0, true }

// BackoffPolicy retries with exponential backoff and optional jitter.
// The zero value uses the default delay schedule without jitter.
// MaxAttempts of 0 means unlimited.
type BackoffPolicy struct {
	Initial     time.Duration
	Max         time.Duration
	Multiplier  float64
	Jitter      float64
	MaxAttempts int

	once sync.Once
	rng  *rand.Rand
	mu   sync.Mutex
}

func (p *BackoffPolicy) Next(attempt int) (time.Duration, bool) {
	p.once.Do(func() {
		if p.Initial <= 0 {
			p.Initial = InitialBackoff
		}
		if p.Max <= 0 {
			p.Max = MaxBackoff
		}
		if p.Multiplier <= 1 {
			p.Multiplier = BackoffMultiplier
		}
		if p.Jitter < 0 {
			p.Jitter = 0
		}
		p.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	})

	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		return 0, false
	}

	delay := p.Initial
	for i := 0; i < attempt; i++ {
		delay = time.Duration(float64(delay) * p.Multiplier)
		if delay >= p.Max {
			delay = p.Max
			break
		}
	}

	if p.Jitter > 0 {
		p.mu.Lock()
		delay += time.Duration(float64(delay) * p.Jitter * p.rng.Float64())
		p.mu.Unlock()
	}
	return delay, true
}

var (
	_ ReconnectPolicy = ImmediatePolicy{}
	_ ReconnectPolicy = (*BackoffPolicy)(nil)
)
