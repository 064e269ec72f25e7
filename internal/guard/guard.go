// Package guard limits generation calls per phase.
package guard

import (
	"sync"
	"time"

	"github.com/rogers-f/phasebook/internal/domain"
)

// GuardConfig holds generation limits. A non-positive RateLimitPerMinute
// disables the rate check.
type GuardConfig struct {
	RateLimitPerMinute int
}

// Guard allows at most one in-flight generation per phase and enforces a
// per-phase rate limit.
type Guard struct {
	Config GuardConfig

	mu         sync.Mutex
	inFlight   map[string]bool
	rateCounts map[string]*rateBucket
	now        func() time.Time
}

type rateBucket struct {
	count       int
	windowStart int64
}

// NewGuard creates a Guard with the given limits.
func NewGuard(cfg GuardConfig) *Guard {
	return &Guard{
		Config:     cfg,
		inFlight:   make(map[string]bool),
		rateCounts: make(map[string]*rateBucket),
		now:        time.Now,
	}
}

// Acquire reserves the phase for one generation. The returned release must be
// called once the generation finishes; calling it more than once is harmless.
func (g *Guard) Acquire(phaseID string) (release func(), err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.inFlight[phaseID] {
		return nil, domain.ErrGenerationInFlight
	}
	if err := g.checkRateLocked(phaseID); err != nil {
		return nil, err
	}

	g.inFlight[phaseID] = true
	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.inFlight, phaseID)
			g.mu.Unlock()
		})
	}, nil
}

// InFlight reports whether a generation is running for the phase.
func (g *Guard) InFlight(phaseID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inFlight[phaseID]
}

// CheckRateLimit enforces a per-phase window rate limit.
// The window is 60 seconds. If the count exceeds the configured limit,
// ErrRateLimitExceeded is returned.
func (g *Guard) CheckRateLimit(phaseID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.checkRateLocked(phaseID)
}

func (g *Guard) checkRateLocked(phaseID string) error {
	if g.Config.RateLimitPerMinute <= 0 {
		return nil
	}

	now := g.now().Unix()
	bucket, ok := g.rateCounts[phaseID]
	if !ok {
		g.rateCounts[phaseID] = &rateBucket{count: 1, windowStart: now}
		return nil
	}

	if now-bucket.windowStart >= 60 {
		bucket.count = 1
		bucket.windowStart = now
		return nil
	}

	if bucket.count >= g.Config.RateLimitPerMinute {
		return domain.ErrRateLimitExceeded
	}

	bucket.count++
	return nil
}
