package mockfhir

import (
	"math/rand"
	"sync"
	"time"
)

// ChaosConfig injects failures so client timeout and error paths can be
// exercised against the mock server.
type ChaosConfig struct {
	// ErrorRate is the probability (0..1) of returning a 500 outcome.
	ErrorRate float64 `json:"errorRate" yaml:"errorRate"`

	// Latency is a fixed delay applied before handling each request.
	Latency time.Duration `json:"latency" yaml:"latency"`
}

// Enabled reports whether any chaos behavior is configured.
func (c *ChaosConfig) Enabled() bool {
	return c != nil && (c.ErrorRate > 0 || c.Latency > 0)
}

// chaos holds the runtime state for failure injection.
type chaos struct {
	mu  sync.Mutex
	cfg ChaosConfig
	rng *rand.Rand
}

func newChaos(cfg ChaosConfig) *chaos {
	return &chaos{
		cfg: cfg,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// intercept applies latency and decides whether the request should fail.
func (c *chaos) intercept() bool {
	if c.cfg.Latency > 0 {
		time.Sleep(c.cfg.Latency)
	}
	if c.cfg.ErrorRate <= 0 {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rng.Float64() < c.cfg.ErrorRate
}
