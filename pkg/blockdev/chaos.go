package blockdev

import (
	"fmt"
	"math/rand/v2"
)

// ChaosConfig configures probabilistic fault injection for block I/O. The
// zero value disables injection.
type ChaosConfig struct {
	Seed int64

	ReadErrorRate  float64
	WriteErrorRate float64
	SyncErrorRate  float64
}

// ChaosError is returned in place of whatever the underlying device would
// have returned, once Chaos decides to inject a fault.
type ChaosError struct {
	Op      string
	Blockno uint32
}

func (e *ChaosError) Error() string {
	return fmt.Sprintf("blockdev: injected %s fault on block %d", e.Op, e.Blockno)
}

// Chaos wraps a Device and injects errors at configured rates, for testing
// how a caller reacts to durability failures. Any block I/O failure the log
// observes is fatal, so a log over Chaos panics with a *wal.FatalError once
// a read or write fault is injected.
type Chaos struct {
	dev Device
	cfg ChaosConfig
	rng *rand.Rand
}

func NewChaos(dev Device, cfg ChaosConfig) *Chaos {
	return &Chaos{
		dev: dev,
		cfg: cfg,
		rng: rand.New(rand.NewPCG(uint64(cfg.Seed), uint64(cfg.Seed))), //nolint:gosec // deterministic test seeding, not security sensitive
	}
}

func (c *Chaos) ReadBlock(blockno uint32, buf []byte) error {
	if c.trigger(c.cfg.ReadErrorRate) {
		return &ChaosError{Op: "read", Blockno: blockno}
	}

	return c.dev.ReadBlock(blockno, buf)
}

func (c *Chaos) WriteBlock(blockno uint32, buf []byte) error {
	if c.trigger(c.cfg.WriteErrorRate) {
		return &ChaosError{Op: "write", Blockno: blockno}
	}

	return c.dev.WriteBlock(blockno, buf)
}

func (c *Chaos) Sync() error {
	if c.trigger(c.cfg.SyncErrorRate) {
		return &ChaosError{Op: "sync"}
	}

	return c.dev.Sync()
}

func (c *Chaos) trigger(rate float64) bool {
	if rate <= 0 {
		return false
	}

	return c.rng.Float64() < rate
}

var _ Device = (*Chaos)(nil)
