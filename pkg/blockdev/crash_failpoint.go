package blockdev

import "math/rand/v2"

// CrashOp identifies the block operation a CrashFailpointConfig filter may
// match against.
type CrashOp string

const (
	CrashOpRead  CrashOp = "read"
	CrashOpWrite CrashOp = "write"
	CrashOpSync  CrashOp = "sync"
)

// CrashFailpointAction controls how Crash terminates execution once a
// failpoint triggers.
type CrashFailpointAction uint8

const (
	// CrashFailpointPanic panics with a *CrashPanicError. Convenient for
	// single-process tests: recover in the same goroutine, then build a
	// fresh Log against the same backing device to exercise recovery.
	CrashFailpointPanic CrashFailpointAction = iota

	// CrashFailpointExit calls os.Exit, for subprocess-based crash tests
	// where even deferred cleanup must not run.
	CrashFailpointExit
)

// CrashFailpointConfig configures deterministic or probabilistic crash
// injection, used to exercise the invariant that a crash injected between
// any two synchronous writes during commit must leave the device in either
// the pre-commit or the post-commit state, never a mixture.
type CrashFailpointConfig struct {
	// After triggers a crash on the Nth eligible operation (1-indexed). If
	// After is 0 and Rate is 0 but Ops/Blocks filters are set, After
	// defaults to 1.
	After uint64

	// Seed seeds the generator Rate uses.
	Seed int64

	// Rate is the probability in [0,1] that an eligible operation crashes.
	Rate float64

	// Ops restricts eligible operations; empty means all operations are
	// eligible.
	Ops []CrashOp

	// Blocks restricts eligibility to specific block numbers; empty means
	// any block is eligible.
	Blocks []uint32

	Action   CrashFailpointAction
	ExitCode int
}

// CrashPanicError is the panic value raised by CrashFailpointPanic.
type CrashPanicError struct {
	Op      CrashOp
	Blockno uint32
}

func (e *CrashPanicError) Error() string {
	return "blockdev: simulated crash during " + string(e.Op) + " of a block"
}

// crashFailpoint holds normalized failpoint filters and mutable trigger
// state; it is created once and mutated as eligible operations execute.
type crashFailpoint struct {
	armed bool
	count uint64

	after uint64
	rate  float64

	opSet    map[CrashOp]struct{}
	blockSet map[uint32]struct{}

	action   CrashFailpointAction
	exitCode int
	rng      *rand.Rand
}

func newCrashFailpoint(cfg CrashFailpointConfig) *crashFailpoint {
	hasFilters := len(cfg.Ops) > 0 || len(cfg.Blocks) > 0
	if cfg.After == 0 && cfg.Rate == 0 && !hasFilters {
		return &crashFailpoint{armed: false}
	}

	after := cfg.After
	if after == 0 && cfg.Rate == 0 {
		after = 1
	}

	fp := &crashFailpoint{
		armed:    true,
		after:    after,
		rate:     cfg.Rate,
		action:   cfg.Action,
		exitCode: cfg.ExitCode,
	}

	if len(cfg.Ops) > 0 {
		fp.opSet = make(map[CrashOp]struct{}, len(cfg.Ops))
		for _, op := range cfg.Ops {
			fp.opSet[op] = struct{}{}
		}
	}

	if len(cfg.Blocks) > 0 {
		fp.blockSet = make(map[uint32]struct{}, len(cfg.Blocks))
		for _, b := range cfg.Blocks {
			fp.blockSet[b] = struct{}{}
		}
	}

	if fp.rate > 0 {
		fp.rng = rand.New(rand.NewPCG(uint64(cfg.Seed), uint64(cfg.Seed))) //nolint:gosec // deterministic test seeding
	}

	return fp
}

// eligible reports whether an operation passes the op/block filters. It does
// not consume the counter or evaluate rate — the caller decides that via
// shouldTrigger once eligibility is established.
func (fp *crashFailpoint) eligible(op CrashOp, blockno uint32) bool {
	if fp == nil || !fp.armed {
		return false
	}

	if len(fp.opSet) > 0 {
		if _, ok := fp.opSet[op]; !ok {
			return false
		}
	}

	if len(fp.blockSet) > 0 {
		if _, ok := fp.blockSet[blockno]; !ok {
			return false
		}
	}

	return true
}

func (fp *crashFailpoint) shouldTrigger() bool {
	fp.count++

	if fp.after > 0 && fp.count == fp.after {
		return true
	}

	if fp.rate > 0 {
		return fp.rng.Float64() < fp.rate
	}

	return false
}
