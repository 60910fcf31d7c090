package blockdev

import "os"

// Crash wraps a Device and can simulate power loss mid-operation. The
// wrapped operation is always allowed to run to completion against the
// underlying device first — a real power loss can land on either side of an
// fsync, but by the time the caller observes completion the write is either
// fully durable or it never happened, so letting the real operation finish
// before crashing models "crash right after this op's durability point" —
// the boundary commit-crash tests need to probe.
type Crash struct {
	dev Device
	fp  *crashFailpoint
}

func NewCrash(dev Device, cfg CrashFailpointConfig) *Crash {
	return &Crash{dev: dev, fp: newCrashFailpoint(cfg)}
}

func (c *Crash) ReadBlock(blockno uint32, buf []byte) error {
	err := c.dev.ReadBlock(blockno, buf)
	c.maybeCrash(CrashOpRead, blockno)

	return err
}

func (c *Crash) WriteBlock(blockno uint32, buf []byte) error {
	err := c.dev.WriteBlock(blockno, buf)
	c.maybeCrash(CrashOpWrite, blockno)

	return err
}

func (c *Crash) Sync() error {
	err := c.dev.Sync()
	c.maybeCrash(CrashOpSync, 0)

	return err
}

func (c *Crash) maybeCrash(op CrashOp, blockno uint32) {
	if !c.fp.eligible(op, blockno) || !c.fp.shouldTrigger() {
		return
	}

	if c.fp.action == CrashFailpointExit {
		os.Exit(c.fp.exitCode)
	}

	panic(&CrashPanicError{Op: op, Blockno: blockno})
}

var _ Device = (*Crash)(nil)
