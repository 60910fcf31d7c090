package wal_test

import (
	"path/filepath"
	"testing"

	"github.com/loggedfs/walog/pkg/blockdev"
	"github.com/loggedfs/walog/pkg/bufcache"
	"github.com/loggedfs/walog/pkg/wal"
)

// testParams matches the literal end-to-end scenario values used throughout
// this package's tests.
func testParams() wal.Params {
	return wal.Params{BSIZE: 1024, LOGSIZE: 30, MAXOPBLOCKS: 10}
}

type testSuperblock struct {
	logStart uint32
	nLog     uint32
}

func (s testSuperblock) LogStart() uint32 { return s.logStart }
func (s testSuperblock) NLog() uint32     { return s.nLog }

func defaultSuperblock() testSuperblock {
	return testSuperblock{logStart: 2, nLog: 31}
}

// newTestDevice creates a fresh backing file sized to hold the log region
// (sb.logStart+sb.nLog blocks) plus extraHomeBlocks additional home blocks
// past it, and returns it unopened-as-cache so callers can wrap it in
// blockdev.Chaos or blockdev.Crash before building a bufcache.Cache.
func newTestDevice(t *testing.T, p wal.Params, sb testSuperblock, extraHomeBlocks int) *blockdev.Real {
	t.Helper()

	path := filepath.Join(t.TempDir(), "device.img")

	dev, err := blockdev.OpenReal(path, p.BSIZE)
	if err != nil {
		t.Fatalf("OpenReal: %v", err)
	}

	t.Cleanup(func() { _ = dev.Close() })

	if err := dev.Truncate(int(sb.logStart + sb.nLog + uint32(extraHomeBlocks))); err != nil { //nolint:gosec // test-only bound
		t.Fatalf("Truncate: %v", err)
	}

	return dev
}

// newCacheOver builds a fresh, empty bufcache.Cache over an already-open
// device, used when a test needs multiple independent Log instances (and
// hence independent caches, since pin/refcount state must not leak between
// them) sharing the same underlying bytes.
func newCacheOver(dev *blockdev.Real, p wal.Params) *bufcache.Cache {
	return bufcache.New(dev, p.BSIZE, 0)
}

// newTestLog builds a fresh, formatted log over a brand-new device: Init's
// recovery pass on an all-zero region is a no-op, leaving a clean header.
func newTestLog(t *testing.T, p wal.Params, sb testSuperblock, extraHomeBlocks int) (*wal.Log, *bufcache.Cache) {
	t.Helper()

	dev := newTestDevice(t, p, sb, extraHomeBlocks)
	cache := bufcache.New(dev, p.BSIZE, 0)
	log := wal.Init(cache, sb, p)

	return log, cache
}

// firstHomeBlock is the first block number past the log region, a
// convenient "home" block address for tests that don't care about exact
// placement.
func firstHomeBlock(sb testSuperblock) uint32 {
	return sb.logStart + sb.nLog
}

func fillBuf(buf *wal.Buf, value byte) {
	for i := range buf.Data {
		buf.Data[i] = value
	}
}

func mustPanic(t *testing.T, what string, fn func()) (recovered any) {
	t.Helper()

	defer func() {
		recovered = recover()
	}()

	fn()

	if recovered == nil {
		t.Fatalf("%s: expected a panic, got none", what)
	}

	return recovered
}
