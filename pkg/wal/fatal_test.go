package wal_test

import (
	"errors"
	"testing"

	"github.com/loggedfs/walog/pkg/wal"
)

// Invariant violations and configuration errors are fatal: the API panics
// rather than returning an error.

func Test_Init_PanicsOnHeaderTooLargeForBlockSize(t *testing.T) {
	t.Parallel()

	p := wal.Params{BSIZE: 64, LOGSIZE: 30, MAXOPBLOCKS: 10} // 30*4+4=124 >= 64
	sb := defaultSuperblock()
	dev := newTestDevice(t, p, sb, 0)
	cache := newCacheOver(dev, p)

	recovered := mustPanic(t, "Init with oversized header", func() {
		wal.Init(cache, sb, p)
	})

	fe, ok := recovered.(*wal.FatalError)
	if !ok {
		t.Fatalf("recovered value is %T, want *wal.FatalError", recovered)
	}

	if !errors.Is(fe, wal.ErrHeaderTooLarge) {
		t.Errorf("FatalError.Unwrap() = %v, want ErrHeaderTooLarge", fe.Unwrap())
	}
}

func Test_LogWrite_PanicsWhenCalledOutsideTransaction(t *testing.T) {
	t.Parallel()

	p := testParams()
	sb := defaultSuperblock()
	log, cache := newTestLog(t, p, sb, 10)

	buf, err := cache.Bread(firstHomeBlock(sb))
	if err != nil {
		t.Fatalf("Bread: %v", err)
	}
	defer cache.Brelse(buf)

	recovered := mustPanic(t, "log_write outside a transaction", func() {
		log.LogWrite(buf)
	})

	fe, ok := recovered.(*wal.FatalError)
	if !ok {
		t.Fatalf("recovered value is %T, want *wal.FatalError", recovered)
	}

	if !errors.Is(fe, wal.ErrNotInTransaction) {
		t.Errorf("FatalError.Unwrap() = %v, want ErrNotInTransaction", fe.Unwrap())
	}
}

func Test_End_PanicsWhenCalledWithoutMatchingBegin(t *testing.T) {
	t.Parallel()

	p := testParams()
	sb := defaultSuperblock()
	log, _ := newTestLog(t, p, sb, 0)

	recovered := mustPanic(t, "end without begin", func() {
		log.End()
	})

	fe, ok := recovered.(*wal.FatalError)
	if !ok {
		t.Fatalf("recovered value is %T, want *wal.FatalError", recovered)
	}

	if !errors.Is(fe, wal.ErrOutstandingNegative) {
		t.Errorf("FatalError.Unwrap() = %v, want ErrOutstandingNegative", fe.Unwrap())
	}
}

func Test_LogWrite_PanicsWhenLogIsFull(t *testing.T) {
	t.Parallel()

	p := wal.Params{BSIZE: 1024, LOGSIZE: 2, MAXOPBLOCKS: 2}
	sb := defaultSuperblock()
	log, cache := newTestLog(t, p, sb, 10)

	log.Begin()

	for i := uint32(0); i < 2; i++ {
		buf, err := cache.Bread(firstHomeBlock(sb) + i)
		if err != nil {
			t.Fatalf("Bread: %v", err)
		}

		fillBuf(buf, byte(i))
		log.LogWrite(buf)
		cache.Brelse(buf)
	}

	overflow, err := cache.Bread(firstHomeBlock(sb) + 2)
	if err != nil {
		t.Fatalf("Bread: %v", err)
	}
	defer cache.Brelse(overflow)

	recovered := mustPanic(t, "log_write beyond LOGSIZE", func() {
		log.LogWrite(overflow)
	})

	fe, ok := recovered.(*wal.FatalError)
	if !ok {
		t.Fatalf("recovered value is %T, want *wal.FatalError", recovered)
	}

	if !errors.Is(fe, wal.ErrLogFull) {
		t.Errorf("FatalError.Unwrap() = %v, want ErrLogFull", fe.Unwrap())
	}
}

func Test_LogWrite_PanicsWhenBlockIsInsideLogRegion(t *testing.T) {
	t.Parallel()

	p := testParams()
	sb := defaultSuperblock()
	log, cache := newTestLog(t, p, sb, 10)

	log.Begin()
	defer log.End()

	buf, err := cache.Bread(sb.logStart) // the header block, inside the log region
	if err != nil {
		t.Fatalf("Bread: %v", err)
	}
	defer cache.Brelse(buf)

	recovered := mustPanic(t, "log_write on a log-region block", func() {
		log.LogWrite(buf)
	})

	fe, ok := recovered.(*wal.FatalError)
	if !ok {
		t.Fatalf("recovered value is %T, want *wal.FatalError", recovered)
	}

	if !errors.Is(fe, wal.ErrBlockOutOfRange) {
		t.Errorf("FatalError.Unwrap() = %v, want ErrBlockOutOfRange", fe.Unwrap())
	}
}

func Test_InspectHeader_ReturnsErrorInsteadOfPanicking(t *testing.T) {
	t.Parallel()

	p := testParams()

	_, err := wal.InspectHeader(make([]byte, 10), p)
	if !errors.Is(err, wal.ErrShortBlock) {
		t.Errorf("InspectHeader short buffer: err = %v, want ErrShortBlock", err)
	}
}
