// Package wal implements a block-level write-ahead log: crash-safe, atomic
// multi-block updates to a block-addressable device on behalf of a
// filesystem-like client.
//
// A Log is constructed once per device with Init, which also performs
// recovery. Filesystem code brackets each operation with Begin/End; between
// them it reads blocks through a BufferCache, mutates them, and calls
// LogWrite to enlist each modified block. When the last operation in a batch
// ends, the commit engine runs while new Begin calls are blocked.
package wal

import "sync"

// Log is the process-wide, single-instance log state. Callers own the value
// returned by Init and pass it wherever the filesystem layer needs log
// services — it is not a package-level global.
type Log struct {
	params Params
	cache  BufferCache

	start uint32
	size  uint32

	mu   sync.Mutex
	cond *sync.Cond

	lh          Header
	outstanding int
	committing  bool
}

// Init loads the log region geometry from sb, initializes the lock, and
// performs recovery exactly once before the log accepts any operation. A
// malformed Params (header too large for BSIZE) is a configuration error
// and is fatal: "header too large at init" is a panic condition here, not
// an ordinary constructor error.
func Init(cache BufferCache, sb SuperblockView, p Params) *Log {
	if err := p.validate(); err != nil {
		fatal("init", err)
	}

	l := &Log{
		params: p,
		cache:  cache,
		start:  sb.LogStart(),
		size:   sb.NLog(),
		lh:     newHeader(p),
	}
	l.cond = sync.NewCond(&l.mu)

	l.recover()

	return l
}

// recover runs the recovery algorithm: read the header, install every
// logged block to its home location unconditionally
// (pin counts are untouched — no buffer was pinned by a previous boot), then
// clear the header. It shares installBlock with commit's phase 3 because
// both perform the exact same slot-to-home copy; the only difference is that
// recovery never holds a pin to release.
func (l *Log) recover() {
	l.lh = l.readHead()
	l.installTransPhase(false)
	l.lh.N = 0
	l.writeHead()
}

// readHead reads and decodes the header block.
func (l *Log) readHead() Header {
	buf, err := l.cache.Bread(l.start)
	if err != nil {
		fatal("read_head", err)
	}
	defer l.cache.Brelse(buf)

	return decodeHeader(buf.Data, l.params)
}

// writeHead serializes l.lh into the header block and writes it
// synchronously. It reads the existing block first so encodeHeader's
// in-place mutation preserves whatever trailing bytes the block already
// carries.
func (l *Log) writeHead() {
	buf, err := l.cache.Bread(l.start)
	if err != nil {
		fatal("write_head", err)
	}

	encodeHeader(l.lh, l.params, buf.Data)

	if err := l.cache.Bwrite(buf); err != nil {
		l.cache.Brelse(buf)
		fatal("write_head", err)
	}

	l.cache.Brelse(buf)
}

// installTransPhase copies every logged slot to its home location. unpin
// controls whether the home buffer's pin is released afterward: commit's
// phase 3 unpins (the block was pinned by LogWrite and install makes it safe
// to evict); recovery does not, because no pin was ever taken this boot.
func (l *Log) installTransPhase(unpin bool) {
	for tail := int32(0); tail < l.lh.N; tail++ {
		l.installBlock(tail, unpin)
	}
}

func (l *Log) installBlock(tail int32, unpin bool) {
	slotBuf, err := l.cache.Bread(l.start + 1 + uint32(tail))
	if err != nil {
		fatal("install_trans", err)
	}

	homeBuf, err := l.cache.Bread(uint32(l.lh.Block[tail]))
	if err != nil {
		l.cache.Brelse(slotBuf)
		fatal("install_trans", err)
	}

	copy(homeBuf.Data, slotBuf.Data)

	if err := l.cache.Bwrite(homeBuf); err != nil {
		l.cache.Brelse(homeBuf)
		l.cache.Brelse(slotBuf)
		fatal("install_trans", err)
	}

	if unpin {
		l.cache.Bunpin(homeBuf)
	}

	l.cache.Brelse(homeBuf)
	l.cache.Brelse(slotBuf)
}
