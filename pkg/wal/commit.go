package wal

// commit drives the four-phase commit sequence: write_log, write_head,
// install_trans, clear header. It is called by End exactly when the caller
// observes the last outstanding transaction, and runs without l.mu held: no
// other mutator can touch lh while committing is true (Begin sleeps, and
// LogWrite requires outstanding >= 1, which is zero here), so commit reads
// and mutates l.lh directly.
//
// If lh.N == 0 there is nothing to commit and this returns immediately,
// performing no I/O.
func (l *Log) commit() {
	if l.lh.N == 0 {
		return
	}

	l.writeLogPhase()         // phase 1
	l.writeHead()             // phase 2: the commit point
	l.installTransPhase(true) // phase 3
	l.lh.N = 0
	l.writeHead() // phase 4: clear header
}

// writeLogPhase copies every enlisted home block into its log slot and
// writes the slot synchronously. Data blocks must land on disk before the
// header points at them (phase 2); otherwise a crash between the two could
// leave a header referencing stale log contents.
func (l *Log) writeLogPhase() {
	for tail := int32(0); tail < l.lh.N; tail++ {
		homeBuf, err := l.cache.Bread(uint32(l.lh.Block[tail]))
		if err != nil {
			fatal("write_log", err)
		}

		slotBuf, err := l.cache.Bread(l.start + 1 + uint32(tail))
		if err != nil {
			l.cache.Brelse(homeBuf)
			fatal("write_log", err)
		}

		copy(slotBuf.Data, homeBuf.Data)

		if err := l.cache.Bwrite(slotBuf); err != nil {
			l.cache.Brelse(slotBuf)
			l.cache.Brelse(homeBuf)
			fatal("write_log", err)
		}

		l.cache.Brelse(slotBuf)
		l.cache.Brelse(homeBuf)
	}
}
