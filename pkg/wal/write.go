package wal

// LogWrite enlists buf's current data in the active transaction. The
// caller must hold a Begin reservation and must have buf locked with the
// updated data already written into it. buf.Blockno must be a home block
// outside the log region itself — enlisting a log slot or the header would
// let commit corrupt its own bookkeeping.
//
// Repeated writes to the same block within one transaction absorb into a
// single log slot: the pin is taken only on first enlistment, and the
// buffer stays pinned until install completes in commit's phase 3.
//
// LogWrite never suspends — it is lock-held bookkeeping only.
func (l *Log) LogWrite(buf *Buf) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.outstanding < 1 {
		fatal("log_write", ErrNotInTransaction)
	}

	if l.committing {
		fatal("log_write", ErrWriteWhileCommitting)
	}

	if buf.Blockno >= l.start && buf.Blockno < l.start+l.size {
		fatal("log_write", ErrBlockOutOfRange)
	}

	if l.lh.N >= int32(l.params.LOGSIZE) || l.lh.N >= int32(l.size)-1 {
		fatal("log_write", ErrLogFull)
	}

	i := l.lh.N

	for idx := int32(0); idx < l.lh.N; idx++ {
		if l.lh.Block[idx] == int32(buf.Blockno) {
			i = idx

			break
		}
	}

	l.lh.Block[i] = int32(buf.Blockno)

	if i == l.lh.N {
		l.cache.Bpin(buf)
		l.lh.N++
	}
}
