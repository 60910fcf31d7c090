package wal

// Buf is a handle to one buffer cache entry: the home or log-slot block
// number it mirrors, and the in-memory data. The log never allocates a Buf
// itself — it only reads and writes the Data of buffers it is handed by
// BufferCache.
type Buf struct {
	Blockno uint32
	Data    []byte // len == Params.BSIZE
}

// BufferCache is the buffer cache contract the log depends on:
// bread/bwrite/brelse/bpin/bunpin. The log is the only consumer of this
// interface within this module; a concrete implementation lives in
// pkg/bufcache.
type BufferCache interface {
	// Bread returns the buffer for blockno, locked and reference-held. A
	// cache miss reads through to the underlying device.
	Bread(blockno uint32) (*Buf, error)

	// Bwrite synchronously writes buf's data to its durable home — it must
	// not return until the write is durable.
	Bwrite(buf *Buf) error

	// Brelse unlocks buf and drops the caller's reference.
	Brelse(buf *Buf)

	// Bpin and Bunpin adjust an eviction-suppression refcount on buf. Every
	// Bpin must be paired with exactly one later Bunpin.
	Bpin(buf *Buf)
	Bunpin(buf *Buf)
}

// SuperblockView is the narrow slice of the superblock the log depends on:
// the first block of the log region and its length.
type SuperblockView interface {
	LogStart() uint32
	NLog() uint32
}
