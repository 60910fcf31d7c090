package blockdev

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Real is a Device backed by a single regular file, addressed by
// fixed-size blocks at byte offset blockno*bsize. It is a narrowed
// counterpart of a generic path-based filesystem passthrough: instead of
// Open/ReadFile/Rename over a tree of named files, it exposes the three
// block-addressed primitives a log actually calls.
type Real struct {
	file  *os.File
	bsize int
}

// OpenReal opens (creating if necessary) path as a block device file whose
// blocks are bsize bytes each.
func OpenReal(path string, bsize int) (*Real, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644) //nolint:gosec // device path is caller-controlled
	if err != nil {
		return nil, fmt.Errorf("blockdev: open %s: %w", path, err)
	}

	return &Real{file: f, bsize: bsize}, nil
}

// Truncate resizes the backing file to hold exactly nblocks blocks, zero
// filling any newly added range. Used at format time (cmd/walfsck --format)
// and by tests that need a freshly sized device.
func (r *Real) Truncate(nblocks int) error {
	if err := r.file.Truncate(int64(nblocks) * int64(r.bsize)); err != nil {
		return fmt.Errorf("blockdev: truncate to %d blocks: %w", nblocks, err)
	}

	return nil
}

func (r *Real) ReadBlock(blockno uint32, buf []byte) error {
	if len(buf) != r.bsize {
		return fmt.Errorf("blockdev: read block %d: buffer is %d bytes, want %d", blockno, len(buf), r.bsize)
	}

	off := int64(blockno) * int64(r.bsize)
	if _, err := r.file.ReadAt(buf, off); err != nil {
		return fmt.Errorf("blockdev: read block %d: %w", blockno, err)
	}

	return nil
}

// WriteBlock writes buf to blockno and fsyncs before returning — the
// commit protocol requires every bwrite to be durable on return.
func (r *Real) WriteBlock(blockno uint32, buf []byte) error {
	if len(buf) != r.bsize {
		return fmt.Errorf("blockdev: write block %d: buffer is %d bytes, want %d", blockno, len(buf), r.bsize)
	}

	off := int64(blockno) * int64(r.bsize)
	if _, err := r.file.WriteAt(buf, off); err != nil {
		return fmt.Errorf("blockdev: write block %d: %w", blockno, err)
	}

	return r.Sync()
}

func (r *Real) Sync() error {
	if err := unix.Fsync(int(r.file.Fd())); err != nil {
		return fmt.Errorf("blockdev: fsync: %w", err)
	}

	return nil
}

func (r *Real) Close() error {
	if err := r.file.Close(); err != nil {
		return fmt.Errorf("blockdev: close: %w", err)
	}

	return nil
}

var _ Device = (*Real)(nil)
