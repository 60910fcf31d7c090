package wal

import (
	"encoding/binary"
	"fmt"
)

// Header is the in-memory mirror of the on-disk log header block ("lh"): n
// valid entries, and the home block number for each of log slots 1..n.
type Header struct {
	N     int32
	Block []int32 // len == Params.LOGSIZE; only Block[0:N] is meaningful
}

func newHeader(p Params) Header {
	return Header{Block: make([]int32, p.LOGSIZE)}
}

func (h Header) clone() Header {
	c := Header{N: h.N, Block: make([]int32, len(h.Block))}
	copy(c.Block, h.Block)

	return c
}

// encodeHeader writes h's n and block[] fields into the prefix of buf:
// offset 0 is n, offset 4 is block[0..LOGSIZE), both little-endian 32-bit
// signed integers. buf must already hold the full BSIZE-length block image
// (typically the previous contents read via bread); only the prefix is
// mutated, so whatever trailing bytes buf already carries are preserved
// verbatim — the whole block is written back out, but only its prefix
// actually changes.
func encodeHeader(h Header, p Params, buf []byte) {
	if len(buf) < p.BSIZE {
		fatal("encodeHeader", fmt.Errorf("%w: got %d, want %d", ErrShortBlock, len(buf), p.BSIZE))
	}

	binary.LittleEndian.PutUint32(buf[0:4], uint32(h.N))

	for i := 0; i < p.LOGSIZE; i++ {
		var v int32
		if i < len(h.Block) {
			v = h.Block[i]
		}

		off := headerFieldSize + i*headerFieldSize
		binary.LittleEndian.PutUint32(buf[off:off+4], uint32(v))
	}
}

// decodeHeader parses a BSIZE-length block written by encodeHeader. The
// remainder of buf beyond the header fields is ignored.
func decodeHeader(buf []byte, p Params) Header {
	if len(buf) < p.BSIZE {
		fatal("decodeHeader", fmt.Errorf("%w: got %d, want %d", ErrShortBlock, len(buf), p.BSIZE))
	}

	h := newHeader(p)
	h.N = int32(binary.LittleEndian.Uint32(buf[0:4]))

	for i := 0; i < p.LOGSIZE; i++ {
		off := headerFieldSize + i*headerFieldSize
		h.Block[i] = int32(binary.LittleEndian.Uint32(buf[off : off+4]))
	}

	return h
}

// InspectHeader decodes a header block without panicking on malformed input.
// It exists for diagnostic tools (cmd/walfsck) that want to report a problem
// rather than crash the process; the log itself never calls this — it uses
// the panicking decodeHeader, because a malformed header at recovery time is
// genuinely fatal.
func InspectHeader(buf []byte, p Params) (Header, error) {
	if len(buf) < p.BSIZE {
		return Header{}, fmt.Errorf("%w: got %d bytes, want %d", ErrShortBlock, len(buf), p.BSIZE)
	}

	return decodeHeader(buf, p), nil
}
