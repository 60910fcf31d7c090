// Package blockdev provides a block-addressable device abstraction plus two
// wrappers used to exercise the log under adverse conditions: Chaos injects
// probabilistic I/O errors, and Crash simulates power loss mid-operation.
package blockdev

// Device is a block-addressable storage device: a fixed-size array of
// blocks, each read and written as a whole, with an explicit durability
// barrier. WriteBlock must not return until its data is durable — the log's
// commit protocol depends on that.
type Device interface {
	ReadBlock(blockno uint32, buf []byte) error
	WriteBlock(blockno uint32, buf []byte) error
	Sync() error
}
