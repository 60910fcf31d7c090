package blockdev_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/loggedfs/walog/pkg/blockdev"
)

const testBSIZE = 512

func Test_Real_WriteThenReadBlock_RoundTrips(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "device.img")

	dev, err := blockdev.OpenReal(path, testBSIZE)
	if err != nil {
		t.Fatalf("OpenReal: %v", err)
	}
	defer dev.Close()

	if err := dev.Truncate(4); err != nil {
		t.Fatalf("Truncate: %v", err)
	}

	want := bytes.Repeat([]byte{0x5A}, testBSIZE)
	if err := dev.WriteBlock(2, want); err != nil {
		t.Fatalf("WriteBlock: %v", err)
	}

	got := make([]byte, testBSIZE)
	if err := dev.ReadBlock(2, got); err != nil {
		t.Fatalf("ReadBlock: %v", err)
	}

	if !bytes.Equal(got, want) {
		t.Errorf("ReadBlock(2) = %x, want %x", got[:8], want[:8])
	}
}

func Test_Real_ReadBlock_RejectsWrongBufferSize(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "device.img")

	dev, err := blockdev.OpenReal(path, testBSIZE)
	if err != nil {
		t.Fatalf("OpenReal: %v", err)
	}
	defer dev.Close()

	if err := dev.Truncate(1); err != nil {
		t.Fatalf("Truncate: %v", err)
	}

	if err := dev.ReadBlock(0, make([]byte, testBSIZE-1)); err == nil {
		t.Error("ReadBlock with undersized buffer: want error, got nil")
	}
}

func Test_Real_Truncate_ZeroFillsNewRange(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "device.img")

	dev, err := blockdev.OpenReal(path, testBSIZE)
	if err != nil {
		t.Fatalf("OpenReal: %v", err)
	}
	defer dev.Close()

	if err := dev.Truncate(2); err != nil {
		t.Fatalf("Truncate: %v", err)
	}

	got := make([]byte, testBSIZE)
	if err := dev.ReadBlock(1, got); err != nil {
		t.Fatalf("ReadBlock: %v", err)
	}

	want := make([]byte, testBSIZE)
	if !bytes.Equal(got, want) {
		t.Errorf("freshly truncated block is not zero-filled")
	}
}

func Test_Real_Sync_SucceedsOnOpenFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "device.img")

	dev, err := blockdev.OpenReal(path, testBSIZE)
	if err != nil {
		t.Fatalf("OpenReal: %v", err)
	}
	defer dev.Close()

	if err := dev.Sync(); err != nil {
		t.Errorf("Sync: %v", err)
	}
}
