// Package devlock provides a cross-process advisory lock over a device
// file, so that two processes never run Init/recovery against the same
// backing file concurrently.
package devlock

import (
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// DefaultTimeout is the timeout Acquire uses.
const DefaultTimeout = 5 * time.Second

// Lock errors.
var (
	ErrLockTimeout  = errors.New("lock timeout")
	ErrLockFileOpen = errors.New("failed to open lock file")
)

const lockFilePerm = 0o644

// DeviceLock holds an exclusive advisory lock on a device's sidecar lock
// file.
type DeviceLock struct {
	path string
	file *os.File
}

// AcquireWithTimeout takes an exclusive lock on devicePath's sidecar
// ".lock" file, retrying until timeout. A separate sidecar file is used
// (rather than locking devicePath itself) so the lock's lifetime is
// independent of the device file's — the device can be reopened, truncated,
// or replaced without disturbing lock holders.
func AcquireWithTimeout(devicePath string, timeout time.Duration) (*DeviceLock, error) {
	lockPath := devicePath + ".lock"

	file, openErr := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, lockFilePerm) //nolint:gosec // path is from caller
	if openErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrLockFileOpen, openErr)
	}

	deadline := time.Now().Add(timeout)

	const retryInterval = 10 * time.Millisecond

	for {
		flockErr := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if flockErr == nil {
			return &DeviceLock{path: lockPath, file: file}, nil
		}

		if time.Now().After(deadline) {
			_ = file.Close()

			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, devicePath)
		}

		time.Sleep(retryInterval)
	}
}

// Acquire takes an exclusive lock on devicePath using DefaultTimeout.
func Acquire(devicePath string) (*DeviceLock, error) {
	return AcquireWithTimeout(devicePath, DefaultTimeout)
}

// Release releases the lock.
func (l *DeviceLock) Release() {
	if l.file != nil {
		_ = unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
		_ = l.file.Close()
	}
}

// WithDeviceLock runs fn while holding an exclusive lock on devicePath. It is
// the bracket cmd/walfsck uses around format/recover so a second invocation
// against the same device blocks (up to DefaultTimeout) rather than racing.
func WithDeviceLock(devicePath string, fn func() error) error {
	lock, err := Acquire(devicePath)
	if err != nil {
		return fmt.Errorf("acquiring device lock: %w", err)
	}

	defer lock.Release()

	return fn()
}
