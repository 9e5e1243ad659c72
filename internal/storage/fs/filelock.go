package fs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

var ErrLockTimeout = errors.New("timed out waiting for build lock")

const lockPollInterval = 50 * time.Millisecond

// FileLock is an exclusive advisory lock on a file, held for the duration of
// one build into an output directory.
type FileLock struct {
	path string
	file *os.File
}

func AcquireFileLock(ctx context.Context, path string) (*FileLock, error) {
	return AcquireFileLockWithTimeout(ctx, path, 0)
}

// AcquireFileLockWithTimeout polls for the lock until timeout elapses or ctx
// is done. A zero timeout waits as long as ctx allows.
func AcquireFileLockWithTimeout(ctx context.Context, path string, timeout time.Duration) (*FileLock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	for {
		err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
		if err == nil {
			return &FileLock{path: path, file: file}, nil
		}
		if !errors.Is(err, syscall.EWOULDBLOCK) && !errors.Is(err, syscall.EAGAIN) {
			_ = file.Close()
			return nil, err
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			_ = file.Close()
			return nil, ErrLockTimeout
		}
		select {
		case <-ctx.Done():
			_ = file.Close()
			return nil, ctx.Err()
		case <-time.After(lockPollInterval):
		}
	}
}

func (l *FileLock) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

func (l *FileLock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	file := l.file
	l.file = nil
	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_UN); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
