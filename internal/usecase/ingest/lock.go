package ingest

import (
	"errors"
	"fmt"
	"os"
	"strconv"
)

// ErrLocked signals that another merge or rebuild holds the lock.
var ErrLocked = errors.New("store is locked by another writer")

// Lock creates path exclusively and returns a release func. The file holds the
// owner's pid for operators.
func Lock(path string) (func() error, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600) //nolint:gosec // operator-supplied path
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrLocked)
		}
		return nil, fmt.Errorf("create lock: %w", err)
	}
	if _, err := f.WriteString(strconv.Itoa(os.Getpid())); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return nil, fmt.Errorf("write lock: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("close lock: %w", err)
	}
	return func() error { return os.Remove(path) }, nil
}
