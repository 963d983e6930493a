package resilience

import (
	"errors"
	"io/fs"
	"strings"
	"syscall"
)

// LockedError marks an error as a file lock held by another process. Use it
// to flag lock conditions that the OS reports in other shapes.
type LockedError struct {
	Err  error
	Path string
}

func (e *LockedError) Error() string {
	return e.Err.Error()
}

func (e *LockedError) Unwrap() error {
	return e.Err
}

// NewLockedError wraps err as a lock on path.
func NewLockedError(err error, path string) *LockedError {
	return &LockedError{Err: err, Path: path}
}

// IsLocked reports whether err (or any error in its chain) means the file is
// held open by someone else: permission denied, a busy or temporarily
// unavailable resource, or the Windows sharing-violation message that
// spreadsheet applications trigger while a workbook is open.
func IsLocked(err error) bool {
	if err == nil {
		return false
	}

	var le *LockedError
	if errors.As(err, &le) {
		return true
	}

	if errors.Is(err, fs.ErrPermission) ||
		errors.Is(err, syscall.EBUSY) ||
		errors.Is(err, syscall.ETXTBSY) ||
		errors.Is(err, syscall.EAGAIN) {
		return true
	}

	msg := strings.ToLower(err.Error())
	lockPatterns := []string{
		"being used by another process",
		"permission denied",
		"access is denied",
		"resource busy",
	}
	for _, p := range lockPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}
