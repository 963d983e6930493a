package resilience

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"syscall"
	"testing"
)

func TestIsLocked_ExplicitLockedError(t *testing.T) {
	err := NewLockedError(errors.New("open by excel"), "book.xlsx")
	if !IsLocked(err) {
		t.Error("expected LockedError to be locked")
	}
	if err.Path != "book.xlsx" {
		t.Errorf("expected path book.xlsx, got %q", err.Path)
	}
}

func TestIsLocked_WrappedPermission(t *testing.T) {
	err := &os.PathError{Op: "open", Path: "book.xlsx", Err: fs.ErrPermission}
	wrapped := fmt.Errorf("workbook: load: %w", err)
	if !IsLocked(wrapped) {
		t.Error("expected wrapped permission error to be locked")
	}
}

func TestIsLocked_NilError(t *testing.T) {
	if IsLocked(nil) {
		t.Error("nil error should not be locked")
	}
}

func TestIsLocked_RegularError(t *testing.T) {
	if IsLocked(errors.New("zip: not a valid zip file")) {
		t.Error("regular error should not be locked")
	}
	if IsLocked(fs.ErrNotExist) {
		t.Error("missing file should not be locked")
	}
}

func TestIsLocked_Errno(t *testing.T) {
	for _, errno := range []syscall.Errno{syscall.EBUSY, syscall.ETXTBSY, syscall.EAGAIN, syscall.EACCES} {
		err := &os.PathError{Op: "open", Path: "book.xlsx", Err: errno}
		if !IsLocked(err) {
			t.Errorf("%v should be locked", errno)
		}
	}
}

func TestIsLocked_StringPatterns(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{"The process cannot access the file because it is being used by another process.", true},
		{"open C:\\data\\book.xlsx: Access is denied.", true},
		{"device or resource busy", true},
		{"unexpected EOF", false},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			if got := IsLocked(errors.New(tt.msg)); got != tt.want {
				t.Errorf("IsLocked(%q) = %v, want %v", tt.msg, got, tt.want)
			}
		})
	}
}
