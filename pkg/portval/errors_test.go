package portval

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorFormattingAndUnwrap(t *testing.T) {
	base := errors.New("disk full")
	err := WrapError(ErrCodeDatabase, "insert price", base)
	if err.Error() != "DATABASE_ERROR: insert price: disk full" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to unwrap")
	}

	wrapped := fmt.Errorf("outer: %w", NewError(ErrCodeNotFound, "asset missing"))
	if !IsErrorCode(wrapped, ErrCodeNotFound) {
		t.Fatalf("expected NOT_FOUND through wrapping")
	}
	if IsErrorCode(base, ErrCodeNotFound) {
		t.Fatalf("plain error must not match a code")
	}

	if dbError("x", nil) != nil {
		t.Fatalf("dbError(nil) should be nil")
	}
	structured := NewError(ErrCodeMissingData, "gap")
	if got := dbError("x", structured); got != error(structured) {
		t.Fatalf("dbError should pass structured errors through, got %v", got)
	}
	if !IsErrorCode(dbError("x", base), ErrCodeDatabase) {
		t.Fatalf("dbError should classify driver errors")
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
