package util

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/avast/retry-go/v4"
)

func TestIsDatabaseLocked(t *testing.T) {
	if IsDatabaseLocked(nil) {
		t.Error("nil error should not be a lock error")
	}
	if !IsDatabaseLocked(errors.New("database is locked (5) (SQLITE_BUSY)")) {
		t.Error("SQLITE_BUSY message should be detected")
	}
	if IsDatabaseLocked(errors.New("no such table: notes")) {
		t.Error("unrelated error should not be a lock error")
	}
}

func TestRetrySucceedsAfterTransientLock(t *testing.T) {
	ctx := context.Background()
	attempts := 0

	err := Retry(ctx, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("database is locked")
		}
		return nil
	}, DatabaseRetryOptions(ctx)...)

	if err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetryDoesNotRetryNonLockErrors(t *testing.T) {
	ctx := context.Background()
	attempts := 0
	permanent := errors.New("constraint violation")

	err := Retry(ctx, func() error {
		attempts++
		return permanent
	}, DatabaseRetryOptions(ctx)...)

	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (non-lock errors are permanent)", attempts)
	}
}

func TestRetryWithResult(t *testing.T) {
	ctx := context.Background()
	attempts := 0

	got, err := RetryWithResult(ctx, func() (int, error) {
		attempts++
		if attempts < 2 {
			return 0, errors.New("database is locked")
		}
		return 42, nil
	}, retry.Attempts(3), retry.Delay(time.Millisecond), retry.RetryIf(IsDatabaseLocked))

	if err != nil {
		t.Fatalf("RetryWithResult failed: %v", err)
	}
	if got != 42 {
		t.Errorf("result = %d, want 42", got)
	}
}
