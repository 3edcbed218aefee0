package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsValidation(t *testing.T) {
	if !IsValidation(ErrQuantityInvalid) {
		t.Fatal("expected ErrQuantityInvalid to be a validation error")
	}
	if !IsValidation(fmt.Errorf("wrap: %w", ErrLinesRequired)) {
		t.Fatal("expected wrapped validation error to be detected")
	}
	if IsValidation(ErrOrderNotFound) {
		t.Fatal("ErrOrderNotFound is not a validation error")
	}
	if IsValidation(errors.New("boom")) {
		t.Fatal("arbitrary error is not a validation error")
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(ErrDishNotFound) {
		t.Fatal("expected ErrDishNotFound to be not-found")
	}
	if !IsNotFound(fmt.Errorf("load: %w", ErrOrderNotFound)) {
		t.Fatal("expected wrapped not-found error to be detected")
	}
	if IsNotFound(ErrOrderClosed) {
		t.Fatal("ErrOrderClosed is not a not-found error")
	}
}

func TestIdempotencyStatus_Valid(t *testing.T) {
	for _, status := range []IdempotencyStatus{IdempotencyStatusProcessing, IdempotencyStatusDone, IdempotencyStatusFailed} {
		if !status.Valid() {
			t.Fatalf("expected %s to be valid", status)
		}
	}
	if IdempotencyStatus("unknown").Valid() {
		t.Fatal("unknown status must be invalid")
	}
}
