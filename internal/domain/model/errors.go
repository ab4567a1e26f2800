package model

import (
	"errors"
	"fmt"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")

	ErrAddressNotFound  = fmt.Errorf("delivery address %w", ErrNotFound)
	ErrOrderNotFound    = fmt.Errorf("order %w", ErrNotFound)
	ErrAddressForbidden = fmt.Errorf("delivery address access %w", ErrUnauthorized)
)

// ValidationError 呼叫端可修正的輸入錯誤，Field 指出出錯的位置，例如 items[1].quantity
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// GroupFailure 多餐廳結帳中單一餐廳訂單寫入失敗
type GroupFailure struct {
	RestaurantID string
	Err          error
}

// CheckoutError 所有餐廳訂單都寫入失敗
type CheckoutError struct {
	Failures []GroupFailure
}

func (e *CheckoutError) Error() string {
	if len(e.Failures) == 0 {
		return "checkout failed"
	}
	return fmt.Sprintf("checkout failed for %d restaurant(s): restaurant %s: %v",
		len(e.Failures), e.Failures[0].RestaurantID, e.Failures[0].Err)
}

func (e *CheckoutError) Unwrap() error {
	if len(e.Failures) == 0 {
		return nil
	}
	return e.Failures[0].Err
}
