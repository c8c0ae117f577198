package errors

import "fmt"

var (
	ErrUserNotFound        = fmt.Errorf("user not found")
	ErrOrderNotFound       = fmt.Errorf("order not found")
	ErrPlanNotFound        = fmt.Errorf("subscription plan not found")
	ErrFoodNotFound        = fmt.Errorf("food item not found")
	ErrInvalidAmount       = fmt.Errorf("invalid amount")
	ErrInsufficientCredits = fmt.Errorf("insufficient credits")
	ErrInvalidTransition   = fmt.Errorf("invalid status transition")
	ErrUnknownStatus       = fmt.Errorf("unknown status")
	ErrNotOwner            = fmt.Errorf("unauthorized access to this order")
	ErrUploadFailed        = fmt.Errorf("failed to upload payment proof")
	ErrEmptyProof          = fmt.Errorf("payment proof is required")
	ErrEmptyItems          = fmt.Errorf("order must contain at least one item")
	ErrTotalMismatch       = fmt.Errorf("total does not match subtotal, delivery fee and tax")
)
