package handler

import (
	"fmt"

	dErrors "engage/pkg/domain-errors"
)

func pointsTooHigh(limit int) error {
	return dErrors.Validation(dErrors.FieldError{
		Location: "body",
		Field:    "points",
		Message:  fmt.Sprintf("points must be at most %d", limit),
	})
}
