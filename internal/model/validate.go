package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ErrInvalidInput marks user-supplied values that fail validation.
var ErrInvalidInput = errors.New("invalid input")

type dateKey struct {
	Date string `validate:"required,datetime=2006-01-02"`
}

// ValidateDate checks a page date key (YYYY-MM-DD).
func ValidateDate(date string) error {
	if err := validate.Struct(dateKey{Date: strings.TrimSpace(date)}); err != nil {
		return fmt.Errorf("%w: date %q (expected YYYY-MM-DD)", ErrInvalidInput, date)
	}
	return nil
}

// ValidateWorkspace checks user-supplied workspace fields.
func ValidateWorkspace(ws Workspace) error {
	if err := validate.Struct(ws); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			f := verrs[0]
			return fmt.Errorf("%w: workspace %s failed %q", ErrInvalidInput, strings.ToLower(f.Field()), f.Tag())
		}
		return fmt.Errorf("%w: workspace: %v", ErrInvalidInput, err)
	}
	return nil
}
