package service

import (
	appErrors "github.com/noah-isme/intern-tracker-api/pkg/errors"
	"github.com/noah-isme/intern-tracker-api/pkg/validation"
)

// dashboardCachePattern matches every cached dashboard payload.
const dashboardCachePattern = "dash:*"

func validationError(err error, message string) error {
	wrapped := appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
	return appErrors.WithDetails(wrapped, validation.FieldErrors(err))
}

func fieldError(base *appErrors.Error, message, field, detail string) error {
	return appErrors.WithDetails(appErrors.Clone(base, message), map[string][]string{field: {detail}})
}
