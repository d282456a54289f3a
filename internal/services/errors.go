package services

import (
	"github.com/cockroachdb/errors"
	"github.com/upahan/upahan-api/internal/billing"
	"github.com/upahan/upahan-api/internal/repository"
	"github.com/upahan/upahan-api/internal/statemachine"
	"gorm.io/gorm"
)

// Common service errors. Concrete errors are marked with one of these and carry a
// user-facing hint.
var (
	ErrNotFound           = errors.New("resource not found")
	ErrValidation         = errors.New("validation failed")
	ErrPrecondition       = errors.New("precondition failed")
	ErrDuplicate          = errors.New("duplicate record")
	ErrInvalidState       = errors.New("invalid state transition")
	ErrVersionConflict    = errors.New("concurrent update")
	ErrForbidden          = errors.New("forbidden")
	ErrPlanFeature        = errors.New("feature not included in plan")
	ErrWorkspaceSuspended = errors.New("workspace suspended")
)

// newError builds an error marked with sentinel whose hint is the formatted message
func newError(sentinel error, format string, args ...any) error {
	err := errors.Newf(format, args...)
	err = errors.WithHint(err, err.Error())
	return errors.Mark(err, sentinel)
}

// translate maps repository, state machine and billing errors onto the service sentinels
func translate(err error, entity string) error {
	if err == nil {
		return nil
	}
	switch {
	case isMarked(err):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return errors.Mark(errors.WithHint(err, entity+" not found"), ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return errors.Mark(errors.WithHint(err, entity+" already exists"), ErrDuplicate)
	case errors.Is(err, repository.ErrStaleVersion):
		return errors.Mark(errors.WithHint(err, entity+" was changed by another request, try again"), ErrVersionConflict)
	case errors.Is(err, statemachine.ErrTransitionNotAllowed):
		return errors.Mark(errors.WithHint(err, err.Error()), ErrInvalidState)
	case errors.Is(err, billing.ErrNoOccupants),
		errors.Is(err, billing.ErrNegativeAmount),
		errors.Is(err, billing.ErrNonPositiveAmount),
		errors.Is(err, billing.ErrReadingBelowPrior),
		errors.Is(err, billing.ErrNegativeRate):
		return errors.Mark(errors.WithHint(err, err.Error()), ErrValidation)
	}
	return err
}

func isMarked(err error) bool {
	return errors.IsAny(err, ErrNotFound, ErrValidation, ErrPrecondition, ErrDuplicate, ErrInvalidState,
		ErrVersionConflict, ErrForbidden, ErrPlanFeature, ErrWorkspaceSuspended)
}

// Hint returns the user-facing message of an error, falling back to fallback
func Hint(err error, fallback string) string {
	if hint := errors.FlattenHints(err); hint != "" {
		return hint
	}
	return fallback
}
