package lifecycle

import (
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/ecotrace/collect-api/pkg/models"
)

// phonePattern matches French national and international notations after
// separators are stripped: 0X, +33X or 0033X followed by four digit pairs.
var phonePattern = regexp.MustCompile(`^(?:(?:\+|00)33|0)[1-9]\d{8}$`)

// ValidPhone reports whether the contact phone is in a recognized format.
// Spaces, dots and dashes are ignored.
func ValidPhone(phone string) bool {
	stripped := strings.NewReplacer(" ", "", ".", "", "-", "").Replace(phone)
	return phonePattern.MatchString(stripped)
}

func validateSubmit(input SubmitRequestInput, today time.Time) error {
	if !models.IsValidCategory(input.Category) {
		return errors.Wrapf(ErrValidation, "unknown material category %q", input.Category)
	}
	if !models.IsValidQuantityBand(input.QuantityBand) {
		return errors.Wrapf(ErrValidation, "unknown quantity band %q", input.QuantityBand)
	}
	if input.TimeWindow != "" && !models.IsValidTimeWindow(input.TimeWindow) {
		return errors.Wrapf(ErrValidation, "unknown time window %q", input.TimeWindow)
	}

	switch input.Mode {
	case models.PickupModeHome:
		if input.Address == nil || strings.TrimSpace(*input.Address) == "" {
			return errors.Wrap(ErrValidation, "address is required for home pickups")
		}
	case models.PickupModeDropoff:
	default:
		return errors.Wrapf(ErrValidation, "unknown pickup mode %q", input.Mode)
	}

	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	if input.DesiredDate.Before(day) {
		return errors.Wrap(ErrValidation, "desired date cannot be in the past")
	}

	if !ValidPhone(input.Phone) {
		return errors.Wrapf(ErrValidation, "unrecognized phone format %q", input.Phone)
	}

	if len(input.Photos) > 3 {
		return errors.Wrap(ErrValidation, "at most 3 photos are allowed")
	}

	return nil
}
