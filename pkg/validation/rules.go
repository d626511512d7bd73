package validation

import (
	"time"

	"github.com/go-playground/validator/v10"
)

const DateLayout = "2006-01-02"

func registerRules(v *validator.Validate) error {
	if err := v.RegisterValidation("iso_date", isISODate); err != nil {
		return err
	}
	if err := v.RegisterValidation("date_not_before", isDateNotBefore); err != nil {
		return err
	}
	if err := v.RegisterValidation("positive_ids", arePositiveIDs); err != nil {
		return err
	}
	return nil
}

// isISODate accepts YYYY-MM-DD.
func isISODate(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// isDateNotBefore compares the field with the sibling named in the tag
// parameter, e.g. `validate:"date_not_before=RequestedStartDate"`.
func isDateNotBefore(fl validator.FieldLevel) bool {
	end, err := time.Parse(DateLayout, fl.Field().String())
	if err != nil {
		return false
	}
	other := fl.Parent().FieldByName(fl.Param())
	if !other.IsValid() {
		return false
	}
	start, err := time.Parse(DateLayout, other.String())
	if err != nil {
		// the sibling carries its own iso_date rule
		return true
	}
	return !end.Before(start)
}

func arePositiveIDs(fl validator.FieldLevel) bool {
	ids, ok := fl.Field().Interface().([]int64)
	if !ok {
		return false
	}
	for _, id := range ids {
		if id <= 0 {
			return false
		}
	}
	return true
}
