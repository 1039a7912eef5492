package validation

import (
	"regexp"

	"field-crm/pkg/constants"

	"github.com/go-playground/validator/v10"
)

var phoneRegexp = regexp.MustCompile(`^\+?[0-9 ()\-.]{7,20}$`)

// registerRules registers the tags used in DTO struct tags.
func registerRules(v *validator.Validate) error {
	if err := v.RegisterValidation("phone", isPhoneNumber); err != nil {
		return err
	}
	if err := v.RegisterValidation("job_priority", isJobPriority); err != nil {
		return err
	}
	if err := v.RegisterValidation("job_status", isJobStatus); err != nil {
		return err
	}
	if err := v.RegisterValidation("commission_status", isCommissionStatus); err != nil {
		return err
	}
	return nil
}

func isPhoneNumber(fl validator.FieldLevel) bool {
	return phoneRegexp.MatchString(fl.Field().String())
}

func isJobPriority(fl validator.FieldLevel) bool {
	return constants.IsJobPriority(fl.Field().String())
}

func isJobStatus(fl validator.FieldLevel) bool {
	return constants.IsJobStatus(fl.Field().String())
}

func isCommissionStatus(fl validator.FieldLevel) bool {
	return constants.IsCommissionStatus(fl.Field().String())
}
