package validator

import (
	"reflect"
	"strings"

	apperrors "github.com/craigjefferies/kotakureo-phonics-check-assistant/internal/errors"
	"github.com/craigjefferies/kotakureo-phonics-check-assistant/internal/models"
	"github.com/go-playground/validator/v10"
)

// Validator wraps struct-tag validation with the custom domain validators
// registered once at construction.
type Validator struct {
	structValidator *validator.Validate
}

// New creates a new validator instance
func New() *Validator {
	structValidator := validator.New()
	registerCustomValidators(structValidator)

	return &Validator{
		structValidator: structValidator,
	}
}

// ValidateStruct validates struct tags, converting failures to the shared
// validation error type so callers can map them uniformly.
func (v *Validator) ValidateStruct(s interface{}) error {
	if err := v.structValidator.Struct(s); err != nil {
		if ve := apperrors.ToValidationErrors(err); len(ve) > 0 {
			return ve
		}
		return err
	}
	return nil
}

func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("word_result", validateWordResult)
	validate.RegisterValidation("check_status", validateCheckStatus)
	validate.RegisterValidation("check_type", validateCheckType)

	// Report field names from json tags for better error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

func validateWordResult(fl validator.FieldLevel) bool {
	switch models.WordResult(fl.Field().String()) {
	case models.ResultCorrect, models.ResultIncorrect, models.ResultNotAttempted:
		return true
	}
	return false
}

func validateCheckStatus(fl validator.FieldLevel) bool {
	switch models.CheckStatus(fl.Field().String()) {
	case models.StatusInProgress, models.StatusCompleted, models.StatusNotDone:
		return true
	}
	return false
}

func validateCheckType(fl validator.FieldLevel) bool {
	switch models.CheckType(fl.Field().String()) {
	case models.CheckTypeTwenty, models.CheckTypeForty:
		return true
	}
	return false
}
