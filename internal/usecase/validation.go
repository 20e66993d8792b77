package usecase

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/xavierca1/aqar-matcher/internal/entity"
)

var validate = validator.New()

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateStruct runs the struct tags and flattens the result.
func ValidateStruct(v any) []ValidationError {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []ValidationError{{"input", err.Error()}}
	}
	out := make([]ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, ValidationError{Field: fieldName(fe), Message: describeTag(fe)})
	}
	return out
}

func ValidateSubmitRequirementsInput(input SubmitRequirementsInput) []ValidationError {
	errs := ValidateStruct(input)
	if strings.TrimSpace(input.PropertyType) == "" && !hasField(errs, "property_type") {
		errs = append(errs, ValidationError{"property_type", "is required"})
	}
	errs = append(errs, rangeErrors("price", input.PriceMin, input.PriceMax)...)
	errs = append(errs, rangeErrors("area", input.AreaMin, input.AreaMax)...)
	return errs
}

func ValidateRequirement(req entity.Requirement) []ValidationError {
	errs := ValidateStruct(req)
	errs = append(errs, rangeErrors("price", req.PriceMin, req.PriceMax)...)
	errs = append(errs, rangeErrors("area", req.AreaMin, req.AreaMax)...)
	return errs
}

// JoinValidation turns a list of problems into one DomainError, or nil.
func JoinValidation(errs []ValidationError) error {
	if len(errs) == 0 {
		return nil
	}
	parts := make([]string, len(errs))
	for i, e := range errs {
		parts[i] = e.Error()
	}
	return newValidationError(strings.Join(parts, "; "))
}

func rangeErrors(name string, lower, upper *float64) []ValidationError {
	lo, hasLo := bound(lower)
	hi, hasHi := bound(upper)
	if hasLo && hasHi && lo > hi {
		return []ValidationError{{name + "_max", "must be greater than or equal to " + name + "_min"}}
	}
	return nil
}

func hasField(errs []ValidationError, field string) bool {
	for _, e := range errs {
		if e.Field == field {
			return true
		}
	}
	return false
}

var tagFields = map[string]string{
	"Phone":           "phone",
	"Name":            "name",
	"PropertyType":    "property_type",
	"SubCategory":     "sub_category",
	"Purpose":         "purpose",
	"PriceMin":        "price_min",
	"PriceMax":        "price_max",
	"AreaMin":         "area_min",
	"AreaMax":         "area_max",
	"City":            "city",
	"Neighborhoods":   "neighborhoods",
	"ContactNumber":   "contact_number",
	"AdditionalSpecs": "additional_specs",
	"Page":            "page",
}

func fieldName(fe validator.FieldError) string {
	if name, ok := tagFields[fe.StructField()]; ok {
		return name
	}
	return strings.ToLower(fe.Field())
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "gte":
		return "must be >= " + fe.Param()
	case "min":
		return "must have at least " + fe.Param() + " characters"
	case "max":
		return "must not exceed " + fe.Param()
	default:
		return "is invalid"
	}
}
