package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/dd0wney/cluso-bim/pkg/bim"
)

var (
	// validate is a singleton validator instance
	validate *validator.Validate

	// Validation constants
	MaxProperties    = 200
	MaxPropertyKey   = 100
	RequiredConnects = 2
)

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	if err := validate.RegisterValidation("element_type", validateElementType); err != nil {
		panic(fmt.Sprintf("validation: register element_type: %v", err))
	}
}

func validateElementType(fl validator.FieldLevel) bool {
	return bim.ElementType(fl.Field().String()).Valid()
}

// FieldError reports one invalid field of an element.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// ValidateElement checks the shape of a single element: required fields, a
// known type, property keys and connects entries. Referential checks live in
// the registry because they need the whole set.
func ValidateElement(e *bim.Element) error {
	if e == nil {
		return errors.New("element cannot be nil")
	}

	if err := validate.Struct(e); err != nil {
		return formatValidationError(err)
	}

	if strings.TrimSpace(e.ID) != e.ID {
		return &FieldError{Field: "id", Reason: "must not have leading or trailing whitespace"}
	}

	if len(e.Properties) > MaxProperties {
		return &FieldError{Field: "properties", Reason: fmt.Sprintf("maximum %d properties allowed, got %d", MaxProperties, len(e.Properties))}
	}
	for key := range e.Properties {
		if err := ValidatePropertyKey(key); err != nil {
			return &FieldError{Field: "properties", Reason: err.Error()}
		}
	}

	if e.Type == bim.TypeDoor && e.Connects != nil && len(e.Connects) != RequiredConnects {
		return &FieldError{Field: "connects", Reason: fmt.Sprintf("a door connects exactly %d elements, got %d", RequiredConnects, len(e.Connects))}
	}
	return nil
}

// ValidatePropertyKey validates a property key. BIM exports use free-form
// keys so only emptiness, length and control characters are rejected.
func ValidatePropertyKey(key string) error {
	if key == "" {
		return errors.New("property key cannot be empty")
	}
	if len(key) > MaxPropertyKey {
		return fmt.Errorf("property key '%s' exceeds maximum length of %d characters", key, MaxPropertyKey)
	}
	for _, r := range key {
		if unicode.IsControl(r) {
			return fmt.Errorf("property key %q contains control characters", key)
		}
	}
	return nil
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	// Return the first validation error in a user-friendly format
	for _, e := range validationErrs {
		field := jsonFieldName(e.Field())
		switch e.Tag() {
		case "required":
			return &FieldError{Field: field, Reason: "field is required"}
		case "max":
			return &FieldError{Field: field, Reason: "must not exceed " + e.Param()}
		case "element_type":
			return &FieldError{Field: field, Reason: fmt.Sprintf("unknown element type %q", e.Value())}
		default:
			return &FieldError{Field: field, Reason: fmt.Sprintf("validation failed (%s)", e.Tag())}
		}
	}

	return err
}

func jsonFieldName(structField string) string {
	if i := strings.IndexByte(structField, '['); i >= 0 {
		structField = structField[:i]
	}
	switch structField {
	case "ID":
		return "id"
	case "ParentID":
		return "parent_id"
	default:
		return strings.ToLower(structField)
	}
}
