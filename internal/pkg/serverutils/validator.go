package serverutils

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateRequest runs the struct's validate tags. The returned error is a
// validator.ValidationErrors so the error middleware can answer 400.
func ValidateRequest(req interface{}) error {
	return validate.Struct(req)
}

// ValidationMessage renders field errors as "field: rule" pairs.
func ValidationMessage(errs validator.ValidationErrors) string {
	parts := make([]string, 0, len(errs))
	for _, fe := range errs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s: %s=%s", strings.ToLower(fe.Field()), fe.Tag(), fe.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return "invalid request: " + strings.Join(parts, ", ")
}
