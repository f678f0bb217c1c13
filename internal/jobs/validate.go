package jobs

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/Adithya-Monish-Kumar-K/jobmatch/pkg/errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidationError holds per-record field failures, keyed as
// "<index>.<field>".
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s:%s", k, e.Fields[k]))
	}
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return apperrors.ErrInvalidInput
}

// Validate checks every posting and reports all failures at once. Duplicate
// ids are rejected as well.
func Validate(postings []Posting) error {
	errs := make(map[string]string)
	seen := make(map[ID]int, len(postings))
	for i, p := range postings {
		if err := validate.Struct(p); err != nil {
			var fieldErrs validator.ValidationErrors
			if !errors.As(err, &fieldErrs) {
				return fmt.Errorf("validating job %d: %w", i, err)
			}
			for _, fe := range fieldErrs {
				errs[fmt.Sprintf("%d.%s", i, jsonName(fe.Field()))] = describe(fe)
			}
		}
		if p.ID == "" {
			continue
		}
		if first, dup := seen[p.ID]; dup {
			errs[fmt.Sprintf("%d.id", i)] = fmt.Sprintf("duplicate of job %d", first)
			continue
		}
		seen[p.ID] = i
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", jsonName(fe.Field()))
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", jsonName(fe.Field()), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", jsonName(fe.Field()), fe.Tag())
	}
}

func jsonName(field string) string {
	if field == "Description" {
		return "desc"
	}
	return strings.ToLower(field)
}
