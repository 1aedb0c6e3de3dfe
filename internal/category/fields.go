package category

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spec-kit/servicedesk/internal/domain"
	apperrors "github.com/spec-kit/servicedesk/pkg/util/errorutil"
)

type fieldValidator func(field domain.CategoryField, value any) []string

var fieldValidators = map[domain.FieldType]fieldValidator{
	domain.FieldTypeText:     validateText,
	domain.FieldTypeTextarea: validateText,
	domain.FieldTypeSelect:   validateSelect,
	domain.FieldTypeNumber:   validateNumber,
	domain.FieldTypeDate:     validateDate,
	domain.FieldTypeBoolean:  validateBoolean,
}

var dateLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// ValidateFieldData checks data against the category's additional fields and
// returns one message per problem. Keys absent from fields are ignored.
func ValidateFieldData(fields []domain.CategoryField, data map[string]any) []string {
	var problems []string
	for _, field := range fields {
		value, present := data[field.Name]
		if !present || isEmpty(value) {
			if field.Required {
				problems = append(problems, fmt.Sprintf("Field '%s' is required", field.Label))
			}
			continue
		}
		validate, ok := fieldValidators[field.Type]
		if !ok {
			problems = append(problems, fmt.Sprintf("Field '%s' has unsupported type %q", field.Label, field.Type))
			continue
		}
		problems = append(problems, validate(field, value)...)
	}
	return problems
}

// CheckFieldData wraps ValidateFieldData into a ValidationError.
func CheckFieldData(fields []domain.CategoryField, data map[string]any) error {
	problems := ValidateFieldData(fields, data)
	if len(problems) == 0 {
		return nil
	}
	return apperrors.NewValidationError("category field validation failed", map[string]any{"errors": problems})
}

func isEmpty(value any) bool {
	if value == nil {
		return true
	}
	if s, ok := value.(string); ok && s == "" {
		return true
	}
	return false
}

func validateText(field domain.CategoryField, value any) []string {
	s, ok := value.(string)
	if !ok {
		return []string{fmt.Sprintf("Field '%s' must be a string", field.Label)}
	}
	rules := field.Validation
	if rules == nil {
		return nil
	}
	var problems []string
	length := utf8.RuneCountInString(s)
	if rules.MinLength != nil && length < *rules.MinLength {
		problems = append(problems, fmt.Sprintf("Field '%s' must be at least %d characters", field.Label, *rules.MinLength))
	}
	if rules.MaxLength != nil && length > *rules.MaxLength {
		problems = append(problems, fmt.Sprintf("Field '%s' must be at most %d characters", field.Label, *rules.MaxLength))
	}
	if rules.Pattern != "" {
		re, err := regexp.Compile(rules.Pattern)
		if err != nil || !re.MatchString(s) {
			problems = append(problems, fmt.Sprintf("Field '%s' format is invalid", field.Label))
		}
	}
	return problems
}

func validateSelect(field domain.CategoryField, value any) []string {
	if len(field.Options) == 0 {
		return nil
	}
	s, _ := value.(string)
	for _, option := range field.Options {
		if option == s {
			return nil
		}
	}
	return []string{fmt.Sprintf("Field '%s' must be one of: %s", field.Label, strings.Join(field.Options, ", "))}
}

func validateNumber(field domain.CategoryField, value any) []string {
	n, ok := toFloat(value)
	if !ok {
		return []string{fmt.Sprintf("Field '%s' must be a number", field.Label)}
	}
	rules := field.Validation
	if rules == nil {
		return nil
	}
	var problems []string
	if rules.Min != nil && n < *rules.Min {
		problems = append(problems, fmt.Sprintf("Field '%s' must be at least %v", field.Label, *rules.Min))
	}
	if rules.Max != nil && n > *rules.Max {
		problems = append(problems, fmt.Sprintf("Field '%s' must be at most %v", field.Label, *rules.Max))
	}
	return problems
}

func validateDate(field domain.CategoryField, value any) []string {
	s, ok := value.(string)
	if ok {
		for _, layout := range dateLayouts {
			if _, err := time.Parse(layout, s); err == nil {
				return nil
			}
		}
	}
	if _, isTime := value.(time.Time); isTime {
		return nil
	}
	return []string{fmt.Sprintf("Field '%s' must be a valid date", field.Label)}
}

func validateBoolean(field domain.CategoryField, value any) []string {
	switch v := value.(type) {
	case bool:
		return nil
	case string:
		if v == "true" || v == "false" {
			return nil
		}
	}
	return []string{fmt.Sprintf("Field '%s' must be true or false", field.Label)}
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	case fmt.Stringer:
		f, err := strconv.ParseFloat(v.String(), 64)
		return f, err == nil
	}
	return 0, false
}
