package category

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/servicedesk/internal/domain"
	apperrors "github.com/spec-kit/servicedesk/pkg/util/errorutil"
)

func intPtr(v int) *int { return &v }
func floatPtr(v float64) *float64 { return &v }

func testFields() []domain.CategoryField {
	return []domain.CategoryField{
		{Name: "asset", Label: "Asset tag", Type: domain.FieldTypeText, Required: true,
			Validation: &domain.FieldRules{MinLength: intPtr(3), MaxLength: intPtr(8), Pattern: `^[A-Z0-9-]+$`}},
		{Name: "notes", Label: "Notes", Type: domain.FieldTypeTextarea},
		{Name: "os", Label: "Operating system", Type: domain.FieldTypeSelect, Options: []string{"linux", "macos", "windows"}},
		{Name: "count", Label: "Devices", Type: domain.FieldTypeNumber, Validation: &domain.FieldRules{Min: floatPtr(1), Max: floatPtr(10)}},
		{Name: "since", Label: "Since", Type: domain.FieldTypeDate},
		{Name: "urgent", Label: "Urgent", Type: domain.FieldTypeBoolean},
	}
}

func TestValidateFieldData_Valid(t *testing.T) {
	data := map[string]any{
		"asset":  "LAP-12",
		"notes":  "screen flickers",
		"os":     "linux",
		"count":  float64(3),
		"since":  "2024-03-01",
		"urgent": "true",
	}
	assert.Empty(t, ValidateFieldData(testFields(), data))
}

func TestValidateFieldData_RequiredMissing(t *testing.T) {
	problems := ValidateFieldData(testFields(), map[string]any{"asset": ""})
	require.Len(t, problems, 1)
	assert.Equal(t, "Field 'Asset tag' is required", problems[0])
}

func TestValidateFieldData_OptionalEmptySkipped(t *testing.T) {
	problems := ValidateFieldData(testFields(), map[string]any{"asset": "AB-1", "count": nil, "since": ""})
	assert.Empty(t, problems)
}

func TestValidateFieldData_TypeDispatch(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value any
		want  string
	}{
		{"text wrong type", "notes", 12, "Field 'Notes' must be a string"},
		{"text too short", "asset", "AB", "Field 'Asset tag' must be at least 3 characters"},
		{"text too long", "asset", "ABCDEFGHIJ", "Field 'Asset tag' must be at most 8 characters"},
		{"text pattern", "asset", "abc-1", "Field 'Asset tag' format is invalid"},
		{"select option", "os", "bsd", "Field 'Operating system' must be one of: linux, macos, windows"},
		{"number parse", "count", "many", "Field 'Devices' must be a number"},
		{"number min", "count", 0, "Field 'Devices' must be at least 1"},
		{"number max", "count", "11", "Field 'Devices' must be at most 10"},
		{"date", "since", "yesterday", "Field 'Since' must be a valid date"},
		{"boolean", "urgent", "yes", "Field 'Urgent' must be true or false"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data := map[string]any{"asset": "AB-12", tc.key: tc.value}
			problems := ValidateFieldData(testFields(), data)
			assert.Contains(t, problems, tc.want)
		})
	}
}

func TestValidateFieldData_JSONNumber(t *testing.T) {
	data := map[string]any{"asset": "AB-12", "count": json.Number("4")}
	assert.Empty(t, ValidateFieldData(testFields(), data))
}

func TestCheckFieldData_ReturnsValidationError(t *testing.T) {
	err := CheckFieldData(testFields(), map[string]any{})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	require.NoError(t, CheckFieldData(testFields(), map[string]any{"asset": "AB-12"}))
}
