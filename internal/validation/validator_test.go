package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fretlog/internal/domain"
)

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		name   string
		errors []FieldError
		want   string
	}{
		{"no errors", []FieldError{}, "validation error"},
		{"single error", []FieldError{{Field: "name", Message: "is required"}}, "validation error for field 'name': is required"},
		{"multiple errors", []FieldError{{Field: "name", Message: "a"}, {Field: "type", Message: "b"}}, "multiple validation errors: "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ve := &ValidationError{Errors: tt.errors}
			assert.True(t, strings.HasPrefix(ve.Error(), tt.want))
		})
	}
}

func TestValidator_ValidateCategory(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name     string
		category domain.Category
		fields   []string
	}{
		{"valid", domain.Category{Name: "Song", Type: domain.CategoryTypeSong, Color: "#4f46e5"}, nil},
		{"short color", domain.Category{Name: "Song", Type: domain.CategoryTypeSong, Color: "#abc"}, nil},
		{"blank name", domain.Category{Name: "  ", Type: domain.CategoryTypeSong}, []string{"name"}},
		{"bad type and color", domain.Category{Name: "X", Type: "Vocals", Color: "red"}, []string{"type", "color"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateCategory(tt.category)
			if tt.fields == nil {
				assert.NoError(t, err)
				return
			}
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			for _, field := range tt.fields {
				assert.NotEmpty(t, ve.GetFieldErrors(field), field)
			}
		})
	}
}

func TestValidator_ValidateLibraryItem(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.ValidateLibraryItem(domain.LibraryItem{Name: "Blackbird", CategoryID: "cat-song", StarRating: 5}))

	err := v.ValidateLibraryItem(domain.LibraryItem{Name: "Blackbird", StarRating: 6})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 2)
	assert.Equal(t, "star_rating must be between 0 and 5", ve.GetFieldErrors("star_rating")[0].Message)
}

func TestValidator_NameLengthCountsRunes(t *testing.T) {
	v := NewValidator()

	assert.True(t, v.IsValidStringLength(strings.Repeat("🎸", maxNameLength), maxNameLength))
	assert.False(t, v.IsValidStringLength(strings.Repeat("a", maxNameLength+1), maxNameLength))
}

func TestValidator_ValidateTheme(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.ValidateTheme("dark"))
	assert.NoError(t, v.ValidateTheme("light"))
	assert.True(t, IsValidationError(v.ValidateTheme("solarized")))
}

func TestValidationError_GetUserFriendlyMessage(t *testing.T) {
	ve := NewValidationError()
	assert.Equal(t, "Input validation failed", ve.GetUserFriendlyMessage())

	ve.AddRequiredError("name")
	assert.Equal(t, "name is required", ve.GetUserFriendlyMessage())

	ve.AddRequiredError("category")
	assert.Equal(t, "Multiple validation errors occurred:\n- name is required\n- category is required", ve.GetUserFriendlyMessage())
}
