package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"fretlog/internal/domain"
)

const (
	maxNameLength  = 200
	maxNotesLength = 5000
)

var hexColorRegex = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Themes accepted by SetTheme.
var Themes = []string{"light", "dark"}

// Validator checks catalog and session input before it reaches the remote store.
type Validator struct{}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{}
}

// IsNonEmptyString checks if a string is not empty after trimming whitespace
func (v *Validator) IsNonEmptyString(s string) bool {
	return strings.TrimSpace(s) != ""
}

// IsValidStringLength counts runes, so emoji and accented names are measured fairly.
func (v *Validator) IsValidStringLength(s string, max int) bool {
	return utf8.RuneCountInString(strings.TrimSpace(s)) <= max
}

func (v *Validator) IsHexColor(s string) bool {
	return hexColorRegex.MatchString(s)
}

func (v *Validator) IsValidStarRating(r int) bool {
	return r >= 0 && r <= domain.MaxStarRating
}

func (v *Validator) IsValidTheme(theme string) bool {
	for _, t := range Themes {
		if t == theme {
			return true
		}
	}
	return false
}

func (v *Validator) checkName(ve *ValidationError, field, name string) {
	if !v.IsNonEmptyString(name) {
		ve.AddRequiredError(field)
		return
	}
	if !v.IsValidStringLength(name, maxNameLength) {
		ve.AddInvalidLengthError(field, name, maxNameLength)
	}
}

func (v *Validator) ValidateInstrument(i domain.Instrument) error {
	ve := NewValidationError()
	v.checkName(ve, "name", i.Name)
	return ve.OrNil()
}

func (v *Validator) ValidateCategory(c domain.Category) error {
	ve := NewValidationError()
	v.checkName(ve, "name", c.Name)
	if _, ok := domain.ParseCategoryType(string(c.Type)); !ok {
		ve.AddInvalidValueError("type", c.Type, "unknown category type")
	}
	if c.Color != "" && !v.IsHexColor(c.Color) {
		ve.AddInvalidFormatError("color", c.Color, "#rgb or #rrggbb")
	}
	return ve.OrNil()
}

func (v *Validator) ValidateArtistName(name string) error {
	ve := NewValidationError()
	v.checkName(ve, "artist", name)
	return ve.OrNil()
}

func (v *Validator) ValidateLibraryItem(l domain.LibraryItem) error {
	ve := NewValidationError()
	v.checkName(ve, "name", l.Name)
	if !v.IsNonEmptyString(l.CategoryID) {
		ve.AddRequiredError("category")
	}
	if !v.IsValidStarRating(l.StarRating) {
		ve.AddInvalidRangeError("star_rating", l.StarRating, 0, domain.MaxStarRating)
	}
	if !v.IsValidStringLength(l.Notes, maxNotesLength) {
		ve.AddInvalidLengthError("notes", len(l.Notes), maxNotesLength)
	}
	return ve.OrNil()
}

func (v *Validator) ValidateUser(u domain.User) error {
	ve := NewValidationError()
	v.checkName(ve, "name", u.Name)
	return ve.OrNil()
}

func (v *Validator) ValidateNotes(notes string) error {
	ve := NewValidationError()
	if !v.IsValidStringLength(notes, maxNotesLength) {
		ve.AddInvalidLengthError("notes", len(notes), maxNotesLength)
	}
	return ve.OrNil()
}

func (v *Validator) ValidateTheme(theme string) error {
	ve := NewValidationError()
	if !v.IsValidTheme(theme) {
		ve.AddInvalidValueError("theme", theme, "must be one of "+strings.Join(Themes, ", "))
	}
	return ve.OrNil()
}
