package domain

import (
	"strings"
	"time"
)

// DefaultUserName is used until the user sets a name.
const DefaultUserName = "Musician"

// CategoryType is the kind of practice a category represents.
type CategoryType string

const (
	CategoryTypeSong        CategoryType = "Song"
	CategoryTypeTheory      CategoryType = "Theory"
	CategoryTypeLesson      CategoryType = "Lesson"
	CategoryTypeEarTraining CategoryType = "Ear Training"
	CategoryTypeTechnique   CategoryType = "Technique"
	CategoryTypeOther       CategoryType = "Other"
)

// CategoryTypes lists every category type in display order.
func CategoryTypes() []CategoryType {
	return []CategoryType{
		CategoryTypeSong,
		CategoryTypeTheory,
		CategoryTypeLesson,
		CategoryTypeEarTraining,
		CategoryTypeTechnique,
		CategoryTypeOther,
	}
}

// ParseCategoryType matches a type name ignoring case, spaces, dashes and underscores.
func ParseCategoryType(s string) (CategoryType, bool) {
	key := normalizeTypeKey(s)
	for _, t := range CategoryTypes() {
		if normalizeTypeKey(string(t)) == key {
			return t, true
		}
	}
	return "", false
}

func normalizeTypeKey(s string) string {
	return strings.NewReplacer(" ", "", "-", "", "_", "").Replace(strings.ToLower(strings.TrimSpace(s)))
}

// User is the singleton profile.
type User struct {
	Name                string `json:"name"`
	Email               string `json:"email,omitempty"`
	DefaultInstrumentID string `json:"defaultInstrumentId,omitempty"`
}

// DisplayName returns the user's name or the default.
func (u User) DisplayName() string {
	if strings.TrimSpace(u.Name) == "" {
		return DefaultUserName
	}
	return u.Name
}

type Instrument struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

func (i Instrument) EntityID() string { return i.ID }

type Category struct {
	ID    string       `json:"id"`
	Name  string       `json:"name"`
	Type  CategoryType `json:"type"`
	Icon  string       `json:"icon"`
	Color string       `json:"color"`
}

func (c Category) EntityID() string { return c.ID }

type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (a Artist) EntityID() string { return a.ID }

// SameName reports whether name refers to this artist, ignoring case and
// surrounding whitespace.
func (a Artist) SameName(name string) bool {
	return strings.EqualFold(strings.TrimSpace(a.Name), strings.TrimSpace(name))
}

// LibraryItem is a piece of material the user practices. StarRating 0
// means unrated.
type LibraryItem struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	CategoryID string    `json:"categoryId"`
	ArtistID   string    `json:"artistId,omitempty"`
	StarRating int       `json:"starRating,omitempty"`
	Notes      string    `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"createdAt,omitempty"`
}

func (l LibraryItem) EntityID() string { return l.ID }

const MaxStarRating = 5

// DefaultCategories returns the categories seeded into an empty store, in seeding order.
func DefaultCategories() []Category {
	return []Category{
		{Name: "Song", Type: CategoryTypeSong, Icon: "🎵", Color: "#4f46e5"},
		{Name: "Theory", Type: CategoryTypeTheory, Icon: "📚", Color: "#0ea5e9"},
		{Name: "Lesson", Type: CategoryTypeLesson, Icon: "📖", Color: "#f59e0b"},
		{Name: "Ear Training", Type: CategoryTypeEarTraining, Icon: "👂", Color: "#10b981"},
		{Name: "Technique", Type: CategoryTypeTechnique, Icon: "🎯", Color: "#ef4444"},
	}
}

// DefaultInstruments returns the instruments seeded into an empty store, in seeding order.
func DefaultInstruments() []Instrument {
	return []Instrument{
		{Name: "Guitar", Icon: "🎸"},
		{Name: "Piano", Icon: "🎹"},
		{Name: "Bass", Icon: "🎸"},
		{Name: "Drums", Icon: "🥁"},
	}
}
