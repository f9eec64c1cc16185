package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Millis is an epoch-millisecond instant or a millisecond duration. It
// decodes integers, floats, numeric strings and null.
type Millis int64

func (m *Millis) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*m = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*m = 0
			return nil
		}
		data = []byte(s)
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("invalid millisecond value %q: %w", data, err)
	}
	*m = Millis(math.Round(f))
	return nil
}

// first returns the first non-nil value, the zero value otherwise.
func first[T any](values ...*T) T {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	var zero T
	return zero
}

// firstPtr is first for optional fields where absence must survive decoding.
func firstPtr[T any](values ...*T) *T {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

// UserRecord is the singleton profile.
type UserRecord struct {
	ID                  string `json:"id,omitempty"`
	Name                string `json:"name"`
	Email               string `json:"email"`
	DefaultInstrumentID string `json:"defaultInstrumentId"`
}

func (r *UserRecord) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID                       *string `json:"id"`
		Name                     *string `json:"name"`
		Email                    *string `json:"email"`
		DefaultInstrumentID      *string `json:"defaultInstrumentId"`
		DefaultInstrumentIDSnake *string `json:"default_instrument_id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = UserRecord{
		ID:                  first(raw.ID),
		Name:                first(raw.Name),
		Email:               first(raw.Email),
		DefaultInstrumentID: first(raw.DefaultInstrumentID, raw.DefaultInstrumentIDSnake),
	}
	return nil
}

// InstrumentRecord is an instrument as exchanged with the remote store.
type InstrumentRecord struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

func (r *InstrumentRecord) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID   *string `json:"id"`
		Name *string `json:"name"`
		Icon *string `json:"icon"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = InstrumentRecord{ID: first(raw.ID), Name: first(raw.Name), Icon: first(raw.Icon)}
	return nil
}

// CategoryRecord is a practice category as exchanged with the remote store.
type CategoryRecord struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Type  string `json:"type"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

func (r *CategoryRecord) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID    *string `json:"id"`
		Name  *string `json:"name"`
		Type  *string `json:"type"`
		Icon  *string `json:"icon"`
		Color *string `json:"color"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = CategoryRecord{
		ID:    first(raw.ID),
		Name:  first(raw.Name),
		Type:  first(raw.Type),
		Icon:  first(raw.Icon),
		Color: first(raw.Color),
	}
	return nil
}

// ArtistRecord is an artist as exchanged with the remote store.
type ArtistRecord struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

func (r *ArtistRecord) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID   *string `json:"id"`
		Name *string `json:"name"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = ArtistRecord{ID: first(raw.ID), Name: first(raw.Name)}
	return nil
}

// LibraryItemRecord is a library item as exchanged with the remote store.
type LibraryItemRecord struct {
	ID         string `json:"id,omitempty"`
	Name       string `json:"name"`
	CategoryID string `json:"categoryId"`
	ArtistID   string `json:"artistId"`
	StarRating int    `json:"starRating"`
	Notes      string `json:"notes"`
	CreatedAt  string `json:"createdAt,omitempty"`
}

func (r *LibraryItemRecord) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID              *string  `json:"id"`
		Name            *string  `json:"name"`
		CategoryID      *string  `json:"categoryId"`
		CategoryIDSnake *string  `json:"category_id"`
		ArtistID        *string  `json:"artistId"`
		ArtistIDSnake   *string  `json:"artist_id"`
		StarRating      *float64 `json:"starRating"`
		StarRatingSnake *float64 `json:"star_rating"`
		Notes           *string  `json:"notes"`
		CreatedAt       *string  `json:"createdAt"`
		CreatedAtSnake  *string  `json:"created_at"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = LibraryItemRecord{
		ID:         first(raw.ID),
		Name:       first(raw.Name),
		CategoryID: first(raw.CategoryID, raw.CategoryIDSnake),
		ArtistID:   first(raw.ArtistID, raw.ArtistIDSnake),
		StarRating: int(first(raw.StarRating, raw.StarRatingSnake)),
		Notes:      first(raw.Notes),
		CreatedAt:  first(raw.CreatedAt, raw.CreatedAtSnake),
	}
	return nil
}

// SessionItemRecord is one practiced item inside a session.
type SessionItemRecord struct {
	ID            string  `json:"id,omitempty"`
	LibraryItemID string  `json:"libraryItemId"`
	Name          string  `json:"name"`
	CategoryID    string  `json:"categoryId"`
	TimeSpent     Millis  `json:"timeSpent"`
	StartedAt     *Millis `json:"startedAt"`
}

func (r *SessionItemRecord) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID                 *string `json:"id"`
		LibraryItemID      *string `json:"libraryItemId"`
		LibraryItemIDSnake *string `json:"library_item_id"`
		Name               *string `json:"name"`
		CategoryID         *string `json:"categoryId"`
		CategoryIDSnake    *string `json:"category_id"`
		TimeSpent          *Millis `json:"timeSpent"`
		TimeSpentSnake     *Millis `json:"time_spent"`
		StartedAt          *Millis `json:"startedAt"`
		StartedAtSnake     *Millis `json:"started_at"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = SessionItemRecord{
		ID:            first(raw.ID),
		LibraryItemID: first(raw.LibraryItemID, raw.LibraryItemIDSnake),
		Name:          first(raw.Name),
		CategoryID:    first(raw.CategoryID, raw.CategoryIDSnake),
		TimeSpent:     first(raw.TimeSpent, raw.TimeSpentSnake),
		StartedAt:     firstPtr(raw.StartedAt, raw.StartedAtSnake),
	}
	return nil
}

// SessionRecord is a practice session. Date is an ISO-8601 timestamp;
// StartTime and EndTime are epoch milliseconds.
type SessionRecord struct {
	ID           string              `json:"id,omitempty"`
	InstrumentID string              `json:"instrumentId"`
	Status       string              `json:"status"`
	Date         string              `json:"date"`
	StartTime    Millis              `json:"startTime"`
	EndTime      *Millis             `json:"endTime"`
	TotalTime    Millis              `json:"totalTime"`
	Notes        string              `json:"notes"`
	Items        []SessionItemRecord `json:"items"`
}

func (r *SessionRecord) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID                *string             `json:"id"`
		InstrumentID      *string             `json:"instrumentId"`
		InstrumentIDSnake *string             `json:"instrument_id"`
		Status            *string             `json:"status"`
		Date              *string             `json:"date"`
		StartTime         *Millis             `json:"startTime"`
		StartTimeSnake    *Millis             `json:"start_time"`
		EndTime           *Millis             `json:"endTime"`
		EndTimeSnake      *Millis             `json:"end_time"`
		TotalTime         *Millis             `json:"totalTime"`
		TotalTimeSnake    *Millis             `json:"total_time"`
		Notes             *string             `json:"notes"`
		Items             []SessionItemRecord `json:"items"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	endTime := firstPtr(raw.EndTime, raw.EndTimeSnake)
	if endTime != nil && *endTime == 0 {
		endTime = nil
	}
	*r = SessionRecord{
		ID:           first(raw.ID),
		InstrumentID: first(raw.InstrumentID, raw.InstrumentIDSnake),
		Status:       first(raw.Status),
		Date:         first(raw.Date),
		StartTime:    first(raw.StartTime, raw.StartTimeSnake),
		EndTime:      endTime,
		TotalTime:    first(raw.TotalTime, raw.TotalTimeSnake),
		Notes:        first(raw.Notes),
		Items:        raw.Items,
	}
	return nil
}

// InitPayload is the bulk response of the init endpoint.
type InitPayload struct {
	User           *UserRecord         `json:"user"`
	Categories     []CategoryRecord    `json:"categories"`
	Instruments    []InstrumentRecord  `json:"instruments"`
	Artists        []ArtistRecord      `json:"artists"`
	Library        []LibraryItemRecord `json:"library"`
	Sessions       []SessionRecord     `json:"sessions"`
	CurrentSession *SessionRecord      `json:"currentSession"`
	Theme          string              `json:"theme"`
}

func (p *InitPayload) UnmarshalJSON(data []byte) error {
	type plain InitPayload
	var raw struct {
		plain
		CurrentSessionSnake *SessionRecord `json:"current_session"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = InitPayload(raw.plain)
	if p.CurrentSession == nil {
		p.CurrentSession = raw.CurrentSessionSnake
	}
	return nil
}

// Export is a full dump of the remote store keyed by table name. Rows
// are passed through untouched so a dump can be re-imported verbatim.
type Export map[string][]map[string]any
