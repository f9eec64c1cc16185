package domain

import (
	"time"
)

// SessionStatus is the lifecycle state of a practice session.
type SessionStatus string

const (
	SessionStatusRunning   SessionStatus = "running"
	SessionStatusCompleted SessionStatus = "completed"
)

// Session is one sitting of practice. A running session lives in the
// current-session slot; completed sessions form the history.
type Session struct {
	ID           string        `json:"id"`
	InstrumentID string        `json:"instrumentId"`
	Status       SessionStatus `json:"status"`
	Date         time.Time     `json:"date"`
	StartTime    time.Time     `json:"startTime"`
	EndTime      *time.Time    `json:"endTime,omitempty"`
	TotalTime    time.Duration `json:"totalTime"`
	Notes        string        `json:"notes,omitempty"`
	Items        []SessionItem `json:"items"`
}

// SessionItem is time spent on one library item within a session. Name
// and CategoryID are copied from the library item when it is added.
type SessionItem struct {
	ID            string        `json:"id"`
	LibraryItemID string        `json:"libraryItemId"`
	Name          string        `json:"name"`
	CategoryID    string        `json:"categoryId"`
	TimeSpent     time.Duration `json:"timeSpent"`
	StartedAt     time.Time     `json:"startedAt"`
}

func (s Session) EntityID() string { return s.ID }

// NewSession returns a running session starting at now.
func NewSession(id, instrumentID string, now time.Time) Session {
	return Session{
		ID:           id,
		InstrumentID: instrumentID,
		Status:       SessionStatusRunning,
		Date:         now,
		StartTime:    now,
		Items:        []SessionItem{},
	}
}

// NewSessionItem snapshots a library item into a session item.
func NewSessionItem(id string, item LibraryItem, now time.Time) SessionItem {
	return SessionItem{
		ID:            id,
		LibraryItemID: item.ID,
		Name:          item.Name,
		CategoryID:    item.CategoryID,
		StartedAt:     now,
	}
}

func (s Session) IsRunning() bool {
	return s.Status == SessionStatusRunning
}

// Clone returns a deep copy.
func (s Session) Clone() Session {
	out := s
	if s.EndTime != nil {
		end := *s.EndTime
		out.EndTime = &end
	}
	out.Items = make([]SessionItem, len(s.Items))
	copy(out.Items, s.Items)
	return out
}

// ItemTime sums TimeSpent across items.
func (s Session) ItemTime() time.Duration {
	var total time.Duration
	for _, item := range s.Items {
		total += item.TimeSpent
	}
	return total
}

// FindItem returns the index of the item with the given id.
func (s Session) FindItem(itemID string) (int, bool) {
	for i, item := range s.Items {
		if item.ID == itemID {
			return i, true
		}
	}
	return -1, false
}

// Item returns a copy of the item with the given id.
func (s Session) Item(itemID string) (SessionItem, bool) {
	i, ok := s.FindItem(itemID)
	if !ok {
		return SessionItem{}, false
	}
	return s.Items[i], true
}

// AddItem appends an item.
func (s *Session) AddItem(item SessionItem) {
	s.Items = append(s.Items, item)
}

// RemoveItem drops the item with the given id.
func (s *Session) RemoveItem(itemID string) bool {
	i, ok := s.FindItem(itemID)
	if !ok {
		return false
	}
	s.Items = append(s.Items[:i:i], s.Items[i+1:]...)
	return true
}

// SetItemTime overwrites an item's accumulated time.
func (s *Session) SetItemTime(itemID string, spent time.Duration) bool {
	i, ok := s.FindItem(itemID)
	if !ok {
		return false
	}
	if spent < 0 {
		spent = 0
	}
	s.Items[i].TimeSpent = spent
	return true
}

// Complete finalizes the session. TotalTime is always recomputed from
// the items.
func (s *Session) Complete(now time.Time, notes string) {
	end := now
	s.Status = SessionStatusCompleted
	s.EndTime = &end
	s.TotalTime = s.ItemTime()
	if notes != "" {
		s.Notes = notes
	}
}
