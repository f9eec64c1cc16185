// Package remote defines the boundary to the authoritative FretLog store
// and an HTTP client for the FretLog REST API.
package remote

import (
	"context"
)

// Collection is the create/update/delete surface shared by every catalog
// collection and by historical sessions.
type Collection[R any] interface {
	Create(ctx context.Context, rec R) (*R, error)
	Update(ctx context.Context, id string, rec R) (*R, error)
	Delete(ctx context.Context, id string) error
}

// Remote is the authoritative store. *Client talks to it over HTTP; the
// sqlite package provides an embedded implementation.
type Remote interface {
	Init(ctx context.Context) (*InitPayload, error)
	UpdateUser(ctx context.Context, user UserRecord) (*UserRecord, error)

	Categories() Collection[CategoryRecord]
	Instruments() Collection[InstrumentRecord]
	Artists() Collection[ArtistRecord]
	Library() Collection[LibraryItemRecord]
	Sessions() Collection[SessionRecord]

	SaveCurrentSession(ctx context.Context, session SessionRecord) (*SessionRecord, error)
	DeleteCurrentSession(ctx context.Context) error

	Theme(ctx context.Context) (string, error)
	SetTheme(ctx context.Context, theme string) error

	Export(ctx context.Context) (Export, error)
	Import(ctx context.Context, data Export) error
	Reset(ctx context.Context) error
}

// Ensure Client implements Remote at compile time.
var _ Remote = (*Client)(nil)
