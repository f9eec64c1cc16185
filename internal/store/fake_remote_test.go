package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"fretlog/internal/remote"
)

var errBoom = errors.New("boom")

// fakeRemote is an in-memory remote store with per-operation failure
// injection and call counting.
type fakeRemote struct {
	mu     sync.Mutex
	nextID int
	calls  map[string]int
	fail   map[string]error
	failAt map[string]int

	// initGate, when set, blocks Init until it is closed.
	initGate chan struct{}

	user        remote.UserRecord
	categories  []remote.CategoryRecord
	instruments []remote.InstrumentRecord
	artists     []remote.ArtistRecord
	library     []remote.LibraryItemRecord
	sessions    []remote.SessionRecord
	current     *remote.SessionRecord
	theme       string
}

var _ remote.Remote = (*fakeRemote)(nil)

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		calls:  make(map[string]int),
		fail:   make(map[string]error),
		failAt: make(map[string]int),
		user:   remote.UserRecord{Name: "Musician"},
		theme:  "dark",
	}
}

func (f *fakeRemote) id() string {
	f.nextID++
	return fmt.Sprintf("r%d", f.nextID)
}

// check records a call; callers hold f.mu.
func (f *fakeRemote) check(op string) error {
	f.calls[op]++
	if err := f.fail[op]; err != nil {
		return err
	}
	if n, ok := f.failAt[op]; ok && n == f.calls[op] {
		return errBoom
	}
	return nil
}

func (f *fakeRemote) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeRemote) FailWith(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.fail, op)
		return
	}
	f.fail[op] = err
}

func (f *fakeRemote) Init(ctx context.Context) (*remote.InitPayload, error) {
	f.mu.Lock()
	err := f.check("init")
	gate := f.initGate
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if gate != nil {
		<-gate
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	user := f.user
	p := &remote.InitPayload{
		User:        &user,
		Categories:  append([]remote.CategoryRecord(nil), f.categories...),
		Instruments: append([]remote.InstrumentRecord(nil), f.instruments...),
		Artists:     append([]remote.ArtistRecord(nil), f.artists...),
		Library:     append([]remote.LibraryItemRecord(nil), f.library...),
		Sessions:    append([]remote.SessionRecord(nil), f.sessions...),
		Theme:       f.theme,
	}
	if f.current != nil {
		current := *f.current
		p.CurrentSession = &current
	}
	return p, nil
}

func (f *fakeRemote) UpdateUser(ctx context.Context, user remote.UserRecord) (*remote.UserRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check("update_user"); err != nil {
		return nil, err
	}
	f.user = user
	out := user
	return &out, nil
}

func (f *fakeRemote) Categories() remote.Collection[remote.CategoryRecord] {
	return &fakeCollection[remote.CategoryRecord]{
		f: f, name: "category", items: &f.categories,
		getID: func(r remote.CategoryRecord) string { return r.ID },
		setID: func(r *remote.CategoryRecord, id string) { r.ID = id },
	}
}

func (f *fakeRemote) Instruments() remote.Collection[remote.InstrumentRecord] {
	return &fakeCollection[remote.InstrumentRecord]{
		f: f, name: "instrument", items: &f.instruments,
		getID: func(r remote.InstrumentRecord) string { return r.ID },
		setID: func(r *remote.InstrumentRecord, id string) { r.ID = id },
	}
}

func (f *fakeRemote) Artists() remote.Collection[remote.ArtistRecord] {
	return &fakeCollection[remote.ArtistRecord]{
		f: f, name: "artist", items: &f.artists,
		getID: func(r remote.ArtistRecord) string { return r.ID },
		setID: func(r *remote.ArtistRecord, id string) { r.ID = id },
		existing: func(items []remote.ArtistRecord, rec remote.ArtistRecord) (remote.ArtistRecord, bool) {
			for _, a := range items {
				if strings.EqualFold(a.Name, rec.Name) {
					return a, true
				}
			}
			return remote.ArtistRecord{}, false
		},
	}
}

func (f *fakeRemote) Library() remote.Collection[remote.LibraryItemRecord] {
	return &fakeCollection[remote.LibraryItemRecord]{
		f: f, name: "library", items: &f.library,
		getID: func(r remote.LibraryItemRecord) string { return r.ID },
		setID: func(r *remote.LibraryItemRecord, id string) { r.ID = id },
	}
}

func (f *fakeRemote) Sessions() remote.Collection[remote.SessionRecord] {
	return &fakeCollection[remote.SessionRecord]{
		f: f, name: "session", items: &f.sessions,
		getID: func(r remote.SessionRecord) string { return r.ID },
		setID: func(r *remote.SessionRecord, id string) { r.ID = id },
	}
}

func (f *fakeRemote) SaveCurrentSession(ctx context.Context, session remote.SessionRecord) (*remote.SessionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check("save_current_session"); err != nil {
		return nil, err
	}
	stored := session
	stored.Items = append([]remote.SessionItemRecord(nil), session.Items...)
	f.current = &stored
	out := stored
	return &out, nil
}

func (f *fakeRemote) DeleteCurrentSession(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check("delete_current_session"); err != nil {
		return err
	}
	f.current = nil
	return nil
}

func (f *fakeRemote) Theme(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check("theme"); err != nil {
		return "", err
	}
	return f.theme, nil
}

func (f *fakeRemote) SetTheme(ctx context.Context, theme string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check("set_theme"); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	f.theme = theme
	return nil
}

func (f *fakeRemote) Export(ctx context.Context) (remote.Export, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check("export"); err != nil {
		return nil, err
	}
	rows := make([]map[string]any, 0, len(f.categories))
	for _, c := range f.categories {
		rows = append(rows, map[string]any{"id": c.ID, "name": c.Name})
	}
	return remote.Export{"categories": rows}, nil
}

func (f *fakeRemote) Import(ctx context.Context, data remote.Export) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check("import"); err != nil {
		return err
	}
	f.categories = nil
	for _, row := range data["categories"] {
		id, _ := row["id"].(string)
		name, _ := row["name"].(string)
		f.categories = append(f.categories, remote.CategoryRecord{ID: id, Name: name, Type: "Other"})
	}
	return nil
}

func (f *fakeRemote) Reset(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check("reset"); err != nil {
		return err
	}
	f.categories = nil
	f.instruments = nil
	f.artists = nil
	f.library = nil
	f.sessions = nil
	f.current = nil
	return nil
}

type fakeCollection[R any] struct {
	f        *fakeRemote
	name     string
	items    *[]R
	getID    func(R) string
	setID    func(*R, string)
	existing func([]R, R) (R, bool)
}

func (c *fakeCollection[R]) Create(ctx context.Context, rec R) (*R, error) {
	c.f.mu.Lock()
	defer c.f.mu.Unlock()
	if err := c.f.check("create_" + c.name); err != nil {
		return nil, err
	}
	if c.existing != nil {
		if found, ok := c.existing(*c.items, rec); ok {
			return &found, nil
		}
	}
	if c.getID(rec) == "" {
		c.setID(&rec, c.f.id())
	}
	for i, v := range *c.items {
		if c.getID(v) == c.getID(rec) {
			(*c.items)[i] = rec
			out := rec
			return &out, nil
		}
	}
	*c.items = append(*c.items, rec)
	out := rec
	return &out, nil
}

func (c *fakeCollection[R]) Update(ctx context.Context, id string, rec R) (*R, error) {
	c.f.mu.Lock()
	defer c.f.mu.Unlock()
	if err := c.f.check("update_" + c.name); err != nil {
		return nil, err
	}
	c.setID(&rec, id)
	for i, v := range *c.items {
		if c.getID(v) == id {
			(*c.items)[i] = rec
			out := rec
			return &out, nil
		}
	}
	return nil, errors.New("not found")
}

func (c *fakeCollection[R]) Delete(ctx context.Context, id string) error {
	c.f.mu.Lock()
	defer c.f.mu.Unlock()
	if err := c.f.check("delete_" + c.name); err != nil {
		return err
	}
	for i, v := range *c.items {
		if c.getID(v) == id {
			*c.items = append((*c.items)[:i:i], (*c.items)[i+1:]...)
			return nil
		}
	}
	return nil
}
