package cli

import (
	"context"
	"strings"

	"fretlog/internal/domain"
	apperrors "fretlog/internal/errors"
	"fretlog/internal/stats"
	"fretlog/internal/timefmt"
)

// LibraryOptions carries the library add/update flags. Nil fields are
// left unchanged on update.
type LibraryOptions struct {
	Name     *string
	Category *string
	Artist   *string
	Rating   *int
	Notes    *string
}

// CategoryOptions carries the category add/update flags.
type CategoryOptions struct {
	Name  *string
	Type  *string
	Icon  *string
	Color *string
}

// CatalogCommand handles library, category, instrument and artist management.
type CatalogCommand struct {
	app          *App
	errorHandler *ErrorHandler
}

// NewCatalogCommand creates a new catalog command handler
func NewCatalogCommand(app *App) *CatalogCommand {
	return &CatalogCommand{app: app, errorHandler: NewErrorHandler()}
}

// ListLibrary prints library items, optionally filtered by name or category.
func (c *CatalogCommand) ListLibrary(_ context.Context, args []string) error {
	filter := strings.ToLower(strings.Join(args, " "))
	s := c.app.styles()

	var rows [][]string
	for _, item := range c.app.store.Library() {
		cat, _ := c.app.store.Category(item.CategoryID)
		if filter != "" && !strings.Contains(strings.ToLower(item.Name), filter) &&
			!strings.EqualFold(cat.Name, filter) {
			continue
		}
		artist, _ := c.app.store.Artist(item.ArtistID)
		rows = append(rows, []string{item.Name, cat.Icon + " " + cat.Name, artist.Name, stars(item.StarRating), shortID(item.ID)})
	}
	if len(rows) == 0 {
		c.app.println("No library items found")
		return nil
	}
	c.app.printf("%s", table(s, []string{"Item", "Category", "Artist", "Rating", "ID"}, rows))
	return nil
}

// AddLibrary creates a library item. The artist is created on first use.
func (c *CatalogCommand) AddLibrary(ctx context.Context, opts LibraryOptions) error {
	item := domain.LibraryItem{}
	if err := c.applyLibrary(ctx, &item, opts); err != nil {
		return c.errorHandler.Handle("add library item", err)
	}
	created, err := c.app.store.AddLibraryItem(ctx, item)
	if err != nil {
		return c.errorHandler.Handle("add library item", err)
	}
	c.app.printf("Added %s to the library\n", created.Name)
	return nil
}

// UpdateLibrary edits the item named by ref.
func (c *CatalogCommand) UpdateLibrary(ctx context.Context, ref string, opts LibraryOptions) error {
	item, err := c.app.resolveLibraryItem(ref)
	if err != nil {
		return c.errorHandler.Handle("update library item", err)
	}
	if err := c.applyLibrary(ctx, &item, opts); err != nil {
		return c.errorHandler.Handle("update library item", err)
	}
	updated, err := c.app.store.UpdateLibraryItem(ctx, item)
	if err != nil {
		return c.errorHandler.Handle("update library item", err)
	}
	c.app.printf("Updated %s\n", updated.Name)
	return nil
}

func (c *CatalogCommand) applyLibrary(ctx context.Context, item *domain.LibraryItem, opts LibraryOptions) error {
	if opts.Name != nil {
		item.Name = *opts.Name
	}
	if opts.Category != nil {
		cat, err := c.app.resolveCategory(*opts.Category)
		if err != nil {
			return err
		}
		item.CategoryID = cat.ID
	}
	if opts.Artist != nil {
		if strings.TrimSpace(*opts.Artist) == "" {
			item.ArtistID = ""
		} else {
			artist, err := c.app.store.FindOrCreateArtist(ctx, *opts.Artist)
			if err != nil {
				return err
			}
			item.ArtistID = artist.ID
		}
	}
	if opts.Rating != nil {
		item.StarRating = *opts.Rating
	}
	if opts.Notes != nil {
		item.Notes = *opts.Notes
	}
	return nil
}

// DeleteLibrary removes a library item.
func (c *CatalogCommand) DeleteLibrary(ctx context.Context, args []string) error {
	item, err := c.app.resolveLibraryItem(strings.Join(args, " "))
	if err != nil {
		return c.errorHandler.Handle("delete library item", err)
	}
	if err := c.app.store.DeleteLibraryItem(ctx, item.ID); err != nil {
		return c.errorHandler.Handle("delete library item", err)
	}
	c.app.printf("Deleted %s\n", item.Name)
	return nil
}

// ShowLibrary prints one item with its practice history.
func (c *CatalogCommand) ShowLibrary(_ context.Context, args []string) error {
	item, err := c.app.resolveLibraryItem(strings.Join(args, " "))
	if err != nil {
		return c.errorHandler.Handle("show library item", err)
	}
	s := c.app.styles()
	cat, _ := c.app.store.Category(item.CategoryID)
	artist, _ := c.app.store.Artist(item.ArtistID)

	c.app.printf("%s\n", s.Title.Render(item.Name))
	c.app.printf("Category: %s %s\n", cat.Icon, cat.Name)
	if artist.Name != "" {
		c.app.printf("Artist:   %s\n", artist.Name)
	}
	c.app.printf("Rating:   %s\n", stars(item.StarRating))
	if item.Notes != "" {
		c.app.printf("Notes:    %s\n", item.Notes)
	}

	for _, total := range c.app.stats.MostPracticedItems(stats.PeriodAll, 0) {
		if total.LibraryItemID == item.ID {
			c.app.printf("Practiced %s over %d sessions\n", timefmt.Long(total.Total), total.Sessions)
			return nil
		}
	}
	c.app.println(s.Muted.Render("Not practiced yet"))
	return nil
}

// ListCategories prints every category.
func (c *CatalogCommand) ListCategories(_ context.Context, _ []string) error {
	var rows [][]string
	for _, cat := range c.app.store.Categories() {
		rows = append(rows, []string{cat.Icon, cat.Name, string(cat.Type), cat.Color, shortID(cat.ID)})
	}
	if len(rows) == 0 {
		c.app.println("No categories found")
		return nil
	}
	c.app.printf("%s", table(c.app.styles(), []string{"", "Category", "Type", "Color", "ID"}, rows))
	return nil
}

// AddCategory creates a category. Type defaults to Other.
func (c *CatalogCommand) AddCategory(ctx context.Context, opts CategoryOptions) error {
	cat := domain.Category{Type: domain.CategoryTypeOther, Icon: "🎵"}
	if err := applyCategory(&cat, opts); err != nil {
		return c.errorHandler.Handle("add category", err)
	}
	created, err := c.app.store.AddCategory(ctx, cat)
	if err != nil {
		return c.errorHandler.Handle("add category", err)
	}
	c.app.printf("Added category %s %s\n", created.Icon, created.Name)
	return nil
}

// UpdateCategory edits the category named by ref.
func (c *CatalogCommand) UpdateCategory(ctx context.Context, ref string, opts CategoryOptions) error {
	cat, err := c.app.resolveCategory(ref)
	if err != nil {
		return c.errorHandler.Handle("update category", err)
	}
	if err := applyCategory(&cat, opts); err != nil {
		return c.errorHandler.Handle("update category", err)
	}
	updated, err := c.app.store.UpdateCategory(ctx, cat)
	if err != nil {
		return c.errorHandler.Handle("update category", err)
	}
	c.app.printf("Updated category %s\n", updated.Name)
	return nil
}

func applyCategory(cat *domain.Category, opts CategoryOptions) error {
	if opts.Name != nil {
		cat.Name = *opts.Name
	}
	if opts.Type != nil {
		t, ok := domain.ParseCategoryType(*opts.Type)
		if !ok {
			return apperrors.NewInvalidInputError("type", *opts.Type, "unknown category type")
		}
		cat.Type = t
	}
	if opts.Icon != nil {
		cat.Icon = *opts.Icon
	}
	if opts.Color != nil {
		cat.Color = *opts.Color
	}
	return nil
}

// DeleteCategory removes a category.
func (c *CatalogCommand) DeleteCategory(ctx context.Context, args []string) error {
	cat, err := c.app.resolveCategory(strings.Join(args, " "))
	if err != nil {
		return c.errorHandler.Handle("delete category", err)
	}
	if err := c.app.store.DeleteCategory(ctx, cat.ID); err != nil {
		return c.errorHandler.Handle("delete category", err)
	}
	c.app.printf("Deleted category %s\n", cat.Name)
	return nil
}

// ListInstruments prints every instrument, marking the default.
func (c *CatalogCommand) ListInstruments(_ context.Context, _ []string) error {
	defaultID := c.app.store.User().DefaultInstrumentID
	var rows [][]string
	for _, inst := range c.app.store.Instruments() {
		mark := ""
		if inst.ID == defaultID {
			mark = "default"
		}
		rows = append(rows, []string{inst.Icon, inst.Name, mark, shortID(inst.ID)})
	}
	if len(rows) == 0 {
		c.app.println("No instruments found")
		return nil
	}
	c.app.printf("%s", table(c.app.styles(), []string{"", "Instrument", "", "ID"}, rows))
	return nil
}

// AddInstrument creates an instrument.
func (c *CatalogCommand) AddInstrument(ctx context.Context, name, icon string) error {
	if icon == "" {
		icon = "🎸"
	}
	created, err := c.app.store.AddInstrument(ctx, domain.Instrument{Name: name, Icon: icon})
	if err != nil {
		return c.errorHandler.Handle("add instrument", err)
	}
	c.app.printf("Added instrument %s %s\n", created.Icon, created.Name)
	return nil
}

// RenameInstrument changes an instrument's name and, if given, icon.
func (c *CatalogCommand) RenameInstrument(ctx context.Context, ref, name, icon string) error {
	inst, err := c.app.resolveInstrument(ref)
	if err != nil {
		return c.errorHandler.Handle("update instrument", err)
	}
	if name != "" {
		inst.Name = name
	}
	if icon != "" {
		inst.Icon = icon
	}
	updated, err := c.app.store.UpdateInstrument(ctx, inst)
	if err != nil {
		return c.errorHandler.Handle("update instrument", err)
	}
	c.app.printf("Updated instrument %s\n", updated.Name)
	return nil
}

// DeleteInstrument removes an instrument.
func (c *CatalogCommand) DeleteInstrument(ctx context.Context, args []string) error {
	inst, err := c.app.resolveInstrument(strings.Join(args, " "))
	if err != nil {
		return c.errorHandler.Handle("delete instrument", err)
	}
	if err := c.app.store.DeleteInstrument(ctx, inst.ID); err != nil {
		return c.errorHandler.Handle("delete instrument", err)
	}
	c.app.printf("Deleted instrument %s\n", inst.Name)
	return nil
}

// ListArtists prints every artist.
func (c *CatalogCommand) ListArtists(_ context.Context, _ []string) error {
	var rows [][]string
	for _, artist := range c.app.store.Artists() {
		rows = append(rows, []string{artist.Name, shortID(artist.ID)})
	}
	if len(rows) == 0 {
		c.app.println("No artists found")
		return nil
	}
	c.app.printf("%s", table(c.app.styles(), []string{"Artist", "ID"}, rows))
	return nil
}

// AddArtist creates an artist, or reports the existing one with that name.
func (c *CatalogCommand) AddArtist(ctx context.Context, args []string) error {
	name := strings.Join(args, " ")
	_, existed := c.app.store.FindArtistByName(name)
	artist, err := c.app.store.FindOrCreateArtist(ctx, name)
	if err != nil {
		return c.errorHandler.Handle("add artist", err)
	}
	if existed {
		c.app.printf("Artist %s already exists\n", artist.Name)
		return nil
	}
	c.app.printf("Added artist %s\n", artist.Name)
	return nil
}

// RenameArtist changes an artist's name.
func (c *CatalogCommand) RenameArtist(ctx context.Context, ref, name string) error {
	artist, err := c.app.resolveArtist(ref)
	if err != nil {
		return c.errorHandler.Handle("rename artist", err)
	}
	artist.Name = name
	updated, err := c.app.store.UpdateArtist(ctx, artist)
	if err != nil {
		return c.errorHandler.Handle("rename artist", err)
	}
	c.app.printf("Renamed artist to %s\n", updated.Name)
	return nil
}

// DeleteArtist removes an artist.
func (c *CatalogCommand) DeleteArtist(ctx context.Context, args []string) error {
	artist, err := c.app.resolveArtist(strings.Join(args, " "))
	if err != nil {
		return c.errorHandler.Handle("delete artist", err)
	}
	if err := c.app.store.DeleteArtist(ctx, artist.ID); err != nil {
		return c.errorHandler.Handle("delete artist", err)
	}
	c.app.printf("Deleted artist %s\n", artist.Name)
	return nil
}

// shortID trims long ids for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
