package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	apperrors "fretlog/internal/errors"
	"fretlog/internal/remote"
)

// DataCommand handles export, import, reset and sync.
type DataCommand struct {
	app          *App
	errorHandler *ErrorHandler
}

// NewDataCommand creates a new data command handler
func NewDataCommand(app *App) *DataCommand {
	return &DataCommand{app: app, errorHandler: NewErrorHandler()}
}

// Export writes the full dump to path, or as JSON to the output when path
// is empty or "-".
func (c *DataCommand) Export(ctx context.Context, path string) error {
	data, err := c.app.store.Export(ctx)
	if err != nil {
		return c.errorHandler.Handle("export data", err)
	}
	encoded, err := encodeExport(data, path)
	if err != nil {
		return c.errorHandler.Handle("export data", err)
	}

	if path == "" || path == "-" {
		c.app.printf("%s", encoded)
		return nil
	}
	if err := os.WriteFile(path, encoded, 0o600); err != nil {
		return c.errorHandler.Handle("export data", err)
	}
	c.app.printf("Exported %s rows to %s (%s)\n", humanize.Comma(int64(rowCount(data))), path, humanize.Bytes(uint64(len(encoded))))
	return nil
}

// Import replaces stored data with the dump in path.
func (c *DataCommand) Import(ctx context.Context, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return c.errorHandler.Handle("import data", err)
	}
	data, err := decodeExport(raw, path)
	if err != nil {
		return c.errorHandler.Handle("import data",
			apperrors.NewValidationError(fmt.Sprintf("%s is not a fretlog export", path), err))
	}
	// The imported data may not contain the running session.
	c.app.timer.Reset(ctx)
	if err := c.app.store.Import(ctx, data); err != nil {
		return c.errorHandler.Handle("import data", err)
	}
	c.app.printf("Imported %s rows from %s\n", humanize.Comma(int64(rowCount(data))), path)
	return nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// encodeExport renders a dump as YAML for .yaml/.yml paths and as indented
// JSON otherwise.
func encodeExport(data remote.Export, path string) ([]byte, error) {
	if isYAML(path) {
		return yaml.Marshal(data)
	}
	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(encoded, '\n'), nil
}

// decodeExport parses a dump written by encodeExport. YAML is passed
// through JSON so values get the same types as a JSON import.
func decodeExport(raw []byte, path string) (remote.Export, error) {
	var data remote.Export
	if !isYAML(path) {
		err := json.Unmarshal(raw, &data)
		return data, err
	}

	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	normalized, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	err = json.Unmarshal(normalized, &data)
	return data, err
}

// Reset wipes categories, instruments, artists, the library and all
// sessions. Without confirmed the user is asked to type "reset".
func (c *DataCommand) Reset(ctx context.Context, confirmed bool) error {
	if !confirmed && !c.confirm() {
		c.app.println("Reset cancelled")
		return nil
	}
	c.app.timer.Reset(ctx)
	if err := c.app.store.Reset(ctx); err != nil {
		return c.errorHandler.Handle("reset data", err)
	}
	c.app.printf("%s\n", c.app.styles().Warning.Render("All practice data removed"))
	return nil
}

func (c *DataCommand) confirm() bool {
	c.app.printf("This deletes all practice data. Type \"reset\" to continue: ")
	line, err := bufio.NewReader(c.app.in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	return strings.TrimSpace(line) == "reset"
}

// Sync reloads everything from the remote store.
func (c *DataCommand) Sync(ctx context.Context, _ []string) error {
	if err := c.app.store.Reload(ctx); err != nil {
		return c.errorHandler.Handle("sync", err)
	}
	if err := c.app.timer.Recover(ctx); err != nil {
		c.app.logger.Warn().Err(err).Msg("timer recovery failed after sync")
	}

	s := c.app.styles()
	c.app.printf("%s\n", s.Success.Render("Synced"))
	rows := [][]string{
		{"Categories", humanize.Comma(int64(len(c.app.store.Categories())))},
		{"Instruments", humanize.Comma(int64(len(c.app.store.Instruments())))},
		{"Artists", humanize.Comma(int64(len(c.app.store.Artists())))},
		{"Library", humanize.Comma(int64(len(c.app.store.Library())))},
		{"Sessions", humanize.Comma(int64(len(c.app.store.Sessions())))},
	}
	c.app.printf("%s", table(s, []string{"", "Count"}, rows))
	if _, ok := c.app.store.CurrentSession(); ok {
		c.app.println("A session is in progress")
	}
	return nil
}

func rowCount(data remote.Export) int {
	n := 0
	for _, rows := range data {
		n += len(rows)
	}
	return n
}
