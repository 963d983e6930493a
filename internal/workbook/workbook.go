// Package workbook reads and writes the intake spreadsheet. Every open and
// save goes through lock-aware retries; a save that cannot reach the main
// file falls back to a timestamped sibling copy instead of losing the row.
package workbook

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/extrememax/expo-feria/internal/model"
	"github.com/extrememax/expo-feria/internal/normalize"
	"github.com/extrememax/expo-feria/internal/resilience"
)

var (
	// ErrLocked means another process kept the file busy through every retry.
	ErrLocked = errors.New("workbook is locked by another process")
	// ErrReadOnly is returned when saving a book loaded read-only.
	ErrReadOnly = errors.New("workbook was opened read-only")
	// ErrSheetMissing is returned for operations on a sheet the file lacks.
	ErrSheetMissing = errors.New("sheet not found")
)

// templateSheet is the sheet excelize puts into every new file.
const templateSheet = "Sheet1"

// Options tunes the lock retry loops.
type Options struct {
	LoadTries int
	LoadWait  time.Duration
	SaveTries int
	SaveWait  time.Duration
}

// DefaultOptions returns 10 tries 400ms apart for loads and 30 tries 500ms
// apart for saves.
func DefaultOptions() Options {
	return Options{
		LoadTries: 10,
		LoadWait:  400 * time.Millisecond,
		SaveTries: 30,
		SaveWait:  500 * time.Millisecond,
	}
}

// SaveResult reports where a save landed. Fallback is true when the main
// file stayed locked and the data went to a timestamped copy at Path.
type SaveResult struct {
	Path     string `json:"path"`
	Fallback bool   `json:"fallback"`
}

// Accessor performs lock-aware workbook I/O against a fixed schema.
type Accessor struct {
	opts   Options
	schema *model.Schema

	open  func(path string) (*excelize.File, error)
	write func(f *excelize.File, path string) error
	now   func() time.Time
}

// New creates an Accessor. A nil schema means model.DefaultSchema.
func New(opts Options, schema *model.Schema) *Accessor {
	def := DefaultOptions()
	if opts.LoadTries <= 0 {
		opts.LoadTries = def.LoadTries
	}
	if opts.LoadWait <= 0 {
		opts.LoadWait = def.LoadWait
	}
	if opts.SaveTries <= 0 {
		opts.SaveTries = def.SaveTries
	}
	if opts.SaveWait <= 0 {
		opts.SaveWait = def.SaveWait
	}
	if schema == nil {
		schema = model.DefaultSchema()
	}
	return &Accessor{
		opts:   opts,
		schema: schema,
		open:   func(path string) (*excelize.File, error) { return excelize.OpenFile(path) },
		write:  func(f *excelize.File, path string) error { return f.SaveAs(path) },
		now:    time.Now,
	}
}

// Schema returns the schema the accessor enforces.
func (a *Accessor) Schema() *model.Schema {
	return a.schema
}

// Load opens the workbook at path, retrying while the file is locked.
func (a *Accessor) Load(ctx context.Context, path string, readOnly bool) (*Book, error) {
	policy := resilience.Fixed(a.opts.LoadTries, a.opts.LoadWait).Logged(path, "load")
	f, err := resilience.DoVal(ctx, policy, func(_ context.Context) (*excelize.File, error) {
		return a.open(path)
	})
	if err != nil {
		return nil, wrapIOErr(err, "load", path)
	}
	return &Book{file: f, path: path, readOnly: readOnly}, nil
}

// Save writes book back to its path. Lock errors are retried; when the
// retries run out, or the write fails for another reason, the workbook is
// written to FallbackPath instead. An error is returned only when the copy
// fails too, and it describes the original failure.
func (a *Accessor) Save(ctx context.Context, book *Book) (SaveResult, error) {
	if book.readOnly {
		return SaveResult{}, eris.Wrapf(ErrReadOnly, "workbook: save %s", book.path)
	}

	err := a.saveInPlace(ctx, book)
	if err == nil {
		return SaveResult{Path: book.path}, nil
	}

	alt := FallbackPath(book.path, a.now())
	if copyErr := a.write(book.file, alt); copyErr != nil {
		zap.L().Error("workbook save failed, copy failed too",
			zap.String("path", book.path),
			zap.String("copy", alt),
			zap.Error(err),
			zap.NamedError("copy_error", copyErr),
		)
		return SaveResult{}, wrapIOErr(err, "save", book.path)
	}

	zap.L().Warn("workbook busy, saved a copy instead",
		zap.String("path", book.path),
		zap.String("copy", alt),
		zap.Error(err),
	)
	return SaveResult{Path: alt, Fallback: true}, nil
}

func (a *Accessor) saveInPlace(ctx context.Context, book *Book) error {
	policy := resilience.Fixed(a.opts.SaveTries, a.opts.SaveWait).Logged(book.path, "save")
	return resilience.Do(ctx, policy, func(_ context.Context) error {
		return a.write(book.file, book.path)
	})
}

// FallbackPath returns the sibling copy name used when the main file is
// locked: <stem>_copia_<YYYYMMDD-HHMMSS><ext>.
func FallbackPath(path string, t time.Time) string {
	dir, base := filepath.Split(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return filepath.Join(dir, stem+"_copia_"+t.Format("20060102-150405")+ext)
}

// Ensure makes the file at path match the schema. A missing file is created
// with every sheet and header; an existing file gains any missing sheet and
// any header whose normalized text is absent, appended after the last used
// column. Existing columns are never moved. It reports whether the file
// changed.
func (a *Accessor) Ensure(ctx context.Context, path string) (bool, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := a.create(ctx, path); err != nil {
			return false, err
		}
		return true, nil
	}

	book, err := a.Load(ctx, path, false)
	if err != nil {
		return false, err
	}
	defer book.Close()

	changed := false
	for _, sh := range a.schema.Sheets {
		added, err := a.syncSheet(book, sh)
		if err != nil {
			return false, err
		}
		changed = changed || added
	}
	if !changed {
		return false, nil
	}

	if err := a.saveInPlace(ctx, book); err != nil {
		return false, wrapIOErr(err, "ensure", path)
	}
	zap.L().Info("workbook schema updated", zap.String("path", path))
	return true, nil
}

func (a *Accessor) create(ctx context.Context, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "workbook: create dir for %s", path)
	}

	f := excelize.NewFile()
	book := &Book{file: f, path: path}
	defer book.Close()

	for _, sh := range a.schema.Sheets {
		if _, err := f.NewSheet(sh.Name); err != nil {
			return eris.Wrapf(err, "workbook: create sheet %s", sh.Name)
		}
		if err := book.setRow(sh.Name, 1, stringsToCells(sh.Headers)); err != nil {
			return err
		}
	}
	if _, ok := a.schema.Sheet(templateSheet); !ok {
		if err := f.DeleteSheet(templateSheet); err != nil {
			return eris.Wrap(err, "workbook: remove template sheet")
		}
	}
	f.SetActiveSheet(0)

	if err := a.saveInPlace(ctx, book); err != nil {
		return wrapIOErr(err, "create", path)
	}
	zap.L().Info("workbook created", zap.String("path", path), zap.Int("sheets", len(a.schema.Sheets)))
	return nil
}

// syncSheet adds the sheet if missing, or appends absent headers.
func (a *Accessor) syncSheet(book *Book, sh model.SheetSchema) (bool, error) {
	if !book.HasSheet(sh.Name) {
		if _, err := book.file.NewSheet(sh.Name); err != nil {
			return false, eris.Wrapf(err, "workbook: create sheet %s", sh.Name)
		}
		return true, book.setRow(sh.Name, 1, stringsToCells(sh.Headers))
	}

	header, err := book.Header(sh.Name)
	if err != nil {
		return false, err
	}
	// A blank header row takes the canonical list as is, repeated names included.
	if blankRow(header) {
		return true, book.setRow(sh.Name, 1, stringsToCells(sh.Headers))
	}
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[normalize.Text(h)] = true
	}

	changed := false
	next := len(header)
	for _, h := range sh.Headers {
		key := normalize.Text(h)
		if present[key] {
			continue
		}
		if err := book.setCell(sh.Name, 1, next, h); err != nil {
			return false, err
		}
		present[key] = true
		next++
		changed = true
	}
	return changed, nil
}

// Update ensures the schema, loads the book for writing, applies fn and
// saves with the usual lock handling. An error from fn aborts the save.
func (a *Accessor) Update(ctx context.Context, path string, fn func(*Book) error) (SaveResult, error) {
	if _, err := a.Ensure(ctx, path); err != nil {
		return SaveResult{}, err
	}

	book, err := a.Load(ctx, path, false)
	if err != nil {
		return SaveResult{}, err
	}
	defer book.Close()

	if err := fn(book); err != nil {
		return SaveResult{}, err
	}
	return a.Save(ctx, book)
}

// Append adds values as a new row of sheet. Values are positional, matching
// the sheet's header columns.
func (a *Accessor) Append(ctx context.Context, path, sheet string, values []any) (SaveResult, error) {
	return a.Update(ctx, path, func(book *Book) error {
		_, err := book.AppendRow(sheet, values)
		return err
	})
}

func wrapIOErr(err error, op, path string) error {
	if resilience.IsLocked(err) {
		return eris.Wrapf(ErrLocked, "workbook: %s %s: %v", op, path, err)
	}
	return eris.Wrapf(err, "workbook: %s %s", op, path)
}

func stringsToCells(values []string) []any {
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}

func blankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
