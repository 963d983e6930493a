package store

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rotisserie/eris"

	"github.com/extrememax/expo-feria/internal/model"
	"github.com/extrememax/expo-feria/internal/workbook"
)

// WorkbookStore implements RowStore on a single xlsx file.
type WorkbookStore struct {
	acc  *workbook.Accessor
	path string
}

// NewWorkbook returns a store over the workbook at path.
func NewWorkbook(acc *workbook.Accessor, path string) *WorkbookStore {
	return &WorkbookStore{acc: acc, path: path}
}

// Accessor exposes the underlying workbook accessor.
func (s *WorkbookStore) Accessor() *workbook.Accessor { return s.acc }

func (s *WorkbookStore) Location() string { return s.path }

func (s *WorkbookStore) Close() error { return nil }

func (s *WorkbookStore) EnsureSchema(ctx context.Context) (bool, error) {
	return s.acc.Ensure(ctx, s.path)
}

func (s *WorkbookStore) AppendRow(ctx context.Context, sheet string, rec model.Record) (WriteResult, error) {
	return s.AppendRows(ctx, sheet, []model.Record{rec})
}

func (s *WorkbookStore) AppendRows(ctx context.Context, sheet string, recs []model.Record) (WriteResult, error) {
	if _, err := checkSheet(s.acc.Schema(), sheet); err != nil {
		return WriteResult{}, err
	}
	res, err := s.acc.Update(ctx, s.path, func(b *workbook.Book) error {
		header, err := b.Header(sheet)
		if err != nil {
			return err
		}
		for _, rec := range recs {
			if _, err := b.AppendRow(sheet, cellValues(header, layout(header, rec))); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return WriteResult{}, err
	}
	return WriteResult{Location: res.Path, Fallback: res.Fallback, Inserted: true}, nil
}

func (s *WorkbookStore) UpsertByKey(ctx context.Context, sheet, keyHeader, key string, rec model.Record) (WriteResult, error) {
	if _, err := checkSheet(s.acc.Schema(), sheet); err != nil {
		return WriteResult{}, err
	}

	inserted := false
	res, err := s.acc.Update(ctx, s.path, func(b *workbook.Book) error {
		header, err := b.Header(sheet)
		if err != nil {
			return err
		}
		rows, err := b.Rows(sheet)
		if err != nil {
			return err
		}
		col := keyColumn(workbook.NewHeaderMap(header), keyHeader)
		if col < 0 {
			return eris.Errorf("store: sheet %s has no %s column", sheet, keyHeader)
		}

		if i := findRow(rows, col, key); i >= 0 {
			updated, changed := merge(header, rows[i], rec)
			for _, j := range changed {
				if j == col {
					continue
				}
				if err := b.SetCell(sheet, i, j, cellValue(header[j], updated[j])); err != nil {
					return err
				}
			}
			return nil
		}

		inserted = true
		_, err = b.AppendRow(sheet, cellValues(header, layout(header, withKey(rec, header[col], key))))
		return err
	})
	if err != nil {
		return WriteResult{}, err
	}
	return WriteResult{Location: res.Path, Fallback: res.Fallback, Inserted: inserted}, nil
}

func (s *WorkbookStore) ScanRows(ctx context.Context, sheet string) (*Table, error) {
	if _, err := checkSheet(s.acc.Schema(), sheet); err != nil {
		return nil, err
	}
	t := &Table{Sheet: sheet}
	if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		return t, nil
	}

	b, err := s.acc.Load(ctx, s.path, true)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	if !b.HasSheet(sheet) {
		return t, nil
	}
	if t.Header, err = b.Header(sheet); err != nil {
		return nil, err
	}
	if t.Rows, err = b.Rows(sheet); err != nil {
		return nil, err
	}
	return t, nil
}

// Version is the file's modification time and size. A missing file has an
// empty version.
func (s *WorkbookStore) Version(_ context.Context) (string, error) {
	fi, err := os.Stat(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", eris.Wrapf(err, "store: stat %s", s.path)
	}
	return fmt.Sprintf("%d:%d", fi.ModTime().UnixNano(), fi.Size()), nil
}
