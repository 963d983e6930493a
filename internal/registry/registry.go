// Package registry maintains the denormalized code and prize sheets: code
// generation, the registry-of-codes upsert, scores and prizes.
package registry

import (
	"context"
	"errors"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/extrememax/expo-feria/internal/model"
	"github.com/extrememax/expo-feria/internal/store"
	"github.com/extrememax/expo-feria/internal/workbook"
)

// Score bounds accepted by SetScore.
const (
	MinScore = 0
	MaxScore = 100000
)

var (
	// ErrCodeRequired is returned when a blank code is given.
	ErrCodeRequired = errors.New("code is required")
	// ErrPrizeRequired is returned when the prize text is blank.
	ErrPrizeRequired = errors.New("prize is required")
	// ErrScoreRange is returned for scores outside [MinScore, MaxScore].
	ErrScoreRange = errors.New("score out of range")
)

var trailingDigits = regexp.MustCompile(`(\d+)$`)

// Entry is a code together with the identity snapshot stored next to it.
type Entry struct {
	Code string `json:"code"`
	model.Identity
}

func (e Entry) record() model.Record {
	return model.Record{
		model.ColDocument: e.Document,
		model.ColName:     e.Name,
		model.ColPhone:    e.Phone,
		model.ColType:     e.Type,
		model.ColStand:    e.Stand,
	}
}

// Registry reads and writes the registry sheets of a store.
type Registry struct {
	store store.RowStore
}

// New returns a Registry over s.
func New(s store.RowStore) *Registry {
	return &Registry{store: s}
}

// NextCode returns prefix followed by one more than the largest trailing
// number among codes that start with prefix, looking at the registry of
// codes and at the person sheet of the prefix's category. Two processes
// calling it concurrently can receive the same code.
func (r *Registry) NextCode(ctx context.Context, prefix string) (string, error) {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		return "", eris.New("registry: empty code prefix")
	}

	sheets := []string{model.SheetCodes}
	if c, ok := model.CategoryForPrefix(prefix); ok {
		sheets = append(sheets, c.Sheet())
	}

	highest := 0
	for _, sheet := range sheets {
		tbl, err := r.store.ScanRows(ctx, sheet)
		if err != nil {
			return "", eris.Wrapf(err, "registry: scan %s", sheet)
		}
		col := codeColumn(tbl)
		for _, row := range tbl.Rows {
			if n, ok := codeNumber(workbook.Cell(row, col), prefix); ok && n > highest {
				highest = n
			}
		}
	}
	return prefix + strconv.Itoa(highest+1), nil
}

func codeNumber(v, prefix string) (int, bool) {
	s := strings.ToUpper(strings.TrimSpace(v))
	if !strings.HasPrefix(s, prefix) {
		return 0, false
	}
	m := trailingDigits.FindString(s)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return n, true
}

func codeColumn(tbl *store.Table) int {
	if col := tbl.Columns().Find(model.ColCode); col >= 0 {
		return col
	}
	return 0
}

// UpsertCode writes the identity of e.Code into the registry of codes. An
// existing row keeps its score; a new row starts with a blank score.
func (r *Registry) UpsertCode(ctx context.Context, e Entry) (store.WriteResult, error) {
	code := strings.ToUpper(strings.TrimSpace(e.Code))
	if code == "" {
		return store.WriteResult{}, ErrCodeRequired
	}
	res, err := r.store.UpsertByKey(ctx, model.SheetCodes, model.ColCode, code, e.record())
	if err != nil {
		return store.WriteResult{}, eris.Wrapf(err, "registry: upsert %s", code)
	}
	return res, nil
}

// SetScore sets the score of code. A code not yet in the registry is added
// with the identity found in the person sheets, or blank if none is found.
func (r *Registry) SetScore(ctx context.Context, code string, score int) (store.WriteResult, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return store.WriteResult{}, ErrCodeRequired
	}
	if score < MinScore || score > MaxScore {
		return store.WriteResult{}, eris.Wrapf(ErrScoreRange, "registry: score %d", score)
	}

	rec := model.Record{model.ColScore: strconv.Itoa(score)}

	entries, err := r.Entries(ctx)
	if err != nil {
		return store.WriteResult{}, err
	}
	if _, ok := entries[strings.ToUpper(code)]; !ok {
		e, found, err := r.FindPerson(ctx, code)
		if err != nil {
			return store.WriteResult{}, err
		}
		if !found {
			zap.L().Warn("registry: scoring a code with no person record", zap.String("code", code))
		}
		for k, v := range e.record() {
			rec[k] = v
		}
	}

	res, err := r.store.UpsertByKey(ctx, model.SheetCodes, model.ColCode, code, rec)
	if err != nil {
		return store.WriteResult{}, eris.Wrapf(err, "registry: set score %s", code)
	}
	return res, nil
}

// RecordPrize appends a prize row for code, copying the identity held in
// the registry of codes. A blank stand is looked up in the person sheets.
// The code does not have to exist.
func (r *Registry) RecordPrize(ctx context.Context, code, prize string) (store.WriteResult, error) {
	code = strings.TrimSpace(code)
	prize = strings.TrimSpace(prize)
	if code == "" {
		return store.WriteResult{}, ErrCodeRequired
	}
	if prize == "" {
		return store.WriteResult{}, ErrPrizeRequired
	}

	entries, err := r.Entries(ctx)
	if err != nil {
		return store.WriteResult{}, err
	}
	e := entries[strings.ToUpper(code)]
	if e.Stand == "" {
		if e.Stand, err = r.LookupStand(ctx, code); err != nil {
			return store.WriteResult{}, err
		}
	}

	rec := e.record()
	rec[model.ColCode] = code
	rec[model.ColPrize] = prize
	res, err := r.store.AppendRow(ctx, model.SheetPrizes, rec)
	if err != nil {
		return store.WriteResult{}, eris.Wrapf(err, "registry: record prize %s", code)
	}
	zap.L().Info("prize recorded", zap.String("code", code), zap.String("prize", prize), zap.Bool("fallback", res.Fallback))
	return res, nil
}

// Entries returns the registry of codes keyed by upper-cased code. Blank
// codes are skipped and the first row wins for repeated codes.
func (r *Registry) Entries(ctx context.Context) (map[string]Entry, error) {
	tbl, err := r.store.ScanRows(ctx, model.SheetCodes)
	if err != nil {
		return nil, eris.Wrap(err, "registry: scan codes")
	}
	cols := tbl.Columns()
	var (
		codeCol  = cols.Find(model.ColCode)
		docCol   = cols.Find(model.ColDocument)
		nameCol  = cols.Find(model.ColName)
		phoneCol = cols.Find(model.ColPhone)
		typeCol  = cols.Find(model.ColType)
		standCol = cols.Find(model.ColStand)
	)

	out := make(map[string]Entry, len(tbl.Rows))
	for _, row := range tbl.Rows {
		code := strings.TrimSpace(workbook.Cell(row, codeCol))
		if code == "" {
			continue
		}
		key := strings.ToUpper(code)
		if _, dup := out[key]; dup {
			continue
		}
		out[key] = Entry{
			Code: code,
			Identity: model.Identity{
				Document: workbook.Cell(row, docCol),
				Name:     workbook.Cell(row, nameCol),
				Phone:    workbook.Cell(row, phoneCol),
				Type:     workbook.Cell(row, typeCol),
				Stand:    workbook.Cell(row, standCol),
			},
		}
	}
	return out, nil
}

// Codes returns the distinct codes of the registry, sorted.
func (r *Registry) Codes(ctx context.Context) ([]string, error) {
	entries, err := r.Entries(ctx)
	if err != nil {
		return nil, err
	}
	codes := make([]string, 0, len(entries))
	for _, e := range entries {
		codes = append(codes, e.Code)
	}
	slices.Sort(codes)
	return codes, nil
}

// FindPerson looks code up in the person sheets and returns the identity
// of the first row with that code. Type is the sheet name.
func (r *Registry) FindPerson(ctx context.Context, code string) (Entry, bool, error) {
	code = strings.TrimSpace(code)
	for _, sheet := range model.PersonSheets {
		tbl, err := r.store.ScanRows(ctx, sheet)
		if err != nil {
			return Entry{}, false, eris.Wrapf(err, "registry: scan %s", sheet)
		}
		cols := tbl.Columns()
		codeCol := cols.Find(model.ColCode)
		if codeCol < 0 {
			continue
		}
		for _, row := range tbl.Rows {
			if !strings.EqualFold(strings.TrimSpace(workbook.Cell(row, codeCol)), code) {
				continue
			}
			return Entry{
				Code: code,
				Identity: model.Identity{
					Document: workbook.Cell(row, cols.Find("CEDULA", "RUC")),
					Name:     workbook.Cell(row, cols.Find(model.ColName)),
					Phone:    workbook.Cell(row, cols.Find(model.ColPhone)),
					Type:     sheet,
					Stand:    workbook.Cell(row, cols.Find(model.ColStand)),
				},
			}, true, nil
		}
	}
	return Entry{Code: code}, false, nil
}

// LookupStand returns the upper-cased stand of the first person row with
// code, or "" when there is none.
func (r *Registry) LookupStand(ctx context.Context, code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, sheet := range model.PersonSheets {
		tbl, err := r.store.ScanRows(ctx, sheet)
		if err != nil {
			return "", eris.Wrapf(err, "registry: scan %s", sheet)
		}
		cols := tbl.Columns()
		codeCol, standCol := cols.Find(model.ColCode), cols.Find(model.ColStand)
		if codeCol < 0 || standCol < 0 {
			continue
		}
		for _, row := range tbl.Rows {
			if strings.ToUpper(strings.TrimSpace(workbook.Cell(row, codeCol))) == code {
				return strings.ToUpper(strings.TrimSpace(workbook.Cell(row, standCol))), nil
			}
		}
	}
	return "", nil
}
