// Package intake runs a visitor submission end to end: validation,
// duplicate warning, code assignment, the person row and the registry row.
package intake

import (
	"context"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/extrememax/expo-feria/internal/dedupe"
	"github.com/extrememax/expo-feria/internal/model"
	"github.com/extrememax/expo-feria/internal/registry"
	"github.com/extrememax/expo-feria/internal/store"
)

// MaxDuplicatesShown caps the duplicate list returned with a submission.
const MaxDuplicatesShown = 6

// Result reports where a submission was written.
type Result struct {
	Code       string         `json:"code"`
	Sheet      string         `json:"sheet"`
	Duplicates []dedupe.Match `json:"duplicates,omitempty"`
	Location   string         `json:"location"`
	Fallback   bool           `json:"fallback"`
	Warnings   []string       `json:"warnings,omitempty"`
}

// Service owns every write to a store. Writes are serialized inside the
// process; a second process writing the same file can still race it.
type Service struct {
	mu       sync.Mutex
	store    store.RowStore
	registry *registry.Registry
	finder   *dedupe.Finder
	stands   []string
	onWrite  []func()
}

// NewService returns a Service over s. An empty stands list means
// model.DefaultStands.
func NewService(s store.RowStore, stands []string) *Service {
	if len(stands) == 0 {
		stands = model.DefaultStands
	}
	return &Service{
		store:    s,
		registry: registry.New(s),
		finder:   dedupe.NewFinder(s),
		stands:   stands,
	}
}

// Registry returns the registry the service writes through.
func (s *Service) Registry() *registry.Registry { return s.registry }

// Stands returns the accepted booths.
func (s *Service) Stands() []string { return s.stands }

// OnWrite registers fn to run after every successful write.
func (s *Service) OnWrite(fn func()) {
	s.mu.Lock()
	s.onWrite = append(s.onWrite, fn)
	s.mu.Unlock()
}

// Submit validates p, warns about existing records with the same document,
// email or phone, assigns the next code of its category, appends the
// person row and upserts the registry of codes. A failed registry update
// after the person row was written is reported as a warning.
func (s *Service) Submit(ctx context.Context, p model.Person) (*Result, error) {
	p = clean(p)
	if err := Validate(p, s.stands); err != nil {
		zap.L().Info("submission rejected", zap.String("category", string(p.Category)), zap.Error(err))
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	email := p.Email
	if p.Category == model.CategoryConsumer {
		email = ""
	}
	dups, err := s.finder.Find(ctx, p.Document, email, p.Phone)
	if err != nil {
		return nil, eris.Wrap(err, "intake: duplicate check")
	}
	if len(dups) > 0 {
		zap.L().Warn("possible duplicate submission",
			zap.String("category", string(p.Category)),
			zap.Int("matches", len(dups)),
			zap.String("first_code", dups[0].Code),
		)
		if len(dups) > MaxDuplicatesShown {
			dups = dups[:MaxDuplicatesShown]
		}
	}

	code, err := s.registry.NextCode(ctx, p.Category.Prefix())
	if err != nil {
		return nil, eris.Wrap(err, "intake: next code")
	}

	wr, err := s.store.AppendRow(ctx, p.Category.Sheet(), p.Record(code))
	if err != nil {
		return nil, eris.Wrapf(err, "intake: append %s", code)
	}
	res := &Result{
		Code:       code,
		Sheet:      p.Category.Sheet(),
		Duplicates: dups,
		Location:   wr.Location,
		Fallback:   wr.Fallback,
	}

	_, err = s.registry.UpsertCode(ctx, registry.Entry{
		Code: code,
		Identity: model.Identity{
			Document: p.Document,
			Name:     p.Name,
			Phone:    p.Phone,
			Type:     p.Category.Sheet(),
			Stand:    p.Stand,
		},
	})
	if err != nil {
		zap.L().Warn("registry update failed", zap.String("code", code), zap.Error(err))
		res.Warnings = append(res.Warnings, "no se pudo actualizar REGISTRO DE CODIGOS: "+err.Error())
	}

	zap.L().Info("submission saved",
		zap.String("code", code),
		zap.String("location", wr.Location),
		zap.Bool("fallback", wr.Fallback),
	)
	s.notify()
	return res, nil
}

// SetScore sets the score of a code.
func (s *Service) SetScore(ctx context.Context, code string, score int) (store.WriteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.registry.SetScore(ctx, code, score)
	if err != nil {
		return res, err
	}
	s.notify()
	return res, nil
}

// RecordPrize appends a prize for a code.
func (s *Service) RecordPrize(ctx context.Context, code, prize string) (store.WriteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.registry.RecordPrize(ctx, code, prize)
	if err != nil {
		return res, err
	}
	s.notify()
	return res, nil
}

// Exclusive runs fn with writes blocked, for whole-file operations such as
// replacing the workbook.
func (s *Service) Exclusive(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fn(); err != nil {
		return err
	}
	s.notify()
	return nil
}

// notify runs the write hooks. Callers hold s.mu.
func (s *Service) notify() {
	for _, fn := range s.onWrite {
		fn()
	}
}

func clean(p model.Person) model.Person {
	trim := func(v *string) { *v = strings.TrimSpace(*v) }
	for _, f := range []*string{
		&p.Name, &p.Document, &p.Phone, &p.Email, &p.Province, &p.Canton, &p.Parish,
		&p.Address, &p.Social, &p.Occupation, &p.WorkshopName, &p.WorkshopPremises,
		&p.ProductsOfInterest, &p.PartsToDistribute, &p.MotorcycleModel, &p.PartSought,
	} {
		trim(f)
	}
	upper := func(v *string) { *v = strings.ToUpper(strings.TrimSpace(*v)) }
	for _, f := range []*string{&p.Stand, &p.WantsVisit, &p.Sex, &p.BoughtExtremeMax} {
		upper(f)
	}
	return p
}
