package registry

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/extrememax/expo-feria/internal/model"
	"github.com/extrememax/expo-feria/internal/store"
)

// mockRowStore implements store.RowStore for testing.
type mockRowStore struct {
	mock.Mock
}

func (m *mockRowStore) EnsureSchema(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *mockRowStore) AppendRow(ctx context.Context, sheet string, rec model.Record) (store.WriteResult, error) {
	args := m.Called(ctx, sheet, rec)
	return args.Get(0).(store.WriteResult), args.Error(1)
}

func (m *mockRowStore) AppendRows(ctx context.Context, sheet string, recs []model.Record) (store.WriteResult, error) {
	args := m.Called(ctx, sheet, recs)
	return args.Get(0).(store.WriteResult), args.Error(1)
}

func (m *mockRowStore) UpsertByKey(ctx context.Context, sheet, keyHeader, key string, rec model.Record) (store.WriteResult, error) {
	args := m.Called(ctx, sheet, keyHeader, key, rec)
	return args.Get(0).(store.WriteResult), args.Error(1)
}

func (m *mockRowStore) ScanRows(ctx context.Context, sheet string) (*store.Table, error) {
	args := m.Called(ctx, sheet)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Table), args.Error(1)
}

func (m *mockRowStore) Version(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *mockRowStore) Location() string {
	return m.Called().String(0)
}

func (m *mockRowStore) Close() error {
	return m.Called().Error(0)
}
