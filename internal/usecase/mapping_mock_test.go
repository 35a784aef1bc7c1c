package usecase

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/oddsmith/playerident/internal/domain/mapping"
)

// mockMappingRepository is a testify mock of mapping.Repository for
// exercising error paths the in-memory fake cannot produce.
type mockMappingRepository struct {
	mock.Mock
}

var _ mapping.Repository = (*mockMappingRepository)(nil)

func (m *mockMappingRepository) Get(ctx context.Context, variantKey string) (mapping.Mapping, bool, error) {
	args := m.Called(ctx, variantKey)
	return args.Get(0).(mapping.Mapping), args.Bool(1), args.Error(2)
}

func (m *mockMappingRepository) All(ctx context.Context) (map[string]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

func (m *mockMappingRepository) Upsert(ctx context.Context, mp mapping.Mapping) error {
	return m.Called(ctx, mp).Error(0)
}

func (m *mockMappingRepository) AddIfAbsent(ctx context.Context, mp mapping.Mapping) (bool, error) {
	args := m.Called(ctx, mp)
	return args.Bool(0), args.Error(1)
}

func (m *mockMappingRepository) Delete(ctx context.Context, variantKey string) error {
	return m.Called(ctx, variantKey).Error(0)
}

func (m *mockMappingRepository) IsSkipped(ctx context.Context, keyA, keyB string) (bool, error) {
	args := m.Called(ctx, keyA, keyB)
	return args.Bool(0), args.Error(1)
}

func (m *mockMappingRepository) AddSkippedPair(ctx context.Context, p mapping.SkippedPair) (bool, error) {
	args := m.Called(ctx, p)
	return args.Bool(0), args.Error(1)
}

func (m *mockMappingRepository) AllSkippedPairs(ctx context.Context) ([]mapping.SkippedPair, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]mapping.SkippedPair), args.Error(1)
}

func (m *mockMappingRepository) ClearSkippedPairs(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockMappingRepository) Totals(ctx context.Context) (mapping.Totals, error) {
	args := m.Called(ctx)
	return args.Get(0).(mapping.Totals), args.Error(1)
}
