package snapshot

import (
	"context"

	"github.com/huangsam/cohortstats/internal/contract"
	"github.com/huangsam/cohortstats/internal/sqlq"
	"github.com/huangsam/cohortstats/schema"
	"github.com/stretchr/testify/mock"
)

// MockSnapshot is a mock implementation of Snapshot for testing.
type MockSnapshot struct {
	mock.Mock
}

var _ contract.Snapshot = &MockSnapshot{} // Compile-time check

// Select implements the Snapshot interface.
func (m *MockSnapshot) Select(ctx context.Context, operation string, query string, args ...any) ([]schema.Record, error) {
	ret := m.Called(ctx, operation, query, args)
	records, _ := ret.Get(0).([]schema.Record)
	return records, ret.Error(1)
}

// Dialect implements the Snapshot interface.
func (m *MockSnapshot) Dialect() sqlq.Dialect {
	ret := m.Called()
	d, _ := ret.Get(0).(sqlq.Dialect)
	return d
}
