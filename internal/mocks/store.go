package mocks

import (
	"context"

	"github.com/brettbedarf/dirstore"
	"github.com/stretchr/testify/mock"
)

// MockStore implements dirstore.Store for testing across packages
type MockStore struct {
	mock.Mock
}

var _ dirstore.Store = (*MockStore)(nil)

func (m *MockStore) Create(ctx context.Context, owner dirstore.OwnerID, name string, parent *dirstore.DirectoryID) (*dirstore.Directory, error) {
	args := m.Called(ctx, owner, name, parent)

	// Handle function return types (for tests that echo their input)
	if fn, ok := args.Get(0).(func(context.Context, dirstore.OwnerID, string, *dirstore.DirectoryID) *dirstore.Directory); ok {
		return fn(ctx, owner, name, parent), args.Error(1)
	}

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dirstore.Directory), args.Error(1)
}

func (m *MockStore) Get(ctx context.Context, owner dirstore.OwnerID, id dirstore.DirectoryID) (*dirstore.Directory, error) {
	args := m.Called(ctx, owner, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dirstore.Directory), args.Error(1)
}

func (m *MockStore) Rename(ctx context.Context, owner dirstore.OwnerID, id dirstore.DirectoryID, name string) error {
	args := m.Called(ctx, owner, id, name)
	return args.Error(0)
}

func (m *MockStore) Delete(ctx context.Context, owner dirstore.OwnerID, id dirstore.DirectoryID) error {
	args := m.Called(ctx, owner, id)
	return args.Error(0)
}
