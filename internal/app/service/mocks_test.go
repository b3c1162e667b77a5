package service

import (
	"context"
	"database/sql"

	"github.com/stretchr/testify/mock"

	"bookshelf/internal/domain/model"
	"bookshelf/internal/platform/openlibrary"
)

// MockUserRepository implements repository.UserRepository for testing.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context) ([]model.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *MockUserRepository) Update(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, tx *sql.Tx, id string) error {
	args := m.Called(ctx, tx, id)
	return args.Error(0)
}

// MockBookRepository implements repository.BookRepository for testing.
type MockBookRepository struct {
	mock.Mock
}

func (m *MockBookRepository) Create(ctx context.Context, tx *sql.Tx, book *model.Book) error {
	args := m.Called(ctx, tx, book)
	return args.Error(0)
}

func (m *MockBookRepository) Update(ctx context.Context, book *model.Book) error {
	args := m.Called(ctx, book)
	return args.Error(0)
}

func (m *MockBookRepository) FindByID(ctx context.Context, id string) (*model.Book, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Book), args.Error(1)
}

func (m *MockBookRepository) FindBySlug(ctx context.Context, slug string) (*model.Book, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Book), args.Error(1)
}

func (m *MockBookRepository) FindByISBN(ctx context.Context, isbn string) (*model.Book, error) {
	args := m.Called(ctx, isbn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Book), args.Error(1)
}

func (m *MockBookRepository) List(ctx context.Context, limit, offset int) ([]model.Book, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Book), args.Error(1)
}

func (m *MockBookRepository) Delete(ctx context.Context, tx *sql.Tx, id string) error {
	args := m.Called(ctx, tx, id)
	return args.Error(0)
}

// MockShelfRepository implements repository.ShelfRepository for testing.
type MockShelfRepository struct {
	mock.Mock
}

func (m *MockShelfRepository) Create(ctx context.Context, item *model.ShelfItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockShelfRepository) FindByID(ctx context.Context, id string) (*model.ShelfItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ShelfItem), args.Error(1)
}

func (m *MockShelfRepository) FindByUserAndBook(ctx context.Context, userID, bookID string) (*model.ShelfItem, error) {
	args := m.Called(ctx, userID, bookID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ShelfItem), args.Error(1)
}

func (m *MockShelfRepository) ListByUser(ctx context.Context, userID string) ([]model.ShelfItem, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ShelfItem), args.Error(1)
}

func (m *MockShelfRepository) Update(ctx context.Context, item *model.ShelfItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockShelfRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockShelfRepository) DeleteByUserID(ctx context.Context, tx *sql.Tx, userID string) error {
	args := m.Called(ctx, tx, userID)
	return args.Error(0)
}

func (m *MockShelfRepository) DeleteByBookID(ctx context.Context, tx *sql.Tx, bookID string) error {
	args := m.Called(ctx, tx, bookID)
	return args.Error(0)
}

// MockMetadataFetcher implements MetadataFetcher for testing.
type MockMetadataFetcher struct {
	mock.Mock
}

func (m *MockMetadataFetcher) FetchByISBN(ctx context.Context, isbn string) (*openlibrary.BookMetadata, error) {
	args := m.Called(ctx, isbn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*openlibrary.BookMetadata), args.Error(1)
}

// MockMetadataCache implements MetadataCache for testing.
type MockMetadataCache struct {
	mock.Mock
}

func (m *MockMetadataCache) Get(ctx context.Context, isbn string) (*openlibrary.BookMetadata, bool) {
	args := m.Called(ctx, isbn)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(*openlibrary.BookMetadata), args.Bool(1)
}

func (m *MockMetadataCache) Set(ctx context.Context, isbn string, meta *openlibrary.BookMetadata) {
	m.Called(ctx, isbn, meta)
}
