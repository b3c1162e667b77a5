package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"bookshelf/internal/common"
	"bookshelf/internal/domain/model"
	"bookshelf/internal/platform/openlibrary"
)

type bookServiceMocks struct {
	bookRepo  *MockBookRepository
	shelfRepo *MockShelfRepository
	library   *MockMetadataFetcher
	metaCache *MockMetadataCache
}

func newBookService(t *testing.T) (*BookService, *bookServiceMocks, sqlmock.Sqlmock) {
	t.Helper()
	db, smock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	m := &bookServiceMocks{
		bookRepo:  new(MockBookRepository),
		shelfRepo: new(MockShelfRepository),
		library:   new(MockMetadataFetcher),
		metaCache: new(MockMetadataCache),
	}
	svc := NewBookService(m.bookRepo, m.shelfRepo, m.library, m.metaCache, db, testLogger())
	return svc, m, smock
}

func TestBookService_CreateBook(t *testing.T) {
	t.Run("Should create a book with a slug derived from the title", func(t *testing.T) {
		svc, m, _ := newBookService(t)

		m.bookRepo.On("FindBySlug", mock.Anything, "the-go-programming-language").Return(nil, common.ErrNotFound)
		m.bookRepo.On("Create", mock.Anything, (*sql.Tx)(nil), mock.MatchedBy(func(b *model.Book) bool {
			return b.ID != "" &&
				b.Slug == "the-go-programming-language" &&
				b.ISBN != nil && *b.ISBN == "978-0134190440"
		})).Return(nil)

		isbn := "  978-0134190440  "
		book, err := svc.CreateBook(context.Background(), "user-1", model.RoleUser, CreateBookRequest{
			Title:  "The Go Programming Language",
			Author: "Alan A. A. Donovan",
			ISBN:   &isbn,
		})
		require.NoError(t, err)

		assert.Equal(t, "the-go-programming-language", book.Slug)
		require.NotNil(t, book.ISBN)
		assert.Equal(t, "978-0134190440", *book.ISBN, "isbn must be trimmed")
		m.bookRepo.AssertExpectations(t)
	})

	t.Run("Should suffix the slug when the plain form is taken", func(t *testing.T) {
		svc, m, _ := newBookService(t)

		m.bookRepo.On("FindBySlug", mock.Anything, "dune").Return(&model.Book{ID: "other", Slug: "dune"}, nil)
		m.bookRepo.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil)

		book, err := svc.CreateBook(context.Background(), "user-1", model.RoleUser, CreateBookRequest{
			Title:  "Dune",
			Author: "Frank Herbert",
		})
		require.NoError(t, err)

		assert.NotEqual(t, "dune", book.Slug)
		assert.Regexp(t, `^dune-[0-9a-f]{8}$`, book.Slug)
	})

	t.Run("Should drop a blank isbn", func(t *testing.T) {
		svc, m, _ := newBookService(t)

		m.bookRepo.On("FindBySlug", mock.Anything, mock.Anything).Return(nil, common.ErrNotFound)
		m.bookRepo.On("Create", mock.Anything, mock.Anything, mock.MatchedBy(func(b *model.Book) bool {
			return b.ISBN == nil
		})).Return(nil)

		blank := "   "
		_, err := svc.CreateBook(context.Background(), "user-1", model.RoleUser, CreateBookRequest{
			Title:  "Untracked",
			Author: "Anonymous",
			ISBN:   &blank,
		})
		require.NoError(t, err)
		m.bookRepo.AssertExpectations(t)
	})

	t.Run("Should reject an invalid payload", func(t *testing.T) {
		svc, m, _ := newBookService(t)

		_, err := svc.CreateBook(context.Background(), "user-1", model.RoleUser, CreateBookRequest{Title: "No Author"})
		require.Error(t, err)

		var verr *common.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields, "author")
		m.bookRepo.AssertNotCalled(t, "Create")
	})
}

func TestBookService_UpdateBook(t *testing.T) {
	existing := func() *model.Book {
		return &model.Book{
			ID:     "book-1",
			Title:  "Old Title",
			Author: "Old Author",
			Slug:   "old-title",
		}
	}

	t.Run("Should regenerate the slug when the title changes", func(t *testing.T) {
		svc, m, _ := newBookService(t)

		m.bookRepo.On("FindByID", mock.Anything, "book-1").Return(existing(), nil)
		m.bookRepo.On("FindBySlug", mock.Anything, "new-title").Return(nil, common.ErrNotFound)
		m.bookRepo.On("Update", mock.Anything, mock.Anything).Return(nil)

		book, err := svc.UpdateBook(context.Background(), "user-1", model.RoleUser, "book-1", UpdateBookRequest{
			Title:  "New Title",
			Author: "New Author",
		})
		require.NoError(t, err)

		assert.Equal(t, "new-title", book.Slug)
		assert.Equal(t, "New Author", book.Author)
	})

	t.Run("Should keep the slug when the title is unchanged", func(t *testing.T) {
		svc, m, _ := newBookService(t)

		m.bookRepo.On("FindByID", mock.Anything, "book-1").Return(existing(), nil)
		m.bookRepo.On("Update", mock.Anything, mock.Anything).Return(nil)

		book, err := svc.UpdateBook(context.Background(), "user-1", model.RoleUser, "book-1", UpdateBookRequest{
			Title:  "Old Title",
			Author: "New Author",
		})
		require.NoError(t, err)

		assert.Equal(t, "old-title", book.Slug)
		m.bookRepo.AssertNotCalled(t, "FindBySlug")
	})

	t.Run("Should replace optional fields wholesale", func(t *testing.T) {
		svc, m, _ := newBookService(t)

		withExtras := existing()
		desc := "old description"
		withExtras.Description = &desc
		m.bookRepo.On("FindByID", mock.Anything, "book-1").Return(withExtras, nil)
		m.bookRepo.On("Update", mock.Anything, mock.Anything).Return(nil)

		book, err := svc.UpdateBook(context.Background(), "user-1", model.RoleUser, "book-1", UpdateBookRequest{
			Title:  "Old Title",
			Author: "Old Author",
		})
		require.NoError(t, err)

		assert.Nil(t, book.Description, "omitted fields are cleared, not kept")
	})

	t.Run("Should return not found for an unknown book", func(t *testing.T) {
		svc, m, _ := newBookService(t)

		m.bookRepo.On("FindByID", mock.Anything, "ghost").Return(nil, common.ErrNotFound)

		_, err := svc.UpdateBook(context.Background(), "user-1", model.RoleUser, "ghost", UpdateBookRequest{
			Title:  "Anything",
			Author: "Anyone",
		})
		assert.ErrorIs(t, err, common.ErrNotFound)
	})
}

func TestBookService_DeleteBook(t *testing.T) {
	t.Run("Should forbid regular users", func(t *testing.T) {
		svc, m, _ := newBookService(t)

		err := svc.DeleteBook(context.Background(), "user-1", model.RoleUser, "book-1")
		assert.ErrorIs(t, err, common.ErrForbidden)
		m.bookRepo.AssertNotCalled(t, "FindByID")
	})

	t.Run("Should delete the book and its shelf rows in one transaction", func(t *testing.T) {
		svc, m, smock := newBookService(t)

		m.bookRepo.On("FindByID", mock.Anything, "book-1").Return(&model.Book{ID: "book-1"}, nil)
		smock.ExpectBegin()
		m.shelfRepo.On("DeleteByBookID", mock.Anything, mock.Anything, "book-1").Return(nil)
		m.bookRepo.On("Delete", mock.Anything, mock.Anything, "book-1").Return(nil)
		smock.ExpectCommit()

		err := svc.DeleteBook(context.Background(), "admin-1", model.RoleAdmin, "book-1")
		require.NoError(t, err)

		assert.NoError(t, smock.ExpectationsWereMet())
		m.shelfRepo.AssertExpectations(t)
		m.bookRepo.AssertExpectations(t)
	})

	t.Run("Should roll back when a step fails", func(t *testing.T) {
		svc, m, smock := newBookService(t)

		m.bookRepo.On("FindByID", mock.Anything, "book-1").Return(&model.Book{ID: "book-1"}, nil)
		smock.ExpectBegin()
		m.shelfRepo.On("DeleteByBookID", mock.Anything, mock.Anything, "book-1").
			Return(common.Errorf("boom"))
		smock.ExpectRollback()

		err := svc.DeleteBook(context.Background(), "admin-1", model.RoleAdmin, "book-1")
		require.Error(t, err)

		assert.NoError(t, smock.ExpectationsWereMet())
		m.bookRepo.AssertNotCalled(t, "Delete")
	})

	t.Run("Should return not found before opening a transaction", func(t *testing.T) {
		svc, m, smock := newBookService(t)

		m.bookRepo.On("FindByID", mock.Anything, "ghost").Return(nil, common.ErrNotFound)

		err := svc.DeleteBook(context.Background(), "admin-1", model.RoleAdmin, "ghost")
		assert.ErrorIs(t, err, common.ErrNotFound)
		assert.NoError(t, smock.ExpectationsWereMet())
	})
}

func TestBookService_SearchByISBN(t *testing.T) {
	meta := func() *openlibrary.BookMetadata {
		desc := "A desert planet epic."
		cover := "https://covers.example.org/b/id/1-L.jpg"
		return &openlibrary.BookMetadata{
			Title:       "Dune",
			Author:      "Frank Herbert",
			Description: &desc,
			CoverURL:    &cover,
		}
	}

	t.Run("Should return the stored book without calling upstream", func(t *testing.T) {
		svc, m, _ := newBookService(t)

		stored := &model.Book{ID: "book-1", Title: "Dune"}
		m.bookRepo.On("FindByISBN", mock.Anything, "9780441172719").Return(stored, nil)

		book, err := svc.SearchByISBN(context.Background(), "user-1", model.RoleUser, SearchByISBNRequest{ISBN: "9780441172719"})
		require.NoError(t, err)

		assert.Equal(t, stored, book)
		m.library.AssertNotCalled(t, "FetchByISBN")
		m.metaCache.AssertNotCalled(t, "Get")
	})

	t.Run("Should import from the cache on a catalog miss", func(t *testing.T) {
		svc, m, _ := newBookService(t)

		m.bookRepo.On("FindByISBN", mock.Anything, "9780441172719").Return(nil, common.ErrNotFound)
		m.metaCache.On("Get", mock.Anything, "9780441172719").Return(meta(), true)
		m.bookRepo.On("FindBySlug", mock.Anything, "dune").Return(nil, common.ErrNotFound)
		m.bookRepo.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil)

		book, err := svc.SearchByISBN(context.Background(), "user-1", model.RoleUser, SearchByISBNRequest{ISBN: "9780441172719"})
		require.NoError(t, err)

		assert.Equal(t, "Dune", book.Title)
		require.NotNil(t, book.ISBN)
		assert.Equal(t, "9780441172719", *book.ISBN)
		m.library.AssertNotCalled(t, "FetchByISBN")
	})

	t.Run("Should fetch upstream and cache the result on a full miss", func(t *testing.T) {
		svc, m, _ := newBookService(t)

		m.bookRepo.On("FindByISBN", mock.Anything, "9780441172719").Return(nil, common.ErrNotFound)
		m.metaCache.On("Get", mock.Anything, "9780441172719").Return(nil, false)
		m.library.On("FetchByISBN", mock.Anything, "9780441172719").Return(meta(), nil)
		m.metaCache.On("Set", mock.Anything, "9780441172719", mock.Anything).Return()
		m.bookRepo.On("FindBySlug", mock.Anything, "dune").Return(nil, common.ErrNotFound)
		m.bookRepo.On("Create", mock.Anything, mock.Anything, mock.MatchedBy(func(b *model.Book) bool {
			return b.Title == "Dune" && b.Author == "Frank Herbert" && b.Description != nil && b.CoverURL != nil
		})).Return(nil)

		book, err := svc.SearchByISBN(context.Background(), "user-1", model.RoleUser, SearchByISBNRequest{ISBN: " 9780441172719 "})
		require.NoError(t, err)

		require.NotNil(t, book.ISBN)
		assert.Equal(t, "9780441172719", *book.ISBN, "isbn is trimmed before every lookup")
		m.metaCache.AssertExpectations(t)
	})

	t.Run("Should pass through an unknown isbn", func(t *testing.T) {
		svc, m, _ := newBookService(t)

		m.bookRepo.On("FindByISBN", mock.Anything, "0000000000").Return(nil, common.ErrNotFound)
		m.metaCache.On("Get", mock.Anything, "0000000000").Return(nil, false)
		m.library.On("FetchByISBN", mock.Anything, "0000000000").
			Return(nil, common.Errorf("no book found for isbn 0000000000: %w", common.ErrNotFound))

		_, err := svc.SearchByISBN(context.Background(), "user-1", model.RoleUser, SearchByISBNRequest{ISBN: "0000000000"})
		assert.ErrorIs(t, err, common.ErrNotFound)
		m.metaCache.AssertNotCalled(t, "Set")
		m.bookRepo.AssertNotCalled(t, "Create")
	})

	t.Run("Should pass through upstream unavailability", func(t *testing.T) {
		svc, m, _ := newBookService(t)

		m.bookRepo.On("FindByISBN", mock.Anything, "9780441172719").Return(nil, common.ErrNotFound)
		m.metaCache.On("Get", mock.Anything, "9780441172719").Return(nil, false)
		m.library.On("FetchByISBN", mock.Anything, "9780441172719").
			Return(nil, common.Errorf("open library responded with status 503: %w", common.ErrUpstreamUnavailable))

		_, err := svc.SearchByISBN(context.Background(), "user-1", model.RoleUser, SearchByISBNRequest{ISBN: "9780441172719"})
		assert.ErrorIs(t, err, common.ErrUpstreamUnavailable)
		m.bookRepo.AssertNotCalled(t, "Create")
	})

	t.Run("Should reuse the winner's row when two imports race", func(t *testing.T) {
		svc, m, _ := newBookService(t)

		winner := &model.Book{ID: "book-winner", Title: "Dune"}
		m.bookRepo.On("FindByISBN", mock.Anything, "9780441172719").Return(nil, common.ErrNotFound).Once()
		m.metaCache.On("Get", mock.Anything, "9780441172719").Return(meta(), true)
		m.bookRepo.On("FindBySlug", mock.Anything, "dune").Return(nil, common.ErrNotFound)
		m.bookRepo.On("Create", mock.Anything, mock.Anything, mock.Anything).
			Return(common.Errorf("isbn already in catalog: %w", common.ErrConflict))
		m.bookRepo.On("FindByISBN", mock.Anything, "9780441172719").Return(winner, nil).Once()

		book, err := svc.SearchByISBN(context.Background(), "user-1", model.RoleUser, SearchByISBNRequest{ISBN: "9780441172719"})
		require.NoError(t, err)
		assert.Equal(t, winner, book)
	})

	t.Run("Should reject a blank isbn", func(t *testing.T) {
		svc, m, _ := newBookService(t)

		_, err := svc.SearchByISBN(context.Background(), "user-1", model.RoleUser, SearchByISBNRequest{ISBN: "   "})
		require.Error(t, err)

		var verr *common.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields, "isbn")
		m.bookRepo.AssertNotCalled(t, "FindByISBN")
	})
}

func TestBookService_ListBooks(t *testing.T) {
	t.Run("Should pass paging through to the repository", func(t *testing.T) {
		svc, m, _ := newBookService(t)

		m.bookRepo.On("List", mock.Anything, 100, 0).Return([]model.Book{}, nil)

		books, err := svc.ListBooks(context.Background(), 100, 0)
		require.NoError(t, err)
		assert.NotNil(t, books)
		m.bookRepo.AssertExpectations(t)
	})
}
