package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/sirupsen/logrus"

	"bookshelf/internal/common"
	"bookshelf/internal/common/authz"
	"bookshelf/internal/domain/model"
	"bookshelf/internal/domain/repository"
	"bookshelf/internal/platform/openlibrary"
)

// MetadataFetcher looks up book metadata by ISBN.
type MetadataFetcher interface {
	FetchByISBN(ctx context.Context, isbn string) (*openlibrary.BookMetadata, error)
}

// MetadataCache is a best-effort store for fetched metadata; a miss or a
// failed write must never fail the import.
type MetadataCache interface {
	Get(ctx context.Context, isbn string) (*openlibrary.BookMetadata, bool)
	Set(ctx context.Context, isbn string, meta *openlibrary.BookMetadata)
}

type BookService struct {
	bookRepo  repository.BookRepository
	shelfRepo repository.ShelfRepository
	library   MetadataFetcher
	metaCache MetadataCache
	db        *sql.DB // For transactions
	log       *logrus.Logger
}

func NewBookService(
	bookRepo repository.BookRepository,
	shelfRepo repository.ShelfRepository,
	library MetadataFetcher,
	metaCache MetadataCache,
	db *sql.DB,
	log *logrus.Logger,
) *BookService {
	return &BookService{
		bookRepo:  bookRepo,
		shelfRepo: shelfRepo,
		library:   library,
		metaCache: metaCache,
		db:        db,
		log:       log,
	}
}

type CreateBookRequest struct {
	Title       string  `json:"title" validate:"required,max=500"`
	Author      string  `json:"author" validate:"required,max=500"`
	ISBN        *string `json:"isbn,omitempty" validate:"omitempty,max=32"`
	Description *string `json:"description,omitempty"`
	CoverURL    *string `json:"cover_url,omitempty" validate:"omitempty,url"`
}

// UpdateBookRequest is a full replacement of the editable fields, so the
// same constraints as creation apply.
type UpdateBookRequest struct {
	Title       string  `json:"title" validate:"required,max=500"`
	Author      string  `json:"author" validate:"required,max=500"`
	ISBN        *string `json:"isbn,omitempty" validate:"omitempty,max=32"`
	Description *string `json:"description,omitempty"`
	CoverURL    *string `json:"cover_url,omitempty" validate:"omitempty,url"`
}

type SearchByISBNRequest struct {
	ISBN string `json:"isbn" validate:"required"`
}

func (s *BookService) CreateBook(ctx context.Context, callerID, callerRole string, req CreateBookRequest) (*model.Book, error) {
	if !authz.Can(callerRole, callerID, "", authz.ActionBookCreate) {
		return nil, common.ErrForbidden
	}
	if err := common.ValidateStruct(req); err != nil {
		return nil, err
	}

	book := &model.Book{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Author:      req.Author,
		Slug:        s.uniqueSlug(ctx, req.Title),
		ISBN:        normalizeISBN(req.ISBN),
		Description: req.Description,
		CoverURL:    req.CoverURL,
	}

	if err := s.bookRepo.Create(ctx, nil, book); err != nil {
		return nil, fmt.Errorf("failed to create book: %w", err)
	}

	s.log.WithFields(logrus.Fields{"book_id": book.ID, "title": book.Title}).Info("Book created")
	return book, nil
}

func (s *BookService) GetBook(ctx context.Context, id string) (*model.Book, error) {
	return s.bookRepo.FindByID(ctx, id)
}

func (s *BookService) ListBooks(ctx context.Context, limit, offset int) ([]model.Book, error) {
	return s.bookRepo.List(ctx, limit, offset)
}

func (s *BookService) UpdateBook(ctx context.Context, callerID, callerRole, id string, req UpdateBookRequest) (*model.Book, error) {
	if !authz.Can(callerRole, callerID, "", authz.ActionBookUpdate) {
		return nil, common.ErrForbidden
	}
	if err := common.ValidateStruct(req); err != nil {
		return nil, err
	}

	book, err := s.bookRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != book.Title {
		book.Slug = s.uniqueSlug(ctx, req.Title)
	}
	book.Title = req.Title
	book.Author = req.Author
	book.ISBN = normalizeISBN(req.ISBN)
	book.Description = req.Description
	book.CoverURL = req.CoverURL

	if err := s.bookRepo.Update(ctx, book); err != nil {
		return nil, fmt.Errorf("failed to update book: %w", err)
	}
	return book, nil
}

// DeleteBook removes a book and every shelf row referencing it in one
// transaction.
func (s *BookService) DeleteBook(ctx context.Context, callerID, callerRole, id string) error {
	if !authz.Can(callerRole, callerID, "", authz.ActionBookDelete) {
		return common.ErrForbidden
	}

	if _, err := s.bookRepo.FindByID(ctx, id); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return common.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.shelfRepo.DeleteByBookID(ctx, tx, id); err != nil {
		return common.Errorf("failed to remove shelf references: %w", err)
	}
	if err := s.bookRepo.Delete(ctx, tx, id); err != nil {
		return common.Errorf("failed to delete book: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return common.Errorf("failed to commit transaction: %w", err)
	}

	s.log.WithField("book_id", id).Info("Book deleted")
	return nil
}

// SearchByISBN resolves an ISBN to a catalog entry. The lookup order is:
// a book already stored under this ISBN, then the metadata cache, then
// Open Library. Whatever the source, the caller gets a persisted book.
func (s *BookService) SearchByISBN(ctx context.Context, callerID, callerRole string, req SearchByISBNRequest) (*model.Book, error) {
	if !authz.Can(callerRole, callerID, "", authz.ActionBookImport) {
		return nil, common.ErrForbidden
	}
	if err := common.ValidateStruct(req); err != nil {
		return nil, err
	}
	isbn := strings.TrimSpace(req.ISBN)
	if isbn == "" {
		return nil, &common.ValidationError{Fields: map[string]string{"isbn": "must not be blank"}}
	}

	existing, err := s.bookRepo.FindByISBN(ctx, isbn)
	if err == nil {
		s.log.WithField("isbn", isbn).Info("ISBN already in catalog, returning stored book")
		return existing, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("failed to check catalog for isbn: %w", err)
	}

	meta, ok := s.metaCache.Get(ctx, isbn)
	if ok {
		s.log.WithField("isbn", isbn).Info("Book metadata served from cache")
	} else {
		meta, err = s.library.FetchByISBN(ctx, isbn)
		if err != nil {
			return nil, err
		}
		s.metaCache.Set(ctx, isbn, meta)
	}

	book := &model.Book{
		ID:          uuid.NewString(),
		Title:       meta.Title,
		Author:      meta.Author,
		Slug:        s.uniqueSlug(ctx, meta.Title),
		ISBN:        &isbn,
		Description: meta.Description,
		CoverURL:    meta.CoverURL,
	}

	if err := s.bookRepo.Create(ctx, nil, book); err != nil {
		// Two imports racing on the same ISBN: the loser reuses the row
		// the winner stored.
		if errors.Is(err, common.ErrConflict) {
			if stored, findErr := s.bookRepo.FindByISBN(ctx, isbn); findErr == nil {
				return stored, nil
			}
		}
		return nil, fmt.Errorf("failed to store imported book: %w", err)
	}

	s.log.WithFields(logrus.Fields{"book_id": book.ID, "isbn": isbn}).Info("Book imported from Open Library")
	return book, nil
}

// uniqueSlug derives a URL slug from the title, suffixing it when the plain
// form is already taken.
func (s *BookService) uniqueSlug(ctx context.Context, title string) string {
	base := slug.Make(title)
	if base == "" {
		base = "book"
	}
	if _, err := s.bookRepo.FindBySlug(ctx, base); errors.Is(err, common.ErrNotFound) {
		return base
	}
	return base + "-" + uuid.NewString()[:8]
}

func normalizeISBN(isbn *string) *string {
	if isbn == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*isbn)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
