package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"bookshelf/internal/common"
	"bookshelf/internal/domain/model"
)

type BookRepository interface {
	Create(ctx context.Context, tx *sql.Tx, book *model.Book) error
	Update(ctx context.Context, book *model.Book) error
	FindByID(ctx context.Context, id string) (*model.Book, error)
	FindBySlug(ctx context.Context, slug string) (*model.Book, error)
	FindByISBN(ctx context.Context, isbn string) (*model.Book, error)
	List(ctx context.Context, limit, offset int) ([]model.Book, error)
	Delete(ctx context.Context, tx *sql.Tx, id string) error
}

type pgBookRepository struct {
	db *sql.DB
}

func NewPgBookRepository(db *sql.DB) BookRepository {
	return &pgBookRepository{db: db}
}

const bookColumns = `id, title, author, slug, isbn, description, cover_url, created_at, updated_at`

func scanBook(row *sql.Row) (*model.Book, error) {
	book := &model.Book{}
	err := row.Scan(
		&book.ID, &book.Title, &book.Author, &book.Slug, &book.ISBN,
		&book.Description, &book.CoverURL, &book.CreatedAt, &book.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return book, nil
}

// conflictError translates unique violations into the conflict sentinel,
// naming the colliding column where the constraint makes that possible.
func conflictError(pgErr *pgconn.PgError) error {
	switch pgErr.ConstraintName {
	case "books_isbn_key":
		return fmt.Errorf("book with this isbn already exists: %w", common.ErrConflict)
	case "books_slug_key":
		return fmt.Errorf("book with this slug already exists: %w", common.ErrConflict)
	}
	return fmt.Errorf("book already exists: %w", common.ErrConflict)
}

func (r *pgBookRepository) Create(ctx context.Context, tx *sql.Tx, book *model.Book) error {
	query := `INSERT INTO books (id, title, author, slug, isbn, description, cover_url)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, book.ID, book.Title, book.Author, book.Slug, book.ISBN, book.Description, book.CoverURL)
	} else {
		_, err = r.db.ExecContext(ctx, query, book.ID, book.Title, book.Author, book.Slug, book.ISBN, book.Description, book.CoverURL)
	}
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return conflictError(pgErr)
		}
		return fmt.Errorf("pgBookRepository.Create: %w", err)
	}
	return nil
}

func (r *pgBookRepository) Update(ctx context.Context, book *model.Book) error {
	query := `UPDATE books SET
	            title = $1, author = $2, slug = $3, isbn = $4, description = $5,
	            cover_url = $6, updated_at = CURRENT_TIMESTAMP
	          WHERE id = $7`
	result, err := r.db.ExecContext(ctx, query, book.Title, book.Author, book.Slug, book.ISBN, book.Description, book.CoverURL, book.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return conflictError(pgErr)
		}
		return fmt.Errorf("pgBookRepository.Update: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgBookRepository) FindByID(ctx context.Context, id string) (*model.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE id = $1`
	book, err := scanBook(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgBookRepository.FindByID: %w", err)
	}
	return book, nil
}

func (r *pgBookRepository) FindBySlug(ctx context.Context, slug string) (*model.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE slug = $1`
	book, err := scanBook(r.db.QueryRowContext(ctx, query, slug))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgBookRepository.FindBySlug: %w", err)
	}
	return book, nil
}

func (r *pgBookRepository) FindByISBN(ctx context.Context, isbn string) (*model.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE isbn = $1`
	book, err := scanBook(r.db.QueryRowContext(ctx, query, isbn))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgBookRepository.FindByISBN: %w", err)
	}
	return book, nil
}

// List returns books in insertion order, paged by limit/offset.
func (r *pgBookRepository) List(ctx context.Context, limit, offset int) ([]model.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books ORDER BY created_at ASC LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("pgBookRepository.List query: %w", err)
	}
	defer rows.Close()

	books := []model.Book{}
	for rows.Next() {
		var b model.Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.Slug, &b.ISBN, &b.Description, &b.CoverURL, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("pgBookRepository.List scan: %w", err)
		}
		books = append(books, b)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgBookRepository.List rows.Err: %w", err)
	}
	return books, nil
}

// Delete removes a book row, inside the caller's transaction when one is
// supplied so dependent shelf rows can be removed atomically.
func (r *pgBookRepository) Delete(ctx context.Context, tx *sql.Tx, id string) error {
	query := `DELETE FROM books WHERE id = $1`

	var result sql.Result
	var err error
	if tx != nil {
		result, err = tx.ExecContext(ctx, query, id)
	} else {
		result, err = r.db.ExecContext(ctx, query, id)
	}
	if err != nil {
		return fmt.Errorf("pgBookRepository.Delete: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return common.ErrNotFound
	}
	return nil
}
