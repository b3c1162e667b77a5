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

type ShelfRepository interface {
	Create(ctx context.Context, item *model.ShelfItem) error
	FindByID(ctx context.Context, id string) (*model.ShelfItem, error)
	FindByUserAndBook(ctx context.Context, userID, bookID string) (*model.ShelfItem, error)
	ListByUser(ctx context.Context, userID string) ([]model.ShelfItem, error)
	Update(ctx context.Context, item *model.ShelfItem) error
	Delete(ctx context.Context, id string) error
	DeleteByUserID(ctx context.Context, tx *sql.Tx, userID string) error
	DeleteByBookID(ctx context.Context, tx *sql.Tx, bookID string) error
}

type pgShelfRepository struct {
	db *sql.DB
}

func NewPgShelfRepository(db *sql.DB) ShelfRepository {
	return &pgShelfRepository{db: db}
}

func (r *pgShelfRepository) Create(ctx context.Context, item *model.ShelfItem) error {
	query := `INSERT INTO shelf_items (id, user_id, book_id, status, rating, review)
	          VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.ExecContext(ctx, query, item.ID, item.UserID, item.BookID, item.Status, item.Rating, item.Review)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // One row per (user, book)
			return fmt.Errorf("book already on shelf: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgShelfRepository.Create: %w", err)
	}
	return nil
}

// Reads join the referenced book so responses can embed it without a
// second round trip.
const shelfItemSelect = `
	SELECT si.id, si.user_id, si.book_id, si.status, si.rating, si.review, si.created_at, si.updated_at,
	       b.id, b.title, b.author, b.slug, b.isbn, b.description, b.cover_url, b.created_at, b.updated_at
	FROM shelf_items si
	JOIN books b ON si.book_id = b.id`

func scanShelfItem(scanner interface {
	Scan(dest ...interface{}) error
}) (*model.ShelfItem, error) {
	item := &model.ShelfItem{Book: &model.Book{}}
	err := scanner.Scan(
		&item.ID, &item.UserID, &item.BookID, &item.Status, &item.Rating, &item.Review, &item.CreatedAt, &item.UpdatedAt,
		&item.Book.ID, &item.Book.Title, &item.Book.Author, &item.Book.Slug, &item.Book.ISBN,
		&item.Book.Description, &item.Book.CoverURL, &item.Book.CreatedAt, &item.Book.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (r *pgShelfRepository) FindByID(ctx context.Context, id string) (*model.ShelfItem, error) {
	query := shelfItemSelect + ` WHERE si.id = $1`
	item, err := scanShelfItem(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgShelfRepository.FindByID: %w", err)
	}
	return item, nil
}

func (r *pgShelfRepository) FindByUserAndBook(ctx context.Context, userID, bookID string) (*model.ShelfItem, error) {
	query := shelfItemSelect + ` WHERE si.user_id = $1 AND si.book_id = $2`
	item, err := scanShelfItem(r.db.QueryRowContext(ctx, query, userID, bookID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgShelfRepository.FindByUserAndBook: %w", err)
	}
	return item, nil
}

func (r *pgShelfRepository) ListByUser(ctx context.Context, userID string) ([]model.ShelfItem, error) {
	query := shelfItemSelect + ` WHERE si.user_id = $1 ORDER BY si.created_at ASC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("pgShelfRepository.ListByUser query: %w", err)
	}
	defer rows.Close()

	items := []model.ShelfItem{}
	for rows.Next() {
		item, err := scanShelfItem(rows)
		if err != nil {
			return nil, fmt.Errorf("pgShelfRepository.ListByUser scan: %w", err)
		}
		items = append(items, *item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgShelfRepository.ListByUser rows.Err: %w", err)
	}
	return items, nil
}

func (r *pgShelfRepository) Update(ctx context.Context, item *model.ShelfItem) error {
	query := `UPDATE shelf_items SET status = $1, rating = $2, review = $3, updated_at = CURRENT_TIMESTAMP
	          WHERE id = $4`
	result, err := r.db.ExecContext(ctx, query, item.Status, item.Rating, item.Review, item.ID)
	if err != nil {
		return fmt.Errorf("pgShelfRepository.Update: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgShelfRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM shelf_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgShelfRepository.Delete: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return common.ErrNotFound
	}
	return nil
}

// DeleteByUserID clears a user's shelf. Used when deleting the user, inside
// the same transaction.
func (r *pgShelfRepository) DeleteByUserID(ctx context.Context, tx *sql.Tx, userID string) error {
	query := `DELETE FROM shelf_items WHERE user_id = $1`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, userID)
	} else {
		_, err = r.db.ExecContext(ctx, query, userID)
	}
	if err != nil {
		return fmt.Errorf("pgShelfRepository.DeleteByUserID: %w", err)
	}
	return nil
}

// DeleteByBookID clears every shelf reference to a book. Used when deleting
// the book, inside the same transaction.
func (r *pgShelfRepository) DeleteByBookID(ctx context.Context, tx *sql.Tx, bookID string) error {
	query := `DELETE FROM shelf_items WHERE book_id = $1`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, bookID)
	} else {
		_, err = r.db.ExecContext(ctx, query, bookID)
	}
	if err != nil {
		return fmt.Errorf("pgShelfRepository.DeleteByBookID: %w", err)
	}
	return nil
}
