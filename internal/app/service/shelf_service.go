package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"bookshelf/internal/common"
	"bookshelf/internal/common/authz"
	"bookshelf/internal/domain/model"
	"bookshelf/internal/domain/repository"
)

type ShelfService struct {
	shelfRepo repository.ShelfRepository
	bookRepo  repository.BookRepository
	log       *logrus.Logger
}

func NewShelfService(shelfRepo repository.ShelfRepository, bookRepo repository.BookRepository, log *logrus.Logger) *ShelfService {
	return &ShelfService{shelfRepo: shelfRepo, bookRepo: bookRepo, log: log}
}

type AddShelfItemRequest struct {
	BookID string              `json:"book_id" validate:"required"`
	Status model.ReadingStatus `json:"status,omitempty" validate:"omitempty,oneof=plan_to_read reading completed dropped"`
	Rating *int                `json:"rating,omitempty" validate:"omitempty,gte=1,lte=5"`
	Review *string             `json:"review,omitempty"`
}

// UpdateShelfItemRequest carries partial changes: nil fields are left
// untouched.
type UpdateShelfItemRequest struct {
	Status *model.ReadingStatus `json:"status,omitempty" validate:"omitempty,oneof=plan_to_read reading completed dropped"`
	Rating *int                 `json:"rating,omitempty" validate:"omitempty,gte=1,lte=5"`
	Review *string              `json:"review,omitempty"`
}

// AddItem puts a catalog book on the caller's shelf. The referenced book
// must exist and must not already be shelved by this user; both checks run
// before anything is written.
func (s *ShelfService) AddItem(ctx context.Context, userID string, req AddShelfItemRequest) (*model.ShelfItem, error) {
	if err := common.ValidateStruct(req); err != nil {
		return nil, err
	}

	book, err := s.bookRepo.FindByID(ctx, req.BookID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("book not found: %w", err)
		}
		return nil, fmt.Errorf("failed to load book: %w", err)
	}

	_, err = s.shelfRepo.FindByUserAndBook(ctx, userID, req.BookID)
	if err == nil {
		return nil, fmt.Errorf("book already on shelf: %w", common.ErrConflict)
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("failed to check shelf: %w", err)
	}

	item := &model.ShelfItem{
		ID:     uuid.NewString(),
		UserID: userID,
		BookID: req.BookID,
		Status: req.Status,
		Rating: req.Rating,
		Review: req.Review,
	}
	if item.Status == "" {
		item.Status = model.StatusPlanToRead // Default status
	}

	if err := s.shelfRepo.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to add book to shelf: %w", err)
	}

	s.log.WithFields(logrus.Fields{"user_id": userID, "book_id": req.BookID}).Info("Book added to shelf")
	item.Book = book
	return item, nil
}

// ListItems returns the caller's own shelf; there is no cross-user listing.
func (s *ShelfService) ListItems(ctx context.Context, userID string) ([]model.ShelfItem, error) {
	return s.shelfRepo.ListByUser(ctx, userID)
}

func (s *ShelfService) GetItem(ctx context.Context, callerID, callerRole, id string) (*model.ShelfItem, error) {
	item, err := s.shelfRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.Can(callerRole, callerID, item.UserID, authz.ActionShelfRead) {
		return nil, common.ErrForbidden
	}
	return item, nil
}

func (s *ShelfService) UpdateItem(ctx context.Context, callerID, callerRole, id string, req UpdateShelfItemRequest) (*model.ShelfItem, error) {
	if err := common.ValidateStruct(req); err != nil {
		return nil, err
	}

	item, err := s.shelfRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.Can(callerRole, callerID, item.UserID, authz.ActionShelfWrite) {
		return nil, common.ErrForbidden
	}

	if req.Status != nil {
		item.Status = *req.Status
	}
	if req.Rating != nil {
		item.Rating = req.Rating
	}
	if req.Review != nil {
		item.Review = req.Review
	}

	if err := s.shelfRepo.Update(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to update shelf item: %w", err)
	}
	return item, nil
}

func (s *ShelfService) RemoveItem(ctx context.Context, callerID, callerRole, id string) error {
	item, err := s.shelfRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !authz.Can(callerRole, callerID, item.UserID, authz.ActionShelfDelete) {
		return common.ErrForbidden
	}

	if err := s.shelfRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to remove shelf item: %w", err)
	}

	s.log.WithFields(logrus.Fields{"shelf_item_id": id, "user_id": item.UserID}).Info("Shelf item removed")
	return nil
}
