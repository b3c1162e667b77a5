package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"bookshelf/internal/common"
	"bookshelf/internal/common/authz"
	"bookshelf/internal/domain/model"
	"bookshelf/internal/domain/repository"
)

type UserService struct {
	userRepo  repository.UserRepository
	shelfRepo repository.ShelfRepository
	db        *sql.DB // For transactions
	log       *logrus.Logger
}

func NewUserService(userRepo repository.UserRepository, shelfRepo repository.ShelfRepository, db *sql.DB, log *logrus.Logger) *UserService {
	return &UserService{userRepo: userRepo, shelfRepo: shelfRepo, db: db, log: log}
}

type UpdateUserRequest struct {
	Username *string `json:"username,omitempty" validate:"omitempty,min=1,max=50"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
	Role     *string `json:"role,omitempty" validate:"omitempty,oneof=USER ADMIN"`
}

func (s *UserService) ListUsers(ctx context.Context, callerID, callerRole string) ([]model.User, error) {
	if !authz.Can(callerRole, callerID, "", authz.ActionUserList) {
		return nil, common.ErrForbidden
	}
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i].HashedPassword = ""
	}
	return users, nil
}

func (s *UserService) GetUser(ctx context.Context, callerID, callerRole, id string) (*model.User, error) {
	if !authz.Can(callerRole, callerID, id, authz.ActionUserRead) {
		return nil, common.ErrForbidden
	}
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	user.HashedPassword = ""
	return user, nil
}

// UpdateUser applies partial changes to an account. Username and email must
// stay unique across other accounts; changing the role is an explicit
// admin-only action, not silently ignored for everyone else.
func (s *UserService) UpdateUser(ctx context.Context, callerID, callerRole, id string, req UpdateUserRequest) (*model.User, error) {
	if !authz.Can(callerRole, callerID, id, authz.ActionUserWrite) {
		return nil, common.ErrForbidden
	}
	if req.Role != nil && !authz.Can(callerRole, callerID, id, authz.ActionUserSetRole) {
		return nil, fmt.Errorf("only administrators can change roles: %w", common.ErrForbidden)
	}
	if err := common.ValidateStruct(req); err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Username != nil && *req.Username != user.Username {
		if taken, err := s.isUsernameTaken(ctx, *req.Username, id); err != nil {
			return nil, err
		} else if taken {
			return nil, fmt.Errorf("username already taken: %w", common.ErrConflict)
		}
		user.Username = *req.Username
	}
	if req.Email != nil && *req.Email != user.Email {
		if taken, err := s.isEmailTaken(ctx, *req.Email, id); err != nil {
			return nil, err
		} else if taken {
			return nil, fmt.Errorf("email already taken: %w", common.ErrConflict)
		}
		user.Email = *req.Email
	}
	if req.Role != nil {
		user.Role = *req.Role
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	s.log.WithField("user_id", user.ID).Info("User updated")
	user.HashedPassword = ""
	return user, nil
}

// DeleteUser removes an account and its shelf in one transaction. Admins
// cannot delete their own account.
func (s *UserService) DeleteUser(ctx context.Context, callerID, callerRole, id string) error {
	if !authz.Can(callerRole, callerID, id, authz.ActionUserDelete) {
		return common.ErrForbidden
	}
	if callerID == id {
		return fmt.Errorf("cannot delete your own account: %w", common.ErrBadRequest)
	}

	if _, err := s.userRepo.FindByID(ctx, id); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return common.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.shelfRepo.DeleteByUserID(ctx, tx, id); err != nil {
		return common.Errorf("failed to remove user's shelf: %w", err)
	}
	if err := s.userRepo.Delete(ctx, tx, id); err != nil {
		return common.Errorf("failed to delete user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return common.Errorf("failed to commit transaction: %w", err)
	}

	s.log.WithField("user_id", id).Info("User deleted")
	return nil
}

func (s *UserService) isUsernameTaken(ctx context.Context, username, excludeID string) (bool, error) {
	existing, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check username: %w", err)
	}
	return existing.ID != excludeID, nil
}

func (s *UserService) isEmailTaken(ctx context.Context, email, excludeID string) (bool, error) {
	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return existing.ID != excludeID, nil
}
