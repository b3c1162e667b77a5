package authz

import "bookshelf/internal/domain/model"

// Action names a guarded operation.
type Action string

const (
	ActionBookCreate Action = "book:create"
	ActionBookUpdate Action = "book:update"
	ActionBookImport Action = "book:import"
	ActionBookDelete Action = "book:delete"

	ActionShelfRead   Action = "shelf:read"
	ActionShelfWrite  Action = "shelf:write"
	ActionShelfDelete Action = "shelf:delete"

	ActionUserList    Action = "user:list"
	ActionUserRead    Action = "user:read"
	ActionUserWrite   Action = "user:write"
	ActionUserDelete  Action = "user:delete"
	ActionUserSetRole Action = "user:set-role"
)

// Can is the single authorization decision point. Services call it instead
// of comparing roles inline. ownerID identifies the resource owner for
// ownership-scoped actions; pass "" when the action has no owner. Admins
// pass every check; regular users pass catalog writes and actions on their
// own resources.
func Can(role, callerID, ownerID string, action Action) bool {
	if role == model.RoleAdmin {
		return true
	}
	if role != model.RoleUser {
		return false
	}

	switch action {
	case ActionBookCreate, ActionBookUpdate, ActionBookImport:
		return true
	case ActionShelfRead, ActionShelfWrite, ActionShelfDelete,
		ActionUserRead, ActionUserWrite:
		return callerID != "" && callerID == ownerID
	default:
		return false
	}
}
