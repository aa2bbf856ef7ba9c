package services

import (
	apperrors "github.com/yashrajoria/webook/common/errors"
)

// Event types published by the services.
const (
	EventBookCreated     = "book.created"
	EventBookUpdated     = "book.updated"
	EventBookDeleted     = "book.deleted"
	EventUserRegistered  = "user.registered"
	EventUserRoleChanged = "user.role_changed"
	EventUserDeleted     = "user.deleted"
	EventCartUpdated     = "cart.updated"
	EventCartItemRemoved = "cart.item_removed"
	EventCartCleared     = "cart.cleared"
)

func internalError(err error) *apperrors.Error {
	return apperrors.Wrap(apperrors.ErrInternalServer, err)
}
