package handler

import (
	"net/http"

	"bookshelf/internal/api/middleware"
)

// callerIdentity pulls the authenticated user's id and role out of the
// request context. ok is false on routes that skipped the Authenticator.
func callerIdentity(r *http.Request) (userID, role string, ok bool) {
	userID, ok = middleware.GetUserIDFromContext(r.Context())
	if !ok {
		return "", "", false
	}
	role, ok = middleware.GetUserRoleFromContext(r.Context())
	if !ok {
		return "", "", false
	}
	return userID, role, true
}
