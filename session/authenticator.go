// Package session owns the portal session: the cookies and CSRF token bound
// to the browser login, and the single-use submission token that the server
// rotates on every accepted submission.
package session

import (
	"context"

	"matchain-gc/models"
)

// Authenticator obtains session material from the portal. Implementations may
// block on operator input (OTP, connectivity prompts) and retry transient
// network errors themselves; callers treat any error as a failed attempt.
type Authenticator interface {
	ObtainInitialSession(ctx context.Context) (*models.SessionMaterial, error)
	RefreshSession(ctx context.Context, existing []models.Cookie) (*models.SessionMaterial, error)
}
