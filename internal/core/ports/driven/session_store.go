package driven

import (
	"context"

	"github.com/custodia-labs/saai/internal/core/domain"
)

// SessionStore persists one session record per profile.
// Reads and writes are whole-object: a Save either lands completely or not at all.
type SessionStore interface {
	// Save stores the record. Creates if new, replaces if it exists.
	Save(ctx context.Context, session domain.Session) error

	// Get retrieves the record for a profile.
	// Returns domain.ErrNotFound if the profile has no record.
	Get(ctx context.Context, profile string) (*domain.Session, error)

	// Delete removes the record for a profile.
	Delete(ctx context.Context, profile string) error

	// List returns every stored profile record.
	List(ctx context.Context) ([]domain.Session, error)
}
