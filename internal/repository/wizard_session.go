package repository

import (
	"context"
	"time"

	"clinicdesk/internal/model"
)

// WizardSessionRepository persists intake wizard sessions. It holds no
// wizard logic; snapshots are opaque JSON.
type WizardSessionRepository interface {
	// Create inserts a new session and returns the stored row.
	Create(ctx context.Context, s *model.WizardSession) (*model.WizardSession, error)

	// Get returns a session by ID or ErrNotFound.
	Get(ctx context.Context, id string) (*model.WizardSession, error)

	// Save overwrites state and snapshot and bumps updated_at. ErrNotFound
	// when the session is gone.
	Save(ctx context.Context, s *model.WizardSession) error

	// List returns a page of sessions, most recently updated first.
	List(ctx context.Context, pq PageQuery) (*PageResult[model.WizardSession], error)

	// Delete removes a session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error

	// DeleteExpired removes sessions not updated since before and returns
	// their IDs.
	DeleteExpired(ctx context.Context, before time.Time) ([]string, error)
}
