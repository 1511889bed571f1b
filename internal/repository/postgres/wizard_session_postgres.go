package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"clinicdesk/internal/model"
	"clinicdesk/internal/repository"
)

// WizardSessionPostgres is the PostgreSQL implementation of
// repository.WizardSessionRepository, on database/sql with parameterized
// queries.
type WizardSessionPostgres struct {
	db *sql.DB
}

func NewWizardSessionPostgres(db *sql.DB) *WizardSessionPostgres {
	return &WizardSessionPostgres{db: db}
}

var _ repository.WizardSessionRepository = (*WizardSessionPostgres)(nil)

const sessionColumns = `id, state, snapshot, created_at, updated_at`

func scanSession(row interface{ Scan(...any) error }) (*model.WizardSession, error) {
	var s model.WizardSession
	var snap []byte
	if err := row.Scan(&s.ID, &s.State, &snap, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.Snapshot = snap
	return &s, nil
}

func (r *WizardSessionPostgres) Create(ctx context.Context, s *model.WizardSession) (*model.WizardSession, error) {
	const q = `
		INSERT INTO wizard_sessions (id, state, snapshot, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + sessionColumns
	return scanSession(r.db.QueryRowContext(ctx, q,
		s.ID,
		s.State,
		[]byte(s.Snapshot),
		s.CreatedAt,
		s.UpdatedAt,
	))
}

func (r *WizardSessionPostgres) Get(ctx context.Context, id string) (*model.WizardSession, error) {
	const q = `SELECT ` + sessionColumns + ` FROM wizard_sessions WHERE id = $1`
	s, err := scanSession(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return s, err
}

func (r *WizardSessionPostgres) Save(ctx context.Context, s *model.WizardSession) error {
	const q = `
		UPDATE wizard_sessions
		SET state = $2, snapshot = $3, updated_at = $4
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, q, s.ID, s.State, []byte(s.Snapshot), s.UpdatedAt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *WizardSessionPostgres) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.WizardSession], error) {
	const qCount = `SELECT COUNT(*) FROM wizard_sessions`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount).Scan(&total); err != nil {
		return nil, err
	}

	const qList = `
		SELECT ` + sessionColumns + `
		FROM wizard_sessions
		ORDER BY updated_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, qList, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.WizardSession, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &repository.PageResult[model.WizardSession]{Items: items, Total: total}, nil
}

func (r *WizardSessionPostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM wizard_sessions WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}

func (r *WizardSessionPostgres) DeleteExpired(ctx context.Context, before time.Time) ([]string, error) {
	const q = `DELETE FROM wizard_sessions WHERE updated_at < $1 RETURNING id`
	rows, err := r.db.QueryContext(ctx, q, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
