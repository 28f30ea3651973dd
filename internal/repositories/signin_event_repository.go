package repositories

import (
	"database/sql"
	"fmt"

	"storegate/internal/models"
)

// SignInEventRecorder is the durable login audit trail.
type SignInEventRecorder interface {
	Create(ev *models.SignInEvent) error
	ListRecent(limit int) ([]*models.SignInEvent, error)
}

type signInEventRepository struct {
	DB *sql.DB
}

func NewSignInEventRepository(db *sql.DB) SignInEventRecorder {
	return &signInEventRepository{DB: db}
}

func (r *signInEventRepository) Create(ev *models.SignInEvent) error {
	const q = `
		INSERT INTO signin_events (email, phase, outcome, at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	if err := r.DB.QueryRow(q, ev.Email, ev.Phase, ev.Outcome, ev.At).Scan(&ev.ID); err != nil {
		return fmt.Errorf("create signin event: %w", err)
	}
	return nil
}

func (r *signInEventRepository) ListRecent(limit int) ([]*models.SignInEvent, error) {
	const q = `
		SELECT id, email, phase, outcome, at
		FROM signin_events
		ORDER BY at DESC
		LIMIT $1
	`
	rows, err := r.DB.Query(q, limit)
	if err != nil {
		return nil, fmt.Errorf("list signin events: %w", err)
	}
	defer rows.Close()

	var res []*models.SignInEvent
	for rows.Next() {
		ev := &models.SignInEvent{}
		if err := rows.Scan(&ev.ID, &ev.Email, &ev.Phase, &ev.Outcome, &ev.At); err != nil {
			return nil, fmt.Errorf("scan signin event: %w", err)
		}
		res = append(res, ev)
	}
	return res, rows.Err()
}
