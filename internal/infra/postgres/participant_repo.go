package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"clicker-quiz-service/internal/domain"
)

// ParticipantRepo persists participants.
type ParticipantRepo struct {
	db *bun.DB
}

func NewParticipantRepo(db *bun.DB) *ParticipantRepo {
	return &ParticipantRepo{db: db}
}

// Create inserts a participant. On a clicker-id collision (two sessions
// registering the same clicker concurrently) the existing row wins and is
// returned into the model.
func (r *ParticipantRepo) Create(ctx context.Context, p *domain.Participant) error {
	_, err := r.db.NewInsert().Model(p).
		On("CONFLICT (clicker_id) DO UPDATE").
		Set("clicker_id = EXCLUDED.clicker_id").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return wrap("insert participant", err)
	}
	return nil
}

func (r *ParticipantRepo) ByID(ctx context.Context, id int64) (*domain.Participant, error) {
	p := new(domain.Participant)
	err := r.db.NewSelect().Model(p).Where("p.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrParticipantNotFound
	}
	if err != nil {
		return nil, wrap("select participant", err)
	}
	return p, nil
}

// ByClickerID returns (nil, nil) when no participant exists for the clicker,
// so lazy registration can distinguish a miss from a failure.
func (r *ParticipantRepo) ByClickerID(ctx context.Context, clickerID string) (*domain.Participant, error) {
	p := new(domain.Participant)
	err := r.db.NewSelect().Model(p).Where("clicker_id = ?", clickerID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("select participant", err)
	}
	return p, nil
}

// WithAnswers loads a participant and their full answer history.
func (r *ParticipantRepo) WithAnswers(ctx context.Context, clickerID string) (*domain.Participant, error) {
	p := new(domain.Participant)
	err := r.db.NewSelect().Model(p).
		Relation("Answers", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("created_at ASC")
		}).
		Where("clicker_id = ?", clickerID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrParticipantNotFound
	}
	if err != nil {
		return nil, wrap("select participant answers", err)
	}
	return p, nil
}

func (r *ParticipantRepo) All(ctx context.Context) ([]*domain.Participant, error) {
	var participants []*domain.Participant
	err := r.db.NewSelect().Model(&participants).Order("created_at DESC").Scan(ctx)
	if err != nil {
		return nil, wrap("select participants", err)
	}
	return participants, nil
}

func (r *ParticipantRepo) Update(ctx context.Context, p *domain.Participant) error {
	res, err := r.db.NewUpdate().Model(p).WherePK().Exec(ctx)
	if err != nil {
		return wrap("update participant", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrParticipantNotFound
	}
	return nil
}

func (r *ParticipantRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.NewDelete().Model((*domain.Participant)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return wrap("delete participant", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrParticipantNotFound
	}
	return nil
}
