package plans

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/studyplan/backend/internal/models"
)

// ErrNotFound is returned when a plan ID has no row.
var ErrNotFound = errors.New("plan not found")

// Repository is the persistence capability the service needs. The
// scheduling core itself never touches storage; plans are loaded, passed
// through the pure engine, and saved back.
type Repository interface {
	Load(ctx context.Context, planID string) (*models.Plan, error)
	Save(ctx context.Context, plan *models.Plan) error
	Delete(ctx context.Context, planID string) error
	ListByOwner(ctx context.Context, ownerID string) ([]models.PlanSummary, error)
	ListOverduePlanIDs(ctx context.Context, before time.Time) ([]string, error)
}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Load(ctx context.Context, planID string) (*models.Plan, error) {
	var p models.Plan
	err := s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, exam_date, daily_hours, min_session_hours,
		        buffer_fraction, weak_boost_factor, revision_window_start,
		        created_at, updated_at
		 FROM plans WHERE id = $1`,
		planID,
	).Scan(&p.ID, &p.OwnerID, &p.ExamDate, &p.Constraints.DailyHours,
		&p.Constraints.MinSessionHours, &p.Constraints.BufferFraction,
		&p.Constraints.WeakBoostFactor, &p.RevisionWindowStart,
		&p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load plan: %w", err)
	}
	p.ExamDate = p.ExamDate.UTC()
	p.RevisionWindowStart = p.RevisionWindowStart.UTC()

	topics, err := s.loadTopics(ctx, planID)
	if err != nil {
		return nil, err
	}
	p.Topics = topics

	sessions, err := s.loadSessions(ctx, planID)
	if err != nil {
		return nil, err
	}
	p.Sessions = sessions

	return &p, nil
}

func (s *Store) loadTopics(ctx context.Context, planID string) ([]models.Topic, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT topic_id, name, complexity, estimated_hours, weak, boost_applied
		 FROM plan_topics WHERE plan_id = $1 ORDER BY position`,
		planID,
	)
	if err != nil {
		return nil, fmt.Errorf("load topics: %w", err)
	}
	defer rows.Close()

	var topics []models.Topic
	for rows.Next() {
		var t models.Topic
		if err := rows.Scan(&t.ID, &t.Name, &t.Complexity, &t.EstimatedHours,
			&t.Weak, &t.BoostApplied); err != nil {
			return nil, fmt.Errorf("scan topic: %w", err)
		}
		topics = append(topics, t)
	}
	return topics, rows.Err()
}

func (s *Store) loadSessions(ctx context.Context, planID string) ([]models.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, plan_id, topic_id, session_date, duration_hours, status,
		        completion_fraction, understanding_rating, revision, injected
		 FROM sessions WHERE plan_id = $1 ORDER BY session_date, position`,
		planID,
	)
	if err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		var sess models.Session
		if err := rows.Scan(&sess.ID, &sess.PlanID, &sess.TopicID, &sess.Date,
			&sess.DurationHours, &sess.Status, &sess.CompletionFraction,
			&sess.UnderstandingRating, &sess.Revision, &sess.Injected); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sess.Date = sess.Date.UTC()
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// Save writes the whole plan atomically. The plan exclusively owns its
// sessions, so the simplest consistent write is replace-in-place inside
// one transaction; an invalid plan is never half-persisted.
func (s *Store) Save(ctx context.Context, p *models.Plan) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO plans (id, owner_id, exam_date, daily_hours, min_session_hours,
		                    buffer_fraction, weak_boost_factor, revision_window_start,
		                    created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO UPDATE SET
		     exam_date = $3, daily_hours = $4, min_session_hours = $5,
		     buffer_fraction = $6, weak_boost_factor = $7,
		     revision_window_start = $8, updated_at = $10`,
		p.ID, p.OwnerID, p.ExamDate, p.Constraints.DailyHours,
		p.Constraints.MinSessionHours, p.Constraints.BufferFraction,
		p.Constraints.WeakBoostFactor, p.RevisionWindowStart,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert plan: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM plan_topics WHERE plan_id = $1`, p.ID); err != nil {
		return fmt.Errorf("clear topics: %w", err)
	}
	for i, t := range p.Topics {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO plan_topics (plan_id, topic_id, name, complexity,
			                          estimated_hours, weak, boost_applied, position)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			p.ID, t.ID, t.Name, t.Complexity, t.EstimatedHours, t.Weak, t.BoostApplied, i,
		)
		if err != nil {
			return fmt.Errorf("insert topic: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE plan_id = $1`, p.ID); err != nil {
		return fmt.Errorf("clear sessions: %w", err)
	}
	for i, sess := range p.Sessions {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO sessions (id, plan_id, topic_id, session_date, duration_hours,
			                       status, completion_fraction, understanding_rating,
			                       revision, injected, position)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			sess.ID, p.ID, sess.TopicID, sess.Date, sess.DurationHours,
			sess.Status, sess.CompletionFraction, sess.UnderstandingRating,
			sess.Revision, sess.Injected, i,
		)
		if err != nil {
			return fmt.Errorf("insert session: %w", err)
		}
	}

	return tx.Commit()
}

func (s *Store) Delete(ctx context.Context, planID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM plans WHERE id = $1`, planID)
	if err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListByOwner(ctx context.Context, ownerID string) ([]models.PlanSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT p.id, p.owner_id, p.exam_date, p.daily_hours,
		        (SELECT COUNT(*) FROM plan_topics t WHERE t.plan_id = p.id),
		        (SELECT COUNT(*) FROM sessions s WHERE s.plan_id = p.id),
		        p.created_at, p.updated_at
		 FROM plans p WHERE p.owner_id = $1
		 ORDER BY p.created_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var summaries []models.PlanSummary
	for rows.Next() {
		var ps models.PlanSummary
		if err := rows.Scan(&ps.ID, &ps.OwnerID, &ps.ExamDate, &ps.DailyHours,
			&ps.TopicCount, &ps.SessionCount, &ps.CreatedAt, &ps.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan plan summary: %w", err)
		}
		summaries = append(summaries, ps)
	}
	return summaries, rows.Err()
}

// ListOverduePlanIDs finds plans holding pending sessions dated before
// the cutoff, for the missed-session sweep worker.
func (s *Store) ListOverduePlanIDs(ctx context.Context, before time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT plan_id FROM sessions
		 WHERE status = 'pending' AND session_date < $1`,
		before,
	)
	if err != nil {
		return nil, fmt.Errorf("list overdue plans: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan plan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
