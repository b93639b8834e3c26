package plans

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/studyplan/backend/internal/models"
	"github.com/studyplan/backend/internal/scheduler"
)

// planLocks hands out one mutex per plan ID so operations on the same
// plan serialize while different plans proceed in parallel.
type planLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newPlanLocks() *planLocks {
	return &planLocks{locks: make(map[string]*sync.Mutex)}
}

func (pl *planLocks) get(planID string) *sync.Mutex {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	m, ok := pl.locks[planID]
	if !ok {
		m = &sync.Mutex{}
		pl.locks[planID] = m
	}
	return m
}

type Service struct {
	repo  Repository
	locks *planLocks

	// now is injectable for tests.
	now func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo:  repo,
		locks: newPlanLocks(),
		now:   time.Now,
	}
}

// CreatePlan runs the allocator and buffer planner over the submitted
// catalog and persists the result. A provisional plan is returned with
// provisional == true when the request deadline expires mid-optimization.
func (s *Service) CreatePlan(ctx context.Context, req *models.CreatePlanRequest) (*models.Plan, bool, error) {
	examDate, err := time.Parse("2006-01-02", req.ExamDate)
	if err != nil {
		return nil, false, &scheduler.ValidationError{Field: "exam_date", Reason: "must be formatted YYYY-MM-DD"}
	}

	constraints := models.DefaultConstraints(req.DailyHours)
	if req.BufferFraction != nil {
		constraints.BufferFraction = *req.BufferFraction
	}
	if req.WeakBoostFactor != nil {
		constraints.WeakBoostFactor = *req.WeakBoostFactor
	}

	topics := make([]models.Topic, len(req.Topics))
	for i, t := range req.Topics {
		topics[i] = models.Topic{
			ID:             t.ID,
			Name:           t.Name,
			Complexity:     t.Complexity,
			EstimatedHours: t.EstimatedHours,
		}
	}

	now := s.now()
	plan, err := scheduler.Allocate(topics, examDate, now, constraints)
	if err != nil {
		return nil, false, err
	}
	scheduler.ApplyBuffer(plan)
	plan.OwnerID = req.OwnerID

	if err := s.repo.Save(context.WithoutCancel(ctx), plan); err != nil {
		return nil, false, fmt.Errorf("save plan: %w", err)
	}

	if ctx.Err() != nil {
		// The first-pass plan is valid even when the deadline cut the
		// optimization short; it is persisted, but the caller should
		// treat it as provisional.
		log.Printf("[plans] deadline expired during optimization of plan %s", plan.ID)
		return plan, true, &scheduler.OptimizationTimeout{Partial: plan}
	}
	return plan, false, nil
}

func (s *Service) GetPlan(ctx context.Context, planID string) (*models.Plan, error) {
	return s.repo.Load(ctx, planID)
}

func (s *Service) ListPlans(ctx context.Context, ownerID string) (*models.PlanListResponse, error) {
	summaries, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return &models.PlanListResponse{Plans: summaries, Total: len(summaries)}, nil
}

func (s *Service) DeletePlan(ctx context.Context, planID string) error {
	lock := s.locks.get(planID)
	lock.Lock()
	defer lock.Unlock()
	return s.repo.Delete(ctx, planID)
}

// CompleteSession applies a status event to one session, running missed
// detection first so the event lands on up-to-date state.
func (s *Service) CompleteSession(ctx context.Context, planID, sessionID string, req *models.CompleteSessionRequest) (*models.Plan, error) {
	lock := s.locks.get(planID)
	lock.Lock()
	defer lock.Unlock()

	plan, err := s.repo.Load(ctx, planID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	repaired, _, err := scheduler.Repair(plan, now)
	if err != nil {
		return nil, err
	}

	ev := scheduler.CompletionEvent{
		SessionID:           sessionID,
		Status:              models.SessionStatus(req.Status),
		CompletionFraction:  req.CompletionFraction,
		UnderstandingRating: req.UnderstandingRating,
	}
	updated, err := scheduler.ApplyCompletion(repaired, ev, now)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, updated); err != nil {
		return nil, fmt.Errorf("save plan: %w", err)
	}
	return updated, nil
}

// RepairPlan runs the incremental re-planning pass on demand. A no-op
// repair leaves the stored plan byte-for-byte unchanged.
func (s *Service) RepairPlan(ctx context.Context, planID string) (*models.Plan, bool, error) {
	lock := s.locks.get(planID)
	lock.Lock()
	defer lock.Unlock()

	plan, err := s.repo.Load(ctx, planID)
	if err != nil {
		return nil, false, err
	}

	repaired, changed, err := scheduler.Repair(plan, s.now())
	if err != nil {
		return nil, false, err
	}
	if !changed {
		return plan, false, nil
	}

	if err := s.repo.Save(ctx, repaired); err != nil {
		return nil, false, fmt.Errorf("save plan: %w", err)
	}
	return repaired, true, nil
}

// UpdateParameters changes the exam date and/or daily hours and triggers
// a full reallocation of the remaining content.
func (s *Service) UpdateParameters(ctx context.Context, planID string, req *models.UpdateParametersRequest) (*models.Plan, error) {
	lock := s.locks.get(planID)
	lock.Lock()
	defer lock.Unlock()

	plan, err := s.repo.Load(ctx, planID)
	if err != nil {
		return nil, err
	}

	examDate := plan.ExamDate
	if req.ExamDate != nil {
		examDate, err = time.Parse("2006-01-02", *req.ExamDate)
		if err != nil {
			return nil, &scheduler.ValidationError{Field: "exam_date", Reason: "must be formatted YYYY-MM-DD"}
		}
	}
	dailyHours := plan.Constraints.DailyHours
	if req.DailyHours != nil {
		dailyHours = *req.DailyHours
	}

	updated, err := scheduler.Reallocate(plan, examDate, dailyHours, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, updated); err != nil {
		return nil, fmt.Errorf("save plan: %w", err)
	}
	return updated, nil
}

// GetProgress computes the progress report for a plan.
func (s *Service) GetProgress(ctx context.Context, planID string) (*models.ProgressReport, error) {
	plan, err := s.repo.Load(ctx, planID)
	if err != nil {
		return nil, err
	}
	rep := scheduler.Report(plan, s.now())
	return &rep, nil
}

// GetWeakTopics returns only the weak-topic portion of the progress view.
func (s *Service) GetWeakTopics(ctx context.Context, planID string) ([]models.WeakTopic, error) {
	rep, err := s.GetProgress(ctx, planID)
	if err != nil {
		return nil, err
	}
	return rep.WeakTopics, nil
}

const (
	sweepInterval    = 1 * time.Hour
	sweepConcurrency = 8
)

// StartMissedSessionWorker runs the hourly sweep that transitions
// overdue pending sessions to missed and redistributes their content.
// Plans are repaired in parallel; per-plan locks keep each repair
// serialized against API traffic.
func (s *Service) StartMissedSessionWorker(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()

		log.Println("[plans] missed session worker started")
		s.sweepMissedSessions(ctx)
		for {
			select {
			case <-ctx.Done():
				log.Println("[plans] missed session worker stopped")
				return
			case <-ticker.C:
				s.sweepMissedSessions(ctx)
			}
		}
	}()
}

func (s *Service) sweepMissedSessions(ctx context.Context) {
	cutoff := s.now().Add(-scheduler.MissedAfter)
	ids, err := s.repo.ListOverduePlanIDs(ctx, cutoff)
	if err != nil {
		log.Printf("[plans] sweep: listing overdue plans: %v", err)
		return
	}
	if len(ids) == 0 {
		return
	}

	p := pool.New().WithMaxGoroutines(sweepConcurrency)
	for _, id := range ids {
		id := id
		p.Go(func() {
			if _, _, err := s.RepairPlan(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
				log.Printf("[plans] sweep: repairing plan %s: %v", id, err)
			}
		})
	}
	p.Wait()
	log.Printf("[plans] sweep: checked %d plans with overdue sessions", len(ids))
}
