package scheduler

import (
	"fmt"
	"sort"
	"time"

	"github.com/studyplan/backend/internal/models"
)

// MissedAfter is how far past its date a pending session may be before it
// transitions to missed automatically.
const MissedAfter = 24 * time.Hour

// CompletionEvent is a status report from the progress/UI layer for one
// session.
type CompletionEvent struct {
	SessionID           string
	Status              models.SessionStatus
	CompletionFraction  *float64
	UnderstandingRating *int
}

// Repair runs the incremental re-planning pass: overdue pending sessions
// transition to missed and their content is redistributed, and topics
// flagged weak but not yet boosted receive their extra sessions. The
// input plan is never mutated; when nothing needs repair the same plan is
// returned with changed == false.
func Repair(p *models.Plan, now time.Time) (*models.Plan, bool, error) {
	out := p.Clone()
	changed := false

	missed := markMissed(out, now)
	if len(missed) > 0 {
		if err := redistribute(out, missed, now); err != nil {
			return nil, false, err
		}
		changed = true
	}

	boosted, err := applyWeakBoosts(out, now)
	if err != nil {
		return nil, false, err
	}
	if boosted {
		changed = true
	}

	if !changed {
		return p, false, nil
	}
	out.UpdatedAt = now
	return out, true, nil
}

// ApplyCompletion applies one session status event and performs whatever
// redistribution it implies: missed content fully re-injected, partial
// content re-injected as (1-f) x duration, and a low understanding rating
// flags the topic weak and triggers its one-time boost. The original
// session keeps its terminal status as a historical record.
func ApplyCompletion(p *models.Plan, ev CompletionEvent, now time.Time) (*models.Plan, error) {
	out := p.Clone()

	s := out.Session(ev.SessionID)
	if s == nil {
		return nil, &ValidationError{Field: "session_id", Reason: fmt.Sprintf("unknown session %q", ev.SessionID)}
	}
	if s.Status != models.SessionPending {
		return nil, &ValidationError{Field: "status", Reason: fmt.Sprintf("session is already %s", s.Status)}
	}

	switch ev.Status {
	case models.SessionCompleted:
		s.Status = models.SessionCompleted
		if ev.UnderstandingRating != nil {
			s.UnderstandingRating = ev.UnderstandingRating
			if *ev.UnderstandingRating < WeakRatingThreshold {
				out.Topic(s.TopicID).Weak = true
			}
		}

	case models.SessionPartial:
		if ev.CompletionFraction == nil {
			return nil, &ValidationError{Field: "completion_fraction", Reason: "required for partial sessions"}
		}
		f := *ev.CompletionFraction
		if f < 0 || f > 1 {
			return nil, &ValidationError{Field: "completion_fraction", Reason: "must be between 0 and 1"}
		}
		s.Status = models.SessionPartial
		s.CompletionFraction = &f
		if ev.UnderstandingRating != nil {
			s.UnderstandingRating = ev.UnderstandingRating
		}
		if rest := (1 - f) * s.DurationHours; rest > Epsilon {
			if err := redistribute(out, []demand{{topicID: s.TopicID, hours: rest}}, now); err != nil {
				return nil, err
			}
		}

	case models.SessionMissed:
		s.Status = models.SessionMissed
		if err := redistribute(out, []demand{{topicID: s.TopicID, hours: s.DurationHours}}, now); err != nil {
			return nil, err
		}

	default:
		return nil, &ValidationError{Field: "status", Reason: fmt.Sprintf("cannot transition a session to %q", ev.Status)}
	}

	if _, err := applyWeakBoosts(out, now); err != nil {
		return nil, err
	}

	out.UpdatedAt = now
	return out, nil
}

// Reallocate handles a parameter change (exam date or daily hours): all
// pending sessions are discarded and the Allocator + Buffer Planner run
// again over the content not yet completed. Terminal sessions are kept
// for reporting.
func Reallocate(p *models.Plan, examDate time.Time, dailyHours float64, now time.Time) (*models.Plan, error) {
	out := p.Clone()
	out.ExamDate = DateOnly(examDate)
	out.Constraints.DailyHours = dailyHours

	var history []models.Session
	for _, s := range out.Sessions {
		if s.Status != models.SessionPending {
			history = append(history, s)
		}
	}

	remaining := remainingTopics(out)
	if len(remaining) == 0 {
		// Everything already studied; only the history survives.
		out.Sessions = history
		out.RevisionWindowStart = out.ExamDate
		out.UpdatedAt = now
		return out, nil
	}

	fresh, err := Allocate(remaining, out.ExamDate, now, out.Constraints)
	if err != nil {
		return nil, err
	}
	ApplyBuffer(fresh)

	for i := range fresh.Sessions {
		fresh.Sessions[i].PlanID = out.ID
	}
	out.Sessions = append(history, fresh.Sessions...)
	out.RevisionWindowStart = fresh.RevisionWindowStart
	sort.SliceStable(out.Sessions, func(a, b int) bool {
		return out.Sessions[a].Date.Before(out.Sessions[b].Date)
	})
	out.UpdatedAt = now
	return out, nil
}

// markMissed flips overdue pending sessions to missed and returns their
// content, aggregated per topic in session order, for redistribution.
func markMissed(p *models.Plan, now time.Time) []demand {
	hours := make(map[string]float64)
	var order []string
	for i := range p.Sessions {
		s := &p.Sessions[i]
		if s.Status != models.SessionPending {
			continue
		}
		if !s.Date.Add(MissedAfter).Before(now) {
			continue
		}
		s.Status = models.SessionMissed
		if _, seen := hours[s.TopicID]; !seen {
			order = append(order, s.TopicID)
		}
		hours[s.TopicID] += s.DurationHours
	}

	demands := make([]demand, 0, len(order))
	for _, id := range order {
		demands = append(demands, demand{topicID: id, hours: hours[id]})
	}
	return demands
}

// redistribute injects the given content into the remaining future days
// using the same greedy round-robin fill as the Allocator, without
// exceeding the daily limit on any day. Completed sessions are never
// removed or shortened.
func redistribute(p *models.Plan, demands []demand, now time.Time) error {
	days := StudyDays(now, p.ExamDate)
	caps := make([]dayCapacity, len(days))
	for i, d := range days {
		caps[i] = dayCapacity{date: d, free: p.Constraints.DailyHours - p.HoursOn(d)}
	}

	sessions, leftover := newFiller(p.ID, caps, p.Constraints.MinSessionHours, p.RevisionWindowStart, true).place(demands)
	if leftover > Epsilon {
		return &ScheduleOverflowError{ShortfallHours: leftover}
	}
	p.Sessions = append(p.Sessions, sessions...)
	sort.SliceStable(p.Sessions, func(a, b int) bool {
		return p.Sessions[a].Date.Before(p.Sessions[b].Date)
	})
	return nil
}

// applyWeakBoosts injects the one-time extra sessions for topics flagged
// weak, highest priority score first so the most urgent topic lands
// earliest in the remaining calendar.
func applyWeakBoosts(p *models.Plan, now time.Time) (bool, error) {
	var pending []string
	for i := range p.Topics {
		if p.Topics[i].Weak && !p.Topics[i].BoostApplied {
			pending = append(pending, p.Topics[i].ID)
		}
	}
	if len(pending) == 0 {
		return false, nil
	}

	daysLeft := DaysUntil(now, p.ExamDate)
	for _, rt := range rankWeakTopics(p, pending, daysLeft) {
		hours := p.Constraints.WeakBoostFactor * rt.topic.EstimatedHours
		if hours > Epsilon {
			if err := redistribute(p, []demand{{topicID: rt.topic.ID, hours: hours}}, now); err != nil {
				return false, err
			}
		}
		rt.topic.BoostApplied = true
	}
	return true, nil
}

// remainingTopics computes per-topic content not yet completed: estimated
// hours minus full credit for completed sessions and fractional credit
// for partial ones. Topics with nothing left are excluded; their
// retained history keeps the coverage invariant satisfied.
func remainingTopics(p *models.Plan) []models.Topic {
	credit := make(map[string]float64)
	for i := range p.Sessions {
		s := &p.Sessions[i]
		switch s.Status {
		case models.SessionCompleted:
			credit[s.TopicID] += s.DurationHours
		case models.SessionPartial:
			if s.CompletionFraction != nil {
				credit[s.TopicID] += *s.CompletionFraction * s.DurationHours
			}
		}
	}

	var remaining []models.Topic
	for _, t := range p.Topics {
		left := t.EstimatedHours - credit[t.ID]
		if left <= Epsilon {
			continue
		}
		t.EstimatedHours = left
		remaining = append(remaining, t)
	}
	return remaining
}
