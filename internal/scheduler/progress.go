package scheduler

import (
	"time"

	"github.com/studyplan/backend/internal/models"
)

// Report derives the progress view from session state. It is a pure read
// over the plan value and is recomputed on every call, so it can never go
// stale against the sessions it summarizes.
func Report(p *models.Plan, now time.Time) models.ProgressReport {
	var rep models.ProgressReport
	rep.TotalSessions = len(p.Sessions)
	for i := range p.Sessions {
		switch p.Sessions[i].Status {
		case models.SessionCompleted:
			rep.CompletedSessions++
		case models.SessionMissed:
			rep.MissedSessions++
		case models.SessionPartial:
			rep.PartialSessions++
		default:
			rep.PendingSessions++
		}
	}

	if rep.TotalSessions > 0 {
		rep.CompletionPercentage = float64(rep.CompletedSessions) / float64(rep.TotalSessions) * 100
	}

	// Adherence is undefined before anything completes or slips; report
	// a perfect score rather than dividing by zero.
	if denom := rep.CompletedSessions + rep.MissedSessions; denom > 0 {
		rep.AdherenceScore = float64(rep.CompletedSessions) / float64(denom) * 100
	} else {
		rep.AdherenceScore = 100
	}

	rep.WeakTopics = weakTopics(p, now)
	unresolved := 0
	for i := range rep.WeakTopics {
		if !rep.WeakTopics[i].Resolved {
			unresolved++
		}
	}
	rep.ReadinessIndicator = rep.CompletionPercentage / float64(1+unresolved)

	return rep
}

// weakTopics lists topics with at least one understanding rating below
// the threshold, sorted by priority score descending. A weak topic
// counts as resolved once its average rating climbs back to the
// threshold.
func weakTopics(p *models.Plan, now time.Time) []models.WeakTopic {
	var ids []string
	for i := range p.Topics {
		if isWeak(p, &p.Topics[i]) {
			ids = append(ids, p.Topics[i].ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	daysLeft := DaysUntil(now, p.ExamDate)
	ranked := rankWeakTopics(p, ids, daysLeft)
	out := make([]models.WeakTopic, 0, len(ranked))
	for _, rt := range ranked {
		out = append(out, models.WeakTopic{
			TopicID:       rt.topic.ID,
			Name:          rt.topic.Name,
			AverageRating: rt.avg,
			PriorityScore: rt.score,
			Resolved:      rt.avg >= WeakRatingThreshold,
		})
	}
	return out
}

func isWeak(p *models.Plan, t *models.Topic) bool {
	if t.Weak {
		return true
	}
	for i := range p.Sessions {
		s := &p.Sessions[i]
		if s.TopicID == t.ID && s.UnderstandingRating != nil && *s.UnderstandingRating < WeakRatingThreshold {
			return true
		}
	}
	return false
}
