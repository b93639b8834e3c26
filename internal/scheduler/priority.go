package scheduler

import (
	"sort"

	"github.com/studyplan/backend/internal/models"
)

// WeakRatingThreshold is the understanding rating below which a completed
// session flags its topic as weak.
const WeakRatingThreshold = 3

// PriorityScore ranks weak topics for boost placement: lower understanding
// and higher importance push a topic forward, while a distant exam relaxes
// the urgency. Higher scores are placed earlier in the remaining calendar.
//
//	score = (6 - averageRating) * importance / daysUntilExam
func PriorityScore(averageRating float64, importance, daysUntilExam int) float64 {
	if daysUntilExam < 1 {
		daysUntilExam = 1
	}
	return (6 - averageRating) * float64(importance) / float64(daysUntilExam)
}

// AverageRating returns the mean understanding rating over a topic's
// rated sessions, and whether any rating exists.
func AverageRating(p *models.Plan, topicID string) (float64, bool) {
	var sum, n int
	for i := range p.Sessions {
		s := &p.Sessions[i]
		if s.TopicID == topicID && s.UnderstandingRating != nil {
			sum += *s.UnderstandingRating
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return float64(sum) / float64(n), true
}

// rankedTopic pairs a topic with its priority score for deterministic
// ordering during boost placement and progress reporting.
type rankedTopic struct {
	topic *models.Topic
	avg   float64
	score float64
}

// rankWeakTopics scores the given topics and sorts them highest first.
// Ties break by importance (complexity), then by topic ID, so placement
// is deterministic for identical scores.
func rankWeakTopics(p *models.Plan, topicIDs []string, daysUntilExam int) []rankedTopic {
	ranked := make([]rankedTopic, 0, len(topicIDs))
	for _, id := range topicIDs {
		t := p.Topic(id)
		if t == nil {
			continue
		}
		avg, ok := AverageRating(p, id)
		if !ok {
			avg = float64(WeakRatingThreshold) - 1
		}
		ranked = append(ranked, rankedTopic{
			topic: t,
			avg:   avg,
			score: PriorityScore(avg, t.Complexity, daysUntilExam),
		})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		if ranked[i].topic.Complexity != ranked[j].topic.Complexity {
			return ranked[i].topic.Complexity > ranked[j].topic.Complexity
		}
		return ranked[i].topic.ID < ranked[j].topic.ID
	})
	return ranked
}
