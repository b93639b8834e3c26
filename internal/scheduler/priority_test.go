package scheduler

import (
	"math"
	"testing"

	"github.com/studyplan/backend/internal/models"
)

func TestPriorityScore(t *testing.T) {
	tests := []struct {
		name          string
		averageRating float64
		importance    int
		daysUntilExam int
		want          float64
	}{
		{"urgent important topic", 2, 5, 5, 4.0},
		{"distant less important topic", 2, 2, 10, 0.8},
		{"well understood topic", 5, 3, 10, 0.3},
		{"exam today clamps to one day", 2, 3, 0, 12.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PriorityScore(tt.averageRating, tt.importance, tt.daysUntilExam)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("PriorityScore(%v, %d, %d) = %v, want %v",
					tt.averageRating, tt.importance, tt.daysUntilExam, got, tt.want)
			}
		})
	}
}

func TestRankWeakTopicsOrder(t *testing.T) {
	rate := func(n int) *int { return &n }
	p := &models.Plan{
		ExamDate: DateOnly(testNow.AddDate(0, 0, 5)),
		Topics: []models.Topic{
			{ID: "alg", Name: "Algebra", Complexity: 5, EstimatedHours: 4},
			{ID: "geo", Name: "Geometry", Complexity: 2, EstimatedHours: 4},
			{ID: "trig", Name: "Trigonometry", Complexity: 2, EstimatedHours: 4},
		},
		Sessions: []models.Session{
			{ID: "s1", TopicID: "alg", Status: models.SessionCompleted, UnderstandingRating: rate(2)},
			{ID: "s2", TopicID: "geo", Status: models.SessionCompleted, UnderstandingRating: rate(2)},
			{ID: "s3", TopicID: "trig", Status: models.SessionCompleted, UnderstandingRating: rate(2)},
		},
	}

	ranked := rankWeakTopics(p, []string{"trig", "geo", "alg"}, 5)
	if len(ranked) != 3 {
		t.Fatalf("expected 3 ranked topics, got %d", len(ranked))
	}

	// Highest complexity wins at equal rating; the geo/trig tie breaks by ID.
	if ranked[0].topic.ID != "alg" {
		t.Errorf("first topic = %s, want alg", ranked[0].topic.ID)
	}
	if ranked[1].topic.ID != "geo" || ranked[2].topic.ID != "trig" {
		t.Errorf("tie order = %s, %s; want geo, trig", ranked[1].topic.ID, ranked[2].topic.ID)
	}
}

func TestAverageRating(t *testing.T) {
	rate := func(n int) *int { return &n }
	p := &models.Plan{
		Sessions: []models.Session{
			{TopicID: "alg", Status: models.SessionCompleted, UnderstandingRating: rate(2)},
			{TopicID: "alg", Status: models.SessionCompleted, UnderstandingRating: rate(4)},
			{TopicID: "alg", Status: models.SessionPending},
			{TopicID: "geo", Status: models.SessionCompleted},
		},
	}

	avg, ok := AverageRating(p, "alg")
	if !ok || avg != 3 {
		t.Errorf("AverageRating(alg) = %v, %v; want 3, true", avg, ok)
	}
	if _, ok := AverageRating(p, "geo"); ok {
		t.Error("unrated topic should report no average")
	}
}
