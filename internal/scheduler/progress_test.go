package scheduler

import (
	"math"
	"testing"

	"github.com/studyplan/backend/internal/models"
)

func TestReportCounts(t *testing.T) {
	rate := func(n int) *int { return &n }
	frac := func(f float64) *float64 { return &f }
	p := &models.Plan{
		ExamDate: DateOnly(testNow.AddDate(0, 0, 9)),
		Topics: []models.Topic{
			{ID: "alg", Name: "Algebra", Complexity: 3, EstimatedHours: 4},
			{ID: "geo", Name: "Geometry", Complexity: 2, EstimatedHours: 4},
		},
		Sessions: []models.Session{
			{ID: "s1", TopicID: "alg", Status: models.SessionCompleted, UnderstandingRating: rate(4)},
			{ID: "s2", TopicID: "alg", Status: models.SessionCompleted, UnderstandingRating: rate(2)},
			{ID: "s3", TopicID: "geo", Status: models.SessionMissed},
			{ID: "s4", TopicID: "geo", Status: models.SessionPartial, CompletionFraction: frac(0.5)},
			{ID: "s5", TopicID: "geo", Status: models.SessionPending},
		},
	}

	rep := Report(p, testNow)

	if rep.TotalSessions != 5 || rep.CompletedSessions != 2 || rep.MissedSessions != 1 ||
		rep.PartialSessions != 1 || rep.PendingSessions != 1 {
		t.Errorf("counts = %d total / %d completed / %d missed / %d partial / %d pending",
			rep.TotalSessions, rep.CompletedSessions, rep.MissedSessions,
			rep.PartialSessions, rep.PendingSessions)
	}
	if math.Abs(rep.CompletionPercentage-40) > 1e-9 {
		t.Errorf("CompletionPercentage = %v, want 40", rep.CompletionPercentage)
	}
	// 2 completed out of 2 completed + 1 missed.
	if math.Abs(rep.AdherenceScore-100.0*2/3) > 1e-9 {
		t.Errorf("AdherenceScore = %v, want %v", rep.AdherenceScore, 100.0*2/3)
	}

	// alg has a rating below threshold, so it is weak with average 3.
	if len(rep.WeakTopics) != 1 {
		t.Fatalf("expected 1 weak topic, got %d", len(rep.WeakTopics))
	}
	wt := rep.WeakTopics[0]
	if wt.TopicID != "alg" {
		t.Errorf("weak topic = %s, want alg", wt.TopicID)
	}
	if wt.AverageRating != 3 {
		t.Errorf("weak topic average = %v, want 3", wt.AverageRating)
	}
	if !wt.Resolved {
		t.Error("average back at threshold should mark the topic resolved")
	}

	// No unresolved weak topics, so readiness equals completion.
	if math.Abs(rep.ReadinessIndicator-40) > 1e-9 {
		t.Errorf("ReadinessIndicator = %v, want 40", rep.ReadinessIndicator)
	}
}

func TestReportEmptyPlanAdherence(t *testing.T) {
	p := &models.Plan{
		ExamDate: DateOnly(testNow.AddDate(0, 0, 9)),
		Sessions: []models.Session{
			{ID: "s1", TopicID: "alg", Status: models.SessionPending},
		},
	}

	rep := Report(p, testNow)
	if rep.AdherenceScore != 100 {
		t.Errorf("AdherenceScore with no terminal sessions = %v, want 100", rep.AdherenceScore)
	}
	if rep.CompletionPercentage != 0 {
		t.Errorf("CompletionPercentage = %v, want 0", rep.CompletionPercentage)
	}
}

func TestReportUnresolvedWeakTopicLowersReadiness(t *testing.T) {
	rate := func(n int) *int { return &n }
	p := &models.Plan{
		ExamDate: DateOnly(testNow.AddDate(0, 0, 9)),
		Topics: []models.Topic{
			{ID: "alg", Name: "Algebra", Complexity: 3, EstimatedHours: 4},
		},
		Sessions: []models.Session{
			{ID: "s1", TopicID: "alg", Status: models.SessionCompleted, UnderstandingRating: rate(2)},
			{ID: "s2", TopicID: "alg", Status: models.SessionCompleted, UnderstandingRating: rate(4)},
			{ID: "s3", TopicID: "alg", Status: models.SessionPending},
			{ID: "s4", TopicID: "alg", Status: models.SessionPending},
		},
	}

	rep := Report(p, testNow)
	// Average 3 resolves the topic; drop it to 2 with another low rating.
	if len(rep.WeakTopics) != 1 || !rep.WeakTopics[0].Resolved {
		t.Fatalf("expected one resolved weak topic, got %+v", rep.WeakTopics)
	}

	low := 1
	p.Sessions[3].Status = models.SessionCompleted
	p.Sessions[3].UnderstandingRating = &low

	rep = Report(p, testNow)
	if len(rep.WeakTopics) != 1 || rep.WeakTopics[0].Resolved {
		t.Fatalf("expected one unresolved weak topic, got %+v", rep.WeakTopics)
	}
	// 3 of 4 completed, one unresolved weak topic halves readiness.
	if math.Abs(rep.ReadinessIndicator-75.0/2) > 1e-9 {
		t.Errorf("ReadinessIndicator = %v, want %v", rep.ReadinessIndicator, 75.0/2)
	}
}
