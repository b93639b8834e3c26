package scheduler

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/studyplan/backend/internal/models"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testTopics() []models.Topic {
	return []models.Topic{
		{ID: "sets", Name: "Set Theory", Complexity: 1, EstimatedHours: 1.5},
		{ID: "algebra", Name: "Linear Algebra", Complexity: 3, EstimatedHours: 5},
		{ID: "calculus", Name: "Calculus", Complexity: 5, EstimatedHours: 8},
	}
}

func topicHours(p *models.Plan, topicID string, contentOnly bool) float64 {
	var total float64
	for i := range p.Sessions {
		s := &p.Sessions[i]
		if s.TopicID != topicID {
			continue
		}
		if contentOnly && !s.Date.Before(p.RevisionWindowStart) {
			continue
		}
		total += s.DurationHours
	}
	return total
}

func TestAllocateProportionalShares(t *testing.T) {
	// 10 available days at 2h/day, buffer fraction 0.2: 2 buffer days and
	// 16h of content split 1:3:5.
	exam := testNow.AddDate(0, 0, 11)
	c := models.Constraints{DailyHours: 2, MinSessionHours: 0.5, BufferFraction: 0.2, WeakBoostFactor: 0.5}

	plan, err := Allocate(testTopics(), exam, testNow, c)
	if err != nil {
		t.Fatalf("Allocate() error: %v", err)
	}

	wants := map[string]float64{
		"sets":     1.0 / 9 * 16,
		"algebra":  3.0 / 9 * 16,
		"calculus": 5.0 / 9 * 16,
	}
	for id, want := range wants {
		got := topicHours(plan, id, true)
		if math.Abs(got-want) > 1e-6 {
			t.Errorf("content hours for %s = %.4f, want %.4f", id, got, want)
		}
	}

	if want := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC); !plan.RevisionWindowStart.Equal(want) {
		t.Errorf("RevisionWindowStart = %v, want %v", plan.RevisionWindowStart, want)
	}
}

func TestAllocateCoversEveryTopic(t *testing.T) {
	exam := testNow.AddDate(0, 0, 11)
	c := models.Constraints{DailyHours: 2, MinSessionHours: 0.5, BufferFraction: 0.2, WeakBoostFactor: 0.5}

	plan, err := Allocate(testTopics(), exam, testNow, c)
	if err != nil {
		t.Fatalf("Allocate() error: %v", err)
	}

	for _, topic := range plan.Topics {
		if topicHours(plan, topic.ID, false) <= 0 {
			t.Errorf("topic %s has no scheduled time", topic.ID)
		}
	}
}

func TestAllocateRespectsDailyLimit(t *testing.T) {
	exam := testNow.AddDate(0, 0, 11)
	c := models.Constraints{DailyHours: 2, MinSessionHours: 0.5, BufferFraction: 0.2, WeakBoostFactor: 0.5}

	plan, err := Allocate(testTopics(), exam, testNow, c)
	if err != nil {
		t.Fatalf("Allocate() error: %v", err)
	}

	perDay := make(map[time.Time]float64)
	for i := range plan.Sessions {
		perDay[plan.Sessions[i].Date] += plan.Sessions[i].DurationHours
	}
	for date, total := range perDay {
		if total > c.DailyHours+Epsilon {
			t.Errorf("day %s has %.4fh scheduled, limit is %.1fh", date.Format("2006-01-02"), total, c.DailyHours)
		}
		if !date.Before(plan.ExamDate) {
			t.Errorf("session scheduled on or after exam date %s", date.Format("2006-01-02"))
		}
	}
}

func TestAllocateComplexityMonotonic(t *testing.T) {
	exam := testNow.AddDate(0, 0, 11)
	c := models.Constraints{DailyHours: 2, MinSessionHours: 0.5, BufferFraction: 0.2, WeakBoostFactor: 0.5}

	plan, err := Allocate(testTopics(), exam, testNow, c)
	if err != nil {
		t.Fatalf("Allocate() error: %v", err)
	}

	low := topicHours(plan, "sets", false)
	mid := topicHours(plan, "algebra", false)
	high := topicHours(plan, "calculus", false)
	if low > mid+Epsilon || mid > high+Epsilon {
		t.Errorf("hours not monotonic in complexity: %.3f / %.3f / %.3f", low, mid, high)
	}
}

func TestAllocateInsufficientTime(t *testing.T) {
	// 100h of content with 2 study days at 2h/day.
	topics := []models.Topic{
		{ID: "everything", Name: "Everything", Complexity: 3, EstimatedHours: 100},
	}
	exam := testNow.AddDate(0, 0, 3)
	c := models.Constraints{DailyHours: 2, MinSessionHours: 0.5, BufferFraction: 0.2, WeakBoostFactor: 0.5}

	_, err := Allocate(topics, exam, testNow, c)
	var itErr *InsufficientTimeError
	if !errors.As(err, &itErr) {
		t.Fatalf("expected InsufficientTimeError, got %v", err)
	}
	if math.Abs(itErr.MinDailyHours-50) > 1e-6 {
		t.Errorf("MinDailyHours = %.2f, want 50", itErr.MinDailyHours)
	}
	// 100h at 2h/day needs 50 study days, so exam no earlier than day 51.
	if want := DateOnly(testNow).AddDate(0, 0, 51); !itErr.EarliestExamDate.Equal(want) {
		t.Errorf("EarliestExamDate = %v, want %v", itErr.EarliestExamDate, want)
	}
}

func TestAllocateValidation(t *testing.T) {
	c := models.Constraints{DailyHours: 2, MinSessionHours: 0.5, BufferFraction: 0.2, WeakBoostFactor: 0.5}
	exam := testNow.AddDate(0, 0, 11)

	tests := []struct {
		name   string
		topics []models.Topic
		exam   time.Time
		c      models.Constraints
	}{
		{"no topics", nil, exam, c},
		{"exam today", testTopics(), testNow, c},
		{"exam in the past", testTopics(), testNow.AddDate(0, 0, -1), c},
		{
			"complexity out of range",
			[]models.Topic{{ID: "x", Name: "X", Complexity: 6, EstimatedHours: 2}},
			exam, c,
		},
		{
			"duplicate topic ids",
			[]models.Topic{
				{ID: "x", Name: "X", Complexity: 2, EstimatedHours: 2},
				{ID: "x", Name: "X again", Complexity: 3, EstimatedHours: 2},
			},
			exam, c,
		},
		{
			"daily hours too high",
			testTopics(), exam,
			models.Constraints{DailyHours: 20, MinSessionHours: 0.5, BufferFraction: 0.2, WeakBoostFactor: 0.5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Allocate(tt.topics, tt.exam, testNow, tt.c)
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Errorf("expected ValidationError, got %v", err)
			}
		})
	}
}
