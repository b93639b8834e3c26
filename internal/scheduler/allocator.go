package scheduler

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/studyplan/backend/internal/models"
)

const (
	MinDailyHours = 0.5
	MaxDailyHours = 16
)

// Allocate converts a topic catalog and constraints into an initial
// day-by-day plan. Per-topic time is proportional to complexity within
// the content window; the trailing buffer days get one lighter review
// pass over the same topics so ApplyBuffer has sessions to trim. All
// sessions are created pending.
func Allocate(topics []models.Topic, examDate time.Time, now time.Time, c models.Constraints) (*models.Plan, error) {
	if err := validateInputs(topics, examDate, now, c); err != nil {
		return nil, err
	}

	days := AvailableDays(now, examDate)
	totalBudget := float64(days) * c.DailyHours

	var required float64
	for i := range topics {
		required += topics[i].EstimatedHours
	}
	if required > totalBudget+Epsilon {
		return nil, insufficientTime(required, totalBudget, days, now, c.DailyHours)
	}

	studyDays := StudyDays(now, examDate)
	bufferDays := int(math.Ceil(c.BufferFraction * float64(days)))
	if bufferDays >= days {
		// Always keep at least one content day for first-pass coverage.
		bufferDays = days - 1
	}
	contentDays := days - bufferDays

	revisionStart := examDate
	if bufferDays > 0 {
		revisionStart = studyDays[contentDays]
	}

	plan := &models.Plan{
		ID:                  uuid.New().String(),
		ExamDate:            DateOnly(examDate),
		Constraints:         c,
		Topics:              append([]models.Topic(nil), topics...),
		RevisionWindowStart: revisionStart,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	var sumComplexity int
	for i := range topics {
		sumComplexity += topics[i].Complexity
	}

	// First-pass coverage across the content window.
	contentHours := float64(contentDays) * c.DailyHours
	contentCaps := makeCaps(studyDays[:contentDays], c.DailyHours)
	contentDemands := proportionalDemands(topics, sumComplexity, contentHours)
	sessions, leftover := newFiller(plan.ID, contentCaps, c.MinSessionHours, revisionStart, false).place(contentDemands)
	if leftover > Epsilon {
		return nil, &ScheduleOverflowError{ShortfallHours: leftover}
	}
	plan.Sessions = sessions

	// One review pass over the buffer days; ApplyBuffer relabels and
	// trims these.
	if bufferDays > 0 {
		bufferHours := float64(bufferDays) * c.DailyHours
		bufferCaps := makeCaps(studyDays[contentDays:], c.DailyHours)
		bufferDemands := proportionalDemands(topics, sumComplexity, bufferHours)
		reviewSessions, _ := newFiller(plan.ID, bufferCaps, c.MinSessionHours, revisionStart, false).place(bufferDemands)
		plan.Sessions = append(plan.Sessions, reviewSessions...)
	}

	sort.SliceStable(plan.Sessions, func(a, b int) bool {
		return plan.Sessions[a].Date.Before(plan.Sessions[b].Date)
	})

	if err := CheckInvariants(plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func validateInputs(topics []models.Topic, examDate, now time.Time, c models.Constraints) error {
	if len(topics) == 0 {
		return &ValidationError{Field: "topics", Reason: "at least one topic is required"}
	}
	seen := make(map[string]bool, len(topics))
	for i := range topics {
		t := &topics[i]
		if t.ID == "" {
			return &ValidationError{Field: "topics", Reason: "topic id must not be empty"}
		}
		if seen[t.ID] {
			return &ValidationError{Field: "topics", Reason: fmt.Sprintf("duplicate topic id %q", t.ID)}
		}
		seen[t.ID] = true
		if t.Complexity < 1 || t.Complexity > 5 {
			return &ValidationError{Field: "complexity", Reason: fmt.Sprintf("topic %q: complexity must be 1-5", t.ID)}
		}
		if t.EstimatedHours <= 0 {
			return &ValidationError{Field: "estimated_hours", Reason: fmt.Sprintf("topic %q: estimated hours must be positive", t.ID)}
		}
	}
	if c.DailyHours < MinDailyHours || c.DailyHours > MaxDailyHours {
		return &ValidationError{Field: "daily_hours", Reason: fmt.Sprintf("must be between %g and %g", float64(MinDailyHours), float64(MaxDailyHours))}
	}
	if c.BufferFraction <= 0 || c.BufferFraction >= 1 {
		return &ValidationError{Field: "buffer_fraction", Reason: "must be between 0 and 1 exclusive"}
	}
	if !DateOnly(examDate).After(DateOnly(now)) {
		return &ValidationError{Field: "exam_date", Reason: "must be in the future"}
	}
	return nil
}

func insufficientTime(required, available float64, days int, now time.Time, dailyHours float64) *InsufficientTimeError {
	e := &InsufficientTimeError{
		RequiredHours:  required,
		AvailableHours: available,
	}
	if days > 0 {
		e.MinDailyHours = required / float64(days)
	}
	// Earliest exam date that leaves enough study days at the current
	// daily budget: the exam day itself does not count.
	neededDays := int(math.Ceil(required / dailyHours))
	e.EarliestExamDate = DateOnly(now).AddDate(0, 0, neededDays+1)
	return e
}

func makeCaps(dates []time.Time, dailyHours float64) []dayCapacity {
	caps := make([]dayCapacity, len(dates))
	for i, d := range dates {
		caps[i] = dayCapacity{date: d, free: dailyHours}
	}
	return caps
}

// proportionalDemands splits totalHours across topics by complexity
// share: share(topic) = complexity / Σcomplexity. Equal complexity means
// equal share, and higher complexity never receives less time.
func proportionalDemands(topics []models.Topic, sumComplexity int, totalHours float64) []demand {
	demands := make([]demand, len(topics))
	for i := range topics {
		demands[i] = demand{
			topicID: topics[i].ID,
			hours:   float64(topics[i].Complexity) / float64(sumComplexity) * totalHours,
		}
	}
	return demands
}

// CheckInvariants verifies the two hard plan invariants: no study date
// before the exam exceeds the daily hour limit, and every catalog topic
// has at least one session.
func CheckInvariants(p *models.Plan) error {
	perDay := make(map[time.Time]float64)
	for i := range p.Sessions {
		s := &p.Sessions[i]
		if s.Date.Before(p.ExamDate) {
			perDay[s.Date] += s.DurationHours
		}
	}
	for _, total := range perDay {
		if total > p.Constraints.DailyHours+Epsilon {
			return &ScheduleOverflowError{ShortfallHours: total - p.Constraints.DailyHours}
		}
	}

	covered := make(map[string]bool)
	for i := range p.Sessions {
		covered[p.Sessions[i].TopicID] = true
	}
	for i := range p.Topics {
		if !covered[p.Topics[i].ID] {
			return &ValidationError{Field: "plan", Reason: fmt.Sprintf("topic %q has no sessions", p.Topics[i].ID)}
		}
	}
	return nil
}
