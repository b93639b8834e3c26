package scheduler

import (
	"fmt"
	"time"

	"github.com/studyplan/backend/internal/models"
)

// ValidationError rejects bad inputs (exam date in the past, out-of-range
// daily hours) before any allocation work happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// InsufficientTimeError means the catalog cannot fit before the exam. It
// carries the corrective parameters so the caller can adjust and retry.
type InsufficientTimeError struct {
	RequiredHours    float64
	AvailableHours   float64
	MinDailyHours    float64
	EarliestExamDate time.Time
}

func (e *InsufficientTimeError) Error() string {
	return fmt.Sprintf(
		"insufficient time: %.1fh of content, %.1fh available before exam (need %.1fh/day or exam on %s)",
		e.RequiredHours, e.AvailableHours, e.MinDailyHours, e.EarliestExamDate.Format("2006-01-02"),
	)
}

// ScheduleOverflowError means redistribution found no remaining capacity
// before the exam date for the re-injected content.
type ScheduleOverflowError struct {
	ShortfallHours float64
}

func (e *ScheduleOverflowError) Error() string {
	return fmt.Sprintf("schedule overflow: %.2fh of content cannot be placed before the exam", e.ShortfallHours)
}

// OptimizationTimeout is returned when a caller-imposed deadline expired.
// Partial holds the best invariant-respecting plan computed so far; the
// caller should treat it as provisional rather than discard it.
type OptimizationTimeout struct {
	Partial *models.Plan
}

func (e *OptimizationTimeout) Error() string {
	return "optimization deadline exceeded; returning provisional schedule"
}
