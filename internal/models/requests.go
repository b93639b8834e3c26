package models

import "time"

type ErrorResponse struct {
	Error string `json:"error"`

	// Set on InsufficientTimeError / ScheduleOverflowError so the caller
	// can adjust parameters and retry.
	MinDailyHours    *float64 `json:"min_daily_hours,omitempty"`
	EarliestExamDate *string  `json:"earliest_exam_date,omitempty"`
	ShortfallHours   *float64 `json:"shortfall_hours,omitempty"`
}

// ── Request Types ─────────────────────────────────────

type TopicInput struct {
	ID             string  `json:"id" validate:"required"`
	Name           string  `json:"name" validate:"required"`
	Complexity     int     `json:"complexity" validate:"required,gte=1,lte=5"`
	EstimatedHours float64 `json:"estimated_hours" validate:"required,gt=0"`
}

type CreatePlanRequest struct {
	OwnerID         string       `json:"owner_id" validate:"required"`
	ExamDate        string       `json:"exam_date" validate:"required,datetime=2006-01-02"`
	DailyHours      float64      `json:"daily_hours" validate:"required,gte=0.5,lte=16"`
	BufferFraction  *float64     `json:"buffer_fraction,omitempty" validate:"omitempty,gt=0,lt=1"`
	WeakBoostFactor *float64     `json:"weak_boost_factor,omitempty" validate:"omitempty,gt=0,lte=2"`
	Topics          []TopicInput `json:"topics" validate:"required,min=1,dive"`
}

type CompleteSessionRequest struct {
	Status              string   `json:"status" validate:"required,oneof=completed partial missed"`
	CompletionFraction  *float64 `json:"completion_fraction,omitempty" validate:"omitempty,gte=0,lte=1"`
	UnderstandingRating *int     `json:"understanding_rating,omitempty" validate:"omitempty,gte=1,lte=5"`
}

type UpdateParametersRequest struct {
	ExamDate   *string  `json:"exam_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	DailyHours *float64 `json:"daily_hours,omitempty" validate:"omitempty,gte=0.5,lte=16"`
}

// ── Response Types ────────────────────────────────────

type PlanSummary struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"owner_id"`
	ExamDate     time.Time `json:"exam_date"`
	DailyHours   float64   `json:"daily_hours"`
	TopicCount   int       `json:"topic_count"`
	SessionCount int       `json:"session_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type PlanListResponse struct {
	Plans []PlanSummary `json:"plans"`
	Total int           `json:"total"`
}

type PlanResponse struct {
	Plan        *Plan `json:"plan"`
	Provisional bool  `json:"provisional,omitempty"`
}
