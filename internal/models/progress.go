package models

// WeakTopic is a topic whose completed sessions show understanding below
// the passing threshold, ranked for the UI by priority score.
type WeakTopic struct {
	TopicID       string  `json:"topic_id"`
	Name          string  `json:"name"`
	AverageRating float64 `json:"average_rating"`
	PriorityScore float64 `json:"priority_score"`
	Resolved      bool    `json:"resolved"`
}

type ProgressReport struct {
	CompletionPercentage float64     `json:"completion_percentage"`
	AdherenceScore       float64     `json:"adherence_score"`
	ReadinessIndicator   float64     `json:"readiness_indicator"`
	WeakTopics           []WeakTopic `json:"weak_topics"`

	TotalSessions     int `json:"total_sessions"`
	CompletedSessions int `json:"completed_sessions"`
	MissedSessions    int `json:"missed_sessions"`
	PartialSessions   int `json:"partial_sessions"`
	PendingSessions   int `json:"pending_sessions"`
}
