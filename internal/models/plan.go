package models

import "time"

type SessionStatus string

const (
	SessionPending   SessionStatus = "pending"
	SessionCompleted SessionStatus = "completed"
	SessionMissed    SessionStatus = "missed"
	SessionPartial   SessionStatus = "partial"
)

var ValidSessionStatuses = map[SessionStatus]bool{
	SessionPending:   true,
	SessionCompleted: true,
	SessionMissed:    true,
	SessionPartial:   true,
}

// Terminal reports whether a session in this status can still transition.
// missed and partial are terminal for the session record itself; the
// content they represent is re-injected as new pending sessions.
func (s SessionStatus) Terminal() bool {
	return s != SessionPending
}

// Topic is one unit of the externally-produced catalog. Complexity is an
// ordinal 1-5; estimated hours come from the upstream extraction pipeline.
type Topic struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Complexity     int     `json:"complexity"`
	EstimatedHours float64 `json:"estimated_hours"`
	Weak           bool    `json:"weak"`
	BoostApplied   bool    `json:"boost_applied"`
}

// Session is one scheduled study block: the unit of scheduling and the
// unit of redistribution. Dates are UTC midnight.
type Session struct {
	ID                  string        `json:"id"`
	PlanID              string        `json:"plan_id"`
	TopicID             string        `json:"topic_id"`
	Date                time.Time     `json:"date"`
	DurationHours       float64       `json:"duration_hours"`
	Status              SessionStatus `json:"status"`
	CompletionFraction  *float64      `json:"completion_fraction,omitempty"`
	UnderstandingRating *int          `json:"understanding_rating,omitempty"`
	Revision            bool          `json:"revision"`
	Injected            bool          `json:"injected"`
}

type Constraints struct {
	DailyHours      float64 `json:"daily_hours"`
	MinSessionHours float64 `json:"min_session_hours"`
	BufferFraction  float64 `json:"buffer_fraction"`
	WeakBoostFactor float64 `json:"weak_boost_factor"`
}

const (
	DefaultMinSessionHours = 0.5
	DefaultBufferFraction  = 0.20
	DefaultWeakBoostFactor = 0.5
)

func DefaultConstraints(dailyHours float64) Constraints {
	return Constraints{
		DailyHours:      dailyHours,
		MinSessionHours: DefaultMinSessionHours,
		BufferFraction:  DefaultBufferFraction,
		WeakBoostFactor: DefaultWeakBoostFactor,
	}
}

// Plan is the full schedule for one exam. It exclusively owns its
// sessions; topics are referenced by ID and survive regeneration.
type Plan struct {
	ID                  string      `json:"id"`
	OwnerID             string      `json:"owner_id"`
	ExamDate            time.Time   `json:"exam_date"`
	Constraints         Constraints `json:"constraints"`
	Topics              []Topic     `json:"topics"`
	Sessions            []Session   `json:"sessions"`
	RevisionWindowStart time.Time   `json:"revision_window_start"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"`
}

// Topic returns the catalog entry for the given ID, or nil.
func (p *Plan) Topic(topicID string) *Topic {
	for i := range p.Topics {
		if p.Topics[i].ID == topicID {
			return &p.Topics[i]
		}
	}
	return nil
}

// Session returns the session with the given ID, or nil.
func (p *Plan) Session(sessionID string) *Session {
	for i := range p.Sessions {
		if p.Sessions[i].ID == sessionID {
			return &p.Sessions[i]
		}
	}
	return nil
}

// HoursOn sums session durations on the given calendar date.
func (p *Plan) HoursOn(date time.Time) float64 {
	var total float64
	for i := range p.Sessions {
		if p.Sessions[i].Date.Equal(date) {
			total += p.Sessions[i].DurationHours
		}
	}
	return total
}

// Clone deep-copies the plan so repair passes can work on a scratch copy
// and leave the original untouched on failure.
func (p *Plan) Clone() *Plan {
	cp := *p
	cp.Topics = make([]Topic, len(p.Topics))
	copy(cp.Topics, p.Topics)
	cp.Sessions = make([]Session, len(p.Sessions))
	for i, s := range p.Sessions {
		cs := s
		if s.CompletionFraction != nil {
			f := *s.CompletionFraction
			cs.CompletionFraction = &f
		}
		if s.UnderstandingRating != nil {
			r := *s.UnderstandingRating
			cs.UnderstandingRating = &r
		}
		cp.Sessions[i] = cs
	}
	return &cp
}
