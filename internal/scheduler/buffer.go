package scheduler

import "github.com/studyplan/backend/internal/models"

// ApplyBuffer marks every session dated on or after the revision-window
// start as a revision session and trims it toward half the length of a
// normal content-window session. It never touches topic shares and never
// introduces a topic into the buffer: the Allocator only schedules
// already-covered topics there.
func ApplyBuffer(p *models.Plan) *models.Plan {
	var contentSum float64
	var contentCount int
	for i := range p.Sessions {
		if p.Sessions[i].Date.Before(p.RevisionWindowStart) {
			contentSum += p.Sessions[i].DurationHours
			contentCount++
		}
	}
	if contentCount == 0 {
		return p
	}

	target := contentSum / float64(contentCount) / 2
	if target < p.Constraints.MinSessionHours {
		target = p.Constraints.MinSessionHours
	}

	for i := range p.Sessions {
		s := &p.Sessions[i]
		if s.Date.Before(p.RevisionWindowStart) {
			continue
		}
		s.Revision = true
		if s.Status == models.SessionPending && s.DurationHours > target {
			s.DurationHours = target
		}
	}
	return p
}
