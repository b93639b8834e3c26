package scheduler

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/studyplan/backend/internal/models"
)

// dayCapacity tracks how many free hours a calendar date still has.
type dayCapacity struct {
	date time.Time
	free float64
}

// demand is an amount of study content still to be placed for one topic.
type demand struct {
	topicID string
	hours   float64
}

// filler places topic demands onto days using the greedy round-robin fill
// shared by the Allocator and the Repair Engine: iterate days in
// chronological order, give the current topic as much of the day as it
// needs, then advance to the next topic — both when the topic's share is
// fully placed and when the day runs out. Slices below the minimum
// session duration are merged into an existing session of the same topic
// instead of becoming fragments.
type filler struct {
	planID        string
	days          []dayCapacity
	minSession    float64
	revisionStart time.Time
	injected      bool

	sessions []models.Session
	// (dayIndex, topicID) -> index into sessions, for same-day merging
	byDayTopic map[int]map[string]int
	// topicID -> index of the topic's most recently created session
	lastByTopic map[string]int
	dayOf       map[string]int // session ID -> day index
}

func newFiller(planID string, days []dayCapacity, minSession float64, revisionStart time.Time, injected bool) *filler {
	return &filler{
		planID:        planID,
		days:          days,
		minSession:    minSession,
		revisionStart: revisionStart,
		injected:      injected,
		byDayTopic:    make(map[int]map[string]int),
		lastByTopic:   make(map[string]int),
		dayOf:         make(map[string]int),
	}
}

// place distributes the demands and returns the created sessions plus any
// hours that found no capacity.
func (f *filler) place(demands []demand) ([]models.Session, float64) {
	n := len(demands)
	if n == 0 {
		return nil, 0
	}

	t := 0
	for d := range f.days {
		if remainingTotal(demands) <= Epsilon {
			break
		}
		for f.days[d].free > Epsilon {
			i, ok := nextDemand(demands, t)
			if !ok {
				break
			}
			t = i
			cur := &demands[t]

			slice := math.Min(cur.hours, f.days[d].free)
			if slice+Epsilon < f.minSession {
				if slice < cur.hours-Epsilon {
					// Day capacity is a sub-floor sliver; leave it for the
					// final sweep.
					break
				}
				// Final sliver of this topic: fold it into the topic's most
				// recent session when that day can absorb it.
				if f.mergeIntoLast(cur.topicID, slice) {
					cur.hours = 0
					t = (t + 1) % n
					continue
				}
			}

			f.add(d, cur.topicID, slice)
			cur.hours -= slice
			f.days[d].free -= slice
			if cur.hours <= Epsilon {
				cur.hours = 0
				t = (t + 1) % n
			}
		}
		// Day exhausted mid-topic: round-robin on so the next day starts
		// with the next topic.
		if demands[t].hours > Epsilon {
			t = (t + 1) % n
		}
	}

	// Final sweep: any hours stranded by the floor go wherever capacity
	// remains, merging into same-day sessions of the topic when possible.
	for i := range demands {
		for d := range f.days {
			if demands[i].hours <= Epsilon {
				break
			}
			if f.days[d].free <= Epsilon {
				continue
			}
			amt := math.Min(demands[i].hours, f.days[d].free)
			f.add(d, demands[i].topicID, amt)
			demands[i].hours -= amt
			f.days[d].free -= amt
		}
	}

	sort.SliceStable(f.sessions, func(a, b int) bool {
		return f.sessions[a].Date.Before(f.sessions[b].Date)
	})
	return f.sessions, remainingTotal(demands)
}

// add appends hours for a topic on the given day, merging into an
// already-created session on the same day rather than fragmenting.
func (f *filler) add(day int, topicID string, hours float64) {
	if byTopic, ok := f.byDayTopic[day]; ok {
		if idx, ok := byTopic[topicID]; ok {
			f.sessions[idx].DurationHours += hours
			return
		}
	}
	s := models.Session{
		ID:            uuid.New().String(),
		PlanID:        f.planID,
		TopicID:       topicID,
		Date:          f.days[day].date,
		DurationHours: hours,
		Status:        models.SessionPending,
		Revision:      !f.days[day].date.Before(f.revisionStart),
		Injected:      f.injected,
	}
	f.sessions = append(f.sessions, s)
	idx := len(f.sessions) - 1
	if f.byDayTopic[day] == nil {
		f.byDayTopic[day] = make(map[string]int)
	}
	f.byDayTopic[day][topicID] = idx
	f.lastByTopic[topicID] = idx
	f.dayOf[s.ID] = day
}

// mergeIntoLast extends the topic's most recent session by the given
// hours if that session's day still has capacity for it.
func (f *filler) mergeIntoLast(topicID string, hours float64) bool {
	idx, ok := f.lastByTopic[topicID]
	if !ok {
		return false
	}
	day, ok := f.dayOf[f.sessions[idx].ID]
	if !ok || f.days[day].free < hours-Epsilon {
		return false
	}
	f.sessions[idx].DurationHours += hours
	f.days[day].free -= hours
	return true
}

func nextDemand(demands []demand, from int) (int, bool) {
	n := len(demands)
	for k := 0; k < n; k++ {
		i := (from + k) % n
		if demands[i].hours > Epsilon {
			return i, true
		}
	}
	return 0, false
}

func remainingTotal(demands []demand) float64 {
	var total float64
	for i := range demands {
		total += demands[i].hours
	}
	return total
}
