package engine

import "time"

// EventKind categorizes simulation events.
type EventKind string

const (
	EventPlacement EventKind = "placement"
	EventPayout    EventKind = "payout"
	EventGrant     EventKind = "grant"
	EventReset     EventKind = "reset"
)

// maxEvents bounds both the recent-event buffer and the undrained queue.
const maxEvents = 1000

// Event is a notable state change, recorded after it has been applied.
type Event struct {
	Time        time.Time `json:"time"`
	Kind        EventKind `json:"kind"`
	Description string    `json:"description"`
	Amount      int       `json:"amount"`                // Money moved (negative for spending)
	BuildingID  string    `json:"building_id,omitempty"` // Set for placements
	Money       int       `json:"money"`                 // Balance after the event
	Population  int       `json:"population"`            // Population after the event
}

func (s *Simulation) record(kind EventKind, amount int, buildingID, description string) {
	e := Event{
		Time:        s.now(),
		Kind:        kind,
		Description: description,
		Amount:      amount,
		BuildingID:  buildingID,
		Money:       s.wallet.Balance(),
		Population:  s.population,
	}
	s.recent = appendBounded(s.recent, e)
	s.pending = appendBounded(s.pending, e)
}

func appendBounded(list []Event, e Event) []Event {
	list = append(list, e)
	if len(list) > maxEvents {
		list = list[len(list)-maxEvents:]
	}
	return list
}

// RecentEvents returns up to limit of the most recent events, oldest first.
// A non-positive limit returns all retained events.
func (s *Simulation) RecentEvents(limit int) []Event {
	start := 0
	if limit > 0 && len(s.recent) > limit {
		start = len(s.recent) - limit
	}
	out := make([]Event, len(s.recent)-start)
	copy(out, s.recent[start:])
	return out
}

// DrainEvents returns the events recorded since the previous drain.
func (s *Simulation) DrainEvents() []Event {
	if len(s.pending) == 0 {
		return nil
	}
	out := s.pending
	s.pending = nil
	return out
}
