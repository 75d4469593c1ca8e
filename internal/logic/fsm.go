package logic

import "time"

// FSM tracks the coin drawer state and turns sensor samples into coin and
// stuck-drawer events.
//
// Elapsed-open time is measured as a wall-clock delta from the moment the
// drawer timer was last reset, not accumulated per sample. Accumulating a
// fractional increment per tick drifts over a 30-minute stuck window and can
// delay detection.
type FSM struct {
	stuckAfter time.Duration // OPEN -> STUCK_OPEN threshold
	renotify   time.Duration // re-notification interval while STUCK_OPEN

	state     State
	openSince time.Time // timer baseline, valid in OPEN and STUCK_OPEN

	coins       int
	eventCounts EventCounts

	startTime     time.Time
	lastHeartbeat time.Time
}

// NewFSM creates a coin FSM in the CLOSED state. stuckAfter is the duration
// after which an open drawer is considered stuck; renotify is the interval
// between repeated notices while stuck. The startTime is used for calculating
// uptime in heartbeat events.
func NewFSM(stuckAfter, renotify time.Duration, startTime time.Time) *FSM {
	return &FSM{
		stuckAfter:    stuckAfter,
		renotify:      renotify,
		state:         StateClosed,
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// Process takes a new sensor sample and returns any events that should be
// published, in publish order. It never blocks and runs in constant time.
//
// The active timeout threshold is determined by the current state: OPEN uses
// the long stuck-after threshold, STUCK_OPEN the short renotify interval.
// Closing the drawer therefore restores the long threshold for the next cycle.
func (f *FSM) Process(in Input) []Event {
	switch f.state {
	case StateClosed:
		if !in.Blocked {
			return nil
		}
		// Drawer opened. No event until the cycle completes.
		f.state = StateOpen
		f.openSince = in.Time
		return nil

	case StateOpen:
		if !in.Blocked {
			return f.close(in.Time, false)
		}
		if in.Time.Sub(f.openSince) >= f.stuckAfter {
			f.state = StateStuckOpen
			f.openSince = in.Time
			return []Event{f.count(Event{Timestamp: in.Time, Type: EventStuckOpen, State: StateStuckOpen})}
		}
		return nil

	case StateStuckOpen:
		if !in.Blocked {
			return f.close(in.Time, true)
		}
		if in.Time.Sub(f.openSince) >= f.renotify {
			f.openSince = in.Time
			return []Event{f.count(Event{Timestamp: in.Time, Type: EventStillStuck, State: StateStuckOpen})}
		}
		return nil
	}

	return nil
}

// close handles the transition back to CLOSED from OPEN or STUCK_OPEN.
// The coin is counted before the events are built so exactly one COIN event
// carries each increment; on a stuck recovery the STUCK_CLEARED notice
// follows the COIN event so downstream consumers see them in causal order.
func (f *FSM) close(now time.Time, wasStuck bool) []Event {
	f.state = StateClosed
	f.openSince = time.Time{}
	f.coins++

	events := []Event{f.count(Event{Timestamp: now, Type: EventCoin, State: StateClosed, Count: f.coins})}
	if wasStuck {
		events = append(events, f.count(Event{Timestamp: now, Type: EventStuckCleared, State: StateClosed}))
	}
	return events
}

// count bumps the per-type counter and returns the event unchanged.
func (f *FSM) count(e Event) Event {
	switch e.Type {
	case EventCoin:
		f.eventCounts.Coins++
	case EventStuckOpen:
		f.eventCounts.StuckOpen++
	case EventStillStuck:
		f.eventCounts.StillStuck++
	case EventStuckCleared:
		f.eventCounts.StuckCleared++
	}
	return e
}

// CurrentState returns the current drawer state.
func (f *FSM) CurrentState() State {
	return f.state
}

// CoinCount returns the number of completed coin cycles since startup.
func (f *FSM) CoinCount() int {
	return f.coins
}

// OpenFor returns how long the drawer has been open as of now.
// Returns 0 while CLOSED.
func (f *FSM) OpenFor(now time.Time) time.Duration {
	if f.state == StateClosed {
		return 0
	}
	return now.Sub(f.openSince)
}

// EventCountsSnapshot returns a copy of the per-type event counters.
func (f *FSM) EventCountsSnapshot() EventCounts {
	return f.eventCounts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if the interval has not elapsed or
// if interval is <= 0 (disabled).
func (f *FSM) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if now.Sub(f.lastHeartbeat) < interval {
		return nil
	}

	f.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(f.startTime),
		Counts:    f.eventCounts,
	}
}
