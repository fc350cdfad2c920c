// Package client consumes the council over HTTP: a thin REST client, a
// frame-by-frame stream consumer with retry and cooperative cancellation,
// and the observable state store that tracks a stream's progress.
package client

import (
	"sync"

	"github.com/Iron-Ham/quorum/internal/event"
	"github.com/Iron-Ham/quorum/internal/stream"
)

// StreamStatus describes one stream consumption attempt. Exactly one live
// status exists per active consumption; it resets when a new attempt starts.
type StreamStatus struct {
	InFlight     bool
	CurrentStage stream.Kind
	LastEvent    stream.Kind
	Cancelled    bool
	Error        string
	Attempt      int
}

// Terminal reports whether the stream has settled one way or another.
func (s StreamStatus) Terminal() bool {
	return !s.InFlight && s.LastEvent != ""
}

// StagePayloads accumulates the decoded stage outputs as their events arrive.
type StagePayloads struct {
	Candidates []stream.CandidatePayload
	Rankings   []stream.RankingPayload
	Metadata   *stream.Metadata
	Synthesis  *stream.SynthesisPayload
	Title      string
}

// State is the consumer's observable stream state. Mutations are serialized
// by an internal lock; after every mutation the observer bus is notified so
// interested parties can re-read the snapshot.
type State struct {
	mu       sync.Mutex
	status   StreamStatus
	payloads StagePayloads
	bus      *event.Bus
}

// NewState creates a state store notifying bus on every change. A nil bus
// disables notification.
func NewState(bus *event.Bus) *State {
	return &State{bus: bus}
}

// Status returns a snapshot of the stream status.
func (s *State) Status() StreamStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Payloads returns a snapshot of the accumulated stage outputs.
func (s *State) Payloads() StagePayloads {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.payloads
}

// BeginAttempt resets the status for a fresh consumption attempt. Accumulated
// payloads are cleared too: a retry is a fresh server-side run, not a resume.
func (s *State) BeginAttempt(attempt int) {
	s.mu.Lock()
	s.status = StreamStatus{InFlight: true, Attempt: attempt}
	s.payloads = StagePayloads{}
	s.mu.Unlock()
	s.notify()
}

// Apply folds one decoded event into the state.
func (s *State) Apply(ev stream.Event) {
	s.mu.Lock()
	s.status.LastEvent = ev.Type

	switch ev.Type {
	case stream.KindStage1Start, stream.KindStage2Start, stream.KindStage3Start:
		s.status.CurrentStage = ev.Type
	case stream.KindStage1Complete:
		if candidates, err := ev.Candidates(); err == nil {
			s.payloads.Candidates = candidates
		}
	case stream.KindStage2Complete:
		if rankings, err := ev.Rankings(); err == nil {
			s.payloads.Rankings = rankings
		}
		s.payloads.Metadata = ev.Metadata
	case stream.KindStage3Complete:
		if synthesis, err := ev.Synthesis(); err == nil {
			s.payloads.Synthesis = &synthesis
		}
	case stream.KindTitleComplete:
		if title, err := ev.Title(); err == nil {
			s.payloads.Title = title
		}
	case stream.KindComplete:
		s.status.InFlight = false
		s.status.Error = ""
	case stream.KindError:
		s.status.InFlight = false
		if msg, err := ev.ErrorMessage(); err == nil {
			s.status.Error = msg
		}
	}
	s.mu.Unlock()
	s.notify()
}

// MarkCancelled records a cooperative stop, distinct from complete and error.
func (s *State) MarkCancelled() {
	s.mu.Lock()
	s.status.InFlight = false
	s.status.Cancelled = true
	s.status.LastEvent = stream.KindCancelled
	s.mu.Unlock()
	s.notify()
}

// MarkTransportFailure records a terminal transport failure after the retry
// budget is exhausted. The message is preserved verbatim.
func (s *State) MarkTransportFailure(message string) {
	s.mu.Lock()
	s.status.InFlight = false
	s.status.LastEvent = stream.KindError
	s.status.Error = message
	s.mu.Unlock()
	s.notify()
}

func (s *State) notify() {
	if s.bus != nil {
		s.bus.Publish(event.NewStateChangedEvent())
	}
}
