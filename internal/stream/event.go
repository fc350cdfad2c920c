// Package stream defines the milestone events the council pipeline emits and
// the line-oriented wire codec that carries them. Each frame is a
// `data: <json>` line (or lines) followed by a blank line; the payload is a
// tagged union keyed by the event kind.
package stream

import (
	"encoding/json"
	"fmt"
)

// Kind identifies a stream event type.
type Kind string

// Event kinds, in emission order. Raw is consumer-side only: it wraps a frame
// that failed to decode.
const (
	KindStage1Start    Kind = "stage1_start"
	KindStage1Complete Kind = "stage1_complete"
	KindStage2Start    Kind = "stage2_start"
	KindStage2Complete Kind = "stage2_complete"
	KindStage3Start    Kind = "stage3_start"
	KindStage3Complete Kind = "stage3_complete"
	KindTitleComplete  Kind = "title_complete"
	KindComplete       Kind = "complete"
	KindError          Kind = "error"
	KindRaw            Kind = "raw"

	// KindCancelled never crosses the wire; the consumer records it as the
	// last event when consumption stops cooperatively.
	KindCancelled Kind = "cancelled"
)

// Terminal reports whether this kind ends a stream.
func (k Kind) Terminal() bool {
	return k == KindComplete || k == KindError
}

// CandidatePayload is one stage-1 answer as it appears on the wire.
type CandidatePayload struct {
	Model    string `json:"model"`
	Response string `json:"response"`
}

// RankingPayload is one stage-2 judge ranking as it appears on the wire.
type RankingPayload struct {
	Model         string   `json:"model"`
	Ranking       string   `json:"ranking"`
	ParsedRanking []string `json:"parsed_ranking"`
}

// AggregatePayload is one aggregate ranking entry as it appears on the wire.
type AggregatePayload struct {
	Model         string  `json:"model"`
	AverageRank   float64 `json:"average_rank"`
	RankingsCount int     `json:"rankings_count"`
}

// SynthesisPayload is the stage-3 result as it appears on the wire.
type SynthesisPayload struct {
	Model    string `json:"model"`
	Response string `json:"response"`
}

// TitlePayload carries the generated conversation title.
type TitlePayload struct {
	Title string `json:"title"`
}

// ErrorPayload carries the message of a terminal error event.
type ErrorPayload struct {
	Message string `json:"message"`
}

// Metadata rides only on stage2_complete events.
type Metadata struct {
	LabelToModel      map[string]string  `json:"label_to_model"`
	AggregateRankings []AggregatePayload `json:"aggregate_rankings"`
}

// Event is a single milestone on the stream. Data holds the kind-specific
// payload; Metadata is present only on stage2_complete. Raw preserves the
// undecoded frame text for events of kind raw.
type Event struct {
	Type     Kind            `json:"type"`
	Data     json.RawMessage `json:"data,omitempty"`
	Metadata *Metadata       `json:"metadata,omitempty"`
	Raw      string          `json:"-"`
}

// -----------------------------------------------------------------------------
// Constructors
// -----------------------------------------------------------------------------

// NewEvent creates a payload-free event (stage starts, complete).
func NewEvent(kind Kind) Event {
	return Event{Type: kind}
}

// NewStage1Complete creates a stage1_complete event.
func NewStage1Complete(candidates []CandidatePayload) Event {
	return mustEvent(KindStage1Complete, candidates, nil)
}

// NewStage2Complete creates a stage2_complete event with its metadata.
func NewStage2Complete(rankings []RankingPayload, meta Metadata) Event {
	return mustEvent(KindStage2Complete, rankings, &meta)
}

// NewStage3Complete creates a stage3_complete event.
func NewStage3Complete(result SynthesisPayload) Event {
	return mustEvent(KindStage3Complete, result, nil)
}

// NewTitleComplete creates a title_complete event.
func NewTitleComplete(title string) Event {
	return mustEvent(KindTitleComplete, TitlePayload{Title: title}, nil)
}

// NewError creates a terminal error event.
func NewError(message string) Event {
	return mustEvent(KindError, ErrorPayload{Message: message}, nil)
}

// mustEvent marshals a payload that is always marshalable (our own structs).
func mustEvent(kind Kind, payload any, meta *Metadata) Event {
	data, err := json.Marshal(payload)
	if err != nil {
		panic(fmt.Sprintf("stream: marshaling %s payload: %v", kind, err))
	}
	return Event{Type: kind, Data: data, Metadata: meta}
}

// -----------------------------------------------------------------------------
// Typed accessors
// -----------------------------------------------------------------------------

// Candidates decodes the payload of a stage1_complete event.
func (e Event) Candidates() ([]CandidatePayload, error) {
	if e.Type != KindStage1Complete {
		return nil, fmt.Errorf("stream: %s event carries no candidates", e.Type)
	}
	var out []CandidatePayload
	if err := json.Unmarshal(e.Data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Rankings decodes the payload of a stage2_complete event.
func (e Event) Rankings() ([]RankingPayload, error) {
	if e.Type != KindStage2Complete {
		return nil, fmt.Errorf("stream: %s event carries no rankings", e.Type)
	}
	var out []RankingPayload
	if err := json.Unmarshal(e.Data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Synthesis decodes the payload of a stage3_complete event.
func (e Event) Synthesis() (SynthesisPayload, error) {
	var out SynthesisPayload
	if e.Type != KindStage3Complete {
		return out, fmt.Errorf("stream: %s event carries no synthesis", e.Type)
	}
	err := json.Unmarshal(e.Data, &out)
	return out, err
}

// Title decodes the payload of a title_complete event.
func (e Event) Title() (string, error) {
	if e.Type != KindTitleComplete {
		return "", fmt.Errorf("stream: %s event carries no title", e.Type)
	}
	var out TitlePayload
	if err := json.Unmarshal(e.Data, &out); err != nil {
		return "", err
	}
	return out.Title, nil
}

// ErrorMessage decodes the payload of an error event.
func (e Event) ErrorMessage() (string, error) {
	if e.Type != KindError {
		return "", fmt.Errorf("stream: %s event carries no error message", e.Type)
	}
	var out ErrorPayload
	if err := json.Unmarshal(e.Data, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}
