package stream

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestKindTerminal(t *testing.T) {
	tests := []struct {
		kind Kind
		want bool
	}{
		{KindComplete, true},
		{KindError, true},
		{KindStage1Start, false},
		{KindStage2Complete, false},
		{KindRaw, false},
	}

	for _, tt := range tests {
		if got := tt.kind.Terminal(); got != tt.want {
			t.Errorf("Terminal(%s) = %v, want %v", tt.kind, got, tt.want)
		}
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	event := NewStage2Complete(
		[]RankingPayload{
			{Model: "m1", Ranking: "FINAL RANKING:\n1. Response A", ParsedRanking: []string{"Response A"}},
		},
		Metadata{
			LabelToModel: map[string]string{"Response A": "m1"},
			AggregateRankings: []AggregatePayload{
				{Model: "m1", AverageRank: 1.0, RankingsCount: 1},
			},
		},
	)

	var sb strings.Builder
	if err := EncodeFrame(&sb, event); err != nil {
		t.Fatalf("EncodeFrame failed: %v", err)
	}

	frame := sb.String()
	if !strings.HasPrefix(frame, "data: ") {
		t.Errorf("frame should start with data prefix: %q", frame)
	}
	if !strings.HasSuffix(frame, "\n\n") {
		t.Errorf("frame should end with a blank line: %q", frame)
	}

	reader := NewFrameReader(strings.NewReader(frame))
	decoded, err := reader.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if decoded.Type != KindStage2Complete {
		t.Errorf("Type = %s, want stage2_complete", decoded.Type)
	}

	rankings, err := decoded.Rankings()
	if err != nil {
		t.Fatalf("Rankings failed: %v", err)
	}
	if len(rankings) != 1 || rankings[0].ParsedRanking[0] != "Response A" {
		t.Errorf("rankings = %+v", rankings)
	}
	if decoded.Metadata == nil {
		t.Fatal("metadata should survive the round trip")
	}
	if decoded.Metadata.LabelToModel["Response A"] != "m1" {
		t.Errorf("LabelToModel = %v", decoded.Metadata.LabelToModel)
	}
	if decoded.Metadata.AggregateRankings[0].AverageRank != 1.0 {
		t.Errorf("AggregateRankings = %v", decoded.Metadata.AggregateRankings)
	}
}

func TestFrameReaderSequence(t *testing.T) {
	var sb strings.Builder
	events := []Event{
		NewEvent(KindStage1Start),
		NewStage1Complete([]CandidatePayload{{Model: "m1", Response: "r1"}}),
		NewEvent(KindComplete),
	}
	for _, ev := range events {
		if err := EncodeFrame(&sb, ev); err != nil {
			t.Fatalf("EncodeFrame failed: %v", err)
		}
	}

	reader := NewFrameReader(strings.NewReader(sb.String()))
	var kinds []Kind
	for {
		ev, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		kinds = append(kinds, ev.Type)
	}

	want := []Kind{KindStage1Start, KindStage1Complete, KindComplete}
	if len(kinds) != len(want) {
		t.Fatalf("got %d events, want %d", len(kinds), len(want))
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("kinds[%d] = %s, want %s", i, kinds[i], want[i])
		}
	}
}

func TestFrameReaderUndecodableFrame(t *testing.T) {
	input := "data: this is not json\n\n"

	reader := NewFrameReader(strings.NewReader(input))
	ev, err := reader.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if ev.Type != KindRaw {
		t.Errorf("Type = %s, want raw", ev.Type)
	}
	if ev.Raw != "this is not json" {
		t.Errorf("Raw = %q", ev.Raw)
	}
}

func TestFrameReaderIgnoresNonDataLines(t *testing.T) {
	input := ": comment\nevent: milestone\ndata: {\"type\":\"complete\"}\n\n"

	reader := NewFrameReader(strings.NewReader(input))
	ev, err := reader.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if ev.Type != KindComplete {
		t.Errorf("Type = %s, want complete", ev.Type)
	}
}

func TestFrameReaderTrailingFrameWithoutBlankLine(t *testing.T) {
	input := "data: {\"type\":\"complete\"}"

	reader := NewFrameReader(strings.NewReader(input))
	ev, err := reader.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if ev.Type != KindComplete {
		t.Errorf("Type = %s, want complete", ev.Type)
	}

	if _, err := reader.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF after trailing frame, got %v", err)
	}
}

func TestTypedAccessorsRejectWrongKind(t *testing.T) {
	ev := NewEvent(KindStage1Start)

	if _, err := ev.Candidates(); err == nil {
		t.Error("Candidates() should fail for stage1_start")
	}
	if _, err := ev.Synthesis(); err == nil {
		t.Error("Synthesis() should fail for stage1_start")
	}
	if _, err := ev.Title(); err == nil {
		t.Error("Title() should fail for stage1_start")
	}
	if _, err := ev.ErrorMessage(); err == nil {
		t.Error("ErrorMessage() should fail for stage1_start")
	}
}

func TestErrorEvent(t *testing.T) {
	ev := NewError("pipeline fault")

	msg, err := ev.ErrorMessage()
	if err != nil {
		t.Fatalf("ErrorMessage failed: %v", err)
	}
	if msg != "pipeline fault" {
		t.Errorf("message = %q, want %q", msg, "pipeline fault")
	}
}
