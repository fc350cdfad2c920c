package server

import (
	"bufio"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/Iron-Ham/quorum/internal/event"
	"github.com/Iron-Ham/quorum/internal/stream"
)

// handleMessageStream runs the pipeline while relaying milestone events as
// server-sent frames. The terminal frame is either complete or error; title
// generation slots in between stage3_complete and complete on a
// conversation's first exchange.
func (s *Server) handleMessageStream(c fiber.Ctx) error {
	run, err := s.prepareRun(c)
	if run == nil {
		return err
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set("Connection", "keep-alive")

	logger := s.logger.WithConversation(run.conv.ID)

	return c.SendStreamWriter(func(w *bufio.Writer) {
		// The writer outlives the request handler; the run is bounded by
		// write failures (client gone) rather than the request context.
		ctx := context.Background()

		stageStart := time.Now()
		emit := func(ev stream.Event) error {
			if err := stream.EncodeFrame(w, ev); err != nil {
				return err
			}
			if err := w.Flush(); err != nil {
				return err
			}
			switch ev.Type {
			case stream.KindStage1Complete, stream.KindStage2Complete, stream.KindStage3Complete:
				stage := strings.TrimSuffix(string(ev.Type), "_complete")
				s.bus.Publish(event.NewStageCompletedEvent(run.conv.ID, stage, time.Since(stageStart), stageResults(ev)))
				stageStart = time.Now()
			}
			return nil
		}

		result, err := run.pipeline.RunStream(ctx, run.content, emit)
		if err != nil {
			logger.Warn("stream aborted", "error", err.Error())
			_ = emit(stream.NewError(err.Error()))
			return
		}

		if err := s.store.AddAssistantMessage(run.conv.ID, result); err != nil {
			logger.Error("persisting assistant message failed", "error", err.Error())
			_ = emit(stream.NewError(err.Error()))
			return
		}

		if run.firstExchange {
			title := run.pipeline.GenerateTitle(ctx, run.content)
			if err := s.store.UpdateTitle(run.conv.ID, title); err != nil {
				logger.Warn("title update failed", "error", err.Error())
			} else if err := emit(stream.NewTitleComplete(title)); err != nil {
				return
			}
		}

		_ = emit(stream.NewEvent(stream.KindComplete))
	})
}

// stageResults counts the surviving results a completion event carries:
// candidates for stage 1, judge rankings for stage 2, the one synthesis for
// stage 3.
func stageResults(ev stream.Event) int {
	switch ev.Type {
	case stream.KindStage1Complete, stream.KindStage2Complete:
		var items []json.RawMessage
		if json.Unmarshal(ev.Data, &items) == nil {
			return len(items)
		}
	case stream.KindStage3Complete:
		return 1
	}
	return 0
}
