package server

import (
	"github.com/gofiber/fiber/v3"

	"github.com/Iron-Ham/quorum/internal/council"
	"github.com/Iron-Ham/quorum/internal/errors"
	"github.com/Iron-Ham/quorum/internal/openrouter"
	"github.com/Iron-Ham/quorum/internal/settings"
	"github.com/Iron-Ham/quorum/internal/storage"
)

// messageRequest is the body of both message endpoints.
type messageRequest struct {
	Content string `json:"content"`
}

// testSettingsRequest optionally overrides the stored credentials for a
// connectivity check.
type testSettingsRequest struct {
	OpenRouterAPIKey string `json:"openrouter_api_key"`
	OpenRouterAPIURL string `json:"openrouter_api_url"`
}

func (s *Server) handleGetSettings(c fiber.Ctx) error {
	return c.JSON(s.settings.Load().Redacted())
}

func (s *Server) handleUpdateSettings(c fiber.Ctx) error {
	var patch settings.Patch
	if err := c.Bind().Body(&patch); err != nil {
		return badRequest(c, "invalid settings payload")
	}

	updated, err := s.settings.Update(patch)
	if err != nil {
		return badRequest(c, err.Error())
	}
	return c.JSON(updated.Redacted())
}

func (s *Server) handleTestSettings(c fiber.Ctx) error {
	var req testSettingsRequest
	// An empty body means "test what is stored".
	_ = c.Bind().Body(&req)

	effective := s.settings.Effective()
	apiKey := effective.OpenRouterAPIKey
	apiURL := effective.OpenRouterAPIURL
	if req.OpenRouterAPIKey != "" {
		apiKey = req.OpenRouterAPIKey
	}
	if req.OpenRouterAPIURL != "" {
		apiURL = req.OpenRouterAPIURL
	}

	if apiKey == "" {
		return c.JSON(fiber.Map{"ok": false, "error": errors.ErrMissingAPIKey.Error()})
	}
	count, err := openrouter.TestConnection(c.Context(), apiURL, apiKey)
	if err != nil {
		return c.JSON(fiber.Map{"ok": false, "error": err.Error()})
	}
	return c.JSON(fiber.Map{"ok": true, "model_count": count})
}

func (s *Server) handleListConversations(c fiber.Ctx) error {
	summaries, err := s.store.List()
	if err != nil {
		return internalError(c, err)
	}
	return c.JSON(summaries)
}

func (s *Server) handleCreateConversation(c fiber.Ctx) error {
	var req struct {
		Title string `json:"title"`
	}
	_ = c.Bind().Body(&req)

	conv, err := s.store.Create(req.Title)
	if err != nil {
		return internalError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(conv)
}

func (s *Server) handleGetConversation(c fiber.Ctx) error {
	conv, err := s.store.Get(c.Params("id"))
	if err != nil {
		return conversationError(c, err)
	}
	return c.JSON(conv)
}

func (s *Server) handleDeleteConversation(c fiber.Ctx) error {
	if err := s.store.Delete(c.Params("id")); err != nil {
		return conversationError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// preparedRun is everything a message endpoint needs once the request has
// passed validation and the configuration gate.
type preparedRun struct {
	conv          *storage.Conversation
	content       string
	pipeline      *council.Pipeline
	firstExchange bool
}

// prepareRun validates the request, checks the pipeline preconditions, records
// the user message, and builds the pipeline from the effective settings. On
// failure it writes the error response itself and returns a nil run; the
// caller returns the accompanying error as-is.
func (s *Server) prepareRun(c fiber.Ctx) (*preparedRun, error) {
	var req messageRequest
	if err := c.Bind().Body(&req); err != nil || req.Content == "" {
		return nil, badRequest(c, "content is required")
	}

	effective := s.settings.Effective()
	pipelineCfg := effective.PipelineConfig(s.cfg)
	if err := pipelineCfg.ValidateForPipeline(); err != nil {
		return nil, badRequest(c, err.Error())
	}

	conv, err := s.store.Get(c.Params("id"))
	if err != nil {
		return nil, conversationError(c, err)
	}

	firstExchange := len(conv.Messages) == 0
	if err := s.store.AddUserMessage(conv.ID, req.Content); err != nil {
		return nil, internalError(c, err)
	}

	caller := s.newCaller(effective.OpenRouterAPIURL, effective.OpenRouterAPIKey, s.cfg.OpenRouter.Timeout())
	pipeline := council.NewPipeline(caller, effective.CouncilModels, effective.ChairmanModel,
		s.logger.WithConversation(conv.ID))

	return &preparedRun{
		conv:          conv,
		content:       req.Content,
		pipeline:      pipeline,
		firstExchange: firstExchange,
	}, nil
}

func (s *Server) handleMessage(c fiber.Ctx) error {
	run, err := s.prepareRun(c)
	if run == nil {
		return err
	}

	result, err := run.pipeline.Run(c.Context(), run.content)
	if err != nil {
		return internalError(c, err)
	}
	if err := s.store.AddAssistantMessage(run.conv.ID, result); err != nil {
		return internalError(c, err)
	}

	title := run.conv.Title
	if run.firstExchange {
		title = run.pipeline.GenerateTitle(c.Context(), run.content)
		// Title failures are already absorbed by the fallback; a storage
		// failure here should not fail a completed run.
		if err := s.store.UpdateTitle(run.conv.ID, title); err != nil {
			s.logger.WithConversation(run.conv.ID).Warn("title update failed", "error", err.Error())
		}
	}

	return c.JSON(fiber.Map{
		"result": result,
		"title":  title,
	})
}

func badRequest(c fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": message})
}

func internalError(c fiber.Ctx, err error) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}

func conversationError(c fiber.Ctx, err error) error {
	if errors.Is(err, errors.ErrConversationNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	return internalError(c, err)
}
