package api

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"wingman/app/config"
	"wingman/app/model"
	"wingman/app/service/conversation"
	"wingman/app/service/store"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/do"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// Generator is the engine surface the gateway needs.
type Generator interface {
	GenerateOpener(ctx context.Context, profile model.MatchProfile) (string, error)
	GenerateReply(ctx context.Context, profile model.MatchProfile, incoming []model.Message) (string, error)
}

// Service is the HTTP boundary the browser-automation collaborator talks to.
type Service struct {
	cfg    *config.Config
	engine Generator
	app    *fiber.App
}

func New(di *do.Injector) (*Service, error) {
	return newService(
		do.MustInvoke[*config.Config](di),
		do.MustInvoke[*conversation.Service](di),
	), nil
}

func newService(cfg *config.Config, engine Generator) *Service {
	s := &Service{
		cfg:    cfg,
		engine: engine,
	}

	s.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})

	v1 := s.app.Group("/v1")
	v1.Post("/generate/opener", s.handleOpener)
	v1.Post("/generate/reply", s.handleReply)

	return s
}

func (s *Service) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.app.Listen(s.cfg.Server.Listen)
	})

	g.Go(func() error {
		<-ctx.Done()
		return s.app.ShutdownWithTimeout(shutdownTimeout)
	})

	return g.Wait()
}

func (s *Service) handleOpener(c *fiber.Ctx) error {
	var req OpenerRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "malformed request body"})
	}

	message, err := s.engine.GenerateOpener(c.UserContext(), req.Profile)
	if err != nil {
		return s.writeError(c, err)
	}

	return c.JSON(MessageResponse{Message: message})
}

func (s *Service) handleReply(c *fiber.Ctx) error {
	var req ReplyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "malformed request body"})
	}

	incoming := req.LastMessages
	if len(incoming) == 0 {
		// The scraper may attach the batch to the profile instead.
		incoming = req.Profile.LastMessages
	}

	message, err := s.engine.GenerateReply(c.UserContext(), req.Profile, incoming)
	if err != nil {
		return s.writeError(c, err)
	}

	return c.JSON(MessageResponse{Message: message})
}

func (s *Service) writeError(c *fiber.Ctx, err error) error {
	var ready *conversation.MatchReadyError
	if errors.As(err, &ready) {
		return c.Status(fiber.StatusConflict).JSON(MatchReadyResponse{
			Name:               ready.Name,
			ReadinessTimestamp: ready.Since,
		})
	}

	status := fiber.StatusInternalServerError

	switch {
	case errors.Is(err, conversation.ErrInvalidRequest):
		status = fiber.StatusBadRequest
	case errors.Is(err, conversation.ErrGenerationUnavailable):
		status = fiber.StatusServiceUnavailable
	case errors.Is(err, conversation.ErrClassificationUnavailable),
		errors.Is(err, store.ErrUnavailable):
		status = fiber.StatusInternalServerError
	}

	slog.Error("Generation request failed", "path", c.Path(), "status", status, "error", err)

	return c.Status(status).JSON(ErrorResponse{Error: err.Error()})
}
