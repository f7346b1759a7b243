package trigger

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/amishk599/jobenrich/internal/model"
)

const defaultRecentRuns = 20

// Server exposes the handler over HTTP.
type Server struct {
	runCtx  context.Context
	handler *Handler
	tracker model.RunTracker
	logger  *slog.Logger
}

// NewServer returns the HTTP app. Runs started by POST /runs use runCtx, not
// the request context, so they end with the process rather than with the
// connection. tracker may be nil, in which case the /runs read endpoints
// answer 404.
func NewServer(runCtx context.Context, handler *Handler, tracker model.RunTracker, logger *slog.Logger) *fiber.App {
	s := &Server{runCtx: runCtx, handler: handler, tracker: tracker, logger: logger}

	app := fiber.New(fiber.Config{AppName: "jobenrich"})
	app.Use(s.accessLog)
	s.RegisterRoutes(app)
	return app
}

// RegisterRoutes mounts the trigger endpoints on r.
func (s *Server) RegisterRoutes(r fiber.Router) {
	r.Get("/healthz", s.health)
	r.Post("/runs", s.startRun)
	r.Get("/runs", s.listRuns)
	r.Get("/runs/:id", s.getRun)
}

func (s *Server) accessLog(c fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.logger.Debug("http request",
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"duration", time.Since(start),
	)
	return err
}

func (s *Server) health(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok", "busy": s.handler.Busy()})
}

func (s *Server) startRun(c fiber.Ctx) error {
	resp := s.handler.Handle(s.runCtx, c.Body())
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Status(resp.StatusCode).SendString(resp.Body)
}

func (s *Server) listRuns(c fiber.Ctx) error {
	if s.tracker == nil {
		return fiber.NewError(fiber.StatusNotFound, "run tracking is disabled")
	}
	limit := defaultRecentRuns
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "limit must be a positive integer")
		}
		limit = n
	}
	runs, err := s.tracker.Recent(c.Context(), limit)
	if err != nil {
		s.logger.Error("listing runs failed", "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, "could not list runs")
	}
	return c.JSON(runs)
}

func (s *Server) getRun(c fiber.Ctx) error {
	if s.tracker == nil {
		return fiber.NewError(fiber.StatusNotFound, "run tracking is disabled")
	}
	state, err := s.tracker.Get(c.Context(), c.Params("id"))
	if errors.Is(err, model.ErrRunNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "run not found")
	}
	if err != nil {
		s.logger.Error("loading run failed", "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, "could not load run")
	}
	return c.JSON(state)
}
