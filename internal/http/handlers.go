// Package http exposes the manual-operation API over fiber.
package http

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/domain"
	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/service"
)

// Identity headers are set by the authenticating gateway in front of the API.
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"

	roleAdmin = "ADMIN"
	actorKey  = "actor"
)

type handlers struct {
	svcs *service.Services
	log  zerolog.Logger
}

func Register(app *fiber.App, svcs *service.Services, log zerolog.Logger) {
	h := &handlers{svcs: svcs, log: log}

	app.Get("/health", h.health)

	g := app.Group("/", h.identify)

	g.Post("devices", h.createDevice)
	g.Get("devices", h.listDevices)
	g.Post("devices/:id/toggle", h.toggleDevice)
	g.Delete("devices/:id", h.deleteDevice)
	g.Get("devices/:id/energy/today", h.deviceEnergyToday)
	g.Get("users/:id/energy/today", h.userEnergyToday)

	g.Post("schedules", h.createSchedule)
	g.Get("schedules", h.listSchedules)
	g.Post("schedules/:id/toggle", h.toggleSchedule)
	g.Delete("schedules/:id", h.deleteSchedule)

	admin := g.Group("admin")
	admin.Post("users", h.createUser)
	admin.Get("users", h.listUsers)
	admin.Post("policies", h.createPolicy)
	admin.Get("policies", h.listPolicies)
	admin.Get("policies/status", h.activePolicies)
	admin.Get("policies/logs", h.enforcementLogs)
	admin.Post("policies/:id/toggle", h.togglePolicy)
	admin.Get("analytics", h.analytics)
	admin.Post("exports/usage", h.exportUsage)
}

func (h *handlers) health(c *fiber.Ctx) error {
	if err := h.svcs.Repos.Ping(c.UserContext()); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "down", "error": err.Error()})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

// identify turns the gateway headers into a service.Actor.
func (h *handlers) identify(c *fiber.Ctx) error {
	raw := c.Get(HeaderUserID)
	if raw == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": HeaderUserID + " header is required"})
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid " + HeaderUserID + " header"})
	}
	c.Locals(actorKey, service.Actor{
		UserID: id,
		Admin:  strings.EqualFold(c.Get(HeaderUserRole), roleAdmin),
	})
	return c.Next()
}

func actorOf(c *fiber.Ctx) service.Actor {
	a, _ := c.Locals(actorKey).(service.Actor)
	return a
}

func paramID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.Invalid("id must be a positive integer")
	}
	return id, nil
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": message})
}

// fail maps service errors onto HTTP statuses.
func (h *handlers) fail(c *fiber.Ctx, err error) error {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return badRequest(c, verr.Message)
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, service.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, service.ErrExportDisabled):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	default:
		h.log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("request failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
}
