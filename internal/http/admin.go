package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/service"
)

func (h *handlers) createUser(c *fiber.Ctx) error {
	var in service.CreateUserInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid request body")
	}
	u, err := h.svcs.Users.Create(c.UserContext(), actorOf(c), in)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(u)
}

func (h *handlers) listUsers(c *fiber.Ctx) error {
	items, err := h.svcs.Users.List(c.UserContext(), actorOf(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(items)
}

func (h *handlers) createPolicy(c *fiber.Ctx) error {
	var in service.CreatePolicyInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid request body")
	}
	p, err := h.svcs.Policies.Create(c.UserContext(), actorOf(c), in)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(p)
}

func (h *handlers) listPolicies(c *fiber.Ctx) error {
	items, err := h.svcs.Policies.List(c.UserContext(), actorOf(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(items)
}

func (h *handlers) togglePolicy(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return h.fail(c, err)
	}
	p, err := h.svcs.Policies.Toggle(c.UserContext(), actorOf(c), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(p)
}

func (h *handlers) activePolicies(c *fiber.Ctx) error {
	ids, err := h.svcs.Policies.ActivePolicyIDs(c.UserContext(), actorOf(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"active_policy_ids": ids})
}

func (h *handlers) enforcementLogs(c *fiber.Ctx) error {
	items, err := h.svcs.Policies.EnforcementLogs(c.UserContext(), actorOf(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(items)
}

func (h *handlers) analytics(c *fiber.Ctx) error {
	a, err := h.svcs.Energy.Analytics(c.UserContext(), actorOf(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(a)
}

func (h *handlers) exportUsage(c *fiber.Ctx) error {
	res, err := h.svcs.Exports.ExportUsage(c.UserContext(), actorOf(c), c.Query("date"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}
