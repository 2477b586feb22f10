package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/service"
)

func (h *handlers) createDevice(c *fiber.Ctx) error {
	var in service.CreateDeviceInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid request body")
	}
	d, err := h.svcs.Devices.Create(c.UserContext(), actorOf(c), in)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(d)
}

func (h *handlers) listDevices(c *fiber.Ctx) error {
	ctx, actor := c.UserContext(), actorOf(c)
	items, err := h.svcs.Devices.List(ctx, actor)
	if err != nil {
		return h.fail(c, err)
	}
	counts, err := h.svcs.Devices.Counts(ctx, actor)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"devices": items, "counts": counts})
}

func (h *handlers) toggleDevice(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return h.fail(c, err)
	}
	d, err := h.svcs.Devices.Toggle(c.UserContext(), actorOf(c), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(d)
}

func (h *handlers) deleteDevice(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return h.fail(c, err)
	}
	if err := h.svcs.Devices.Delete(c.UserContext(), actorOf(c), id); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *handlers) deviceEnergyToday(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return h.fail(c, err)
	}
	report, err := h.svcs.Energy.DeviceToday(c.UserContext(), actorOf(c), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(report)
}

func (h *handlers) userEnergyToday(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return h.fail(c, err)
	}
	report, err := h.svcs.Energy.OwnerToday(c.UserContext(), actorOf(c), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(report)
}

func (h *handlers) createSchedule(c *fiber.Ctx) error {
	var in service.CreateScheduleInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid request body")
	}
	s, err := h.svcs.Schedules.Create(c.UserContext(), actorOf(c), in)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(s)
}

func (h *handlers) listSchedules(c *fiber.Ctx) error {
	items, err := h.svcs.Schedules.List(c.UserContext(), actorOf(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(items)
}

func (h *handlers) toggleSchedule(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return h.fail(c, err)
	}
	s, err := h.svcs.Schedules.Toggle(c.UserContext(), actorOf(c), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(s)
}

func (h *handlers) deleteSchedule(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return h.fail(c, err)
	}
	if err := h.svcs.Schedules.Delete(c.UserContext(), actorOf(c), id); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
