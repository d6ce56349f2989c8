package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/medico-project/medico-go-api/internal/dto"
	"github.com/medico-project/medico-go-api/internal/service"
	"github.com/medico-project/medico-go-api/internal/utils"
)

// AppointmentHandler wires the appointment REST endpoints.
type AppointmentHandler struct {
	service *service.AppointmentService
	logger  zerolog.Logger
}

// NewAppointmentHandler creates an appointment handler instance.
func NewAppointmentHandler(service *service.AppointmentService, logger zerolog.Logger) *AppointmentHandler {
	return &AppointmentHandler{
		service: service,
		logger:  logger.With().Str("component", "appointment_handler").Logger(),
	}
}

// Register binds appointment routes under the provided router group.
func (h *AppointmentHandler) Register(router fiber.Router) {
	router.Get("/appointments", h.list)
	router.Post("/appointments", h.create)
	router.Get("/appointments/:id", h.get)
	router.Patch("/appointments/:id/status", h.updateStatus)
	router.Patch("/appointments/:id/reschedule", h.reschedule)
	router.Patch("/appointments/:id/confirm", h.confirmReschedule)
	router.Delete("/appointments/:id", h.delete)
}

func (h *AppointmentHandler) list(c *fiber.Ctx) error {
	appointments, err := h.service.List(c.UserContext(), actorFromContext(c))
	if err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, "appointments", appointments)
}

func (h *AppointmentHandler) create(c *fiber.Ctx) error {
	var req dto.AppointmentCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	appointment, err := h.service.Create(c.UserContext(), actorFromContext(c), req)
	if err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "appointment created", appointment)
}

func (h *AppointmentHandler) get(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid appointment id")
	}

	appointment, err := h.service.Get(c.UserContext(), actorFromContext(c), id)
	if err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, "appointment", appointment)
}

func (h *AppointmentHandler) updateStatus(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid appointment id")
	}

	var req dto.AppointmentStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	appointment, err := h.service.UpdateStatus(c.UserContext(), actorFromContext(c), id, req)
	if err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, "appointment updated", appointment)
}

func (h *AppointmentHandler) reschedule(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid appointment id")
	}

	var req dto.AppointmentRescheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	appointment, err := h.service.Reschedule(c.UserContext(), actorFromContext(c), id, req)
	if err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, "appointment rescheduled", appointment)
}

func (h *AppointmentHandler) confirmReschedule(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid appointment id")
	}

	var req dto.AppointmentConfirmRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	appointment, err := h.service.ConfirmReschedule(c.UserContext(), actorFromContext(c), id, req)
	if err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, "reschedule confirmed", appointment)
}

func (h *AppointmentHandler) delete(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid appointment id")
	}

	if err := h.service.Delete(c.UserContext(), actorFromContext(c), id); err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, "appointment deleted", nil)
}
