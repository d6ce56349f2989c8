package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/medico-project/medico-go-api/internal/dto"
	"github.com/medico-project/medico-go-api/internal/service"
	"github.com/medico-project/medico-go-api/internal/utils"
)

// LinkHandler wires the relationship link REST endpoints.
type LinkHandler struct {
	service *service.LinkService
	logger  zerolog.Logger
}

// NewLinkHandler creates a link handler instance.
func NewLinkHandler(service *service.LinkService, logger zerolog.Logger) *LinkHandler {
	return &LinkHandler{
		service: service,
		logger:  logger.With().Str("component", "link_handler").Logger(),
	}
}

// Register binds link routes under the provided router group.
func (h *LinkHandler) Register(router fiber.Router) {
	router.Get("/links", h.list)
	router.Get("/links/pending", h.listPending)
	router.Post("/links", h.request)
	router.Post("/links/:id/accept", h.accept)
	router.Post("/links/:id/reject", h.reject)
	router.Post("/links/:id/cancel", h.cancel)
	router.Delete("/links/:id", h.remove)
}

func (h *LinkHandler) list(c *fiber.Ctx) error {
	links, err := h.service.ListMine(c.UserContext(), actorFromContext(c))
	if err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, "links", links)
}

func (h *LinkHandler) listPending(c *fiber.Ctx) error {
	links, err := h.service.ListPending(c.UserContext(), actorFromContext(c))
	if err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, "pending links", links)
}

func (h *LinkHandler) request(c *fiber.Ctx) error {
	var req dto.LinkCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	link, err := h.service.Request(c.UserContext(), actorFromContext(c), req)
	if err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "link requested", link)
}

func (h *LinkHandler) accept(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid link id")
	}

	link, err := h.service.Accept(c.UserContext(), actorFromContext(c), id)
	if err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, "link accepted", link)
}

func (h *LinkHandler) reject(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid link id")
	}

	if err := h.service.Reject(c.UserContext(), actorFromContext(c), id); err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, "link rejected", nil)
}

func (h *LinkHandler) cancel(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid link id")
	}

	if err := h.service.Cancel(c.UserContext(), actorFromContext(c), id); err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, "link canceled", nil)
}

func (h *LinkHandler) remove(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid link id")
	}

	if err := h.service.Remove(c.UserContext(), actorFromContext(c), id); err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, "link removed", nil)
}
