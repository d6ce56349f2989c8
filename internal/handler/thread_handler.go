package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/medico-project/medico-go-api/internal/dto"
	"github.com/medico-project/medico-go-api/internal/service"
	"github.com/medico-project/medico-go-api/internal/utils"
)

// ThreadHandler wires the chat thread REST endpoints.
type ThreadHandler struct {
	service *service.ThreadService
	logger  zerolog.Logger
}

// NewThreadHandler creates a thread handler instance.
func NewThreadHandler(service *service.ThreadService, logger zerolog.Logger) *ThreadHandler {
	return &ThreadHandler{
		service: service,
		logger:  logger.With().Str("component", "thread_handler").Logger(),
	}
}

// Register binds thread routes under the provided router group.
func (h *ThreadHandler) Register(router fiber.Router) {
	router.Get("/threads", h.list)
	router.Post("/threads", h.getOrCreate)
	router.Post("/threads/:id/read", h.markRead)
}

func (h *ThreadHandler) list(c *fiber.Ctx) error {
	threads, err := h.service.ListMine(c.UserContext(), actorFromContext(c))
	if err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, "threads", threads)
}

func (h *ThreadHandler) getOrCreate(c *fiber.Ctx) error {
	var req dto.ThreadCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	thread, err := h.service.GetOrCreateWith(c.UserContext(), actorFromContext(c), req)
	if err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, "thread", thread)
}

func (h *ThreadHandler) markRead(c *fiber.Ctx) error {
	threadID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid thread id")
	}

	marked, err := h.service.MarkRead(c.UserContext(), actorFromContext(c), threadID)
	if err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, "messages marked read", fiber.Map{"marked": marked})
}
