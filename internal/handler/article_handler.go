package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/medico-project/medico-go-api/internal/dto"
	"github.com/medico-project/medico-go-api/internal/service"
	"github.com/medico-project/medico-go-api/internal/utils"
)

// ArticleHandler wires the health article REST endpoints. Creation accepts a
// multipart form so a cover image can travel with the article body.
type ArticleHandler struct {
	service *service.ArticleService
	logger  zerolog.Logger
}

// NewArticleHandler creates an article handler instance.
func NewArticleHandler(service *service.ArticleService, logger zerolog.Logger) *ArticleHandler {
	return &ArticleHandler{
		service: service,
		logger:  logger.With().Str("component", "article_handler").Logger(),
	}
}

// Register binds article routes under the provided router group.
func (h *ArticleHandler) Register(router fiber.Router) {
	router.Get("/articles", h.list)
	router.Get("/articles/:id", h.get)
	router.Post("/articles", h.create)
	router.Delete("/articles/:id", h.delete)
}

func (h *ArticleHandler) list(c *fiber.Ctx) error {
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}
	offset, err := parseQueryInt(c, "offset")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid offset")
	}

	articles, err := h.service.List(c.UserContext(), limit, offset)
	if err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, "articles", articles)
}

func (h *ArticleHandler) get(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid article id")
	}

	article, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, "article", article)
}

func (h *ArticleHandler) create(c *fiber.Ctx) error {
	req := dto.ArticleCreateRequest{
		Title:   c.FormValue("title"),
		Content: c.FormValue("content"),
	}
	if req.Title == "" && req.Content == "" {
		if err := c.BodyParser(&req); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
		}
	}

	cover, err := c.FormFile("cover_image")
	if err != nil {
		cover = nil
	}

	article, err := h.service.Create(c.UserContext(), actorFromContext(c), req, cover)
	if err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "article published", article)
}

func (h *ArticleHandler) delete(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid article id")
	}

	if err := h.service.Delete(c.UserContext(), actorFromContext(c), id); err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, "article deleted", nil)
}
