package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ouvidoria-service/internal/api/dto"
	"github.com/spec-kit/ouvidoria-service/internal/service"
)

// ContentHandler serves editable portal copy.
type ContentHandler struct {
	content *service.ContentService
}

// NewContentHandler constructs handler.
func NewContentHandler(contentService *service.ContentService) *ContentHandler {
	return &ContentHandler{content: contentService}
}

// List handles GET /api/public/content.
func (h *ContentHandler) List(c *fiber.Ctx) error {
	settings, err := h.content.List(c.UserContext())
	if err != nil {
		return err
	}
	out := make([]dto.ContentResponse, 0, len(settings))
	for i := range settings {
		out = append(out, contentResponse(&settings[i]))
	}
	return c.JSON(fiber.Map{"data": out})
}

// Update handles PUT /api/admin/content/:key.
func (h *ContentHandler) Update(c *fiber.Ctx) error {
	actor, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.UpdateContentRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	setting, err := h.content.Update(c.UserContext(), actor, c.Params("key"), req.Value, req.Description)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": contentResponse(setting)})
}
