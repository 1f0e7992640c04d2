package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ouvidoria-service/internal/api/dto"
	"github.com/spec-kit/ouvidoria-service/internal/domain"
	"github.com/spec-kit/ouvidoria-service/internal/repository"
	"github.com/spec-kit/ouvidoria-service/internal/service"
)

// StaffHandler manages the roster.
type StaffHandler struct {
	staff *service.StaffService
}

// NewStaffHandler constructs handler.
func NewStaffHandler(staffService *service.StaffService) *StaffHandler {
	return &StaffHandler{staff: staffService}
}

// List handles GET /api/admin/staff.
func (h *StaffHandler) List(c *fiber.Ctx) error {
	actor, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	filter := repository.StaffFilter{}
	if roles := c.Query("role"); roles != "" {
		for _, part := range strings.Split(roles, ",") {
			if part = strings.TrimSpace(part); part != "" {
				filter.Roles = append(filter.Roles, domain.StaffRole(part))
			}
		}
	}
	profiles, err := h.staff.List(c.UserContext(), actor, filter)
	if err != nil {
		return err
	}
	out := make([]dto.StaffResponse, 0, len(profiles))
	for i := range profiles {
		out = append(out, staffResponse(&profiles[i]))
	}
	return c.JSON(fiber.Map{"data": out})
}

// Create handles POST /api/admin/staff.
func (h *StaffHandler) Create(c *fiber.Ctx) error {
	actor, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateStaffRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	profile, password, err := h.staff.Create(c.UserContext(), actor, req.FullName, req.Email)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.CreateStaffResponse{
		Staff:             staffResponse(profile),
		TemporaryPassword: password,
	}})
}

// Update handles PATCH /api/admin/staff/:id.
func (h *StaffHandler) Update(c *fiber.Ctx) error {
	actor, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.UpdateStaffRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	profile, err := h.staff.Update(c.UserContext(), actor, c.Params("id"), service.StaffUpdateInput{
		FullName: req.FullName,
		Role:     req.Role,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": staffResponse(profile)})
}

// Remove handles DELETE /api/admin/staff/:id.
func (h *StaffHandler) Remove(c *fiber.Ctx) error {
	actor, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	if err := h.staff.Remove(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
