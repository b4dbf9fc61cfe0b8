package handlers

import (
	"strings"

	"aquora-api/internal/adapters/http/middleware"
	"aquora-api/internal/core/domain"
	"aquora-api/internal/core/services"
	"aquora-api/internal/pkg/pagination"
	"aquora-api/internal/pkg/response"
	"aquora-api/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
)

// SocietyHandler handles society and officer endpoints. Role and tenant
// checks run in route middleware before these handlers.
type SocietyHandler struct {
	societyService *services.SocietyService
}

// NewSocietyHandler creates a new society handler
func NewSocietyHandler(societyService *services.SocietyService) *SocietyHandler {
	return &SocietyHandler{societyService: societyService}
}

// Create creates a society
// @Summary Create society
// @Tags Societies
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.CreateSocietyInput true "Society"
// @Success 201 {object} response.Response{data=services.SocietyView}
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /societies [post]
func (h *SocietyHandler) Create(c *fiber.Ctx) error {
	auth, err := middleware.MustAuth(c)
	if err != nil {
		return err
	}

	var req services.CreateSocietyInput
	if err := c.BodyParser(&req); err != nil {
		return domain.NewValidation("Invalid request body", nil)
	}
	req.Name = strings.TrimSpace(req.Name)
	req.WaterBoardRegNo = strings.TrimSpace(req.WaterBoardRegNo)
	req.Address = trimOptional(req.Address)

	if err := validation.ValidateStruct(&req); err != nil {
		return err
	}

	society, err := h.societyService.CreateSociety(c.UserContext(), &req, auth.UserID)
	if err != nil {
		return err
	}
	return response.Created(c, "Society created", society)
}

// List lists societies
// @Summary List societies
// @Tags Societies
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Response{data=[]services.SocietyView,meta=pagination.Meta}
// @Failure 403 {object} response.Response
// @Router /societies [get]
func (h *SocietyHandler) List(c *fiber.Ctx) error {
	societies, meta, err := h.societyService.ListSocieties(c.UserContext(), pagination.FromQuery(c))
	if err != nil {
		return err
	}
	return response.Paginated(c, societies, meta)
}

// Get returns a society with its active officers
// @Summary Get society
// @Tags Societies
// @Produce json
// @Security BearerAuth
// @Param societyId path string true "Society ID"
// @Success 200 {object} response.Response{data=services.SocietyDetail}
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /societies/{societyId} [get]
func (h *SocietyHandler) Get(c *fiber.Ctx) error {
	society, err := h.societyService.GetSocietyDetail(c.UserContext(), c.Params("societyId"))
	if err != nil {
		return err
	}
	return response.Success(c, "", society)
}

// Update partially updates a society
// @Summary Update society
// @Tags Societies
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param societyId path string true "Society ID"
// @Param body body services.UpdateSocietyInput true "Fields to change"
// @Success 200 {object} response.Response{data=services.SocietyView}
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /societies/{societyId} [patch]
func (h *SocietyHandler) Update(c *fiber.Ctx) error {
	auth, err := middleware.MustAuth(c)
	if err != nil {
		return err
	}

	var req services.UpdateSocietyInput
	if err := c.BodyParser(&req); err != nil {
		return domain.NewValidation("Invalid request body", nil)
	}
	req.Name = trimOptional(req.Name)
	req.Address = trimOptional(req.Address)
	req.WaterBoardRegNo = trimOptional(req.WaterBoardRegNo)

	if err := validation.ValidateStruct(&req); err != nil {
		return err
	}

	society, err := h.societyService.UpdateSociety(c.UserContext(), c.Params("societyId"), &req, auth.UserID)
	if err != nil {
		return err
	}
	return response.Success(c, "Society updated", society)
}

// Officers lists active officers and assignment history
// @Summary List officers
// @Tags Societies
// @Produce json
// @Security BearerAuth
// @Param societyId path string true "Society ID"
// @Success 200 {object} response.Response{data=services.OfficersView}
// @Failure 403 {object} response.Response
// @Router /societies/{societyId}/officers [get]
func (h *SocietyHandler) Officers(c *fiber.Ctx) error {
	officers, err := h.societyService.ListOfficers(c.UserContext(), c.Params("societyId"))
	if err != nil {
		return err
	}
	return response.Success(c, "", officers)
}

// AssignOfficer assigns a president or secretary
// @Summary Assign officer
// @Tags Societies
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param societyId path string true "Society ID"
// @Param body body services.AssignOfficerInput true "Assignment"
// @Success 201 {object} response.Response{data=services.AssignOfficerResult}
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /societies/{societyId}/officers/assign [post]
func (h *SocietyHandler) AssignOfficer(c *fiber.Ctx) error {
	auth, err := middleware.MustAuth(c)
	if err != nil {
		return err
	}

	var req services.AssignOfficerInput
	if err := c.BodyParser(&req); err != nil {
		return domain.NewValidation("Invalid request body", nil)
	}
	req.UserID = strings.TrimSpace(req.UserID)

	if err := validation.ValidateStruct(&req); err != nil {
		return err
	}

	result, err := h.societyService.AssignOfficer(c.UserContext(), c.Params("societyId"), &req, auth.UserID)
	if err != nil {
		return err
	}
	return response.Created(c, "Officer assigned", result)
}

// DeactivateOfficer ends an assignment
// @Summary Deactivate officer
// @Tags Societies
// @Produce json
// @Security BearerAuth
// @Param societyId path string true "Society ID"
// @Param assignmentId path string true "Assignment ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /societies/{societyId}/officers/{assignmentId}/deactivate [patch]
func (h *SocietyHandler) DeactivateOfficer(c *fiber.Ctx) error {
	auth, err := middleware.MustAuth(c)
	if err != nil {
		return err
	}

	officers, err := h.societyService.DeactivateOfficer(c.UserContext(), c.Params("societyId"), c.Params("assignmentId"), auth.UserID)
	if err != nil {
		return err
	}
	return response.Success(c, "Officer deactivated", fiber.Map{"officers": officers})
}

// Users lists the society's users
// @Summary List society users
// @Tags Societies
// @Produce json
// @Security BearerAuth
// @Param societyId path string true "Society ID"
// @Param role query string false "Filter by role"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Response{data=[]models.PublicUser,meta=pagination.Meta}
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /societies/{societyId}/users [get]
func (h *SocietyHandler) Users(c *fiber.Ctx) error {
	role := strings.ToUpper(strings.TrimSpace(c.Query("role")))
	if role != "" && !domain.Role(role).Valid() {
		return domain.NewValidation("Invalid request query", map[string]string{"role": "oneof"})
	}

	users, meta, err := h.societyService.ListUsers(c.UserContext(), c.Params("societyId"), role, pagination.FromQuery(c))
	if err != nil {
		return err
	}
	return response.Paginated(c, users, meta)
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	return &trimmed
}
