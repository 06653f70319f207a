package handler

import (
	"net/http"

	"medishare/internal/services"
	"medishare/internal/transport/httpdto"
	medishare_errors "medishare/pkg/errors"

	"github.com/gin-gonic/gin"
)

// UserHandler handles profile and admin user listing endpoints.
type UserHandler struct {
	service *services.UserService
}

func NewUserHandler(service *services.UserService) *UserHandler {
	return &UserHandler{service: service}
}

func (h *UserHandler) GetProfile(c *gin.Context) {
	u, err := h.service.Profile(c.Request.Context(), actorFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ToUserDTO(u)))
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req httpdto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, medishare_errors.Validation("", "invalid request"))
		return
	}

	u, err := h.service.UpdateProfile(c.Request.Context(), actorFrom(c), services.UpdateProfileInput{
		Email:              req.Email,
		FullName:           req.FullName,
		MobileNumber:       req.MobileNumber,
		OrganizationName:   req.OrganizationName,
		Address:            req.AddressPatch(),
		ContactPerson:      req.ContactPersonPatch(),
		RegistrationNumber: req.RegistrationNumber,
		Website:            req.Website,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ToUserDTO(u)))
}

func (h *UserHandler) ListDonors(c *gin.Context) {
	users, err := h.service.ListDonors(c.Request.Context(), actorFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ToUserDTOs(users)))
}

func (h *UserHandler) ListReceivers(c *gin.Context) {
	users, err := h.service.ListReceivers(c.Request.Context(), actorFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ToUserDTOs(users)))
}
