// Package handler provides HTTP handlers for API endpoints.
package handler

import (
	"net/http"

	"medishare/internal/services"
	"medishare/internal/transport/httpdto"
	medishare_errors "medishare/pkg/errors"

	"github.com/gin-gonic/gin"
)

// AuthHandler handles authentication HTTP endpoints.
type AuthHandler struct {
	service *services.AuthService
}

// NewAuthHandler creates an auth handler.
func NewAuthHandler(service *services.AuthService) *AuthHandler {
	return &AuthHandler{service: service}
}

// Register handles donor and receiver sign up.
func (h *AuthHandler) Register(c *gin.Context) {
	var req httpdto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, medishare_errors.Validation("", "invalid request"))
		return
	}

	res, err := h.service.Register(c.Request.Context(), services.RegisterInput{
		Email:            req.Email,
		Password:         req.Password,
		Role:             req.Role,
		FullName:         req.FullName,
		OrganizationName: req.OrganizationName,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(toAuthResponse(res)))
}

// Login handles user authentication.
func (h *AuthHandler) Login(c *gin.Context) {
	var req httpdto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, medishare_errors.Validation("", "invalid request"))
		return
	}

	res, err := h.service.Login(c.Request.Context(), services.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(toAuthResponse(res)))
}

func toAuthResponse(res services.AuthResponse) httpdto.AuthResponse {
	return httpdto.AuthResponse{
		Token: res.Token,
		User: httpdto.AuthUserDTO{
			ID:    res.User.ID,
			Email: res.User.Email,
			Role:  string(res.User.Role),
			Name:  res.User.Name,
		},
	}
}

// writeError records err for the error middleware and renders the envelope.
func writeError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(services.HTTPStatus(err), httpdto.FromError(err))
}

// actorFrom returns the actor placed in the context by the auth middleware.
// A missing actor is passed on as the zero value and rejected by the service.
func actorFrom(c *gin.Context) services.Actor {
	actor, _ := services.ActorFromContext(c.Request.Context())
	return actor
}
