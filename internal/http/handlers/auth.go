package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/annvlk/userdir/internal/auth"
	"github.com/gin-gonic/gin"
)

// Authenticator is the login slice of the auth service.
type Authenticator interface {
	Login(ctx context.Context, email, secretB64 string) (token string, roles []string, err error)
}

type AuthHandler struct {
	auth Authenticator
}

func NewAuthHandler(a Authenticator) *AuthHandler {
	return &AuthHandler{auth: a}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"` // base64-encoded secret
}

type LoginResponse struct {
	Token string   `json:"token"`
	Roles []string `json:"roles"`
}

// Login exchanges credentials for a signed token. Failures carry no body
// detail: an unknown email and a wrong secret are indistinguishable.
func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	token, roles, err := h.auth.Login(ctx.Request.Context(), req.Email, req.Password)

	if err != nil {
		switch {
		case errors.Is(err, auth.ErrBadSecretEncoding):
			RespondBadRequest(ctx, "Password must be base64 encoded", nil)
		case errors.Is(err, auth.ErrInvalidCredentials):
			ctx.AbortWithStatus(http.StatusUnauthorized)
		default:
			RespondInternal(ctx, "Could not log in")
		}
		return
	}

	ctx.JSON(http.StatusOK, LoginResponse{Token: token, Roles: roles})
}
