package handlers

import (
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/annvlk/userdir/internal/directory"
	"github.com/annvlk/userdir/internal/domain/user"
	"github.com/annvlk/userdir/internal/security"
	"github.com/gin-gonic/gin"
)

type UsersHandler struct {
	dir *directory.Service
}

func NewUsersHandler(dir *directory.Service) *UsersHandler {
	return &UsersHandler{dir: dir}
}

// UserRequest carries a whole record; updates send every field and the
// store applies only what changed.
type UserRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required"` // base64-encoded secret
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Avatar    string `json:"avatar"` // base64-encoded blob
	Role      string `json:"role" binding:"required,oneof=user admin"`
}

type UserResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Avatar    string `json:"avatar,omitempty"`
	Role      string `json:"role"`
}

func toUserResponse(u user.User) UserResponse {
	resp := UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role.String(),
	}

	if len(u.Avatar) > 0 {
		resp.Avatar = base64.StdEncoding.EncodeToString(u.Avatar)
	}

	return resp
}

func toInput(req UserRequest) directory.UserInput {
	return directory.UserInput{
		Email:     req.Email,
		SecretB64: req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		AvatarB64: req.Avatar,
		Role:      req.Role,
	}
}

func (h *UsersHandler) ListUsers(ctx *gin.Context) {
	users, err := h.dir.List(ctx.Request.Context())

	if err != nil {
		RespondInternal(ctx, "Could not list users")
		return
	}

	items := make([]UserResponse, 0, len(users))
	for _, u := range users {
		items = append(items, toUserResponse(u))
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{
		"items": items,
		"count": len(items),
	})
}

func (h *UsersHandler) GetUserByID(ctx *gin.Context) {
	id := ctx.Param("id")

	u, err := h.dir.Get(ctx.Request.Context(), id)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		RespondInternal(ctx, "Could not fetch user")
		return
	}

	ctx.JSON(http.StatusOK, toUserResponse(u))
}

func (h *UsersHandler) CreateUser(ctx *gin.Context) {
	var req UserRequest

	if !BindJSON(ctx, &req) {
		return
	}

	created, err := h.dir.Create(ctx.Request.Context(), toInput(req))

	if err != nil {
		switch {
		case errors.Is(err, user.ErrEmailTaken):
			RespondConflict(ctx, "email_taken", "Email is already in use.")
		case isInvalidArgument(err):
			RespondBadRequest(ctx, "Invalid user payload", gin.H{"reason": err.Error()})
		default:
			RespondInternal(ctx, "Could not create user")
		}
		return
	}

	ctx.JSON(http.StatusCreated, toUserResponse(created))
}

func (h *UsersHandler) UpdateUser(ctx *gin.Context) {
	id := ctx.Param("id")

	var req UserRequest

	if !BindJSON(ctx, &req) {
		return
	}

	ok, err := h.dir.Update(ctx.Request.Context(), id, toInput(req))

	if err != nil {
		if isInvalidArgument(err) {
			RespondBadRequest(ctx, "Invalid user payload", gin.H{"reason": err.Error()})
			return
		}
		RespondInternal(ctx, "Could not update user")
		return
	}

	// The store reports one boolean for "unknown id", "email taken by
	// another user", and "nothing changed".
	if !ok {
		RespondConflict(ctx, "not_updated", "User does not exist, nothing changed, or email is taken.")
		return
	}

	ctx.Status(http.StatusNoContent)
}

func (h *UsersHandler) DeleteUser(ctx *gin.Context) {
	id := ctx.Param("id")

	ok, err := h.dir.Delete(ctx.Request.Context(), id)

	if err != nil {
		RespondInternal(ctx, "Could not delete user")
		return
	}

	if !ok {
		RespondNotFound(ctx, "User not found")
		return
	}

	ctx.Status(http.StatusNoContent)
}

func isInvalidArgument(err error) bool {
	return errors.Is(err, user.ErrUnknownRole) ||
		errors.Is(err, directory.ErrBadSecretEncoding) ||
		errors.Is(err, directory.ErrBadAvatarEncoding) ||
		errors.Is(err, security.ErrEmptySecret)
}
