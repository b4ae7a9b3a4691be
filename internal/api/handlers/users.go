package handlers

import (
	"net/http"

	"github.com/pratik-mahalle/jobtrail/internal/api/dto"
	"github.com/pratik-mahalle/jobtrail/internal/api/middleware"
	"github.com/pratik-mahalle/jobtrail/internal/domain/user"
	"github.com/pratik-mahalle/jobtrail/internal/pkg/errors"
	"github.com/pratik-mahalle/jobtrail/internal/pkg/logger"
	"github.com/pratik-mahalle/jobtrail/internal/pkg/utils"
	"github.com/pratik-mahalle/jobtrail/internal/pkg/validator"
)

// UserHandler handles profile endpoints
type UserHandler struct {
	service   user.Service
	logger    *logger.Logger
	validator *validator.Validator
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(service user.Service, log *logger.Logger, val *validator.Validator) *UserHandler {
	return &UserHandler{service: service, logger: log, validator: val}
}

// Sync creates the caller's profile on first sign-in or refreshes it
// @Summary Sync user profile
// @Description Create the caller on first sight with the free plan, or refresh name and email. Entitlement fields are never changed.
// @Tags Users
// @Accept json
// @Produce json
// @Param request body dto.SyncUserRequest false "Profile"
// @Success 200 {object} dto.UserDTO "Synced user"
// @Failure 400 {object} utils.ErrorResponse "Validation error"
// @Failure 401 {object} utils.ErrorResponse "Unauthorized"
// @Security BearerAuth
// @Router /users/sync [post]
func (h *UserHandler) Sync(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req dto.SyncUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if errs := h.validator.Validate(req); len(errs) > 0 {
		utils.WriteError(w, errors.ValidationError("Validation failed", errs))
		return
	}

	email := req.Email
	if email == "" {
		email, _ = middleware.GetUserEmail(r)
	}

	u, err := h.service.Sync(r.Context(), &user.User{
		ID:        userID,
		Email:     email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		utils.WriteErr(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusOK, dto.NewUserDTO(u))
}

// Me returns the caller's profile
// @Summary Get current user
// @Tags Users
// @Produce json
// @Success 200 {object} dto.UserDTO "Current user"
// @Failure 404 {object} utils.ErrorResponse "User not found"
// @Security BearerAuth
// @Router /users/me [get]
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	u, err := h.service.GetByID(r.Context(), userID)
	if err != nil {
		utils.WriteErr(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusOK, dto.NewUserDTO(u))
}
