package doctor

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clinicware/reservation-api/internal/handler"
	"github.com/clinicware/reservation-api/internal/middleware"
	"github.com/clinicware/reservation-api/internal/model"
	doctorService "github.com/clinicware/reservation-api/internal/service/doctor"
	userService "github.com/clinicware/reservation-api/internal/service/user"
	apperrors "github.com/clinicware/reservation-api/pkg/errors"
	"github.com/clinicware/reservation-api/pkg/validator"
)

// Handler exposes the doctor profile editor.
type Handler struct {
	service  *doctorService.Service
	userSvc  *userService.Service
	validate *validator.Validator
}

func NewHandler(service *doctorService.Service, userSvc *userService.Service, validate *validator.Validator) *Handler {
	return &Handler{
		service:  service,
		userSvc:  userSvc,
		validate: validate,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	profile := r.Group("/doctor/profile")
	{
		profile.GET("", h.GetProfile)
		profile.GET("/:id", h.GetProfileByID)
		profile.PUT("", h.UpdateProfile)
		profile.POST("/photo", h.UploadPhoto)
		profile.PUT("/email", h.UpdateEmail)
		profile.PUT("/password", h.UpdatePassword)
	}
}

func (h *Handler) GetProfile(c *gin.Context) {
	actor := middleware.ActorFromContext(c)

	profile, err := h.service.Get(c.Request.Context(), actor.UserID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(profile))
}

func (h *Handler) GetProfileByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid doctor ID"))
		return
	}

	profile, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(profile))
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	var req model.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}
	if fields, err := h.validate.Struct(&req); err != nil || fields != nil {
		handler.RespondError(c, apperrors.Validation("the given data was invalid", fields))
		return
	}

	actor := middleware.ActorFromContext(c)
	profile, err := h.service.UpdateProfile(c.Request.Context(), actor.UserID, &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(profile))
}

func (h *Handler) UploadPhoto(c *gin.Context) {
	file, err := c.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("photo is required"))
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("could not read photo"))
		return
	}
	defer src.Close()

	actor := middleware.ActorFromContext(c)
	path, err := h.service.UploadPhoto(c.Request.Context(), actor.UserID, file.Filename, src)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"photo": path,
	}))
}

func (h *Handler) UpdateEmail(c *gin.Context) {
	var req model.UpdateEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}
	if fields, err := h.validate.Struct(&req); err != nil || fields != nil {
		handler.RespondError(c, apperrors.Validation("the given data was invalid", fields))
		return
	}

	actor := middleware.ActorFromContext(c)
	if err := h.userSvc.UpdateEmail(c.Request.Context(), actor.UserID, req.Email); err != nil {
		handler.RespondError(c, err)
		return
	}

	profile, err := h.service.Get(c.Request.Context(), actor.UserID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(profile))
}

func (h *Handler) UpdatePassword(c *gin.Context) {
	var req model.UpdatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}
	if fields, err := h.validate.Struct(&req); err != nil || fields != nil {
		handler.RespondError(c, apperrors.Validation("the given data was invalid", fields))
		return
	}

	actor := middleware.ActorFromContext(c)
	if err := h.userSvc.UpdatePassword(c.Request.Context(), actor.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}
