package reservation

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clinicware/reservation-api/internal/handler"
	"github.com/clinicware/reservation-api/internal/middleware"
	"github.com/clinicware/reservation-api/internal/model"
	doctorService "github.com/clinicware/reservation-api/internal/service/doctor"
	reservationService "github.com/clinicware/reservation-api/internal/service/reservation"
	apperrors "github.com/clinicware/reservation-api/pkg/errors"
	"github.com/clinicware/reservation-api/pkg/storage"
	"github.com/clinicware/reservation-api/pkg/validator"
)

const uploadPhotoDir = "upload/cases"

// Handler exposes the clinic reservation surface.
type Handler struct {
	service   *reservationService.Service
	doctorSvc *doctorService.Service
	storage   storage.Storage
	validate  *validator.Validator
}

func NewHandler(service *reservationService.Service, doctorSvc *doctorService.Service, storage storage.Storage, validate *validator.Validator) *Handler {
	return &Handler{
		service:   service,
		doctorSvc: doctorSvc,
		storage:   storage,
		validate:  validate,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	reservations := r.Group("/clinic/reservations")
	{
		reservations.GET("", h.ListReservations)
		reservations.GET("/payments", h.ListWithPayments)
		reservations.GET("/common", h.CommonData)
		reservations.POST("/photo", h.UploadPhoto)
		reservations.GET("/:id", h.GetReservation)
		reservations.PUT("/:id", h.UpdateReservation)
		reservations.PUT("/:id/user", h.UpdateReservationWithUserInfo)
		reservations.PUT("/:id/pay", h.RecordPayment)
		reservations.PATCH("/:id/status/:status", h.UpdateStatus)
		reservations.DELETE("/:id", h.DeleteReservation)
	}
}

// ListReservations returns the clinic's reservations plus the dashboard
// count aggregates.
func (h *Handler) ListReservations(c *gin.Context) {
	actor := middleware.ActorFromContext(c)

	filters, err := h.parseFilters(c, actor.ClinicID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	var page model.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid pagination parameters"))
		return
	}

	reservations, err := h.service.List(c.Request.Context(), filters, page)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	count, err := h.service.CountInfo(c.Request.Context(), actor.ClinicID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"reservations": reservations,
		"count":        count,
	}))
}

// ListWithPayments returns confirmed reservations for the payments screen.
func (h *Handler) ListWithPayments(c *gin.Context) {
	actor := middleware.ActorFromContext(c)

	filters, err := h.parseFilters(c, actor.ClinicID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	var page model.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid pagination parameters"))
		return
	}

	reservations, err := h.service.ListWithPayments(c.Request.Context(), filters, page)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"reservations": reservations,
	}))
}

// CommonData returns the clinic's doctors for reservation form pre-fill.
func (h *Handler) CommonData(c *gin.Context) {
	actor := middleware.ActorFromContext(c)

	doctors, err := h.doctorSvc.ListByClinic(c.Request.Context(), actor.ClinicID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"doctors": doctors,
	}))
}

func (h *Handler) GetReservation(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid reservation ID"))
		return
	}

	reservation, err := h.service.Get(c.Request.Context(), middleware.ActorFromContext(c), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"reservation": reservation,
	}))
}

func (h *Handler) UpdateReservation(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid reservation ID"))
		return
	}

	var req model.UpdateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}
	if fields, err := h.validate.Struct(&req); err != nil || fields != nil {
		handler.RespondError(c, apperrors.Validation("the given data was invalid", fields))
		return
	}

	reservation, err := h.service.UpdateDetails(c.Request.Context(), middleware.ActorFromContext(c), id, &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"reservation": reservation,
	}))
}

func (h *Handler) UpdateReservationWithUserInfo(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid reservation ID"))
		return
	}

	var req model.UpdateReservationWithUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}
	if fields, err := h.validate.Struct(&req); err != nil || fields != nil {
		handler.RespondError(c, apperrors.Validation("the given data was invalid", fields))
		return
	}

	reservation, err := h.service.UpdateDetailsWithUserInfo(c.Request.Context(), middleware.ActorFromContext(c), id, &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"reservation": reservation,
	}))
}

func (h *Handler) RecordPayment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid reservation ID"))
		return
	}

	var req model.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}
	if fields, err := h.validate.Struct(&req); err != nil || fields != nil {
		handler.RespondError(c, apperrors.Validation("the given data was invalid", fields))
		return
	}

	reservation, err := h.service.RecordPayment(c.Request.Context(), middleware.ActorFromContext(c), id, &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"reservation": reservation,
	}))
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid reservation ID"))
		return
	}

	status, err := model.ParseReservationStatus(c.Param("status"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	reservation, err := h.service.SetStatus(c.Request.Context(), id, status)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"reservation": reservation,
	}))
}

func (h *Handler) DeleteReservation(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid reservation ID"))
		return
	}

	if err := h.service.Delete(c.Request.Context(), middleware.ActorFromContext(c), id); err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"id": id,
	}))
}

// UploadPhoto stores a reservation attachment and returns its path. The
// upload is outside the workflow's transactional contract.
func (h *Handler) UploadPhoto(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("file is required"))
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("could not read file"))
		return
	}
	defer src.Close()

	path, err := h.storage.Save(uploadPhotoDir, file.Filename, src)
	if err != nil {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("could not store photo"))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"photo": path,
	}))
}

func (h *Handler) parseFilters(c *gin.Context, clinicID uuid.UUID) (*model.ReservationFilters, error) {
	filters := &model.ReservationFilters{ClinicID: clinicID}

	if id := c.Query("doctor_id"); id != "" {
		doctorID, err := uuid.Parse(id)
		if err != nil {
			return nil, apperrors.BadRequest("invalid doctor ID", err)
		}
		filters.DoctorID = doctorID
	}

	if status := c.Query("status"); status != "" {
		parsed, err := model.ParseReservationStatus(status)
		if err != nil {
			return nil, apperrors.BadRequest("invalid status", err)
		}
		filters.Status = parsed
	}

	if confirmed := c.Query("confirmed"); confirmed != "" {
		v := confirmed == "true" || confirmed == "1"
		filters.Confirmed = &v
	}

	if date := c.Query("start_date"); date != "" {
		parsed, err := time.Parse("2006-01-02", date)
		if err != nil {
			return nil, apperrors.BadRequest("invalid start date", err)
		}
		filters.StartDate = parsed
	}

	if date := c.Query("end_date"); date != "" {
		parsed, err := time.Parse("2006-01-02", date)
		if err != nil {
			return nil, apperrors.BadRequest("invalid end date", err)
		}
		filters.EndDate = parsed
	}

	return filters, nil
}
