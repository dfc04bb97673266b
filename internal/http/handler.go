package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"plate-resolver/internal/domain/plate"
	"plate-resolver/internal/service"
)

type Handler struct {
	carService *service.CarService
	log        zerolog.Logger
}

func NewHandler(carService *service.CarService, log zerolog.Logger) *Handler {
	return &Handler{
		carService: carService,
		log:        log,
	}
}

func (h *Handler) Register(r *gin.Engine, authMiddleware gin.HandlerFunc) {
	public := r.Group("/api/v1")
	{
		public.GET("/cars", h.listCars)
		public.GET("/cars/first-location", h.firstLocation)
		public.GET("/cars/:id", h.getCar)
		public.GET("/makes", h.listMakes)
		public.GET("/models", h.listModels)
		public.GET("/years", h.listYears)
	}

	protected := r.Group("/api/v1")
	protected.Use(authMiddleware)
	{
		protected.PUT("/cars/:id", h.updateCar)
		protected.DELETE("/cars/:id", h.deleteCar)
	}
}

func (h *Handler) listCars(c *gin.Context) {
	q := service.ListQuery{
		Make:      c.Query("make"),
		Model:     c.Query("model"),
		Color:     c.Query("color"),
		Plate:     c.Query("license_plate"),
		StartYear: c.Query("start_year"),
		EndYear:   c.Query("end_year"),
		StartDate: c.Query("start_date"),
		EndDate:   c.Query("end_date"),
		Success:   c.Query("success"),
	}
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			q.Limit = parsed
		}
	}
	if o := c.Query("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			q.Offset = parsed
		}
	}

	cars, err := h.carService.ListCars(c.Request.Context(), q)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(cars))
}

func (h *Handler) getCar(c *gin.Context) {
	id, ok := h.carID(c)
	if !ok {
		return
	}
	car, err := h.carService.GetCar(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(car))
}

func (h *Handler) firstLocation(c *gin.Context) {
	loc, err := h.carService.FirstLocation(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(loc))
}

func (h *Handler) listMakes(c *gin.Context) {
	makes, err := h.carService.Makes(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(makes))
}

func (h *Handler) listModels(c *gin.Context) {
	models, err := h.carService.Models(c.Request.Context(), c.Query("make"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(models))
}

func (h *Handler) listYears(c *gin.Context) {
	years, err := h.carService.Years(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(years))
}

func (h *Handler) updateCar(c *gin.Context) {
	id, ok := h.carID(c)
	if !ok {
		return
	}
	var update plate.CarUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	if err := h.carService.UpdateCar(c.Request.Context(), id, update); err != nil {
		h.handleError(c, err)
		return
	}
	h.log.Info().Int64("car_id", id).Str("subject", c.GetString(subjectKey)).Msg("car corrected")
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) deleteCar(c *gin.Context) {
	id, ok := h.carID(c)
	if !ok {
		return
	}
	if err := h.carService.DeleteCar(c.Request.Context(), id); err != nil {
		h.handleError(c, err)
		return
	}
	h.log.Info().Int64("car_id", id).Str("subject", c.GetString(subjectKey)).Msg("car removed")
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) carID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, errorResponse("invalid car id"))
		return 0, false
	}
	return id, true
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse(err.Error()))
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("handler error")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
	}
}

func successResponse(data interface{}) gin.H {
	return gin.H{
		"data": data,
	}
}

func errorResponse(message string) gin.H {
	return gin.H{
		"error": message,
	}
}
