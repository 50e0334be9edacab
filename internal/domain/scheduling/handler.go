package scheduling

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Read endpoints – admin, physician, nurse, registrar
	readGroup := api.Group("", auth.RequireRole("admin", "physician", "nurse", "registrar"))
	readGroup.GET("/doctors", h.ListDoctors)
	readGroup.GET("/specialties", h.ListSpecialties)
	readGroup.GET("/appointments", h.ListAppointments)

	// Write endpoints – admin, registrar
	writeGroup := api.Group("", auth.RequireRole("admin", "registrar"))
	writeGroup.POST("/doctors", h.CreateDoctor)
	writeGroup.POST("/appointments", h.CreateAppointment)
}

// httpError maps service and repository failures onto HTTP statuses.
func httpError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, ErrInvalidAppointment), errors.Is(err, ErrInvalidDoctor):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrAppointmentRejected):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrConnection):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "store unavailable").SetInternal(err)
	case errors.Is(err, ErrReferentialIntegrity):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "referenced doctor or patient does not exist").SetInternal(err)
	case errors.Is(err, ErrConstraintViolation), errors.Is(err, ErrNotFoundAfterConflict):
		return echo.NewHTTPError(http.StatusConflict, "conflicting write, retry the request").SetInternal(err)
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
	}
}

// -- Doctors --

func (h *Handler) CreateDoctor(c echo.Context) error {
	var d Doctor
	if err := c.Bind(&d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	saved, err := h.svc.RegisterDoctor(c.Request().Context(), d)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, saved)
}

func (h *Handler) ListDoctors(c echo.Context) error {
	specialty := c.QueryParam("specialty")
	if specialty == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "specialty query parameter is required")
	}
	doctors, err := h.svc.ListDoctorsBySpecialty(c.Request().Context(), specialty)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.Page(doctors, pagination.FromContext(c)))
}

func (h *Handler) ListSpecialties(c echo.Context) error {
	specialties, err := h.svc.ListSpecialties(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": specialties})
}

// -- Appointments --

func (h *Handler) CreateAppointment(c echo.Context) error {
	var a Appointment
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	saved, err := h.svc.BookAppointment(c.Request().Context(), a)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, saved)
}

func (h *Handler) ListAppointments(c echo.Context) error {
	appts, err := h.svc.ListAppointments(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.Page(appts, pagination.FromContext(c)))
}
