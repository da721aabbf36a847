package vitals

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicore/clinicore/internal/platform/auth"
	"github.com/clinicore/clinicore/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole("admin", "physician", "nurse"))
	readGroup.GET("/vitals", h.ListReadings)
	readGroup.GET("/vitals/:id", h.GetReading)

	writeGroup := api.Group("", auth.RequireRole("admin", "physician", "nurse"))
	writeGroup.POST("/vitals", h.RecordReading)
	writeGroup.POST("/vitals/evaluate", h.EvaluateReading)
}

func (h *Handler) RecordReading(c echo.Context) error {
	var r VitalReading
	if err := c.Bind(&r); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if r.RecordedBy == "" {
		r.RecordedBy = auth.UserIDFromContext(c.Request().Context())
	}
	if err := h.svc.Record(c.Request().Context(), &r); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, r)
}

// EvaluateReading classifies a reading without saving it. Entry forms use it
// for live range feedback.
func (h *Handler) EvaluateReading(c echo.Context) error {
	var r VitalReading
	if err := c.Bind(&r); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, h.svc.Evaluate(&r))
}

func (h *Handler) GetReading(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	r, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "vital reading not found")
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) ListReadings(c echo.Context) error {
	pg := pagination.FromContext(c)
	if admissionID := c.QueryParam("admission_id"); admissionID != "" {
		aid, err := uuid.Parse(admissionID)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid admission_id")
		}
		items, total, err := h.svc.ListByAdmission(c.Request().Context(), aid, pg.Limit, pg.Offset)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
	}
	patientID := c.QueryParam("patient_id")
	if patientID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "patient_id or admission_id is required")
	}
	pid, err := uuid.Parse(patientID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
	}
	items, total, err := h.svc.ListByPatient(c.Request().Context(), pid, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
