package mar

import (
	"errors"
	"net/http"
	"time"

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
	readGroup.GET("/mar/admissions/:admissionId/doses", h.GetSchedule)
	readGroup.GET("/mar/admissions/:admissionId/overdue", h.ListOverdue)
	readGroup.GET("/mar/doses/:id", h.GetDose)
	readGroup.POST("/mar/doses/:id/safety-check", h.SafetyCheck)

	writeGroup := api.Group("", auth.RequireRole("admin", "nurse"))
	writeGroup.POST("/mar/schedules", h.CreateSchedule)
	writeGroup.POST("/mar/doses/:id/administer", h.Administer)
	writeGroup.POST("/mar/doses/:id/hold", h.Hold)
	writeGroup.POST("/mar/doses/:id/refuse", h.Refuse)
	writeGroup.POST("/mar/doses/:id/supersede", h.Supersede)
}

// domainError maps the typed service errors onto transport codes: conflicts
// on finalized doses are 409, safety and rights rejections are 422, bad
// reasons are 400.
func domainError(err error) error {
	var finalized *AlreadyFinalizedError
	if errors.As(err, &finalized) {
		return echo.NewHTTPError(http.StatusConflict, map[string]interface{}{
			"error":  finalized.Error(),
			"status": finalized.Status,
		})
	}
	var blocked *BlockedBySafetyError
	if errors.As(err, &blocked) {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, map[string]interface{}{
			"error":    blocked.Error(),
			"blockers": blocked.Blockers,
		})
	}
	var rights *RightsNotVerifiedError
	if errors.As(err, &rights) {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, map[string]interface{}{
			"error":   rights.Error(),
			"missing": rights.Missing,
		})
	}
	var reason *InvalidReasonError
	if errors.As(err, &reason) {
		return echo.NewHTTPError(http.StatusBadRequest, reason.Error())
	}
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "dose not found")
	}
	return echo.NewHTTPError(http.StatusBadRequest, err.Error())
}

func (h *Handler) CreateSchedule(c echo.Context) error {
	var req CreateScheduleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	created, err := h.svc.CreateSchedule(c.Request().Context(), req)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"count": len(created),
		"data":  created,
	})
}

func (h *Handler) GetDose(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	d, err := h.svc.GetDose(c.Request().Context(), id)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) GetSchedule(c echo.Context) error {
	admissionID, err := uuid.Parse(c.Param("admissionId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid admission id")
	}
	pg := pagination.FromContext(c)

	var filter ScheduleFilter
	if date := c.QueryParam("date"); date != "" {
		day, err := time.Parse("2006-01-02", date)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		}
		filter.Date = &day
	}
	if status := c.QueryParam("status"); status != "" {
		st := Status(status)
		if !validStatuses[st] {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid status")
		}
		filter.Status = st
	}

	items, total, err := h.svc.GetSchedule(c.Request().Context(), admissionID, filter, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListOverdue(c echo.Context) error {
	admissionID, err := uuid.Parse(c.Param("admissionId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid admission id")
	}
	items, err := h.svc.ListOverdue(c.Request().Context(), admissionID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"count": len(items),
		"data":  items,
	})
}

func (h *Handler) SafetyCheck(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	verdict, err := h.svc.SafetyCheck(c.Request().Context(), id)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, verdict)
}

func (h *Handler) Administer(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req AdministerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	userID := auth.UserIDFromContext(c.Request().Context())
	d, err := h.svc.Administer(c.Request().Context(), id, req, userID)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, d)
}

type holdRequest struct {
	Reason  string `json:"reason"`
	Details string `json:"details"`
}

func (h *Handler) Hold(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req holdRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	userID := auth.UserIDFromContext(c.Request().Context())
	d, err := h.svc.Hold(c.Request().Context(), id, req.Reason, req.Details, userID)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, d)
}

type refuseRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) Refuse(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req refuseRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	userID := auth.UserIDFromContext(c.Request().Context())
	d, err := h.svc.Refuse(c.Request().Context(), id, req.Reason, userID)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, d)
}

type supersedeRequest struct {
	ScheduledTime time.Time `json:"scheduled_time"`
}

func (h *Handler) Supersede(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req supersedeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.ScheduledTime.IsZero() {
		return echo.NewHTTPError(http.StatusBadRequest, "scheduled_time is required")
	}
	d, err := h.svc.Supersede(c.Request().Context(), id, req.ScheduledTime)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusCreated, d)
}
