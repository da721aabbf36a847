package handover

import (
	"errors"
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
	readGroup.GET("/handovers", h.List)
	readGroup.GET("/handovers/:id", h.Get)
	readGroup.GET("/handovers/:id/progress", h.Progress)

	writeGroup := api.Group("", auth.RequireRole("admin", "nurse"))
	writeGroup.POST("/handovers", h.Create)
	writeGroup.POST("/handovers/:id/submit", h.Submit)
	writeGroup.POST("/handovers/:id/patients/:patientId/review", h.ReviewPatient)
	writeGroup.POST("/handovers/:id/clarifications", h.RequestClarification)
	writeGroup.POST("/handovers/clarifications/:clarificationId/answer", h.AnswerClarification)
	writeGroup.POST("/handovers/:id/acknowledge", h.Acknowledge)
}

// domainError maps the typed service errors onto transport codes. An
// acknowledged handover is a conflict; an incomplete review gate is 422.
func domainError(err error) error {
	if errors.Is(err, ErrFinalized) {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	var incomplete *IncompleteReviewError
	if errors.As(err, &incomplete) {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, map[string]interface{}{
			"error":    incomplete.Error(),
			"reviewed": incomplete.Reviewed,
			"total":    incomplete.Total,
		})
	}
	var wrongState *WrongStateError
	if errors.As(err, &wrongState) {
		return echo.NewHTTPError(http.StatusConflict, wrongState.Error())
	}
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "handover not found")
	}
	return echo.NewHTTPError(http.StatusBadRequest, err.Error())
}

func (h *Handler) Create(c echo.Context) error {
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.OutgoingNurse == "" {
		req.OutgoingNurse = auth.UserIDFromContext(c.Request().Context())
	}
	created, err := h.svc.Create(c.Request().Context(), req)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	detail, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, detail)
}

func (h *Handler) List(c echo.Context) error {
	ward := c.QueryParam("ward")
	if ward == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "ward query parameter is required")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByWard(c.Request().Context(), ward, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Submit(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	updated, err := h.svc.Submit(c.Request().Context(), id)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, updated)
}

type reviewRequest struct {
	// Omitting the field checks the entry; sending false unchecks it.
	Reviewed *bool `json:"reviewed,omitempty"`
}

func (h *Handler) ReviewPatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	patientID, err := uuid.Parse(c.Param("patientId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	var req reviewRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	reviewed := true
	if req.Reviewed != nil {
		reviewed = *req.Reviewed
	}
	userID := auth.UserIDFromContext(c.Request().Context())
	review, err := h.svc.ReviewPatient(c.Request().Context(), id, patientID, userID, reviewed)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, review)
}

func (h *Handler) Progress(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	progress, err := h.svc.Progress(c.Request().Context(), id)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, progress)
}

type clarificationRequest struct {
	PatientID *uuid.UUID `json:"patient_id,omitempty"`
	Question  string     `json:"question"`
}

func (h *Handler) RequestClarification(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req clarificationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	userID := auth.UserIDFromContext(c.Request().Context())
	clar, err := h.svc.RequestClarification(c.Request().Context(), id, req.PatientID, req.Question, userID)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusCreated, clar)
}

type answerRequest struct {
	Answer string `json:"answer"`
}

func (h *Handler) AnswerClarification(c echo.Context) error {
	id, err := uuid.Parse(c.Param("clarificationId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req answerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	userID := auth.UserIDFromContext(c.Request().Context())
	clar, err := h.svc.AnswerClarification(c.Request().Context(), id, req.Answer, userID)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, clar)
}

type acknowledgeRequest struct {
	Notes string `json:"notes"`
}

func (h *Handler) Acknowledge(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req acknowledgeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	userID := auth.UserIDFromContext(c.Request().Context())
	updated, err := h.svc.Acknowledge(c.Request().Context(), id, userID, req.Notes)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, updated)
}
