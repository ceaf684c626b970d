package assessment

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinimetric/clinimetric/internal/domain/catalog"
	"github.com/clinimetric/clinimetric/internal/platform/auth"
	"github.com/clinimetric/clinimetric/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func actor(c echo.Context) string {
	return auth.UserIDFromContext(c.Request().Context())
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole("admin", "clinician", "assistant"))
	g.POST("/sessions", h.StartSession)
	g.GET("/sessions", h.ListSessions)
	g.GET("/sessions/:id", h.GetSession)
	g.POST("/sessions/:id/configure", h.ConfigureSession)
	g.POST("/sessions/:id/instructions/ack", h.AcknowledgeInstructions)
	g.POST("/sessions/:id/responses", h.RecordResponse)
	g.POST("/sessions/:id/back", h.Back)
	g.POST("/sessions/:id/score", h.CompleteAndScore)
	g.POST("/sessions/:id/cancel", h.Cancel)
	g.GET("/sessions/:id/result", h.GetResult)
	g.GET("/patients/:id/sessions", h.ListPatientSessions)
	g.GET("/patients/:id/results", h.ListPatientResults)
}

type startSessionRequest struct {
	ScaleID uuid.UUID `json:"scale_id"`
}

func (h *Handler) StartSession(c echo.Context) error {
	var req startSessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.ScaleID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "scale_id is required")
	}
	sess, err := h.svc.StartSession(c.Request().Context(), req.ScaleID, actor(c))
	if err != nil {
		if errors.Is(err, catalog.ErrNotAdministrable) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusNotFound, "scale not found")
	}
	return c.JSON(http.StatusCreated, sess)
}

func (h *Handler) GetSession(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	sess, err := h.svc.GetSession(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	return c.JSON(http.StatusOK, sess)
}

func (h *Handler) ListSessions(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListSessions(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

type configureRequest struct {
	PatientID uuid.UUID `json:"patient_id"`
	Mode      string    `json:"mode"`
	Delivery  string    `json:"delivery"`
}

func (h *Handler) ConfigureSession(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req configureRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sess, err := h.svc.ConfigureSession(c.Request().Context(), id, actor(c), ConfigureInput{
		PatientID: req.PatientID,
		Mode:      req.Mode,
		Delivery:  req.Delivery,
	})
	if err != nil {
		return sessionError(err)
	}
	return c.JSON(http.StatusOK, sess)
}

func (h *Handler) AcknowledgeInstructions(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	sess, err := h.svc.AcknowledgeInstructions(c.Request().Context(), id, actor(c))
	if err != nil {
		return sessionError(err)
	}
	return c.JSON(http.StatusOK, sess)
}

type recordResponseRequest struct {
	ItemNumber int    `json:"item_number"`
	Value      string `json:"value"`
}

func (h *Handler) RecordResponse(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req recordResponseRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sess, err := h.svc.RecordResponse(c.Request().Context(), id, actor(c), req.ItemNumber, req.Value)
	if err != nil {
		return sessionError(err)
	}
	return c.JSON(http.StatusOK, sess)
}

func (h *Handler) Back(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	sess, err := h.svc.Back(c.Request().Context(), id, actor(c))
	if err != nil {
		return sessionError(err)
	}
	return c.JSON(http.StatusOK, sess)
}

func (h *Handler) CompleteAndScore(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	result, err := h.svc.CompleteAndScore(c.Request().Context(), id, actor(c))
	if err != nil {
		// A banding defect still produced a persisted result; return it with
		// the failure so the operator sees what happened.
		if errors.Is(err, ErrNoMatchingInterpretation) && result != nil {
			return c.JSON(http.StatusInternalServerError, map[string]interface{}{
				"error":  err.Error(),
				"result": result,
			})
		}
		return sessionError(err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) Cancel(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	sess, err := h.svc.Cancel(c.Request().Context(), id, actor(c))
	if err != nil {
		return sessionError(err)
	}
	return c.JSON(http.StatusOK, sess)
}

func (h *Handler) GetResult(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	result, err := h.svc.GetResult(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "result not found")
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) ListPatientSessions(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListSessionsByPatient(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListPatientResults(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListResultsByPatient(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

// sessionError maps domain errors onto HTTP statuses shared by every
// session-mutating endpoint.
func sessionError(err error) error {
	switch {
	case errors.Is(err, ErrNotSessionOwner):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrSessionClosed),
		errors.Is(err, ErrIncompleteResponseSet):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrScaleMismatch), errors.Is(err, ErrNoMatchingInterpretation):
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return echo.NewHTTPError(http.StatusBadRequest, err.Error())
}
