package remotelink

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinimetric/clinimetric/internal/domain/assessment"
	"github.com/clinimetric/clinimetric/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the staff-facing issuing endpoints on the
// authenticated API group.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole("admin", "clinician", "assistant"))
	g.POST("/sessions/:id/remote-link", h.IssueLink)
	g.GET("/sessions/:id/remote-link", h.ListSessionTokens)
}

// RegisterPublicRoutes mounts the patient-facing endpoints outside
// authentication: the signed credential is the patient's only key, for
// rendering and for driving the session.
func (h *Handler) RegisterPublicRoutes(e *echo.Echo) {
	e.GET("/remote/:credential", h.Redeem)
	e.POST("/remote/:credential/instructions/ack", h.AcknowledgeInstructions)
	e.POST("/remote/:credential/responses", h.RecordResponse)
	e.POST("/remote/:credential/back", h.Back)
	e.POST("/remote/:credential/complete", h.Complete)
}

type issueRequest struct {
	ExpiresInHours int `json:"expires_in_hours"`
	MaxUses        int `json:"max_uses"`
}

func (h *Handler) IssueLink(c echo.Context) error {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req issueRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	issued, err := h.svc.Issue(c.Request().Context(), sessionID,
		time.Duration(req.ExpiresInHours)*time.Hour, req.MaxUses)
	if err != nil {
		if errors.Is(err, assessment.ErrSessionClosed) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	return c.JSON(http.StatusCreated, issued)
}

func (h *Handler) ListSessionTokens(c echo.Context) error {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	tokens, err := h.svc.ListSessionTokens(c.Request().Context(), sessionID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, tokens)
}

func (h *Handler) Redeem(c echo.Context) error {
	remote, err := h.svc.Redeem(c.Request().Context(), c.Param("credential"))
	if err != nil {
		return remoteError(err)
	}
	return c.JSON(http.StatusOK, remote)
}

func (h *Handler) AcknowledgeInstructions(c echo.Context) error {
	remote, err := h.svc.AcknowledgeInstructions(c.Request().Context(), c.Param("credential"))
	if err != nil {
		return remoteError(err)
	}
	return c.JSON(http.StatusOK, remote)
}

type recordRequest struct {
	Item  int    `json:"item"`
	Value string `json:"value"`
}

func (h *Handler) RecordResponse(c echo.Context) error {
	var req recordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	remote, err := h.svc.RecordResponse(c.Request().Context(), c.Param("credential"), req.Item, req.Value)
	if err != nil {
		return remoteError(err)
	}
	return c.JSON(http.StatusOK, remote)
}

func (h *Handler) Back(c echo.Context) error {
	remote, err := h.svc.Back(c.Request().Context(), c.Param("credential"))
	if err != nil {
		return remoteError(err)
	}
	return c.JSON(http.StatusOK, remote)
}

func (h *Handler) Complete(c echo.Context) error {
	remote, err := h.svc.Complete(c.Request().Context(), c.Param("credential"))
	if err != nil {
		return remoteError(err)
	}
	return c.JSON(http.StatusOK, remote)
}

func remoteError(err error) error {
	switch {
	case errors.Is(err, ErrTokenUnknown):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrTokenExpired), errors.Is(err, ErrTokenExhausted),
		errors.Is(err, assessment.ErrSessionClosed):
		return echo.NewHTTPError(http.StatusGone, err.Error())
	case errors.Is(err, assessment.ErrInvalidTransition),
		errors.Is(err, assessment.ErrIncompleteResponseSet):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return echo.NewHTTPError(http.StatusBadRequest, err.Error())
}
