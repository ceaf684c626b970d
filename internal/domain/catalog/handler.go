package catalog

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinimetric/clinimetric/internal/platform/auth"
	"github.com/clinimetric/clinimetric/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole("admin", "clinician", "assistant"))
	readGroup.GET("/scales", h.ListScales)
	readGroup.GET("/scales/:id", h.GetScale)
	readGroup.GET("/scales/:id/items/:number/options", h.GetItemOptions)

	// Catalog authoring is an external pipeline; these endpoints are its
	// ingestion surface.
	writeGroup := api.Group("", auth.RequireRole("admin"))
	writeGroup.POST("/scales", h.CreateScale)
	writeGroup.PUT("/scales/:id", h.UpdateScale)
	writeGroup.POST("/scales/:id/publish", h.PublishScale)
	writeGroup.DELETE("/scales/:id", h.DeleteScale)
}

func (h *Handler) CreateScale(c echo.Context) error {
	var d ScaleDefinition
	if err := c.Bind(&d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateScale(c.Request().Context(), &d); err != nil {
		var verrs ValidationErrors
		if errors.As(err, &verrs) {
			return c.JSON(http.StatusUnprocessableEntity, map[string]interface{}{
				"error":  "definition invalid",
				"errors": verrs,
			})
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) GetScale(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	d, err := h.svc.GetScale(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "scale not found")
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) ListScales(c echo.Context) error {
	pg := pagination.FromContext(c)
	ctx := c.Request().Context()
	if c.QueryParam("published") == "true" {
		items, total, err := h.svc.ListPublishedScales(ctx, pg.Limit, pg.Offset)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
	}
	items, total, err := h.svc.ListScales(ctx, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetItemOptions(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	number, err := strconv.Atoi(c.Param("number"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid item number")
	}
	options, err := h.svc.ItemOptions(c.Request().Context(), id, number)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.JSON(http.StatusOK, options)
}

func (h *Handler) UpdateScale(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var d ScaleDefinition
	if err := c.Bind(&d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	d.ID = id
	if err := h.svc.UpdateScale(c.Request().Context(), &d); err != nil {
		var verrs ValidationErrors
		switch {
		case errors.As(err, &verrs):
			return c.JSON(http.StatusUnprocessableEntity, map[string]interface{}{
				"error":  "definition invalid",
				"errors": verrs,
			})
		case errors.Is(err, ErrPublished):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) PublishScale(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	d, err := h.svc.PublishScale(c.Request().Context(), id)
	if err != nil {
		var verrs ValidationErrors
		if errors.As(err, &verrs) {
			return c.JSON(http.StatusUnprocessableEntity, map[string]interface{}{
				"error":  "definition invalid",
				"errors": verrs,
			})
		}
		return echo.NewHTTPError(http.StatusNotFound, "scale not found")
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) DeleteScale(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteScale(c.Request().Context(), id); err != nil {
		if errors.Is(err, ErrPublished) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusNotFound, "scale not found")
	}
	return c.NoContent(http.StatusNoContent)
}
