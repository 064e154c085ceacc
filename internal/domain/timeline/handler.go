package timeline

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ward/ward/internal/domain/orders"
	"github.com/ward/ward/internal/platform/apierr"
	"github.com/ward/ward/internal/platform/auth"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleDoctor, auth.RoleNurse))
	g.GET("/timeline", h.GetTimeline)
	g.GET("/timeline/export", h.ExportTimeline)
	g.GET("/notifications/pending", h.GetPendingNotifications)
}

func (h *Handler) filterFromQuery(c echo.Context) (Filter, error) {
	var f Filter
	if v := c.QueryParam("patient_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return f, echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		f.PatientID = &id
	}
	day, err := orders.ParseDay(c.QueryParam("date"), h.svc.loc)
	if err != nil {
		return f, err
	}
	f.Date = day
	return f, nil
}

func (h *Handler) GetTimeline(c echo.Context) error {
	f, err := h.filterFromQuery(c)
	if err != nil {
		return err
	}
	rows, err := h.svc.Timeline(c.Request().Context(), f)
	if err != nil {
		return apierr.HTTP(err, "timeline")
	}
	return c.JSON(http.StatusOK, rows)
}

func (h *Handler) ExportTimeline(c echo.Context) error {
	f, err := h.filterFromQuery(c)
	if err != nil {
		return err
	}
	rows, err := h.svc.Timeline(c.Request().Context(), f)
	if err != nil {
		return apierr.HTTP(err, "timeline")
	}
	data, err := RenderXLSX(rows)
	if err != nil {
		return apierr.HTTP(err, "timeline")
	}

	day := h.svc.now().In(h.svc.loc)
	if f.Date != nil {
		day = *f.Date
	}
	filename := fmt.Sprintf("timeline-%s.xlsx", day.Format(time.DateOnly))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, xlsxContentType, data)
}

func (h *Handler) GetPendingNotifications(c echo.Context) error {
	items, err := h.svc.PendingNotifications(c.Request().Context(), c.QueryParam("type"))
	if err != nil {
		return apierr.HTTP(err, "notification")
	}
	return c.JSON(http.StatusOK, items)
}
