package patient

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ward/ward/internal/platform/apierr"
	"github.com/ward/ward/internal/platform/auth"
	"github.com/ward/ward/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Read endpoints – every ward role
	readGroup := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleDoctor, auth.RoleNurse))
	readGroup.GET("/patients", h.ListPatients)
	readGroup.GET("/patients/:id", h.GetPatient)
	readGroup.GET("/patients/:id/staff", h.ListAssignments)
	readGroup.GET("/patients/:id/nursing-notes", h.ListNursingNotes)
	readGroup.GET("/patients/:id/vitals", h.ListVitals)

	// Bedside charting – doctors and nurses
	chartGroup := api.Group("", auth.RequireRole(auth.RoleDoctor, auth.RoleNurse))
	chartGroup.POST("/patients/:id/nursing-notes", h.AddNursingNote)
	chartGroup.POST("/patients/:id/vitals", h.RecordVitals)

	// Administration – admin only
	writeGroup := api.Group("", auth.RequireRole(auth.RoleAdmin))
	writeGroup.POST("/patients", h.CreatePatient)
	writeGroup.PUT("/patients/:id", h.UpdatePatient)
	writeGroup.DELETE("/patients/:id", h.DeletePatient)
	writeGroup.POST("/patients/:id/discharge", h.DischargePatient)
	writeGroup.PUT("/patients/:id/staff", h.AssignStaff)
	writeGroup.DELETE("/patients/:id/staff/:role", h.RemoveAssignment)
	writeGroup.DELETE("/nursing-notes/:id", h.DeleteNursingNote)
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// recorder returns the signed-in user as a uuid, or nil when the subject
// is not one.
func recorder(c echo.Context) *uuid.UUID {
	id, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return nil
	}
	return &id
}

// -- Patient Handlers --

func (h *Handler) CreatePatient(c echo.Context) error {
	var p Patient
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreatePatient(c.Request().Context(), &p); err != nil {
		return apierr.HTTP(err, "patient")
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	p, err := h.svc.GetPatient(c.Request().Context(), id)
	if err != nil {
		return apierr.HTTP(err, "patient")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := PatientFilter{Search: c.QueryParam("q")}
	if v := c.QueryParam("include_discharged"); v != "" {
		include, err := strconv.ParseBool(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid include_discharged flag")
		}
		f.IncludeDischarged = include
	}
	items, total, err := h.svc.ListPatients(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return apierr.HTTP(err, "patient")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var p Patient
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.ID = id
	if err := h.svc.UpdatePatient(c.Request().Context(), &p); err != nil {
		return apierr.HTTP(err, "patient")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) DeletePatient(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeletePatient(c.Request().Context(), id); err != nil {
		return apierr.HTTP(err, "patient")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) DischargePatient(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	p, err := h.svc.DischargePatient(c.Request().Context(), id)
	if err != nil {
		return apierr.HTTP(err, "patient")
	}
	return c.JSON(http.StatusOK, p)
}

// -- Staff Assignment Handlers --

type assignRequest struct {
	StaffID uuid.UUID `json:"staff_id"`
	Role    string    `json:"role"`
}

func (h *Handler) AssignStaff(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req assignRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.AssignStaff(c.Request().Context(), id, req.StaffID, req.Role)
	if err != nil {
		return apierr.HTTP(err, "assignment")
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) ListAssignments(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	items, err := h.svc.ListAssignments(c.Request().Context(), id)
	if err != nil {
		return apierr.HTTP(err, "assignment")
	}
	if items == nil {
		items = []*StaffAssignment{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) RemoveAssignment(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.RemoveAssignment(c.Request().Context(), id, c.Param("role")); err != nil {
		return apierr.HTTP(err, "assignment")
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Nursing Note Handlers --

func (h *Handler) AddNursingNote(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var n NursingNote
	if err := c.Bind(&n); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	n.PatientID = id
	n.RecordedBy = recorder(c)
	if err := h.svc.AddNursingNote(c.Request().Context(), &n); err != nil {
		return apierr.HTTP(err, "nursing note")
	}
	return c.JSON(http.StatusCreated, n)
}

func (h *Handler) ListNursingNotes(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListNursingNotes(c.Request().Context(), id, pg.Limit, pg.Offset)
	if err != nil {
		return apierr.HTTP(err, "nursing note")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) DeleteNursingNote(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteNursingNote(c.Request().Context(), id); err != nil {
		return apierr.HTTP(err, "nursing note")
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Vital Sign Handlers --

func (h *Handler) RecordVitals(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var v VitalSign
	if err := c.Bind(&v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	v.PatientID = id
	v.RecordedBy = recorder(c)
	if err := h.svc.RecordVitals(c.Request().Context(), &v); err != nil {
		return apierr.HTTP(err, "vital sign")
	}
	return c.JSON(http.StatusCreated, v)
}

func (h *Handler) ListVitals(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListVitals(c.Request().Context(), id, pg.Limit, pg.Offset)
	if err != nil {
		return apierr.HTTP(err, "vital sign")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
