package orders

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ward/ward/internal/platform/apierr"
	"github.com/ward/ward/internal/platform/auth"
	"github.com/ward/ward/pkg/pagination"
)

type Handler struct {
	svc *Service
	loc *time.Location
}

// NewHandler builds the order handlers. Date filters are interpreted as
// calendar days in loc.
func NewHandler(svc *Service, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.Local
	}
	return &Handler{svc: svc, loc: loc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Read endpoints – every ward role
	readGroup := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleDoctor, auth.RoleNurse))
	readGroup.GET("/medication-orders", h.ListMedicationOrders)
	readGroup.GET("/medication-orders/:id", h.GetMedicationOrder)
	readGroup.GET("/procedure-orders", h.ListProcedureOrders)
	readGroup.GET("/procedure-orders/:id", h.GetProcedureOrder)
	readGroup.GET("/investigation-orders", h.ListInvestigationOrders)
	readGroup.GET("/investigation-orders/:id", h.GetInvestigationOrder)

	// Prescribing – admins and doctors
	writeGroup := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleDoctor))
	writeGroup.POST("/medication-orders", h.CreateMedicationOrder)
	writeGroup.PUT("/medication-orders/:id", h.UpdateMedicationOrder)
	writeGroup.DELETE("/medication-orders/:id", h.DeleteMedicationOrder)
	writeGroup.POST("/procedure-orders", h.CreateProcedureOrder)
	writeGroup.PUT("/procedure-orders/:id", h.UpdateProcedureOrder)
	writeGroup.DELETE("/procedure-orders/:id", h.DeleteProcedureOrder)
	writeGroup.POST("/investigation-orders", h.CreateInvestigationOrder)
	writeGroup.PUT("/investigation-orders/:id", h.UpdateInvestigationOrder)
	writeGroup.DELETE("/investigation-orders/:id", h.DeleteInvestigationOrder)

	// Bedside completion – doctors and nurses
	completeGroup := api.Group("", auth.RequireRole(auth.RoleDoctor, auth.RoleNurse))
	completeGroup.PATCH("/medication-orders/:id/complete", h.CompleteMedicationOrder)
	completeGroup.PATCH("/procedure-orders/:id/complete", h.CompleteProcedureOrder)
	completeGroup.PATCH("/investigation-orders/:id/complete", h.CompleteInvestigationOrder)
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// actor returns the signed-in user as a uuid, or nil when the subject is
// not one.
func actor(c echo.Context) *uuid.UUID {
	id, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return nil
	}
	return &id
}

// ParseDay parses a YYYY-MM-DD query value into midnight of that day in loc.
func ParseDay(value string, loc *time.Location) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	day, err := time.ParseInLocation(dateLayout, value, loc)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "date must be YYYY-MM-DD")
	}
	return &day, nil
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
	day, err := ParseDay(c.QueryParam("date"), h.loc)
	if err != nil {
		return f, err
	}
	f.Day = day
	if v := c.QueryParam("pending"); v != "" {
		pending, err := strconv.ParseBool(v)
		if err != nil {
			return f, echo.NewHTTPError(http.StatusBadRequest, "invalid pending flag")
		}
		f.PendingOnly = pending
	}
	return f, nil
}

// -- Medication Order Handlers --

func (h *Handler) CreateMedicationOrder(c echo.Context) error {
	var o MedicationOrder
	if err := c.Bind(&o); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateMedicationOrder(c.Request().Context(), &o); err != nil {
		return apierr.HTTP(err, "medication order")
	}
	return c.JSON(http.StatusCreated, o)
}

func (h *Handler) GetMedicationOrder(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	o, err := h.svc.GetMedicationOrder(c.Request().Context(), id)
	if err != nil {
		return apierr.HTTP(err, "medication order")
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) ListMedicationOrders(c echo.Context) error {
	f, err := h.filterFromQuery(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListMedicationOrders(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return apierr.HTTP(err, "medication order")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateMedicationOrder(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var o MedicationOrder
	if err := c.Bind(&o); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	o.ID = id
	if err := h.svc.UpdateMedicationOrder(c.Request().Context(), &o); err != nil {
		return apierr.HTTP(err, "medication order")
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) DeleteMedicationOrder(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteMedicationOrder(c.Request().Context(), id); err != nil {
		return apierr.HTTP(err, "medication order")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) CompleteMedicationOrder(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	o, err := h.svc.CompleteMedicationOrder(c.Request().Context(), id, actor(c))
	if err != nil {
		return apierr.HTTP(err, "medication order")
	}
	return c.JSON(http.StatusOK, o)
}

// -- Procedure Order Handlers --

func (h *Handler) CreateProcedureOrder(c echo.Context) error {
	var o ProcedureOrder
	if err := c.Bind(&o); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateProcedureOrder(c.Request().Context(), &o); err != nil {
		return apierr.HTTP(err, "procedure order")
	}
	return c.JSON(http.StatusCreated, o)
}

func (h *Handler) GetProcedureOrder(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	o, err := h.svc.GetProcedureOrder(c.Request().Context(), id)
	if err != nil {
		return apierr.HTTP(err, "procedure order")
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) ListProcedureOrders(c echo.Context) error {
	f, err := h.filterFromQuery(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListProcedureOrders(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return apierr.HTTP(err, "procedure order")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateProcedureOrder(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var o ProcedureOrder
	if err := c.Bind(&o); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	o.ID = id
	if err := h.svc.UpdateProcedureOrder(c.Request().Context(), &o); err != nil {
		return apierr.HTTP(err, "procedure order")
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) DeleteProcedureOrder(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteProcedureOrder(c.Request().Context(), id); err != nil {
		return apierr.HTTP(err, "procedure order")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) CompleteProcedureOrder(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	o, err := h.svc.CompleteProcedureOrder(c.Request().Context(), id, actor(c))
	if err != nil {
		return apierr.HTTP(err, "procedure order")
	}
	return c.JSON(http.StatusOK, o)
}

// -- Investigation Order Handlers --

func (h *Handler) CreateInvestigationOrder(c echo.Context) error {
	var o InvestigationOrder
	if err := c.Bind(&o); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateInvestigationOrder(c.Request().Context(), &o); err != nil {
		return apierr.HTTP(err, "investigation order")
	}
	return c.JSON(http.StatusCreated, o)
}

func (h *Handler) GetInvestigationOrder(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	o, err := h.svc.GetInvestigationOrder(c.Request().Context(), id)
	if err != nil {
		return apierr.HTTP(err, "investigation order")
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) ListInvestigationOrders(c echo.Context) error {
	f, err := h.filterFromQuery(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListInvestigationOrders(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return apierr.HTTP(err, "investigation order")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateInvestigationOrder(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var o InvestigationOrder
	if err := c.Bind(&o); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	o.ID = id
	if err := h.svc.UpdateInvestigationOrder(c.Request().Context(), &o); err != nil {
		return apierr.HTTP(err, "investigation order")
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) DeleteInvestigationOrder(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteInvestigationOrder(c.Request().Context(), id); err != nil {
		return apierr.HTTP(err, "investigation order")
	}
	return c.NoContent(http.StatusNoContent)
}

type completeInvestigationRequest struct {
	ResultValue *string `json:"result_value"`
}

func (h *Handler) CompleteInvestigationOrder(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req completeInvestigationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	o, err := h.svc.CompleteInvestigationOrder(c.Request().Context(), id, actor(c), req.ResultValue)
	if err != nil {
		return apierr.HTTP(err, "investigation order")
	}
	return c.JSON(http.StatusOK, o)
}
