package app

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"clinic-service/internal/store"
)

// POST /users/:id/clients
func (a *App) CreateClientHandler(c *gin.Context) {
	userID := c.Param("id")
	var payload struct {
		Name    string `json:"name" binding:"required"`
		Email   string `json:"email" binding:"omitempty,email"`
		Phone   string `json:"phone"`
		Address string `json:"address"`
		Notes   string `json:"notes"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	client := store.Client{
		UserID:  userID,
		Name:    payload.Name,
		Email:   payload.Email,
		Phone:   payload.Phone,
		Address: payload.Address,
		Notes:   payload.Notes,
	}
	if err := a.Store.InsertClient(c.Request.Context(), &client); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, client)
}

// GET /users/:id/clients
func (a *App) ListClientsHandler(c *gin.Context) {
	clients, err := a.Store.ListClients(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, clients)
}

// GET /clients/:id
func (a *App) GetClientHandler(c *gin.Context) {
	client, err := a.Store.GetClient(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, client)
}

// PUT /users/:id/clients/:client_id
func (a *App) UpdateClientHandler(c *gin.Context) {
	var payload struct {
		Name    string `json:"name" binding:"required"`
		Email   string `json:"email" binding:"omitempty,email"`
		Phone   string `json:"phone"`
		Address string `json:"address"`
		Notes   string `json:"notes"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	client := store.Client{
		ID:      c.Param("client_id"),
		UserID:  c.Param("id"),
		Name:    payload.Name,
		Email:   payload.Email,
		Phone:   payload.Phone,
		Address: payload.Address,
		Notes:   payload.Notes,
	}
	if err := a.Store.UpdateClient(c.Request.Context(), &client); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, client)
}

// DELETE /users/:id/clients/:client_id
func (a *App) DeleteClientHandler(c *gin.Context) {
	if err := a.Store.DeleteClient(c.Request.Context(), c.Param("id"), c.Param("client_id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// POST /users/:id/procedures
func (a *App) CreateProcedureHandler(c *gin.Context) {
	var payload struct {
		Name         string `json:"name" binding:"required"`
		Description  string `json:"description"`
		DurationMins int    `json:"duration_minutes" binding:"required,gt=0"`
		PriceCents   int64  `json:"price_cents" binding:"gte=0"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	procedure := store.Procedure{
		UserID:       c.Param("id"),
		Name:         payload.Name,
		Description:  payload.Description,
		DurationMins: payload.DurationMins,
		PriceCents:   payload.PriceCents,
	}
	if err := a.Store.InsertProcedure(c.Request.Context(), &procedure); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, procedure)
}

// GET /users/:id/procedures
func (a *App) ListProceduresHandler(c *gin.Context) {
	procedures, err := a.Store.ListProcedures(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, procedures)
}

// PUT /users/:id/procedures/:procedure_id
func (a *App) UpdateProcedureHandler(c *gin.Context) {
	var payload struct {
		Name         string `json:"name" binding:"required"`
		Description  string `json:"description"`
		DurationMins int    `json:"duration_minutes" binding:"required,gt=0"`
		PriceCents   int64  `json:"price_cents" binding:"gte=0"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	procedure := store.Procedure{
		ID:           c.Param("procedure_id"),
		UserID:       c.Param("id"),
		Name:         payload.Name,
		Description:  payload.Description,
		DurationMins: payload.DurationMins,
		PriceCents:   payload.PriceCents,
	}
	if err := a.Store.UpdateProcedure(c.Request.Context(), &procedure); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, procedure)
}

// DELETE /users/:id/procedures/:procedure_id
func (a *App) DeleteProcedureHandler(c *gin.Context) {
	if err := a.Store.DeleteProcedure(c.Request.Context(), c.Param("id"), c.Param("procedure_id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type createAppointmentReq struct {
	ClientID     string `json:"client_id" binding:"required"`
	ProcedureID  string `json:"procedure_id" binding:"required"`
	ScheduledAt  string `json:"scheduled_at" binding:"required"` // RFC3339
	DurationMins int    `json:"duration_minutes"`                // defaults to the procedure duration
	Notes        string `json:"notes"`
}

// POST /users/:id/appointments
func (a *App) CreateAppointmentHandler(c *gin.Context) {
	userID := c.Param("id")
	var req createAppointmentReq
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	scheduledAt, err := time.Parse(time.RFC3339, req.ScheduledAt)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid scheduled_at"})
		return
	}
	ctx := c.Request.Context()

	duration := req.DurationMins
	if duration <= 0 {
		procedure, err := a.Store.GetProcedure(ctx, req.ProcedureID)
		if err != nil {
			fail(c, err)
			return
		}
		duration = procedure.DurationMins
	}

	appointment := store.Appointment{
		UserID:       userID,
		ClientID:     req.ClientID,
		ProcedureID:  req.ProcedureID,
		ScheduledAt:  scheduledAt,
		DurationMins: duration,
		Status:       store.StatusScheduled,
		Notes:        req.Notes,
	}
	if err := a.Store.InsertAppointment(ctx, &appointment); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, appointment)
}

// GET /users/:id/appointments?from=ISO&to=ISO
func (a *App) ListAppointmentsHandler(c *gin.Context) {
	userID := c.Param("id")
	fromStr := c.Query("from")
	toStr := c.Query("to")

	if (fromStr != "") != (toStr != "") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from and to must be supplied together"})
		return
	}

	var (
		from time.Time
		to   time.Time
		err  error
	)
	if fromStr != "" && toStr != "" {
		from, err = time.Parse(time.RFC3339, fromStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from"})
			return
		}
		to, err = time.Parse(time.RFC3339, toStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to"})
			return
		}
		if !from.Before(to) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from must be before to"})
			return
		}
	}

	appointments, err := a.Store.ListAppointments(c.Request.Context(), userID, from, to, fromStr != "" && toStr != "")
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, appointments)
}

// GET /appointments/:id
func (a *App) GetAppointmentHandler(c *gin.Context) {
	appointment, err := a.Store.GetAppointment(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, appointment)
}

var validStatuses = map[string]bool{
	store.StatusScheduled: true,
	store.StatusConfirmed: true,
	store.StatusCompleted: true,
	store.StatusCancelled: true,
	store.StatusNoShow:    true,
}

// PATCH /users/:id/appointments/:appointment_id/status
func (a *App) UpdateAppointmentStatusHandler(c *gin.Context) {
	var payload struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !validStatuses[payload.Status] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}
	err := a.Store.UpdateAppointmentStatus(c.Request.Context(), c.Param("id"), c.Param("appointment_id"), payload.Status)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "status": payload.Status})
}

// GET /users/:id/reports/revenue?from=ISO&to=ISO
func (a *App) RevenueReportHandler(c *gin.Context) {
	from, err := time.Parse(time.RFC3339, c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from"})
		return
	}
	to, err := time.Parse(time.RFC3339, c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to"})
		return
	}
	if !from.Before(to) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from must be before to"})
		return
	}
	rows, err := a.Store.RevenueByPeriod(c.Request.Context(), c.Param("id"), from, to)
	if err != nil {
		fail(c, err)
		return
	}
	var total int64
	for _, r := range rows {
		total += r.RevenueCents
	}
	c.JSON(http.StatusOK, gin.H{
		"rows":                rows,
		"total_revenue_cents": total,
	})
}
