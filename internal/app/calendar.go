package app

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"clinic-service/internal/availability"
	"clinic-service/internal/gcal"
)

// GET /calendar/auth?user_id=...
func (a *App) GoogleAuthHandler(c *gin.Context) {
	if a.Connector == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "google calendar not configured"})
		return
	}
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id required"})
		return
	}
	// The state round-trips the user id through the provider redirect.
	c.JSON(http.StatusOK, gin.H{
		"auth_url": a.Connector.AuthURL(userID),
		"state":    userID,
	})
}

// GET /oauth2callback?code=...&state=...
func (a *App) OAuth2CallbackHandler(c *gin.Context) {
	if a.Connector == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "google calendar not configured"})
		return
	}
	code := c.Query("code")
	userID := c.Query("state")
	if code == "" || userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "authorization code and state required"})
		return
	}
	ctx := c.Request.Context()

	cred, err := a.Connector.Exchange(ctx, code)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	stored, err := a.Store.Credential(ctx, userID)
	if err != nil {
		fail(c, err)
		return
	}
	stored.AccessToken = cred.AccessToken
	stored.RefreshToken = cred.RefreshToken
	stored.CalendarID = cred.CalendarID
	if err := a.Store.SaveCredential(ctx, stored); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":     "google calendar connected",
		"calendar_id": cred.CalendarID,
	})
}

// POST /calendar/disconnect
func (a *App) DisconnectHandler(c *gin.Context) {
	var payload struct {
		UserID string `json:"user_id" binding:"required"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := a.Store.ClearCredential(c.Request.Context(), payload.UserID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// GET /calendar/events?user_id=...&time_min=ISO&time_max=ISO&max_results=N
func (a *App) ListEventsHandler(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id required"})
		return
	}
	var q gcal.ListQuery
	if v := c.Query("time_min"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid time_min"})
			return
		}
		q.TimeMin = t
	}
	if v := c.Query("time_max"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid time_max"})
			return
		}
		q.TimeMax = t
	}
	if v := c.Query("max_results"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid max_results"})
			return
		}
		q.MaxResults = n
	}
	events, err := a.Calendar.ListEvents(c.Request.Context(), userID, q)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events, "count": len(events)})
}

type createEventReq struct {
	UserID       string          `json:"user_id" binding:"required"`
	Summary      string          `json:"summary" binding:"required"`
	Description  string          `json:"description"`
	Location     string          `json:"location"`
	StartTime    string          `json:"start_time" binding:"required"` // RFC3339
	EndTime      string          `json:"end_time" binding:"required"`
	TimeZone     string          `json:"time_zone"`
	Attendees    []string        `json:"attendees" binding:"omitempty,dive,email"`
	WithMeetLink bool            `json:"with_meet_link"`
	Reminders    []gcal.Reminder `json:"reminders"`
}

// POST /calendar/events
func (a *App) CreateEventHandler(c *gin.Context) {
	var req createEventReq
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_time"})
		return
	}
	end, err := time.Parse(time.RFC3339, req.EndTime)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end_time"})
		return
	}
	if !start.Before(end) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_time must be before end_time"})
		return
	}
	event, err := a.Calendar.CreateEvent(c.Request.Context(), req.UserID, gcal.EventPayload{
		Summary:      req.Summary,
		Description:  req.Description,
		Location:     req.Location,
		Start:        start,
		End:          end,
		TimeZone:     req.TimeZone,
		Attendees:    req.Attendees,
		WithMeetLink: req.WithMeetLink,
		Reminders:    req.Reminders,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"event": event})
}

type updateEventReq struct {
	UserID      string   `json:"user_id" binding:"required"`
	Summary     *string  `json:"summary"`
	Description *string  `json:"description"`
	Location    *string  `json:"location"`
	StartTime   *string  `json:"start_time"` // RFC3339
	EndTime     *string  `json:"end_time"`
	TimeZone    string   `json:"time_zone"`
	Attendees   []string `json:"attendees" binding:"omitempty,dive,email"`
}

// PATCH /calendar/events/:event_id
func (a *App) UpdateEventHandler(c *gin.Context) {
	var req updateEventReq
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	patch := gcal.EventPatch{
		Summary:     req.Summary,
		Description: req.Description,
		Location:    req.Location,
		TimeZone:    req.TimeZone,
		Attendees:   req.Attendees,
	}
	if req.StartTime != nil {
		t, err := time.Parse(time.RFC3339, *req.StartTime)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_time"})
			return
		}
		patch.Start = &t
	}
	if req.EndTime != nil {
		t, err := time.Parse(time.RFC3339, *req.EndTime)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end_time"})
			return
		}
		patch.End = &t
	}
	event, err := a.Calendar.UpdateEvent(c.Request.Context(), req.UserID, c.Param("event_id"), patch)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"event": event})
}

// DELETE /calendar/events/:event_id?user_id=...
// The remote delete also drops the link on any appointment referencing the
// event; the appointment record itself stays.
func (a *App) DeleteEventHandler(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id required"})
		return
	}
	eventID := c.Param("event_id")
	ctx := c.Request.Context()

	if err := a.Calendar.DeleteEvent(ctx, userID, eventID); err != nil {
		fail(c, err)
		return
	}
	if err := a.Store.ClearEventLink(ctx, userID, eventID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// GET /calendar/calendars?user_id=...
func (a *App) ListCalendarsHandler(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id required"})
		return
	}
	calendars, err := a.Calendar.ListCalendars(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"calendars": calendars, "count": len(calendars)})
}

// GET /calendar/freebusy?user_id=...&from=ISO&to=ISO
func (a *App) FreeBusyHandler(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id required"})
		return
	}
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
	busy, err := a.Calendar.FreeBusy(c.Request.Context(), userID, from, to)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"busy": busy})
}

// GET /calendar/availability?user_id=...&from=ISO&to=ISO
func (a *App) CheckAvailabilityHandler(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id required"})
		return
	}
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
	available, err := a.Calendar.CheckAvailability(c.Request.Context(), userID, from, to)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"available": available, "from": from, "to": to})
}

// POST /calendar/sync
func (a *App) SyncAllHandler(c *gin.Context) {
	var payload struct {
		UserID string `json:"user_id" binding:"required"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	batch, err := a.Syncer.SyncAllUnsynced(c.Request.Context(), payload.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, batch)
}

// POST /calendar/sync/appointments/:appointment_id
func (a *App) SyncOneHandler(c *gin.Context) {
	ctx := c.Request.Context()
	appointment, err := a.Store.GetAppointment(ctx, c.Param("appointment_id"))
	if err != nil {
		fail(c, err)
		return
	}
	if appointment.GoogleEventID != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "appointment already synced", "event_id": *appointment.GoogleEventID})
		return
	}
	result := a.Syncer.SyncOne(ctx, *appointment)
	status := http.StatusOK
	if !result.Success {
		status = http.StatusBadGateway
	}
	c.JSON(status, result)
}

// GET /calendar/sync/status?user_id=...
func (a *App) SyncStatusHandler(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id required"})
		return
	}
	report, err := a.Syncer.Status(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// GET /users/:id/slots?date=2006-01-02&duration=60&start=09:00&end=18:00&interval=30&exclude=12:00,12:30
func (a *App) GetSlotsHandler(c *gin.Context) {
	userID := c.Param("id")
	day, err := time.ParseInLocation("2006-01-02", c.Query("date"), time.Local)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date required (YYYY-MM-DD)"})
		return
	}
	duration := 60
	if v := c.Query("duration"); v != "" {
		duration, err = strconv.Atoi(v)
		if err != nil || duration <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid duration"})
			return
		}
	}
	cfg := availability.DefaultConfig()
	if v := c.Query("start"); v != "" {
		cfg.WorkStart = v
	}
	if v := c.Query("end"); v != "" {
		cfg.WorkEnd = v
	}
	if v := c.Query("interval"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid interval"})
			return
		}
		cfg.IntervalMins = n
	}
	if v := c.Query("exclude"); v != "" {
		for _, hhmm := range strings.Split(v, ",") {
			if hhmm = strings.TrimSpace(hhmm); hhmm != "" {
				cfg.Excluded = append(cfg.Excluded, hhmm)
			}
		}
	}
	slots, err := a.Availability.Slots(c.Request.Context(), userID, day, duration, cfg)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": day.Format("2006-01-02"), "slots": slots})
}
