package app

import "github.com/gin-gonic/gin"

// Register wires every route onto the router. The OAuth callback stays
// outside the auth middleware because Google calls it directly.
func (a *App) Register(router *gin.Engine) {
	router.GET("/oauth2callback", a.OAuth2CallbackHandler)

	router.Use(AuthMiddleware(a.Config.StaticTokens, a.Config.JWTSecret))

	api := router.Group("/api")
	{
		users := api.Group("/users")
		{
			users.POST("/:id/clients", a.CreateClientHandler)
			users.GET("/:id/clients", a.ListClientsHandler)
			users.PUT("/:id/clients/:client_id", a.UpdateClientHandler)
			users.DELETE("/:id/clients/:client_id", a.DeleteClientHandler)

			users.POST("/:id/procedures", a.CreateProcedureHandler)
			users.GET("/:id/procedures", a.ListProceduresHandler)
			users.PUT("/:id/procedures/:procedure_id", a.UpdateProcedureHandler)
			users.DELETE("/:id/procedures/:procedure_id", a.DeleteProcedureHandler)

			users.POST("/:id/appointments", a.CreateAppointmentHandler)
			users.GET("/:id/appointments", a.ListAppointmentsHandler)
			users.PATCH("/:id/appointments/:appointment_id/status", a.UpdateAppointmentStatusHandler)

			users.GET("/:id/slots", a.GetSlotsHandler)
			users.GET("/:id/reports/revenue", a.RevenueReportHandler)
		}
		api.GET("/clients/:id", a.GetClientHandler)
		api.GET("/appointments/:id", a.GetAppointmentHandler)

		calendar := api.Group("/calendar")
		{
			calendar.GET("/auth", a.GoogleAuthHandler)
			calendar.POST("/disconnect", a.DisconnectHandler)
			calendar.GET("/calendars", a.ListCalendarsHandler)
			calendar.GET("/freebusy", a.FreeBusyHandler)
			calendar.GET("/availability", a.CheckAvailabilityHandler)
			calendar.GET("/events", a.ListEventsHandler)
			calendar.POST("/events", a.CreateEventHandler)
			calendar.PATCH("/events/:event_id", a.UpdateEventHandler)
			calendar.DELETE("/events/:event_id", a.DeleteEventHandler)
			calendar.POST("/sync", a.SyncAllHandler)
			calendar.POST("/sync/appointments/:appointment_id", a.SyncOneHandler)
			calendar.GET("/sync/status", a.SyncStatusHandler)
		}
	}
}
