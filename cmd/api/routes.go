package main

import (
	"context"
	"net/http"
	"time"

	"crm-telephony/internal/auth"
	"crm-telephony/internal/bootstrap"
	"crm-telephony/internal/httpapi"
	"crm-telephony/internal/rbac"
	"crm-telephony/internal/telephony"
	"crm-telephony/pkg/utils"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, app *bootstrap.App) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := utils.HealthCheck(ctx, app.DB, 2*time.Second); err != nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": "database unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// PBX webhook (public, optional shared secret).
	{
		h := telephony.CDRWebhookHandler{
			Processor: app.Ingest,
			Secret:    app.Config.PBX.WebhookSecret,
		}
		r.POST("/webhooks/pbx/cdr", h.Handle)
	}

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(auth.RequireAccessToken(app.Auth))
	{
		h := httpapi.Handlers{
			Sync:         app.Ingest,
			Lookup:       app.Lookup,
			Recordings:   app.PBX,
			Reporting:    app.Reporting,
			MaxRangeDays: app.Config.Sync.MaxRangeDays,
		}

		v1.GET("/me", func(c *gin.Context) {
			uid, _ := auth.UserID(c.Request.Context())
			role, _ := auth.Role(c.Request.Context())
			c.JSON(http.StatusOK, gin.H{"user_id": uid, "role": role})
		})

		// CALLS routes
		calls := v1.Group("/calls")
		calls.Use(rbac.RequireAnyRole(rbac.RoleManager, rbac.RoleAgent))
		{
			calls.GET("/lookup", h.LookupPhone)
			calls.GET("/recordings/:unique_id", h.GetRecording)
			calls.GET("/summary", rbac.RequireAnyRole(rbac.RoleManager), h.CallsSummary)
			calls.POST("/sync", rbac.RequireAnyRole(rbac.RoleManager), h.SyncCalls)
		}
	}
}
