package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"crm-telephony/internal/auth"
	"crm-telephony/internal/ingest"
	"crm-telephony/internal/lookup"
	"crm-telephony/internal/reporting"
	"crm-telephony/internal/telephony"
	"crm-telephony/pkg/logger"

	"github.com/gin-gonic/gin"
)

type Syncer interface {
	SyncRange(ctx context.Context, r ingest.Range, extension string) (ingest.Result, error)
}

type PhoneLookup interface {
	Lookup(ctx context.Context, raw string) (lookup.Result, error)
}

type RecordingFetcher interface {
	FetchRecording(ctx context.Context, uniqueID string) (telephony.Recording, error)
}

type Summaries interface {
	CallsSummary(ctx context.Context, req reporting.CallsSummaryRequest) (reporting.CallsSummary, error)
}

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Sync       Syncer
	Lookup     PhoneLookup
	Recordings RecordingFetcher
	Reporting  Summaries

	// MaxRangeDays caps a manual sync request.
	MaxRangeDays int
}

// --- Sync ---

type syncRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Extension string `json:"extension,omitempty"`
}

// SyncCalls pulls the PBX feed for a date range and stores new call logs.
// RBAC: manager or admin.
func (h Handlers) SyncCalls(c *gin.Context) {
	if h.Sync == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "sync not configured"})
		return
	}
	var req syncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	r, err := ingest.ParseRange(req.StartDate, req.EndDate, h.MaxRangeDays)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": h.rangeError()})
		return
	}

	ctx := ingest.WithActor(c.Request.Context(), actor(c.Request.Context()))
	res, err := h.Sync.SyncRange(ctx, r, strings.TrimSpace(req.Extension))
	if err != nil {
		var fe *telephony.FetchError
		switch {
		case errors.Is(err, ingest.ErrInvalidRange):
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": h.rangeError()})
		case errors.Is(err, ingest.ErrSyncInProgress):
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "sync already in progress"})
		case errors.As(err, &fe):
			c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"success": false, "error": fe.Message})
		default:
			logger.FromGin(c).Error("sync failed", "err", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "sync failed"})
		}
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h Handlers) rangeError() string {
	if h.MaxRangeDays > 0 {
		return fmt.Sprintf("start_date and end_date required as YYYY-MM-DD, at most %d days apart", h.MaxRangeDays)
	}
	return "start_date and end_date required as YYYY-MM-DD"
}

func actor(ctx context.Context) ingest.Actor {
	uid, _ := auth.UserID(ctx)
	role, _ := auth.Role(ctx)
	return ingest.Actor{Origin: "api", UserID: uid, Role: role}
}

// --- Lookup ---

// LookupPhone resolves a caller's number to CRM leads for a screen-pop.
func (h Handlers) LookupPhone(c *gin.Context) {
	if h.Lookup == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "lookup not configured"})
		return
	}
	phone := strings.TrimSpace(c.Query("phone"))
	if phone == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "phone required"})
		return
	}
	res, err := h.Lookup.Lookup(c.Request.Context(), phone)
	if err != nil {
		if errors.Is(err, lookup.ErrInvalidPhone) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "phone has no digits"})
			return
		}
		logger.FromGin(c).Error("lookup failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	c.JSON(http.StatusOK, res)
}

// --- Recordings ---

// GetRecording proxies the PBX recording for a call. Audio is streamed back
// as-is; anything else is returned as JSON alongside the constructed URL.
func (h Handlers) GetRecording(c *gin.Context) {
	if h.Recordings == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "recordings not configured"})
		return
	}
	id := strings.TrimSpace(c.Param("unique_id"))
	if id == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unique_id required"})
		return
	}
	rec, err := h.Recordings.FetchRecording(c.Request.Context(), id)
	if err != nil {
		var fe *telephony.FetchError
		if errors.As(err, &fe) {
			c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": fe.Message})
			return
		}
		logger.FromGin(c).Error("recording fetch failed", "unique_id", id, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "recording fetch failed"})
		return
	}
	if rec.IsAudio() {
		c.Data(http.StatusOK, rec.ContentType, rec.Audio)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// --- Reporting ---

func (h Handlers) CallsSummary(c *gin.Context) {
	if h.Reporting == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "reporting not configured"})
		return
	}
	req := reporting.CallsSummaryRequest{From: c.Query("from"), To: c.Query("to")}
	if raw := c.Query("employee_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "employee_id must be numeric"})
			return
		}
		req.EmployeeID = &id
	}
	sum, err := h.Reporting.CallsSummary(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, reporting.ErrInvalidRequest) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "from and to required as YYYY-MM-DD"})
			return
		}
		logger.FromGin(c).Error("summary failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "summary failed"})
		return
	}
	c.JSON(http.StatusOK, sum)
}
