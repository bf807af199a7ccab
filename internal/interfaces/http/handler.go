package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"main/internal/application/service/pipeline"
	pricing "main/internal/domain/entity/pricing"
	interfaces "main/internal/domain/interfaces"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const apiBasePath = "/api/v1"

// Coordinator is the slice of the pipeline coordinator the API needs.
type Coordinator interface {
	RunCycle(ctx context.Context) error
	Running() bool
	LastCycle() *pricing.CycleRun
}

var (
	errMissingAsset    = errors.New("asset_id query param required")
	errMissingRange    = errors.New("from/to query params required")
	errMissingInterval = errors.New("interval query param required")
	errNoSnapshot      = errors.New("no cached snapshot for symbol")
)

type Handler struct {
	router      *gin.Engine
	coordinator Coordinator
	timeseries  interfaces.TimeSeriesRepository
	cache       interfaces.Cache
}

func NewHandler(coordinator Coordinator, timeseries interfaces.TimeSeriesRepository, cache interfaces.Cache) *Handler {
	router := gin.New()
	router.Use(gin.Recovery())

	h := &Handler{
		router:      router,
		coordinator: coordinator,
		timeseries:  timeseries,
		cache:       cache,
	}
	h.registerRoutes()
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.router.GET("/healthz", h.healthz)

	api := h.router.Group(apiBasePath)
	{
		pl := api.Group("/pipeline")
		{
			pl.GET("/status", h.pipelineStatus)
			pl.POST("/run", h.runPipeline)
		}

		api.GET("/vwap", h.getVWAPRange)
		api.GET("/candles", h.getCandlesRange)
		api.GET("/market/:symbol", h.getMarketSnapshot)
	}
}

func (h *Handler) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// pipelineStatus reports whether a cycle is in flight plus the last cycle
// record.
func (h *Handler) pipelineStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"running":    h.coordinator.Running(),
		"last_cycle": h.coordinator.LastCycle(),
	})
}

// runPipeline starts one cycle synchronously. A request arriving while a
// cycle is already running gets 409 without queueing.
func (h *Handler) runPipeline(c *gin.Context) {
	err := h.coordinator.RunCycle(c.Request.Context())
	if errors.Is(err, pipeline.ErrCycleInProgress) {
		writeError(c, http.StatusConflict, err)
		return
	}
	if err != nil {
		writeError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"last_cycle": h.coordinator.LastCycle()})
}

func (h *Handler) getVWAPRange(c *gin.Context) {
	from, to, err := parseTimeRange(c)
	if err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}

	assetStr := c.Query("asset_id")
	if assetStr == "" {
		records, err := h.timeseries.GetVWAPBetween(c.Request.Context(), from, to)
		if err != nil {
			writeError(c, http.StatusInternalServerError, err)
			return
		}
		c.JSON(http.StatusOK, records)
		return
	}

	assetID, err := uuid.Parse(assetStr)
	if err != nil {
		writeError(c, http.StatusBadRequest, errMissingAsset)
		return
	}
	records, err := h.timeseries.GetVWAPForAsset(c.Request.Context(), assetID, from, to)
	if err != nil {
		writeError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *Handler) getCandlesRange(c *gin.Context) {
	from, to, err := parseTimeRange(c)
	if err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	assetID, err := uuid.Parse(c.Query("asset_id"))
	if err != nil {
		writeError(c, http.StatusBadRequest, errMissingAsset)
		return
	}
	interval := c.Query("interval")
	if interval == "" {
		writeError(c, http.StatusBadRequest, errMissingInterval)
		return
	}

	candles, err := h.timeseries.GetCandlesBetween(c.Request.Context(), assetID, interval, from, to)
	if err != nil {
		writeError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, candles)
}

// getMarketSnapshot serves the cached per-source snapshots for one asset
// symbol straight from the cache.
func (h *Handler) getMarketSnapshot(c *gin.Context) {
	symbol := c.Param("symbol")
	snapshots, err := h.cache.GetMarketSnapshots(c.Request.Context(), symbol)
	if err != nil {
		writeError(c, http.StatusInternalServerError, err)
		return
	}
	if len(snapshots) == 0 {
		writeError(c, http.StatusNotFound, errNoSnapshot)
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "sources": snapshots})
}

func writeError(c *gin.Context, status int, err error) {
	if err == nil {
		status = http.StatusInternalServerError
		err = errors.New("unknown error")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func parseTimeRange(c *gin.Context) (time.Time, time.Time, error) {
	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return time.Time{}, time.Time{}, errMissingRange
	}
	from, err := time.Parse(time.RFC3339, fromStr)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := time.Parse(time.RFC3339, toStr)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}
