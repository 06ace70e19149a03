package api

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/weegienamja/Globescraper-sub003/app/analytics"
	"github.com/weegienamja/Globescraper-sub003/app/database"
	"github.com/weegienamja/Globescraper-sub003/app/jobs"
	"github.com/weegienamja/Globescraper-sub003/app/listing"
	"github.com/weegienamja/Globescraper-sub003/app/parse"
)

func NewHandler(listingRepo database.ListingRepository, indexRepo database.IndexRepository, runner JobRunner) *Handler {
	return &Handler{
		listingRepo: listingRepo,
		indexRepo:   indexRepo,
		runner:      runner,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if counts, err := h.listingRepo.CountBySource(); err == nil {
		total := 0
		for _, n := range counts {
			total += n
		}
		health["listings"] = total
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := map[string]interface{}{}

	if counts, err := h.listingRepo.CountBySource(); err == nil {
		bySource := make(map[string]int, len(counts))
		total := 0
		for source, n := range counts {
			bySource[string(source)] = n
			total += n
		}
		stats["listingsBySource"] = bySource
		stats["listingsTotal"] = total
	}

	if snapshots, err := h.listingRepo.GetSnapshotCount(); err == nil {
		stats["snapshots"] = snapshots
	}

	if first, last, err := h.indexRepo.GetDateRange(); err == nil {
		stats["indexDateRange"] = [2]string{first, last}
	}

	c.JSON(http.StatusOK, stats)
}

// StreamJob triggers a job and relays its event stream over SSE. The
// stream carries log and progress events followed by exactly one
// complete or error event. Closing the connection cancels the run.
func (h *Handler) StreamJob(c *gin.Context) {
	job, err := jobs.ParseJob(c.Param("job"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var source listing.Source
	if raw := c.Query("source"); raw != "" {
		source, err = listing.ParseSource(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	events := h.runner.Run(c.Request.Context(), job, source)

	c.Stream(func(w io.Writer) bool {
		event, ok := <-events
		if !ok {
			return false
		}
		switch e := event.(type) {
		case jobs.LogEvent:
			c.SSEvent("log", e)
		case jobs.ProgressEvent:
			c.SSEvent("progress", e)
		case jobs.CompleteEvent:
			c.SSEvent("complete", e)
		case jobs.ErrorEvent:
			c.SSEvent("error", e)
		}
		return true
	})
}

func (h *Handler) GetListings(c *gin.Context) {
	q := database.ListingQuery{
		Source:    c.Query("source"),
		Search:    c.Query("search"),
		SortField: c.Query("sort"),
		SortOrder: c.Query("order"),
	}

	if raw := c.Query("propertyType"); raw != "" {
		types, err := listing.ResolveTypeFilter(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		q.PropertyTypes = types
	}

	if district := c.Query("district"); district != "" {
		q.Districts = parse.ReverseDistrictAliases(district)
	}

	if page, err := strconv.Atoi(c.Query("page")); err == nil {
		q.Page = page
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil {
		q.Limit = limit
	}

	listings, total, err := h.listingRepo.GetListings(q)
	if err != nil {
		slog.Error("Database error", "operation", "get_listings", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	page, limit := database.ClampPage(q.Page, q.Limit)

	items := make([]ListingItem, 0, len(listings))
	for _, l := range listings {
		items = append(items, toListingItem(l))
	}

	totalPages := (total + limit - 1) / limit
	c.JSON(http.StatusOK, ListingsResponse{
		Listings:   items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	})
}

// analyticsRanges maps the range query parameter to a history window.
var analyticsRanges = map[string]int{
	"30d":  30,
	"90d":  90,
	"180d": 180,
	"365d": 365,
}

func (h *Handler) GetAnalytics(c *gin.Context) {
	city := c.Query("city")
	if city == "" {
		city = "Phnom Penh"
	}

	rangeKey := strings.ToLower(c.DefaultQuery("range", "90d"))
	days, ok := analyticsRanges[rangeKey]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid range: " + rangeKey})
		return
	}

	q := database.IndexQuery{
		City:      city,
		SinceDate: time.Now().UTC().AddDate(0, 0, -days).Format("2006-01-02"),
	}

	if district := c.Query("district"); district != "" {
		q.District = parse.ParseDistrict(district)
		if q.District == "" {
			q.District = district
		}
	}
	if raw := c.Query("bedrooms"); raw != "" {
		bedrooms, err := strconv.Atoi(raw)
		if err != nil || bedrooms < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid bedrooms: " + raw})
			return
		}
		q.Bedrooms = &bedrooms
	}
	if propertyType := c.Query("propertyType"); propertyType != "" {
		q.PropertyType = strings.ToUpper(propertyType)
	}

	rows, err := h.indexRepo.GetRows(q)
	if err != nil {
		slog.Error("Database error", "operation", "get_index_rows", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	meta := AnalyticsMeta{RowCount: len(rows)}
	if len(rows) > 0 {
		meta.DateRange = [2]string{rows[0].Date, rows[len(rows)-1].Date}
	}

	c.JSON(http.StatusOK, AnalyticsResponse{
		Summary:          analytics.ComputeKPI(rows),
		Trend:            analytics.ComputeTrend(rows),
		Distribution:     analytics.ComputeDistribution(rows),
		Movers:           analytics.ComputeMovers(rows),
		HeatmapDistricts: analytics.ComputeDistrictHeatmap(rows),
		Signal:           analytics.SupplySignal(rows),
		Meta:             meta,
	})
}
