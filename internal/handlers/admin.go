// Package handlers exposes the operational HTTP API: frontier state,
// governor pacing stats, and maintenance triggers. It never serves
// crawled property data; the persisted store is the only read surface
// for consumers.
package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"madlan-crawler/internal/cleanup"
	"madlan-crawler/internal/frontier"
	"madlan-crawler/internal/governor"
)

// Admin bundles the operational endpoints' collaborators.
type Admin struct {
	frontier    *frontier.Frontier
	gov         *governor.Governor
	maintenance *cleanup.Service
	defaultCity string
}

// NewAdmin creates the admin handler set.
func NewAdmin(fr *frontier.Frontier, gov *governor.Governor, maint *cleanup.Service, defaultCity string) *Admin {
	return &Admin{frontier: fr, gov: gov, maintenance: maint, defaultCity: defaultCity}
}

// Router builds the gin engine with all admin routes mounted.
func (a *Admin) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.Default())

	r.GET("/healthz", a.health)
	api := r.Group("/api")
	{
		api.GET("/frontier/stats", a.frontierStats)
		api.GET("/frontier/entries", a.frontierEntries)
		api.POST("/frontier/clear", a.frontierClear)
		api.GET("/governor/stats", a.governorStats)
		api.POST("/maintenance/dedupe", a.dedupe)
	}
	return r
}

func (a *Admin) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (a *Admin) city(c *gin.Context) string {
	if city := c.Query("city"); city != "" {
		return city
	}
	return a.defaultCity
}

func (a *Admin) frontierStats(c *gin.Context) {
	stats, err := a.frontier.Stats(c.Request.Context(), a.city(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"city": a.city(c), "stats": stats})
}

func (a *Admin) frontierEntries(c *gin.Context) {
	page := 1
	if p, err := parsePositive(c.Query("page")); err == nil {
		page = p
	}
	entries, err := a.frontier.List(c.Request.Context(), a.city(c), page, 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"city": a.city(c), "page": page, "entries": entries})
}

func (a *Admin) frontierClear(c *gin.Context) {
	var removed int64
	var err error
	ctx := c.Request.Context()

	if c.Query("all") == "true" {
		removed, err = a.frontier.ClearAll(ctx)
	} else {
		removed, err = a.frontier.Clear(ctx, a.city(c))
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

func (a *Admin) governorStats(c *gin.Context) {
	c.JSON(http.StatusOK, a.gov.GetStats())
}

func (a *Admin) dedupe(c *gin.Context) {
	result, err := a.maintenance.Dedupe(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func parsePositive(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid positive integer %q", s)
	}
	return n, nil
}
