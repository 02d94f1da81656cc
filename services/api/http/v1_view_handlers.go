package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wastewater-dashboards/surveillance-review/internal/datasets"
	"github.com/wastewater-dashboards/surveillance-review/internal/edit"
	"github.com/wastewater-dashboards/surveillance-review/internal/hierarchy"
	"github.com/wastewater-dashboards/surveillance-review/internal/latest"
	"github.com/wastewater-dashboards/surveillance-review/internal/models"
	"github.com/wastewater-dashboards/surveillance-review/internal/session"
	"github.com/wastewater-dashboards/surveillance-review/internal/tabular"
)

// AllSites selects every site in a site filter.
const AllSites = "All Sites"

// filterValues returns the values of a multi-select query parameter. A
// request that omits the parameter reuses the session's last choice.
func filterValues(c *gin.Context, sess *session.Session, page, param string) []string {
	name := page + "." + param
	if raw, ok := c.GetQueryArray(param); ok {
		values := make([]string, 0, len(raw))
		for _, v := range raw {
			if v != "" {
				values = append(values, v)
			}
		}
		sess.SetFilters(name, values)
		return values
	}
	return sess.Filters(name)
}

// matcher treats an empty selection, or one containing sentinel, as "any".
func matcher(values []string, sentinel string) func(string) bool {
	if len(values) == 0 {
		return func(string) bool { return true }
	}
	set := make(map[string]bool, len(values))
	for _, v := range values {
		if sentinel != "" && v == sentinel {
			return func(string) bool { return true }
		}
		set[v] = true
	}
	return func(v string) bool { return set[v] }
}

func distinct(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0)
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// display fetches a dataset and records it as the session's snapshot so that
// row indices in the response can be used for selection.
func (s *Server) display(ctx context.Context, sess *session.Session, name string) (*tabular.Table, error) {
	src, ok := s.deps.Sources[name]
	if !ok {
		return nil, edit.ErrUnknownDataset
	}
	table, err := src.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	sess.SetSnapshot(name, table)
	return table, nil
}

func (s *Server) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), s.cfg.RequestTimeout)
}

// handleV1LatestMeasures returns the latest/previous pair per site and measure
// GET /api/v1/latest-measures?site=&measure=&refresh=
func (s *Server) handleV1LatestMeasures(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()
	sess := currentSession(c)

	load := s.deps.Latest.Latest
	if refresh, _ := strconv.ParseBool(c.Query("refresh")); refresh {
		load = s.deps.Latest.Refresh
	}
	res, err := load(ctx)
	if err != nil {
		respondError(c, err)
		return
	}

	siteOK := matcher(filterValues(c, sess, "latest-measures", "site"), AllSites)
	measureOK := matcher(filterValues(c, sess, "latest-measures", "measure"), "")

	var sites, measures []string
	rows := make([]models.LatestPairRow, 0, len(res.Rows))
	for _, r := range res.Rows {
		sites = append(sites, r.Name)
		measures = append(measures, r.Measure)
		if siteOK(r.Name) && measureOK(r.Measure) {
			rows = append(rows, r)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"data": rows,
		"meta": gin.H{
			"count":    len(rows),
			"sites":    append([]string{AllSites}, distinct(sites)...),
			"measures": distinct(measures),
			"built_at": res.Built.Format(time.RFC3339),
			"cached":   res.Cached,
		},
	})
}

// handleV1Trends lists the wastewater trend rows
// GET /api/v1/ww-trends?site=&measure=
func (s *Server) handleV1Trends(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()
	sess := currentSession(c)

	table, err := s.display(ctx, sess, datasets.WWTrends)
	if err != nil {
		respondError(c, err)
		return
	}
	rows, err := models.TrendRowsFromTable(table)
	if err != nil {
		respondError(c, err)
		return
	}

	siteOK := matcher(filterValues(c, sess, datasets.WWTrends, "site"), AllSites)
	measureOK := matcher(filterValues(c, sess, datasets.WWTrends, "measure"), "")

	var sites, measures []string
	out := make([]models.Indexed[models.TrendRow], 0, len(rows))
	for _, r := range rows {
		sites = append(sites, r.Row.Location)
		measures = append(measures, r.Row.Measure)
		if siteOK(r.Row.Location) && measureOK(r.Row.Measure) {
			out = append(out, r)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"data": out,
		"meta": gin.H{
			"count":    len(out),
			"sites":    append([]string{AllSites}, distinct(sites)...),
			"measures": distinct(measures),
		},
	})
}

// handleV1Sunburst returns the hierarchy of activity levels for one measure
// GET /api/v1/ww-trends/sunburst?measure=covN2
func (s *Server) handleV1Sunburst(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	measure := c.DefaultQuery("measure", hierarchy.DefaultMeasure)

	src, ok := s.deps.Sources[datasets.WWTrends]
	if !ok {
		respondError(c, edit.ErrUnknownDataset)
		return
	}
	table, err := src.Fetch(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	indexed, err := models.TrendRowsFromTable(table)
	if err != nil {
		respondError(c, err)
		return
	}
	rows := make([]models.TrendRow, len(indexed))
	for i, r := range indexed {
		rows[i] = r.Row
	}

	nodes, err := hierarchy.Aggregate(rows, measure)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"nodes":  nodes,
			"legend": hierarchy.Legend(),
		},
		"meta": gin.H{
			"measure":  measure,
			"measures": hierarchy.Measures,
			"title":    "Wastewater Viral Activity Levels by Region - " + measure,
		},
	})
}

// handleV1Mpox lists the weekly mpox classifications
// GET /api/v1/mpox
func (s *Server) handleV1Mpox(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	table, err := s.display(ctx, currentSession(c), datasets.Mpox)
	if err != nil {
		respondError(c, err)
		return
	}
	rows, err := models.MpoxRowsFromTable(table)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rows, "meta": gin.H{"count": len(rows)}})
}

// handleV1LargeJumps lists flagged jumps
// GET /api/v1/large-jumps?dataset=&measure=
func (s *Server) handleV1LargeJumps(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()
	sess := currentSession(c)

	table, err := s.display(ctx, sess, datasets.LargeJumps)
	if err != nil {
		respondError(c, err)
		return
	}
	rows, err := models.LargeJumpRowsFromTable(table)
	if err != nil {
		respondError(c, err)
		return
	}

	datasetOK := matcher(filterValues(c, sess, datasets.LargeJumps, "dataset"), "")
	measureOK := matcher(filterValues(c, sess, datasets.LargeJumps, "measure"), "")

	var ids, measures []string
	out := make([]models.Indexed[models.LargeJumpRow], 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.Row.DatasetID)
		measures = append(measures, r.Row.Measure)
		if datasetOK(r.Row.DatasetID) && measureOK(r.Row.Measure) {
			out = append(out, r)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"data": out,
		"meta": gin.H{
			"count":    len(out),
			"datasets": distinct(ids),
			"measures": distinct(measures),
		},
	})
}

// handleV1LargeJumpHistory returns the full series behind one flagged jump
// GET /api/v1/large-jumps/history?site=&measure=
func (s *Server) handleV1LargeJumpHistory(c *gin.Context) {
	site := c.Query("site")
	measure := c.Query("measure")
	if site == "" || measure == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "site and measure are required"})
		return
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	src, ok := s.deps.Sources[datasets.AllSites]
	if !ok {
		respondError(c, edit.ErrUnknownDataset)
		return
	}
	table, err := src.Fetch(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	obs, err := models.ObservationsFromTable(table)
	if err != nil {
		respondError(c, err)
		return
	}
	series, err := latest.History(obs, site, measure)
	if err != nil {
		respondError(c, err)
		return
	}
	if len(series.Points) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no observations for site and measure"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": series})
}
