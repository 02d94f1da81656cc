package http

import "github.com/gin-gonic/gin"

// registerV1Routes sets up the dashboard API.
// Groups: views (read), datasets (edit lifecycle), admin, changes.
func (s *Server) registerV1Routes() {
	v1 := s.engine.Group("/api/v1")
	v1.Use(apiVersionMiddleware())

	// Change feed upgrades before any session state is touched.
	if s.deps.Hub != nil {
		v1.GET("/changes/ws", gin.WrapH(s.deps.Hub))
	}

	views := v1.Group("")
	views.Use(s.sessionMiddleware())
	{
		views.GET("/latest-measures", s.handleV1LatestMeasures)
		views.GET("/ww-trends", s.handleV1Trends)
		views.GET("/ww-trends/sunburst", s.handleV1Sunburst)
		views.GET("/mpox", s.handleV1Mpox)
		views.GET("/large-jumps", s.handleV1LargeJumps)
		views.GET("/large-jumps/history", s.handleV1LargeJumpHistory)
	}

	ds := v1.Group("/datasets/:name")
	ds.Use(s.sessionMiddleware())
	{
		ds.POST("/selection", s.handleV1Select)
		ds.POST("/edits", s.handleV1Submit)
	}

	admin := v1.Group("/admin")
	admin.Use(s.sessionMiddleware())
	{
		admin.GET("/logs", s.handleV1ListLogs)
		admin.DELETE("/logs", s.handleV1DeleteLogs)
	}
}

func apiVersionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-API-Version", "v1")
		c.Next()
	}
}
