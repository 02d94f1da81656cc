package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wastewater-dashboards/surveillance-review/internal/models"
)

type deleteLogsRequest struct {
	Entries []models.AuditLogEntry `json:"entries" binding:"required,min=1"`
}

// handleV1ListLogs returns the change log
// GET /api/v1/admin/logs
func (s *Server) handleV1ListLogs(c *gin.Context) {
	sess := currentSession(c)
	if err := s.deps.Admin.Check(sess.Identity(), "view the change log"); err != nil {
		respondError(c, err)
		return
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	entries, err := s.deps.Log.List(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	if entries == nil {
		entries = []models.AuditLogEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"data": entries, "meta": gin.H{"count": len(entries)}})
}

// handleV1DeleteLogs removes entries matching every field exactly
// DELETE /api/v1/admin/logs
func (s *Server) handleV1DeleteLogs(c *gin.Context) {
	sess := currentSession(c)
	who := sess.Identity()
	if err := s.deps.Admin.Check(who, "delete change log entries"); err != nil {
		respondError(c, err)
		return
	}

	var req deleteLogsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid delete payload: " + err.Error()})
		return
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	removed, err := s.deps.Log.Delete(ctx, req.Entries)
	if err != nil {
		respondError(c, err)
		return
	}
	s.deps.Logger.WithField("user", who.User).WithField("removed", removed).Info("change log entries deleted")
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"removed": removed}})
}
