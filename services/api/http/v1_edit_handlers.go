package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wastewater-dashboards/surveillance-review/internal/edit"
)

type selectionRequest struct {
	Rows []int `json:"rows"`
}

type submitRequest struct {
	TransactionID string         `json:"transaction_id" binding:"required"`
	Rows          []edit.RowEdit `json:"rows"`
}

// handleV1Select opens the edit form for rows of the last displayed table
// POST /api/v1/datasets/:name/selection
func (s *Server) handleV1Select(c *gin.Context) {
	var req selectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid selection payload: " + err.Error()})
		return
	}

	name := c.Param("name")
	sess := currentSession(c)
	snapshot, _ := sess.Snapshot(name)

	tx, err := s.deps.Edits.Begin(sess.Identity(), name, snapshot, req.Rows)
	if err != nil {
		respondError(c, err)
		return
	}
	form, err := tx.Form()
	if err != nil {
		respondError(c, err)
		return
	}
	sess.SetPending(name, tx)

	c.JSON(http.StatusOK, gin.H{"data": form})
}

// handleV1Submit commits the open form
// POST /api/v1/datasets/:name/edits
func (s *Server) handleV1Submit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid edit payload: " + err.Error()})
		return
	}

	name := c.Param("name")
	sess := currentSession(c)
	pending, ok := sess.Pending(name)
	if !ok || pending.TransactionID() != req.TransactionID {
		c.JSON(http.StatusConflict, gin.H{"error": "no open edit for this transaction; select the rows again"})
		return
	}
	tx := pending.(*edit.Transaction)
	if sess.Identity().User != tx.User.User {
		c.JSON(http.StatusForbidden, gin.H{"error": "edit was opened by another user"})
		return
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	result, err := s.deps.Edits.Submit(ctx, tx, req.Rows)
	if tx.State().Terminal() {
		sess.ClearPending(name)
	}
	if err != nil {
		body := gin.H{"error": err.Error(), "state": tx.State()}
		if result.State == edit.Done {
			body["data"] = result
		}
		c.JSON(statusFor(err), body)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}
