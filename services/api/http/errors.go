package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wastewater-dashboards/surveillance-review/internal/blobstore"
	"github.com/wastewater-dashboards/surveillance-review/internal/datasets"
	"github.com/wastewater-dashboards/surveillance-review/internal/edit"
	"github.com/wastewater-dashboards/surveillance-review/internal/hierarchy"
	"github.com/wastewater-dashboards/surveillance-review/internal/identity"
	"github.com/wastewater-dashboards/surveillance-review/internal/jobs"
	"github.com/wastewater-dashboards/surveillance-review/internal/latest"
	"github.com/wastewater-dashboards/surveillance-review/internal/tabular"
)

// statusFor maps the error kinds raised below the HTTP layer to responses.
func statusFor(err error) int {
	var (
		denied    *identity.PermissionDenied
		invalid   *edit.ValidationError
		stale     *edit.StaleRowError
		region    *hierarchy.UnknownRegionError
		malformed *latest.MalformedInputError
		missing   *tabular.MissingColumnError
		decode    *tabular.DecodeError
		write     *datasets.StoreWriteError
		trigger   *jobs.TriggerError
	)
	switch {
	case errors.As(err, &denied):
		return http.StatusForbidden
	case errors.As(err, &invalid):
		return http.StatusBadRequest
	case errors.Is(err, edit.ErrUnknownDataset):
		return http.StatusNotFound
	case errors.As(err, &stale):
		return http.StatusConflict
	case errors.As(err, &region), errors.As(err, &malformed), errors.As(err, &missing):
		return http.StatusUnprocessableEntity
	case errors.As(err, &decode), errors.As(err, &write), errors.As(err, &trigger), errors.Is(err, blobstore.ErrNotFound):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}
