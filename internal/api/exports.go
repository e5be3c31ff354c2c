package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/muzzleid/muzzle-go/internal/export"
	"github.com/muzzleid/muzzle-go/internal/registry"
)

// initExportRoutes registers the bulk export routes.
func (c *Controller) initExportRoutes() {
	c.Group.GET("/export/metadata", c.HandleExportMetadata)
	c.Group.GET("/export/archive", c.HandleExportArchive)
}

// exportSelection resolves the record set for an export request. The same
// optional filters as search apply; without filters the whole registry is
// exported.
func (c *Controller) exportSelection(ctx echo.Context) ([]registry.Subject, error) {
	idPrefix := strings.TrimSpace(ctx.QueryParam("id_prefix"))
	name := strings.TrimSpace(ctx.QueryParam("name"))
	if idPrefix == "" && name == "" {
		return c.DS.All(ctx.Request().Context())
	}
	return c.DS.Search(ctx.Request().Context(), registry.SearchFilters{
		IDPrefix:     idPrefix,
		NameContains: name,
		Limit:        registry.MaxSearchLimit,
	})
}

// HandleExportMetadata streams the metadata table as a CSV download.
func (c *Controller) HandleExportMetadata(ctx echo.Context) error {
	subjects, err := c.exportSelection(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Export selection failed")
	}

	data, err := export.BuildMetadataCSV(subjects)
	if err != nil {
		return c.HandleError(ctx, err, "Metadata export failed")
	}

	filename := exportFilename("metadata", "csv")
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	c.apiLogger.Info("metadata exported", "subjects", len(subjects), "filename", filename)
	return ctx.Blob(http.StatusOK, "text/csv", data)
}

// HandleExportArchive streams the media archive as a ZIP download.
func (c *Controller) HandleExportArchive(ctx echo.Context) error {
	subjects, err := c.exportSelection(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Export selection failed")
	}

	data, err := export.BuildArchive(subjects)
	if err != nil {
		return c.HandleError(ctx, err, "Archive export failed")
	}

	filename := exportFilename("media", "zip")
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	c.apiLogger.Info("archive exported", "subjects", len(subjects), "filename", filename)
	return ctx.Blob(http.StatusOK, "application/zip", data)
}

// exportFilename builds a download name carrying the date and a short
// correlation token.
func exportFilename(kind, ext string) string {
	return fmt.Sprintf("muzzleid_%s_%s_%s.%s",
		kind, time.Now().UTC().Format("20060102"), uuid.NewString()[:8], ext)
}
