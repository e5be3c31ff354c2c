package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// initReferenceRoutes registers reference table management routes.
func (c *Controller) initReferenceRoutes() {
	c.Group.POST("/reference/reload", c.HandleReferenceReload)
	c.Group.GET("/reference/labels/:label", c.HandleReferenceLookup)
}

// HandleReferenceReload rebuilds the reference table from its source.
// In-flight readers keep the previous table until the swap completes.
func (c *Controller) HandleReferenceReload(ctx echo.Context) error {
	if err := c.References.Invalidate(); err != nil {
		return c.HandleError(ctx, err, "Reference reload failed")
	}
	c.classifyCache.Flush()
	return ctx.JSON(http.StatusOK, map[string]any{
		"status": "reloaded",
		"rows":   c.References.Table().Len(),
	})
}

// HandleReferenceLookup returns the reference rows filed under a label.
func (c *Controller) HandleReferenceLookup(ctx echo.Context) error {
	rows := c.References.Table().LookupByLabel(ctx.Param("label"))
	return ctx.JSON(http.StatusOK, map[string]any{
		"label": ctx.Param("label"),
		"rows":  rows,
		"total": len(rows),
	})
}
