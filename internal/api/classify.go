package api

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/muzzleid/muzzle-go/internal/errors"
	"github.com/muzzleid/muzzle-go/internal/gate"
)

// initClassifyRoutes registers the classification mapping route.
func (c *Controller) initClassifyRoutes() {
	c.Group.POST("/classify", c.HandleClassify)
}

// ClassifyRequest carries raw classifier output. DisplayThreshold overrides
// the configured default when set; the reliability floor is fixed policy.
type ClassifyRequest struct {
	Label            string   `json:"label"`
	Confidence       float64  `json:"confidence"`
	DisplayThreshold *float64 `json:"display_threshold,omitempty"`
}

// ClassifyResponse is the trust-qualified classification outcome.
type ClassifyResponse struct {
	State      string            `json:"state"`
	Prediction gate.Prediction   `json:"prediction"`
	Reference  any               `json:"reference,omitempty"`
	Subjects   []SubjectResponse `json:"subjects,omitempty"`
}

// HandleClassify runs the confidence gate and, in the mapped state, returns
// reference rows and registry matches for the predicted label.
func (c *Controller) HandleClassify(ctx echo.Context) error {
	var req ClassifyRequest
	if err := ctx.Bind(&req); err != nil {
		verr := errors.Newf("invalid request body: %w", err).
			Component("api").
			Category(errors.CategoryValidation).
			Build()
		return c.HandleError(ctx, verr, "Invalid request format")
	}

	displayThreshold := c.Settings.Classifier.DisplayThreshold
	if req.DisplayThreshold != nil {
		displayThreshold = *req.DisplayThreshold
	}

	cacheKey := fmt.Sprintf("%s|%.4f|%.4f", req.Label, req.Confidence, displayThreshold)
	if cached, found := c.classifyCache.Get(cacheKey); found {
		return ctx.JSON(http.StatusOK, cached)
	}

	result, err := c.Gate.Evaluate(ctx.Request().Context(), gate.Prediction{
		Label:      req.Label,
		Confidence: req.Confidence,
	}, displayThreshold)
	if err != nil {
		return c.HandleError(ctx, err, "Classification mapping failed")
	}

	resp := ClassifyResponse{
		State:      result.State.String(),
		Prediction: result.Prediction,
	}
	if result.State == gate.StateMapped {
		resp.Reference = result.Reference
		resp.Subjects = make([]SubjectResponse, 0, len(result.Subjects))
		for i := range result.Subjects {
			resp.Subjects = append(resp.Subjects, toSubjectResponse(&result.Subjects[i]))
		}
	}

	c.classifyCache.SetDefault(cacheKey, resp)
	return ctx.JSON(http.StatusOK, resp)
}
