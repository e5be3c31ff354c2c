package api

import (
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/muzzleid/muzzle-go/internal/conf"
	"github.com/muzzleid/muzzle-go/internal/errors"
	"github.com/muzzleid/muzzle-go/internal/registry"
)

// initSubjectRoutes registers the registry-facing routes.
func (c *Controller) initSubjectRoutes() {
	c.Group.POST("/subjects", c.HandleRegister)
	c.Group.GET("/subjects", c.HandleSearch)
	c.Group.GET("/subjects/:id", c.HandleGetSubject)
}

// SubjectResponse is the outward view of a registered subject. Full image
// payloads are omitted; thumbnails travel base64 encoded.
type SubjectResponse struct {
	SubjectID string          `json:"subject_id"`
	Name      string          `json:"name"`
	Label     string          `json:"label,omitempty"`
	CreatedAt string          `json:"created_at"`
	Media     []MediaResponse `json:"media"`
}

// MediaResponse is one media item without the full stored payload.
type MediaResponse struct {
	Seq       int    `json:"seq"`
	Filename  string `json:"filename"`
	Thumbnail string `json:"thumbnail"`
}

func toSubjectResponse(subject *registry.Subject) SubjectResponse {
	resp := SubjectResponse{
		SubjectID: subject.SubjectID,
		Name:      subject.Name,
		Label:     subject.Label,
		CreatedAt: subject.CreatedAt.UTC().Format(time.RFC3339),
		Media:     make([]MediaResponse, 0, len(subject.Media)),
	}
	for _, item := range subject.Media {
		resp.Media = append(resp.Media, MediaResponse{
			Seq:       item.Seq,
			Filename:  item.Filename,
			Thumbnail: item.Thumbnail,
		})
	}
	return resp
}

// HandleRegister creates a subject from a multipart form carrying
// subject_id, name, optional label and at least four image files. All
// boundary validation happens before any store interaction.
func (c *Controller) HandleRegister(ctx echo.Context) error {
	subjectID := strings.TrimSpace(ctx.FormValue("subject_id"))
	if err := registry.ValidateSubjectID(subjectID); err != nil {
		return c.HandleError(ctx, err, "Invalid subject id")
	}

	name := strings.TrimSpace(ctx.FormValue("name"))
	if name == "" {
		err := errors.Newf("name must not be empty").
			Component("api").
			Category(errors.CategoryValidation).
			Build()
		return c.HandleError(ctx, err, "Invalid name")
	}

	label := strings.TrimSpace(ctx.FormValue("label"))

	form, err := ctx.MultipartForm()
	if err != nil {
		verr := errors.Newf("reading multipart form: %w", err).
			Component("api").
			Category(errors.CategoryValidation).
			Build()
		return c.HandleError(ctx, verr, "Invalid upload")
	}
	files := form.File["images"]
	if len(files) < conf.MinMediaPerRegistration {
		verr := errors.Newf("at least %d images required, got %d", conf.MinMediaPerRegistration, len(files)).
			Component("api").
			Category(errors.CategoryValidation).
			Context("media_count", len(files)).
			Build()
		return c.HandleError(ctx, verr, "Not enough images")
	}

	subject := &registry.Subject{SubjectID: subjectID, Name: name, Label: label}
	for i, fh := range files {
		raw, err := readUpload(fh)
		if err != nil {
			return c.HandleError(ctx, err, "Reading upload failed")
		}
		stored, thumbnail, err := c.Codec.Normalize(raw)
		if err != nil {
			return c.HandleError(ctx, err, "Unsupported image")
		}
		subject.Media = append(subject.Media, registry.MediaItem{
			Seq:       i + 1,
			Filename:  registry.MediaFilename(subjectID, i+1, fh.Filename),
			Image:     registry.EncodeMedia(stored),
			Thumbnail: registry.EncodeMedia(thumbnail),
		})
	}

	if err := c.DS.Insert(ctx.Request().Context(), subject); err != nil {
		return c.HandleError(ctx, err, "Registration failed")
	}

	c.apiLogger.Info("subject registered",
		"subject_id", subjectID,
		"label", label,
		"media_count", len(subject.Media),
		"ip", ctx.RealIP())
	return ctx.JSON(http.StatusCreated, toSubjectResponse(subject))
}

// HandleGetSubject returns one subject by its 12-digit identifier.
func (c *Controller) HandleGetSubject(ctx echo.Context) error {
	subjectID := ctx.Param("id")
	if err := registry.ValidateSubjectID(subjectID); err != nil {
		return c.HandleError(ctx, err, "Invalid subject id")
	}

	subject, err := c.DS.Get(ctx.Request().Context(), subjectID)
	if err != nil {
		return c.HandleError(ctx, err, "Lookup failed")
	}
	return ctx.JSON(http.StatusOK, toSubjectResponse(subject))
}

// SearchResponse wraps the subject search results.
type SearchResponse struct {
	Results []SubjectResponse `json:"results"`
	Total   int               `json:"total"`
}

// HandleSearch filters subjects by optional id prefix and name substring.
func (c *Controller) HandleSearch(ctx echo.Context) error {
	filters := registry.SearchFilters{
		IDPrefix:     strings.TrimSpace(ctx.QueryParam("id_prefix")),
		NameContains: strings.TrimSpace(ctx.QueryParam("name")),
	}
	if raw := ctx.QueryParam("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			verr := errors.Newf("limit must be a positive integer").
				Component("api").
				Category(errors.CategoryValidation).
				Build()
			return c.HandleError(ctx, verr, "Invalid limit")
		}
		filters.Limit = limit
	}

	subjects, err := c.DS.Search(ctx.Request().Context(), filters)
	if err != nil {
		return c.HandleError(ctx, err, "Search failed")
	}

	resp := SearchResponse{Results: make([]SubjectResponse, 0, len(subjects)), Total: len(subjects)}
	for i := range subjects {
		resp.Results = append(resp.Results, toSubjectResponse(&subjects[i]))
	}
	return ctx.JSON(http.StatusOK, resp)
}

// readUpload reads one multipart file into memory.
func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, errors.Newf("opening upload: %w", err).
			Component("api").
			Category(errors.CategoryValidation).
			Build()
	}
	defer func() { _ = f.Close() }()
	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Newf("reading upload: %w", err).
			Component("api").
			Category(errors.CategoryValidation).
			Build()
	}
	return raw, nil
}
