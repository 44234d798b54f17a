// Package records mounts the per-kind record routes: submission, lookup,
// listing, status transition, full update, and deletion. Creation and reads
// are citizen-facing; mutations of the review workflow require the admin
// role.
package records

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/firedesk/records-service/internal/lifecycle"
	"github.com/firedesk/records-service/internal/model"
	registrystore "github.com/firedesk/records-service/internal/registry/store"
	"github.com/firedesk/records-service/internal/security"
)

// MountRoutes mounts record routes for every configured kind, e.g.
// /v1/applications and /v1/safety-reviews.
func MountRoutes(r *gin.Engine, svc *lifecycle.Service) {
	v1 := r.Group("/v1")
	kinds := lifecycle.Kinds()
	for i := range kinds {
		spec := &kinds[i]
		g := v1.Group("/" + spec.Path)
		g.POST("", func(c *gin.Context) { create(c, svc, spec) })
		g.GET("", func(c *gin.Context) { list(c, svc, spec) })
		g.GET("/:id", func(c *gin.Context) { get(c, svc, spec) })
		g.PUT("/:id", security.RequireAdmin(), func(c *gin.Context) { update(c, svc, spec) })
		g.PATCH("/:id/status", security.RequireAdmin(), func(c *gin.Context) { updateStatus(c, svc, spec) })
		g.DELETE("/:id", security.RequireAdmin(), func(c *gin.Context) { remove(c, svc, spec) })
	}
}

// recordView is the outward record representation. DisplayClass is derived
// from the status at render time; it is never stored or settable.
type recordView struct {
	model.Record
	DisplayClass string `json:"displayClass"`
}

func newView(rec *model.Record) recordView {
	return recordView{Record: *rec, DisplayClass: rec.Status.DisplayClass()}
}

func create(c *gin.Context, svc *lifecycle.Service, spec *lifecycle.KindSpec) {
	in := submissionFromForm(c)

	var uploads []lifecycle.Upload
	if form, err := c.MultipartForm(); err == nil {
		for field, headers := range form.File {
			for _, header := range headers {
				file, err := header.Open()
				if err != nil {
					c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable upload: " + header.Filename})
					return
				}
				defer file.Close()
				uploads = append(uploads, lifecycle.Upload{
					Slot:         field,
					OriginalName: header.Filename,
					Data:         file,
				})
			}
		}
	}

	rec, rejected, err := svc.Create(c.Request.Context(), spec, in, uploads)
	if err != nil {
		handleError(c, err)
		return
	}
	body := gin.H{"record": newView(rec)}
	if len(rejected) > 0 {
		body["attachmentErrors"] = rejected
	}
	c.JSON(http.StatusCreated, body)
}

func get(c *gin.Context, svc *lifecycle.Service, spec *lifecycle.KindSpec) {
	rec, err := svc.Get(c.Request.Context(), spec, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, newView(rec))
}

func list(c *gin.Context, svc *lifecycle.Service, spec *lifecycle.KindSpec) {
	search := c.Query("search")
	if search == "" {
		search = c.Query("q")
	}
	recs, err := svc.List(c.Request.Context(), spec, c.Query("status"), search)
	if err != nil {
		handleError(c, err)
		return
	}
	views := make([]recordView, len(recs))
	for i := range recs {
		views[i] = newView(&recs[i])
	}
	c.JSON(http.StatusOK, gin.H{"data": views, "count": len(views)})
}

func update(c *gin.Context, svc *lifecycle.Service, spec *lifecycle.KindSpec) {
	rec, err := svc.UpdateSubject(c.Request.Context(), spec, c.Param("id"), submissionFromForm(c))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, newView(rec))
}

func updateStatus(c *gin.Context, svc *lifecycle.Service, spec *lifecycle.KindSpec) {
	var req struct {
		Status     string  `json:"status" binding:"required"`
		Remarks    *string `json:"remarks"`
		ReviewedBy *string `json:"reviewedBy"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rec, err := svc.UpdateStatus(c.Request.Context(), spec, c.Param("id"), req.Status, req.Remarks, req.ReviewedBy)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, newView(rec))
}

func remove(c *gin.Context, svc *lifecycle.Service, spec *lifecycle.KindSpec) {
	if err := svc.Delete(c.Request.Context(), spec, c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// submissionFromForm reads the textual submission fields from a multipart
// or url-encoded form. Checklist booleans arrive as dotted field names:
// checklist.<category>.<item>=true.
func submissionFromForm(c *gin.Context) lifecycle.SubmissionInput {
	// Trigger form parsing; both PostForm and MultipartForm fill
	// c.Request.PostForm.
	_ = c.PostForm("")
	return lifecycle.SubmissionInput{
		BuildingType:     c.PostForm("buildingType"),
		BuildingName:     c.PostForm("buildingName"),
		Address:          c.PostForm("address"),
		OwnerName:        c.PostForm("ownerName"),
		Contact:          c.PostForm("contact"),
		Floors:           c.PostForm("floors"),
		MaxOccupancy:     c.PostForm("maxOccupancy"),
		ConstructionYear: c.PostForm("constructionYear"),
		Checklist:        checklistFromForm(c.Request.PostForm),
	}
}

func checklistFromForm(values map[string][]string) map[string]map[string]string {
	checklist := map[string]map[string]string{}
	for key, vals := range values {
		if len(vals) == 0 || !strings.HasPrefix(key, "checklist.") {
			continue
		}
		parts := strings.SplitN(key, ".", 3)
		if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
			continue
		}
		category, item := parts[1], parts[2]
		if checklist[category] == nil {
			checklist[category] = map[string]string{}
		}
		checklist[category][item] = vals[len(vals)-1]
	}
	return checklist
}

func handleError(c *gin.Context, err error) {
	var notFound *registrystore.NotFoundError
	var validations registrystore.ValidationErrors
	var validation *registrystore.ValidationError
	var invalidStatus *registrystore.InvalidStatusError
	var conflict *registrystore.ConflictError
	var forbidden *registrystore.ForbiddenError
	var attachment *lifecycle.AttachmentError

	switch {
	case err == nil:
		return
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"code": "not_found", "error": err.Error()})
	case errors.As(err, &validations):
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation_error", "error": err.Error(), "fields": validations.Fields()})
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation_error", "error": err.Error(), "fields": []string{validation.Field}})
	case errors.As(err, &invalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_status", "error": err.Error()})
	case errors.As(err, &attachment):
		c.JSON(http.StatusBadRequest, gin.H{"code": "attachment_error", "error": err.Error()})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{"code": "conflict", "error": err.Error()})
	case errors.As(err, &forbidden):
		c.JSON(http.StatusForbidden, gin.H{"code": "forbidden", "error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
