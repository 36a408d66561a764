package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gogotex/docnorm/internal/document"
	"github.com/gogotex/docnorm/internal/document/service"
	"github.com/gogotex/docnorm/internal/models"
	"github.com/gogotex/docnorm/pkg/logger"
)

var log = logger.Named("handler")

type fieldFailure struct {
	Field   string            `json:"field"`
	Model   string            `json:"model"`
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

func RegisterDocumentRoutes(r *gin.Engine, svc service.Service) {
	api := r.Group("/api/collections")

	api.GET("", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"collections": svc.Collections()})
	})

	api.POST("/:collection/normalize", func(c *gin.Context) {
		raw, ok := bindObject(c)
		if !ok {
			return
		}
		values, report, err := svc.Check(c.Request.Context(), c.Param("collection"), raw)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"document": values, "valid": report.Err() == nil, "errors": failures(report.Failed())})
	})

	api.POST("/:collection/documents", func(c *gin.Context) {
		raw, ok := bindObject(c)
		if !ok {
			return
		}
		created, err := svc.Create(c.Request.Context(), c.Param("collection"), raw)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"id": created.ID, "document": created.Document})
	})

	api.GET("/:collection/documents", func(c *gin.Context) {
		list, err := svc.List(c.Request.Context(), c.Param("collection"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	})

	api.GET("/:collection/documents/:id", func(c *gin.Context) {
		d, err := svc.Get(c.Request.Context(), c.Param("collection"), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, d)
	})

	api.DELETE("/:collection/documents/:id", func(c *gin.Context) {
		if err := svc.Delete(c.Request.Context(), c.Param("collection"), c.Param("id")); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
}

// bindObject decodes the request body as a JSON object.
func bindObject(c *gin.Context) (map[string]any, bool) {
	var raw map[string]any
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	if raw == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be a JSON object"})
		return nil, false
	}
	return raw, true
}

func writeError(c *gin.Context, err error) {
	var invalid *service.InvalidDocumentError
	switch {
	case errors.As(err, &invalid):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid embedded documents", "errors": failures(invalid.Report.Failed())})
	case errors.Is(err, service.ErrUnknownCollection):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, service.ErrDuplicateID):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		log.Errorf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func failures(outcomes []document.FieldOutcome) []fieldFailure {
	out := make([]fieldFailure, 0, len(outcomes))
	for _, o := range outcomes {
		f := fieldFailure{Field: o.Field, Model: o.Model, Error: o.Err.Error()}
		var verr *models.ValidationError
		if errors.As(o.Err, &verr) {
			f.Details = verr.Fields
		}
		out = append(out, f)
	}
	return out
}
