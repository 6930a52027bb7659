// Package record serves the CRUD routes shared by prescriptions and reports.
package record

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/ShubhamPrakash26/Prescription-Tracker-Backend/internal/middleware"
	"github.com/ShubhamPrakash26/Prescription-Tracker-Backend/internal/model"
	"github.com/ShubhamPrakash26/Prescription-Tracker-Backend/internal/service/record"
	"github.com/ShubhamPrakash26/Prescription-Tracker-Backend/pkg/httputil"
)

const fileField = "file"

type Handler struct {
	service *record.Service
	kind    model.RecordKind
}

func NewHandler(service *record.Service) *Handler {
	return &Handler{service: service, kind: service.Kind()}
}

// RegisterRoutes mounts the handler under /<kind>s. The group is expected
// to be authenticated.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	records := r.Group("/" + h.kind.Collection())
	{
		records.POST("", h.Create)
		records.GET("", h.List)
		records.GET("/:id", h.Get)
		records.PUT("/:id", h.Update)
		records.DELETE("/:id", h.Delete)
		records.GET("/:id/download", h.Download)
	}
}

func (h *Handler) Create(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		httputil.RespondWithStatus(c, http.StatusUnauthorized, "Unauthorized - No token provided")
		return
	}

	req, file, ok := h.bind(c)
	if !ok {
		return
	}
	if file != nil {
		defer file.close()
	}

	rec, err := h.service.Create(c.Request.Context(), userID, req, file.upload())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusCreated, rec)
}

func (h *Handler) List(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		httputil.RespondWithStatus(c, http.StatusUnauthorized, "Unauthorized - No token provided")
		return
	}

	var q model.ListRecordsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httputil.RespondWithStatus(c, http.StatusBadRequest, "Invalid query parameters")
		return
	}

	records, err := h.service.List(c.Request.Context(), userID, q)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if records == nil {
		records = []*model.Record{}
	}
	httputil.RespondWithSuccess(c, http.StatusOK, records)
}

func (h *Handler) Get(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		httputil.RespondWithStatus(c, http.StatusUnauthorized, "Unauthorized - No token provided")
		return
	}

	rec, err := h.service.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, rec)
}

func (h *Handler) Update(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		httputil.RespondWithStatus(c, http.StatusUnauthorized, "Unauthorized - No token provided")
		return
	}

	req, file, ok := h.bind(c)
	if !ok {
		return
	}
	if file != nil {
		defer file.close()
	}

	rec, err := h.service.Update(c.Request.Context(), userID, c.Param("id"), req, file.upload())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, rec)
}

func (h *Handler) Delete(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		httputil.RespondWithStatus(c, http.StatusUnauthorized, "Unauthorized - No token provided")
		return
	}

	if err := h.service.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, http.StatusOK, h.kind.Title()+" deleted successfully")
}

// Download redirects to the stored file.
func (h *Handler) Download(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		httputil.RespondWithStatus(c, http.StatusUnauthorized, "Unauthorized - No token provided")
		return
	}

	url, err := h.service.FileURL(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.Redirect(http.StatusFound, url)
}

// formFile is an opened multipart part.
type formFile struct {
	header *multipart.FileHeader
	file   multipart.File
}

func (f *formFile) upload() *record.Upload {
	if f == nil {
		return nil
	}
	return &record.Upload{Name: f.header.Filename, Size: f.header.Size, Body: f.file}
}

func (f *formFile) close() {
	if err := f.file.Close(); err != nil {
		log.Warn().Err(err).Str("file", f.header.Filename).Msg("failed to close upload")
	}
}

// bind reads the record fields from JSON or a form, plus the optional file
// part of a multipart request. It writes the error response itself.
func (h *Handler) bind(c *gin.Context) (model.RecordRequest, *formFile, bool) {
	var req model.RecordRequest

	if err := c.ShouldBind(&req); err != nil {
		h.badBody(c, err)
		return req, nil, false
	}

	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		return req, nil, true
	}

	header, err := c.FormFile(fileField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return req, nil, true
		}
		h.badBody(c, err)
		return req, nil, false
	}
	file, err := header.Open()
	if err != nil {
		h.badBody(c, err)
		return req, nil, false
	}
	return req, &formFile{header: header, file: file}, true
}

func (h *Handler) badBody(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		httputil.RespondWithError(c, h.service.FileTooLarge(err))
		return
	}
	log.Debug().Err(err).Str("kind", string(h.kind)).Msg("invalid request body")
	httputil.RespondWithStatus(c, http.StatusBadRequest, "Invalid request body")
}
