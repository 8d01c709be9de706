package uploads

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/formflow/backend/internal/uploads/drivers"
	"github.com/formflow/backend/utils"
)

type UploadRouter struct {
	service *UploadService
}

func NewUploadRouter(service *UploadService) *UploadRouter {
	return &UploadRouter{service: service}
}

// Register mounts the upload routes. Uploading needs a user; downloads are
// addressed by unguessable keys and stay public so form renderers can embed them.
func (ur *UploadRouter) Register(public, private *gin.RouterGroup) {
	private.POST("/uploads", ur.HandleUpload)
	public.GET("/uploads/*key", ur.HandleDownload)
}

// HandleUpload handles POST /api/v1/uploads requests.
// Expects a multipart body with a "file" part and an optional "kind" field.
func (ur *UploadRouter) HandleUpload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadSize+(1<<20))

	kind, err := ParseKind(c.PostForm("kind"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.RespondError(c, http.StatusRequestEntityTooLarge, "too_large", "file exceeds the upload limit")
			return
		}
		utils.RespondError(c, http.StatusBadRequest, "invalid_request", "file is required")
		return
	}
	if header.Size > MaxUploadSize {
		utils.RespondError(c, http.StatusRequestEntityTooLarge, "too_large", "file exceeds the upload limit")
		return
	}

	file, err := header.Open()
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "invalid_request", "failed to read file")
		return
	}
	defer file.Close()

	metadata, err := ur.service.Upload(c.Request.Context(), kind, header.Filename, file, header.Size, header.Header.Get("Content-Type"))
	if err != nil {
		if errors.Is(err, ErrInvalidUpload) {
			utils.RespondError(c, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		slog.ErrorContext(c.Request.Context(), "upload failed", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "internal_error", "upload failed")
		return
	}
	c.JSON(http.StatusCreated, metadata)
}

// HandleDownload handles GET /api/v1/uploads/*key requests.
func (ur *UploadRouter) HandleDownload(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")

	reader, contentType, err := ur.service.Download(c.Request.Context(), key)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidUpload):
			utils.RespondError(c, http.StatusBadRequest, "invalid_request", "invalid key")
		case errors.Is(err, drivers.ErrNotFound):
			utils.RespondError(c, http.StatusNotFound, "not_found", "file not found")
		default:
			slog.ErrorContext(c.Request.Context(), "download failed", "key", key, "error", err)
			utils.RespondError(c, http.StatusInternalServerError, "internal_error", "download failed")
		}
		return
	}
	defer reader.Close()

	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, reader); err != nil {
		slog.WarnContext(c.Request.Context(), "download interrupted", "key", key, "error", err)
	}
}
