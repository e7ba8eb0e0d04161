package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"greendrake/freight/internal/auctionerrors"
	"greendrake/freight/internal/services"
)

const (
	MsgNoFileUploaded = "No file uploaded"
	MsgFileTooLarge   = "File too large"
	templateFormField = "file"
)

// RestTemplateHandler serves the auction spreadsheet template.
type RestTemplateHandler struct {
	templateService services.ITemplateService
	maxUploadSize   int64
}

func NewRestTemplateHandler(templateService services.ITemplateService, maxUploadSize int64) *RestTemplateHandler {
	return &RestTemplateHandler{templateService: templateService, maxUploadSize: maxUploadSize}
}

// DownloadTemplate handles GET /api/auctions/template/download
func (h *RestTemplateHandler) DownloadTemplate(c *gin.Context) {
	buf, err := h.templateService.Generate()
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+services.TemplateFilename)
	c.Header("Cache-Control", "no-store, max-age=0")
	c.Data(http.StatusOK, services.TemplateContentType, buf.Bytes())
}

// ValidateTemplate handles POST /api/auctions/template/validate with a multipart "file" field.
func (h *RestTemplateHandler) ValidateTemplate(c *gin.Context) {
	userID, ok := sessionUser(c)
	if !ok {
		return
	}
	if h.maxUploadSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadSize)
	}

	fileHeader, err := c.FormFile(templateFormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: MsgFileTooLarge})
			return
		}
		respondError(c, auctionerrors.NewValidationError(MsgNoFileUploaded))
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		respondError(c, auctionerrors.NewValidationError(services.MsgUnreadableFile))
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		respondError(c, auctionerrors.NewValidationError(services.MsgUnreadableFile))
		return
	}

	detail, err := h.templateService.ValidateUpload(c.Request.Context(), userID, fileHeader.Filename, data)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}
