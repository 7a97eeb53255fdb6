package http

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/harvesta/companion/internal/domain/harvest"
)

const uploadFormField = "files"

var errLatLonPair = errors.New("latitude and longitude must be given together")

type imageRef struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType"`
	Filename string `json:"filename"`
}

func (r imageRef) staged() harvest.StagedImage {
	return harvest.StagedImage{URI: r.URI, MimeType: r.MimeType, Filename: r.Filename}
}

type stageRequest struct {
	Images []imageRef `json:"images"`
}

// Upload returns the staged batch.
func (h *Handler) Upload(c *gin.Context) {
	sess, ok := h.requireSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sess.Upload.State())
}

// StageImages adds gallery images, either as URI references (JSON) or as
// file parts under "files" (multipart).
func (h *Handler) StageImages(c *gin.Context) {
	sess, ok := h.requireSession(c)
	if !ok {
		return
	}
	var images []harvest.StagedImage
	if isMultipart(c.GetHeader("Content-Type")) {
		parsed, httpErr := readFormImages(c)
		if httpErr != nil {
			abortWithError(c, httpErr)
			return
		}
		images = parsed
	} else {
		var req stageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
			return
		}
		for _, ref := range req.Images {
			images = append(images, ref.staged())
		}
	}
	if len(images) == 0 {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "no images given", nil))
		return
	}
	state, err := sess.Upload.Stage(images...)
	if err != nil {
		abortWithError(c, fromAppError(err))
		return
	}
	c.JSON(http.StatusOK, state)
}

// CaptureImage adds one camera image; it needs camera permission.
func (h *Handler) CaptureImage(c *gin.Context) {
	sess, ok := h.requireSession(c)
	if !ok {
		return
	}
	var ref imageRef
	if err := c.ShouldBindJSON(&ref); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	state, err := sess.Upload.Capture(c.Request.Context(), ref.staged())
	if err != nil {
		abortWithError(c, fromAppError(err))
		return
	}
	c.JSON(http.StatusOK, state)
}

// RemoveImage drops one staged image.
func (h *Handler) RemoveImage(c *gin.Context) {
	sess, ok := h.requireSession(c)
	if !ok {
		return
	}
	state, err := sess.Upload.Remove(c.Param("id"))
	if err != nil {
		abortWithError(c, fromAppError(err))
		return
	}
	c.JSON(http.StatusOK, state)
}

// ClearImages empties the batch.
func (h *Handler) ClearImages(c *gin.Context) {
	sess, ok := h.requireSession(c)
	if !ok {
		return
	}
	state, err := sess.Upload.Clear()
	if err != nil {
		abortWithError(c, fromAppError(err))
		return
	}
	c.JSON(http.StatusOK, state)
}

// SubmitUpload sends the batch to the prediction backend.
func (h *Handler) SubmitUpload(c *gin.Context) {
	sess, ok := h.requireSession(c)
	if !ok {
		return
	}
	outcome, err := sess.SubmitUpload(c.Request.Context())
	if err != nil {
		abortWithError(c, fromAppError(err))
		return
	}
	c.JSON(http.StatusOK, outcome)
}

func isMultipart(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && strings.EqualFold(mediaType, "multipart/form-data")
}

func readFormImages(c *gin.Context) ([]harvest.StagedImage, *HTTPError) {
	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, NewHTTPError(http.StatusRequestEntityTooLarge, "invalid_request", "upload too large", err)
		}
		return nil, NewHTTPError(http.StatusBadRequest, "invalid_request", "invalid multipart body", err)
	}
	headers := form.File[uploadFormField]
	images := make([]harvest.StagedImage, 0, len(headers))
	for _, fh := range headers {
		file, err := fh.Open()
		if err != nil {
			return nil, NewHTTPError(http.StatusBadRequest, "invalid_request", "failed to read upload", err)
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			return nil, NewHTTPError(http.StatusBadRequest, "invalid_request", "failed to read upload", err)
		}
		images = append(images, harvest.StagedImage{
			Filename: fh.Filename,
			MimeType: fh.Header.Get("Content-Type"),
			Content:  data,
		})
	}
	return images, nil
}
