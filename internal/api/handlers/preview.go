package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// PreviewStreamer writes an MJPEG stream
type PreviewStreamer interface {
	StreamMJPEG(w http.ResponseWriter, r *http.Request)
}

type PreviewHandler struct {
	stream PreviewStreamer
}

func NewPreviewHandler(stream PreviewStreamer) *PreviewHandler {
	return &PreviewHandler{stream: stream}
}

// StreamPreview godoc
// @Summary Annotated preview
// @Description MJPEG stream of the annotated frames of the running job. Requires PREVIEW_ENABLED.
// @Tags videos
// @Produce multipart/x-mixed-replace
// @Failure 503 {object} ErrorResponse
// @Router /api/preview [get]
func (h *PreviewHandler) StreamPreview(c *gin.Context) {
	if h.stream == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "preview is disabled"})
		return
	}
	h.stream.StreamMJPEG(c.Writer, c.Request)
}
