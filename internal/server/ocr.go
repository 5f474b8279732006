package server

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"

	"github.com/gin-gonic/gin"
)

type RecognizeInvoiceRequest struct {
	RawText   string `json:"raw_text"`
	ImageHash string `json:"image_hash"`
}

// RecognizeInvoice parses OCR text into a draft invoice. The result may be
// mocked (Mocked=true) when the text is unusable.
func (s *Server) RecognizeInvoice(c *gin.Context) {
	var req RecognizeInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request"))
		return
	}

	imageHash := req.ImageHash
	if imageHash == "" && req.RawText != "" {
		sum := sha256.Sum256([]byte(req.RawText))
		imageHash = hex.EncodeToString(sum[:])
	}

	result, err := s.ocrSvc.Recognize(c.Request.Context(), req.RawText, imageHash)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
