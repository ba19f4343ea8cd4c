package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"draw-royale/internal/game"

	"github.com/gin-gonic/gin"
)

type finalizeRequest struct {
	ImageRef   string `json:"image_ref" binding:"omitempty,max=255"`
	ImageData  string `json:"image_data"`
	ArtistName string `json:"artist_name" binding:"omitempty,name"`
	Round      int    `json:"round" binding:"omitempty,min=1"`
}

func (s *Server) handleCanvasUpload(c *gin.Context) {
	target, err := s.svc.RequestCanvasUpload(c.Request.Context(), c.Param("roomID"), currentUser(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	if target == nil {
		c.JSON(http.StatusOK, gin.H{"upload": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"upload": target})
}

// handleFinalizeCanvas records the artist's image. Clients either upload
// first and send image_ref, or inline the image as a data URL.
func (s *Server) handleFinalizeCanvas(c *gin.Context) {
	var req finalizeRequest
	if !bindJSON(c, &req, nil, "invalid canvas request") {
		return
	}
	ctx := c.Request.Context()
	imageRef := strings.TrimSpace(req.ImageRef)
	inline := ""
	if imageRef == "" && req.ImageData != "" {
		if s.blobs == nil {
			badRequest(c, "inline images are not supported")
			return
		}
		data, contentType, err := decodeImageData(req.ImageData)
		if err != nil {
			badRequest(c, "invalid image data")
			return
		}
		handle, _, err := s.blobs.UploadTarget(ctx)
		if err != nil {
			s.writeError(c, err)
			return
		}
		if err := s.blobs.Put(handle, contentType, data); err != nil {
			badRequest(c, err.Error())
			return
		}
		imageRef = handle
		inline = handle
	}
	if imageRef == "" {
		badRequest(c, "image_ref or image_data is required")
		return
	}
	sketch, err := s.svc.FinalizeCanvasImage(ctx, c.Param("roomID"), game.FinalizeInput{
		UserID:     currentUser(c),
		ArtistName: normalizeText(req.ArtistName),
		ImageRef:   imageRef,
		Round:      req.Round,
	})
	if err != nil {
		if inline != "" {
			s.blobs.Delete(inline)
		}
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sketch)
}

func (s *Server) handleRoundImage(c *gin.Context) {
	round, err := strconv.Atoi(c.Param("round"))
	if err != nil || round < 1 {
		badRequest(c, "round must be a positive number")
		return
	}
	image, err := s.svc.GenerateRoundImage(c.Request.Context(), c.Param("roomID"), round)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if image == nil {
		c.JSON(http.StatusNotFound, errorBody("nothing drawn in this round", "no_image"))
		return
	}
	c.Header("X-Stroke-Count", strconv.Itoa(image.StrokeCount))
	c.Data(http.StatusOK, "image/svg+xml", []byte(image.SVG))
}

func (s *Server) handlePutBlob(c *gin.Context) {
	if s.blobs == nil {
		c.Status(http.StatusNotFound)
		return
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, int64(s.blobs.MaxSize())+1))
	if err != nil {
		badRequest(c, "failed to read upload")
		return
	}
	contentType := c.ContentType()
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(body)
	}
	if !strings.HasPrefix(contentType, "image/") {
		badRequest(c, "upload must be an image")
		return
	}
	if err := s.blobs.Put(c.Param("handle"), contentType, body); err != nil {
		if errors.Is(err, game.ErrBlobNotFound) {
			c.Status(http.StatusNotFound)
			return
		}
		if errors.Is(err, game.ErrBlobExists) {
			c.JSON(http.StatusConflict, errorBody(err.Error(), "blob_exists"))
			return
		}
		badRequest(c, err.Error())
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleGetBlob(c *gin.Context) {
	if s.blobs == nil {
		c.Status(http.StatusNotFound)
		return
	}
	blob, err := s.blobs.Get(c.Param("handle"))
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	c.Header("Cache-Control", "public, max-age=31536000, immutable")
	c.Data(http.StatusOK, blob.ContentType, blob.Data)
}
