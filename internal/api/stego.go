package api

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/RowanDark/decoder/internal/cipher"
	"github.com/RowanDark/decoder/internal/imageio"
	"github.com/RowanDark/decoder/internal/stego"
)

// StegoMergeRequest carries two base64 encoded images.
type StegoMergeRequest struct {
	Carrier string `json:"carrier"`
	Payload string `json:"payload"`
}

// StegoUnmergeRequest carries one base64 encoded image.
type StegoUnmergeRequest struct {
	Image string `json:"image"`
}

// StegoImageResponse returns a base64 PNG.
type StegoImageResponse struct {
	Image  string `json:"image"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// imageBodyLimit allows for base64 overhead on up to two images.
func (s *Server) imageBodyLimit() int64 {
	return s.cfg.MaxImageBytes*3 + 1024
}

func (s *Server) decodeImageField(name, value string) (*stego.PixelGrid, error) {
	if value == "" {
		return nil, fmt.Errorf("%w: %s field is required", cipher.ErrInvalidInput, name)
	}
	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not valid base64: %v", cipher.ErrInvalidInput, name, err)
	}
	grid, _, err := imageio.DecodeImage(bytes.NewReader(raw), s.cfg.MaxImageBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", cipher.ErrInvalidInput, name, err)
	}
	return grid, nil
}

func (s *Server) writeImage(w http.ResponseWriter, r *http.Request, grid *stego.PixelGrid) {
	var buf bytes.Buffer
	if err := imageio.EncodePNG(&buf, grid); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, StegoImageResponse{
		Image:  base64.StdEncoding.EncodeToString(buf.Bytes()),
		Width:  grid.Width,
		Height: grid.Height,
	})
}

func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	var req StegoMergeRequest
	if !s.decode(w, r, s.imageBodyLimit(), &req) {
		return
	}
	carrier, err := s.decodeImageField("carrier", req.Carrier)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	payload, err := s.decodeImageField("payload", req.Payload)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	merged, err := s.svc.Merge(r.Context(), carrier, payload)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeImage(w, r, merged)
}

func (s *Server) handleUnmerge(w http.ResponseWriter, r *http.Request) {
	var req StegoUnmergeRequest
	if !s.decode(w, r, s.imageBodyLimit(), &req) {
		return
	}
	img, err := s.decodeImageField("image", req.Image)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	payload, err := s.svc.Unmerge(r.Context(), img)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeImage(w, r, payload)
}
