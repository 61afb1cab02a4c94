package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/RowanDark/decoder/internal/cipher"
)

// textBodyLimit caps the JSON body of the cipher endpoints.
const textBodyLimit = 4 << 20

// Key accepts a JSON string or an integral JSON number, since Caesar keys
// are naturally numeric.
type Key string

func (k *Key) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*k = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*k = Key(s)
		return nil
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("key must be a string or an integer, got %s", data)
	}
	*k = Key(strconv.FormatInt(n, 10))
	return nil
}

// CipherEncryptRequest encrypts Input with the named cipher. Key may be
// omitted to have one generated.
type CipherEncryptRequest struct {
	Cipher string `json:"cipher"`
	Input  string `json:"input"`
	Key    Key    `json:"key,omitempty"`
}

// CipherEncryptResponse carries the ciphertext and the key that produced it.
type CipherEncryptResponse struct {
	Output string `json:"output"`
	Key    string `json:"key"`
}

// CipherDecryptRequest decrypts Input with the named cipher and Key.
type CipherDecryptRequest struct {
	Cipher string `json:"cipher"`
	Input  string `json:"input"`
	Key    Key    `json:"key"`
}

// CipherTextRequest carries a single input.
type CipherTextRequest struct {
	Input string `json:"input"`
}

// CipherOutputResponse carries a single output.
type CipherOutputResponse struct {
	Output string `json:"output"`
}

// CipherDetectResponse represents the detection result
type CipherDetectResponse struct {
	Detections []cipher.DetectionResult `json:"detections"`
}

// CipherPipelineRequest runs Operations against Input, or their inverse
// chain when Reverse is set.
type CipherPipelineRequest struct {
	Input      string                   `json:"input"`
	Operations []cipher.OperationConfig `json:"operations"`
	Reverse    bool                     `json:"reverse,omitempty"`
}

// CipherPipelineResponse returns the output and the steps as executed,
// including any generated keys.
type CipherPipelineResponse struct {
	Output     string                   `json:"output"`
	Operations []cipher.OperationConfig `json:"operations,omitempty"`
}

func (s *Server) handleEncrypt(w http.ResponseWriter, r *http.Request) {
	var req CipherEncryptRequest
	if !s.decode(w, r, textBodyLimit, &req) {
		return
	}
	if strings.TrimSpace(req.Cipher) == "" {
		s.badRequest(w, "cipher field is required")
		return
	}
	out, key, err := s.svc.Encrypt(r.Context(), req.Cipher, req.Input, string(req.Key))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, CipherEncryptResponse{Output: out, Key: key})
}

func (s *Server) handleDecrypt(w http.ResponseWriter, r *http.Request) {
	var req CipherDecryptRequest
	if !s.decode(w, r, textBodyLimit, &req) {
		return
	}
	if strings.TrimSpace(req.Cipher) == "" {
		s.badRequest(w, "cipher field is required")
		return
	}
	out, err := s.svc.Decrypt(r.Context(), req.Cipher, req.Input, string(req.Key))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, CipherOutputResponse{Output: out})
}

func (s *Server) handleAutoDecrypt(w http.ResponseWriter, r *http.Request) {
	var req CipherTextRequest
	if !s.decode(w, r, textBodyLimit, &req) {
		return
	}
	out, err := s.svc.ShiftAutoDecrypt(r.Context(), req.Input)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, CipherOutputResponse{Output: out})
}

func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	var req CipherTextRequest
	if !s.decode(w, r, textBodyLimit, &req) {
		return
	}
	if req.Input == "" {
		s.badRequest(w, "input field is required")
		return
	}
	detections, err := s.svc.Detect(r.Context(), req.Input)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if detections == nil {
		detections = []cipher.DetectionResult{}
	}
	s.writeJSON(w, http.StatusOK, CipherDetectResponse{Detections: detections})
}

func (s *Server) handlePipeline(w http.ResponseWriter, r *http.Request) {
	var req CipherPipelineRequest
	if !s.decode(w, r, textBodyLimit, &req) {
		return
	}
	if len(req.Operations) == 0 {
		s.badRequest(w, "operations field is required and must not be empty")
		return
	}

	if req.Reverse {
		out, err := s.svc.ReversePipeline(r.Context(), req.Input, req.Operations)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, CipherPipelineResponse{Output: out})
		return
	}

	out, steps, err := s.svc.RunPipeline(r.Context(), req.Input, req.Operations)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, CipherPipelineResponse{Output: out, Operations: steps})
}
