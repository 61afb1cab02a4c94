package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RowanDark/decoder/internal/imageio"
	"github.com/RowanDark/decoder/internal/service"
	"github.com/RowanDark/decoder/internal/stego"
)

func TestKeyUnmarshal(t *testing.T) {
	tests := []struct {
		raw     string
		want    Key
		wantErr bool
	}{
		{`"lemon"`, "lemon", false},
		{`3`, "3", false},
		{`-29`, "-29", false},
		{`null`, "", false},
		{`2.5`, "", true},
		{`[1]`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			var k Key
			err := json.Unmarshal([]byte(tt.raw), &k)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, k)
		})
	}
}

func TestEncryptDecryptEndpoints(t *testing.T) {
	server, _ := setupTestServer(t)
	h := server.Handler()

	rec := postJSON(t, h, "/api/v1/cipher/encrypt", map[string]any{
		"cipher": "caesar", "input": "Attack at dawn", "key": 3,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var enc CipherEncryptResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &enc))
	assert.Equal(t, "Dwwdfn dw gdzq", enc.Output)
	assert.Equal(t, "3", enc.Key)

	rec = postJSON(t, h, "/api/v1/cipher/decrypt", map[string]any{
		"cipher": "caesar", "input": enc.Output, "key": "3",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var dec CipherOutputResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dec))
	assert.Equal(t, "Attack at dawn", dec.Output)
}

func TestEncryptGeneratesKey(t *testing.T) {
	server, _ := setupTestServer(t)
	h := server.Handler()

	for _, name := range []string{"vigenere", "vernam"} {
		t.Run(name, func(t *testing.T) {
			rec := postJSON(t, h, "/api/v1/cipher/encrypt", map[string]any{"cipher": name, "input": "Meet me\nat noon"})
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			var enc CipherEncryptResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &enc))
			require.NotEmpty(t, enc.Key)

			rec = postJSON(t, h, "/api/v1/cipher/decrypt", map[string]any{"cipher": name, "input": enc.Output, "key": enc.Key})
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			var dec CipherOutputResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dec))
			assert.Equal(t, "Meet me\nat noon", dec.Output)
		})
	}
}

func TestCipherErrorStatuses(t *testing.T) {
	server, _ := setupTestServer(t)
	h := server.Handler()

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		kind   service.Kind
	}{
		{"invalid json", "/api/v1/cipher/encrypt", `{`, http.StatusBadRequest, service.KindInvalidInput},
		{"empty body", "/api/v1/cipher/encrypt", ``, http.StatusBadRequest, service.KindInvalidInput},
		{"unknown field", "/api/v1/cipher/encrypt", `{"cipher":"caesar","text":"x"}`, http.StatusBadRequest, service.KindInvalidInput},
		{"missing cipher", "/api/v1/cipher/encrypt", `{"input":"x"}`, http.StatusBadRequest, service.KindInvalidInput},
		{"unknown cipher", "/api/v1/cipher/encrypt", `{"cipher":"enigma","input":"x"}`, http.StatusBadRequest, service.KindInvalidInput},
		{"non numeric caesar key", "/api/v1/cipher/encrypt", `{"cipher":"caesar","input":"x","key":"abc"}`, http.StatusUnprocessableEntity, service.KindInvalidKey},
		{"missing decrypt key", "/api/v1/cipher/decrypt", `{"cipher":"vigenere","input":"x"}`, http.StatusUnprocessableEntity, service.KindInvalidKey},
		{"short vernam key", "/api/v1/cipher/encrypt", `{"cipher":"vernam","input":"hello","key":"ab"}`, http.StatusUnprocessableEntity, service.KindInvalidKey},
		{"empty detect", "/api/v1/cipher/detect", `{"input":""}`, http.StatusBadRequest, service.KindInvalidInput},
		{"empty pipeline", "/api/v1/cipher/pipeline", `{"input":"x","operations":[]}`, http.StatusBadRequest, service.KindInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			var resp errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.kind, resp.Kind)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestAutoDecryptEndpoint(t *testing.T) {
	server, _ := setupTestServer(t)
	text := "It was a bright cold day in April, and the clocks were striking thirteen. " +
		"Winston Smith, his chin nuzzled into his breast in an effort to escape the vile wind, " +
		"slipped quickly through the glass doors of Victory Mansions, though not quickly enough " +
		"to prevent a swirl of gritty dust from entering along with him."

	h := server.Handler()
	rec := postJSON(t, h, "/api/v1/cipher/encrypt", map[string]any{"cipher": "caesar", "input": text, "key": 7})
	require.Equal(t, http.StatusOK, rec.Code)
	var enc CipherEncryptResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &enc))

	rec = postJSON(t, h, "/api/v1/cipher/auto-decrypt", map[string]any{"input": enc.Output})
	require.Equal(t, http.StatusOK, rec.Code)
	var out CipherOutputResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, text, out.Output)

	rec = postJSON(t, h, "/api/v1/cipher/detect", map[string]any{"input": enc.Output})
	require.Equal(t, http.StatusOK, rec.Code)
	var det CipherDetectResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &det))
	require.NotEmpty(t, det.Detections)
	assert.Equal(t, "caesar", det.Detections[0].Encoding)
}

func TestPipelineEndpointRoundTrip(t *testing.T) {
	server, _ := setupTestServer(t)
	h := server.Handler()

	rec := postJSON(t, h, "/api/v1/cipher/pipeline", map[string]any{
		"input": "Hold the line",
		"operations": []map[string]any{
			{"name": "vernam_encrypt", "parameters": map[string]any{"seed": 9}},
			{"name": "caesar_encrypt", "parameters": map[string]any{"key": 5}},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var forward CipherPipelineResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &forward))
	require.Len(t, forward.Operations, 2)
	assert.NotEmpty(t, forward.Operations[0].Parameters["key"])

	rec = postJSON(t, h, "/api/v1/cipher/pipeline", map[string]any{
		"input":      forward.Output,
		"operations": forward.Operations,
		"reverse":    true,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var back CipherPipelineResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &back))
	assert.Equal(t, "Hold the line", back.Output)
}

func encodeGrid(t *testing.T, g *stego.PixelGrid) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, imageio.EncodePNG(&buf, g))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func decodeResponseGrid(t *testing.T, rec *httptest.ResponseRecorder) *stego.PixelGrid {
	t.Helper()
	var resp StegoImageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	raw, err := base64.StdEncoding.DecodeString(resp.Image)
	require.NoError(t, err)
	grid, format, err := imageio.DecodeImage(bytes.NewReader(raw), 0)
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, resp.Width, grid.Width)
	assert.Equal(t, resp.Height, grid.Height)
	return grid
}

func TestStegoEndpoints(t *testing.T) {
	server, _ := setupTestServer(t)
	h := server.Handler()

	carrier := stego.NewUniformGrid(2, 2, stego.Pixel{R: 255, G: 255, B: 255})
	payload := stego.NewUniformGrid(1, 1, stego.Pixel{R: 0xF0, G: 0x80, B: 0x10})

	rec := postJSON(t, h, "/api/v1/stego/merge", StegoMergeRequest{
		Carrier: encodeGrid(t, carrier),
		Payload: encodeGrid(t, payload),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	merged := decodeResponseGrid(t, rec)
	assert.Equal(t, stego.Pixel{R: 0xFF, G: 0xF8, B: 0xF1}, merged.At(0, 0))
	assert.Equal(t, stego.Pixel{R: 0xF0, G: 0xF0, B: 0xF0}, merged.At(1, 1))

	rec = postJSON(t, h, "/api/v1/stego/unmerge", StegoUnmergeRequest{Image: encodeGrid(t, merged)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, payload, decodeResponseGrid(t, rec))
}

func TestStegoErrors(t *testing.T) {
	server, _ := setupTestServer(t)
	h := server.Handler()
	small := encodeGrid(t, stego.NewUniformGrid(1, 1, stego.Pixel{R: 1}))
	large := encodeGrid(t, stego.NewUniformGrid(2, 2, stego.Pixel{R: 1}))

	rec := postJSON(t, h, "/api/v1/stego/merge", StegoMergeRequest{Carrier: small, Payload: large})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), string(service.KindSizeMismatch))

	rec = postJSON(t, h, "/api/v1/stego/merge", StegoMergeRequest{Carrier: small})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, h, "/api/v1/stego/unmerge", StegoUnmergeRequest{Image: "%%%"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, h, "/api/v1/stego/unmerge", StegoUnmergeRequest{Image: base64.StdEncoding.EncodeToString([]byte("nope"))})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBodyLimit(t *testing.T) {
	server, _ := setupTestServer(t)
	huge := strings.Repeat("a", textBodyLimit+1)
	rec := postJSON(t, server.Handler(), "/api/v1/cipher/auto-decrypt", map[string]any{"input": huge})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
