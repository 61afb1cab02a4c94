package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RowanDark/decoder/internal/cipher"
	"github.com/RowanDark/decoder/internal/imageio"
	"github.com/RowanDark/decoder/internal/stego"
)

const orwell = "It was a bright cold day in April, and the clocks were striking thirteen. " +
	"Winston Smith, his chin nuzzled into his breast in an effort to escape the vile wind, " +
	"slipped quickly through the glass doors of Victory Mansions, though not quickly enough " +
	"to prevent a swirl of gritty dust from entering along with him."

// isolate keeps user config files and DECODER_* variables out of the run.
func isolate(t *testing.T) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, name := range []string{
		"DECODER_HTTP_ADDR", "DECODER_GRPC_ADDR", "DECODER_AUDIT_LOG",
		"DECODER_LOG_LEVEL", "DECODER_SEED", "DECODER_MAX_IMAGE_BYTES",
	} {
		t.Setenv(name, "")
	}
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestUsageErrors(t *testing.T) {
	isolate(t)

	tests := []struct {
		name string
		args []string
	}{
		{"no command", nil},
		{"unknown command", []string{"rot13"}},
		{"missing subcommand", []string{"caesar"}},
		{"unknown subcommand", []string{"stego", "split"}},
		{"bad flag", []string{"caesar", "encrypt", "-bogus"}},
		{"merge without paths", []string{"stego", "merge"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, _ := runCLI(t, "", tt.args...)
			assert.Equal(t, 2, code)
		})
	}
}

func TestVersion(t *testing.T) {
	code, stdout, _ := runCLI(t, "", "version")
	assert.Equal(t, 0, code)
	assert.Equal(t, "decoder dev\n", stdout)

	code, _, _ = runCLI(t, "", "version", "extra")
	assert.Equal(t, 2, code)
}

func TestCaesarCommands(t *testing.T) {
	isolate(t)

	code, stdout, stderr := runCLI(t, "", "caesar", "encrypt", "-key", "3", "-text", "Attack at dawn")
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "Dwwdfn dw gdzq\n", stdout)
	assert.Empty(t, stderr)

	code, stdout, _ = runCLI(t, "Dwwdfn dw gdzq\n", "caesar", "decrypt", "-key", "3")
	require.Equal(t, 0, code)
	assert.Equal(t, "Attack at dawn\n", stdout)

	code, _, stderr = runCLI(t, "", "caesar", "decrypt", "-text", "abc")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "-key is required")

	code, _, stderr = runCLI(t, "", "caesar", "encrypt", "-key", "three", "-text", "abc")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "integer")
}

func TestCaesarGeneratedKeyIsPrinted(t *testing.T) {
	isolate(t)

	code, stdout, stderr := runCLI(t, "", "caesar", "encrypt", "-seed", "42", "-text", "Hello")
	require.Equal(t, 0, code)
	require.True(t, strings.HasPrefix(stderr, "key: "), stderr)
	key := strings.TrimSpace(strings.TrimPrefix(stderr, "key: "))

	code, plain, _ := runCLI(t, "", "caesar", "decrypt", "-key", key, "-text", strings.TrimSpace(stdout))
	require.Equal(t, 0, code)
	assert.Equal(t, "Hello\n", plain)
}

func TestCaesarAuto(t *testing.T) {
	dir := isolate(t)
	k := 7
	shifted, _, err := cipher.ShiftEncrypt(orwell, &k, nil)
	require.NoError(t, err)
	in := filepath.Join(dir, "cipher.txt")
	out := filepath.Join(dir, "plain.txt")
	require.NoError(t, os.WriteFile(in, []byte(shifted), 0o600))

	code, stdout, stderr := runCLI(t, "", "caesar", "auto", "-in", in, "-out", out)
	require.Equal(t, 0, code, stderr)
	assert.Empty(t, stdout)

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, orwell, string(got))
}

func TestNamedCiphers(t *testing.T) {
	isolate(t)

	code, stdout, _ := runCLI(t, "", "vigenere", "encrypt", "-key", "LEMON", "-text", "ATTACKATDAWN")
	require.Equal(t, 0, code)
	assert.Equal(t, "LXFOPVEFRNHR\n", stdout)

	code, stdout, _ = runCLI(t, "", "vigenere", "decrypt", "-key", "LEMON", "-text", "LXFOPVEFRNHR")
	require.Equal(t, 0, code)
	assert.Equal(t, "ATTACKATDAWN\n", stdout)

	code, _, stderr := runCLI(t, "", "vernam", "decrypt", "-text", "abc")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "error:")
}

func TestVernamGeneratedKeyRoundTrip(t *testing.T) {
	isolate(t)

	code, stdout, stderr := runCLI(t, "Meet me at noon", "vernam", "encrypt", "-seed", "5")
	require.Equal(t, 0, code)
	key := strings.TrimSpace(strings.TrimPrefix(stderr, "key: "))
	require.NotEmpty(t, key)

	// The ciphertext never gains a newline, so the printed one is ours.
	encrypted := strings.TrimSuffix(stdout, "\n")
	code, plain, _ := runCLI(t, encrypted, "vernam", "decrypt", "-key", key)
	require.Equal(t, 0, code)
	assert.Equal(t, "Meet me at noon\n", plain)
}

func TestInputFlagsAreExclusive(t *testing.T) {
	dir := isolate(t)
	in := filepath.Join(dir, "in.txt")
	require.NoError(t, os.WriteFile(in, []byte("x"), 0o600))

	code, _, stderr := runCLI(t, "", "caesar", "auto", "-in", in, "-text", "y")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "mutually exclusive")
}

func TestDetect(t *testing.T) {
	isolate(t)

	code, stdout, _ := runCLI(t, "", "detect", "-text", "01001000 01101001 00100001 00100001")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "ENCODING")
	assert.Contains(t, stdout, "binary")

	code, _, stderr := runCLI(t, "", "detect", "-text", "")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "empty input")
}

func TestStegoCommands(t *testing.T) {
	dir := isolate(t)
	carrierPath := filepath.Join(dir, "carrier.png")
	payloadPath := filepath.Join(dir, "payload.bmp")
	mergedPath := filepath.Join(dir, "merged.png")
	recoveredPath := filepath.Join(dir, "recovered.tiff")

	payload := stego.NewUniformGrid(2, 2, stego.Pixel{R: 0xA0, G: 0x30, B: 0xF0})
	require.NoError(t, imageio.WriteImage(carrierPath, stego.NewUniformGrid(4, 3, stego.Pixel{R: 200, G: 100, B: 50})))
	require.NoError(t, imageio.WriteImage(payloadPath, payload))

	code, stdout, stderr := runCLI(t, "", "stego", "merge",
		"-carrier", carrierPath, "-payload", payloadPath, "-out", mergedPath)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "merged 2x2 payload into 4x3 carrier")

	code, stdout, stderr = runCLI(t, "", "stego", "unmerge", "-in", mergedPath, "-out", recoveredPath)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "recovered 2x2 payload")

	got, err := imageio.ReadImage(recoveredPath, 0)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestStegoErrors(t *testing.T) {
	dir := isolate(t)
	small := filepath.Join(dir, "small.png")
	large := filepath.Join(dir, "large.png")
	require.NoError(t, imageio.WriteImage(small, stego.NewUniformGrid(1, 1, stego.Pixel{R: 1})))
	require.NoError(t, imageio.WriteImage(large, stego.NewUniformGrid(2, 2, stego.Pixel{R: 1})))

	code, _, stderr := runCLI(t, "", "stego", "merge",
		"-carrier", small, "-payload", large, "-out", filepath.Join(dir, "out.png"))
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "payload larger than carrier")

	code, _, stderr = runCLI(t, "", "stego", "unmerge", "-in", small, "-out", filepath.Join(dir, "out.gif"))
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "unsupported image format")

	code, _, _ = runCLI(t, "", "stego", "unmerge", "-in", filepath.Join(dir, "missing.png"), "-out", filepath.Join(dir, "o.png"))
	assert.Equal(t, 1, code)
}

func TestStegoRejectsLossyOutput(t *testing.T) {
	dir := isolate(t)
	carrier := filepath.Join(dir, "carrier.png")
	payload := filepath.Join(dir, "payload.png")
	require.NoError(t, imageio.WriteImage(carrier, stego.NewUniformGrid(2, 2, stego.Pixel{R: 200})))
	require.NoError(t, imageio.WriteImage(payload, stego.NewUniformGrid(1, 1, stego.Pixel{G: 0xF0})))

	merged := filepath.Join(dir, "merged.jpg")
	code, _, stderr := runCLI(t, "", "stego", "merge", "-carrier", carrier, "-payload", payload, "-out", merged)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "lossy image format")
	assert.NoFileExists(t, merged)

	code, _, stderr = runCLI(t, "", "stego", "unmerge", "-in", carrier, "-out", filepath.Join(dir, "out.jpeg"))
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "lossy image format")
}

func TestUnmergeWarnsWhenNothingHidden(t *testing.T) {
	dir := isolate(t)
	plain := filepath.Join(dir, "plain.png")
	require.NoError(t, imageio.WriteImage(plain, stego.NewUniformGrid(2, 2, stego.Pixel{R: 0xF0, G: 0xF0, B: 0xF0})))

	code, _, stderr := runCLI(t, "", "stego", "unmerge", "-in", plain, "-out", filepath.Join(dir, "out.png"))
	require.Equal(t, 0, code)
	assert.Contains(t, stderr, "no hidden content")
}

func TestConfigErrorsFailFast(t *testing.T) {
	isolate(t)
	t.Setenv("DECODER_LOG_LEVEL", "loud")

	code, _, stderr := runCLI(t, "", "caesar", "auto", "-text", "x")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "load config")
}
