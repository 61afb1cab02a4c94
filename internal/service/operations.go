package service

import (
	"context"
	"fmt"

	"github.com/RowanDark/decoder/internal/cipher"
	"github.com/RowanDark/decoder/internal/stego"
)

// Merge hides payload in the low nibbles of carrier.
func (s *Service) Merge(ctx context.Context, carrier, payload *stego.PixelGrid) (*stego.PixelGrid, error) {
	var out *stego.PixelGrid
	meta := map[string]any{}
	if carrier != nil && payload != nil {
		meta["carrier"] = fmt.Sprintf("%dx%d", carrier.Width, carrier.Height)
		meta["payload"] = fmt.Sprintf("%dx%d", payload.Width, payload.Height)
	}
	err := s.run(ctx, "merge", meta, func() error {
		var err error
		out, err = stego.Merge(carrier, payload)
		return err
	})
	return out, err
}

// Unmerge recovers the payload hidden in img.
func (s *Service) Unmerge(ctx context.Context, img *stego.PixelGrid) (*stego.PixelGrid, error) {
	var out *stego.PixelGrid
	err := s.run(ctx, "unmerge", nil, func() error {
		if img == nil {
			return fmt.Errorf("%w: nil image", cipher.ErrInvalidInput)
		}
		out = stego.Unmerge(img)
		return nil
	})
	return out, err
}

// ShiftEncrypt applies a Caesar shift. A nil key draws one from [1, 25].
func (s *Service) ShiftEncrypt(ctx context.Context, text string, key *int) (string, int, error) {
	var (
		out  string
		used int
	)
	err := s.run(ctx, "caesar_encrypt", textMeta(text), func() error {
		var err error
		out, used, err = cipher.ShiftEncrypt(text, key, s.rng)
		return err
	})
	if err == nil && key == nil {
		s.keyGenerated(ctx, "caesar_encrypt", fmt.Sprint(used))
	}
	return out, used, err
}

func (s *Service) ShiftDecrypt(ctx context.Context, text string, key int) (string, error) {
	var out string
	err := s.run(ctx, "caesar_decrypt", textMeta(text), func() error {
		out = cipher.ShiftDecrypt(text, key)
		return nil
	})
	return out, err
}

// ShiftAutoDecrypt recovers a Caesar plaintext by frequency analysis.
func (s *Service) ShiftAutoDecrypt(ctx context.Context, text string) (string, error) {
	var out string
	err := s.run(ctx, "caesar_auto_decrypt", textMeta(text), func() error {
		out = cipher.ShiftAutoDecrypt(text)
		return nil
	})
	return out, err
}

func (s *Service) VigenereEncrypt(ctx context.Context, text, key string) (string, string, error) {
	return s.Encrypt(ctx, "vigenere", text, key)
}

func (s *Service) VigenereDecrypt(ctx context.Context, text, key string) (string, error) {
	return s.Decrypt(ctx, "vigenere", text, key)
}

func (s *Service) VernamEncrypt(ctx context.Context, text, key string) (string, string, error) {
	return s.Encrypt(ctx, "vernam", text, key)
}

func (s *Service) VernamDecrypt(ctx context.Context, text, key string) (string, error) {
	return s.Decrypt(ctx, "vernam", text, key)
}

// Encrypt runs the named cipher and returns the ciphertext and the key used.
// An empty key asks the cipher to generate one.
func (s *Service) Encrypt(ctx context.Context, name, text, key string) (string, string, error) {
	var out, used string
	op := name + "_encrypt"
	err := s.run(ctx, op, textMeta(text), func() error {
		c, err := lookupCipher(name)
		if err != nil {
			return err
		}
		op = c.Name() + "_encrypt"
		out, used, err = cipher.Encrypt(c, text, key, s.rng)
		return err
	})
	if err == nil && key == "" {
		s.keyGenerated(ctx, op, used)
	}
	return out, used, err
}

// Decrypt runs the inverse of the named cipher with key.
func (s *Service) Decrypt(ctx context.Context, name, text, key string) (string, error) {
	var out string
	err := s.run(ctx, name+"_decrypt", textMeta(text), func() error {
		c, err := lookupCipher(name)
		if err != nil {
			return err
		}
		out, err = cipher.Decrypt(c, text, key)
		return err
	})
	return out, err
}

// Detect ranks the encodings text most likely uses.
func (s *Service) Detect(ctx context.Context, text string) ([]cipher.DetectionResult, error) {
	var results []cipher.DetectionResult
	err := s.run(ctx, "detect", textMeta(text), func() error {
		var err error
		results, err = s.detector.Detect(ctx, []byte(text))
		return err
	})
	return results, err
}

// RunPipeline executes steps in order against input. The returned steps
// carry any keys generated along the way, so they can be reversed later.
func (s *Service) RunPipeline(ctx context.Context, input string, steps []cipher.OperationConfig) (string, []cipher.OperationConfig, error) {
	var out []byte
	resolved := make([]cipher.OperationConfig, len(steps))
	for i, step := range steps {
		resolved[i] = cipher.OperationConfig{Name: step.Name, Parameters: cloneParams(step.Parameters)}
	}
	meta := textMeta(input)
	meta["steps"] = len(steps)
	err := s.run(ctx, "pipeline", meta, func() error {
		p := &cipher.Pipeline{Operations: resolved}
		var err error
		out, err = p.Execute(cipher.WithSource(ctx, s.rng), []byte(input))
		return err
	})
	if err != nil {
		return "", nil, err
	}
	return string(out), resolved, nil
}

// ReversePipeline builds and runs the inverse of steps against input.
func (s *Service) ReversePipeline(ctx context.Context, input string, steps []cipher.OperationConfig) (string, error) {
	p := &cipher.Pipeline{Operations: steps, Reversible: true}
	reversed, err := p.Reverse()
	if err != nil {
		return "", err
	}
	out, _, err := s.RunPipeline(ctx, input, reversed.Operations)
	return out, err
}

func textMeta(text string) map[string]any {
	return map[string]any{"length": len([]rune(text))}
}

func cloneParams(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
