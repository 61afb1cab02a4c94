package cipher

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/RowanDark/decoder/internal/stego"
)

// Keyed cipher operations

// CipherOp runs one direction of a Cipher
type CipherOp struct {
	BaseOperation
	Cipher  Cipher
	decrypt bool
}

func (op *CipherOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key, err := keyParam(params)
	if err != nil {
		return nil, err
	}

	if op.decrypt {
		out, err := Decrypt(op.Cipher, string(input), key)
		if err != nil {
			return nil, err
		}
		return []byte(out), nil
	}

	rng, err := sourceParam(ctx, params)
	if err != nil {
		return nil, err
	}
	out, used, err := Encrypt(op.Cipher, string(input), key, rng)
	if err != nil {
		return nil, err
	}
	if params != nil {
		params["key"] = used
	}
	return []byte(out), nil
}

// CaesarAutoDecryptOp breaks a shift cipher without the key
type CaesarAutoDecryptOp struct {
	BaseOperation
}

func (op *CaesarAutoDecryptOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	shift, _ := BestShift(string(input))
	if params != nil {
		params["shift"] = shift
	}
	return []byte(shiftText(string(input), shift)), nil
}

// Binary Operations

// BinaryEncodeOp renders every byte as an 8-bit string
type BinaryEncodeOp struct {
	BaseOperation
}

func (op *BinaryEncodeOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	var buf bytes.Buffer
	for i, b := range input {
		if i > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(string(stego.IntToBin(b)))
	}
	return buf.Bytes(), nil
}

// BinaryDecodeOp parses 8-bit strings back into bytes
type BinaryDecodeOp struct {
	BaseOperation
}

func (op *BinaryDecodeOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	inputStr := strings.Join(strings.Fields(string(input)), "")

	if len(inputStr)%8 != 0 {
		return nil, fmt.Errorf("%w: binary string length must be multiple of 8, got %d", ErrInvalidInput, len(inputStr))
	}

	result := make([]byte, 0, len(inputStr)/8)
	for i := 0; i < len(inputStr); i += 8 {
		val, err := stego.BinToInt(stego.BitString(inputStr[i : i+8]))
		if err != nil {
			return nil, fmt.Errorf("%w: position %d: %w", ErrInvalidInput, i, err)
		}
		result = append(result, val)
	}
	return result, nil
}

// keyParam reads the "key" parameter. Numbers are accepted for Caesar keys
// arriving from JSON.
func keyParam(params map[string]interface{}) (string, error) {
	raw, ok := params["key"]
	if !ok || raw == nil {
		return "", nil
	}
	switch v := raw.(type) {
	case string:
		return v, nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		if v != math.Trunc(v) {
			return "", fmt.Errorf("%w: key %v is not an integer", ErrInvalidKey, v)
		}
		return strconv.FormatInt(int64(v), 10), nil
	default:
		return "", fmt.Errorf("%w: unsupported key type %T", ErrInvalidKey, raw)
	}
}

// sourceParam returns a seeded source when a "seed" parameter is present and
// the source carried by ctx otherwise.
func sourceParam(ctx context.Context, params map[string]interface{}) (Source, error) {
	raw, ok := params["seed"]
	if !ok || raw == nil {
		return SourceFromContext(ctx), nil
	}
	switch v := raw.(type) {
	case int:
		return NewSeededSource(uint64(v)), nil
	case int64:
		return NewSeededSource(uint64(v)), nil
	case uint64:
		return NewSeededSource(v), nil
	case float64:
		return NewSeededSource(uint64(v)), nil
	default:
		return nil, fmt.Errorf("%w: seed must be a number, got %T", ErrInvalidInput, raw)
	}
}

func newCipherOps(c Cipher, label string) (*CipherOp, *CipherOp) {
	name := c.Name()
	encrypt := &CipherOp{
		BaseOperation: BaseOperation{
			NameValue:        name + "_encrypt",
			TypeValue:        OperationTypeEncrypt,
			DescriptionValue: "Encrypt text with the " + label,
		},
		Cipher: c,
	}
	decrypt := &CipherOp{
		BaseOperation: BaseOperation{
			NameValue:        name + "_decrypt",
			TypeValue:        OperationTypeDecrypt,
			DescriptionValue: "Decrypt text with the " + label,
		},
		Cipher:  c,
		decrypt: true,
	}
	encrypt.ReverseOp = decrypt
	decrypt.ReverseOp = encrypt
	return encrypt, decrypt
}

// init registers the classical ciphers and the bit-string codec
func init() {
	caesarEncrypt, caesarDecrypt := newCipherOps(Caesar{}, "Caesar shift cipher")
	vigenereEncrypt, vigenereDecrypt := newCipherOps(Vigenere{}, "Vigenère cipher")
	vernamEncrypt, vernamDecrypt := newCipherOps(Vernam{}, "Vernam XOR cipher")

	caesarAuto := &CaesarAutoDecryptOp{
		BaseOperation: BaseOperation{
			NameValue:        "caesar_auto_decrypt",
			TypeValue:        OperationTypeAnalyze,
			DescriptionValue: "Recover Caesar plaintext by English letter frequency analysis",
		},
	}

	binaryEncode := &BinaryEncodeOp{
		BaseOperation: BaseOperation{
			NameValue:        "binary_encode",
			TypeValue:        OperationTypeEncode,
			DescriptionValue: "Encode bytes as 8-bit binary strings",
		},
	}
	binaryDecode := &BinaryDecodeOp{
		BaseOperation: BaseOperation{
			NameValue:        "binary_decode",
			TypeValue:        OperationTypeDecode,
			DescriptionValue: "Decode 8-bit binary strings to bytes",
		},
	}
	binaryEncode.ReverseOp = binaryDecode
	binaryDecode.ReverseOp = binaryEncode

	for _, op := range []Operation{
		caesarEncrypt, caesarDecrypt, caesarAuto,
		vigenereEncrypt, vigenereDecrypt,
		vernamEncrypt, vernamDecrypt,
		binaryEncode, binaryDecode,
	} {
		if err := RegisterOperation(op); err != nil {
			panic(err)
		}
	}
}
