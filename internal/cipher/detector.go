package cipher

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

const (
	// minConfidence drops guesses that are little better than noise
	minConfidence = 0.3

	// fullSampleLetters is the sample size at which frequency analysis is
	// trusted at face value
	fullSampleLetters = 200

	// maxDeviation is the squared deviation at which a distribution stops
	// looking like English at all
	maxDeviation = 0.05
)

var binaryPattern = regexp.MustCompile(`^[01]+$`)

// SmartDetector guesses which classical cipher produced a text
type SmartDetector struct{}

// NewSmartDetector creates a new smart detector
func NewSmartDetector() *SmartDetector {
	return &SmartDetector{}
}

// Detect returns guesses sorted by confidence, highest first
func (d *SmartDetector) Detect(ctx context.Context, input []byte) ([]DetectionResult, error) {
	if len(input) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrInvalidInput)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := []DetectionResult{}
	results = append(results, d.detectBinary(input)...)
	results = append(results, d.detectShift(input)...)
	results = append(results, d.detectVernam(input)...)

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Confidence > results[j].Confidence
	})

	filtered := []DetectionResult{}
	for _, r := range results {
		if r.Confidence >= minConfidence {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

// SupportedEncodings returns what this detector can identify
func (d *SmartDetector) SupportedEncodings() []string {
	return []string{"plaintext", "caesar", "vernam", "binary"}
}

// detectShift scores the text against English for every Caesar shift
func (d *SmartDetector) detectShift(input []byte) []DetectionResult {
	text := string(input)
	letters := len(letterSample(text))
	if letters == 0 {
		return nil
	}

	shift, score := BestShift(text)
	confidence := 1 - score/maxDeviation
	if confidence < 0 {
		confidence = 0
	}
	if letters < fullSampleLetters {
		confidence *= float64(letters) / fullSampleLetters
	}

	if shift == 0 {
		return []DetectionResult{{
			Encoding:   "plaintext",
			Confidence: confidence,
			Reasoning:  "Letter frequencies already match English",
		}}
	}
	return []DetectionResult{{
		Encoding:   "caesar",
		Confidence: confidence,
		Reasoning:  fmt.Sprintf("Letter frequencies match English after shifting by %d (key %d)", shift, mod(alphabetSize-shift, alphabetSize)),
		Operation:  "caesar_auto_decrypt",
	}}
}

// detectVernam looks for the symbols that XOR-ing letter offsets produces
// but that ordinary prose rarely contains
func (d *SmartDetector) detectVernam(input []byte) []DetectionResult {
	var letters, symbols int
	for _, r := range string(input) {
		switch {
		case isLetter(r):
			letters++
		case (r >= 'A' && r < 'A'+32) || (r >= 'a' && r < 'a'+32):
			symbols++
		}
	}
	total := letters + symbols
	if total == 0 || symbols == 0 {
		return nil
	}

	// offsets 26..31 make up 6 of 32 block positions under a uniform key
	ratio := float64(symbols) / float64(total)
	confidence := ratio / (6.0 / 32.0)
	if confidence > 0.9 {
		confidence = 0.9
	}
	return []DetectionResult{{
		Encoding:   "vernam",
		Confidence: confidence,
		Reasoning:  fmt.Sprintf("%d of %d alphabet-block characters are XOR overflow symbols", symbols, total),
		Operation:  "vernam_decrypt",
	}}
}

// detectBinary checks for 8-bit groups of 0s and 1s
func (d *SmartDetector) detectBinary(input []byte) []DetectionResult {
	inputStr := strings.Join(strings.Fields(string(input)), "")
	if !binaryPattern.MatchString(inputStr) || len(inputStr)%8 != 0 {
		return nil
	}

	confidence := 0.85
	if len(inputStr) < 32 {
		confidence = 0.6
	}
	return []DetectionResult{{
		Encoding:   "binary",
		Confidence: confidence,
		Reasoning:  "String contains only 0s and 1s in 8-bit groups",
		Operation:  "binary_decode",
	}}
}
