package cipher

import "math"

// EnglishLetterFrequencies is the relative frequency of a..z in English text.
var EnglishLetterFrequencies = [alphabetSize]float64{
	0.082, 0.015, 0.028, 0.043, 0.130, 0.022,
	0.020, 0.061, 0.070, 0.0015, 0.0077, 0.040,
	0.024, 0.067, 0.075, 0.019, 0.00095, 0.060,
	0.063, 0.091, 0.028, 0.0098, 0.024, 0.0015,
	0.020, 0.00074,
}

// letterSample lowercases the letters of text and drops everything else.
func letterSample(text string) []int {
	sample := make([]int, 0, len(text))
	for _, r := range text {
		switch {
		case isLower(r):
			sample = append(sample, int(r-'a'))
		case isUpper(r):
			sample = append(sample, int(r-'A'))
		}
	}
	return sample
}

// deviation is the sum of squared differences between the letter frequencies
// of sample shifted by shift and the English reference.
func deviation(sample []int, shift int) float64 {
	var counts [alphabetSize]int
	for _, letter := range sample {
		counts[(letter+shift)%alphabetSize]++
	}
	total := float64(len(sample))
	var sum float64
	for i, n := range counts {
		d := float64(n)/total - EnglishLetterFrequencies[i]
		sum += d * d
	}
	return sum
}

// ShiftScores returns the deviation for every candidate shift 0..25. It
// returns nil when text contains no letters.
func ShiftScores(text string) []float64 {
	sample := letterSample(text)
	if len(sample) == 0 {
		return nil
	}
	scores := make([]float64, alphabetSize)
	for shift := range scores {
		scores[shift] = deviation(sample, shift)
	}
	return scores
}

// BestShift returns the shift that turns text into the most English-like
// letter distribution, together with its deviation. Ties go to the lowest
// shift. Text without letters yields shift 0.
func BestShift(text string) (int, float64) {
	scores := ShiftScores(text)
	if scores == nil {
		return 0, math.Inf(1)
	}
	best := 0
	for shift, score := range scores {
		if score < scores[best] {
			best = shift
		}
	}
	return best, scores[best]
}
