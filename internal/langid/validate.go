package langid

// DefaultThreshold is the confidence below which a detected language
// is not trusted enough to contradict the configured one.
const DefaultThreshold = 0.7

// Validate reports whether a transcription passes advisory language
// checking. The check fails only on a confident mismatch: when
// detection was unavailable, or the detector is not sure enough, the
// transcription gets the benefit of the doubt.
func Validate(expected, detected string, confidence, threshold float64) bool {
	if detected == "" {
		return true
	}
	if confidence < threshold {
		return true
	}
	return detected == expected
}
