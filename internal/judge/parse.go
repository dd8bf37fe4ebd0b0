package judge

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	scoreRe  = regexp.MustCompile(`(?i)SCORE:\s*([0-9]+(?:\.[0-9]+)?)`)
	numberRe = regexp.MustCompile(`[0-9]+(?:\.[0-9]+)?`)
)

// ParseVerdict extracts the numeric score and feedback from a judge response.
// The judge is instructed to answer in a SCORE/FEEDBACK format, but models
// drift, so any leading number is accepted as a fallback. Scores are clamped
// to [0, scale].
func ParseVerdict(text string, scale int) (float64, string, error) {
	var score float64
	var found bool

	if m := scoreRe.FindStringSubmatch(text); m != nil {
		score, _ = strconv.ParseFloat(m[1], 64)
		found = true
	} else if m := numberRe.FindString(text); m != "" {
		score, _ = strconv.ParseFloat(m, 64)
		found = true
	}
	if !found {
		return 0, "", fmt.Errorf("no score found in judge response")
	}

	if score < 0 {
		score = 0
	}
	if score > float64(scale) {
		score = float64(scale)
	}

	feedback := text
	if idx := strings.Index(strings.ToUpper(text), "FEEDBACK:"); idx >= 0 {
		feedback = strings.TrimSpace(text[idx+len("FEEDBACK:"):])
	}
	return score, feedback, nil
}
