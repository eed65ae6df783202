package grade

import (
	"encoding/json"
	"strings"

	"leadgen-engine/internal/domain"
)

// rawGrade mirrors the JSON contract the prompt demands. Pointers because no
// field can be trusted to be present.
type rawGrade struct {
	IsJunk    *bool    `json:"is_junk"`
	Score     *float64 `json:"profitability_score"`
	Reasoning *string  `json:"reasoning"`
}

// decodeGrade turns a raw provider body into a grade, or reports the body
// malformed. Missing is_junk defaults to false, a missing or out-of-type
// score stays nil, and a present score is clamped to 1..10. A body that is
// not JSON at all is malformed, never a panic and never a retry.
func decodeGrade(body string) (domain.Grade, bool) {
	body = stripFences(body)
	if body == "" {
		return domain.Grade{}, false
	}

	var raw rawGrade
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return domain.Grade{}, false
	}

	var g domain.Grade

	isJunk := false
	if raw.IsJunk != nil {
		isJunk = *raw.IsJunk
	}
	g.IsJunk = &isJunk

	if raw.Score != nil {
		score := int(*raw.Score)
		if score < 1 {
			score = 1
		}
		if score > 10 {
			score = 10
		}
		g.Score = &score
	}

	if raw.Reasoning != nil {
		g.Reasoning = raw.Reasoning
	}

	return g, true
}

// stripFences removes a ```json ... ``` wrapper some models insist on.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
