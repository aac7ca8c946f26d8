package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// rawDecision mirrors the model's JSON output before normalization.
// The model is untrusted input; every field is validated or clamped
// downstream.
type rawDecision struct {
	Action     string  `json:"action"`
	Confidence float64 `json:"confidence"`
	Amount     float64 `json:"amount"`
	Leverage   float64 `json:"leverage"`
	Reasoning  string  `json:"reasoning"`
	CloseID    string  `json:"close_id"`
}

// decodeDecision parses the model output defensively. Markdown fences
// and surrounding prose are tolerated as long as one JSON object is
// present; a missing action field rejects the response.
func decodeDecision(content string) (rawDecision, error) {
	payload := extractJSON(content)
	if payload == "" {
		return rawDecision{}, fmt.Errorf("no JSON object in model response")
	}

	var dec rawDecision
	if err := json.Unmarshal([]byte(payload), &dec); err != nil {
		return rawDecision{}, fmt.Errorf("parsing model response: %w", err)
	}

	dec.Action = strings.ToLower(strings.TrimSpace(dec.Action))
	if dec.Action == "" {
		return rawDecision{}, fmt.Errorf("model response missing action")
	}
	switch dec.Action {
	case "long", "short", "hold", "close", "buy", "sell", "neutral":
	default:
		return rawDecision{}, fmt.Errorf("model response has unknown action %q", dec.Action)
	}
	return dec, nil
}

// extractJSON returns the first balanced top-level JSON object in s.
func extractJSON(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
