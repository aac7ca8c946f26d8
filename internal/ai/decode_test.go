package ai

import (
	"strings"
	"testing"
)

func TestDecodeDecision(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		wantAction string
		wantErr    bool
	}{
		{
			name:       "Plain JSON",
			content:    `{"action":"long","confidence":80,"amount":50,"leverage":10,"reasoning":"momentum"}`,
			wantAction: "long",
		},
		{
			name:       "Markdown fenced",
			content:    "```json\n{\"action\":\"short\",\"confidence\":72}\n```",
			wantAction: "short",
		},
		{
			name:       "Surrounding prose",
			content:    `Here is my analysis: {"action":"hold","confidence":55} Good luck!`,
			wantAction: "hold",
		},
		{
			name:       "Uppercase action",
			content:    `{"action":"LONG","confidence":80}`,
			wantAction: "long",
		},
		{
			name:    "No JSON at all",
			content: "I think the market will go up.",
			wantErr: true,
		},
		{
			name:    "Malformed JSON",
			content: `{"action":"long","confidence":`,
			wantErr: true,
		},
		{
			name:    "Missing action",
			content: `{"confidence":80,"amount":50}`,
			wantErr: true,
		},
		{
			name:    "Unknown action",
			content: `{"action":"yolo","confidence":80}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec, err := decodeDecision(tt.content)
			if tt.wantErr {
				if err == nil {
					t.Errorf("decodeDecision() = %+v, want error", dec)
				}
				return
			}
			if err != nil {
				t.Fatalf("decodeDecision() error = %v", err)
			}
			if dec.Action != tt.wantAction {
				t.Errorf("Action = %q, want %q", dec.Action, tt.wantAction)
			}
		})
	}
}

func TestExtractJSONBalancesBraces(t *testing.T) {
	content := `{"action":"long","reasoning":"breakout {wedge} pattern"}`
	got := extractJSON(content)
	if got != content {
		t.Errorf("extractJSON() = %q, want full object", got)
	}
}

func TestExtractJSONIgnoresBracesInStrings(t *testing.T) {
	content := `{"reasoning":"edge \" case }","action":"short"} trailing`
	got := extractJSON(content)
	if !strings.HasSuffix(got, `"short"}`) {
		t.Errorf("extractJSON() = %q, want object ending at action field", got)
	}
}
