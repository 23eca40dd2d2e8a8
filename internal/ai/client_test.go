package ai

import (
	"strings"
	"testing"
)

func TestParseGradeResponse(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		maxScore    float64
		wantScore   float64
		wantComment string
		wantErr     bool
	}{
		{
			name:        "normal",
			raw:         `{"score": 12.5, "comment": "译文流畅"}`,
			maxScore:    15,
			wantScore:   12.5,
			wantComment: "译文流畅",
		},
		{
			name:      "clamped above max",
			raw:       `{"score": 99, "comment": "x"}`,
			maxScore:  15,
			wantScore: 15,
		},
		{
			name:      "clamped below zero",
			raw:       `{"score": -3, "comment": "x"}`,
			maxScore:  15,
			wantScore: 0,
		},
		{
			name:     "malformed json",
			raw:      `score: twelve`,
			maxScore: 15,
			wantErr:  true,
		},
		{
			name:      "missing fields default",
			raw:       `{}`,
			maxScore:  15,
			wantScore: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseGradeResponse(tt.raw, tt.maxScore)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if got.Score != tt.wantScore {
				t.Errorf("score = %v, want %v", got.Score, tt.wantScore)
			}
			if tt.wantComment != "" && got.Comment != tt.wantComment {
				t.Errorf("comment = %q, want %q", got.Comment, tt.wantComment)
			}
		})
	}
}

func TestBuildPrompts(t *testing.T) {
	translation := buildTranslationPrompt("长江是亚洲最长的河流", 15)
	if !strings.Contains(translation, "长江是亚洲最长的河流") {
		t.Error("translation prompt must embed the source passage")
	}
	if !strings.Contains(translation, "MAX SCORE: 15") {
		t.Error("translation prompt must state the max score")
	}
	if !strings.Contains(translation, `"score"`) || !strings.Contains(translation, `"comment"`) {
		t.Error("translation prompt must demand the JSON shape")
	}

	writing := buildWritingPrompt("On Online Learning", 15)
	if !strings.Contains(writing, "On Online Learning") {
		t.Error("writing prompt must embed the topic")
	}
	if !strings.Contains(writing, "essay") {
		t.Error("writing prompt must address the essay task")
	}
}
