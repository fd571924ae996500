package openai

import (
	"strings"
	"testing"
)

func TestParseScores(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected int
		want     []float64
		wantErr  bool
	}{
		{
			name:     "纯JSON回复",
			content:  `{"scores":[2,8,5,1]}`,
			expected: 4,
			want:     []float64{2, 8, 5, 1},
		},
		{
			name:     "markdown代码块包裹",
			content:  "```json\n{\"scores\":[1.5,7.2]}\n```",
			expected: 2,
			want:     []float64{1.5, 7.2},
		},
		{
			name:     "打分数量不匹配",
			content:  `{"scores":[2,8]}`,
			expected: 4,
			wantErr:  true,
		},
		{
			name:     "非JSON回复",
			content:  "The pet looks happy.",
			expected: 4,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseScores(tt.content, tt.expected)
			if tt.wantErr {
				if err == nil {
					t.Error("应返回错误")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseScores返回错误: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("分数数量 = %d, want %d", len(got), len(tt.want))
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("scores[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := buildPrompt([]string{"a happy pet", "a tired pet"})

	if !strings.Contains(prompt, "1. a happy pet") {
		t.Error("提示词应按序号列出第一个候选描述")
	}
	if !strings.Contains(prompt, "2. a tired pet") {
		t.Error("提示词应按序号列出第二个候选描述")
	}
	if !strings.Contains(prompt, `{"scores":`) {
		t.Error("提示词应要求JSON分数格式")
	}
}
