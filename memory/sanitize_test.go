package memory

import "testing"

func TestRemoveThinkingTags(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "no tags",
			input: `{"facts": []}`,
			want:  `{"facts": []}`,
		},
		{
			name:  "think tag",
			input: "<think>the user mentioned pizza</think>{\"facts\": [\"Likes pizza\"]}",
			want:  `{"facts": ["Likes pizza"]}`,
		},
		{
			name:  "thinking tag with newlines",
			input: "<thinking>\nstep 1\nstep 2\n</thinking>\nanswer",
			want:  "answer",
		},
		{
			name:  "reasoning tag uppercase",
			input: "<REASONING>hmm</REASONING> result",
			want:  "result",
		},
		{
			name:  "multiple tags",
			input: "<think>a</think>one<think>b</think> two",
			want:  "one two",
		},
		{
			name:  "whitespace only after stripping",
			input: "  <think>everything</think>  ",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := removeThinkingTags(tt.input); got != tt.want {
				t.Errorf("removeThinkingTags(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "bare object",
			input: `{"facts": ["a"]}`,
			want:  `{"facts": ["a"]}`,
		},
		{
			name:  "fenced json block",
			input: "```json\n{\"facts\": [\"a\"]}\n```",
			want:  `{"facts": ["a"]}`,
		},
		{
			name:  "fence without language",
			input: "```\n{\"memory\": []}\n```",
			want:  `{"memory": []}`,
		},
		{
			name:  "surrounding prose",
			input: "Sure! Here is the result:\n{\"facts\": [\"a\"]}\nHope that helps.",
			want:  `{"facts": ["a"]}`,
		},
		{
			name:  "thinking tag plus fence",
			input: "<think>let me see</think>```json\n{\"facts\": []}\n```",
			want:  `{"facts": []}`,
		},
		{
			name:  "array payload",
			input: "result: [1, 2, 3] done",
			want:  "[1, 2, 3]",
		},
		{
			name:  "no json at all",
			input: "nothing useful here",
			want:  "nothing useful here",
		},
		{
			name:  "nested objects keep outermost",
			input: `prefix {"a": {"b": 1}} suffix`,
			want:  `{"a": {"b": 1}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractJSON(tt.input); got != tt.want {
				t.Errorf("extractJSON(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
