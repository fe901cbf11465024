package main

import "testing"

func TestWrapText(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		width int
		want  string
	}{
		{
			name:  "fits on one line",
			text:  "the cat sat",
			width: 20,
			want:  "the cat sat",
		},
		{
			name:  "wraps at width",
			text:  "the cat sat on the mat",
			width: 11,
			want:  "the cat sat\non the mat",
		},
		{
			name:  "long word gets its own line",
			text:  "a supercalifragilistic b",
			width: 10,
			want:  "a\nsupercalifragilistic\nb",
		},
		{
			name:  "wide runes count double",
			text:  "日本語 日本語",
			width: 6,
			want:  "日本語\n日本語",
		},
		{
			name:  "collapses interior whitespace",
			text:  "a  b\tc",
			width: 20,
			want:  "a b c",
		},
		{
			name:  "zero width disables wrapping",
			text:  "the cat sat on the mat",
			width: 0,
			want:  "the cat sat on the mat",
		},
		{
			name:  "empty input",
			text:  "",
			width: 10,
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := wrapText(tt.text, tt.width); got != tt.want {
				t.Errorf("wrapText(%q, %d) = %q, want %q", tt.text, tt.width, got, tt.want)
			}
		})
	}
}
