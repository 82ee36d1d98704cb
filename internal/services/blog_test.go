package services

import "testing"

func TestSlugify(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Ten Hidden Beaches", "ten-hidden-beaches"},
		{"  Fjords & Glaciers!  ", "fjords-glaciers"},
		{"UPPER case", "upper-case"},
		{"already-a-slug", "already-a-slug"},
		{"trailing punctuation...", "trailing-punctuation"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Slugify(tt.title); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}
