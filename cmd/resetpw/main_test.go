package main

import "testing"

func TestSanitizeCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain command", "reset", "reset"},
		{"hyphen and underscore kept", "list-all_v2", "list-all_v2"},
		{"shell metacharacters replaced", "rm -rf /", "rm_-rf__"},
		{"newline replaced", "reset\nstatus", "reset_status"},
		{"control characters replaced", "re\x1b[31mset", "re__31mset"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := sanitizeCommand(tt.input); got != tt.want {
				t.Errorf("sanitizeCommand(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
