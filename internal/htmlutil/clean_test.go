package htmlutil

import "testing"

func TestCleanReply(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "  Sunny and warm.  ", "Sunny and warm."},
		{"entity", "Rain &amp; wind", "Rain & wind"},
		{"tags only", "<p>   </p>", ""},
		{"blank runs", "one\n\n\n\ntwo", "one\n\ntwo"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanReply(tt.in); got != tt.want {
				t.Errorf("CleanReply(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
