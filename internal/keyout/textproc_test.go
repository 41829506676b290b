package keyout

import "testing"

func TestNormalizeText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"whitespace only", "   \t ", ""},
		{"collapses runs", "hello   world\tagain", "hello world again"},
		{"trims ends", "  hello world  ", "hello world"},
		{"attaches stray punctuation", "hello . world", "hello. world"},
		{"space after sentence end", "done.next one", "done. next one"},
		{"keeps ellipsis together", "well... maybe", "well... maybe"},
		{"question mark", "really?yes", "really? yes"},
		{"plain text untouched", "type this exactly", "type this exactly"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := NormalizeText(tc.in); got != tc.want {
				t.Errorf("NormalizeText(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
