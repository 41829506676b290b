package command

import (
	"errors"
	"testing"
)

func testRegistry(t *testing.T, names ...string) *Registry {
	t.Helper()
	r := NewRegistry()
	for _, n := range names {
		if err := r.Register(n, Action{Keys: []string{"Return"}, Enabled: true}); err != nil {
			t.Fatalf("Register(%q): %v", n, err)
		}
	}
	return r
}

func TestRegistryGetIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	r := testRegistry(t, "Enter")
	if _, ok := r.Get("ENTER"); !ok {
		t.Error("Get should be case-insensitive")
	}
	if _, ok := r.Get("  enter  "); !ok {
		t.Error("Get should trim whitespace")
	}
}

func TestRegistryRejectsInvalidDefinitions(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	tests := []struct {
		name string
		cmd  string
		a    Action
	}{
		{"empty name", "", Action{Keys: []string{"Return"}}},
		{"no keys", "enter", Action{}},
		{"blank key symbol", "enter", Action{Keys: []string{" "}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := r.Register(tt.cmd, tt.a); !errors.Is(err, ErrInvalidDefinition) {
				t.Errorf("Register = %v, want ErrInvalidDefinition", err)
			}
		})
	}
	if r.Len() != 0 {
		t.Errorf("invalid definitions were registered: %v", r.Names())
	}
}

func TestFindMatchingExactBeforeSynonymBeforePrefix(t *testing.T) {
	t.Parallel()

	r := testRegistry(t, "enter", "space", "copy", "selectall")

	tests := []struct {
		spoken string
		want   string
		found  bool
	}{
		{"enter", "enter", true},
		{"ENTER", "enter", true},
		{"spacebar", "space", true},   // synonym
		{"ctrl c", "copy", true},      // synonym
		{"return", "enter", true},     // synonym
		{"ent", "enter", true},            // spoken is a prefix of the name
		{"enter key", "enter", true},      // name is a prefix of the spoken text
		{"selectall now", "selectall", true},
		{"sel", "selectall", true},
		{"nonsense", "", false},
	}
	for _, tt := range tests {
		name, _, ok := r.FindMatching(tt.spoken)
		if ok != tt.found || name != tt.want {
			t.Errorf("FindMatching(%q) = (%q, %v), want (%q, %v)",
				tt.spoken, name, ok, tt.want, tt.found)
		}
	}
}

func TestFindMatchingPrefixTieBreaksByInsertionOrder(t *testing.T) {
	t.Parallel()

	// "s" is a prefix of all three; the first loaded wins. This policy is
	// order-dependent on purpose.
	r := testRegistry(t, "save", "space", "selectall")
	name, _, ok := r.FindMatching("s")
	if !ok || name != "save" {
		t.Errorf("FindMatching(\"s\") = (%q, %v), want (\"save\", true)", name, ok)
	}

	r2 := testRegistry(t, "space", "save", "selectall")
	name, _, _ = r2.FindMatching("s")
	if name != "space" {
		t.Errorf("with reversed load order FindMatching(\"s\") = %q, want \"space\"", name)
	}
}

func TestRegisterReplaceKeepsInsertionOrder(t *testing.T) {
	t.Parallel()

	r := testRegistry(t, "save", "space")
	if err := r.Register("save", Action{Keys: []string{"Control_L", "s"}, Enabled: true}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	names := r.Names()
	if len(names) != 2 || names[0] != "save" {
		t.Errorf("Names = %v, want [save space]", names)
	}
	a, _ := r.Get("save")
	if len(a.Keys) != 2 {
		t.Errorf("replacement did not take: %v", a.Keys)
	}
}

func TestSuggestIsAdvisoryOnly(t *testing.T) {
	t.Parallel()

	r := testRegistry(t, "enter", "escape")

	// "enfer" is one letter off "enter" but is not a prefix in either
	// direction: it must suggest, never match.
	hints := r.Suggest("enfer", 3)
	if len(hints) == 0 || hints[0] != "enter" {
		t.Errorf("Suggest(\"enfer\") = %v, want [enter ...]", hints)
	}
	if name, _, ok := r.FindMatching("enfer"); ok {
		t.Errorf("FindMatching(\"enfer\") matched %q; suggestions must not affect matching", name)
	}
}

func TestReplaceAllSwapsAtomically(t *testing.T) {
	t.Parallel()

	r := testRegistry(t, "enter")
	repl := testRegistry(t, "space", "copy")

	r.ReplaceAll(repl)
	if _, ok := r.Get("enter"); ok {
		t.Error("old command survived ReplaceAll")
	}
	if got := r.Len(); got != 2 {
		t.Errorf("Len = %d, want 2", got)
	}
}
