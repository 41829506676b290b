package command

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaultContainsCoreCommands(t *testing.T) {
	t.Parallel()

	reg, err := LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault: %v", err)
	}

	for _, name := range []string{"enter", "space", "copy", "select all", "close"} {
		if _, ok := reg.Get(name); !ok {
			t.Errorf("default set is missing %q", name)
		}
	}

	enter, _ := reg.Get("enter")
	if len(enter.Keys) != 1 || enter.Keys[0] != "Return" {
		t.Errorf("enter keys = %v, want [Return]", enter.Keys)
	}
	copyCmd, _ := reg.Get("copy")
	if len(copyCmd.Keys) != 2 || copyCmd.Keys[0] != "Control_L" {
		t.Errorf("copy keys = %v, want [Control_L c]", copyCmd.Keys)
	}
}

func TestLoadFileOverlaysDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "commands.yaml")
	doc := `commands:
  screenshot:
    keys: [Print]
    description: Take a screenshot
  enter:
    keys: [KP_Enter]
    description: Numpad enter instead
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	reg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if _, ok := reg.Get("screenshot"); !ok {
		t.Error("file-defined command missing")
	}
	if _, ok := reg.Get("space"); !ok {
		t.Error("default command lost during overlay")
	}
	enter, _ := reg.Get("enter")
	if len(enter.Keys) != 1 || enter.Keys[0] != "KP_Enter" {
		t.Errorf("override did not take: %v", enter.Keys)
	}
}

func TestLoadFileSkipsInvalidEntriesKeepsRest(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "commands.yaml")
	doc := `commands:
  broken:
    description: no keys at all
  fine:
    keys: [F5]
    description: Refresh
  disabled:
    keys: [F6]
    enabled: false
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	reg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if _, ok := reg.Get("broken"); ok {
		t.Error("entry without keys must be skipped")
	}
	if _, ok := reg.Get("fine"); !ok {
		t.Error("valid entry lost because a sibling was invalid")
	}
	d, ok := reg.Get("disabled")
	if !ok || d.Enabled {
		t.Errorf("disabled entry = (%+v, %v), want loaded with Enabled=false", d, ok)
	}
}

func TestLoadFileMissingPathIsDefaults(t *testing.T) {
	t.Parallel()

	reg, err := LoadFile("")
	if err != nil {
		t.Fatalf("LoadFile(\"\"): %v", err)
	}
	def, _ := LoadDefault()
	if reg.Len() != def.Len() {
		t.Errorf("empty path should yield the default set (%d != %d)", reg.Len(), def.Len())
	}
}

func TestWatcherReloadsOnChange(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "commands.yaml")
	if err := os.WriteFile(path, []byte("commands:\n  one:\n    keys: [F1]\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	reg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	w, err := NewWatcher(path, reg, WithInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	// Rewrite with a different set and a bumped mtime.
	if err := os.WriteFile(path, []byte("commands:\n  two:\n    keys: [F2]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, ok := reg.Get("two"); ok {
			if _, gone := reg.Get("one"); gone {
				t.Error("stale entry survived reload")
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("watcher never applied the new definitions")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
