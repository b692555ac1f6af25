package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	c := Default()
	if c.MaxInlinedCodeLength != 8 {
		t.Errorf("MaxInlinedCodeLength = %d, want 8", c.MaxInlinedCodeLength)
	}
	if got := c.ResultingCodeLengthLimit(); got != 8000 {
		t.Errorf("ResultingCodeLengthLimit() = %d, want 8000", got)
	}
	c.MicroEdition = true
	if got := c.ResultingCodeLengthLimit(); got != 2000 {
		t.Errorf("micro edition limit = %d, want 2000", got)
	}
	if !c.InlineSingleInvocationsOnly || c.AllowAccessModification {
		t.Errorf("unexpected inlining defaults: %+v", c)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestParse(t *testing.T) {
	c, err := Parse([]byte(`
max-resulting-code-length = 100
allow-access-modification = true
passes = ["evaluation", "tail-recursion"]
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if c.MaxResultingCodeLength != 100 {
		t.Errorf("MaxResultingCodeLength = %d, want 100", c.MaxResultingCodeLength)
	}
	if c.MaxInlinedCodeLength != 8 {
		t.Errorf("MaxInlinedCodeLength = %d, want the default 8", c.MaxInlinedCodeLength)
	}
	if !c.AllowAccessModification {
		t.Error("AllowAccessModification not set")
	}
	if !c.HasPass(PassEvaluation) || c.HasPass(PassInline) {
		t.Errorf("Passes = %v", c.Passes)
	}
	if c.Workers <= 0 {
		t.Errorf("Workers = %d", c.Workers)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		key  string
	}{
		{"syntax", `max-inlined-code-length = `, ""},
		{"negative limit", `max-inlined-code-length = -1`, "max-inlined-code-length"},
		{"unknown pass", `passes = ["obfuscate"]`, "passes"},
		{"unknown key", `max-code = 3`, "max-code"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			if err == nil {
				t.Fatal("Parse() succeeded")
			}
			var keyErr *KeyError
			if errors.As(err, &keyErr) != (tt.key != "") {
				t.Fatalf("Parse() error = %v", err)
			}
			if tt.key != "" && keyErr.Key != tt.key {
				t.Errorf("Key = %q, want %q", keyErr.Key, tt.key)
			}
		})
	}
}

func TestFindAndLoad(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, FileName), []byte("workers = 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := FindAndLoad(nested)
	if err != nil {
		t.Fatalf("FindAndLoad() error = %v", err)
	}
	if c.Workers != 3 {
		t.Errorf("Workers = %d, want 3", c.Workers)
	}
	if c.Path != filepath.Join(root, FileName) {
		t.Errorf("Path = %q", c.Path)
	}

	if _, err := Load(filepath.Join(root, "missing.toml")); err == nil {
		t.Error("Load() of a missing file succeeded")
	}
}
