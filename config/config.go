// Package config handles kiln.toml optimizer configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"

	"github.com/BurntSushi/toml"
)

// FileName is the name of the configuration file looked up by FindAndLoad.
const FileName = "kiln.toml"

// Pass names accepted in Configuration.Passes.
const (
	PassTailRecursion = "tail-recursion"
	PassEvaluation    = "evaluation"
	PassInline        = "inline"
	PassInitializers  = "initializers"
)

// PassNames lists every pass in its default order.
var PassNames = []string{PassTailRecursion, PassEvaluation, PassInline, PassInitializers}

// KeyError reports a problem with one configuration key.
type KeyError struct {
	Key     string
	Message string
}

func (e *KeyError) Error() string { return e.Key + ": " + e.Message }

// Keys documents every configuration key.
var Keys = map[string]string{
	"max-inlined-code-length":                 "Largest callee body, in bytes, inlined when inline-single-invocations-only is off. Default 8.",
	"max-resulting-code-length":               "Longest method body the inliner may produce. Default 8000.",
	"max-resulting-code-length-micro-edition": "Longest method body the inliner may produce with micro-edition set. Default 2000.",
	"micro-edition":                           "Use the micro edition code length limit.",
	"allow-access-modification":               "Let the inliner make private and package members public so their callers can be inlined elsewhere.",
	"inline-single-invocations-only":          "Only inline methods invoked from exactly one place. Default true.",
	"no-side-effect-methods":                  "Methods, written class.name(descriptor), whose calls may be removed when their result is known.",
	"workers":                                 "Number of classes processed in parallel. Defaults to GOMAXPROCS.",
	"passes":                                  "Passes to run, in order: tail-recursion, evaluation, inline, initializers.",
}

// Configuration is the read-only input of every pass.
type Configuration struct {
	// MaxInlinedCodeLength is the largest callee body, in bytes, inlined
	// when InlineSingleInvocationsOnly is off.
	MaxInlinedCodeLength int `toml:"max-inlined-code-length"`
	// MaxResultingCodeLength bounds the length of a method after inlining.
	MaxResultingCodeLength             int  `toml:"max-resulting-code-length"`
	MaxResultingCodeLengthMicroEdition int  `toml:"max-resulting-code-length-micro-edition"`
	MicroEdition                       bool `toml:"micro-edition"`
	AllowAccessModification            bool `toml:"allow-access-modification"`
	InlineSingleInvocationsOnly        bool `toml:"inline-single-invocations-only"`
	// NoSideEffectMethods lists methods, written class.name(descriptor),
	// whose invocations may be removed when their result is known.
	NoSideEffectMethods []string `toml:"no-side-effect-methods"`
	Workers             int      `toml:"workers"`
	Passes              []string `toml:"passes"`

	// Path is the file the configuration was loaded from, if any.
	Path string `toml:"-"`
}

// Default returns the configuration used when no file is given.
func Default() *Configuration {
	return &Configuration{
		MaxInlinedCodeLength:               8,
		MaxResultingCodeLength:             8000,
		MaxResultingCodeLengthMicroEdition: 2000,
		InlineSingleInvocationsOnly:        true,
		NoSideEffectMethods: []string{
			"java/lang/Math.abs(I)I",
			"java/lang/Math.max(II)I",
			"java/lang/Math.min(II)I",
			"java/lang/String.length()I",
		},
		Workers: runtime.GOMAXPROCS(0),
		Passes:  slices.Clone(PassNames),
	}
}

// Parse reads TOML on top of the defaults. Keys missing from data keep
// their default values.
func Parse(data []byte) (*Configuration, error) {
	c := Default()
	md, err := toml.Decode(string(data), c)
	if err != nil {
		return nil, fmt.Errorf("parse configuration: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("parse configuration: %w", &KeyError{Key: undecoded[0].String(), Message: "unknown key"})
	}
	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	return c, c.Validate()
}

func Load(path string) (*Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	c.Path = path
	return c, nil
}

// FindAndLoad walks up from startDir to find a kiln.toml file and loads
// it. Without one it returns the defaults.
func FindAndLoad(startDir string) (*Configuration, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}
	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return Default(), nil
		}
		dir = parent
	}
}

func (c *Configuration) Validate() error {
	limits := []struct {
		name  string
		value int
	}{
		{"max-inlined-code-length", c.MaxInlinedCodeLength},
		{"max-resulting-code-length", c.MaxResultingCodeLength},
		{"max-resulting-code-length-micro-edition", c.MaxResultingCodeLengthMicroEdition},
	}
	for _, l := range limits {
		if l.value < 0 {
			return &KeyError{Key: l.name, Message: fmt.Sprintf("must not be negative, got %d", l.value)}
		}
	}
	for _, p := range c.Passes {
		if !slices.Contains(PassNames, p) {
			return &KeyError{Key: "passes", Message: fmt.Sprintf("unknown pass %q", p)}
		}
	}
	return nil
}

// ResultingCodeLengthLimit is the method length the inliner must stay
// under for the configured target.
func (c *Configuration) ResultingCodeLengthLimit() int {
	if c.MicroEdition {
		return c.MaxResultingCodeLengthMicroEdition
	}
	return c.MaxResultingCodeLength
}

func (c *Configuration) HasPass(name string) bool {
	return slices.Contains(c.Passes, name)
}
