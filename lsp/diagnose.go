package lsp

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/dhamidi/kiln/config"
)

// Diagnose parses text as a configuration file and reports its first
// problem, placed on the line it concerns.
func Diagnose(text string) []protocol.Diagnostic {
	_, err := config.Parse([]byte(text))
	if err == nil {
		return []protocol.Diagnostic{}
	}

	line, message := 0, err.Error()
	var parseErr toml.ParseError
	var keyErr *config.KeyError
	switch {
	case errors.As(err, &parseErr):
		message = parseErr.Message
		if parseErr.Position.Line > 0 {
			line = parseErr.Position.Line - 1
		}
	case errors.As(err, &keyErr):
		message = keyErr.Message
		if l, ok := keyLine(text, keyErr.Key); ok {
			line = l
		}
	}

	severity := protocol.DiagnosticSeverityError
	source := lsName
	return []protocol.Diagnostic{{
		Range:    lineRange(text, line),
		Severity: &severity,
		Source:   &source,
		Message:  message,
	}}
}

// keyLine finds the line assigning key. Dotted keys are looked up by
// their last part.
func keyLine(text, key string) (int, bool) {
	if i := strings.LastIndexByte(key, '.'); i >= 0 {
		key = key[i+1:]
	}
	for i, l := range strings.Split(text, "\n") {
		rest, ok := strings.CutPrefix(strings.TrimSpace(l), key)
		if ok && strings.HasPrefix(strings.TrimSpace(rest), "=") {
			return i, true
		}
	}
	return 0, false
}

func lineRange(text string, line int) protocol.Range {
	lines := strings.Split(text, "\n")
	end := 0
	if line < len(lines) {
		end = len(lines[line])
	}
	return protocol.Range{
		Start: protocol.Position{Line: protocol.UInteger(line), Character: 0},
		End:   protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(end)},
	}
}

// Complete offers configuration keys at the start of a line and pass names
// inside the passes list.
func Complete(text string, pos protocol.Position) []protocol.CompletionItem {
	before := linePrefix(text, pos)
	var items []protocol.CompletionItem
	if key, _, ok := strings.Cut(before, "="); ok {
		if strings.TrimSpace(key) != "passes" {
			return nil
		}
		kind := protocol.CompletionItemKindEnumMember
		for _, name := range config.PassNames {
			items = append(items, protocol.CompletionItem{Label: name, Kind: &kind})
		}
		return items
	}

	kind := protocol.CompletionItemKindProperty
	for _, key := range sortedKeys() {
		detail := config.Keys[key]
		insert := key + " = "
		items = append(items, protocol.CompletionItem{
			Label:      key,
			Kind:       &kind,
			Detail:     &detail,
			InsertText: &insert,
		})
	}
	return items
}

// Hover documents the configuration key under the cursor.
func Hover(text string, pos protocol.Position) *protocol.Hover {
	word := wordAt(text, pos)
	doc, ok := config.Keys[word]
	if !ok {
		return nil
	}
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: fmt.Sprintf("**%s**\n\n%s", word, doc),
		},
	}
}

func sortedKeys() []string {
	keys := make([]string, 0, len(config.Keys))
	for k := range config.Keys {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func linePrefix(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	l := lines[pos.Line]
	return l[:min(int(pos.Character), len(l))]
}

func isKeyChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c == '-'
}

func wordAt(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	l := lines[pos.Line]
	start := min(int(pos.Character), len(l))
	end := start
	for start > 0 && isKeyChar(l[start-1]) {
		start--
	}
	for end < len(l) && isKeyChar(l[end]) {
		end++
	}
	return l[start:end]
}
