package program

import (
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/fxamacker/cbor/v2"
)

const factsVersion = 1

// factsFile is the persisted form of the facts computed over a program.
type factsFile struct {
	Version     int              `cbor:"1,keyasint"`
	Invocations []invocationFact `cbor:"2,keyasint,omitempty"`
}

type invocationFact struct {
	Method string `cbor:"1,keyasint"`
	Count  int    `cbor:"2,keyasint"`
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("program: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalFacts encodes invocation counts deterministically: the same
// counts always produce the same bytes.
func MarshalFacts(counts InvocationCounts) ([]byte, error) {
	f := factsFile{Version: factsVersion}
	for key, n := range counts {
		f.Invocations = append(f.Invocations, invocationFact{Method: key.String(), Count: n})
	}
	slices.SortFunc(f.Invocations, func(a, b invocationFact) int {
		switch {
		case a.Method < b.Method:
			return -1
		case a.Method > b.Method:
			return 1
		}
		return 0
	})
	return cborEncMode.Marshal(f)
}

func UnmarshalFacts(data []byte) (InvocationCounts, error) {
	var f factsFile
	if err := cbor.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("program: unmarshal facts: %w", err)
	}
	if f.Version != factsVersion {
		return nil, fmt.Errorf("program: unsupported facts version %d", f.Version)
	}
	counts := make(InvocationCounts, len(f.Invocations))
	for _, fact := range f.Invocations {
		key, err := ParseMethodKey(fact.Method)
		if err != nil {
			return nil, fmt.Errorf("program: unmarshal facts: %w", err)
		}
		counts[key] = fact.Count
	}
	return counts, nil
}

func SaveFacts(w io.Writer, counts InvocationCounts) error {
	data, err := MarshalFacts(counts)
	if err != nil {
		return fmt.Errorf("save facts: %w", err)
	}
	_, err = w.Write(data)
	return err
}

func LoadFacts(r io.Reader) (InvocationCounts, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("load facts: %w", err)
	}
	return UnmarshalFacts(data)
}

func SaveFactsFile(path string, counts InvocationCounts) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create facts file: %w", err)
	}
	if err := SaveFacts(f, counts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func LoadFactsFile(path string) (InvocationCounts, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open facts file: %w", err)
	}
	defer f.Close()
	return LoadFacts(f)
}
