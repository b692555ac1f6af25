package program

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhamidi/kiln/classfile"
)

func u2(v uint16) []byte { return []byte{byte(v >> 8), byte(v)} }

// samplePool holds a library class a/Base declaring g()V, a/Sub extending
// it, and a/Main calling g twice through a/Sub and its own h()V once.
func samplePool() *Pool {
	pool := NewPool()

	base := classfile.NewBuilder("a/Base", "java/lang/Object")
	base.AddMethod(classfile.AccPublic, "g", "()V", &classfile.CodeAttribute{MaxLocals: 1, Code: []byte{0xB1}})
	pool.Add(base.Build(), "a/Base.class", true)

	pool.Add(classfile.NewBuilder("a/Sub", "a/Base").Build(), "a/Sub.class", false)

	main := classfile.NewBuilder("a/Main", "java/lang/Object")
	g := main.Pool().AddMethodref("a/Sub", "g", "()V")
	h := main.Pool().AddMethodref("a/Main", "h", "()V")
	var code []byte
	code = append(code, 0x2A, 0xB6)
	code = append(code, u2(g)...)
	code = append(code, 0x2A, 0xB6)
	code = append(code, u2(g)...)
	code = append(code, 0xB8)
	code = append(code, u2(h)...)
	code = append(code, 0xB1)
	main.AddMethod(classfile.AccPublic, "run", "()V", &classfile.CodeAttribute{MaxStack: 1, MaxLocals: 1, Code: code})
	main.AddMethod(classfile.AccStatic|classfile.AccPrivate, "h", "()V", &classfile.CodeAttribute{Code: []byte{0xB1}})
	pool.Add(main.Build(), "a/Main.class", false)
	return pool
}

func TestPool(t *testing.T) {
	pool := samplePool()
	assert.Equal(t, 3, pool.Len())

	var names []string
	for _, c := range pool.Classes() {
		names = append(names, c.Name())
	}
	assert.Equal(t, []string{"a/Base", "a/Main", "a/Sub"}, names)
	assert.Len(t, pool.ProgramClasses(), 2)
	assert.Nil(t, pool.Class("a/Missing"))
}

func TestResolveMethod(t *testing.T) {
	pool := samplePool()

	m, ok := pool.ResolveMethod("a/Sub", "g", "()V")
	require.True(t, ok)
	assert.Equal(t, MethodKey{Class: "a/Base", Name: "g", Descriptor: "()V"}, m.Key())

	_, ok = pool.ResolveMethod("a/Sub", "g", "(I)V")
	assert.False(t, ok)

	assert.True(t, pool.IsSubclass("a/Sub", "a/Base"))
	assert.True(t, pool.IsSubclass("a/Sub", "java/lang/Object"))
	assert.False(t, pool.IsSubclass("a/Base", "a/Sub"))
}

func TestCountInvocations(t *testing.T) {
	counts := CountInvocations(samplePool())
	assert.Equal(t, InvocationCounts{
		{Class: "a/Base", Name: "g", Descriptor: "()V"}: 2,
		{Class: "a/Main", Name: "h", Descriptor: "()V"}: 1,
	}, counts)
	assert.Equal(t, 0, counts.Count(MethodKey{Class: "a/Main", Name: "run", Descriptor: "()V"}))
}

func TestFacts(t *testing.T) {
	counts := CountInvocations(samplePool())

	first, err := MarshalFacts(counts)
	require.NoError(t, err)
	second, err := MarshalFacts(counts)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	var buf bytes.Buffer
	require.NoError(t, SaveFacts(&buf, counts))
	loaded, err := LoadFacts(&buf)
	require.NoError(t, err)
	assert.Equal(t, counts, loaded)

	_, err = UnmarshalFacts([]byte{0xFF})
	assert.Error(t, err)
}

func TestParseMethodKey(t *testing.T) {
	tests := []struct {
		in      string
		want    MethodKey
		wantErr bool
	}{
		{in: "a/b/C.f(I)V", want: MethodKey{Class: "a/b/C", Name: "f", Descriptor: "(I)V"}},
		{in: "C.<init>()V", want: MethodKey{Class: "C", Name: "<init>", Descriptor: "()V"}},
		{in: "a/b/C.f", wantErr: true},
		{in: ".f()V", wantErr: true},
		{in: "C.()V", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMethodKey(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.in, got.String())
		})
	}
}

func TestLink(t *testing.T) {
	pool := samplePool()
	links := Link(pool)
	assert.Len(t, links, 3)

	run := pool.Class("a/Main").File.GetMethod("run", "()V")
	require.NotNil(t, run)
	g, ok := links[CallSite{Method: run, Offset: 1}]
	require.True(t, ok)
	assert.Equal(t, "a/Base.g()V", g.Key().String())
	h, ok := links[CallSite{Method: run, Offset: 8}]
	require.True(t, ok)
	assert.Equal(t, "a/Main.h()V", h.Key().String())
}
