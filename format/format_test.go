package format

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhamidi/kiln/classfile"
)

func sampleClass() *classfile.ClassFile {
	b := classfile.NewBuilder("a/b/Greeter", "java/lang/Object")
	b.AddInterface("java/lang/Runnable")
	b.AddField(classfile.AccPrivate|classfile.AccFinal, "name", "Ljava/lang/String;")
	hello := b.Pool().AddString("hello")
	b.AddMethod(classfile.AccPublic|classfile.AccStatic, "greet", "()Ljava/lang/String;", &classfile.CodeAttribute{
		MaxStack: 1,
		Code:     []byte{0x12, byte(hello), 0xB0}, // ldc; areturn
	})
	b.AddMethod(classfile.AccPublic|classfile.AccAbstract, "run", "()V", nil)
	return b.Build()
}

func TestLineEncoder(t *testing.T) {
	tests := []struct {
		name string
		code bool
		want []string
	}{
		{"members", false, []string{
			"class\ta/b/Greeter\tpublic\tjava/lang/Object\tjava/lang/Runnable",
			"field\tname\tLjava/lang/String;\tprivate\tfinal",
			"method\tgreet\t()Ljava/lang/String;\tpublic\tstatic",
			"method\trun\t()V\tpublic\tabstract",
		}},
		{"code", true, []string{
			"class\ta/b/Greeter\tpublic\tjava/lang/Object\tjava/lang/Runnable",
			"field\tname\tLjava/lang/String;\tprivate\tfinal",
			"method\tgreet\t()Ljava/lang/String;\tpublic\tstatic",
			"code\t0\tldc #10\t\"hello\"",
			"code\t2\tareturn\t-",
			"method\trun\t()V\tpublic\tabstract",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			enc, err := NewEncoder("line", &buf, tt.code)
			require.NoError(t, err)
			require.NoError(t, enc.Encode(sampleClass()))
			assert.Equal(t, tt.want, strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n"))
		})
	}
}

func TestJSONEncoder(t *testing.T) {
	var buf bytes.Buffer
	enc := NewJSONEncoder(&buf)
	enc.Code = true
	require.NoError(t, enc.Encode(sampleClass()))

	var got jsonClass
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "a/b/Greeter", got.Name)
	assert.Equal(t, "a/b", got.Package)
	assert.Equal(t, "class", got.Kind)
	assert.Equal(t, []string{"java/lang/Runnable"}, got.Interfaces)
	assert.Equal(t, jsonVersion{Major: 52}, got.Version)
	require.Len(t, got.Methods, 2)

	greet := got.Methods[0]
	assert.Equal(t, 3, greet.CodeLength)
	require.Len(t, greet.Code, 2)
	assert.Equal(t, `"hello"`, greet.Code[0].Constant)
	assert.Equal(t, 2, greet.Code[1].Offset)
	assert.Empty(t, got.Methods[1].Code)
}

func TestUnknownFormat(t *testing.T) {
	_, err := NewEncoder("xml", &bytes.Buffer{}, false)
	assert.Error(t, err)
}
