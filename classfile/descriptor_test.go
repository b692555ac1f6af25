package classfile

import (
	"reflect"
	"testing"
)

func TestParseFieldDescriptor(t *testing.T) {
	tests := []struct {
		desc       string
		baseType   string
		className  string
		arrayDepth int
	}{
		{"I", "int", "", 0},
		{"Z", "boolean", "", 0},
		{"Ljava/lang/String;", "", "java/lang/String", 0},
		{"[I", "int", "", 1},
		{"[[D", "double", "", 2},
		{"[Ljava/lang/Object;", "", "java/lang/Object", 1},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			ft := ParseFieldDescriptor(tt.desc)
			if ft == nil {
				t.Fatalf("ParseFieldDescriptor(%q) returned nil", tt.desc)
			}
			if ft.BaseType != tt.baseType {
				t.Errorf("BaseType = %q, want %q", ft.BaseType, tt.baseType)
			}
			if ft.ClassName != tt.className {
				t.Errorf("ClassName = %q, want %q", ft.ClassName, tt.className)
			}
			if ft.ArrayDepth != tt.arrayDepth {
				t.Errorf("ArrayDepth = %d, want %d", ft.ArrayDepth, tt.arrayDepth)
			}
		})
	}
}

func TestParseMethodDescriptor(t *testing.T) {
	tests := []struct {
		desc        string
		numParams   int
		returnsVoid bool
		returnType  string
	}{
		{"()V", 0, true, ""},
		{"()I", 0, false, "int"},
		{"(I)V", 1, true, ""},
		{"(II)I", 2, false, "int"},
		{"(Ljava/lang/String;)V", 1, true, ""},
		{"(IDLjava/lang/Thread;)Ljava/lang/Object;", 3, false, "java/lang/Object"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			md := ParseMethodDescriptor(tt.desc)
			if md == nil {
				t.Fatalf("ParseMethodDescriptor(%q) returned nil", tt.desc)
			}
			if len(md.Parameters) != tt.numParams {
				t.Errorf("len(Parameters) = %d, want %d", len(md.Parameters), tt.numParams)
			}
			if tt.returnsVoid {
				if md.ReturnType != nil {
					t.Error("Expected nil ReturnType for void")
				}
			} else {
				if md.ReturnType == nil {
					t.Error("Expected non-nil ReturnType")
				} else {
					if md.ReturnType.BaseType != "" && md.ReturnType.BaseType != tt.returnType {
						t.Errorf("ReturnType.BaseType = %q, want %q", md.ReturnType.BaseType, tt.returnType)
					}
					if md.ReturnType.ClassName != "" && md.ReturnType.ClassName != tt.returnType {
						t.Errorf("ReturnType.ClassName = %q, want %q", md.ReturnType.ClassName, tt.returnType)
					}
				}
			}
		})
	}
}

func TestParameterSize(t *testing.T) {
	tests := []struct {
		desc  string
		types []string
		size  int
		ret   string
	}{
		{"()V", nil, 0, "V"},
		{"(I)I", []string{"I"}, 1, "I"},
		{"(JD)J", []string{"J", "D"}, 4, "J"},
		{"([JLjava/lang/String;Z)V", []string{"[J", "Ljava/lang/String;", "Z"}, 3, "V"},
		{"([[Ljava/lang/Object;)[I", []string{"[[Ljava/lang/Object;"}, 1, "[I"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			if got := ParameterTypes(tt.desc); !reflect.DeepEqual(got, tt.types) {
				t.Errorf("ParameterTypes() = %v, want %v", got, tt.types)
			}
			if got := ParameterSize(tt.desc); got != tt.size {
				t.Errorf("ParameterSize() = %d, want %d", got, tt.size)
			}
			if got := ReturnType(tt.desc); got != tt.ret {
				t.Errorf("ReturnType() = %q, want %q", got, tt.ret)
			}
		})
	}
}

func TestSignatureClassNames(t *testing.T) {
	tests := []struct {
		sig  string
		want []string
	}{
		{"Ljava/util/List<Ljava/lang/String;>;", []string{"java/util/List", "java/lang/String"}},
		{"<T:Ljava/lang/Object;>Ljava/lang/Object;Ljava/lang/Comparable<TT;>;",
			[]string{"java/lang/Object", "java/lang/Object", "java/lang/Comparable"}},
		{"<LIST::Ljava/util/List<*>;>(TLIST;[I)V^Ljava/io/IOException;",
			[]string{"java/util/List", "java/io/IOException"}},
		{"La/Outer<TT;>.Inner;", []string{"a/Outer", "a/Outer$Inner"}},
		{"Ljava/util/Map<+Ljava/lang/Number;-La/B;>;", []string{"java/util/Map", "java/lang/Number", "a/B"}},
		{"Ljava/util/List", nil},
	}

	for _, tt := range tests {
		t.Run(tt.sig, func(t *testing.T) {
			if got := SignatureClassNames(tt.sig); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SignatureClassNames() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSplitClassSignature(t *testing.T) {
	params, types, ok := SplitClassSignature("<T:Ljava/lang/Object;>La/Base<TT;>;La/Marker;Ljava/lang/Iterable<TT;>;")
	if !ok {
		t.Fatal("SplitClassSignature() failed")
	}
	if params != "<T:Ljava/lang/Object;>" {
		t.Errorf("type parameters = %q", params)
	}
	want := []string{"La/Base<TT;>;", "La/Marker;", "Ljava/lang/Iterable<TT;>;"}
	if !reflect.DeepEqual(types, want) {
		t.Errorf("types = %v, want %v", types, want)
	}
}

func TestInternalPackageName(t *testing.T) {
	if got := InternalPackageName("java/lang/String"); got != "java/lang" {
		t.Errorf("InternalPackageName() = %q", got)
	}
	if got := InternalPackageName("Main"); got != "" {
		t.Errorf("InternalPackageName() = %q, want empty", got)
	}
}
