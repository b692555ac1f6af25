package classfile

import (
	"errors"
	"testing"
)

func TestConstantPoolEditorReusesEntries(t *testing.T) {
	b := NewBuilder("a/A", "java/lang/Object")
	pool := b.Pool()

	first := pool.AddMethodref("a/A", "f", "(I)I")
	size := len(b.Build().ConstantPool)
	second := pool.AddMethodref("a/A", "f", "(I)I")
	if first != second {
		t.Errorf("AddMethodref() = %d then %d, want the same index", first, second)
	}
	if got := len(b.Build().ConstantPool); got != size {
		t.Errorf("pool grew from %d to %d on a repeated add", size, got)
	}

	long := pool.AddLong(7)
	if b.Build().ConstantPool[long+1] != nil {
		t.Error("Long should be followed by a placeholder")
	}
	if next := pool.AddInteger(7); next != long+2 {
		t.Errorf("AddInteger() = %d, want %d", next, long+2)
	}
}

func TestConstantPoolEditorSeesExistingEntries(t *testing.T) {
	cf := NewBuilder("a/A", "java/lang/Object").Build()
	pool := NewConstantPoolEditor(cf)
	if got := pool.AddClass("a/A"); got != cf.ThisClass {
		t.Errorf("AddClass() = %d, want existing index %d", got, cf.ThisClass)
	}
}

func TestConstantAdder(t *testing.T) {
	source := NewBuilder("a/Callee", "java/lang/Object")
	ref := source.Pool().AddFieldref("a/Callee", "count", "I")
	str := source.Pool().AddString("hello")
	dbl := source.Pool().AddDouble(1.5)
	indy := source.Pool().Add(&ConstantInvokeDynamicInfo{
		NameAndTypeIndex: source.Pool().AddNameAndType("run", "()Ljava/lang/Runnable;"),
	})

	target := NewBuilder("a/Caller", "java/lang/Object")
	adder := NewConstantAdder(target.Pool(), source.Build().ConstantPool)

	t.Run("member reference", func(t *testing.T) {
		mapped, err := adder.Add(ref)
		if err != nil {
			t.Fatal(err)
		}
		class, name, desc := target.Build().ConstantPool.GetFieldref(mapped)
		if class != "a/Callee" || name != "count" || desc != "I" {
			t.Errorf("GetFieldref() = %q %q %q", class, name, desc)
		}
		again, _ := adder.Add(ref)
		if again != mapped {
			t.Errorf("second Add() = %d, want %d", again, mapped)
		}
	})

	t.Run("literals", func(t *testing.T) {
		mapped, err := adder.Add(str)
		if err != nil {
			t.Fatal(err)
		}
		if got := target.Build().ConstantPool.GetString(mapped); got != "hello" {
			t.Errorf("GetString() = %q", got)
		}
		mapped, err = adder.Add(dbl)
		if err != nil {
			t.Fatal(err)
		}
		if v, ok := target.Build().ConstantPool.GetDouble(mapped); !ok || v != 1.5 {
			t.Errorf("GetDouble() = %v, %v", v, ok)
		}
	})

	t.Run("bootstrap constants", func(t *testing.T) {
		if _, err := adder.Add(indy); !errors.Is(err, ErrBootstrapConstant) {
			t.Errorf("Add() error = %v, want ErrBootstrapConstant", err)
		}
	})
}
