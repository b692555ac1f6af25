package format

import (
	"fmt"
	"io"
	"strings"

	"github.com/dhamidi/kiln/classfile"
)

// LineEncoder writes one tab-separated line per class, field, method and,
// with Code set, per instruction.
type LineEncoder struct {
	w     io.Writer
	class *classfile.ClassFile
	Code  bool
}

func NewLineEncoder(w io.Writer) *LineEncoder {
	return &LineEncoder{w: w}
}

func (e *LineEncoder) Encode(cf *classfile.ClassFile) error {
	e.class = cf
	text, err := e.MarshalText()
	if err != nil {
		return err
	}
	_, err = e.w.Write(text)
	return err
}

func (e *LineEncoder) MarshalText() ([]byte, error) {
	var sb strings.Builder
	c := e.class
	cp := c.ConstantPool

	fmt.Fprintf(&sb, "%s\t%s\t%s\t%s\t%s\n",
		classKind(c),
		c.ClassName(),
		joinModifiers(append([]string{visibility(c.AccessFlags)}, classModifiers(c.AccessFlags)...)),
		orDash(c.SuperClassName()),
		joinModifiers(c.InterfaceNames()),
	)

	for i := range c.Fields {
		f := &c.Fields[i]
		fmt.Fprintf(&sb, "field\t%s\t%s\t%s\t%s\n",
			f.Name(cp),
			f.Descriptor(cp),
			visibility(f.AccessFlags),
			joinModifiers(fieldModifiers(f.AccessFlags)),
		)
	}

	for i := range c.Methods {
		m := &c.Methods[i]
		fmt.Fprintf(&sb, "method\t%s\t%s\t%s\t%s\n",
			m.Name(cp),
			m.Descriptor(cp),
			visibility(m.AccessFlags),
			joinModifiers(methodModifiers(m.AccessFlags)),
		)
		if !e.Code {
			continue
		}
		lines, err := disassemble(c, m)
		if err != nil {
			return nil, err
		}
		for _, l := range lines {
			fmt.Fprintf(&sb, "code\t%d\t%s\t%s\n", l.Offset, l.Text, orDash(l.Constant))
		}
	}

	return []byte(sb.String()), nil
}

func joinModifiers(mods []string) string {
	if len(mods) == 0 {
		return "-"
	}
	return strings.Join(mods, ",")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
