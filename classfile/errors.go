package classfile

import "fmt"

// FormatError reports a class file that cannot be decoded. Offset is the
// position in the input where decoding stopped.
type FormatError struct {
	Offset int
	Msg    string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("malformed class file at offset %d: %s", e.Offset, e.Msg)
}

// InvariantError is raised with panic when a caller violates a structural
// precondition, such as queuing an edit at an offset that is not an
// instruction boundary. It is never recovered by the pass runner.
type InvariantError struct {
	Msg string
}

func (e *InvariantError) Error() string {
	return "invariant violated: " + e.Msg
}

func Invariantf(format string, args ...interface{}) *InvariantError {
	return &InvariantError{Msg: fmt.Sprintf(format, args...)}
}
