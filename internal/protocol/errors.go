package protocol

import "fmt"

// Error is a protocol-layer error from the tagged-union codecs: an unknown
// tag when decoding, or a union with no variant set when encoding.
type Error struct {
	Message string
}

func (e *Error) Error() string { return e.Message }

func errUnknownTag(tag string) *Error {
	return &Error{Message: fmt.Sprintf("protocol: unknown tag %q", tag)}
}

func errEmptyUnion(typeName string) *Error {
	return &Error{Message: fmt.Sprintf("protocol: %s has no variant set", typeName)}
}
