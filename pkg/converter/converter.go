// Package converter materializes post-pipeline response bodies into the type a
// caller declared: raw text, a parsed HTML document, or a structured value.
package converter

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrDecode is matched by every *DecodeError.
	ErrDecode = errors.New("decode response body")
	// ErrNoConverter reports that no registered converter accepts a target.
	ErrNoConverter = errors.New("no converter for target")
)

// Converter decodes a body into targets it accepts.
type Converter interface {
	Name() string
	Accepts(target any) bool
	Decode(body []byte, target any) error
}

// DecodeError carries the converter, target type and underlying parse error.
type DecodeError struct {
	Converter string
	Target    string
	Err       error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: decode into %s: %v", e.Converter, e.Target, e.Err)
}

func (e *DecodeError) Unwrap() []error { return []error{ErrDecode, e.Err} }

func newDecodeError(conv string, target any, err error) error {
	return &DecodeError{Converter: conv, Target: fmt.Sprintf("%T", target), Err: err}
}

// Registry selects the first converter accepting a target, in registration order.
type Registry struct {
	converters []Converter
}

// NewRegistry returns a registry trying converters in the given order.
func NewRegistry(converters ...Converter) *Registry {
	r := &Registry{}
	for _, c := range converters {
		if c != nil {
			r.converters = append(r.converters, c)
		}
	}
	return r
}

// DefaultRegistry tries raw text, then HTML, then JSON.
func DefaultRegistry() *Registry {
	return NewRegistry(Text{}, HTML{}, NewJSON())
}

// For returns the converter for target. ok is false when nothing applies,
// including when a converter faults while being asked.
func (r *Registry) For(target any) (Converter, bool) {
	if r == nil {
		return nil, false
	}
	for _, c := range r.converters {
		if accepts(c, target) {
			return c, true
		}
	}
	return nil, false
}

// Decode selects a converter for target and decodes body into it.
func (r *Registry) Decode(body []byte, target any) error {
	conv, ok := r.For(target)
	if !ok {
		return fmt.Errorf("%w: %T", ErrNoConverter, target)
	}
	return conv.Decode(body, target)
}

func accepts(c Converter, target any) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return c.Accepts(target)
}

func isNonNilPointer(target any) bool {
	if target == nil {
		return false
	}
	v := reflect.ValueOf(target)
	return v.Kind() == reflect.Pointer && !v.IsNil()
}
