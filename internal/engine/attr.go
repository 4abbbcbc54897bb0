package engine

import (
	"fmt"
	"strings"

	"go.starlark.net/starlark"

	"github.com/roach88/attest/internal/script"
)

type rawAttr struct {
	name  string
	value starlark.Value
}

// tagged is a value carrying one or more attributes.
// Attribute-bearing callables are represented by taggedCallable.
type tagged struct {
	inner starlark.Value
	attrs []rawAttr
}

var _ starlark.Value = (*tagged)(nil)

func (t *tagged) String() string {
	names := make([]string, len(t.attrs))
	for i, a := range t.attrs {
		names[i] = a.name
	}
	return fmt.Sprintf("%s [%s]", t.inner.String(), strings.Join(names, ", "))
}

func (t *tagged) Type() string        { return t.inner.Type() }
func (t *tagged) Truth() starlark.Bool { return t.inner.Truth() }

func (t *tagged) Freeze() {
	t.inner.Freeze()
	for _, a := range t.attrs {
		a.value.Freeze()
	}
}

func (t *tagged) Hash() (uint32, error) {
	return t.inner.Hash()
}

type taggedCallable struct {
	*tagged
}

var _ starlark.Callable = taggedCallable{}

func (t taggedCallable) Name() string {
	return t.inner.(starlark.Callable).Name()
}

func (t taggedCallable) CallInternal(thread *starlark.Thread, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	return starlark.Call(thread, t.inner, args, kwargs)
}

// withAttr returns v tagged with an additional attribute. v itself is not
// modified, so a value bound under two names can be tagged differently.
func withAttr(v starlark.Value, name string, value starlark.Value) starlark.Value {
	inner, attrs := untag(v)
	attrs = append(append([]rawAttr(nil), attrs...), rawAttr{name: name, value: value})
	t := &tagged{inner: inner, attrs: attrs}
	if _, ok := inner.(starlark.Callable); ok {
		return taggedCallable{t}
	}
	return t
}

// untag splits v into the underlying value and its attributes.
func untag(v starlark.Value) (starlark.Value, []rawAttr) {
	switch t := v.(type) {
	case *tagged:
		return t.inner, t.attrs
	case taggedCallable:
		return t.inner, t.attrs
	default:
		return v, nil
	}
}

// attrBuiltin implements attr(value, name, attr_value=True).
func attrBuiltin(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		v     starlark.Value
		name  string
		value starlark.Value = starlark.True
	)
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "value", &v, "name", &name, "attr_value?", &value); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("%s: attribute name must not be empty", b.Name())
	}
	return withAttr(v, name, value), nil
}

// decodeAttr maps a Starlark attribute value onto the boundary's tagged variant.
func decodeAttr(v starlark.Value) script.AttrValue {
	switch x := v.(type) {
	case starlark.Bool:
		return script.BoolAttr(bool(x))
	case starlark.String:
		return script.StringAttr(string(x))
	default:
		return script.OtherAttr(v.String())
	}
}

// toValue describes a Starlark value for the harness.
func toValue(v starlark.Value) script.Value {
	inner, raw := untag(v)
	_, callable := inner.(starlark.Callable)

	var attrs []script.Attribute
	if len(raw) > 0 {
		attrs = make([]script.Attribute, len(raw))
		for i, a := range raw {
			attrs[i] = script.Attribute{Name: a.name, Value: decodeAttr(a.value)}
		}
	}

	return script.Value{
		Type:     inner.Type(),
		Callable: callable,
		Payload:  v,
		Attrs:    attrs,
	}
}
