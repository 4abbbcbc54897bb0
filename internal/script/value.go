package script

// AttrKind discriminates the shapes an attribute value can take.
type AttrKind int

const (
	// AttrOther is any value that is neither a boolean nor a string.
	AttrOther AttrKind = iota
	// AttrBool is a boolean attribute value.
	AttrBool
	// AttrString is a string attribute value.
	AttrString
)

// String returns the kind name.
func (k AttrKind) String() string {
	switch k {
	case AttrBool:
		return "bool"
	case AttrString:
		return "string"
	default:
		return "other"
	}
}

// AttrValue is the decoded value of an attribute.
// Only the field matching Kind is meaningful; Repr is always set.
type AttrValue struct {
	Kind AttrKind
	Bool bool
	Str  string
	Repr string
}

// BoolAttr returns a boolean attribute value.
func BoolAttr(b bool) AttrValue {
	repr := "false"
	if b {
		repr = "true"
	}
	return AttrValue{Kind: AttrBool, Bool: b, Repr: repr}
}

// StringAttr returns a string attribute value.
func StringAttr(s string) AttrValue {
	return AttrValue{Kind: AttrString, Str: s, Repr: s}
}

// OtherAttr returns an attribute value of any other shape, described by repr.
func OtherAttr(repr string) AttrValue {
	return AttrValue{Kind: AttrOther, Repr: repr}
}

// Attribute is a declarative marker attached to a bound value.
type Attribute struct {
	Name  string
	Value AttrValue
}

// Value is a value bound in an interpreter scope.
//
// Payload is the interpreter-native value and is only meaningful to the
// Instance that produced it.
type Value struct {
	Type     string
	Callable bool
	Payload  any
	Attrs    []Attribute
}

// Binding is one named entry of a scope snapshot.
type Binding struct {
	Name  string
	Value Value
}

// Metadata holds the declarative directives read from a parsed program.
// Directive values are plain Go values: string, int64, bool, nil, []any and
// map[string]any.
type Metadata struct {
	names  []string
	values map[string]any
}

// NewMetadata creates an empty directive set.
func NewMetadata() *Metadata {
	return &Metadata{values: make(map[string]any)}
}

// Set adds or replaces a directive, preserving first-insertion order.
func (m *Metadata) Set(name string, value any) {
	if _, ok := m.values[name]; !ok {
		m.names = append(m.names, name)
	}
	m.values[name] = value
}

// Get returns the directive value for name.
func (m *Metadata) Get(name string) (any, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.values[name]
	return v, ok
}

// Names returns directive names in declaration order.
func (m *Metadata) Names() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.names...)
}
