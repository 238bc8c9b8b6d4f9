// Package wfexpr implements the workflow expression model: an immutable
// recursive tagged value with smart constructors and predicates, built for
// compile-time construction rather than runtime evaluation.
package wfexpr

// Expr is implemented by every workflow expression variant. The method set
// is deliberately a single marker: type switches in convert/lower/render do
// the real work.
type Expr interface {
	exprNode()
}

// Primitive wraps a JSON-compatible scalar or container: nil, bool, int64,
// float64, string, []Expr (ordered sequence), or *OrderedMap (string-keyed).
type Primitive struct {
	Value interface{}
}

func (*Primitive) exprNode() {}

// Null is the Primitive null literal.
var Null = &Primitive{Value: nil}

// Bool constructs a boolean Primitive.
func Bool(b bool) *Primitive { return &Primitive{Value: b} }

// Int constructs an integer Primitive.
func Int(i int64) *Primitive { return &Primitive{Value: i} }

// Float constructs a floating-point Primitive.
func Float(f float64) *Primitive { return &Primitive{Value: f} }

// Str constructs a string Primitive.
func Str(s string) *Primitive { return &Primitive{Value: s} }

// List constructs a Primitive wrapping an ordered sequence of expressions.
func List(elems []Expr) *Primitive { return &Primitive{Value: elems} }

// OrderedMap is a string-keyed, insertion-ordered mapping used inside
// Primitive map literals, preserving the source object literal's key order.
type OrderedMap struct {
	keys   []string
	values map[string]Expr
}

// NewOrderedMap returns an empty ordered map.
func NewOrderedMap() *OrderedMap {
	return &OrderedMap{values: make(map[string]Expr)}
}

// Set inserts or overwrites key, preserving first-insertion order.
func (m *OrderedMap) Set(key string, v Expr) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

// Keys returns the keys in insertion order.
func (m *OrderedMap) Keys() []string { return m.keys }

// Get retrieves a value by key.
func (m *OrderedMap) Get(key string) (Expr, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Map constructs a Primitive wrapping an ordered string-keyed map.
func Map(m *OrderedMap) *Primitive { return &Primitive{Value: m} }

// VariableReference is a dotted/bracketed name path (a.b[expr].c),
// represented as a base identifier plus an ordered list of accessors so the
// render adapter can canonicalise it to a string form.
type VariableReference struct {
	Base      string
	Accessors []Accessor
}

func (*VariableReference) exprNode() {}

// Accessor is one `.field` or `[expr]` step of a VariableReference.
type Accessor struct {
	// Name is set for a non-computed `.field` access.
	Name string
	// Index is set for a computed `[expr]` access (Name == "").
	Index Expr
}

// Ref constructs a bare variable reference with no accessors.
func Ref(name string) *VariableReference {
	return &VariableReference{Base: name}
}

// Dot returns a new reference with a non-computed `.field` accessor
// appended; the receiver is left unchanged, so calls can be chained.
func (v *VariableReference) Dot(field string) *VariableReference {
	return &VariableReference{Base: v.Base, Accessors: append(append([]Accessor{}, v.Accessors...), Accessor{Name: field})}
}

// Indexed returns a new reference with a computed `[expr]` accessor
// appended.
func (v *VariableReference) Indexed(idx Expr) *VariableReference {
	return &VariableReference{Base: v.Base, Accessors: append(append([]Accessor{}, v.Accessors...), Accessor{Index: idx})}
}

// IsFullyQualified reports whether every accessor is a constant identifier
// (no computed subscripts). This gates whether the reference may appear on
// the left-hand side of an assignment or as a function name in a call step.
func (v *VariableReference) IsFullyQualified() bool {
	for _, a := range v.Accessors {
		if a.Index != nil {
			return false
		}
	}
	return true
}

// Dotted renders the fully-qualified dotted name (e.g. "a.b.c"). The
// second return is false when the reference carries a computed accessor,
// which has no dotted string form.
func (v *VariableReference) Dotted() (string, bool) {
	if !v.IsFullyQualified() {
		return "", false
	}
	s := v.Base
	for _, a := range v.Accessors {
		s += "." + a.Name
	}
	return s, true
}

// UnaryOp enumerates the supported unary operators.
type UnaryOp string

const (
	UnaryPlus  UnaryOp = "+"
	UnaryMinus UnaryOp = "-"
	UnaryNot   UnaryOp = "not"
)

type Unary struct {
	Op      UnaryOp
	Operand Expr
}

func (*Unary) exprNode() {}

// BinaryOp enumerates the supported binary/logical/membership operators.
type BinaryOp string

const (
	Add BinaryOp = "+"
	Sub BinaryOp = "-"
	Mul BinaryOp = "*"
	Div BinaryOp = "/"
	Mod BinaryOp = "%"

	Eq  BinaryOp = "=="
	Neq BinaryOp = "!="
	Gt  BinaryOp = ">"
	Gte BinaryOp = ">="
	Lt  BinaryOp = "<"
	Lte BinaryOp = "<="

	And BinaryOp = "and"
	Or  BinaryOp = "or"

	In BinaryOp = "in"
)

type Binary struct {
	Left  Expr
	Op    BinaryOp
	Right Expr
}

func (*Binary) exprNode() {}

// Member represents `object[property]` (Computed true) or `object.property`
// (Computed false, Property is a Primitive string in that case).
type Member struct {
	Object   Expr
	Property Expr
	Computed bool
}

func (*Member) exprNode() {}

// FunctionInvocation calls a fully-qualified function by dotted name.
type FunctionInvocation struct {
	Function string
	Args     []Expr
}

func (*FunctionInvocation) exprNode() {}

// Call is a convenience constructor for FunctionInvocation.
func Call(function string, args ...Expr) *FunctionInvocation {
	return &FunctionInvocation{Function: function, Args: args}
}

// If constructs the `if(test, consequent, alternate)` rewrite of a surface
// conditional expression.
func If(test, consequent, alternate Expr) *FunctionInvocation {
	return Call("if", test, consequent, alternate)
}

// Default constructs the `default(value, fallback)` rewrite used for `??`
// and for template-literal interpolations.
func Default(value, fallback Expr) *FunctionInvocation {
	return Call("default", value, fallback)
}

// IsPure reports whether evaluating e can have no side effect: true for
// primitives, and for member chains whose computed indices are themselves
// pure.
func IsPure(e Expr) bool {
	switch n := e.(type) {
	case *Primitive:
		switch v := n.Value.(type) {
		case []Expr:
			for _, el := range v {
				if !IsPure(el) {
					return false
				}
			}
			return true
		case *OrderedMap:
			for _, k := range v.keys {
				val, _ := v.Get(k)
				if !IsPure(val) {
					return false
				}
			}
			return true
		default:
			return true
		}
	case *VariableReference:
		for _, a := range n.Accessors {
			if a.Index != nil && !IsPure(a.Index) {
				return false
			}
		}
		return true
	case *Unary:
		return IsPure(n.Operand)
	case *Binary:
		return IsPure(n.Left) && IsPure(n.Right)
	case *Member:
		return IsPure(n.Object) && IsPure(n.Property)
	case *FunctionInvocation:
		// A call may have arbitrary side effects regardless of its
		// arguments' purity.
		return false
	default:
		return false
	}
}

// IsLiteral reports whether e is a Primitive containing no identifiers or
// function calls anywhere in its structure.
func IsLiteral(e Expr) bool {
	prim, ok := e.(*Primitive)
	if !ok {
		return false
	}
	switch v := prim.Value.(type) {
	case []Expr:
		for _, el := range v {
			if !IsLiteral(el) {
				return false
			}
		}
		return true
	case *OrderedMap:
		for _, k := range v.keys {
			val, _ := v.Get(k)
			if !IsLiteral(val) {
				return false
			}
		}
		return true
	default:
		return true
	}
}
