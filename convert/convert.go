// Package convert implements the expression converter: surface.Expression
// (the read-only surface AST) to wfexpr.Expr. It hoists non-representable
// literal-container elements (map/array literal entries that are not pure,
// i.e. contain a function call) into temporary-variable assignments emitted
// as pre-steps ahead of the step that uses the resulting expression.
package convert

import (
	"github.com/ts2wf/compiler/internal/compileerr"
	"github.com/ts2wf/compiler/surface"
	"github.com/ts2wf/compiler/wfast"
	"github.com/ts2wf/compiler/wfexpr"
)

// TempSource allocates fresh temporary-variable names. lower.Context
// implements this so expression conversion can hoist literal elements
// without importing package lower (which itself imports convert).
type TempSource interface {
	NewTemp() string
}

// Convert converts a single surface expression into a workflow expression.
// It returns any pre-steps that must be emitted, in order, before the step
// that consumes the returned expression (hoisted literal elements).
func Convert(ts TempSource, n surface.Expression) (wfexpr.Expr, []*wfast.Step, *compileerr.Error) {
	c := &converter{ts: ts}
	e, err := c.convert(n)
	if err != nil {
		return nil, nil, err
	}
	return e, c.pre, nil
}

type converter struct {
	ts  TempSource
	pre []*wfast.Step
}

func (c *converter) hoistTemp(value wfexpr.Expr) *wfexpr.VariableReference {
	name := c.ts.NewTemp()
	c.pre = append(c.pre, &wfast.Step{
		Kind:   wfast.KindAssign,
		Assign: []wfast.Assignment{{Target: wfexpr.Ref(name), Value: value}},
	})
	return wfexpr.Ref(name)
}

// hoistIfImpure extracts an element to a temp if it is not pure (i.e. it
// contains a function call), otherwise returns it unchanged. Used both for
// literal-container elements (convertArray/convertObject) and for computed
// member-access indices (appendAccess), so a side-effecting index is
// evaluated exactly once even when the access is read more than once.
func (c *converter) hoistIfImpure(e wfexpr.Expr) wfexpr.Expr {
	if wfexpr.IsPure(e) {
		return e
	}
	return c.hoistTemp(e)
}

func (c *converter) convert(n surface.Expression) (wfexpr.Expr, *compileerr.Error) {
	switch v := n.(type) {
	case *surface.Literal:
		return c.convertLiteral(v), nil

	case *surface.Identifier:
		return convertIdentifier(v), nil

	case *surface.ArrayExpression:
		return c.convertArray(v)

	case *surface.ObjectExpression:
		return c.convertObject(v)

	case *surface.TemplateLiteral:
		return c.convertTemplate(v)

	case *surface.UnaryExpression:
		return c.convertUnary(v)

	case *surface.UpdateExpression:
		return nil, compileerr.Unsupportedf(v.Location(), "update operator %q is not supported", v.Operator)

	case *surface.BinaryExpression:
		return c.convertBinary(v)

	case *surface.LogicalExpression:
		return c.convertLogical(v)

	case *surface.MemberExpression:
		return c.convertMemberExpr(v)

	case *surface.CallExpression:
		return c.convertCall(v)

	case *surface.ChainExpression:
		return c.convertChain(v)

	case *surface.ConditionalExpression:
		test, err := c.convert(v.Test)
		if err != nil {
			return nil, err
		}
		cons, err := c.convert(v.Consequent)
		if err != nil {
			return nil, err
		}
		alt, err := c.convert(v.Alternate)
		if err != nil {
			return nil, err
		}
		return wfexpr.If(test, cons, alt), nil

	case *surface.SpreadElement:
		return nil, compileerr.Unsupportedf(v.Location(), "spread is not supported here")

	case *surface.TSAsExpression:
		return c.convert(v.Expression)
	case *surface.TSNonNullExpression:
		return c.convert(v.Expression)
	case *surface.TSSatisfiesExpression:
		return c.convert(v.Expression)
	case *surface.TSInstantiationExpression:
		return c.convert(v.Expression)
	case *surface.AwaitExpression:
		return c.convert(v.Argument)

	default:
		return nil, compileerr.Unsupportedf(n.Location(), "expression kind %q is not supported", n.Kind())
	}
}

func (c *converter) convertLiteral(lit *surface.Literal) *wfexpr.Primitive {
	switch lit.LitKind {
	case surface.LiteralNull:
		return wfexpr.Null
	case surface.LiteralBool:
		return wfexpr.Bool(lit.BoolVal)
	case surface.LiteralNumber:
		return wfexpr.Float(lit.NumberVal)
	case surface.LiteralString:
		return wfexpr.Str(lit.StringVal)
	default:
		return wfexpr.Null
	}
}

func convertIdentifier(id *surface.Identifier) wfexpr.Expr {
	switch id.Name {
	case "null", "undefined":
		return wfexpr.Null
	case "True", "TRUE":
		return wfexpr.Bool(true)
	case "False", "FALSE":
		return wfexpr.Bool(false)
	default:
		return wfexpr.Ref(id.Name)
	}
}

func (c *converter) convertArray(arr *surface.ArrayExpression) (wfexpr.Expr, *compileerr.Error) {
	elems := make([]wfexpr.Expr, len(arr.Elements))
	for i, el := range arr.Elements {
		if el == nil {
			elems[i] = wfexpr.Null
			continue
		}
		v, err := c.convert(el)
		if err != nil {
			return nil, err
		}
		elems[i] = c.hoistIfImpure(v)
	}
	return wfexpr.List(elems), nil
}

func (c *converter) convertObject(obj *surface.ObjectExpression) (wfexpr.Expr, *compileerr.Error) {
	m := wfexpr.NewOrderedMap()
	for _, p := range obj.Properties {
		key, kerr := objectKeyName(p.Key)
		if kerr != nil {
			return nil, kerr
		}
		v, err := c.convert(p.Value)
		if err != nil {
			return nil, err
		}
		m.Set(key, c.hoistIfImpure(v))
	}
	return wfexpr.Map(m), nil
}

func objectKeyName(key surface.Node) (string, *compileerr.Error) {
	switch k := key.(type) {
	case *surface.Identifier:
		return k.Name, nil
	case *surface.Literal:
		if k.LitKind == surface.LiteralString {
			return k.StringVal, nil
		}
		return "", compileerr.InvalidMapKeyf(k.Location(), "object literal key must be an identifier or string literal")
	default:
		return "", compileerr.InvalidMapKeyf(key.Location(), "object literal key must be an identifier or string literal")
	}
}

func (c *converter) convertTemplate(tl *surface.TemplateLiteral) (wfexpr.Expr, *compileerr.Error) {
	if len(tl.Expressions) == 0 {
		text := ""
		if len(tl.Quasis) > 0 {
			text = tl.Quasis[0].Cooked
		}
		return wfexpr.Str(text), nil
	}

	var parts []wfexpr.Expr
	for i, expr := range tl.Expressions {
		if i < len(tl.Quasis) {
			parts = append(parts, wfexpr.Str(tl.Quasis[i].Cooked))
		}
		v, err := c.convert(expr)
		if err != nil {
			return nil, err
		}
		parts = append(parts, wfexpr.Default(v, wfexpr.Str("null")))
	}
	if tail := len(tl.Expressions); tail < len(tl.Quasis) {
		parts = append(parts, wfexpr.Str(tl.Quasis[tail].Cooked))
	}

	result := parts[0]
	for _, p := range parts[1:] {
		result = &wfexpr.Binary{Left: result, Op: wfexpr.Add, Right: p}
	}
	return result, nil
}

func (c *converter) convertUnary(u *surface.UnaryExpression) (wfexpr.Expr, *compileerr.Error) {
	switch u.Operator {
	case surface.OpUnaryPlus:
		v, err := c.convert(u.Argument)
		if err != nil {
			return nil, err
		}
		return &wfexpr.Unary{Op: wfexpr.UnaryPlus, Operand: v}, nil
	case surface.OpUnaryMinus:
		v, err := c.convert(u.Argument)
		if err != nil {
			return nil, err
		}
		return &wfexpr.Unary{Op: wfexpr.UnaryMinus, Operand: v}, nil
	case surface.OpUnaryNot:
		v, err := c.convert(u.Argument)
		if err != nil {
			return nil, err
		}
		return &wfexpr.Unary{Op: wfexpr.UnaryNot, Operand: v}, nil
	case surface.OpUnaryVoid:
		// void evaluates its operand and discards it; the converted
		// operand is returned and the calling statement lowering is
		// responsible for assigning it to a discarded temp.
		return c.convert(u.Argument)
	case surface.OpUnaryTypeof:
		return c.convertTypeof(u.Argument)
	case surface.OpBitNot:
		return nil, compileerr.Unsupportedf(u.Location(), "operator '~' is not supported")
	default:
		return nil, compileerr.Unsupportedf(u.Location(), "unary operator %q is not supported", u.Operator)
	}
}

func (c *converter) convertTypeof(arg surface.Expression) (wfexpr.Expr, *compileerr.Error) {
	v, err := c.convert(arg)
	if err != nil {
		return nil, err
	}
	getType := wfexpr.Call("get_type", v)
	step1 := wfexpr.Call("text.replace_all_regex", getType, wfexpr.Str("^(bytes|list|map|null)$"), wfexpr.Str("object"))
	step2 := wfexpr.Call("text.replace_all_regex", step1, wfexpr.Str("^(double|integer)$"), wfexpr.Str("number"))
	return step2, nil
}

func (c *converter) convertBinary(b *surface.BinaryExpression) (wfexpr.Expr, *compileerr.Error) {
	left, err := c.convert(b.Left)
	if err != nil {
		return nil, err
	}
	right, err := c.convert(b.Right)
	if err != nil {
		return nil, err
	}
	var op wfexpr.BinaryOp
	switch b.Operator {
	case surface.OpAdd:
		op = wfexpr.Add
	case surface.OpSub:
		op = wfexpr.Sub
	case surface.OpMul:
		op = wfexpr.Mul
	case surface.OpDiv:
		op = wfexpr.Div
	case surface.OpMod:
		op = wfexpr.Mod
	case surface.OpEqStrict, surface.OpEqLoose:
		op = wfexpr.Eq
	case surface.OpNeStrict, surface.OpNeLoose:
		op = wfexpr.Neq
	case surface.OpGt:
		op = wfexpr.Gt
	case surface.OpGte:
		op = wfexpr.Gte
	case surface.OpLt:
		op = wfexpr.Lt
	case surface.OpLte:
		op = wfexpr.Lte
	case surface.OpIn:
		op = wfexpr.In
	default:
		return nil, compileerr.Unsupportedf(b.Location(), "binary operator %q is not supported", b.Operator)
	}
	return &wfexpr.Binary{Left: left, Op: op, Right: right}, nil
}

func (c *converter) convertLogical(l *surface.LogicalExpression) (wfexpr.Expr, *compileerr.Error) {
	left, err := c.convert(l.Left)
	if err != nil {
		return nil, err
	}
	right, err := c.convert(l.Right)
	if err != nil {
		return nil, err
	}
	switch l.Operator {
	case surface.OpAnd:
		return &wfexpr.Binary{Left: left, Op: wfexpr.And, Right: right}, nil
	case surface.OpOr:
		return &wfexpr.Binary{Left: left, Op: wfexpr.Or, Right: right}, nil
	case surface.OpNullish:
		return wfexpr.Default(left, right), nil
	default:
		return nil, compileerr.Unsupportedf(l.Location(), "logical operator %q is not supported", l.Operator)
	}
}

// convertMemberExpr converts a non-optional member expression. If the
// object chain bottoms out at an Identifier, the result is a
// VariableReference; otherwise it is a general Member node.
func (c *converter) convertMemberExpr(m *surface.MemberExpression) (wfexpr.Expr, *compileerr.Error) {
	obj, err := c.convert(m.Object)
	if err != nil {
		return nil, err
	}
	return c.appendAccess(obj, m)
}

// appendAccess attaches one more `.field` or `[expr]` step onto obj. A
// computed index is hoisted to a temp when it is not pure, so a later
// read-then-write of the same access (compound assignment's LHS) evaluates
// the index once rather than re-running whatever produced it.
func (c *converter) appendAccess(obj wfexpr.Expr, m *surface.MemberExpression) (wfexpr.Expr, *compileerr.Error) {
	if ref, ok := obj.(*wfexpr.VariableReference); ok {
		if !m.Computed {
			name, nerr := identifierName(m.Property)
			if nerr != nil {
				return nil, nerr
			}
			return ref.Dot(name), nil
		}
		idx, ierr := c.convert(m.Property.(surface.Expression))
		if ierr != nil {
			return nil, ierr
		}
		return ref.Indexed(c.hoistIfImpure(idx)), nil
	}
	if !m.Computed {
		name, nerr := identifierName(m.Property)
		if nerr != nil {
			return nil, nerr
		}
		return &wfexpr.Member{Object: obj, Property: wfexpr.Str(name), Computed: false}, nil
	}
	idx, ierr := c.convert(m.Property.(surface.Expression))
	if ierr != nil {
		return nil, ierr
	}
	return &wfexpr.Member{Object: obj, Property: c.hoistIfImpure(idx), Computed: true}, nil
}

func identifierName(n surface.Node) (string, *compileerr.Error) {
	id, ok := n.(*surface.Identifier)
	if !ok {
		return "", compileerr.Internalf(n.Location(), "non-computed member property is not an identifier")
	}
	return id.Name, nil
}

func (c *converter) convertCall(call *surface.CallExpression) (wfexpr.Expr, *compileerr.Error) {
	callee, err := c.convert(call.Callee)
	if err != nil {
		return nil, err
	}
	ref, ok := callee.(*wfexpr.VariableReference)
	if !ok {
		return nil, compileerr.Unsupportedf(call.Location(), "call target must be a fully-qualified name")
	}
	name, fq := ref.Dotted()
	if !fq {
		return nil, compileerr.Unsupportedf(call.Location(), "call target must be a fully-qualified name")
	}
	args := make([]wfexpr.Expr, 0, len(call.Args))
	for _, a := range call.Args {
		if _, isSpread := a.(*surface.SpreadElement); isSpread {
			return nil, compileerr.Unsupportedf(a.Location(), "spread arguments are not supported")
		}
		v, aerr := c.convert(a)
		if aerr != nil {
			return nil, aerr
		}
		args = append(args, v)
	}
	return &wfexpr.FunctionInvocation{Function: name, Args: args}, nil
}

// convertChain converts an optional-chaining expression into repeated
// map.get(...) invocations, grouping consecutive non-optional accesses
// into a single map.get call whose second argument is a sequence of keys.
func (c *converter) convertChain(chain *surface.ChainExpression) (wfexpr.Expr, *compileerr.Error) {
	root, links, err := c.flattenChain(chain.Expression)
	if err != nil {
		return nil, err
	}
	base, err := c.convert(root)
	if err != nil {
		return nil, err
	}

	i := 0
	// Leading non-optional accesses, before the first `?.`, dereference
	// directly: a hard failure on null is the correct JS semantics there.
	for i < len(links) && !links[i].optional {
		base, err = c.appendLink(base, links[i])
		if err != nil {
			return nil, err
		}
		i++
	}

	for i < len(links) {
		// links[i].optional is true here: start a new map.get group.
		keys := []wfexpr.Expr{links[i].key}
		i++
		for i < len(links) && !links[i].optional {
			keys = append(keys, links[i].key)
			i++
		}
		base = wfexpr.Call("map.get", base, wfexpr.List(keys))
	}
	return base, nil
}

type chainLink struct {
	optional bool
	computed bool
	key      wfexpr.Expr
}

func (c *converter) appendLink(base wfexpr.Expr, l chainLink) (wfexpr.Expr, *compileerr.Error) {
	if ref, ok := base.(*wfexpr.VariableReference); ok {
		if !l.computed {
			str, _ := l.key.(*wfexpr.Primitive)
			return ref.Dot(str.Value.(string)), nil
		}
		return ref.Indexed(l.key), nil
	}
	return &wfexpr.Member{Object: base, Property: l.key, Computed: l.computed}, nil
}

// flattenChain walks a ChainExpression's inner expression from outermost to
// innermost, returning the root (non-member) expression and the ordered
// list of member accesses applied to it, innermost first.
func (c *converter) flattenChain(e surface.Expression) (surface.Expression, []chainLink, *compileerr.Error) {
	switch n := e.(type) {
	case *surface.MemberExpression:
		root, links, err := c.flattenChain(n.Object)
		if err != nil {
			return nil, nil, err
		}
		var key wfexpr.Expr
		if !n.Computed {
			name, nerr := identifierName(n.Property)
			if nerr != nil {
				return nil, nil, nerr
			}
			key = wfexpr.Str(name)
		} else {
			v, verr := c.convert(n.Property.(surface.Expression))
			if verr != nil {
				return nil, nil, verr
			}
			key = v
		}
		links = append(links, chainLink{optional: n.Optional, computed: n.Computed, key: key})
		return root, links, nil
	case *surface.CallExpression:
		if n.Optional {
			return nil, nil, compileerr.Unsupportedf(n.Location(), "optional call invocation is not supported")
		}
		return nil, nil, compileerr.Unsupportedf(n.Location(), "a call expression inside an optional chain is not supported")
	default:
		return e, nil, nil
	}
}
