package render

import (
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ts2wf/compiler/wfexpr"
)

func mappingNode() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}

func sequenceNode() *yaml.Node {
	return &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
}

func scalarNode(v interface{}) *yaml.Node {
	n := &yaml.Node{}
	_ = n.Encode(v)
	return n
}

func addMapEntry(m *yaml.Node, key string, value *yaml.Node) {
	m.Content = append(m.Content, scalarNode(key), value)
}

// exprDoc renders e as the YAML value GCW would expect at this position: a
// literal scalar/sequence/mapping for a pure-literal Primitive (recursing
// into any non-literal elements it carries), or a "${...}" interpolation
// string for anything else.
func exprDoc(e wfexpr.Expr) *yaml.Node {
	if e == nil {
		return scalarNode(nil)
	}
	if prim, ok := e.(*wfexpr.Primitive); ok {
		return primitiveDoc(prim.Value)
	}
	return scalarNode("${" + exprToText(e) + "}")
}

func primitiveDoc(v interface{}) *yaml.Node {
	switch val := v.(type) {
	case []wfexpr.Expr:
		seq := sequenceNode()
		for _, el := range val {
			seq.Content = append(seq.Content, exprDoc(el))
		}
		return seq
	case *wfexpr.OrderedMap:
		m := mappingNode()
		for _, k := range val.Keys() {
			el, _ := val.Get(k)
			addMapEntry(m, k, exprDoc(el))
		}
		return m
	default:
		return scalarNode(val)
	}
}

// variableRefText renders a VariableReference as GCW's dotted/bracketed
// access syntax, e.g. "a.b[c.d]".
func variableRefText(v *wfexpr.VariableReference) string {
	var b strings.Builder
	b.WriteString(v.Base)
	for _, a := range v.Accessors {
		if a.Index != nil {
			b.WriteString("[")
			b.WriteString(exprToText(a.Index))
			b.WriteString("]")
		} else {
			b.WriteString(".")
			b.WriteString(a.Name)
		}
	}
	return b.String()
}

// exprToText renders e as GCW expression source text, the form embedded
// inside a "${...}" interpolation. Binary/Unary operands are always
// parenthesized when they are themselves Binary/Unary, trading a few
// redundant parens for never needing to reason about operator precedence.
func exprToText(e wfexpr.Expr) string {
	switch n := e.(type) {
	case *wfexpr.Primitive:
		return literalText(n.Value)
	case *wfexpr.VariableReference:
		return variableRefText(n)
	case *wfexpr.Unary:
		if n.Op == wfexpr.UnaryNot {
			return "not " + maybeParen(n.Operand)
		}
		return string(n.Op) + maybeParen(n.Operand)
	case *wfexpr.Binary:
		return maybeParen(n.Left) + " " + string(n.Op) + " " + maybeParen(n.Right)
	case *wfexpr.Member:
		if n.Computed {
			return exprToText(n.Object) + "[" + exprToText(n.Property) + "]"
		}
		return exprToText(n.Object) + "." + memberPropertyName(n.Property)
	case *wfexpr.FunctionInvocation:
		args := make([]string, len(n.Args))
		for i, a := range n.Args {
			args[i] = exprToText(a)
		}
		return n.Function + "(" + strings.Join(args, ", ") + ")"
	default:
		return ""
	}
}

func memberPropertyName(e wfexpr.Expr) string {
	if prim, ok := e.(*wfexpr.Primitive); ok {
		if s, ok := prim.Value.(string); ok {
			return s
		}
	}
	return exprToText(e)
}

func maybeParen(e wfexpr.Expr) string {
	switch e.(type) {
	case *wfexpr.Binary, *wfexpr.Unary:
		return "(" + exprToText(e) + ")"
	default:
		return exprToText(e)
	}
}

func literalText(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case bool:
		if val {
			return "true"
		}
		return "false"
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case string:
		return strconv.Quote(val)
	case []wfexpr.Expr:
		parts := make([]string, len(val))
		for i, el := range val {
			parts[i] = exprToText(el)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *wfexpr.OrderedMap:
		parts := make([]string, 0, len(val.Keys()))
		for _, k := range val.Keys() {
			v, _ := val.Get(k)
			parts = append(parts, k+": "+exprToText(v))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return ""
	}
}
