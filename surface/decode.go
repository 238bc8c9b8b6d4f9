package surface

import (
	"encoding/json"
	"fmt"
)

// DecodeProgram decodes a JSON-encoded estree-shaped document (as produced
// by the external surface-language parser) into a *Program. This is the
// only place in the module that touches encoding/json for surface nodes;
// everything downstream works with the typed Node interfaces in surface.go.
func DecodeProgram(data []byte) (*Program, error) {
	var raw json.RawMessage = data
	node, err := decodeNode(raw)
	if err != nil {
		return nil, err
	}
	prog, ok := node.(*Program)
	if !ok {
		return nil, fmt.Errorf("surface: root node is %T, want *Program", node)
	}
	return prog, nil
}

type head struct {
	Type string `json:"type"`
	Loc  Loc    `json:"loc"`
}

func decodeNode(raw json.RawMessage) (Node, error) {
	if raw == nil || string(raw) == "null" {
		return nil, nil
	}
	var h head
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil, fmt.Errorf("surface: %w", err)
	}
	switch h.Type {
	case "Program":
		var v struct {
			Body []json.RawMessage `json:"body"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		body, err := decodeStatements(v.Body)
		if err != nil {
			return nil, err
		}
		return &Program{base: base{Loc: h.Loc}, Body: body}, nil

	case "BlockStatement":
		var v struct {
			Body []json.RawMessage `json:"body"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		body, err := decodeStatements(v.Body)
		if err != nil {
			return nil, err
		}
		return &BlockStatement{base: base{Loc: h.Loc}, Body: body}, nil

	case "EmptyStatement":
		return &EmptyStatement{base{Loc: h.Loc}}, nil

	case "TSInterfaceDeclaration":
		return &TSInterfaceDeclaration{base{Loc: h.Loc}}, nil
	case "TSTypeAliasDeclaration":
		return &TSTypeAliasDeclaration{base{Loc: h.Loc}}, nil
	case "TSDeclareFunction":
		return &TSDeclareFunction{base{Loc: h.Loc}}, nil

	case "FunctionDeclaration":
		var v struct {
			Id     json.RawMessage   `json:"id"`
			Params []json.RawMessage `json:"params"`
			Body   json.RawMessage   `json:"body"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		idNode, err := decodeNode(v.Id)
		if err != nil {
			return nil, err
		}
		var id *Identifier
		if idNode != nil {
			id, _ = idNode.(*Identifier)
		}
		params := make([]Pattern, 0, len(v.Params))
		for _, p := range v.Params {
			pn, err := decodePattern(p)
			if err != nil {
				return nil, err
			}
			params = append(params, pn)
		}
		bodyNode, err := decodeNode(v.Body)
		if err != nil {
			return nil, err
		}
		block, _ := bodyNode.(*BlockStatement)
		return &FunctionDeclaration{base: base{Loc: h.Loc}, Id: id, Params: params, Body: block}, nil

	case "VariableDeclaration":
		var v struct {
			Kind         string            `json:"kind"`
			Declarations []json.RawMessage `json:"declarations"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		decls := make([]VariableDeclarator, 0, len(v.Declarations))
		for _, d := range v.Declarations {
			var dv struct {
				Id   json.RawMessage `json:"id"`
				Init json.RawMessage `json:"init"`
				Loc  Loc             `json:"loc"`
			}
			if err := json.Unmarshal(d, &dv); err != nil {
				return nil, err
			}
			pat, err := decodePattern(dv.Id)
			if err != nil {
				return nil, err
			}
			var init Expression
			if dv.Init != nil {
				initNode, err := decodeNode(dv.Init)
				if err != nil {
					return nil, err
				}
				init, _ = initNode.(Expression)
			}
			decls = append(decls, VariableDeclarator{base: base{Loc: dv.Loc}, Id: pat, Init: init})
		}
		return &VariableDeclaration{base: base{Loc: h.Loc}, DeclKind: DeclarationKind(v.Kind), Declarations: decls}, nil

	case "ExpressionStatement":
		var v struct {
			Expression json.RawMessage `json:"expression"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		exprNode, err := decodeNode(v.Expression)
		if err != nil {
			return nil, err
		}
		e, _ := exprNode.(Expression)
		return &ExpressionStatement{base: base{Loc: h.Loc}, Expression: e}, nil

	case "IfStatement":
		var v struct {
			Test       json.RawMessage `json:"test"`
			Consequent json.RawMessage `json:"consequent"`
			Alternate  json.RawMessage `json:"alternate"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		testNode, err := decodeNode(v.Test)
		if err != nil {
			return nil, err
		}
		test, _ := testNode.(Expression)
		cons, err := decodeStatement(v.Consequent)
		if err != nil {
			return nil, err
		}
		var alt Statement
		if v.Alternate != nil {
			alt, err = decodeStatement(v.Alternate)
			if err != nil {
				return nil, err
			}
		}
		return &IfStatement{base: base{Loc: h.Loc}, Test: test, Consequent: cons, Alternate: alt}, nil

	case "SwitchStatement":
		var v struct {
			Discriminant json.RawMessage   `json:"discriminant"`
			Cases        []json.RawMessage `json:"cases"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		discNode, err := decodeNode(v.Discriminant)
		if err != nil {
			return nil, err
		}
		disc, _ := discNode.(Expression)
		cases := make([]SwitchCase, 0, len(v.Cases))
		for _, c := range v.Cases {
			var cv struct {
				Test       json.RawMessage   `json:"test"`
				Consequent []json.RawMessage `json:"consequent"`
				Loc        Loc               `json:"loc"`
			}
			if err := json.Unmarshal(c, &cv); err != nil {
				return nil, err
			}
			var test Expression
			if cv.Test != nil {
				tn, err := decodeNode(cv.Test)
				if err != nil {
					return nil, err
				}
				test, _ = tn.(Expression)
			}
			stmts, err := decodeStatements(cv.Consequent)
			if err != nil {
				return nil, err
			}
			cases = append(cases, SwitchCase{base: base{Loc: cv.Loc}, Test: test, Consequent: stmts})
		}
		return &SwitchStatement{base: base{Loc: h.Loc}, Discriminant: disc, Cases: cases}, nil

	case "ForOfStatement", "ForInStatement":
		var v struct {
			Left  json.RawMessage `json:"left"`
			Right json.RawMessage `json:"right"`
			Body  json.RawMessage `json:"body"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		left, err := decodeForLeft(v.Left)
		if err != nil {
			return nil, err
		}
		rightNode, err := decodeNode(v.Right)
		if err != nil {
			return nil, err
		}
		right, _ := rightNode.(Expression)
		body, err := decodeStatement(v.Body)
		if err != nil {
			return nil, err
		}
		if h.Type == "ForOfStatement" {
			return &ForOfStatement{base: base{Loc: h.Loc}, Left: left, Right: right, Body: body}, nil
		}
		return &ForInStatement{base: base{Loc: h.Loc}, Left: left, Right: right, Body: body}, nil

	case "WhileStatement":
		var v struct {
			Test json.RawMessage `json:"test"`
			Body json.RawMessage `json:"body"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		testNode, err := decodeNode(v.Test)
		if err != nil {
			return nil, err
		}
		test, _ := testNode.(Expression)
		body, err := decodeStatement(v.Body)
		if err != nil {
			return nil, err
		}
		return &WhileStatement{base: base{Loc: h.Loc}, Test: test, Body: body}, nil

	case "DoWhileStatement":
		var v struct {
			Test json.RawMessage `json:"test"`
			Body json.RawMessage `json:"body"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		body, err := decodeStatement(v.Body)
		if err != nil {
			return nil, err
		}
		testNode, err := decodeNode(v.Test)
		if err != nil {
			return nil, err
		}
		test, _ := testNode.(Expression)
		return &DoWhileStatement{base: base{Loc: h.Loc}, Body: body, Test: test}, nil

	case "BreakStatement", "ContinueStatement":
		var v struct {
			Label *struct {
				Name string `json:"name"`
			} `json:"label"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		var label *Identifier
		if v.Label != nil {
			label = &Identifier{Name: v.Label.Name}
		}
		if h.Type == "BreakStatement" {
			return &BreakStatement{base: base{Loc: h.Loc}, Label: label}, nil
		}
		return &ContinueStatement{base: base{Loc: h.Loc}, Label: label}, nil

	case "ReturnStatement":
		var v struct {
			Argument json.RawMessage `json:"argument"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		var arg Expression
		if v.Argument != nil {
			argNode, err := decodeNode(v.Argument)
			if err != nil {
				return nil, err
			}
			arg, _ = argNode.(Expression)
		}
		return &ReturnStatement{base: base{Loc: h.Loc}, Argument: arg}, nil

	case "ThrowStatement":
		var v struct {
			Argument json.RawMessage `json:"argument"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		argNode, err := decodeNode(v.Argument)
		if err != nil {
			return nil, err
		}
		arg, _ := argNode.(Expression)
		return &ThrowStatement{base: base{Loc: h.Loc}, Argument: arg}, nil

	case "TryStatement":
		var v struct {
			Block     json.RawMessage `json:"block"`
			Handler   json.RawMessage `json:"handler"`
			Finalizer json.RawMessage `json:"finalizer"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		blockNode, err := decodeNode(v.Block)
		if err != nil {
			return nil, err
		}
		block, _ := blockNode.(*BlockStatement)
		var handler *CatchClause
		if v.Handler != nil {
			var hv struct {
				Param json.RawMessage `json:"param"`
				Body  json.RawMessage `json:"body"`
				Loc   Loc             `json:"loc"`
			}
			if err := json.Unmarshal(v.Handler, &hv); err != nil {
				return nil, err
			}
			var param Pattern
			if hv.Param != nil {
				param, err = decodePattern(hv.Param)
				if err != nil {
					return nil, err
				}
			}
			bodyNode, err := decodeNode(hv.Body)
			if err != nil {
				return nil, err
			}
			body, _ := bodyNode.(*BlockStatement)
			handler = &CatchClause{base: base{Loc: hv.Loc}, Param: param, Body: body}
		}
		var finalizer *BlockStatement
		if v.Finalizer != nil {
			finNode, err := decodeNode(v.Finalizer)
			if err != nil {
				return nil, err
			}
			finalizer, _ = finNode.(*BlockStatement)
		}
		return &TryStatement{base: base{Loc: h.Loc}, Block: block, Handler: handler, Finalizer: finalizer}, nil

	case "LabeledStatement":
		var v struct {
			Label struct {
				Name string `json:"name"`
			} `json:"label"`
			Body json.RawMessage `json:"body"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		body, err := decodeStatement(v.Body)
		if err != nil {
			return nil, err
		}
		return &LabeledStatement{base: base{Loc: h.Loc}, Label: Identifier{Name: v.Label.Name}, Body: body}, nil

	default:
		return decodeExpressionOrPattern(h.Type, raw, h.Loc)
	}
}

func decodeForLeft(raw json.RawMessage) (Node, error) {
	var h head
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil, err
	}
	if h.Type == "VariableDeclaration" {
		return decodeNode(raw)
	}
	return decodePattern(raw)
}

func decodeExpressionOrPattern(kind string, raw json.RawMessage, loc Loc) (Node, error) {
	switch kind {
	case "Identifier":
		var v struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return &Identifier{base: base{Loc: loc}, Name: v.Name}, nil

	case "Literal":
		var v struct {
			Value interface{} `json:"value"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		lit := &Literal{base: base{Loc: loc}}
		switch val := v.Value.(type) {
		case nil:
			lit.LitKind = LiteralNull
		case bool:
			lit.LitKind = LiteralBool
			lit.BoolVal = val
		case float64:
			lit.LitKind = LiteralNumber
			lit.NumberVal = val
		case string:
			lit.LitKind = LiteralString
			lit.StringVal = val
		default:
			return nil, fmt.Errorf("surface: unsupported literal value %T", val)
		}
		return lit, nil

	case "TemplateLiteral":
		var v struct {
			Quasis []struct {
				Value struct {
					Cooked string `json:"cooked"`
				} `json:"value"`
				Tail bool `json:"tail"`
			} `json:"quasis"`
			Expressions []json.RawMessage `json:"expressions"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		quasis := make([]TemplateElement, len(v.Quasis))
		for i, q := range v.Quasis {
			quasis[i] = TemplateElement{Cooked: q.Value.Cooked, Tail: q.Tail}
		}
		exprs := make([]Expression, 0, len(v.Expressions))
		for _, e := range v.Expressions {
			n, err := decodeNode(e)
			if err != nil {
				return nil, err
			}
			ex, _ := n.(Expression)
			exprs = append(exprs, ex)
		}
		return &TemplateLiteral{base: base{Loc: loc}, Quasis: quasis, Expressions: exprs}, nil

	case "ArrayExpression":
		var v struct {
			Elements []json.RawMessage `json:"elements"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		elems := make([]Expression, len(v.Elements))
		for i, e := range v.Elements {
			if e == nil || string(e) == "null" {
				continue
			}
			n, err := decodeNode(e)
			if err != nil {
				return nil, err
			}
			elems[i], _ = n.(Expression)
		}
		return &ArrayExpression{base: base{Loc: loc}, Elements: elems}, nil

	case "ObjectExpression":
		var v struct {
			Properties []struct {
				Key      json.RawMessage `json:"key"`
				Value    json.RawMessage `json:"value"`
				Computed bool            `json:"computed"`
				Loc      Loc             `json:"loc"`
			} `json:"properties"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		props := make([]Property, 0, len(v.Properties))
		for _, p := range v.Properties {
			key, err := decodeNode(p.Key)
			if err != nil {
				return nil, err
			}
			valNode, err := decodeNode(p.Value)
			if err != nil {
				return nil, err
			}
			val, _ := valNode.(Expression)
			props = append(props, Property{base: base{Loc: p.Loc}, Key: key, Value: val, Computed: p.Computed})
		}
		return &ObjectExpression{base: base{Loc: loc}, Properties: props}, nil

	case "MemberExpression":
		var v struct {
			Object   json.RawMessage `json:"object"`
			Property json.RawMessage `json:"property"`
			Computed bool            `json:"computed"`
			Optional bool            `json:"optional"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		objNode, err := decodeNode(v.Object)
		if err != nil {
			return nil, err
		}
		obj, _ := objNode.(Expression)
		prop, err := decodeNode(v.Property)
		if err != nil {
			return nil, err
		}
		return &MemberExpression{base: base{Loc: loc}, Object: obj, Property: prop, Computed: v.Computed, Optional: v.Optional}, nil

	case "CallExpression":
		var v struct {
			Callee   json.RawMessage   `json:"callee"`
			Args     []json.RawMessage `json:"arguments"`
			Optional bool              `json:"optional"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		calleeNode, err := decodeNode(v.Callee)
		if err != nil {
			return nil, err
		}
		callee, _ := calleeNode.(Expression)
		args := make([]Expression, 0, len(v.Args))
		for _, a := range v.Args {
			n, err := decodeNode(a)
			if err != nil {
				return nil, err
			}
			ex, _ := n.(Expression)
			args = append(args, ex)
		}
		return &CallExpression{base: base{Loc: loc}, Callee: callee, Args: args, Optional: v.Optional}, nil

	case "ChainExpression":
		var v struct {
			Expression json.RawMessage `json:"expression"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		n, err := decodeNode(v.Expression)
		if err != nil {
			return nil, err
		}
		ex, _ := n.(Expression)
		return &ChainExpression{base: base{Loc: loc}, Expression: ex}, nil

	case "BinaryExpression":
		var v struct {
			Operator string          `json:"operator"`
			Left     json.RawMessage `json:"left"`
			Right    json.RawMessage `json:"right"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		l, err := decodeNode(v.Left)
		if err != nil {
			return nil, err
		}
		r, err := decodeNode(v.Right)
		if err != nil {
			return nil, err
		}
		left, _ := l.(Expression)
		right, _ := r.(Expression)
		return &BinaryExpression{base: base{Loc: loc}, Operator: BinaryOperator(v.Operator), Left: left, Right: right}, nil

	case "LogicalExpression":
		var v struct {
			Operator string          `json:"operator"`
			Left     json.RawMessage `json:"left"`
			Right    json.RawMessage `json:"right"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		l, err := decodeNode(v.Left)
		if err != nil {
			return nil, err
		}
		r, err := decodeNode(v.Right)
		if err != nil {
			return nil, err
		}
		left, _ := l.(Expression)
		right, _ := r.(Expression)
		return &LogicalExpression{base: base{Loc: loc}, Operator: LogicalOperator(v.Operator), Left: left, Right: right}, nil

	case "UnaryExpression":
		var v struct {
			Operator string          `json:"operator"`
			Argument json.RawMessage `json:"argument"`
			Prefix   bool            `json:"prefix"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		n, err := decodeNode(v.Argument)
		if err != nil {
			return nil, err
		}
		arg, _ := n.(Expression)
		return &UnaryExpression{base: base{Loc: loc}, Operator: UnaryOperator(v.Operator), Argument: arg, Prefix: v.Prefix}, nil

	case "UpdateExpression":
		var v struct {
			Operator string          `json:"operator"`
			Argument json.RawMessage `json:"argument"`
			Prefix   bool            `json:"prefix"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		n, err := decodeNode(v.Argument)
		if err != nil {
			return nil, err
		}
		arg, _ := n.(Expression)
		return &UpdateExpression{base: base{Loc: loc}, Operator: v.Operator, Argument: arg, Prefix: v.Prefix}, nil

	case "AssignmentExpression":
		var v struct {
			Operator string          `json:"operator"`
			Left     json.RawMessage `json:"left"`
			Right    json.RawMessage `json:"right"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		l, err := decodeNode(v.Left)
		if err != nil {
			return nil, err
		}
		r, err := decodeNode(v.Right)
		if err != nil {
			return nil, err
		}
		right, _ := r.(Expression)
		return &AssignmentExpression{base: base{Loc: loc}, Operator: AssignmentOperator(v.Operator), Left: l, Right: right}, nil

	case "ConditionalExpression":
		var v struct {
			Test       json.RawMessage `json:"test"`
			Consequent json.RawMessage `json:"consequent"`
			Alternate  json.RawMessage `json:"alternate"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		t, err := decodeNode(v.Test)
		if err != nil {
			return nil, err
		}
		c, err := decodeNode(v.Consequent)
		if err != nil {
			return nil, err
		}
		a, err := decodeNode(v.Alternate)
		if err != nil {
			return nil, err
		}
		test, _ := t.(Expression)
		cons, _ := c.(Expression)
		alt, _ := a.(Expression)
		return &ConditionalExpression{base: base{Loc: loc}, Test: test, Consequent: cons, Alternate: alt}, nil

	case "SpreadElement":
		var v struct {
			Argument json.RawMessage `json:"argument"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		n, err := decodeNode(v.Argument)
		if err != nil {
			return nil, err
		}
		arg, _ := n.(Expression)
		return &SpreadElement{base: base{Loc: loc}, Argument: arg}, nil

	case "TSAsExpression", "TSNonNullExpression", "TSSatisfiesExpression", "TSInstantiationExpression", "AwaitExpression":
		var v struct {
			Expression json.RawMessage `json:"expression"`
			Argument   json.RawMessage `json:"argument"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		inner := v.Expression
		if inner == nil {
			inner = v.Argument
		}
		n, err := decodeNode(inner)
		if err != nil {
			return nil, err
		}
		ex, _ := n.(Expression)
		switch kind {
		case "TSAsExpression":
			return &TSAsExpression{base: base{Loc: loc}, Expression: ex}, nil
		case "TSNonNullExpression":
			return &TSNonNullExpression{base: base{Loc: loc}, Expression: ex}, nil
		case "TSSatisfiesExpression":
			return &TSSatisfiesExpression{base: base{Loc: loc}, Expression: ex}, nil
		case "TSInstantiationExpression":
			return &TSInstantiationExpression{base: base{Loc: loc}, Expression: ex}, nil
		default:
			return &AwaitExpression{base: base{Loc: loc}, Argument: ex}, nil
		}

	case "ArrowFunctionExpression", "FunctionExpression":
		var v struct {
			Params []json.RawMessage `json:"params"`
			Body   json.RawMessage   `json:"body"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		params := make([]Pattern, 0, len(v.Params))
		for _, p := range v.Params {
			pn, err := decodePattern(p)
			if err != nil {
				return nil, err
			}
			params = append(params, pn)
		}
		bodyNode, err := decodeNode(v.Body)
		if err != nil {
			return nil, err
		}
		if kind == "FunctionExpression" {
			block, ok := bodyNode.(*BlockStatement)
			if !ok {
				return nil, fmt.Errorf("surface: function expression body must be a block")
			}
			return &FunctionExpression{base: base{Loc: loc}, Params: params, Body: block}, nil
		}
		return &ArrowFunctionExpression{base: base{Loc: loc}, Params: params, Body: bodyNode}, nil

	case "ArrayPattern", "ObjectPattern", "AssignmentPattern", "RestElement":
		return decodePatternKind(kind, raw, loc)

	default:
		return nil, fmt.Errorf("surface: unsupported node kind %q", kind)
	}
}

func decodePattern(raw json.RawMessage) (Pattern, error) {
	n, err := decodeNode(raw)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, nil
	}
	p, ok := n.(Pattern)
	if !ok {
		return nil, fmt.Errorf("surface: node %T is not a pattern", n)
	}
	return p, nil
}

func decodePatternKind(kind string, raw json.RawMessage, loc Loc) (Node, error) {
	switch kind {
	case "ArrayPattern":
		var v struct {
			Elements []json.RawMessage `json:"elements"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		elems := make([]Pattern, len(v.Elements))
		for i, e := range v.Elements {
			if e == nil || string(e) == "null" {
				continue
			}
			p, err := decodePattern(e)
			if err != nil {
				return nil, err
			}
			elems[i] = p
		}
		return &ArrayPattern{base: base{Loc: loc}, Elements: elems}, nil

	case "ObjectPattern":
		var v struct {
			Properties []json.RawMessage `json:"properties"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		props := make([]ObjectPatternProperty, 0, len(v.Properties))
		for _, raw := range v.Properties {
			var ph head
			if err := json.Unmarshal(raw, &ph); err != nil {
				return nil, err
			}
			if ph.Type == "RestElement" {
				// Estree represents object-pattern rest as a bare
				// RestElement entry in properties, not a {key, value}
				// pair; Key stays nil as the rest marker.
				rest, err := decodePatternKind("RestElement", raw, ph.Loc)
				if err != nil {
					return nil, err
				}
				props = append(props, ObjectPatternProperty{base: base{Loc: ph.Loc}, Key: nil, Value: rest.(Pattern)})
				continue
			}
			var p struct {
				Key      json.RawMessage `json:"key"`
				Value    json.RawMessage `json:"value"`
				Computed bool            `json:"computed"`
				Loc      Loc             `json:"loc"`
			}
			if err := json.Unmarshal(raw, &p); err != nil {
				return nil, err
			}
			key, err := decodeNode(p.Key)
			if err != nil {
				return nil, err
			}
			val, err := decodePattern(p.Value)
			if err != nil {
				return nil, err
			}
			props = append(props, ObjectPatternProperty{base: base{Loc: p.Loc}, Key: key, Value: val, Computed: p.Computed})
		}
		return &ObjectPattern{base: base{Loc: loc}, Properties: props}, nil

	case "AssignmentPattern":
		var v struct {
			Left  json.RawMessage `json:"left"`
			Right json.RawMessage `json:"right"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		left, err := decodePattern(v.Left)
		if err != nil {
			return nil, err
		}
		rightNode, err := decodeNode(v.Right)
		if err != nil {
			return nil, err
		}
		right, _ := rightNode.(Expression)
		return &AssignmentPattern{base: base{Loc: loc}, Left: left, Right: right}, nil

	case "RestElement":
		var v struct {
			Argument json.RawMessage `json:"argument"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		arg, err := decodePattern(v.Argument)
		if err != nil {
			return nil, err
		}
		return &RestElement{base: base{Loc: loc}, Argument: arg}, nil
	}
	return nil, fmt.Errorf("surface: unreachable pattern kind %q", kind)
}

func decodeStatement(raw json.RawMessage) (Statement, error) {
	n, err := decodeNode(raw)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, nil
	}
	s, ok := n.(Statement)
	if !ok {
		return nil, fmt.Errorf("surface: node %T is not a statement", n)
	}
	return s, nil
}

func decodeStatements(raws []json.RawMessage) ([]Statement, error) {
	out := make([]Statement, 0, len(raws))
	for _, r := range raws {
		s, err := decodeStatement(r)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
