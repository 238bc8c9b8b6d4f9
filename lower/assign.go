package lower

import (
	"github.com/ts2wf/compiler/convert"
	"github.com/ts2wf/compiler/internal/compileerr"
	"github.com/ts2wf/compiler/surface"
	"github.com/ts2wf/compiler/wfast"
	"github.com/ts2wf/compiler/wfexpr"
)

func lowerAssignment(ctx Context, e *surface.AssignmentExpression) ([]*wfast.Step, *compileerr.Error) {
	if e.Operator != surface.AssignPlain {
		return lowerCompoundAssignment(ctx, e)
	}

	if pat, ok := e.Left.(surface.Pattern); ok {
		if _, isIdent := pat.(*surface.Identifier); !isIdent {
			return lowerPatternAssignment(ctx, pat, e.Right)
		}
	}

	if call, ok := e.Right.(*surface.CallExpression); ok {
		targetRef, targetPre, terr := lowerAssignTarget(ctx, e.Left)
		if terr != nil {
			return nil, terr
		}
		steps, serr := lowerCallStatement(ctx, call, targetRef)
		if serr != nil {
			return nil, serr
		}
		return append(targetPre, steps...), nil
	}

	targetRef, targetPre, terr := lowerAssignTarget(ctx, e.Left)
	if terr != nil {
		return nil, terr
	}
	val, pre, err := convert.Convert(ctx, e.Right)
	if err != nil {
		return nil, err
	}
	out := append(targetPre, pre...)
	return append(out, assignStep(targetRef, val)), nil
}

// lowerAssignTarget converts an assignment's LHS into a VariableReference,
// along with any pre-steps a side-effecting computed index needed hoisting
// into (appendAccess already hoists those, so the LHS index is evaluated
// exactly once).
func lowerAssignTarget(ctx Context, left surface.Node) (*wfexpr.VariableReference, []*wfast.Step, *compileerr.Error) {
	expr, ok := left.(surface.Expression)
	if !ok {
		return nil, nil, compileerr.InvalidLValuef(left.Location(), "assignment target must be a variable reference")
	}
	v, pre, err := convert.Convert(ctx, expr)
	if err != nil {
		return nil, nil, err
	}
	ref, ok := v.(*wfexpr.VariableReference)
	if !ok {
		return nil, nil, compileerr.InvalidLValuef(left.Location(), "assignment target must be a variable reference")
	}
	return ref, pre, nil
}

func lowerPatternAssignment(ctx Context, pat surface.Pattern, rhs surface.Expression) ([]*wfast.Step, *compileerr.Error) {
	val, pre, err := convert.Convert(ctx, rhs)
	if err != nil {
		return nil, err
	}
	srcRef := val
	if !wfexpr.IsPure(val) {
		tmp := ctx.NewTemp()
		pre = append(pre, assignStep(wfexpr.Ref(tmp), val))
		srcRef = wfexpr.Ref(tmp)
	}
	destSteps, derr := destructurePattern(ctx, pat, srcRef)
	if derr != nil {
		return nil, derr
	}
	return append(pre, destSteps...), nil
}

var compoundOps = map[surface.AssignmentOperator]wfexpr.BinaryOp{
	surface.AssignAdd: wfexpr.Add,
	surface.AssignSub: wfexpr.Sub,
	surface.AssignMul: wfexpr.Mul,
	surface.AssignDiv: wfexpr.Div,
	surface.AssignMod: wfexpr.Mod,
}

func lowerCompoundAssignment(ctx Context, e *surface.AssignmentExpression) ([]*wfast.Step, *compileerr.Error) {
	op, ok := compoundOps[e.Operator]
	if !ok {
		return nil, compileerr.Unsupportedf(e.Location(), "assignment operator %q is not supported", e.Operator)
	}
	targetRef, targetPre, terr := lowerAssignTarget(ctx, e.Left)
	if terr != nil {
		return nil, terr
	}
	rhs, pre, err := convert.Convert(ctx, e.Right)
	if err != nil {
		return nil, err
	}
	value := &wfexpr.Binary{Left: targetRef, Op: op, Right: rhs}
	out := append(targetPre, pre...)
	return append(out, assignStep(targetRef, value)), nil
}

// lowerCallStatement dispatches a CallExpression used in statement position
// (or as the initializer of a declaration/assignment whose result target is
// resultTarget, nil if discarded) to one of: parallel(...), retry_policy(...)
// (an error outside a try block), call_step(...) (explicit named args), a
// configured blocking function, or a generic call.
func lowerCallStatement(ctx Context, call *surface.CallExpression, resultTarget *wfexpr.VariableReference) ([]*wfast.Step, *compileerr.Error) {
	name, ok := calleeName(call.Callee)
	if ok {
		switch name {
		case "parallel":
			return lowerParallelCall(ctx, call)
		case "retry_policy":
			return nil, compileerr.InvalidRetryPolicyf(call.Location(), "retry_policy(...) may only appear as the first statement of a try block")
		case "call_step":
			return lowerCallStep(ctx, call, resultTarget)
		}
		if params, known := ctx.blocking.Lookup(name); known {
			return lowerBlockingCall(ctx, call, name, params, resultTarget)
		}
	}
	return lowerGenericCall(ctx, call, resultTarget)
}

func calleeName(callee surface.Expression) (string, bool) {
	switch n := callee.(type) {
	case *surface.Identifier:
		return n.Name, true
	case *surface.MemberExpression:
		if n.Computed {
			return "", false
		}
		base, ok := calleeName(n.Object)
		if !ok {
			return "", false
		}
		prop, ok := n.Property.(*surface.Identifier)
		if !ok {
			return "", false
		}
		return base + "." + prop.Name, true
	default:
		return "", false
	}
}

func lowerCallStep(ctx Context, call *surface.CallExpression, resultTarget *wfexpr.VariableReference) ([]*wfast.Step, *compileerr.Error) {
	if len(call.Args) != 2 {
		return nil, compileerr.Unsupportedf(call.Location(), "call_step(name, args) takes exactly two arguments")
	}
	fnLit, ok := call.Args[0].(*surface.Literal)
	if !ok || fnLit.LitKind != surface.LiteralString {
		return nil, compileerr.Unsupportedf(call.Args[0].Location(), "call_step's first argument must be a string literal function name")
	}
	obj, ok := call.Args[1].(*surface.ObjectExpression)
	if !ok {
		return nil, compileerr.Unsupportedf(call.Args[1].Location(), "call_step's second argument must be an object literal of named arguments")
	}
	args, pre, err := convertNamedArgs(ctx, obj)
	if err != nil {
		return nil, err
	}
	resultName, post := callResultName(ctx, resultTarget)
	steps := append(pre, &wfast.Step{
		Kind: wfast.KindCall,
		Call: &wfast.Call{Function: fnLit.StringVal, Args: args, Result: resultName},
	})
	return append(steps, post...), nil
}

// callResultName maps a call's assignment target onto the step's result
// variable. A call result must be a plain variable name, so a dotted or
// indexed target routes through a temp that a follow-up Assign writes into
// the real target.
func callResultName(ctx Context, target *wfexpr.VariableReference) (string, []*wfast.Step) {
	if target == nil {
		return "", nil
	}
	if len(target.Accessors) == 0 {
		return target.Base, nil
	}
	tmp := ctx.NewTemp()
	return tmp, []*wfast.Step{assignStep(target, wfexpr.Ref(tmp))}
}

func lowerBlockingCall(ctx Context, call *surface.CallExpression, name string, params []string, resultTarget *wfexpr.VariableReference) ([]*wfast.Step, *compileerr.Error) {
	if len(call.Args) > len(params) {
		return nil, compileerr.Unsupportedf(call.Location(), "%s takes at most %d arguments", name, len(params))
	}
	args := wfexpr.NewOrderedMap()
	var pre []*wfast.Step
	for i, a := range call.Args {
		v, p, err := convert.Convert(ctx, a)
		if err != nil {
			return nil, err
		}
		pre = append(pre, p...)
		args.Set(params[i], v)
	}
	resultName, post := callResultName(ctx, resultTarget)
	steps := append(pre, &wfast.Step{
		Kind: wfast.KindCall,
		Call: &wfast.Call{Function: name, Args: args, Result: resultName},
	})
	return append(steps, post...), nil
}

// lowerGenericCall lowers a call whose callee isn't a configured blocking
// function or an intrinsic: the invocation stays an expression, bound to
// the result variable (or a generated temp when the result is discarded)
// by an Assign step.
func lowerGenericCall(ctx Context, call *surface.CallExpression, resultTarget *wfexpr.VariableReference) ([]*wfast.Step, *compileerr.Error) {
	v, pre, err := convert.Convert(ctx, call)
	if err != nil {
		return nil, err
	}
	target := resultTarget
	if target == nil {
		target = wfexpr.Ref(ctx.NewTemp())
	}
	return append(pre, assignStep(target, v)), nil
}

func convertNamedArgs(ctx Context, obj *surface.ObjectExpression) (*wfexpr.OrderedMap, []*wfast.Step, *compileerr.Error) {
	m := wfexpr.NewOrderedMap()
	var pre []*wfast.Step
	for _, p := range obj.Properties {
		key, kerr := namedArgKey(p.Key)
		if kerr != nil {
			return nil, nil, kerr
		}
		v, vpre, err := convert.Convert(ctx, p.Value)
		if err != nil {
			return nil, nil, err
		}
		pre = append(pre, vpre...)
		m.Set(key, v)
	}
	return m, pre, nil
}

func namedArgKey(key surface.Node) (string, *compileerr.Error) {
	switch k := key.(type) {
	case *surface.Identifier:
		return k.Name, nil
	case *surface.Literal:
		if k.LitKind == surface.LiteralString {
			return k.StringVal, nil
		}
	}
	return "", compileerr.InvalidMapKeyf(key.Location(), "named-argument key must be an identifier or string literal")
}
