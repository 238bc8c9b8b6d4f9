package lower

import (
	"github.com/ts2wf/compiler/convert"
	"github.com/ts2wf/compiler/internal/compileerr"
	"github.com/ts2wf/compiler/surface"
	"github.com/ts2wf/compiler/wfast"
	"github.com/ts2wf/compiler/wfexpr"
)

// LowerBlock lowers an ordered sequence of surface statements into a flat
// step sequence.
func LowerBlock(ctx Context, body []surface.Statement) ([]*wfast.Step, *compileerr.Error) {
	var out []*wfast.Step
	for _, s := range body {
		steps, err := LowerStatement(ctx, s)
		if err != nil {
			return nil, err
		}
		out = append(out, steps...)
	}
	return out, nil
}

// LowerStatement lowers a single statement into zero or more steps.
func LowerStatement(ctx Context, s surface.Statement) ([]*wfast.Step, *compileerr.Error) {
	switch n := s.(type) {
	case *surface.BlockStatement:
		return LowerBlock(ctx, n.Body)

	case *surface.VariableDeclaration:
		return lowerVariableDeclaration(ctx, n)

	case *surface.ExpressionStatement:
		return lowerExpressionStatement(ctx, n)

	case *surface.EmptyStatement:
		return nil, nil

	case *surface.IfStatement:
		return lowerIf(ctx, n)

	case *surface.SwitchStatement:
		return lowerSwitch(ctx, n)

	case *surface.ForOfStatement:
		return lowerForOf(ctx, n)

	case *surface.ForInStatement:
		return nil, unsupported(n.Location(), "for...in is not supported")

	case *surface.WhileStatement:
		return lowerWhile(ctx, n)

	case *surface.DoWhileStatement:
		return lowerDoWhile(ctx, n)

	case *surface.BreakStatement:
		return lowerBreak(ctx, n)

	case *surface.ContinueStatement:
		return lowerContinue(ctx, n)

	case *surface.ReturnStatement:
		return lowerReturn(ctx, n)

	case *surface.ThrowStatement:
		return lowerThrow(ctx, n)

	case *surface.TryStatement:
		return lowerTry(ctx, n)

	case *surface.LabeledStatement:
		return lowerLabeled(ctx, n)

	case *surface.FunctionDeclaration:
		return nil, compileerr.ControlFlowf(n.Location(), "nested function declarations are not supported")

	case *surface.TSInterfaceDeclaration, *surface.TSTypeAliasDeclaration, *surface.TSDeclareFunction:
		return nil, nil

	default:
		return nil, unsupported(s.Location(), "statement kind %q is not supported", s.Kind())
	}
}

func lowerVariableDeclaration(ctx Context, n *surface.VariableDeclaration) ([]*wfast.Step, *compileerr.Error) {
	if n.DeclKind == surface.KindVar || n.DeclKind == surface.KindUsing {
		return nil, unsupported(n.Location(), "%q declarations are not supported", n.DeclKind)
	}
	var out []*wfast.Step
	for _, d := range n.Declarations {
		steps, err := lowerDeclarator(ctx, d)
		if err != nil {
			return nil, err
		}
		out = append(out, steps...)
	}
	return out, nil
}

func lowerDeclarator(ctx Context, d surface.VariableDeclarator) ([]*wfast.Step, *compileerr.Error) {
	if id, ok := d.Id.(*surface.Identifier); ok {
		if d.Init == nil {
			return []*wfast.Step{assignStep(wfexpr.Ref(id.Name), wfexpr.Null)}, nil
		}
		if call, ok := d.Init.(*surface.CallExpression); ok {
			return lowerCallStatement(ctx, call, wfexpr.Ref(id.Name))
		}
		val, pre, err := convert.Convert(ctx, d.Init)
		if err != nil {
			return nil, err
		}
		return append(pre, assignStep(wfexpr.Ref(id.Name), val)), nil
	}
	// Array/object destructuring: expand via the decreasing-length cascade.
	if d.Init == nil {
		return nil, compileerr.InvalidDestructuringf(d.Location(), "destructuring declaration requires an initializer")
	}
	val, pre, err := convert.Convert(ctx, d.Init)
	if err != nil {
		return nil, err
	}
	srcRef := val
	if !wfexpr.IsPure(val) {
		tmp := ctx.NewTemp()
		pre = append(pre, assignStep(wfexpr.Ref(tmp), val))
		srcRef = wfexpr.Ref(tmp)
	}
	destSteps, err := destructurePattern(ctx, d.Id, srcRef)
	if err != nil {
		return nil, err
	}
	return append(pre, destSteps...), nil
}

func lowerExpressionStatement(ctx Context, n *surface.ExpressionStatement) ([]*wfast.Step, *compileerr.Error) {
	switch e := n.Expression.(type) {
	case *surface.AssignmentExpression:
		return lowerAssignment(ctx, e)
	case *surface.CallExpression:
		return lowerCallStatement(ctx, e, nil)
	default:
		v, pre, err := convert.Convert(ctx, e)
		if err != nil {
			return nil, err
		}
		if wfexpr.IsPure(v) {
			// No side effect; nothing to emit beyond any hoisted pre-steps.
			return pre, nil
		}
		tmp := ctx.NewTemp()
		return append(pre, assignStep(wfexpr.Ref(tmp), v)), nil
	}
}

func lowerIf(ctx Context, n *surface.IfStatement) ([]*wfast.Step, *compileerr.Error) {
	test, pre, err := convert.Convert(ctx, n.Test)
	if err != nil {
		return nil, err
	}
	consSteps, err := LowerStatement(ctx, n.Consequent)
	if err != nil {
		return nil, err
	}
	branches := []wfast.SwitchBranch{{Condition: test, Steps: consSteps}}
	if n.Alternate != nil {
		altSteps, aerr := LowerStatement(ctx, n.Alternate)
		if aerr != nil {
			return nil, aerr
		}
		branches = append(branches, wfast.SwitchBranch{Condition: wfexpr.Bool(true), Steps: altSteps})
	}
	return append(pre, &wfast.Step{Kind: wfast.KindSwitch, Switch: branches}), nil
}

// lowerSwitch lowers a switch statement into a Switch step whose branches
// test equality against the discriminant, with JumpTarget steps threading
// fallthrough between cases that share a body.
func lowerSwitch(ctx Context, n *surface.SwitchStatement) ([]*wfast.Step, *compileerr.Error) {
	disc, pre, err := convert.Convert(ctx, n.Discriminant)
	if err != nil {
		return nil, err
	}
	if !wfexpr.IsPure(disc) {
		tmp := ctx.NewTemp()
		pre = append(pre, assignStep(wfexpr.Ref(tmp), disc))
		disc = wfexpr.Ref(tmp)
	}

	endLabel := ctx.newLabel("__t2w_switch_end")
	caseCtx := ctx.withBreakTarget(endLabel)

	// The switch step itself only dispatches: each branch jumps to a
	// placeholder marking its case's body, and the bodies are concatenated
	// after the switch in source order. A body that doesn't break simply
	// runs on into the next case's body, preserving C-like fall-through.
	var branches []wfast.SwitchBranch
	var bodies []*wfast.Step
	defaultLabel := ""
	for _, c := range n.Cases {
		label := ctx.newLabel("__t2w_case")
		bodies = append(bodies, jumpTarget(label))
		body, berr := LowerBlock(caseCtx, c.Consequent)
		if berr != nil {
			return nil, berr
		}
		bodies = append(bodies, body...)
		if c.Test == nil {
			defaultLabel = label
			continue
		}
		cond, cpre, cerr := convert.Convert(ctx, c.Test)
		if cerr != nil {
			return nil, cerr
		}
		pre = append(pre, cpre...)
		eq := &wfexpr.Binary{Left: disc, Op: wfexpr.Eq, Right: cond}
		branches = append(branches, wfast.SwitchBranch{Condition: eq, Next: label})
	}
	fallback := endLabel
	if defaultLabel != "" {
		fallback = defaultLabel
	}
	branches = append(branches, wfast.SwitchBranch{Condition: wfexpr.Bool(true), Next: fallback})

	steps := append(pre, &wfast.Step{Kind: wfast.KindSwitch, Switch: branches})
	steps = append(steps, bodies...)
	steps = append(steps, jumpTarget(endLabel))
	return steps, nil
}

func lowerForOf(ctx Context, n *surface.ForOfStatement) ([]*wfast.Step, *compileerr.Error) {
	valueName, err := forLoopVarName(n.Left)
	if err != nil {
		return nil, err
	}
	iterable, pre, cerr := convert.Convert(ctx, n.Right)
	if cerr != nil {
		return nil, cerr
	}
	if prim, isPrim := iterable.(*wfexpr.Primitive); isPrim {
		if _, isList := prim.Value.([]wfexpr.Expr); !isList {
			return nil, unsupported(n.Right.Location(), "for...of iterable must be a list")
		}
	}
	// Inside a for body the target format has native break/continue jump
	// sentinels, so the loop provides its own targets; clearing the outer
	// ones keeps nested constructs from jumping out to an enclosing loop's
	// labels by accident.
	loopCtx := ctx.withLoopTargets("break", "continue")
	body, berr := LowerStatement(loopCtx, n.Body)
	if berr != nil {
		return nil, berr
	}
	return append(pre, &wfast.Step{
		Kind: wfast.KindFor,
		For:  &wfast.For{Value: valueName, In: iterable, Steps: body},
	}), nil
}

func forLoopVarName(left surface.Node) (string, *compileerr.Error) {
	switch n := left.(type) {
	case *surface.VariableDeclaration:
		if len(n.Declarations) != 1 {
			return "", compileerr.InvalidLValuef(n.Location(), "for...of binds exactly one variable")
		}
		id, ok := n.Declarations[0].Id.(*surface.Identifier)
		if !ok {
			return "", compileerr.InvalidDestructuringf(n.Location(), "for...of destructuring is not supported")
		}
		return id.Name, nil
	case *surface.Identifier:
		return n.Name, nil
	default:
		return "", compileerr.InvalidLValuef(left.Location(), "unsupported for...of binding")
	}
}

// lowerWhile lowers to a Switch-guarded jump back to a top label: a
// labelled entry point, a switch testing the condition whose true branch
// runs the body and jumps back to the entry, and an exit JumpTarget for
// break.
func lowerWhile(ctx Context, n *surface.WhileStatement) ([]*wfast.Step, *compileerr.Error) {
	startLabel := ctx.newLabel("__t2w_while_start")
	endLabel := ctx.newLabel("__t2w_while_end")
	test, pre, err := convert.Convert(ctx, n.Test)
	if err != nil {
		return nil, err
	}
	loopCtx := ctx.withLoopTargets(endLabel, startLabel)
	body, berr := LowerStatement(loopCtx, n.Body)
	if berr != nil {
		return nil, berr
	}
	body = append(body, &wfast.Step{Kind: wfast.KindNext, Next: startLabel})
	steps := []*wfast.Step{jumpTarget(startLabel)}
	steps = append(steps, pre...)
	steps = append(steps, &wfast.Step{
		Kind: wfast.KindSwitch,
		Switch: []wfast.SwitchBranch{
			{Condition: test, Steps: body},
		},
	})
	steps = append(steps, jumpTarget(endLabel))
	return steps, nil
}

func lowerDoWhile(ctx Context, n *surface.DoWhileStatement) ([]*wfast.Step, *compileerr.Error) {
	startLabel := ctx.newLabel("__t2w_dowhile_start")
	endLabel := ctx.newLabel("__t2w_dowhile_end")
	continueLabel := ctx.newLabel("__t2w_dowhile_continue")
	loopCtx := ctx.withLoopTargets(endLabel, continueLabel)
	body, err := LowerStatement(loopCtx, n.Body)
	if err != nil {
		return nil, err
	}
	test, pre, terr := convert.Convert(ctx, n.Test)
	if terr != nil {
		return nil, terr
	}
	steps := []*wfast.Step{jumpTarget(startLabel)}
	steps = append(steps, body...)
	steps = append(steps, jumpTarget(continueLabel))
	steps = append(steps, pre...)
	steps = append(steps, &wfast.Step{
		Kind: wfast.KindSwitch,
		Switch: []wfast.SwitchBranch{
			{Condition: test, Next: startLabel},
		},
	})
	steps = append(steps, jumpTarget(endLabel))
	return steps, nil
}

func lowerBreak(ctx Context, n *surface.BreakStatement) ([]*wfast.Step, *compileerr.Error) {
	if n.Label != nil {
		if depth, ok := ctx.labelDepth(n.Label.Name); ok && ctx.finalizerDepth() > depth {
			return nil, compileerr.ControlFlowf(n.Location(), "break out of a try/finally block is not supported")
		}
		return []*wfast.Step{{Kind: wfast.KindNext, Next: n.Label.Name}}, nil
	}
	if ctx.breakTarget == "" {
		return nil, compileerr.ControlFlowf(n.Location(), "break outside a loop or switch")
	}
	if ctx.finalizerDepth() > ctx.breakDepth {
		return nil, compileerr.ControlFlowf(n.Location(), "break out of a try/finally block is not supported")
	}
	return []*wfast.Step{{Kind: wfast.KindNext, Next: ctx.breakTarget}}, nil
}

func lowerContinue(ctx Context, n *surface.ContinueStatement) ([]*wfast.Step, *compileerr.Error) {
	if n.Label != nil {
		if depth, ok := ctx.labelDepth(n.Label.Name); ok && ctx.finalizerDepth() > depth {
			return nil, compileerr.ControlFlowf(n.Location(), "continue out of a try/finally block is not supported")
		}
		return []*wfast.Step{{Kind: wfast.KindNext, Next: n.Label.Name}}, nil
	}
	if ctx.continueTarget == "" {
		return nil, compileerr.ControlFlowf(n.Location(), "continue outside a loop")
	}
	if ctx.finalizerDepth() > ctx.continueDepth {
		return nil, compileerr.ControlFlowf(n.Location(), "continue out of a try/finally block is not supported")
	}
	return []*wfast.Step{{Kind: wfast.KindNext, Next: ctx.continueTarget}}, nil
}

func lowerReturn(ctx Context, n *surface.ReturnStatement) ([]*wfast.Step, *compileerr.Error) {
	var val wfexpr.Expr
	var pre []*wfast.Step
	if n.Argument != nil {
		v, p, err := convert.Convert(ctx, n.Argument)
		if err != nil {
			return nil, err
		}
		val, pre = v, p
	}
	if ctx.finalizerDepth() > 0 {
		// A return inside try/finally must run the finalizer first; route
		// through the finally-condition/value temps instead of returning
		// directly.
		condName, valName := ctx.finalizerNames()
		condVal := "return_void"
		if n.Argument != nil {
			condVal = "return"
		}
		steps := append(pre, assignStep(wfexpr.Ref(condName), wfexpr.Str(condVal)))
		if val != nil {
			steps = append(steps, assignStep(wfexpr.Ref(valName), val))
		}
		steps = append(steps, &wfast.Step{Kind: wfast.KindNext, Next: ctx.finalizerEnterLabel()})
		return steps, nil
	}
	ret := &wfast.Step{Kind: wfast.KindReturn, Return: val, HasReturn: n.Argument != nil}
	return append(pre, ret), nil
}

// lowerThrow always emits a Raise, even under a try/finally: an enclosing
// catch must get first claim on the error, and when none does, the outer
// capture Try of the finalizer protocol records it for re-raising after the
// finally body has run.
func lowerThrow(ctx Context, n *surface.ThrowStatement) ([]*wfast.Step, *compileerr.Error) {
	val, pre, err := convert.Convert(ctx, n.Argument)
	if err != nil {
		return nil, err
	}
	return append(pre, &wfast.Step{Kind: wfast.KindRaise, Raise: val}), nil
}

// lowerLabeled names the first step the labelled statement produces after
// the label, so that labelled break/continue (which lower to a jump naming
// the label directly) land on it. When the first step is a synthetic
// JumpTarget (a while/do-while entry point), the label instead aliases that
// target: both resolve to the same real step.
func lowerLabeled(ctx Context, n *surface.LabeledStatement) ([]*wfast.Step, *compileerr.Error) {
	steps, err := LowerStatement(ctx.withLabel(n.Label.Name), n.Body)
	if err != nil {
		return nil, err
	}
	if len(steps) == 0 || steps[0].Kind == wfast.KindJumpTarget {
		return append([]*wfast.Step{jumpTarget(n.Label.Name)}, steps...), nil
	}
	steps[0].Label = n.Label.Name
	return steps, nil
}
