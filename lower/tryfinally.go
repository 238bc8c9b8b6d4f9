package lower

import (
	"github.com/ts2wf/compiler/convert"
	"github.com/ts2wf/compiler/internal/compileerr"
	"github.com/ts2wf/compiler/surface"
	"github.com/ts2wf/compiler/wfast"
	"github.com/ts2wf/compiler/wfexpr"
)

func lowerTry(ctx Context, n *surface.TryStatement) ([]*wfast.Step, *compileerr.Error) {
	body := n.Block.Body
	retry, body, rerr := extractRetryPolicy(ctx, body)
	if rerr != nil {
		return nil, rerr
	}

	if n.Finalizer == nil {
		tryBody, err := LowerBlock(ctx, body)
		if err != nil {
			return nil, err
		}
		var except *wfast.Except
		if n.Handler != nil {
			asName, aerr := catchParamName(n.Handler.Param)
			if aerr != nil {
				return nil, aerr
			}
			exceptSteps, eerr := LowerBlock(ctx, n.Handler.Body.Body)
			if eerr != nil {
				return nil, eerr
			}
			except = &wfast.Except{As: asName, Steps: exceptSteps}
		}
		return []*wfast.Step{{Kind: wfast.KindTry, Try: &wfast.Try{TryBody: tryBody, Except: except, Retry: retry}}}, nil
	}

	return lowerTryFinally(ctx, n, body, retry)
}

// lowerTryFinally implements the finalizer protocol: the try
// body and any catch handler run under a context that routes return/throw
// through a pair of condition/value temps instead of unwinding directly, an
// unconditional jump lands on the finally body regardless of how deeply
// nested the return/throw was, and a trailing Switch replays the captured
// outcome (re-return, re-raise, or fall through) once the finally body has
// run.
func lowerTryFinally(ctx Context, n *surface.TryStatement, body []surface.Statement, retry *wfast.Retry) ([]*wfast.Step, *compileerr.Error) {
	innerCtx := ctx.pushFinalizer(ctx.newLabel("__t2w_finally_enter"))
	condName, valName := innerCtx.finalizerNames()
	enterLabel := innerCtx.finalizerEnterLabel()

	tryBody, err := LowerBlock(innerCtx, body)
	if err != nil {
		return nil, err
	}

	var userExcept *wfast.Except
	if n.Handler != nil {
		name, aerr := catchParamName(n.Handler.Param)
		if aerr != nil {
			return nil, aerr
		}
		exceptSteps, eerr := LowerBlock(innerCtx, n.Handler.Body.Body)
		if eerr != nil {
			return nil, eerr
		}
		userExcept = &wfast.Except{As: name, Steps: exceptSteps}
	}

	// The user body (and its catch, which may itself throw) nest inside an
	// outer Try whose only job is to capture any escaping error so the
	// finally body still runs before the error resumes unwinding.
	outerBody := tryBody
	if userExcept != nil || retry != nil {
		outerBody = []*wfast.Step{{Kind: wfast.KindTry, Try: &wfast.Try{
			TryBody: tryBody,
			Except:  userExcept,
			Retry:   retry,
		}}}
	}
	errName := "__t2w_finally_err" + depthSuffix(innerCtx)
	steps := []*wfast.Step{
		assignStep(wfexpr.Ref(condName), wfexpr.Null),
		assignStep(wfexpr.Ref(valName), wfexpr.Null),
		{Kind: wfast.KindTry, Try: &wfast.Try{
			TryBody: outerBody,
			Except: &wfast.Except{As: errName, Steps: []*wfast.Step{
				assignStep(wfexpr.Ref(condName), wfexpr.Str("raise")),
				assignStep(wfexpr.Ref(valName), wfexpr.Ref(errName)),
			}},
		}},
		jumpTarget(enterLabel),
	}

	finallySteps, ferr := LowerBlock(ctx, n.Finalizer.Body)
	if ferr != nil {
		return nil, ferr
	}
	steps = append(steps, finallySteps...)

	// When this try/finally nests inside another one, the replayed return
	// must itself unwind through the enclosing finalizer rather than
	// returning directly. A replayed raise needs no such routing: it fires
	// inside the enclosing try body, whose capture Try claims it.
	replayReturn := func(hasValue bool) []*wfast.Step {
		if ctx.finalizerDepth() == 0 {
			if hasValue {
				return []*wfast.Step{{Kind: wfast.KindReturn, Return: wfexpr.Ref(valName), HasReturn: true}}
			}
			return []*wfast.Step{{Kind: wfast.KindReturn}}
		}
		outerCond, outerVal := ctx.finalizerNames()
		if hasValue {
			return []*wfast.Step{
				assignStep(wfexpr.Ref(outerCond), wfexpr.Str("return")),
				assignStep(wfexpr.Ref(outerVal), wfexpr.Ref(valName)),
				{Kind: wfast.KindNext, Next: ctx.finalizerEnterLabel()},
			}
		}
		return []*wfast.Step{
			assignStep(wfexpr.Ref(outerCond), wfexpr.Str("return_void")),
			{Kind: wfast.KindNext, Next: ctx.finalizerEnterLabel()},
		}
	}

	replay := &wfast.Step{Kind: wfast.KindSwitch, Switch: []wfast.SwitchBranch{
		{
			Condition: &wfexpr.Binary{Left: wfexpr.Ref(condName), Op: wfexpr.Eq, Right: wfexpr.Str("return")},
			Steps:     replayReturn(true),
		},
		{
			Condition: &wfexpr.Binary{Left: wfexpr.Ref(condName), Op: wfexpr.Eq, Right: wfexpr.Str("return_void")},
			Steps:     replayReturn(false),
		},
		{
			Condition: &wfexpr.Binary{Left: wfexpr.Ref(condName), Op: wfexpr.Eq, Right: wfexpr.Str("raise")},
			Steps:     []*wfast.Step{{Kind: wfast.KindRaise, Raise: wfexpr.Ref(valName)}},
		},
		{Condition: wfexpr.Bool(true), Steps: nil},
	}}
	steps = append(steps, replay)
	return steps, nil
}

func depthSuffix(ctx Context) string {
	cond, _ := ctx.finalizerNames()
	// Reuse the numeric suffix already embedded in the condition name
	// instead of threading the depth integer through a second parameter.
	return cond[len("__t2w_finally_condition"):]
}

func catchParamName(p surface.Pattern) (string, *compileerr.Error) {
	if p == nil {
		return "", nil
	}
	id, ok := p.(*surface.Identifier)
	if !ok {
		return "", compileerr.InvalidDestructuringf(p.Location(), "catch binding must be a plain identifier")
	}
	return id.Name, nil
}

// extractRetryPolicy detects retry_policy(...) as the first statement of a
// try block and lifts it out of the lowered body. Supported
// forms: retry_policy("fully.qualified.name") for a named policy, and
// retry_policy({predicate, max_retries, backoff: {...}}) for a custom one.
func extractRetryPolicy(ctx Context, body []surface.Statement) (*wfast.Retry, []surface.Statement, *compileerr.Error) {
	if len(body) == 0 {
		return nil, body, nil
	}
	es, ok := body[0].(*surface.ExpressionStatement)
	if !ok {
		return nil, body, nil
	}
	call, ok := es.Expression.(*surface.CallExpression)
	if !ok {
		return nil, body, nil
	}
	name, ok := calleeName(call.Callee)
	if !ok || name != "retry_policy" {
		return nil, body, nil
	}
	if len(call.Args) != 1 {
		return nil, nil, compileerr.InvalidRetryPolicyf(call.Location(), "retry_policy(...) takes exactly one argument")
	}
	switch arg := call.Args[0].(type) {
	case *surface.Literal:
		if arg.LitKind != surface.LiteralString {
			return nil, nil, compileerr.InvalidRetryPolicyf(arg.Location(), "a named retry policy must be a string literal")
		}
		return &wfast.Retry{PolicyName: arg.StringVal}, body[1:], nil
	case *surface.ObjectExpression:
		custom, err := parseCustomRetry(ctx, arg)
		if err != nil {
			return nil, nil, err
		}
		return &wfast.Retry{Custom: custom}, body[1:], nil
	default:
		return nil, nil, compileerr.InvalidRetryPolicyf(arg.Location(), "retry_policy(...) argument must be a string literal or an object literal")
	}
}

func parseCustomRetry(ctx Context, obj *surface.ObjectExpression) (*wfast.CustomRetry, *compileerr.Error) {
	custom := &wfast.CustomRetry{}
	for _, p := range obj.Properties {
		key, err := objectPatternKeyName(p.Key)
		if err != nil {
			return nil, err
		}
		switch key {
		case "predicate":
			id, ok := p.Value.(*surface.Identifier)
			if !ok {
				fn, ferr := calleeNameExpr(p.Value)
				if ferr != nil {
					return nil, compileerr.InvalidRetryPolicyf(p.Location(), "predicate must name a fully-qualified function")
				}
				custom.Predicate = fn
				continue
			}
			custom.Predicate = id.Name
		case "max_retries":
			v, _, cerr := convert.Convert(ctx, p.Value)
			if cerr != nil {
				return nil, cerr
			}
			custom.MaxRetries = v
		case "backoff":
			bo, ok := p.Value.(*surface.ObjectExpression)
			if !ok {
				return nil, compileerr.InvalidRetryPolicyf(p.Location(), "backoff must be an object literal")
			}
			backoff, berr := parseBackoff(ctx, bo)
			if berr != nil {
				return nil, berr
			}
			custom.Backoff = *backoff
		default:
			return nil, compileerr.InvalidRetryPolicyf(p.Location(), "unrecognised retry_policy option %q", key)
		}
	}
	return custom, nil
}

func calleeNameExpr(e surface.Expression) (string, *compileerr.Error) {
	if name, ok := calleeName(e); ok {
		return name, nil
	}
	return "", compileerr.InvalidRetryPolicyf(e.Location(), "expected a fully-qualified function name")
}

func parseBackoff(ctx Context, obj *surface.ObjectExpression) (*wfast.Backoff, *compileerr.Error) {
	b := &wfast.Backoff{}
	for _, p := range obj.Properties {
		key, err := objectPatternKeyName(p.Key)
		if err != nil {
			return nil, err
		}
		v, _, cerr := convert.Convert(ctx, p.Value)
		if cerr != nil {
			return nil, cerr
		}
		switch key {
		case "initial_delay":
			b.InitialDelay = v
		case "max_delay":
			b.MaxDelay = v
		case "multiplier":
			b.Multiplier = v
		default:
			return nil, compileerr.InvalidRetryPolicyf(p.Location(), "unrecognised backoff option %q", key)
		}
	}
	return b, nil
}
