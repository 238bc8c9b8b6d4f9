package lower

import (
	"fmt"

	"github.com/ts2wf/compiler/convert"
	"github.com/ts2wf/compiler/internal/compileerr"
	"github.com/ts2wf/compiler/surface"
	"github.com/ts2wf/compiler/wfast"
	"github.com/ts2wf/compiler/wfexpr"
)

// parallelOptions is the parsed second argument to parallel(...): an object
// literal of {shared, concurrency_limit, exception_policy}.
type parallelOptions struct {
	shared           []string
	concurrencyLimit wfexpr.Expr
	exceptionPolicy  string
}

// lowerParallelCall lowers a parallel(...) call. Its first argument is
// either an array (each element a reference to a top-level function or an
// inline parameter-less arrow/function expression — each becomes a branch
// named branch1, branch2, …) or a single parameter-less arrow/function
// expression whose body is a single for...of loop, which becomes a
// ParallelIteration.
func lowerParallelCall(ctx Context, call *surface.CallExpression) ([]*wfast.Step, *compileerr.Error) {
	if len(call.Args) < 1 || len(call.Args) > 2 {
		return nil, compileerr.InvalidParallelf(call.Location(), "parallel(...) takes one or two arguments")
	}
	var opts parallelOptions
	if len(call.Args) == 2 {
		obj, ok := call.Args[1].(*surface.ObjectExpression)
		if !ok {
			return nil, compileerr.InvalidParallelf(call.Args[1].Location(), "parallel(...) options must be an object literal")
		}
		var err *compileerr.Error
		opts, err = parseParallelOptions(ctx, obj)
		if err != nil {
			return nil, err
		}
	}

	branchCtx := ctx.freshBranch()

	if arr, ok := call.Args[0].(*surface.ArrayExpression); ok {
		branches := make([]wfast.ParallelBranch, 0, len(arr.Elements))
		for i, el := range arr.Elements {
			steps, err := lowerParallelBranchBody(branchCtx, el)
			if err != nil {
				return nil, err
			}
			branches = append(branches, wfast.ParallelBranch{Name: fmt.Sprintf("branch%d", i+1), Steps: steps})
		}
		return []*wfast.Step{{
			Kind: wfast.KindParallel,
			Parallel: &wfast.Parallel{
				Shared:           opts.shared,
				Branches:         branches,
				ConcurrencyLimit: concurrencyLimitInt(opts.concurrencyLimit),
				ExceptionPolicy:  opts.exceptionPolicy,
			},
		}}, nil
	}

	forOf, ferr := singleForOfBranchBody(call.Args[0])
	if ferr != nil {
		return nil, ferr
	}
	valueName, verr := forLoopVarName(forOf.Left)
	if verr != nil {
		return nil, verr
	}
	iterable, pre, cerr := convert.Convert(ctx, forOf.Right)
	if cerr != nil {
		return nil, cerr
	}
	body, berr := LowerStatement(branchCtx.withLoopTargets("break", "continue"), forOf.Body)
	if berr != nil {
		return nil, berr
	}
	return append(pre, &wfast.Step{
		Kind: wfast.KindParallelIteration,
		Parallel: &wfast.Parallel{
			Shared: opts.shared,
			For: &wfast.For{
				Value: valueName,
				In:    iterable,
				Steps: body,
			},
			ConcurrencyLimit: concurrencyLimitInt(opts.concurrencyLimit),
			ExceptionPolicy:  opts.exceptionPolicy,
		},
	}), nil
}

// lowerParallelBranchBody lowers one element of a parallel(...) branch
// array: either an identifier naming a top-level function (its body runs as
// the branch), or an inline parameter-less arrow/function expression.
func lowerParallelBranchBody(branchCtx Context, el surface.Expression) ([]*wfast.Step, *compileerr.Error) {
	switch n := el.(type) {
	case *surface.Identifier:
		fn, ok := branchCtx.functions[n.Name]
		if !ok {
			return nil, compileerr.InvalidParallelf(n.Location(), "parallel branch %q does not name a top-level function", n.Name)
		}
		return LowerBlock(branchCtx, fn.Body.Body)
	case *surface.ArrowFunctionExpression:
		if len(n.Params) != 0 {
			return nil, compileerr.InvalidParallelf(n.Location(), "a parallel branch function must take no parameters")
		}
		return lowerInlineFunctionBody(branchCtx, n.Body)
	case *surface.FunctionExpression:
		if len(n.Params) != 0 {
			return nil, compileerr.InvalidParallelf(n.Location(), "a parallel branch function must take no parameters")
		}
		return LowerBlock(branchCtx, n.Body.Body)
	default:
		return nil, compileerr.InvalidParallelf(el.Location(), "each parallel branch must be a top-level function reference or a parameter-less arrow function")
	}
}

// lowerInlineFunctionBody lowers an arrow function's body, which is either a
// block (`() => { ... }`) or a bare expression (`() => expr`).
func lowerInlineFunctionBody(ctx Context, body surface.Node) ([]*wfast.Step, *compileerr.Error) {
	switch b := body.(type) {
	case *surface.BlockStatement:
		return LowerBlock(ctx, b.Body)
	case surface.Expression:
		return LowerStatement(ctx, &surface.ExpressionStatement{Expression: b})
	default:
		return nil, compileerr.InvalidParallelf(body.Location(), "unsupported arrow function body")
	}
}

// singleForOfBranchBody extracts the ForOfStatement from parallel(...)'s
// sole argument when it is a parameter-less arrow/function expression whose
// body is exactly one for...of loop.
func singleForOfBranchBody(arg surface.Expression) (*surface.ForOfStatement, *compileerr.Error) {
	var params []surface.Pattern
	var body surface.Node
	switch n := arg.(type) {
	case *surface.ArrowFunctionExpression:
		params, body = n.Params, n.Body
	case *surface.FunctionExpression:
		params, body = n.Params, n.Body
	default:
		return nil, compileerr.InvalidParallelf(arg.Location(), "parallel(...)'s first argument must be a branch array or a parameter-less arrow function whose body is a single for...of loop")
	}
	if len(params) != 0 {
		return nil, compileerr.InvalidParallelf(arg.Location(), "a parallel iteration function must take no parameters")
	}
	block, ok := body.(*surface.BlockStatement)
	if !ok || len(block.Body) != 1 {
		return nil, compileerr.InvalidParallelf(arg.Location(), "a parallel iteration function's body must be a single for...of loop")
	}
	forOf, ok := block.Body[0].(*surface.ForOfStatement)
	if !ok {
		return nil, compileerr.InvalidParallelf(block.Body[0].Location(), "a parallel iteration function's body must be a single for...of loop")
	}
	return forOf, nil
}

func concurrencyLimitInt(e wfexpr.Expr) int {
	if e == nil {
		return 0
	}
	prim, ok := e.(*wfexpr.Primitive)
	if !ok {
		return 0
	}
	switch v := prim.Value.(type) {
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func parseParallelOptions(ctx Context, obj *surface.ObjectExpression) (parallelOptions, *compileerr.Error) {
	var opts parallelOptions
	for _, p := range obj.Properties {
		key, err := objectPatternKeyName(p.Key)
		if err != nil {
			return opts, err
		}
		switch key {
		case "shared":
			arr, ok := p.Value.(*surface.ArrayExpression)
			if !ok {
				return opts, compileerr.InvalidParallelf(p.Location(), "shared must be an array of string literals")
			}
			for _, el := range arr.Elements {
				lit, ok := el.(*surface.Literal)
				if !ok || lit.LitKind != surface.LiteralString {
					return opts, compileerr.InvalidParallelf(el.Location(), "shared entries must be string literals")
				}
				opts.shared = append(opts.shared, lit.StringVal)
			}
		case "concurrency_limit":
			v, _, cerr := convert.Convert(ctx, p.Value)
			if cerr != nil {
				return opts, cerr
			}
			opts.concurrencyLimit = v
		case "exception_policy":
			lit, ok := p.Value.(*surface.Literal)
			if !ok || lit.LitKind != surface.LiteralString {
				return opts, compileerr.InvalidParallelf(p.Location(), "exception_policy must be a string literal")
			}
			opts.exceptionPolicy = lit.StringVal
		default:
			return opts, compileerr.InvalidParallelf(p.Location(), "unrecognised parallel option %q", key)
		}
	}
	return opts, nil
}
