package lower

import (
	"github.com/ts2wf/compiler/convert"
	"github.com/ts2wf/compiler/internal/compileerr"
	"github.com/ts2wf/compiler/surface"
	"github.com/ts2wf/compiler/wfast"
	"github.com/ts2wf/compiler/wfexpr"
)

// destructurePattern expands a binding pattern against an already-evaluated
// source expression (a VariableReference or a pure literal — the caller is
// responsible for hoisting an impure initializer to a temp first) into a
// flat sequence of steps, recursing into nested patterns. Array
// and object patterns lower to a guarded cascade that stays safe when the
// source is shorter than the pattern or is missing a property, rather than
// a plain index/key read that would raise at runtime.
func destructurePattern(ctx Context, pat surface.Pattern, src wfexpr.Expr) ([]*wfast.Step, *compileerr.Error) {
	switch p := pat.(type) {
	case *surface.Identifier:
		return []*wfast.Step{assignStep(wfexpr.Ref(p.Name), src)}, nil

	case *surface.AssignmentPattern:
		return destructureWithDefault(ctx, p, src)

	case *surface.ArrayPattern:
		return destructureArray(ctx, p, src)

	case *surface.ObjectPattern:
		return destructureObject(ctx, p, src)

	case *surface.RestElement:
		target, ok := p.Argument.(*surface.Identifier)
		if !ok {
			return nil, compileerr.InvalidDestructuringf(p.Argument.Location(), "rest element target must be an identifier")
		}
		return []*wfast.Step{assignStep(wfexpr.Ref(target.Name), src)}, nil

	default:
		return nil, compileerr.InvalidDestructuringf(pat.Location(), "unsupported binding pattern %q", pat.Kind())
	}
}

func destructureWithDefault(ctx Context, p *surface.AssignmentPattern, src wfexpr.Expr) ([]*wfast.Step, *compileerr.Error) {
	fallback, pre, err := convert.Convert(ctx, p.Right)
	if err != nil {
		return nil, err
	}
	var value wfexpr.Expr = wfexpr.Default(src, fallback)
	if !wfexpr.IsPure(value) {
		tmp := ctx.NewTemp()
		pre = append(pre, assignStep(wfexpr.Ref(tmp), value))
		value = wfexpr.Ref(tmp)
	}
	steps, derr := destructurePattern(ctx, p.Left, value)
	if derr != nil {
		return nil, derr
	}
	return append(pre, steps...), nil
}

// destructureDefaultOnly binds a required array-pattern element that the
// source is too short to contain: an AssignmentPattern evaluates its
// default expression (eagerly — there is nothing to guard it against,
// the element is definitely absent), anything else binds to null.
func destructureDefaultOnly(ctx Context, el surface.Pattern) ([]*wfast.Step, *compileerr.Error) {
	if ap, ok := el.(*surface.AssignmentPattern); ok {
		val, pre, err := convert.Convert(ctx, ap.Right)
		if err != nil {
			return nil, err
		}
		if !wfexpr.IsPure(val) {
			tmp := ctx.NewTemp()
			pre = append(pre, assignStep(wfexpr.Ref(tmp), val))
			val = wfexpr.Ref(tmp)
		}
		steps, derr := destructurePattern(ctx, ap.Left, val)
		if derr != nil {
			return nil, derr
		}
		return append(pre, steps...), nil
	}
	return destructurePattern(ctx, el, wfexpr.Null)
}

// destructureArray lowers an array pattern to a length-guarded cascade:
// a temp holds the source length, then a Switch whose
// branches run in decreasing-length order, each binding every element the
// matched length guarantees is present and defaulting the rest, plus a
// trailing rest element collected by a numeric-range For loop over
// list.concat. A final true-condition branch defaults every element when
// the source is empty or absent.
func destructureArray(ctx Context, p *surface.ArrayPattern, src wfexpr.Expr) ([]*wfast.Step, *compileerr.Error) {
	src, hoistPre := hoistSrcIfImpure(ctx, src)
	required := p.Elements
	var restTarget *surface.Identifier
	for i, el := range p.Elements {
		rest, ok := el.(*surface.RestElement)
		if !ok {
			continue
		}
		if i != len(p.Elements)-1 {
			return nil, compileerr.InvalidDestructuringf(rest.Location(), "rest element must be the last array pattern element")
		}
		target, ok := rest.Argument.(*surface.Identifier)
		if !ok {
			return nil, compileerr.InvalidDestructuringf(rest.Argument.Location(), "rest element target must be an identifier")
		}
		restTarget = target
		required = p.Elements[:i]
	}

	var sig []int // indices of required that bind something (non-hole)
	for i, el := range required {
		if el != nil {
			sig = append(sig, i)
		}
	}

	if len(sig) == 0 {
		if restTarget == nil {
			return hoistPre, nil
		}
		rest := assignStep(wfexpr.Ref(restTarget.Name), wfexpr.Call("list.slice", src, wfexpr.Int(0)))
		return append(hoistPre, rest), nil
	}

	tempLen := ctx.NewTemp()
	tempLenRef := wfexpr.Ref(tempLen)
	out := append(hoistPre, assignStep(tempLenRef, wfexpr.Call("len", src)))

	bindSig := func(upTo int) ([]*wfast.Step, *compileerr.Error) {
		var body []*wfast.Step
		for _, j := range sig {
			var steps []*wfast.Step
			var derr *compileerr.Error
			if j <= upTo {
				steps, derr = destructurePattern(ctx, required[j], indexInto(src, j))
			} else {
				steps, derr = destructureDefaultOnly(ctx, required[j])
			}
			if derr != nil {
				return nil, derr
			}
			body = append(body, steps...)
		}
		return body, nil
	}

	var branches []wfast.SwitchBranch
	for bi := len(sig) - 1; bi >= 0; bi-- {
		i := sig[bi]
		body, derr := bindSig(i)
		if derr != nil {
			return nil, derr
		}
		if restTarget != nil {
			restSteps, rerr := destructureArrayRest(ctx, restTarget, src, i+1, tempLenRef)
			if rerr != nil {
				return nil, rerr
			}
			body = append(body, restSteps...)
		}
		branches = append(branches, wfast.SwitchBranch{
			Condition: &wfexpr.Binary{Left: tempLenRef, Op: wfexpr.Gte, Right: wfexpr.Int(int64(i + 1))},
			Steps:     body,
		})
	}

	fallback, derr := bindSig(-1)
	if derr != nil {
		return nil, derr
	}
	if restTarget != nil {
		fallback = append(fallback, assignStep(wfexpr.Ref(restTarget.Name), wfexpr.List(nil)))
	}
	branches = append(branches, wfast.SwitchBranch{Condition: wfexpr.Bool(true), Steps: fallback})

	out = append(out, &wfast.Step{Kind: wfast.KindSwitch, Switch: branches})
	return out, nil
}

// destructureArrayRest collects src[startIdx:] into restTarget via a
// numeric-range For loop appending through list.concat, since the upper
// bound (the source length) is only known at runtime.
func destructureArrayRest(ctx Context, restTarget *surface.Identifier, src wfexpr.Expr, startIdx int, tempLenRef wfexpr.Expr) ([]*wfast.Step, *compileerr.Error) {
	restRef := wfexpr.Ref(restTarget.Name)
	loopVar := ctx.NewTemp()
	loopVarRef := wfexpr.Ref(loopVar)

	out := []*wfast.Step{assignStep(restRef, wfexpr.List(nil))}
	out = append(out, &wfast.Step{
		Kind: wfast.KindFor,
		For: &wfast.For{
			Value:      loopVar,
			HasRange:   true,
			RangeStart: wfexpr.Int(int64(startIdx)),
			RangeEnd:   &wfexpr.Binary{Left: tempLenRef, Op: wfexpr.Sub, Right: wfexpr.Int(1)},
			Steps: []*wfast.Step{
				assignStep(restRef, wfexpr.Call("list.concat", restRef, wfexpr.List([]wfexpr.Expr{indexIntoExpr(src, loopVarRef)}))),
			},
		},
	})
	return out, nil
}

func indexIntoExpr(src wfexpr.Expr, idx wfexpr.Expr) wfexpr.Expr {
	if ref, ok := src.(*wfexpr.VariableReference); ok {
		return ref.Indexed(idx)
	}
	return &wfexpr.Member{Object: src, Property: idx, Computed: true}
}

func indexInto(src wfexpr.Expr, i int) wfexpr.Expr {
	return indexIntoExpr(src, wfexpr.Int(int64(i)))
}

// hoistSrcIfImpure assigns src to a fresh temp when it is not a pure
// reference or literal, so a pattern that reads it more
// than once — the length check plus every indexed/keyed read below it —
// only evaluates it once.
func hoistSrcIfImpure(ctx Context, src wfexpr.Expr) (wfexpr.Expr, []*wfast.Step) {
	if wfexpr.IsPure(src) {
		return src, nil
	}
	tmp := ctx.NewTemp()
	return wfexpr.Ref(tmp), []*wfast.Step{assignStep(wfexpr.Ref(tmp), src)}
}

// destructureObject lowers an object pattern using map.get(obj, "key")
// reads, which are safe on a missing key: unlike dotted member
// access, a missing key yields null instead of raising. A property with a
// default evaluates the default expression only when the key is genuinely
// absent, via a Switch testing `"key" in obj`, so a side-effecting default
// does not run when the key is present.
func destructureObject(ctx Context, p *surface.ObjectPattern, src wfexpr.Expr) ([]*wfast.Step, *compileerr.Error) {
	src, out := hoistSrcIfImpure(ctx, src)
	var seenKeys []wfexpr.Expr
	for _, prop := range p.Properties {
		if prop.Key == nil {
			restVal := src
			for _, k := range seenKeys {
				restVal = wfexpr.Call("map.delete", restVal, k)
			}
			rest, ok := prop.Value.(*surface.RestElement)
			if !ok {
				return nil, compileerr.InvalidDestructuringf(prop.Location(), "malformed object rest pattern")
			}
			target, ok := rest.Argument.(*surface.Identifier)
			if !ok {
				return nil, compileerr.InvalidDestructuringf(rest.Argument.Location(), "rest element target must be an identifier")
			}
			out = append(out, assignStep(wfexpr.Ref(target.Name), restVal))
			continue
		}
		if prop.Computed {
			return nil, compileerr.InvalidDestructuringf(prop.Location(), "computed object destructuring keys are not supported")
		}
		name, kerr := objectPatternKeyName(prop.Key)
		if kerr != nil {
			return nil, kerr
		}
		seenKeys = append(seenKeys, wfexpr.Str(name))

		if ap, ok := prop.Value.(*surface.AssignmentPattern); ok {
			steps, derr := destructureObjectDefaultedProperty(ctx, src, name, ap)
			if derr != nil {
				return nil, derr
			}
			out = append(out, steps...)
			continue
		}

		elemSrc := wfexpr.Call("map.get", src, wfexpr.Str(name))
		steps, err := destructurePattern(ctx, prop.Value, elemSrc)
		if err != nil {
			return nil, err
		}
		out = append(out, steps...)
	}
	return out, nil
}

// destructureObjectDefaultedProperty binds one `{ key = default }` property
// via a two-branch Switch: `"key" in obj` fetches the present value,
// otherwise the default expression (and any pre-steps it hoists) runs.
func destructureObjectDefaultedProperty(ctx Context, src wfexpr.Expr, name string, ap *surface.AssignmentPattern) ([]*wfast.Step, *compileerr.Error) {
	target, ok := ap.Left.(*surface.Identifier)
	if !ok {
		return nil, compileerr.InvalidDestructuringf(ap.Left.Location(), "destructuring default target must be an identifier")
	}
	fallback, pre, err := convert.Convert(ctx, ap.Right)
	if err != nil {
		return nil, err
	}

	tmp := ctx.NewTemp()
	tmpRef := wfexpr.Ref(tmp)
	presentBranch := wfast.SwitchBranch{
		Condition: &wfexpr.Binary{Left: wfexpr.Str(name), Op: wfexpr.In, Right: src},
		Steps:     []*wfast.Step{assignStep(tmpRef, wfexpr.Call("map.get", src, wfexpr.Str(name)))},
	}
	missingBranch := wfast.SwitchBranch{
		Condition: wfexpr.Bool(true),
		Steps:     append(pre, assignStep(tmpRef, fallback)),
	}

	out := []*wfast.Step{{Kind: wfast.KindSwitch, Switch: []wfast.SwitchBranch{presentBranch, missingBranch}}}
	return append(out, assignStep(wfexpr.Ref(target.Name), tmpRef)), nil
}

func objectPatternKeyName(key surface.Node) (string, *compileerr.Error) {
	switch k := key.(type) {
	case *surface.Identifier:
		return k.Name, nil
	case *surface.Literal:
		if k.LitKind == surface.LiteralString {
			return k.StringVal, nil
		}
	}
	return "", compileerr.InvalidMapKeyf(key.Location(), "object destructuring key must be an identifier or string literal")
}
