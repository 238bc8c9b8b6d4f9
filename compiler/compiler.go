// Package compiler orchestrates the full lowering pipeline: gather
// top-level function declarations, lower each into a subworkflow, then run
// the post-lowering passes (package transform, package namegen, package
// resolve) in a fixed order. This is the single entry point the CLI and
// any embedding caller use.
package compiler

import (
	"github.com/ts2wf/compiler/convert"
	"github.com/ts2wf/compiler/internal/blocking"
	"github.com/ts2wf/compiler/internal/compileerr"
	"github.com/ts2wf/compiler/lower"
	"github.com/ts2wf/compiler/namegen"
	"github.com/ts2wf/compiler/resolve"
	"github.com/ts2wf/compiler/surface"
	"github.com/ts2wf/compiler/transform"
	"github.com/ts2wf/compiler/wfast"
)

// Options configures a Compile call.
type Options struct {
	// ExtraBlocking extends the built-in blocking-function table, used by
	// the CLI's --blocking-functions flag.
	ExtraBlocking map[string][]string
}

// Compile lowers prog into a fully resolved wfast.Program, ready for
// package render. Every top-level FunctionDeclaration becomes a
// subworkflow named after it, in source order; any other top-level
// statement kind besides the ignorable TypeScript wrappers is rejected.
func Compile(prog *surface.Program, opts Options) (*wfast.Program, *compileerr.Error) {
	functions, order, err := collectFunctions(prog)
	if err != nil {
		return nil, err
	}

	reg := blocking.NewRegistry()
	if len(opts.ExtraBlocking) > 0 {
		reg.Extend(opts.ExtraBlocking)
	}

	out := &wfast.Program{}
	for _, name := range order {
		fn := functions[name]
		ctx := lower.NewContext(reg, functions)
		params, perr := convertParams(ctx, fn.Params)
		if perr != nil {
			return nil, perr
		}
		steps, lerr := lower.LowerBlock(ctx, fn.Body.Body)
		if lerr != nil {
			return nil, lerr
		}
		out.Subworkflows = append(out.Subworkflows, &wfast.Subworkflow{
			Name:   name,
			Params: params,
			Steps:  steps,
		})
	}

	transform.MergeAdjacentAssigns(out)
	namegen.New().Assign(out)
	resolve.Resolve(out)
	if verr := resolve.Validate(out); verr != nil {
		return nil, verr
	}
	return out, nil
}

// collectFunctions walks the top level of prog once, in order, recording
// every FunctionDeclaration by name and rejecting anything else except the
// ignorable TypeScript-only wrapper kinds. order preserves declaration
// order so subworkflows render in the source's own order.
func collectFunctions(prog *surface.Program) (map[string]*surface.FunctionDeclaration, []string, *compileerr.Error) {
	functions := make(map[string]*surface.FunctionDeclaration)
	var order []string
	for _, s := range prog.Body {
		switch n := s.(type) {
		case *surface.FunctionDeclaration:
			if n.Id == nil {
				return nil, nil, compileerr.Unsupportedf(n.Location(), "top-level function declarations must be named")
			}
			if _, dup := functions[n.Id.Name]; dup {
				return nil, nil, compileerr.Unsupportedf(n.Location(), "duplicate top-level function %q", n.Id.Name)
			}
			if n.Body == nil {
				return nil, nil, compileerr.Unsupportedf(n.Location(), "function %q has no block body", n.Id.Name)
			}
			functions[n.Id.Name] = n
			order = append(order, n.Id.Name)
		case *surface.TSInterfaceDeclaration, *surface.TSTypeAliasDeclaration, *surface.TSDeclareFunction:
			// Type-only; no runtime counterpart.
		default:
			return nil, nil, compileerr.Unsupportedf(s.Location(), "top-level statement kind %q is not supported; only function declarations are", s.Kind())
		}
	}
	return functions, order, nil
}

// convertParams lowers a FunctionDeclaration's parameter list into
// subworkflow Params. Only a bare identifier or an identifier with a
// default expression is supported; destructuring parameters have no
// counterpart in a GCW subworkflow signature.
func convertParams(ctx lower.Context, params []surface.Pattern) ([]wfast.Param, *compileerr.Error) {
	out := make([]wfast.Param, 0, len(params))
	for _, p := range params {
		switch n := p.(type) {
		case *surface.Identifier:
			out = append(out, wfast.Param{Name: n.Name})
		case *surface.AssignmentPattern:
			id, ok := n.Left.(*surface.Identifier)
			if !ok {
				return nil, compileerr.InvalidDestructuringf(n.Location(), "subworkflow parameters must be plain identifiers")
			}
			def, _, cerr := convert.Convert(ctx, n.Right)
			if cerr != nil {
				return nil, cerr
			}
			out = append(out, wfast.Param{Name: id.Name, Default: def})
		default:
			return nil, compileerr.InvalidDestructuringf(p.Location(), "subworkflow parameters must be plain identifiers, not destructuring patterns")
		}
	}
	return out, nil
}
