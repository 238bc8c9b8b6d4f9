// Package transform implements post-lowering AST transformations: passes
// that rewrite a freshly-lowered wfast.Program without changing its
// meaning, run after lowering and before step naming.
package transform

import "github.com/ts2wf/compiler/wfast"

// MergeAdjacentAssigns merges runs of consecutive Assign steps that have no
// intervening labelled JumpTarget and no custom Next into a single Assign
// step carrying all of their (target, value) pairs in order. This undoes
// the one-assignment-per-step granularity that statement lowering produces
// for simplicity, matching the coarser granularity idiomatic hand-written
// workflows use.
func MergeAdjacentAssigns(prog *wfast.Program) {
	for _, sw := range prog.Subworkflows {
		sw.Steps = mergeSteps(sw.Steps)
	}
}

func mergeSteps(steps []*wfast.Step) []*wfast.Step {
	out := make([]*wfast.Step, 0, len(steps))
	for _, s := range steps {
		recurse(s)
		if canMergeWithPrevious(out, s) {
			prev := out[len(out)-1]
			prev.Assign = append(prev.Assign, s.Assign...)
			continue
		}
		out = append(out, s)
	}
	return out
}

func canMergeWithPrevious(out []*wfast.Step, s *wfast.Step) bool {
	if s.Kind != wfast.KindAssign || s.Label != "" || s.Next != "" {
		return false
	}
	if len(out) == 0 {
		return false
	}
	prev := out[len(out)-1]
	return prev.Kind == wfast.KindAssign && prev.Next == ""
}

func recurse(s *wfast.Step) {
	switch s.Kind {
	case wfast.KindSwitch:
		for i := range s.Switch {
			s.Switch[i].Steps = mergeSteps(s.Switch[i].Steps)
		}
	case wfast.KindFor:
		if s.For != nil {
			s.For.Steps = mergeSteps(s.For.Steps)
		}
	case wfast.KindParallel, wfast.KindParallelIteration:
		if s.Parallel != nil {
			if s.Parallel.For != nil {
				s.Parallel.For.Steps = mergeSteps(s.Parallel.For.Steps)
			}
			for i := range s.Parallel.Branches {
				s.Parallel.Branches[i].Steps = mergeSteps(s.Parallel.Branches[i].Steps)
			}
		}
	case wfast.KindTry:
		if s.Try != nil {
			s.Try.TryBody = mergeSteps(s.Try.TryBody)
			if s.Try.Except != nil {
				s.Try.Except.Steps = mergeSteps(s.Try.Except.Steps)
			}
		}
	}
}
