// Package resolve erases the synthetic JumpTarget steps that lowering used
// as nameable anchors and rewrites every symbolic jump (Next steps, Switch
// branch Next overrides, and the generic Step.Next override) to the real
// step name they were standing in for. It runs after
// package namegen has assigned final step names, since the resolved
// targets are those names (or the "end" sentinel).
package resolve

import "github.com/ts2wf/compiler/wfast"

// Resolve rewrites every subworkflow of prog in place.
func Resolve(prog *wfast.Program) {
	for _, sw := range prog.Subworkflows {
		labels := make(map[string]string)
		sw.Steps = resolveList(sw.Steps, "end", labels)
		rewriteList(sw.Steps, labels)
	}
}

// resolveList computes, for this list, the label each JumpTarget within it
// resolves to (the name of the next real step in the same list, chasing
// through further JumpTargets, or — if none follows — this list's own exit
// target, propagated from its parent). It also recurses into every nested
// step body so inner JumpTargets are resolved against their own list before
// falling back to the (already-known) exit target of their enclosing
// construct. The returned slice has JumpTarget steps stripped out.
func resolveList(steps []*wfast.Step, exit string, labels map[string]string) []*wfast.Step {
	out := make([]*wfast.Step, 0, len(steps))
	for i, s := range steps {
		if s.Kind == wfast.KindJumpTarget {
			labels[s.JumpLabel] = nextRealTarget(steps, i+1, exit, labels)
			continue
		}
		// A nested body that falls off its own end continues at the step
		// after this one, not at this list's exit.
		recurseInto(s, nextRealTarget(steps, i+1, exit, labels), labels)
		out = append(out, s)
	}
	return out
}

// nextRealTarget walks forward from index i looking for the next
// non-JumpTarget step's name; a JumpTarget encountered along the way
// chains to the same resolution (two labels pointing at the same spot).
// Falling off the end of the list resolves to the list's own exit target.
func nextRealTarget(steps []*wfast.Step, i int, exit string, labels map[string]string) string {
	for ; i < len(steps); i++ {
		if steps[i].Kind == wfast.KindJumpTarget {
			continue
		}
		return steps[i].Name
	}
	return exit
}

// recurseInto resolves the nested step lists owned by a compound step. The
// propagated exit target for a Switch branch or Try body is this step's own
// exit (falling off a branch continues after the compound step, exactly
// like falling off the compound step itself). A For loop body exits to the
// native "continue" sentinel (falling off the body starts the next
// iteration), and a Parallel branch body exits to "end" (a branch cannot
// jump into the enclosing step list; its end is the branch's end).
func recurseInto(s *wfast.Step, exit string, labels map[string]string) {
	switch s.Kind {
	case wfast.KindSwitch:
		for i := range s.Switch {
			s.Switch[i].Steps = resolveList(s.Switch[i].Steps, exit, labels)
		}
	case wfast.KindFor:
		if s.For != nil {
			s.For.Steps = resolveList(s.For.Steps, "continue", labels)
		}
	case wfast.KindParallel, wfast.KindParallelIteration:
		if s.Parallel != nil {
			if s.Parallel.For != nil {
				s.Parallel.For.Steps = resolveList(s.Parallel.For.Steps, "continue", labels)
			}
			for i := range s.Parallel.Branches {
				s.Parallel.Branches[i].Steps = resolveList(s.Parallel.Branches[i].Steps, "end", labels)
			}
		}
	case wfast.KindTry:
		if s.Try != nil {
			s.Try.TryBody = resolveList(s.Try.TryBody, exit, labels)
			if s.Try.Except != nil {
				s.Try.Except.Steps = resolveList(s.Try.Except.Steps, exit, labels)
			}
		}
	}
}

// rewriteList substitutes resolved labels into every Next-like field,
// recursing into nested bodies. It runs after resolveList has populated
// labels for the whole program, so forward references (a Next emitted
// before its JumpTarget has been visited) are already resolved.
func rewriteList(steps []*wfast.Step, labels map[string]string) {
	for _, s := range steps {
		if s.Next != "" {
			if target, ok := labels[s.Next]; ok {
				s.Next = target
			}
		}
		for i := range s.Switch {
			if s.Switch[i].Next != "" {
				if target, ok := labels[s.Switch[i].Next]; ok {
					s.Switch[i].Next = target
				}
			}
			rewriteList(s.Switch[i].Steps, labels)
		}
		if s.For != nil {
			rewriteList(s.For.Steps, labels)
		}
		if s.Parallel != nil {
			if s.Parallel.For != nil {
				rewriteList(s.Parallel.For.Steps, labels)
			}
			for i := range s.Parallel.Branches {
				rewriteList(s.Parallel.Branches[i].Steps, labels)
			}
		}
		if s.Try != nil {
			rewriteList(s.Try.TryBody, labels)
			if s.Try.Except != nil {
				rewriteList(s.Try.Except.Steps, labels)
			}
		}
	}
}
