package resolve

import (
	"github.com/ts2wf/compiler/internal/compileerr"
	"github.com/ts2wf/compiler/surface"
	"github.com/ts2wf/compiler/wfast"
)

// Validate checks a resolved program before it is handed to render: no
// synthetic JumpTarget survived resolution, step names are unique within
// each subworkflow, and every jump lands on a real step, the "end"
// sentinel, or — only inside a loop body, where the target format defines
// them — the native "break"/"continue" sentinels. A break/continue sentinel
// anywhere else means a jump never found its loop, and an unknown label
// means a labelled break/continue named a label that does not exist.
func Validate(prog *wfast.Program) *compileerr.Error {
	for _, sw := range prog.Subworkflows {
		names := make(map[string]bool)
		if err := collectNames(sw, sw.Steps, names); err != nil {
			return err
		}
		if err := checkJumps(sw, sw.Steps, names, false); err != nil {
			return err
		}
	}
	return nil
}

func collectNames(sw *wfast.Subworkflow, steps []*wfast.Step, names map[string]bool) *compileerr.Error {
	for _, s := range steps {
		if s.Kind == wfast.KindJumpTarget {
			return internalf("subworkflow %q: jump target %q survived resolution", sw.Name, s.JumpLabel)
		}
		if names[s.Name] {
			return internalf("subworkflow %q: duplicate step name %q", sw.Name, s.Name)
		}
		names[s.Name] = true
		for i := range s.Switch {
			if err := collectNames(sw, s.Switch[i].Steps, names); err != nil {
				return err
			}
		}
		if s.For != nil {
			if err := collectNames(sw, s.For.Steps, names); err != nil {
				return err
			}
		}
		if s.Parallel != nil {
			if s.Parallel.For != nil {
				if err := collectNames(sw, s.Parallel.For.Steps, names); err != nil {
					return err
				}
			}
			for i := range s.Parallel.Branches {
				if err := collectNames(sw, s.Parallel.Branches[i].Steps, names); err != nil {
					return err
				}
			}
		}
		if s.Try != nil {
			if err := collectNames(sw, s.Try.TryBody, names); err != nil {
				return err
			}
			if s.Try.Except != nil {
				if err := collectNames(sw, s.Try.Except.Steps, names); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func checkJumps(sw *wfast.Subworkflow, steps []*wfast.Step, names map[string]bool, inLoop bool) *compileerr.Error {
	for _, s := range steps {
		if err := checkTarget(sw, s.Next, names, inLoop); err != nil {
			return err
		}
		for i := range s.Switch {
			if err := checkTarget(sw, s.Switch[i].Next, names, inLoop); err != nil {
				return err
			}
			if err := checkJumps(sw, s.Switch[i].Steps, names, inLoop); err != nil {
				return err
			}
		}
		if s.For != nil {
			if err := checkJumps(sw, s.For.Steps, names, true); err != nil {
				return err
			}
		}
		if s.Parallel != nil {
			if s.Parallel.For != nil {
				if err := checkJumps(sw, s.Parallel.For.Steps, names, true); err != nil {
					return err
				}
			}
			for i := range s.Parallel.Branches {
				if err := checkJumps(sw, s.Parallel.Branches[i].Steps, names, false); err != nil {
					return err
				}
			}
		}
		if s.Try != nil {
			if err := checkJumps(sw, s.Try.TryBody, names, inLoop); err != nil {
				return err
			}
			if s.Try.Except != nil {
				if err := checkJumps(sw, s.Try.Except.Steps, names, inLoop); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func checkTarget(sw *wfast.Subworkflow, target string, names map[string]bool, inLoop bool) *compileerr.Error {
	switch target {
	case "", "end":
		return nil
	case "break", "continue":
		if inLoop {
			return nil
		}
		return compileerr.ControlFlowf(surface.Loc{}, "subworkflow %q: %s outside a loop", sw.Name, target)
	default:
		if names[target] {
			return nil
		}
		return compileerr.ControlFlowf(surface.Loc{}, "subworkflow %q: jump target %q does not name a step", sw.Name, target)
	}
}

func internalf(format string, args ...interface{}) *compileerr.Error {
	return compileerr.Internalf(surface.Loc{}, format, args...)
}
