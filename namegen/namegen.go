// Package namegen assigns final step names to a freshly-lowered program.
// Steps keep a Label (set by a labelled statement or a JumpTarget) that
// takes precedence over generation; everything else gets a per-prefix
// monotone counter (one counter per prefix, not one global counter).
package namegen

import (
	"fmt"

	"github.com/ts2wf/compiler/wfast"
)

// Generator assigns step names across an entire program. Counters are
// per-prefix so "call_log_1", "call_log_2", "assign1" ... interleave
// without colliding.
type Generator struct {
	counters map[string]int
}

// New returns a fresh Generator.
func New() *Generator {
	return &Generator{counters: make(map[string]int)}
}

// Assign walks every subworkflow's step tree (recursing into Switch
// branches, For/Parallel bodies, and Try/Except bodies) and fills in each
// step's Name, unless a Label already overrides it.
func (g *Generator) Assign(prog *wfast.Program) {
	for _, sw := range prog.Subworkflows {
		g.assignSteps(sw.Steps)
	}
}

func (g *Generator) assignSteps(steps []*wfast.Step) {
	for _, s := range steps {
		g.assignOne(s)
		g.recurse(s)
	}
}

func (g *Generator) assignOne(s *wfast.Step) {
	if s.Label != "" {
		s.Name = s.Label
		return
	}
	if s.Kind == wfast.KindJumpTarget {
		// JumpTargets are erased before render; resolve assigns them a
		// synthetic name itself if it ever needs to reference one.
		return
	}
	prefix := g.prefixFor(s)
	g.counters[prefix]++
	s.Name = fmt.Sprintf("%s%d", prefix, g.counters[prefix])
}

func (g *Generator) prefixFor(s *wfast.Step) string {
	switch s.Kind {
	case wfast.KindAssign:
		return "assign"
	case wfast.KindCall:
		if s.Call != nil && s.Call.Function != "" {
			return "call_" + sanitize(s.Call.Function) + "_"
		}
		return "call"
	case wfast.KindSwitch:
		return "switch"
	case wfast.KindFor:
		return "for"
	case wfast.KindParallel:
		return "parallel"
	case wfast.KindParallelIteration:
		return "parallel_for"
	case wfast.KindTry:
		return "try"
	case wfast.KindReturn:
		return "return"
	case wfast.KindRaise:
		return "raise"
	case wfast.KindNext:
		return "next"
	default:
		return "step"
	}
}

// sanitize turns a dotted function name into a name-safe prefix fragment,
// e.g. "http.get" -> "http_get".
func sanitize(fn string) string {
	out := make([]byte, 0, len(fn))
	for i := 0; i < len(fn); i++ {
		c := fn[i]
		if c == '.' {
			out = append(out, '_')
			continue
		}
		out = append(out, c)
	}
	return string(out)
}

func (g *Generator) recurse(s *wfast.Step) {
	switch s.Kind {
	case wfast.KindSwitch:
		for i := range s.Switch {
			g.assignSteps(s.Switch[i].Steps)
		}
	case wfast.KindFor:
		if s.For != nil {
			g.assignSteps(s.For.Steps)
		}
	case wfast.KindParallel, wfast.KindParallelIteration:
		if s.Parallel != nil {
			if s.Parallel.For != nil {
				g.assignSteps(s.Parallel.For.Steps)
			}
			for i := range s.Parallel.Branches {
				g.assignSteps(s.Parallel.Branches[i].Steps)
			}
		}
	case wfast.KindTry:
		if s.Try != nil {
			g.assignSteps(s.Try.TryBody)
			if s.Try.Except != nil {
				g.assignSteps(s.Try.Except.Steps)
			}
		}
	}
}
