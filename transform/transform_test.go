package transform

import (
	"testing"

	"github.com/ts2wf/compiler/wfast"
	"github.com/ts2wf/compiler/wfexpr"
)

func assignStep(target string, v wfexpr.Expr) *wfast.Step {
	return &wfast.Step{Kind: wfast.KindAssign, Assign: []wfast.Assignment{{Target: wfexpr.Ref(target), Value: v}}}
}

func TestMergeAdjacentAssigns(t *testing.T) {
	prog := &wfast.Program{Subworkflows: []*wfast.Subworkflow{{
		Name: "main",
		Steps: []*wfast.Step{
			assignStep("a", wfexpr.Int(1)),
			assignStep("b", wfexpr.Int(2)),
			assignStep("c", wfexpr.Int(3)),
		},
	}}}
	MergeAdjacentAssigns(prog)

	steps := prog.Subworkflows[0].Steps
	if len(steps) != 1 {
		t.Fatalf("expected all three assigns to merge into one step, got %d", len(steps))
	}
	if len(steps[0].Assign) != 3 {
		t.Fatalf("expected 3 assignments in the merged step, got %d", len(steps[0].Assign))
	}
}

func TestMergeStopsAtLabelledStep(t *testing.T) {
	labelled := assignStep("b", wfexpr.Int(2))
	labelled.Label = "mid"
	prog := &wfast.Program{Subworkflows: []*wfast.Subworkflow{{
		Name:  "main",
		Steps: []*wfast.Step{assignStep("a", wfexpr.Int(1)), labelled, assignStep("c", wfexpr.Int(3))},
	}}}
	MergeAdjacentAssigns(prog)

	steps := prog.Subworkflows[0].Steps
	if len(steps) != 2 {
		t.Fatalf("expected the label to block merging into a single step, got %d steps", len(steps))
	}
	if steps[0].Assign[0].Target.Base != "a" {
		t.Fatalf("first step should only carry 'a'")
	}
	if len(steps[1].Assign) != 2 {
		t.Fatalf("the labelled step should absorb only the assign that follows it, got %d", len(steps[1].Assign))
	}
}

func TestMergeStopsAtNonAssignStep(t *testing.T) {
	prog := &wfast.Program{Subworkflows: []*wfast.Subworkflow{{
		Name: "main",
		Steps: []*wfast.Step{
			assignStep("a", wfexpr.Int(1)),
			{Kind: wfast.KindCall, Call: &wfast.Call{Function: "sys.log"}},
			assignStep("b", wfexpr.Int(2)),
		},
	}}}
	MergeAdjacentAssigns(prog)

	steps := prog.Subworkflows[0].Steps
	if len(steps) != 3 {
		t.Fatalf("expected the call step to prevent merging across it, got %d steps", len(steps))
	}
}

func TestMergeStopsAtExplicitNext(t *testing.T) {
	withNext := assignStep("a", wfexpr.Int(1))
	withNext.Next = "somewhere"
	prog := &wfast.Program{Subworkflows: []*wfast.Subworkflow{{
		Name:  "main",
		Steps: []*wfast.Step{withNext, assignStep("b", wfexpr.Int(2))},
	}}}
	MergeAdjacentAssigns(prog)

	steps := prog.Subworkflows[0].Steps
	if len(steps) != 2 {
		t.Fatalf("expected an explicit Next to block merging, got %d steps", len(steps))
	}
}

func TestMergeRecursesIntoNestedBodies(t *testing.T) {
	prog := &wfast.Program{Subworkflows: []*wfast.Subworkflow{{
		Name: "main",
		Steps: []*wfast.Step{
			{Kind: wfast.KindSwitch, Switch: []wfast.SwitchBranch{
				{Steps: []*wfast.Step{assignStep("a", wfexpr.Int(1)), assignStep("b", wfexpr.Int(2))}},
			}},
		},
	}}}
	MergeAdjacentAssigns(prog)

	branchSteps := prog.Subworkflows[0].Steps[0].Switch[0].Steps
	if len(branchSteps) != 1 {
		t.Fatalf("expected the switch branch's own assigns to merge, got %d steps", len(branchSteps))
	}
}
