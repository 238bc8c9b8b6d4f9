package namegen

import (
	"testing"

	"github.com/ts2wf/compiler/wfast"
)

func TestAssignPerPrefixCounters(t *testing.T) {
	prog := &wfast.Program{Subworkflows: []*wfast.Subworkflow{{
		Name: "main",
		Steps: []*wfast.Step{
			{Kind: wfast.KindAssign},
			{Kind: wfast.KindAssign},
			{Kind: wfast.KindCall, Call: &wfast.Call{Function: "http.get"}},
			{Kind: wfast.KindCall, Call: &wfast.Call{Function: "http.get"}},
		},
	}}}

	New().Assign(prog)

	steps := prog.Subworkflows[0].Steps
	want := []string{"assign1", "assign2", "call_http_get_1", "call_http_get_2"}
	for i, w := range want {
		if steps[i].Name != w {
			t.Errorf("step %d: got %q, want %q", i, steps[i].Name, w)
		}
	}
}

func TestAssignLabelOverridesGeneratedName(t *testing.T) {
	prog := &wfast.Program{Subworkflows: []*wfast.Subworkflow{{
		Name: "main",
		Steps: []*wfast.Step{
			{Kind: wfast.KindAssign, Label: "custom_label"},
		},
	}}}
	New().Assign(prog)
	if got := prog.Subworkflows[0].Steps[0].Name; got != "custom_label" {
		t.Errorf("got %q, want %q", got, "custom_label")
	}
}

func TestAssignSkipsJumpTargets(t *testing.T) {
	prog := &wfast.Program{Subworkflows: []*wfast.Subworkflow{{
		Name: "main",
		Steps: []*wfast.Step{
			{Kind: wfast.KindJumpTarget, JumpLabel: "loop_start"},
			{Kind: wfast.KindAssign},
		},
	}}}
	New().Assign(prog)
	steps := prog.Subworkflows[0].Steps
	if steps[0].Name != "" {
		t.Errorf("expected a JumpTarget to get no Name, got %q", steps[0].Name)
	}
	if steps[1].Name != "assign1" {
		t.Errorf("got %q, want assign1", steps[1].Name)
	}
}

func TestAssignRecursesIntoNestedBodies(t *testing.T) {
	prog := &wfast.Program{Subworkflows: []*wfast.Subworkflow{{
		Name: "main",
		Steps: []*wfast.Step{
			{Kind: wfast.KindSwitch, Switch: []wfast.SwitchBranch{
				{Steps: []*wfast.Step{{Kind: wfast.KindAssign}}},
			}},
			{Kind: wfast.KindFor, For: &wfast.For{Steps: []*wfast.Step{{Kind: wfast.KindAssign}}}},
			{Kind: wfast.KindTry, Try: &wfast.Try{
				TryBody: []*wfast.Step{{Kind: wfast.KindAssign}},
				Except:  &wfast.Except{Steps: []*wfast.Step{{Kind: wfast.KindAssign}}},
			}},
		},
	}}}
	New().Assign(prog)

	sw := prog.Subworkflows[0]
	if got := sw.Steps[0].Switch[0].Steps[0].Name; got != "assign1" {
		t.Errorf("switch branch step: got %q, want assign1", got)
	}
	if got := sw.Steps[1].For.Steps[0].Name; got != "assign2" {
		t.Errorf("for body step: got %q, want assign2", got)
	}
	if got := sw.Steps[2].Try.TryBody[0].Name; got != "assign3" {
		t.Errorf("try body step: got %q, want assign3", got)
	}
	if got := sw.Steps[2].Try.Except.Steps[0].Name; got != "assign4" {
		t.Errorf("except body step: got %q, want assign4", got)
	}
}

func TestAssignCountersAreGlobalAcrossSubworkflows(t *testing.T) {
	prog := &wfast.Program{Subworkflows: []*wfast.Subworkflow{
		{Name: "main", Steps: []*wfast.Step{{Kind: wfast.KindAssign}}},
		{Name: "helper", Steps: []*wfast.Step{{Kind: wfast.KindAssign}}},
	}}
	New().Assign(prog)
	if got := prog.Subworkflows[0].Steps[0].Name; got != "assign1" {
		t.Errorf("got %q, want assign1", got)
	}
	if got := prog.Subworkflows[1].Steps[0].Name; got != "assign2" {
		t.Errorf("counters are shared across subworkflows by design; got %q, want assign2", got)
	}
}
