package lower

import (
	"testing"

	"github.com/ts2wf/compiler/surface"
	"github.com/ts2wf/compiler/wfast"
	"github.com/ts2wf/compiler/wfexpr"
)

func TestDestructureArrayBuildsDecreasingLengthCascade(t *testing.T) {
	pat := &surface.ArrayPattern{Elements: []surface.Pattern{ident("a"), ident("b")}}
	steps, err := destructurePattern(testCtx(), pat, wfexpr.Ref("pair"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(steps) != 2 || steps[0].Kind != wfast.KindAssign || steps[1].Kind != wfast.KindSwitch {
		t.Fatalf("got %#v, want a len() temp assign followed by a Switch", steps)
	}
	lenCall, ok := steps[0].Assign[0].Value.(*wfexpr.FunctionInvocation)
	if !ok || lenCall.Function != "len" {
		t.Fatalf("got %#v, want a len(...) call", steps[0].Assign[0].Value)
	}
	branches := steps[1].Switch
	if len(branches) != 3 {
		t.Fatalf("got %d branches, want 3 (>=2, >=1, fallback)", len(branches))
	}
	// Highest-length branch binds both a and b directly off the source.
	top := branches[0]
	if len(top.Steps) != 2 {
		t.Fatalf("got %#v, want both a and b bound in the top branch", top.Steps)
	}
	if top.Steps[0].Assign[0].Target.Base != "a" || top.Steps[1].Assign[0].Target.Base != "b" {
		t.Fatalf("unexpected targets in top branch: %#v", top.Steps)
	}
	// Fallback branch defaults both to null.
	fallback := branches[2]
	if fallback.Condition.(*wfexpr.Primitive).Value != true {
		t.Fatalf("expected the fallback branch condition to be literal true, got %#v", fallback.Condition)
	}
	for _, s := range fallback.Steps {
		if s.Assign[0].Value != wfexpr.Null {
			t.Fatalf("expected the fallback branch to bind null, got %#v", s.Assign[0].Value)
		}
	}
}

func TestDestructureArraySkipsElisionHoles(t *testing.T) {
	pat := &surface.ArrayPattern{Elements: []surface.Pattern{nil, ident("b")}}
	steps, err := destructurePattern(testCtx(), pat, wfexpr.Ref("pair"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Only "b" is a significant (non-hole) position, so only one branch
	// pair (>=2, fallback) is needed and only "b" is ever assigned.
	branches := steps[1].Switch
	if len(branches) != 2 {
		t.Fatalf("got %d branches, want 2 (>=2, fallback)", len(branches))
	}
	for _, br := range branches {
		if len(br.Steps) != 1 || br.Steps[0].Assign[0].Target.Base != "b" {
			t.Fatalf("got %#v, want a single assign to b in every branch", br.Steps)
		}
	}
}

func TestDestructureArrayBareRestUsesListSlice(t *testing.T) {
	pat := &surface.ArrayPattern{Elements: []surface.Pattern{
		&surface.RestElement{Argument: ident("rest")},
	}}
	steps, err := destructurePattern(testCtx(), pat, wfexpr.Ref("xs"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(steps) != 1 {
		t.Fatalf("got %#v, want a single list.slice assign (no cascade needed for a bare rest)", steps)
	}
	call, ok := steps[0].Assign[0].Value.(*wfexpr.FunctionInvocation)
	if !ok || call.Function != "list.slice" {
		t.Fatalf("got %#v, want a list.slice(...) call", steps[0].Assign[0].Value)
	}
}

func TestDestructureArrayRestCollectedViaRangeForLoop(t *testing.T) {
	pat := &surface.ArrayPattern{Elements: []surface.Pattern{
		ident("a"),
		&surface.RestElement{Argument: ident("rest")},
	}}
	steps, err := destructurePattern(testCtx(), pat, wfexpr.Ref("xs"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	top := steps[1].Switch[0]
	var sawInit, sawForLoop bool
	for _, s := range top.Steps {
		if s.Kind == wfast.KindAssign && s.Assign[0].Target.Base == "rest" {
			sawInit = true
		}
		if s.Kind == wfast.KindFor && s.For.HasRange {
			sawForLoop = true
			call, ok := s.For.Steps[0].Assign[0].Value.(*wfexpr.FunctionInvocation)
			if !ok || call.Function != "list.concat" {
				t.Fatalf("got %#v, want the loop body to list.concat into rest", s.For.Steps)
			}
		}
	}
	if !sawInit || !sawForLoop {
		t.Fatalf("expected rest to be initialised to [] then filled by a range For loop, got %#v", top.Steps)
	}
	fallback := steps[1].Switch[len(steps[1].Switch)-1]
	var sawEmptyRest bool
	for _, s := range fallback.Steps {
		if s.Assign[0].Target.Base == "rest" {
			if list, ok := s.Assign[0].Value.(*wfexpr.Primitive); ok {
				if _, isSlice := list.Value.([]wfexpr.Expr); isSlice && len(list.Value.([]wfexpr.Expr)) == 0 {
					sawEmptyRest = true
				}
			}
		}
	}
	if !sawEmptyRest {
		t.Fatalf("expected the fallback branch to bind rest to an empty list, got %#v", fallback.Steps)
	}
}

func TestDestructureArrayRejectsNonTerminalRest(t *testing.T) {
	pat := &surface.ArrayPattern{Elements: []surface.Pattern{
		&surface.RestElement{Argument: ident("rest")},
		ident("b"),
	}}
	if _, err := destructurePattern(testCtx(), pat, wfexpr.Ref("xs")); err == nil {
		t.Fatal("expected an error for a non-terminal rest element")
	}
}

func TestDestructureArrayRejectsNonIdentifierRestTarget(t *testing.T) {
	pat := &surface.ArrayPattern{Elements: []surface.Pattern{
		&surface.RestElement{Argument: &surface.ArrayPattern{Elements: []surface.Pattern{ident("a")}}},
	}}
	if _, err := destructurePattern(testCtx(), pat, wfexpr.Ref("xs")); err == nil {
		t.Fatal("expected an error for a non-identifier rest target")
	}
}

func TestDestructureObjectUsesMapGet(t *testing.T) {
	pat := &surface.ObjectPattern{Properties: []surface.ObjectPatternProperty{
		{Key: ident("a"), Value: ident("a")},
	}}
	steps, err := destructurePattern(testCtx(), pat, wfexpr.Ref("obj"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	call, ok := steps[0].Assign[0].Value.(*wfexpr.FunctionInvocation)
	if !ok || call.Function != "map.get" {
		t.Fatalf("got %#v, want a map.get(...) call (safe on a missing key)", steps[0].Assign[0].Value)
	}
}

func TestDestructureObjectDefaultUsesInTestForLaziness(t *testing.T) {
	pat := &surface.ObjectPattern{Properties: []surface.ObjectPatternProperty{
		{Key: ident("a"), Value: &surface.AssignmentPattern{Left: ident("a"), Right: numLit(99)}},
	}}
	steps, err := destructurePattern(testCtx(), pat, wfexpr.Ref("obj"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(steps) != 2 || steps[0].Kind != wfast.KindSwitch {
		t.Fatalf("got %#v, want a Switch followed by the final assign to a", steps)
	}
	branches := steps[0].Switch
	if len(branches) != 2 {
		t.Fatalf("got %d branches, want present/absent", len(branches))
	}
	bin, ok := branches[0].Condition.(*wfexpr.Binary)
	if !ok || bin.Op != wfexpr.In {
		t.Fatalf("got %#v, want an `in` test as the present-branch condition", branches[0].Condition)
	}
	call, ok := branches[0].Steps[0].Assign[0].Value.(*wfexpr.FunctionInvocation)
	if !ok || call.Function != "map.get" {
		t.Fatalf("got %#v, want the present branch to fetch via map.get", branches[0].Steps[0].Assign[0].Value)
	}
	if def, ok := branches[1].Steps[0].Assign[0].Value.(*wfexpr.Primitive); !ok || def.Value != float64(99) {
		t.Fatalf("got %#v, want the absent branch to assign the default literal", branches[1].Steps[0].Assign[0].Value)
	}
	if steps[1].Assign[0].Target.Base != "a" {
		t.Fatalf("got %#v, want the final assign to bind a", steps[1])
	}
}

func TestDestructureObjectDefaultRejectsNonIdentifierTarget(t *testing.T) {
	pat := &surface.ObjectPattern{Properties: []surface.ObjectPatternProperty{
		{Key: ident("a"), Value: &surface.AssignmentPattern{
			Left:  &surface.ArrayPattern{Elements: []surface.Pattern{ident("x")}},
			Right: numLit(1),
		}},
	}}
	if _, err := destructurePattern(testCtx(), pat, wfexpr.Ref("obj")); err == nil {
		t.Fatal("expected an error for a non-identifier default-assignment target")
	}
}

func TestDestructureObjectRestDeletesSeenKeys(t *testing.T) {
	pat := &surface.ObjectPattern{Properties: []surface.ObjectPatternProperty{
		{Key: ident("a"), Value: ident("a")},
		{Value: &surface.RestElement{Argument: ident("rest")}},
	}}
	steps, err := destructurePattern(testCtx(), pat, wfexpr.Ref("obj"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	restAssign := steps[len(steps)-1]
	call, ok := restAssign.Assign[0].Value.(*wfexpr.FunctionInvocation)
	if !ok || call.Function != "map.delete" {
		t.Fatalf("got %#v, want a map.delete(...) call", restAssign.Assign[0].Value)
	}
}

func TestDestructureObjectRestRejectsNonIdentifierTarget(t *testing.T) {
	pat := &surface.ObjectPattern{Properties: []surface.ObjectPatternProperty{
		{Value: &surface.RestElement{Argument: &surface.ObjectPattern{}}},
	}}
	if _, err := destructurePattern(testCtx(), pat, wfexpr.Ref("obj")); err == nil {
		t.Fatal("expected an error for a non-identifier object rest target")
	}
}

func TestDestructureObjectMalformedRestErrors(t *testing.T) {
	pat := &surface.ObjectPattern{Properties: []surface.ObjectPatternProperty{
		{Value: ident("notARest")},
	}}
	if _, err := destructurePattern(testCtx(), pat, wfexpr.Ref("obj")); err == nil {
		t.Fatal("expected an error for a malformed object rest pattern")
	}
}

func TestDestructureObjectRejectsComputedKey(t *testing.T) {
	pat := &surface.ObjectPattern{Properties: []surface.ObjectPatternProperty{
		{Key: ident("k"), Value: ident("v"), Computed: true},
	}}
	if _, err := destructurePattern(testCtx(), pat, wfexpr.Ref("obj")); err == nil {
		t.Fatal("expected an error for a computed destructuring key")
	}
}

func TestDestructureWithDefaultUsesDefaultFunction(t *testing.T) {
	pat := &surface.AssignmentPattern{Left: ident("x"), Right: numLit(10)}
	steps, err := destructurePattern(testCtx(), pat, wfexpr.Ref("maybe"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assign := steps[len(steps)-1]
	if assign.Assign[0].Target.Base != "x" {
		t.Fatalf("got target %q, want x", assign.Assign[0].Target.Base)
	}
}

func TestDestructureNestedPatternHoistsImpureSource(t *testing.T) {
	inner := &surface.ArrayPattern{Elements: []surface.Pattern{ident("a"), ident("b")}}
	outer := &surface.ObjectPattern{Properties: []surface.ObjectPatternProperty{
		{Key: ident("pair"), Value: inner},
	}}
	steps, err := destructurePattern(testCtx(), outer, wfexpr.Ref("obj"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// map.get(obj, "pair") is impure (a call), so it must be hoisted to a
	// temp before the nested array cascade reads it more than once.
	if steps[0].Kind != wfast.KindAssign {
		t.Fatalf("got %#v, want the map.get result hoisted to a temp first", steps)
	}
	call, ok := steps[0].Assign[0].Value.(*wfexpr.FunctionInvocation)
	if !ok || call.Function != "map.get" {
		t.Fatalf("got %#v, want the hoisted value to come from map.get", steps[0].Assign[0].Value)
	}
	var sawSwitch bool
	for _, s := range steps[1:] {
		if s.Kind == wfast.KindSwitch {
			sawSwitch = true
		}
	}
	if !sawSwitch {
		t.Fatalf("expected the nested array pattern to still emit its length cascade, got %#v", steps)
	}
}
