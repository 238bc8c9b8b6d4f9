package lower

import (
	"testing"

	"github.com/ts2wf/compiler/surface"
	"github.com/ts2wf/compiler/wfast"
	"github.com/ts2wf/compiler/wfexpr"
)

func assignExpr(left surface.Node, op surface.AssignmentOperator, right surface.Expression) *surface.AssignmentExpression {
	return &surface.AssignmentExpression{Left: left, Operator: op, Right: right}
}

func TestLowerPlainAssignment(t *testing.T) {
	steps, err := LowerStatement(testCtx(), exprStmt(assignExpr(ident("x"), surface.AssignPlain, numLit(2))))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(steps) != 1 || steps[0].Kind != wfast.KindAssign {
		t.Fatalf("got %#v, want a single Assign step", steps)
	}
	if steps[0].Assign[0].Target.Base != "x" {
		t.Fatalf("got target %q, want x", steps[0].Assign[0].Target.Base)
	}
}

func TestLowerAssignmentWithCallRHSBecomesCallStep(t *testing.T) {
	call := &surface.CallExpression{Callee: ident("http.get"), Args: nil}
	steps, err := LowerStatement(testCtx(), exprStmt(assignExpr(ident("res"), surface.AssignPlain, call)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(steps) != 1 || steps[0].Kind != wfast.KindCall || steps[0].Call.Result != "res" {
		t.Fatalf("got %#v, want a Call step writing into res", steps)
	}
}

func TestLowerAssignmentTargetMustBeVariableReference(t *testing.T) {
	bad := assignExpr(numLit(1), surface.AssignPlain, numLit(2))
	if _, err := LowerStatement(testCtx(), exprStmt(bad)); err == nil {
		t.Fatal("expected an error for a non-reference assignment target")
	}
}

func TestLowerCompoundAssignmentAddsBinaryOp(t *testing.T) {
	steps, err := LowerStatement(testCtx(), exprStmt(assignExpr(ident("x"), surface.AssignAdd, numLit(1))))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bin, ok := steps[0].Assign[0].Value.(*wfexpr.Binary)
	if !ok || bin.Op != wfexpr.Add {
		t.Fatalf("got %#v, want an Add binary expression", steps[0].Assign[0].Value)
	}
}

func TestLowerCompoundAssignmentHoistsImpureComputedIndex(t *testing.T) {
	lhs := &surface.MemberExpression{
		Object: &surface.MemberExpression{
			Object:   ident("a"),
			Property: &surface.CallExpression{Callee: ident("f"), Args: nil},
			Computed: true,
		},
		Property: ident("x"),
		Computed: false,
	}
	steps, err := LowerStatement(testCtx(), exprStmt(assignExpr(lhs, surface.AssignAdd, numLit(1))))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(steps) != 2 {
		t.Fatalf("got %d steps, want a hoisted index temp plus the compound assign: %#v", len(steps), steps)
	}
	tempName := steps[0].Assign[0].Target.Base
	call, ok := steps[0].Assign[0].Value.(*wfexpr.FunctionInvocation)
	if !ok || call.Function != "f" {
		t.Fatalf("expected f() hoisted once into a temp, got %#v", steps[0].Assign[0].Value)
	}
	final := steps[1]
	target := final.Assign[0].Target
	idxRef, ok := target.Accessors[0].Index.(*wfexpr.VariableReference)
	if !ok || idxRef.Base != tempName {
		t.Fatalf("expected the target's computed index to reuse the hoisted temp %q, got %#v", tempName, target.Accessors[0].Index)
	}
	bin, ok := final.Assign[0].Value.(*wfexpr.Binary)
	if !ok {
		t.Fatalf("expected the assigned value to be a binary add, got %#v", final.Assign[0].Value)
	}
	leftRef, ok := bin.Left.(*wfexpr.VariableReference)
	if !ok {
		t.Fatalf("expected the binary's left operand to be the same target reference, got %#v", bin.Left)
	}
	leftIdx, ok := leftRef.Accessors[0].Index.(*wfexpr.VariableReference)
	if !ok || leftIdx.Base != tempName {
		t.Fatalf("expected the binary's left operand to reuse the hoisted temp %q too (no second call to f), got %#v", tempName, leftRef.Accessors[0].Index)
	}
}

func TestLowerCompoundAssignmentRejectsUnknownOperator(t *testing.T) {
	bad := assignExpr(ident("x"), surface.AssignmentOperator("**="), numLit(1))
	if _, err := LowerStatement(testCtx(), exprStmt(bad)); err == nil {
		t.Fatal("expected an error for an unsupported compound assignment operator")
	}
}

func TestLowerAssignmentToDestructuringPattern(t *testing.T) {
	pat := &surface.ArrayPattern{Elements: []surface.Pattern{ident("a"), ident("b")}}
	assign := &surface.AssignmentExpression{Left: pat, Operator: surface.AssignPlain, Right: ident("pair")}
	steps, err := LowerStatement(testCtx(), exprStmt(assign))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(steps) != 2 {
		t.Fatalf("expected the len() assign plus the guarded Switch, got %d steps", len(steps))
	}
}

func TestLowerCallStepExplicitNamedArgs(t *testing.T) {
	obj := &surface.ObjectExpression{Properties: []surface.Property{
		{Key: ident("url"), Value: strLit("http://x")},
	}}
	call := &surface.CallExpression{
		Callee: ident("call_step"),
		Args:   []surface.Expression{strLit("http.get"), obj},
	}
	steps, err := LowerStatement(testCtx(), exprStmt(call))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(steps) != 1 || steps[0].Call.Function != "http.get" {
		t.Fatalf("got %#v, want a Call step for http.get", steps)
	}
	if got := steps[0].Call.Args.Keys(); len(got) != 1 || got[0] != "url" {
		t.Fatalf("got args keys %v, want [url]", got)
	}
}

func TestLowerCallStepRequiresTwoArguments(t *testing.T) {
	call := &surface.CallExpression{Callee: ident("call_step"), Args: []surface.Expression{strLit("f")}}
	if _, err := LowerStatement(testCtx(), exprStmt(call)); err == nil {
		t.Fatal("expected an error when call_step has the wrong arity")
	}
}

func TestLowerBlockingCallUsesRegisteredParamNames(t *testing.T) {
	call := &surface.CallExpression{
		Callee: &surface.MemberExpression{Object: ident("http"), Property: ident("get"), Computed: false},
		Args:   []surface.Expression{strLit("http://x")},
	}
	steps, err := LowerStatement(testCtx(), exprStmt(call))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if steps[0].Call.Function != "http.get" {
		t.Fatalf("got function %q, want http.get", steps[0].Call.Function)
	}
	if got := steps[0].Call.Args.Keys(); len(got) != 1 || got[0] != "url" {
		t.Fatalf("got keys %v, want [url]", got)
	}
}

func TestLowerGenericCallBindsInvocationToTemp(t *testing.T) {
	call := &surface.CallExpression{
		Callee: ident("myFunc"),
		Args:   []surface.Expression{numLit(1), numLit(2)},
	}
	steps, err := LowerStatement(testCtx(), exprStmt(call))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(steps) != 1 || steps[0].Kind != wfast.KindAssign {
		t.Fatalf("got %#v, want an Assign binding the invocation result to a temp", steps)
	}
	inv, ok := steps[0].Assign[0].Value.(*wfexpr.FunctionInvocation)
	if !ok || inv.Function != "myFunc" || len(inv.Args) != 2 {
		t.Fatalf("got %#v, want a myFunc(1, 2) invocation expression", steps[0].Assign[0].Value)
	}
}

func TestLowerGenericCallBindsToDeclaredVariable(t *testing.T) {
	call := &surface.CallExpression{Callee: ident("myFunc"), Args: nil}
	decl := &surface.VariableDeclaration{
		DeclKind:     surface.KindConst,
		Declarations: []surface.VariableDeclarator{{Id: ident("out"), Init: call}},
	}
	steps, err := LowerStatement(testCtx(), decl)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(steps) != 1 || steps[0].Kind != wfast.KindAssign || steps[0].Assign[0].Target.Base != "out" {
		t.Fatalf("got %#v, want the invocation assigned straight into out", steps)
	}
}

func TestLowerBlockingCallResultIntoMemberTarget(t *testing.T) {
	call := &surface.CallExpression{
		Callee: &surface.MemberExpression{Object: ident("http"), Property: ident("get"), Computed: false},
		Args:   []surface.Expression{strLit("http://x")},
	}
	lhs := &surface.MemberExpression{Object: ident("state"), Property: ident("res"), Computed: false}
	steps, err := LowerStatement(testCtx(), exprStmt(assignExpr(lhs, surface.AssignPlain, call)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(steps) != 2 || steps[0].Kind != wfast.KindCall || steps[1].Kind != wfast.KindAssign {
		t.Fatalf("got %#v, want call-into-temp then assign-into-member", steps)
	}
	if steps[0].Call.Result != steps[1].Assign[0].Value.(*wfexpr.VariableReference).Base {
		t.Fatalf("the follow-up assign must read the call's result temp")
	}
	if steps[1].Assign[0].Target.Base != "state" {
		t.Fatalf("got final target %#v, want state.res", steps[1].Assign[0].Target)
	}
}

func TestLowerGenericCallRejectsSpreadArgument(t *testing.T) {
	call := &surface.CallExpression{
		Callee: ident("myFunc"),
		Args:   []surface.Expression{&surface.SpreadElement{Argument: ident("xs")}},
	}
	if _, err := LowerStatement(testCtx(), exprStmt(call)); err == nil {
		t.Fatal("expected an error for a spread argument in a generic call")
	}
}

func TestLowerCallRejectsBareRetryPolicyOutsideTry(t *testing.T) {
	call := &surface.CallExpression{Callee: ident("retry_policy"), Args: []surface.Expression{strLit("http.default")}}
	if _, err := LowerStatement(testCtx(), exprStmt(call)); err == nil {
		t.Fatal("expected an error for retry_policy(...) outside a try block")
	}
}
