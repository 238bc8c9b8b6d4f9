package lower

import (
	"strings"
	"testing"

	"github.com/ts2wf/compiler/surface"
	"github.com/ts2wf/compiler/wfast"
	"github.com/ts2wf/compiler/wfexpr"
)

func TestLowerTryCatchNoFinally(t *testing.T) {
	try := &surface.TryStatement{
		Block: block(exprStmt(&surface.CallExpression{Callee: ident("a"), Args: nil})),
		Handler: &surface.CatchClause{
			Param: ident("e"),
			Body:  block(exprStmt(&surface.CallExpression{Callee: ident("b"), Args: nil})),
		},
	}
	steps, err := LowerStatement(testCtx(), try)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(steps) != 1 || steps[0].Kind != wfast.KindTry {
		t.Fatalf("got %#v, want a single Try step", steps)
	}
	if steps[0].Try.Except.As != "e" {
		t.Fatalf("got except binding %q, want e", steps[0].Try.Except.As)
	}
}

func TestLowerTryNoCatchNoFinally(t *testing.T) {
	try := &surface.TryStatement{
		Block: block(exprStmt(&surface.CallExpression{Callee: ident("a"), Args: nil})),
	}
	steps, err := LowerStatement(testCtx(), try)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if steps[0].Try.Except != nil {
		t.Fatalf("expected no Except clause, got %#v", steps[0].Try.Except)
	}
}

func TestLowerTryCatchRejectsDestructuredBinding(t *testing.T) {
	try := &surface.TryStatement{
		Block: block(),
		Handler: &surface.CatchClause{
			Param: &surface.ArrayPattern{Elements: []surface.Pattern{ident("a")}},
			Body:  block(),
		},
	}
	if _, err := LowerStatement(testCtx(), try); err == nil {
		t.Fatal("expected an error for a destructured catch binding")
	}
}

func TestLowerTryFinallyWithoutCatchCapturesErrorForReraise(t *testing.T) {
	try := &surface.TryStatement{
		Block:     block(exprStmt(&surface.CallExpression{Callee: ident("a"), Args: nil})),
		Finalizer: block(exprStmt(&surface.CallExpression{Callee: ident("cleanup"), Args: nil})),
	}
	steps, err := LowerStatement(testCtx(), try)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var sawTry, sawEnterLabel, sawReplaySwitch bool
	for _, s := range steps {
		switch s.Kind {
		case wfast.KindTry:
			sawTry = true
			if s.Try.Except == nil {
				t.Fatalf("expected a synthesized Except clause to capture the error")
			}
		case wfast.KindJumpTarget:
			if strings.HasPrefix(s.JumpLabel, "__t2w_finally_enter") {
				sawEnterLabel = true
			}
		case wfast.KindSwitch:
			sawReplaySwitch = true
		}
	}
	if !sawTry || !sawEnterLabel || !sawReplaySwitch {
		t.Fatalf("missing expected structure in %#v", steps)
	}
}

func TestLowerTryFinallyWithCatchRunsFinallyAfter(t *testing.T) {
	try := &surface.TryStatement{
		Block: block(exprStmt(&surface.CallExpression{Callee: ident("a"), Args: nil})),
		Handler: &surface.CatchClause{
			Param: ident("e"),
			Body:  block(exprStmt(&surface.CallExpression{Callee: ident("handle"), Args: nil})),
		},
		Finalizer: block(exprStmt(&surface.CallExpression{Callee: ident("cleanup"), Args: nil})),
	}
	steps, err := LowerStatement(testCtx(), try)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var outer *wfast.Step
	for _, s := range steps {
		if s.Kind == wfast.KindTry {
			outer = s
		}
	}
	if outer == nil {
		t.Fatalf("expected a Try step among %#v", steps)
	}
	// The user's catch sits on an inner Try; the outer one only captures
	// whatever escapes (including an error thrown by the catch body) so the
	// finally still runs before the error resumes unwinding.
	if !strings.HasPrefix(outer.Try.Except.As, "__t2w_finally_err") {
		t.Fatalf("got outer except binding %q, want the synthetic capture variable", outer.Try.Except.As)
	}
	if len(outer.Try.TryBody) != 1 || outer.Try.TryBody[0].Kind != wfast.KindTry {
		t.Fatalf("expected the user try/catch nested inside the capture try, got %#v", outer.Try.TryBody)
	}
	inner := outer.Try.TryBody[0]
	if inner.Try.Except.As != "e" {
		t.Fatalf("got inner except binding %q, want e", inner.Try.Except.As)
	}
}

func TestLowerTryFinallyReturnProtocolStrings(t *testing.T) {
	try := &surface.TryStatement{
		Block:     block(&surface.ReturnStatement{Argument: strLit("OK")}),
		Finalizer: block(exprStmt(&surface.CallExpression{Callee: ident("cleanup"), Args: nil})),
	}
	steps, err := LowerStatement(testCtx(), try)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var outer *wfast.Step
	for _, s := range steps {
		if s.Kind == wfast.KindTry {
			outer = s
		}
	}
	var sawReturnCond bool
	for _, s := range outer.Try.TryBody {
		if s.Kind != wfast.KindAssign {
			continue
		}
		for _, a := range s.Assign {
			if a.Target.Base == "__t2w_finally_condition1" {
				prim, ok := a.Value.(*wfexpr.Primitive)
				if ok && prim.Value == "return" {
					sawReturnCond = true
				}
			}
		}
	}
	if !sawReturnCond {
		t.Fatalf("expected the try body to record condition \"return\", got %#v", outer.Try.TryBody)
	}
	replay := steps[len(steps)-1]
	if replay.Kind != wfast.KindSwitch {
		t.Fatalf("expected a trailing replay switch, got %#v", replay)
	}
	if len(replay.Switch) != 4 {
		t.Fatalf("expected return/return_void/raise/fall-through branches, got %d", len(replay.Switch))
	}
}

func TestLowerBreakAcrossTryFinallyErrors(t *testing.T) {
	try := &surface.TryStatement{
		Block:     block(&surface.BreakStatement{}),
		Finalizer: block(),
	}
	w := &surface.WhileStatement{Test: ident("cond"), Body: try}
	_, err := LowerStatement(testCtx(), w)
	if err == nil {
		t.Fatal("expected an error for break crossing a try/finally boundary")
	}
}

func TestLowerBreakInLoopInsideTryFinallyAllowed(t *testing.T) {
	loop := &surface.WhileStatement{Test: ident("cond"), Body: &surface.BreakStatement{}}
	try := &surface.TryStatement{
		Block:     block(loop),
		Finalizer: block(),
	}
	if _, err := LowerStatement(testCtx(), try); err != nil {
		t.Fatalf("a break that stays inside the try body must lower cleanly, got %v", err)
	}
}

func TestExtractRetryPolicyNamed(t *testing.T) {
	body := []surface.Statement{
		exprStmt(&surface.CallExpression{Callee: ident("retry_policy"), Args: []surface.Expression{strLit("http.default")}}),
		exprStmt(&surface.CallExpression{Callee: ident("a"), Args: nil}),
	}
	retry, rest, err := extractRetryPolicy(testCtx(), body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if retry == nil || retry.PolicyName != "http.default" {
		t.Fatalf("got %#v, want a named retry policy http.default", retry)
	}
	if len(rest) != 1 {
		t.Fatalf("expected retry_policy(...) to be stripped from the body, got %d statements", len(rest))
	}
}

func TestExtractRetryPolicyCustom(t *testing.T) {
	opts := &surface.ObjectExpression{Properties: []surface.Property{
		{Key: ident("max_retries"), Value: numLit(3)},
		{Key: ident("backoff"), Value: &surface.ObjectExpression{Properties: []surface.Property{
			{Key: ident("initial_delay"), Value: numLit(1)},
			{Key: ident("max_delay"), Value: numLit(10)},
			{Key: ident("multiplier"), Value: numLit(2)},
		}}},
	}}
	body := []surface.Statement{
		exprStmt(&surface.CallExpression{Callee: ident("retry_policy"), Args: []surface.Expression{opts}}),
	}
	retry, rest, err := extractRetryPolicy(testCtx(), body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if retry == nil || retry.Custom == nil {
		t.Fatalf("got %#v, want a custom retry policy", retry)
	}
	if len(rest) != 0 {
		t.Fatalf("expected the retry_policy statement to be stripped, got %d remaining", len(rest))
	}
}

func TestExtractRetryPolicyAbsentLeavesBodyUntouched(t *testing.T) {
	body := []surface.Statement{exprStmt(&surface.CallExpression{Callee: ident("a"), Args: nil})}
	retry, rest, err := extractRetryPolicy(testCtx(), body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if retry != nil {
		t.Fatalf("expected no retry policy, got %#v", retry)
	}
	if len(rest) != 1 {
		t.Fatalf("expected the body to be untouched, got %d statements", len(rest))
	}
}

func TestExtractRetryPolicyWrongArityErrors(t *testing.T) {
	body := []surface.Statement{
		exprStmt(&surface.CallExpression{Callee: ident("retry_policy"), Args: []surface.Expression{strLit("a"), strLit("b")}}),
	}
	if _, _, err := extractRetryPolicy(testCtx(), body); err == nil {
		t.Fatal("expected an error for retry_policy(...) with the wrong arity")
	}
}

func TestLowerTryUsesExtractedRetryPolicy(t *testing.T) {
	try := &surface.TryStatement{
		Block: block(
			exprStmt(&surface.CallExpression{Callee: ident("retry_policy"), Args: []surface.Expression{strLit("http.default")}}),
			exprStmt(&surface.CallExpression{Callee: ident("a"), Args: nil}),
		),
	}
	steps, err := LowerStatement(testCtx(), try)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if steps[0].Try.Retry == nil || steps[0].Try.Retry.PolicyName != "http.default" {
		t.Fatalf("got %#v, want the retry policy carried onto the Try step", steps[0].Try.Retry)
	}
	if len(steps[0].Try.TryBody) != 1 {
		t.Fatalf("expected retry_policy(...) to be excluded from the lowered try body, got %d steps", len(steps[0].Try.TryBody))
	}
}
