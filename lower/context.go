// Package lower implements statement lowering: surface.Statement to a
// sequence of wfast.Step. Expression conversion is
// delegated to package convert; AST transformation and naming happen in
// later passes (package transform, package namegen).
package lower

import (
	"fmt"

	"github.com/ts2wf/compiler/internal/blocking"
	"github.com/ts2wf/compiler/internal/compileerr"
	"github.com/ts2wf/compiler/surface"
	"github.com/ts2wf/compiler/wfast"
	"github.com/ts2wf/compiler/wfexpr"
)

// Context threads the state needed while recursively lowering a function
// body: where break/continue jump to, the finalizer protocol temp names
// active for any enclosing try/finally, and how deep inside nested
// parallel(...) blocks the current statement sits (so hoisted temps don't
// collide across branches). Context is copied by value at every
// recursive descent; lowering a single function body is single-threaded,
// so no field needs a concurrency guard.
type Context struct {
	breakTarget    string
	continueTarget string

	// breakDepth/continueDepth record how many try/finally blocks enclosed
	// the loop that set the corresponding target. A break/continue emitted
	// under a deeper finalizer stack than its target would skip that
	// finally body entirely, so lowering rejects it.
	breakDepth    int
	continueDepth int

	// labelDepths records, per enclosing labelled statement, the finalizer
	// depth at which its label was introduced, for the same crossing check
	// on labelled break/continue.
	labelDepths []labelDepth

	// finalizerTargets stacks the jump-target label of each enclosing
	// try/finally's finally body, innermost last. Its length is the
	// finalizer nesting depth that suffixes the protocol temp names.
	finalizerTargets []string

	// parallelNestingLevel counts enclosing parallel(...) blocks; hoisted
	// temp names are suffixed with this so concurrently-running branches
	// never write the same shared variable.
	parallelNestingLevel int

	blocking  *blocking.Registry
	tempSeq   *int
	functions map[string]*surface.FunctionDeclaration
}

// NewContext returns the top-level context for lowering one subworkflow
// body. functions resolves the bare identifiers parallel(...) uses to name
// its branches back to their top-level declarations.
func NewContext(reg *blocking.Registry, functions map[string]*surface.FunctionDeclaration) Context {
	seq := 0
	return Context{blocking: reg, tempSeq: &seq, functions: functions}
}

type labelDepth struct {
	name  string
	depth int
}

func (c Context) freshBranch() Context {
	c.parallelNestingLevel++
	c.breakTarget = ""
	c.continueTarget = ""
	c.breakDepth = 0
	c.continueDepth = 0
	c.labelDepths = nil
	c.finalizerTargets = nil
	return c
}

func (c Context) finalizerDepth() int { return len(c.finalizerTargets) }

// NewTemp allocates a fresh hoisting temp name, implementing
// convert.TempSource. The name is suffixed by parallel nesting level so
// sibling branches of a parallel(...) never collide on shared state.
func (c Context) NewTemp() string {
	*c.tempSeq++
	if c.parallelNestingLevel > 0 {
		return fmt.Sprintf("__t2w_tmp%d_p%d", *c.tempSeq, c.parallelNestingLevel)
	}
	return fmt.Sprintf("__t2w_tmp%d", *c.tempSeq)
}

// finalizerNames returns the condition/value temp variable names for the
// finalizer protocol at the current nesting depth.
func (c Context) finalizerNames() (cond, value string) {
	return fmt.Sprintf("__t2w_finally_condition%d", c.finalizerDepth()),
		fmt.Sprintf("__t2w_finally_value%d", c.finalizerDepth())
}

// finalizerEnterLabel names the JumpTarget marking the start of the
// innermost enclosing finally body, the unconditional unwind destination
// for a return or throw nested arbitrarily deep inside the try.
func (c Context) finalizerEnterLabel() string {
	return c.finalizerTargets[len(c.finalizerTargets)-1]
}

// newLabel allocates a unique synthetic jump-target label. Labels share the
// temp counter so two constructs of the same kind (nested whiles, two
// sequential try/finally blocks) never collide in the resolver's label map.
func (c Context) newLabel(base string) string {
	*c.tempSeq++
	return fmt.Sprintf("%s_%d", base, *c.tempSeq)
}

func (c Context) withLoopTargets(breakT, continueT string) Context {
	c.breakTarget = breakT
	c.continueTarget = continueT
	c.breakDepth = c.finalizerDepth()
	c.continueDepth = c.finalizerDepth()
	return c
}

// withBreakTarget redirects only break, leaving continue bound to any
// enclosing loop: switch case bodies break to the end-of-switch target but
// continue straight through to the loop around them.
func (c Context) withBreakTarget(target string) Context {
	c.breakTarget = target
	c.breakDepth = c.finalizerDepth()
	return c
}

func (c Context) withLabel(name string) Context {
	c.labelDepths = append(c.labelDepths, labelDepth{name: name, depth: c.finalizerDepth()})
	return c
}

func (c Context) labelDepth(name string) (int, bool) {
	for i := len(c.labelDepths) - 1; i >= 0; i-- {
		if c.labelDepths[i].name == name {
			return c.labelDepths[i].depth, true
		}
	}
	return 0, false
}

func (c Context) pushFinalizer(enterLabel string) Context {
	c.finalizerTargets = append(c.finalizerTargets, enterLabel)
	return c
}

func unsupported(loc surface.Loc, format string, args ...interface{}) *compileerr.Error {
	return compileerr.Unsupportedf(loc, format, args...)
}

// assignStep is a convenience constructor for a single-assignment Assign
// step.
func assignStep(target *wfexpr.VariableReference, value wfexpr.Expr) *wfast.Step {
	return &wfast.Step{Kind: wfast.KindAssign, Assign: []wfast.Assignment{{Target: target, Value: value}}}
}

func jumpTarget(label string) *wfast.Step {
	return &wfast.Step{Kind: wfast.KindJumpTarget, JumpLabel: label}
}
