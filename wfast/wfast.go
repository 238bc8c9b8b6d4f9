// Package wfast defines the step/program data model this compiler lowers
// surface statements into: a Step closed-variant set owning
// Assign/Call/Switch/For/Parallel/Try/Return/Raise/Next payloads, organised
// into named Subworkflows inside a Program — the same shape the emitted
// workflow YAML carries. One addition has no counterpart in the output: the
// synthetic JumpTarget step used as a placeholder during lowering, erased
// before render.
package wfast

import "github.com/ts2wf/compiler/wfexpr"

// Program owns an ordered, non-shared sequence of sub-workflows.
type Program struct {
	Subworkflows []*Subworkflow
}

// Subworkflow owns a name, an ordered parameter list, and an ordered
// sequence of named steps.
type Subworkflow struct {
	Name   string
	Params []Param
	Steps  []*Step
}

// Param is a sub-workflow parameter; Default is nil when the parameter is
// required.
type Param struct {
	Name    string
	Default wfexpr.Expr
}

// StepKind discriminates which payload field of Step is populated.
type StepKind int

const (
	KindAssign StepKind = iota
	KindCall
	KindSwitch
	KindFor
	KindParallel
	KindParallelIteration
	KindTry
	KindReturn
	KindRaise
	KindNext
	// KindJumpTarget is synthetic: it is erased by the jump resolver
	// (package resolve) and must never reach render.
	KindJumpTarget
)

// Step is a closed variant set; exactly one payload field is populated
// according to Kind. Label overrides the generated step name (used by
// labelled statements and by JumpTargets); Next is an explicit jump hint
// independent of Kind (e.g. a Switch branch's own Next wins over this one).
type Step struct {
	Kind  StepKind
	Name  string // assigned by namegen; empty in a freshly-lowered tree
	Label string // "" unless overridden by a labelled statement or JumpTarget
	Next  string // "" unless this step has an explicit jump hint

	Assign    []Assignment
	Call      *Call
	Switch    []SwitchBranch
	For       *For
	Parallel  *Parallel
	Try       *Try
	Return    wfexpr.Expr // nil means bare `return` with no value
	HasReturn bool
	Raise     wfexpr.Expr
	JumpLabel string // populated only for KindJumpTarget
}

// Assignment is one (target, value) pair within an Assign step. Order
// matters: later pairs may read earlier ones.
type Assignment struct {
	Target *wfexpr.VariableReference
	Value  wfexpr.Expr
}

// Call is a function/subworkflow invocation.
type Call struct {
	Function string
	Args     *wfexpr.OrderedMap // named arguments
	Result   string             // "" if the result is discarded
}

// SwitchBranch is one branch of a Switch step. Next and Steps are mutually
// relevant: Next is a post-resolution jump hint, Steps holds any steps
// inlined directly into the branch (used for if/else lowering and for the
// decreasing-length destructuring cascade).
type SwitchBranch struct {
	Condition wfexpr.Expr
	Next      string
	Steps     []*Step
}

// For is a for-loop: either iterates In, or counts through [RangeStart,
// RangeEnd] inclusive when HasRange is true.
type For struct {
	Value      string
	Index      string // "" if unused
	In         wfexpr.Expr
	HasRange   bool
	RangeStart wfexpr.Expr
	RangeEnd   wfexpr.Expr
	Steps      []*Step
}

// Parallel is a Parallel or ParallelIteration step's shared payload: either
// Branches or For is populated, never both.
type Parallel struct {
	Shared           []string
	Branches         []ParallelBranch
	For              *For
	ConcurrencyLimit int
	ExceptionPolicy  string
}

// ParallelBranch is one named branch of a Parallel step.
type ParallelBranch struct {
	Name  string
	Steps []*Step
}

// Try is a try/except/retry step.
type Try struct {
	TryBody []*Step
	Except  *Except
	Retry   *Retry
}

// Except is the except clause of a Try step.
type Except struct {
	As    string // "" if the error is not bound
	Steps []*Step
}

// Retry configures automatic retry: exactly one of PolicyName or Custom is
// set.
type Retry struct {
	PolicyName string // a named/FQN retry policy, e.g. "http.default_retry"
	Custom     *CustomRetry
}

// CustomRetry is the `{predicate, max_retries, backoff}` retry policy shape.
type CustomRetry struct {
	Predicate  string // FQN of a predicate function, "" if unset
	MaxRetries wfexpr.Expr
	Backoff    Backoff
}

// Backoff configures exponential backoff for a CustomRetry.
type Backoff struct {
	InitialDelay wfexpr.Expr
	MaxDelay     wfexpr.Expr
	Multiplier   wfexpr.Expr
}
