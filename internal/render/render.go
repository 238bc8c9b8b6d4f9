// Package render serialises a lowered, resolved wfast.Program into the
// generic map/slice document shape GCW workflow YAML uses, and offers a
// thin YAML-text convenience wrapper on top via gopkg.in/yaml.v3. Each
// subworkflow renders as a keyed mapping with optional params and a steps
// sequence, each step as a single-key {stepName: {stepKind: payload}}
// mapping — the shape the consuming workflow service reads back.
package render

import (
	"gopkg.in/yaml.v3"

	"github.com/ts2wf/compiler/wfast"
	"github.com/ts2wf/compiler/wfexpr"
)

// ToDoc renders prog as an ordered top-level document: one key per
// subworkflow, in declaration order.
func ToDoc(prog *wfast.Program) *yaml.Node {
	root := mappingNode()
	for _, sw := range prog.Subworkflows {
		addMapEntry(root, sw.Name, subworkflowDoc(sw))
	}
	return root
}

// ToYAML renders prog directly to GCW workflow YAML text.
func ToYAML(prog *wfast.Program) ([]byte, error) {
	return yaml.Marshal(ToDoc(prog))
}

func subworkflowDoc(sw *wfast.Subworkflow) *yaml.Node {
	n := mappingNode()
	if len(sw.Params) > 0 {
		addMapEntry(n, "params", paramsDoc(sw.Params))
	}
	addMapEntry(n, "steps", stepsDoc(sw.Steps))
	return n
}

func paramsDoc(params []wfast.Param) *yaml.Node {
	seq := sequenceNode()
	for _, p := range params {
		if p.Default == nil {
			seq.Content = append(seq.Content, scalarNode(p.Name))
			continue
		}
		m := mappingNode()
		addMapEntry(m, p.Name, exprDoc(p.Default))
		seq.Content = append(seq.Content, m)
	}
	return seq
}

func stepsDoc(steps []*wfast.Step) *yaml.Node {
	seq := sequenceNode()
	for _, s := range steps {
		m := mappingNode()
		addMapEntry(m, s.Name, stepBodyDoc(s))
		seq.Content = append(seq.Content, m)
	}
	return seq
}

func stepBodyDoc(s *wfast.Step) *yaml.Node {
	switch s.Kind {
	case wfast.KindAssign:
		return assignDoc(s)
	case wfast.KindCall:
		return callDoc(s)
	case wfast.KindSwitch:
		return switchDoc(s)
	case wfast.KindFor:
		return forDoc(s.For, s.Next)
	case wfast.KindParallel, wfast.KindParallelIteration:
		return parallelDoc(s)
	case wfast.KindTry:
		return tryDoc(s)
	case wfast.KindReturn:
		return returnDoc(s)
	case wfast.KindRaise:
		m := mappingNode()
		addMapEntry(m, "raise", exprDoc(s.Raise))
		return m
	case wfast.KindNext:
		m := mappingNode()
		addMapEntry(m, "next", scalarNode(s.Next))
		return m
	default:
		return mappingNode()
	}
}

func assignDoc(s *wfast.Step) *yaml.Node {
	seq := sequenceNode()
	for _, a := range s.Assign {
		m := mappingNode()
		addMapEntry(m, variableRefText(a.Target), exprDoc(a.Value))
		seq.Content = append(seq.Content, m)
	}
	m := mappingNode()
	addMapEntry(m, "assign", seq)
	addNextIfSet(m, s.Next)
	return m
}

func callDoc(s *wfast.Step) *yaml.Node {
	m := mappingNode()
	addMapEntry(m, "call", scalarNode(s.Call.Function))
	if s.Call.Args != nil && len(s.Call.Args.Keys()) > 0 {
		argsNode := mappingNode()
		for _, k := range s.Call.Args.Keys() {
			v, _ := s.Call.Args.Get(k)
			addMapEntry(argsNode, k, exprDoc(v))
		}
		addMapEntry(m, "args", argsNode)
	}
	if s.Call.Result != "" {
		addMapEntry(m, "result", scalarNode(s.Call.Result))
	}
	addNextIfSet(m, s.Next)
	return m
}

func switchDoc(s *wfast.Step) *yaml.Node {
	seq := sequenceNode()
	for _, b := range s.Switch {
		cond := mappingNode()
		addMapEntry(cond, "condition", exprDoc(b.Condition))
		if len(b.Steps) > 0 {
			addMapEntry(cond, "steps", stepsDoc(b.Steps))
		}
		if b.Next != "" {
			addMapEntry(cond, "next", scalarNode(b.Next))
		}
		seq.Content = append(seq.Content, cond)
	}
	m := mappingNode()
	addMapEntry(m, "switch", seq)
	addNextIfSet(m, s.Next)
	return m
}

func forDoc(f *wfast.For, next string) *yaml.Node {
	inner := mappingNode()
	addMapEntry(inner, "value", scalarNode(f.Value))
	if f.Index != "" {
		addMapEntry(inner, "index", scalarNode(f.Index))
	}
	if f.HasRange {
		addMapEntry(inner, "range", rangeDoc(f.RangeStart, f.RangeEnd))
	} else {
		addMapEntry(inner, "in", exprDoc(f.In))
	}
	addMapEntry(inner, "steps", stepsDoc(f.Steps))
	m := mappingNode()
	addMapEntry(m, "for", inner)
	addNextIfSet(m, next)
	return m
}

func rangeDoc(start, end wfexpr.Expr) *yaml.Node {
	seq := sequenceNode()
	seq.Content = append(seq.Content, exprDoc(start), exprDoc(end))
	return seq
}

func parallelDoc(s *wfast.Step) *yaml.Node {
	inner := mappingNode()
	p := s.Parallel
	if len(p.Shared) > 0 {
		seq := sequenceNode()
		for _, name := range p.Shared {
			seq.Content = append(seq.Content, scalarNode(name))
		}
		addMapEntry(inner, "shared", seq)
	}
	if p.ConcurrencyLimit > 0 {
		addMapEntry(inner, "concurrency_limit", scalarNode(p.ConcurrencyLimit))
	}
	if p.ExceptionPolicy != "" {
		addMapEntry(inner, "exception_policy", scalarNode(p.ExceptionPolicy))
	}
	if p.For != nil {
		addMapEntry(inner, "for", forDoc(p.For, ""))
	} else {
		branches := sequenceNode()
		for _, b := range p.Branches {
			bm := mappingNode()
			steps := mappingNode()
			addMapEntry(steps, "steps", stepsDoc(b.Steps))
			addMapEntry(bm, b.Name, steps)
			branches.Content = append(branches.Content, bm)
		}
		addMapEntry(inner, "branches", branches)
	}
	m := mappingNode()
	addMapEntry(m, "parallel", inner)
	addNextIfSet(m, s.Next)
	return m
}

func tryDoc(s *wfast.Step) *yaml.Node {
	t := s.Try
	tryInner := mappingNode()
	addMapEntry(tryInner, "steps", stepsDoc(t.TryBody))
	m := mappingNode()
	addMapEntry(m, "try", tryInner)
	if t.Except != nil {
		exceptInner := mappingNode()
		if t.Except.As != "" {
			addMapEntry(exceptInner, "as", scalarNode(t.Except.As))
		}
		addMapEntry(exceptInner, "steps", stepsDoc(t.Except.Steps))
		addMapEntry(m, "except", exceptInner)
	}
	if t.Retry != nil {
		addMapEntry(m, "retry", retryDoc(t.Retry))
	}
	addNextIfSet(m, s.Next)
	return m
}

func retryDoc(r *wfast.Retry) *yaml.Node {
	if r.PolicyName != "" {
		return scalarNode(r.PolicyName)
	}
	c := r.Custom
	m := mappingNode()
	if c.Predicate != "" {
		addMapEntry(m, "predicate", scalarNode(c.Predicate))
	}
	if c.MaxRetries != nil {
		addMapEntry(m, "max_retries", exprDoc(c.MaxRetries))
	}
	backoff := mappingNode()
	if c.Backoff.InitialDelay != nil {
		addMapEntry(backoff, "initial_delay", exprDoc(c.Backoff.InitialDelay))
	}
	if c.Backoff.MaxDelay != nil {
		addMapEntry(backoff, "max_delay", exprDoc(c.Backoff.MaxDelay))
	}
	if c.Backoff.Multiplier != nil {
		addMapEntry(backoff, "multiplier", exprDoc(c.Backoff.Multiplier))
	}
	addMapEntry(m, "backoff", backoff)
	return m
}

func returnDoc(s *wfast.Step) *yaml.Node {
	m := mappingNode()
	if s.HasReturn {
		addMapEntry(m, "return", exprDoc(s.Return))
	} else {
		addMapEntry(m, "next", scalarNode("end"))
	}
	return m
}

func addNextIfSet(m *yaml.Node, next string) {
	if next != "" {
		addMapEntry(m, "next", scalarNode(next))
	}
}
