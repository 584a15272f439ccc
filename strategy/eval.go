package strategy

import "github.com/rustyeddy/backtester/indicators"

// Source supplies indicator values by bar index. ok is false when the
// value is undefined, e.g. during warm-up.
type Source interface {
	Value(ref indicators.Ref, i int) (float64, bool)
}

// Evaluate reports whether the tree rooted at n holds at bar i.
//
// Groups short-circuit left to right. A condition with an undefined operand
// is false. A nil node is false. The tree is assumed to have passed
// Validate; unknown types, comparators and operators evaluate to false.
func Evaluate(n *Node, i int, src Source) bool {
	if n == nil {
		return false
	}
	switch n.Type {
	case NodeCondition:
		return evalCondition(n, i, src)
	case NodeGroup:
		return evalGroup(n, i, src)
	}
	return false
}

func evalGroup(n *Node, i int, src Source) bool {
	switch n.Operator {
	case And:
		for k := range n.Children {
			if !Evaluate(&n.Children[k], i, src) {
				return false
			}
		}
		return len(n.Children) > 0
	case Or:
		for k := range n.Children {
			if Evaluate(&n.Children[k], i, src) {
				return true
			}
		}
	}
	return false
}

func evalCondition(n *Node, i int, src Source) bool {
	l, ok := src.Value(n.Left, i)
	if !ok {
		return false
	}
	r, ok := operand(n.Right, i, src)
	if !ok {
		return false
	}

	switch n.Comparator {
	case LT:
		return l < r
	case GT:
		return l > r
	case LTE:
		return l <= r
	case GTE:
		return l >= r
	case CrossesAbove, CrossesBelow:
		if i == 0 {
			return false
		}
		pl, ok := src.Value(n.Left, i-1)
		if !ok {
			return false
		}
		pr, ok := operand(n.Right, i-1, src)
		if !ok {
			return false
		}
		if n.Comparator == CrossesAbove {
			return pl <= pr && l > r
		}
		return pl >= pr && l < r
	}
	return false
}

func operand(o Operand, i int, src Source) (float64, bool) {
	if o.Indicator != nil {
		return src.Value(*o.Indicator, i)
	}
	if o.Value != nil {
		return *o.Value, true
	}
	return 0, false
}
