package strategy

import (
	"fmt"
	"strings"

	"github.com/rustyeddy/backtester/indicators"
)

// NodeType discriminates the two kinds of rule tree node.
type NodeType string

const (
	NodeCondition NodeType = "condition"
	NodeGroup     NodeType = "group"
)

// Comparator relates the left and right operand of a condition.
type Comparator string

const (
	LT           Comparator = "LT"
	GT           Comparator = "GT"
	LTE          Comparator = "LTE"
	GTE          Comparator = "GTE"
	CrossesAbove Comparator = "CROSSES_ABOVE"
	CrossesBelow Comparator = "CROSSES_BELOW"
)

// Operator combines the children of a group.
type Operator string

const (
	And Operator = "AND"
	Or  Operator = "OR"
)

// Operand is the right-hand side of a condition: exactly one of an
// indicator or a literal value.
type Operand struct {
	Indicator *indicators.Ref `json:"indicator,omitempty" yaml:"indicator,omitempty"`
	Value     *float64        `json:"value,omitempty" yaml:"value,omitempty"`
}

// Node is one element of a rule tree. Type selects which fields apply:
// a condition uses Left, Comparator and Right; a group uses Operator and
// Children.
type Node struct {
	Type NodeType `json:"type" yaml:"type"`

	Left       indicators.Ref `json:"left,omitempty" yaml:"left,omitempty"`
	Comparator Comparator     `json:"comparator,omitempty" yaml:"comparator,omitempty"`
	Right      Operand        `json:"right,omitempty" yaml:"right,omitempty"`

	Operator Operator `json:"operator,omitempty" yaml:"operator,omitempty"`
	Children []Node   `json:"children,omitempty" yaml:"children,omitempty"`
}

// Cond builds a condition comparing left against another indicator.
func Cond(left indicators.Ref, cmp Comparator, right indicators.Ref) Node {
	r := right
	return Node{Type: NodeCondition, Left: left, Comparator: cmp, Right: Operand{Indicator: &r}}
}

// CondValue builds a condition comparing left against a literal.
func CondValue(left indicators.Ref, cmp Comparator, v float64) Node {
	return Node{Type: NodeCondition, Left: left, Comparator: cmp, Right: Operand{Value: &v}}
}

// All builds an AND group.
func All(children ...Node) Node {
	return Node{Type: NodeGroup, Operator: And, Children: children}
}

// Any builds an OR group.
func Any(children ...Node) Node {
	return Node{Type: NodeGroup, Operator: Or, Children: children}
}

// Refs appends every indicator the tree references to dst.
func (n *Node) Refs(dst []indicators.Ref) []indicators.Ref {
	if n == nil {
		return dst
	}
	switch n.Type {
	case NodeCondition:
		dst = append(dst, n.Left)
		if n.Right.Indicator != nil {
			dst = append(dst, *n.Right.Indicator)
		}
	case NodeGroup:
		for i := range n.Children {
			dst = n.Children[i].Refs(dst)
		}
	}
	return dst
}

func (n Node) String() string {
	switch n.Type {
	case NodeCondition:
		return fmt.Sprintf("%s %s %s", n.Left, n.Comparator, n.Right)
	case NodeGroup:
		parts := make([]string, len(n.Children))
		for i, c := range n.Children {
			parts[i] = c.String()
		}
		return "(" + strings.Join(parts, " "+string(n.Operator)+" ") + ")"
	}
	return "<invalid node>"
}

func (o Operand) String() string {
	switch {
	case o.Indicator != nil:
		return o.Indicator.String()
	case o.Value != nil:
		return fmt.Sprintf("%g", *o.Value)
	}
	return "<none>"
}
