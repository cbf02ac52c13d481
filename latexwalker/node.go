package latexwalker

import "fmt"

// Span identifies a byte range [Pos, Pos+Len) in a ParsedContext's source
// string. Every node's Span must exactly reconstruct the node's source text
// through ParsedContext.Verbatim; for Group, Environment, and Math nodes the
// span includes the delimiters even though the node's child list does not.
type Span struct {
	Pos int
	Len int
}

// End returns the position immediately after the span.
func (s Span) End() int { return s.Pos + s.Len }

// Node is satisfied by every node variant the walker can produce. It is
// modeled as a tagged sum type: one struct per concrete shape below, rather
// than a class hierarchy, following the same pattern document.go uses for
// the org-mode node tree.
type Node interface {
	// Position returns the node's byte span in the parsed source.
	Position() Span
	// Context returns the parse this node belongs to, for resolving its
	// verbatim text or looking specs back up.
	Context() *ParsedContext
	// String returns the node's own verbatim source text.
	String() string
	// Range iterates over the node's direct children, stopping early if f
	// returns false. Leaf nodes range over nothing.
	Range(f func(Node) bool)
	// Dump returns a plain, JSON-friendly representation of the node,
	// suitable for a caller that wants to serialize or inspect the tree
	// without depending on the concrete node types.
	Dump() map[string]any
}

type baseNode struct {
	ctx  *ParsedContext
	span Span
}

func (n baseNode) Position() Span          { return n.span }
func (n baseNode) Context() *ParsedContext { return n.ctx }
func (n baseNode) String() string          { return n.ctx.Verbatim(n.span) }

func dumpNodes(nodes []Node) []map[string]any {
	out := make([]map[string]any, len(nodes))
	for i, n := range nodes {
		out[i] = n.Dump()
	}
	return out
}

func rangeNodes(nodes []Node, f func(Node) bool) {
	for _, n := range nodes {
		if !f(n) {
			return
		}
	}
}

// CharsNode is a run of plain characters, including standalone whitespace
// and paragraph breaks (Chars == "\n\n").
type CharsNode struct {
	baseNode
	Chars string
}

func newCharsNode(ctx *ParsedContext, span Span, chars string) *CharsNode {
	return &CharsNode{baseNode{ctx, span}, chars}
}

func (n *CharsNode) Range(func(Node) bool) {}

func (n *CharsNode) Dump() map[string]any {
	return map[string]any{"kind": "chars", "pos": n.span.Pos, "len": n.span.Len, "chars": n.Chars}
}

// CommentNode is a "%"-introduced comment, up to (not including) the line
// break that ends it. PostSpace holds the consumed line break plus any
// leading indent on the following line, mirroring how a macro's PostSpace
// is stripped out of the following content.
type CommentNode struct {
	baseNode
	Comment   string
	PostSpace string
}

func newCommentNode(ctx *ParsedContext, span Span, comment, postSpace string) *CommentNode {
	return &CommentNode{baseNode{ctx, span}, comment, postSpace}
}

func (n *CommentNode) Range(func(Node) bool) {}

func (n *CommentNode) Dump() map[string]any {
	return map[string]any{"kind": "comment", "pos": n.span.Pos, "len": n.span.Len, "comment": n.Comment}
}

// GroupNode is a brace or bracket delimited group, "{...}" or "[...]". The
// span includes the delimiters; Nodelist does not.
type GroupNode struct {
	baseNode
	Nodelist  []Node
	BraceType byte // '{' or '['
}

func newGroupNode(ctx *ParsedContext, span Span, nodelist []Node, braceType byte) *GroupNode {
	return &GroupNode{baseNode{ctx, span}, nodelist, braceType}
}

func (n *GroupNode) Range(f func(Node) bool) { rangeNodes(n.Nodelist, f) }

func (n *GroupNode) Dump() map[string]any {
	return map[string]any{
		"kind": "group", "pos": n.span.Pos, "len": n.span.Len,
		"brace_type": string(n.BraceType), "nodelist": dumpNodes(n.Nodelist),
	}
}

// MacroNode is a control-word or control-symbol invocation, "\name", together
// with whatever arguments its MacroSpec's ArgumentParser consumed. Args is
// nil for a macro read as a bare expression by GetLatexExpression; a macro
// read by GetLatexNodes always has non-nil Args, an unrecognized macro being
// given the database's default no-args spec rather than failing.
type MacroNode struct {
	baseNode
	Name      string
	Args      *ParsedArgs
	PostSpace string
}

func newMacroNode(ctx *ParsedContext, span Span, name string, args *ParsedArgs, postSpace string) *MacroNode {
	return &MacroNode{baseNode{ctx, span}, name, args, postSpace}
}

func (n *MacroNode) Range(f func(Node) bool) {
	if n.Args != nil {
		n.Args.Range(f)
	}
}

func (n *MacroNode) Dump() map[string]any {
	return map[string]any{
		"kind": "macro", "pos": n.span.Pos, "len": n.span.Len,
		"name": n.Name, "args": n.Args.dump(),
	}
}

// EnvironmentNode is a "\begin{name}...\end{name}" pair. The span includes
// both delimiters; Nodelist holds only what was parsed in between.
type EnvironmentNode struct {
	baseNode
	Name     string
	Args     *ParsedArgs
	Nodelist []Node
}

func newEnvironmentNode(ctx *ParsedContext, span Span, name string, nodelist []Node, args *ParsedArgs) *EnvironmentNode {
	return &EnvironmentNode{baseNode{ctx, span}, name, args, nodelist}
}

func (n *EnvironmentNode) Range(f func(Node) bool) {
	if n.Args != nil {
		if !rangeStops(n.Args, f) {
			return
		}
	}
	rangeNodes(n.Nodelist, f)
}

func (n *EnvironmentNode) Dump() map[string]any {
	return map[string]any{
		"kind": "environment", "pos": n.span.Pos, "len": n.span.Len,
		"name": n.Name, "args": n.Args.dump(), "nodelist": dumpNodes(n.Nodelist),
	}
}

// SpecialsNode is a non-alphanumeric character sequence registered in the
// spec database as having its own meaning, such as "&" or "~". Args is nil
// when the specials spec declares no argument parser at all -- a distinct
// state from "parsed, but turned out to have zero arguments".
type SpecialsNode struct {
	baseNode
	Chars string
	Args  *ParsedArgs
}

func newSpecialsNode(ctx *ParsedContext, span Span, chars string, args *ParsedArgs) *SpecialsNode {
	return &SpecialsNode{baseNode{ctx, span}, chars, args}
}

func (n *SpecialsNode) Range(f func(Node) bool) {
	if n.Args != nil {
		n.Args.Range(f)
	}
}

func (n *SpecialsNode) Dump() map[string]any {
	var args any
	if n.Args != nil {
		args = n.Args.dump()
	}
	return map[string]any{"kind": "specials", "pos": n.span.Pos, "len": n.span.Len, "chars": n.Chars, "args": args}
}

// MathNode is an inline ("$...$", "\(...\)") or display ("$$...$$",
// "\[...\]") math region. Open and Close hold the literal delimiter text.
type MathNode struct {
	baseNode
	Display  bool
	Open     string
	Close    string
	Nodelist []Node
}

func newMathNode(ctx *ParsedContext, span Span, display bool, open, close string, nodelist []Node) *MathNode {
	return &MathNode{baseNode{ctx, span}, display, open, close, nodelist}
}

func (n *MathNode) Range(f func(Node) bool) { rangeNodes(n.Nodelist, f) }

func (n *MathNode) Dump() map[string]any {
	return map[string]any{
		"kind": "math", "pos": n.span.Pos, "len": n.span.Len,
		"display": n.Display, "nodelist": dumpNodes(n.Nodelist),
	}
}

// rangeStops runs f over args's argument nodes, reporting whether every call
// returned true (i.e. Range should keep going into whatever follows).
func rangeStops(args *ParsedArgs, f func(Node) bool) bool {
	keepGoing := true
	args.Range(func(n Node) bool {
		if !f(n) {
			keepGoing = false
			return false
		}
		return true
	})
	return keepGoing
}

var _ Node = (*CharsNode)(nil)
var _ Node = (*CommentNode)(nil)
var _ Node = (*GroupNode)(nil)
var _ Node = (*MacroNode)(nil)
var _ Node = (*EnvironmentNode)(nil)
var _ Node = (*SpecialsNode)(nil)
var _ Node = (*MathNode)(nil)

func describeSpan(s Span) string {
	return fmt.Sprintf("[%d:%d)", s.Pos, s.End())
}
