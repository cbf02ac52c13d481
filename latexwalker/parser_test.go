package latexwalker

import (
	"testing"

	"github.com/go-quicktest/qt"
	"github.com/pmezard/go-difflib/difflib"
)

// assertSpanCovers checks that every node in nodes has a span that exactly
// reconstructs its own source text (for a CharsNode, its Chars), and that consecutive top-level nodes
// are contiguous and non-overlapping. On a span-faithfulness mismatch it
// renders a unified diff of the two strings rather than two opaque blobs,
// since a byte-range divergence in a long snippet is otherwise unreadable
// from a plain "got X want Y" failure.
func assertSpanCovers(t *testing.T, ctx *ParsedContext, nodes []Node) {
	t.Helper()
	prevEnd := -1
	for _, n := range nodes {
		sp := n.Position()
		want := ctx.Verbatim(sp)
		got := n.String()
		if c, ok := n.(*CharsNode); ok {
			got = c.Chars
		}
		if got != want {
			diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
				A:        difflib.SplitLines(want),
				B:        difflib.SplitLines(got),
				FromFile: "verbatim(span)",
				ToFile:   "node text",
				Context:  2,
			})
			t.Fatalf("node span does not reconstruct its source text:\n%s", diff)
		}
		if prevEnd >= 0 {
			qt.Assert(t, qt.Equals(sp.Pos, prevEnd))
		}
		prevEnd = sp.End()
	}
}

// S1: plain text with inline math.
func TestScenarioPlainTextWithInlineMath(t *testing.T) {
	source := "hello $x+y$ world"
	w := Parse(source, testSpecs())
	nodes, pos, length, err := w.GetLatexNodes(0)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(pos, 0))
	qt.Assert(t, qt.Equals(length, len(source)))
	assertSpanCovers(t, w.ctx, nodes)

	qt.Assert(t, qt.HasLen(nodes, 3))
	chars1, ok := nodes[0].(*CharsNode)
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.Equals(chars1.Chars, "hello "))

	mathNode, ok := nodes[1].(*MathNode)
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.IsFalse(mathNode.Display))
	qt.Assert(t, qt.HasLen(mathNode.Nodelist, 1))
	inner, ok := mathNode.Nodelist[0].(*CharsNode)
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.Equals(inner.Chars, "x+y"))

	chars2, ok := nodes[2].(*CharsNode)
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.Equals(chars2.Chars, " world"))
}

// S2: macro with optional and required argument.
func TestScenarioMacroWithOptionalAndRequiredArg(t *testing.T) {
	source := `\section[Short]{Long Title}`
	w := Parse(source, testSpecs())
	nodes, _, length, err := w.GetLatexNodes(0)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(length, len(source)))

	qt.Assert(t, qt.HasLen(nodes, 1))
	macro, ok := nodes[0].(*MacroNode)
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.Equals(macro.Name, "section"))
	qt.Assert(t, qt.HasLen(macro.Args.Slots, 2))

	optSlot := macro.Args.Slots[0]
	qt.Assert(t, qt.IsTrue(optSlot.Optional))
	qt.Assert(t, qt.IsTrue(optSlot.Present))

	reqSlot := macro.Args.Slots[1]
	qt.Assert(t, qt.IsFalse(reqSlot.Optional))
	qt.Assert(t, qt.IsTrue(reqSlot.Present))
}

// S3: environment in math mode.
func TestScenarioEnvironmentInMathMode(t *testing.T) {
	source := `\begin{equation}a=b\end{equation}`
	w := Parse(source, testSpecs())
	nodes, _, length, err := w.GetLatexNodes(0)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(length, len(source)))

	qt.Assert(t, qt.HasLen(nodes, 1))
	env, ok := nodes[0].(*EnvironmentNode)
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.Equals(env.Name, "equation"))
	qt.Assert(t, qt.HasLen(env.Nodelist, 1))
	body, ok := env.Nodelist[0].(*CharsNode)
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.Equals(body.Chars, "a=b"))
}

// S4: paragraph break.
func TestScenarioParagraphBreak(t *testing.T) {
	source := "first\n\nsecond"
	w := Parse(source, testSpecs())
	nodes, _, _, err := w.GetLatexNodes(0)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.HasLen(nodes, 3))

	mid, ok := nodes[1].(*CharsNode)
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.Equals(mid.Chars, "\n\n"))
}

// S5: comment with trailing indent.
func TestScenarioCommentWithTrailingIndent(t *testing.T) {
	source := "a %note\n   b"
	w := Parse(source, testSpecs())
	nodes, _, length, err := w.GetLatexNodes(0)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(length, len(source)))

	qt.Assert(t, qt.HasLen(nodes, 3))
	comment, ok := nodes[1].(*CommentNode)
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.Equals(comment.Comment, "note"))
	qt.Assert(t, qt.Equals(comment.PostSpace, "\n   "))
}

// S6: unmatched brace, tolerant mode.
func TestScenarioUnmatchedBraceTolerant(t *testing.T) {
	source := "{abc"
	w := Parse(source, testSpecs())
	nodes, _, length, err := w.GetLatexNodes(0)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(length, len(source)))
	qt.Assert(t, qt.IsTrue(w.HasErrors()))

	qt.Assert(t, qt.HasLen(nodes, 1))
	group, ok := nodes[0].(*GroupNode)
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.Equals(group.Position().End(), len(source)))
	qt.Assert(t, qt.HasLen(group.Nodelist, 1))
	body, ok := group.Nodelist[0].(*CharsNode)
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.Equals(body.Chars, "abc"))
}

// S6, strict variant: the same input aborts instead of recovering.
func TestScenarioUnmatchedBraceStrict(t *testing.T) {
	source := "{abc"
	w := Parse(source, testSpecs(), WithTolerantParsing(false))
	_, _, _, err := w.GetLatexNodes(0)
	qt.Assert(t, qt.IsNotNil(err))
}

func TestUnexpectedClosingBraceTolerantIsAbsorbedAsText(t *testing.T) {
	// With no frame anywhere waiting for a closing brace, the stray "}"
	// has nowhere structural to go, so it is folded into the surrounding
	// text (and still reported as an error) rather than dropped, keeping
	// every byte of the source covered by some node's span.
	source := "a}b"
	w := Parse(source, testSpecs())
	nodes, _, length, err := w.GetLatexNodes(0)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(length, len(source)))
	qt.Assert(t, qt.IsTrue(w.HasErrors()))

	qt.Assert(t, qt.HasLen(nodes, 1))
	chars, ok := nodes[0].(*CharsNode)
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.Equals(chars.Chars, "a}b"))
	qt.Assert(t, qt.Equals(chars.String(), w.ctx.Verbatim(chars.Position())))
}

func TestNestedGroupMismatchBubblesOutToTopLevel(t *testing.T) {
	// The "}" inside the optional argument doesn't close it (a "]" is
	// wanted there), so it is handed back, unconsumed, out of the
	// optional-argument frame and out of the mandatory-argument
	// expression reader, surfacing at the top level where nothing is
	// waiting for a brace at all -- so it is finally absorbed as text,
	// along with everything after it up to the real "{c}" group.
	source := `\section[a}b]{c}`
	w := Parse(source, testSpecs())
	nodes, _, length, err := w.GetLatexNodes(0)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(length, len(source)))
	qt.Assert(t, qt.IsTrue(w.HasErrors()))
	qt.Assert(t, qt.Equals(w.ErrorCount(), 2))

	qt.Assert(t, qt.HasLen(nodes, 3))
	macro, ok := nodes[0].(*MacroNode)
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.Equals(macro.Name, "section"))

	stray, ok := nodes[1].(*CharsNode)
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.Equals(stray.Chars, "}b]"))

	group, ok := nodes[2].(*GroupNode)
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.Equals(group.String(), "{c}"))
}

func TestDumpRendersNodeTree(t *testing.T) {
	w := Parse(`\textbf{x}`, testSpecs())
	nodes, _, _, err := w.GetLatexNodes(0)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.HasLen(nodes, 1))
	d := nodes[0].Dump()
	qt.Assert(t, qt.Equals(d["kind"], "macro"))
	qt.Assert(t, qt.Equals(d["name"], "textbf"))
}

func TestReadMaxNodesLimitsOutput(t *testing.T) {
	w := Parse("{a}{b}", testSpecs())
	nodes, _, length, err := w.GetLatexNodes(0, ReadMaxNodes(1))
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.HasLen(nodes, 1))
	qt.Assert(t, qt.Equals(length, 3))
}

func TestGetLatexBracedGroupRejectsBadBraceType(t *testing.T) {
	w := Parse("{x}", testSpecs())
	_, _, _, err := w.GetLatexBracedGroup(0, '(', ParsingContext{})
	var ce *ConfigError
	qt.Assert(t, qt.ErrorAs(err, &ce))
}
