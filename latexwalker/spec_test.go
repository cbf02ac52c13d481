package latexwalker

import (
	"testing"

	"github.com/go-quicktest/qt"
)

func TestContextDBMacroLookupFallsBackToNoArgs(t *testing.T) {
	db := testSpecs()

	spec, ok := db.MacroSpec("textbf")
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.Equals(spec.Name, "textbf"))

	spec, ok = db.MacroSpec("nosuchmacro")
	qt.Assert(t, qt.IsFalse(ok))
	if _, isNoArgs := spec.argsParser().(NoArgsParser); !isNoArgs {
		t.Fatalf("expected NoArgsParser fallback for unregistered macro, got %#v", spec.argsParser())
	}
}

func TestContextDBEnvironmentLookupFallsBack(t *testing.T) {
	db := testSpecs()

	spec, ok := db.EnvironmentSpec("equation")
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.IsTrue(spec.IsMathMode))

	spec, ok = db.EnvironmentSpec("nosuchenv")
	qt.Assert(t, qt.IsFalse(ok))
	qt.Assert(t, qt.IsFalse(spec.IsMathMode))
}

func TestTestForSpecialsLongestMatchWins(t *testing.T) {
	db := testSpecs()
	ctx := ParsingContext{}

	spec := db.TestForSpecials("&& x", 0, ctx)
	qt.Assert(t, qt.IsNotNil(spec))
	qt.Assert(t, qt.Equals(spec.Chars, "&&"))

	spec = db.TestForSpecials("& x", 0, ctx)
	qt.Assert(t, qt.IsNotNil(spec))
	qt.Assert(t, qt.Equals(spec.Chars, "&"))
}

func TestTestForSpecialsHonorsMathModeOnly(t *testing.T) {
	db := NewContextDB()
	db.AddSpecials(SpecialsSpec{Chars: "_", MathModeOnly: true})

	qt.Assert(t, qt.IsNil(db.TestForSpecials("_x", 0, ParsingContext{InMathMode: false})))
	qt.Assert(t, qt.IsNotNil(db.TestForSpecials("_x", 0, ParsingContext{InMathMode: true})))
}

func TestParsedArgsRangeSkipsAbsentOptionals(t *testing.T) {
	w := Parse("{a}", testSpecs())
	mandatory, _, _, err := w.GetLatexExpression(0, ParsingContext{})
	qt.Assert(t, qt.IsNil(err))

	args := &ParsedArgs{Slots: []ArgSlot{
		{Optional: true, Present: false},
		{Present: true, Node: mandatory},
	}}
	var seen []Node
	args.Range(func(n Node) bool {
		seen = append(seen, n)
		return true
	})
	qt.Assert(t, qt.HasLen(seen, 1))
}
