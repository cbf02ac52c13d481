package latexwalker

// testSpecs returns a small specification database covering the macros,
// environments, and specials exercised by the tests in this package: a
// couple of macros with optional and mandatory arguments, a math-mode
// environment, and a specials trigger.
func testSpecs() *ContextDB {
	db := NewContextDB()
	db.AddMacro(MacroSpec{Name: "textbf", Args: FixedArgsParser{ArgSpec: "{"}})
	db.AddMacro(MacroSpec{Name: "section", Args: FixedArgsParser{ArgSpec: "[{"}})
	db.AddMacro(MacroSpec{Name: "emph", Args: FixedArgsParser{ArgSpec: "{"}})
	db.AddEnvironment(EnvironmentSpec{Name: "equation", IsMathMode: true})
	db.AddEnvironment(EnvironmentSpec{Name: "itemize"})
	db.AddSpecials(SpecialsSpec{Chars: "~"})
	db.AddSpecials(SpecialsSpec{Chars: "&&"})
	db.AddSpecials(SpecialsSpec{Chars: "&"})
	return db
}
