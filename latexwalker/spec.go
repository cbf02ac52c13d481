package latexwalker

import (
	"strings"
	"sync"
)

// ArgSlot is one argument position parsed by an ArgumentParser: either a
// mandatory argument (Present is always true) or an optional "[...]" group
// that may simply have been absent from the source.
type ArgSlot struct {
	Optional bool
	Present  bool
	Node     Node
}

// ParsedArgs is the result of running a MacroSpec's, EnvironmentSpec's, or
// SpecialsSpec's ArgumentParser. Its Span covers only the argument material
// itself (brackets and braces included), not the macro name or specials
// chars that preceded it.
type ParsedArgs struct {
	Slots []ArgSlot
	Span  Span
}

// Range iterates over the nodes of every present argument slot.
func (a *ParsedArgs) Range(f func(Node) bool) {
	if a == nil {
		return
	}
	for _, slot := range a.Slots {
		if slot.Present && slot.Node != nil {
			if !f(slot.Node) {
				return
			}
		}
	}
}

func (a *ParsedArgs) dump() map[string]any {
	if a == nil {
		return nil
	}
	slots := make([]map[string]any, len(a.Slots))
	for i, slot := range a.Slots {
		m := map[string]any{"optional": slot.Optional, "present": slot.Present}
		if slot.Present && slot.Node != nil {
			m["node"] = slot.Node.Dump()
		}
		slots[i] = m
	}
	return map[string]any{"slots": slots}
}

// ArgumentParser is the one-method capability a MacroSpec, EnvironmentSpec,
// or SpecialsSpec plugs in to consume whatever follows its name. It is
// handed the Walker so it can recurse through the ordinary expression- and
// group-reading entry points, exactly the way a macro argument is "just more
// LaTeX" to parse.
type ArgumentParser interface {
	ParseArgs(w *Walker, pos int, ctx ParsingContext) (args *ParsedArgs, parsedPos, parsedLen int, err error)
}

// NoArgsParser consumes nothing and reports an empty, non-nil ParsedArgs.
// It is the default for macros and environments that were never registered.
type NoArgsParser struct{}

func (NoArgsParser) ParseArgs(w *Walker, pos int, ctx ParsingContext) (*ParsedArgs, int, int, error) {
	return &ParsedArgs{Span: Span{pos, 0}}, pos, 0, nil
}

// FixedArgsParser consumes a fixed sequence of argument slots described by
// ArgSpec, a string of '[' (optional bracketed group) and '{' (mandatory
// argument, read as one expression: a group, macro, specials or single
// character) characters read left to right -- the same argspec convention
// pylatexenc's macro specs use.
type FixedArgsParser struct {
	ArgSpec string
}

func (p FixedArgsParser) ParseArgs(w *Walker, pos int, ctx ParsingContext) (*ParsedArgs, int, int, error) {
	start := pos
	slots := make([]ArgSlot, 0, len(p.ArgSpec))
	for _, c := range p.ArgSpec {
		switch c {
		case '[':
			node, npos, nlen, ok := w.GetLatexMaybeOptionalArg(pos, ctx)
			if ok {
				slots = append(slots, ArgSlot{Optional: true, Present: true, Node: node})
				pos = npos + nlen
			} else {
				slots = append(slots, ArgSlot{Optional: true, Present: false})
			}
		case '{':
			node, npos, nlen, err := w.GetLatexExpression(pos, ctx)
			if err != nil {
				return &ParsedArgs{Slots: slots, Span: Span{start, pos - start}}, start, pos - start, err
			}
			slots = append(slots, ArgSlot{Present: true, Node: node})
			pos = npos + nlen
		default:
			return &ParsedArgs{Slots: slots, Span: Span{start, pos - start}}, start, pos - start,
				&ConfigError{Message: "invalid argspec character " + string(c)}
		}
	}
	return &ParsedArgs{Slots: slots, Span: Span{start, pos - start}}, start, pos - start, nil
}

// MacroSpec describes how to parse the arguments of a registered macro name
// (without the leading backslash).
type MacroSpec struct {
	Name string
	Args ArgumentParser
}

func (m MacroSpec) argsParser() ArgumentParser {
	if m.Args == nil {
		return NoArgsParser{}
	}
	return m.Args
}

// EnvironmentSpec describes how to parse the arguments that follow
// "\begin{name}", and whether the environment's body is implicitly math
// mode (as with "equation" or "align").
type EnvironmentSpec struct {
	Name       string
	Args       ArgumentParser
	IsMathMode bool
}

func (e EnvironmentSpec) argsParser() ArgumentParser {
	if e.Args == nil {
		return NoArgsParser{}
	}
	return e.Args
}

// SpecialsSpec describes a non-alphanumeric character sequence with its own
// meaning, such as "~" or "&". A nil Args means the specials sequence never
// takes arguments at all, which is distinct from an ArgumentParser that
// simply produces zero arguments.
type SpecialsSpec struct {
	Chars        string
	Args         ArgumentParser
	MathModeOnly bool
}

// ContextDB is the specification database (C5): the read-mostly set of
// registered macros, environments, and specials a Walker consults while
// parsing. It is safe for concurrent use; registration takes a write lock,
// lookups take a read lock, mirroring the single mutex document.go guards
// its shared writer with.
type ContextDB struct {
	mu           sync.RWMutex
	macros       map[string]MacroSpec
	environments map[string]EnvironmentSpec
	specials     []SpecialsSpec
}

// NewContextDB returns an empty specification database.
func NewContextDB() *ContextDB {
	return &ContextDB{
		macros:       map[string]MacroSpec{},
		environments: map[string]EnvironmentSpec{},
	}
}

// AddMacro registers or replaces a macro spec.
func (db *ContextDB) AddMacro(spec MacroSpec) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.macros[spec.Name] = spec
}

// AddEnvironment registers or replaces an environment spec.
func (db *ContextDB) AddEnvironment(spec EnvironmentSpec) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.environments[spec.Name] = spec
}

// AddSpecials registers a specials spec. Order of registration matters: it
// is the tiebreaker when two specials triggers of the same length both
// match at a position.
func (db *ContextDB) AddSpecials(spec SpecialsSpec) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.specials = append(db.specials, spec)
}

// MacroSpec looks up a macro by name (without backslash). If the name was
// never registered, it returns a default spec with no arguments and ok=false
// -- parsing proceeds rather than failing on an unknown macro.
func (db *ContextDB) MacroSpec(name string) (spec MacroSpec, ok bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if s, found := db.macros[name]; found {
		return s, true
	}
	return MacroSpec{Name: name, Args: NoArgsParser{}}, false
}

// EnvironmentSpec looks up an environment by name. An unregistered name
// yields a default, non-math-mode, no-argument spec.
func (db *ContextDB) EnvironmentSpec(name string) (spec EnvironmentSpec, ok bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if s, found := db.environments[name]; found {
		return s, true
	}
	return EnvironmentSpec{Name: name}, false
}

// TestForSpecials returns the longest registered specials trigger matching
// source s at pos, honoring math-mode-only entries against ctx, or nil if
// none match. Ties in length are broken by registration order.
func (db *ContextDB) TestForSpecials(s string, pos int, ctx ParsingContext) *SpecialsSpec {
	db.mu.RLock()
	defer db.mu.RUnlock()
	var best *SpecialsSpec
	bestLen := -1
	rest := s[pos:]
	for i := range db.specials {
		cand := &db.specials[i]
		if cand.MathModeOnly && !ctx.InMathMode {
			continue
		}
		if cand.Chars == "" || !strings.HasPrefix(rest, cand.Chars) {
			continue
		}
		if len(cand.Chars) > bestLen {
			best = cand
			bestLen = len(cand.Chars)
		}
	}
	return best
}
