package latexwalker

// ParsedContext is the immutable handle shared by every node produced from a
// single parse: the source string together with the specification database
// that was in effect while walking it. Nodes never hold a parent pointer;
// they hold a *ParsedContext instead, so trees can be shared, compared, and
// garbage collected without cycles.
type ParsedContext struct {
	S     string
	Specs *ContextDB
}

// Verbatim returns the exact source slice spanned by sp. Because every node's
// span is required to reconstruct its own source text, this is the one place
// that invariant is cashed in.
func (c *ParsedContext) Verbatim(sp Span) string {
	return c.S[sp.Pos : sp.Pos+sp.Len]
}

// ParsingContext carries the small amount of state that changes as parsing
// descends into nested constructs -- currently just whether we are inside
// math mode, which gates math-mode-only specials. It is passed by value and never mutated in place;
// nested calls derive a new one with SubContext.
type ParsingContext struct {
	InMathMode bool
}

// ContextOption overrides a single field of a ParsingContext produced by
// SubContext. The zero-value ParsingContext (InMathMode: false) is the
// context a Walker starts parsing in.
type ContextOption func(*ParsingContext)

// InMathMode overrides whether the derived context is inside math mode.
func InMathMode(v bool) ContextOption {
	return func(c *ParsingContext) { c.InMathMode = v }
}

// SubContext returns a copy of c with opts applied, leaving c itself
// untouched. This is the idiomatic stand-in for the keyword-argument
// overrides the walker needs when it recurses into a group, environment, or
// math region.
func (c ParsingContext) SubContext(opts ...ContextOption) ParsingContext {
	sub := c
	for _, opt := range opts {
		opt(&sub)
	}
	return sub
}
