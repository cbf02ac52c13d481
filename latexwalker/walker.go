// Package latexwalker tokenizes and parses LaTeX-flavored markup into a tree
// of byte-span-faithful nodes. It does not typeset, expand macros, or render
// anything; it turns source text plus a pluggable specification database
// (which macros/environments/specials take which arguments) into a Node
// tree a caller can walk.
//
// A minimal parse looks like this:
//
//	specs := latexwalker.NewContextDB()
//	specs.AddMacro(latexwalker.MacroSpec{Name: "textbf", Args: latexwalker.FixedArgsParser{ArgSpec: "{"}})
//	w := latexwalker.Parse(source, specs)
//	nodes, _, _, err := w.GetLatexNodes(0)
package latexwalker

import (
	"io"
	"log"
)

// Walker holds the state of a single parse: the source plus spec database it
// was constructed with, its tolerant/strict policy, its logger, and the
// parse errors accumulated so far. A Walker is not safe for concurrent use
// by multiple goroutines at once, but independent Walkers over independent
// sources may run concurrently without coordination.
type Walker struct {
	ctx          *ParsedContext
	Tolerant     bool
	StrictBraces bool
	Log          *log.Logger
	Errors       []*ParseError
}

// ParseOption configures a Walker at construction time.
type ParseOption func(*Walker)

// WithTolerantParsing sets whether parse errors are logged and recovered
// from (true, the default) or returned immediately, aborting the call that
// triggered them (false).
func WithTolerantParsing(tolerant bool) ParseOption {
	return func(w *Walker) { w.Tolerant = tolerant }
}

// WithStrictBraces makes an unexpected closing brace where an expression was
// expected a hard error instead of being read as an empty expression. It has
// no effect unless combined with WithTolerantParsing(false).
func WithStrictBraces(strict bool) ParseOption {
	return func(w *Walker) { w.StrictBraces = strict }
}

// WithLogger sets the logger parse errors are written to in tolerant mode.
func WithLogger(l *log.Logger) ParseOption {
	return func(w *Walker) { w.Log = l }
}

// Parse returns a Walker ready to read nodes out of source using specs as
// its specification database. A nil specs is treated as an empty database:
// every macro, environment, and specials lookup then falls back to its
// default (no arguments, not math mode).
func Parse(source string, specs *ContextDB, opts ...ParseOption) *Walker {
	if specs == nil {
		specs = NewContextDB()
	}
	w := &Walker{
		Tolerant: true,
		Log:      log.New(io.Discard, "", 0),
	}
	w.ctx = &ParsedContext{S: source, Specs: specs}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Verbose points the walker's logger at w, with the given prefix, so parse
// errors recovered from in tolerant mode become visible.
func (w *Walker) Verbose(out io.Writer, prefix string) {
	w.Log = log.New(out, prefix, 0)
}

// Silent discards all parse-error logging. This is the default.
func (w *Walker) Silent() {
	w.Log = log.New(io.Discard, "", 0)
}

// Context returns the ParsedContext every node produced by this walker
// carries a reference to.
func (w *Walker) Context() *ParsedContext { return w.ctx }

// Len returns the length of the source being parsed.
func (w *Walker) Len() int { return len(w.ctx.S) }
