package latexwalker

import "strings"

// NodesOption configures a single GetLatexNodes call: the stop condition it
// reads until, the parsing context it reads under, and an optional cap on
// the number of nodes produced.
type NodesOption func(*nodesOptions)

type nodesOptions struct {
	closingBrace    byte // 0 = no brace/bracket being awaited
	endEnvironment  string
	closingMathmode string
	readMaxNodes    int
	ctx             ParsingContext
}

func defaultNodesOptions() nodesOptions {
	return nodesOptions{}
}

// StopClosingBrace stops reading as soon as a matching '}' or ']' is found,
// consuming it. It is how GetLatexBracedGroup reads a group's body.
func StopClosingBrace(b byte) NodesOption {
	return func(o *nodesOptions) { o.closingBrace = b }
}

// StopEndEnvironment stops reading as soon as a matching "\end{name}" is
// found, consuming it. It is how GetLatexEnvironment reads an environment's
// body.
func StopEndEnvironment(name string) NodesOption {
	return func(o *nodesOptions) { o.endEnvironment = name }
}

// StopClosingMathmode stops reading as soon as the given closing math
// delimiter is found, consuming it.
func StopClosingMathmode(closer string) NodesOption {
	return func(o *nodesOptions) { o.closingMathmode = closer }
}

// ReadMaxNodes stops GetLatexNodes once, after handling a non-character
// token, it holds at least n top-level nodes; zero (the default) means
// unlimited. The result can hold more than n nodes, because flushing a
// pending run of characters and a paragraph break each add a node before
// the count is checked.
func ReadMaxNodes(n int) NodesOption {
	return func(o *nodesOptions) { o.readMaxNodes = n }
}

// WithContext sets the ParsingContext (in particular, math-mode status) that
// the read happens under. It defaults to the zero ParsingContext (not in
// math mode).
func WithContext(ctx ParsingContext) NodesOption {
	return func(o *nodesOptions) { o.ctx = ctx }
}

func mathCloser(opener string) string {
	switch opener {
	case "$":
		return "$"
	case "$$":
		return "$$"
	case `\(`:
		return `\)`
	case `\[`:
		return `\]`
	}
	return ""
}

// posPointer is the mutable cursor threaded through a single GetLatexNodes
// call: the next byte to read from, and the pending run of accumulated plain
// characters not yet flushed into a CharsNode.
type posPointer struct {
	pos          int
	lastChars    strings.Builder
	lastCharsPos int
	hasLastChars bool
}

// flushBeforeToken flushes any pending chars run, plus tok's pre-space, into
// a CharsNode (or, if there was no pending run, a standalone whitespace
// CharsNode) immediately before tok is processed. Every non-char token
// causes a flush, including ones that turn out to terminate the frame.
func flushBeforeToken(nodelist *[]Node, ctx *ParsedContext, p *posPointer, tok Token) {
	switch {
	case p.hasLastChars:
		content := p.lastChars.String() + tok.PreSpace
		*nodelist = append(*nodelist, newCharsNode(ctx, Span{p.lastCharsPos, tok.Span.Pos - p.lastCharsPos}, content))
		p.lastChars.Reset()
		p.hasLastChars = false
	case tok.PreSpace != "":
		*nodelist = append(*nodelist, newCharsNode(ctx, Span{tok.Span.Pos - len(tok.PreSpace), len(tok.PreSpace)}, tok.PreSpace))
	}
}

// absorbIntoChars folds a token with no structural home -- a stray closing
// delimiter nothing is waiting for -- into the ongoing chars run, the same
// way a literal character would be, so its bytes stay covered by some node
// even though the token itself carried no meaning here.
func absorbIntoChars(p *posPointer, tok Token, src string) {
	if !p.hasLastChars {
		p.hasLastChars = true
		p.lastCharsPos = tok.Span.Pos - len(tok.PreSpace)
	}
	p.lastChars.WriteString(tok.PreSpace)
	p.lastChars.WriteString(src[tok.Span.Pos:tok.Span.End()])
}

// finalFlush flushes any pending chars run at loop exit, where there is no
// following token's pre-space to merge in.
func finalFlush(nodelist *[]Node, ctx *ParsedContext, p *posPointer) {
	if p.hasLastChars {
		content := p.lastChars.String()
		*nodelist = append(*nodelist, newCharsNode(ctx, Span{p.lastCharsPos, len(content)}, content))
		p.lastChars.Reset()
		p.hasLastChars = false
	}
}

// GetLatexNodes is the walker's main recursive-descent loop (spec
// component C7): it reads tokens from pos until its configured stop
// condition is met or the source is exhausted, dispatching each token to
// the right node constructor and recursing into GetLatexBracedGroup,
// GetLatexEnvironment, or itself (for nested math) as needed.
//
// It returns the nodes read, the starting position, and the number of bytes
// consumed. nodeLen includes a closing delimiter that matched the stop
// condition; a mismatched delimiter handed back to the caller is not
// consumed and not counted.
func (w *Walker) GetLatexNodes(pos int, optFns ...NodesOption) (nodelist []Node, nodePos, nodeLen int, err error) {
	opts := defaultNodesOptions()
	for _, f := range optFns {
		f(&opts)
	}
	origPos := pos
	p := &posPointer{pos: pos}
	hasActiveDelimStop := opts.closingBrace != 0 || opts.endEnvironment != ""

parseLoop:
	for {
		tokenOpts := []TokenOption{BracketsAreChars(opts.closingBrace != ']')}
		tok, tokErr := w.GetToken(p.pos, opts.ctx, tokenOpts...)
		if pe, ok := tokErr.(*ParseError); ok {
			// A malformed token (such as "\begin" without "{name}"): report
			// it, then read its backslash as a plain character and go on.
			if err := w.fail(pe); !w.Tolerant {
				finalFlush(&nodelist, w.ctx, p)
				return nodelist, origPos, p.pos - origPos, err
			}
			tok = Token{Kind: TokenChar, Arg: `\`, Span: Span{pe.Pos, 1}, PreSpace: w.ctx.S[p.pos:pe.Pos]}
			tokErr = nil
		}
		if tokErr != nil {
			// Whitespace trailing at the end of the source still belongs to
			// this read: fold it into the pending chars run.
			if rest := w.ctx.S[p.pos:]; rest != "" && strings.TrimLeft(rest, " \t\n\r\f\v") == "" {
				absorbIntoChars(p, Token{Span: Span{len(w.ctx.S), 0}, PreSpace: rest}, w.ctx.S)
				p.pos = len(w.ctx.S)
			}
			if hasActiveDelimStop {
				pe := w.parseErrf(p.pos, "unexpected end of input while looking for %s", describeStopTarget(opts))
				err := w.fail(pe)
				if !w.Tolerant {
					finalFlush(&nodelist, w.ctx, p)
					return nodelist, origPos, p.pos - origPos, err
				}
			}
			break parseLoop
		}
		p.pos = tok.Span.End()

		if tok.Kind == TokenChar && tok.Arg == "\n\n" {
			// A paragraph break is meaningful on its own and must not be
			// folded into the surrounding chars runs.
			flushBeforeToken(&nodelist, w.ctx, p, tok)
			nodelist = append(nodelist, newCharsNode(w.ctx, tok.Span, "\n\n"))
			continue parseLoop
		}

		if tok.Kind == TokenChar {
			if !p.hasLastChars {
				p.hasLastChars = true
				p.lastCharsPos = tok.Span.Pos - len(tok.PreSpace)
			}
			p.lastChars.WriteString(tok.PreSpace)
			p.lastChars.WriteString(tok.Arg)
			continue parseLoop
		}

		switch tok.Kind {
		case TokenBraceClose:
			if opts.closingBrace != 0 && tok.Arg[0] == opts.closingBrace {
				flushBeforeToken(&nodelist, w.ctx, p, tok)
				break parseLoop
			}
			pe := w.parseErrf(tok.Span.Pos, "unexpected closing %q", tok.Arg)
			if err := w.fail(pe); !w.Tolerant {
				flushBeforeToken(&nodelist, w.ctx, p, tok)
				return nodelist, origPos, p.pos - origPos, err
			}
			if opts.closingBrace != 0 {
				// Nothing in this frame can consume it; hand it back to
				// whichever ancestor frame is actually waiting for it.
				flushBeforeToken(&nodelist, w.ctx, p, tok)
				p.pos = tok.Span.Pos
				break parseLoop
			}
			// This frame is not waiting for a closing brace, so it does not
			// hand it back to its caller; treat it as plain text.
			absorbIntoChars(p, tok, w.ctx.S)
			continue parseLoop

		case TokenEndEnv:
			if opts.endEnvironment != "" && tok.Arg == opts.endEnvironment {
				flushBeforeToken(&nodelist, w.ctx, p, tok)
				break parseLoop
			}
			pe := w.parseErrf(tok.Span.Pos, `unexpected \end{%s}`, tok.Arg)
			if err := w.fail(pe); !w.Tolerant {
				flushBeforeToken(&nodelist, w.ctx, p, tok)
				return nodelist, origPos, p.pos - origPos, err
			}
			if opts.endEnvironment != "" {
				flushBeforeToken(&nodelist, w.ctx, p, tok)
				p.pos = tok.Span.Pos
				break parseLoop
			}
			absorbIntoChars(p, tok, w.ctx.S)
			continue parseLoop

		case TokenMathInline, TokenMathDisplay:
			if opts.closingMathmode != "" && tok.Arg == opts.closingMathmode {
				flushBeforeToken(&nodelist, w.ctx, p, tok)
				break parseLoop
			}
			if tok.Arg == `\)` || tok.Arg == `\]` {
				pe := w.parseErrf(tok.Span.Pos, "unexpected closing math mode %q", tok.Arg)
				if err := w.fail(pe); !w.Tolerant {
					flushBeforeToken(&nodelist, w.ctx, p, tok)
					return nodelist, origPos, p.pos - origPos, err
				}
				absorbIntoChars(p, tok, w.ctx.S)
				continue parseLoop
			}
			flushBeforeToken(&nodelist, w.ctx, p, tok)
			closer := mathCloser(tok.Arg)
			innerCtx := opts.ctx.SubContext(InMathMode(true))
			inner, ipos, ilen, ierr := w.GetLatexNodes(p.pos, StopClosingMathmode(closer), WithContext(innerCtx))
			if ierr != nil {
				return nodelist, origPos, p.pos - origPos, ierr
			}
			mathLen := ipos + ilen - tok.Span.Pos
			nodelist = append(nodelist, newMathNode(w.ctx, Span{tok.Span.Pos, mathLen}, tok.Kind == TokenMathDisplay, tok.Arg, closer, inner))
			p.pos = tok.Span.Pos + mathLen

		case TokenBraceOpen:
			flushBeforeToken(&nodelist, w.ctx, p, tok)
			node, gpos, glen, gerr := w.GetLatexBracedGroup(tok.Span.Pos, tok.Arg[0], opts.ctx)
			if gerr != nil {
				return nodelist, origPos, p.pos - origPos, gerr
			}
			nodelist = append(nodelist, node)
			p.pos = gpos + glen

		case TokenBeginEnv:
			flushBeforeToken(&nodelist, w.ctx, p, tok)
			node, epos, elen, eerr := w.GetLatexEnvironment(tok.Span.Pos, tok.Arg, opts.ctx)
			if eerr != nil {
				return nodelist, origPos, p.pos - origPos, eerr
			}
			nodelist = append(nodelist, node)
			p.pos = epos + elen

		case TokenMacro:
			flushBeforeToken(&nodelist, w.ctx, p, tok)
			spec, _ := w.ctx.Specs.MacroSpec(tok.Arg)
			args, apos, alen, aerr := spec.argsParser().ParseArgs(w, tok.Span.End(), opts.ctx)
			endPos := apos + alen
			if aerr != nil {
				if err := w.fail(asParseError(w, tok.Span.End(), aerr)); !w.Tolerant {
					return nodelist, origPos, p.pos - origPos, err
				}
				args, endPos = &ParsedArgs{Span: Span{tok.Span.End(), 0}}, tok.Span.End()
			}
			p.pos = endPos
			nodelist = append(nodelist, newMacroNode(w.ctx, Span{tok.Span.Pos, endPos - tok.Span.Pos}, tok.Arg, args, tok.PostSpace))

		case TokenSpecials:
			flushBeforeToken(&nodelist, w.ctx, p, tok)
			endPos := tok.Span.End()
			var args *ParsedArgs
			if tok.Specials.Args != nil {
				a, apos, alen, aerr := tok.Specials.Args.ParseArgs(w, endPos, opts.ctx)
				if aerr != nil {
					if err := w.fail(asParseError(w, endPos, aerr)); !w.Tolerant {
						return nodelist, origPos, p.pos - origPos, err
					}
				} else {
					args = a
					endPos = apos + alen
				}
			}
			p.pos = endPos
			nodelist = append(nodelist, newSpecialsNode(w.ctx, Span{tok.Span.Pos, endPos - tok.Span.Pos}, tok.Arg, args))

		case TokenComment:
			flushBeforeToken(&nodelist, w.ctx, p, tok)
			nodelist = append(nodelist, newCommentNode(w.ctx, tok.Span, tok.Arg, tok.PostSpace))
		}

		if opts.readMaxNodes > 0 && len(nodelist) >= opts.readMaxNodes {
			break parseLoop
		}
	}

	finalFlush(&nodelist, w.ctx, p)
	return nodelist, origPos, p.pos - origPos, nil
}

func describeStopTarget(opts nodesOptions) string {
	switch {
	case opts.closingBrace != 0:
		return "closing " + string(opts.closingBrace)
	case opts.endEnvironment != "":
		return `\end{` + opts.endEnvironment + "}"
	default:
		return "end of input"
	}
}

func asParseError(w *Walker, pos int, err error) *ParseError {
	if pe, ok := err.(*ParseError); ok {
		return pe
	}
	return w.parseErrf(pos, "%s", err.Error())
}

// GetLatexExpression reads the single next "LaTeX expression" at pos: a
// macro, a specials token, a brace/bracket group, or a single character.
// This is what argument parsers call to read one mandatory argument.
func (w *Walker) GetLatexExpression(pos int, ctx ParsingContext) (Node, int, int, error) {
	tok, err := w.GetToken(pos, ctx, Environments(false))
	if err != nil {
		return nil, pos, 0, err
	}
	switch tok.Kind {
	case TokenMacro:
		if tok.Arg == "end" {
			// Environments(false) above means a lone "\end" surfaces as a
			// plain macro named "end", not as TokenEndEnv -- but it's not a
			// valid expression either way, since it belongs to an enclosing
			// environment's closing delimiter, not to whatever wanted an
			// argument here.
			if !w.Tolerant {
				return nil, tok.Span.Pos, 0, w.parseErrf(tok.Span.Pos, `expected expression, got \end`)
			}
			return newCharsNode(w.ctx, Span{tok.Span.Pos, 0}, ""), tok.Span.Pos, 0, nil
		}
		// Deliberately does not invoke the macro's own argument parser here
		// (even though one may be registered): reading a single expression
		// yields a bare macro reference with no args, exactly like reading
		// any other lone token.
		return newMacroNode(w.ctx, tok.Span, tok.Arg, nil, tok.PostSpace), tok.Span.Pos, tok.Span.Len, nil
	case TokenSpecials:
		return newSpecialsNode(w.ctx, tok.Span, tok.Arg, nil), tok.Span.Pos, tok.Span.Len, nil
	case TokenComment:
		return w.GetLatexExpression(tok.Span.End(), ctx)
	case TokenBraceOpen:
		return w.GetLatexBracedGroup(tok.Span.Pos, tok.Arg[0], ctx)
	case TokenBraceClose:
		if w.StrictBraces && !w.Tolerant {
			return nil, tok.Span.Pos, 0, w.parseErrf(tok.Span.Pos, "expected expression, got closing %q", tok.Arg)
		}
		return newCharsNode(w.ctx, Span{tok.Span.Pos, 0}, ""), tok.Span.Pos, 0, nil
	case TokenMathInline, TokenMathDisplay:
		if strings.HasPrefix(tok.Arg, `\`) {
			return newMacroNode(w.ctx, tok.Span, tok.Arg[1:], nil, ""), tok.Span.Pos, tok.Span.Len, nil
		}
		return newCharsNode(w.ctx, tok.Span, tok.Arg), tok.Span.Pos, tok.Span.Len, nil
	default:
		return newCharsNode(w.ctx, tok.Span, tok.Arg), tok.Span.Pos, tok.Span.Len, nil
	}
}

// GetLatexMaybeOptionalArg reads an optional "[...]" argument at pos if one
// is present, reporting ok=false (without consuming anything or raising an
// error) if the next token isn't an opening bracket.
func (w *Walker) GetLatexMaybeOptionalArg(pos int, ctx ParsingContext) (node Node, nodePos, nodeLen int, ok bool) {
	tok, err := w.GetToken(pos, ctx, BracketsAreChars(false), Environments(false))
	if err != nil || tok.Kind != TokenBraceOpen || tok.Arg != "[" {
		return nil, pos, 0, false
	}
	node, npos, nlen, gerr := w.GetLatexBracedGroup(pos, '[', ctx)
	if gerr != nil {
		return nil, pos, 0, false
	}
	return node, npos, nlen, true
}

// GetLatexBracedGroup reads a brace- or bracket-delimited group starting at
// pos, which must hold the opening delimiter braceType ('{' or '[').
func (w *Walker) GetLatexBracedGroup(pos int, braceType byte, ctx ParsingContext) (Node, int, int, error) {
	var closing byte
	switch braceType {
	case '{':
		closing = '}'
	case '[':
		closing = ']'
	default:
		return nil, pos, 0, &ConfigError{Message: "invalid brace type for GetLatexBracedGroup: " + string(braceType)}
	}
	tok, err := w.GetToken(pos, ctx, BracketsAreChars(braceType != '['))
	if err != nil {
		return nil, pos, 0, err
	}
	if tok.Kind != TokenBraceOpen || tok.Arg[0] != braceType {
		return nil, pos, 0, w.parseErrf(pos, "expected opening %q here", string(braceType))
	}
	nodes, npos, nlen, err := w.GetLatexNodes(tok.Span.End(), StopClosingBrace(closing), WithContext(ctx))
	if err != nil {
		return nil, pos, 0, err
	}
	span := Span{tok.Span.Pos, npos + nlen - tok.Span.Pos}
	return newGroupNode(w.ctx, span, nodes, braceType), tok.Span.Pos, span.Len, nil
}

// GetLatexEnvironment reads a "\begin{name}...\end{name}" environment
// starting at pos. If expectedName is non-empty, the environment's name
// must match it exactly.
func (w *Walker) GetLatexEnvironment(pos int, expectedName string, ctx ParsingContext) (Node, int, int, error) {
	startPos := pos
	tok, err := w.GetToken(pos, ctx)
	if err != nil {
		return nil, pos, 0, err
	}
	if tok.Kind != TokenBeginEnv || (expectedName != "" && tok.Arg != expectedName) {
		return nil, pos, 0, w.parseErrf(pos, `expected \begin{%s}`, expectedName)
	}
	name := tok.Arg
	argStart := tok.Span.End()

	spec, _ := w.ctx.Specs.EnvironmentSpec(name)
	args, apos, alen, aerr := spec.argsParser().ParseArgs(w, argStart, ctx)
	bodyStart := apos + alen
	if aerr != nil {
		if err := w.fail(asParseError(w, argStart, aerr)); !w.Tolerant {
			return nil, startPos, 0, err
		}
		args, bodyStart = &ParsedArgs{Span: Span{argStart, 0}}, argStart
	}

	innerCtx := ctx
	if spec.IsMathMode {
		innerCtx = ctx.SubContext(InMathMode(true))
	}
	nodes, npos, nlen, err := w.GetLatexNodes(bodyStart, StopEndEnvironment(name), WithContext(innerCtx))
	if err != nil {
		return nil, startPos, 0, err
	}
	span := Span{startPos, npos + nlen - startPos}
	return newEnvironmentNode(w.ctx, span, name, nodes, args), startPos, span.Len, nil
}
