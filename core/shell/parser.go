package shell

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// The shell accepts one simple command per line, a small subset of
// https://pubs.opengroup.org/onlinepubs/9699919799/utilities/V3_chap02.html
//
// 1. The line is parsed with POSIX quoting rules.
// 2. Leading NAME=value words are assignments, expanded left to right.
// 3. Parameters ($NAME, ${NAME} and $?) are expanded outside single quotes.
// 4. Redirection operators and their operands are removed from the words.
// 5. A trailing & runs the command in the background.

var (
	errSyntax        = errors.New("syntax error")
	errBadDescriptor = errors.New("bad file descriptor")
	errAmbiguous     = errors.New("ambiguous redirect")
)

type redirectOp int

const (
	redirectOut redirectOp = iota
	redirectAppend
	redirectIn
	redirectDup
)

// redirection is a single redirection operator with its operand.
type redirection struct {
	fd     int
	op     redirectOp
	target string // file name for everything but redirectDup
	dupFd  int
}

type assignment struct {
	name  string
	value string
}

// simpleCommand is a parsed line.
type simpleCommand struct {
	assignments  []assignment
	words        []string
	redirections []redirection
	background   bool
}

func (c *simpleCommand) empty() bool {
	return len(c.assignments) == 0 && len(c.words) == 0 && len(c.redirections) == 0
}

// expander substitutes parameters in words. Assignments made earlier on the
// same line shadow lookup.
type expander struct {
	lookup     func(name string) (string, bool)
	lastStatus int

	assigned map[string]string
}

func (e *expander) set(name, value string) {
	if e.assigned == nil {
		e.assigned = make(map[string]string)
	}
	e.assigned[name] = value
}

func (e *expander) param(name string) string {
	if name == "?" {
		return strconv.Itoa(e.lastStatus)
	}
	if v, ok := e.assigned[name]; ok {
		return v
	}
	if e.lookup == nil {
		return ""
	}
	v, _ := e.lookup(name)
	return v
}

// word expands w. quoted reports whether any part of w was quoted, which
// keeps an empty result as an empty field.
func (e *expander) word(w *syntax.Word) (value string, quoted bool, err error) {
	if w == nil {
		return "", false, nil
	}
	var out []string
	for _, part := range w.Parts {
		switch part.(type) {
		case *syntax.SglQuoted, *syntax.DblQuoted:
			quoted = true
		}
		sub, err := e.part(part, false)
		if err != nil {
			return "", quoted, err
		}
		out = append(out, sub)
	}
	return strings.Join(out, ""), quoted, nil
}

func (e *expander) part(part syntax.WordPart, inDouble bool) (string, error) {
	switch part := part.(type) {
	case *syntax.Lit:
		return unescape(part.Value, inDouble), nil

	case *syntax.SglQuoted:
		return part.Value, nil

	case *syntax.DblQuoted:
		var out []string
		for _, subPart := range part.Parts {
			sub, err := e.part(subPart, true)
			if err != nil {
				return "", err
			}
			out = append(out, sub)
		}
		return strings.Join(out, ""), nil

	case *syntax.ParamExp:
		if part.Param == nil || part.Excl || part.Length || part.Width ||
			part.Index != nil || part.Slice != nil || part.Repl != nil || part.Exp != nil {
			return "", fmt.Errorf("%w: bad substitution", errSyntax)
		}
		return e.param(part.Param.Value), nil

	default:
		return "", fmt.Errorf("%w: unsupported expansion", errSyntax)
	}
}

// unescape removes the backslashes the parser leaves in literals. Inside
// double quotes only $, `, " and \ are escapable.
func unescape(s string, inDouble bool) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\\' && i+1 < len(s) {
			next := s[i+1]
			if !inDouble || strings.IndexByte("$`\"\\", next) >= 0 {
				b.WriteByte(next)
				i++
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

// parse turns line into a simpleCommand. A blank line parses to an empty
// command.
func parse(line string, exp *expander) (*simpleCommand, error) {
	prog, err := syntax.NewParser(syntax.Variant(syntax.LangPOSIX)).Parse(strings.NewReader(line), "")
	if err != nil {
		var perr syntax.ParseError
		if errors.As(err, &perr) {
			return nil, fmt.Errorf("%w: %s", errSyntax, perr.Text)
		}
		return nil, fmt.Errorf("%w: %v", errSyntax, err)
	}

	out := &simpleCommand{}
	switch len(prog.Stmts) {
	case 0:
		return out, nil
	case 1:
	default:
		return nil, fmt.Errorf("%w: one command per line", errSyntax)
	}

	stmt := prog.Stmts[0]
	if stmt.Negated || stmt.Coprocess {
		return nil, fmt.Errorf("%w: unsupported command", errSyntax)
	}
	out.background = stmt.Background

	var call *syntax.CallExpr
	switch cmd := stmt.Cmd.(type) {
	case nil:
		// Redirections only.
	case *syntax.CallExpr:
		call = cmd
	default:
		return nil, fmt.Errorf("%w: unsupported command", errSyntax)
	}

	if call != nil {
		for _, assmt := range call.Assigns {
			if assmt.Name == nil || assmt.Append || assmt.Naked || assmt.Index != nil || assmt.Array != nil {
				return nil, fmt.Errorf("%w: unsupported assignment", errSyntax)
			}
			value, _, err := exp.word(assmt.Value)
			if err != nil {
				return nil, err
			}
			exp.set(assmt.Name.Value, value)
			out.assignments = append(out.assignments, assignment{name: assmt.Name.Value, value: value})
		}

		for _, word := range call.Args {
			value, quoted, err := exp.word(word)
			if err != nil {
				return nil, err
			}
			if value == "" && !quoted {
				// Unquoted expansions of unset parameters vanish.
				continue
			}
			out.words = append(out.words, value)
		}
	}

	for _, redir := range stmt.Redirs {
		r, err := newRedirection(redir, exp)
		if err != nil {
			return nil, err
		}
		out.redirections = append(out.redirections, r)
	}

	if out.background && len(out.words) == 0 {
		return nil, fmt.Errorf("%w near unexpected token `&'", errSyntax)
	}
	return out, nil
}

func newRedirection(redir *syntax.Redirect, exp *expander) (redirection, error) {
	out := redirection{fd: 1}
	switch redir.Op {
	case syntax.RdrOut, syntax.ClbOut:
		out.op = redirectOut
	case syntax.AppOut:
		out.op = redirectAppend
	case syntax.RdrIn:
		out.op = redirectIn
		out.fd = 0
	case syntax.DplOut:
		out.op = redirectDup
	default:
		return out, fmt.Errorf("%w: %s is unsupported", errSyntax, redir.Op)
	}

	if redir.N != nil {
		fd, err := strconv.Atoi(redir.N.Value)
		if err != nil {
			return out, fmt.Errorf("%s: %w", redir.N.Value, errBadDescriptor)
		}
		out.fd = fd
	}

	operand, quoted, err := exp.word(redir.Word)
	if err != nil {
		return out, err
	}

	if out.op == redirectDup {
		dup, err := strconv.Atoi(operand)
		if err != nil || dup < 0 {
			return out, fmt.Errorf("%s: %w", operand, errBadDescriptor)
		}
		out.dupFd = dup
		return out, nil
	}

	if operand == "" && !quoted {
		return out, errAmbiguous
	}
	out.target = operand
	return out, nil
}
