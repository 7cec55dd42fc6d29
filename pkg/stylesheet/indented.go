// Package stylesheet implements the text transforms applied to CSS
// during normalization. Sheets are converted into an indented,
// line-oriented form where every selector, at-rule and declaration sits
// on its own line and nesting is expressed by indentation:
//
//	@font-face
//	  font-family: "Serif"
//	.epub_main
//	  body&
//	    font-size: 1.50em
//
// Line-oriented rewriters (units, url() references, namespacing) work on
// that form, and ToCSS flattens it back into plain CSS, resolving "&" to
// the enclosing selector as Sass does.
package stylesheet

import (
	"errors"
	"io"
	"strings"

	"github.com/tdewolff/parse/v2"
	pcss "github.com/tdewolff/parse/v2/css"
)

// Indent is one nesting level of the indented form.
const Indent = "  "

// ToIndented converts CSS text to the indented form. Comments and empty
// rulesets are dropped. Recoverable syntax errors skip the offending
// construct; anything else is returned.
func ToIndented(src []byte) (string, error) {
	p := pcss.NewParser(parse.NewInputBytes(src), false)

	var lines []string
	var open []int // index of the line that opened each block
	var pending []string
	depth := 0

	emit := func(text string) {
		lines = append(lines, strings.Repeat(Indent, depth)+text)
	}

	for {
		gt, _, data := p.Next()
		switch gt {
		case pcss.ErrorGrammar:
			err := p.Err()
			if errors.Is(err, io.EOF) {
				return joinLines(lines), nil
			}
			var perr *parse.Error
			if errors.As(err, &perr) {
				continue
			}
			return "", err
		case pcss.AtRuleGrammar:
			emit(atRule(data, p.Values()))
		case pcss.BeginAtRuleGrammar:
			emit(atRule(data, p.Values()))
			open = append(open, len(lines)-1)
			depth++
		case pcss.QualifiedRuleGrammar:
			pending = append(pending, joinTokens(p.Values()))
		case pcss.BeginRulesetGrammar:
			sel := append(pending, joinTokens(p.Values()))
			pending = nil
			emit(strings.Join(sel, ", "))
			open = append(open, len(lines)-1)
			depth++
		case pcss.EndRulesetGrammar, pcss.EndAtRuleGrammar:
			if depth == 0 {
				continue
			}
			depth--
			start := open[len(open)-1]
			open = open[:len(open)-1]
			if gt == pcss.EndRulesetGrammar && start == len(lines)-1 {
				lines = lines[:start]
			}
		case pcss.DeclarationGrammar, pcss.CustomPropertyGrammar:
			emit(string(data) + ": " + joinTokens(p.Values()))
		}
	}
}

func atRule(keyword []byte, values []pcss.Token) string {
	prelude := joinTokens(values)
	if prelude == "" {
		return string(keyword)
	}
	return string(keyword) + " " + prelude
}

// joinTokens concatenates token data, collapsing whitespace runs to a
// single space.
func joinTokens(values []pcss.Token) string {
	var b strings.Builder
	space := false
	for _, v := range values {
		switch v.TokenType {
		case pcss.WhitespaceToken:
			space = true
			continue
		case pcss.CommentToken:
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.Write(v.Data)
	}
	return strings.TrimSpace(b.String())
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

type node struct {
	text     string
	children []*node
}

func (n *node) isAtRule() bool {
	return strings.HasPrefix(n.text, "@")
}

func (n *node) isDeclaration() bool {
	return len(n.children) == 0 && !n.isAtRule()
}

func indentOf(line string) int {
	return len(line) - len(strings.TrimLeft(line, " \t"))
}

func parseIndented(s string) *node {
	type frame struct {
		indent int
		n      *node
	}
	root := &node{}
	stack := []frame{{-1, root}}
	for _, raw := range strings.Split(s, "\n") {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		ind := indentOf(raw)
		n := &node{text: strings.TrimSpace(raw)}
		for len(stack) > 1 && stack[len(stack)-1].indent >= ind {
			stack = stack[:len(stack)-1]
		}
		parent := stack[len(stack)-1].n
		parent.children = append(parent.children, n)
		stack = append(stack, frame{ind, n})
	}
	return root
}

// ToCSS flattens the indented form back to CSS. Nested selectors are
// joined to their parents with a descendant combinator unless they
// reference the parent explicitly with "&".
func ToCSS(indented string) string {
	var b strings.Builder
	printNodes(&b, parseIndented(indented).children, "", 0)
	return b.String()
}

func printNodes(b *strings.Builder, nodes []*node, sel string, depth int) {
	pad := strings.Repeat(Indent, depth)
	for _, n := range nodes {
		switch {
		case n.isAtRule() && len(n.children) == 0:
			b.WriteString(pad + n.text + ";\n")
		case n.isAtRule():
			b.WriteString(pad + n.text + " {\n")
			decls := declarations(n)
			if len(decls) > 0 {
				if sel == "" {
					writeDeclarations(b, decls, depth+1)
				} else {
					writeRule(b, sel, decls, depth+1)
				}
			}
			printNodes(b, n.children, sel, depth+1)
			b.WriteString(pad + "}\n")
		case len(n.children) > 0:
			full := Combine(sel, n.text)
			if decls := declarations(n); len(decls) > 0 {
				writeRule(b, full, decls, depth)
			}
			printNodes(b, n.children, full, depth)
		}
	}
}

func declarations(n *node) []string {
	var out []string
	for _, c := range n.children {
		if c.isDeclaration() {
			out = append(out, c.text)
		}
	}
	return out
}

func writeRule(b *strings.Builder, sel string, decls []string, depth int) {
	pad := strings.Repeat(Indent, depth)
	b.WriteString(pad + sel + " {\n")
	writeDeclarations(b, decls, depth+1)
	b.WriteString(pad + "}\n")
}

func writeDeclarations(b *strings.Builder, decls []string, depth int) {
	pad := strings.Repeat(Indent, depth)
	for _, d := range decls {
		b.WriteString(pad + d + ";\n")
	}
}

// Combine joins a nested selector list to its parent list. Every pair of
// parent and child selectors is combined; "&" in the child stands for
// the parent.
func Combine(parent, child string) string {
	if parent == "" {
		return strings.ReplaceAll(child, "&", "")
	}
	var out []string
	for _, p := range SplitSelectors(parent) {
		for _, c := range SplitSelectors(child) {
			if strings.Contains(c, "&") {
				out = append(out, strings.ReplaceAll(c, "&", p))
			} else {
				out = append(out, p+" "+c)
			}
		}
	}
	return strings.Join(out, ", ")
}

// SplitSelectors splits a selector list on the commas that are not
// inside parentheses or brackets.
func SplitSelectors(list string) []string {
	var out []string
	depth := 0
	start := 0
	for i, r := range list {
		switch r {
		case '(', '[':
			depth++
		case ')', ']':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(list[start:i]))
				start = i + 1
			}
		}
	}
	if last := strings.TrimSpace(list[start:]); last != "" {
		out = append(out, last)
	}
	return out
}
