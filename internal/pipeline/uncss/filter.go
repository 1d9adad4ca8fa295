package uncss

import (
	"bytes"
	"io"
	"slices"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/zerr"
)

// alwaysUsed are element names kept even when no document contains them.
var alwaysUsed = map[string]bool{"html": true, "body": true}

// conditionalRules hold rulesets that are filtered like top-level ones and
// are dropped when nothing inside them survives. Every other block at-rule
// (@keyframes, @font-face, @page) is kept verbatim.
var conditionalRules = map[string]bool{
	"@media":     true,
	"@supports":  true,
	"@container": true,
	"@layer":     true,
	"@document":  true,
}

// block is an open at-rule whose body is buffered until it closes.
type block struct {
	header  string
	keepAll bool
	body    bytes.Buffer
}

// Filter returns stylesheet with every ruleset removed whose selectors are
// all unused. Selector lists are pruned to their used members. Comments
// other than /*! preserved ones are dropped.
func Filter(stylesheet []byte, usage *Usage) ([]byte, error) {
	p := css.NewParser(parse.NewInputBytes(stylesheet), false)

	root := &block{keepAll: false}
	stack := []*block{root}
	top := func() *block { return stack[len(stack)-1] }

	var pending [][]css.Token
	skipping := false

	for {
		gt, _, data := p.Next()
		switch gt {
		case css.ErrorGrammar:
			if err := p.Err(); err != nil && err != io.EOF {
				return nil, zerr.Wrap(err, domain.ErrTransformFailed.Error())
			}
			for len(stack) > 1 {
				closeBlock(&stack)
			}
			return root.body.Bytes(), nil

		case css.CommentGrammar:
			if bytes.HasPrefix(data, []byte("/*!")) {
				top().body.Write(data)
				top().body.WriteByte('\n')
			}

		case css.AtRuleGrammar:
			top().body.WriteString(atRuleHeader(data, p.Values()))
			top().body.WriteString(";\n")

		case css.BeginAtRuleGrammar:
			name := strings.ToLower(string(data))
			stack = append(stack, &block{
				header:  atRuleHeader(data, p.Values()),
				keepAll: top().keepAll || !conditionalRules[name],
			})

		case css.EndAtRuleGrammar:
			if len(stack) > 1 {
				closeBlock(&stack)
			}

		case css.QualifiedRuleGrammar:
			pending = append(pending, cloneTokens(p.Values()))

		case css.BeginRulesetGrammar:
			selectors := append(pending, cloneTokens(p.Values()))
			pending = nil
			if !top().keepAll {
				selectors = slices.DeleteFunc(selectors, func(sel []css.Token) bool {
					return !usage.Uses(sel)
				})
			}
			if len(selectors) == 0 {
				skipping = true
				continue
			}
			top().body.WriteString(joinSelectors(selectors))
			top().body.WriteByte('{')

		case css.EndRulesetGrammar:
			if skipping {
				skipping = false
				continue
			}
			top().body.WriteString("}\n")

		case css.DeclarationGrammar, css.CustomPropertyGrammar:
			if skipping {
				continue
			}
			b := &top().body
			b.Write(data)
			b.WriteByte(':')
			b.WriteString(strings.TrimSpace(tokenText(p.Values())))
			b.WriteByte(';')

		default:
			if !skipping {
				top().body.Write(data)
			}
		}
	}
}

// closeBlock pops the innermost at-rule and writes it into its parent unless
// it is a conditional rule left empty.
func closeBlock(stack *[]*block) {
	s := *stack
	b := s[len(s)-1]
	parent := s[len(s)-2]
	*stack = s[:len(s)-1]

	if !b.keepAll && b.body.Len() == 0 {
		return
	}
	parent.body.WriteString(b.header)
	parent.body.WriteString("{\n")
	parent.body.Write(b.body.Bytes())
	parent.body.WriteString("}\n")
}

func atRuleHeader(name []byte, values []css.Token) string {
	prelude := strings.TrimSpace(tokenText(values))
	if prelude == "" {
		return string(name)
	}
	return string(name) + " " + prelude
}

func tokenText(tokens []css.Token) string {
	var sb strings.Builder
	for _, t := range tokens {
		sb.Write(t.Data)
	}
	return sb.String()
}

func joinSelectors(selectors [][]css.Token) string {
	parts := make([]string, len(selectors))
	for i, sel := range selectors {
		parts[i] = strings.TrimSpace(tokenText(sel))
	}
	return strings.Join(parts, ",")
}

// cloneTokens copies tokens; the parser reuses their backing buffers.
func cloneTokens(tokens []css.Token) []css.Token {
	out := make([]css.Token, len(tokens))
	for i, t := range tokens {
		out[i] = css.Token{TokenType: t.TokenType, Data: slices.Clone(t.Data)}
	}
	return out
}

// Uses reports whether every element name, class and id of a single
// selector occurs in the documents. Contents of attribute selectors and
// functional pseudo-classes are ignored.
func (u *Usage) Uses(selector []css.Token) bool {
	depth := 0
	for i, t := range selector {
		switch t.TokenType {
		case css.LeftBracketToken, css.FunctionToken, css.LeftParenthesisToken:
			depth++
			continue
		case css.RightBracketToken, css.RightParenthesisToken:
			depth = max(depth-1, 0)
			continue
		}
		if depth > 0 {
			continue
		}

		switch t.TokenType {
		case css.HashToken:
			if !u.HasID(unescape(bytes.TrimPrefix(t.Data, []byte("#")))) {
				return false
			}
		case css.IdentToken:
			var before css.Token
			if i > 0 {
				before = selector[i-1]
			}
			switch {
			case before.TokenType == css.ColonToken:
				// pseudo-class or pseudo-element
			case before.TokenType == css.DelimToken && string(before.Data) == ".":
				if !u.HasClass(unescape(t.Data)) {
					return false
				}
			default:
				name := strings.ToLower(string(t.Data))
				if !alwaysUsed[name] && !u.HasTag(name) {
					return false
				}
			}
		}
	}
	return true
}

func unescape(name []byte) string {
	return strings.ReplaceAll(string(name), `\`, "")
}
