// Recursive descent parser for CDDL (RFC 8610 plus the .pcre control).
// The parser drives the Scanner directly; look-ahead beyond one token is
// done on a cloned scanner.
package cddlparser

import (
	"fmt"
)

// CONVENTION:
// All parse functions expect `s` positioned on the first token they are
// documented to consume, and return with `s` positioned on the first token
// after what they consumed, with whitespace and comments skipped.

type parser struct {
	s   *Scanner
	doc *Document
}

// ParseString parses one CDDL source text into a Document. Syntax errors
// are accumulated on the Document; parsing recovers at rule boundaries.
func ParseString(file FileRef, input string) *Document {
	return Parse(NewScanner(file, input))
}

func Parse(s *Scanner) *Document {
	doc := &Document{}
	p := &parser{s: s, doc: doc}
	s.NextNonWhitespaceToken()
	for s.TokenType() != EOFToken {
		if s.TokenType() == NonUTF8ErrorToken {
			doc.addError(s, "input is not valid UTF-8")
			break
		}
		rule := p.parseRule()
		if rule == nil {
			p.recoverToNextRule()
			continue
		}
		doc.Rules = append(doc.Rules, rule)
	}
	if len(doc.Rules) == 0 && !doc.HasErrors() {
		doc.Errors = append(doc.Errors, Error{Pos: s.Start(), Message: "no rules in input"})
	}
	return doc
}

func (p *parser) addError(msg string) {
	p.doc.addError(p.s, msg)
}

func (p *parser) unexpected(what string) {
	tok := p.s.Token()
	if p.s.TokenType() == EOFToken {
		tok = "end of input"
	}
	p.addError(fmt.Sprintf("expected %s, found %q", what, tok))
}

// recoverToNextRule skips tokens until something that looks like the start
// of a top-level rule: an identifier followed by =, /= or //=.
func (p *parser) recoverToNextRule() {
	for {
		switch p.s.TokenType() {
		case EOFToken, NonUTF8ErrorToken:
			return
		case IdentToken:
			peek := p.s.Clone()
			switch peek.NextNonWhitespaceToken() {
			case AssignToken, TypeChoiceAltToken, GroupChoiceAltToken:
				return
			}
		}
		p.s.NextNonWhitespaceToken()
	}
}

func (p *parser) parseRule() *Rule {
	s := p.s
	if s.TokenType() != IdentToken {
		p.unexpected("rule name")
		return nil
	}
	rule := &Rule{
		Name:   s.Ident(),
		Socket: s.Socket(),
		Start:  s.Start(),
	}
	s.NextNonWhitespaceToken()

	if s.TokenType() == LeftAngleToken {
		rule.GenericParams = p.parseGenericParams()
		if rule.GenericParams == nil {
			return nil
		}
	}

	assign := s.TokenType()
	switch assign {
	case AssignToken, TypeChoiceAltToken, GroupChoiceAltToken:
		s.NextNonWhitespaceToken()
	default:
		p.unexpected("'=', '/=' or '//='")
		return nil
	}
	rule.IsAlternate = assign == TypeChoiceAltToken || assign == GroupChoiceAltToken

	// The shape of the right-hand side disambiguates type rules from group
	// rules; //= always declares a group.
	if assign == GroupChoiceAltToken || p.looksLikeGroupEntryRHS() {
		entry := p.parseGroupEntry()
		if entry == nil {
			return nil
		}
		rule.IsGroup = true
		rule.Entry = entry
	} else {
		t := p.parseType()
		if t == nil {
			return nil
		}
		rule.Value = t
	}
	rule.Stop = s.Stop()
	return rule
}

// looksLikeGroupEntryRHS peeks at the tokens after an assignment to decide
// whether the RHS is a naked group entry (occurrence or member key at top
// level) rather than a type expression.
func (p *parser) looksLikeGroupEntryRHS() bool {
	switch p.s.TokenType() {
	case OptionalToken, AsteriskToken, OneOrMoreToken:
		return true
	case UintLiteralToken:
		peek := p.s.Clone()
		return peek.NextNonWhitespaceToken() == AsteriskToken
	case IdentToken, TextLiteralToken:
		peek := p.s.Clone()
		switch peek.NextNonWhitespaceToken() {
		case ColonToken, ArrowMapToken, CutToken:
			return true
		}
	}
	return false
}

func (p *parser) parseGenericParams() []string {
	s := p.s
	var params []string
	s.NextNonWhitespaceToken() // consume '<'
	for {
		if s.TokenType() != IdentToken {
			p.unexpected("generic parameter name")
			return nil
		}
		params = append(params, s.Ident())
		switch s.NextNonWhitespaceToken() {
		case CommaToken:
			s.NextNonWhitespaceToken()
		case RightAngleToken:
			s.NextNonWhitespaceToken()
			return params
		default:
			p.unexpected("',' or '>'")
			return nil
		}
	}
}

func (p *parser) parseType() *Type {
	t1 := p.parseType1()
	if t1 == nil {
		return nil
	}
	result := &Type{Choices: []*Type1{t1}}
	for p.s.TokenType() == TypeChoiceToken {
		p.s.NextNonWhitespaceToken()
		t1 = p.parseType1()
		if t1 == nil {
			return nil
		}
		result.Choices = append(result.Choices, t1)
	}
	return result
}

func (p *parser) parseType1() *Type1 {
	start := p.s.Start()
	t2 := p.parseType2()
	if t2 == nil {
		return nil
	}
	result := &Type1{Value: t2, Start: start}

	op := p.s.TokenType()
	switch {
	case op == InclusiveRangeToken || op == ExclusiveRangeToken:
		p.s.NextNonWhitespaceToken()
		arg := p.parseType2()
		if arg == nil {
			return nil
		}
		if !isRangeEndpoint(t2) || !isRangeEndpoint(arg) {
			p.addError("incompatible range endpoints")
		}
		result.Op = op
		result.Arg = arg
	case op.IsControl():
		p.s.NextNonWhitespaceToken()
		arg := p.parseType2()
		if arg == nil {
			return nil
		}
		result.Op = op
		result.Arg = arg
	}
	return result
}

// isRangeEndpoint accepts identifiers and numeric literals, the only legal
// range bounds.
func isRangeEndpoint(t *Type2) bool {
	switch t.Kind {
	case Type2Ident:
		return true
	case Type2Value:
		return t.Value.IsNumeric()
	}
	return false
}

func (p *parser) parseType2() *Type2 {
	s := p.s
	start := s.Start()
	tt := s.TokenType()
	switch {
	case tt == IntLiteralToken || tt == UintLiteralToken || tt == FloatLiteralToken ||
		tt == TextLiteralToken || tt == BytesLiteralToken:
		result := &Type2{Kind: Type2Value, Value: s.Value(), Start: start}
		s.NextNonWhitespaceToken()
		return result

	case tt.IsPrelude():
		result := &Type2{Kind: Type2Prelude, Prelude: tt, Start: start}
		s.NextNonWhitespaceToken()
		return result

	case tt == IdentToken:
		result := &Type2{Kind: Type2Ident, Ident: s.Ident(), Socket: s.Socket(), Start: start}
		s.NextNonWhitespaceToken()
		if s.TokenType() == LeftAngleToken {
			result.GenericArgs = p.parseGenericArgs()
			if result.GenericArgs == nil {
				return nil
			}
		}
		return result

	case tt == LeftParenToken:
		s.NextNonWhitespaceToken()
		g := p.parseGroup()
		if g == nil {
			return nil
		}
		if s.TokenType() != RightParenToken {
			p.unexpected("')'")
			return nil
		}
		s.NextNonWhitespaceToken()
		return &Type2{Kind: Type2Paren, Group: g, Start: start}

	case tt == LeftBraceToken:
		s.NextNonWhitespaceToken()
		g := p.parseGroup()
		if g == nil {
			return nil
		}
		if s.TokenType() != RightBraceToken {
			p.unexpected("'}'")
			return nil
		}
		s.NextNonWhitespaceToken()
		return &Type2{Kind: Type2Map, Group: g, Start: start}

	case tt == LeftBracketToken:
		s.NextNonWhitespaceToken()
		g := p.parseGroup()
		if g == nil {
			return nil
		}
		if s.TokenType() != RightBracketToken {
			p.unexpected("']'")
			return nil
		}
		s.NextNonWhitespaceToken()
		return &Type2{Kind: Type2Array, Group: g, Start: start}

	case tt == UnwrapToken:
		s.NextNonWhitespaceToken()
		if s.TokenType() != IdentToken {
			p.unexpected("identifier after '~'")
			return nil
		}
		result := &Type2{Kind: Type2Unwrap, Ident: s.Ident(), Socket: s.Socket(), Start: start}
		s.NextNonWhitespaceToken()
		if s.TokenType() == LeftAngleToken {
			result.GenericArgs = p.parseGenericArgs()
			if result.GenericArgs == nil {
				return nil
			}
		}
		return result

	case tt == GroupToChoiceToken:
		s.NextNonWhitespaceToken()
		switch s.TokenType() {
		case LeftParenToken:
			s.NextNonWhitespaceToken()
			g := p.parseGroup()
			if g == nil {
				return nil
			}
			if s.TokenType() != RightParenToken {
				p.unexpected("')'")
				return nil
			}
			s.NextNonWhitespaceToken()
			return &Type2{Kind: Type2ChoiceFromGroup, Group: g, Start: start}
		case IdentToken:
			result := &Type2{Kind: Type2ChoiceFromGroup, Ident: s.Ident(), Socket: s.Socket(), Start: start}
			s.NextNonWhitespaceToken()
			return result
		default:
			p.unexpected("'(' or identifier after '&'")
			return nil
		}

	case tt == TagToken:
		result := &Type2{Kind: Type2Tag, TagMajor: s.TagMajor(), Start: start}
		result.TagNumber, result.HasTagNumber = s.TagNumber()
		s.NextNonWhitespaceToken()
		if result.HasTagNumber {
			inner := p.parseTagInner()
			if inner == nil {
				return nil
			}
			result.TagInner = inner
		}
		return result

	case tt.IsError():
		p.addError("illegal token: " + s.Token())
		s.NextNonWhitespaceToken()
		return nil
	}
	p.unexpected("type")
	return nil
}

// parseTagInner parses the type enclosed by a '#m.n' tag expression: a
// parenthesized full type, or a single type2.
func (p *parser) parseTagInner() *Type {
	if p.s.TokenType() == LeftParenToken {
		p.s.NextNonWhitespaceToken()
		t := p.parseType()
		if t == nil {
			return nil
		}
		if p.s.TokenType() != RightParenToken {
			p.unexpected("')'")
			return nil
		}
		p.s.NextNonWhitespaceToken()
		return t
	}
	t2 := p.parseType2()
	if t2 == nil {
		return nil
	}
	return &Type{Choices: []*Type1{{Value: t2, Start: t2.Start}}}
}

func (p *parser) parseGenericArgs() []*Type {
	s := p.s
	var args []*Type
	s.NextNonWhitespaceToken() // consume '<'
	for {
		t := p.parseType()
		if t == nil {
			return nil
		}
		args = append(args, t)
		switch s.TokenType() {
		case CommaToken:
			s.NextNonWhitespaceToken()
		case RightAngleToken:
			s.NextNonWhitespaceToken()
			return args
		default:
			p.unexpected("',' or '>'")
			return nil
		}
	}
}

func (p *parser) parseGroup() *Group {
	gc := p.parseGroupChoice()
	if gc == nil {
		return nil
	}
	result := &Group{Choices: []*GroupChoice{gc}}
	for p.s.TokenType() == GroupChoiceToken {
		p.s.NextNonWhitespaceToken()
		gc = p.parseGroupChoice()
		if gc == nil {
			return nil
		}
		result.Choices = append(result.Choices, gc)
	}
	return result
}

func (p *parser) parseGroupChoice() *GroupChoice {
	result := &GroupChoice{}
	for {
		switch p.s.TokenType() {
		case RightParenToken, RightBraceToken, RightBracketToken, GroupChoiceToken, EOFToken:
			return result
		}
		entry := p.parseGroupEntry()
		if entry == nil {
			return nil
		}
		result.Entries = append(result.Entries, entry)
		switch p.s.TokenType() {
		case CommaToken:
			p.s.NextNonWhitespaceToken()
		case RightParenToken, RightBraceToken, RightBracketToken, GroupChoiceToken, EOFToken:
			// closers handled on the next iteration
		default:
			p.unexpected("','")
			return nil
		}
	}
}

func (p *parser) parseGroupEntry() *GroupEntry {
	s := p.s
	entry := &GroupEntry{Start: s.Start()}
	entry.Occurrence = p.parseOccurrence()

	key, failed := p.parseMemberKey()
	if failed {
		return nil
	}
	entry.Key = key

	if s.TokenType() == LeftParenToken {
		// inline group, or a parenthesized type; a parenthesized type is a
		// one-entry group so the distinction is immaterial here
		start := s.Start()
		s.NextNonWhitespaceToken()
		g := p.parseGroup()
		if g == nil {
			return nil
		}
		if s.TokenType() != RightParenToken {
			p.unexpected("')'")
			return nil
		}
		s.NextNonWhitespaceToken()

		// `( type ) =>` is a computed member key, not an inline group
		if k, ok := p.parenAsMemberKey(g, start); ok {
			if entry.Key != nil {
				p.addError("two member keys in one group entry")
				return nil
			}
			entry.Key = k
			t := p.parseType()
			if t == nil {
				return nil
			}
			entry.Value = t
			return entry
		}

		if entry.Key != nil {
			// after a member key, parens enclose the entry's type
			t := p.continueTypeFromParen(g, start)
			if t == nil {
				return nil
			}
			entry.Value = t
			return entry
		}

		if t1 := p.s.TokenType(); t1 == TypeChoiceToken || t1 == InclusiveRangeToken ||
			t1 == ExclusiveRangeToken || t1.IsControl() {
			// the parenthesized expression continues as a type
			t := p.continueTypeFromParen(g, start)
			if t == nil {
				return nil
			}
			entry.Value = t
			return entry
		}

		entry.Inline = g
		return entry
	}

	t := p.parseType()
	if t == nil {
		return nil
	}
	entry.Value = t
	return entry
}

// parenAsMemberKey turns a just-parsed parenthesized group into a type
// member key if a (cut-)arrow follows. Returns ok=false and consumes
// nothing otherwise.
func (p *parser) parenAsMemberKey(g *Group, start Pos) (*MemberKey, bool) {
	s := p.s
	cut := false
	if s.TokenType() == CutToken {
		peek := s.Clone()
		if peek.NextNonWhitespaceToken() != ArrowMapToken {
			return nil, false
		}
		cut = true
		s.NextNonWhitespaceToken()
	}
	if s.TokenType() != ArrowMapToken {
		return nil, false
	}
	t1 := groupAsSingleType1(g)
	if t1 == nil {
		p.addError("member key must be a single type")
		return nil, false
	}
	s.NextNonWhitespaceToken()
	return &MemberKey{Kind: MemberKeyType, Type: t1, Cut: cut, Start: start}, true
}

// continueTypeFromParen resumes type1/type parsing when a parenthesized
// expression in entry position turns out to be the head of a larger type,
// e.g. `(1..5) / tstr` or `(tstr) .size 3`.
func (p *parser) continueTypeFromParen(g *Group, start Pos) *Type {
	head := &Type2{Kind: Type2Paren, Group: g, Start: start}
	t1 := &Type1{Value: head, Start: start}

	op := p.s.TokenType()
	if op == InclusiveRangeToken || op == ExclusiveRangeToken || op.IsControl() {
		p.s.NextNonWhitespaceToken()
		arg := p.parseType2()
		if arg == nil {
			return nil
		}
		t1.Op = op
		t1.Arg = arg
	}

	result := &Type{Choices: []*Type1{t1}}
	for p.s.TokenType() == TypeChoiceToken {
		p.s.NextNonWhitespaceToken()
		next := p.parseType1()
		if next == nil {
			return nil
		}
		result.Choices = append(result.Choices, next)
	}
	return result
}

// groupAsSingleType1 extracts the type of a one-entry, no-key, no-occurrence
// group; nil if the group is anything more.
func groupAsSingleType1(g *Group) *Type1 {
	if len(g.Choices) != 1 || len(g.Choices[0].Entries) != 1 {
		return nil
	}
	e := g.Choices[0].Entries[0]
	if e.Occurrence != nil || e.Key != nil || e.Inline != nil || e.Value == nil {
		return nil
	}
	if len(e.Value.Choices) == 1 {
		return e.Value.Choices[0]
	}
	// a choice key like ("a" / "b") stays parenthesized
	return &Type1{Value: &Type2{Kind: Type2Paren, Group: g, Start: e.Start}, Start: e.Start}
}

// parseOccurrence parses ?, *, + or n*m (either bound optional); nil when
// no occurrence indicator is present.
func (p *parser) parseOccurrence() *Occurrence {
	s := p.s
	start := s.Start()
	switch s.TokenType() {
	case OptionalToken:
		s.NextNonWhitespaceToken()
		return &Occurrence{Min: 0, Max: 1, Start: start}
	case OneOrMoreToken:
		s.NextNonWhitespaceToken()
		return &Occurrence{Min: 1, Unbounded: true, Start: start}
	case AsteriskToken:
		result := &Occurrence{Min: 0, Unbounded: true, Start: start}
		if s.NextNonWhitespaceToken() == UintLiteralToken {
			result.Max = s.Value().Uint
			result.Unbounded = false
			s.NextNonWhitespaceToken()
		}
		return result
	case UintLiteralToken:
		peek := s.Clone()
		if peek.NextNonWhitespaceToken() != AsteriskToken {
			return nil
		}
		result := &Occurrence{Min: s.Value().Uint, Unbounded: true, Start: start}
		s.NextNonWhitespaceToken() // the '*'
		if s.NextNonWhitespaceToken() == UintLiteralToken {
			result.Max = s.Value().Uint
			result.Unbounded = false
			s.NextNonWhitespaceToken()
		}
		return result
	}
	return nil
}

// parseMemberKey commits only once the ':' or (optionally cut) '=>' is
// seen; otherwise it consumes nothing. The bool result reports a hard
// parse failure.
func (p *parser) parseMemberKey() (*MemberKey, bool) {
	s := p.s
	start := s.Start()
	tt := s.TokenType()

	isValue := tt == IntLiteralToken || tt == UintLiteralToken || tt == FloatLiteralToken ||
		tt == TextLiteralToken || tt == BytesLiteralToken
	isWord := tt == IdentToken || tt.IsPrelude()
	if !isValue && !isWord {
		return nil, false
	}

	peek := s.Clone()
	cut := false
	switch peek.NextNonWhitespaceToken() {
	case ColonToken:
		cut = true // the colon shortcut always cuts
	case CutToken:
		if peek.NextNonWhitespaceToken() != ArrowMapToken {
			return nil, false
		}
		cut = true
	case ArrowMapToken:
	default:
		return nil, false
	}

	key := &MemberKey{Cut: cut, Start: start}
	switch {
	case tt == IdentToken && s.Socket() == NoSocket && peekIsColon(s):
		key.Kind = MemberKeyBareword
		key.Bareword = s.Ident()
	case tt.IsPrelude() && peekIsColon(s):
		key.Kind = MemberKeyBareword
		key.Bareword = Display(tt)
	case isValue:
		key.Kind = MemberKeyValue
		key.Value = s.Value()
	case isWord:
		// `ident =>` is a type key: the member key matches values of the
		// named (or prelude) type
		key.Kind = MemberKeyType
		var t2 *Type2
		if tt == IdentToken {
			t2 = &Type2{Kind: Type2Ident, Ident: s.Ident(), Socket: s.Socket(), Start: start}
		} else {
			t2 = &Type2{Kind: Type2Prelude, Prelude: tt, Start: start}
		}
		key.Type = &Type1{Value: t2, Start: start}
	default:
		return nil, false
	}

	// consume the key word/value, optional cut, and the : or =>
	s.NextNonWhitespaceToken()
	if s.TokenType() == CutToken {
		s.NextNonWhitespaceToken()
	}
	s.NextNonWhitespaceToken()
	return key, false
}

func peekIsColon(s *Scanner) bool {
	peek := s.Clone()
	return peek.NextNonWhitespaceToken() == ColonToken
}
