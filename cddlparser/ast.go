package cddlparser

import (
	"fmt"
	"strconv"
	"strings"
)

type Error struct {
	Pos     Pos
	Message string
}

func (e Error) Error() string {
	return fmt.Sprintf("%s:%d:%d %s", e.Pos.File, e.Pos.Line, e.Pos.Col, e.Message)
}

func (e Error) WithoutPos() Error {
	return Error{Message: e.Message}
}

// Document is the parse result for one CDDL source: an ordered rule list
// plus any accumulated errors. A Document with errors still carries the
// rules that could be recovered.
type Document struct {
	Rules  []*Rule
	Errors []Error
}

func (d *Document) HasErrors() bool {
	return len(d.Errors) > 0
}

func (d *Document) addError(s *Scanner, msg string) {
	d.Errors = append(d.Errors, Error{
		Pos:     s.Start(),
		Message: msg,
	})
}

// Rule is one `name = ...`, `name /= ...` or `name //= ...` declaration.
// Type rules carry Value; group rules carry Entry.
type Rule struct {
	Name          string
	Socket        SocketPlug
	GenericParams []string
	IsAlternate   bool // declared with /= or //=
	IsGroup       bool
	Value         *Type       // type rules
	Entry         *GroupEntry // group rules
	Start, Stop   Pos
}

// Type is a non-empty type choice: A / B / C.
type Type struct {
	Choices []*Type1
}

// Type1 is an atomic type, optionally combined with a range or control
// operator and its argument. Op is zero when there is no operator.
type Type1 struct {
	Value *Type2
	Op    TokenType
	Arg   *Type2
	Start Pos
}

type Type2Kind int

const (
	Type2Value Type2Kind = iota + 1
	Type2Prelude
	Type2Ident
	Type2Paren // parenthesized type (stored as a one-entry group)
	Type2Map
	Type2Array
	Type2Unwrap
	Type2ChoiceFromGroup // &(...) or &groupname
	Type2Tag
)

type Type2 struct {
	Kind Type2Kind

	Value   Value     // Type2Value
	Prelude TokenType // Type2Prelude

	Ident       string // Type2Ident, Type2Unwrap, Type2ChoiceFromGroup
	Socket      SocketPlug
	GenericArgs []*Type

	Group *Group // Type2Paren, Type2Map, Type2Array, Type2ChoiceFromGroup

	TagMajor     int // -1 for a bare '#'
	TagNumber    uint64
	HasTagNumber bool
	TagInner     *Type // nil for '#' and '#m'

	Start Pos
}

// Group is an ordered list of group choices: a // b // c.
type Group struct {
	Choices []*GroupChoice
}

type GroupChoice struct {
	Entries []*GroupEntry
}

// GroupEntry is (occurrence?, member-key?, value). The value is either a
// Type or an inline parenthesized Group; a bare group-name reference is
// represented as a Type with a single identifier and resolved against the
// group namespace during validation.
type GroupEntry struct {
	Occurrence *Occurrence
	Key        *MemberKey
	Value      *Type
	Inline     *Group
	Start      Pos
}

type MemberKeyKind int

const (
	MemberKeyBareword MemberKeyKind = iota + 1
	MemberKeyValue
	MemberKeyType
)

// MemberKey is the `k:`, `v:`, or `T =>` part of a group entry. A `:` key
// always cuts; an `=>` key cuts only when written with `^`.
type MemberKey struct {
	Kind     MemberKeyKind
	Bareword string
	Value    Value
	Type     *Type1
	Cut      bool
	Start    Pos
}

// Occurrence bounds a group entry: ? is 0..1, * is 0..inf, + is 1..inf,
// n*m uses explicit bounds with either side optional.
type Occurrence struct {
	Min       uint64
	Max       uint64
	Unbounded bool // no upper bound
	Start     Pos
}

func (o *Occurrence) String() string {
	if o == nil {
		return ""
	}
	if o.Unbounded {
		if o.Min == 1 {
			return "+"
		}
		if o.Min == 0 {
			return "*"
		}
		return strconv.FormatUint(o.Min, 10) + "*"
	}
	if o.Min == 0 && o.Max == 1 {
		return "?"
	}
	return fmt.Sprintf("%d*%d", o.Min, o.Max)
}

func (t *Type) String() string {
	var parts []string
	for _, t1 := range t.Choices {
		parts = append(parts, t1.String())
	}
	return strings.Join(parts, " / ")
}

func (t *Type1) String() string {
	if t.Op == 0 {
		return t.Value.String()
	}
	op := Display(t.Op)
	if t.Op == InclusiveRangeToken || t.Op == ExclusiveRangeToken {
		return t.Value.String() + op + t.Arg.String()
	}
	return t.Value.String() + " " + op + " " + t.Arg.String()
}

func (t *Type2) String() string {
	switch t.Kind {
	case Type2Value:
		return t.Value.String()
	case Type2Prelude:
		return Display(t.Prelude)
	case Type2Ident:
		return t.Socket.String() + t.Ident + genericArgsString(t.GenericArgs)
	case Type2Paren:
		return "(" + t.Group.String() + ")"
	case Type2Map:
		return "{" + t.Group.String() + "}"
	case Type2Array:
		return "[" + t.Group.String() + "]"
	case Type2Unwrap:
		return "~" + t.Socket.String() + t.Ident + genericArgsString(t.GenericArgs)
	case Type2ChoiceFromGroup:
		if t.Group != nil {
			return "&(" + t.Group.String() + ")"
		}
		return "&" + t.Socket.String() + t.Ident
	case Type2Tag:
		if t.TagMajor < 0 {
			return "#"
		}
		if !t.HasTagNumber {
			return fmt.Sprintf("#%d", t.TagMajor)
		}
		return fmt.Sprintf("#%d.%d(%s)", t.TagMajor, t.TagNumber, t.TagInner.String())
	}
	return ""
}

func genericArgsString(args []*Type) string {
	if len(args) == 0 {
		return ""
	}
	var parts []string
	for _, a := range args {
		parts = append(parts, a.String())
	}
	return "<" + strings.Join(parts, ", ") + ">"
}

func (g *Group) String() string {
	var parts []string
	for _, gc := range g.Choices {
		var entries []string
		for _, e := range gc.Entries {
			entries = append(entries, e.String())
		}
		parts = append(parts, strings.Join(entries, ", "))
	}
	return strings.Join(parts, " // ")
}

func (e *GroupEntry) String() string {
	var buf strings.Builder
	if e.Occurrence != nil {
		buf.WriteString(e.Occurrence.String())
		buf.WriteString(" ")
	}
	if e.Key != nil {
		buf.WriteString(e.Key.String())
		buf.WriteString(" ")
	}
	if e.Inline != nil {
		buf.WriteString("(" + e.Inline.String() + ")")
	} else {
		buf.WriteString(e.Value.String())
	}
	return buf.String()
}

func (k *MemberKey) String() string {
	switch k.Kind {
	case MemberKeyBareword:
		return k.Bareword + ":"
	case MemberKeyValue:
		if k.Cut {
			return k.Value.String() + ":"
		}
		return k.Value.String() + " =>"
	case MemberKeyType:
		if k.Cut {
			return k.Type.String() + " ^ =>"
		}
		return k.Type.String() + " =>"
	}
	return ""
}

func (r *Rule) String() string {
	name := r.Socket.String() + r.Name
	if len(r.GenericParams) > 0 {
		name += "<" + strings.Join(r.GenericParams, ", ") + ">"
	}
	op := "="
	if r.IsAlternate {
		if r.IsGroup {
			op = "//="
		} else {
			op = "/="
		}
	}
	if r.IsGroup {
		return fmt.Sprintf("%s %s %s", name, op, r.Entry.String())
	}
	return fmt.Sprintf("%s %s %s", name, op, r.Value.String())
}

// String renders the document back to CDDL source; reparsing the result
// yields an equivalent AST.
func (d *Document) String() string {
	var buf strings.Builder
	for _, r := range d.Rules {
		buf.WriteString(r.String())
		buf.WriteString("\n")
	}
	return buf.String()
}

// WithoutPos transformations below remove all position information; this is
// used to 'unclutter' an AST to more easily write assertions on it.

func (d *Document) WithoutPos() *Document {
	var rules []*Rule
	for _, r := range d.Rules {
		rules = append(rules, r.WithoutPos())
	}
	var es []Error
	for _, e := range d.Errors {
		es = append(es, e.WithoutPos())
	}
	return &Document{Rules: rules, Errors: es}
}

func (r *Rule) WithoutPos() *Rule {
	return &Rule{
		Name:          r.Name,
		Socket:        r.Socket,
		GenericParams: r.GenericParams,
		IsAlternate:   r.IsAlternate,
		IsGroup:       r.IsGroup,
		Value:         r.Value.WithoutPos(),
		Entry:         r.Entry.WithoutPos(),
	}
}

func (t *Type) WithoutPos() *Type {
	if t == nil {
		return nil
	}
	var cs []*Type1
	for _, c := range t.Choices {
		cs = append(cs, c.WithoutPos())
	}
	return &Type{Choices: cs}
}

func (t *Type1) WithoutPos() *Type1 {
	if t == nil {
		return nil
	}
	return &Type1{
		Value: t.Value.WithoutPos(),
		Op:    t.Op,
		Arg:   t.Arg.WithoutPos(),
	}
}

func (t *Type2) WithoutPos() *Type2 {
	if t == nil {
		return nil
	}
	var args []*Type
	for _, a := range t.GenericArgs {
		args = append(args, a.WithoutPos())
	}
	return &Type2{
		Kind:         t.Kind,
		Value:        t.Value,
		Prelude:      t.Prelude,
		Ident:        t.Ident,
		Socket:       t.Socket,
		GenericArgs:  args,
		Group:        t.Group.WithoutPos(),
		TagMajor:     t.TagMajor,
		TagNumber:    t.TagNumber,
		HasTagNumber: t.HasTagNumber,
		TagInner:     t.TagInner.WithoutPos(),
	}
}

func (g *Group) WithoutPos() *Group {
	if g == nil {
		return nil
	}
	var cs []*GroupChoice
	for _, c := range g.Choices {
		var entries []*GroupEntry
		for _, e := range c.Entries {
			entries = append(entries, e.WithoutPos())
		}
		cs = append(cs, &GroupChoice{Entries: entries})
	}
	return &Group{Choices: cs}
}

func (e *GroupEntry) WithoutPos() *GroupEntry {
	if e == nil {
		return nil
	}
	return &GroupEntry{
		Occurrence: e.Occurrence.WithoutPos(),
		Key:        e.Key.WithoutPos(),
		Value:      e.Value.WithoutPos(),
		Inline:     e.Inline.WithoutPos(),
	}
}

func (k *MemberKey) WithoutPos() *MemberKey {
	if k == nil {
		return nil
	}
	return &MemberKey{
		Kind:     k.Kind,
		Bareword: k.Bareword,
		Value:    k.Value,
		Type:     k.Type.WithoutPos(),
		Cut:      k.Cut,
	}
}

func (o *Occurrence) WithoutPos() *Occurrence {
	if o == nil {
		return nil
	}
	return &Occurrence{Min: o.Min, Max: o.Max, Unbounded: o.Unbounded}
}
