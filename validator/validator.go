// Package validator walks a compiled CDDL rule table against decoded JSON
// or CBOR value trees. The traversal is shared; the two value domains each
// supply a valueOps.
package validator

import (
	"fmt"
	"strings"

	"github.com/datapact/cddl/cddlparser"
)

// DefaultMaxDepth bounds rule recursion during validation.
const DefaultMaxDepth = 256

// Error is one validation diagnostic, located by a dotted/indexed path
// into the instance document.
type Error struct {
	Path     string
	Expected string
	Got      string
	Reason   string
}

func (e Error) Error() string {
	var buf strings.Builder
	buf.WriteString(e.Path)
	buf.WriteString(": ")
	switch {
	case e.Reason != "" && e.Expected == "":
		buf.WriteString(e.Reason)
	default:
		fmt.Fprintf(&buf, "expected %s, got %s", e.Expected, e.Got)
		if e.Reason != "" {
			buf.WriteString(" (" + e.Reason + ")")
		}
	}
	return buf.String()
}

// Errors is the validation result; empty means the instance conforms.
type Errors []Error

func (errs Errors) Error() string {
	var msgs []string
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "\n")
}

// mapMember is one key/value pair of a map-like instance value.
type mapMember struct {
	Key   any
	Value any
}

// valueOps abstracts over the two value domains. See jsonOps and cborOps.
type valueOps interface {
	// Describe names the value's type for diagnostics ("string", "tag 6", ..)
	Describe(v any) string
	// MatchPrelude reports whether v satisfies a standard-prelude type
	MatchPrelude(tok cddlparser.TokenType, v any) bool
	// MatchLiteral reports whether v equals a literal value
	MatchLiteral(lit cddlparser.Value, v any) bool
	AsArray(v any) ([]any, bool)
	AsMap(v any) ([]mapMember, bool)
	KeyEqualsBareword(word string, key any) bool
	KeyEqualsLiteral(lit cddlparser.Value, key any) bool
	// Numeric widens any numeric value to float64
	Numeric(v any) (float64, bool)
	Text(v any) (string, bool)
	Bytes(v any) ([]byte, bool)
	// Tag destructures a tagged item; ok is false in the JSON domain
	Tag(v any) (num uint64, content any, ok bool)
	// MajorType reports the CBOR major type; ok is false in the JSON domain
	MajorType(v any) (int, bool)
	// TagsEnforced is false in the JSON domain, where #6.n checks only
	// the inner type
	TagsEnforced() bool
	// DecodeEmbedded decodes one embedded CBOR item for the .cbor control;
	// supported is false in the JSON domain
	DecodeEmbedded(b []byte) (v any, supported bool, err error)
	// DecodeEmbeddedSeq decodes an embedded CBOR sequence for .cborseq
	DecodeEmbeddedSeq(b []byte) (items []any, supported bool, err error)
}

// Validator validates instance values against one compiled schema. It is
// safe for concurrent use after construction except for the lazily filled
// regex caches; share one per goroutine when validating in parallel.
type Validator struct {
	table    *cddlparser.RuleTable
	ops      valueOps
	maxDepth int
	regexes  *regexCache
}

func newValidator(table *cddlparser.RuleTable, ops valueOps) *Validator {
	return &Validator{
		table:    table,
		ops:      ops,
		maxDepth: DefaultMaxDepth,
		regexes:  newRegexCache(),
	}
}

// SetMaxDepth overrides the recursion limit.
func (v *Validator) SetMaxDepth(n int) {
	v.maxDepth = n
}

// Validate checks a decoded instance value against the named rule, or the
// schema's first rule when typename is empty.
func (v *Validator) Validate(typename string, value any) Errors {
	name := typename
	if name == "" {
		name, _ = v.table.Root()
	}
	r := &run{v: v}
	if _, ok := v.table.LookupType(name); !ok {
		if _, isGroup := v.table.LookupGroup(name); isGroup {
			return Errors{{Path: "root", Reason: "cannot validate against a group rule: " + name}}
		}
		return Errors{{Path: "root", Reason: "unknown rule: " + name}}
	}
	return r.validateNamed("root", cddlparser.NoSocket, name, nil, value)
}

type genericBinding struct {
	t      *cddlparser.Type
	frames []map[string]genericBinding
}

type run struct {
	v      *Validator
	depth  int
	frames []map[string]genericBinding
}

func (r *run) ops() valueOps { return r.v.ops }

func (r *run) fail(path, expected string, v any, reason string) Errors {
	return Errors{{Path: path, Expected: expected, Got: r.ops().Describe(v), Reason: reason}}
}

// validateType validates against a type choice: the first alternative that
// matches wins; the composite error is emitted only when all fail.
func (r *run) validateType(path string, t *cddlparser.Type, v any) Errors {
	return r.validateChoices(path, t.Choices, v)
}

func (r *run) validateChoices(path string, choices []*cddlparser.Type1, v any) Errors {
	if len(choices) == 1 {
		return r.validateType1(path, choices[0], v)
	}
	var all Errors
	for _, t1 := range choices {
		errs := r.validateType1(path, t1, v)
		if len(errs) == 0 {
			return nil
		}
		all = append(all, errs...)
	}
	result := Errors{{Path: path, Reason: fmt.Sprintf("no choice matched (%d alternatives)", len(choices))}}
	return append(result, all...)
}

func (r *run) validateType1(path string, t1 *cddlparser.Type1, v any) Errors {
	switch {
	case t1.Op == 0:
		return r.validateType2(path, t1.Value, v)
	case t1.Op == cddlparser.InclusiveRangeToken || t1.Op == cddlparser.ExclusiveRangeToken:
		return r.validateRange(path, t1, v)
	case t1.Op.IsControl():
		return r.applyControl(path, t1, v)
	}
	return Errors{{Path: path, Reason: "internal: unhandled type1 operator " + t1.Op.String()}}
}

func (r *run) validateType2(path string, t2 *cddlparser.Type2, v any) Errors {
	ops := r.ops()
	switch t2.Kind {
	case cddlparser.Type2Value:
		if ops.MatchLiteral(t2.Value, v) {
			return nil
		}
		return r.fail(path, t2.Value.String(), v, "")

	case cddlparser.Type2Prelude:
		if ops.MatchPrelude(t2.Prelude, v) {
			return nil
		}
		return r.fail(path, cddlparser.Display(t2.Prelude), v, "")

	case cddlparser.Type2Ident:
		return r.validateNamed(path, t2.Socket, t2.Ident, t2.GenericArgs, v)

	case cddlparser.Type2Paren:
		t1 := parenType1(t2.Group)
		if t1 == nil {
			return Errors{{Path: path, Reason: "group in type position"}}
		}
		return r.validateType1(path, t1, v)

	case cddlparser.Type2Map:
		members, ok := ops.AsMap(v)
		if !ok {
			return r.fail(path, "map", v, "")
		}
		return r.matchGroupMap(path, t2.Group, members)

	case cddlparser.Type2Array:
		items, ok := ops.AsArray(v)
		if !ok {
			return r.fail(path, "array", v, "")
		}
		return r.matchGroupArray(path, t2.Group, items)

	case cddlparser.Type2Unwrap:
		g, errs := r.unwrapGroup(path, t2)
		if errs != nil {
			return errs
		}
		// ~name in plain type position behaves like the map/array contents
		// validated as a sequence of one; the splice case is handled in
		// group matching
		if items, ok := ops.AsArray(v); ok {
			return r.matchGroupArray(path, g, items)
		}
		if members, ok := ops.AsMap(v); ok {
			return r.matchGroupMap(path, g, members)
		}
		return r.fail(path, "map or array", v, "unwrap target")

	case cddlparser.Type2ChoiceFromGroup:
		choices, errs := r.groupAsTypeChoices(path, t2)
		if errs != nil {
			return errs
		}
		return r.validateChoices(path, choices, v)

	case cddlparser.Type2Tag:
		return r.validateTag(path, t2, v)
	}
	return Errors{{Path: path, Reason: "internal: unhandled type2 kind"}}
}

// parenType1 reduces a parenthesized group back to the single type it
// encloses; nil when the group has real group structure.
func parenType1(g *cddlparser.Group) *cddlparser.Type1 {
	if len(g.Choices) != 1 || len(g.Choices[0].Entries) != 1 {
		return nil
	}
	e := g.Choices[0].Entries[0]
	if e.Occurrence != nil || e.Key != nil || e.Value == nil {
		return nil
	}
	if len(e.Value.Choices) == 1 {
		return e.Value.Choices[0]
	}
	// (a / b): keep the choice; wrap it back up for validateType1
	return &cddlparser.Type1{Value: &cddlparser.Type2{Kind: cddlparser.Type2Paren, Group: g}}
}

func (r *run) validateNamed(path string, socket cddlparser.SocketPlug, ident string, args []*cddlparser.Type, v any) Errors {
	if r.depth++; r.depth > r.v.maxDepth {
		return Errors{{Path: path, Reason: "recursion limit exceeded"}}
	}
	defer func() { r.depth-- }()

	name := socket.String() + ident

	// generic parameters shadow rule names inside a generic rule body
	if socket == cddlparser.NoSocket {
		for i := len(r.frames) - 1; i >= 0; i-- {
			if b, ok := r.frames[i][ident]; ok {
				saved := r.frames
				r.frames = b.frames
				errs := r.validateType(path, b.t, v)
				r.frames = saved
				return errs
			}
		}
	}

	set, ok := r.v.table.LookupType(name)
	if !ok {
		if socket != cddlparser.NoSocket {
			// unaugmented socket: matches nothing
			return Errors{{Path: path, Reason: "socket " + name + " has no definition"}}
		}
		return Errors{{Path: path, Reason: "unknown identifier: " + name}}
	}
	if len(set.Choices) == 0 {
		return Errors{{Path: path, Reason: "socket " + name + " has no definition"}}
	}

	if len(set.Params) > 0 {
		if len(args) != len(set.Params) {
			return Errors{{Path: path, Reason: fmt.Sprintf(
				"rule %s expects %d generic arguments, got %d", name, len(set.Params), len(args))}}
		}
		frame := make(map[string]genericBinding, len(args))
		for i, p := range set.Params {
			frame[p] = genericBinding{t: args[i], frames: r.frames}
		}
		r.frames = append(r.frames, frame)
		errs := r.validateChoices(path, set.Choices, v)
		r.frames = r.frames[:len(r.frames)-1]
		return errs
	}

	return r.validateChoices(path, set.Choices, v)
}

func (r *run) validateRange(path string, t1 *cddlparser.Type1, v any) Errors {
	lo, errs := r.rangeEndpoint(path, t1.Value)
	if errs != nil {
		return errs
	}
	hi, errs := r.rangeEndpoint(path, t1.Arg)
	if errs != nil {
		return errs
	}
	n, ok := r.ops().Numeric(v)
	if !ok {
		return r.fail(path, "number", v, "")
	}
	inclusive := t1.Op == cddlparser.InclusiveRangeToken
	if n < lo || (inclusive && n > hi) || (!inclusive && n >= hi) {
		op := ".."
		if !inclusive {
			op = "..."
		}
		return r.fail(path, fmt.Sprintf("%v%s%v", lo, op, hi), v,
			fmt.Sprintf("%v out of range", n))
	}
	return nil
}

// rangeEndpoint resolves a range bound to a number; identifier bounds
// resolve through the rule table.
func (r *run) rangeEndpoint(path string, t2 *cddlparser.Type2) (float64, Errors) {
	switch t2.Kind {
	case cddlparser.Type2Value:
		if !t2.Value.IsNumeric() {
			return 0, Errors{{Path: path, Reason: "incompatible range endpoint: " + t2.Value.String()}}
		}
		return t2.Value.AsFloat(), nil
	case cddlparser.Type2Ident:
		lit, ok := r.resolveLiteral(t2)
		if !ok || !lit.IsNumeric() {
			return 0, Errors{{Path: path, Reason: "range endpoint does not resolve to a number: " + t2.Ident}}
		}
		return lit.AsFloat(), nil
	}
	return 0, Errors{{Path: path, Reason: "incompatible range endpoint"}}
}

// resolveLiteral follows an identifier to a single literal value, through
// chains of single-choice rules.
func (r *run) resolveLiteral(t2 *cddlparser.Type2) (cddlparser.Value, bool) {
	for hops := 0; hops < r.v.maxDepth; hops++ {
		if t2.Kind == cddlparser.Type2Value {
			return t2.Value, true
		}
		if t2.Kind != cddlparser.Type2Ident {
			return cddlparser.Value{}, false
		}
		set, ok := r.v.table.LookupType(t2.Socket.String() + t2.Ident)
		if !ok || len(set.Choices) != 1 || set.Choices[0].Op != 0 {
			return cddlparser.Value{}, false
		}
		t2 = set.Choices[0].Value
	}
	return cddlparser.Value{}, false
}

// groupAsTypeChoices implements &(...) and &groupname: the group's entry
// value types become a type choice.
func (r *run) groupAsTypeChoices(path string, t2 *cddlparser.Type2) ([]*cddlparser.Type1, Errors) {
	g := t2.Group
	if g == nil {
		set, ok := r.v.table.LookupGroup(t2.Socket.String() + t2.Ident)
		if !ok {
			return nil, Errors{{Path: path, Reason: "unknown group: " + t2.Socket.String() + t2.Ident}}
		}
		g = &cddlparser.Group{Choices: set.Choices}
	}
	var choices []*cddlparser.Type1
	var collect func(g *cddlparser.Group) Errors
	collect = func(g *cddlparser.Group) Errors {
		for _, gc := range g.Choices {
			for _, e := range gc.Entries {
				if e.Inline != nil {
					if errs := collect(e.Inline); errs != nil {
						return errs
					}
					continue
				}
				if e.Value == nil {
					continue
				}
				choices = append(choices, e.Value.Choices...)
			}
		}
		return nil
	}
	if errs := collect(g); errs != nil {
		return nil, errs
	}
	if len(choices) == 0 {
		return nil, Errors{{Path: path, Reason: "empty group in '&' expression"}}
	}
	return choices, nil
}

func (r *run) validateTag(path string, t2 *cddlparser.Type2, v any) Errors {
	ops := r.ops()
	if !ops.TagsEnforced() {
		// JSON is untagged; #6.n T matches iff T matches
		if t2.TagInner != nil {
			return r.validateType(path, t2.TagInner, v)
		}
		return nil
	}
	if t2.TagMajor < 0 {
		return nil // bare '#' matches any data item
	}
	if t2.TagMajor == 6 && t2.HasTagNumber {
		num, content, ok := ops.Tag(v)
		if !ok {
			return r.fail(path, fmt.Sprintf("tag %d", t2.TagNumber), v, "")
		}
		if num != t2.TagNumber {
			return r.fail(path, fmt.Sprintf("tag %d", t2.TagNumber), v, fmt.Sprintf("tag number %d", num))
		}
		if t2.TagInner != nil {
			return r.validateType(path+".content", t2.TagInner, content)
		}
		return nil
	}
	// '#m' (and '#m.n' for m != 6) constrains the major type only
	mt, ok := ops.MajorType(v)
	if !ok || mt != t2.TagMajor {
		return r.fail(path, fmt.Sprintf("major type %d", t2.TagMajor), v, "")
	}
	if t2.TagInner != nil {
		return r.validateType(path, t2.TagInner, v)
	}
	return nil
}

// unwrapGroup resolves ~name to the group inside the target's map or
// array type.
func (r *run) unwrapGroup(path string, t2 *cddlparser.Type2) (*cddlparser.Group, Errors) {
	name := t2.Socket.String() + t2.Ident
	if set, ok := r.v.table.LookupType(name); ok {
		for _, t1 := range set.Choices {
			if t1.Op != 0 {
				continue
			}
			switch t1.Value.Kind {
			case cddlparser.Type2Map, cddlparser.Type2Array:
				return t1.Value.Group, nil
			}
		}
	}
	if set, ok := r.v.table.LookupGroup(name); ok {
		return &cddlparser.Group{Choices: set.Choices}, nil
	}
	return nil, Errors{{Path: path, Reason: "cannot unwrap " + name + ": not a map or array rule"}}
}

// occurrenceBounds returns the entry's multiplicity; the default is
// exactly once.
func occurrenceBounds(e *cddlparser.GroupEntry) (min, max uint64, unbounded bool) {
	if e.Occurrence == nil {
		return 1, 1, false
	}
	return e.Occurrence.Min, e.Occurrence.Max, e.Occurrence.Unbounded
}

// entrySubgroup recognizes entries that stand for a whole group: inline
// parenthesized groups, group-name references and unwraps.
func (r *run) entrySubgroup(e *cddlparser.GroupEntry) (*cddlparser.Group, bool) {
	if e.Key != nil {
		return nil, false
	}
	if e.Inline != nil {
		return e.Inline, true
	}
	if e.Value == nil || len(e.Value.Choices) != 1 {
		return nil, false
	}
	t1 := e.Value.Choices[0]
	if t1.Op != 0 {
		return nil, false
	}
	switch t1.Value.Kind {
	case cddlparser.Type2Ident:
		// group rules splice; so do parenthesized type rules, which
		// LookupGroup resolves. Map/array/primitive type rules stay
		// value entries.
		name := t1.Value.Socket.String() + t1.Value.Ident
		if set, ok := r.v.table.LookupGroup(name); ok {
			return &cddlparser.Group{Choices: set.Choices}, true
		}
	case cddlparser.Type2Unwrap:
		if g, errs := r.unwrapGroup("", t1.Value); errs == nil {
			return g, true
		}
	}
	return nil, false
}
