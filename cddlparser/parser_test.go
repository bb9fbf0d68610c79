package cddlparser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseOK(t *testing.T, src string) *Document {
	t.Helper()
	doc := ParseString("test.cddl", src)
	require.Empty(t, doc.Errors)
	return doc.WithoutPos()
}

func preludeT2(tt TokenType) *Type2 {
	return &Type2{Kind: Type2Prelude, Prelude: tt}
}

func typeOf(t2s ...*Type2) *Type {
	result := &Type{}
	for _, t2 := range t2s {
		result.Choices = append(result.Choices, &Type1{Value: t2})
	}
	return result
}

func textT2(s string) *Type2 {
	return &Type2{Kind: Type2Value, Value: Value{Kind: TextValue, Text: s}}
}

func TestParsePersonMap(t *testing.T) {
	doc := parseOK(t, `person = { name: tstr, age: uint }`)

	expected := &Document{Rules: []*Rule{{
		Name: "person",
		Value: typeOf(&Type2{Kind: Type2Map, Group: &Group{Choices: []*GroupChoice{{
			Entries: []*GroupEntry{
				{
					Key:   &MemberKey{Kind: MemberKeyBareword, Bareword: "name", Cut: true},
					Value: typeOf(preludeT2(TstrTypeToken)),
				},
				{
					Key:   &MemberKey{Kind: MemberKeyBareword, Bareword: "age", Cut: true},
					Value: typeOf(preludeT2(UintTypeToken)),
				},
			},
		}}}}),
	}}}
	assert.Equal(t, expected, doc)
}

func TestParseTypeChoice(t *testing.T) {
	doc := parseOK(t, `color = "red" / "green" / "blue"`)
	require.Len(t, doc.Rules, 1)
	assert.Equal(t, typeOf(textT2("red"), textT2("green"), textT2("blue")), doc.Rules[0].Value)
}

func TestParseOccurrences(t *testing.T) {
	doc := parseOK(t, `a = [ * int, ? tstr, + bool, 2*4 uint, 3* nil ]`)
	entries := doc.Rules[0].Value.Choices[0].Value.Group.Choices[0].Entries
	require.Len(t, entries, 5)

	assert.Equal(t, &Occurrence{Min: 0, Unbounded: true}, entries[0].Occurrence)
	assert.Equal(t, &Occurrence{Min: 0, Max: 1}, entries[1].Occurrence)
	assert.Equal(t, &Occurrence{Min: 1, Unbounded: true}, entries[2].Occurrence)
	assert.Equal(t, &Occurrence{Min: 2, Max: 4}, entries[3].Occurrence)
	assert.Equal(t, &Occurrence{Min: 3, Unbounded: true}, entries[4].Occurrence)
}

func TestParseRanges(t *testing.T) {
	doc := parseOK(t, "port = 0..65535\nprob = 0.0...1.0")

	port := doc.Rules[0].Value.Choices[0]
	assert.Equal(t, InclusiveRangeToken, port.Op)
	assert.Equal(t, Value{Kind: UintValue, Uint: 0}, port.Value.Value)
	assert.Equal(t, Value{Kind: UintValue, Uint: 65535}, port.Arg.Value)

	prob := doc.Rules[1].Value.Choices[0]
	assert.Equal(t, ExclusiveRangeToken, prob.Op)
	assert.Equal(t, Value{Kind: FloatValue, Float: 0}, prob.Value.Value)
	assert.Equal(t, Value{Kind: FloatValue, Float: 1}, prob.Arg.Value)
}

func TestParseInvalidRangeEndpoint(t *testing.T) {
	doc := ParseString("test.cddl", `bad = "a" .. "z"`)
	require.NotEmpty(t, doc.Errors)
	assert.Contains(t, doc.Errors[0].Message, "incompatible range endpoints")
}

func TestParseControls(t *testing.T) {
	doc := parseOK(t, `sized = tstr .size 3`)
	t1 := doc.Rules[0].Value.Choices[0]
	assert.Equal(t, SizeControlToken, t1.Op)
	assert.Equal(t, preludeT2(TstrTypeToken), t1.Value)
	assert.Equal(t, Value{Kind: UintValue, Uint: 3}, t1.Arg.Value)
}

func TestParseTagExpression(t *testing.T) {
	doc := parseOK(t, `geo = #6.55799 bstr`)
	t2 := doc.Rules[0].Value.Choices[0].Value
	assert.Equal(t, Type2Tag, t2.Kind)
	assert.Equal(t, 6, t2.TagMajor)
	assert.Equal(t, uint64(55799), t2.TagNumber)
	assert.True(t, t2.HasTagNumber)
	assert.Equal(t, typeOf(preludeT2(BstrTypeToken)), t2.TagInner)

	doc = parseOK(t, `item = #`)
	t2 = doc.Rules[0].Value.Choices[0].Value
	assert.Equal(t, Type2Tag, t2.Kind)
	assert.Equal(t, -1, t2.TagMajor)

	doc = parseOK(t, `txt = #3`)
	t2 = doc.Rules[0].Value.Choices[0].Value
	assert.Equal(t, 3, t2.TagMajor)
	assert.False(t, t2.HasTagNumber)
}

func TestParseGenerics(t *testing.T) {
	doc := parseOK(t, "message<t, v> = {type: t, value: v}\nmsg = message<tstr, int>")

	assert.Equal(t, []string{"t", "v"}, doc.Rules[0].GenericParams)

	ref := doc.Rules[1].Value.Choices[0].Value
	assert.Equal(t, Type2Ident, ref.Kind)
	assert.Equal(t, "message", ref.Ident)
	require.Len(t, ref.GenericArgs, 2)
	assert.Equal(t, typeOf(preludeT2(TstrTypeToken)), ref.GenericArgs[0])
	assert.Equal(t, typeOf(preludeT2(IntTypeToken)), ref.GenericArgs[1])
}

func TestParseAlternates(t *testing.T) {
	doc := parseOK(t, "color = \"red\"\ncolor /= \"green\"\n$$ext //= ( note: tstr )")

	assert.False(t, doc.Rules[0].IsAlternate)
	assert.True(t, doc.Rules[1].IsAlternate)
	assert.False(t, doc.Rules[1].IsGroup)

	ext := doc.Rules[2]
	assert.True(t, ext.IsAlternate)
	assert.True(t, ext.IsGroup)
	assert.Equal(t, GroupSocket, ext.Socket)
	assert.Equal(t, "ext", ext.Name)
	require.NotNil(t, ext.Entry.Inline)
}

func TestParseNakedGroupRule(t *testing.T) {
	doc := parseOK(t, `g = a: int`)
	rule := doc.Rules[0]
	assert.True(t, rule.IsGroup)
	require.NotNil(t, rule.Entry)
	assert.Equal(t, "a", rule.Entry.Key.Bareword)
}

func TestParseMemberKeys(t *testing.T) {
	doc := parseOK(t, `m = { 1: int, "lit" ^ => tstr, tstr => any, id => bool }`)
	entries := doc.Rules[0].Value.Choices[0].Value.Group.Choices[0].Entries
	require.Len(t, entries, 4)

	assert.Equal(t, MemberKeyValue, entries[0].Key.Kind)
	assert.Equal(t, Value{Kind: UintValue, Uint: 1}, entries[0].Key.Value)
	assert.True(t, entries[0].Key.Cut)

	assert.Equal(t, MemberKeyValue, entries[1].Key.Kind)
	assert.Equal(t, "lit", entries[1].Key.Value.Text)
	assert.True(t, entries[1].Key.Cut)

	assert.Equal(t, MemberKeyType, entries[2].Key.Kind)
	assert.False(t, entries[2].Key.Cut)
	assert.Equal(t, preludeT2(TstrTypeToken), entries[2].Key.Type.Value)

	assert.Equal(t, MemberKeyType, entries[3].Key.Kind)
	assert.Equal(t, "id", entries[3].Key.Type.Value.Ident)
}

func TestParseUnwrapAndGroupToChoice(t *testing.T) {
	doc := parseOK(t, "base = [ int ]\nwrapped = [ ~base, tstr ]\npicked = &( a: 1, b: 2 )\nnamed = &base")

	entry := doc.Rules[1].Value.Choices[0].Value.Group.Choices[0].Entries[0]
	assert.Equal(t, Type2Unwrap, entry.Value.Choices[0].Value.Kind)
	assert.Equal(t, "base", entry.Value.Choices[0].Value.Ident)

	picked := doc.Rules[2].Value.Choices[0].Value
	assert.Equal(t, Type2ChoiceFromGroup, picked.Kind)
	require.NotNil(t, picked.Group)

	named := doc.Rules[3].Value.Choices[0].Value
	assert.Equal(t, Type2ChoiceFromGroup, named.Kind)
	assert.Equal(t, "base", named.Ident)
}

func TestParseGroupChoices(t *testing.T) {
	doc := parseOK(t, `g = { a: int // b: tstr }`)
	group := doc.Rules[0].Value.Choices[0].Value.Group
	require.Len(t, group.Choices, 2)
	assert.Equal(t, "a", group.Choices[0].Entries[0].Key.Bareword)
	assert.Equal(t, "b", group.Choices[1].Entries[0].Key.Bareword)
}

func TestParseRecovery(t *testing.T) {
	doc := ParseString("test.cddl", "bad = = =\ngood = int\nworse = }\nfine = tstr")
	require.Len(t, doc.Rules, 2)
	assert.Equal(t, "good", doc.Rules[0].Name)
	assert.Equal(t, "fine", doc.Rules[1].Name)
	assert.NotEmpty(t, doc.Errors)
	// positions point into the source
	assert.Equal(t, FileRef("test.cddl"), doc.Errors[0].Pos.File)
}

func TestParseCommentsAreSkipped(t *testing.T) {
	doc := parseOK(t, "; top comment\nrule = int ; trailing\n; footer\n")
	require.Len(t, doc.Rules, 1)
	assert.Equal(t, "rule", doc.Rules[0].Name)
}

func TestParseEmptyInput(t *testing.T) {
	doc := ParseString("test.cddl", "   \n ; just a comment\n")
	assert.Empty(t, doc.Rules)
	assert.NotEmpty(t, doc.Errors)
}

// Reparsing the displayed AST must yield the same AST.
func TestParseIdempotenceOnDisplay(t *testing.T) {
	sources := []string{
		`person = { name: tstr, age: uint }`,
		`color = "red" / "green" / "blue"`,
		`ints = [ * int ]`,
		`sized = tstr .size 3`,
		`geo = #6.55799 bstr`,
		`port = 0..65535`,
		"message<t> = {type: t}\nmsg = message<tstr>",
		`g = { 1: int, tstr => any // b: tstr }`,
		"base = [ int ]\nwrapped = [ ~base ]\npicked = &( a: 1, b: 2 )",
		`occ = [ ? tstr, 2*4 uint, * nil ]`,
	}
	for _, src := range sources {
		doc := ParseString("a.cddl", src)
		require.Empty(t, doc.Errors, "source %q", src)
		again := ParseString("b.cddl", doc.String())
		require.Empty(t, again.Errors, "redisplay of %q: %s", src, doc.String())
		assert.Equal(t, doc.WithoutPos(), again.WithoutPos(), "display %q", doc.String())
	}
}
