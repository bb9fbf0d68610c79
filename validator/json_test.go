package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datapact/cddl/cddlparser"
)

func mustTable(t *testing.T, src string) *cddlparser.RuleTable {
	t.Helper()
	doc := cddlparser.ParseString("test.cddl", src)
	require.Empty(t, doc.Errors)
	table, errs := cddlparser.BuildRuleTable(doc)
	require.Empty(t, errs)
	return table
}

func jsonValidate(t *testing.T, schema, instance string) Errors {
	t.Helper()
	table := mustTable(t, schema)
	v, err := DecodeJSON(instance)
	require.NoError(t, err)
	return NewJSONValidator(table).Validate("", v)
}

func TestJSONPersonOk(t *testing.T) {
	errs := jsonValidate(t, `person = { name: tstr, age: uint }`,
		`{"name":"Ada","age":36}`)
	assert.Empty(t, errs)
}

func TestJSONPersonNegativeAge(t *testing.T) {
	errs := jsonValidate(t, `person = { name: tstr, age: uint }`,
		`{"name":"Ada","age":-1}`)
	require.NotEmpty(t, errs)
	assert.Equal(t, "root.age", errs[0].Path)
	assert.Equal(t, "uint", errs[0].Expected)
}

func TestJSONPersonMissingMember(t *testing.T) {
	errs := jsonValidate(t, `person = { name: tstr, age: uint }`,
		`{"name":"Ada"}`)
	require.NotEmpty(t, errs)
	assert.Equal(t, "root.age", errs[0].Path)
	assert.Contains(t, errs[0].Reason, "missing required map member")
}

func TestJSONUnexpectedMember(t *testing.T) {
	errs := jsonValidate(t, `person = { name: tstr, ? age: uint }`,
		`{"name":"Ada","extra":true}`)
	require.NotEmpty(t, errs)
	assert.Equal(t, "root.extra", errs[0].Path)
	assert.Contains(t, errs[0].Reason, "unexpected map member")
}

func TestJSONChoiceNoAlternativeMatched(t *testing.T) {
	errs := jsonValidate(t, `color = "red" / "green" / "blue"`, `"purple"`)
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0].Reason, "no choice matched")
	// each alternative's reason is collected
	assert.Len(t, errs, 4)
}

func TestJSONChoiceCommutativity(t *testing.T) {
	assert.Empty(t, jsonValidate(t, `v = int / tstr`, `"x"`))
	assert.Empty(t, jsonValidate(t, `v = tstr / int`, `"x"`))
	assert.Empty(t, jsonValidate(t, `v = int / tstr`, `3`))
	assert.Empty(t, jsonValidate(t, `v = tstr / int`, `3`))
}

func TestJSONArrayOfInts(t *testing.T) {
	assert.Empty(t, jsonValidate(t, `ints = [ * int ]`, `[1,2,-3]`))
	assert.Empty(t, jsonValidate(t, `ints = [ * int ]`, `[]`))

	errs := jsonValidate(t, `ints = [ * int ]`, `[1,"x"]`)
	require.NotEmpty(t, errs)
}

func TestJSONArrayPositional(t *testing.T) {
	schema := `pair = [ tstr, int ]`
	assert.Empty(t, jsonValidate(t, schema, `["a",1]`))
	assert.NotEmpty(t, jsonValidate(t, schema, `[1,"a"]`))
	assert.NotEmpty(t, jsonValidate(t, schema, `["a"]`))
	assert.NotEmpty(t, jsonValidate(t, schema, `["a",1,2]`))
}

func TestJSONOccurrenceBounds(t *testing.T) {
	assert.Empty(t, jsonValidate(t, `a = [ ? int ]`, `[]`))
	assert.Empty(t, jsonValidate(t, `a = [ ? int ]`, `[1]`))
	assert.NotEmpty(t, jsonValidate(t, `a = [ ? int ]`, `[1,2]`))

	assert.NotEmpty(t, jsonValidate(t, `b = [ + int ]`, `[]`))
	assert.Empty(t, jsonValidate(t, `b = [ + int ]`, `[1,1,1]`))

	assert.Empty(t, jsonValidate(t, `c = [ 2*3 int ]`, `[1,2]`))
	assert.Empty(t, jsonValidate(t, `c = [ 2*3 int ]`, `[1,2,3]`))
	assert.NotEmpty(t, jsonValidate(t, `c = [ 2*3 int ]`, `[1]`))
	assert.NotEmpty(t, jsonValidate(t, `c = [ 2*3 int ]`, `[1,2,3,4]`))
}

func TestJSONRangeTotality(t *testing.T) {
	for i, want := range map[string]bool{`0`: false, `1`: true, `3`: true, `5`: true, `6`: false} {
		errs := jsonValidate(t, `n = 1..5`, i)
		assert.Equal(t, want, len(errs) == 0, "1..5 against %s", i)
	}
	// upper bound is exclusive with ...
	assert.Empty(t, jsonValidate(t, `n = 1...5`, `4`))
	assert.NotEmpty(t, jsonValidate(t, `n = 1...5`, `5`))
}

func TestJSONRangeIdentifierEndpoints(t *testing.T) {
	schema := "lo = 1\nhi = 5\nn = lo..hi"
	table := mustTable(t, schema)
	v, err := DecodeJSON(`3`)
	require.NoError(t, err)
	assert.Empty(t, NewJSONValidator(table).Validate("n", v))

	v, _ = DecodeJSON(`9`)
	assert.NotEmpty(t, NewJSONValidator(table).Validate("n", v))
}

func TestJSONNestedPath(t *testing.T) {
	errs := jsonValidate(t, `t = { foo: [ { bar: uint } ] }`,
		`{"foo":[{"bar":-1}]}`)
	require.NotEmpty(t, errs)
	assert.Equal(t, "root.foo[0].bar", errs[0].Path)
}

func TestJSONGroupChoiceInMap(t *testing.T) {
	schema := `g = { a: int // b: tstr }`
	assert.Empty(t, jsonValidate(t, schema, `{"a":1}`))
	assert.Empty(t, jsonValidate(t, schema, `{"b":"x"}`))
	assert.NotEmpty(t, jsonValidate(t, schema, `{"c":true}`))
}

func TestJSONGenericKeys(t *testing.T) {
	assert.Empty(t, jsonValidate(t, `h = { * tstr => uint }`, `{"a":1,"b":2}`))
	assert.NotEmpty(t, jsonValidate(t, `h = { * tstr => uint }`, `{"a":"x"}`))
	// without an occurrence the generic entry binds exactly one member
	assert.NotEmpty(t, jsonValidate(t, `h = { tstr => uint }`, `{"a":1,"b":2}`))

	// a literal key binds before a generic entry can steal its member
	schema := `h = { * tstr => int, name: tstr }`
	assert.Empty(t, jsonValidate(t, schema, `{"name":"x"}`))
	assert.Empty(t, jsonValidate(t, schema, `{"name":"x","n":1}`))
}

func TestJSONCutSemantics(t *testing.T) {
	// the colon always cuts: a non-matching value may not be absorbed by
	// a later generic entry
	withCut := `c = { ? k: int, * tstr => any }`
	assert.NotEmpty(t, jsonValidate(t, withCut, `{"k":"text"}`))
	assert.Empty(t, jsonValidate(t, withCut, `{"k":1,"other":true}`))

	// without the cut the generic entry absorbs the member
	noCut := `c = { ? "k" => int, * tstr => any }`
	assert.Empty(t, jsonValidate(t, noCut, `{"k":"text"}`))
}

func TestJSONUnwrapSplice(t *testing.T) {
	schema := "base = [ int ]\nwrapped = [ ~base, tstr ]"
	table := mustTable(t, schema)
	v, err := DecodeJSON(`[1,"x"]`)
	require.NoError(t, err)
	assert.Empty(t, NewJSONValidator(table).Validate("wrapped", v))

	v, _ = DecodeJSON(`["x"]`)
	assert.NotEmpty(t, NewJSONValidator(table).Validate("wrapped", v))
}

func TestJSONGroupToChoice(t *testing.T) {
	schema := `vals = &( a: 1, b: 2 )`
	assert.Empty(t, jsonValidate(t, schema, `1`))
	assert.Empty(t, jsonValidate(t, schema, `2`))
	assert.NotEmpty(t, jsonValidate(t, schema, `3`))
}

func TestJSONGroupReferenceInMap(t *testing.T) {
	schema := "m = { g }\ng = ( a: int, b: tstr )"
	table := mustTable(t, schema)
	v, err := DecodeJSON(`{"a":1,"b":"x"}`)
	require.NoError(t, err)
	assert.Empty(t, NewJSONValidator(table).Validate("m", v))
}

func TestJSONGenericRule(t *testing.T) {
	schema := "box<contents> = { value: contents }\nb = box<uint>"
	table := mustTable(t, schema)
	v, err := DecodeJSON(`{"value":3}`)
	require.NoError(t, err)
	assert.Empty(t, NewJSONValidator(table).Validate("b", v))

	v, _ = DecodeJSON(`{"value":"s"}`)
	assert.NotEmpty(t, NewJSONValidator(table).Validate("b", v))
}

func TestJSONSocketMatchesNothing(t *testing.T) {
	errs := jsonValidate(t, `s = $sock`, `1`)
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0].Reason, "socket $sock has no definition")
}

func TestJSONSocketWithAlternate(t *testing.T) {
	assert.Empty(t, jsonValidate(t, "s = $sock\n$sock /= int", `1`))
}

func TestJSONRecursionLimit(t *testing.T) {
	errs := jsonValidate(t, `a = a`, `1`)
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0].Reason, "recursion limit exceeded")
}

func TestJSONRecursiveRule(t *testing.T) {
	schema := `tree = { value: int, ? left: tree, ? right: tree }`
	assert.Empty(t, jsonValidate(t, schema,
		`{"value":1,"left":{"value":2},"right":{"value":3,"left":{"value":4}}}`))
}

func TestJSONTagIsNotEnforced(t *testing.T) {
	// JSON is untagged: #6.n T matches iff T matches
	assert.Empty(t, jsonValidate(t, `g = #6.55799 tstr`, `"x"`))
	assert.NotEmpty(t, jsonValidate(t, `g = #6.55799 tstr`, `1`))
}

func TestJSONPreludePrimitives(t *testing.T) {
	cases := []struct {
		schema, instance string
		ok               bool
	}{
		{`v = bool`, `true`, true},
		{`v = false`, `false`, true},
		{`v = false`, `true`, false},
		{`v = nil`, `null`, true},
		{`v = nil`, `0`, false},
		{`v = float`, `1.25`, true},
		{`v = number`, `-2`, true},
		{`v = nint`, `-2`, true},
		{`v = nint`, `2`, false},
		{`v = tdate`, `"2023-01-01T00:00:00Z"`, true},
		{`v = tdate`, `"yesterday"`, false},
		{`v = uri`, `"https://example.com/x"`, true},
		{`v = uri`, `"not a uri"`, false},
		{`v = undefined`, `null`, false},
		{`v = any`, `{"x":[1,2]}`, true},
	}
	for _, c := range cases {
		errs := jsonValidate(t, c.schema, c.instance)
		assert.Equal(t, c.ok, len(errs) == 0, "%s against %s: %v", c.schema, c.instance, errs)
	}
}

func TestJSONByteStringLiterals(t *testing.T) {
	// byte strings travel as base16 or base64url text in JSON
	assert.Empty(t, jsonValidate(t, `b = h'4865'`, `"4865"`))
	assert.Empty(t, jsonValidate(t, `b = h'4865'`, `"He"`))
	assert.NotEmpty(t, jsonValidate(t, `b = h'4865'`, `"nope!"`))
}

func TestJSONValidateNamedRule(t *testing.T) {
	table := mustTable(t, "first = int\nsecond = tstr")
	v, err := DecodeJSON(`"x"`)
	require.NoError(t, err)
	assert.NotEmpty(t, NewJSONValidator(table).Validate("", v))
	assert.Empty(t, NewJSONValidator(table).Validate("second", v))
	errs := NewJSONValidator(table).Validate("third", v)
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0].Reason, "unknown rule: third")
}

func TestDecodeJSONRejectsGarbage(t *testing.T) {
	_, err := DecodeJSON(`{"a":`)
	assert.Error(t, err)
	_, err = DecodeJSON(`1 2`)
	assert.Error(t, err)
}
