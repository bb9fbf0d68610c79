package validator

import (
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cborMarshal(t *testing.T, v any) []byte {
	t.Helper()
	b, err := cbor.Marshal(v)
	require.NoError(t, err)
	return b
}

func cborValidate(t *testing.T, schema string, data []byte) Errors {
	t.Helper()
	table := mustTable(t, schema)
	v, err := DecodeCBOR(data)
	require.NoError(t, err)
	return NewCBORValidator(table).Validate("", v)
}

func TestCBORMajorTypeSoundness(t *testing.T) {
	cases := []struct {
		schema string
		value  any
		ok     bool
	}{
		{`v = uint`, uint64(5), true},
		{`v = uint`, int64(-5), false},
		{`v = uint`, "x", false},
		{`v = nint`, int64(-5), true},
		{`v = nint`, uint64(5), false},
		{`v = int`, uint64(5), true},
		{`v = int`, int64(-5), true},
		{`v = int`, 1.5, false},
		{`v = bstr`, []byte{1, 2}, true},
		{`v = bstr`, "text", false},
		{`v = tstr`, "text", true},
		{`v = tstr`, []byte{1}, false},
		{`v = float`, 1.5, true},
		{`v = float`, uint64(1), false},
		{`v = number`, 1.5, true},
		{`v = number`, uint64(1), true},
		{`v = bool`, true, true},
		{`v = true`, true, true},
		{`v = true`, false, false},
		{`v = nil`, nil, true},
		{`v = undefined`, nil, true},
		{`v = any`, []any{uint64(1), "x"}, true},
	}
	for _, c := range cases {
		errs := cborValidate(t, c.schema, cborMarshal(t, c.value))
		assert.Equal(t, c.ok, len(errs) == 0, "%s against %v: %v", c.schema, c.value, errs)
	}
}

func TestCBORPersonMap(t *testing.T) {
	schema := `person = { name: tstr, age: uint }`
	assert.Empty(t, cborValidate(t, schema,
		cborMarshal(t, map[string]any{"name": "Ada", "age": 36})))

	errs := cborValidate(t, schema,
		cborMarshal(t, map[string]any{"name": "Ada", "age": -1}))
	require.NotEmpty(t, errs)
	assert.Equal(t, "root.age", errs[0].Path)
}

func TestCBORIntegerMapKeys(t *testing.T) {
	schema := `m = { 1: tstr, 2: uint }`
	assert.Empty(t, cborValidate(t, schema,
		cborMarshal(t, map[int]any{1: "x", 2: 9})))
	assert.NotEmpty(t, cborValidate(t, schema,
		cborMarshal(t, map[int]any{1: "x", 3: 9})))
}

func TestCBORArray(t *testing.T) {
	assert.Empty(t, cborValidate(t, `ints = [ * int ]`, cborMarshal(t, []int{1, 2, -3})))
	assert.NotEmpty(t, cborValidate(t, `ints = [ * int ]`, cborMarshal(t, []any{1, "x"})))
}

func TestCBORSizeControl(t *testing.T) {
	assert.Empty(t, cborValidate(t, `sized = tstr .size 3`, cborMarshal(t, "abc")))
	assert.NotEmpty(t, cborValidate(t, `sized = tstr .size 3`, cborMarshal(t, "abcd")))
}

func TestCBORByteStringLiteral(t *testing.T) {
	assert.Empty(t, cborValidate(t, `b = h'0102'`, cborMarshal(t, []byte{1, 2})))
	assert.NotEmpty(t, cborValidate(t, `b = h'0102'`, cborMarshal(t, []byte{1, 3})))
}

func TestCBORTagExpression(t *testing.T) {
	schema := `geo = #6.55799 bstr`

	// 0xd9d9f7 is tag 55799; 0x42 0x01 0x02 is a two-byte string
	tagged := []byte{0xd9, 0xd9, 0xf7, 0x42, 0x01, 0x02}
	assert.Empty(t, cborValidate(t, schema, tagged))

	// the untagged byte string does not satisfy the tag expression
	untagged := []byte{0x42, 0x01, 0x02}
	errs := cborValidate(t, schema, untagged)
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0].Expected, "tag 55799")

	// wrong tag number
	wrongTag := []byte{0xd8, 0x2a, 0x42, 0x01, 0x02} // tag 42
	assert.NotEmpty(t, cborValidate(t, schema, wrongTag))
}

func TestCBORBareTagMatchesAnything(t *testing.T) {
	assert.Empty(t, cborValidate(t, `v = #`, cborMarshal(t, "x")))
	assert.Empty(t, cborValidate(t, `v = #`, cborMarshal(t, 5)))
}

func TestCBORMajorTypeConstraint(t *testing.T) {
	assert.Empty(t, cborValidate(t, `v = #3`, cborMarshal(t, "x")))
	assert.NotEmpty(t, cborValidate(t, `v = #3`, cborMarshal(t, 5)))
	assert.Empty(t, cborValidate(t, `v = #0`, cborMarshal(t, 5)))
}

func TestCBOREmbeddedCbor(t *testing.T) {
	schema := `x = bstr .cbor uint`
	inner := cborMarshal(t, uint64(7))
	assert.Empty(t, cborValidate(t, schema, cborMarshal(t, inner)))

	badInner := cborMarshal(t, "s")
	assert.NotEmpty(t, cborValidate(t, schema, cborMarshal(t, badInner)))

	assert.NotEmpty(t, cborValidate(t, schema, cborMarshal(t, []byte{0xff})))
}

func TestCBOREmbeddedCborSeq(t *testing.T) {
	schema := `x = bstr .cborseq [ * uint ]`
	payload := append(cborMarshal(t, uint64(1)), cborMarshal(t, uint64(2))...)
	assert.Empty(t, cborValidate(t, schema, cborMarshal(t, payload)))

	mixed := append(cborMarshal(t, uint64(1)), cborMarshal(t, "x")...)
	assert.NotEmpty(t, cborValidate(t, schema, cborMarshal(t, mixed)))
}

func TestCBORDuplicateMapKeysRejected(t *testing.T) {
	// {1: 1, 1: 2}
	dup := []byte{0xa2, 0x01, 0x01, 0x01, 0x02}
	_, err := DecodeCBOR(dup)
	assert.Error(t, err)
}

func TestCBORTdate(t *testing.T) {
	// tag 0 enclosing an RFC 3339 text string
	text := "2023-01-01T00:00:00Z"
	data := append([]byte{0xc0, 0x74}, []byte(text)...)
	require.Len(t, []byte(text), 20)
	assert.Empty(t, cborValidate(t, `d = tdate`, data))
	assert.NotEmpty(t, cborValidate(t, `d = tdate`, cborMarshal(t, text)))
}

func TestCBORValidateNamedRule(t *testing.T) {
	schema := "first = uint\nsecond = tstr"
	table := mustTable(t, schema)
	v, err := DecodeCBOR(cborMarshal(t, "x"))
	require.NoError(t, err)
	assert.NotEmpty(t, NewCBORValidator(table).Validate("", v))
	assert.Empty(t, NewCBORValidator(table).Validate("second", v))
}

func TestCBORNestedStructure(t *testing.T) {
	schema := `msg = { body: [ * { id: uint } ] }`
	good := map[string]any{"body": []any{map[string]any{"id": 1}}}
	assert.Empty(t, cborValidate(t, schema, cborMarshal(t, good)))

	bad := map[string]any{"body": []any{map[string]any{"id": "x"}}}
	errs := cborValidate(t, schema, cborMarshal(t, bad))
	require.NotEmpty(t, errs)
	assert.Equal(t, "root.body[0]", errs[0].Path)
}
