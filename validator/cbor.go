package validator

import (
	"fmt"
	"math/big"
	"reflect"
	"sort"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/datapact/cddl/cddlparser"
)

// The decode mode fixes the item-tree shape the CBOR validator walks:
// major 0 stays uint64 and major 1 stays int64 (no conversion), maps
// decode to map[any]any, unregistered tags surface as cbor.Tag, and
// duplicate map keys are rejected at decode time.
var cborDecMode cbor.DecMode

func init() {
	dm, err := cbor.DecOptions{
		DupMapKey:      cbor.DupMapKeyEnforcedAPF,
		DefaultMapType: reflect.TypeOf(map[any]any(nil)),
		TagsMd:         cbor.TagsAllowed,
		IntDec:         cbor.IntDecConvertNone,
	}.DecMode()
	if err != nil {
		panic(err)
	}
	cborDecMode = dm
}

// NewCBORValidator builds a validator for CBOR instances over a compiled
// rule table.
func NewCBORValidator(table *cddlparser.RuleTable) *Validator {
	return newValidator(table, cborOps{})
}

// DecodeCBOR parses one CBOR data item into the generic item tree the
// CBOR validator walks. Duplicate map keys are a decode error.
func DecodeCBOR(data []byte) (any, error) {
	var v any
	if err := cborDecMode.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

type cborOps struct{}

func (cborOps) Describe(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case uint64:
		return "uint"
	case int64:
		return "nint"
	case float64, float32:
		return "float"
	case []byte:
		return "byte string"
	case string:
		return "text string"
	case []any:
		return "array"
	case map[any]any:
		return "map"
	case cbor.Tag:
		return fmt.Sprintf("tag %d", x.Number)
	case time.Time:
		return "date/time"
	case big.Int, *big.Int:
		return "bignum"
	}
	return fmt.Sprintf("%T", v)
}

func cborNumeric(v any) (float64, bool) {
	switch x := v.(type) {
	case uint64:
		return float64(x), true
	case int64:
		return float64(x), true
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case big.Int:
		f, _ := new(big.Float).SetInt(&x).Float64()
		return f, true
	case *big.Int:
		f, _ := new(big.Float).SetInt(x).Float64()
		return f, true
	}
	return 0, false
}

func cborBignumSign(v any) (int, bool) {
	switch x := v.(type) {
	case big.Int:
		return x.Sign(), true
	case *big.Int:
		return x.Sign(), true
	}
	return 0, false
}

func taggedWith(v any, num uint64) (any, bool) {
	t, ok := v.(cbor.Tag)
	if !ok || t.Number != num {
		return nil, false
	}
	return t.Content, true
}

func (o cborOps) MatchPrelude(tok cddlparser.TokenType, v any) bool {
	switch tok {
	case cddlparser.AnyTypeToken:
		return true

	case cddlparser.UintTypeToken, cddlparser.UnsignedTypeToken:
		_, ok := v.(uint64)
		return ok
	case cddlparser.NintTypeToken:
		n, ok := v.(int64)
		return ok && n < 0
	case cddlparser.IntTypeToken, cddlparser.IntegerTypeToken:
		switch v.(type) {
		case uint64, int64:
			return true
		}
		return false

	case cddlparser.BstrTypeToken, cddlparser.BytesTypeToken:
		_, ok := v.([]byte)
		return ok
	case cddlparser.TstrTypeToken, cddlparser.TextTypeToken:
		_, ok := v.(string)
		return ok

	// float widths are accepted loosely: the generic decode normalizes
	// the subtype byte away
	case cddlparser.FloatTypeToken, cddlparser.Float16TypeToken, cddlparser.Float32TypeToken,
		cddlparser.Float64TypeToken, cddlparser.Float1632TypeToken, cddlparser.Float3264TypeToken:
		switch v.(type) {
		case float64, float32:
			return true
		}
		return false

	case cddlparser.NumberTypeToken:
		switch v.(type) {
		case uint64, int64, float64, float32:
			return true
		}
		return false

	case cddlparser.BoolTypeToken:
		_, ok := v.(bool)
		return ok
	case cddlparser.TrueTypeToken:
		return v == true
	case cddlparser.FalseTypeToken:
		return v == false

	case cddlparser.NilTypeToken, cddlparser.NullTypeToken, cddlparser.UndefinedTypeToken:
		return v == nil

	case cddlparser.TdateTypeToken:
		if _, ok := v.(time.Time); ok {
			return true
		}
		c, ok := taggedWith(v, 0)
		if !ok {
			return false
		}
		_, isText := c.(string)
		return isText
	case cddlparser.TimeTypeToken:
		if _, ok := v.(time.Time); ok {
			return true
		}
		c, ok := taggedWith(v, 1)
		if !ok {
			return false
		}
		_, isNum := cborNumeric(c)
		return isNum

	case cddlparser.BiguintTypeToken:
		if sign, ok := cborBignumSign(v); ok {
			return sign >= 0
		}
		c, ok := taggedWith(v, 2)
		if !ok {
			return false
		}
		_, isBytes := c.([]byte)
		return isBytes
	case cddlparser.BignintTypeToken:
		if sign, ok := cborBignumSign(v); ok {
			return sign < 0
		}
		c, ok := taggedWith(v, 3)
		if !ok {
			return false
		}
		_, isBytes := c.([]byte)
		return isBytes
	case cddlparser.BigintTypeToken:
		if _, ok := cborBignumSign(v); ok {
			return true
		}
		if c, ok := taggedWith(v, 2); ok {
			_, isBytes := c.([]byte)
			return isBytes
		}
		if c, ok := taggedWith(v, 3); ok {
			_, isBytes := c.([]byte)
			return isBytes
		}
		return false

	case cddlparser.DecfracTypeToken:
		_, ok := taggedWith(v, 4)
		return ok
	case cddlparser.BigfloatTypeToken:
		_, ok := taggedWith(v, 5)
		return ok
	case cddlparser.Eb64urlTypeToken:
		_, ok := taggedWith(v, 21)
		return ok
	case cddlparser.Eb64legacyTypeToken:
		_, ok := taggedWith(v, 22)
		return ok
	case cddlparser.Eb16TypeToken:
		_, ok := taggedWith(v, 23)
		return ok
	case cddlparser.EncodedCborTypeToken:
		c, ok := taggedWith(v, 24)
		if !ok {
			return false
		}
		_, isBytes := c.([]byte)
		return isBytes
	case cddlparser.URITypeToken:
		c, ok := taggedWith(v, 32)
		if !ok {
			return false
		}
		_, isText := c.(string)
		return isText
	case cddlparser.B64urlTypeToken:
		c, ok := taggedWith(v, 33)
		if !ok {
			return false
		}
		_, isText := c.(string)
		return isText
	case cddlparser.B64legacyTypeToken:
		c, ok := taggedWith(v, 34)
		if !ok {
			return false
		}
		_, isText := c.(string)
		return isText
	case cddlparser.RegexpTypeToken:
		c, ok := taggedWith(v, 35)
		if !ok {
			return false
		}
		_, isText := c.(string)
		return isText
	case cddlparser.MimeMessageTypeToken:
		c, ok := taggedWith(v, 36)
		if !ok {
			return false
		}
		_, isText := c.(string)
		return isText
	case cddlparser.CborAnyTypeToken:
		_, ok := taggedWith(v, 55799)
		return ok
	}
	return false
}

func (o cborOps) MatchLiteral(lit cddlparser.Value, v any) bool {
	switch lit.Kind {
	case cddlparser.TextValue:
		s, ok := v.(string)
		return ok && s == lit.Text
	case cddlparser.BytesValue:
		b, ok := v.([]byte)
		return ok && string(b) == string(lit.Bytes)
	case cddlparser.UintValue:
		u, ok := v.(uint64)
		return ok && u == lit.Uint
	case cddlparser.IntValue:
		switch x := v.(type) {
		case int64:
			return x == lit.Int
		case uint64:
			return lit.Int >= 0 && x == uint64(lit.Int)
		}
		return false
	case cddlparser.FloatValue:
		switch x := v.(type) {
		case float64:
			return x == lit.Float
		case float32:
			return float64(x) == lit.Float
		}
		return false
	}
	return false
}

func (cborOps) AsArray(v any) ([]any, bool) {
	a, ok := v.([]any)
	return a, ok
}

func (cborOps) AsMap(v any) ([]mapMember, bool) {
	m, ok := v.(map[any]any)
	if !ok {
		return nil, false
	}
	members := make([]mapMember, 0, len(m))
	for k, val := range m {
		members = append(members, mapMember{Key: k, Value: val})
	}
	// deterministic order for diagnostics; CBOR map order is not significant
	sort.Slice(members, func(i, j int) bool {
		return fmt.Sprintf("%v", members[i].Key) < fmt.Sprintf("%v", members[j].Key)
	})
	return members, true
}

func (cborOps) KeyEqualsBareword(word string, key any) bool {
	s, ok := key.(string)
	return ok && s == word
}

func (o cborOps) KeyEqualsLiteral(lit cddlparser.Value, key any) bool {
	return o.MatchLiteral(lit, key)
}

func (cborOps) Numeric(v any) (float64, bool) {
	return cborNumeric(v)
}

func (cborOps) Text(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func (cborOps) Bytes(v any) ([]byte, bool) {
	b, ok := v.([]byte)
	return b, ok
}

func (cborOps) Tag(v any) (uint64, any, bool) {
	switch x := v.(type) {
	case cbor.Tag:
		return x.Number, x.Content, true
	case time.Time:
		// the decoder already consumed the standard date tag
		return 0, x.Format(time.RFC3339), true
	case big.Int:
		if x.Sign() < 0 {
			return 3, (&x).Bytes(), true
		}
		return 2, (&x).Bytes(), true
	case *big.Int:
		if x.Sign() < 0 {
			return 3, x.Bytes(), true
		}
		return 2, x.Bytes(), true
	}
	return 0, nil, false
}

func (cborOps) MajorType(v any) (int, bool) {
	switch v.(type) {
	case uint64:
		return 0, true
	case int64:
		return 1, true
	case []byte:
		return 2, true
	case string:
		return 3, true
	case []any:
		return 4, true
	case map[any]any:
		return 5, true
	case cbor.Tag, time.Time, big.Int, *big.Int:
		return 6, true
	case bool, nil, float32, float64:
		return 7, true
	}
	return 0, false
}

func (cborOps) TagsEnforced() bool {
	return true
}

func (cborOps) DecodeEmbedded(b []byte) (any, bool, error) {
	v, err := DecodeCBOR(b)
	return v, true, err
}

func (cborOps) DecodeEmbeddedSeq(b []byte) ([]any, bool, error) {
	var items []any
	rest := b
	for len(rest) > 0 {
		var v any
		r, err := cborDecMode.UnmarshalFirst(rest, &v)
		if err != nil {
			return nil, true, err
		}
		items = append(items, v)
		rest = r
	}
	return items, true, nil
}
