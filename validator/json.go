package validator

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"math"
	"net/url"
	"sort"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/datapact/cddl/cddlparser"
)

// NewJSONValidator builds a validator for JSON instances over a compiled
// rule table.
func NewJSONValidator(table *cddlparser.RuleTable) *Validator {
	return newValidator(table, jsonOps{})
}

// DecodeJSON parses text into the generic value tree the JSON validator
// walks: map[string]any, []any, json.Number, string, bool and nil.
func DecodeJSON(text string) (any, error) {
	dec := jsoniter.ConfigCompatibleWithStandardLibrary.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after JSON value")
	}
	return v, nil
}

type jsonOps struct{}

func (jsonOps) Describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case json.Number:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	return "unknown value"
}

func jsonNumber(v any) (float64, bool) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	f, err := n.Float64()
	if err != nil {
		return 0, false
	}
	return f, true
}

func jsonIntegral(v any) (float64, bool) {
	f, ok := jsonNumber(v)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return f, true
}

func (o jsonOps) MatchPrelude(tok cddlparser.TokenType, v any) bool {
	switch tok {
	case cddlparser.AnyTypeToken, cddlparser.CborAnyTypeToken:
		return true

	case cddlparser.UintTypeToken, cddlparser.UnsignedTypeToken, cddlparser.BiguintTypeToken:
		f, ok := jsonIntegral(v)
		return ok && f >= 0
	case cddlparser.NintTypeToken, cddlparser.BignintTypeToken:
		f, ok := jsonIntegral(v)
		return ok && f < 0
	case cddlparser.IntTypeToken, cddlparser.IntegerTypeToken, cddlparser.BigintTypeToken:
		_, ok := jsonIntegral(v)
		return ok

	case cddlparser.NumberTypeToken, cddlparser.FloatTypeToken,
		cddlparser.Float16TypeToken, cddlparser.Float32TypeToken, cddlparser.Float64TypeToken,
		cddlparser.Float1632TypeToken, cddlparser.Float3264TypeToken,
		cddlparser.DecfracTypeToken, cddlparser.BigfloatTypeToken,
		cddlparser.TimeTypeToken:
		_, ok := jsonNumber(v)
		return ok

	case cddlparser.TstrTypeToken, cddlparser.TextTypeToken,
		cddlparser.BstrTypeToken, cddlparser.BytesTypeToken,
		cddlparser.EncodedCborTypeToken,
		cddlparser.Eb64urlTypeToken, cddlparser.Eb64legacyTypeToken, cddlparser.Eb16TypeToken,
		cddlparser.B64urlTypeToken, cddlparser.B64legacyTypeToken,
		cddlparser.RegexpTypeToken, cddlparser.MimeMessageTypeToken:
		_, ok := v.(string)
		return ok

	case cddlparser.TdateTypeToken:
		s, ok := v.(string)
		if !ok {
			return false
		}
		_, err := time.Parse(time.RFC3339, s)
		return err == nil

	case cddlparser.URITypeToken:
		s, ok := v.(string)
		if !ok {
			return false
		}
		u, err := url.Parse(s)
		return err == nil && u.IsAbs()

	case cddlparser.BoolTypeToken:
		_, ok := v.(bool)
		return ok
	case cddlparser.TrueTypeToken:
		return v == true
	case cddlparser.FalseTypeToken:
		return v == false

	case cddlparser.NilTypeToken, cddlparser.NullTypeToken:
		return v == nil
	case cddlparser.UndefinedTypeToken:
		return false // JSON has no undefined
	}
	return false
}

func (o jsonOps) MatchLiteral(lit cddlparser.Value, v any) bool {
	switch lit.Kind {
	case cddlparser.TextValue:
		s, ok := v.(string)
		return ok && s == lit.Text
	case cddlparser.UintValue, cddlparser.IntValue:
		f, ok := jsonIntegral(v)
		return ok && f == lit.AsFloat()
	case cddlparser.FloatValue:
		f, ok := jsonNumber(v)
		return ok && f == lit.Float
	case cddlparser.BytesValue:
		s, ok := v.(string)
		if !ok {
			return false
		}
		if string(lit.Bytes) == s {
			return true
		}
		// byte strings travel through JSON as base16 or base64url text
		if b, err := hex.DecodeString(s); err == nil && string(b) == string(lit.Bytes) {
			return true
		}
		if b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "=")); err == nil &&
			string(b) == string(lit.Bytes) {
			return true
		}
		return false
	}
	return false
}

func (jsonOps) AsArray(v any) ([]any, bool) {
	a, ok := v.([]any)
	return a, ok
}

func (jsonOps) AsMap(v any) ([]mapMember, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	members := make([]mapMember, 0, len(m))
	for _, k := range keys {
		members = append(members, mapMember{Key: k, Value: m[k]})
	}
	return members, true
}

func (jsonOps) KeyEqualsBareword(word string, key any) bool {
	s, ok := key.(string)
	return ok && s == word
}

func (o jsonOps) KeyEqualsLiteral(lit cddlparser.Value, key any) bool {
	// JSON member names are strings; only text literals can match
	return lit.Kind == cddlparser.TextValue && o.KeyEqualsBareword(lit.Text, key)
}

func (jsonOps) Numeric(v any) (float64, bool) {
	return jsonNumber(v)
}

func (jsonOps) Text(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func (jsonOps) Bytes(v any) ([]byte, bool) {
	s, ok := v.(string)
	if !ok {
		return nil, false
	}
	return []byte(s), true
}

func (jsonOps) Tag(v any) (uint64, any, bool) {
	return 0, nil, false
}

func (jsonOps) MajorType(v any) (int, bool) {
	return 0, false
}

func (jsonOps) TagsEnforced() bool {
	return false
}

func (jsonOps) DecodeEmbedded(b []byte) (any, bool, error) {
	return nil, false, nil
}

func (jsonOps) DecodeEmbeddedSeq(b []byte) ([]any, bool, error) {
	return nil, false, nil
}
