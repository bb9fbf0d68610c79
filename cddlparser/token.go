package cddlparser

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// SocketPlug marks the extension-point prefix of an identifier.
type SocketPlug int

const (
	NoSocket    SocketPlug = iota
	TypeSocket             // $
	GroupSocket            // $$
)

func (sp SocketPlug) String() string {
	switch sp {
	case TypeSocket:
		return "$"
	case GroupSocket:
		return "$$"
	}
	return ""
}

// ByteEncoding is the source notation a byte-string literal was written in.
type ByteEncoding int

const (
	ByteEncodingUTF8   ByteEncoding = iota // '...'
	ByteEncodingBase16                     // h'...'
	ByteEncodingBase64                     // b64'...'
)

// ValueKind discriminates Value.
type ValueKind int

const (
	IntValue ValueKind = iota + 1
	UintValue
	FloatValue
	TextValue
	BytesValue
)

// Value is a decoded literal: signed/unsigned integer, float, text or bytes.
type Value struct {
	Kind     ValueKind
	Int      int64
	Uint     uint64
	Float    float64
	Text     string
	Bytes    []byte
	Encoding ByteEncoding
}

func (v Value) String() string {
	switch v.Kind {
	case IntValue:
		return strconv.FormatInt(v.Int, 10)
	case UintValue:
		return strconv.FormatUint(v.Uint, 10)
	case FloatValue:
		s := strconv.FormatFloat(v.Float, 'g', -1, 64)
		// keep floats lexically distinct from integers
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return s
	case TextValue:
		return fmt.Sprintf("%q", v.Text)
	case BytesValue:
		switch v.Encoding {
		case ByteEncodingBase16:
			return "h'" + hex.EncodeToString(v.Bytes) + "'"
		case ByteEncodingBase64:
			return "b64'" + base64.RawURLEncoding.EncodeToString(v.Bytes) + "'"
		default:
			return "'" + string(v.Bytes) + "'"
		}
	}
	return ""
}

// IsNumeric reports whether the value can serve as a range endpoint or
// comparison target.
func (v Value) IsNumeric() bool {
	switch v.Kind {
	case IntValue, UintValue, FloatValue:
		return true
	}
	return false
}

// AsFloat widens any numeric value to float64 for bounds arithmetic.
func (v Value) AsFloat() float64 {
	switch v.Kind {
	case IntValue:
		return float64(v.Int)
	case UintValue:
		return float64(v.Uint)
	case FloatValue:
		return v.Float
	}
	panic("AsFloat on non-numeric value")
}

// Equal compares two literals by semantic value, not by notation; 1 == 1.0
// is false (kinds differ for int vs float) but h'01' == '\x01' is true.
func (v Value) Equal(o Value) bool {
	if v.Kind == BytesValue && o.Kind == BytesValue {
		return string(v.Bytes) == string(o.Bytes)
	}
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case IntValue:
		return v.Int == o.Int
	case UintValue:
		return v.Uint == o.Uint
	case FloatValue:
		return v.Float == o.Float
	case TextValue:
		return v.Text == o.Text
	}
	return false
}

var preludeWords = map[string]TokenType{
	"any":          AnyTypeToken,
	"uint":         UintTypeToken,
	"nint":         NintTypeToken,
	"int":          IntTypeToken,
	"bstr":         BstrTypeToken,
	"bytes":        BytesTypeToken,
	"tstr":         TstrTypeToken,
	"text":         TextTypeToken,
	"tdate":        TdateTypeToken,
	"time":         TimeTypeToken,
	"number":       NumberTypeToken,
	"biguint":      BiguintTypeToken,
	"bignint":      BignintTypeToken,
	"bigint":       BigintTypeToken,
	"integer":      IntegerTypeToken,
	"unsigned":     UnsignedTypeToken,
	"decfrac":      DecfracTypeToken,
	"bigfloat":     BigfloatTypeToken,
	"eb64url":      Eb64urlTypeToken,
	"eb64legacy":   Eb64legacyTypeToken,
	"eb16":         Eb16TypeToken,
	"encoded-cbor": EncodedCborTypeToken,
	"uri":          URITypeToken,
	"b64url":       B64urlTypeToken,
	"b64legacy":    B64legacyTypeToken,
	"regexp":       RegexpTypeToken,
	"mime-message": MimeMessageTypeToken,
	"cbor-any":     CborAnyTypeToken,
	"float16":      Float16TypeToken,
	"float32":      Float32TypeToken,
	"float64":      Float64TypeToken,
	"float16-32":   Float1632TypeToken,
	"float32-64":   Float3264TypeToken,
	"float":        FloatTypeToken,
	"false":        FalseTypeToken,
	"true":         TrueTypeToken,
	"bool":         BoolTypeToken,
	"nil":          NilTypeToken,
	"null":         NullTypeToken,
	"undefined":    UndefinedTypeToken,
}

var controlWords = map[string]TokenType{
	".size":    SizeControlToken,
	".bits":    BitsControlToken,
	".regexp":  RegexpControlToken,
	".pcre":    PcreControlToken,
	".cbor":    CborControlToken,
	".cborseq": CborseqControlToken,
	".within":  WithinControlToken,
	".and":     AndControlToken,
	".lt":      LtControlToken,
	".le":      LeControlToken,
	".gt":      GtControlToken,
	".ge":      GeControlToken,
	".eq":      EqControlToken,
	".ne":      NeControlToken,
	".default": DefaultControlToken,
}

// LookupIdent classifies a scanned word as a prelude token or IdentToken
// with its socket prefix stripped.
func LookupIdent(word string) (tt TokenType, ident string, socket SocketPlug) {
	if tt, ok := preludeWords[word]; ok {
		return tt, "", NoSocket
	}
	if strings.HasPrefix(word, "$$") {
		return IdentToken, word[2:], GroupSocket
	}
	if strings.HasPrefix(word, "$") {
		return IdentToken, word[1:], TypeSocket
	}
	return IdentToken, word, NoSocket
}

// LookupControl returns the control-operator token for a dotted word, if any.
func LookupControl(word string) (TokenType, bool) {
	tt, ok := controlWords[word]
	return tt, ok
}

var tokenDisplay map[TokenType]string

func init() {
	tokenDisplay = map[TokenType]string{
		AssignToken:         "=",
		TypeChoiceAltToken:  "/=",
		GroupChoiceAltToken: "//=",
		TypeChoiceToken:     "/",
		GroupChoiceToken:    "//",
		ArrowMapToken:       "=>",
		ColonToken:          ":",
		CommaToken:          ",",
		OptionalToken:       "?",
		AsteriskToken:       "*",
		OneOrMoreToken:      "+",
		UnwrapToken:         "~",
		CutToken:            "^",
		GroupToChoiceToken:  "&",
		LeftParenToken:      "(",
		RightParenToken:     ")",
		LeftBraceToken:      "{",
		RightBraceToken:     "}",
		LeftBracketToken:    "[",
		RightBracketToken:   "]",
		LeftAngleToken:      "<",
		RightAngleToken:     ">",
		InclusiveRangeToken: "..",
		ExclusiveRangeToken: "...",
		TagToken:            "#",
	}
	for w, tt := range preludeWords {
		tokenDisplay[tt] = w
	}
	for w, tt := range controlWords {
		tokenDisplay[tt] = w
	}
}

// Display returns the canonical source spelling of a fixed token (operators,
// punctuation, control operators and prelude words). Identifier, value and
// error tokens have no fixed spelling and return "".
func Display(tt TokenType) string {
	return tokenDisplay[tt]
}
