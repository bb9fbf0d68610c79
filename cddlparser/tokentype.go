package cddlparser

// TokenType enumerates every lexical category the Scanner can produce.
// Prelude type names and control operators each get their own token type
// so that the parser and validators can dispatch on the type alone.
type TokenType int

const (
	WhitespaceToken TokenType = iota + 1
	CommentToken

	IdentToken

	// Literal values; the decoded payload is available through
	// Scanner.Value, whose Kind is IntValue/UintValue/FloatValue/TextValue/BytesValue.
	IntLiteralToken
	UintLiteralToken
	FloatLiteralToken
	TextLiteralToken
	BytesLiteralToken

	// '#', '#m' or '#m.n'; see Scanner.TagMajor / Scanner.TagNumber
	TagToken

	AssignToken         // =
	TypeChoiceAltToken  // /=
	GroupChoiceAltToken // //=
	TypeChoiceToken     // /
	GroupChoiceToken    // //
	ArrowMapToken       // =>
	ColonToken          // :
	CommaToken          // ,
	OptionalToken       // ?
	AsteriskToken       // *
	OneOrMoreToken      // +
	UnwrapToken         // ~
	CutToken            // ^
	GroupToChoiceToken  // &

	LeftParenToken
	RightParenToken
	LeftBraceToken
	RightBraceToken
	LeftBracketToken
	RightBracketToken
	LeftAngleToken
	RightAngleToken

	InclusiveRangeToken // ..
	ExclusiveRangeToken // ...

	// Control operators
	SizeControlToken
	BitsControlToken
	RegexpControlToken
	PcreControlToken
	CborControlToken
	CborseqControlToken
	WithinControlToken
	AndControlToken
	LtControlToken
	LeControlToken
	GtControlToken
	GeControlToken
	EqControlToken
	NeControlToken
	DefaultControlToken

	// Standard prelude
	AnyTypeToken
	UintTypeToken
	NintTypeToken
	IntTypeToken
	BstrTypeToken
	BytesTypeToken
	TstrTypeToken
	TextTypeToken
	TdateTypeToken
	TimeTypeToken
	NumberTypeToken
	BiguintTypeToken
	BignintTypeToken
	BigintTypeToken
	IntegerTypeToken
	UnsignedTypeToken
	DecfracTypeToken
	BigfloatTypeToken
	Eb64urlTypeToken
	Eb64legacyTypeToken
	Eb16TypeToken
	EncodedCborTypeToken
	URITypeToken
	B64urlTypeToken
	B64legacyTypeToken
	RegexpTypeToken
	MimeMessageTypeToken
	CborAnyTypeToken
	Float16TypeToken
	Float32TypeToken
	Float64TypeToken
	Float1632TypeToken
	Float3264TypeToken
	FloatTypeToken
	FalseTypeToken
	TrueTypeToken
	BoolTypeToken
	NilTypeToken
	NullTypeToken
	UndefinedTypeToken

	UnterminatedTextLiteralErrorToken
	UnterminatedBytesLiteralErrorToken
	MalformedBytesLiteralErrorToken
	MalformedEscapeErrorToken
	UnknownControlErrorToken
	UnexpectedCharacterErrorToken
	NonUTF8ErrorToken

	EOFToken
)

func (tt TokenType) GoString() string {
	return tokenToDescription[tt]
}

func (tt TokenType) String() string {
	return tokenToDescription[tt]
}

// IsError reports whether the token is one of the lexical error tokens.
func (tt TokenType) IsError() bool {
	switch tt {
	case UnterminatedTextLiteralErrorToken, UnterminatedBytesLiteralErrorToken,
		MalformedBytesLiteralErrorToken, MalformedEscapeErrorToken,
		UnknownControlErrorToken, UnexpectedCharacterErrorToken, NonUTF8ErrorToken:
		return true
	}
	return false
}

// IsPrelude reports whether the token is a standard-prelude type name.
func (tt TokenType) IsPrelude() bool {
	return tt >= AnyTypeToken && tt <= UndefinedTypeToken
}

// IsControl reports whether the token is a control operator.
func (tt TokenType) IsControl() bool {
	return tt >= SizeControlToken && tt <= DefaultControlToken
}

func init() {
	// make sure we panic if a description isn't declared
	for tt := TokenType(1); tt != EOFToken; tt++ {
		if tokenToDescription[tt] == "" {
			panic("you have not updated tokenToDescription")
		}
	}
}

var tokenToDescription = map[TokenType]string{
	WhitespaceToken: "WhitespaceToken",
	CommentToken:    "CommentToken",

	IdentToken: "IdentToken",

	IntLiteralToken:   "IntLiteralToken",
	UintLiteralToken:  "UintLiteralToken",
	FloatLiteralToken: "FloatLiteralToken",
	TextLiteralToken:  "TextLiteralToken",
	BytesLiteralToken: "BytesLiteralToken",

	TagToken: "TagToken",

	AssignToken:         "AssignToken",
	TypeChoiceAltToken:  "TypeChoiceAltToken",
	GroupChoiceAltToken: "GroupChoiceAltToken",
	TypeChoiceToken:     "TypeChoiceToken",
	GroupChoiceToken:    "GroupChoiceToken",
	ArrowMapToken:       "ArrowMapToken",
	ColonToken:          "ColonToken",
	CommaToken:          "CommaToken",
	OptionalToken:       "OptionalToken",
	AsteriskToken:       "AsteriskToken",
	OneOrMoreToken:      "OneOrMoreToken",
	UnwrapToken:         "UnwrapToken",
	CutToken:            "CutToken",
	GroupToChoiceToken:  "GroupToChoiceToken",

	LeftParenToken:    "LeftParenToken",
	RightParenToken:   "RightParenToken",
	LeftBraceToken:    "LeftBraceToken",
	RightBraceToken:   "RightBraceToken",
	LeftBracketToken:  "LeftBracketToken",
	RightBracketToken: "RightBracketToken",
	LeftAngleToken:    "LeftAngleToken",
	RightAngleToken:   "RightAngleToken",

	InclusiveRangeToken: "InclusiveRangeToken",
	ExclusiveRangeToken: "ExclusiveRangeToken",

	SizeControlToken:    "SizeControlToken",
	BitsControlToken:    "BitsControlToken",
	RegexpControlToken:  "RegexpControlToken",
	PcreControlToken:    "PcreControlToken",
	CborControlToken:    "CborControlToken",
	CborseqControlToken: "CborseqControlToken",
	WithinControlToken:  "WithinControlToken",
	AndControlToken:     "AndControlToken",
	LtControlToken:      "LtControlToken",
	LeControlToken:      "LeControlToken",
	GtControlToken:      "GtControlToken",
	GeControlToken:      "GeControlToken",
	EqControlToken:      "EqControlToken",
	NeControlToken:      "NeControlToken",
	DefaultControlToken: "DefaultControlToken",

	AnyTypeToken:         "AnyTypeToken",
	UintTypeToken:        "UintTypeToken",
	NintTypeToken:        "NintTypeToken",
	IntTypeToken:         "IntTypeToken",
	BstrTypeToken:        "BstrTypeToken",
	BytesTypeToken:       "BytesTypeToken",
	TstrTypeToken:        "TstrTypeToken",
	TextTypeToken:        "TextTypeToken",
	TdateTypeToken:       "TdateTypeToken",
	TimeTypeToken:        "TimeTypeToken",
	NumberTypeToken:      "NumberTypeToken",
	BiguintTypeToken:     "BiguintTypeToken",
	BignintTypeToken:     "BignintTypeToken",
	BigintTypeToken:      "BigintTypeToken",
	IntegerTypeToken:     "IntegerTypeToken",
	UnsignedTypeToken:    "UnsignedTypeToken",
	DecfracTypeToken:     "DecfracTypeToken",
	BigfloatTypeToken:    "BigfloatTypeToken",
	Eb64urlTypeToken:     "Eb64urlTypeToken",
	Eb64legacyTypeToken:  "Eb64legacyTypeToken",
	Eb16TypeToken:        "Eb16TypeToken",
	EncodedCborTypeToken: "EncodedCborTypeToken",
	URITypeToken:         "URITypeToken",
	B64urlTypeToken:      "B64urlTypeToken",
	B64legacyTypeToken:   "B64legacyTypeToken",
	RegexpTypeToken:      "RegexpTypeToken",
	MimeMessageTypeToken: "MimeMessageTypeToken",
	CborAnyTypeToken:     "CborAnyTypeToken",
	Float16TypeToken:     "Float16TypeToken",
	Float32TypeToken:     "Float32TypeToken",
	Float64TypeToken:     "Float64TypeToken",
	Float1632TypeToken:   "Float1632TypeToken",
	Float3264TypeToken:   "Float3264TypeToken",
	FloatTypeToken:       "FloatTypeToken",
	FalseTypeToken:       "FalseTypeToken",
	TrueTypeToken:        "TrueTypeToken",
	BoolTypeToken:        "BoolTypeToken",
	NilTypeToken:         "NilTypeToken",
	NullTypeToken:        "NullTypeToken",
	UndefinedTypeToken:   "UndefinedTypeToken",

	UnterminatedTextLiteralErrorToken:  "UnterminatedTextLiteralErrorToken",
	UnterminatedBytesLiteralErrorToken: "UnterminatedBytesLiteralErrorToken",
	MalformedBytesLiteralErrorToken:    "MalformedBytesLiteralErrorToken",
	MalformedEscapeErrorToken:          "MalformedEscapeErrorToken",
	UnknownControlErrorToken:           "UnknownControlErrorToken",
	UnexpectedCharacterErrorToken:      "UnexpectedCharacterErrorToken",
	NonUTF8ErrorToken:                  "NonUTF8ErrorToken",

	EOFToken: "EOFToken",
}
