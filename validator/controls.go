package validator

import (
	"fmt"
	"math"
	"regexp"

	"github.com/dlclark/regexp2"

	"github.com/datapact/cddl/cddlparser"
)

// regexCache holds compiled patterns keyed by operand text. .regexp uses
// the stdlib engine, .pcre the regexp2 engine; RFC 8610 distinguishes the
// two dialects.
type regexCache struct {
	std  map[string]*regexp.Regexp
	pcre map[string]*regexp2.Regexp
}

func newRegexCache() *regexCache {
	return &regexCache{
		std:  make(map[string]*regexp.Regexp),
		pcre: make(map[string]*regexp2.Regexp),
	}
}

func (c *regexCache) matchStd(pattern, text string) (bool, error) {
	re, ok := c.std[pattern]
	if !ok {
		var err error
		re, err = regexp.Compile("^(?:" + pattern + ")$")
		if err != nil {
			return false, err
		}
		c.std[pattern] = re
	}
	return re.MatchString(text), nil
}

func (c *regexCache) matchPCRE(pattern, text string) (bool, error) {
	re, ok := c.pcre[pattern]
	if !ok {
		var err error
		re, err = regexp2.Compile(`\A(?:`+pattern+`)\z`, 0)
		if err != nil {
			return false, err
		}
		c.pcre[pattern] = re
	}
	return re.MatchString(text)
}

func (r *run) applyControl(path string, t1 *cddlparser.Type1, v any) Errors {
	target, arg := t1.Value, t1.Arg
	switch t1.Op {
	case cddlparser.DefaultControlToken:
		// .default only affects absent optional members; present values
		// validate against the target type alone
		return r.validateType2(path, target, v)

	case cddlparser.AndControlToken, cddlparser.WithinControlToken:
		// .within is checked operationally: both sides must match
		if errs := r.validateType2(path, target, v); errs != nil {
			return errs
		}
		return r.validateType2(path, arg, v)

	case cddlparser.SizeControlToken:
		return r.controlSize(path, t1, v)

	case cddlparser.BitsControlToken:
		return r.controlBits(path, t1, v)

	case cddlparser.LtControlToken, cddlparser.LeControlToken,
		cddlparser.GtControlToken, cddlparser.GeControlToken,
		cddlparser.EqControlToken, cddlparser.NeControlToken:
		return r.controlCompare(path, t1, v)

	case cddlparser.RegexpControlToken, cddlparser.PcreControlToken:
		return r.controlRegex(path, t1, v)

	case cddlparser.CborControlToken, cddlparser.CborseqControlToken:
		return r.controlCbor(path, t1, v)
	}
	return Errors{{Path: path, Reason: "internal: unhandled control " + t1.Op.String()}}
}

func (r *run) controlSize(path string, t1 *cddlparser.Type1, v any) Errors {
	if errs := r.validateType2(path, t1.Value, v); errs != nil {
		return errs
	}
	lo, hi, inclusive, ok := r.resolveBounds(t1.Arg)
	if !ok {
		return Errors{{Path: path, Reason: ".size argument must be a uint or range"}}
	}

	ops := r.ops()
	if text, isText := ops.Text(v); isText {
		return r.checkLength(path, float64(len(text)), lo, hi, inclusive, v)
	}
	if b, isBytes := ops.Bytes(v); isBytes {
		return r.checkLength(path, float64(len(b)), lo, hi, inclusive, v)
	}
	if n, isNum := ops.Numeric(v); isNum {
		// a numeric target is constrained to the value range of that many
		// bytes: 0 <= v < 256^size
		limit := math.Pow(256, hi)
		if n < 0 || n >= limit {
			return r.fail(path, fmt.Sprintf("uint of %v bytes", hi), v,
				fmt.Sprintf("%v does not fit", n))
		}
		return nil
	}
	return Errors{{Path: path, Reason: ".size not applicable to " + ops.Describe(v)}}
}

func (r *run) checkLength(path string, n, lo, hi float64, inclusive bool, v any) Errors {
	if n < lo || (inclusive && n > hi) || (!inclusive && n >= hi) {
		expected := fmt.Sprintf(".size %v", lo)
		if lo != hi {
			expected = fmt.Sprintf(".size %v..%v", lo, hi)
		}
		return r.fail(path, expected, v, fmt.Sprintf("length %v", n))
	}
	return nil
}

// resolveBounds interprets a control argument as either an exact uint
// (lo == hi) or a numeric range, following identifier indirection.
func (r *run) resolveBounds(arg *cddlparser.Type2) (lo, hi float64, inclusive bool, ok bool) {
	t1 := r.resolveArgType1(arg)
	if t1 == nil {
		return 0, 0, false, false
	}
	if t1.Op == 0 {
		if t1.Value.Kind != cddlparser.Type2Value || !t1.Value.Value.IsNumeric() {
			return 0, 0, false, false
		}
		n := t1.Value.Value.AsFloat()
		return n, n, true, true
	}
	if t1.Op != cddlparser.InclusiveRangeToken && t1.Op != cddlparser.ExclusiveRangeToken {
		return 0, 0, false, false
	}
	loV, errs := r.rangeEndpoint("", t1.Value)
	if errs != nil {
		return 0, 0, false, false
	}
	hiV, errs := r.rangeEndpoint("", t1.Arg)
	if errs != nil {
		return 0, 0, false, false
	}
	return loV, hiV, t1.Op == cddlparser.InclusiveRangeToken, true
}

// resolveArgType1 follows a control argument through parens and rule
// references down to a single Type1.
func (r *run) resolveArgType1(arg *cddlparser.Type2) *cddlparser.Type1 {
	for hops := 0; hops < r.v.maxDepth; hops++ {
		switch arg.Kind {
		case cddlparser.Type2Value:
			return &cddlparser.Type1{Value: arg}
		case cddlparser.Type2Paren:
			t1 := parenType1(arg.Group)
			if t1 == nil {
				return nil
			}
			if t1.Op != 0 {
				return t1
			}
			arg = t1.Value
		case cddlparser.Type2Ident:
			set, ok := r.v.table.LookupType(arg.Socket.String() + arg.Ident)
			if !ok || len(set.Choices) != 1 {
				return nil
			}
			t1 := set.Choices[0]
			if t1.Op != 0 {
				return t1
			}
			arg = t1.Value
		default:
			return nil
		}
	}
	return nil
}

func (r *run) controlCompare(path string, t1 *cddlparser.Type1, v any) Errors {
	if errs := r.validateType2(path, t1.Value, v); errs != nil {
		return errs
	}
	ops := r.ops()

	// .eq/.ne compare any literal, not just numbers
	argT1 := r.resolveArgType1(t1.Arg)
	if argT1 != nil && argT1.Op == 0 && argT1.Value.Kind == cddlparser.Type2Value &&
		!argT1.Value.Value.IsNumeric() {
		equal := ops.MatchLiteral(argT1.Value.Value, v)
		switch t1.Op {
		case cddlparser.EqControlToken:
			if !equal {
				return r.fail(path, argT1.Value.Value.String(), v, ".eq")
			}
			return nil
		case cddlparser.NeControlToken:
			if equal {
				return r.fail(path, "anything but "+argT1.Value.Value.String(), v, ".ne")
			}
			return nil
		}
		return Errors{{Path: path, Reason: "comparison against non-numeric argument"}}
	}

	n, ok := ops.Numeric(v)
	if !ok {
		return r.fail(path, "number", v, "comparison control")
	}
	if argT1 == nil || argT1.Op != 0 || argT1.Value.Kind != cddlparser.Type2Value {
		return Errors{{Path: path, Reason: "comparison argument must be a numeric literal"}}
	}
	target := argT1.Value.Value.AsFloat()

	holds := false
	var opName string
	switch t1.Op {
	case cddlparser.LtControlToken:
		holds, opName = n < target, ".lt"
	case cddlparser.LeControlToken:
		holds, opName = n <= target, ".le"
	case cddlparser.GtControlToken:
		holds, opName = n > target, ".gt"
	case cddlparser.GeControlToken:
		holds, opName = n >= target, ".ge"
	case cddlparser.EqControlToken:
		holds, opName = n == target, ".eq"
	case cddlparser.NeControlToken:
		holds, opName = n != target, ".ne"
	}
	if !holds {
		return r.fail(path, fmt.Sprintf("%s %v", opName, target), v, "")
	}
	return nil
}

func (r *run) controlRegex(path string, t1 *cddlparser.Type1, v any) Errors {
	if errs := r.validateType2(path, t1.Value, v); errs != nil {
		return errs
	}
	text, ok := r.ops().Text(v)
	if !ok {
		return r.fail(path, "text string", v, "regex control")
	}
	argT1 := r.resolveArgType1(t1.Arg)
	if argT1 == nil || argT1.Op != 0 || argT1.Value.Kind != cddlparser.Type2Value ||
		argT1.Value.Value.Kind != cddlparser.TextValue {
		return Errors{{Path: path, Reason: "regex operand must be a text literal"}}
	}
	pattern := argT1.Value.Value.Text

	var matched bool
	var err error
	if t1.Op == cddlparser.PcreControlToken {
		matched, err = r.v.regexes.matchPCRE(pattern, text)
	} else {
		matched, err = r.v.regexes.matchStd(pattern, text)
	}
	if err != nil {
		return Errors{{Path: path, Reason: "invalid regex " + fmt.Sprintf("%q", pattern) + ": " + err.Error()}}
	}
	if !matched {
		return r.fail(path, fmt.Sprintf("match for %q", pattern), v, "")
	}
	return nil
}

func (r *run) controlCbor(path string, t1 *cddlparser.Type1, v any) Errors {
	if errs := r.validateType2(path, t1.Value, v); errs != nil {
		return errs
	}
	b, ok := r.ops().Bytes(v)
	if !ok {
		return r.fail(path, "byte string", v, "embedded CBOR control")
	}
	if t1.Op == cddlparser.CborControlToken {
		item, supported, err := r.ops().DecodeEmbedded(b)
		if !supported {
			return nil
		}
		if err != nil {
			return Errors{{Path: path, Reason: "embedded CBOR does not decode: " + err.Error()}}
		}
		return r.validateType2(path+".cbor", t1.Arg, item)
	}
	items, supported, err := r.ops().DecodeEmbeddedSeq(b)
	if !supported {
		return nil
	}
	if err != nil {
		return Errors{{Path: path, Reason: "embedded CBOR sequence does not decode: " + err.Error()}}
	}
	// a CBOR sequence validates as the equivalent untagged array
	return r.validateType2(path+".cborseq", t1.Arg, any(items))
}

func (r *run) controlBits(path string, t1 *cddlparser.Type1, v any) Errors {
	if errs := r.validateType2(path, t1.Value, v); errs != nil {
		return errs
	}
	allowed, ok := r.collectBitPositions(t1.Arg)
	if !ok {
		return Errors{{Path: path, Reason: ".bits argument must enumerate bit positions"}}
	}
	ops := r.ops()
	if b, isBytes := ops.Bytes(v); isBytes {
		// bit N is bit N&7 of byte N>>3, least significant first
		for i, by := range b {
			for bit := 0; bit < 8; bit++ {
				if by&(1<<bit) != 0 {
					pos := uint64(i*8 + bit)
					if _, okBit := allowed[pos]; !okBit {
						return r.fail(path, "allowed bits only", v, fmt.Sprintf("bit %d set", pos))
					}
				}
			}
		}
		return nil
	}
	if n, isNum := ops.Numeric(v); isNum && n >= 0 && n == math.Trunc(n) {
		u := uint64(n)
		for pos := uint64(0); pos < 64; pos++ {
			if u&(1<<pos) != 0 {
				if _, okBit := allowed[pos]; !okBit {
					return r.fail(path, "allowed bits only", v, fmt.Sprintf("bit %d set", pos))
				}
			}
		}
		return nil
	}
	return Errors{{Path: path, Reason: ".bits not applicable to " + ops.Describe(v)}}
}

// collectBitPositions gathers the uint literals reachable from a .bits
// argument: a group of named positions, a type choice of uints, or a
// &(...) expression.
func (r *run) collectBitPositions(arg *cddlparser.Type2) (map[uint64]struct{}, bool) {
	positions := make(map[uint64]struct{})

	var fromType func(t *cddlparser.Type) bool
	var fromGroup func(g *cddlparser.Group) bool
	fromGroup = func(g *cddlparser.Group) bool {
		for _, gc := range g.Choices {
			for _, e := range gc.Entries {
				if e.Inline != nil {
					if !fromGroup(e.Inline) {
						return false
					}
					continue
				}
				if e.Value == nil || !fromType(e.Value) {
					return false
				}
			}
		}
		return true
	}
	fromType = func(t *cddlparser.Type) bool {
		for _, t1 := range t.Choices {
			if t1.Op != 0 || t1.Value.Kind != cddlparser.Type2Value {
				return false
			}
			val := t1.Value.Value
			if val.Kind != cddlparser.UintValue {
				return false
			}
			positions[val.Uint] = struct{}{}
		}
		return true
	}

	// follow identifier indirection to the enumerating expression
	for hops := 0; arg.Kind == cddlparser.Type2Ident && hops < r.v.maxDepth; hops++ {
		name := arg.Socket.String() + arg.Ident
		if _, isGroup := r.v.table.LookupGroup(name); isGroup {
			break
		}
		set, ok := r.v.table.LookupType(name)
		if !ok || len(set.Choices) != 1 || set.Choices[0].Op != 0 ||
			set.Choices[0].Value.Kind == cddlparser.Type2Value {
			break
		}
		arg = set.Choices[0].Value
	}

	switch arg.Kind {
	case cddlparser.Type2ChoiceFromGroup:
		g := arg.Group
		if g == nil {
			set, ok := r.v.table.LookupGroup(arg.Socket.String() + arg.Ident)
			if !ok {
				return nil, false
			}
			g = &cddlparser.Group{Choices: set.Choices}
		}
		if !fromGroup(g) {
			return nil, false
		}
	case cddlparser.Type2Ident:
		name := arg.Socket.String() + arg.Ident
		if set, ok := r.v.table.LookupGroup(name); ok {
			if !fromGroup(&cddlparser.Group{Choices: set.Choices}) {
				return nil, false
			}
			break
		}
		set, ok := r.v.table.LookupType(name)
		if !ok || !fromType(&cddlparser.Type{Choices: set.Choices}) {
			return nil, false
		}
	case cddlparser.Type2Paren:
		if !fromGroup(arg.Group) {
			return nil, false
		}
	default:
		return nil, false
	}
	return positions, len(positions) > 0
}
