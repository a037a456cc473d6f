// Package value implements the tagged 64-bit Value representation from
// spec §3/§4.1: doubles stored by native bit pattern, with a reserved
// quiet-NaN pattern plus a 3-bit tag distinguishing the non-double
// variants. Every non-double variant that needs heap storage packs a
// 48-bit pointer into the low bits.
//
// Grounded on paserati/pkg/values.Value (the tagged-union constructor/
// predicate/accessor shape: Undefined, Null, True/False, NumberValue,
// IntegerValue, NewString, ...) and on
// original_source/src/core/runtime/values/value.cpp for the actual
// NaN-boxing bit layout (encodePointer/decodePointer, QUIET_NAN_MASK,
// per-variant tag) that paserati's own Value (a tag byte + union, not
// real NaN-boxing) does not implement.
//
// GC is an explicit external collaborator (spec §1): the 48-bit pointer
// payload hides live references from a conservative or precise Go GC
// scan the way it would from any generational collector not built to
// scan tagged words. A production embedding pins referenced objects
// through the host's own root set; this package only implements the bit
// layout and leaves rooting to the collaborator.
package value

import (
	"math"
	"unsafe"

	"github.com/aerojs/aerojs-core/internal/rt/bigint"
	rtstrings "github.com/aerojs/aerojs-core/internal/rt/strings"
	"github.com/aerojs/aerojs-core/internal/rt/symbol"
	"github.com/aerojs/aerojs-core/pkg/errors"
)

// Tag is the 3-bit discriminant packed into bits 48-50 of a non-double
// Value. There are exactly 8 possible tags, one per non-double variant
// named in spec §3.
type Tag uint8

const (
	TagUndefined Tag = iota
	TagNull
	TagBoolean
	TagInt32
	TagObject
	TagString
	TagSymbol
	TagBigInt
)

const (
	// qnanMask is the reserved 13-bit pattern (sign=1, exponent=0x7FF,
	// quiet=1) marking a 64-bit word as "not a double" — chosen with the
	// sign bit set so it never collides with the positive quiet NaN Go's
	// math.NaN() produces (spec §3 invariant "isDouble XOR hasTag").
	qnanMask uint64 = 0xFFF8_0000_0000_0000
	tagShift        = 48
	tagMask  uint64 = 0x7 << tagShift
	payloadMask uint64 = 0x0000_FFFF_FFFF_FFFF
)

// Value is the tagged 64-bit JavaScript value.
type Value struct {
	bits uint64
}

func tagged(tag Tag, payload uint64) Value {
	return Value{bits: qnanMask | (uint64(tag) << tagShift) | (payload & payloadMask)}
}

func (v Value) tag() Tag { return Tag((v.bits & tagMask) >> tagShift) }

func (v Value) payload() uint64 { return v.bits & payloadMask }

// IsDouble reports whether v holds a native float64 (spec §3 invariant).
func (v Value) IsDouble() bool { return v.bits&qnanMask != qnanMask }

func (v Value) hasTag(t Tag) bool { return !v.IsDouble() && v.tag() == t }

// --- Factory constructors (spec §4.1) ---

func Undefined() Value { return tagged(TagUndefined, 0) }
func Null() Value      { return tagged(TagNull, 0) }

func Bool(b bool) Value {
	var p uint64
	if b {
		p = 1
	}
	return tagged(TagBoolean, p)
}

// Float64 stores a native double bit pattern directly, the NaN-boxing
// "no tag needed" fast path.
func Float64(f float64) Value {
	bits := math.Float64bits(f)
	if bits&qnanMask == qnanMask {
		// Canonicalize any NaN that happens to land in the reserved
		// pattern (e.g. an artificially sign-flipped NaN) to the
		// positive quiet NaN so the invariant in IsDouble always holds.
		bits = math.Float64bits(math.NaN())
	}
	return Value{bits: bits}
}

// Int32 stores any int32 in the low 32 bits of the tag payload — no
// heap allocation, the common integer fast path every JS engine keeps.
func Int32(i int32) Value {
	return tagged(TagInt32, uint64(uint32(i)))
}

func pointerPayload(p unsafe.Pointer) uint64 {
	return uint64(uintptr(p)) & payloadMask
}

// Object wraps an opaque heap-object pointer. The object model itself
// (shapes, prototypes, own properties) is an external collaborator
// (spec §1); Value only needs identity and a stable address.
func Object(p unsafe.Pointer) Value {
	if p == nil {
		return Null()
	}
	return tagged(TagObject, pointerPayload(p))
}

func StringVal(s *rtstrings.String) Value {
	return tagged(TagString, pointerPayload(unsafe.Pointer(s)))
}

func SymbolVal(s *symbol.Symbol) Value {
	return tagged(TagSymbol, pointerPayload(unsafe.Pointer(s)))
}

func BigIntVal(b *bigint.Int) Value {
	return tagged(TagBigInt, pointerPayload(unsafe.Pointer(b)))
}

// --- Type predicates ---

func (v Value) IsUndefined() bool { return v.hasTag(TagUndefined) }
func (v Value) IsNull() bool      { return v.hasTag(TagNull) }
func (v Value) IsNullOrUndefined() bool { return v.IsNull() || v.IsUndefined() }
func (v Value) IsBool() bool      { return v.hasTag(TagBoolean) }
func (v Value) IsInt32() bool     { return v.hasTag(TagInt32) }
func (v Value) IsNumber() bool    { return v.IsDouble() || v.IsInt32() }
func (v Value) IsObject() bool    { return v.hasTag(TagObject) }
func (v Value) IsString() bool    { return v.hasTag(TagString) }
func (v Value) IsSymbol() bool    { return v.hasTag(TagSymbol) }
func (v Value) IsBigInt() bool    { return v.hasTag(TagBigInt) }

// --- Accessors ---

func (v Value) AsBool() bool {
	return v.payload() == 1
}

func (v Value) AsFloat64() float64 {
	if v.IsDouble() {
		return math.Float64frombits(v.bits)
	}
	return float64(v.AsInt32())
}

func (v Value) AsInt32() int32 { return int32(uint32(v.payload())) }

func (v Value) AsObject() unsafe.Pointer {
	return unsafe.Pointer(uintptr(v.payload()))
}

func (v Value) AsString() *rtstrings.String {
	return (*rtstrings.String)(unsafe.Pointer(uintptr(v.payload())))
}

func (v Value) AsSymbol() *symbol.Symbol {
	return (*symbol.Symbol)(unsafe.Pointer(uintptr(v.payload())))
}

func (v Value) AsBigInt() *bigint.Int {
	return (*bigint.Int)(unsafe.Pointer(uintptr(v.payload())))
}

// Bits exposes the raw 64-bit encoding, used by the bytecode encoder
// (spec §6: "Doubles are serialized as 8 bytes") and by tests asserting
// the encode/decode round trip (spec §8).
func (v Value) Bits() uint64 { return v.bits }

// FromBits reconstructs a Value from a raw bit pattern, the decoder-side
// half of the round trip.
func FromBits(bits uint64) Value { return Value{bits: bits} }

// --- Equality (spec §4.1) ---

// StrictEquals implements ECMAScript ===: false when the types differ
// (an int32 and a double are both numbers and compare by value), NaN is
// never equal to anything including itself, and +0 === -0.
func (v Value) StrictEquals(other Value) bool {
	if v.IsNumber() && other.IsNumber() {
		a, b := v.AsFloat64(), other.AsFloat64()
		if math.IsNaN(a) || math.IsNaN(b) {
			return false
		}
		return a == b // Go's == already treats +0.0 == -0.0 as true.
	}
	if v.IsDouble() != other.IsDouble() {
		return false
	}
	if !v.IsDouble() && v.tag() != other.tag() {
		return false
	}
	switch {
	case v.IsUndefined(), v.IsNull():
		return true
	case v.IsBool():
		return v.AsBool() == other.AsBool()
	case v.IsString():
		return rtstrings.Equal(v.AsString(), other.AsString())
	case v.IsSymbol():
		return v.AsSymbol() == other.AsSymbol()
	case v.IsBigInt():
		return v.AsBigInt().Cmp(other.AsBigInt()) == 0
	case v.IsObject():
		return v.AsObject() == other.AsObject()
	}
	return false
}

// LooseEquals implements ECMAScript == for the subset of coercions the
// execution core needs (numeric/string/boolean cross-coercion); object
// ToPrimitive coercion is handled by the caller via ToPrimitive first.
func (v Value) LooseEquals(other Value) bool {
	if v.sameBroadType(other) {
		return v.StrictEquals(other)
	}
	if v.IsNullOrUndefined() && other.IsNullOrUndefined() {
		return true
	}
	if v.IsNumber() && other.IsString() {
		return v.AsFloat64() == stringToNumber(other.AsString())
	}
	if v.IsString() && other.IsNumber() {
		return stringToNumber(v.AsString()) == other.AsFloat64()
	}
	if v.IsBool() {
		return Float64(boolToFloat(v.AsBool())).LooseEquals(other)
	}
	if other.IsBool() {
		return v.LooseEquals(Float64(boolToFloat(other.AsBool())))
	}
	return false
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func (v Value) sameBroadType(other Value) bool {
	return v.IsNumber() == other.IsNumber() && v.IsString() == other.IsString() &&
		v.IsBool() == other.IsBool() && v.IsObject() == other.IsObject() &&
		v.IsSymbol() == other.IsSymbol() && v.IsBigInt() == other.IsBigInt() &&
		v.IsNull() == other.IsNull() && v.IsUndefined() == other.IsUndefined()
}

// --- Abstract operations (spec §4.1) ---

// ToBoolean implements ECMAScript ToBoolean.
func (v Value) ToBoolean() bool {
	switch {
	case v.IsUndefined(), v.IsNull():
		return false
	case v.IsBool():
		return v.AsBool()
	case v.IsNumber():
		f := v.AsFloat64()
		return f != 0 && !math.IsNaN(f)
	case v.IsString():
		return v.AsString().Len() > 0
	case v.IsBigInt():
		return !v.AsBigInt().IsZero()
	default:
		return true // objects, symbols
	}
}

func stringToNumber(s *rtstrings.String) float64 {
	f, err := parseFloat(s.Bytes())
	if err != nil {
		return math.NaN()
	}
	return f
}

// ToNumber implements ECMAScript ToNumber for primitive values. Objects
// must be reduced with ToPrimitive(hint="number") by the caller first.
func (v Value) ToNumber() (float64, error) {
	switch {
	case v.IsNumber():
		return v.AsFloat64(), nil
	case v.IsUndefined():
		return math.NaN(), nil
	case v.IsNull():
		return 0, nil
	case v.IsBool():
		return boolToFloat(v.AsBool()), nil
	case v.IsString():
		return stringToNumber(v.AsString()), nil
	case v.IsBigInt():
		return 0, errors.New(errors.KindTypeError, errors.Position{}, "cannot convert a BigInt to a number")
	default:
		return 0, errors.New(errors.KindTypeError, errors.Position{}, "cannot convert object to number without ToPrimitive")
	}
}

// ToStringValue implements ECMAScript ToString for primitives.
func (v Value) ToStringValue() (*rtstrings.String, error) {
	switch {
	case v.IsString():
		return v.AsString(), nil
	case v.IsUndefined():
		return rtstrings.Static("undefined"), nil
	case v.IsNull():
		return rtstrings.Static("null"), nil
	case v.IsBool():
		if v.AsBool() {
			return rtstrings.Static("true"), nil
		}
		return rtstrings.Static("false"), nil
	case v.IsNumber():
		return rtstrings.New(formatFloat(v.AsFloat64())), nil
	case v.IsBigInt():
		return rtstrings.New(v.AsBigInt().String()), nil
	default:
		return nil, errors.New(errors.KindTypeError, errors.Position{}, "cannot convert object to string without ToPrimitive")
	}
}
