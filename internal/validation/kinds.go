package validation

import (
	"math"
	"unicode/utf8"

	"github.com/tbourn/go-message-backend/internal/errcodes"
)

// Number is the set of ordered numeric kinds accepted by Ordered.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// ---------------------------------------------------------------------------
// text

// StringRule chains checks over an optional string.
type StringRule struct{ chain[string] }

// String starts a chain over v; nil means the field was not provided.
func String(v *string, opts ...Option) *StringRule {
	return &StringRule{newChain(v, opts)}
}

// NotNull fails when the value is absent.
func (r *StringRule) NotNull(code errcodes.ErrorCode) *StringRule {
	r.addNotNull(code)
	return r
}

// NotEmpty fails on "".
func (r *StringRule) NotEmpty(code errcodes.ErrorCode) *StringRule {
	r.add(code, func(s string) bool { return s == "" })
	return r
}

// MaxLength fails when the value holds more than n characters (runes), not
// bytes: a 32 character limit admits up to 128 bytes of multi-byte text.
func (r *StringRule) MaxLength(n int, code errcodes.ErrorCode) *StringRule {
	r.add(code, func(s string) bool { return utf8.RuneCountInString(s) > n })
	return r
}

// Validate evaluates the chain.
func (r *StringRule) Validate() (*string, error) { return r.validate() }

// ---------------------------------------------------------------------------
// ordered numbers

// OrderedRule chains checks over an optional ordered number.
type OrderedRule[T Number] struct{ chain[T] }

// Ordered starts a chain over any ordered numeric value.
func Ordered[T Number](v *T, opts ...Option) *OrderedRule[T] {
	return &OrderedRule[T]{newChain(v, opts)}
}

// Uint32 starts a chain over an optional uint32.
func Uint32(v *uint32, opts ...Option) *OrderedRule[uint32] {
	return Ordered(v, opts...)
}

// NotNull fails when the value is absent.
func (r *OrderedRule[T]) NotNull(code errcodes.ErrorCode) *OrderedRule[T] {
	r.addNotNull(code)
	return r
}

// WithinRange fails when the value is outside [min, max].
func (r *OrderedRule[T]) WithinRange(min, max T, code errcodes.ErrorCode) *OrderedRule[T] {
	r.add(code, func(n T) bool { return n < min || n > max })
	return r
}

// Validate evaluates the chain.
func (r *OrderedRule[T]) Validate() (*T, error) { return r.validate() }

// ---------------------------------------------------------------------------
// floating point

// FloatRule chains checks over an optional float64.
type FloatRule struct{ chain[float64] }

// Float starts a chain over v.
func Float(v *float64, opts ...Option) *FloatRule {
	return &FloatRule{newChain(v, opts)}
}

// NotNull fails when the value is absent.
func (r *FloatRule) NotNull(code errcodes.ErrorCode) *FloatRule {
	r.addNotNull(code)
	return r
}

// WithinRange fails when the value is outside [min, max]. NaN is outside
// every range.
func (r *FloatRule) WithinRange(min, max float64, code errcodes.ErrorCode) *FloatRule {
	r.add(code, func(f float64) bool { return !(f >= min && f <= max) })
	return r
}

// IsInteger fails when the value has a non-zero fractional part.
func (r *FloatRule) IsInteger(code errcodes.ErrorCode) *FloatRule {
	r.add(code, func(f float64) bool { return hasFraction(f) })
	return r
}

// IsDecimal fails when the value has no fractional part.
func (r *FloatRule) IsDecimal(code errcodes.ErrorCode) *FloatRule {
	r.add(code, func(f float64) bool { return !hasFraction(f) })
	return r
}

// HasDecimals is the same check as IsDecimal.
func (r *FloatRule) HasDecimals(code errcodes.ErrorCode) *FloatRule {
	return r.IsDecimal(code)
}

// IsNumber fails on NaN and on infinities.
func (r *FloatRule) IsNumber(code errcodes.ErrorCode) *FloatRule {
	r.add(code, func(f float64) bool { return math.IsNaN(f) || math.IsInf(f, 0) })
	return r
}

// Validate evaluates the chain.
func (r *FloatRule) Validate() (*float64, error) { return r.validate() }

// hasFraction reports a non-zero fractional part. Infinities have none; NaN
// is treated as fractional so IsInteger rejects it.
func hasFraction(f float64) bool {
	if math.IsInf(f, 0) {
		return false
	}
	_, frac := math.Modf(f)
	return frac != 0 || math.IsNaN(f)
}

// ---------------------------------------------------------------------------
// booleans

// BoolRule chains checks over an optional bool.
type BoolRule struct{ chain[bool] }

// Bool starts a chain over v.
func Bool(v *bool, opts ...Option) *BoolRule {
	return &BoolRule{newChain(v, opts)}
}

// NotNull fails when the value is absent.
func (r *BoolRule) NotNull(code errcodes.ErrorCode) *BoolRule {
	r.addNotNull(code)
	return r
}

// IsTrue fails on false.
func (r *BoolRule) IsTrue(code errcodes.ErrorCode) *BoolRule {
	r.add(code, func(b bool) bool { return !b })
	return r
}

// Validate evaluates the chain.
func (r *BoolRule) Validate() (*bool, error) { return r.validate() }
