package ir

import (
	"fmt"
	"math/big"

	"tlog.app/go/errors"
)

// Bitvector is a binary value with an arbitrary but fixed width in bits.
//
// The raw value is kept as an unsigned integer masked to the width;
// signed operations interpret it as two's complement of the same width.
// Bitvectors are immutable, every operation returns a new value.
//
// Binary operations other than shifts and rotates require both operands
// to have equal width and fail with ErrWidthMismatch otherwise.
// Width changes are explicit (ZExt, SExt, Trunc), never implicit.
type Bitvector struct {
	width uint64
	v     *big.Int
}

// NewBitvector makes a width-bit vector from a literal, masking it to width.
func NewBitvector(width, val uint64) Bitvector {
	return makeVec(width, new(big.Int).SetUint64(val))
}

// BitvectorFromBig makes a width-bit vector from an integer,
// reducing it modulo 2^width. Negative values wrap around.
func BitvectorFromBig(width uint64, val *big.Int) Bitvector {
	return makeVec(width, new(big.Int).Set(val))
}

// makeVec takes ownership of v.
func makeVec(width uint64, v *big.Int) Bitvector {
	v.Mod(v, modulus(width))

	return Bitvector{width: width, v: v}
}

func modulus(width uint64) *big.Int {
	return new(big.Int).Lsh(big.NewInt(1), uint(width))
}

func (x Bitvector) Width() uint64 { return x.width }

// Size is the number of bytes the value occupies, rounded up.
func (x Bitvector) Size() ByteSize { return SizeFromBits(x.width) }

func (x Bitvector) IsZero() bool { return x.v == nil || x.v.Sign() == 0 }

// Uint64 returns the value if it is representable in a uint64.
func (x Bitvector) Uint64() (uint64, bool) {
	if x.v == nil || !x.v.IsUint64() {
		return 0, false
	}

	return x.v.Uint64(), true
}

// Big is the unsigned interpretation of the value.
func (x Bitvector) Big() *big.Int {
	return new(big.Int).Set(x.v)
}

// SignedBig is the two's-complement interpretation of the value.
func (x Bitvector) SignedBig() *big.Int {
	if x.width != 0 && x.v.Bit(int(x.width-1)) == 1 {
		return new(big.Int).Sub(x.v, modulus(x.width))
	}

	return new(big.Int).Set(x.v)
}

// Same reports structural equality: same width, same bits.
func (x Bitvector) Same(y Bitvector) bool {
	return x.width == y.width && x.v.Cmp(y.v) == 0
}

func (x Bitvector) String() string {
	if x.v == nil {
		return "<nil>"
	}

	return fmt.Sprintf("0x%s:%d", x.v.Text(16), x.width)
}

func (x Bitvector) check(y Bitvector) error {
	if x.width != y.width {
		return errors.Wrap(ErrWidthMismatch, "%d bit vs %d bit", x.width, y.width)
	}

	return nil
}

func (x Bitvector) Neg() Bitvector {
	return makeVec(x.width, new(big.Int).Neg(x.v))
}

func (x Bitvector) Not() Bitvector {
	m := modulus(x.width)
	m.Sub(m, big.NewInt(1))

	return Bitvector{width: x.width, v: m.Xor(m, x.v)}
}

func (x Bitvector) Add(y Bitvector) (Bitvector, error) {
	if err := x.check(y); err != nil {
		return Bitvector{}, err
	}

	return makeVec(x.width, new(big.Int).Add(x.v, y.v)), nil
}

func (x Bitvector) Sub(y Bitvector) (Bitvector, error) {
	if err := x.check(y); err != nil {
		return Bitvector{}, err
	}

	return makeVec(x.width, new(big.Int).Sub(x.v, y.v)), nil
}

func (x Bitvector) Mul(y Bitvector) (Bitvector, error) {
	if err := x.check(y); err != nil {
		return Bitvector{}, err
	}

	return makeVec(x.width, new(big.Int).Mul(x.v, y.v)), nil
}

func (x Bitvector) UDiv(y Bitvector) (Bitvector, error) {
	if err := x.check(y); err != nil {
		return Bitvector{}, err
	}
	if y.IsZero() {
		return Bitvector{}, errors.Wrap(ErrDivisionByZero, "udiv")
	}

	return makeVec(x.width, new(big.Int).Quo(x.v, y.v)), nil
}

func (x Bitvector) URem(y Bitvector) (Bitvector, error) {
	if err := x.check(y); err != nil {
		return Bitvector{}, err
	}
	if y.IsZero() {
		return Bitvector{}, errors.Wrap(ErrDivisionByZero, "urem")
	}

	return makeVec(x.width, new(big.Int).Rem(x.v, y.v)), nil
}

// SDiv divides two's-complement interpretations, truncating toward zero.
func (x Bitvector) SDiv(y Bitvector) (Bitvector, error) {
	if err := x.check(y); err != nil {
		return Bitvector{}, err
	}
	if y.IsZero() {
		return Bitvector{}, errors.Wrap(ErrDivisionByZero, "sdiv")
	}

	return makeVec(x.width, new(big.Int).Quo(x.SignedBig(), y.SignedBig())), nil
}

// SRem is the remainder of SDiv, with the sign of the dividend.
func (x Bitvector) SRem(y Bitvector) (Bitvector, error) {
	if err := x.check(y); err != nil {
		return Bitvector{}, err
	}
	if y.IsZero() {
		return Bitvector{}, errors.Wrap(ErrDivisionByZero, "srem")
	}

	return makeVec(x.width, new(big.Int).Rem(x.SignedBig(), y.SignedBig())), nil
}

func (x Bitvector) And(y Bitvector) (Bitvector, error) {
	if err := x.check(y); err != nil {
		return Bitvector{}, err
	}

	return Bitvector{width: x.width, v: new(big.Int).And(x.v, y.v)}, nil
}

func (x Bitvector) Or(y Bitvector) (Bitvector, error) {
	if err := x.check(y); err != nil {
		return Bitvector{}, err
	}

	return Bitvector{width: x.width, v: new(big.Int).Or(x.v, y.v)}, nil
}

func (x Bitvector) Xor(y Bitvector) (Bitvector, error) {
	if err := x.check(y); err != nil {
		return Bitvector{}, err
	}

	return Bitvector{width: x.width, v: new(big.Int).Xor(x.v, y.v)}, nil
}

// Shl shifts left by y. The shift amount may have any width.
// Shifting by the full width or more yields zero.
func (x Bitvector) Shl(y Bitvector) Bitvector {
	n, ok := y.Uint64()
	if !ok || n >= x.width {
		return NewBitvector(x.width, 0)
	}

	return makeVec(x.width, new(big.Int).Lsh(x.v, uint(n)))
}

// LShr shifts right filling with zeros.
func (x Bitvector) LShr(y Bitvector) Bitvector {
	n, ok := y.Uint64()
	if !ok || n >= x.width {
		return NewBitvector(x.width, 0)
	}

	return Bitvector{width: x.width, v: new(big.Int).Rsh(x.v, uint(n))}
}

// AShr shifts right filling with copies of the sign bit.
func (x Bitvector) AShr(y Bitvector) Bitvector {
	n, ok := y.Uint64()
	if !ok || n > x.width {
		n = x.width
	}

	return makeVec(x.width, new(big.Int).Rsh(x.SignedBig(), uint(n)))
}

// Rol rotates left by y modulo the width.
func (x Bitvector) Rol(y Bitvector) Bitvector {
	if x.width == 0 {
		return x
	}

	n, ok := y.Uint64()
	if !ok {
		n = new(big.Int).Mod(y.v, new(big.Int).SetUint64(x.width)).Uint64()
	}
	n %= x.width

	hi := new(big.Int).Lsh(x.v, uint(n))
	lo := new(big.Int).Rsh(x.v, uint(x.width-n))

	return makeVec(x.width, hi.Or(hi, lo))
}

// Ror rotates right by y modulo the width.
func (x Bitvector) Ror(y Bitvector) Bitvector {
	if x.width == 0 {
		return x
	}

	n, ok := y.Uint64()
	if !ok {
		n = new(big.Int).Mod(y.v, new(big.Int).SetUint64(x.width)).Uint64()
	}
	n %= x.width

	return x.Rol(NewBitvector(x.width, x.width-n))
}

// Equal compares for equality, yielding a 1-bit vector.
func (x Bitvector) Equal(y Bitvector) (Bitvector, error) {
	if err := x.check(y); err != nil {
		return Bitvector{}, err
	}

	return boolVec(x.v.Cmp(y.v) == 0), nil
}

// ULess is the unsigned less-than comparison, yielding a 1-bit vector.
func (x Bitvector) ULess(y Bitvector) (Bitvector, error) {
	if err := x.check(y); err != nil {
		return Bitvector{}, err
	}

	return boolVec(x.v.Cmp(y.v) < 0), nil
}

// SLess is the signed less-than comparison, yielding a 1-bit vector.
func (x Bitvector) SLess(y Bitvector) (Bitvector, error) {
	if err := x.check(y); err != nil {
		return Bitvector{}, err
	}

	return boolVec(x.SignedBig().Cmp(y.SignedBig()) < 0), nil
}

func boolVec(b bool) Bitvector {
	if b {
		return NewBitvector(1, 1)
	}

	return NewBitvector(1, 0)
}

// ZExt extends to width bits filling the high bits with zeros.
func (x Bitvector) ZExt(width uint64) (Bitvector, error) {
	if width < x.width {
		return Bitvector{}, errors.Wrap(ErrWidthMismatch, "zext %d -> %d", x.width, width)
	}

	return Bitvector{width: width, v: new(big.Int).Set(x.v)}, nil
}

// SExt extends to width bits filling the high bits with the sign bit.
func (x Bitvector) SExt(width uint64) (Bitvector, error) {
	if width < x.width {
		return Bitvector{}, errors.Wrap(ErrWidthMismatch, "sext %d -> %d", x.width, width)
	}

	return makeVec(width, x.SignedBig()), nil
}

// Trunc keeps the low width bits.
func (x Bitvector) Trunc(width uint64) (Bitvector, error) {
	if width > x.width {
		return Bitvector{}, errors.Wrap(ErrWidthMismatch, "trunc %d -> %d", x.width, width)
	}

	return makeVec(width, new(big.Int).Set(x.v)), nil
}
