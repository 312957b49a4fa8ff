package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tlog.app/go/errors"
)

func TestBitvectorMasking(t *testing.T) {
	x := NewBitvector(8, 0x1ff)

	assert.Equal(t, uint64(8), x.Width())
	assert.Equal(t, ByteSize(1), x.Size())

	v, ok := x.Uint64()
	require.True(t, ok)
	assert.Equal(t, uint64(0xff), v)
}

func TestBitvectorArithKeepsWidth(t *testing.T) {
	x := NewBitvector(32, 0xffff_ffff)
	y := NewBitvector(32, 1)

	for _, op := range []BinOpType{ADD, SUB, MUL, AND, OR, XOR} {
		r, err := applyBinOp(op, x, y)
		require.NoError(t, err, "%v", op)
		assert.Equal(t, uint64(32), r.Width(), "%v", op)
	}

	sum, err := x.Add(y)
	require.NoError(t, err)
	assert.True(t, sum.IsZero(), "wraparound: %v", sum)
}

func TestBitvectorWidthMismatch(t *testing.T) {
	x := NewBitvector(32, 5)
	y := NewBitvector(16, 5)

	for _, op := range []BinOpType{ADD, SUB, MUL, UDIV, SDIV, UREM, SREM, AND, OR, XOR, EQ, NE, ULT, SLT} {
		_, err := applyBinOp(op, x, y)
		assert.True(t, errors.Is(err, ErrWidthMismatch), "%v: %v", op, err)
	}
}

func TestBitvectorDivisionByZero(t *testing.T) {
	x := NewBitvector(16, 100)
	zero := NewBitvector(16, 0)

	for _, op := range []BinOpType{UDIV, SDIV, UREM, SREM} {
		_, err := applyBinOp(op, x, zero)
		assert.True(t, errors.Is(err, ErrDivisionByZero), "%v: %v", op, err)
	}
}

func TestBitvectorSigned(t *testing.T) {
	minus8 := NewBitvector(8, 0xf8)
	two := NewBitvector(8, 2)

	q, err := minus8.SDiv(two)
	require.NoError(t, err)
	assert.True(t, q.Same(NewBitvector(8, 0xfc)), "-8/2 = %v", q)

	r, err := minus8.SRem(NewBitvector(8, 3))
	require.NoError(t, err)
	assert.True(t, r.Same(NewBitvector(8, 0xfe)), "-8%%3 = %v", r)

	lt, err := minus8.SLess(two)
	require.NoError(t, err)
	assert.True(t, lt.Same(NewBitvector(1, 1)), "-8 <s 2")

	ult, err := minus8.ULess(two)
	require.NoError(t, err)
	assert.True(t, ult.Same(NewBitvector(1, 0)), "0xf8 <u 2")
}

func TestBitvectorCompareWidth(t *testing.T) {
	x := NewBitvector(64, 7)
	y := NewBitvector(64, 7)

	eq, err := x.Equal(y)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), eq.Width())
	assert.True(t, eq.Same(NewBitvector(1, 1)))
}

func TestBitvectorShifts(t *testing.T) {
	x := NewBitvector(8, 0x81)

	assert.True(t, x.Shl(NewBitvector(8, 1)).Same(NewBitvector(8, 0x02)))
	assert.True(t, x.LShr(NewBitvector(8, 4)).Same(NewBitvector(8, 0x08)))
	assert.True(t, x.AShr(NewBitvector(8, 4)).Same(NewBitvector(8, 0xf8)))

	// shifting out everything
	assert.True(t, x.Shl(NewBitvector(8, 8)).IsZero())
	assert.True(t, x.LShr(NewBitvector(64, 100)).IsZero())
	assert.True(t, x.AShr(NewBitvector(64, 100)).Same(NewBitvector(8, 0xff)))

	// the shift amount width is free
	assert.True(t, x.Shl(NewBitvector(64, 1)).Same(NewBitvector(8, 0x02)))
}

func TestBitvectorRotate(t *testing.T) {
	x := NewBitvector(8, 0x81)

	assert.True(t, x.Rol(NewBitvector(8, 1)).Same(NewBitvector(8, 0x03)))
	assert.True(t, x.Ror(NewBitvector(8, 1)).Same(NewBitvector(8, 0xc0)))
	assert.True(t, x.Rol(NewBitvector(8, 8)).Same(x))
	assert.True(t, x.Ror(NewBitvector(8, 0)).Same(x))
}

func TestBitvectorExtendTrunc(t *testing.T) {
	x := NewBitvector(8, 0xf8)

	z, err := x.ZExt(16)
	require.NoError(t, err)
	assert.True(t, z.Same(NewBitvector(16, 0x00f8)))

	s, err := x.SExt(16)
	require.NoError(t, err)
	assert.True(t, s.Same(NewBitvector(16, 0xfff8)))

	tr, err := NewBitvector(16, 0x1234).Trunc(8)
	require.NoError(t, err)
	assert.True(t, tr.Same(NewBitvector(8, 0x34)))

	_, err = x.ZExt(4)
	assert.True(t, errors.Is(err, ErrWidthMismatch))

	_, err = x.Trunc(16)
	assert.True(t, errors.Is(err, ErrWidthMismatch))
}

func TestBitvectorNegNot(t *testing.T) {
	x := NewBitvector(8, 1)

	assert.True(t, x.Neg().Same(NewBitvector(8, 0xff)))
	assert.True(t, x.Not().Same(NewBitvector(8, 0xfe)))
	assert.True(t, NewBitvector(8, 0).Neg().IsZero())
}
