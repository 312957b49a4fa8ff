package ir

import (
	"tlog.app/go/errors"
)

type (
	// Value is the result of evaluating an expression:
	// either a concrete Bitvector or an unknown value of a known width.
	Value struct {
		Width uint64
		BV    *Bitvector
	}

	// EnvKey identifies a binding. Registers and lifter temporaries
	// are distinct storage classes and may share a name.
	EnvKey struct {
		Name   string
		IsTemp bool
	}

	// Environment binds variables to concrete values.
	Environment map[EnvKey]Bitvector
)

// Known reports whether the value is concrete.
func (v Value) Known() bool { return v.BV != nil }

func knownValue(bv Bitvector) Value { return Value{Width: bv.Width(), BV: &bv} }

// Bind sets the concrete value of a variable.
func (env Environment) Bind(v Variable, bv Bitvector) {
	env[EnvKey{Name: v.Name, IsTemp: v.IsTemp}] = bv
}

func unknownValue(width uint64) Value { return Value{Width: width} }

// Eval evaluates an expression under an environment.
//
// Unbound variables and Unknown nodes evaluate to an unknown value of
// their declared width: analyses must tolerate incomplete knowledge,
// e.g. of memory contents. Division by a zero value is the analyzed
// program's own undefined behavior and also yields an unknown value.
// An error is only returned for ill-typed trees, which is unreachable
// if width inference was run beforehand.
func Eval(e Expression, env Environment) (Value, error) {
	switch e := e.(type) {
	case *Const:
		return knownValue(e.Value), nil
	case *Var:
		return evalVar(e, env)
	case *UnOp:
		return evalUnOp(e, env)
	case *BinOp:
		return evalBinOp(e, env)
	case *Cast:
		return evalCast(e, env)
	case *Subpiece:
		return evalSubpiece(e, env)
	case *IfThenElse:
		return evalIfThenElse(e, env)
	case *Unknown:
		return unknownValue(e.Size.Bits()), nil
	default:
		return Value{}, errors.Wrap(ErrConstruction, "unknown expression node %T", e)
	}
}

func evalVar(e *Var, env Environment) (Value, error) {
	bv, ok := env[EnvKey{Name: e.Var.Name, IsTemp: e.Var.IsTemp}]
	if !ok {
		return unknownValue(e.Var.Size.Bits()), nil
	}

	if bv.Width() != e.Var.Size.Bits() {
		return Value{}, errors.Wrap(ErrWidthMismatch, "%v bound to %d bit value, declared %d bit",
			e.Var.Name, bv.Width(), e.Var.Size.Bits())
	}

	return knownValue(bv), nil
}

func evalUnOp(e *UnOp, env Environment) (Value, error) {
	a, err := Eval(e.Arg, env)
	if err != nil {
		return Value{}, err
	}

	if !a.Known() {
		return unknownValue(a.Width), nil
	}

	v, err := applyUnOp(e.Op, *a.BV)
	if err != nil {
		return Value{}, err
	}

	return knownValue(v), nil
}

func evalBinOp(e *BinOp, env Environment) (Value, error) {
	l, err := Eval(e.L, env)
	if err != nil {
		return Value{}, err
	}

	r, err := Eval(e.R, env)
	if err != nil {
		return Value{}, err
	}

	w := l.Width

	switch {
	case e.Op.IsShift():
	case l.Width != r.Width:
		return Value{}, errors.Wrap(ErrWidthMismatch, "%v of %d bit and %d bit", e.Op, l.Width, r.Width)
	case e.Op.IsCompare():
		w = 1
	}

	if !l.Known() || !r.Known() {
		return unknownValue(w), nil
	}

	v, err := applyBinOp(e.Op, *l.BV, *r.BV)
	if errors.Is(err, ErrDivisionByZero) {
		return unknownValue(w), nil
	}
	if err != nil {
		return Value{}, err
	}

	return knownValue(v), nil
}

func evalCast(e *Cast, env Environment) (Value, error) {
	a, err := Eval(e.Arg, env)
	if err != nil {
		return Value{}, err
	}

	t := e.Size.Bits()

	switch {
	case (e.Op == ZEXT || e.Op == SEXT) && t < a.Width:
		return Value{}, errors.Wrap(ErrWidthMismatch, "%v %d -> %d", e.Op, a.Width, t)
	case e.Op == TRUNC && t > a.Width:
		return Value{}, errors.Wrap(ErrWidthMismatch, "%v %d -> %d", e.Op, a.Width, t)
	}

	if !a.Known() {
		return unknownValue(t), nil
	}

	v, err := applyCast(e.Op, t, *a.BV)
	if err != nil {
		return Value{}, err
	}

	return knownValue(v), nil
}

func evalSubpiece(e *Subpiece, env Environment) (Value, error) {
	a, err := Eval(e.Arg, env)
	if err != nil {
		return Value{}, err
	}

	if (e.LowByte+e.Size).Bits() > a.Width {
		return Value{}, errors.Wrap(ErrWidthMismatch, "subpiece bytes [%d,%d) outside of %d bits", e.LowByte, e.LowByte+e.Size, a.Width)
	}

	if !a.Known() {
		return unknownValue(e.Size.Bits()), nil
	}

	sh := a.BV.LShr(NewBitvector(64, e.LowByte.Bits()))

	v, err := sh.Trunc(e.Size.Bits())
	if err != nil {
		return Value{}, err
	}

	return knownValue(v), nil
}

func evalIfThenElse(e *IfThenElse, env Environment) (Value, error) {
	c, err := Eval(e.Cond, env)
	if err != nil {
		return Value{}, err
	}
	if c.Width != 1 {
		return Value{}, errors.Wrap(ErrWidthMismatch, "if-then-else condition is %d bit, want 1", c.Width)
	}

	t, err := Eval(e.Then, env)
	if err != nil {
		return Value{}, err
	}

	f, err := Eval(e.Else, env)
	if err != nil {
		return Value{}, err
	}

	if t.Width != f.Width {
		return Value{}, errors.Wrap(ErrWidthMismatch, "if-then-else branches disagree: %d bit vs %d bit", t.Width, f.Width)
	}

	if !c.Known() {
		if t.Known() && f.Known() && t.BV.Same(*f.BV) {
			return t, nil
		}

		return unknownValue(t.Width), nil
	}

	if c.BV.IsZero() {
		return f, nil
	}

	return t, nil
}

func applyUnOp(op UnOpType, x Bitvector) (Bitvector, error) {
	switch op {
	case NEG:
		return x.Neg(), nil
	case NOT:
		return x.Not(), nil
	default:
		return Bitvector{}, errors.Wrap(ErrConstruction, "unknown unary op %d", int(op))
	}
}

func applyBinOp(op BinOpType, x, y Bitvector) (Bitvector, error) {
	switch op {
	case ADD:
		return x.Add(y)
	case SUB:
		return x.Sub(y)
	case MUL:
		return x.Mul(y)
	case UDIV:
		return x.UDiv(y)
	case SDIV:
		return x.SDiv(y)
	case UREM:
		return x.URem(y)
	case SREM:
		return x.SRem(y)
	case AND:
		return x.And(y)
	case OR:
		return x.Or(y)
	case XOR:
		return x.Xor(y)
	case SHL:
		return x.Shl(y), nil
	case LSHR:
		return x.LShr(y), nil
	case ASHR:
		return x.AShr(y), nil
	case ROL:
		return x.Rol(y), nil
	case ROR:
		return x.Ror(y), nil
	case EQ:
		return x.Equal(y)
	case NE:
		eq, err := x.Equal(y)
		if err != nil {
			return Bitvector{}, err
		}

		return eq.Not(), nil
	case ULT:
		return x.ULess(y)
	case SLT:
		return x.SLess(y)
	default:
		return Bitvector{}, errors.Wrap(ErrConstruction, "unknown binary op %d", int(op))
	}
}

func applyCast(op CastOpType, width uint64, x Bitvector) (Bitvector, error) {
	switch op {
	case ZEXT:
		return x.ZExt(width)
	case SEXT:
		return x.SExt(width)
	case TRUNC:
		return x.Trunc(width)
	default:
		return Bitvector{}, errors.Wrap(ErrConstruction, "unknown cast op %d", int(op))
	}
}
