package ir

import (
	"tlog.app/go/errors"
)

type (
	// Expression is a tree of operations over Bitvectors and Variables.
	//
	// The variant set is sealed: Const, Var, UnOp, BinOp, Cast, Subpiece,
	// IfThenElse and Unknown. Nodes are immutable, analyses build new
	// trees instead of mutating existing ones, so structural sharing
	// between trees is safe.
	Expression interface {
		expression()
	}

	// Const is a literal value.
	Const struct {
		Value Bitvector
	}

	// Var reads a variable.
	Var struct {
		Var Variable
	}

	// UnOp applies a unary operation to its argument.
	UnOp struct {
		Op  UnOpType
		Arg Expression
	}

	// BinOp applies a binary operation.
	// Arithmetic and bitwise ops require equal operand widths and keep them.
	// Shifts and rotates take the left operand's width.
	// Comparisons require equal operand widths and yield a single bit.
	BinOp struct {
		Op BinOpType
		L  Expression
		R  Expression
	}

	// Cast changes the width of its argument explicitly.
	Cast struct {
		Op   CastOpType
		Size ByteSize
		Arg  Expression
	}

	// Subpiece cuts Size bytes out of the argument,
	// skipping the LowByte least significant bytes.
	Subpiece struct {
		LowByte ByteSize
		Size    ByteSize
		Arg     Expression
	}

	// IfThenElse selects between two expressions of equal width
	// on a 1-bit condition.
	IfThenElse struct {
		Cond Expression
		Then Expression
		Else Expression
	}

	// Unknown is a value the lifter could not determine,
	// e.g. the contents of memory. Only the width is known.
	Unknown struct {
		Description string
		Size        ByteSize
	}

	UnOpType   int
	BinOpType  int
	CastOpType int
)

func (*Const) expression()      {}
func (*Var) expression()        {}
func (*UnOp) expression()       {}
func (*BinOp) expression()      {}
func (*Cast) expression()       {}
func (*Subpiece) expression()   {}
func (*IfThenElse) expression() {}
func (*Unknown) expression()    {}

const (
	NEG UnOpType = iota
	NOT
)

const (
	arithOpBegin BinOpType = iota
	ADD
	SUB
	MUL
	UDIV
	SDIV
	UREM
	SREM
	AND
	OR
	XOR
	arithOpEnd

	shiftOpBegin
	SHL
	LSHR
	ASHR
	ROL
	ROR
	shiftOpEnd

	cmpOpBegin
	EQ
	NE
	ULT
	SLT
	cmpOpEnd
)

const (
	ZEXT CastOpType = iota
	SEXT
	TRUNC
)

func (op BinOpType) IsCompare() bool { return op > cmpOpBegin && op < cmpOpEnd }
func (op BinOpType) IsShift() bool   { return op > shiftOpBegin && op < shiftOpEnd }

// Width infers the bit width of an expression bottom-up.
// It fails with ErrWidthMismatch if any node is not self-consistent.
// Verification runs it over every expression in a Project, so analyses
// can assume it has already succeeded.
func Width(e Expression) (uint64, error) {
	switch e := e.(type) {
	case *Const:
		return e.Value.Width(), nil
	case *Var:
		return e.Var.Size.Bits(), nil
	case *UnOp:
		return Width(e.Arg)
	case *BinOp:
		return binOpWidth(e)
	case *Cast:
		return castWidth(e)
	case *Subpiece:
		w, err := Width(e.Arg)
		if err != nil {
			return 0, err
		}
		if (e.LowByte + e.Size).Bits() > w {
			return 0, errors.Wrap(ErrWidthMismatch, "subpiece bytes [%d,%d) outside of %d bits", e.LowByte, e.LowByte+e.Size, w)
		}

		return e.Size.Bits(), nil
	case *IfThenElse:
		return iteWidth(e)
	case *Unknown:
		return e.Size.Bits(), nil
	default:
		return 0, errors.Wrap(ErrConstruction, "unknown expression node %T", e)
	}
}

func binOpWidth(e *BinOp) (uint64, error) {
	l, err := Width(e.L)
	if err != nil {
		return 0, err
	}

	r, err := Width(e.R)
	if err != nil {
		return 0, err
	}

	if e.Op.IsShift() {
		// the shift amount width is free
		return l, nil
	}

	if l != r {
		return 0, errors.Wrap(ErrWidthMismatch, "%v of %d bit and %d bit", e.Op, l, r)
	}

	if e.Op.IsCompare() {
		return 1, nil
	}

	return l, nil
}

func castWidth(e *Cast) (uint64, error) {
	w, err := Width(e.Arg)
	if err != nil {
		return 0, err
	}

	t := e.Size.Bits()

	switch e.Op {
	case ZEXT, SEXT:
		if t < w {
			return 0, errors.Wrap(ErrWidthMismatch, "%v %d -> %d", e.Op, w, t)
		}
	case TRUNC:
		if t > w {
			return 0, errors.Wrap(ErrWidthMismatch, "%v %d -> %d", e.Op, w, t)
		}
	default:
		return 0, errors.Wrap(ErrConstruction, "unknown cast op %d", int(e.Op))
	}

	return t, nil
}

func iteWidth(e *IfThenElse) (uint64, error) {
	c, err := Width(e.Cond)
	if err != nil {
		return 0, err
	}
	if c != 1 {
		return 0, errors.Wrap(ErrWidthMismatch, "if-then-else condition is %d bit, want 1", c)
	}

	t, err := Width(e.Then)
	if err != nil {
		return 0, err
	}

	f, err := Width(e.Else)
	if err != nil {
		return 0, err
	}

	if t != f {
		return 0, errors.Wrap(ErrWidthMismatch, "if-then-else branches disagree: %d bit vs %d bit", t, f)
	}

	return t, nil
}

// NewConst wraps a literal.
func NewConst(v Bitvector) *Const { return &Const{Value: v} }

// NewVar wraps a variable read.
func NewVar(v Variable) *Var { return &Var{Var: v} }

// NewUnOp builds a width-checked unary node, folding constant arguments.
func NewUnOp(op UnOpType, arg Expression) (Expression, error) {
	e := &UnOp{Op: op, Arg: arg}

	if _, err := Width(e); err != nil {
		return nil, err
	}

	if c, ok := arg.(*Const); ok {
		v, err := applyUnOp(op, c.Value)
		if err != nil {
			return nil, err
		}

		return &Const{Value: v}, nil
	}

	return e, nil
}

// NewBinOp builds a width-checked binary node.
// Constant operands are folded, except for division by zero,
// which is left in the tree for evaluation to classify.
func NewBinOp(op BinOpType, l, r Expression) (Expression, error) {
	e := &BinOp{Op: op, L: l, R: r}

	if _, err := Width(e); err != nil {
		return nil, err
	}

	lc, lok := l.(*Const)
	rc, rok := r.(*Const)
	if lok && rok {
		v, err := applyBinOp(op, lc.Value, rc.Value)
		if errors.Is(err, ErrDivisionByZero) {
			return e, nil
		}
		if err != nil {
			return nil, err
		}

		return &Const{Value: v}, nil
	}

	return e, nil
}
