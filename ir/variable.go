package ir

import (
	"tlog.app/go/errors"
)

type (
	// Variable is a named storage location of a fixed size:
	// a CPU register or a temporary introduced by the lifter.
	//
	// Variables are values, there is no shared mutable identity.
	// "Updating" a variable is modeled by a new Assign def,
	// never by mutating the Variable itself.
	Variable struct {
		Name   string       `json:"name"`
		Size   ByteSize     `json:"size"`
		IsTemp bool         `json:"is_temp"`
		Piece  *SubRegister `json:"piece,omitempty"`
	}

	// SubRegister locates a variable inside a larger parent register,
	// e.g. AH inside RAX.
	SubRegister struct {
		Parent     string   `json:"parent"`
		ParentSize ByteSize `json:"parent_size"`
		BitOffset  uint64   `json:"bit_offset"`
		BitWidth   uint64   `json:"bit_width"`
	}
)

// NewVariable makes a register variable.
func NewVariable(name string, size ByteSize) Variable {
	return Variable{Name: name, Size: size}
}

// NewTemp makes a temporary introduced by the lifter.
func NewTemp(name string, size ByteSize) Variable {
	return Variable{Name: name, Size: size, IsTemp: true}
}

// NewSubRegister makes a variable that is a slice of a parent register.
// The slice must fit the parent: offset+width <= parent width in bits.
func NewSubRegister(name, parent string, parentSize ByteSize, bitOffset, bitWidth uint64) (Variable, error) {
	if bitWidth == 0 || bitOffset+bitWidth > parentSize.Bits() {
		return Variable{}, errors.Wrap(ErrConstruction, "sub-register %v: bits [%d,%d) outside of %v (%d bits)",
			name, bitOffset, bitOffset+bitWidth, parent, parentSize.Bits())
	}

	return Variable{
		Name: name,
		Size: SizeFromBits(bitWidth),
		Piece: &SubRegister{
			Parent:     parent,
			ParentSize: parentSize,
			BitOffset:  bitOffset,
			BitWidth:   bitWidth,
		},
	}, nil
}

// Equal is structural equality including the sub-register descriptor.
func (v Variable) Equal(w Variable) bool {
	if v.Name != w.Name || v.Size != w.Size || v.IsTemp != w.IsTemp {
		return false
	}
	if (v.Piece == nil) != (w.Piece == nil) {
		return false
	}

	return v.Piece == nil || *v.Piece == *w.Piece
}

func (v Variable) String() string {
	return v.Name
}
