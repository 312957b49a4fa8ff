package ir

import (
	"testing"

	"tlog.app/go/errors"
)

func TestSubRegisterBounds(t *testing.T) {
	ah, err := NewSubRegister("AH", "RAX", 8, 8, 8)
	if err != nil {
		t.Fatalf("AH: %v", err)
	}

	if ah.Size != 1 {
		t.Errorf("AH size: %d", ah.Size)
	}
	if ah.Piece == nil || ah.Piece.Parent != "RAX" {
		t.Errorf("AH piece: %+v", ah.Piece)
	}

	// the whole parent is a valid piece
	if _, err = NewSubRegister("EAX", "RAX", 8, 0, 64); err != nil {
		t.Errorf("full width: %v", err)
	}

	_, err = NewSubRegister("bad", "RAX", 8, 60, 8)
	if !errors.Is(err, ErrConstruction) {
		t.Errorf("out of bounds: %v", err)
	}

	_, err = NewSubRegister("bad", "RAX", 8, 0, 0)
	if !errors.Is(err, ErrConstruction) {
		t.Errorf("zero width: %v", err)
	}
}

func TestVariableEqual(t *testing.T) {
	a := NewVariable("RAX", 8)
	b := NewVariable("RAX", 8)

	if !a.Equal(b) {
		t.Errorf("structural equality")
	}

	if a.Equal(NewTemp("RAX", 8)) {
		t.Errorf("register vs temp")
	}
	if a.Equal(NewVariable("RAX", 4)) {
		t.Errorf("different sizes")
	}

	p1, _ := NewSubRegister("AH", "RAX", 8, 8, 8)
	p2, _ := NewSubRegister("AH", "RAX", 8, 8, 8)
	p3, _ := NewSubRegister("AH", "RAX", 8, 0, 8)

	if !p1.Equal(p2) {
		t.Errorf("equal pieces")
	}
	if p1.Equal(p3) {
		t.Errorf("different offsets")
	}
	if p1.Equal(NewVariable("AH", 1)) {
		t.Errorf("piece vs plain")
	}
}
