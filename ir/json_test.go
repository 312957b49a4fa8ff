package ir

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fullProject exercises every variant of Expression, Def and Jmp.
func fullProject(t *testing.T) *Project {
	ah, err := NewSubRegister("AH", "RAX", 8, 8, 8)
	require.NoError(t, err)

	b1 := NewTid("b1", "0x1000")
	b2 := NewTid("b2", "0x1020")
	b3 := NewTid("b3", "0x1030")
	gTid := NewTid("g", "0x2000")
	gEntry := NewTid("bg", "0x2000")

	cond := &BinOp{Op: SLT, L: NewVar(rdi), R: NewConst(NewBitvector(64, 16))}

	f := NewTerm(NewTid("f", "0x1000"), Sub{
		Name:  "f",
		Entry: b1,
		Blocks: []Term[Blk]{
			NewTerm(b1, Blk{
				Defs: []Term[Def]{
					defTerm(NewTid("d1", "0x1000"), &Assign{
						Var: rax,
						Value: &IfThenElse{
							Cond: &UnOp{Op: NOT, Arg: &BinOp{Op: EQ, L: NewVar(rdi), R: NewConst(NewBitvector(64, 0))}},
							Then: &Cast{Op: SEXT, Size: 8, Arg: &Subpiece{LowByte: 0, Size: 4, Arg: NewVar(rdi)}},
							Else: &Unknown{Description: "uninitialized", Size: 8},
						},
					}),
					defTerm(NewTid("d2", "0x1008"), &Load{Var: rax, Address: NewVar(rsp)}),
					defTerm(NewTid("d3", "0x100c"), &Store{Address: NewVar(rsp), Value: NewVar(ah)}),
				},
				Jmps: []Term[Jmp]{
					jmpTerm(NewTid("j1", "0x1010"), &CBranch{Condition: cond, Target: b2}),
					jmpTerm(NewTid("j1", "0x1010").WithIndex(1), &Branch{Target: b3}),
				},
			}),
			NewTerm(b2, Blk{
				Jmps: []Term[Jmp]{
					jmpTerm(NewTid("j2", "0x1024"), &Call{Target: gTid, Return: &b3}),
				},
			}),
			NewTerm(b3, Blk{
				Jmps: []Term[Jmp]{
					jmpTerm(NewTid("j3", "0x1034"), &CallIndirect{Target: NewVar(rax), Return: nil}),
					jmpTerm(NewTid("j3", "0x1034").WithIndex(1), &Return{Value: NewVar(rax)}),
				},
			}),
		},
	})

	g := NewTerm(gTid, Sub{
		Name:  "g",
		Entry: gEntry,
		Blocks: []Term[Blk]{
			NewTerm(gEntry, Blk{
				Jmps: []Term[Jmp]{
					jmpTerm(NewTid("jg", "0x2004"), &Return{Value: NewVar(rax)}),
				},
			}),
		},
	})

	return newTestProject(t, f, g)
}

func TestProjectRoundTrip(t *testing.T) {
	p := fullProject(t)

	// a malformed project would make the round-trip meaningless
	r := Verify(context.Background(), p)
	require.NoError(t, r.Err(), "%v", r.Issues)

	data, err := json.Marshal(p)
	require.NoError(t, err)

	back := &Project{}
	require.NoError(t, json.Unmarshal(data, back))

	// structural identity: same Tids, same trees, same properties
	data2, err := json.Marshal(back)
	require.NoError(t, err)
	assert.Equal(t, string(data), string(data2))

	assert.Equal(t, p.CPUArchitecture, back.CPUArchitecture)
	assert.Equal(t, p.Endianness, back.Endianness)
	assert.Equal(t, p.DatatypeProperties, back.DatatypeProperties)
	assert.Equal(t, p.StackPointer, back.StackPointer)
	require.NotNil(t, back.Program)
	assert.Equal(t, p.Program.EntryPoints, back.Program.EntryPoints)
	require.Len(t, back.Program.Subs, 2)

	f, err := back.Program.Sub(NewTid("f", "0x1000"))
	require.NoError(t, err)

	b1, err := f.Term.Block(NewTid("b1", "0x1000"))
	require.NoError(t, err)
	require.Len(t, b1.Term.Defs, 3)
	require.Len(t, b1.Term.Jmps, 2)

	as, ok := b1.Term.Defs[0].Term.(*Assign)
	require.True(t, ok, "%T", b1.Term.Defs[0].Term)

	ite, ok := as.Value.(*IfThenElse)
	require.True(t, ok, "%T", as.Value)

	u, ok := ite.Else.(*Unknown)
	require.True(t, ok, "%T", ite.Else)
	assert.Equal(t, "uninitialized", u.Description)

	// the reconstructed project verifies identically
	r2 := Verify(context.Background(), back)
	assert.NoError(t, r2.Err(), "%v", r2.Issues)
	assert.Len(t, r2.Issues, len(r.Issues))
}

func TestVariantTags(t *testing.T) {
	data, err := json.Marshal(Expression(&BinOp{
		Op: ADD,
		L:  NewConst(NewBitvector(32, 2)),
		R:  NewVar(NewVariable("EAX", 4)),
	}))
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"BinOp": {
			"op": "ADD",
			"lhs": {"Const": {"width": 32, "value": "0x2"}},
			"rhs": {"Var": {"name": "EAX", "size": 4, "is_temp": false}}
		}
	}`, string(data))

	e, err := unmarshalExpression(data)
	require.NoError(t, err)

	w, err := Width(e)
	require.NoError(t, err)
	assert.Equal(t, uint64(32), w)
}

func TestBitvectorJSON(t *testing.T) {
	x := NewBitvector(65, 1)
	x = x.Shl(NewBitvector(8, 64)) // needs more than a uint64

	data, err := json.Marshal(x)
	require.NoError(t, err)

	var back Bitvector
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, x.Same(back), "%v vs %v", x, back)

	// a value wider than the declared width is rejected
	err = json.Unmarshal([]byte(`{"width": 8, "value": "0x100"}`), &back)
	assert.Error(t, err)
}

func TestProgramRejectsDuplicateSubs(t *testing.T) {
	tid := NewTid("f", "0x1000")

	data, err := json.Marshal(programJSON{
		Subs: []Term[Sub]{
			NewTerm(tid, Sub{Name: "f"}),
			NewTerm(tid, Sub{Name: "f2"}),
		},
	})
	require.NoError(t, err)

	p := &Program{}
	assert.Error(t, json.Unmarshal(data, p))
}
