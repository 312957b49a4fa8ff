package checker

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ysyxyx/cwe-checker/ir"
)

func TestSmoke(t *testing.T) {
	rax := ir.NewVariable("RAX", 8)
	entry := ir.NewTid("blk_main", "0x401000")

	prog := ir.NewProgram()

	err := prog.AddSub(ir.NewTerm(ir.NewTid("main", "0x401000"), ir.Sub{
		Name:  "main",
		Entry: entry,
		Blocks: []ir.Term[ir.Blk]{
			ir.NewTerm(entry, ir.Blk{
				Jmps: []ir.Term[ir.Jmp]{
					ir.NewTerm[ir.Jmp](ir.NewTid("j", "0x401004"), &ir.Return{Value: ir.NewVar(rax)}),
				},
			}),
		},
	}))
	if err != nil {
		t.Fatalf("add sub: %v", err)
	}

	p := &ir.Project{
		Program:         prog,
		CPUArchitecture: "x86_64",
		RegisterWidth:   8,
		StackPointer:    ir.NewVariable("RSP", 8),
		DatatypeProperties: ir.DatatypeProperties{
			CharSize:    1,
			IntegerSize: 4,
			LongSize:    8,
			PointerSize: 8,
		},
	}

	ctx := context.Background()

	data, err := Save(ctx, p)
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	name := filepath.Join(t.TempDir(), "project.json")

	if err = os.WriteFile(name, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	back, rep, err := CheckFile(ctx, name)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if err = rep.Err(); err != nil {
		t.Errorf("report: %v: %v", err, rep.Issues)
	}
	if back.CPUArchitecture != p.CPUArchitecture {
		t.Errorf("reload mismatch: %v", back.CPUArchitecture)
	}

	t.Logf("report: %d issues", len(rep.Issues))
}

func TestCheckBadData(t *testing.T) {
	if _, _, err := Check(context.Background(), "bad", []byte("not json")); err == nil {
		t.Errorf("expected an error")
	}
}
