package ir

import (
	"context"
	"fmt"

	"tlog.app/go/errors"
	"tlog.app/go/loc"
	"tlog.app/go/tlog"

	"github.com/ysyxyx/cwe-checker/set"
)

type (
	Severity int

	// Issue is a single verification finding attached to a term.
	Issue struct {
		Severity Severity `json:"severity"`
		Tid      Tid      `json:"tid"`
		Message  string   `json:"message"`
	}

	// Report is the complete result of verifying a Project.
	// Verification never stops at the first problem: real-world
	// disassembly is often imperfect and the caller decides whether
	// to proceed with a degraded analysis or abort.
	Report struct {
		Issues []Issue `json:"issues"`
	}
)

const (
	Warning Severity = iota
	Error
)

func (s Severity) String() string {
	if s == Warning {
		return "warning"
	}

	return "error"
}

func (r *Report) add(sev Severity, tid Tid, format string, args ...interface{}) {
	r.Issues = append(r.Issues, Issue{Severity: sev, Tid: tid, Message: fmt.Sprintf(format, args...)})
}

// Errors is the number of error-severity issues.
func (r *Report) Errors() (n int) {
	for _, i := range r.Issues {
		if i.Severity == Error {
			n++
		}
	}

	return n
}

// Err summarizes the report: nil if no error-severity issues were found.
// Warnings alone do not fail verification.
func (r *Report) Err() error {
	if n := r.Errors(); n != 0 {
		return errors.New("verification failed: %d errors, %d issues total", n, len(r.Issues))
	}

	return nil
}

// Verify traverses the whole project and collects every violation of the
// IR invariants: inconsistent expression widths, malformed sub-register
// pieces, dangling or duplicate Tids, blocks without a terminator,
// conditional branches without a fallthrough sibling, address
// expressions that do not match the pointer width, and unreachable
// blocks (reported, not dropped).
//
// Analyses must only consume projects this function passed.
func Verify(ctx context.Context, p *Project) *Report {
	r := &Report{}

	ix := p.index(func(tid Tid) {
		r.add(Error, tid, "duplicate tid")
	})

	if p.Program == nil {
		r.add(Error, Tid{}, "project has no program")
		return r
	}

	if p.DatatypeProperties.PointerSize != p.RegisterWidth {
		r.add(Error, Tid{}, "pointer size %d does not match register width %d",
			p.DatatypeProperties.PointerSize, p.RegisterWidth)
	}

	verifyVariable(Tid{}, p.StackPointer, r)

	for _, ep := range p.Program.EntryPoints {
		if _, ok := ix.Subs[ep]; !ok {
			r.add(Error, ep, "program entry point does not resolve to a sub")
		}
	}

	for tid, sub := range p.Program.Subs {
		verifySub(p, ix, tid, &sub.Term, r)
	}

	tlog.SpanFromContext(ctx).Printw("project verified",
		"subs", len(p.Program.Subs), "blks", len(ix.Blks), "issues", len(r.Issues), "errors", r.Errors())

	return r
}

func verifySub(p *Project, ix *Index, stid Tid, sub *Sub, r *Report) {
	if ix.SubOf[sub.Entry] != stid {
		r.add(Error, stid, "entry %v is not a block of sub %v", sub.Entry, sub.Name)
	}

	for i := range sub.Blocks {
		b := &sub.Blocks[i]

		if len(b.Term.Jmps) == 0 {
			r.add(Error, b.Tid, "block has no terminating jump")
		}

		for j := range b.Term.Defs {
			verifyDef(p, &b.Term.Defs[j], r)
		}

		for j := range b.Term.Jmps {
			verifyJmp(p, ix, stid, b, &b.Term.Jmps[j], j, r)
		}
	}

	unreachable(ix, stid, sub, r)
}

func verifyDef(p *Project, d *Term[Def], r *Report) {
	ptr := p.DatatypeProperties.PointerSize.Bits()

	switch def := d.Term.(type) {
	case *Assign:
		verifyVariable(d.Tid, def.Var, r)
		verifyExprVars(d.Tid, def.Value, r)

		w, err := Width(def.Value)
		if err != nil {
			r.add(Error, d.Tid, "assign value: %v", err)
		} else if w != def.Var.Size.Bits() {
			r.add(Error, d.Tid, "assign %d bit value to %v of %d bit", w, def.Var.Name, def.Var.Size.Bits())
		}
	case *Load:
		verifyVariable(d.Tid, def.Var, r)
		verifyExprVars(d.Tid, def.Address, r)
		checkAddress(d.Tid, def.Address, ptr, r)
	case *Store:
		verifyExprVars(d.Tid, def.Address, r)
		verifyExprVars(d.Tid, def.Value, r)
		checkAddress(d.Tid, def.Address, ptr, r)

		if _, err := Width(def.Value); err != nil {
			r.add(Error, d.Tid, "store value: %v", err)
		}
	default:
		r.add(Error, d.Tid, "unknown def node %T", def)
	}
}

// verifyVariable re-checks the sub-register descriptor. Variable is a
// plain struct and decoded input never went through NewSubRegister.
func verifyVariable(tid Tid, v Variable, r *Report) {
	p := v.Piece
	if p == nil {
		return
	}

	if p.BitWidth == 0 || p.BitOffset+p.BitWidth > p.ParentSize.Bits() {
		r.add(Error, tid, "sub-register %v: bits [%d,%d) outside of %v (%d bits)",
			v.Name, p.BitOffset, p.BitOffset+p.BitWidth, p.Parent, p.ParentSize.Bits())
	}

	if v.Size != SizeFromBits(p.BitWidth) {
		r.add(Error, tid, "sub-register %v: size %d does not match %d bit piece", v.Name, v.Size, p.BitWidth)
	}
}

func verifyExprVars(tid Tid, e Expression, r *Report) {
	switch e := e.(type) {
	case *Var:
		verifyVariable(tid, e.Var, r)
	case *UnOp:
		verifyExprVars(tid, e.Arg, r)
	case *BinOp:
		verifyExprVars(tid, e.L, r)
		verifyExprVars(tid, e.R, r)
	case *Cast:
		verifyExprVars(tid, e.Arg, r)
	case *Subpiece:
		verifyExprVars(tid, e.Arg, r)
	case *IfThenElse:
		verifyExprVars(tid, e.Cond, r)
		verifyExprVars(tid, e.Then, r)
		verifyExprVars(tid, e.Else, r)
	}
}

func checkAddress(tid Tid, addr Expression, ptr uint64, r *Report) {
	w, err := Width(addr)
	if err != nil {
		r.add(Error, tid, "address: %v", err)
	} else if w != ptr {
		r.add(Error, tid, "address is %d bit, pointer width is %d bit", w, ptr)
	}
}

func verifyJmp(p *Project, ix *Index, stid Tid, b *Term[Blk], j *Term[Jmp], pos int, r *Report) {
	// a dangling target is imperfect disassembly, not a malformed IR:
	// analyses may still run degraded, so it is reported as a warning
	checkBlkTarget := func(target Tid) {
		if _, ok := ix.Blks[target]; !ok {
			r.add(Warning, j.Tid, "dangling jump target %v", target)
		} else if ix.SubOf[target] != stid {
			r.add(Error, j.Tid, "jump target %v is outside of the sub", target)
		}
	}

	checkReturnTarget := func(ret *Tid) {
		if ret == nil {
			return
		}
		if _, ok := ix.Blks[*ret]; !ok {
			r.add(Warning, j.Tid, "dangling return target %v", *ret)
		} else if ix.SubOf[*ret] != stid {
			r.add(Error, j.Tid, "return target %v is outside of the calling sub", *ret)
		}
	}

	switch jmp := j.Term.(type) {
	case *Branch:
		checkBlkTarget(jmp.Target)
	case *CBranch:
		checkBlkTarget(jmp.Target)
		verifyExprVars(j.Tid, jmp.Condition, r)

		if w, err := Width(jmp.Condition); err != nil {
			r.add(Error, j.Tid, "condition: %v", err)
		} else if w != 1 {
			r.add(Error, j.Tid, "condition is %d bit, want 1", w)
		}

		if pos == len(b.Term.Jmps)-1 {
			r.add(Error, j.Tid, "conditional branch has no fallthrough sibling")
		}
	case *Call:
		if _, ok := ix.Subs[jmp.Target]; !ok {
			r.add(Warning, j.Tid, "dangling call target %v", jmp.Target)
		}

		checkReturnTarget(jmp.Return)
	case *CallIndirect:
		verifyExprVars(j.Tid, jmp.Target, r)
		checkAddress(j.Tid, jmp.Target, p.DatatypeProperties.PointerSize.Bits(), r)
		checkReturnTarget(jmp.Return)
	case *Return:
		if jmp.Value != nil {
			verifyExprVars(j.Tid, jmp.Value, r)

			if _, err := Width(jmp.Value); err != nil {
				r.add(Error, j.Tid, "return value: %v", err)
			}
		}
	default:
		r.add(Error, j.Tid, "unknown jmp node %T", jmp)
	}
}

// unreachable reports blocks of the sub not reachable from its entry.
// Their presence affects analysis precision and must be visible.
func unreachable(ix *Index, stid Tid, sub *Sub, r *Report) {
	pos := map[Tid]int{}
	for i := range sub.Blocks {
		pos[sub.Blocks[i].Tid] = i
	}

	visited := set.MakeBits(0)

	var walk func(tid Tid)
	walk = func(tid Tid) {
		i, ok := pos[tid]
		if !ok || visited.IsSet(i) {
			return
		}

		visited.Set(i)

		for _, next := range successors(ix, &sub.Blocks[i].Term, false) {
			walk(next)
		}
	}

	walk(sub.Entry)

	for i := range sub.Blocks {
		if visited.IsSet(i) {
			continue
		}

		tlog.V("verify").Printw("unreachable block", "blk", sub.Blocks[i].Tid, "sub", sub.Name, "from", loc.Caller(0))

		r.add(Warning, sub.Blocks[i].Tid, "block is unreachable from entry %v of %v", sub.Entry, sub.Name)
	}
}

// successors lists the block Tids control can move to from b.
// With interSub set, calls contribute the callee's entry block,
// otherwise only the designated return targets.
func successors(ix *Index, b *Blk, interSub bool) []Tid {
	var next []Tid

	for i := range b.Jmps {
		switch jmp := b.Jmps[i].Term.(type) {
		case *Branch:
			next = append(next, jmp.Target)
		case *CBranch:
			next = append(next, jmp.Target)
		case *Call:
			if interSub {
				if callee, ok := ix.Subs[jmp.Target]; ok {
					next = append(next, callee.Term.Entry)
				}
			}
			if jmp.Return != nil {
				next = append(next, *jmp.Return)
			}
		case *CallIndirect:
			if jmp.Return != nil {
				next = append(next, *jmp.Return)
			}
		case *Return:
			// resolved through the callers' return targets
		}
	}

	return next
}

// Reachable is the set of block Tids reachable from the given block,
// following intra-sub jumps, calls into other subs and return targets.
func Reachable(ix *Index, from Tid) map[Tid]bool {
	seen := map[Tid]bool{}

	var walk func(tid Tid)
	walk = func(tid Tid) {
		b, ok := ix.Blks[tid]
		if !ok || seen[tid] {
			return
		}

		seen[tid] = true

		for _, next := range successors(ix, &b.Term, true) {
			walk(next)
		}
	}

	walk(from)

	return seen
}
