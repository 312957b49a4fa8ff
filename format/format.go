// Package format renders IR terms as human-readable text.
// The output is for inspection and diagnostics; the lossless form
// is the JSON serialization of the ir package.
package format

import (
	"context"
	"sort"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"

	"github.com/ysyxyx/cwe-checker/ir"
)

func Format(ctx context.Context, b []byte, x any) ([]byte, error) {
	return format(ctx, b, x, 0)
}

func format(ctx context.Context, b []byte, x any, d int) ([]byte, error) {
	switch x := x.(type) {
	case *ir.Project:
		return formatProject(ctx, b, x, d)
	case *ir.Program:
		return formatProgram(ctx, b, x, d)
	case ir.Term[ir.Sub]:
		return formatSub(ctx, b, x, d)
	case ir.Term[ir.Blk]:
		return formatBlk(ctx, b, x, d)
	case *ir.Report:
		return formatReport(ctx, b, x, d)
	default:
		return nil, errors.New("unsupported type: %T", x)
	}
}

func formatProject(ctx context.Context, b []byte, x *ir.Project, d int) (_ []byte, err error) {
	b = app(b, d, "project arch=%v endian=%v reg=%d ptr=%d sp=%v\n",
		x.CPUArchitecture, x.Endianness, x.RegisterWidth, x.DatatypeProperties.PointerSize, x.StackPointer.Name)

	if x.Program == nil {
		return b, nil
	}

	return formatProgram(ctx, b, x.Program, d)
}

func formatProgram(ctx context.Context, b []byte, x *ir.Program, d int) (_ []byte, err error) {
	for _, ep := range x.EntryPoints {
		b = app(b, d, "entry %v\n", ep)
	}

	for _, s := range sortedSubs(x) {
		b = append(b, '\n')

		b, err = formatSub(ctx, b, *s, d)
		if err != nil {
			return nil, errors.Wrap(err, "sub %v", s.Term.Name)
		}
	}

	return b, nil
}

func formatSub(ctx context.Context, b []byte, x ir.Term[ir.Sub], d int) (_ []byte, err error) {
	b = app(b, d, "sub %v %v entry=%v\n", x.Term.Name, x.Tid, x.Term.Entry)

	for _, blk := range x.Term.Blocks {
		b, err = formatBlk(ctx, b, blk, d+1)
		if err != nil {
			return nil, errors.Wrap(err, "blk %v", blk.Tid)
		}
	}

	return b, nil
}

func formatBlk(ctx context.Context, b []byte, x ir.Term[ir.Blk], d int) (_ []byte, err error) {
	b = app(b, d, "blk %v\n", x.Tid)

	for _, def := range x.Term.Defs {
		b = app(b, d+1, "")

		b, err = formatDef(b, def.Term)
		if err != nil {
			return nil, errors.Wrap(err, "def %v", def.Tid)
		}

		b = append(b, '\n')
	}

	for _, jmp := range x.Term.Jmps {
		b = app(b, d+1, "")

		b, err = formatJmp(b, jmp.Term)
		if err != nil {
			return nil, errors.Wrap(err, "jmp %v", jmp.Tid)
		}

		b = append(b, '\n')
	}

	return b, nil
}

func formatDef(b []byte, x ir.Def) (_ []byte, err error) {
	switch x := x.(type) {
	case *ir.Assign:
		b = app(b, 0, "%v:%d = ", x.Var.Name, x.Var.Size)

		return formatExpr(b, x.Value)
	case *ir.Load:
		b = app(b, 0, "%v:%d = load [", x.Var.Name, x.Var.Size)

		b, err = formatExpr(b, x.Address)
		if err != nil {
			return nil, err
		}

		return append(b, ']'), nil
	case *ir.Store:
		b = append(b, "store ["...)

		b, err = formatExpr(b, x.Address)
		if err != nil {
			return nil, err
		}

		b = append(b, "] = "...)

		return formatExpr(b, x.Value)
	default:
		return nil, errors.New("unsupported def: %T", x)
	}
}

func formatJmp(b []byte, x ir.Jmp) (_ []byte, err error) {
	switch x := x.(type) {
	case *ir.Branch:
		return app(b, 0, "branch %v", x.Target), nil
	case *ir.CBranch:
		b = append(b, "cbranch "...)

		b, err = formatExpr(b, x.Condition)
		if err != nil {
			return nil, err
		}

		return app(b, 0, " -> %v", x.Target), nil
	case *ir.Call:
		b = app(b, 0, "call %v", x.Target)

		if x.Return != nil {
			b = app(b, 0, " return %v", *x.Return)
		}

		return b, nil
	case *ir.CallIndirect:
		b = append(b, "call ["...)

		b, err = formatExpr(b, x.Target)
		if err != nil {
			return nil, err
		}

		b = append(b, ']')

		if x.Return != nil {
			b = app(b, 0, " return %v", *x.Return)
		}

		return b, nil
	case *ir.Return:
		b = append(b, "return"...)

		if x.Value != nil {
			b = append(b, ' ')

			return formatExpr(b, x.Value)
		}

		return b, nil
	default:
		return nil, errors.New("unsupported jmp: %T", x)
	}
}

func formatExpr(b []byte, x ir.Expression) (_ []byte, err error) {
	switch x := x.(type) {
	case *ir.Const:
		return app(b, 0, "%v", x.Value), nil
	case *ir.Var:
		return app(b, 0, "%v:%d", x.Var.Name, x.Var.Size), nil
	case *ir.UnOp:
		b = app(b, 0, "%v(", x.Op)

		b, err = formatExpr(b, x.Arg)
		if err != nil {
			return nil, err
		}

		return append(b, ')'), nil
	case *ir.BinOp:
		b = append(b, '(')

		b, err = formatExpr(b, x.L)
		if err != nil {
			return nil, errors.Wrap(err, "lhs")
		}

		b = app(b, 0, " %v ", x.Op)

		b, err = formatExpr(b, x.R)
		if err != nil {
			return nil, errors.Wrap(err, "rhs")
		}

		return append(b, ')'), nil
	case *ir.Cast:
		b = app(b, 0, "%v:%d(", x.Op, x.Size)

		b, err = formatExpr(b, x.Arg)
		if err != nil {
			return nil, err
		}

		return append(b, ')'), nil
	case *ir.Subpiece:
		b = append(b, "sub["...)

		b, err = formatExpr(b, x.Arg)
		if err != nil {
			return nil, err
		}

		return app(b, 0, "][%d:%d]", x.LowByte, x.LowByte+x.Size), nil
	case *ir.IfThenElse:
		b = append(b, "ite("...)

		b, err = formatExpr(b, x.Cond)
		if err != nil {
			return nil, errors.Wrap(err, "cond")
		}

		b = append(b, ", "...)

		b, err = formatExpr(b, x.Then)
		if err != nil {
			return nil, errors.Wrap(err, "then")
		}

		b = append(b, ", "...)

		b, err = formatExpr(b, x.Else)
		if err != nil {
			return nil, errors.Wrap(err, "else")
		}

		return append(b, ')'), nil
	case *ir.Unknown:
		return app(b, 0, "unknown:%d(%v)", x.Size, x.Description), nil
	default:
		return nil, errors.New("unsupported expr: %T", x)
	}
}

func formatReport(ctx context.Context, b []byte, x *ir.Report, d int) ([]byte, error) {
	for _, i := range x.Issues {
		b = app(b, d, "%v: %v: %v\n", i.Severity, i.Tid, i.Message)
	}

	b = app(b, d, "%d issues, %d errors\n", len(x.Issues), x.Errors())

	return b, nil
}

func sortedSubs(p *ir.Program) []*ir.Term[ir.Sub] {
	subs := make([]*ir.Term[ir.Sub], 0, len(p.Subs))
	for _, s := range p.Subs {
		subs = append(subs, s)
	}

	sort.Slice(subs, func(i, j int) bool { return subs[i].Tid.String() < subs[j].Tid.String() })

	return subs
}

func app(b []byte, d int, f string, args ...any) []byte {
	const tabs = "\t\t\t\t\t\t\t\t\t\t\t\t\t\t\t"
	b = append(b, tabs[:d]...)
	b = hfmt.Appendf(b, f, args...)
	return b
}
