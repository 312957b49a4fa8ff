package ir

import (
	"tlog.app/go/tlog/tlwire"
)

func (t Tid) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	if t == (Tid{}) {
		return e.AppendNil(b)
	}

	if t.Index != 0 {
		return e.AppendFormat(b, "%s@%s.%d", t.ID, t.Address, t.Index)
	}

	return e.AppendFormat(b, "%s@%s", t.ID, t.Address)
}

func (x Bitvector) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	if x.v == nil {
		return e.AppendNil(b)
	}

	return e.AppendFormat(b, "0x%s:%d", x.v.Text(16), x.width)
}

func (i Issue) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	b = e.AppendMap(b, 3)
	b = e.AppendKey(b, "severity")
	b = e.AppendString(b, i.Severity.String())
	b = e.AppendKey(b, "tid")
	b = i.Tid.TlogAppend(b)
	b = e.AppendKey(b, "message")
	b = e.AppendString(b, i.Message)

	return b
}
