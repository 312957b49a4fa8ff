package ir

import (
	"encoding/json"
	"math/big"
	"sort"

	"tlog.app/go/errors"
)

// Serialized form. Every entity has a structural, lossless JSON
// representation sufficient to reconstruct an identical Project.
// Sum types (Expression, Def, Jmp) use externally tagged one-key
// objects, e.g. {"BinOp": {"op": "ADD", "lhs": ..., "rhs": ...}}.
// Field names and variant tags are a contract other tooling depends on.

var (
	unOpNames = map[UnOpType]string{
		NEG: "NEG",
		NOT: "NOT",
	}

	binOpNames = map[BinOpType]string{
		ADD:  "ADD",
		SUB:  "SUB",
		MUL:  "MUL",
		UDIV: "UDIV",
		SDIV: "SDIV",
		UREM: "UREM",
		SREM: "SREM",
		AND:  "AND",
		OR:   "OR",
		XOR:  "XOR",
		SHL:  "SHL",
		LSHR: "LSHR",
		ASHR: "ASHR",
		ROL:  "ROL",
		ROR:  "ROR",
		EQ:   "EQ",
		NE:   "NE",
		ULT:  "ULT",
		SLT:  "SLT",
	}

	castOpNames = map[CastOpType]string{
		ZEXT:  "ZEXT",
		SEXT:  "SEXT",
		TRUNC: "TRUNC",
	}

	unOpValues   = invert(unOpNames)
	binOpValues  = invert(binOpNames)
	castOpValues = invert(castOpNames)
)

func invert[K comparable](m map[K]string) map[string]K {
	r := make(map[string]K, len(m))
	for k, v := range m {
		r[v] = k
	}

	return r
}

func (op UnOpType) String() string   { return unOpNames[op] }
func (op BinOpType) String() string  { return binOpNames[op] }
func (op CastOpType) String() string { return castOpNames[op] }

func (op UnOpType) MarshalText() ([]byte, error) { return []byte(op.String()), nil }

func (op *UnOpType) UnmarshalText(data []byte) error {
	v, ok := unOpValues[string(data)]
	if !ok {
		return errors.Wrap(ErrConstruction, "unknown unary op %q", data)
	}

	*op = v

	return nil
}

func (op BinOpType) MarshalText() ([]byte, error) { return []byte(op.String()), nil }

func (op *BinOpType) UnmarshalText(data []byte) error {
	v, ok := binOpValues[string(data)]
	if !ok {
		return errors.Wrap(ErrConstruction, "unknown binary op %q", data)
	}

	*op = v

	return nil
}

func (op CastOpType) MarshalText() ([]byte, error) { return []byte(op.String()), nil }

func (op *CastOpType) UnmarshalText(data []byte) error {
	v, ok := castOpValues[string(data)]
	if !ok {
		return errors.Wrap(ErrConstruction, "unknown cast op %q", data)
	}

	*op = v

	return nil
}

func (e Endianness) String() string {
	if e == BigEndian {
		return "big"
	}

	return "little"
}

func (e Endianness) MarshalText() ([]byte, error) { return []byte(e.String()), nil }

func (e *Endianness) UnmarshalText(data []byte) error {
	switch string(data) {
	case "little":
		*e = LittleEndian
	case "big":
		*e = BigEndian
	default:
		return errors.Wrap(ErrConstruction, "unknown endianness %q", data)
	}

	return nil
}

func (s Severity) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Severity) UnmarshalText(data []byte) error {
	switch string(data) {
	case "warning":
		*s = Warning
	case "error":
		*s = Error
	default:
		return errors.Wrap(ErrConstruction, "unknown severity %q", data)
	}

	return nil
}

// Bitvector

type bitvectorJSON struct {
	Width uint64 `json:"width"`
	Value string `json:"value"`
}

func (x Bitvector) MarshalJSON() ([]byte, error) {
	v := x.v
	if v == nil {
		v = big.NewInt(0)
	}

	return json.Marshal(bitvectorJSON{Width: x.width, Value: "0x" + v.Text(16)})
}

func (x *Bitvector) UnmarshalJSON(data []byte) error {
	var raw bitvectorJSON

	err := json.Unmarshal(data, &raw)
	if err != nil {
		return err
	}

	v, ok := new(big.Int).SetString(raw.Value, 0)
	if !ok {
		return errors.Wrap(ErrConstruction, "bad bitvector value %q", raw.Value)
	}
	if v.Sign() < 0 || v.BitLen() > int(raw.Width) {
		return errors.Wrap(ErrConstruction, "bitvector value %q does not fit %d bits", raw.Value, raw.Width)
	}

	*x = Bitvector{width: raw.Width, v: v}

	return nil
}

// Expression variants marshal in tagged form themselves, so an
// Expression in any struct field serializes correctly by default.
// Decoding an Expression field goes through unmarshalExpression.

func tagged(tag string, v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	b := append([]byte(`{"`), tag...)
	b = append(b, `":`...)
	b = append(b, raw...)
	b = append(b, '}')

	return b, nil
}

func untag(data []byte) (string, json.RawMessage, error) {
	var m map[string]json.RawMessage

	err := json.Unmarshal(data, &m)
	if err != nil {
		return "", nil, err
	}
	if len(m) != 1 {
		return "", nil, errors.Wrap(ErrConstruction, "want a single variant tag, got %d keys", len(m))
	}

	for tag, raw := range m {
		return tag, raw, nil
	}

	panic("unreachable")
}

type (
	unOpJSON struct {
		Op  UnOpType        `json:"op"`
		Arg json.RawMessage `json:"arg"`
	}

	binOpJSON struct {
		Op BinOpType       `json:"op"`
		L  json.RawMessage `json:"lhs"`
		R  json.RawMessage `json:"rhs"`
	}

	castJSON struct {
		Op   CastOpType      `json:"op"`
		Size ByteSize        `json:"size"`
		Arg  json.RawMessage `json:"arg"`
	}

	subpieceJSON struct {
		LowByte ByteSize        `json:"low_byte"`
		Size    ByteSize        `json:"size"`
		Arg     json.RawMessage `json:"arg"`
	}

	iteJSON struct {
		Cond json.RawMessage `json:"condition"`
		Then json.RawMessage `json:"then"`
		Else json.RawMessage `json:"else"`
	}

	unknownJSON struct {
		Description string   `json:"description"`
		Size        ByteSize `json:"size"`
	}
)

func marshalExpression(e Expression) (json.RawMessage, error) {
	if e == nil {
		return []byte("null"), nil
	}

	return json.Marshal(e)
}

func (e *Const) MarshalJSON() ([]byte, error) { return tagged("Const", e.Value) }
func (e *Var) MarshalJSON() ([]byte, error)   { return tagged("Var", e.Var) }

func (e *UnOp) MarshalJSON() ([]byte, error) {
	arg, err := marshalExpression(e.Arg)
	if err != nil {
		return nil, err
	}

	return tagged("UnOp", unOpJSON{Op: e.Op, Arg: arg})
}

func (e *BinOp) MarshalJSON() ([]byte, error) {
	l, err := marshalExpression(e.L)
	if err != nil {
		return nil, err
	}

	r, err := marshalExpression(e.R)
	if err != nil {
		return nil, err
	}

	return tagged("BinOp", binOpJSON{Op: e.Op, L: l, R: r})
}

func (e *Cast) MarshalJSON() ([]byte, error) {
	arg, err := marshalExpression(e.Arg)
	if err != nil {
		return nil, err
	}

	return tagged("Cast", castJSON{Op: e.Op, Size: e.Size, Arg: arg})
}

func (e *Subpiece) MarshalJSON() ([]byte, error) {
	arg, err := marshalExpression(e.Arg)
	if err != nil {
		return nil, err
	}

	return tagged("Subpiece", subpieceJSON{LowByte: e.LowByte, Size: e.Size, Arg: arg})
}

func (e *IfThenElse) MarshalJSON() ([]byte, error) {
	c, err := marshalExpression(e.Cond)
	if err != nil {
		return nil, err
	}

	t, err := marshalExpression(e.Then)
	if err != nil {
		return nil, err
	}

	f, err := marshalExpression(e.Else)
	if err != nil {
		return nil, err
	}

	return tagged("IfThenElse", iteJSON{Cond: c, Then: t, Else: f})
}

func (e *Unknown) MarshalJSON() ([]byte, error) {
	return tagged("Unknown", unknownJSON{Description: e.Description, Size: e.Size})
}

func unmarshalExpression(data []byte) (Expression, error) {
	if string(data) == "null" {
		return nil, nil
	}

	tag, raw, err := untag(data)
	if err != nil {
		return nil, err
	}

	switch tag {
	case "Const":
		var v Bitvector
		if err = json.Unmarshal(raw, &v); err != nil {
			return nil, errors.Wrap(err, "const")
		}

		return &Const{Value: v}, nil
	case "Var":
		var v Variable
		if err = json.Unmarshal(raw, &v); err != nil {
			return nil, errors.Wrap(err, "var")
		}

		return &Var{Var: v}, nil
	case "UnOp":
		var x unOpJSON
		if err = json.Unmarshal(raw, &x); err != nil {
			return nil, errors.Wrap(err, "unop")
		}

		arg, err := unmarshalExpression(x.Arg)
		if err != nil {
			return nil, errors.Wrap(err, "unop arg")
		}

		return &UnOp{Op: x.Op, Arg: arg}, nil
	case "BinOp":
		var x binOpJSON
		if err = json.Unmarshal(raw, &x); err != nil {
			return nil, errors.Wrap(err, "binop")
		}

		l, err := unmarshalExpression(x.L)
		if err != nil {
			return nil, errors.Wrap(err, "binop lhs")
		}

		r, err := unmarshalExpression(x.R)
		if err != nil {
			return nil, errors.Wrap(err, "binop rhs")
		}

		return &BinOp{Op: x.Op, L: l, R: r}, nil
	case "Cast":
		var x castJSON
		if err = json.Unmarshal(raw, &x); err != nil {
			return nil, errors.Wrap(err, "cast")
		}

		arg, err := unmarshalExpression(x.Arg)
		if err != nil {
			return nil, errors.Wrap(err, "cast arg")
		}

		return &Cast{Op: x.Op, Size: x.Size, Arg: arg}, nil
	case "Subpiece":
		var x subpieceJSON
		if err = json.Unmarshal(raw, &x); err != nil {
			return nil, errors.Wrap(err, "subpiece")
		}

		arg, err := unmarshalExpression(x.Arg)
		if err != nil {
			return nil, errors.Wrap(err, "subpiece arg")
		}

		return &Subpiece{LowByte: x.LowByte, Size: x.Size, Arg: arg}, nil
	case "IfThenElse":
		var x iteJSON
		if err = json.Unmarshal(raw, &x); err != nil {
			return nil, errors.Wrap(err, "if-then-else")
		}

		c, err := unmarshalExpression(x.Cond)
		if err != nil {
			return nil, errors.Wrap(err, "condition")
		}

		t, err := unmarshalExpression(x.Then)
		if err != nil {
			return nil, errors.Wrap(err, "then")
		}

		f, err := unmarshalExpression(x.Else)
		if err != nil {
			return nil, errors.Wrap(err, "else")
		}

		return &IfThenElse{Cond: c, Then: t, Else: f}, nil
	case "Unknown":
		var x unknownJSON
		if err = json.Unmarshal(raw, &x); err != nil {
			return nil, errors.Wrap(err, "unknown")
		}

		return &Unknown{Description: x.Description, Size: x.Size}, nil
	default:
		return nil, errors.Wrap(ErrConstruction, "unknown expression variant %q", tag)
	}
}

// Def / Jmp variants

type (
	assignJSON struct {
		Var   Variable        `json:"var"`
		Value json.RawMessage `json:"value"`
	}

	loadJSON struct {
		Var     Variable        `json:"var"`
		Address json.RawMessage `json:"address"`
	}

	storeJSON struct {
		Address json.RawMessage `json:"address"`
		Value   json.RawMessage `json:"value"`
	}

	cbranchJSON struct {
		Condition json.RawMessage `json:"condition"`
		Target    Tid             `json:"target"`
	}

	callJSON struct {
		Target Tid  `json:"target"`
		Return *Tid `json:"return,omitempty"`
	}

	callIndJSON struct {
		Target json.RawMessage `json:"target"`
		Return *Tid            `json:"return,omitempty"`
	}

	returnJSON struct {
		Value json.RawMessage `json:"value"`
	}
)

func (d *Assign) MarshalJSON() ([]byte, error) {
	v, err := marshalExpression(d.Value)
	if err != nil {
		return nil, err
	}

	return tagged("Assign", assignJSON{Var: d.Var, Value: v})
}

func (d *Load) MarshalJSON() ([]byte, error) {
	a, err := marshalExpression(d.Address)
	if err != nil {
		return nil, err
	}

	return tagged("Load", loadJSON{Var: d.Var, Address: a})
}

func (d *Store) MarshalJSON() ([]byte, error) {
	a, err := marshalExpression(d.Address)
	if err != nil {
		return nil, err
	}

	v, err := marshalExpression(d.Value)
	if err != nil {
		return nil, err
	}

	return tagged("Store", storeJSON{Address: a, Value: v})
}

func unmarshalDef(data []byte) (Def, error) {
	tag, raw, err := untag(data)
	if err != nil {
		return nil, err
	}

	switch tag {
	case "Assign":
		var x assignJSON
		if err = json.Unmarshal(raw, &x); err != nil {
			return nil, errors.Wrap(err, "assign")
		}

		v, err := unmarshalExpression(x.Value)
		if err != nil {
			return nil, errors.Wrap(err, "assign value")
		}

		return &Assign{Var: x.Var, Value: v}, nil
	case "Load":
		var x loadJSON
		if err = json.Unmarshal(raw, &x); err != nil {
			return nil, errors.Wrap(err, "load")
		}

		a, err := unmarshalExpression(x.Address)
		if err != nil {
			return nil, errors.Wrap(err, "load address")
		}

		return &Load{Var: x.Var, Address: a}, nil
	case "Store":
		var x storeJSON
		if err = json.Unmarshal(raw, &x); err != nil {
			return nil, errors.Wrap(err, "store")
		}

		a, err := unmarshalExpression(x.Address)
		if err != nil {
			return nil, errors.Wrap(err, "store address")
		}

		v, err := unmarshalExpression(x.Value)
		if err != nil {
			return nil, errors.Wrap(err, "store value")
		}

		return &Store{Address: a, Value: v}, nil
	default:
		return nil, errors.Wrap(ErrConstruction, "unknown def variant %q", tag)
	}
}

func (j *Branch) MarshalJSON() ([]byte, error) { return tagged("Branch", j.Target) }

func (j *CBranch) MarshalJSON() ([]byte, error) {
	c, err := marshalExpression(j.Condition)
	if err != nil {
		return nil, err
	}

	return tagged("CBranch", cbranchJSON{Condition: c, Target: j.Target})
}

func (j *Call) MarshalJSON() ([]byte, error) {
	return tagged("Call", callJSON{Target: j.Target, Return: j.Return})
}

func (j *CallIndirect) MarshalJSON() ([]byte, error) {
	t, err := marshalExpression(j.Target)
	if err != nil {
		return nil, err
	}

	return tagged("CallIndirect", callIndJSON{Target: t, Return: j.Return})
}

func (j *Return) MarshalJSON() ([]byte, error) {
	v, err := marshalExpression(j.Value)
	if err != nil {
		return nil, err
	}

	return tagged("Return", returnJSON{Value: v})
}

func unmarshalJmp(data []byte) (Jmp, error) {
	tag, raw, err := untag(data)
	if err != nil {
		return nil, err
	}

	switch tag {
	case "Branch":
		var t Tid
		if err = json.Unmarshal(raw, &t); err != nil {
			return nil, errors.Wrap(err, "branch")
		}

		return &Branch{Target: t}, nil
	case "CBranch":
		var x cbranchJSON
		if err = json.Unmarshal(raw, &x); err != nil {
			return nil, errors.Wrap(err, "cbranch")
		}

		c, err := unmarshalExpression(x.Condition)
		if err != nil {
			return nil, errors.Wrap(err, "cbranch condition")
		}

		return &CBranch{Condition: c, Target: x.Target}, nil
	case "Call":
		var x callJSON
		if err = json.Unmarshal(raw, &x); err != nil {
			return nil, errors.Wrap(err, "call")
		}

		return &Call{Target: x.Target, Return: x.Return}, nil
	case "CallIndirect":
		var x callIndJSON
		if err = json.Unmarshal(raw, &x); err != nil {
			return nil, errors.Wrap(err, "call indirect")
		}

		t, err := unmarshalExpression(x.Target)
		if err != nil {
			return nil, errors.Wrap(err, "call indirect target")
		}

		return &CallIndirect{Target: t, Return: x.Return}, nil
	case "Return":
		var x returnJSON
		if err = json.Unmarshal(raw, &x); err != nil {
			return nil, errors.Wrap(err, "return")
		}

		v, err := unmarshalExpression(x.Value)
		if err != nil {
			return nil, errors.Wrap(err, "return value")
		}

		return &Return{Value: v}, nil
	default:
		return nil, errors.Wrap(ErrConstruction, "unknown jmp variant %q", tag)
	}
}

// Term decoding dispatches on the payload type so that terms holding
// sealed interfaces (Def, Jmp) reconstruct the right variant.
func (t *Term[T]) UnmarshalJSON(data []byte) error {
	var raw struct {
		Tid  Tid             `json:"tid"`
		Term json.RawMessage `json:"term"`
	}

	err := json.Unmarshal(data, &raw)
	if err != nil {
		return err
	}

	t.Tid = raw.Tid

	switch p := any(&t.Term).(type) {
	case *Def:
		d, err := unmarshalDef(raw.Term)
		if err != nil {
			return errors.Wrap(err, "def %v", t.Tid)
		}

		*p = d
	case *Jmp:
		j, err := unmarshalJmp(raw.Term)
		if err != nil {
			return errors.Wrap(err, "jmp %v", t.Tid)
		}

		*p = j
	default:
		if err = json.Unmarshal(raw.Term, &t.Term); err != nil {
			return errors.Wrap(err, "term %v", t.Tid)
		}
	}

	return nil
}

// Program serializes its sub map as a list sorted by Tid so the output
// is deterministic; the map is rebuilt on load.

type programJSON struct {
	Subs        []Term[Sub] `json:"subs"`
	EntryPoints []Tid       `json:"entry_points,omitempty"`
}

func tidLess(a, b Tid) bool {
	if a.ID != b.ID {
		return a.ID < b.ID
	}
	if a.Address != b.Address {
		return a.Address < b.Address
	}

	return a.Index < b.Index
}

func (p *Program) MarshalJSON() ([]byte, error) {
	subs := make([]Term[Sub], 0, len(p.Subs))
	for _, s := range p.Subs {
		subs = append(subs, *s)
	}

	sort.Slice(subs, func(i, j int) bool { return tidLess(subs[i].Tid, subs[j].Tid) })

	return json.Marshal(programJSON{Subs: subs, EntryPoints: p.EntryPoints})
}

func (p *Program) UnmarshalJSON(data []byte) error {
	var raw programJSON

	err := json.Unmarshal(data, &raw)
	if err != nil {
		return err
	}

	*p = Program{Subs: make(map[Tid]*Term[Sub], len(raw.Subs)), EntryPoints: raw.EntryPoints}

	for _, s := range raw.Subs {
		if err = p.AddSub(s); err != nil {
			return errors.Wrap(err, "program")
		}
	}

	return nil
}
