package ir

type (
	// Def is an atomic effect on the program state.
	// The variant set is sealed: Assign, Load, Store.
	Def interface {
		def()
	}

	// Assign evaluates Value and writes it to Var.
	Assign struct {
		Var   Variable
		Value Expression
	}

	// Load reads Var.Size bytes of memory at Address into Var.
	Load struct {
		Var     Variable
		Address Expression
	}

	// Store writes Value to memory at Address.
	Store struct {
		Address Expression
		Value   Expression
	}

	// Jmp is a control transfer out of a block.
	// The variant set is sealed: Branch, CBranch, Call, CallIndirect, Return.
	Jmp interface {
		jmp()
	}

	// Branch is an unconditional jump to a block of the same sub.
	Branch struct {
		Target Tid
	}

	// CBranch jumps to Target if Condition is nonzero.
	// The not-taken path is the next Jmp term of the same block,
	// there is no implicit fallthrough by address.
	CBranch struct {
		Condition Expression
		Target    Tid
	}

	// Call transfers to the entry of another sub.
	// Return, if present, names the block of the calling sub
	// the callee returns to. Tail calls have no return target.
	Call struct {
		Target Tid
		Return *Tid
	}

	// CallIndirect calls a pointer-width computed target.
	CallIndirect struct {
		Target Expression
		Return *Tid
	}

	// Return leaves the sub. The target is resolved through the
	// callers' return targets, it is not stored here.
	Return struct {
		Value Expression
	}

	// Blk is a basic block: straight-line Defs followed by at least
	// one terminating Jmp. More than one Jmp only for conditional or
	// multi-way exits.
	Blk struct {
		Defs []Term[Def] `json:"defs"`
		Jmps []Term[Jmp] `json:"jmps"`
	}
)

func (*Assign) def() {}
func (*Load) def()   {}
func (*Store) def()  {}

func (*Branch) jmp()       {}
func (*CBranch) jmp()      {}
func (*Call) jmp()         {}
func (*CallIndirect) jmp() {}
func (*Return) jmp()       {}
