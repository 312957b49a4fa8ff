package ir

import (
	"tlog.app/go/errors"
)

type (
	// Sub is a function: a set of owned blocks with a designated entry.
	Sub struct {
		Name   string      `json:"name"`
		Blocks []Term[Blk] `json:"blocks"`
		Entry  Tid         `json:"entry"`
	}

	// Program is the whole-program container mapping Tids to subs.
	Program struct {
		Subs        map[Tid]*Term[Sub]
		EntryPoints []Tid
	}

	// Endianness of the analyzed binary.
	Endianness int

	// Project is the whole-binary container: the program,
	// the platform's datatype sizes and the architecture metadata.
	//
	// A Project is built once by the lifter, verified, and then shared
	// read-only between analyses. There is no concurrent-mutation
	// protocol: normalization passes must finish before readers start.
	Project struct {
		Program            *Program           `json:"program"`
		CPUArchitecture    string             `json:"cpu_architecture"`
		Endianness         Endianness         `json:"endianness"`
		RegisterWidth      ByteSize           `json:"register_width"`
		StackPointer       Variable           `json:"stack_pointer_register"`
		DatatypeProperties DatatypeProperties `json:"datatype_properties"`
	}

	// Index is a Tid-keyed view over a Project for O(1) resolution
	// of cross-references. It borrows the project's terms, so it is
	// valid as long as the project is not restructured.
	Index struct {
		Subs map[Tid]*Term[Sub]
		Blks map[Tid]*Term[Blk]
		Defs map[Tid]*Term[Def]
		Jmps map[Tid]*Term[Jmp]

		// SubOf maps a block Tid to its owning sub's Tid.
		SubOf map[Tid]Tid
	}
)

const (
	LittleEndian Endianness = iota
	BigEndian
)

// NewProgram makes an empty program.
func NewProgram() *Program {
	return &Program{Subs: map[Tid]*Term[Sub]{}}
}

// AddSub adds a sub term. A duplicate Tid is a construction error.
func (p *Program) AddSub(s Term[Sub]) error {
	if p.Subs == nil {
		p.Subs = map[Tid]*Term[Sub]{}
	}

	if _, ok := p.Subs[s.Tid]; ok {
		return errors.Wrap(ErrConstruction, "duplicate sub tid %v", s.Tid)
	}

	p.Subs[s.Tid] = &s

	return nil
}

// Sub resolves a sub by Tid.
func (p *Program) Sub(tid Tid) (*Term[Sub], error) {
	s, ok := p.Subs[tid]
	if !ok {
		return nil, errors.Wrap(ErrLookup, "sub %v", tid)
	}

	return s, nil
}

// Block resolves a block owned by this sub.
func (s *Sub) Block(tid Tid) (*Term[Blk], error) {
	for i := range s.Blocks {
		if s.Blocks[i].Tid == tid {
			return &s.Blocks[i], nil
		}
	}

	return nil, errors.Wrap(ErrLookup, "blk %v", tid)
}

// Index builds the Tid-keyed view.
// Any duplicate Tid anywhere in the project is a construction error.
func (p *Project) Index() (*Index, error) {
	var err error

	ix := p.index(func(tid Tid) {
		if err == nil {
			err = errors.Wrap(ErrConstruction, "duplicate tid %v", tid)
		}
	})
	if err != nil {
		return nil, err
	}

	return ix, nil
}

// index walks the ownership tree. The first term keeps a contested Tid,
// later ones are reported through dup.
func (p *Project) index(dup func(Tid)) *Index {
	ix := &Index{
		Subs:  map[Tid]*Term[Sub]{},
		Blks:  map[Tid]*Term[Blk]{},
		Defs:  map[Tid]*Term[Def]{},
		Jmps:  map[Tid]*Term[Jmp]{},
		SubOf: map[Tid]Tid{},
	}

	if p.Program == nil {
		return ix
	}

	seen := map[Tid]struct{}{}

	add := func(tid Tid) bool {
		if _, ok := seen[tid]; ok {
			dup(tid)
			return false
		}

		seen[tid] = struct{}{}

		return true
	}

	for tid, sub := range p.Program.Subs {
		if add(tid) {
			ix.Subs[tid] = sub
		}

		for i := range sub.Term.Blocks {
			b := &sub.Term.Blocks[i]

			if add(b.Tid) {
				ix.Blks[b.Tid] = b
				ix.SubOf[b.Tid] = tid
			}

			for j := range b.Term.Defs {
				if d := &b.Term.Defs[j]; add(d.Tid) {
					ix.Defs[d.Tid] = d
				}
			}

			for j := range b.Term.Jmps {
				if jm := &b.Term.Jmps[j]; add(jm.Tid) {
					ix.Jmps[jm.Tid] = jm
				}
			}
		}
	}

	return ix
}

// Blk resolves a block project-wide.
func (ix *Index) Blk(tid Tid) (*Term[Blk], error) {
	b, ok := ix.Blks[tid]
	if !ok {
		return nil, errors.Wrap(ErrLookup, "blk %v", tid)
	}

	return b, nil
}

// Sub resolves a sub project-wide.
func (ix *Index) Sub(tid Tid) (*Term[Sub], error) {
	s, ok := ix.Subs[tid]
	if !ok {
		return nil, errors.Wrap(ErrLookup, "sub %v", tid)
	}

	return s, nil
}

// Def resolves a def project-wide.
func (ix *Index) Def(tid Tid) (*Term[Def], error) {
	d, ok := ix.Defs[tid]
	if !ok {
		return nil, errors.Wrap(ErrLookup, "def %v", tid)
	}

	return d, nil
}

// Jmp resolves a jmp project-wide.
func (ix *Index) Jmp(tid Tid) (*Term[Jmp], error) {
	j, ok := ix.Jmps[tid]
	if !ok {
		return nil, errors.Wrap(ErrLookup, "jmp %v", tid)
	}

	return j, nil
}
