package set

import (
	"math/bits"

	"tlog.app/go/tlog/tlwire"
)

type (
	Key interface {
		~int | ~int64
	}

	// Bits is a dense bitset over keys counted from base.
	// The zero-adjacent small case is kept inline to avoid allocation
	// for typical block counts.
	Bits[K Key] struct {
		base K
		b    []uint64
		b0   [2]uint64
	}
)

func MakeBits[K Key](base K) Bits[K] {
	s := Bits[K]{
		base: base,
	}

	s.b = s.b0[:]

	return s
}

func (s Bits[K]) Copy() Bits[K] {
	c := MakeBits(s.base)

	c.grow(len(s.b))
	copy(c.b, s.b)

	return c
}

func (s *Bits[K]) Set(k K) {
	i, j := s.ij(k)

	s.grow(i)

	s.b[i] |= 1 << j
}

func (s *Bits[K]) SetAll(k ...K) {
	for _, k := range k {
		s.Set(k)
	}
}

func (s Bits[K]) IsSet(k K) bool {
	i, j := s.ij(k)

	if i >= len(s.b) {
		return false
	}

	return s.b[i]&(1<<j) != 0
}

func (s *Bits[K]) Clear(k K) {
	i, j := s.ij(k)

	if i >= len(s.b) {
		return
	}

	s.b[i] &^= 1 << j
}

func (s Bits[K]) Size() (r int) {
	for _, c := range s.b {
		r += bits.OnesCount64(c)
	}

	return r
}

func (s Bits[K]) Range(f func(k K) bool) {
	for i, x := range s.b {
		if x == 0 {
			continue
		}

		for j := bits.TrailingZeros64(x); j < bits.Len64(x); j++ {
			if (x & (1 << j)) == 0 {
				continue
			}

			if !f(s.base + K(i*64+j)) {
				return
			}
		}
	}
}

func (s Bits[K]) TlogAppend(b []byte) []byte {
	var e tlwire.LowEncoder

	if s.b == nil {
		return e.AppendNil(b)
	}

	b = e.AppendTag(b, tlwire.Array, -1)

	s.Range(func(k K) bool {
		b = e.AppendInt(b, int(k))

		return true
	})

	b = e.AppendBreak(b)

	return b
}

func (s *Bits[K]) ij(k K) (i, j int) {
	p := int(k - s.base)

	return p / 64, p % 64
}

func (s *Bits[K]) grow(i int) {
	if s.b == nil {
		s.b = s.b0[:]
	}

	for i >= cap(s.b) {
		s.b = append(s.b[:cap(s.b)], 0)
	}

	s.b = s.b[:cap(s.b)]
}
