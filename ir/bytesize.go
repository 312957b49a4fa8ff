package ir

// ByteSize is an unsigned number of bytes.
//
// It is used for sizes of values in registers or in memory.
// It can also be used for other byte-valued numbers, like offsets,
// as long as the number is guaranteed to be non-negative.
type ByteSize uint64

// DatatypeProperties hold the sizes of the C data types
// on the platform of the analyzed binary.
// There is one instance per Project and it is immutable after construction.
type DatatypeProperties struct {
	CharSize       ByteSize `json:"char_size"`
	DoubleSize     ByteSize `json:"double_size"`
	FloatSize      ByteSize `json:"float_size"`
	IntegerSize    ByteSize `json:"integer_size"`
	LongDoubleSize ByteSize `json:"long_double_size"`
	LongLongSize   ByteSize `json:"long_long_size"`
	LongSize       ByteSize `json:"long_size"`
	PointerSize    ByteSize `json:"pointer_size"`
	ShortSize      ByteSize `json:"short_size"`
}

// Bits is the equivalent size in bits.
func (s ByteSize) Bits() uint64 {
	return uint64(s) * 8
}

// SizeFromBits converts a bit width to bytes, always rounding up to the
// nearest full byte. A register narrower than a byte still occupies
// a full byte of storage in the model.
func SizeFromBits(bits uint64) ByteSize {
	return ByteSize((bits + 7) / 8)
}
