package emu

// Memory is a byte-addressable, little-endian, sparsely-backed address
// space. Reads of never-written addresses return 0; there is no notion of
// an access fault, matching spec.md's data memory model.
type Memory struct {
	bytes map[uint32]byte
}

// NewMemory returns an empty memory.
func NewMemory() *Memory {
	return &Memory{bytes: make(map[uint32]byte)}
}

// ReadByte returns the zero-extended byte at addr.
func (m *Memory) ReadByte(addr uint32) uint32 {
	return uint32(m.bytes[addr])
}

// ReadByteSigned returns the sign-extended byte at addr.
func (m *Memory) ReadByteSigned(addr uint32) uint32 {
	return uint32(int32(int8(m.bytes[addr])))
}

// WriteByte stores the low 8 bits of value at addr.
func (m *Memory) WriteByte(addr uint32, value uint32) {
	m.bytes[addr] = byte(value)
}

// ReadHalf returns the zero-extended 16-bit little-endian value at addr.
func (m *Memory) ReadHalf(addr uint32) uint32 {
	lo := uint32(m.bytes[addr])
	hi := uint32(m.bytes[addr+1])
	return lo | hi<<8
}

// ReadHalfSigned returns the sign-extended 16-bit little-endian value at addr.
func (m *Memory) ReadHalfSigned(addr uint32) uint32 {
	return uint32(int32(int16(m.ReadHalf(addr))))
}

// WriteHalf stores the low 16 bits of value little-endian at addr.
func (m *Memory) WriteHalf(addr uint32, value uint32) {
	m.bytes[addr] = byte(value)
	m.bytes[addr+1] = byte(value >> 8)
}

// ReadWord returns the 32-bit little-endian value at addr.
func (m *Memory) ReadWord(addr uint32) uint32 {
	var v uint32
	for i := uint32(0); i < 4; i++ {
		v |= uint32(m.bytes[addr+i]) << (8 * i)
	}
	return v
}

// WriteWord stores value little-endian at addr.
func (m *Memory) WriteWord(addr uint32, value uint32) {
	for i := uint32(0); i < 4; i++ {
		m.bytes[addr+i] = byte(value >> (8 * i))
	}
}

// LoadWidth identifies the access width and sign-extension behavior of a
// load, matching RV32I's LB/LBU/LH/LHU/LW funct3 space.
type LoadWidth int

const (
	WidthByte LoadWidth = iota
	WidthByteUnsigned
	WidthHalf
	WidthHalfUnsigned
	WidthWord
)

// Load reads a value of the given width from addr, applying sign extension
// for the signed widths.
func (m *Memory) Load(addr uint32, width LoadWidth) uint32 {
	switch width {
	case WidthByte:
		return m.ReadByteSigned(addr)
	case WidthByteUnsigned:
		return m.ReadByte(addr)
	case WidthHalf:
		return m.ReadHalfSigned(addr)
	case WidthHalfUnsigned:
		return m.ReadHalf(addr)
	default:
		return m.ReadWord(addr)
	}
}

// StoreWidth identifies the access width of a store, matching RV32I's
// SB/SH/SW funct3 space.
type StoreWidth int

const (
	StoreByte StoreWidth = iota
	StoreHalf
	StoreWord
)

// Store writes the low bits of value, per width, to addr.
func (m *Memory) Store(addr uint32, value uint32, width StoreWidth) {
	switch width {
	case StoreByte:
		m.WriteByte(addr, value)
	case StoreHalf:
		m.WriteHalf(addr, value)
	default:
		m.WriteWord(addr, value)
	}
}
