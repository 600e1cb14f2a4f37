package emu

import (
	"encoding/hex"
	"fmt"
	"sort"
)

// Image is the immutable initial program store.
type Image struct {
	data []byte
}

// NewImage creates an image holding a copy of data.
func NewImage(data []byte) *Image {
	img := &Image{data: make([]byte, len(data))}
	copy(img.data, data)
	return img
}

// ParseImage builds an image from a hexadecimal digit sequence, two digits
// per byte.
func ParseImage(digits string) (*Image, error) {
	if len(digits)%2 != 0 {
		return nil, fmt.Errorf("odd number of hex digits in memory image: %d", len(digits))
	}

	data, err := hex.DecodeString(digits)
	if err != nil {
		return nil, fmt.Errorf("failed to parse memory image: %w", err)
	}

	return &Image{data: data}, nil
}

// Len returns the number of bytes in the image.
func (m *Image) Len() int {
	return len(m.data)
}

// Byte returns the byte at addr, or false if addr is outside the image.
func (m *Image) Byte(addr int32) (byte, bool) {
	if addr < 0 || int(addr) >= len(m.data) {
		return 0, false
	}
	return m.data[addr], true
}

// Word returns the little-endian signed 32-bit word at addr, or false if
// any of its four bytes is outside the image.
func (m *Image) Word(addr int32) (int32, bool) {
	if addr < 0 || int(addr)+4 > len(m.data) {
		return 0, false
	}

	var word uint32
	for i := 0; i < 4; i++ {
		word |= uint32(m.data[int(addr)+i]) << (8 * i)
	}
	return int32(word), true
}

// Bytes returns a copy of the image contents.
func (m *Image) Bytes() []byte {
	out := make([]byte, len(m.data))
	copy(out, m.data)
	return out
}

// String returns the image as lowercase hex digits.
func (m *Image) String() string {
	return hex.EncodeToString(m.data)
}

// Memory is the writable data memory.
//
// Words are stored per byte address and populated lazily. A read of an
// address that has never been written pulls the word from the image and
// puts the address in the read set. A write to an address in the read set,
// or to a negative address, is rejected.
type Memory struct {
	image   *Image
	words   map[int32]int32
	readSet map[int32]struct{}
}

// NewMemory creates a data memory backed by image.
func NewMemory(image *Image) *Memory {
	if image == nil {
		image = NewImage(nil)
	}
	return &Memory{
		image:   image,
		words:   make(map[int32]int32),
		readSet: make(map[int32]struct{}),
	}
}

// Image returns the backing program image.
func (m *Memory) Image() *Image {
	return m.image
}

// Read returns the word at addr. It returns false if the word is neither
// written nor fully inside the image.
func (m *Memory) Read(addr int32) (int32, bool) {
	if value, ok := m.words[addr]; ok {
		return value, true
	}

	value, ok := m.image.Word(addr)
	if !ok {
		return 0, false
	}

	m.words[addr] = value
	m.readSet[addr] = struct{}{}
	return value, true
}

// Write stores value at addr. It returns false if the address is negative
// or has already been read from the image.
func (m *Memory) Write(addr int32, value int32) bool {
	if addr < 0 {
		return false
	}
	if _, protected := m.readSet[addr]; protected {
		return false
	}

	m.words[addr] = value
	return true
}

// WasRead reports whether addr is in the read set.
func (m *Memory) WasRead(addr int32) bool {
	_, ok := m.readSet[addr]
	return ok
}

// ReadSet returns the read-protected addresses in ascending order.
func (m *Memory) ReadSet() []int32 {
	addrs := make([]int32, 0, len(m.readSet))
	for addr := range m.readSet {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	return addrs
}

// Words returns a copy of every populated word.
func (m *Memory) Words() map[int32]int32 {
	out := make(map[int32]int32, len(m.words))
	for addr, value := range m.words {
		out[addr] = value
	}
	return out
}

// Reset clears the written words and the read set. The image is kept.
func (m *Memory) Reset() {
	m.words = make(map[int32]int32)
	m.readSet = make(map[int32]struct{})
}
