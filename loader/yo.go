// Package loader provides loading of Y86 object files (.yo) produced by
// the Y86 assembler.
//
// Each line of an object file has the form
//
//	0x014: 30f004000000 | irmovl $4, %eax
//
// The bytes of every line are placed at the line's address. Gaps between
// lines are zero-filled. Text after '|' is assembler source and is
// ignored.
package loader

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/sarchlab/y86sim/emu"
)

var (
	addrRe = regexp.MustCompile(`0x([0-9a-fA-F]+)\s*:`)
	codeRe = regexp.MustCompile(`:\s+([0-9a-fA-F]+)`)
)

// OverlapError reports a line whose address lies below bytes that were
// already placed.
type OverlapError struct {
	// Line is the 1-based line number in the object file.
	Line int
	// Addr is the address given on the line.
	Addr int32
	// End is the first free address when the line was read.
	End int32
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("line %d: address 0x%x overlaps bytes already placed up to 0x%x",
		e.Line, e.Addr, e.End)
}

// Line is one object-file line that carried bytes.
type Line struct {
	// Number is the 1-based line number.
	Number int
	// Addr is the address of the first byte.
	Addr int32
	// Bytes are the encoded bytes of the line.
	Bytes []byte
	// Source is the assembler text after '|', trimmed.
	Source string
}

// Program is a loaded Y86 object file.
type Program struct {
	// Image is the flat memory image of the program.
	Image *emu.Image
	// Lines are the lines that contributed bytes, in file order.
	Lines []Line
}

// Parse reads an object file from r.
func Parse(r io.Reader) (*Program, error) {
	prog := &Program{}
	var data []byte

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++

		text := scanner.Text()
		source := ""
		if i := strings.IndexByte(text, '|'); i >= 0 {
			source = strings.TrimSpace(text[i+1:])
			text = text[:i]
		}

		m := addrRe.FindStringSubmatch(text)
		if m == nil {
			continue
		}

		addr, err := strconv.ParseInt(m[1], 16, 32)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad address %q: %w", lineNo, m[1], err)
		}

		if int(addr) < len(data) {
			return nil, &OverlapError{Line: lineNo, Addr: int32(addr), End: int32(len(data))}
		}

		c := codeRe.FindStringSubmatch(text)
		if c == nil {
			continue
		}

		code, err := hex.DecodeString(c[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: bad code %q: %w", lineNo, c[1], err)
		}

		if gap := int(addr) - len(data); gap > 0 {
			data = append(data, make([]byte, gap)...)
		}
		data = append(data, code...)

		prog.Lines = append(prog.Lines, Line{
			Number: lineNo,
			Addr:   int32(addr),
			Bytes:  code,
			Source: source,
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read object file: %w", err)
	}

	prog.Image = emu.NewImage(data)

	return prog, nil
}

// Load parses the object file at path.
func Load(path string) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open object file: %w", err)
	}
	defer func() { _ = f.Close() }()

	prog, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return prog, nil
}
