// Package trace renders pipeline cycle records as the per-cycle text
// trace of a Y86 run.
//
// Each cycle is written as a "Cycle_N" header and a dashed rule followed
// by one section per pipeline register:
//
//	Cycle_0
//	--------------------
//	FETCH:
//		F_predPC 	= 0x0
//
//	DECODE:
//		D_icode  	= 0x0
//		...
//
// Unsigned fields (icodes, register ids, addresses predicted by fetch) are
// printed as minimal lowercase hex. Signed 32-bit values are printed as
// eight zero-padded hex digits of their two's complement.
package trace

import (
	"bufio"
	"fmt"
	"io"

	"github.com/sarchlab/y86sim/timing/pipeline"
)

// Field is one named value of a section.
type Field struct {
	Name  string
	Value string
}

// Section is one pipeline register rendered as text.
type Section struct {
	Title  string
	Fields []Field
}

// Hex formats v as "0x" followed by minimal lowercase hex digits.
// Negative values are folded to their 32-bit two's complement.
func Hex(v int64) string {
	if v < 0 {
		v &= 0xffffffff
	}
	return fmt.Sprintf("0x%x", v)
}

// SignedHex formats a signed 32-bit value as "0x" followed by eight
// zero-padded lowercase hex digits.
func SignedHex(v int32) string {
	return fmt.Sprintf("0x%08x", uint32(v))
}

// Bool formats a flag as 0x1 or 0x0.
func Bool(b bool) string {
	if b {
		return "0x1"
	}
	return "0x0"
}

// Sections returns the five register sections of a cycle record, in
// fetch to writeback order.
func Sections(rec pipeline.CycleRecord) []Section {
	f, d, e, m, w := rec.F, rec.D, rec.E, rec.M, rec.W

	return []Section{
		{Title: "FETCH", Fields: []Field{
			{"F_stat", f.Stat.String()},
			{"F_predPC", Hex(int64(f.PredPC))},
		}},
		{Title: "DECODE", Fields: []Field{
			{"D_stat", d.Stat.String()},
			{"D_icode", Hex(int64(d.Icode))},
			{"D_ifun", Hex(int64(d.Ifun))},
			{"D_rA", Hex(int64(d.RA))},
			{"D_rB", Hex(int64(d.RB))},
			{"D_valC", SignedHex(d.ValC)},
			{"D_valP", SignedHex(d.ValP)},
		}},
		{Title: "EXECUTE", Fields: []Field{
			{"E_stat", e.Stat.String()},
			{"E_icode", Hex(int64(e.Icode))},
			{"E_ifun", Hex(int64(e.Ifun))},
			{"E_valC", SignedHex(e.ValC)},
			{"E_valA", SignedHex(e.ValA)},
			{"E_valB", SignedHex(e.ValB)},
			{"E_dstE", Hex(int64(e.DstE))},
			{"E_dstM", Hex(int64(e.DstM))},
			{"E_srcA", Hex(int64(e.SrcA))},
			{"E_srcB", Hex(int64(e.SrcB))},
		}},
		{Title: "MEMORY", Fields: []Field{
			{"M_stat", m.Stat.String()},
			{"M_icode", Hex(int64(m.Icode))},
			{"M_Bch", Bool(m.Cnd)},
			{"M_valE", SignedHex(m.ValE)},
			{"M_valA", SignedHex(m.ValA)},
			{"M_dstE", Hex(int64(m.DstE))},
			{"M_dstM", Hex(int64(m.DstM))},
		}},
		{Title: "WRITE BACK", Fields: []Field{
			{"W_stat", w.Stat.String()},
			{"W_icode", Hex(int64(w.Icode))},
			{"W_valE", SignedHex(w.ValE)},
			{"W_valM", SignedHex(w.ValM)},
			{"W_dstE", Hex(int64(w.DstE))},
			{"W_dstM", Hex(int64(w.DstM))},
		}},
	}
}

// Writer writes cycle records as trace text.
type Writer struct {
	w *bufio.Writer
}

// NewWriter creates a trace writer on top of w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// WriteCycle writes one cycle record.
func (tw *Writer) WriteCycle(rec pipeline.CycleRecord) error {
	if _, err := fmt.Fprintf(tw.w, "Cycle_%d\n--------------------\n", rec.Cycle); err != nil {
		return err
	}

	for _, s := range Sections(rec) {
		if _, err := fmt.Fprintf(tw.w, "%s:\n", s.Title); err != nil {
			return err
		}
		for _, f := range s.Fields {
			if _, err := fmt.Fprintf(tw.w, "\t%-9s\t= %s\n", f.Name, f.Value); err != nil {
				return err
			}
		}
		if err := tw.w.WriteByte('\n'); err != nil {
			return err
		}
	}

	return nil
}

// WriteLog writes every record of a cycle log and flushes the output.
func (tw *Writer) WriteLog(log []pipeline.CycleRecord) error {
	for _, rec := range log {
		if err := tw.WriteCycle(rec); err != nil {
			return fmt.Errorf("writing cycle %d: %w", rec.Cycle, err)
		}
	}
	return tw.Flush()
}

// Flush writes any buffered text to the underlying writer.
func (tw *Writer) Flush() error {
	return tw.w.Flush()
}
