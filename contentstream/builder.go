package contentstream

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
)

// Build serializes operations back into content-stream syntax, in the
// given order.
//
// State re-injection: within each BT block the builder tracks whether a
// font-selection operator has survived. If the first surviving show-text
// operation in a block lost its Tf (because the operation carrying it was
// removed), a Tf is synthesized from the operation's captured snapshot.
// Operations marked Synthesized are additionally positioned with an
// explicit Tm from their snapshot; since the Tm operator also replaces
// the text line matrix, the captured line matrix is re-established right
// after the span so later relative positioning (Td, TD, T*) in the same
// block keeps its original origin.
func Build(ops []Operation) ([]byte, error) {
	var buf bytes.Buffer
	fontSeen := false
	for i := range ops {
		op := &ops[i]
		switch op.Kind {
		case OpBeginText:
			fontSeen = false
		case OpSetFont:
			fontSeen = true
		}
		if op.Kind.IsShowText() {
			if op.Text == nil && op.Synthesized {
				return nil, &BuildError{Index: i, Msg: "synthesized operation without text snapshot"}
			}
			if !fontSeen && op.Text != nil && op.Text.FontName != "" {
				writeOperand(&buf, NameOperand{Value: op.Text.FontName})
				buf.WriteByte(' ')
				buf.WriteString(formatNumber(op.Text.FontSize))
				buf.WriteString(" Tf\n")
				fontSeen = true
			}
			if op.Synthesized {
				writeMatrix(&buf, op.Text.Tm, "Tm")
			}
		}
		if op.Raw != nil {
			buf.Write(op.Raw)
			buf.WriteByte('\n')
			continue
		}
		for _, operand := range op.Operands {
			writeOperand(&buf, operand)
			buf.WriteByte(' ')
		}
		if op.Operator == "" {
			return nil, &BuildError{Index: i, Msg: "operation without operator"}
		}
		buf.WriteString(op.Operator)
		buf.WriteByte('\n')
		if op.Synthesized && op.Kind.IsShowText() {
			writeMatrix(&buf, op.Text.Tlm, "Tm")
		}
	}
	return buf.Bytes(), nil
}

func writeMatrix(buf *bytes.Buffer, m [6]float64, operator string) {
	for _, v := range m {
		buf.WriteString(formatNumber(v))
		buf.WriteByte(' ')
	}
	buf.WriteString(operator)
	buf.WriteByte('\n')
}

// formatNumber emits a numeric value at bounded decimal precision.
func formatNumber(v float64) string {
	r := math.Round(v*10000) / 10000
	if r == math.Trunc(r) && math.Abs(r) < 1e15 {
		return strconv.FormatInt(int64(r), 10)
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}

func writeOperand(buf *bytes.Buffer, op Operand) {
	switch v := op.(type) {
	case NumberOperand:
		buf.WriteString(formatNumber(v.Value))
	case NameOperand:
		writeName(buf, v.Value)
	case StringOperand:
		writeString(buf, v.Value)
	case KeywordOperand:
		buf.WriteString(v.Value)
	case ArrayOperand:
		buf.WriteByte('[')
		for i, e := range v.Values {
			if i > 0 {
				buf.WriteByte(' ')
			}
			writeOperand(buf, e)
		}
		buf.WriteByte(']')
	case DictOperand:
		buf.WriteString("<<")
		for _, k := range v.Keys {
			buf.WriteByte(' ')
			writeName(buf, k)
			buf.WriteByte(' ')
			writeOperand(buf, v.Values[k])
		}
		buf.WriteString(" >>")
	}
}

func writeName(buf *bytes.Buffer, name string) {
	buf.WriteByte('/')
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c <= 0x20 || c >= 0x7f || c == '#' || isDelimiter(c) {
			fmt.Fprintf(buf, "#%02X", c)
			continue
		}
		buf.WriteByte(c)
	}
}

func writeString(buf *bytes.Buffer, s []byte) {
	buf.WriteByte('(')
	for _, c := range s {
		switch c {
		case '(', ')', '\\':
			buf.WriteByte('\\')
			buf.WriteByte(c)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		default:
			if c < 0x20 || c >= 0x7f {
				fmt.Fprintf(buf, "\\%03o", c)
			} else {
				buf.WriteByte(c)
			}
		}
	}
	buf.WriteByte(')')
}
