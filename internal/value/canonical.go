package value

import (
	"bytes"
	"fmt"
	"strconv"
)

// Canonical renders v as deterministic JSON: object keys sorted
// lexicographically, no insignificant whitespace, integers encoded without
// a decimal point. Two documents with the same content always produce the
// same bytes, which is what makes their blob hash content-addressed.
func Canonical(v Value) []byte {
	var buf bytes.Buffer
	writeCanonical(&buf, v)
	return buf.Bytes()
}

func writeCanonical(buf *bytes.Buffer, v Value) {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		b, _ := v.AsBool()
		if b {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case KindInt:
		i, _ := v.AsInt()
		buf.WriteString(strconv.FormatInt(i, 10))
	case KindFloat:
		f, _ := v.AsFloat()
		buf.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	case KindString:
		s, _ := v.AsString()
		writeJSONString(buf, s)
	case KindList:
		list, _ := v.AsList()
		buf.WriteByte('[')
		for i, elem := range list {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeCanonical(buf, elem)
		}
		buf.WriteByte(']')
	case KindMap:
		buf.WriteByte('{')
		keys := v.SortedKeys()
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeJSONString(buf, k)
			buf.WriteByte(':')
			child, _ := v.Get(k)
			writeCanonical(buf, child)
		}
		buf.WriteByte('}')
	default:
		buf.WriteString("null")
	}
}

// writeJSONString writes s as a quoted, escaped JSON string. It implements
// the minimal escaping set required for valid, byte-stable JSON rather than
// delegating to encoding/json, which would re-introduce non-deterministic
// HTML-escaping behavior (it escapes '<', '>', '&' by default) that would
// make the canonical form depend on encoding/json's settings rather than on
// document content alone.
func writeJSONString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(buf, `\u%04x`, r)
			} else {
				buf.WriteRune(r)
			}
		}
	}
	buf.WriteByte('"')
}
