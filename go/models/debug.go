package models

import (
	"encoding/hex"
	"fmt"
	"strings"
)

func printable(p []byte) string {
	o := make([]byte, len(p))
	for i, c := range p {
		if c >= 0x20 && c <= 0x7e {
			o[i] = c
		} else {
			o[i] = '.'
		}
	}
	return string(o)
}

// HexDump formats mem as lines of 16 bytes grouped into words of bits/8 bytes,
// each line prefixed with its address and followed by the printable text.
func HexDump(base uint64, mem []byte, bits int) []string {
	wsz := bits / 8
	if wsz <= 0 {
		wsz = 1
	}
	const lineSize = 16
	addrFmt := fmt.Sprintf("%%#0%dx:", wsz*2+2)
	var out []string
	for i := 0; i < len(mem); i += lineSize {
		end := i + lineSize
		if end > len(mem) {
			end = len(mem)
		}
		line := mem[i:end]
		var words []string
		for j := 0; j < lineSize; j += wsz {
			if j >= len(line) {
				words = append(words, strings.Repeat(" ", wsz*2))
				continue
			}
			wend := j + wsz
			if wend > len(line) {
				wend = len(line)
			}
			w := hex.EncodeToString(line[j:wend])
			words = append(words, w+strings.Repeat(" ", wsz*2-len(w)))
		}
		out = append(out, fmt.Sprintf(addrFmt+" %s  [%s]", base+uint64(i), strings.Join(words, " "), printable(line)))
	}
	return out
}
