// Package pdftext turns exported question notebooks in PDF form into the
// flat line stream the segmenter consumes.
package pdftext

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/text/encoding/charmap"
)

// ExtractLines reads a PDF and returns its text as lines, page by page.
// Pages without a readable content stream are skipped.
func ExtractLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ctx, err := api.ReadValidateAndOptimize(f, model.NewDefaultConfiguration())
	if err != nil {
		return nil, fmt.Errorf("pdfcpu read: %w", err)
	}

	var lines []string
	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		r, err := pdfcpu.ExtractPageContent(ctx, pageNr)
		if err != nil || r == nil {
			continue
		}
		data, err := io.ReadAll(r)
		if err != nil || len(data) == 0 {
			continue
		}
		lines = append(lines, ParseContentStream(data)...)
	}

	if len(lines) == 0 {
		return nil, fmt.Errorf("no text content found in %s", path)
	}
	return lines, nil
}

var (
	// pdfStringPattern matches string literals, allowing escaped parentheses
	pdfStringPattern = regexp.MustCompile(`\(((?:\\.|[^\\)])*)\)`)
	// moveOperands captures the tx ty operands of Td/TD
	moveOperands = regexp.MustCompile(`(-?[\d.]+)\s+(-?[\d.]+)\s+T[dD]$`)
)

// ParseContentStream extracts text lines from a page content stream. It
// follows the show operators (Tj, TJ, ') and breaks lines on T*, ', BT and
// on Td/TD moves with a vertical component.
func ParseContentStream(data []byte) []string {
	var (
		lines   []string
		current strings.Builder
	)
	flush := func() {
		lines = append(lines, strings.TrimRight(current.String(), " "))
		current.Reset()
	}

	for _, raw := range bytes.Split(data, []byte{'\n'}) {
		line := bytes.TrimSpace(raw)
		if len(line) == 0 {
			continue
		}

		switch {
		case bytes.Equal(line, []byte("BT")):
			if current.Len() > 0 {
				flush()
			}
		case bytes.Equal(line, []byte("T*")):
			flush()
		case bytes.HasSuffix(line, []byte("Tj")), bytes.HasSuffix(line, []byte("TJ")):
			writeStrings(&current, line)
		case bytes.HasSuffix(line, []byte("'")) && bytes.Contains(line, []byte("(")):
			flush()
			writeStrings(&current, line)
		case bytes.HasSuffix(line, []byte("Td")), bytes.HasSuffix(line, []byte("TD")):
			m := moveOperands.FindSubmatch(line)
			if m == nil {
				continue
			}
			ty, err := strconv.ParseFloat(string(m[2]), 64)
			if err == nil && ty != 0 {
				if current.Len() > 0 {
					flush()
				}
			} else if current.Len() > 0 {
				current.WriteByte(' ')
			}
		}
	}
	if current.Len() > 0 {
		flush()
	}

	return lines
}

func writeStrings(b *strings.Builder, line []byte) {
	for _, m := range pdfStringPattern.FindAllSubmatch(line, -1) {
		b.WriteString(decodeString(m[1]))
	}
}

// decodeString resolves escape sequences and decodes the WinAnsi bytes of a
// string literal to UTF-8
func decodeString(raw []byte) string {
	var out []byte
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\\' || i+1 >= len(raw) {
			out = append(out, raw[i])
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			out = append(out, '\n')
		case 'r':
			out = append(out, '\r')
		case 't':
			out = append(out, '\t')
		case '\\', '(', ')':
			out = append(out, raw[i])
		default:
			if raw[i] < '0' || raw[i] > '7' {
				out = append(out, raw[i])
				continue
			}
			val := int(raw[i] - '0')
			for k := 0; k < 2 && i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7'; k++ {
				i++
				val = val*8 + int(raw[i]-'0')
			}
			out = append(out, byte(val))
		}
	}

	decoded, err := charmap.Windows1252.NewDecoder().Bytes(out)
	if err != nil {
		return string(out)
	}
	return string(decoded)
}
