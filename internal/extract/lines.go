package extract

import (
	"regexp"
	"strings"

	"github.com/ppiankov/qbank/internal/model"
	"github.com/ppiankov/qbank/internal/util"
)

var ordinalOnly = regexp.MustCompile(`^(?:\d+\)\s*)+$`)

// LineFilter prepares raw document lines for segmentation: it repairs the
// encoding, normalizes whitespace and drops page furniture.
type LineFilter struct {
	drop   []string
	repair bool
}

// NewLineFilter creates a line filter from segmenter settings
func NewLineFilter(cfg model.SegmenterConfig) *LineFilter {
	return &LineFilter{drop: cfg.DropLines, repair: cfg.RepairEncoding}
}

// Apply filters lines. Blank lines survive as paragraph breaks, collapsed to
// one, since the splitter's structural fallback depends on them.
func (f *LineFilter) Apply(raw []string) []string {
	out := make([]string, 0, len(raw))
	blank := true
	for _, line := range raw {
		if f.repair {
			line = util.RepairEncoding(line)
		}
		line = util.NormalizeLine(line)

		if line == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		if ordinalOnly.MatchString(line) || f.isFurniture(line) {
			continue
		}
		out = append(out, line)
		blank = false
	}

	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return out
}

func (f *LineFilter) isFurniture(line string) bool {
	for _, d := range f.drop {
		if d != "" && strings.Contains(line, d) {
			return true
		}
	}
	return false
}

// SplitLines splits text into lines, accepting any newline convention
func SplitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}
