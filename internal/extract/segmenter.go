package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ppiankov/qbank/internal/model"
	"github.com/ppiankov/qbank/internal/rules"
)

// State is a state of the segmentation automaton
type State int

const (
	StateSeekingID State = iota
	StateSeekingMetadata
	StateAccumulatingBody
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateSeekingID:
		return "seeking_id"
	case StateSeekingMetadata:
		return "seeking_metadata"
	case StateAccumulatingBody:
		return "accumulating_body"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

var (
	identifierPattern = regexp.MustCompile(`(?:^|/)questoes/(\d+)\b`)
	bodyStartPattern  = regexp.MustCompile(`^(\d+)\)\s*(.*)$`)
	answerKeyPattern  = regexp.MustCompile(`(?i)^gabarito\s*:\s*(.*)$`)
)

// ParseIdentifier extracts the question identifier from a URL-bearing line
func ParseIdentifier(line string) (string, bool) {
	m := identifierPattern.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func parseAnswerKey(line string) (string, bool) {
	m := answerKeyPattern.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	token := strings.Fields(m[1])
	if len(token) == 0 {
		return "", true
	}
	return token[0], true
}

// Segmenter turns the flat line stream of an exported notebook into
// question records. Each record opens at an identifier line, resolves its
// metadata in a bounded lookahead, then accumulates body lines until the
// next identifier or the end of input.
type Segmenter struct {
	window         int
	fallbackIssuer string
	originTemplate string
	filter         *LineFilter
	issuers        *rules.IssuerMatcher
	table          *rules.Table
	splitters      map[string]*Splitter
}

// NewSegmenter creates a segmenter over a rule table
func NewSegmenter(cfg model.SegmenterConfig, table *rules.Table) *Segmenter {
	window := cfg.LookaheadWindow
	if window <= 0 {
		window = 5
	}

	s := &Segmenter{
		window:         window,
		fallbackIssuer: cfg.FallbackIssuer,
		originTemplate: cfg.OriginTemplate,
		filter:         NewLineFilter(cfg),
		issuers:        rules.NewIssuerMatcher(table.Issuers),
		table:          table,
		splitters:      make(map[string]*Splitter, len(table.Sets)),
	}
	for key, rs := range table.Sets {
		s.splitters[key] = NewSplitter(rs, table.EchoPattern())
	}
	return s
}

// Splitter returns the splitter of a rule set, or of the default set when
// rs is nil
func (s *Segmenter) Splitter(rs *rules.RuleSet) *Splitter {
	if rs == nil {
		rs = s.table.DefaultSet()
	}
	return s.splitters[rs.Key]
}

// Segment filters the raw lines of one document and splits them into
// records. When set is nil each record's rule set is resolved from its
// subject, falling back to the table default.
func (s *Segmenter) Segment(raw []string, set *rules.RuleSet) []model.QuestionRecord {
	sc := &scan{
		seg:   s,
		set:   set,
		lines: s.filter.Apply(raw),
		state: StateSeekingID,
	}

	for i := 0; i < len(sc.lines); {
		i = sc.step(i)
	}
	sc.close()
	sc.state = StateClosed

	return sc.out
}

// scan is the mutable state of one Segment call
type scan struct {
	seg   *Segmenter
	set   *rules.RuleSet
	lines []string
	state State
	rec   *model.QuestionRecord
	body  []string
	out   []model.QuestionRecord
}

// step consumes the line at i and returns the index of the next line
func (sc *scan) step(i int) int {
	line := sc.lines[i]

	if id, ok := ParseIdentifier(line); ok {
		if sc.rec != nil && sc.rec.ExternalID == id {
			return i + 1
		}
		sc.close()
		sc.open(id)
		return sc.lookahead(i)
	}

	if sc.state == StateAccumulatingBody {
		if key, ok := parseAnswerKey(line); ok {
			sc.rec.RawAnswerKey = key
		} else {
			sc.body = append(sc.body, line)
		}
	}
	return i + 1
}

func (sc *scan) open(id string) {
	sc.rec = &model.QuestionRecord{
		ExternalID: id,
		OriginLink: model.OriginLink(sc.seg.originTemplate, id),
		Provenance: model.ProvenancePDF,
	}
	sc.body = nil
	sc.state = StateSeekingMetadata
}

// lookahead scans up to window lines after the identifier at i for the
// issuer, the subject/topic line and the body-start ordinal. It returns the
// index where body accumulation resumes.
func (sc *scan) lookahead(i int) int {
	var leftover []string
	next := i + 1

	for offset := 1; offset <= sc.seg.window && i+offset < len(sc.lines); offset++ {
		j := i + offset
		line := sc.lines[j]
		next = j + 1

		if line == "" {
			continue
		}
		if _, ok := ParseIdentifier(line); ok {
			next = j
			break
		}
		if _, ok := parseAnswerKey(line); ok {
			next = j
			break
		}

		if m := bodyStartPattern.FindStringSubmatch(line); m != nil {
			sc.rec.SequenceNumber, _ = strconv.Atoi(m[1])
			if rest := strings.TrimSpace(m[2]); rest != "" {
				sc.body = append(sc.body, rest)
			}
			sc.state = StateAccumulatingBody
			return j + 1
		}

		if sc.rec.BankOrAgency == "" && sc.seg.issuers.Match(line) {
			sc.rec.BankOrAgency = line
			continue
		}
		if sc.rec.Subject == "" && strings.Contains(line, " - ") {
			parts := strings.SplitN(line, " - ", 2)
			sc.rec.Subject = strings.TrimSpace(parts[0])
			sc.rec.Topic = strings.TrimSpace(parts[1])
			continue
		}
		leftover = append(leftover, line)
	}

	// No body-start marker: lines that were not metadata open the body
	sc.body = append(sc.body, leftover...)
	sc.state = StateAccumulatingBody
	return next
}

// close finalizes the open record, splitting its body
func (sc *scan) close() {
	if sc.rec == nil {
		return
	}
	rec := *sc.rec

	if rec.Subject == "" && sc.set != nil {
		rec.Subject = sc.set.Subject
	}
	if rec.BankOrAgency == "" {
		rec.BankOrAgency = sc.seg.fallbackIssuer
		rec.Tag(model.StatusMissingIssuer)
	}

	set := sc.set
	if set == nil {
		set = sc.seg.table.Lookup(rec.Subject)
	}
	if set == nil {
		set = sc.seg.table.DefaultSet()
	}

	body := strings.Join(sc.body, "\n")
	split := sc.seg.splitters[set.Key].Split(body)
	rec.Context = split.Context
	rec.Assertion = split.Assertion
	rec.Trigger = split.Trigger
	if !split.Separable {
		rec.Tag(model.StatusNotSeparable)
	}
	rec.MaybeImage = set.MentionsImage(body)

	sc.out = append(sc.out, rec)
	sc.rec = nil
	sc.body = nil
}
