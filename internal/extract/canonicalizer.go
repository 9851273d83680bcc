package extract

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
	"github.com/ppiankov/qbank/internal/model"
	"github.com/ppiankov/qbank/internal/util"
	"golang.org/x/net/html"
)

// ErrUncapturable is returned when a fragment has no content container
var ErrUncapturable = errors.New("uncapturable: no content container")

// ErrNoIdentifier is returned when a fragment carries no question identifier
var ErrNoIdentifier = errors.New("no question identifier in fragment")

// allowedTags is the set of tags that survive canonicalization; others are unwrapped
var allowedTags = map[string]bool{
	"p": true, "b": true, "strong": true, "i": true, "em": true, "u": true,
	"ul": true, "ol": true, "li": true, "br": true, "img": true, "a": true,
	"table": true, "tr": true, "td": true, "th": true, "tbody": true, "thead": true,
	"span": true, "div": true, "article": true, "h1": true, "h2": true, "h3": true,
	"code": true, "pre": true, "blockquote": true,
}

// removedTags are dropped together with their subtree
var removedTags = map[string]bool{
	"script": true, "style": true, "button": true, "input": true,
	"form": true, "noscript": true, "iframe": true,
}

// allowedAttrs lists the attributes kept per tag
var allowedAttrs = map[string][]string{
	"img":   {"src", "alt", "width", "height"},
	"a":     {"href", "target"},
	"table": {"style"},
	"td":    {"style"},
	"th":    {"style"},
	"div":   {"style"},
	"span":  {"style"},
	"p":     {"style"},
}

var (
	interTagSpace = regexp.MustCompile(`>\s+<`)
	digitsOnly    = regexp.MustCompile(`^\d+$`)
	trailingSpace = regexp.MustCompile(`[ \t]+\n`)
)

// Canonical is the canonical form of one captured question fragment
type Canonical struct {
	ExternalID string `json:"external_id,omitempty"`
	Subject    string `json:"subject,omitempty"`
	Topic      string `json:"topic,omitempty"`
	HTML       string `json:"html"` // Sanitized content HTML
	Text       string `json:"text"` // Markdown rendering of HTML
	HasImage   bool   `json:"has_image"`
	ImageURL   string `json:"image_url,omitempty"`
	HasMath    bool   `json:"has_math"`
}

// Canonicalizer reduces a captured question page to a minimal, safe,
// whitelisted HTML fragment and detects images and math on the way.
type Canonicalizer struct {
	containers    []string
	decorative    []string
	origin        string
	ignoredImages []string
	policy        *bluemonday.Policy
	md            *converter.Converter
}

// NewCanonicalizer creates a canonicalizer
func NewCanonicalizer(cfg model.CanonicalizerConfig) *Canonicalizer {
	return &Canonicalizer{
		containers:    cfg.Containers,
		decorative:    cfg.DecorativeClasses,
		origin:        strings.TrimRight(cfg.ImageOrigin, "/"),
		ignoredImages: cfg.IgnoredImages,
		policy:        newPolicy(),
		md: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
			converter.WithEscapeMode(converter.EscapeModeDisabled),
		),
	}
}

// newPolicy mirrors the tag and attribute allow-lists as a final safety net
func newPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	for tag := range allowedTags {
		p.AllowElements(tag)
	}
	p.AllowAttrs("src", "alt", "width", "height").OnElements("img")
	p.AllowAttrs("href", "target").OnElements("a")
	p.AllowStyles("text-align", "width", "height", "border", "padding", "margin",
		"font-weight", "font-style", "text-decoration", "vertical-align").
		OnElements("table", "td", "th", "div", "span", "p")
	p.AllowURLSchemes("http", "https", "data")
	p.AllowRelativeURLs(true)
	p.RequireParseableURLs(true)
	return p
}

// Canonicalize parses a fragment and returns its canonical form. It returns
// ErrUncapturable, wrapped, when no configured container is present; the
// identifier and metadata are still filled in when they can be read.
func (c *Canonicalizer) Canonicalize(fragment string) (*Canonical, error) {
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return nil, fmt.Errorf("parse fragment: %w", err)
	}

	out := &Canonical{}
	out.ExternalID, out.Subject, out.Topic = identify(doc)

	container := c.findContainer(doc)
	if container == nil {
		return out, fmt.Errorf("canonicalize %q: %w", out.ExternalID, ErrUncapturable)
	}

	w := &walk{c: c, out: out}
	w.process(container)

	var buf bytes.Buffer
	for _, child := range children(container) {
		if err := html.Render(&buf, child); err != nil {
			return nil, fmt.Errorf("render fragment: %w", err)
		}
	}

	cleaned := c.policy.Sanitize(buf.String())
	out.HTML = strings.TrimSpace(interTagSpace.ReplaceAllString(cleaned, "><"))

	text, err := c.markdown(out.HTML)
	if err != nil {
		return nil, fmt.Errorf("convert fragment to markdown: %w", err)
	}
	out.Text = text

	return out, nil
}

// markdown renders sanitized HTML as text. Pipe tables are text nodes the
// converter would fold onto one line, so each run of pipe rows is swapped
// for a placeholder and put back once the conversion is done.
func (c *Canonicalizer) markdown(fragment string) (string, error) {
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return "", err
	}

	var tables []string
	for _, n := range FindAll(doc, func(n *html.Node) bool {
		return n.Type == html.TextNode && strings.Contains(n.Data, "|")
	}) {
		n.Data = liftTables(n.Data, &tables)
	}

	raw, err := c.md.ConvertNode(doc, converter.WithDomain(c.origin))
	if err != nil {
		return "", err
	}

	text := string(raw)
	for i, t := range tables {
		text = strings.Replace(text, tablePlaceholder(i), "\n\n"+t+"\n\n", 1)
	}
	return util.CollapseBlankLines(trailingSpace.ReplaceAllString(text, "\n")), nil
}

// liftTables replaces every run of pipe rows in s with a placeholder and
// appends the run to tables
func liftTables(s string, tables *[]string) string {
	var out, run []string
	flush := func() {
		if len(run) == 0 {
			return
		}
		out = append(out, " "+tablePlaceholder(len(*tables))+" ")
		*tables = append(*tables, strings.Join(run, "\n"))
		run = nil
	}

	for _, line := range strings.Split(s, "\n") {
		row := strings.TrimSpace(line)
		if len(row) > 1 && strings.HasPrefix(row, "|") && strings.HasSuffix(row, "|") {
			run = append(run, row)
			continue
		}
		flush()
		out = append(out, line)
	}
	flush()
	return strings.Join(out, "\n")
}

func tablePlaceholder(i int) string {
	return fmt.Sprintf("QBANKTABLE%dEND", i)
}

// Identify reads the question identifier, subject and topic of a page
// without canonicalizing it. It returns ErrNoIdentifier when the page has no
// identifier yet, which is how a capture session detects an unready page.
func (c *Canonicalizer) Identify(fragment string) (id, subject, topic string, err error) {
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return "", "", "", fmt.Errorf("parse fragment: %w", err)
	}
	id, subject, topic = identify(doc)
	if id == "" {
		return "", subject, topic, ErrNoIdentifier
	}
	return id, subject, topic, nil
}

func (c *Canonicalizer) findContainer(doc *html.Node) *html.Node {
	for _, class := range c.containers {
		if n := FindFirst(doc, withClass(class)); n != nil {
			return n
		}
	}
	return nil
}

// identify extracts the identifier, subject and topic from page metadata
func identify(doc *html.Node) (id, subject, topic string) {
	if n := FindFirst(doc, withClass("id-questao")); n != nil {
		id = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(ExtractText(n)), "#"))
		if !digitsOnly.MatchString(id) {
			id = ""
		}
	}
	if id == "" {
		link := FindFirst(doc, func(n *html.Node) bool {
			if !isElement("a")(n) {
				return false
			}
			_, ok := ParseIdentifier(GetAttribute(n, "href"))
			return ok
		})
		if link != nil {
			id, _ = ParseIdentifier(GetAttribute(link, "href"))
		}
	}

	if n := FindFirst(doc, withClass("questao-cabecalho-informacoes-materia")); n != nil {
		if a := FindFirst(n, isElement("a")); a != nil {
			subject = ExtractText(a)
		} else {
			subject = ExtractText(n)
		}
	}
	if n := FindFirst(doc, withClass("questao-cabecalho-informacoes-assunto-link")); n != nil {
		topic = ExtractText(n)
	}
	return id, subject, topic
}

// walk holds the state of one canonicalization pass
type walk struct {
	c   *Canonicalizer
	out *Canonical
}

// process rewrites the subtree under n in place, children first
func (w *walk) process(n *html.Node) {
	for _, child := range children(n) {
		if child.Type == html.CommentNode {
			n.RemoveChild(child)
			continue
		}
		if child.Type != html.ElementNode {
			continue
		}

		switch {
		case child.Data == "script" && isMathScript(child):
			w.out.HasMath = true
			replaceWithText(child, " $$"+strings.TrimSpace(ExtractText(child))+"$$ ")
			continue
		case removedTags[child.Data] || w.isDecorative(child):
			n.RemoveChild(child)
			continue
		case child.Data == "table":
			w.process(child)
			replaceWithText(child, tableToPipes(child))
			continue
		case child.Data == "img":
			w.rewriteImage(child)
		}

		w.process(child)

		if child.Data == "p" && isEmptyParagraph(child) {
			n.RemoveChild(child)
			continue
		}
		if child.Data == "article" {
			child.Data = "div"
		}
		stripAttributes(child)
		if !allowedTags[child.Data] {
			unwrap(child)
		}
	}
}

func (w *walk) isDecorative(n *html.Node) bool {
	for _, class := range w.c.decorative {
		if HasClass(n, class) {
			return true
		}
	}
	return false
}

// rewriteImage makes root-relative sources absolute and records the first
// content image
func (w *walk) rewriteImage(n *html.Node) {
	src := GetAttribute(n, "src")
	if ng := GetAttribute(n, "ng-src"); ng != "" && (src == "" || strings.HasPrefix(ng, "/")) {
		src = ng
	}
	if strings.HasPrefix(src, "/") && !strings.HasPrefix(src, "//") {
		src = w.c.origin + src
	}
	if src == "" {
		return
	}
	setAttribute(n, "src", src)

	lower := strings.ToLower(src)
	for _, ignored := range w.c.ignoredImages {
		if ignored != "" && strings.Contains(lower, ignored) {
			return
		}
	}
	if !w.out.HasImage {
		w.out.HasImage = true
		w.out.ImageURL = src
	}
}

func isMathScript(n *html.Node) bool {
	return strings.HasPrefix(strings.ToLower(GetAttribute(n, "type")), "math/tex")
}

func isEmptyParagraph(n *html.Node) bool {
	if FindFirst(n, isElement("img")) != nil {
		return false
	}
	return strings.TrimSpace(strings.ReplaceAll(ExtractText(n), " ", "")) == ""
}

func stripAttributes(n *html.Node) {
	keep := allowedAttrs[n.Data]
	var attrs []html.Attribute
	for _, a := range n.Attr {
		for _, k := range keep {
			if a.Key == k && a.Namespace == "" {
				attrs = append(attrs, a)
				break
			}
		}
	}
	n.Attr = attrs
}

// tableToPipes renders a table as pipe-delimited rows with a header
// separator after the first row, sized to the first row's column count
func tableToPipes(t *html.Node) string {
	var b strings.Builder
	b.WriteString("\n\n")

	header := true
	for _, row := range FindAll(t, isElement("tr")) {
		var cells []string
		for _, cell := range FindAll(row, func(n *html.Node) bool {
			return n.Type == html.ElementNode && (n.Data == "td" || n.Data == "th") && n.Parent == row
		}) {
			text := strings.Join(strings.Fields(ExtractText(cell)), " ")
			cells = append(cells, strings.ReplaceAll(text, "|", `\|`))
		}
		if len(cells) == 0 {
			continue
		}

		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
		if header {
			b.WriteString("|" + strings.Repeat(" --- |", len(cells)) + "\n")
			header = false
		}
	}

	b.WriteString("\n")
	return b.String()
}
