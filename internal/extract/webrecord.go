package extract

import (
	"regexp"

	"github.com/ppiankov/qbank/internal/model"
	"github.com/ppiankov/qbank/internal/util"
)

// markdownImage matches an inline Markdown image; images travel in the
// record's image fields, not in its text
var markdownImage = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)

// WebRecord builds the web-path record of a canonical fragment, splitting
// its text rendering with the given splitter
func WebRecord(c *Canonical, sp *Splitter, originTemplate string) model.QuestionRecord {
	rec := model.QuestionRecord{
		ExternalID: c.ExternalID,
		OriginLink: model.OriginLink(originTemplate, c.ExternalID),
		Subject:    c.Subject,
		Topic:      c.Topic,
		HasImage:   c.HasImage,
		ImageURL:   c.ImageURL,
		HasMath:    c.HasMath,
		Provenance: model.ProvenanceWeb,
	}

	text := util.CollapseBlankLines(markdownImage.ReplaceAllString(c.Text, ""))
	split := sp.Split(text)
	rec.Context = split.Context
	rec.Assertion = split.Assertion
	rec.Trigger = split.Trigger
	if !split.Separable {
		rec.Tag(model.StatusNotSeparable)
	}
	return rec
}

// UncapturableRecord is the placeholder web record of a page whose content
// container was missing
func UncapturableRecord(c *Canonical, originTemplate string) model.QuestionRecord {
	rec := model.QuestionRecord{
		ExternalID: c.ExternalID,
		OriginLink: model.OriginLink(originTemplate, c.ExternalID),
		Subject:    c.Subject,
		Topic:      c.Topic,
		Provenance: model.ProvenanceWeb,
	}
	rec.Tag(model.StatusUncapturable)
	return rec
}
