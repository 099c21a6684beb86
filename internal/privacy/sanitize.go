package privacy

import (
	"regexp"
	"strings"

	"github.com/mohammad-safakhou/safequery/models"
)

// Replacement tokens are chosen so that re-sanitizing already sanitized
// text is a no-op.
const (
	EmailToken = "[EMAIL]"
	PhoneToken = "[PHONE]"
)

var (
	reEmail    = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	rePhone    = regexp.MustCompile(`\b\d{3}[-.]?\d{3}[-.]?\d{4}\b`)
	rePersonal = regexp.MustCompile(`(?i)\b(my|I am|I was|personally)\b`)
	reSpaces   = regexp.MustCompile(`\s+`)
)

// Sanitizer redacts PII patterns from extracted content before storage.
type Sanitizer struct {
	// StripPersonal additionally removes first-person markers to reduce
	// accidental personal-narrative leakage.
	StripPersonal bool
}

// Sanitize returns a copy of doc with PII patterns replaced by fixed
// tokens. Pure and idempotent: Sanitize(Sanitize(d)) == Sanitize(d).
func (s Sanitizer) Sanitize(doc models.Document) models.Document {
	doc.Title = reEmail.ReplaceAllString(doc.Title, EmailToken)
	doc.Title = rePhone.ReplaceAllString(doc.Title, PhoneToken)
	doc.Content = s.text(doc.Content)
	return doc
}

func (s Sanitizer) text(content string) string {
	content = reEmail.ReplaceAllString(content, EmailToken)
	content = rePhone.ReplaceAllString(content, PhoneToken)
	if s.StripPersonal {
		content = rePersonal.ReplaceAllString(content, "")
		content = strings.TrimSpace(reSpaces.ReplaceAllString(content, " "))
	}
	return content
}
