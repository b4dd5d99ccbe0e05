package commons

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const referenceTimeLayout = "20060102150405"

const referenceSuffixLength = 8

// IDGenerator builds identifiers of the form PREFIX + yyyyMMddHHmmss + random
// hex suffix. Uniqueness is probabilistic; storage constraints are the backstop.
type IDGenerator struct {
	now    func() time.Time
	suffix func() string
}

func NewIDGenerator() *IDGenerator {
	return &IDGenerator{
		now:    time.Now,
		suffix: randomHexSuffix,
	}
}

// NewIDGeneratorWith is NewIDGenerator with an injected clock and suffix source.
func NewIDGeneratorWith(now func() time.Time, suffix func() string) *IDGenerator {
	g := NewIDGenerator()
	if now != nil {
		g.now = now
	}
	if suffix != nil {
		g.suffix = suffix
	}
	return g
}

func (g *IDGenerator) Next(prefix string) string {
	var b strings.Builder
	b.Grow(len(prefix) + len(referenceTimeLayout) + referenceSuffixLength)
	b.WriteString(strings.ToUpper(strings.TrimSpace(prefix)))
	b.WriteString(g.now().UTC().Format(referenceTimeLayout))
	b.WriteString(g.suffix())
	return b.String()
}

func randomHexSuffix() string {
	id := uuid.New()
	return strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:referenceSuffixLength])
}
