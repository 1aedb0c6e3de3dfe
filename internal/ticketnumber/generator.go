// Package ticketnumber generates human-readable ticket numbers.
package ticketnumber

import (
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	Prefix       = "SD"
	randomLength = 3
	alphabet     = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

var pattern = regexp.MustCompile(`^SD-[A-Z0-9]+-[A-Z0-9]+$`)

// Generator builds SD-<base36 millis>-<base36 random> numbers.
type Generator struct {
	now  func() time.Time
	intn func(n int) int
}

// NewGenerator returns a generator on the wall clock and the global source.
func NewGenerator() *Generator {
	return &Generator{now: time.Now, intn: rand.IntN}
}

// NewGeneratorWith injects the clock and the random source.
func NewGeneratorWith(now func() time.Time, intn func(n int) int) *Generator {
	if now == nil {
		now = time.Now
	}
	if intn == nil {
		intn = rand.IntN
	}
	return &Generator{now: now, intn: intn}
}

// Next returns a fresh candidate. Uniqueness is the caller's concern.
func (g *Generator) Next() string {
	stamp := strings.ToUpper(strconv.FormatInt(g.now().UnixMilli(), 36))
	var suffix strings.Builder
	for i := 0; i < randomLength; i++ {
		suffix.WriteByte(alphabet[g.intn(len(alphabet))])
	}
	return Prefix + "-" + stamp + "-" + suffix.String()
}

// IsValid reports whether number has the ticket number shape.
func IsValid(number string) bool {
	return pattern.MatchString(number)
}
