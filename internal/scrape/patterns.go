// Package scrape walks the source site hierarchy and turns institution
// pages into catalog records.
package scrape

import (
	"regexp"
	"strconv"

	"github.com/obscurecore/eduscan/internal/institution"
)

var numberPattern = regexp.MustCompile(`№\s?(\d+)`)

// enrollmentPatterns cover the phrasings seen on detail pages. Every
// matching pattern contributes its first capture to the total; the sum
// is additive across patterns, not first-match-wins. Kept for output
// compatibility with the historical catalog.
var enrollmentPatterns = []*regexp.Regexp{
	regexp.MustCompile(`Воспитанников[:]?\s*(\d+)`),
	regexp.MustCompile(`Иностранных граждан[:]?\s*(-?\d+)`),
	regexp.MustCompile(`У нас учатся[:]?\s*(\d+)\s*воспитанников`),
	regexp.MustCompile(`У нас учатся[:]?\s*(\d+)\s*обучающихся`),
	regexp.MustCompile(`У нас учатся[:]?\s*(\d+)`),
}

// InstitutionNumber extracts the № value from a short-name line, or the
// no-number sentinel when the line carries none.
func InstitutionNumber(shortName string) string {
	if m := numberPattern.FindStringSubmatch(shortName); m != nil {
		return m[1]
	}
	return institution.NoNumber
}

// StudentCount derives the student total from enrollment text by
// summing the first match of every pattern. A pattern with no match
// contributes zero.
func StudentCount(text string) int {
	total := 0
	for _, p := range enrollmentPatterns {
		m := p.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		total += n
	}
	return total
}
