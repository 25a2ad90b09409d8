package scrape

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/obscurecore/eduscan/internal/institution"
)

// Category labels and the record type each listing resolves to.
const (
	categorySchools   = "Школы"
	categoryPreschool = "Дошкольное образование"

	shortNameLabel  = "Короткое название:"
	enrollmentLabel = "У нас учатся"

	unknownShortName = "Неизвестное учреждение"
)

// listingNumberPattern is the heuristic for number-only listing labels.
var listingNumberPattern = regexp.MustCompile(`\d{1,3}`)

// ExtractDistrictLinks selects anchors whose trimmed text exactly
// matches one of the fixed district names and maps name → absolute
// href. Non-matching anchors are ignored.
func ExtractDistrictLinks(doc *goquery.Document) map[string]string {
	targets := make(map[string]bool, len(institution.Districts))
	for _, d := range institution.Districts {
		targets[d.Name] = true
	}

	links := make(map[string]string)
	doc.Find("a").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if !targets[text] {
			return
		}
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return
		}
		links[text] = absoluteURL(doc, href)
	})
	return links
}

// ExtractCategoryLink finds the first anchor containing a nested span
// whose text includes the category label and returns its absolute
// href, or false if no such anchor exists.
func ExtractCategoryLink(doc *goquery.Document, label string) (string, bool) {
	var found string
	doc.Find("a").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		match := false
		sel.Find("span").EachWithBreak(func(_ int, span *goquery.Selection) bool {
			if strings.Contains(span.Text(), label) {
				match = true
				return false
			}
			return true
		})
		if !match {
			return true
		}
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return true
		}
		found = absoluteURL(doc, href)
		return false
	})
	return found, found != ""
}

// ExtractListingLinks selects anchors whose trimmed text contains the
// type keyword (case-insensitive) or a short numeric run, the
// heuristic for number-only listing labels. Empty hrefs are dropped
// and duplicates removed preserving first-seen order.
func ExtractListingLinks(doc *goquery.Document, keyword string) []string {
	var links []string
	seen := make(map[string]bool)
	lowerKeyword := strings.ToLower(keyword)

	doc.Find("a").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if !strings.Contains(strings.ToLower(text), lowerKeyword) && !listingNumberPattern.MatchString(text) {
			return
		}
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return
		}
		abs := absoluteURL(doc, href)
		if abs == "" || seen[abs] {
			return
		}
		seen[abs] = true
		links = append(links, abs)
	})
	return links
}

// Detail carries the raw text fields read from an institution page.
type Detail struct {
	ShortName  string
	Enrollment string
}

// ExtractDetail locates the first element containing the short-name
// label and the first containing the enrollment label. Each field
// defaults to its placeholder when absent.
func ExtractDetail(doc *goquery.Document) Detail {
	d := Detail{ShortName: unknownShortName}
	if text, ok := firstDivContaining(doc, shortNameLabel); ok {
		d.ShortName = strings.TrimSpace(text)
	}
	if text, ok := firstDivContaining(doc, enrollmentLabel); ok {
		d.Enrollment = text
	}
	return d
}

// firstDivContaining returns the text of the first div, in document
// order, whose combined text contains needle.
func firstDivContaining(doc *goquery.Document, needle string) (string, bool) {
	var text string
	var found bool
	doc.Find("div").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if strings.Contains(sel.Text(), needle) {
			text = sel.Text()
			found = true
			return false
		}
		return true
	})
	return text, found
}

// InstitutionID derives the record identity from a detail URL: the last
// path segment with any extension stripped.
func InstitutionID(rawURL string) string {
	id := rawURL
	if idx := strings.LastIndex(id, "/"); idx >= 0 {
		id = id[idx+1:]
	}
	if idx := strings.Index(id, "."); idx >= 0 {
		id = id[:idx]
	}
	return id
}

// absoluteURL resolves href against the document URL, mirroring how
// the source pages use relative links.
func absoluteURL(doc *goquery.Document, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if doc.Url == nil {
		return ref.String()
	}
	return doc.Url.ResolveReference(ref).String()
}
