package scrape

import (
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var blockPrefixes = []string{
	"<h1", "<h2", "<h3", "<h4", "<section", "<p", "<div", "<span",
}

// NormalizeRecords reduces every HTML-fragment field to plain text and
// expands definition lists into flat fields. Pure; the input records are
// not modified.
func NormalizeRecords(records []Record) []Record {
	out := make([]Record, 0, len(records))
	for _, rec := range records {
		out = append(out, normalizeRecord(rec))
	}
	return out
}

func normalizeRecord(rec Record) Record {
	flat := make(Record, len(rec))
	for _, key := range Keys(rec) {
		value := rec[key]
		switch {
		case hasBlockPrefix(value):
			flat[key] = fragmentText(value)
		case strings.HasPrefix(value, "<dl"):
			// The original field key is replaced entirely by the flattened
			// term/definition pairs; later keys overwrite on collision.
			for _, pair := range definitionPairs(value) {
				flat[pair[0]] = pair[1]
			}
		default:
			flat[key] = value
		}
	}
	return flat
}

func hasBlockPrefix(value string) bool {
	for _, prefix := range blockPrefixes {
		if strings.HasPrefix(value, prefix) {
			return true
		}
	}
	return false
}

// fragmentText extracts the plain text of an HTML fragment, turning each
// line-break element into a single space and stripping trailing whitespace.
func fragmentText(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}
	doc.Find("br").Each(func(_ int, sel *goquery.Selection) {
		sel.ReplaceWithNodes(&html.Node{Type: html.TextNode, Data: " "})
	})
	return strings.TrimRightFunc(doc.Text(), unicode.IsSpace)
}

// definitionPairs pairs each dt with the dd that follows it in document
// order, keyed by the lower-cased, underscore-normalized term text. A count
// mismatch stops at the shorter sequence.
func definitionPairs(fragment string) [][2]string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return nil
	}
	list := doc.Find("dl").First()
	terms := list.Find("dt")
	defs := list.Find("dd")

	n := terms.Length()
	if defs.Length() < n {
		n = defs.Length()
	}

	pairs := make([][2]string, 0, n)
	for i := 0; i < n; i++ {
		term := strings.TrimSpace(terms.Eq(i).Text())
		key := strings.ReplaceAll(strings.ToLower(term), " ", "_")
		pairs = append(pairs, [2]string{key, strings.TrimSpace(defs.Eq(i).Text())})
	}
	return pairs
}
