// Package entities pulls legal entities and frequent terms out of document
// text with regular expressions.
package entities

import (
	"regexp"
	"sort"
	"strings"
)

// Categories lists every entity category in display order.
var Categories = []string{"PERSON", "ORGANIZATION", "DATE", "LAW", "LOCATION", "MONEY", "TIME", "OTHER"}

const months = `January|February|March|April|May|June|July|August|September|October|November|December`

type pattern struct {
	re *regexp.Regexp
	// group selects a submatch instead of the whole match when > 0.
	group int
}

var patterns = map[string][]pattern{
	"PERSON": {
		{re: regexp.MustCompile(`\b(?:Mr|Mrs|Ms|Miss|Dr|Judge|Justice|Hon)\.?\s+[A-Z][a-z]+(?:\s+[A-Z]\.)?(?:\s+[A-Z][a-z]+)?`)},
	},
	"ORGANIZATION": {
		{re: regexp.MustCompile(`\b(?:[A-Z][A-Za-z&]*\s+){0,4}[A-Z][A-Za-z&]*,?\s+(?:Inc|LLC|L\.L\.C|LLP|Ltd|Corp|Corporation|Company|Co|plc|GmbH)\b\.?`)},
	},
	"DATE": {
		{re: regexp.MustCompile(`\b(?:` + months + `)\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4}\b`)},
		{re: regexp.MustCompile(`\b\d{1,2}(?:st|nd|rd|th)?\s+day\s+of\s+(?:` + months + `),?\s+\d{4}\b`)},
		{re: regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2,4}\b`)},
		{re: regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)},
	},
	"LAW": {
		{re: regexp.MustCompile(`\b(?:Section|Article|Clause|Paragraph)\s+\d+(?:\.\d+)*(?:\([A-Za-z0-9]+\))*`)},
		{re: regexp.MustCompile(`§+\s*\d+(?:\.\d+)*(?:\([A-Za-z0-9]+\))*`)},
		{re: regexp.MustCompile(`\b\d+\s+U\.S\.C\.\s+§*\s*\d+`)},
		{re: regexp.MustCompile(`\b(?:[A-Z][a-z]+\s+)+(?:Act|Code|Regulation)(?:\s+of\s+\d{4})?\b`)},
	},
	"LOCATION": {
		{re: regexp.MustCompile(`\b(?:State|Commonwealth|County|City|Republic|Province)\s+of\s+[A-Z][a-z]+(?:\s+[A-Z][a-z]+)?`)},
	},
	"MONEY": {
		{re: regexp.MustCompile(`(?:\$|USD\s?|EUR\s?|£|€)\s?\d{1,3}(?:,\d{3})*(?:\.\d{2})?(?:\s(?:million|billion|thousand))?`)},
		{re: regexp.MustCompile(`\b\d{1,3}(?:,\d{3})*(?:\.\d+)?\s(?:dollars|euros|pounds)\b`)},
	},
	"TIME": {
		{re: regexp.MustCompile(`\b\d{1,2}:\d{2}(?:\s?[AaPp]\.?[Mm]\.?)?`)},
		{re: regexp.MustCompile(`\b\d{1,2}\s?(?:a\.m\.|p\.m\.|AM|PM)`)},
	},
	"OTHER": {
		// defined terms such as (the "Tenant")
		{re: regexp.MustCompile(`\((?:the\s+)?["“]([^"”]+)["”]\)`), group: 1},
	},
}

type match struct {
	start, end int
	text       string
}

// Extract returns entities per category. Every category is present, and
// values are deduplicated in order of first appearance.
func Extract(text string) map[string][]string {
	out := make(map[string][]string, len(Categories))
	for _, category := range Categories {
		var found []match
		for _, p := range patterns[category] {
			for _, loc := range p.re.FindAllStringSubmatchIndex(text, -1) {
				start, end := loc[0], loc[1]
				if p.group > 0 {
					start, end = loc[2*p.group], loc[2*p.group+1]
				}
				if start < 0 {
					continue
				}
				found = append(found, match{start: start, end: end, text: clean(text[start:end])})
			}
		}
		sort.SliceStable(found, func(i, j int) bool {
			if found[i].start != found[j].start {
				return found[i].start < found[j].start
			}
			return found[i].end > found[j].end
		})
		values := []string{}
		seen := make(map[string]struct{}, len(found))
		covered := -1
		for _, m := range found {
			// overlapping matches from different patterns keep the earliest, longest one
			if m.start < covered {
				continue
			}
			covered = m.end
			if m.text == "" {
				continue
			}
			if _, dup := seen[m.text]; dup {
				continue
			}
			seen[m.text] = struct{}{}
			values = append(values, m.text)
		}
		out[category] = values
	}
	return out
}

func clean(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimRight(s, ",;:")
}
