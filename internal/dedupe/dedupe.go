// Package dedupe finds study reviews that are probably the same publication
// found through different search sources.
package dedupe

import (
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/matsen/slr/internal/study"
	"golang.org/x/text/unicode/norm"
)

// Reason says why studies were grouped.
type Reason string

const (
	SameDOI   Reason = "doi"
	SameTitle Reason = "title"
)

// Group is a set of studies that look like one publication. Target is the
// study the others would be marked as duplicates of: the one already
// included, otherwise the lowest id.
type Group struct {
	Reason     Reason  `json:"reason"`
	Key        string  `json:"key"`
	Target     int64   `json:"target"`
	Duplicates []int64 `json:"duplicates"`
}

// FoldTitle lower-cases a title, strips accents and punctuation and
// collapses whitespace, so "Non-Cooperative  Gämes." and
// "non cooperative games" fold to the same string.
func FoldTitle(title string) string {
	var b strings.Builder
	space := false
	for _, r := range norm.NFKD.String(title) {
		switch {
		case unicode.Is(unicode.Mn, r):
			continue
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(unicode.ToLower(r))
		default:
			space = true
		}
	}
	return b.String()
}

// Find groups candidate duplicates among reviews. Studies already marked
// DUPLICATED or EXCLUDED are ignored. Studies sharing a DOI are grouped
// first; the remaining ones are grouped by folded title and year.
func Find(reviews []*study.Review) []Group {
	var candidates []*study.Review
	for _, r := range reviews {
		switch r.SelectionStatus() {
		case study.SelectionDuplicated, study.SelectionExcluded:
			continue
		}
		candidates = append(candidates, r)
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].StudyID() < candidates[j].StudyID() })

	var groups []Group
	grouped := make(map[int64]bool)

	byDOI := make(map[string][]*study.Review)
	var doiKeys []string
	for _, r := range candidates {
		doi := strings.ToLower(string(r.Record().DOI))
		if doi == "" {
			continue
		}
		if _, ok := byDOI[doi]; !ok {
			doiKeys = append(doiKeys, doi)
		}
		byDOI[doi] = append(byDOI[doi], r)
	}
	for _, k := range doiKeys {
		if g, ok := newGroup(SameDOI, k, byDOI[k]); ok {
			groups = append(groups, g)
			for _, r := range byDOI[k] {
				grouped[r.StudyID()] = true
			}
		}
	}

	byTitle := make(map[string][]*study.Review)
	var titleKeys []string
	for _, r := range candidates {
		if grouped[r.StudyID()] {
			continue
		}
		rec := r.Record()
		folded := FoldTitle(rec.Title)
		if folded == "" {
			continue
		}
		k := folded + " (" + strconv.Itoa(rec.Year) + ")"
		if _, ok := byTitle[k]; !ok {
			titleKeys = append(titleKeys, k)
		}
		byTitle[k] = append(byTitle[k], r)
	}
	for _, k := range titleKeys {
		if g, ok := newGroup(SameTitle, k, byTitle[k]); ok {
			groups = append(groups, g)
		}
	}

	return groups
}

func newGroup(reason Reason, key string, members []*study.Review) (Group, bool) {
	if len(members) < 2 {
		return Group{}, false
	}
	target := members[0]
	for _, r := range members {
		if r.SelectionStatus() == study.SelectionIncluded {
			target = r
			break
		}
	}
	g := Group{Reason: reason, Key: key, Target: target.StudyID(), Duplicates: []int64{}}
	for _, r := range members {
		if r != target {
			g.Duplicates = append(g.Duplicates, r.StudyID())
		}
	}
	return g, true
}
