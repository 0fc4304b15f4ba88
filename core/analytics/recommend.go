package analytics

import (
	"github.com/trezcool/elimu/core/course"
)

const (
	TopTagCount        = 3
	CandidateLimit     = 50
	RecommendationSize = 5
)

type CompletedContent struct {
	ContentID string
	Tags      string
}

// Candidate is a tagged content item the student has not completed.
type Candidate struct {
	ContentID   string             `json:"content_id"`
	Title       string             `json:"title"`
	Type        course.ContentType `json:"type"`
	Tags        string             `json:"tags"`
	ModuleID    string             `json:"module_id"`
	ModuleTitle string             `json:"module_title"`
	CourseID    string             `json:"course_id"`
	CourseTitle string             `json:"course_title"`
}

// TopTags returns the n most frequent tags across tagStrings.
// Ties keep the order in which the tags were first seen.
func TopTags(tagStrings []string, n int) []string {
	counts := make(map[string]int)
	seen := make([]string, 0)
	for _, s := range tagStrings {
		for _, tag := range course.SplitTags(s) {
			if _, ok := counts[tag]; !ok {
				seen = append(seen, tag)
			}
			counts[tag]++
		}
	}

	top := make([]string, 0, n)
	used := make(map[string]bool, n)
	for len(top) < n {
		best, bestCount := "", 0
		for _, tag := range seen {
			if !used[tag] && counts[tag] > bestCount {
				best, bestCount = tag, counts[tag]
			}
		}
		if best == "" {
			break
		}
		used[best] = true
		top = append(top, best)
	}
	return top
}

// Recommend returns up to limit candidates sharing a tag with top,
// never including a completed content ID.
func Recommend(candidates []Candidate, top []string, completed map[string]bool, limit int) []Candidate {
	wanted := make(map[string]bool, len(top))
	for _, t := range top {
		wanted[t] = true
	}

	recs := make([]Candidate, 0, limit)
	if len(wanted) == 0 {
		return recs
	}
	for _, c := range candidates {
		if len(recs) >= limit {
			break
		}
		if completed[c.ContentID] {
			continue
		}
		for _, tag := range course.SplitTags(c.Tags) {
			if wanted[tag] {
				recs = append(recs, c)
				break
			}
		}
	}
	return recs
}
