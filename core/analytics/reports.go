package analytics

import (
	"sort"
	"strings"

	"github.com/trezcool/elimu/core"
)

// Completion is one completed progress record of a student within a course.
type Completion struct {
	StudentID string
	FirstName string
	LastName  string
	ContentID string
}

type StudentProgress struct {
	StudentID      string  `json:"student_id"`
	StudentName    string  `json:"student_name"`
	CompletedItems int     `json:"completed_items"`
	TotalItems     int     `json:"total_items"`
	Percentage     float64 `json:"progress_percentage"`
}

// ProgressReport computes per-student completion over the distinct contentIDs.
// Only students with at least one completion among them are reported, sorted by name.
func ProgressReport(contentIDs []string, completions []Completion) []StudentProgress {
	items := make(map[string]struct{}, len(contentIDs))
	for _, id := range contentIDs {
		items[id] = struct{}{}
	}
	report := make([]StudentProgress, 0)
	if len(items) == 0 {
		return report
	}

	type acc struct {
		name string
		done map[string]struct{}
	}
	students := make(map[string]*acc)
	for _, c := range completions {
		if _, ok := items[c.ContentID]; !ok {
			continue
		}
		a, ok := students[c.StudentID]
		if !ok {
			a = &acc{name: displayName(c.FirstName, c.LastName), done: make(map[string]struct{})}
			students[c.StudentID] = a
		}
		a.done[c.ContentID] = struct{}{}
	}

	for id, a := range students {
		report = append(report, StudentProgress{
			StudentID:      id,
			StudentName:    a.name,
			CompletedItems: len(a.done),
			TotalItems:     len(items),
			Percentage:     core.Percentage(len(a.done), len(items)),
		})
	}
	sort.Slice(report, func(i, j int) bool {
		if report[i].StudentName != report[j].StudentName {
			return report[i].StudentName < report[j].StudentName
		}
		return report[i].StudentID < report[j].StudentID
	})
	return report
}

// AttemptRow is one quiz attempt on a course quiz.
type AttemptRow struct {
	StudentID     string
	FirstName     string
	LastName      string
	QuizTitle     string
	AttemptNumber int
	Score         float64
}

type AttemptSummary struct {
	QuizTitle     string  `json:"quiz_title"`
	AttemptNumber int     `json:"attempt_number"`
	Score         float64 `json:"score"`
}

type StudentPerformance struct {
	StudentID    string           `json:"student_id"`
	StudentName  string           `json:"student_name"`
	Attempts     []AttemptSummary `json:"attempts"`
	AverageScore float64          `json:"average_score"`
}

// PerformanceReport groups attempts by student, sorted by name; each student's
// attempts are sorted by quiz title then attempt number.
func PerformanceReport(rows []AttemptRow) []StudentPerformance {
	byStudent := make(map[string]*StudentPerformance)
	for _, r := range rows {
		sp, ok := byStudent[r.StudentID]
		if !ok {
			sp = &StudentPerformance{StudentID: r.StudentID, StudentName: displayName(r.FirstName, r.LastName)}
			byStudent[r.StudentID] = sp
		}
		sp.Attempts = append(sp.Attempts, AttemptSummary{
			QuizTitle:     r.QuizTitle,
			AttemptNumber: r.AttemptNumber,
			Score:         r.Score,
		})
	}

	report := make([]StudentPerformance, 0, len(byStudent))
	for _, sp := range byStudent {
		sort.Slice(sp.Attempts, func(i, j int) bool {
			a, b := sp.Attempts[i], sp.Attempts[j]
			if a.QuizTitle != b.QuizTitle {
				return a.QuizTitle < b.QuizTitle
			}
			return a.AttemptNumber < b.AttemptNumber
		})
		var sum float64
		for _, a := range sp.Attempts {
			sum += a.Score
		}
		sp.AverageScore = core.Round2(sum / float64(len(sp.Attempts)))
		report = append(report, *sp)
	}
	sort.Slice(report, func(i, j int) bool {
		if report[i].StudentName != report[j].StudentName {
			return report[i].StudentName < report[j].StudentName
		}
		return report[i].StudentID < report[j].StudentID
	})
	return report
}

func displayName(first, last string) string {
	return strings.TrimSpace(first + " " + last)
}
