// Package grading turns raw assignment marks into term percentages, a
// weighted final grade and a letter grade. Every function is pure and total:
// missing data yields a nil percentage, never an error.
package grading

import "github.com/pavelanni/reportcard/internal/model"

// TermWeights are the nominal weights of terms 1..4.
var TermWeights = [model.NumTerms]float64{0.125, 0.25, 0.125, 0.5}

// TermPercentage averages raw*100/maxMarks over the assignments of term that
// have a recorded mark for studentID. Assignments without marks are skipped.
// An assignment with maxMarks <= 0 contributes 0 to the average.
// It returns nil when no assignment in the term has a mark.
func TermPercentage(assignments []model.Assignment, marks model.CourseMarks, studentID int64, term int) *float64 {
	return termPercentage(assignments, marks.For(studentID), term)
}

// TermPercentages returns the percentage for each of the four terms.
func TermPercentages(assignments []model.Assignment, marks model.CourseMarks, studentID int64) [model.NumTerms]*float64 {
	sm := marks.For(studentID)
	var out [model.NumTerms]*float64
	for i := range out {
		out[i] = termPercentage(assignments, sm, i+1)
	}
	return out
}

func termPercentage(assignments []model.Assignment, marks model.StudentMarks, term int) *float64 {
	var sum float64
	graded := 0
	for _, a := range assignments {
		if a.Term != term {
			continue
		}
		raw, ok := marks[a.ID]
		if !ok {
			continue
		}
		graded++
		if a.MaxMarks <= 0 {
			continue
		}
		sum += float64(raw) * 100 / float64(a.MaxMarks)
	}
	if graded == 0 {
		return nil
	}
	avg := sum / float64(graded)
	return &avg
}

// FinalGrade combines up to four term percentages with TermWeights.
// Undefined terms are skipped and the total is divided by the weight of the
// terms present, so missing terms do not pull the grade down. The result is
// clamped to [0, 100]. It returns nil when every term is undefined.
func FinalGrade(t1, t2, t3, t4 *float64) *float64 {
	return finalGrade([model.NumTerms]*float64{t1, t2, t3, t4})
}

func finalGrade(terms [model.NumTerms]*float64) *float64 {
	var total, weightSum float64
	for i, t := range terms {
		if t == nil {
			continue
		}
		total += *t * TermWeights[i]
		weightSum += TermWeights[i]
	}
	if weightSum == 0 {
		return nil
	}
	g := clamp(total/weightSum, 0, 100)
	return &g
}

func clamp(v, lo, hi float64) float64 {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}

// LetterGrade maps a percentage to a letter, highest cutoff first.
func LetterGrade(p float64) string {
	switch {
	case p >= 80:
		return "A"
	case p >= 70:
		return "B"
	case p >= 60:
		return "C"
	case p >= 50:
		return "D"
	case p >= 40:
		return "E"
	case p >= 30:
		return "F"
	default:
		return "G"
	}
}
