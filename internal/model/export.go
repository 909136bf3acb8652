package model

// GradeExport is the top-level JSON structure for a grade-level final grades export.
type GradeExport struct {
	GradeLevel int             `json:"grade_level"`
	Year       string          `json:"year"`
	Courses    []string        `json:"courses"`
	Results    []StudentResult `json:"results"`
}

// StudentResult holds one student's pooled term and final values for export.
// Nil percentages are terms with no recorded marks.
type StudentResult struct {
	StudentID   int64      `json:"student_id"`
	DisplayName string     `json:"display_name"`
	Terms       []*float64 `json:"terms"`
	Final       *float64   `json:"final,omitempty"`
	Letter      string     `json:"letter,omitempty"`
}
