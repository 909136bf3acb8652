package model

// ImportSummary counts the records written by a school data import.
type ImportSummary struct {
	Students    int `json:"students"`
	Courses     int `json:"courses"`
	Assignments int `json:"assignments"`
	Enrollments int `json:"enrollments"`
	Marks       int `json:"marks"`
	Feedback    int `json:"feedback"`
}
