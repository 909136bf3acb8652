package report

import (
	"testing"

	"github.com/pavelanni/reportcard/internal/model"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Mathematics", "mathematics"},
		{"  Social   Studies ", "social studies"},
		{"Mathématiques (Gr. 7)", "mathematiques gr 7"},
		{"PHYSICAL-EDUCATION", "physical education"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := normalizeName(tt.in); got != tt.want {
			t.Errorf("normalizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMatchSubjects(t *testing.T) {
	subjects := []Subject{
		{Key: "Science", Name: "Science"},
		{Key: "Computer_Science", Name: "Computer Science"},
		{Key: "Art", Name: "Art"},
		{Key: "Music", Name: "Music"},
	}

	t.Run("exact match preferred over substring", func(t *testing.T) {
		courses := []model.Course{
			{ID: 1, Name: "Computer Science"},
			{ID: 2, Name: "Science"},
		}
		matched, unmatched := MatchSubjects(subjects, courses)
		if matched["Science"].ID != 2 {
			t.Errorf("Science matched course %d, want 2", matched["Science"].ID)
		}
		if matched["Computer_Science"].ID != 1 {
			t.Errorf("Computer_Science matched course %d, want 1", matched["Computer_Science"].ID)
		}
		if len(unmatched) != 0 {
			t.Errorf("expected no unmatched courses, got %v", unmatched)
		}
	})

	t.Run("normalized substring fallback", func(t *testing.T) {
		courses := []model.Course{{ID: 5, Name: "ART & Design 8"}}
		matched, _ := MatchSubjects(subjects, courses)
		if matched["Art"].ID != 5 {
			t.Errorf("Art matched course %d, want 5", matched["Art"].ID)
		}
	})

	t.Run("collision resolved by enumeration order", func(t *testing.T) {
		courses := []model.Course{
			{ID: 7, Name: "Computer Science 9"},
			{ID: 8, Name: "General Science 9"},
		}
		matched, unmatched := MatchSubjects(subjects, courses)
		// Science comes first and takes the first course containing "science".
		if matched["Science"].ID != 7 {
			t.Errorf("Science matched course %d, want 7", matched["Science"].ID)
		}
		if _, ok := matched["Computer_Science"]; ok {
			t.Errorf("Computer_Science should be unmatched, got %v", matched["Computer_Science"])
		}
		if len(unmatched) != 1 || unmatched[0].ID != 8 {
			t.Errorf("unmatched = %v, want course 8", unmatched)
		}
	})

	t.Run("unmatched course", func(t *testing.T) {
		courses := []model.Course{{ID: 9, Name: "Woodworking"}}
		matched, unmatched := MatchSubjects(subjects, courses)
		if len(matched) != 0 {
			t.Errorf("expected no matches, got %v", matched)
		}
		if len(unmatched) != 1 {
			t.Errorf("expected one unmatched course, got %d", len(unmatched))
		}
	})
}

func TestParseSubjects(t *testing.T) {
	got := ParseSubjects([]string{"Social Studies", " ", "Art"})
	if len(got) != 2 {
		t.Fatalf("expected 2 subjects, got %d", len(got))
	}
	if got[0].Key != "Social_Studies" || got[0].Name != "Social Studies" {
		t.Errorf("got %+v", got[0])
	}
}
