package schema

import (
	"fmt"
	"time"
)

// Notice is an announcement shown to an audience.
type Notice struct {
	Record

	Title       string     `json:"title"`
	Body        string     `json:"body"`
	Audience    string     `json:"audience"` // all, staff, students, guardians
	PublishedAt time.Time  `json:"publishedAt"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	CreatedBy   int64      `json:"createdBy,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func (n *Notice) Collection() Collection { return Notices }

func (n *Notice) Validate() error {
	if err := firstErr(
		required("title", n.Title),
		required("audience", n.Audience),
		requiredTime("publishedAt", n.PublishedAt),
	); err != nil {
		return err
	}
	if n.ExpiresAt != nil && n.ExpiresAt.Before(n.PublishedAt) {
		return fmt.Errorf("expiresAt must not be before publishedAt")
	}
	return nil
}

func (n *Notice) Document() map[string]any {
	return map[string]any{
		"title":       n.Title,
		"body":        n.Body,
		"audience":    n.Audience,
		"publishedAt": n.PublishedAt,
		"expiresAt":   optTime(n.ExpiresAt),
		"createdBy":   n.CreatedBy,
		"createdAt":   n.CreatedAt,
	}
}

// Exam is a scheduled assessment for a class.
type Exam struct {
	Record

	Name      string    `json:"name"`
	ClassID   int64     `json:"classId"`
	Subject   string    `json:"subject"`
	Date      time.Time `json:"date"`
	MaxMarks  float64   `json:"maxMarks"`
	PassMarks float64   `json:"passMarks"`
	CreatedAt time.Time `json:"createdAt"`
}

func (e *Exam) Collection() Collection { return Exams }

func (e *Exam) Validate() error {
	if err := firstErr(
		required("name", e.Name),
		requiredRef("classId", e.ClassID),
		required("subject", e.Subject),
	); err != nil {
		return err
	}
	if e.MaxMarks <= 0 {
		return fmt.Errorf("maxMarks must be positive (got %v)", e.MaxMarks)
	}
	if e.PassMarks < 0 || e.PassMarks > e.MaxMarks {
		return fmt.Errorf("passMarks must be between 0 and maxMarks (got %v)", e.PassMarks)
	}
	return nil
}

func (e *Exam) Document() map[string]any {
	return map[string]any{
		"name":      e.Name,
		"classId":   e.ClassID,
		"subject":   e.Subject,
		"date":      e.Date,
		"maxMarks":  e.MaxMarks,
		"passMarks": e.PassMarks,
		"createdAt": e.CreatedAt,
	}
}

// ExamResult is one student's score in one exam.
type ExamResult struct {
	Record

	ExamID        int64     `json:"examId"`
	StudentID     int64     `json:"studentId"`
	MarksObtained float64   `json:"marksObtained"`
	Grade         string    `json:"grade,omitempty"`
	Remarks       string    `json:"remarks,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

func (r *ExamResult) Collection() Collection { return ExamResults }

func (r *ExamResult) Validate() error {
	if err := firstErr(
		requiredRef("examId", r.ExamID),
		requiredRef("studentId", r.StudentID),
	); err != nil {
		return err
	}
	if r.MarksObtained < 0 {
		return fmt.Errorf("marksObtained must not be negative (got %v)", r.MarksObtained)
	}
	return nil
}

func (r *ExamResult) Document() map[string]any {
	return map[string]any{
		"examId":        r.ExamID,
		"studentId":     r.StudentID,
		"marksObtained": r.MarksObtained,
		"grade":         r.Grade,
		"remarks":       r.Remarks,
		"createdAt":     r.CreatedAt,
	}
}
