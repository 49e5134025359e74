package schema

import (
	"fmt"
	"time"
)

// Student status values.
const (
	StudentActive    = "active"
	StudentLeft      = "left"
	StudentGraduated = "graduated"
)

// Guardian is the student's primary contact. It is synced as a nested document.
type Guardian struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Relation string `json:"relation,omitempty"`
}

// Student is an admitted learner.
type Student struct {
	Record

	AdmissionNumber string     `json:"admissionNumber"`
	FirstName       string     `json:"firstName"`
	LastName        string     `json:"lastName,omitempty"`
	ClassID         int64      `json:"classId"`
	RollNumber      int        `json:"rollNumber,omitempty"`
	Gender          string     `json:"gender,omitempty"`
	DateOfBirth     *time.Time `json:"dateOfBirth,omitempty"`
	Guardian        *Guardian  `json:"guardian,omitempty"`
	Address         string     `json:"address,omitempty"`
	Status          string     `json:"status"`
	AdmittedAt      time.Time  `json:"admittedAt"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

func (s *Student) Collection() Collection { return Students }

func (s *Student) Validate() error {
	if err := firstErr(
		required("admissionNumber", s.AdmissionNumber),
		required("firstName", s.FirstName),
		requiredRef("classId", s.ClassID),
		requiredTime("admittedAt", s.AdmittedAt),
	); err != nil {
		return err
	}
	switch s.Status {
	case StudentActive, StudentLeft, StudentGraduated:
	default:
		return fmt.Errorf("invalid status %q", s.Status)
	}
	return nil
}

// SetDefaults fills in fields a new admission normally leaves blank.
func (s *Student) SetDefaults() {
	now := time.Now()
	if s.Status == "" {
		s.Status = StudentActive
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = s.CreatedAt
	}
}

func (s *Student) Document() map[string]any {
	var guardian any
	if s.Guardian != nil {
		guardian = map[string]any{
			"name":     s.Guardian.Name,
			"phone":    s.Guardian.Phone,
			"relation": s.Guardian.Relation,
		}
	}
	return map[string]any{
		"admissionNumber": s.AdmissionNumber,
		"firstName":       s.FirstName,
		"lastName":        s.LastName,
		"classId":         s.ClassID,
		"rollNumber":      s.RollNumber,
		"gender":          s.Gender,
		"dateOfBirth":     optTime(s.DateOfBirth),
		"guardian":        guardian,
		"address":         s.Address,
		"status":          s.Status,
		"admittedAt":      s.AdmittedAt,
		"createdAt":       s.CreatedAt,
		"updatedAt":       s.UpdatedAt,
	}
}

// Attendance status values.
const (
	Present = "present"
	Absent  = "absent"
	Late    = "late"
	Excused = "excused"
)

// Attendance is one student's mark for one day.
type Attendance struct {
	Record

	StudentID int64     `json:"studentId"`
	ClassID   int64     `json:"classId"`
	Date      string    `json:"date"` // YYYY-MM-DD, local calendar day
	Status    string    `json:"status"`
	MarkedBy  *int64    `json:"markedBy,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (a *Attendance) Collection() Collection { return Attendances }

func (a *Attendance) Validate() error {
	if err := firstErr(
		requiredRef("studentId", a.StudentID),
		requiredRef("classId", a.ClassID),
		required("date", a.Date),
	); err != nil {
		return err
	}
	if _, err := time.Parse(time.DateOnly, a.Date); err != nil {
		return fmt.Errorf("date must be YYYY-MM-DD: %w", err)
	}
	switch a.Status {
	case Present, Absent, Late, Excused:
		return nil
	default:
		return fmt.Errorf("invalid attendance status %q", a.Status)
	}
}

func (a *Attendance) Document() map[string]any {
	return map[string]any{
		"studentId": a.StudentID,
		"classId":   a.ClassID,
		"date":      a.Date,
		"status":    a.Status,
		"markedBy":  optInt(a.MarkedBy),
		"createdAt": a.CreatedAt,
	}
}
