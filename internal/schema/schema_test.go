package schema

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestDocID(t *testing.T) {
	tests := []struct {
		collection Collection
		id         int64
		want       string
	}{
		{Students, 42, "student_42"},
		{StaffMembers, 1, "staff_1"},
		{Classes, 3, "class_3"},
		{FeeStructures, 9, "feeStructure_9"},
		{FeeTransactions, 7, "feeTransaction_7"},
		{Attendances, 100, "attendance_100"},
		{Notices, 5, "notice_5"},
		{Exams, 2, "exam_2"},
		{ExamResults, 11, "examResult_11"},
		{Institutes, 1, "institute_1"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := DocID(tt.collection, tt.id)
			if got != tt.want {
				t.Errorf("DocID(%s, %d) = %q, want %q", tt.collection, tt.id, got, tt.want)
			}
			// Same inputs always give the same id.
			for i := 0; i < 3; i++ {
				if again := DocID(tt.collection, tt.id); again != got {
					t.Fatalf("DocID not stable: %q != %q", again, got)
				}
			}
		})
	}
}

func TestCollections_Order(t *testing.T) {
	want := []Collection{
		Institutes, Classes, Students, StaffMembers, FeeStructures,
		FeeTransactions, Attendances, Notices, Exams, ExamResults,
	}

	got := Collections()
	if len(got) != len(want) {
		t.Fatalf("expected %d collections, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], got[i])
		}
	}

	// Mutating the result must not change the sync order.
	got[0] = "mutated"
	if Collections()[0] != Institutes {
		t.Error("Collections() exposed its backing slice")
	}
}

func TestParseCollection(t *testing.T) {
	for _, c := range Collections() {
		parsed, err := ParseCollection(string(c))
		if err != nil {
			t.Errorf("ParseCollection(%q) failed: %v", c, err)
		}
		if parsed != c {
			t.Errorf("ParseCollection(%q) = %q", c, parsed)
		}

		e, err := New(c)
		if err != nil {
			t.Fatalf("New(%s) failed: %v", c, err)
		}
		if e.Collection() != c {
			t.Errorf("New(%s) returned entity of collection %s", c, e.Collection())
		}
	}

	if _, err := ParseCollection("grades"); !errors.Is(err, ErrUnknownCollection) {
		t.Errorf("expected ErrUnknownCollection, got %v", err)
	}
}

func TestCollection_IsIndexed(t *testing.T) {
	if !Students.IsIndexed("classId") {
		t.Error("students should be indexed by classId")
	}
	if Students.IsIndexed("firstName") {
		t.Error("students should not be indexed by firstName")
	}
}

func TestStudent_Validate(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		student Student
		errMsg  string
	}{
		{
			name: "valid student",
			student: Student{
				AdmissionNumber: "ADM-1",
				FirstName:       "Amani",
				ClassID:         1,
				Status:          StudentActive,
				AdmittedAt:      now,
			},
		},
		{
			name: "missing admission number",
			student: Student{
				FirstName:  "Amani",
				ClassID:    1,
				Status:     StudentActive,
				AdmittedAt: now,
			},
			errMsg: "admissionNumber is required",
		},
		{
			name: "unstored class",
			student: Student{
				AdmissionNumber: "ADM-1",
				FirstName:       "Amani",
				Status:          StudentActive,
				AdmittedAt:      now,
			},
			errMsg: "classId must reference a stored record",
		},
		{
			name: "bad status",
			student: Student{
				AdmissionNumber: "ADM-1",
				FirstName:       "Amani",
				ClassID:         1,
				Status:          "expelled",
				AdmittedAt:      now,
			},
			errMsg: "invalid status",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.student.Validate()
			if tt.errMsg == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.errMsg)
			}
		})
	}
}

func TestAttendance_Validate(t *testing.T) {
	a := Attendance{StudentID: 1, ClassID: 1, Date: "2026-10-18", Status: Present}
	if err := a.Validate(); err != nil {
		t.Fatalf("valid attendance rejected: %v", err)
	}

	a.Date = "18/10/2026"
	if err := a.Validate(); err == nil {
		t.Error("expected error for malformed date")
	}

	a.Date = "2026-10-18"
	a.Status = "sick"
	if err := a.Validate(); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestDocument_OptionalFieldsAreNil(t *testing.T) {
	s := &Student{AdmissionNumber: "ADM-1", FirstName: "Amani", ClassID: 1}
	doc := s.Document()

	for _, field := range []string{"dateOfBirth", "guardian"} {
		v, ok := doc[field]
		if !ok {
			t.Errorf("expected key %q in document", field)
			continue
		}
		if v != nil {
			t.Errorf("expected unset %q to be nil, got %#v", field, v)
		}
	}

	dob := time.Date(2015, 3, 2, 0, 0, 0, 0, time.UTC)
	s.DateOfBirth = &dob
	s.Guardian = &Guardian{Name: "Neema", Phone: "+255700000000"}
	doc = s.Document()

	if got, ok := doc["dateOfBirth"].(time.Time); !ok || !got.Equal(dob) {
		t.Errorf("dateOfBirth = %#v, want %v", doc["dateOfBirth"], dob)
	}
	guardian, ok := doc["guardian"].(map[string]any)
	if !ok {
		t.Fatalf("guardian should be a nested map, got %T", doc["guardian"])
	}
	if guardian["name"] != "Neema" {
		t.Errorf("guardian name = %v", guardian["name"])
	}
}

func TestRecord_LocalID(t *testing.T) {
	var e Entity = &Notice{}
	if e.LocalID() != 0 {
		t.Fatalf("new entity should have no local id, got %d", e.LocalID())
	}
	e.SetLocalID(12)
	if e.LocalID() != 12 {
		t.Errorf("LocalID() = %d, want 12", e.LocalID())
	}
}
