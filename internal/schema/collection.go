package schema

import (
	"errors"
	"fmt"
)

// Collection names a group of records of one entity type.
type Collection string

const (
	Institutes      Collection = "institute"
	Classes         Collection = "classes"
	Students        Collection = "students"
	StaffMembers    Collection = "staff"
	FeeStructures   Collection = "feeStructures"
	FeeTransactions Collection = "feeTransactions"
	Attendances     Collection = "attendance"
	Notices         Collection = "notices"
	Exams           Collection = "exams"
	ExamResults     Collection = "examResults"
)

// ErrUnknownCollection is returned for collection names outside the schema.
var ErrUnknownCollection = errors.New("unknown collection")

// syncOrder is the order in which a full sync visits collections.
var syncOrder = []Collection{
	Institutes,
	Classes,
	Students,
	StaffMembers,
	FeeStructures,
	FeeTransactions,
	Attendances,
	Notices,
	Exams,
	ExamResults,
}

var tags = map[Collection]string{
	Institutes:      "institute",
	Classes:         "class",
	Students:        "student",
	StaffMembers:    "staff",
	FeeStructures:   "feeStructure",
	FeeTransactions: "feeTransaction",
	Attendances:     "attendance",
	Notices:         "notice",
	Exams:           "exam",
	ExamResults:     "examResult",
}

// indexes lists the document fields each collection can be queried by.
var indexes = map[Collection][]string{
	Institutes:      {"code"},
	Classes:         {"academicYear", "name"},
	Students:        {"classId", "admissionNumber", "status"},
	StaffMembers:    {"employeeId", "role"},
	FeeStructures:   {"classId", "academicYear"},
	FeeTransactions: {"studentId", "receiptNumber"},
	Attendances:     {"studentId", "classId", "date"},
	Notices:         {"audience"},
	Exams:           {"classId"},
	ExamResults:     {"examId", "studentId"},
}

// Collections returns every collection in full-sync order.
// The returned slice is a copy and may be modified by the caller.
func Collections() []Collection {
	out := make([]Collection, len(syncOrder))
	copy(out, syncOrder)
	return out
}

// ParseCollection validates a collection name.
func ParseCollection(name string) (Collection, error) {
	c := Collection(name)
	if _, ok := tags[c]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCollection, name)
	}
	return c, nil
}

// Tag returns the short entity tag used in document ids.
func (c Collection) Tag() string {
	return tags[c]
}

// IndexedFields returns the fields QueryByIndex accepts for this collection.
func (c Collection) IndexedFields() []string {
	return indexes[c]
}

// IsIndexed reports whether field is queryable for this collection.
func (c Collection) IsIndexed(field string) bool {
	for _, f := range indexes[c] {
		if f == field {
			return true
		}
	}
	return false
}

func (c Collection) String() string {
	return string(c)
}

// DocID returns the remote document id for a local record.
// It is a pure function of its arguments.
func DocID(c Collection, localID int64) string {
	return fmt.Sprintf("%s_%d", c.Tag(), localID)
}

// New returns an empty entity for the collection, ready to be decoded into.
func New(c Collection) (Entity, error) {
	switch c {
	case Institutes:
		return &Institute{}, nil
	case Classes:
		return &Class{}, nil
	case Students:
		return &Student{}, nil
	case StaffMembers:
		return &Staff{}, nil
	case FeeStructures:
		return &FeeStructure{}, nil
	case FeeTransactions:
		return &FeeTransaction{}, nil
	case Attendances:
		return &Attendance{}, nil
	case Notices:
		return &Notice{}, nil
	case Exams:
		return &Exam{}, nil
	case ExamResults:
		return &ExamResult{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCollection, string(c))
	}
}
