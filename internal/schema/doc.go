// Package schema defines the synced entity types of campussync and the
// collection naming that ties local records to remote documents.
//
// # Collections
//
// Every entity lives in exactly one named collection. The collection name is
// used both as the local SQLite table and as the remote collection:
//
//	institute, classes, students, staff, feeStructures,
//	feeTransactions, attendance, notices, exams, examResults
//
// Collections() returns them in the fixed order used by a full sync.
//
// # Document IDs
//
// A record's remote document id is derived purely from its collection tag and
// its local integer id:
//
//	{tag}_{localId}     e.g. student_42, feeTransaction_7, class_3
//
// The scheme is stable across restarts, so pushing the same local record any
// number of times always targets the same remote document.
//
// # Documents
//
// Entity.Document returns the record as a field map. Optional fields that are
// unset are reported as nil and dropped by the serializer, so a sync never
// writes placeholders over remote-only fields.
//
//	student := &schema.Student{
//	    AdmissionNumber: "ADM-2026-001",
//	    FirstName:       "Amani",
//	    ClassID:         3,
//	    AdmittedAt:      time.Now(),
//	}
//	if err := student.Validate(); err != nil {
//	    return err
//	}
package schema
