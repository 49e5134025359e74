// Package seed loads baseline local records from a TOML file.
//
// A seed file lists records per collection using the collection name as the
// table array name:
//
//	[[institute]]
//	name = "Mlimani Secondary School"
//	code = "MSS"
//	createdAt = 2026-01-05T08:00:00Z
//
//	[[classes]]
//	name = "Form 1"
//	academicYear = "2026"
//
// Only collections that are empty locally are seeded, so running the seed
// again never duplicates records.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/campusdesk/campussync/internal/schema"
)

//go:embed default.toml
var defaultSeed []byte

// File is the decoded content of a seed file.
type File struct {
	Institute       []*schema.Institute      `toml:"institute"`
	Classes         []*schema.Class          `toml:"classes"`
	Students        []*schema.Student        `toml:"students"`
	Staff           []*schema.Staff          `toml:"staff"`
	FeeStructures   []*schema.FeeStructure   `toml:"feeStructures"`
	FeeTransactions []*schema.FeeTransaction `toml:"feeTransactions"`
	Attendance      []*schema.Attendance     `toml:"attendance"`
	Notices         []*schema.Notice         `toml:"notices"`
	Exams           []*schema.Exam           `toml:"exams"`
	ExamResults     []*schema.ExamResult     `toml:"examResults"`
}

// Entities returns the file's records grouped by collection.
func (f *File) Entities() map[schema.Collection][]schema.Entity {
	out := make(map[schema.Collection][]schema.Entity)
	add := func(c schema.Collection, e schema.Entity) {
		out[c] = append(out[c], e)
	}

	for _, e := range f.Institute {
		add(schema.Institutes, e)
	}
	for _, e := range f.Classes {
		add(schema.Classes, e)
	}
	for _, e := range f.Students {
		e.SetDefaults()
		add(schema.Students, e)
	}
	for _, e := range f.Staff {
		add(schema.StaffMembers, e)
	}
	for _, e := range f.FeeStructures {
		add(schema.FeeStructures, e)
	}
	for _, e := range f.FeeTransactions {
		add(schema.FeeTransactions, e)
	}
	for _, e := range f.Attendance {
		add(schema.Attendances, e)
	}
	for _, e := range f.Notices {
		add(schema.Notices, e)
	}
	for _, e := range f.Exams {
		add(schema.Exams, e)
	}
	for _, e := range f.ExamResults {
		add(schema.ExamResults, e)
	}
	return out
}

// Parse decodes a seed file. Unknown keys are rejected so typos surface early.
func Parse(data []byte) (*File, error) {
	var f File
	md, err := toml.Decode(string(data), &f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown keys in seed file: %v", undecoded)
	}
	return &f, nil
}

// Load reads the seed file at path, or the built-in baseline when path is empty.
func Load(path string) (*File, error) {
	if path == "" {
		return Parse(defaultSeed)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return Parse(data)
}

// Store is the part of the local database seeding needs.
type Store interface {
	Count(ctx context.Context, c schema.Collection) (int, error)
	BulkInsert(ctx context.Context, entities []schema.Entity) error
}

// Apply inserts the file's records into every collection that is still
// empty. Collections are visited in sync order. It returns the number of
// records inserted per collection.
func Apply(ctx context.Context, store Store, f *File, logger *log.Logger) (map[schema.Collection]int, error) {
	if logger == nil {
		logger = log.New(os.Stderr, "[seed] ", log.LstdFlags)
	}

	now := time.Now()
	entities := f.Entities()
	inserted := make(map[schema.Collection]int)

	for _, c := range schema.Collections() {
		records := entities[c]
		if len(records) == 0 {
			continue
		}

		count, err := store.Count(ctx, c)
		if err != nil {
			return inserted, err
		}
		if count > 0 {
			logger.Printf("Skipping %s: %d records already present", c, count)
			continue
		}

		for _, e := range records {
			stampCreated(e, now)
		}
		if err := store.BulkInsert(ctx, records); err != nil {
			return inserted, fmt.Errorf("failed to seed %s: %w", c, err)
		}
		inserted[c] = len(records)
		logger.Printf("Seeded %s: %d records", c, len(records))
	}

	return inserted, nil
}

// stampCreated fills createdAt for records the file left undated.
func stampCreated(e schema.Entity, now time.Time) {
	var created *time.Time
	switch v := e.(type) {
	case *schema.Institute:
		created = &v.CreatedAt
	case *schema.Class:
		created = &v.CreatedAt
	case *schema.Student:
		created = &v.CreatedAt
	case *schema.Staff:
		created = &v.CreatedAt
	case *schema.FeeStructure:
		created = &v.CreatedAt
	case *schema.FeeTransaction:
		created = &v.CreatedAt
	case *schema.Attendance:
		created = &v.CreatedAt
	case *schema.Notice:
		created = &v.CreatedAt
	case *schema.Exam:
		created = &v.CreatedAt
	case *schema.ExamResult:
		created = &v.CreatedAt
	}
	if created != nil && created.IsZero() {
		*created = now
	}
}
