// Package loadtest measures campussync under a realistic school-sized load.
//
// It fills a local database with synthetic classes, students and attendance,
// then measures two things: local query latency while many readers run at
// once, and full-sync throughput to a remote store. Local writes made while
// a sync is running must keep succeeding; RunWritesDuringSync checks that.
package loadtest

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/campusdesk/campussync/internal/localdb"
	"github.com/campusdesk/campussync/internal/schema"
)

// Options sizes the synthetic dataset.
type Options struct {
	Classes          int
	StudentsPerClass int
	// AttendanceDays is the number of school days of attendance per student.
	AttendanceDays int
}

// DefaultOptions is a mid-sized school: 20 classes of 40 students with a
// month of attendance, 16,820 records in total.
func DefaultOptions() Options {
	return Options{
		Classes:          20,
		StudentsPerClass: 40,
		AttendanceDays:   20,
	}
}

// Total returns the number of records Populate inserts.
func (o Options) Total() int {
	students := o.Classes * o.StudentsPerClass
	return o.Classes + students + students*o.AttendanceDays
}

// Dataset describes a populated database.
type Dataset struct {
	DB         *localdb.DB
	ClassIDs   []int64
	StudentIDs []int64
	Attendance int
}

// Total returns the number of records in the dataset.
func (d *Dataset) Total() int {
	return len(d.ClassIDs) + len(d.StudentIDs) + d.Attendance
}

// LatencyStats captures performance metrics from load tests.
type LatencyStats struct {
	Min          time.Duration `json:"min"`
	Max          time.Duration `json:"max"`
	Mean         time.Duration `json:"mean"`
	P50          time.Duration `json:"p50"`
	P95          time.Duration `json:"p95"`
	P99          time.Duration `json:"p99"`
	TotalQueries int           `json:"totalQueries"`
	Errors       int           `json:"errors"`
}

// Populate inserts the synthetic dataset into db. Generation is seeded, so
// the same options always produce the same records.
func Populate(ctx context.Context, db *localdb.DB, opts Options) (*Dataset, error) {
	if opts.Classes <= 0 || opts.StudentsPerClass <= 0 || opts.AttendanceDays < 0 {
		return nil, fmt.Errorf("invalid load test options: %+v", opts)
	}

	rng := rand.New(rand.NewSource(42))
	base := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)
	ds := &Dataset{DB: db}

	classes := generateClasses(opts.Classes, base)
	if err := db.BulkInsert(ctx, classes); err != nil {
		return nil, fmt.Errorf("failed to insert classes: %w", err)
	}
	for _, c := range classes {
		ds.ClassIDs = append(ds.ClassIDs, c.LocalID())
	}

	students := generateStudents(ds.ClassIDs, opts.StudentsPerClass, base, rng)
	if err := db.BulkInsert(ctx, students); err != nil {
		return nil, fmt.Errorf("failed to insert students: %w", err)
	}
	for _, s := range students {
		ds.StudentIDs = append(ds.StudentIDs, s.LocalID())
	}

	// One transaction per day keeps each insert batch a realistic size.
	for day := 0; day < opts.AttendanceDays; day++ {
		marks := generateAttendance(students, base.AddDate(0, 0, day), rng)
		if err := db.BulkInsert(ctx, marks); err != nil {
			return nil, fmt.Errorf("failed to insert attendance for day %d: %w", day, err)
		}
		ds.Attendance += len(marks)
	}

	return ds, nil
}

func generateClasses(n int, base time.Time) []schema.Entity {
	out := make([]schema.Entity, n)
	for i := range out {
		out[i] = &schema.Class{
			Name:         fmt.Sprintf("Grade %d", i/2+1),
			Section:      string(rune('A' + i%2)),
			AcademicYear: "2026",
			Capacity:     45,
			CreatedAt:    base,
		}
	}
	return out
}

func generateStudents(classIDs []int64, perClass int, base time.Time, rng *rand.Rand) []schema.Entity {
	genders := []string{"female", "male"}
	out := make([]schema.Entity, 0, len(classIDs)*perClass)

	for _, classID := range classIDs {
		for roll := 1; roll <= perClass; roll++ {
			n := len(out)
			dob := base.AddDate(-6-int(classID)/2, 0, -rng.Intn(365))
			out = append(out, &schema.Student{
				AdmissionNumber: fmt.Sprintf("ADM-%05d", n+1),
				FirstName:       fmt.Sprintf("Student%d", n+1),
				LastName:        fmt.Sprintf("Family%d", rng.Intn(500)),
				ClassID:         classID,
				RollNumber:      roll,
				Gender:          genders[rng.Intn(len(genders))],
				DateOfBirth:     &dob,
				Guardian: &schema.Guardian{
					Name:  fmt.Sprintf("Guardian%d", n+1),
					Phone: fmt.Sprintf("+2547%08d", rng.Intn(100000000)),
				},
				Status:     schema.StudentActive,
				AdmittedAt: base,
				CreatedAt:  base,
				UpdatedAt:  base,
			})
		}
	}
	return out
}

// generateAttendance marks every student for one day: mostly present, with
// roughly 8% absent and 4% late.
func generateAttendance(students []schema.Entity, day time.Time, rng *rand.Rand) []schema.Entity {
	out := make([]schema.Entity, len(students))
	for i, e := range students {
		s := e.(*schema.Student)

		status := schema.Present
		switch r := rng.Intn(100); {
		case r < 8:
			status = schema.Absent
		case r < 12:
			status = schema.Late
		}

		out[i] = &schema.Attendance{
			StudentID: s.LocalID(),
			ClassID:   s.ClassID,
			Date:      day.Format(time.DateOnly),
			Status:    status,
			CreatedAt: day,
		}
	}
	return out
}

// RunConcurrentQueries simulates workers looking up class rosters at once,
// the way several front-desk terminals would.
//
// Each worker performs queriesPerWorker lookups, recording latency for each.
func (d *Dataset) RunConcurrentQueries(ctx context.Context, workers, queriesPerWorker int) (*LatencyStats, error) {
	if len(d.ClassIDs) == 0 {
		return nil, fmt.Errorf("dataset has no classes")
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		all      []time.Duration
		errCount int
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()

			durations := make([]time.Duration, 0, queriesPerWorker)
			errs := 0
			for j := 0; j < queriesPerWorker; j++ {
				classID := d.ClassIDs[(worker+j)%len(d.ClassIDs)]

				start := time.Now()
				_, err := d.DB.QueryByIndex(ctx, schema.Students, "classId", classID)
				durations = append(durations, time.Since(start))
				if err != nil {
					errs++
				}
			}

			mu.Lock()
			all = append(all, durations...)
			errCount += errs
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	if len(all) == 0 {
		return nil, fmt.Errorf("no queries completed")
	}

	stats := computeLatencyStats(all)
	stats.Errors = errCount
	return stats, nil
}

// Syncer is the part of the sync engine the load test drives.
type Syncer interface {
	SyncAll(ctx context.Context) error
}

// SyncResult describes one measured full sync.
type SyncResult struct {
	Records  int           `json:"records"`
	Duration time.Duration `json:"duration"`
	// PerSecond is records pushed per second.
	PerSecond float64 `json:"perSecond"`
}

// MeasureSync times one full sync of the dataset.
func (d *Dataset) MeasureSync(ctx context.Context, s Syncer) (*SyncResult, error) {
	start := time.Now()
	if err := s.SyncAll(ctx); err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	res := &SyncResult{Records: d.Total(), Duration: elapsed}
	if elapsed > 0 {
		res.PerSecond = float64(res.Records) / elapsed.Seconds()
	}
	return res, nil
}

// WriteResult describes local writes made while a sync was running.
type WriteResult struct {
	Writes  int           `json:"writes"`
	Errors  int           `json:"errors"`
	Latency *LatencyStats `json:"latency,omitempty"`
}

// RunWritesDuringSync runs a full sync while writers keep inserting
// attendance marks, and reports how the local writes fared. The sync's own
// error is returned alongside the write result.
func (d *Dataset) RunWritesDuringSync(ctx context.Context, s Syncer, writers int) (*WriteResult, error) {
	if len(d.StudentIDs) == 0 {
		return nil, fmt.Errorf("dataset has no students")
	}

	students, err := d.DB.GetAll(ctx, schema.Students)
	if err != nil {
		return nil, err
	}

	syncDone := make(chan error, 1)
	go func() { syncDone <- s.SyncAll(ctx) }()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		res  WriteResult
		all  []time.Duration
		stop = make(chan struct{})
	)

	day := time.Date(2027, 1, 4, 8, 0, 0, 0, time.UTC)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(writer int) {
			defer wg.Done()

			// Every writer makes at least one write, however short the sync.
			for n := 0; ; n++ {
				st := students[(writer+n*writers)%len(students)].(*schema.Student)
				mark := &schema.Attendance{
					StudentID: st.LocalID(),
					ClassID:   st.ClassID,
					Date:      day.AddDate(0, 0, n).Format(time.DateOnly),
					Status:    schema.Present,
					CreatedAt: day,
				}

				start := time.Now()
				_, err := d.DB.Insert(ctx, mark)
				elapsed := time.Since(start)

				mu.Lock()
				res.Writes++
				all = append(all, elapsed)
				if err != nil {
					res.Errors++
				}
				mu.Unlock()

				select {
				case <-stop:
					return
				default:
				}
			}
		}(i)
	}

	syncErr := <-syncDone
	close(stop)
	wg.Wait()

	if len(all) > 0 {
		res.Latency = computeLatencyStats(all)
		res.Latency.Errors = res.Errors
	}
	return &res, syncErr
}

// computeLatencyStats calculates statistics from a slice of durations.
func computeLatencyStats(durations []time.Duration) *LatencyStats {
	if len(durations) == 0 {
		return &LatencyStats{}
	}

	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	var sum time.Duration
	for _, d := range sorted {
		sum += d
	}

	return &LatencyStats{
		Min:          sorted[0],
		Max:          sorted[len(sorted)-1],
		Mean:         sum / time.Duration(len(sorted)),
		P50:          sorted[len(sorted)*50/100],
		P95:          sorted[len(sorted)*95/100],
		P99:          sorted[len(sorted)*99/100],
		TotalQueries: len(sorted),
	}
}

// PrintStats formats and prints latency statistics.
func (s *LatencyStats) PrintStats() {
	fmt.Printf("  Operations:    %d\n", s.TotalQueries)
	fmt.Printf("  Errors:        %d\n", s.Errors)
	fmt.Printf("  Min:           %v\n", s.Min)
	fmt.Printf("  P50 (Median):  %v\n", s.P50)
	fmt.Printf("  Mean:          %v\n", s.Mean)
	fmt.Printf("  P95:           %v\n", s.P95)
	fmt.Printf("  P99:           %v\n", s.P99)
	fmt.Printf("  Max:           %v\n", s.Max)
}
