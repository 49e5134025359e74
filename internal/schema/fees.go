package schema

import (
	"fmt"
	"time"
)

// FeeStructure is a fee head charged to a class.
type FeeStructure struct {
	Record

	ClassID      int64     `json:"classId"`
	Name         string    `json:"name"`
	Amount       float64   `json:"amount"`
	Frequency    string    `json:"frequency"` // monthly, termly, yearly, once
	DueDay       int       `json:"dueDay,omitempty"`
	AcademicYear string    `json:"academicYear"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (f *FeeStructure) Collection() Collection { return FeeStructures }

func (f *FeeStructure) Validate() error {
	if err := firstErr(
		requiredRef("classId", f.ClassID),
		required("name", f.Name),
		required("academicYear", f.AcademicYear),
	); err != nil {
		return err
	}
	if f.Amount < 0 {
		return fmt.Errorf("amount must not be negative (got %v)", f.Amount)
	}
	return nil
}

func (f *FeeStructure) Document() map[string]any {
	return map[string]any{
		"classId":      f.ClassID,
		"name":         f.Name,
		"amount":       f.Amount,
		"frequency":    f.Frequency,
		"dueDay":       f.DueDay,
		"academicYear": f.AcademicYear,
		"createdAt":    f.CreatedAt,
	}
}

// FeeTransaction is a recorded payment against a fee structure.
type FeeTransaction struct {
	Record

	StudentID      int64     `json:"studentId"`
	FeeStructureID int64     `json:"feeStructureId"`
	Amount         float64   `json:"amount"`
	Method         string    `json:"method"` // cash, bank, mobile
	ReceiptNumber  string    `json:"receiptNumber"`
	PaidDate       time.Time `json:"paidDate"`
	Remarks        string    `json:"remarks,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (f *FeeTransaction) Collection() Collection { return FeeTransactions }

func (f *FeeTransaction) Validate() error {
	if err := firstErr(
		requiredRef("studentId", f.StudentID),
		requiredRef("feeStructureId", f.FeeStructureID),
		required("receiptNumber", f.ReceiptNumber),
		requiredTime("paidDate", f.PaidDate),
	); err != nil {
		return err
	}
	if f.Amount <= 0 {
		return fmt.Errorf("amount must be positive (got %v)", f.Amount)
	}
	return nil
}

func (f *FeeTransaction) Document() map[string]any {
	return map[string]any{
		"studentId":      f.StudentID,
		"feeStructureId": f.FeeStructureID,
		"amount":         f.Amount,
		"method":         f.Method,
		"receiptNumber":  f.ReceiptNumber,
		"paidDate":       f.PaidDate,
		"remarks":        f.Remarks,
		"createdAt":      f.CreatedAt,
	}
}
