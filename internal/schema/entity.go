package schema

import (
	"fmt"
	"time"
)

// Entity is a locally stored record that can be mirrored remotely.
type Entity interface {
	// Collection returns the collection the entity belongs to.
	Collection() Collection

	// LocalID returns the local identity, or 0 if the record was never stored.
	LocalID() int64

	// SetLocalID is called by the local store after the first insert.
	SetLocalID(id int64)

	// Document returns the entity as a field map. Unset optional fields are
	// nil and must be treated as absent.
	Document() map[string]any

	// Validate checks required fields before a local write.
	Validate() error
}

// Record carries the local identity shared by all entities.
type Record struct {
	ID int64 `json:"id,omitempty"`
}

// LocalID implements Entity.LocalID.
func (r *Record) LocalID() int64 { return r.ID }

// SetLocalID implements Entity.SetLocalID.
func (r *Record) SetLocalID(id int64) { r.ID = id }

// optTime reports a nil pointer as an absent field.
func optTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func optInt(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func required(field, value string) error {
	if value == "" {
		return fmt.Errorf("%s is required", field)
	}
	return nil
}

func requiredRef(field string, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%s must reference a stored record (got %d)", field, id)
	}
	return nil
}

func requiredTime(field string, t time.Time) error {
	if t.IsZero() {
		return fmt.Errorf("%s is required", field)
	}
	return nil
}

// firstErr returns the first non-nil error.
func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
