package schema

import "time"

// Institute is the school profile. A deployment normally holds one.
type Institute struct {
	Record

	Name       string     `json:"name"`
	Code       string     `json:"code"`
	Address    string     `json:"address,omitempty"`
	Phone      string     `json:"phone,omitempty"`
	Email      string     `json:"email,omitempty"`
	Principal  string     `json:"principal,omitempty"`
	Verified   bool       `json:"verified"`
	VerifiedAt *time.Time `json:"verifiedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

func (i *Institute) Collection() Collection { return Institutes }

func (i *Institute) Validate() error {
	return firstErr(
		required("name", i.Name),
		required("code", i.Code),
		requiredTime("createdAt", i.CreatedAt),
	)
}

func (i *Institute) Document() map[string]any {
	return map[string]any{
		"name":       i.Name,
		"code":       i.Code,
		"address":    i.Address,
		"phone":      i.Phone,
		"email":      i.Email,
		"principal":  i.Principal,
		"verified":   i.Verified,
		"verifiedAt": optTime(i.VerifiedAt),
		"createdAt":  i.CreatedAt,
		"updatedAt":  i.UpdatedAt,
	}
}

// Class is a class/section within an academic year.
type Class struct {
	Record

	Name           string    `json:"name"`
	Section        string    `json:"section,omitempty"`
	AcademicYear   string    `json:"academicYear"`
	ClassTeacherID *int64    `json:"classTeacherId,omitempty"`
	Capacity       int       `json:"capacity"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (c *Class) Collection() Collection { return Classes }

func (c *Class) Validate() error {
	return firstErr(
		required("name", c.Name),
		required("academicYear", c.AcademicYear),
		requiredTime("createdAt", c.CreatedAt),
	)
}

func (c *Class) Document() map[string]any {
	return map[string]any{
		"name":           c.Name,
		"section":        c.Section,
		"academicYear":   c.AcademicYear,
		"classTeacherId": optInt(c.ClassTeacherID),
		"capacity":       c.Capacity,
		"createdAt":      c.CreatedAt,
	}
}

// Staff is a teaching or administrative employee.
type Staff struct {
	Record

	EmployeeID string    `json:"employeeId"`
	Name       string    `json:"name"`
	Role       string    `json:"role"` // teacher, accountant, admin, ...
	Phone      string    `json:"phone,omitempty"`
	Email      string    `json:"email,omitempty"`
	JoinedAt   time.Time `json:"joinedAt"`
	Salary     float64   `json:"salary"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (s *Staff) Collection() Collection { return StaffMembers }

func (s *Staff) Validate() error {
	return firstErr(
		required("employeeId", s.EmployeeID),
		required("name", s.Name),
		required("role", s.Role),
		requiredTime("createdAt", s.CreatedAt),
	)
}

func (s *Staff) Document() map[string]any {
	return map[string]any{
		"employeeId": s.EmployeeID,
		"name":       s.Name,
		"role":       s.Role,
		"phone":      s.Phone,
		"email":      s.Email,
		"joinedAt":   s.JoinedAt,
		"salary":     s.Salary,
		"active":     s.Active,
		"createdAt":  s.CreatedAt,
	}
}
