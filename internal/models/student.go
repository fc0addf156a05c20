package models

import "time"

// Student represents an enrolled student.
type Student struct {
	ID          string    `db:"id" json:"id"`
	FullName    string    `db:"full_name" json:"full_name"`
	RollNumber  string    `db:"roll_number" json:"roll_number"`
	ClassID     string    `db:"class_id" json:"class_id"`
	Department  string    `db:"department" json:"department"`
	Semester    int       `db:"semester" json:"semester"`
	Photo       *string   `db:"photo" json:"photo,omitempty"`
	ParentName  string    `db:"parent_name" json:"parent_name"`
	ParentPhone string    `db:"parent_phone" json:"parent_phone"`
	ParentEmail *string   `db:"parent_email" json:"parent_email,omitempty"`
	UserID      string    `db:"user_id" json:"user_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// StudentDetail extends the student row with class metadata.
type StudentDetail struct {
	Student
	ClassName    *ClassName `db:"class_name" json:"class_name,omitempty"`
	ClassSection *string    `db:"class_section" json:"class_section,omitempty"`
}

// StudentFilter captures filtering criteria for student listings.
type StudentFilter struct {
	Search    string
	ClassID   string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// RosterEntry is the slim projection used by class rosters and reports.
type RosterEntry struct {
	ID         string  `db:"id" json:"id"`
	FullName   string  `db:"full_name" json:"full_name"`
	RollNumber string  `db:"roll_number" json:"roll_number"`
	Photo      *string `db:"photo" json:"photo,omitempty"`
}

// CreateStudentRequest enrolls a student and provisions their login.
type CreateStudentRequest struct {
	FullName    string  `json:"full_name" validate:"required"`
	RollNumber  string  `json:"roll_number" validate:"required"`
	ClassID     string  `json:"class_id" validate:"required"`
	Department  string  `json:"department" validate:"required"`
	Semester    int     `json:"semester" validate:"required,min=1,max=8"`
	Photo       *string `json:"photo,omitempty"`
	ParentName  string  `json:"parent_name" validate:"required"`
	ParentPhone string  `json:"parent_phone" validate:"required,parent_phone"`
	ParentEmail *string `json:"parent_email,omitempty" validate:"omitempty,email"`
}

// UpdateStudentRequest edits an enrolled student.
type UpdateStudentRequest struct {
	FullName    *string `json:"full_name,omitempty"`
	RollNumber  *string `json:"roll_number,omitempty"`
	ClassID     *string `json:"class_id,omitempty"`
	Department  *string `json:"department,omitempty"`
	Semester    *int    `json:"semester,omitempty" validate:"omitempty,min=1,max=8"`
	Photo       *string `json:"photo,omitempty"`
	ParentName  *string `json:"parent_name,omitempty"`
	ParentPhone *string `json:"parent_phone,omitempty" validate:"omitempty,parent_phone"`
	ParentEmail *string `json:"parent_email,omitempty" validate:"omitempty,email"`
}

// StudentProfile is the student-facing view of their own enrollment.
type StudentProfile struct {
	StudentDetail
	Email      string `json:"email"`
	Percentage int    `json:"attendance_percentage"`
	TotalDays  int    `json:"total_days"`
	Present    int    `json:"present"`
	Absent     int    `json:"absent"`
}

// StudentCredentials carries the generated login, returned once at creation.
type StudentCredentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
