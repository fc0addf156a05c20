package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Subject is a taught subject name/code pair. The list is insertion-ordered
// and names are not required to be unique.
type Subject struct {
	Name string `json:"name" validate:"required"`
	Code string `json:"code"`
}

// SubjectList stores subjects as a JSONB column.
type SubjectList []Subject

// Value implements driver.Valuer.
func (l SubjectList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner.
func (l *SubjectList) Scan(src interface{}) error {
	if src == nil {
		*l = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("unsupported subject list source type %T", src)
	}
}

// Teacher represents a teaching profile linked to a login identity.
type Teacher struct {
	ID            string      `db:"id" json:"id"`
	UserID        string      `db:"user_id" json:"user_id"`
	FullName      string      `db:"full_name" json:"full_name"`
	Department    string      `db:"department" json:"department"`
	Subjects      SubjectList `db:"subjects" json:"subjects"`
	ContactNumber *string     `db:"contact_number" json:"contact_number,omitempty"`
	CreatedAt     time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time   `db:"updated_at" json:"updated_at"`
}

// UpdateTeacherProfileRequest edits the caller's teaching profile.
type UpdateTeacherProfileRequest struct {
	Department    string      `json:"department" validate:"required"`
	Subjects      SubjectList `json:"subjects" validate:"required,min=1,dive"`
	ContactNumber *string     `json:"contact_number,omitempty"`
	ClassIDs      []string    `json:"class_ids" validate:"required,min=1,dive,required"`
}

// TeacherProfile bundles the teacher row with its assigned classes.
type TeacherProfile struct {
	Teacher
	AssignedClasses []ClassGroup `json:"assigned_classes"`
}
