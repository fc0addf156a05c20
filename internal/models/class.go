package models

import "time"

// ClassName is the year label of a class group.
type ClassName string

const (
	ClassFirstYear  ClassName = "FE"
	ClassSecondYear ClassName = "SE"
	ClassThirdYear  ClassName = "TE"
	ClassFinalYear  ClassName = "BE"
)

// Valid reports whether the name is one of the supported year labels.
func (n ClassName) Valid() bool {
	switch n {
	case ClassFirstYear, ClassSecondYear, ClassThirdYear, ClassFinalYear:
		return true
	default:
		return false
	}
}

// CreateClassRequest registers a new class group.
type CreateClassRequest struct {
	Name    ClassName `json:"name" validate:"required,oneof=FE SE TE BE"`
	Section string    `json:"section" validate:"required"`
}

// ClassGroup is a year/section grouping of students.
type ClassGroup struct {
	ID        string    `db:"id" json:"id"`
	Name      ClassName `db:"name" json:"name"`
	Section   string    `db:"section" json:"section"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
