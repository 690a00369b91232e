package models

import "time"

// Discipline belongs to exactly one course and points at an external document folder.
type Discipline struct {
	ID               string     `db:"id" json:"id"`
	Name             string     `db:"nome" json:"nome"`
	CourseID         string     `db:"curso_id" json:"curso_id"`
	FolderRef        string     `db:"google_drive_folder_id" json:"google_drive_folder_id"`
	ShortDescription string     `db:"descricao_breve" json:"descricao_breve"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	Course           *CourseRef `db:"-" json:"courses,omitempty"`
}
