package models

import "time"

// Course is a top-level grouping of disciplines. JSON and column names follow the
// hosted schema so the same shape is used on the wire and in local storage.
type Course struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"nome" json:"nome"`
	Description string    `db:"descricao" json:"descricao"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// CourseRef is the course embed returned alongside disciplines.
type CourseRef struct {
	ID   string `json:"id"`
	Name string `json:"nome"`
}
