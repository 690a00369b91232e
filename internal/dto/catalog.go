package dto

// CourseRequest is the admin course form.
type CourseRequest struct {
	Name        string `json:"nome" validate:"required"`
	Description string `json:"descricao"`
}

// DisciplineRequest is the admin discipline form.
type DisciplineRequest struct {
	Name             string `json:"nome" validate:"required"`
	CourseID         string `json:"curso_id" validate:"required"`
	FolderRef        string `json:"google_drive_folder_id" validate:"required"`
	ShortDescription string `json:"descricao_breve"`
}
