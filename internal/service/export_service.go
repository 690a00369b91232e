package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/estudaia-api/internal/dto"
	"github.com/noah-isme/estudaia-api/internal/models"
	appErrors "github.com/noah-isme/estudaia-api/pkg/errors"
	"github.com/noah-isme/estudaia-api/pkg/export"
)

var catalogHeaders = []string{"curso", "disciplina", "pasta", "descricao"}

type catalogReader interface {
	ListCourses(ctx context.Context) ([]models.Course, error)
	ListDisciplines(ctx context.Context) ([]models.Discipline, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportService flattens the catalog into one row per discipline and renders it.
type ExportService struct {
	catalog catalogReader
	csv     csvRenderer
	pdf     pdfRenderer
	logger  *zap.Logger
	now     func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(catalog catalogReader, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{catalog: catalog, csv: csv, pdf: pdf, logger: logger, now: time.Now}
}

// Generate renders the catalog in the requested format. Courses without disciplines
// still get one row so the export lists every course.
func (s *ExportService) Generate(ctx context.Context, format dto.ExportFormat) (*dto.CatalogExport, error) {
	dataset, err := s.buildDataset(ctx)
	if err != nil {
		return nil, err
	}

	stamp := s.now().UTC().Format("20060102-150405")
	var out dto.CatalogExport
	switch format {
	case dto.ExportFormatCSV, "":
		out.Body, err = s.csv.Render(dataset)
		out.ContentType = "text/csv; charset=utf-8"
		out.Filename = fmt.Sprintf("catalogo-%s.csv", stamp)
	case dto.ExportFormatPDF:
		out.Body, err = s.pdf.Render(dataset, "Catálogo de cursos e disciplinas")
		out.ContentType = "application/pdf"
		out.Filename = fmt.Sprintf("catalogo-%s.pdf", stamp)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	if err != nil {
		s.logger.Error("render catalog export", zap.String("format", string(format)), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return &out, nil
}

func (s *ExportService) buildDataset(ctx context.Context) (export.Dataset, error) {
	courses, err := s.catalog.ListCourses(ctx)
	if err != nil {
		return export.Dataset{}, err
	}
	disciplines, err := s.catalog.ListDisciplines(ctx)
	if err != nil {
		return export.Dataset{}, err
	}

	byCourse := make(map[string][]models.Discipline, len(courses))
	for _, d := range disciplines {
		byCourse[d.CourseID] = append(byCourse[d.CourseID], d)
	}

	rows := make([]map[string]string, 0, len(disciplines)+len(courses))
	for _, course := range courses {
		items := byCourse[course.ID]
		if len(items) == 0 {
			rows = append(rows, map[string]string{"curso": course.Name, "descricao": course.Description})
			continue
		}
		for _, d := range items {
			rows = append(rows, map[string]string{
				"curso":      course.Name,
				"disciplina": d.Name,
				"pasta":      d.FolderRef,
				"descricao":  d.ShortDescription,
			})
		}
	}
	return export.Dataset{Headers: catalogHeaders, Rows: rows}, nil
}
