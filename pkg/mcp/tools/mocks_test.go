package tools

import (
	"context"

	"github.com/graphscout-inc/graphscout-engine/pkg/models"
	"github.com/graphscout-inc/graphscout-engine/pkg/services"
)

// mockQueryService implements services.QueryService for testing.
type mockQueryService struct {
	preview *models.ResultPreview
	err     error
	calls   []queryCall
}

type queryCall struct {
	queryText string
	language  models.QueryLanguage
}

func (m *mockQueryService) Run(ctx context.Context, queryText string, language models.QueryLanguage) (*models.ResultPreview, error) {
	m.calls = append(m.calls, queryCall{queryText: queryText, language: language})
	if m.err != nil {
		return nil, m.err
	}
	return m.preview, nil
}

var _ services.QueryService = (*mockQueryService)(nil)

// mockExportService implements services.ExportService for testing.
type mockExportService struct {
	record *models.ExportRecord
	err    error
	hints  []string
}

func (m *mockExportService) Export(ctx context.Context, filenameHint string) (*models.ExportRecord, error) {
	m.hints = append(m.hints, filenameHint)
	if m.err != nil {
		return nil, m.err
	}
	return m.record, nil
}

func (m *mockExportService) ListExports() ([]models.ExportRecord, error) {
	return nil, nil
}

func (m *mockExportService) ExportInfo(filename string) (*models.ExportRecord, error) {
	return nil, nil
}

var _ services.ExportService = (*mockExportService)(nil)

// mockSchemaService implements services.SchemaService for testing.
type mockSchemaService struct {
	doc       *models.SchemaDocument
	err       error
	discovers int
}

func (m *mockSchemaService) Discover(ctx context.Context) (*models.SchemaDocument, error) {
	m.discovers++
	return m.doc, m.err
}

func (m *mockSchemaService) Current() *models.SchemaDocument {
	return m.doc
}

func (m *mockSchemaService) Load() (*models.SchemaDocument, error) {
	return m.doc, nil
}

var _ services.SchemaService = (*mockSchemaService)(nil)
