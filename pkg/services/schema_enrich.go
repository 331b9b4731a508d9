package services

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/graphscout-inc/graphscout-engine/pkg/jsonutil"
	"github.com/graphscout-inc/graphscout-engine/pkg/llm"
	"github.com/graphscout-inc/graphscout-engine/pkg/models"
	"github.com/graphscout-inc/graphscout-engine/pkg/prompts"
)

// enrichmentTemperature keeps description generation close to the
// sampled facts.
const enrichmentTemperature = 0.1

// typeDescription is the JSON shape the model returns for one type.
type typeDescription struct {
	Description string            `json:"description"`
	Properties  map[string]string `json:"properties"`
}

// UnmarshalJSON tolerates models that return numbers or booleans where
// description strings are expected, so one odd value does not drop the
// whole type's enrichment.
func (d *typeDescription) UnmarshalJSON(data []byte) error {
	type flexibleDescription struct {
		Description json.RawMessage            `json:"description"`
		Properties  map[string]json.RawMessage `json:"properties"`
	}

	var flex flexibleDescription
	if err := json.Unmarshal(data, &flex); err != nil {
		return err
	}

	d.Description = jsonutil.FlexibleStringValue(flex.Description)
	d.Properties = jsonutil.FlexibleStringMap(flex.Properties)
	return nil
}

// enrich asks the model for human-readable descriptions of each sampled
// type and writes them onto the document. Individual failures are logged
// and skipped; enrichment never fails a discovery pass.
func (s *schemaService) enrich(ctx context.Context, doc *models.SchemaDocument) {
	type target struct {
		kind  string
		index int
	}

	var items []llm.WorkItem[typeDescription]
	targets := map[string]target{}

	for i := range doc.Vertices {
		v := doc.Vertices[i]
		id := "vertex:" + v.Label
		items = append(items, llm.WorkItem[typeDescription]{
			ID:      id,
			Execute: s.describeType("vertex", v.Label, v.Count, v.Properties),
		})
		targets[id] = target{kind: "vertex", index: i}
	}
	for i := range doc.Edges {
		e := doc.Edges[i]
		id := "edge:" + e.Label
		items = append(items, llm.WorkItem[typeDescription]{
			ID:      id,
			Execute: s.describeType("edge", e.Label, e.Count, e.Properties),
		})
		targets[id] = target{kind: "edge", index: i}
	}
	if len(items) == 0 {
		return
	}

	s.logger.Info("enriching schema descriptions",
		zap.Int("types", len(items)),
		zap.Int("workers", s.cfg.EnrichWorkers))

	pool := llm.NewWorkerPool(llm.WorkerPoolConfig{MaxConcurrent: s.cfg.EnrichWorkers}, s.logger)
	for _, result := range llm.Process(ctx, pool, items, nil) {
		if result.Err != nil {
			s.logger.Warn("type description failed",
				zap.String("type", result.ID),
				zap.Error(result.Err))
			continue
		}

		t := targets[result.ID]
		switch t.kind {
		case "vertex":
			applyTypeDescription(&doc.Vertices[t.index], result.Result)
		case "edge":
			applyEdgeDescription(&doc.Edges[t.index], result.Result)
		}
	}
}

// describeType returns the work-item closure for one type.
func (s *schemaService) describeType(kind, label string, count int64, properties []models.PropertyInfo) func(ctx context.Context) (typeDescription, error) {
	return func(ctx context.Context) (typeDescription, error) {
		prompt := prompts.BuildTypeDescriptionPrompt(kind, label, count, properties)
		reply, err := s.client.GenerateResponse(ctx, prompt, prompts.BuildTypeDescriptionSystemMessage(), enrichmentTemperature)
		if err != nil {
			return typeDescription{}, err
		}

		desc, err := llm.DecodeReply[typeDescription](reply)
		if err != nil {
			return typeDescription{}, fmt.Errorf("parsing description reply: %w", err)
		}
		return desc, nil
	}
}

// applyTypeDescription writes generated descriptions onto a vertex type
// without touching sampled facts.
func applyTypeDescription(v *models.VertexType, desc typeDescription) {
	if desc.Description != "" {
		v.Description = desc.Description
	}
	for i := range v.Properties {
		if text, ok := desc.Properties[v.Properties[i].Name]; ok && text != "" {
			v.Properties[i].Description = text
		}
	}
}

func applyEdgeDescription(e *models.EdgeType, desc typeDescription) {
	if desc.Description != "" {
		e.Description = desc.Description
	}
	for i := range e.Properties {
		if text, ok := desc.Properties[e.Properties[i].Name]; ok && text != "" {
			e.Properties[i].Description = text
		}
	}
}
