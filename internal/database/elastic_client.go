package database

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/locvowork/wage_calculator/internal/domain"
	"github.com/olivere/elastic/v7"
)

// DefaultHistoryIndex is the index calculations are written to.
const DefaultHistoryIndex = "wage_calculations"

const historyMapping = `{
	"mappings": {
		"properties": {
			"calculation_id": {"type": "keyword"},
			"session_id":     {"type": "keyword"},
			"role":           {"type": "keyword"},
			"age":            {"type": "integer"},
			"shift_count":    {"type": "integer"},
			"total_hours":    {"type": "scaled_float", "scaling_factor": 100},
			"weekly_wage":    {"type": "scaled_float", "scaling_factor": 100},
			"monthly_wage":   {"type": "scaled_float", "scaling_factor": 100},
			"calculated_at":  {"type": "date"}
		}
	}
}`

// ElasticSearchClient wraps olivere/elastic client.
type ElasticSearchClient struct {
	client *elastic.Client
	index  string
}

// NewElasticSearchClient creates a new client for Elasticsearch 7.x.
func NewElasticSearchClient(url, index string) (*ElasticSearchClient, error) {
	client, err := elastic.NewClient(
		elastic.SetURL(url),
		elastic.SetSniff(false), // Essential when using Docker or cloud
		elastic.SetHealthcheck(false),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	if index == "" {
		index = DefaultHistoryIndex
	}
	return &ElasticSearchClient{client: client, index: index}, nil
}

// EnsureIndex creates the history index with its mapping if it does not exist.
func (es *ElasticSearchClient) EnsureIndex(ctx context.Context) error {
	exists, err := es.client.IndexExists(es.index).Do(ctx)
	if err != nil {
		return fmt.Errorf("check index %s: %w", es.index, err)
	}
	if exists {
		return nil
	}

	if _, err := es.client.CreateIndex(es.index).BodyString(historyMapping).Do(ctx); err != nil {
		return fmt.Errorf("create index %s: %w", es.index, err)
	}
	return nil
}

// Record indexes a calculation using its ID as document ID.
func (es *ElasticSearchClient) Record(ctx context.Context, rec domain.CalculationRecord) error {
	_, err := es.client.Index().
		Index(es.index).
		Id(rec.CalculationID).
		BodyJson(rec).
		Refresh("true"). // Make changes immediately searchable
		Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to index calculation %s: %w", rec.CalculationID, err)
	}
	return nil
}

// Recent returns the newest calculations, optionally for one role only.
func (es *ElasticSearchClient) Recent(ctx context.Context, role domain.Role, limit int) ([]domain.CalculationRecord, error) {
	var query elastic.Query = elastic.NewMatchAllQuery()
	if role != "" {
		query = elastic.NewTermQuery("role", string(role))
	}
	if limit <= 0 {
		limit = 100
	}

	result, err := es.client.Search().
		Index(es.index).
		Query(query).
		Sort("calculated_at", false).
		Size(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	records := []domain.CalculationRecord{}
	if result.Hits == nil {
		return records, nil
	}
	for _, hit := range result.Hits.Hits {
		var rec domain.CalculationRecord
		if err := json.Unmarshal(hit.Source, &rec); err != nil {
			return nil, fmt.Errorf("decode calculation %s: %w", hit.Id, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

var _ domain.CalculationHistory = (*ElasticSearchClient)(nil)
