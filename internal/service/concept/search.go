package concept

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/ashwinyue/next-concept/internal/model"
)

// Indexer 概念搜索索引
type Indexer interface {
	EnsureIndex(ctx context.Context) error
	Index(ctx context.Context, c *model.Concept) error
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, query string, limit int) ([]model.ConceptSummary, error)
}

// ESIndexer 基于 Elasticsearch 的概念索引
type ESIndexer struct {
	client *elasticsearch.Client
	index  string
}

// NewESIndexer 创建 ES 概念索引
func NewESIndexer(client *elasticsearch.Client, index string) *ESIndexer {
	return &ESIndexer{client: client, index: index}
}

// conceptDocument 索引文档
type conceptDocument struct {
	ID          string   `json:"id"`
	Label       string   `json:"label"`
	Layer       string   `json:"layer"`
	Inherits    string   `json:"inherits"`
	Abstract    bool     `json:"abstract"`
	Description string   `json:"description"`
	Synonyms    []string `json:"synonyms"`
}

// EnsureIndex 索引不存在时创建
func (x *ESIndexer) EnsureIndex(ctx context.Context) error {
	res, err := esapi.IndicesExistsRequest{Index: []string{x.index}}.Do(ctx, x.client)
	if err != nil {
		return fmt.Errorf("failed to check index: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	mapping := map[string]interface{}{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"id":          map[string]interface{}{"type": "keyword", "fields": map[string]interface{}{"text": map[string]interface{}{"type": "text"}}},
				"label":       map[string]interface{}{"type": "text", "fields": map[string]interface{}{"raw": map[string]interface{}{"type": "keyword"}}},
				"layer":       map[string]interface{}{"type": "keyword"},
				"inherits":    map[string]interface{}{"type": "keyword"},
				"abstract":    map[string]interface{}{"type": "boolean"},
				"description": map[string]interface{}{"type": "text"},
				"synonyms":    map[string]interface{}{"type": "text"},
			},
		},
		"settings": map[string]interface{}{
			"number_of_shards":   1,
			"number_of_replicas": 0,
		},
	}

	mappingData, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("failed to marshal mapping: %w", err)
	}

	res, err = esapi.IndicesCreateRequest{
		Index: x.index,
		Body:  bytes.NewReader(mappingData),
	}.Do(ctx, x.client)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("failed to create index: %s", res.String())
	}
	return nil
}

// Index 写入或覆盖概念文档
func (x *ESIndexer) Index(ctx context.Context, c *model.Concept) error {
	doc := conceptDocument{
		ID:          c.ID,
		Label:       c.Label,
		Layer:       string(c.Layer),
		Inherits:    c.Inherits,
		Abstract:    c.Abstract,
		Description: c.Description,
		Synonyms:    c.Synonyms,
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	res, err := esapi.IndexRequest{
		Index:      x.index,
		DocumentID: c.ID,
		Body:       bytes.NewReader(data),
		Refresh:    "true",
	}.Do(ctx, x.client)
	if err != nil {
		return fmt.Errorf("failed to index concept: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("failed to index concept: %s", res.String())
	}
	return nil
}

// Delete 删除概念文档，文档不存在不视为错误
func (x *ESIndexer) Delete(ctx context.Context, id string) error {
	res, err := esapi.DeleteRequest{
		Index:      x.index,
		DocumentID: id,
		Refresh:    "true",
	}.Do(ctx, x.client)
	if err != nil {
		return fmt.Errorf("failed to delete concept document: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("failed to delete concept document: %s", res.String())
	}
	return nil
}

// Search 按标签、ID、同义词检索
func (x *ESIndexer) Search(ctx context.Context, query string, limit int) ([]model.ConceptSummary, error) {
	if limit <= 0 {
		limit = 10
	}

	var q map[string]interface{}
	if query == "" {
		q = map[string]interface{}{"match_all": map[string]interface{}{}}
	} else {
		q = map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"type":   "bool_prefix",
				"fields": []string{"label^3", "id.text^2", "synonyms", "description"},
			},
		}
	}

	body, err := json.Marshal(map[string]interface{}{
		"size":  limit,
		"query": q,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	res, err := x.client.Search(
		x.client.Search.WithContext(ctx),
		x.client.Search.WithIndex(x.index),
		x.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch error: %s", res.String())
	}

	var response struct {
		Hits struct {
			Hits []struct {
				ID     string          `json:"_id"`
				Score  float64         `json:"_score"`
				Source conceptDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	results := make([]model.ConceptSummary, 0, len(response.Hits.Hits))
	for _, hit := range response.Hits.Hits {
		id := hit.Source.ID
		if id == "" {
			id = hit.ID
		}
		results = append(results, model.ConceptSummary{
			ID:       id,
			Label:    hit.Source.Label,
			Layer:    model.Layer(hit.Source.Layer),
			Inherits: hit.Source.Inherits,
			Abstract: hit.Source.Abstract,
		})
	}
	return results, nil
}
