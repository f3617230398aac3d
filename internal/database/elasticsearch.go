package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

func connectElasticsearch(ctx context.Context, cfg Config) (*elasticsearch.Client, *http.Transport, error) {
	address := cfg.URL
	if address == "" {
		address = "http://" + cfg.Host + ":" + strconv.Itoa(cfg.Port)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:     []string{address},
		Transport:     transport,
		Username:      cfg.User,
		Password:      cfg.Password,
		RetryOnStatus: []int{502, 503, 504, 429},
		MaxRetries:    cfg.MaxRetries,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	if err := ensureIndex(ctx, es, cfg.CollectionName()); err != nil {
		transport.CloseIdleConnections()
		return nil, nil, fmt.Errorf("failed to ensure index exists: %w", err)
	}

	return es, transport, nil
}

// ensureIndex creates the ticket index if it does not exist. Strings are mapped as
// keywords so that equality filters and ordering behave like the other drivers.
func ensureIndex(ctx context.Context, es *elasticsearch.Client, index string) error {
	req := esapi.IndicesExistsRequest{
		Index: []string{index},
	}

	res, err := req.Do(ctx, es)
	if err != nil {
		return fmt.Errorf("failed to check index existence: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == 200 {
		slog.Info("Elasticsearch index already exists", "index", index)
		return nil
	}

	mapping := map[string]interface{}{
		"settings": map[string]interface{}{
			"number_of_shards":   1,
			"number_of_replicas": 0,
		},
		"mappings": map[string]interface{}{
			"dynamic_templates": []interface{}{
				map[string]interface{}{
					"strings_as_keywords": map[string]interface{}{
						"match_mapping_type": "string",
						"mapping": map[string]interface{}{
							"type": "keyword",
						},
					},
				},
			},
			"properties": map[string]interface{}{
				"id":       map[string]interface{}{"type": "keyword"},
				"eventoId": map[string]interface{}{"type": "double"},
				"fecha":    map[string]interface{}{"type": "keyword"},
				"hora":     map[string]interface{}{"type": "double"},
				"duracion": map[string]interface{}{"type": "double"},
				"precio":   map[string]interface{}{"type": "double"},
				"silla":    map[string]interface{}{"type": "double"},
			},
		},
	}

	mappingJSON, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("failed to marshal mapping: %w", err)
	}

	createReq := esapi.IndicesCreateRequest{
		Index: index,
		Body:  strings.NewReader(string(mappingJSON)),
	}

	createRes, err := createReq.Do(ctx, es)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer createRes.Body.Close()

	if createRes.IsError() {
		return fmt.Errorf("failed to create index: %s", createRes.String())
	}

	slog.Info("Created Elasticsearch index", "index", index)
	return nil
}
