// internal/backend/search/search.go
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"pharmacy-agent/internal/backend"
	"pharmacy-agent/internal/common/logger"
	"pharmacy-agent/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const maxResults = 20

var (
	ErrSearchQueryFailed = errors.New("SEARCH_QUERY_FAILED")
	ErrIndexingFailed    = errors.New("INDEXING_FAILED")
)

// Searcher serves SearchMedicines from an Elasticsearch index and delegates
// every other operation to the wrapped backend. When the index cannot be
// queried the wrapped backend answers instead.
type Searcher struct {
	backend.Operations
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func New(next backend.Operations, client *elasticsearch.Client, index string, log logger.Logger) *Searcher {
	return &Searcher{
		Operations: next,
		client:     client,
		index:      index,
		logger:     log.WithFields(map[string]interface{}{"component": "search", "index": index}),
	}
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source models.Medicine `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (s *Searcher) SearchMedicines(ctx context.Context, query string) (*models.ToolResult, error) {
	items, err := s.search(ctx, query)
	if err != nil {
		s.logger.Warn("Search index unavailable, using backend", map[string]interface{}{
			"error": err.Error(),
		})
		return s.Operations.SearchMedicines(ctx, query)
	}
	return models.Success(models.InventoryResult{Query: query, Items: items}), nil
}

func (s *Searcher) search(ctx context.Context, query string) ([]models.Medicine, error) {
	body, err := json.Marshal(buildQuery(query))
	if err != nil {
		return nil, err
	}

	req := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  bytes.NewReader(body),
		Size:  esapi.IntPtr(maxResults),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchQueryFailed, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("%w: %s", ErrSearchQueryFailed, res.String())
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchQueryFailed, err)
	}

	items := make([]models.Medicine, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		items = append(items, hit.Source)
	}
	return items, nil
}

// buildQuery matches names fuzzily, boosting prefix matches. An empty query
// returns everything.
func buildQuery(query string) map[string]interface{} {
	if query == "" {
		return map[string]interface{}{"query": map[string]interface{}{"match_all": map[string]interface{}{}}}
	}
	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"should": []interface{}{
					map[string]interface{}{
						"match": map[string]interface{}{
							"name": map[string]interface{}{"query": query, "fuzziness": "AUTO"},
						},
					},
					map[string]interface{}{
						"match_phrase_prefix": map[string]interface{}{
							"name": map[string]interface{}{"query": query, "boost": 2},
						},
					},
				},
				"minimum_should_match": 1,
			},
		},
	}
}

// Reindex copies the full catalogue of the wrapped backend into the index.
func (s *Searcher) Reindex(ctx context.Context) (int, error) {
	res, err := s.Operations.SearchMedicines(ctx, "")
	if err != nil {
		return 0, err
	}
	inv, ok := res.Data.(models.InventoryResult)
	if !ok {
		return 0, fmt.Errorf("%w: unexpected catalogue payload %q", ErrIndexingFailed, res.Kind())
	}

	for _, med := range inv.Items {
		if err := s.IndexMedicine(ctx, med); err != nil {
			return 0, err
		}
	}

	s.logger.Info("Catalogue indexed", map[string]interface{}{"count": len(inv.Items)})
	return len(inv.Items), nil
}

func (s *Searcher) IndexMedicine(ctx context.Context, med models.Medicine) error {
	body, err := json.Marshal(med)
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      s.index,
		DocumentID: strconv.FormatInt(med.ID, 10),
		Body:       bytes.NewReader(body),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIndexingFailed, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("%w: %s", ErrIndexingFailed, res.String())
	}
	return nil
}
