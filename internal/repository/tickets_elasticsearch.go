package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "ticketapi/internal/errors"
	"ticketapi/internal/filter"
	"ticketapi/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
)

// maxResultWindow is the default index.max_result_window of Elasticsearch.
const maxResultWindow = 10000

// bulkPatchScript copies every key of params.patch into the matched document.
const bulkPatchScript = `for (entry in params.patch.entrySet()) { ctx._source[entry.getKey()] = entry.getValue(); }`

// ElasticsearchTicketRepository stores tickets as documents of one index. The
// generated id is used as the document id and is also kept in the source so that
// it can be filtered and sorted on.
type ElasticsearchTicketRepository struct {
	client *elasticsearch.Client
	index  string
}

func NewElasticsearchTicketRepository(client *elasticsearch.Client, index string) *ElasticsearchTicketRepository {
	return &ElasticsearchTicketRepository{client: client, index: index}
}

func (r *ElasticsearchTicketRepository) Create(ctx context.Context, in models.TicketInput) (*models.Ticket, error) {
	id := uuid.NewString()
	doc := in.Document()

	if err := r.put(ctx, id, doc, "create"); err != nil {
		return nil, err
	}
	return models.TicketFromDocument(id, doc), nil
}

func (r *ElasticsearchTicketRepository) put(ctx context.Context, id string, doc map[string]any, opType string) error {
	source := cloneDoc(doc)
	source[models.FieldID] = id

	body, err := json.Marshal(source)
	if err != nil {
		return fmt.Errorf("failed to marshal ticket: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      r.index,
		DocumentID: id,
		Body:       bytes.NewReader(body),
		OpType:     opType,
		Refresh:    "wait_for",
	}

	res, err := req.Do(ctx, r.client)
	if err != nil {
		return fmt.Errorf("failed to index ticket: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("failed to index ticket: %s", res.String())
	}
	return nil
}

func (r *ElasticsearchTicketRepository) Count(ctx context.Context, where filter.Where) (int64, error) {
	body, err := json.Marshal(map[string]any{"query": esQuery(where)})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal count query: %w", err)
	}

	req := esapi.CountRequest{
		Index: []string{r.index},
		Body:  bytes.NewReader(body),
	}

	var response struct {
		Count int64 `json:"count"`
	}
	if err := r.do(ctx, req, &response); err != nil {
		return 0, fmt.Errorf("failed to count tickets: %w", err)
	}
	return response.Count, nil
}

func (r *ElasticsearchTicketRepository) Find(ctx context.Context, f *filter.Filter) ([]*models.Ticket, error) {
	if f == nil {
		f = &filter.Filter{}
	}

	if f.Skip >= maxResultWindow {
		return []*models.Ticket{}, nil
	}

	size := maxResultWindow - f.Skip
	if f.Limit > 0 && f.Limit < size {
		size = f.Limit
	}

	searchRequest := map[string]any{
		"query": esQuery(f.Where),
		"from":  f.Skip,
		"size":  size,
	}
	if len(f.Order) > 0 {
		sort := make([]any, 0, len(f.Order))
		for _, o := range f.Order {
			dir := "asc"
			if o.Desc {
				dir = "desc"
			}
			sort = append(sort, map[string]any{
				o.Field: map[string]any{"order": dir, "unmapped_type": "keyword"},
			})
		}
		searchRequest["sort"] = sort
	}

	body, err := json.Marshal(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search query: %w", err)
	}

	req := esapi.SearchRequest{
		Index: []string{r.index},
		Body:  bytes.NewReader(body),
	}

	var response struct {
		Hits struct {
			Hits []struct {
				ID     string         `json:"_id"`
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := r.do(ctx, req, &response); err != nil {
		return nil, fmt.Errorf("failed to search tickets: %w", err)
	}

	tickets := make([]*models.Ticket, len(response.Hits.Hits))
	for i, hit := range response.Hits.Hits {
		tickets[i] = models.TicketFromDocument(hit.ID, hit.Source)
	}
	return tickets, nil
}

func (r *ElasticsearchTicketRepository) FindByID(ctx context.Context, id string) (*models.Ticket, error) {
	req := esapi.GetRequest{
		Index:      r.index,
		DocumentID: id,
	}

	var response struct {
		Source map[string]any `json:"_source"`
	}
	if err := r.do(ctx, req, &response); err != nil {
		if isNotFound(err) {
			return nil, apperrors.NotFound(id)
		}
		return nil, fmt.Errorf("failed to get ticket %s: %w", id, err)
	}
	return models.TicketFromDocument(id, response.Source), nil
}

func (r *ElasticsearchTicketRepository) UpdateAll(ctx context.Context, in models.TicketInput, where filter.Where) (int64, error) {
	body, err := json.Marshal(map[string]any{
		"query": esQuery(where),
		"script": map[string]any{
			"source": bulkPatchScript,
			"lang":   "painless",
			"params": map[string]any{"patch": in.Document()},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal update query: %w", err)
	}

	refresh := true
	req := esapi.UpdateByQueryRequest{
		Index:     []string{r.index},
		Body:      bytes.NewReader(body),
		Conflicts: "proceed",
		Refresh:   &refresh,
	}

	var response struct {
		Total int64 `json:"total"`
	}
	if err := r.do(ctx, req, &response); err != nil {
		return 0, fmt.Errorf("failed to update tickets: %w", err)
	}
	return response.Total, nil
}

func (r *ElasticsearchTicketRepository) UpdateByID(ctx context.Context, id string, in models.TicketInput) error {
	body, err := json.Marshal(map[string]any{"doc": in.Document()})
	if err != nil {
		return fmt.Errorf("failed to marshal ticket: %w", err)
	}

	req := esapi.UpdateRequest{
		Index:      r.index,
		DocumentID: id,
		Body:       bytes.NewReader(body),
		Refresh:    "wait_for",
	}

	if err := r.do(ctx, req, nil); err != nil {
		if isNotFound(err) {
			return apperrors.NotFound(id)
		}
		return fmt.Errorf("failed to update ticket %s: %w", id, err)
	}
	return nil
}

// ReplaceByID checks for the document before overwriting it, since indexing alone
// would create a missing ticket. The check and the write are not atomic.
func (r *ElasticsearchTicketRepository) ReplaceByID(ctx context.Context, id string, in models.TicketInput) error {
	req := esapi.ExistsRequest{
		Index:      r.index,
		DocumentID: id,
	}

	res, err := req.Do(ctx, r.client)
	if err != nil {
		return fmt.Errorf("failed to check ticket %s: %w", id, err)
	}
	res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return apperrors.NotFound(id)
	}
	if res.IsError() {
		return fmt.Errorf("failed to check ticket %s: %s", id, res.Status())
	}

	return r.put(ctx, id, in.Document(), "index")
}

func (r *ElasticsearchTicketRepository) DeleteByID(ctx context.Context, id string) error {
	req := esapi.DeleteRequest{
		Index:      r.index,
		DocumentID: id,
		Refresh:    "wait_for",
	}

	if err := r.do(ctx, req, nil); err != nil {
		if isNotFound(err) {
			return apperrors.NotFound(id)
		}
		return fmt.Errorf("failed to delete ticket %s: %w", id, err)
	}
	return nil
}

type esStatusError struct {
	status int
	body   string
}

func (e *esStatusError) Error() string {
	return fmt.Sprintf("elasticsearch error [%d]: %s", e.status, e.body)
}

func isNotFound(err error) bool {
	statusErr, ok := err.(*esStatusError)
	return ok && statusErr.status == http.StatusNotFound
}

// do executes a request and decodes the response body into out when it is set.
func (r *ElasticsearchTicketRepository) do(ctx context.Context, req esapi.Request, out any) error {
	res, err := req.Do(ctx, r.client)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return &esStatusError{status: res.StatusCode, body: string(body)}
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}

// esQuery translates a where clause into the query DSL.
func esQuery(w filter.Where) map[string]any {
	if w.IsEmpty() {
		return map[string]any{"match_all": map[string]any{}}
	}

	var must, mustNot []any
	for _, c := range w.Conditions {
		switch c.Op {
		case filter.OpEq:
			if c.Value == nil {
				mustNot = append(mustNot, esExists(c.Field))
			} else {
				must = append(must, esTerm(c.Field, c.Value))
			}
		case filter.OpNeq:
			if c.Value == nil {
				must = append(must, esExists(c.Field))
			} else {
				mustNot = append(mustNot, esTerm(c.Field, c.Value))
			}
		case filter.OpGt, filter.OpGte, filter.OpLt, filter.OpLte:
			must = append(must, esRange(c.Field, map[string]any{string(c.Op): c.Value}))
		case filter.OpBetween:
			bounds := c.Value.([]any)
			must = append(must, esRange(c.Field, map[string]any{"gte": bounds[0], "lte": bounds[1]}))
		case filter.OpInq:
			must = append(must, map[string]any{"terms": map[string]any{c.Field: c.Value}})
		case filter.OpNin:
			mustNot = append(mustNot, map[string]any{"terms": map[string]any{c.Field: c.Value}})
		case filter.OpLike:
			must = append(must, esRegexp(c.Field, c.Value.(string)))
		case filter.OpNlike:
			mustNot = append(mustNot, esRegexp(c.Field, c.Value.(string)))
		case filter.OpExists:
			if c.Value.(bool) {
				must = append(must, esExists(c.Field))
			} else {
				mustNot = append(mustNot, esExists(c.Field))
			}
		}
	}
	for _, sub := range w.And {
		must = append(must, esQuery(sub))
	}
	if len(w.Or) > 0 {
		should := make([]any, 0, len(w.Or))
		for _, sub := range w.Or {
			should = append(should, esQuery(sub))
		}
		must = append(must, map[string]any{
			"bool": map[string]any{"should": should, "minimum_should_match": 1},
		})
	}

	boolQuery := map[string]any{}
	if len(must) > 0 {
		boolQuery["filter"] = must
	}
	if len(mustNot) > 0 {
		boolQuery["must_not"] = mustNot
	}
	return map[string]any{"bool": boolQuery}
}

func esTerm(field string, value any) map[string]any {
	return map[string]any{"term": map[string]any{field: value}}
}

func esRange(field string, bounds map[string]any) map[string]any {
	return map[string]any{"range": map[string]any{field: bounds}}
}

func esExists(field string) map[string]any {
	return map[string]any{"exists": map[string]any{"field": field}}
}

// esRegexp adapts a search pattern to Lucene regular expressions, which always
// match the whole value and have no anchors.
func esRegexp(field, pattern string) map[string]any {
	if strings.HasPrefix(pattern, "^") {
		pattern = pattern[1:]
	} else {
		pattern = ".*" + pattern
	}
	if strings.HasSuffix(pattern, "$") {
		pattern = pattern[:len(pattern)-1]
	} else {
		pattern += ".*"
	}
	return map[string]any{"regexp": map[string]any{field: pattern}}
}
