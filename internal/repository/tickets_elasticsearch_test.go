package repository

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "ticketapi/internal/errors"
	"ticketapi/internal/filter"
	"ticketapi/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFakeES(t *testing.T, handler http.HandlerFunc) *ElasticsearchTicketRepository {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{server.URL}})
	require.NoError(t, err)
	return NewElasticsearchTicketRepository(client, "ticket")
}

func readJSON(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	data, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func TestElasticsearchCreate(t *testing.T) {
	var indexed map[string]any
	repo := newFakeES(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.True(t, strings.HasPrefix(r.URL.Path, "/ticket/_doc/"))
		assert.Equal(t, "create", r.URL.Query().Get("op_type"))
		assert.Equal(t, "wait_for", r.URL.Query().Get("refresh"))
		indexed = readJSON(t, r)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	})

	ticket, err := repo.Create(context.Background(), models.NewTicketInput(1, "2023-01-01", 1800, 120, 25.5, 14))
	require.NoError(t, err)

	assert.NotEmpty(t, ticket.ID)
	assert.Equal(t, ticket.ID, indexed["id"])
	assert.Equal(t, 25.5, indexed["precio"])
}

func TestElasticsearchCount(t *testing.T) {
	repo := newFakeES(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ticket/_count", r.URL.Path)
		body := readJSON(t, r)
		assert.Contains(t, body, "query")
		_, _ = w.Write([]byte(`{"count":3}`))
	})

	n, err := repo.Count(context.Background(), filter.Where{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestElasticsearchFind(t *testing.T) {
	repo := newFakeES(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ticket/_search", r.URL.Path)
		body := readJSON(t, r)
		assert.Equal(t, float64(2), body["from"])
		assert.Equal(t, float64(5), body["size"])
		assert.Equal(t, []any{map[string]any{
			"precio": map[string]any{"order": "desc", "unmapped_type": "keyword"},
		}}, body["sort"])
		_, _ = w.Write([]byte(`{"hits":{"hits":[
			{"_id":"a","_source":{"id":"a","eventoId":1,"fecha":"2023-01-01","hora":1800,"duracion":120,"precio":30,"silla":1}},
			{"_id":"b","_source":{"id":"b","eventoId":1,"fecha":"2023-01-01","hora":1800,"duracion":120,"precio":20,"silla":2,"vip":true}}
		]}}`))
	})

	tickets, err := repo.Find(context.Background(), &filter.Filter{
		Order: []filter.Order{{Field: models.FieldPrecio, Desc: true}},
		Skip:  2,
		Limit: 5,
	})
	require.NoError(t, err)
	require.Len(t, tickets, 2)
	assert.Equal(t, "a", tickets[0].ID)
	assert.Equal(t, 20.0, tickets[1].Precio)
	assert.Equal(t, map[string]any{"vip": true}, tickets[1].Extra)
}

func TestElasticsearchFindByIDNotFound(t *testing.T) {
	repo := newFakeES(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"_index":"ticket","_id":"missing","found":false}`))
	})

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestElasticsearchReplaceMissing(t *testing.T) {
	repo := newFakeES(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		w.WriteHeader(http.StatusNotFound)
	})

	err := repo.ReplaceByID(context.Background(), "missing", models.NewTicketInput(1, "2023-01-01", 1800, 120, 25.5, 14))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestElasticsearchUpdateAll(t *testing.T) {
	repo := newFakeES(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ticket/_update_by_query", r.URL.Path)
		assert.Equal(t, "proceed", r.URL.Query().Get("conflicts"))
		body := readJSON(t, r)
		script := body["script"].(map[string]any)
		assert.Equal(t, map[string]any{"patch": map[string]any{"precio": float64(50)}}, script["params"])
		_, _ = w.Write([]byte(`{"total":4,"updated":4}`))
	})

	precio := 50.0
	n, err := repo.UpdateAll(context.Background(), models.TicketInput{Precio: &precio}, filter.Where{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

func TestElasticsearchServerError(t *testing.T) {
	repo := newFakeES(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"parsing_exception"}}`))
	})

	err := repo.DeleteByID(context.Background(), "abc")
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ErrNotFound)
	assert.Contains(t, err.Error(), "parsing_exception")
}

func TestElasticsearchUpdateByID(t *testing.T) {
	repo := newFakeES(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/ticket/_update/abc", r.URL.Path)
		assert.Equal(t, "wait_for", r.URL.Query().Get("refresh"))
		body := readJSON(t, r)
		assert.Equal(t, map[string]any{"precio": float64(50)}, body["doc"])
		_, _ = w.Write([]byte(`{"result":"updated"}`))
	})

	precio := 50.0
	assert.NoError(t, repo.UpdateByID(context.Background(), "abc", models.TicketInput{Precio: &precio}))
}

func TestElasticsearchUpdateByIDMissing(t *testing.T) {
	repo := newFakeES(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"type":"document_missing_exception"}}`))
	})

	precio := 50.0
	err := repo.UpdateByID(context.Background(), "abc", models.TicketInput{Precio: &precio})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestElasticsearchDeleteByID(t *testing.T) {
	repo := newFakeES(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/ticket/_doc/abc", r.URL.Path)
		assert.Equal(t, "wait_for", r.URL.Query().Get("refresh"))
		_, _ = w.Write([]byte(`{"result":"deleted"}`))
	})

	assert.NoError(t, repo.DeleteByID(context.Background(), "abc"))
}

func TestElasticsearchDeleteByIDMissing(t *testing.T) {
	repo := newFakeES(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"result":"not_found"}`))
	})

	err := repo.DeleteByID(context.Background(), "abc")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestElasticsearchFindBeyondResultWindow(t *testing.T) {
	repo := newFakeES(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		w.WriteHeader(http.StatusBadRequest)
	})

	tickets, err := repo.Find(context.Background(), &filter.Filter{Skip: maxResultWindow})
	require.NoError(t, err)
	assert.Empty(t, tickets)
	assert.NotNil(t, tickets)
}
