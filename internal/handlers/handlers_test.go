package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"ticketapi/internal/repository"
	"ticketapi/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const exampleTicket = `{"eventoId":1,"fecha":"2023-01-01","hora":1800,"duracion":120,"precio":25.5,"silla":14}`

type errorResponse struct {
	Error struct {
		StatusCode int    `json:"statusCode"`
		Name       string `json:"name"`
		Message    string `json:"message"`
		Details    []struct {
			Path string `json:"path"`
			Code string `json:"code"`
		} `json:"details"`
	} `json:"error"`
}

func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	repo := repository.Guard(repository.NewMemoryTicketRepository())
	h := NewHandlers(&service.Services{Tickets: service.NewTicketService(repo, nil)})

	tickets := r.Group("/tickets")
	{
		tickets.POST("", h.CreateTicket)
		tickets.GET("/count", h.CountTickets)
		tickets.GET("", h.ListTickets)
		tickets.PATCH("", h.UpdateAllTickets)
		tickets.GET("/:id", h.GetTicket)
		tickets.PATCH("/:id", h.UpdateTicket)
		tickets.PUT("/:id", h.ReplaceTicket)
		tickets.DELETE("/:id", h.DeleteTicket)
	}

	return r
}

func perform(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req, _ = http.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, path, nil)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func createTicket(t *testing.T, r *gin.Engine, body string) map[string]any {
	t.Helper()
	w := perform(r, http.MethodPost, "/tickets", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var ticket map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ticket))
	return ticket
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestCreateTicket(t *testing.T) {
	r := setupRouter()

	ticket := createTicket(t, r, `{"id":"client-id","eventoId":1,"fecha":"2023-01-01","hora":1800,"duracion":120,"precio":25.5,"silla":14,"vip":true}`)

	assert.NotEmpty(t, ticket["id"])
	assert.NotEqual(t, "client-id", ticket["id"])
	assert.Equal(t, float64(1), ticket["eventoId"])
	assert.Equal(t, "2023-01-01", ticket["fecha"])
	assert.Equal(t, 25.5, ticket["precio"])
	assert.Equal(t, float64(14), ticket["silla"])
	assert.Equal(t, true, ticket["vip"])
}

func TestCreateTicketMissingField(t *testing.T) {
	r := setupRouter()

	w := perform(r, http.MethodPost, "/tickets", `{"eventoId":1,"fecha":"2023-01-01","hora":1800,"duracion":120,"silla":14}`)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Error.StatusCode)
	assert.Equal(t, "UnprocessableEntityError", resp.Error.Name)
	require.Len(t, resp.Error.Details, 1)
	assert.Equal(t, "precio", resp.Error.Details[0].Path)
	assert.Equal(t, "required", resp.Error.Details[0].Code)
}

func TestCreateTicketWrongType(t *testing.T) {
	r := setupRouter()

	w := perform(r, http.MethodPost, "/tickets", `{"eventoId":1,"fecha":"2023-01-01","hora":1800,"duracion":120,"precio":"cheap","silla":14}`)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := decodeError(t, w)
	require.Len(t, resp.Error.Details, 1)
	assert.Equal(t, "precio", resp.Error.Details[0].Path)
	assert.Equal(t, "type", resp.Error.Details[0].Code)
}

func TestCreateTicketMalformedJSON(t *testing.T) {
	r := setupRouter()

	w := perform(r, http.MethodPost, "/tickets", `{"eventoId":`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "BadRequestError", decodeError(t, w).Error.Name)
}

func TestGetTicketRoundTrip(t *testing.T) {
	r := setupRouter()
	created := createTicket(t, r, exampleTicket)

	w := perform(r, http.MethodGet, "/tickets/"+created["id"].(string), "")
	require.Equal(t, http.StatusOK, w.Code)

	var fetched map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fetched))
	assert.Equal(t, created, fetched)
}

func TestGetTicketFields(t *testing.T) {
	r := setupRouter()
	created := createTicket(t, r, exampleTicket)

	q := url.Values{}
	q.Set("filter[fields][precio]", "true")
	q.Set("filter[fields][silla]", "true")
	w := perform(r, http.MethodGet, "/tickets/"+created["id"].(string)+"?"+q.Encode(), "")
	require.Equal(t, http.StatusOK, w.Code)

	var fetched map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fetched))
	assert.Equal(t, map[string]any{"precio": 25.5, "silla": float64(14)}, fetched)
}

func TestGetTicketNotFound(t *testing.T) {
	r := setupRouter()

	w := perform(r, http.MethodGet, "/tickets/missing", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NotFoundError", decodeError(t, w).Error.Name)
}

func TestListAndCountTickets(t *testing.T) {
	r := setupRouter()
	createTicket(t, r, `{"eventoId":1,"fecha":"2023-01-01","hora":1800,"duracion":120,"precio":10,"silla":1}`)
	createTicket(t, r, `{"eventoId":1,"fecha":"2023-01-01","hora":1800,"duracion":120,"precio":30,"silla":2}`)
	createTicket(t, r, `{"eventoId":2,"fecha":"2023-01-02","hora":2000,"duracion":90,"precio":20,"silla":1}`)

	var all []map[string]any
	w := perform(r, http.MethodGet, "/tickets", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &all))
	assert.Len(t, all, 3)

	w = perform(r, http.MethodGet, "/tickets/count", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count":3}`, w.Body.String())

	q := url.Values{}
	q.Set("where[precio][gt]", "15")
	w = perform(r, http.MethodGet, "/tickets/count?"+q.Encode(), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count":2}`, w.Body.String())

	q = url.Values{}
	q.Set("filter", `{"where":{"eventoId":1},"order":"precio DESC","limit":1}`)
	var page []map[string]any
	w = perform(r, http.MethodGet, "/tickets?"+q.Encode(), "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page, 1)
	assert.Equal(t, float64(30), page[0]["precio"])

	q = url.Values{}
	q.Set("filter[order]", "precio ASC")
	q.Set("filter[skip]", "1")
	page = nil
	w = perform(r, http.MethodGet, "/tickets?"+q.Encode(), "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page, 2)
	assert.Equal(t, float64(20), page[0]["precio"])
	assert.Equal(t, float64(30), page[1]["precio"])
}

func TestListTicketsInvalidFilter(t *testing.T) {
	r := setupRouter()

	q := url.Values{}
	q.Set("filter", `{"where":`)
	w := perform(r, http.MethodGet, "/tickets?"+q.Encode(), "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	q = url.Values{}
	q.Set("where[precio][approx]", "10")
	w = perform(r, http.MethodGet, "/tickets/count?"+q.Encode(), "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateTicket(t *testing.T) {
	r := setupRouter()
	created := createTicket(t, r, exampleTicket)
	id := created["id"].(string)

	w := perform(r, http.MethodPatch, "/tickets/"+id, `{"precio":50}`)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())

	var fetched map[string]any
	w = perform(r, http.MethodGet, "/tickets/"+id, "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fetched))
	assert.Equal(t, float64(50), fetched["precio"])
	assert.Equal(t, float64(14), fetched["silla"])
	assert.Equal(t, "2023-01-01", fetched["fecha"])
}

func TestUpdateTicketErrors(t *testing.T) {
	r := setupRouter()
	created := createTicket(t, r, exampleTicket)

	w := perform(r, http.MethodPatch, "/tickets/missing", `{"precio":50}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = perform(r, http.MethodPatch, "/tickets/"+created["id"].(string), `{"silla":"A1"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestReplaceTicket(t *testing.T) {
	r := setupRouter()
	created := createTicket(t, r, `{"eventoId":1,"fecha":"2023-01-01","hora":1800,"duracion":120,"precio":25.5,"silla":14,"vip":true}`)
	id := created["id"].(string)

	w := perform(r, http.MethodPut, "/tickets/"+id, `{"eventoId":2,"fecha":"2023-02-02","hora":2000,"duracion":90,"precio":30,"silla":15}`)
	require.Equal(t, http.StatusNoContent, w.Code)

	var fetched map[string]any
	w = perform(r, http.MethodGet, "/tickets/"+id, "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fetched))
	assert.Equal(t, map[string]any{
		"id": id, "eventoId": float64(2), "fecha": "2023-02-02", "hora": float64(2000),
		"duracion": float64(90), "precio": float64(30), "silla": float64(15),
	}, fetched)

	w = perform(r, http.MethodPut, "/tickets/"+id, `{"precio":30}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Len(t, decodeError(t, w).Error.Details, 5)

	w = perform(r, http.MethodPut, "/tickets/missing", exampleTicket)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteTicket(t *testing.T) {
	r := setupRouter()
	created := createTicket(t, r, exampleTicket)
	id := created["id"].(string)

	w := perform(r, http.MethodDelete, "/tickets/"+id, "")
	require.Equal(t, http.StatusNoContent, w.Code)

	w = perform(r, http.MethodGet, "/tickets/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = perform(r, http.MethodDelete, "/tickets/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateAllTickets(t *testing.T) {
	r := setupRouter()
	createTicket(t, r, `{"eventoId":1,"fecha":"2023-01-01","hora":1800,"duracion":120,"precio":10,"silla":1}`)
	createTicket(t, r, `{"eventoId":1,"fecha":"2023-01-01","hora":1800,"duracion":120,"precio":30,"silla":2}`)
	createTicket(t, r, `{"eventoId":2,"fecha":"2023-01-02","hora":2000,"duracion":90,"precio":20,"silla":1}`)

	q := url.Values{}
	q.Set("where[eventoId]", "1")
	w := perform(r, http.MethodPatch, "/tickets?"+q.Encode(), `{"precio":12}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count":2}`, w.Body.String())

	q = url.Values{}
	q.Set("where[precio]", "12")
	w = perform(r, http.MethodGet, "/tickets/count?"+q.Encode(), "")
	assert.JSONEq(t, `{"count":2}`, w.Body.String())

	w = perform(r, http.MethodPatch, "/tickets", `{}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count":3}`, w.Body.String())
}
