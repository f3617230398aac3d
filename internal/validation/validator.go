package validation

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"ticketapi/internal/logger"
	"ticketapi/internal/models"
)

// APIValidator exercises every ticket route of a running server and checks the
// status codes and bodies it answers with.
type APIValidator struct {
	baseURL string
	client  *http.Client
}

func NewAPIValidator(baseURL string) *APIValidator {
	return &APIValidator{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// ValidateAll runs the full create / read / update / replace / delete cycle. The
// ticket it creates is deleted again on success.
func (v *APIValidator) ValidateAll() error {
	slog.Info("Validating ticket API", "base_url", v.baseURL)

	created, err := v.validateCreate()
	if err != nil {
		return fmt.Errorf("create validation failed: %w", err)
	}

	if err := v.validateRead(created); err != nil {
		return fmt.Errorf("read validation failed: %w", err)
	}

	if err := v.validateUpdate(created.ID); err != nil {
		return fmt.Errorf("update validation failed: %w", err)
	}

	if err := v.validateDelete(created.ID); err != nil {
		return fmt.Errorf("delete validation failed: %w", err)
	}

	slog.Info("All ticket endpoints passed validation")
	return nil
}

func (v *APIValidator) validateCreate() (*models.Ticket, error) {
	body := map[string]any{
		"eventoId": 1, "fecha": "2023-01-01", "hora": 1800,
		"duracion": 120, "precio": 25.5, "silla": 14,
		"validation": true,
	}

	var created models.Ticket
	if err := v.expect(http.MethodPost, "/tickets", body, http.StatusOK, &created); err != nil {
		return nil, err
	}
	if created.ID == "" {
		return nil, fmt.Errorf("POST /tickets: expected generated id")
	}

	missing := map[string]any{"eventoId": 1, "fecha": "2023-01-01", "hora": 1800, "duracion": 120, "silla": 14}
	if err := v.expect(http.MethodPost, "/tickets", missing, http.StatusUnprocessableEntity, nil); err != nil {
		return nil, err
	}

	return &created, nil
}

func (v *APIValidator) validateRead(created *models.Ticket) error {
	var fetched models.Ticket
	if err := v.expect(http.MethodGet, "/tickets/"+created.ID, nil, http.StatusOK, &fetched); err != nil {
		return err
	}
	if fetched.Precio != created.Precio || fetched.Silla != created.Silla || fetched.Fecha != created.Fecha {
		return fmt.Errorf("GET /tickets/{id}: fields differ from created ticket")
	}

	var list []models.Ticket
	if err := v.expect(http.MethodGet, "/tickets", nil, http.StatusOK, &list); err != nil {
		return err
	}

	var count models.Count
	if err := v.expect(http.MethodGet, "/tickets/count", nil, http.StatusOK, &count); err != nil {
		return err
	}
	if count.Count < 1 {
		return fmt.Errorf("GET /tickets/count: expected at least one ticket")
	}

	where := url.QueryEscape(fmt.Sprintf(`{"id":%q}`, created.ID))
	var filtered models.Count
	if err := v.expect(http.MethodGet, "/tickets/count?where="+where, nil, http.StatusOK, &filtered); err != nil {
		return err
	}
	if filtered.Count != 1 {
		return fmt.Errorf("GET /tickets/count?where: expected 1, got %d", filtered.Count)
	}
	return nil
}

func (v *APIValidator) validateUpdate(id string) error {
	if err := v.expect(http.MethodPatch, "/tickets/"+id, map[string]any{"precio": 50}, http.StatusNoContent, nil); err != nil {
		return err
	}

	var fetched models.Ticket
	if err := v.expect(http.MethodGet, "/tickets/"+id, nil, http.StatusOK, &fetched); err != nil {
		return err
	}
	if fetched.Precio != 50 || fetched.Silla != 14 {
		return fmt.Errorf("PATCH /tickets/{id}: expected precio 50 and silla 14, got %v and %v", fetched.Precio, fetched.Silla)
	}

	replacement := map[string]any{
		"eventoId": 2, "fecha": "2023-02-02", "hora": 2000,
		"duracion": 90, "precio": 30, "silla": 15,
	}
	if err := v.expect(http.MethodPut, "/tickets/"+id, replacement, http.StatusNoContent, nil); err != nil {
		return err
	}

	where := url.QueryEscape(fmt.Sprintf(`{"id":%q}`, id))
	var updated models.Count
	if err := v.expect(http.MethodPatch, "/tickets?where="+where, map[string]any{"duracion": 95}, http.StatusOK, &updated); err != nil {
		return err
	}
	if updated.Count != 1 {
		return fmt.Errorf("PATCH /tickets?where: expected count 1, got %d", updated.Count)
	}
	return nil
}

func (v *APIValidator) validateDelete(id string) error {
	if err := v.expect(http.MethodDelete, "/tickets/"+id, nil, http.StatusNoContent, nil); err != nil {
		return err
	}
	return v.expect(http.MethodGet, "/tickets/"+id, nil, http.StatusNotFound, nil)
}

// expect sends a request and checks the status code, decoding the body into out
// when out is set.
func (v *APIValidator) expect(method, path string, body any, status int, out any) error {
	resp, err := v.makeRequest(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != status {
		return fmt.Errorf("%s %s: expected %d, got %d", method, path, status, resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%s %s: failed to decode response: %w", method, path, err)
		}
	}
	slog.Info("Endpoint OK", "method", method, "path", path, "status", status)
	return nil
}

func (v *APIValidator) makeRequest(method, path string, body interface{}) (*http.Response, error) {
	var reader *bytes.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	var req *http.Request
	var err error
	if reader != nil {
		req, err = http.NewRequest(method, v.baseURL+path, reader)
	} else {
		req, err = http.NewRequest(method, v.baseURL+path, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	return resp, nil
}

// RunValidation запускает валидацию API
func RunValidation(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	baseURL := fs.String("url", "http://localhost:3000", "Base URL of the running API")
	_ = fs.Parse(args)

	logger.Init("INFO", "text")

	validator := NewAPIValidator(*baseURL)
	if err := validator.ValidateAll(); err != nil {
		logger.Fatal("Validation failed", "error", err)
	}
}
