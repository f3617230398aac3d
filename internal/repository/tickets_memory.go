package repository

import (
	"context"
	"sync"

	apperrors "ticketapi/internal/errors"
	"ticketapi/internal/filter"
	"ticketapi/internal/models"

	"github.com/google/uuid"
)

// MemoryTicketRepository keeps tickets in process memory. It backs local runs and
// tests; everything is lost on restart.
type MemoryTicketRepository struct {
	mu    sync.RWMutex
	docs  map[string]map[string]any
	order []string
}

func NewMemoryTicketRepository() *MemoryTicketRepository {
	return &MemoryTicketRepository{docs: make(map[string]map[string]any)}
}

func (r *MemoryTicketRepository) Create(ctx context.Context, in models.TicketInput) (*models.Ticket, error) {
	id := uuid.NewString()
	doc := in.Document()

	r.mu.Lock()
	r.docs[id] = cloneDoc(doc)
	r.order = append(r.order, id)
	r.mu.Unlock()

	return models.TicketFromDocument(id, doc), nil
}

// view returns the stored document with its id, in insertion order.
func (r *MemoryTicketRepository) view(where filter.Where) []map[string]any {
	var out []map[string]any
	for _, id := range r.order {
		doc := cloneDoc(r.docs[id])
		doc[models.FieldID] = id
		if where.Match(doc) {
			out = append(out, doc)
		}
	}
	return out
}

func (r *MemoryTicketRepository) Count(ctx context.Context, where filter.Where) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.view(where))), nil
}

func (r *MemoryTicketRepository) Find(ctx context.Context, f *filter.Filter) ([]*models.Ticket, error) {
	var where filter.Where
	if f != nil {
		where = f.Where
	}

	r.mu.RLock()
	docs := r.view(where)
	r.mu.RUnlock()

	f.Sort(docs)
	start, end := f.Page(len(docs))

	tickets := make([]*models.Ticket, 0, end-start)
	for _, doc := range docs[start:end] {
		tickets = append(tickets, models.TicketFromDocument(doc[models.FieldID].(string), doc))
	}
	return tickets, nil
}

func (r *MemoryTicketRepository) FindByID(ctx context.Context, id string) (*models.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, ok := r.docs[id]
	if !ok {
		return nil, apperrors.NotFound(id)
	}
	return models.TicketFromDocument(id, cloneDoc(doc)), nil
}

func (r *MemoryTicketRepository) UpdateAll(ctx context.Context, in models.TicketInput, where filter.Where) (int64, error) {
	patch := in.Document()

	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, doc := range r.view(where) {
		stored := r.docs[doc[models.FieldID].(string)]
		for k, v := range patch {
			stored[k] = v
		}
		n++
	}
	return n, nil
}

func (r *MemoryTicketRepository) UpdateByID(ctx context.Context, id string, in models.TicketInput) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.docs[id]
	if !ok {
		return apperrors.NotFound(id)
	}
	for k, v := range in.Document() {
		stored[k] = v
	}
	return nil
}

func (r *MemoryTicketRepository) ReplaceByID(ctx context.Context, id string, in models.TicketInput) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.docs[id]; !ok {
		return apperrors.NotFound(id)
	}
	r.docs[id] = in.Document()
	return nil
}

func (r *MemoryTicketRepository) DeleteByID(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.docs[id]; !ok {
		return apperrors.NotFound(id)
	}
	delete(r.docs, id)
	for i, stored := range r.order {
		if stored == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}
