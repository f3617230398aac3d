package repository

import (
	"context"
	"fmt"

	"ticketapi/internal/database"
	"ticketapi/internal/filter"
	"ticketapi/internal/models"
)

// TicketRepository is the persistence capability for tickets. Every driver of the
// datasource implements it once.
type TicketRepository interface {
	// Create stores a complete ticket and returns it with its generated id.
	Create(ctx context.Context, in models.TicketInput) (*models.Ticket, error)
	Count(ctx context.Context, where filter.Where) (int64, error)
	Find(ctx context.Context, f *filter.Filter) ([]*models.Ticket, error)
	FindByID(ctx context.Context, id string) (*models.Ticket, error)
	// UpdateAll applies a partial update to every match and returns how many
	// tickets matched. Matches are updated independently.
	UpdateAll(ctx context.Context, in models.TicketInput, where filter.Where) (int64, error)
	UpdateByID(ctx context.Context, id string, in models.TicketInput) error
	ReplaceByID(ctx context.Context, id string, in models.TicketInput) error
	DeleteByID(ctx context.Context, id string) error
}

type Repositories struct {
	Tickets TicketRepository
}

func NewRepositories(ds *database.DataSource) (*Repositories, error) {
	tickets, err := NewTicketRepository(ds)
	if err != nil {
		return nil, err
	}
	return &Repositories{Tickets: tickets}, nil
}

// NewTicketRepository picks the implementation matching the datasource driver.
func NewTicketRepository(ds *database.DataSource) (TicketRepository, error) {
	var repo TicketRepository
	switch ds.Driver {
	case database.DriverMongo:
		repo = NewMongoTicketRepository(ds.Mongo.Collection(ds.Config.CollectionName()))
	case database.DriverPostgres:
		repo = NewPostgresTicketRepository(ds.SQL, ds.Config.CollectionName())
	case database.DriverElasticsearch:
		repo = NewElasticsearchTicketRepository(ds.ES, ds.Config.CollectionName())
	case database.DriverMemory:
		repo = NewMemoryTicketRepository()
	default:
		return nil, fmt.Errorf("no ticket repository for driver %q", ds.Driver)
	}
	return Guard(repo), nil
}

// Guard wraps a driver implementation with the checks shared by all drivers:
// complete bodies on create and replace, and no-op partial updates.
func Guard(repo TicketRepository) TicketRepository {
	if _, ok := repo.(guarded); ok {
		return repo
	}
	return guarded{repo}
}

type guarded struct {
	TicketRepository
}

func (g guarded) Create(ctx context.Context, in models.TicketInput) (*models.Ticket, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return g.TicketRepository.Create(ctx, in)
}

func (g guarded) ReplaceByID(ctx context.Context, id string, in models.TicketInput) error {
	if err := in.Validate(); err != nil {
		return err
	}
	return g.TicketRepository.ReplaceByID(ctx, id, in)
}

func (g guarded) UpdateAll(ctx context.Context, in models.TicketInput, where filter.Where) (int64, error) {
	if in.Empty() {
		return g.TicketRepository.Count(ctx, where)
	}
	return g.TicketRepository.UpdateAll(ctx, in, where)
}

func (g guarded) UpdateByID(ctx context.Context, id string, in models.TicketInput) error {
	if in.Empty() {
		_, err := g.TicketRepository.FindByID(ctx, id)
		return err
	}
	return g.TicketRepository.UpdateByID(ctx, id, in)
}

func cloneDoc(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}
