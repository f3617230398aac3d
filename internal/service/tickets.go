package service

import (
	"context"
	"fmt"
	"time"

	"ticketapi/internal/filter"
	"ticketapi/internal/logger"
	"ticketapi/internal/messaging"
	"ticketapi/internal/metrics"
	"ticketapi/internal/models"
	"ticketapi/internal/repository"
)

// TicketService passes each operation through to the repository and announces
// successful writes.
type TicketService struct {
	repo      repository.TicketRepository
	publisher messaging.Publisher
}

func NewTicketService(repo repository.TicketRepository, publisher messaging.Publisher) *TicketService {
	if publisher == nil {
		publisher = messaging.NopPublisher{}
	}
	return &TicketService{
		repo:      repo,
		publisher: publisher,
	}
}

func (s *TicketService) Create(ctx context.Context, in models.TicketInput) (ticket *models.Ticket, err error) {
	start := time.Now()
	defer func() { metrics.ObserveRepository("create", start, err) }()

	ticket, err = s.repo.Create(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("failed to create ticket: %w", err)
	}

	logger.WithContext(ctx).Info("Ticket created", "ticket_id", ticket.ID)
	s.publish(ctx, models.TicketChangedEvent{
		Type:     models.EventTicketCreated,
		TicketID: ticket.ID,
		Ticket:   ticket,
	})
	return ticket, nil
}

func (s *TicketService) Count(ctx context.Context, where filter.Where) (n int64, err error) {
	start := time.Now()
	defer func() { metrics.ObserveRepository("count", start, err) }()

	n, err = s.repo.Count(ctx, where)
	if err != nil {
		return 0, fmt.Errorf("failed to count tickets: %w", err)
	}
	return n, nil
}

func (s *TicketService) Find(ctx context.Context, f *filter.Filter) (tickets []*models.Ticket, err error) {
	start := time.Now()
	defer func() { metrics.ObserveRepository("find", start, err) }()

	tickets, err = s.repo.Find(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	return tickets, nil
}

func (s *TicketService) FindByID(ctx context.Context, id string) (ticket *models.Ticket, err error) {
	start := time.Now()
	defer func() { metrics.ObserveRepository("find_by_id", start, err) }()

	ticket, err = s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	return ticket, nil
}

func (s *TicketService) UpdateAll(ctx context.Context, in models.TicketInput, where filter.Where) (n int64, err error) {
	start := time.Now()
	defer func() { metrics.ObserveRepository("update_all", start, err) }()

	n, err = s.repo.UpdateAll(ctx, in, where)
	if err != nil {
		return 0, fmt.Errorf("failed to update tickets: %w", err)
	}

	logger.WithContext(ctx).Info("Tickets updated", "count", n)
	s.publish(ctx, models.TicketChangedEvent{
		Type:    models.EventTicketBulkUpdated,
		Changes: in.Document(),
		Where:   where.Raw(),
		Count:   n,
	})
	return n, nil
}

func (s *TicketService) UpdateByID(ctx context.Context, id string, in models.TicketInput) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveRepository("update_by_id", start, err) }()

	if err = s.repo.UpdateByID(ctx, id, in); err != nil {
		return fmt.Errorf("failed to update ticket: %w", err)
	}

	logger.WithContext(ctx).Info("Ticket updated", "ticket_id", id)
	s.publish(ctx, models.TicketChangedEvent{
		Type:     models.EventTicketUpdated,
		TicketID: id,
		Changes:  in.Document(),
	})
	return nil
}

func (s *TicketService) ReplaceByID(ctx context.Context, id string, in models.TicketInput) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveRepository("replace_by_id", start, err) }()

	if err = s.repo.ReplaceByID(ctx, id, in); err != nil {
		return fmt.Errorf("failed to replace ticket: %w", err)
	}

	logger.WithContext(ctx).Info("Ticket replaced", "ticket_id", id)
	s.publish(ctx, models.TicketChangedEvent{
		Type:     models.EventTicketReplaced,
		TicketID: id,
		Changes:  in.Document(),
	})
	return nil
}

func (s *TicketService) DeleteByID(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveRepository("delete_by_id", start, err) }()

	if err = s.repo.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("failed to delete ticket: %w", err)
	}

	logger.WithContext(ctx).Info("Ticket deleted", "ticket_id", id)
	s.publish(ctx, models.TicketChangedEvent{
		Type:     models.EventTicketDeleted,
		TicketID: id,
	})
	return nil
}

// publish never fails the request: the write already happened.
func (s *TicketService) publish(ctx context.Context, event models.TicketChangedEvent) {
	event.Timestamp = time.Now().UTC()
	if err := s.publisher.Publish(event.Type, event); err != nil {
		logger.WithContext(ctx).Error("Failed to publish ticket event",
			"type", event.Type, "ticket_id", event.TicketID, "error", err)
	}
}
