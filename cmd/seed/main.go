package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"ticketapi/internal/config"
	"ticketapi/internal/database"
	"ticketapi/internal/filter"
	"ticketapi/internal/logger"
	"ticketapi/internal/models"
	"ticketapi/internal/repository"
)

var (
	clearExisting = flag.Bool("clear", false, "Delete tickets of the seeded events before generating new ones")
	events        = flag.Int("events", 3, "Number of events to generate tickets for")
	firstEvent    = flag.Int("first-event", 1, "eventoId of the first generated event")
	dryRun        = flag.Bool("dry-run", false, "Show what would be generated without making changes")
)

type TicketGenerator struct {
	repo repository.TicketRepository
	rnd  *rand.Rand
}

func main() {
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.LogLevel, "text")

	slog.Info("Starting ticket generator...")

	ctx := context.Background()
	ds, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer ds.Close(ctx)

	repo, err := repository.NewTicketRepository(ds)
	if err != nil {
		slog.Error("Failed to create repository", "error", err)
		os.Exit(1)
	}

	generator := &TicketGenerator{
		repo: repo,
		rnd:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if err := generator.GenerateTickets(ctx); err != nil {
		slog.Error("Failed to generate tickets", "error", err)
		os.Exit(1)
	}

	slog.Info("Ticket generation completed successfully!")
}

func (g *TicketGenerator) GenerateTickets(ctx context.Context) error {
	for i := 0; i < *events; i++ {
		eventoID := *firstEvent + i
		if err := g.generateTicketsForEvent(ctx, eventoID); err != nil {
			slog.Error("Failed to generate tickets for event", "evento_id", eventoID, "error", err)
			continue
		}
	}
	return nil
}

func (g *TicketGenerator) generateTicketsForEvent(ctx context.Context, eventoID int) error {
	sameEvent := filter.Where{Conditions: []filter.Condition{
		{Field: models.FieldEventoID, Op: filter.OpEq, Value: float64(eventoID)},
	}}

	if !*clearExisting {
		existing, err := g.repo.Count(ctx, sameEvent)
		if err != nil {
			return fmt.Errorf("failed to check existing tickets: %w", err)
		}
		if existing > 0 {
			slog.Info("Event already has tickets, skipping (use -clear to override)", "evento_id", eventoID, "existing_count", existing)
			return nil
		}
	}

	tickets := g.generateTicketLayout(eventoID)

	if *dryRun {
		slog.Info("[DRY RUN] Would generate tickets for event", "total_tickets", len(tickets), "evento_id", eventoID)
		return nil
	}

	if *clearExisting {
		if err := g.clearExistingTickets(ctx, sameEvent); err != nil {
			return fmt.Errorf("failed to clear existing tickets: %w", err)
		}
	}

	for _, in := range tickets {
		if _, err := g.repo.Create(ctx, in); err != nil {
			return fmt.Errorf("failed to insert ticket: %w", err)
		}
	}

	slog.Info("Generated tickets for event", "total_tickets", len(tickets), "evento_id", eventoID)
	return nil
}

func (g *TicketGenerator) clearExistingTickets(ctx context.Context, where filter.Where) error {
	existing, err := g.repo.Find(ctx, &filter.Filter{Where: where})
	if err != nil {
		return err
	}
	for _, t := range existing {
		if err := g.repo.DeleteByID(ctx, t.ID); err != nil {
			return err
		}
	}
	return nil
}

// generateTicketLayout lays out between 20 and 120 seats for one showing.
func (g *TicketGenerator) generateTicketLayout(eventoID int) []models.TicketInput {
	total := g.rnd.Intn(101) + 20
	fecha := time.Now().AddDate(0, 0, g.rnd.Intn(60)+1).Format("2006-01-02")
	hora := float64(1200 + 100*g.rnd.Intn(10))
	duracion := float64(90 + 15*g.rnd.Intn(5))

	tickets := make([]models.TicketInput, 0, total)
	for silla := 1; silla <= total; silla++ {
		tickets = append(tickets, models.NewTicketInput(
			float64(eventoID), fecha, hora, duracion, g.generateTicketPrice(silla), float64(silla),
		))
	}
	return tickets
}

// generateTicketPrice makes the first rows more expensive, ten seats per row.
func (g *TicketGenerator) generateTicketPrice(silla int) float64 {
	row := (silla-1)/10 + 1
	base := 20.0

	switch {
	case row <= 2:
		return base + float64(g.rnd.Intn(30)+20)
	case row <= 6:
		return base + float64(g.rnd.Intn(20)+10)
	}
	return base + float64(g.rnd.Intn(10))
}
