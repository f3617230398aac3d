package service

import (
	"ticketapi/internal/messaging"
	"ticketapi/internal/repository"
)

type Services struct {
	Tickets *TicketService
}

func NewServices(repos *repository.Repositories, publisher messaging.Publisher) *Services {
	return &Services{
		Tickets: NewTicketService(repos.Tickets, publisher),
	}
}
