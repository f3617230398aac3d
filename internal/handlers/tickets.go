package handlers

import (
	"net/http"

	"ticketapi/internal/filter"
	"ticketapi/internal/models"

	"github.com/gin-gonic/gin"
)

// CreateTicket - POST /tickets
func (h *Handlers) CreateTicket(c *gin.Context) {
	var in models.TicketInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.handleBindError(c, err)
		return
	}

	ticket, err := h.services.Tickets.Create(c.Request.Context(), in)
	if err != nil {
		h.handleServiceError(c, err, "Failed to create ticket")
		return
	}

	c.JSON(http.StatusOK, ticket)
}

// CountTickets - GET /tickets/count
func (h *Handlers) CountTickets(c *gin.Context) {
	where, err := filter.WhereFromQuery(c.Request.URL.Query())
	if err != nil {
		h.handleServiceError(c, err, "Invalid where")
		return
	}

	n, err := h.services.Tickets.Count(c.Request.Context(), where)
	if err != nil {
		h.handleServiceError(c, err, "Failed to count tickets")
		return
	}

	c.JSON(http.StatusOK, models.Count{Count: n})
}

// ListTickets - GET /tickets
func (h *Handlers) ListTickets(c *gin.Context) {
	f, err := filter.FromQuery(c.Request.URL.Query())
	if err != nil {
		h.handleServiceError(c, err, "Invalid filter")
		return
	}

	tickets, err := h.services.Tickets.Find(c.Request.Context(), f)
	if err != nil {
		h.handleServiceError(c, err, "Failed to list tickets")
		return
	}

	if f.HasProjection() {
		docs := make([]map[string]any, len(tickets))
		for i, t := range tickets {
			docs[i] = f.Project(t.Document())
		}
		c.JSON(http.StatusOK, docs)
		return
	}

	c.JSON(http.StatusOK, tickets)
}

// UpdateAllTickets - PATCH /tickets
// Applies the body to every ticket matching the where parameter.
func (h *Handlers) UpdateAllTickets(c *gin.Context) {
	where, err := filter.WhereFromQuery(c.Request.URL.Query())
	if err != nil {
		h.handleServiceError(c, err, "Invalid where")
		return
	}

	var in models.TicketInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.handleBindError(c, err)
		return
	}

	n, err := h.services.Tickets.UpdateAll(c.Request.Context(), in, where)
	if err != nil {
		h.handleServiceError(c, err, "Failed to update tickets")
		return
	}

	c.JSON(http.StatusOK, models.Count{Count: n})
}

// GetTicket - GET /tickets/:id
// Only the fields part of the filter applies; a where clause is ignored.
func (h *Handlers) GetTicket(c *gin.Context) {
	f, err := filter.FromQuery(c.Request.URL.Query())
	if err != nil {
		h.handleServiceError(c, err, "Invalid filter")
		return
	}

	ticket, err := h.services.Tickets.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err, "Failed to get ticket")
		return
	}

	if f.HasProjection() {
		c.JSON(http.StatusOK, f.Project(ticket.Document()))
		return
	}

	c.JSON(http.StatusOK, ticket)
}

// UpdateTicket - PATCH /tickets/:id
func (h *Handlers) UpdateTicket(c *gin.Context) {
	var in models.TicketInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.handleBindError(c, err)
		return
	}

	if err := h.services.Tickets.UpdateByID(c.Request.Context(), c.Param("id"), in); err != nil {
		h.handleServiceError(c, err, "Failed to update ticket")
		return
	}

	c.Status(http.StatusNoContent)
}

// ReplaceTicket - PUT /tickets/:id
func (h *Handlers) ReplaceTicket(c *gin.Context) {
	var in models.TicketInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.handleBindError(c, err)
		return
	}

	if err := h.services.Tickets.ReplaceByID(c.Request.Context(), c.Param("id"), in); err != nil {
		h.handleServiceError(c, err, "Failed to replace ticket")
		return
	}

	c.Status(http.StatusNoContent)
}

// DeleteTicket - DELETE /tickets/:id
func (h *Handlers) DeleteTicket(c *gin.Context) {
	if err := h.services.Tickets.DeleteByID(c.Request.Context(), c.Param("id")); err != nil {
		h.handleServiceError(c, err, "Failed to delete ticket")
		return
	}

	c.Status(http.StatusNoContent)
}
