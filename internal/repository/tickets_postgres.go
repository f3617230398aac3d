package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	apperrors "ticketapi/internal/errors"
	"ticketapi/internal/filter"
	"ticketapi/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PostgresTicketRepository stores each ticket as a JSONB document in a table
// created by database.RunMigrations.
type PostgresTicketRepository struct {
	db    *sql.DB
	table string
}

func NewPostgresTicketRepository(db *sql.DB, table string) *PostgresTicketRepository {
	return &PostgresTicketRepository{db: db, table: pq.QuoteIdentifier(table)}
}

func (r *PostgresTicketRepository) Create(ctx context.Context, in models.TicketInput) (*models.Ticket, error) {
	id := uuid.NewString()
	doc := in.Document()

	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode ticket: %w", err)
	}

	query := fmt.Sprintf(`INSERT INTO %s (id, doc) VALUES ($1, $2::jsonb)`, r.table)
	if _, err := r.db.ExecContext(ctx, query, id, string(payload)); err != nil {
		return nil, fmt.Errorf("insert ticket: %w", err)
	}

	return models.TicketFromDocument(id, doc), nil
}

func (r *PostgresTicketRepository) Count(ctx context.Context, where filter.Where) (int64, error) {
	b := &sqlBuilder{}
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s`, r.table, b.where(where))

	var n int64
	if err := r.db.QueryRowContext(ctx, query, b.args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count tickets: %w", err)
	}
	return n, nil
}

func (r *PostgresTicketRepository) Find(ctx context.Context, f *filter.Filter) ([]*models.Ticket, error) {
	if f == nil {
		f = &filter.Filter{}
	}

	b := &sqlBuilder{}
	query := fmt.Sprintf(`SELECT id, doc FROM %s WHERE %s ORDER BY %s`, r.table, b.where(f.Where), b.order(f.Order))
	if f.Limit > 0 {
		query += " LIMIT " + b.arg(f.Limit)
	}
	if f.Skip > 0 {
		query += " OFFSET " + b.arg(f.Skip)
	}

	rows, err := r.db.QueryContext(ctx, query, b.args...)
	if err != nil {
		return nil, fmt.Errorf("find tickets: %w", err)
	}
	defer rows.Close()

	tickets := make([]*models.Ticket, 0)
	for rows.Next() {
		var id string
		var payload []byte
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, err
		}
		t, err := decodeDocument(id, payload)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}

	return tickets, rows.Err()
}

func (r *PostgresTicketRepository) FindByID(ctx context.Context, id string) (*models.Ticket, error) {
	query := fmt.Sprintf(`SELECT doc FROM %s WHERE id = $1`, r.table)

	var payload []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("find ticket %s: %w", id, err)
	}
	return decodeDocument(id, payload)
}

func (r *PostgresTicketRepository) UpdateAll(ctx context.Context, in models.TicketInput, where filter.Where) (int64, error) {
	payload, err := json.Marshal(in.Document())
	if err != nil {
		return 0, fmt.Errorf("encode ticket: %w", err)
	}

	b := &sqlBuilder{}
	patch := b.arg(string(payload))
	query := fmt.Sprintf(`UPDATE %s SET doc = doc || %s::jsonb WHERE %s`, r.table, patch, b.where(where))

	res, err := r.db.ExecContext(ctx, query, b.args...)
	if err != nil {
		return 0, fmt.Errorf("update tickets: %w", err)
	}
	return res.RowsAffected()
}

func (r *PostgresTicketRepository) UpdateByID(ctx context.Context, id string, in models.TicketInput) error {
	return r.writeByID(ctx, id, in, `UPDATE %s SET doc = doc || $1::jsonb WHERE id = $2`)
}

func (r *PostgresTicketRepository) ReplaceByID(ctx context.Context, id string, in models.TicketInput) error {
	return r.writeByID(ctx, id, in, `UPDATE %s SET doc = $1::jsonb WHERE id = $2`)
}

func (r *PostgresTicketRepository) writeByID(ctx context.Context, id string, in models.TicketInput, stmt string) error {
	payload, err := json.Marshal(in.Document())
	if err != nil {
		return fmt.Errorf("encode ticket: %w", err)
	}

	res, err := r.db.ExecContext(ctx, fmt.Sprintf(stmt, r.table), string(payload), id)
	if err != nil {
		return fmt.Errorf("write ticket %s: %w", id, err)
	}
	return expectOne(res, id)
}

func (r *PostgresTicketRepository) DeleteByID(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.table), id)
	if err != nil {
		return fmt.Errorf("delete ticket %s: %w", id, err)
	}
	return expectOne(res, id)
}

func expectOne(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperrors.NotFound(id)
	}
	return nil
}

func decodeDocument(id string, payload []byte) (*models.Ticket, error) {
	var doc map[string]any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("decode ticket %s: %w", id, err)
	}
	return models.TicketFromDocument(id, doc), nil
}

// sqlBuilder renders where clauses over the doc column. Field names and values
// are always bound as parameters.
type sqlBuilder struct {
	args []any
}

func (b *sqlBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *sqlBuilder) jsonArg(v any) string {
	payload, _ := json.Marshal(v)
	return b.arg(string(payload)) + "::jsonb"
}

func (b *sqlBuilder) where(w filter.Where) string {
	parts := make([]string, 0, len(w.Conditions)+len(w.And)+1)
	for _, c := range w.Conditions {
		parts = append(parts, b.condition(c))
	}
	for _, sub := range w.And {
		parts = append(parts, "("+b.where(sub)+")")
	}
	if len(w.Or) > 0 {
		ors := make([]string, 0, len(w.Or))
		for _, sub := range w.Or {
			ors = append(ors, "("+b.where(sub)+")")
		}
		parts = append(parts, "("+strings.Join(ors, " OR ")+")")
	}
	if len(parts) == 0 {
		return "TRUE"
	}
	return strings.Join(parts, " AND ")
}

func (b *sqlBuilder) condition(c filter.Condition) string {
	if c.Field == models.FieldID {
		return b.idCondition(c)
	}

	name := b.arg(c.Field)
	field := "doc->" + name
	sameType := func(value string) string {
		return fmt.Sprintf("jsonb_typeof(%s) = jsonb_typeof(%s)", field, value)
	}

	switch c.Op {
	case filter.OpEq:
		if c.Value == nil {
			return fmt.Sprintf("COALESCE(%s = 'null'::jsonb, TRUE)", field)
		}
		return fmt.Sprintf("%s = %s", field, b.jsonArg(c.Value))
	case filter.OpNeq:
		if c.Value == nil {
			return fmt.Sprintf("COALESCE(%s <> 'null'::jsonb, FALSE)", field)
		}
		return fmt.Sprintf("%s IS DISTINCT FROM %s", field, b.jsonArg(c.Value))
	case filter.OpGt, filter.OpGte, filter.OpLt, filter.OpLte:
		value := b.jsonArg(c.Value)
		return fmt.Sprintf("(%s AND %s %s %s)", sameType(value), field, sqlOperator(c.Op), value)
	case filter.OpInq, filter.OpNin:
		values := b.arg(pq.Array(jsonList(c.Value.([]any)))) + "::jsonb[]"
		if c.Op == filter.OpInq {
			return fmt.Sprintf("COALESCE(%s = ANY(%s), FALSE)", field, values)
		}
		return fmt.Sprintf("NOT COALESCE(%s = ANY(%s), FALSE)", field, values)
	case filter.OpBetween:
		bounds := c.Value.([]any)
		lo, hi := b.jsonArg(bounds[0]), b.jsonArg(bounds[1])
		return fmt.Sprintf("(%s AND %s AND %s >= %s AND %s <= %s)", sameType(lo), sameType(hi), field, lo, field, hi)
	case filter.OpLike, filter.OpNlike:
		match := fmt.Sprintf("COALESCE(jsonb_typeof(%s) = 'string' AND doc->>%s ~ %s, FALSE)", field, name, b.arg(c.Value))
		if c.Op == filter.OpNlike {
			return "NOT " + match
		}
		return match
	case filter.OpExists:
		present := fmt.Sprintf("COALESCE(%s <> 'null'::jsonb, FALSE)", field)
		if c.Value.(bool) {
			return present
		}
		return "NOT " + present
	}
	return "FALSE"
}

// idCondition compares the id column, which is plain text.
func (b *sqlBuilder) idCondition(c filter.Condition) string {
	switch c.Op {
	case filter.OpEq, filter.OpNeq, filter.OpGt, filter.OpGte, filter.OpLt, filter.OpLte:
		if c.Value == nil {
			// Every row has an id
			if c.Op == filter.OpNeq {
				return "TRUE"
			}
			return "FALSE"
		}
		return fmt.Sprintf("id %s %s", sqlOperator(c.Op), b.arg(fmt.Sprint(c.Value)))
	case filter.OpInq, filter.OpNin:
		ids := make([]string, 0)
		for _, v := range c.Value.([]any) {
			ids = append(ids, fmt.Sprint(v))
		}
		match := fmt.Sprintf("id = ANY(%s)", b.arg(pq.Array(ids)))
		if c.Op == filter.OpNin {
			return "NOT " + match
		}
		return match
	case filter.OpBetween:
		bounds := c.Value.([]any)
		return fmt.Sprintf("id BETWEEN %s AND %s", b.arg(fmt.Sprint(bounds[0])), b.arg(fmt.Sprint(bounds[1])))
	case filter.OpLike:
		return "id ~ " + b.arg(c.Value)
	case filter.OpNlike:
		return "id !~ " + b.arg(c.Value)
	case filter.OpExists:
		if c.Value.(bool) {
			return "TRUE"
		}
		return "FALSE"
	}
	return "FALSE"
}

func (b *sqlBuilder) order(orders []filter.Order) string {
	parts := make([]string, 0, len(orders)+1)
	for _, o := range orders {
		expr := "id"
		if o.Field != models.FieldID {
			expr = "doc->" + b.arg(o.Field)
		}
		if o.Desc {
			expr += " DESC"
		} else {
			expr += " ASC"
		}
		parts = append(parts, expr)
	}
	parts = append(parts, "seq ASC")
	return strings.Join(parts, ", ")
}

func sqlOperator(op filter.Op) string {
	switch op {
	case filter.OpEq:
		return "="
	case filter.OpNeq:
		return "<>"
	case filter.OpGt:
		return ">"
	case filter.OpGte:
		return ">="
	case filter.OpLt:
		return "<"
	}
	return "<="
}

func jsonList(values []any) []string {
	out := make([]string, len(values))
	for i, v := range values {
		payload, _ := json.Marshal(v)
		out[i] = string(payload)
	}
	return out
}
