package repository

import (
	"context"
	"errors"
	"fmt"

	apperrors "ticketapi/internal/errors"
	"ticketapi/internal/filter"
	"ticketapi/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoTicketRepository stores tickets as documents of a MongoDB collection. Ids
// are the ObjectIDs assigned on insert, rendered as hex strings.
type MongoTicketRepository struct {
	coll *mongo.Collection
}

func NewMongoTicketRepository(coll *mongo.Collection) *MongoTicketRepository {
	return &MongoTicketRepository{coll: coll}
}

func (r *MongoTicketRepository) Create(ctx context.Context, in models.TicketInput) (*models.Ticket, error) {
	doc := in.Document()

	res, err := r.coll.InsertOne(ctx, bson.M(doc))
	if err != nil {
		return nil, fmt.Errorf("insert ticket: %w", err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	return models.TicketFromDocument(oid.Hex(), doc), nil
}

func (r *MongoTicketRepository) Count(ctx context.Context, where filter.Where) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, mongoWhere(where))
	if err != nil {
		return 0, fmt.Errorf("count tickets: %w", err)
	}
	return n, nil
}

func (r *MongoTicketRepository) Find(ctx context.Context, f *filter.Filter) ([]*models.Ticket, error) {
	opts := options.Find()
	query := bson.M{}
	if f != nil {
		query = mongoWhere(f.Where)
		if len(f.Order) > 0 {
			sort := bson.D{}
			for _, o := range f.Order {
				dir := 1
				if o.Desc {
					dir = -1
				}
				sort = append(sort, bson.E{Key: mongoField(o.Field), Value: dir})
			}
			opts.SetSort(sort)
		}
		if f.Limit > 0 {
			opts.SetLimit(int64(f.Limit))
		}
		if f.Skip > 0 {
			opts.SetSkip(int64(f.Skip))
		}
	}

	cursor, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("find tickets: %w", err)
	}

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode tickets: %w", err)
	}

	tickets := make([]*models.Ticket, 0, len(docs))
	for _, doc := range docs {
		tickets = append(tickets, fromMongo(doc))
	}
	return tickets, nil
}

func (r *MongoTicketRepository) FindByID(ctx context.Context, id string) (*models.Ticket, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperrors.NotFound(id)
	}

	var doc bson.M
	err = r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperrors.NotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("find ticket %s: %w", id, err)
	}
	return fromMongo(doc), nil
}

func (r *MongoTicketRepository) UpdateAll(ctx context.Context, in models.TicketInput, where filter.Where) (int64, error) {
	res, err := r.coll.UpdateMany(ctx, mongoWhere(where), bson.M{"$set": bson.M(in.Document())})
	if err != nil {
		return 0, fmt.Errorf("update tickets: %w", err)
	}
	return res.MatchedCount, nil
}

func (r *MongoTicketRepository) UpdateByID(ctx context.Context, id string, in models.TicketInput) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperrors.NotFound(id)
	}

	res, err := r.coll.UpdateByID(ctx, oid, bson.M{"$set": bson.M(in.Document())})
	if err != nil {
		return fmt.Errorf("update ticket %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound(id)
	}
	return nil
}

func (r *MongoTicketRepository) ReplaceByID(ctx context.Context, id string, in models.TicketInput) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperrors.NotFound(id)
	}

	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": oid}, bson.M(in.Document()))
	if err != nil {
		return fmt.Errorf("replace ticket %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound(id)
	}
	return nil
}

func (r *MongoTicketRepository) DeleteByID(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperrors.NotFound(id)
	}

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete ticket %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return apperrors.NotFound(id)
	}
	return nil
}

func mongoField(field string) string {
	if field == models.FieldID {
		return "_id"
	}
	return field
}

// mongoValue turns ticket ids into ObjectIDs so they compare against _id.
func mongoValue(field string, v any) any {
	if field != models.FieldID {
		return v
	}
	if s, ok := v.(string); ok {
		if oid, err := primitive.ObjectIDFromHex(s); err == nil {
			return oid
		}
	}
	return v
}

func mongoValues(field string, v any) bson.A {
	items := v.([]any)
	out := make(bson.A, len(items))
	for i, item := range items {
		out[i] = mongoValue(field, item)
	}
	return out
}

// mongoWhere translates a where clause into a MongoDB query document.
func mongoWhere(w filter.Where) bson.M {
	query := bson.M{}
	for _, c := range w.Conditions {
		key := mongoField(c.Field)
		ops, _ := query[key].(bson.M)
		if ops == nil {
			ops = bson.M{}
			query[key] = ops
		}
		switch c.Op {
		case filter.OpEq:
			ops["$eq"] = mongoValue(c.Field, c.Value)
		case filter.OpNeq:
			ops["$ne"] = mongoValue(c.Field, c.Value)
		case filter.OpGt:
			ops["$gt"] = mongoValue(c.Field, c.Value)
		case filter.OpGte:
			ops["$gte"] = mongoValue(c.Field, c.Value)
		case filter.OpLt:
			ops["$lt"] = mongoValue(c.Field, c.Value)
		case filter.OpLte:
			ops["$lte"] = mongoValue(c.Field, c.Value)
		case filter.OpInq:
			ops["$in"] = mongoValues(c.Field, c.Value)
		case filter.OpNin:
			ops["$nin"] = mongoValues(c.Field, c.Value)
		case filter.OpBetween:
			bounds := mongoValues(c.Field, c.Value)
			ops["$gte"] = bounds[0]
			ops["$lte"] = bounds[1]
		case filter.OpLike:
			ops["$regex"] = c.Value
		case filter.OpNlike:
			ops["$not"] = primitive.Regex{Pattern: c.Value.(string)}
		case filter.OpExists:
			ops["$exists"] = c.Value
		}
	}
	if len(w.And) > 0 {
		and := make(bson.A, 0, len(w.And))
		for _, sub := range w.And {
			and = append(and, mongoWhere(sub))
		}
		query["$and"] = and
	}
	if len(w.Or) > 0 {
		or := make(bson.A, 0, len(w.Or))
		for _, sub := range w.Or {
			or = append(or, mongoWhere(sub))
		}
		query["$or"] = or
	}
	return query
}

func fromMongo(doc bson.M) *models.Ticket {
	var id string
	if oid, ok := doc["_id"].(primitive.ObjectID); ok {
		id = oid.Hex()
	} else if s, ok := doc["_id"].(string); ok {
		id = s
	}
	flat := make(map[string]any, len(doc))
	for k, v := range doc {
		if k == "_id" {
			continue
		}
		flat[k] = plainValue(v)
	}
	return models.TicketFromDocument(id, flat)
}

// plainValue converts nested BSON types into values encoding/json renders as
// ordinary JSON.
func plainValue(v any) any {
	switch x := v.(type) {
	case primitive.ObjectID:
		return x.Hex()
	case primitive.DateTime:
		return x.Time().UTC()
	case primitive.M:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = plainValue(item)
		}
		return out
	case primitive.D:
		out := make(map[string]any, len(x))
		for _, e := range x {
			out[e.Key] = plainValue(e.Value)
		}
		return out
	case primitive.A:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = plainValue(item)
		}
		return out
	}
	return v
}
