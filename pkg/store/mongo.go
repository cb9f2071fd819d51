package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore maps tables to collections of one database.
type MongoStore struct {
	DB *mongo.Database
}

// NewMongo returns a MongoStore over the named database.
func NewMongo(cli *mongo.Client, database string) *MongoStore {
	return &MongoStore{DB: cli.Database(database)}
}

func mongoCond(c Condition) (bson.M, error) {
	if len(c.Any) > 0 {
		or := make(bson.A, 0, len(c.Any))
		for _, sub := range c.Any {
			m, err := mongoCond(sub)
			if err != nil {
				return nil, err
			}
			or = append(or, m)
		}
		return bson.M{"$or": or}, nil
	}
	switch c.Op {
	case OpEq:
		return bson.M{c.Column: c.Value}, nil
	case OpNe:
		return bson.M{c.Column: bson.M{"$ne": c.Value}}, nil
	case OpLt:
		return bson.M{c.Column: bson.M{"$lt": c.Value}}, nil
	case OpLte:
		return bson.M{c.Column: bson.M{"$lte": c.Value}}, nil
	case OpGt:
		return bson.M{c.Column: bson.M{"$gt": c.Value}}, nil
	case OpGte:
		return bson.M{c.Column: bson.M{"$gte": c.Value}}, nil
	case OpContains:
		pat := regexp.QuoteMeta(fmt.Sprint(c.Value))
		return bson.M{c.Column: primitive.Regex{Pattern: pat, Options: "i"}}, nil
	case OpIn:
		vals, _ := c.Value.([]any)
		return bson.M{c.Column: bson.M{"$in": vals}}, nil
	case OpIsNull:
		return bson.M{c.Column: nil}, nil
	case OpNotNull:
		return bson.M{c.Column: bson.M{"$ne": nil}}, nil
	}
	return nil, fmt.Errorf("store: operator %q not supported", c.Op)
}

func mongoFilter(scope *Scope, conds []Condition) (bson.M, error) {
	all := bson.A{}
	if scope != nil {
		all = append(all, bson.M{scope.Column: scope.Value})
	}
	for _, c := range conds {
		m, err := mongoCond(c)
		if err != nil {
			return nil, err
		}
		all = append(all, m)
	}
	if len(all) == 0 {
		return bson.M{}, nil
	}
	return bson.M{"$and": all}, nil
}

// objectID converts hex ids of the _id column to ObjectIDs.
func objectID(column string, id any) any {
	if column != "_id" {
		return id
	}
	if s, ok := id.(string); ok {
		if oid, err := primitive.ObjectIDFromHex(s); err == nil {
			return oid
		}
	}
	return id
}

func projection(columns []string) bson.M {
	if len(columns) == 0 {
		return nil
	}
	p := bson.M{}
	for _, c := range columns {
		p[c] = 1
	}
	return p
}

// Count returns the number of documents matching q.
func (s *MongoStore) Count(ctx context.Context, q Query) (int64, error) {
	f, err := mongoFilter(q.Scope, q.Conditions)
	if err != nil {
		return 0, err
	}
	return s.DB.Collection(q.Table).CountDocuments(ctx, f)
}

// Find returns one page of documents.
func (s *MongoStore) Find(ctx context.Context, q Query) ([]Record, error) {
	f, err := mongoFilter(q.Scope, q.Conditions)
	if err != nil {
		return nil, err
	}
	opts := options.Find()
	if p := projection(q.Columns); p != nil {
		opts.SetProjection(p)
	}
	if len(q.OrderBy) > 0 {
		sort := bson.D{}
		for _, o := range q.OrderBy {
			dir := 1
			if o.Desc {
				dir = -1
			}
			sort = append(sort, bson.E{Key: o.Column, Value: dir})
		}
		opts.SetSort(sort)
	}
	if q.Limit > 0 {
		opts.SetSkip(int64(q.Offset)).SetLimit(int64(q.Limit))
	}
	cur, err := s.DB.Collection(q.Table).Find(ctx, f, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []Record
	for cur.Next(ctx) {
		var m bson.M
		if err := cur.Decode(&m); err != nil {
			return nil, err
		}
		out = append(out, fromBSON(m))
	}
	return out, cur.Err()
}

// Get fetches one document by key.
func (s *MongoStore) Get(ctx context.Context, k Key, columns []string) (Record, error) {
	f, err := mongoFilter(k.Scope, []Condition{Eq(k.Column, objectID(k.Column, k.ID))})
	if err != nil {
		return nil, err
	}
	opts := options.FindOne()
	if p := projection(columns); p != nil {
		opts.SetProjection(p)
	}
	var m bson.M
	if err := s.DB.Collection(k.Table).FindOne(ctx, f, opts).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNoRecord
		}
		return nil, err
	}
	return fromBSON(m), nil
}

// Insert stores a document and returns its id.
func (s *MongoStore) Insert(ctx context.Context, table, pkColumn string, values map[string]any) (string, error) {
	doc := bson.M{}
	for k, v := range values {
		doc[k] = v
	}
	if v, ok := doc[pkColumn]; ok && (v == nil || v == "") {
		delete(doc, pkColumn)
	}
	res, err := s.DB.Collection(table).InsertOne(ctx, doc)
	if err != nil {
		return "", err
	}
	if v, ok := doc[pkColumn]; ok {
		return fmt.Sprint(v), nil
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		return oid.Hex(), nil
	}
	return fmt.Sprint(res.InsertedID), nil
}

// Update sets values on the addressed document.
func (s *MongoStore) Update(ctx context.Context, k Key, values map[string]any) error {
	f, err := mongoFilter(k.Scope, []Condition{Eq(k.Column, objectID(k.Column, k.ID))})
	if err != nil {
		return err
	}
	res, err := s.DB.Collection(k.Table).UpdateOne(ctx, f, bson.M{"$set": values})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNoRecord
	}
	return nil
}

// Delete removes the addressed document.
func (s *MongoStore) Delete(ctx context.Context, k Key) error {
	f, err := mongoFilter(k.Scope, []Condition{Eq(k.Column, objectID(k.Column, k.ID))})
	if err != nil {
		return err
	}
	res, err := s.DB.Collection(k.Table).DeleteOne(ctx, f)
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNoRecord
	}
	return nil
}

func fromBSON(m bson.M) Record {
	rec := make(Record, len(m))
	for k, v := range m {
		switch x := v.(type) {
		case primitive.ObjectID:
			rec[k] = x.Hex()
		case primitive.DateTime:
			rec[k] = x.Time().UTC()
		case int32:
			rec[k] = int64(x)
		default:
			rec[k] = v
		}
	}
	return rec
}
