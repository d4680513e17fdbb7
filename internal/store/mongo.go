package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Mongo is the document Store. Uniqueness invariants that Postgres gets from
// constraints are enforced here by unique indexes created at startup.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongo connects, pings, and ensures indexes.
func NewMongo(ctx context.Context, uri, dbName string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, err
	}
	m := &Mongo{client: client, db: client.Database(dbName)}
	if err := m.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Mongo) ensureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)
	indexes := map[string][]mongo.IndexModel{
		"users": {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "uid", Value: 1}},
				Options: options.Index().SetUnique(true).
					SetPartialFilterExpression(bson.M{"uid": bson.M{"$type": "string"}})},
		},
		"attendance": {
			{Keys: bson.D{{Key: "student_id", Value: 1}, {Key: "date", Value: 1}, {Key: "period_id", Value: 1}},
				Options: unique},
			{Keys: bson.D{{Key: "date", Value: 1}}},
		},
		"timetable": {
			{Keys: bson.D{{Key: "day_of_week", Value: 1}, {Key: "period_id", Value: 1}}, Options: unique},
		},
		"permissions": {
			{Keys: bson.D{{Key: "student_id", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
		"complaints": {
			{Keys: bson.D{{Key: "student_id", Value: 1}}},
		},
	}
	for coll, models := range indexes {
		if _, err := m.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return err
		}
	}
	return nil
}

func (m *Mongo) Users() UserStore           { return &mgUsers{c: m.db.Collection("users")} }
func (m *Mongo) Schedule() ScheduleStore    { return &mgSchedule{c: m.db.Collection("timetable")} }
func (m *Mongo) Ledger() LedgerStore        { return &mgLedger{c: m.db.Collection("attendance")} }
func (m *Mongo) Leaves() LeaveStore         { return &mgLeaves{c: m.db.Collection("permissions")} }
func (m *Mongo) Complaints() ComplaintStore { return &mgComplaints{c: m.db.Collection("complaints")} }
func (m *Mongo) Codes() CodeStore           { return &mgCodes{c: m.db.Collection("activation_codes")} }

func (m *Mongo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

func (m *Mongo) Close() error {
	return m.client.Disconnect(context.Background())
}
