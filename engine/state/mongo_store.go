package state

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"swarm1.dev/core/swarmerr"
)

// MongoStore is an alternate Store backend for multi-host deployments where
// the default file-backed store has no shared filesystem to land on. It
// satisfies the same Store interface as FileStore.
type MongoStore struct {
	collection *mongo.Collection
	ctx        context.Context
}

// runDocument is the MongoDB document representation of a RunState,
// keyed by run_id.
type runDocument struct {
	RunID      string               `bson:"_id"`
	GraphID    string               `bson:"graph_id"`
	StartedAt  bson.DateTime        `bson:"started_at"`
	FinishedAt *bson.DateTime       `bson:"finished_at,omitempty"`
	Nodes      map[string]NodeState `bson:"nodes"`
}

// NewMongoStore constructs a MongoStore using the provided collection,
// which should come from an already-connected *mongo.Client. A single ctx
// bounds every subsequent Save/Load call, since Store's interface predates
// context plumbing and the engine always calls it from the same run
// lifetime context.
func NewMongoStore(ctx context.Context, collection *mongo.Collection) *MongoStore {
	return &MongoStore{collection: collection, ctx: ctx}
}

// Save upserts the run document by run_id.
func (m *MongoStore) Save(run *RunState) error {
	doc := toRunDocument(run)
	opts := options.Replace().SetUpsert(true)
	_, err := m.collection.ReplaceOne(m.ctx, bson.M{"_id": run.RunID}, doc, opts)
	if err != nil {
		return swarmerr.Wrap(swarmerr.FileNotFound, fmt.Sprintf("mongo save run %s", run.RunID), err)
	}
	return nil
}

// Load retrieves the run document by run_id.
func (m *MongoStore) Load(runID string) (*RunState, error) {
	var doc runDocument
	err := m.collection.FindOne(m.ctx, bson.M{"_id": runID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, swarmerr.Newf(swarmerr.FileNotFound, "no state found for run %s", runID)
		}
		return nil, swarmerr.Wrap(swarmerr.FileNotFound, fmt.Sprintf("mongo load run %s", runID), err)
	}
	return fromRunDocument(&doc), nil
}

func toRunDocument(run *RunState) runDocument {
	doc := runDocument{
		RunID:     run.RunID,
		GraphID:   run.GraphID,
		StartedAt: bson.NewDateTimeFromTime(run.StartedAt),
		Nodes:     run.Nodes,
	}
	if run.FinishedAt != nil {
		dt := bson.NewDateTimeFromTime(*run.FinishedAt)
		doc.FinishedAt = &dt
	}
	return doc
}

func fromRunDocument(doc *runDocument) *RunState {
	run := &RunState{
		RunID:     doc.RunID,
		GraphID:   doc.GraphID,
		StartedAt: doc.StartedAt.Time(),
		Nodes:     doc.Nodes,
	}
	if doc.FinishedAt != nil {
		t := doc.FinishedAt.Time()
		run.FinishedAt = &t
	}
	return run
}

var _ Store = (*MongoStore)(nil)
