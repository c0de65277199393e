package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/nhle/taskflow/internal/model"
)

// connectTimeout bounds the initial connection and ping.
const connectTimeout = 10 * time.Second

// taskDoc is the BSON shape of a task document.
type taskDoc struct {
	ID          string    `bson:"_id"`
	UserID      string    `bson:"userId"`
	Text        string    `bson:"text"`
	Description string    `bson:"description"`
	Status      string    `bson:"status"`
	Priority    string    `bson:"priority"`
	Tags        []string  `bson:"tags"`
	DueDate     *string   `bson:"dueDate,omitempty"`
	ParentID    *string   `bson:"parentId,omitempty"`
	Order       float64   `bson:"order"`
	CreatedAt   time.Time `bson:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt"`
}

// MongoStore implements DocumentStore on a MongoDB collection. Live
// queries follow the collection's change stream; deployments without
// change streams (standalone servers) fall back to polling.
type MongoStore struct {
	client  *mongo.Client
	coll    *mongo.Collection
	breaker *gobreaker.CircuitBreaker
	log     *logrus.Entry

	pollInterval time.Duration
}

// NewMongoStore connects to cfg.MongoURI and verifies the connection.
func NewMongoStore(ctx context.Context, cfg model.StoreConfig, log *logrus.Logger) (*MongoStore, error) {
	if log == nil {
		log = logrus.New()
	}

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongodb: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongodb: %w", err)
	}

	s := newMongoStore(client, cfg, log)
	s.log.WithFields(logrus.Fields{
		"database":   cfg.MongoDatabase,
		"collection": cfg.MongoCollection,
	}).Info("connected to mongodb")

	return s, nil
}

func newMongoStore(client *mongo.Client, cfg model.StoreConfig, log *logrus.Logger) *MongoStore {
	entry := log.WithField("component", "mongo-store")

	interval := time.Duration(cfg.PingIntervalSec) * time.Second
	if interval <= 0 {
		interval = 15 * time.Second
	}

	return &MongoStore{
		client: client,
		coll:   client.Database(cfg.MongoDatabase).Collection(cfg.MongoCollection),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "mongo-tasks",
			MaxRequests: 1,
			Timeout:     5 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 3
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				entry.Infof("circuit breaker %q changed from %s to %s", name, from.String(), to.String())
			},
		}),
		log:          entry,
		pollInterval: interval,
	}
}

// EnsureIndexes creates the owner/order index used by live queries.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "order", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("creating task index: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Ping reports whether the primary is reachable.
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// exec runs fn through the circuit breaker.
func (s *MongoStore) exec(fn func() (interface{}, error)) (interface{}, error) {
	return s.breaker.Execute(fn)
}

// changeEvent is the part of a change stream event a subscription reads.
type changeEvent struct {
	OperationType string `bson:"operationType"`
	DocumentKey   struct {
		ID string `bson:"_id"`
	} `bson:"documentKey"`
}

// changePipeline matches writes to ownerID's documents and every delete.
// Delete events carry only the document key, so they are narrowed to the
// owner's tasks by affects.
func changePipeline(ownerID string) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "$or", Value: bson.A{
			bson.D{{Key: "fullDocument.userId", Value: ownerID}},
			bson.D{{Key: "operationType", Value: "delete"}},
		}}}}},
	}
}

// affects reports whether ev changes the snapshot holding known.
func (ev changeEvent) affects(known map[string]struct{}) bool {
	if ev.OperationType != "delete" {
		return true
	}
	_, ok := known[ev.DocumentKey.ID]
	return ok
}

func taskIDs(tasks []model.Task) map[string]struct{} {
	ids := make(map[string]struct{}, len(tasks))
	for _, t := range tasks {
		ids[t.ID] = struct{}{}
	}
	return ids
}

// Subscribe opens a live query over ownerID's tasks. The change stream is
// opened before the first read so no write between the two is missed.
func (s *MongoStore) Subscribe(ctx context.Context, ownerID string) (<-chan Snapshot, error) {
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
	stream, watchErr := s.coll.Watch(ctx, changePipeline(ownerID), opts)

	tasks, err := s.find(ctx, ownerID)
	if err != nil {
		if stream != nil {
			_ = stream.Close(context.Background())
		}
		return nil, fmt.Errorf("subscribing to tasks of %s: %w", ownerID, err)
	}

	out := make(chan Snapshot, 1)
	deliver(out, Snapshot{Tasks: tasks})

	if watchErr != nil {
		s.log.WithError(watchErr).Warn("change streams unavailable, polling instead")
		go func() {
			defer close(out)
			s.poll(ctx, ownerID, out)
		}()
		return out, nil
	}
	go s.watch(ctx, ownerID, stream, taskIDs(tasks), out)
	return out, nil
}

// watch pushes a fresh snapshot after every change event that touches
// ownerID's tasks until ctx is cancelled, then closes out.
func (s *MongoStore) watch(ctx context.Context, ownerID string, stream *mongo.ChangeStream, known map[string]struct{}, out chan Snapshot) {
	defer close(out)
	defer stream.Close(context.Background())

	for stream.Next(ctx) {
		var ev changeEvent
		if err := stream.Decode(&ev); err != nil {
			s.log.WithError(err).Debug("decoding change event")
		} else if !ev.affects(known) {
			continue
		}
		if tasks, ok := s.push(ctx, ownerID, out); ok {
			known = taskIDs(tasks)
		}
	}
	if err := stream.Err(); err != nil && ctx.Err() == nil {
		s.log.WithError(err).WithField("owner", ownerID).Warn("change stream ended")
		deliver(out, Snapshot{Err: err})
	}
}

// poll re-reads ownerID's tasks every pollInterval.
func (s *MongoStore) poll(ctx context.Context, ownerID string, out chan Snapshot) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.push(ctx, ownerID, out)
		}
	}
}

// push delivers a fresh snapshot of ownerID's tasks and returns it.
func (s *MongoStore) push(ctx context.Context, ownerID string, out chan Snapshot) ([]model.Task, bool) {
	tasks, err := s.find(ctx, ownerID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false
		}
		deliver(out, Snapshot{Err: err})
		return nil, false
	}
	deliver(out, Snapshot{Tasks: tasks})
	return tasks, true
}

// find returns ownerID's tasks ordered by order.
func (s *MongoStore) find(ctx context.Context, ownerID string) ([]model.Task, error) {
	res, err := s.exec(func() (interface{}, error) {
		opts := options.Find().SetSort(bson.D{{Key: "order", Value: 1}})
		cursor, err := s.coll.Find(ctx, bson.M{"userId": ownerID}, opts)
		if err != nil {
			return nil, err
		}
		defer cursor.Close(ctx)

		var docs []taskDoc
		if err := cursor.All(ctx, &docs); err != nil {
			return nil, err
		}
		return docs, nil
	})
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}

	docs := res.([]taskDoc)
	tasks := make([]model.Task, 0, len(docs))
	for _, d := range docs {
		t, err := d.toModel()
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// Insert stores a new task document. Generates a UUID if ID is empty.
func (s *MongoStore) Insert(ctx context.Context, task model.Task) (string, error) {
	if task.OwnerID == "" {
		return "", fmt.Errorf("task owner must not be empty")
	}
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now

	doc := docFromModel(task)
	_, err := s.exec(func() (interface{}, error) {
		return s.coll.InsertOne(ctx, doc)
	})
	if err != nil {
		return "", fmt.Errorf("inserting task: %w", err)
	}
	return task.ID, nil
}

// Merge updates the fields set in patch and refreshes updatedAt.
func (s *MongoStore) Merge(ctx context.Context, id string, patch model.Patch) error {
	update := mergeUpdate(patch)

	res, err := s.exec(func() (interface{}, error) {
		return s.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	})
	if err != nil {
		return fmt.Errorf("updating task %s: %w", id, err)
	}
	if res.(*mongo.UpdateResult).MatchedCount == 0 {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return nil
}

// Delete removes a single task by ID.
func (s *MongoStore) Delete(ctx context.Context, id string) error {
	res, err := s.exec(func() (interface{}, error) {
		return s.coll.DeleteOne(ctx, bson.M{"_id": id})
	})
	if err != nil {
		return fmt.Errorf("deleting task %s: %w", id, err)
	}
	if res.(*mongo.DeleteResult).DeletedCount == 0 {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return nil
}

// IsBreakerOpen reports whether err was caused by an open circuit breaker.
func IsBreakerOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// mergeUpdate builds the update document for a patch.
func mergeUpdate(p model.Patch) bson.M {
	set := bson.M{"updatedAt": time.Now().UTC()}
	unset := bson.M{}

	if p.Text != nil {
		set["text"] = *p.Text
	}
	if p.Description != nil {
		set["description"] = *p.Description
	}
	if p.Status != nil {
		set["status"] = string(*p.Status)
	}
	if p.Priority != nil {
		set["priority"] = string(*p.Priority)
	}
	if p.Tags != nil {
		tags := *p.Tags
		if tags == nil {
			tags = []string{}
		}
		set["tags"] = tags
	}
	if p.DueDate != nil {
		set["dueDate"] = p.DueDate.String()
	} else if p.ClearDueDate {
		unset["dueDate"] = ""
	}
	if p.ParentID != nil && *p.ParentID != "" {
		set["parentId"] = *p.ParentID
	} else if p.ClearParent || p.ParentID != nil {
		unset["parentId"] = ""
	}
	if p.Order != nil {
		set["order"] = *p.Order
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	return update
}

func docFromModel(t model.Task) taskDoc {
	d := taskDoc{
		ID:          t.ID,
		UserID:      t.OwnerID,
		Text:        t.Text,
		Description: t.Description,
		Status:      string(t.Status),
		Priority:    string(t.Priority),
		Tags:        t.Tags,
		Order:       t.Order,
		CreatedAt:   t.CreatedAt.UTC(),
		UpdatedAt:   t.UpdatedAt.UTC(),
	}
	if d.Status == "" {
		d.Status = string(model.StatusBacklog)
	}
	if d.Priority == "" {
		d.Priority = string(model.PriorityNormal)
	}
	if d.Tags == nil {
		d.Tags = []string{}
	}
	if t.DueDate != nil {
		due := t.DueDate.String()
		d.DueDate = &due
	}
	if t.IsSubtask() {
		parent := *t.ParentID
		d.ParentID = &parent
	}
	return d
}

func (d taskDoc) toModel() (model.Task, error) {
	t := model.Task{
		ID:          d.ID,
		OwnerID:     d.UserID,
		Text:        d.Text,
		Description: d.Description,
		Status:      model.Status(d.Status),
		Priority:    model.Priority(d.Priority),
		Tags:        append([]string{}, d.Tags...),
		Order:       d.Order,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	if d.DueDate != nil && *d.DueDate != "" {
		due, err := model.ParseDueDate(*d.DueDate, time.Local)
		if err != nil {
			return model.Task{}, fmt.Errorf("task %s: %w", d.ID, err)
		}
		t.DueDate = &due
	}
	if d.ParentID != nil && *d.ParentID != "" {
		parent := *d.ParentID
		t.ParentID = &parent
	}
	return t, nil
}
