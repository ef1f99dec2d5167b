package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/annel0/radzone/internal/region"
	"github.com/annel0/radzone/internal/vec"
)

// MongoConfig параметры подключения к MongoDB
type MongoConfig struct {
	URI        string // e.g. mongodb://localhost:27017
	Database   string // e.g. radzone
	Collection string // e.g. regions
}

// MongoRegistry реализует Registry на MongoDB
type MongoRegistry struct {
	client     *mongo.Client
	collection *mongo.Collection
	ctxTimeout time.Duration
}

// regionDoc документ коллекции; габариты для отбора в RegionsAt
type regionDoc struct {
	region.Definition `bson:",inline"`
	MinX              int       `bson:"min_x"`
	MaxX              int       `bson:"max_x"`
	MinZ              int       `bson:"min_z"`
	MaxZ              int       `bson:"max_z"`
	UpdatedAt         time.Time `bson:"updated_at"`
}

// NewMongoRegistry подключается к MongoDB и создаёт индексы
func NewMongoRegistry(cfg MongoConfig) (*MongoRegistry, error) {
	if cfg.URI == "" {
		cfg.URI = "mongodb://localhost:27017"
	}
	if cfg.Database == "" {
		cfg.Database = "radzone"
	}
	if cfg.Collection == "" {
		cfg.Collection = "regions"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	repo := &MongoRegistry{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		ctxTimeout: 5 * time.Second,
	}
	if err := repo.ensureIndexes(); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return repo, nil
}

func (m *MongoRegistry) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), m.ctxTimeout)
	defer cancel()
	keyIdx := mongo.IndexModel{
		Keys:    bson.D{{Key: "world_id", Value: 1}, {Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("world_name_unique"),
	}
	bboxIdx := mongo.IndexModel{
		Keys:    bson.D{{Key: "world_id", Value: 1}, {Key: "min_x", Value: 1}, {Key: "min_z", Value: 1}},
		Options: options.Index().SetName("world_bbox"),
	}
	_, err := m.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{keyIdx, bboxIdx})
	if err != nil {
		return fmt.Errorf("mongo indexes: %w", err)
	}
	return nil
}

func (m *MongoRegistry) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, m.ctxTimeout)
}

func (m *MongoRegistry) AddPolygonalRegion(ctx context.Context, def region.Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	box := boundsOf(def)
	doc := regionDoc{
		Definition: def,
		MinX:       box.MinX,
		MaxX:       box.MaxX,
		MinZ:       box.MinZ,
		MaxZ:       box.MaxZ,
		UpdatedAt:  time.Now().UTC(),
	}
	filter := bson.M{"world_id": def.WorldID, "name": def.Name}
	_, err := m.collection.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("ошибка сохранения региона %s в MongoDB: %w", def.Key(), err)
	}
	return nil
}

func (m *MongoRegistry) Get(ctx context.Context, worldID, name string) (region.Definition, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	var doc regionDoc
	err := m.collection.FindOne(ctx, bson.M{"world_id": worldID, "name": name}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return region.Definition{}, notFound(worldID, name)
	}
	if err != nil {
		return region.Definition{}, fmt.Errorf("ошибка чтения региона из MongoDB: %w", err)
	}
	return doc.Definition, nil
}

func (m *MongoRegistry) List(ctx context.Context, worldID string) ([]region.Definition, error) {
	return m.find(ctx, bson.M{"world_id": worldID})
}

func (m *MongoRegistry) Remove(ctx context.Context, worldID, name string) error {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	res, err := m.collection.DeleteOne(ctx, bson.M{"world_id": worldID, "name": name})
	if err != nil {
		return fmt.Errorf("ошибка удаления региона из MongoDB: %w", err)
	}
	if res.DeletedCount == 0 {
		return notFound(worldID, name)
	}
	return nil
}

func (m *MongoRegistry) RegionsAt(ctx context.Context, worldID string, pos vec.Vec3) ([]region.Definition, error) {
	defs, err := m.find(ctx, bson.M{
		"world_id": worldID,
		"min_y":    bson.M{"$lte": pos.Y},
		"max_y":    bson.M{"$gte": pos.Y},
		"min_x":    bson.M{"$lte": pos.X},
		"max_x":    bson.M{"$gte": pos.X},
		"min_z":    bson.M{"$lte": pos.Z},
		"max_z":    bson.M{"$gte": pos.Z},
	})
	if err != nil {
		return nil, err
	}
	return filterAt(defs, pos), nil
}

func (m *MongoRegistry) find(ctx context.Context, filter bson.M) ([]region.Definition, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	cur, err := m.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса регионов MongoDB: %w", err)
	}
	defer cur.Close(ctx)

	defs := make([]region.Definition, 0)
	for cur.Next(ctx) {
		var doc regionDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		defs = append(defs, doc.Definition)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return defs, nil
}

func (m *MongoRegistry) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), m.ctxTimeout)
	defer cancel()
	return m.client.Disconnect(ctx)
}
