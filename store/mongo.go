package store

import (
	"errors"
	"github.com/fuad-daoud/pastabot/logger/dlog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/net/context"
)

const DefaultMongoDatabase = "Morton"

// Mongo keeps one collection per guild; the document id is the command name.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
}

func OpenMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	dlog.Info("Connecting to database", "backend", "mongodb", "database", database)
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, unavailable("connect mongodb", err)
	}
	if err = client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, unavailable("ping mongodb", err)
	}
	dlog.Info("Database connection established", "backend", "mongodb")
	return &Mongo{client: client, db: client.Database(database)}, nil
}

func (m *Mongo) collection(guildID string) *mongo.Collection {
	return m.db.Collection(guildID)
}

func (m *Mongo) AddCommand(ctx context.Context, guildID, name, content string) (bool, error) {
	result, err := m.collection(guildID).UpdateOne(ctx,
		bson.M{"_id": name},
		bson.M{"$set": bson.M{"content": content}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return false, unavailable("add command", err)
	}
	return result.UpsertedID != nil, nil
}

func (m *Mongo) RemoveCommand(ctx context.Context, guildID, name string) (bool, error) {
	result, err := m.collection(guildID).DeleteOne(ctx, bson.M{"_id": name})
	if err != nil {
		return false, unavailable("remove command", err)
	}
	return result.DeletedCount > 0, nil
}

func (m *Mongo) GetCommand(ctx context.Context, guildID, name string) (LookupResult, error) {
	var command Command
	err := m.collection(guildID).FindOne(ctx, bson.M{"_id": name}).Decode(&command)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return NotFound, nil
	}
	if err != nil {
		return NotFound, unavailable("get command", err)
	}
	return Found(command.Content), nil
}

func (m *Mongo) ListCommands(ctx context.Context, guildID string) ([]Command, error) {
	cursor, err := m.collection(guildID).Find(ctx, bson.D{},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}).SetBatchSize(10),
	)
	if err != nil {
		return nil, unavailable("list commands", err)
	}
	defer cursor.Close(ctx)

	var commands []Command
	for cursor.Next(ctx) {
		var command Command
		if err := cursor.Decode(&command); err != nil {
			return nil, unavailable("list commands", err)
		}
		commands = append(commands, command)
	}
	if err = cursor.Err(); err != nil {
		return nil, unavailable("list commands", err)
	}
	return commands, nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
