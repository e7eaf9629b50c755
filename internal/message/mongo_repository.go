package message

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"notechat/internal/database"
)

// MongoLog implements Log using MongoDB
type MongoLog struct {
	collection *mongo.Collection
	timeout    time.Duration
}

// NewMongoLog creates a message log backed by the chat_messages collection
func NewMongoLog(db *database.MongoDB, timeout time.Duration) *MongoLog {
	return &MongoLog{
		collection: db.Collection(database.MessagesCollection),
		timeout:    timeout,
	}
}

// Append saves a message to MongoDB
func (l *MongoLog) Append(ctx context.Context, msg *Message) error {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	var doc MessageDocument
	doc.FromMessage(msg)

	if _, err := l.collection.InsertOne(ctx, &doc); err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}
	return nil
}

// History retrieves message history for a note
func (l *MongoLog) History(ctx context.Context, noteID string, limit int) ([]*Message, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	if limit <= 0 {
		limit = 50
	}

	// Newest first so the limit keeps the latest messages
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := l.collection.Find(ctx, bson.M{"note_id": noteID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve message history: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []MessageDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode message history: %w", err)
	}

	messages := make([]*Message, 0, len(docs))
	for i := range docs {
		messages = append(messages, docs[i].ToMessage())
	}
	slices.Reverse(messages)
	return messages, nil
}
