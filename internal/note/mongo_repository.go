package note

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"notechat/internal/database"
)

// NoteDocument represents a note document in MongoDB
type NoteDocument struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	OwnerID         string             `bson:"owner_id"`
	CollaboratorIDs []string           `bson:"collaborator_ids"`
	Title           string             `bson:"title"`
	Content         string             `bson:"content"`
	Tags            []string           `bson:"tags"`
	CreatedAt       time.Time          `bson:"created_at"`
	UpdatedAt       time.Time          `bson:"updated_at"`
}

// ToNote converts NoteDocument to Note entity
func (doc *NoteDocument) ToNote() *Note {
	return &Note{
		ID:              doc.ID.Hex(),
		OwnerID:         doc.OwnerID,
		CollaboratorIDs: doc.CollaboratorIDs,
		Title:           doc.Title,
		Content:         doc.Content,
		Tags:            doc.Tags,
		CreatedAt:       doc.CreatedAt,
		UpdatedAt:       doc.UpdatedAt,
	}
}

// MongoRepository implements Repository using MongoDB
type MongoRepository struct {
	collection *mongo.Collection
	timeout    time.Duration
}

// NewMongoRepository creates a new MongoDB note repository
func NewMongoRepository(db *database.MongoDB, timeout time.Duration) *MongoRepository {
	return &MongoRepository{
		collection: db.Collection(database.NotesCollection),
		timeout:    timeout,
	}
}

func (r *MongoRepository) FindByID(ctx context.Context, id string) (*Note, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var doc NoteDocument
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find note: %w", err)
	}
	return doc.ToNote(), nil
}

func (r *MongoRepository) Create(ctx context.Context, n *Note) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	now := time.Now().UTC()
	doc := &NoteDocument{
		OwnerID:         n.OwnerID,
		CollaboratorIDs: nonNil(n.CollaboratorIDs),
		Title:           n.Title,
		Content:         n.Content,
		Tags:            nonNil(n.Tags),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	result, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to create note: %w", err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		n.ID = oid.Hex()
	}
	n.CreatedAt, n.UpdatedAt = now, now
	return nil
}

func (r *MongoRepository) ListForUser(ctx context.Context, userID string) ([]*Note, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	filter := bson.M{"$or": bson.A{
		bson.M{"owner_id": userID},
		bson.M{"collaborator_ids": userID},
	}}
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []NoteDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode notes: %w", err)
	}

	notes := make([]*Note, 0, len(docs))
	for i := range docs {
		notes = append(notes, docs[i].ToNote())
	}
	return notes, nil
}

// Update sets only the changed fields and returns the stored note
func (r *MongoRepository) Update(ctx context.Context, id string, changes Changes) (*Note, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	set := bson.M{"updated_at": time.Now().UTC()}
	if changes.Title != nil {
		set["title"] = *changes.Title
	}
	if changes.Content != nil {
		set["content"] = *changes.Content
	}
	if changes.Tags != nil {
		set["tags"] = nonNil(*changes.Tags)
	}
	if changes.Collaborators != nil {
		set["collaborator_ids"] = nonNil(*changes.Collaborators)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc NoteDocument
	if err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update note: %w", err)
	}
	return doc.ToNote(), nil
}

func (r *MongoRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AddCollaborator uses $addToSet so concurrent invites stay idempotent
func (r *MongoRepository) AddCollaborator(ctx context.Context, id, userID string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	update := bson.M{
		"$addToSet": bson.M{"collaborator_ids": userID},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	}
	result, err := r.collection.UpdateByID(ctx, oid, update)
	if err != nil {
		return fmt.Errorf("failed to add collaborator: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
