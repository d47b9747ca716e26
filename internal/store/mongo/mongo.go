// Package mongo implements store.Store on top of a MongoDB database.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/vovakirdan/relaychat/internal/store"
)

const (
	usersCollection    = "users"
	messagesCollection = "messages"
)

type userDoc struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	Email      string             `bson:"email"`
	FullName   string             `bson:"fullName"`
	Password   string             `bson:"password"`
	ProfilePic string             `bson:"profilePic"`
	CreatedAt  time.Time          `bson:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt"`
}

func (d *userDoc) toUser() *store.User {
	return &store.User{
		ID:           d.ID.Hex(),
		Email:        d.Email,
		FullName:     d.FullName,
		PasswordHash: d.Password,
		ProfilePic:   d.ProfilePic,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

type messageDoc struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	SenderID   primitive.ObjectID `bson:"senderId"`
	ReceiverID primitive.ObjectID `bson:"receiverId"`
	Text       string             `bson:"text,omitempty"`
	Image      string             `bson:"image,omitempty"`
	CreatedAt  time.Time          `bson:"createdAt"`
}

func (d *messageDoc) toMessage() *store.Message {
	return &store.Message{
		ID:         d.ID.Hex(),
		SenderID:   d.SenderID.Hex(),
		ReceiverID: d.ReceiverID.Hex(),
		Text:       d.Text,
		Image:      d.Image,
		CreatedAt:  d.CreatedAt,
	}
}

// MongoStore implements store.Store for MongoDB.
type MongoStore struct {
	client   *mongo.Client
	users    *mongo.Collection
	messages *mongo.Collection
}

// New creates a client for uri and binds the named database.
// The driver dials lazily; use Connect to verify the server is reachable.
func New(uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("create mongo client: %w", err)
	}

	db := client.Database(database)
	return &MongoStore{
		client:   client,
		users:    db.Collection(usersCollection),
		messages: db.Collection(messagesCollection),
	}, nil
}

// Connect pings the primary and ensures indexes exist.
func (s *MongoStore) Connect(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("ping mongo: %w", err)
	}

	_, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create users index: %w", err)
	}

	_, err = s.messages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "senderId", Value: 1},
			{Key: "receiverId", Value: 1},
			{Key: "createdAt", Value: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("create messages index: %w", err)
	}

	return nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// now truncates to the millisecond precision BSON dates carry.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// ==== UserStore implementation ====

// CreateUser inserts a new user document.
func (s *MongoStore) CreateUser(ctx context.Context, user *store.User) error {
	ts := now()
	doc := userDoc{
		ID:         primitive.NewObjectID(),
		Email:      strings.ToLower(strings.TrimSpace(user.Email)),
		FullName:   user.FullName,
		Password:   user.PasswordHash,
		ProfilePic: user.ProfilePic,
		CreatedAt:  ts,
		UpdatedAt:  ts,
	}

	if _, err := s.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("insert user: %w", store.ErrDuplicate)
		}
		return fmt.Errorf("insert user: %w", err)
	}

	user.ID = doc.ID.Hex()
	user.Email = doc.Email
	user.CreatedAt = ts
	user.UpdatedAt = ts
	return nil
}

// GetUserByID retrieves a user by its hex ObjectID.
func (s *MongoStore) GetUserByID(ctx context.Context, id string) (*store.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("user: %w", store.ErrNotFound)
	}
	return s.findUser(ctx, bson.M{"_id": oid})
}

// GetUserByEmail retrieves a user by email.
func (s *MongoStore) GetUserByEmail(ctx context.Context, email string) (*store.User, error) {
	return s.findUser(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))})
}

func (s *MongoStore) findUser(ctx context.Context, filter bson.M) (*store.User, error) {
	var doc userDoc
	if err := s.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("user: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return doc.toUser(), nil
}

// UpdateProfilePic sets the profile picture and returns the updated document.
func (s *MongoStore) UpdateProfilePic(ctx context.Context, id, profilePic string) (*store.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("user: %w", store.ErrNotFound)
	}

	update := bson.M{"$set": bson.M{"profilePic": profilePic, "updatedAt": now()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc userDoc
	if err := s.users.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("user: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("update profile pic: %w", err)
	}
	return doc.toUser(), nil
}

// ListUsersExcept returns all users other than id.
func (s *MongoStore) ListUsersExcept(ctx context.Context, id string) ([]*store.User, error) {
	filter := bson.M{}
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		filter["_id"] = bson.M{"$ne": oid}
	}
	opts := options.Find().SetSort(bson.D{{Key: "fullName", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := s.users.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}

	var docs []userDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}

	users := make([]*store.User, 0, len(docs))
	for i := range docs {
		users = append(users, docs[i].toUser())
	}
	return users, nil
}

// ==== MessageStore implementation ====

// SaveMessage inserts a message document.
func (s *MongoStore) SaveMessage(ctx context.Context, msg *store.Message) error {
	sender, err := primitive.ObjectIDFromHex(msg.SenderID)
	if err != nil {
		return fmt.Errorf("sender id: %w", err)
	}
	receiver, err := primitive.ObjectIDFromHex(msg.ReceiverID)
	if err != nil {
		return fmt.Errorf("receiver id: %w", err)
	}

	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = now()
	}
	doc := messageDoc{
		ID:         primitive.NewObjectID(),
		SenderID:   sender,
		ReceiverID: receiver,
		Text:       msg.Text,
		Image:      msg.Image,
		CreatedAt:  msg.CreatedAt,
	}

	if _, err := s.messages.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	msg.ID = doc.ID.Hex()
	return nil
}

// ListConversation returns the messages exchanged between two users.
func (s *MongoStore) ListConversation(ctx context.Context, userA, userB string, limit int) ([]*store.Message, error) {
	a, errA := primitive.ObjectIDFromHex(userA)
	b, errB := primitive.ObjectIDFromHex(userB)
	if errA != nil || errB != nil {
		return []*store.Message{}, nil
	}

	filter := bson.M{"$or": bson.A{
		bson.M{"senderId": a, "receiverId": b},
		bson.M{"senderId": b, "receiverId": a},
	}}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := s.messages.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}

	var docs []messageDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}

	messages := make([]*store.Message, len(docs))
	for i := range docs {
		// Newest first from the query; flip to chronological.
		messages[len(docs)-1-i] = docs[i].toMessage()
	}
	return messages, nil
}
