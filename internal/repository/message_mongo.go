package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/oggyb/vivah/internal/db"
)

const messagesCollection = "messages"

// MongoMessageRepository keeps the message log in a MongoDB collection.
// Documents reuse db.Message through its bson tags.
type MongoMessageRepository struct {
	col *mongo.Collection
}

func NewMongoMessageRepository(database *mongo.Database) *MongoMessageRepository {
	return &MongoMessageRepository{col: database.Collection(messagesCollection)}
}

var _ MessageStore = (*MongoMessageRepository)(nil)

// EnsureIndexes creates the thread and unread indexes. Called once on startup.
func (r *MongoMessageRepository) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "sender_id", Value: 1},
				{Key: "receiver_id", Value: 1},
				{Key: "created_at", Value: 1},
			},
			Options: options.Index().SetName("idx_message_pair"),
		},
		{
			Keys: bson.D{
				{Key: "receiver_id", Value: 1},
				{Key: "is_read", Value: 1},
			},
			Options: options.Index().SetName("idx_message_unread"),
		},
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_message_created"),
		},
	}
	_, err := r.col.Indexes().CreateMany(ctx, models)
	return err
}

func (r *MongoMessageRepository) Create(ctx context.Context, m *db.Message) error {
	if m.ID == "" {
		m.ID = db.NewID()
	}
	if m.CreatedAt.IsZero() {
		// BSON dates carry millisecond precision
		m.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	}
	_, err := r.col.InsertOne(ctx, m)
	return err
}

func (r *MongoMessageRepository) GetByID(ctx context.Context, id string) (*db.Message, error) {
	var m db.Message
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MongoMessageRepository) ListThread(ctx context.Context, a, b string) ([]db.Message, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"sender_id": a, "receiver_id": b},
		bson.M{"sender_id": b, "receiver_id": a},
	}}
	opts := options.Find().SetSort(bson.D{
		{Key: "created_at", Value: 1},
		{Key: "_id", Value: 1},
	})

	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []db.Message{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *MongoMessageRepository) MarkThreadRead(ctx context.Context, readerID string, ids []string, at time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := r.col.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}, "receiver_id": readerID, "is_read": false},
		bson.M{"$set": bson.M{"is_read": true, "read_at": at}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *MongoMessageRepository) MarkRead(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id, "is_read": false},
		bson.M{"$set": bson.M{"is_read": true, "read_at": at}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// ListConversations groups on the counterpart inside the server with $group.
func (r *MongoMessageRepository) ListConversations(ctx context.Context, userID string) ([]ConversationSummary, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"$or": bson.A{
			bson.M{"sender_id": userID},
			bson.M{"receiver_id": userID},
		}}}},
		{{Key: "$sort", Value: bson.D{
			{Key: "created_at", Value: -1},
			{Key: "_id", Value: -1},
		}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$sender_id", userID}}, "$receiver_id", "$sender_id",
			}}},
			{Key: "last_message", Value: bson.M{"$first": "$content"}},
			{Key: "last_sender_id", Value: bson.M{"$first": "$sender_id"}},
			{Key: "last_message_at", Value: bson.M{"$first": "$created_at"}},
			{Key: "unread_count", Value: bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$and": bson.A{
					bson.M{"$eq": bson.A{"$receiver_id", userID}},
					bson.M{"$eq": bson.A{"$is_read", false}},
				}}, 1, 0,
			}}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "last_message_at", Value: -1}}}},
	}

	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []ConversationSummary{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	for i := range out {
		out[i].LastMessageAt = out[i].LastMessageAt.UTC()
	}
	return out, nil
}

func (r *MongoMessageRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{"receiver_id": userID, "is_read": false})
}

func (r *MongoMessageRepository) DeleteForUser(ctx context.Context, userID string) (int64, error) {
	res, err := r.col.DeleteMany(ctx, bson.M{"$or": bson.A{
		bson.M{"sender_id": userID},
		bson.M{"receiver_id": userID},
	}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (r *MongoMessageRepository) Count(ctx context.Context) (int64, error) {
	return r.col.CountDocuments(ctx, bson.D{})
}
