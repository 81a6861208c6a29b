package storage

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/yadu/yadu-backend/internal/users"
)

// MongoDB のドキュメント検証エラー (DocumentValidationFailure)
const mongoValidationFailure = 121

// userDocument はコレクションに保存されるユーザードキュメントです。
// _id は内部の識別子で、外部には userId だけを出します。
type userDocument struct {
	ID       primitive.ObjectID `bson:"_id,omitempty"`
	UserID   string             `bson:"userId"`
	Username string             `bson:"username"`
	Password string             `bson:"password"`
	Groups   []string           `bson:"groups"`
}

func (d *userDocument) toUser() *users.User {
	groups := d.Groups
	if groups == nil {
		groups = []string{}
	}
	return &users.User{
		UserID:   d.UserID,
		Username: d.Username,
		Password: d.Password,
		Groups:   groups,
	}
}

// MongoStore は MongoDB のコレクションにユーザーを保存します。
type MongoStore struct {
	coll *mongo.Collection
}

// ConnectMongo は MongoDB に接続し、疎通確認まで行います。
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

// NewMongoStore は MongoStore を作成します。
func NewMongoStore(coll *mongo.Collection) *MongoStore {
	return &MongoStore{coll: coll}
}

// EnsureIndexes は username と userId の一意インデックスを作成します。
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("username_unique"),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("userId_unique"),
		},
	})
	if err != nil {
		return translateMongoError("create indexes", err)
	}
	return nil
}

// FindAll は作成順に全ユーザーを返します。
func (s *MongoStore) FindAll(ctx context.Context) ([]users.User, error) {
	cur, err := s.coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, translateMongoError("find users", err)
	}
	var docs []userDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, translateMongoError("find users", err)
	}

	out := make([]users.User, 0, len(docs))
	for i := range docs {
		out = append(out, *docs[i].toUser())
	}
	return out, nil
}

// FindByUsername はユーザー名で検索します。
func (s *MongoStore) FindByUsername(ctx context.Context, username string) (*users.User, error) {
	return s.findOne(ctx, "find user by name", bson.D{{Key: "username", Value: username}}, username)
}

// FindByID は userId で検索します。
func (s *MongoStore) FindByID(ctx context.Context, userID string) (*users.User, error) {
	return s.findOne(ctx, "find user by id", bson.D{{Key: "userId", Value: userID}}, userID)
}

func (s *MongoStore) findOne(ctx context.Context, op string, filter bson.D, key string) (*users.User, error) {
	var doc userDocument
	if err := s.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, users.NotFound("user %q not found", key)
		}
		return nil, translateMongoError(op, err)
	}
	return doc.toUser(), nil
}

// Insert はユーザーを追加します。
func (s *MongoStore) Insert(ctx context.Context, user *users.User) error {
	if err := validateRecord(user); err != nil {
		return err
	}
	groups := user.Groups
	if groups == nil {
		groups = []string{}
	}
	doc := userDocument{
		UserID:   user.UserID,
		Username: user.Username,
		Password: user.Password,
		Groups:   groups,
	}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return translateMongoError("insert user", err)
	}
	return nil
}

// Update は変更のあるフィールドだけを $set します。
func (s *MongoStore) Update(ctx context.Context, userID string, changes users.Changes) error {
	set := bson.D{}
	if changes.Username != nil {
		set = append(set, bson.E{Key: "username", Value: *changes.Username})
	}
	if changes.Password != nil {
		set = append(set, bson.E{Key: "password", Value: *changes.Password})
	}
	if changes.Groups != nil {
		set = append(set, bson.E{Key: "groups", Value: *changes.Groups})
	}
	if len(set) == 0 {
		_, err := s.FindByID(ctx, userID)
		return err
	}

	res, err := s.coll.UpdateOne(ctx,
		bson.D{{Key: "userId", Value: userID}},
		bson.D{{Key: "$set", Value: set}},
	)
	if err != nil {
		return translateMongoError("update user", err)
	}
	if res.MatchedCount == 0 {
		return users.NotFound("user %q not found", userID)
	}
	return nil
}

// Delete はユーザーを一件削除します。
func (s *MongoStore) Delete(ctx context.Context, userID string) error {
	res, err := s.coll.DeleteOne(ctx, bson.D{{Key: "userId", Value: userID}})
	if err != nil {
		return translateMongoError("delete user", err)
	}
	if res.DeletedCount == 0 {
		return users.NotFound("user %q not found", userID)
	}
	return nil
}

// translateMongoError はドライバのエラーを種別付きエラーに変換します。
func translateMongoError(op string, err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return users.Duplicated("username or userId already exists", err)
	}
	var se mongo.ServerError
	if errors.As(err, &se) && se.HasErrorCode(mongoValidationFailure) {
		return users.InvalidData("user document failed validation")
	}
	return users.DBError(op, err)
}
