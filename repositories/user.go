//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"chat-relay/domain"
	"chat-relay/errors"
	goerrors "errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const userPrefix = "user:"

type IUserRepository interface {
	CreateUser(username domain.Username, hashedPassword string) error
	GetUserByUsername(username domain.Username) (User, error)
}

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) IUserRepository {
	return &UserRepository{db: db}
}

// User is the stored account. The password is only kept as an Argon2id hash.
type User struct {
	Username     domain.Username
	PasswordHash string
	CreatedAt    time.Time
}

// CreateUser persists a new account under "user:{username}".
// ErrUserAlreadyExists is returned when the key is taken.
func (u UserRepository) CreateUser(username domain.Username, hashedPassword string) error {
	data, err := proto.Marshal(fromUser(User{
		Username:     username,
		PasswordHash: hashedPassword,
		CreatedAt:    time.Now().UTC(),
	}))
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}

	return u.db.Update(func(txn *badger.Txn) error {
		key := []byte(userPrefix + username.String())
		_, err := txn.Get(key)
		switch {
		case err == nil:
			return errors.ErrUserAlreadyExists
		case !goerrors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		return txn.Set(key, data)
	})
}

// GetUserByUsername returns ErrInvalidCredentials for an unknown user.
func (u UserRepository) GetUserByUsername(username domain.Username) (User, error) {
	var record structpb.Struct
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(userPrefix + username.String()))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return proto.Unmarshal(val, &record)
		})
	})
	if goerrors.Is(err, badger.ErrKeyNotFound) {
		return User{}, errors.ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}
	return toUser(&record), nil
}

func fromUser(user User) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"username":      structpb.NewStringValue(user.Username.String()),
		"password_hash": structpb.NewStringValue(user.PasswordHash),
		"created_at":    structpb.NewNumberValue(float64(user.CreatedAt.Unix())),
	}}
}

func toUser(record *structpb.Struct) User {
	f := record.GetFields()
	return User{
		Username:     domain.Username(f["username"].GetStringValue()),
		PasswordHash: f["password_hash"].GetStringValue(),
		CreatedAt:    time.Unix(int64(f["created_at"].GetNumberValue()), 0).UTC(),
	}
}
