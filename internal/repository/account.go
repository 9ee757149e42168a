package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/haperhq/haper-auth/internal/model"
)

// AccountRepository defines the interface for provider-account database
// operations.
type AccountRepository interface {
	CreateAccount(ctx context.Context, account *model.Account) (*model.Account, error)
	GetAccount(ctx context.Context, provider, providerAccountID string) (*model.Account, error)
	GetAccountByEmailAndProvider(ctx context.Context, email, provider string) (*model.Account, error)
	ListAccountsByUserID(ctx context.Context, userID string) ([]model.Account, error)
	UpdateAccountTokens(ctx context.Context, provider, providerAccountID string, params UpdateAccountTokensParams) error
}

// UpdateAccountTokensParams defines the optional token fields to refresh in
// place. Only the fields that are not nil will be updated.
type UpdateAccountTokensParams struct {
	AccessToken  *string
	RefreshToken *string
	ExpiresAt    *int64
}

const accountCollection = "accounts"

type accountMongoRepository struct {
	db *mongo.Database
}

// NewAccountMongoRepository creates the accounts repository and ensures the
// compound unique index on (provider, provider_account_id).
func NewAccountMongoRepository(ctx context.Context, logger *zerolog.Logger, db *mongo.Database) AccountRepository {
	collection := db.Collection(accountCollection)

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "provider", Value: 1},
				{Key: "provider_account_id", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create account indexes")
	}

	return &accountMongoRepository{db: db}
}

func (r *accountMongoRepository) CreateAccount(ctx context.Context, account *model.Account) (*model.Account, error) {
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	account.CreatedAt = time.Now().UTC()

	if _, err := r.db.Collection(accountCollection).InsertOne(ctx, account); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicateAccountLink
		}

		return nil, err
	}

	return account, nil
}

func (r *accountMongoRepository) GetAccount(
	ctx context.Context,
	provider, providerAccountID string,
) (*model.Account, error) {
	result := r.db.Collection(accountCollection).FindOne(ctx, bson.M{
		"provider":            provider,
		"provider_account_id": providerAccountID,
	})

	var account model.Account
	if err := result.Decode(&account); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}

		return nil, err
	}

	return &account, nil
}

func (r *accountMongoRepository) GetAccountByEmailAndProvider(
	ctx context.Context,
	email, provider string,
) (*model.Account, error) {
	result := r.db.Collection(accountCollection).FindOne(ctx, bson.M{
		"email":    email,
		"provider": provider,
	})

	var account model.Account
	if err := result.Decode(&account); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}

		return nil, err
	}

	return &account, nil
}

func (r *accountMongoRepository) ListAccountsByUserID(ctx context.Context, userID string) ([]model.Account, error) {
	cursor, err := r.db.Collection(accountCollection).Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, err
	}

	var accounts []model.Account
	if err := cursor.All(ctx, &accounts); err != nil {
		return nil, err
	}

	return accounts, nil
}

// UpdateAccountTokens refreshes the stored token material in place. A missing
// (provider, provider_account_id) pair is a silent no-op; callers that care
// must check existence first.
func (r *accountMongoRepository) UpdateAccountTokens(
	ctx context.Context,
	provider, providerAccountID string,
	params UpdateAccountTokensParams,
) error {
	updateMap := bson.M{}
	if params.AccessToken != nil {
		updateMap["access_token"] = *params.AccessToken
	}
	if params.RefreshToken != nil {
		updateMap["refresh_token"] = *params.RefreshToken
	}
	if params.ExpiresAt != nil {
		updateMap["expires_at"] = *params.ExpiresAt
	}

	if len(updateMap) == 0 {
		return nil
	}

	_, err := r.db.Collection(accountCollection).UpdateOne(
		ctx,
		bson.M{"provider": provider, "provider_account_id": providerAccountID},
		bson.M{"$set": updateMap},
	)
	return err
}
