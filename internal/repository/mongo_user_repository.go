package repository

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultMaxAttempts = 5

type mongoUserRepository struct {
	collection  *mongo.Collection
	maxAttempts int
}

func NewMongoUserRepository(db *mongo.Database) UserRepository {
	return &mongoUserRepository{
		collection:  db.Collection(usersCollection),
		maxAttempts: defaultMaxAttempts,
	}
}

func (m *mongoUserRepository) CreateUser(ctx context.Context, user *domain.User) error {
	ts := now()
	if user.ID == "" {
		user.ID = primitive.NewObjectID().Hex()
	}
	user.CreatedAt = ts
	user.UpdatedAt = ts
	// $push and $addToSet fail on a null field, so both arrays start empty rather than nil
	if user.Cart == nil {
		user.Cart = []domain.CartLine{}
	}
	if user.Favourites == nil {
		user.Favourites = []int64{}
	}

	if _, err := m.collection.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrEmailInUse
		}
		return storageErr("failed to create user", err)
	}
	return nil
}

func (m *mongoUserRepository) GetUserByID(ctx context.Context, userID string) (*domain.User, error) {
	return m.findOne(ctx, bson.M{"_id": userID})
}

func (m *mongoUserRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return m.findOne(ctx, bson.M{"email": email})
}

func (m *mongoUserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var user domain.User
	err := m.collection.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, storageErr("failed to get user", err)
	}
	return &user, nil
}

func (m *mongoUserRepository) AddCartItem(ctx context.Context, userID string, productID int64, quantity int) (*domain.User, error) {
	for attempt := 0; attempt < m.maxAttempts; attempt++ {
		ts := now()

		// Line exists: increment it in place
		user, err := m.findAndUpdate(ctx,
			bson.M{"_id": userID, "cart.product_id": productID},
			bson.M{
				"$inc": bson.M{"cart.$.quantity": quantity},
				"$set": bson.M{"cart.$.added_at": ts, "updated_at": ts},
			})
		if err != nil || user != nil {
			return user, err
		}

		// No line yet: append, unless a concurrent request appended it first
		user, err = m.findAndUpdate(ctx,
			bson.M{"_id": userID, "cart.product_id": bson.M{"$ne": productID}},
			bson.M{
				"$push": bson.M{"cart": domain.CartLine{ProductID: productID, Quantity: quantity, AddedAt: ts}},
				"$set":  bson.M{"updated_at": ts},
			})
		if err != nil || user != nil {
			return user, err
		}

		if _, err := m.GetUserByID(ctx, userID); err != nil {
			return nil, err
		}
	}
	return nil, ErrContention
}

func (m *mongoUserRepository) RemoveCartItem(ctx context.Context, userID string, productID int64, quantity int) (*domain.User, error) {
	for attempt := 0; attempt < m.maxAttempts; attempt++ {
		ts := now()
		pullFilter := bson.M{"_id": userID, "cart.product_id": productID}

		if quantity > 0 {
			// Decrement that leaves a positive quantity
			user, err := m.findAndUpdate(ctx,
				bson.M{"_id": userID, "cart": bson.M{"$elemMatch": bson.M{
					"product_id": productID,
					"quantity":   bson.M{"$gt": quantity},
				}}},
				bson.M{
					"$inc": bson.M{"cart.$.quantity": -quantity},
					"$set": bson.M{"updated_at": ts},
				})
			if err != nil || user != nil {
				return user, err
			}
			pullFilter = bson.M{"_id": userID, "cart": bson.M{"$elemMatch": bson.M{
				"product_id": productID,
				"quantity":   bson.M{"$lte": quantity},
			}}}
		}

		user, err := m.findAndUpdate(ctx, pullFilter, bson.M{
			"$pull": bson.M{"cart": bson.M{"product_id": productID}},
			"$set":  bson.M{"updated_at": ts},
		})
		if err != nil || user != nil {
			return user, err
		}

		current, err := m.GetUserByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		if current.Line(productID) == nil {
			return nil, domain.ErrCartLineNotFound
		}
		// the line's quantity moved between the two conditional updates
	}
	return nil, ErrContention
}

func (m *mongoUserRepository) ClearCartBefore(ctx context.Context, userID string, before time.Time) error {
	result, err := m.collection.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{
			"$pull": bson.M{"cart": bson.M{"added_at": bson.M{"$lte": before}}},
			"$set":  bson.M{"updated_at": now()},
		})
	if err != nil {
		return storageErr("failed to clear cart", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (m *mongoUserRepository) AddFavourite(ctx context.Context, userID string, productID int64) (*domain.User, error) {
	return m.updateFavourites(ctx, userID, bson.M{
		"$addToSet": bson.M{"favourites": productID},
		"$set":      bson.M{"updated_at": now()},
	})
}

func (m *mongoUserRepository) RemoveFavourite(ctx context.Context, userID string, productID int64) (*domain.User, error) {
	return m.updateFavourites(ctx, userID, bson.M{
		"$pull": bson.M{"favourites": productID},
		"$set":  bson.M{"updated_at": now()},
	})
}

func (m *mongoUserRepository) updateFavourites(ctx context.Context, userID string, update bson.M) (*domain.User, error) {
	user, err := m.findAndUpdate(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

// findAndUpdate applies update to the document matching filter and returns it
// post-update. A nil user with a nil error means the filter matched nothing.
func (m *mongoUserRepository) findAndUpdate(ctx context.Context, filter, update bson.M) (*domain.User, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var user domain.User
	err := m.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("failed to update user", err)
	}
	return &user, nil
}
