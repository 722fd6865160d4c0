package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoOrderRepository struct {
	client *mongo.Client
	orders *mongo.Collection
	users  *mongo.Collection
}

func NewMongoOrderRepository(db *mongo.Database) OrderRepository {
	return &mongoOrderRepository{
		client: db.Client(),
		orders: db.Collection(ordersCollection),
		users:  db.Collection(usersCollection),
	}
}

func prepareOrder(order *domain.Order) {
	if order.ID == "" {
		order.ID = primitive.NewObjectID().Hex()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now()
	}
	if order.Products == nil {
		order.Products = []domain.OrderLine{}
	}
	order.PublishedAt = nil
}

func (r *mongoOrderRepository) PlaceOrderAtomic(ctx context.Context, order *domain.Order) error {
	prepareOrder(order)
	order.CartCleared = true

	session, err := r.client.StartSession()
	if err != nil {
		return storageErr("failed to start session", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		result, err := r.users.UpdateOne(sc,
			bson.M{"_id": order.UserID},
			bson.M{"$set": bson.M{"cart": []domain.CartLine{}, "updated_at": order.CreatedAt}})
		if err != nil {
			return nil, err
		}
		if result.MatchedCount == 0 {
			return nil, domain.ErrUserNotFound
		}
		if _, err := r.orders.InsertOne(sc, order); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if errors.Is(err, domain.ErrUserNotFound) {
		return domain.ErrUserNotFound
	}
	if err != nil {
		return storageErr("failed to place order", err)
	}
	return nil
}

func (r *mongoOrderRepository) CreateOrder(ctx context.Context, order *domain.Order) error {
	prepareOrder(order)
	if _, err := r.orders.InsertOne(ctx, order); err != nil {
		return storageErr("failed to insert order", err)
	}
	return nil
}

func (r *mongoOrderRepository) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	var order domain.Order
	err := r.orders.FindOne(ctx, bson.M{"_id": orderID}).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, storageErr("failed to get order", err)
	}
	return &order, nil
}

func (r *mongoOrderRepository) ListOrdersByUser(ctx context.Context, userID string) ([]*domain.Order, error) {
	return r.find(ctx, bson.M{"user": userID}, nil)
}

func (r *mongoOrderRepository) MarkCartCleared(ctx context.Context, orderID string) error {
	return r.setFlag(ctx, orderID, bson.M{"cart_cleared": true})
}

func (r *mongoOrderRepository) MarkPublished(ctx context.Context, orderID string, at time.Time) error {
	return r.setFlag(ctx, orderID, bson.M{"published_at": at.UTC().Truncate(time.Millisecond)})
}

func (r *mongoOrderRepository) GetUnpublishedOrders(ctx context.Context, limit int) ([]*domain.Order, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(int64(limit))
	return r.find(ctx, bson.M{"published_at": bson.M{"$exists": false}}, opts)
}

func (r *mongoOrderRepository) GetPendingCartClears(ctx context.Context, createdBefore time.Time, limit int) ([]*domain.Order, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(int64(limit))
	return r.find(ctx, bson.M{
		"cart_cleared": false,
		"created_at":   bson.M{"$lte": createdBefore},
	}, opts)
}

func (r *mongoOrderRepository) setFlag(ctx context.Context, orderID string, set bson.M) error {
	result, err := r.orders.UpdateOne(ctx, bson.M{"_id": orderID}, bson.M{"$set": set})
	if err != nil {
		return storageErr("failed to update order", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

func (r *mongoOrderRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domain.Order, error) {
	var findOpts []*options.FindOptions
	if opts != nil {
		findOpts = append(findOpts, opts)
	}
	cursor, err := r.orders.Find(ctx, filter, findOpts...)
	if err != nil {
		return nil, storageErr("failed to query orders", err)
	}
	defer cursor.Close(ctx)

	orders := make([]*domain.Order, 0)
	for cursor.Next(ctx) {
		var order domain.Order
		if err := cursor.Decode(&order); err != nil {
			return nil, storageErr("failed to decode order", err)
		}
		orders = append(orders, &order)
	}
	if err := cursor.Err(); err != nil {
		return nil, storageErr(fmt.Sprintf("cursor error after %d orders", len(orders)), err)
	}
	return orders, nil
}
