package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmehra2102/Food-Ordering-System/internal/order/application"
	"github.com/dmehra2102/Food-Ordering-System/internal/order/domain"
	restaurantmongo "github.com/dmehra2102/Food-Ordering-System/internal/restaurant/infrastructure/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	ordersCollection = "orders"
	usersCollection  = "users"
)

type deliveryDocument struct {
	Email        string `bson:"email"`
	Name         string `bson:"name"`
	AddressLine1 string `bson:"addressLine1"`
	City         string `bson:"city"`
}

type cartItemDocument struct {
	MenuItemID string `bson:"menuItemId"`
	Name       string `bson:"name"`
	Quantity   int    `bson:"quantity"`
}

type orderDocument struct {
	ID              string             `bson:"_id"`
	User            string             `bson:"user"`
	Restaurant      string             `bson:"restaurant"`
	DeliveryDetails deliveryDocument   `bson:"deliveryDetails"`
	CartItems       []cartItemDocument `bson:"cartItems"`
	Status          string             `bson:"status"`
	TotalAmount     *int64             `bson:"totalAmount,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt"`
}

type userDocument struct {
	ID    string `bson:"_id"`
	Email string `bson:"email"`
	Name  string `bson:"name"`
}

// orderView is an order joined with its restaurant and user by ListByUser.
type orderView struct {
	Order         orderDocument                      `bson:",inline"`
	RestaurantDoc restaurantmongo.RestaurantDocument `bson:"restaurantDoc"`
	UserDoc       *userDocument                      `bson:"userDoc,omitempty"`
}

func toDocument(o domain.Order) orderDocument {
	doc := orderDocument{
		ID:         o.ID,
		User:       o.UserID,
		Restaurant: o.RestaurantID,
		DeliveryDetails: deliveryDocument{
			Email:        o.DeliveryDetails.Email,
			Name:         o.DeliveryDetails.Name,
			AddressLine1: o.DeliveryDetails.AddressLine1,
			City:         o.DeliveryDetails.City,
		},
		CartItems: make([]cartItemDocument, 0, len(o.CartItems)),
		Status:    string(o.Status),
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
	for _, item := range o.CartItems {
		doc.CartItems = append(doc.CartItems, cartItemDocument{MenuItemID: item.MenuItemID, Name: item.Name, Quantity: item.Quantity})
	}
	if o.Status == domain.StatusPaid {
		total := o.TotalAmount
		doc.TotalAmount = &total
	}
	return doc
}

func (d orderDocument) toDomain() domain.Order {
	o := domain.Order{
		ID:           d.ID,
		UserID:       d.User,
		RestaurantID: d.Restaurant,
		DeliveryDetails: domain.DeliveryDetails{
			Email:        d.DeliveryDetails.Email,
			Name:         d.DeliveryDetails.Name,
			AddressLine1: d.DeliveryDetails.AddressLine1,
			City:         d.DeliveryDetails.City,
		},
		CartItems: make([]domain.CartItem, 0, len(d.CartItems)),
		Status:    domain.OrderStatus(d.Status),
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
	for _, item := range d.CartItems {
		o.CartItems = append(o.CartItems, domain.CartItem{MenuItemID: item.MenuItemID, Name: item.Name, Quantity: item.Quantity})
	}
	if d.TotalAmount != nil {
		o.TotalAmount = *d.TotalAmount
	}
	return o
}

// Repository needs a replica set; every write runs in a transaction with its outbox row.
type Repository struct {
	log    *slog.Logger
	client *mongo.Client
	orders *mongo.Collection
	outbox *OutboxStore
}

func NewRepository(log *slog.Logger, client *mongo.Client, db *mongo.Database) *Repository {
	return &Repository{
		log:    log,
		client: client,
		orders: db.Collection(ordersCollection),
		outbox: NewOutboxStore(log, db),
	}
}

// EnsureIndexes creates the indexes ListByUser and the outbox relay rely on.
func (r *Repository) EnsureIndexes(ctx context.Context) error {
	if _, err := r.orders.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}},
	}); err != nil {
		return err
	}
	_, err := r.outbox.events.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "status", Value: 1}, {Key: "_id", Value: 1}},
	})
	return err
}

func (r *Repository) withTx(ctx context.Context, fn func(sc mongo.SessionContext) error) error {
	sess, err := r.client.StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

func (r *Repository) CreateWithOutbox(ctx context.Context, o domain.Order, eventType string, payload []byte, headers map[string]string, traceparent string) error {
	return r.withTx(ctx, func(sc mongo.SessionContext) error {
		if _, err := r.orders.InsertOne(sc, toDocument(o)); err != nil {
			return err
		}
		return r.outbox.insert(sc, o.ID, eventType, payload, headers, traceparent)
	})
}

func (r *Repository) SaveWithOutbox(ctx context.Context, o domain.Order, eventType string, payload []byte, headers map[string]string, traceparent string) (bool, error) {
	saved := false
	err := r.withTx(ctx, func(sc mongo.SessionContext) error {
		saved = false
		res, err := r.orders.UpdateOne(sc,
			bson.M{"_id": o.ID, "status": string(domain.StatusPlaced)},
			bson.M{"$set": bson.M{
				"status":      string(o.Status),
				"totalAmount": o.TotalAmount,
				"updatedAt":   o.UpdatedAt,
			}},
		)
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return nil
		}
		if err := r.outbox.insert(sc, o.ID, eventType, payload, headers, traceparent); err != nil {
			return err
		}
		saved = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return saved, nil
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Order, error) {
	var doc orderDocument
	err := r.orders.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Order{}, fmt.Errorf("%w: %s", application.ErrOrderNotFound, id)
	}
	if err != nil {
		return domain.Order{}, err
	}
	return doc.toDomain(), nil
}

func (r *Repository) ListByUser(ctx context.Context, userID string) ([]domain.OrderDetails, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"user": userID}}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         restaurantmongo.Collection,
			"localField":   "restaurant",
			"foreignField": "_id",
			"as":           "restaurantDoc",
		}}},
		{{Key: "$unwind", Value: "$restaurantDoc"}},
		{{Key: "$lookup", Value: bson.M{
			"from":         usersCollection,
			"localField":   "user",
			"foreignField": "_id",
			"as":           "userDoc",
		}}},
		{{Key: "$unwind", Value: bson.M{"path": "$userDoc", "preserveNullAndEmptyArrays": true}}},
	}

	cur, err := r.orders.Aggregate(ctx, pipeline, options.Aggregate())
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var views []orderView
	if err := cur.All(ctx, &views); err != nil {
		return nil, err
	}

	out := make([]domain.OrderDetails, 0, len(views))
	for _, v := range views {
		d := domain.OrderDetails{
			Order:      v.Order.toDomain(),
			Restaurant: v.RestaurantDoc.ToDomain(),
			User:       domain.User{ID: v.Order.User},
		}
		if v.UserDoc != nil {
			d.User.Email = v.UserDoc.Email
			d.User.Name = v.UserDoc.Name
		}
		out = append(out, d)
	}
	return out, nil
}
