package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/FeruzyNtillah/my-e-commerce/internal/domain"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type orderItemDoc struct {
	Product  primitive.ObjectID `bson:"product"`
	Name     string             `bson:"name"`
	Image    string             `bson:"image,omitempty"`
	Price    float64            `bson:"price"`
	Quantity int                `bson:"quantity"`
}

type orderDoc struct {
	ID              primitive.ObjectID     `bson:"_id"`
	User            primitive.ObjectID     `bson:"user"`
	OrderItems      []orderItemDoc         `bson:"orderItems"`
	ShippingAddress domain.ShippingAddress `bson:"shippingAddress"`
	PaymentMethod   string                 `bson:"paymentMethod"`
	PaymentResult   *domain.PaymentResult  `bson:"paymentResult,omitempty"`
	ItemsPrice      float64                `bson:"itemsPrice"`
	TaxPrice        float64                `bson:"taxPrice"`
	ShippingPrice   float64                `bson:"shippingPrice"`
	TotalPrice      float64                `bson:"totalPrice"`
	IsPaid          bool                   `bson:"isPaid"`
	PaidAt          *time.Time             `bson:"paidAt,omitempty"`
	IsDelivered     bool                   `bson:"isDelivered"`
	DeliveredAt     *time.Time             `bson:"deliveredAt,omitempty"`
	OrderStatus     string                 `bson:"orderStatus"`
	CreatedAt       time.Time              `bson:"createdAt"`
	UpdatedAt       time.Time              `bson:"updatedAt"`
}

func (d *orderDoc) toDomain() *domain.Order {
	o := &domain.Order{
		ID:              d.ID.Hex(),
		UserID:          hexOrEmpty(d.User),
		OrderLines:      make([]domain.OrderLine, len(d.OrderItems)),
		ShippingAddress: d.ShippingAddress,
		PaymentMethod:   domain.PaymentMethod(d.PaymentMethod),
		PaymentResult:   d.PaymentResult,
		Pricing: domain.Pricing{
			ItemsPrice:    d.ItemsPrice,
			TaxPrice:      d.TaxPrice,
			ShippingPrice: d.ShippingPrice,
			TotalPrice:    d.TotalPrice,
		},
		IsPaid:      d.IsPaid,
		PaidAt:      d.PaidAt,
		IsDelivered: d.IsDelivered,
		DeliveredAt: d.DeliveredAt,
		Status:      domain.OrderStatus(d.OrderStatus),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	for i, it := range d.OrderItems {
		o.OrderLines[i] = domain.OrderLine{
			ProductID: hexOrEmpty(it.Product),
			Name:      it.Name,
			Image:     it.Image,
			Price:     it.Price,
			Quantity:  it.Quantity,
		}
	}
	return o
}

type orderRepository struct {
	coll *mongo.Collection
	log  *logrus.Logger
	now  func() time.Time
}

func NewOrderRepository(db *mongo.Database, logger *logrus.Logger) domain.OrderRepository {
	return &orderRepository{
		coll: db.Collection(ordersCollection),
		log:  logger,
		now:  time.Now,
	}
}

func (r *orderRepository) CreateOrder(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	uid, err := refID(order.UserID, "user")
	if err != nil {
		return nil, err
	}
	items := make([]orderItemDoc, len(order.OrderLines))
	for i, line := range order.OrderLines {
		pid, err := refID(line.ProductID, "product")
		if err != nil {
			return nil, err
		}
		items[i] = orderItemDoc{Product: pid, Name: line.Name, Image: line.Image, Price: line.Price, Quantity: line.Quantity}
	}
	status := order.Status
	if status == "" {
		status = domain.StatusProcessing
	}
	now := mongoNow(r.now)
	doc := orderDoc{
		ID:              primitive.NewObjectID(),
		User:            uid,
		OrderItems:      items,
		ShippingAddress: order.ShippingAddress,
		PaymentMethod:   string(order.PaymentMethod),
		ItemsPrice:      order.ItemsPrice,
		TaxPrice:        order.TaxPrice,
		ShippingPrice:   order.ShippingPrice,
		TotalPrice:      order.TotalPrice,
		OrderStatus:     string(status),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		r.log.Errorf("Repository: Failed to insert order for user %s: %v", order.UserID, err)
		return nil, fmt.Errorf("could not create order: %w", err)
	}
	r.log.Infof("Repository: Order %s created successfully with %d items.", doc.ID.Hex(), len(items))
	return doc.toDomain(), nil
}

func (r *orderRepository) GetOrderByID(ctx context.Context, id string) (*domain.Order, error) {
	oid, err := objectID(id, domain.ErrOrderNotFound)
	if err != nil {
		return nil, err
	}
	var doc orderDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrOrderNotFound
		}
		r.log.Errorf("Repository: Failed to get order by ID %s: %v", id, err)
		return nil, fmt.Errorf("could not retrieve order: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *orderRepository) find(ctx context.Context, filter bson.M, limit, offset int) ([]domain.Order, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		r.log.Errorf("Repository: Failed to list orders: %v", err)
		return nil, fmt.Errorf("could not retrieve orders: %w", err)
	}
	var docs []orderDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("error decoding orders: %w", err)
	}
	orders := make([]domain.Order, len(docs))
	for i := range docs {
		orders[i] = *docs[i].toDomain()
	}
	return orders, nil
}

func (r *orderRepository) ListOrdersByUserID(ctx context.Context, userID string, limit, offset int) ([]domain.Order, error) {
	uid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return []domain.Order{}, nil
	}
	return r.find(ctx, bson.M{"user": uid}, limit, offset)
}

func (r *orderRepository) ListOrders(ctx context.Context, limit, offset int) ([]domain.Order, error) {
	return r.find(ctx, bson.M{}, limit, offset)
}

func (r *orderRepository) MarkPaid(ctx context.Context, id string, result domain.PaymentResult, paidAt time.Time) (*domain.Order, error) {
	oid, err := objectID(id, domain.ErrOrderNotFound)
	if err != nil {
		return nil, err
	}
	paidAt = paidAt.UTC().Truncate(time.Millisecond)
	var doc orderDoc
	err = r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": oid, "isPaid": false},
		bson.M{"$set": bson.M{
			"isPaid":        true,
			"paidAt":        paidAt,
			"paymentResult": result,
			"updatedAt":     mongoNow(r.now),
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			r.log.Errorf("Repository: Failed to mark order %s paid: %v", id, err)
			return nil, fmt.Errorf("could not mark order paid: %w", err)
		}
		if _, getErr := r.GetOrderByID(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, domain.ErrAlreadyPaid
	}
	r.log.Infof("Repository: Order %s marked paid", id)
	return doc.toDomain(), nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus, deliveredAt *time.Time) (*domain.Order, error) {
	oid, err := objectID(id, domain.ErrOrderNotFound)
	if err != nil {
		return nil, err
	}
	set := bson.M{"orderStatus": string(status), "updatedAt": mongoNow(r.now)}
	if deliveredAt != nil {
		set["isDelivered"] = true
		set["deliveredAt"] = deliveredAt.UTC().Truncate(time.Millisecond)
	}
	var doc orderDoc
	err = r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrOrderNotFound
		}
		r.log.Errorf("Repository: Failed to update status for order ID %s: %v", id, err)
		return nil, fmt.Errorf("could not update order status: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *orderRepository) DeleteOrder(ctx context.Context, id string) error {
	oid, err := objectID(id, domain.ErrOrderNotFound)
	if err != nil {
		return err
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		r.log.Errorf("Repository: Failed to delete order %s: %v", id, err)
		return fmt.Errorf("could not delete order: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrOrderNotFound
	}
	r.log.Infof("Repository: Order %s deleted", id)
	return nil
}
