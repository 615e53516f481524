package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dylanleonard80/peptidefoundry/internal/domain"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// lineDoc is the persisted line shape. Prices travel as strings so the
// decimal survives BSON round trips without float drift.
type lineDoc struct {
	Slug          string    `bson:"slug"`
	Size          string    `bson:"size"`
	Quantity      int       `bson:"quantity"`
	UnitPrice     string    `bson:"unit_price"`
	DisplayName   string    `bson:"display_name"`
	Unpurchasable bool      `bson:"unpurchasable,omitempty"`
	AddedAt       time.Time `bson:"added_at"`
}

type cartDoc struct {
	ID        string    `bson:"_id,omitempty"`
	CartID    string    `bson:"cart_id"`
	Lines     []lineDoc `bson:"lines"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type mongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) Repository {
	return &mongoRepository{collection: db.Collection("carts")}
}

// ConnectMongoDB opens the cart database connection.
func ConnectMongoDB(ctx context.Context, uri, database string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(100).
		SetMinPoolSize(10)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(database), nil
}

func (m *mongoRepository) GetCart(ctx context.Context, cartID string) (*domain.Cart, error) {
	var doc cartDoc

	filter := bson.M{"cart_id": cartID}
	err := m.collection.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	return docToCart(&doc)
}

// AddLine increments quantity when the identity already exists; the price
// snapshot from the first add wins until reconciliation rewrites it.
func (m *mongoRepository) AddLine(ctx context.Context, cartID string, line domain.CartLine) error {
	now := time.Now()
	filter := bson.M{"cart_id": cartID}

	var existing cartDoc
	err := m.collection.FindOne(ctx, filter).Decode(&existing)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			doc := cartDoc{
				CartID:    cartID,
				Lines:     []lineDoc{lineToDoc(line, now)},
				CreatedAt: now,
				UpdatedAt: now,
			}
			if _, err := m.collection.InsertOne(ctx, doc); err != nil {
				return fmt.Errorf("failed to create cart with line: %w", err)
			}
			return nil
		}
		return fmt.Errorf("failed to check existing cart: %w", err)
	}

	lineExists := false
	for _, l := range existing.Lines {
		if l.Slug == line.Slug && l.Size == line.Size {
			lineExists = true
			break
		}
	}

	if lineExists {
		update := bson.M{
			"$inc": bson.M{"lines.$[elem].quantity": line.Quantity},
			"$set": bson.M{"updated_at": now},
		}
		arrayFilters := options.Update().SetArrayFilters(options.ArrayFilters{
			Filters: []interface{}{
				bson.M{"elem.slug": line.Slug, "elem.size": line.Size},
			},
		})

		if _, err := m.collection.UpdateOne(ctx, filter, update, arrayFilters); err != nil {
			return fmt.Errorf("failed to increment existing line: %w", err)
		}
		return nil
	}

	update := bson.M{
		"$push": bson.M{"lines": lineToDoc(line, now)},
		"$set":  bson.M{"updated_at": now},
	}
	if _, err := m.collection.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to add new line: %w", err)
	}
	return nil
}

func (m *mongoRepository) SetLineQuantity(ctx context.Context, cartID string, key domain.VariantKey, quantity int) error {
	filter := bson.M{
		"cart_id":    cartID,
		"lines.slug": key.Slug,
		"lines.size": key.Size,
	}

	update := bson.M{
		"$set": bson.M{
			"lines.$[elem].quantity": quantity,
			"updated_at":             time.Now(),
		},
	}

	arrayFilters := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{
			bson.M{"elem.slug": key.Slug, "elem.size": key.Size},
		},
	})

	result, err := m.collection.UpdateOne(ctx, filter, update, arrayFilters)
	if err != nil {
		return fmt.Errorf("failed to update line quantity: %w", err)
	}

	if result.MatchedCount == 0 {
		return ErrLineNotFound
	}
	return nil
}

// RemoveLine is idempotent: removing a missing line (or from a missing
// cart) is a no-op.
func (m *mongoRepository) RemoveLine(ctx context.Context, cartID string, key domain.VariantKey) error {
	filter := bson.M{"cart_id": cartID}
	update := bson.M{
		"$pull": bson.M{
			"lines": bson.M{"slug": key.Slug, "size": key.Size},
		},
		"$set": bson.M{"updated_at": time.Now()},
	}

	if _, err := m.collection.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to remove line: %w", err)
	}
	return nil
}

// ReplaceLines writes reconciled lines back in place.
func (m *mongoRepository) ReplaceLines(ctx context.Context, cartID string, lines []domain.CartLine) error {
	now := time.Now()
	docs := make([]lineDoc, len(lines))
	for i, line := range lines {
		docs[i] = lineToDoc(line, now)
	}

	filter := bson.M{"cart_id": cartID}
	update := bson.M{"$set": bson.M{"lines": docs, "updated_at": now}}
	opts := options.Update().SetUpsert(true)

	if _, err := m.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to replace lines: %w", err)
	}
	return nil
}

func (m *mongoRepository) DeleteCart(ctx context.Context, cartID string) error {
	filter := bson.M{"cart_id": cartID}

	if _, err := m.collection.DeleteOne(ctx, filter); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}

// EnsureIndexes sets up the unique cart id index and the abandoned-cart TTL.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "cart_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(90 * 24 * 60 * 60), // 90 days TTL
		},
	}

	_, err := db.Collection("carts").Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func lineToDoc(line domain.CartLine, now time.Time) lineDoc {
	return lineDoc{
		Slug:          line.Slug,
		Size:          line.Size,
		Quantity:      line.Quantity,
		UnitPrice:     line.UnitPriceSnapshot.String(),
		DisplayName:   line.DisplayName,
		Unpurchasable: line.Unpurchasable,
		AddedAt:       now,
	}
}

func docToCart(doc *cartDoc) (*domain.Cart, error) {
	cart := &domain.Cart{
		ID:        doc.CartID,
		Lines:     make([]domain.CartLine, len(doc.Lines)),
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
	for i, l := range doc.Lines {
		price, err := decimal.NewFromString(l.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("corrupt price %q for %s/%s: %w", l.UnitPrice, l.Slug, l.Size, err)
		}
		cart.Lines[i] = domain.CartLine{
			Slug:              l.Slug,
			Size:              l.Size,
			Quantity:          l.Quantity,
			UnitPriceSnapshot: price,
			DisplayName:       l.DisplayName,
			Unpurchasable:     l.Unpurchasable,
		}
	}
	return cart, nil
}
