package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Client is the single handle every bootstrap step receives.
type Client struct {
	DB *mongo.Database
	c  *mongo.Client
}

// NewClient connects, pings the primary and selects db. The timeout bounds
// connection establishment only.
func NewClient(ctx context.Context, uri, db string, timeout time.Duration) (*Client, error) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cl, err := mongo.Connect(cctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := cl.Ping(cctx, readpref.Primary()); err != nil {
		_ = cl.Disconnect(ctx)
		return nil, err
	}
	return FromDatabase(cl.Database(db)), nil
}

// FromDatabase wraps an already selected database.
func FromDatabase(db *mongo.Database) *Client {
	return &Client{DB: db, c: db.Client()}
}

func (c *Client) Close(ctx context.Context) { _ = c.c.Disconnect(ctx) }
