package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Config holds MongoDB connection configuration
type Config struct {
	URI             string
	Database        string
	ConnectTimeout  time.Duration
	SocketTimeout   time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration

	// Authentication
	Username string
	Password string
	AuthDB   string

	// Replica Set
	ReplicaSet string
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		URI:             "mongodb://localhost:27017",
		Database:        "outbound_fulfillment",
		ConnectTimeout:  10 * time.Second,
		SocketTimeout:   30 * time.Second,
		MaxPoolSize:     100,
		MinPoolSize:     5,
		MaxConnIdleTime: 5 * time.Minute,
	}
}

// AppName identifies this service's connections in server logs and currentOp
const AppName = "outbound-fulfillment-service"

// Client wraps the MongoDB client with a bound database
type Client struct {
	client   *mongo.Client
	database *mongo.Database
	config   *Config
}

// NewClient connects with config and verifies the primary answers a ping
// within the connect timeout.
func NewClient(ctx context.Context, config *Config) (*Client, error) {
	if config.URI == "" || config.Database == "" {
		return nil, fmt.Errorf("mongodb config requires a uri and a database")
	}

	client, err := mongo.Connect(ctx, clientOptions(config))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingTimeout := config.ConnectTimeout
	if pingTimeout <= 0 {
		pingTimeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB database %s: %w", config.Database, err)
	}

	return &Client{
		client:   client,
		database: client.Database(config.Database),
		config:   config,
	}, nil
}

func clientOptions(config *Config) *options.ClientOptions {
	opts := options.Client().
		ApplyURI(config.URI).
		SetAppName(AppName).
		SetMaxPoolSize(config.MaxPoolSize).
		SetMinPoolSize(config.MinPoolSize).
		SetRetryWrites(true)

	if config.ConnectTimeout > 0 {
		opts.SetConnectTimeout(config.ConnectTimeout)
	}
	if config.SocketTimeout > 0 {
		opts.SetSocketTimeout(config.SocketTimeout)
	}
	if config.MaxConnIdleTime > 0 {
		opts.SetMaxConnIdleTime(config.MaxConnIdleTime)
	}
	if config.Username != "" && config.Password != "" {
		opts.SetAuth(options.Credential{
			Username:   config.Username,
			Password:   config.Password,
			AuthSource: config.AuthDB,
		})
	}
	if config.ReplicaSet != "" {
		opts.SetReplicaSet(config.ReplicaSet)
	}
	return opts
}

// Database returns the bound database handle
func (c *Client) Database() *mongo.Database {
	return c.database
}

// Close disconnects the client
func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

// HealthCheck performs a health check on the MongoDB connection
func (c *Client) HealthCheck(ctx context.Context) error {
	return c.client.Ping(ctx, readpref.Primary())
}

// WithTransaction executes fn inside a transaction on db's client.
func WithTransaction(ctx context.Context, db *mongo.Database, fn func(sessCtx mongo.SessionContext) error) error {
	session, err := db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	return err
}
