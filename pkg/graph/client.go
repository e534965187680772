package graph

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Record is one row returned by a query, keyed by return field name.
// Values are driver values: nodes, relationships, scalars, lists or nil.
type Record map[string]any

// QuerySession is a lightweight per-request handle drawn from the shared
// driver pool. It must be released with Close after use.
type QuerySession interface {
	// ReadRecords executes a read query and returns all result rows in order.
	ReadRecords(ctx context.Context, cypher string, params map[string]any) ([]Record, error)
	// ReadSingle executes a read query and returns the first row.
	// The bool result is false when the query matched nothing.
	ReadSingle(ctx context.Context, cypher string, params map[string]any) (Record, bool, error)
	// Write executes a write query and discards its result rows.
	Write(ctx context.Context, cypher string, params map[string]any) error
	Close(ctx context.Context) error
}

// Store is the process-wide graph store handle. Exactly one Client is
// constructed by the composition root and shared by all callers; sessions
// are cheap per-request handles.
type Store interface {
	Session(ctx context.Context) QuerySession
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Config holds Neo4j connection configuration.
type Config struct {
	URI      string
	Username string
	Password string
	Database string

	// ConnectTimeout caps the backoff delay between connection attempts.
	ConnectTimeout time.Duration
	// QueryTimeout bounds every individual session call.
	QueryTimeout          time.Duration
	MaxConnectionPoolSize int
}

func (c Config) withDefaults() Config {
	if c.URI == "" {
		c.URI = "bolt://neo4j:7687"
	}
	if c.Username == "" {
		c.Username = "neo4j"
	}
	if c.Database == "" {
		c.Database = "neo4j"
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 30 * time.Second
	}
	if c.QueryTimeout <= 0 {
		c.QueryTimeout = 15 * time.Second
	}
	if c.MaxConnectionPoolSize <= 0 {
		c.MaxConnectionPoolSize = 50
	}
	return c
}

// Client implements Store on top of a single long-lived Neo4j driver.
type Client struct {
	cfg    Config
	driver neo4j.DriverWithContext
}

const (
	connectMaxRetries = 5
	connectBaseDelay  = 100 * time.Millisecond
)

// NewClient creates the driver and verifies connectivity with exponential
// backoff. It returns ErrUnavailable when the store stays unreachable.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()

	auth := neo4j.BasicAuth(cfg.Username, cfg.Password, "")
	driver, err := neo4j.NewDriverWithContext(cfg.URI, auth, func(conf *neo4j.Config) {
		conf.MaxConnectionPoolSize = cfg.MaxConnectionPoolSize
		conf.ConnectionAcquisitionTimeout = cfg.ConnectTimeout
	})
	if err != nil {
		return nil, fmt.Errorf("creating neo4j driver: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < connectMaxRetries; attempt++ {
		err := driver.VerifyConnectivity(ctx)
		if err == nil {
			return &Client{cfg: cfg, driver: driver}, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			_ = driver.Close(context.Background())
			return nil, fmt.Errorf("connecting to neo4j: %w", ctx.Err())
		}

		delay := connectBaseDelay * time.Duration(math.Pow(2, float64(attempt)))
		if delay > cfg.ConnectTimeout {
			delay = cfg.ConnectTimeout
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			_ = driver.Close(context.Background())
			return nil, fmt.Errorf("connecting to neo4j: %w", ctx.Err())
		}
	}

	_ = driver.Close(context.Background())
	return nil, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

// Session draws a per-request session from the driver pool.
func (c *Client) Session(ctx context.Context) QuerySession {
	return &storeSession{
		sess: c.driver.NewSession(ctx, neo4j.SessionConfig{
			DatabaseName: c.cfg.Database,
		}),
		timeout: c.cfg.QueryTimeout,
	}
}

// Ping runs a trivial round-trip query against the store.
func (c *Client) Ping(ctx context.Context) error {
	sess := c.Session(ctx)
	defer sess.Close(ctx)

	rec, ok, err := sess.ReadSingle(ctx, "RETURN 1 AS ok", nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !ok {
		return fmt.Errorf("%w: ping returned no record", ErrUnavailable)
	}
	if v, _ := rec["ok"].(int64); v != 1 {
		return fmt.Errorf("%w: unexpected ping result %v", ErrUnavailable, rec["ok"])
	}
	return nil
}

// Close releases the driver and its connection pool.
func (c *Client) Close(ctx context.Context) error {
	if err := c.driver.Close(ctx); err != nil {
		return fmt.Errorf("closing neo4j driver: %w", err)
	}
	return nil
}

type storeSession struct {
	sess    neo4j.SessionWithContext
	timeout time.Duration
}

func (s *storeSession) ReadRecords(ctx context.Context, cypher string, params map[string]any) ([]Record, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.sess.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		return convertRecords(records), nil
	})
	if err != nil {
		return nil, fmt.Errorf("graph read query failed: %w", err)
	}

	return result.([]Record), nil
}

func (s *storeSession) ReadSingle(ctx context.Context, cypher string, params map[string]any) (Record, bool, error) {
	records, err := s.ReadRecords(ctx, cypher, params)
	if err != nil {
		return nil, false, err
	}
	if len(records) == 0 {
		return nil, false, nil
	}
	return records[0], true, nil
}

func (s *storeSession) Write(ctx context.Context, cypher string, params map[string]any) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.sess.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("graph write query failed: %w", err)
	}
	return nil
}

func (s *storeSession) Close(ctx context.Context) error {
	return s.sess.Close(ctx)
}

func convertRecords(records []*neo4j.Record) []Record {
	out := make([]Record, 0, len(records))
	for _, record := range records {
		row := make(Record, len(record.Keys))
		for i, key := range record.Keys {
			row[key] = record.Values[i]
		}
		out = append(out, row)
	}
	return out
}
