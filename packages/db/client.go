package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const (
	DefaultQueryTimeout = 30 * time.Second
	DefaultPingTimeout  = 5 * time.Second
)

// QueryResult holds every row of a query.
type QueryResult struct {
	Columns []string
	Rows    []Row
}

// Client is a database/sql handle for one connection string.
type Client struct {
	db           *sql.DB
	driverName   string
	queryTimeout time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithQueryTimeout bounds every query. Zero disables the bound.
func WithQueryTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.queryTimeout = d
	}
}

// NewClient opens and pings the database described by connectionString.
func NewClient(ctx context.Context, connectionString string, opts ...ClientOption) (*Client, error) {
	driver, dsn, err := parseConnectionString(connectionString)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, DefaultPingTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	c := &Client{
		db:           db,
		driverName:   driver,
		queryTimeout: DefaultQueryTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Close closes the underlying database.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Driver returns the database/sql driver name.
func (c *Client) Driver() string {
	return c.driverName
}

// Exec runs a statement that returns no rows.
func (c *Client) Exec(ctx context.Context, query string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()

	res, err := c.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("exec failed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// Query returns the first row of the result, or an empty Row when the query
// matches nothing.
func (c *Client) Query(ctx context.Context, query string) (Row, error) {
	result, err := c.query(ctx, query, 1)
	if err != nil {
		return nil, err
	}
	if len(result.Rows) == 0 {
		return Row{}, nil
	}
	return result.Rows[0], nil
}

// QueryAll returns every row of the result.
func (c *Client) QueryAll(ctx context.Context, query string) (*QueryResult, error) {
	return c.query(ctx, query, 0)
}

func (c *Client) query(ctx context.Context, query string, limit int) (*QueryResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	result := &QueryResult{
		Columns: columns,
		Rows:    make([]Row, 0),
	}

	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(Row, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		result.Rows = append(result.Rows, row)

		if limit > 0 && len(result.Rows) >= limit {
			break
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return result, nil
}

// parseConnectionString splits a connection string into driver and DSN.
func parseConnectionString(connStr string) (driver string, dsn string, err error) {
	connStr = strings.TrimSpace(connStr)

	if strings.HasPrefix(connStr, "sqlite://") {
		return "sqlite3", strings.TrimPrefix(connStr, "sqlite://"), nil
	}
	if strings.HasPrefix(connStr, "sqlite:") {
		return "sqlite3", strings.TrimPrefix(connStr, "sqlite:"), nil
	}

	u, err := url.Parse(connStr)
	if err != nil {
		return "", "", fmt.Errorf("invalid connection string: %w", err)
	}
	if u.Scheme == "" {
		return "", "", fmt.Errorf("connection string %q has no scheme", connStr)
	}
	return "", "", fmt.Errorf("unsupported database scheme: %s", u.Scheme)
}
