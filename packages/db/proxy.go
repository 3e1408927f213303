package db

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/abdul-hamid-achik/hookspec/packages/core/errs"
	"github.com/abdul-hamid-achik/hookspec/packages/logging"
)

// DefaultRole is used when a caller passes no role.
const DefaultRole = "default"

// ErrUnknownTarget is returned for a database or role that is not configured.
var ErrUnknownTarget = errors.New("unknown database target")

// Handle runs queries against one (database, role) target.
type Handle interface {
	Query(ctx context.Context, sql string) (Row, error)
}

// Opener connects to a DSN. The returned handle is closed by Proxy.Close
// when it implements io.Closer.
type Opener func(ctx context.Context, dsn string) (Handle, error)

// ProxyOption configures a Proxy.
type ProxyOption func(*Proxy)

// WithOpener replaces the database/sql opener.
func WithOpener(open Opener) ProxyOption {
	return func(p *Proxy) {
		p.open = open
	}
}

// WithLogger sets the proxy logger.
func WithLogger(logger *slog.Logger) ProxyOption {
	return func(p *Proxy) {
		p.logger = logging.OrNop(logger)
	}
}

type target struct {
	db   string
	role string
}

type connection struct {
	once   sync.Once
	handle Handle
	err    error
}

// Proxy hands out lazily opened handles by database name and role. It is
// safe for concurrent use.
type Proxy struct {
	targets map[string]map[string]string
	open    Opener
	logger  *slog.Logger

	mu    sync.Mutex
	conns map[target]*connection
}

// NewProxy creates a proxy over targets, a map of database name to role to
// connection string.
func NewProxy(targets map[string]map[string]string, opts ...ProxyOption) *Proxy {
	p := &Proxy{
		targets: make(map[string]map[string]string, len(targets)),
		open:    openClient,
		logger:  logging.Nop(),
		conns:   make(map[target]*connection),
	}
	for name, roles := range targets {
		copied := make(map[string]string, len(roles))
		for role, dsn := range roles {
			copied[role] = dsn
		}
		p.targets[name] = copied
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func openClient(ctx context.Context, dsn string) (Handle, error) {
	client, err := NewClient(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// Databases returns the configured database names.
func (p *Proxy) Databases() []string {
	names := make([]string, 0, len(p.targets))
	for name := range p.targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveRole returns the role used for db when role is empty: "default" if
// configured, otherwise the only configured role.
func (p *Proxy) ResolveRole(db, role string) (string, error) {
	roles, ok := p.targets[db]
	if !ok {
		return "", fmt.Errorf("%w: database %q is not configured", ErrUnknownTarget, db)
	}
	if role != "" {
		if _, ok := roles[role]; !ok {
			return "", fmt.Errorf("%w: database %q has no role %q", ErrUnknownTarget, db, role)
		}
		return role, nil
	}
	if _, ok := roles[DefaultRole]; ok {
		return DefaultRole, nil
	}
	if len(roles) == 1 {
		for only := range roles {
			return only, nil
		}
	}
	return "", fmt.Errorf("%w: database %q has no default role", ErrUnknownTarget, db)
}

// Get returns the handle for (db, role), opening it on first use. The open is
// detached from ctx's cancellation; a failed open is remembered.
func (p *Proxy) Get(ctx context.Context, db, role string) (Handle, error) {
	role, err := p.ResolveRole(db, role)
	if err != nil {
		return nil, err
	}

	key := target{db: db, role: role}
	p.mu.Lock()
	conn, ok := p.conns[key]
	if !ok {
		conn = &connection{}
		p.conns[key] = conn
	}
	p.mu.Unlock()

	// Opens run detached from ctx; NewClient bounds the ping itself.
	conn.once.Do(func() {
		p.logger.Debug("opening database connection", "database", db, "role", role)
		conn.handle, conn.err = p.open(context.WithoutCancel(ctx), p.targets[db][role])
		if conn.err != nil {
			conn.err = errs.External(fmt.Sprintf("connect %s/%s", db, role), conn.err)
		}
	})
	return conn.handle, conn.err
}

// Close closes every opened handle.
func (p *Proxy) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errList []error
	for key, conn := range p.conns {
		if closer, ok := conn.handle.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errList = append(errList, fmt.Errorf("closing %s/%s: %w", key.db, key.role, err))
			}
		}
	}
	p.conns = make(map[target]*connection)
	return errors.Join(errList...)
}
