package neo4j

import (
	"context"
	"fmt"
	"sync"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/cartgenie/backend/internal/domain"
	"github.com/cartgenie/backend/internal/metrics"
)

// Config holds graph store connection settings
type Config struct {
	URI      string
	User     string
	Password string
}

// Connector implements domain.GraphStore. The driver is created on first use
// and dropped after a connectivity failure so the next call reconnects.
type Connector struct {
	cfg Config
	log *zap.Logger

	mu     sync.Mutex
	driver neo4j.DriverWithContext
}

// NewConnector creates a connector without dialing
func NewConnector(cfg Config, log *zap.Logger) *Connector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Connector{cfg: cfg, log: log.Named("neo4j")}
}

func (c *Connector) getDriver(ctx context.Context) (neo4j.DriverWithContext, error) {
	if c.cfg.URI == "" || c.cfg.User == "" || c.cfg.Password == "" {
		return nil, domain.ErrGraphNotConfigured
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.driver != nil {
		return c.driver, nil
	}

	drv, err := neo4j.NewDriverWithContext(c.cfg.URI, neo4j.BasicAuth(c.cfg.User, c.cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("%w: create driver: %v", domain.ErrGraphFailure, err)
	}
	if err := drv.VerifyConnectivity(ctx); err != nil {
		_ = drv.Close(ctx)
		metrics.UpstreamRequests.WithLabelValues("neo4j", "unreachable").Inc()
		return nil, fmt.Errorf("%w: %v", domain.ErrGraphFailure, err)
	}

	c.log.Info("connected", zap.String("uri", c.cfg.URI))
	c.driver = drv
	return drv, nil
}

// reset drops a driver that failed with a connectivity error
func (c *Connector) reset(ctx context.Context, drv neo4j.DriverWithContext) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.driver == drv {
		_ = drv.Close(ctx)
		c.driver = nil
		c.log.Warn("connection lost, will reconnect on next query")
	}
}

// Query runs a read query and returns each record as a map
func (c *Connector) Query(ctx context.Context, query string, params map[string]interface{}) ([]map[string]interface{}, error) {
	drv, err := c.getDriver(ctx)
	if err != nil {
		return nil, err
	}

	sess := drv.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer sess.Close(ctx)

	result, err := sess.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		var rows []map[string]interface{}
		for res.Next(ctx) {
			rows = append(rows, res.Record().AsMap())
		}
		return rows, res.Err()
	})
	if err != nil {
		return nil, c.fail(ctx, drv, err)
	}

	metrics.UpstreamRequests.WithLabelValues("neo4j", "ok").Inc()
	rows, _ := result.([]map[string]interface{})
	return rows, nil
}

// Write runs a write query, discarding its result
func (c *Connector) Write(ctx context.Context, query string, params map[string]interface{}) error {
	drv, err := c.getDriver(ctx)
	if err != nil {
		return err
	}

	sess := drv.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer sess.Close(ctx)

	_, err = sess.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	if err != nil {
		return c.fail(ctx, drv, err)
	}
	metrics.UpstreamRequests.WithLabelValues("neo4j", "ok").Inc()
	return nil
}

func (c *Connector) fail(ctx context.Context, drv neo4j.DriverWithContext, err error) error {
	if neo4j.IsConnectivityError(err) {
		c.reset(ctx, drv)
	}
	metrics.UpstreamRequests.WithLabelValues("neo4j", "error").Inc()
	return fmt.Errorf("%w: %v", domain.ErrGraphFailure, err)
}

// Close releases the driver, if one was created
func (c *Connector) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.driver == nil {
		return nil
	}
	err := c.driver.Close(ctx)
	c.driver = nil
	return err
}
