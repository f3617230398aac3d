package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type PoolStats struct {
	MaxOpenConns int           `json:"max_open_connections"`
	OpenConns    int           `json:"open_connections"`
	InUse        int           `json:"in_use"`
	Idle         int           `json:"idle"`
	WaitCount    int64         `json:"wait_count"`
	WaitDuration time.Duration `json:"wait_duration"`
}

type HealthCheck struct {
	Status       string        `json:"status"`
	Driver       string        `json:"driver"`
	ResponseTime time.Duration `json:"response_time"`
	Error        string        `json:"error,omitempty"`
	Stats        *PoolStats    `json:"stats,omitempty"`
	Timestamp    time.Time     `json:"timestamp"`
}

// GetPoolStats reports connection pool usage. Only the postgres driver keeps a
// pool that database/sql can describe.
func (ds *DataSource) GetPoolStats() *PoolStats {
	if ds.SQL == nil {
		return nil
	}
	stats := ds.SQL.Stats()
	return &PoolStats{
		MaxOpenConns: stats.MaxOpenConnections,
		OpenConns:    stats.OpenConnections,
		InUse:        stats.InUse,
		Idle:         stats.Idle,
		WaitCount:    stats.WaitCount,
		WaitDuration: stats.WaitDuration,
	}
}

// HealthCheck pings the store.
func (ds *DataSource) HealthCheck(ctx context.Context) HealthCheck {
	start := time.Now()
	healthCheck := HealthCheck{
		Driver:    ds.Driver,
		Timestamp: start,
		Stats:     ds.GetPoolStats(),
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := ds.ping(pingCtx)
	healthCheck.ResponseTime = time.Since(start)

	if err != nil {
		healthCheck.Status = "unhealthy"
		healthCheck.Error = err.Error()
		slog.Error("Database health check failed", "driver", ds.Driver, "error", err)
	} else {
		healthCheck.Status = "healthy"
	}

	return healthCheck
}

func (ds *DataSource) ping(ctx context.Context) error {
	switch {
	case ds.Mongo != nil:
		return ds.Mongo.Client().Ping(ctx, readpref.Primary())
	case ds.SQL != nil:
		return ds.SQL.PingContext(ctx)
	case ds.ES != nil:
		res, err := esapi.PingRequest{}.Do(ctx, ds.ES)
		if err != nil {
			return err
		}
		defer res.Body.Close()
		if res.IsError() {
			return fmt.Errorf("elasticsearch ping: %s", res.Status())
		}
	}
	return nil
}
