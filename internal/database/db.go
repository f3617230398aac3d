package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"go.mongodb.org/mongo-driver/mongo"
)

// Supported drivers
const (
	DriverMongo         = "mongodb"
	DriverPostgres      = "postgres"
	DriverElasticsearch = "elasticsearch"
	DriverMemory        = "memory"
)

// Config describes how to reach the document store.
type Config struct {
	Name     string
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	Database string

	// URL overrides Host and Port for drivers that accept a connection URI
	URL        string
	Collection string
	SSLMode    string

	MaxOpenConns   int
	MaxIdleConns   int
	ConnectTimeout time.Duration
	MaxRetries     int
}

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// CollectionName is the Mongo collection, Postgres table or Elasticsearch index
// holding the tickets.
func (c Config) CollectionName() string {
	name := c.Collection
	if name == "" {
		name = "Ticket"
	}
	if c.Driver == DriverPostgres || c.Driver == DriverElasticsearch {
		name = strings.ToLower(name)
	}
	return name
}

// DataSource is a live connection to one of the supported stores. Exactly one of
// the handles is set, according to Driver; the memory driver sets none.
type DataSource struct {
	Name   string
	Driver string
	Config Config

	Mongo *mongo.Database
	SQL   *sql.DB
	ES    *elasticsearch.Client

	esTransport *http.Transport
}

// Connect opens the store named by cfg.Driver, verifies it is reachable and
// prepares the collection.
func Connect(ctx context.Context, cfg Config) (*DataSource, error) {
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	ds := &DataSource{Name: cfg.Name, Driver: cfg.Driver, Config: cfg}
	var err error

	switch cfg.Driver {
	case DriverMongo:
		ds.Mongo, err = connectMongo(ctx, cfg)
	case DriverPostgres:
		ds.SQL, err = connectPostgres(ctx, cfg)
		if err == nil {
			err = RunMigrations(ctx, ds.SQL, cfg.CollectionName())
		}
	case DriverElasticsearch:
		ds.ES, ds.esTransport, err = connectElasticsearch(ctx, cfg)
	case DriverMemory:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	slog.Info("Connected to database",
		"name", cfg.Name, "driver", cfg.Driver, "host", cfg.Host, "port", cfg.Port,
		"database", cfg.Database, "collection", cfg.CollectionName())

	return ds, nil
}

// Close releases the connection.
func (ds *DataSource) Close(ctx context.Context) error {
	switch {
	case ds.Mongo != nil:
		return ds.Mongo.Client().Disconnect(ctx)
	case ds.SQL != nil:
		return ds.SQL.Close()
	case ds.esTransport != nil:
		ds.esTransport.CloseIdleConnections()
	}
	return nil
}
