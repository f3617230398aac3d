package database

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectionName(t *testing.T) {
	assert.Equal(t, "Ticket", Config{Driver: DriverMongo}.CollectionName())
	assert.Equal(t, "ticket", Config{Driver: DriverPostgres}.CollectionName())
	assert.Equal(t, "ticket", Config{Driver: DriverElasticsearch}.CollectionName())
	assert.Equal(t, "Tickets2023", Config{Driver: DriverMongo, Collection: "Tickets2023"}.CollectionName())
}

func TestMongoURI(t *testing.T) {
	cfg := Config{Host: "db", Port: 27017, Database: "ticket"}
	assert.Equal(t, "mongodb://db:27017/ticket", mongoURI(cfg))

	cfg.User = "app"
	cfg.Password = "p@ss"
	assert.Equal(t, "mongodb://app:p%40ss@db:27017/ticket?authSource=admin", mongoURI(cfg))

	cfg.URL = "mongodb+srv://cluster.example.net/ticket"
	assert.Equal(t, cfg.URL, mongoURI(cfg))
}

func TestPostgresDSN(t *testing.T) {
	cfg := Config{Host: "db", Port: 5432, User: "app", Password: `it's a \pass`, Database: "ticket"}

	dsn := postgresDSN(cfg)
	assert.Equal(t, `host='db' port='5432' user='app' password='it\'s a \\pass' dbname='ticket' sslmode='disable'`, dsn)

	_, err := pq.NewConnector(dsn)
	assert.NoError(t, err)

	cfg.User, cfg.Password = "", ""
	assert.Equal(t, `host='db' port='5432' dbname='ticket' sslmode='disable'`, postgresDSN(cfg))
}

func TestConnectMemory(t *testing.T) {
	ctx := context.Background()
	ds, err := Connect(ctx, Config{Name: "ticket", Driver: DriverMemory})
	require.NoError(t, err)

	assert.Nil(t, ds.Mongo)
	assert.Nil(t, ds.SQL)
	assert.Nil(t, ds.ES)
	assert.Nil(t, ds.GetPoolStats())

	check := ds.HealthCheck(ctx)
	assert.Equal(t, "healthy", check.Status)
	assert.Equal(t, DriverMemory, check.Driver)

	assert.NoError(t, ds.Close(ctx))
}

func TestConnectUnknownDriver(t *testing.T) {
	_, err := Connect(context.Background(), Config{Driver: "cassandra"})
	assert.Error(t, err)
}

func TestRunMigrationsRejectsBadTableName(t *testing.T) {
	err := RunMigrations(context.Background(), nil, "ticket; DROP TABLE x")
	assert.Error(t, err)
}

func TestCloseReleasesElasticsearchConnections(t *testing.T) {
	closed := make(chan struct{}, 1)
	server := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.WriteHeader(http.StatusOK)
	}))
	server.Config.ConnState = func(_ net.Conn, state http.ConnState) {
		if state == http.StateClosed {
			select {
			case closed <- struct{}{}:
			default:
			}
		}
	}
	server.Start()
	t.Cleanup(server.Close)

	ctx := context.Background()
	ds, err := Connect(ctx, Config{Driver: DriverElasticsearch, URL: server.URL})
	require.NoError(t, err)
	require.NotNil(t, ds.ES)

	require.NoError(t, ds.Close(ctx))

	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatal("idle Elasticsearch connection was not closed")
	}
}
