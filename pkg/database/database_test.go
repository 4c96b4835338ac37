package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suh3art/Recon-toolkit/pkg/config"
)

func TestDisabledDatabaseIsNoop(t *testing.T) {
	db, err := New(&config.Database{Enabled: false})
	require.NoError(t, err)

	assert.False(t, db.IsEnabled())
	assert.NoError(t, db.TrackAliveURLs("example.com", []string{"http://a.example.com"}))
	assert.NoError(t, db.Close())

	_, err = db.QueryURLs("example.com", "")
	assert.Error(t, err)
	_, err = db.QueryAll(StatusDead)
	assert.Error(t, err)
}

func TestNilDatabase(t *testing.T) {
	var db *DB
	assert.False(t, db.IsEnabled())
	assert.NoError(t, db.Close())
}

func TestConnString(t *testing.T) {
	cfg := &config.Database{Host: "db", Port: 5433, User: "recon", Password: "pw"}
	assert.Equal(t, "host=db port=5433 user=recon password=pw dbname=recon_track sslmode=disable connect_timeout=10", connString(cfg, DBName))
}
