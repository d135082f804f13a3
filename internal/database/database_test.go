package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/killallgit/scribe-api/internal/models"
)

func TestInitialize(t *testing.T) {
	tests := []struct {
		name   string
		dbPath string
	}{
		{name: "in-memory database", dbPath: ":memory:"},
		{name: "file database in nested directory", dbPath: filepath.Join(t.TempDir(), "nested", "scribe.db")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, err := Initialize(tt.dbPath, false)
			require.NoError(t, err)
			defer db.Close()

			assert.NotNil(t, db.DB)
			assert.NoError(t, db.HealthCheck())
		})
	}
}

func TestMigrate(t *testing.T) {
	db, err := Initialize(":memory:", false)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Migrate())

	for _, table := range []string{"appointments", "recordings", "transcripts", "clinical_notes"} {
		assert.True(t, db.Migrator().HasTable(table), "missing table %s", table)
	}

	// Tables survive across statements on the single in-memory connection
	require.NoError(t, db.Create(&models.Appointment{ID: "appt-1", MentorID: "m", MenteeID: "c"}).Error)
	var count int64
	require.NoError(t, db.Model(&models.Appointment{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestHealthCheck_Closed(t *testing.T) {
	db, err := Initialize(":memory:", false)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	assert.Error(t, db.HealthCheck())
}

func TestHealthCheck_Nil(t *testing.T) {
	var db *DB
	assert.Error(t, db.HealthCheck())
}
