package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/cadenzamusic/cadenza/pkg/config"
	"github.com/cadenzamusic/cadenza/pkg/errcodes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewForTest()
	cfg.DatabaseFilePath = filepath.Join(t.TempDir(), "test.db")
	return cfg
}

func TestNew_ConcurrentWrites(t *testing.T) {
	t.Parallel()

	db, err := New(newTestConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE writes (id INTEGER PRIMARY KEY AUTOINCREMENT, value TEXT NOT NULL)`)
	require.NoError(t, err)

	const workers = 10
	const perWorker = 25

	var wg sync.WaitGroup
	errs := make(chan error, workers*perWorker)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if _, err := db.Exec("INSERT INTO writes (value) VALUES (?)", fmt.Sprintf("%d-%d", w, i)); err != nil {
					errs <- err
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM writes").Scan(&count))
	assert.Equal(t, workers*perWorker, count)
}

func TestNew_ForeignKeysEnabled(t *testing.T) {
	t.Parallel()

	db, err := New(newTestConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	var enabled int
	require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&enabled))
	assert.Equal(t, 1, enabled)
}

func TestNew_CorruptFile(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t)
	require.NoError(t, os.WriteFile(cfg.DatabaseFilePath, []byte("definitely not sqlite, just some bytes padded out to look like a header"), 0644))
	cfg.DatabaseConnectRetryCount = 1
	cfg.DatabaseConnectRetryDelay = 0

	_, err := New(cfg)
	require.Error(t, err)
	assert.True(t, errcodes.HasCode(err, errcodes.CodeStorageCorrupted), err.Error())
}

func TestCheckIntegrity(t *testing.T) {
	t.Parallel()

	db, err := New(newTestConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	assert.NoError(t, CheckIntegrity(context.Background(), db))
}

func TestClassify(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Classify(nil))

	plain := errors.New("UNIQUE constraint failed")
	assert.Same(t, plain, Classify(plain))

	corrupt := Classify(errors.New("database disk image is malformed (11)"))
	assert.ErrorIs(t, corrupt, errcodes.ErrStorageCorrupted)
}
