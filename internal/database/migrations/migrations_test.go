package migrations

import (
	"database/sql"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"flyerxpress/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialize_MissingDirectory(t *testing.T) {
	r := NewRunner(&sql.DB{}, Options{MigrationsDir: filepath.Join(t.TempDir(), "absent")}, logger.NewLoggerWithWriter(io.Discard))

	err := r.Up()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
	assert.NoError(t, r.Close())
}

// Every up migration in the repository needs a matching down migration.
func TestMigrationFilesArePaired(t *testing.T) {
	dir := filepath.Join("..", "..", "..", "migrations")
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	ups, downs := map[string]bool{}, map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		}
	}
	require.NotEmpty(t, ups)
	assert.Equal(t, ups, downs)

	var names []string
	for n := range ups {
		names = append(names, n)
	}
	sort.Strings(names)
	assert.Equal(t, []string{"000001_create_flyers", "000002_create_tickets"}, names)
}
