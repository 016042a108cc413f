package migration

import (
	"testing"
	"time"

	"git.flipper.school/flipper/flipper/src/migration/migrations"
	"git.flipper.school/flipper/flipper/src/migration/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func version(day int) types.MigrationVersion {
	return types.MigrationVersion(time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC))
}

func TestPlan(t *testing.T) {
	all := []types.MigrationVersion{version(1), version(2), version(3)}

	t.Run("fresh database", func(t *testing.T) {
		steps, err := plan(all, types.MigrationVersion{}, version(3))
		require.NoError(t, err)
		require.Len(t, steps, 3)
		for i, step := range steps {
			assert.True(t, step.up)
			assert.True(t, step.version.Equal(all[i]))
			assert.True(t, step.after.Equal(all[i]))
		}
	})

	t.Run("roll back", func(t *testing.T) {
		steps, err := plan(all, version(3), version(1))
		require.NoError(t, err)
		require.Len(t, steps, 2)
		assert.False(t, steps[0].up)
		assert.True(t, steps[0].version.Equal(version(3)))
		assert.True(t, steps[0].after.Equal(version(2)))
		assert.True(t, steps[1].after.Equal(version(1)))
	})

	t.Run("nothing to do", func(t *testing.T) {
		steps, err := plan(all, version(2), version(2))
		require.NoError(t, err)
		assert.Empty(t, steps)
	})

	t.Run("unknown target", func(t *testing.T) {
		_, err := plan(all, version(1), version(9))
		assert.Error(t, err)
	})
}

func TestMigrationsAreRegistered(t *testing.T) {
	versions := getSortedMigrationVersions()
	require.NotEmpty(t, versions)
	assert.True(t, LatestVersion().Equal(versions[len(versions)-1]))

	for _, v := range versions {
		m := migrations.All[v]
		assert.True(t, m.Version().Equal(v))
		assert.NotEmpty(t, m.Name())
	}
}
