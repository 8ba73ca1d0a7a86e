package option

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type row struct {
	ID        int64
	Name      string
	CreatedAt int64
}

func TestOptionsBuildQuery(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&row{}))
	require.NoError(t, db.Create([]row{
		{ID: 1, Name: "a", CreatedAt: 10},
		{ID: 2, Name: "b", CreatedAt: 20},
		{ID: 3, Name: "c", CreatedAt: 30},
	}).Error)

	stmt := db.Model(&row{})
	for _, opt := range []QueryOption{
		ApplyOperator(Condition{Field: "created_at", Operator: GTE, Value: 20}),
		WithSortBy(QuerySortBy{Field: "name", Desc: true, Allow: map[string]bool{"name": true}}),
		WithLimit(1),
	} {
		stmt = opt.Apply(stmt)
	}

	var rows []row
	require.NoError(t, stmt.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "c", rows[0].Name)
}
