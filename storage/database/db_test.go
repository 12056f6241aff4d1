package database

import (
	"database/sql"
	"testing"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/tintaacademy/migrator/core"
)

func Test_withUTC(t *testing.T) {
	tests := []struct {
		name, dsn, want string
	}{
		{"adds timezone", "postgres://u:p@localhost:5432/v4", "postgres://u:p@localhost:5432/v4?timezone=UTC"},
		{"keeps other params", "postgresql://localhost/v4?sslmode=disable", "postgresql://localhost/v4?sslmode=disable&timezone=UTC"},
		{"keeps explicit timezone", "postgres://localhost/v4?timezone=America%2FMontevideo", "postgres://localhost/v4?timezone=America%2FMontevideo"},
		{"key value form untouched", "host=localhost dbname=v4", "host=localhost dbname=v4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, withUTC(tt.dsn))
		})
	}
}

func TestMapError(t *testing.T) {
	assert.NoError(t, MapError(nil))
	assert.True(t, core.IsNotFound(MapError(sql.ErrNoRows)))
	assert.True(t, core.IsNotFound(MapError(errors.Wrap(sql.ErrNoRows, "get"))))

	dup := MapError(&pq.Error{Code: "23505", Constraint: "Course_slug_key"})
	assert.True(t, core.IsDuplicate(dup))
	assert.Contains(t, dup.Error(), "Course_slug_key")

	other := &pq.Error{Code: "23503"}
	assert.Equal(t, error(other), MapError(other))
}

func TestIsUndefinedTable(t *testing.T) {
	assert.True(t, IsUndefinedTable(errors.Wrap(&pq.Error{Code: "42P01"}, "select")))
	assert.False(t, IsUndefinedTable(&pq.Error{Code: "23505"}))
	assert.False(t, IsUndefinedTable(sql.ErrNoRows))
}
