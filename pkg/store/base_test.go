package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRebindDollar(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"SELECT 1", "SELECT 1"},
		{"WHERE a = ?", "WHERE a = $1"},
		{"VALUES (?, ?, ?)", "VALUES ($1, $2, $3)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RebindDollar(tt.in))
	}
}

func TestCreateAssignsUniqueIDs(t *testing.T) {
	b := &BaseSQLStore{}
	a := b.Create("ArticlePage")
	c := b.Create("ArticlePage")

	assert.Equal(t, "ArticlePage", a.Class)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, c.ID)
}

func TestFindByFieldAbsenceIsNotAnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	b := &BaseSQLStore{DB: db}
	mock.ExpectQuery("SELECT o.id FROM objects").
		WithArgs("ArticlePage", "GCID", "1001").
		WillReturnError(sql.ErrNoRows)

	obj, err := b.FindByField(context.Background(), "ArticlePage", "GCID", "1001")
	require.NoError(t, err)
	assert.Nil(t, obj)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByFieldLoadsObject(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	b := &BaseSQLStore{DB: db}

	mock.ExpectQuery("SELECT o.id FROM objects").
		WithArgs("ArticlePage", "GCID", "1001").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("obj-1"))
	mock.ExpectQuery("SELECT class, parent_id FROM objects").
		WithArgs("obj-1").
		WillReturnRows(sqlmock.NewRows([]string{"class", "parent_id"}).AddRow("ArticlePage", "holder-1"))
	mock.ExpectQuery("SELECT field, value FROM object_fields").
		WithArgs("obj-1").
		WillReturnRows(sqlmock.NewRows([]string{"field", "value"}).
			AddRow("Title", "Welcome").
			AddRow("GCID", "1001"))
	mock.ExpectQuery("SELECT field, related_id, kind FROM object_refs").
		WithArgs("obj-1").
		WillReturnRows(sqlmock.NewRows([]string{"field", "related_id", "kind"}).
			AddRow("Author", "author-1", "single").
			AddRow("Categories", "cat-1", "multi").
			AddRow("Categories", "cat-2", "multi"))

	obj, err := b.FindByField(context.Background(), "ArticlePage", "GCID", "1001")
	require.NoError(t, err)
	require.NotNil(t, obj)

	assert.Equal(t, "obj-1", obj.ID)
	assert.Equal(t, "ArticlePage", obj.Class)
	assert.Equal(t, "holder-1", obj.ParentID)
	assert.Equal(t, "Welcome", obj.Field("Title"))
	assert.Equal(t, "author-1", obj.SingleRefs["Author"])
	assert.Equal(t, []string{"cat-1", "cat-2"}, obj.MultiRefs["Categories"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWriteNotConnected(t *testing.T) {
	b := &BaseSQLStore{}
	err := b.Write(context.Background(), NewObject("ArticlePage", "id-1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not connected")
}
