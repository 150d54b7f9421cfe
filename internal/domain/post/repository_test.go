package post

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(
		gormsqlite.New(gormsqlite.Config{DriverName: "sqlite", DSN: ":memory:"}),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)},
	)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Post{}))
	return db
}

func seedPost(t *testing.T, repo Repository, p Post) {
	t.Helper()
	require.NoError(t, repo.Create(context.Background(), &p))
}

func TestRepository_ListSubmitted(t *testing.T) {
	repo := NewRepository(openTestDB(t))

	seedPost(t, repo, Post{ID: "submitted", UserID: 1, SHA256: "a", TxID: strPtr("tx1")})
	seedPost(t, repo, Post{ID: "pending", UserID: 1, SHA256: "b"})

	posts, err := repo.ListSubmitted(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "submitted", posts[0].ID)
}

func TestRepository_AttachImageID(t *testing.T) {
	repo := NewRepository(openTestDB(t))

	seedPost(t, repo, Post{ID: "p1", UserID: 1, SHA256: "sha-1", SigningKey: "0xkey", TxID: strPtr("tx1")})

	rows, err := repo.AttachImageID(context.Background(), "sha-1", "0xkey", 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	p, err := repo.GetByID(context.Background(), "p1")
	require.NoError(t, err)
	require.NotNil(t, p.ImageID)
	assert.Equal(t, int64(7), *p.ImageID)

	// Replaying the confirmation touches nothing.
	rows, err = repo.AttachImageID(context.Background(), "sha-1", "0xkey", 7)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows)

	// A different signing key never claims someone else's post.
	rows, err = repo.AttachImageID(context.Background(), "sha-1", "0xother", 8)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows)
}

func TestRepository_GetRootByImageID(t *testing.T) {
	repo := NewRepository(openTestDB(t))

	seedPost(t, repo, Post{ID: "root", UserID: 1, SHA256: "a", ImageID: int64Ptr(7), TxID: strPtr("tx1")})
	seedPost(t, repo, Post{
		ID: "deriv", UserID: 2, SHA256: "b",
		ImageID: int64Ptr(7), DerivedFrom: strPtr("root"), TxID: strPtr("tx2"),
	})

	root, err := repo.GetRootByImageID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "root", root.ID)

	_, err = repo.GetRootByImageID(context.Background(), 99)
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func TestRepository_ListByImageID(t *testing.T) {
	repo := NewRepository(openTestDB(t))

	seedPost(t, repo, Post{ID: "root", UserID: 1, SHA256: "a", ImageID: int64Ptr(7), TxID: strPtr("tx1")})
	seedPost(t, repo, Post{
		ID: "deriv", UserID: 2, SHA256: "b",
		ImageID: int64Ptr(7), DerivedFrom: strPtr("root"), TxID: strPtr("tx2"),
	})
	seedPost(t, repo, Post{ID: "other", UserID: 3, SHA256: "c", ImageID: int64Ptr(8), TxID: strPtr("tx3")})

	posts, err := repo.ListByImageID(context.Background(), 7)
	require.NoError(t, err)
	assert.Len(t, posts, 2)
}

func TestRepository_SetLikeCount(t *testing.T) {
	repo := NewRepository(openTestDB(t))

	seedPost(t, repo, Post{ID: "p1", UserID: 1, SHA256: "a", TxID: strPtr("tx1")})

	require.NoError(t, repo.SetLikeCount(context.Background(), "p1", 5))

	p, err := repo.GetByID(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), p.LikeCount)
}
