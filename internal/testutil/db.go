// Package testutil provides shared fixtures for backend tests.
package testutil

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"schoolboard/internal/database"
	"schoolboard/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// NewTestDB opens a private in-memory SQLite database with every migration applied.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:test_%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	db, err := database.Open(database.DialectSQLite, dsn)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.RunMigrations(context.Background(), db))
	return db
}

// CreateUser inserts a user with a throwaway password.
func CreateUser(t testing.TB, db *gorm.DB, userID, studentID, name string) *models.User {
	t.Helper()
	u := &models.User{UserID: userID, StudentID: studentID, Name: name, Password: "x"}
	require.NoError(t, db.Create(u).Error)
	return u
}

// CreatePost inserts a post authored by the given name and student id.
func CreatePost(t testing.TB, db *gorm.DB, title, author, studentID string, createdAt time.Time) *models.Post {
	t.Helper()
	p := &models.Post{
		Title:     title,
		Content:   title + " body",
		Tag:       "자유",
		Author:    author,
		StudentID: studentID,
		CreatedAt: createdAt,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

// PNGBytes encodes a solid w x h PNG.
func PNGBytes(t testing.TB, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 80, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
