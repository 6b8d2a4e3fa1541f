package server

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"schoolboard/internal/models"
	"schoolboard/internal/service"
	"schoolboard/internal/storage"
	"schoolboard/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type uploadFile struct {
	name    string
	content []byte
}

func multipartRequest(t *testing.T, path string, fields map[string]string, files ...uploadFile) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		part, err := w.CreateFormFile("images", f.name)
		require.NoError(t, err)
		_, err = part.Write(f.content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestUploadPostImages(t *testing.T) {
	env := newTestEnv(t)
	post := testutil.CreatePost(t, env.db, "사진 글", "김철수", "2025-0001", time.Now())
	path := fmt.Sprintf("/api/posts/%d/images", post.ID)
	owner := map[string]string{"authorName": "김철수", "studentId": "2025-0001"}

	resp, body := env.do(t, multipartRequest(t, path, owner,
		uploadFile{"a.png", testutil.PNGBytes(t, 40, 20)},
		uploadFile{"b.png", testutil.PNGBytes(t, 10, 10)},
	))
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	images := decode[struct {
		Images []models.PostImage `json:"images"`
	}](t, body).Images
	require.Len(t, images, 2)
	assert.Equal(t, "image/webp", images[0].Mime)
	assert.Equal(t, 40, images[0].Width)
	assert.Equal(t, 20, images[0].Height)
	assert.Equal(t, "a.png", images[0].OriginalName)
	assert.Less(t, images[0].SortOrder, images[1].SortOrder)
	assert.True(t, strings.HasPrefix(images[0].URL, storage.LocalURLPrefix+"/"))

	resp, _ = env.do(t, httptest.NewRequest(http.MethodGet, images[0].URL, nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	_, body = env.do(t, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/posts/%d", post.ID), nil))
	assert.Len(t, decode[service.PostDetail](t, body).Images, 2)

	// Deleting the post removes the stored objects as well.
	key := strings.TrimPrefix(images[0].URL, storage.LocalURLPrefix+"/")
	stored := filepath.Join(env.srv.config.ImageUploadDir, filepath.FromSlash(key))
	_, err := os.Stat(stored)
	require.NoError(t, err)

	resp, _ = env.do(t, jsonRequest(http.MethodDelete, fmt.Sprintf("/api/posts/%d", post.ID), owner))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_, err = os.Stat(stored)
	assert.True(t, os.IsNotExist(err))
}

func TestUploadPostImages_Rejections(t *testing.T) {
	env := newTestEnv(t)
	post := testutil.CreatePost(t, env.db, "사진 글", "김철수", "2025-0001", time.Now())
	path := fmt.Sprintf("/api/posts/%d/images", post.ID)
	owner := map[string]string{"authorName": "김철수", "studentId": "2025-0001"}
	png := uploadFile{"a.png", testutil.PNGBytes(t, 4, 4)}

	tests := []struct {
		name   string
		path   string
		fields map[string]string
		files  []uploadFile
		status int
	}{
		{"no identity", path, nil, []uploadFile{png}, http.StatusUnauthorized},
		{"not the author", path, map[string]string{"authorName": "박민수", "studentId": "2025-0002"}, []uploadFile{png}, http.StatusForbidden},
		{"no files", path, owner, nil, http.StatusBadRequest},
		{"not an image", path, owner, []uploadFile{{"notes.txt", []byte("hello, world")}}, http.StatusBadRequest},
		{"missing post", "/api/posts/9999/images", owner, []uploadFile{png}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.do(t, multipartRequest(t, tt.path, tt.fields, tt.files...))
			assert.Equal(t, tt.status, resp.StatusCode, string(body))
		})
	}

	var count int64
	require.NoError(t, env.db.Model(&models.PostImage{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestUploadPostImages_RequiresMultipart(t *testing.T) {
	env := newTestEnv(t)
	post := testutil.CreatePost(t, env.db, "사진 글", "김철수", "2025-0001", time.Now())

	resp, _ := env.do(t, jsonRequest(http.MethodPost, fmt.Sprintf("/api/posts/%d/images", post.ID), map[string]string{}))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
