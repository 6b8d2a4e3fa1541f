package server

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"schoolboard/internal/models"
	"schoolboard/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type commentBody struct {
	Success bool           `json:"success"`
	Comment models.Comment `json:"comment"`
}

func (e *testEnv) comment(t *testing.T, postID uint, text string, parentID *uint) models.Comment {
	t.Helper()
	payload := map[string]any{"text": text, "author": "김철수", "studentId": "2025-0001"}
	if parentID != nil {
		payload["parentId"] = *parentID
	}
	resp, body := e.do(t, jsonRequest(http.MethodPost, fmt.Sprintf("/api/posts/%d/comments", postID), payload))
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	return decode[commentBody](t, body).Comment
}

func TestCommentThread(t *testing.T) {
	env := newTestEnv(t)
	post := testutil.CreatePost(t, env.db, "댓글 글", "김철수", "2025-0001", time.Now())

	root := env.comment(t, post.ID, "첫 댓글", nil)
	reply := env.comment(t, post.ID, "답글", &root.ID)
	env.comment(t, post.ID, "둘째 댓글", nil)
	assert.Equal(t, root.ID, *reply.ParentID)

	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/posts/%d/comments", post.ID), nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	thread := decode[[]models.CommentNode](t, body)
	require.Len(t, thread, 3)
	assert.Equal(t, "첫 댓글", thread[0].Text)
	assert.Equal(t, 0, thread[0].Depth)
	assert.Equal(t, "답글", thread[1].Text)
	assert.Equal(t, 1, thread[1].Depth)
	assert.Equal(t, "둘째 댓글", thread[2].Text)

	var stored models.Post
	require.NoError(t, env.db.First(&stored, post.ID).Error)
	assert.Equal(t, 3, stored.Comments)
}

func TestCreateComment_Validation(t *testing.T) {
	env := newTestEnv(t)
	post := testutil.CreatePost(t, env.db, "글", "김철수", "2025-0001", time.Now())
	other := testutil.CreatePost(t, env.db, "다른 글", "김철수", "2025-0001", time.Now())
	foreign := env.comment(t, other.ID, "남의 댓글", nil)

	tests := []struct {
		name   string
		path   string
		body   map[string]any
		status int
	}{
		{"empty text", fmt.Sprintf("/api/posts/%d/comments", post.ID), map[string]any{"text": "  "}, http.StatusBadRequest},
		{"missing post", "/api/posts/9999/comments", map[string]any{"text": "hi"}, http.StatusNotFound},
		{"parent on another post", fmt.Sprintf("/api/posts/%d/comments", post.ID), map[string]any{"text": "hi", "parentId": foreign.ID}, http.StatusBadRequest},
		{"unknown parent", fmt.Sprintf("/api/posts/%d/comments", post.ID), map[string]any{"text": "hi", "parentId": 9999}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.do(t, jsonRequest(http.MethodPost, tt.path, tt.body))
			assert.Equal(t, tt.status, resp.StatusCode, string(body))
		})
	}
}

func TestCreateComment_AnonymousAuthor(t *testing.T) {
	env := newTestEnv(t)
	post := testutil.CreatePost(t, env.db, "글", "김철수", "2025-0001", time.Now())

	resp, body := env.do(t, jsonRequest(http.MethodPost, fmt.Sprintf("/api/posts/%d/comments", post.ID),
		map[string]any{"text": "익명 댓글"}))
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	assert.NotEmpty(t, decode[commentBody](t, body).Comment.Author)
}

func TestUpdateComment(t *testing.T) {
	env := newTestEnv(t)
	post := testutil.CreatePost(t, env.db, "글", "김철수", "2025-0001", time.Now())
	c := env.comment(t, post.ID, "원래", nil)
	path := fmt.Sprintf("/api/posts/%d/comments/%d", post.ID, c.ID)

	resp, _ := env.do(t, jsonRequest(http.MethodPut, path, map[string]any{"text": "수정"}))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = env.do(t, jsonRequest(http.MethodPut, path, map[string]any{
		"text": "수정", "authorName": "박민수", "studentId": "2025-0002",
	}))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := env.do(t, jsonRequest(http.MethodPut, path, map[string]any{
		"text": "수정", "authorName": "김철수", "studentId": "2025-0001",
	}))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	updated := decode[models.Comment](t, body)
	assert.Equal(t, "수정", updated.Text)
	assert.NotNil(t, updated.UpdatedAt)

	resp, _ = env.do(t, jsonRequest(http.MethodPut, fmt.Sprintf("/api/posts/%d/comments/9999", post.ID), map[string]any{
		"text": "수정", "authorName": "김철수", "studentId": "2025-0001",
	}))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteComment_RemovesReplies(t *testing.T) {
	env := newTestEnv(t)
	testutil.CreateUser(t, env.db, "testuser", "2025-0001", "김철수")
	post := testutil.CreatePost(t, env.db, "글", "김철수", "2025-0001", time.Now())
	root := env.comment(t, post.ID, "부모", nil)
	child := env.comment(t, post.ID, "자식", &root.ID)
	env.comment(t, post.ID, "손자", &child.ID)
	env.comment(t, post.ID, "남는 댓글", nil)

	// The session supplies the author identity when the body has none.
	cookie := env.login(t, "testuser", "x")
	resp, body := env.do(t, jsonRequest(http.MethodDelete, fmt.Sprintf("/api/posts/%d/comments/%d", post.ID, root.ID), nil), cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	got := decode[struct {
		OK      bool  `json:"ok"`
		Deleted int64 `json:"deleted"`
	}](t, body)
	assert.True(t, got.OK)
	assert.Equal(t, int64(3), got.Deleted)

	var stored models.Post
	require.NoError(t, env.db.First(&stored, post.ID).Error)
	assert.Equal(t, 1, stored.Comments)
}
