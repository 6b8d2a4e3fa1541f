package service

import (
	"strings"

	"schoolboard/internal/models"
)

// AuthorMeta is the author identity a caller claims when modifying a post
// or comment.
type AuthorMeta struct {
	Name      string
	StudentID string
}

// Normalize trims both fields.
func (m AuthorMeta) Normalize() AuthorMeta {
	return AuthorMeta{Name: strings.TrimSpace(m.Name), StudentID: strings.TrimSpace(m.StudentID)}
}

// checkOwner reports 401 when meta is incomplete and 403 when it does not
// match the stored author.
func checkOwner(meta AuthorMeta, author, studentID string) error {
	meta = meta.Normalize()
	if meta.Name == "" || meta.StudentID == "" {
		return models.NewUnauthorizedError("인증 정보가 없습니다.")
	}
	if meta.Name != author || meta.StudentID != studentID {
		return models.NewForbiddenError("작성자만 가능합니다.")
	}
	return nil
}
