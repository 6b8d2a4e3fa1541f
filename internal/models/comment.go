package models

import "time"

// Comment is a post comment. ParentID, when set, references a comment on the same post.
type Comment struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	PostID    uint       `gorm:"not null;index" json:"postId"`
	ParentID  *uint      `gorm:"index" json:"parentId"`
	Text      string     `gorm:"column:text;not null" json:"text"`
	Author    string     `gorm:"not null" json:"author"`
	StudentID string     `gorm:"not null" json:"studentId"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `gorm:"autoUpdateTime:false" json:"updatedAt"`
}

// CommentNode is a comment materialized from the thread tree: Depth counts
// ancestors and Path is the concatenation of zero-padded ancestor ids.
type CommentNode struct {
	Comment
	Depth int    `json:"depth"`
	Path  string `json:"-"`
}
