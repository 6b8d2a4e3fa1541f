package models

import "time"

// Reaction values stored in the post_reactions ledger.
const (
	ReactionLike    = "like"
	ReactionDislike = "dislike"
	// ReactionNone is only a request value; it deletes the ledger row.
	ReactionNone = "none"
)

// Post is a board post. Likes, Dislikes and Comments are denormalized counters
// derived from post_reactions and comments; IsBest is derived by the ranker.
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"not null" json:"title"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Tag       string    `gorm:"not null;index" json:"tag"`
	Author    string    `gorm:"not null" json:"author"`
	StudentID string    `gorm:"not null;index" json:"studentId"`
	CreatedAt time.Time `json:"createdAt"`
	Likes     int       `gorm:"not null;default:0" json:"likes"`
	Dislikes  int       `gorm:"not null;default:0" json:"dislikes"`
	Comments  int       `gorm:"not null;default:0" json:"comments"`
	IsBest    bool      `gorm:"not null;default:false" json:"isBest"`
}

// PostReaction is one row of the reaction ledger: at most one per (user, post).
type PostReaction struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_reaction_user_post" json:"userId"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_reaction_user_post" json:"postId"`
	Reaction  string    `gorm:"not null" json:"reaction"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName returns the ledger table name.
func (PostReaction) TableName() string {
	return "post_reactions"
}

// Favorite marks a post as bookmarked by a user.
type Favorite struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_favorite_user_post" json:"userId"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_favorite_user_post" json:"postId"`
	CreatedAt time.Time `json:"createdAt"`
}

// PostImage is an image attached to a post, stored via the configured object storage.
type PostImage struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	PostID       uint      `gorm:"not null;index" json:"postId"`
	URL          string    `gorm:"column:url;not null" json:"url"`
	ObjectKey    string    `gorm:"not null" json:"-"`
	OriginalName string    `gorm:"not null" json:"originalName"`
	Mime         string    `gorm:"not null" json:"mime"`
	SizeBytes    int64     `gorm:"not null" json:"sizeBytes"`
	Width        int       `json:"width"`
	Height       int       `json:"height"`
	SortOrder    int       `gorm:"not null;default:0" json:"sortOrder"`
	CreatedAt    time.Time `json:"createdAt"`
}
