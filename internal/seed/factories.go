// Package seed provides helpers to create demo data for the application
// database. These helpers are intended for development and testing only.
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"schoolboard/internal/auth"
	"schoolboard/internal/models"
	"schoolboard/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Tags are the board categories used for generated posts.
var Tags = []string{"자유", "공지", "질문", "정보", "동아리"}

// Factory builds domain entities and persists them through the repositories,
// so denormalized counters stay consistent with the rows it creates.
type Factory struct {
	opts      Options
	faker     *gofakeit.Faker
	rng       *rand.Rand
	users     repository.UserRepository
	posts     repository.PostRepository
	comments  repository.CommentRepository
	reactions repository.ReactionRepository
	favorites repository.FavoriteRepository

	nextStudent int
	password    string
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	seed := opts.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Factory{
		opts:        opts,
		faker:       gofakeit.New(seed),
		rng:         rand.New(rand.NewSource(seed)), //nolint:gosec // demo data
		users:       repository.NewUserRepository(db),
		posts:       repository.NewPostRepository(db),
		comments:    repository.NewCommentRepository(db),
		reactions:   repository.NewReactionRepository(db),
		favorites:   repository.NewFavoriteRepository(db),
		nextStudent: 1000,
	}
}

// hashedPassword is computed once; bcrypt per user makes large seeds slow.
func (f *Factory) hashedPassword() (string, error) {
	if f.password != "" {
		return f.password, nil
	}
	if f.opts.SkipBcrypt {
		f.password = DemoPassword
		return f.password, nil
	}
	cred, err := auth.HashPassword(DemoPassword)
	if err != nil {
		return "", err
	}
	f.password = cred.Value
	return f.password, nil
}

// CreateUser inserts a student account with DemoPassword.
func (f *Factory) CreateUser(ctx context.Context, overrides ...func(*models.User)) (*models.User, error) {
	password, err := f.hashedPassword()
	if err != nil {
		return nil, err
	}
	f.nextStudent++
	u := &models.User{
		StudentID: fmt.Sprintf("%d-%04d", time.Now().Year(), f.nextStudent),
		Name:      f.faker.Name(),
		UserID:    fmt.Sprintf("%s%d", f.faker.Username(), f.nextStudent),
		Password:  password,
	}
	for _, o := range overrides {
		o(u)
	}
	if err := f.users.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("create user %s: %w", u.UserID, err)
	}
	return u, nil
}

// CreatePost inserts a post authored by user with a creation time spread over
// the last MaxDays days.
func (f *Factory) CreatePost(ctx context.Context, user *models.User, overrides ...func(*models.Post)) (*models.Post, error) {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 30
	}
	back := time.Duration(f.rng.Intn(maxDays*24*60)) * time.Minute

	p := &models.Post{
		Title:     f.faker.Sentence(4),
		Content:   f.faker.Paragraph(1, 3, 8, "\n"),
		Tag:       Tags[f.rng.Intn(len(Tags))],
		Author:    user.Name,
		StudentID: user.StudentID,
		CreatedAt: time.Now().Add(-back),
	}
	for _, o := range overrides {
		o(p)
	}
	if err := f.posts.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return p, nil
}

// CreateComment adds a comment by user, as a reply when parent is set.
func (f *Factory) CreateComment(ctx context.Context, user *models.User, post *models.Post, parent *models.Comment) (*models.Comment, error) {
	c := &models.Comment{
		PostID:    post.ID,
		Text:      f.faker.Sentence(8),
		Author:    user.Name,
		StudentID: user.StudentID,
	}
	if parent != nil {
		c.ParentID = &parent.ID
	}
	if err := f.comments.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	return c, nil
}

// React records user's reaction through the ledger.
func (f *Factory) React(ctx context.Context, user *models.User, post *models.Post, reaction string) error {
	if _, err := f.reactions.Toggle(ctx, user.ID, post.ID, reaction); err != nil {
		return fmt.Errorf("react: %w", err)
	}
	return nil
}

// Favorite bookmarks post for user.
func (f *Factory) Favorite(ctx context.Context, user *models.User, post *models.Post) error {
	if _, err := f.favorites.Toggle(ctx, user.ID, post.ID); err != nil {
		return fmt.Errorf("favorite: %w", err)
	}
	return nil
}
