package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"schoolboard/internal/config"
	"schoolboard/internal/middleware"
	"schoolboard/internal/models"
	"schoolboard/internal/repository"
	"schoolboard/internal/storage"

	"github.com/chai2010/webp"
	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultImageMaxUploadSizeMB = 10
	MaxImagesPerUpload          = 10
	ImageMaxSize                = 1600
	WebPQuality                 = 75
	storedImageMime             = "image/webp"
)

type UploadImageInput struct {
	Filename    string
	ContentType string
	Content     []byte
}

type ImageService struct {
	posts              repository.PostRepository
	images             repository.ImageRepository
	objects            storage.ObjectStorage
	maxUploadSizeBytes int64
}

func NewImageService(posts repository.PostRepository, images repository.ImageRepository, objects storage.ObjectStorage, cfg *config.Config) *ImageService {
	maxUploadSizeMB := DefaultImageMaxUploadSizeMB
	if cfg != nil && cfg.ImageMaxUploadSizeMB > 0 {
		maxUploadSizeMB = cfg.ImageMaxUploadSizeMB
	}
	return &ImageService{
		posts:              posts,
		images:             images,
		objects:            objects,
		maxUploadSizeBytes: int64(maxUploadSizeMB) * 1024 * 1024,
	}
}

// Upload attaches images to a post owned by meta. Every file is validated
// before anything is stored; each is re-encoded as WebP, fitted within
// ImageMaxSize, and appended after the post's existing images.
func (s *ImageService) Upload(ctx context.Context, postID uint, meta AuthorMeta, files []UploadImageInput) ([]models.PostImage, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		if isNotFound(err) {
			return nil, &models.AppError{Code: models.CodeNotFound, Message: "게시글이 존재하지 않습니다."}
		}
		return nil, appErr(err)
	}
	if err := checkOwner(meta, post.Author, post.StudentID); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, models.NewValidationError("No file uploaded")
	}
	if len(files) > MaxImagesPerUpload {
		return nil, models.NewValidationError(fmt.Sprintf("Too many files (max %d)", MaxImagesPerUpload))
	}

	prepared := make([]preparedImage, 0, len(files))
	for _, f := range files {
		p, err := s.prepare(f)
		if err != nil {
			return nil, err
		}
		prepared = append(prepared, p)
	}

	order, err := s.images.NextSortOrder(ctx, postID)
	if err != nil {
		return nil, appErr(err)
	}

	saved := make([]models.PostImage, 0, len(prepared))
	for _, p := range prepared {
		key := fmt.Sprintf("posts/%d/%s.webp", postID, uuid.NewString())
		url, err := s.objects.Put(ctx, key, storedImageMime, p.data)
		if err != nil {
			return nil, models.NewInternalError(err)
		}

		record := &models.PostImage{
			PostID:       postID,
			URL:          url,
			ObjectKey:    key,
			OriginalName: p.name,
			Mime:         storedImageMime,
			SizeBytes:    int64(len(p.data)),
			Width:        p.width,
			Height:       p.height,
			SortOrder:    order,
		}
		if err := s.images.Create(ctx, record); err != nil {
			if rmErr := s.objects.Remove(ctx, key); rmErr != nil {
				middleware.Logger.WarnContext(ctx, "Failed to remove orphaned image object",
					slog.String("key", key), slog.String("error", rmErr.Error()))
			}
			return nil, appErr(err)
		}
		saved = append(saved, *record)
		order++
	}
	return saved, nil
}

type preparedImage struct {
	name   string
	data   []byte
	width  int
	height int
}

func (s *ImageService) prepare(in UploadImageInput) (preparedImage, error) {
	if len(in.Content) == 0 {
		return preparedImage{}, models.NewValidationError("Empty file")
	}
	if int64(len(in.Content)) > s.maxUploadSizeBytes {
		return preparedImage{}, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxUploadSizeBytes/(1024*1024)))
	}

	detected := http.DetectContentType(in.Content)
	if !isAllowedImageMIME(detected) {
		return preparedImage{}, models.NewValidationError("Invalid image type")
	}
	if provided := normalizeContentType(in.ContentType); strings.HasPrefix(provided, "image/") && !isAllowedImageMIME(provided) {
		return preparedImage{}, models.NewValidationError("Invalid image type")
	}

	decoded, _, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil {
		return preparedImage{}, models.NewValidationError("Invalid image file")
	}

	fitted := resizeToFit(decoded, ImageMaxSize, ImageMaxSize)
	data, err := encodeWebP(fitted, WebPQuality)
	if err != nil {
		return preparedImage{}, models.NewInternalError(err)
	}

	b := fitted.Bounds()
	name := strings.TrimSpace(in.Filename)
	if name == "" {
		name = "image"
	}
	return preparedImage{name: name, data: data, width: b.Dx(), height: b.Dy()}, nil
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scale := min(float64(maxWidth)/float64(w), float64(maxHeight)/float64(h))
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isAllowedImageMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}
