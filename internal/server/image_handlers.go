package server

import (
	"io"

	"schoolboard/internal/models"
	"schoolboard/internal/service"

	"github.com/gofiber/fiber/v2"
)

// UploadPostImages handles POST /api/posts/:id/images. Files come in the
// multipart field "images"; only the post's author may attach them.
// @Summary Attach images to a post
// @Tags posts
// @Accept mpfd
// @Produce json
// @Param id path int true "Post ID"
// @Param images formData file true "Image files"
// @Success 201 {object} object{images=[]models.PostImage}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/images [post]
func (s *Server) UploadPostImages(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("multipart form with images is required"))
	}
	files := form.File["images"]
	inputs := make([]service.UploadImageInput, 0, len(files))
	for _, fh := range files {
		src, err := fh.Open()
		if err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Unable to read uploaded file"))
		}
		content, err := io.ReadAll(src)
		_ = src.Close()
		if err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Unable to read uploaded file"))
		}
		inputs = append(inputs, service.UploadImageInput{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Content:     content,
		})
	}

	meta := authorMeta(c, firstValue(form.Value["authorName"], form.Value["author"]), firstValue(form.Value["studentId"]))
	images, err := s.imageService.Upload(c.UserContext(), postID, meta, inputs)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"images": images})
}

func firstValue(lists ...[]string) string {
	for _, l := range lists {
		for _, v := range l {
			if v != "" {
				return v
			}
		}
	}
	return ""
}
