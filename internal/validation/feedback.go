package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxFeedbackTextRunes caps keep_text and improve_text.
const MaxFeedbackTextRunes = 500

var badWords = []*regexp.Regexp{
	regexp.MustCompile(`(?i)욕설1`),
	regexp.MustCompile(`(?i)욕설2`),
}

// FeedbackItem is one dish rating in a feedback submission. like_flag is
// required; the level fields are optional and limited to their scales.
type FeedbackItem struct {
	MealDishID   uint   `json:"mealDishId" validate:"required"`
	LikeFlag     *int   `json:"like_flag" validate:"required,oneof=-1 0 1"`
	SaltLevel    *int   `json:"salt_level" validate:"omitempty,oneof=-1 0 1 2"`
	TempLevel    *int   `json:"temp_level" validate:"omitempty,oneof=-1 0 1"`
	PortionLevel *int   `json:"portion_level" validate:"omitempty,oneof=-1 0 1"`
	TextureLevel *int   `json:"texture_level" validate:"omitempty,oneof=-1 0 1"`
	KeepText     string `json:"keep_text"`
	ImproveText  string `json:"improve_text"`
}

// FeedbackRequest is the body of a feedback submission.
type FeedbackRequest struct {
	Items []FeedbackItem `json:"items" validate:"required,min=1,dive"`
}

// CleanFeedbackText trims s, cuts it to MaxFeedbackTextRunes and masks banned words.
func CleanFeedbackText(s string) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > MaxFeedbackTextRunes {
		s = string([]rune(s)[:MaxFeedbackTextRunes])
	}
	for _, re := range badWords {
		s = re.ReplaceAllString(s, "***")
	}
	return s
}
