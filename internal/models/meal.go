package models

import "time"

// Dish is a normalized menu item name.
type Dish struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"uniqueIndex;not null" json:"name"`
}

// MealDish places a dish on a given day's menu. MealDate is YYYYMMDD.
type MealDish struct {
	ID       uint   `gorm:"primaryKey" json:"mealDishId"`
	MealDate string `gorm:"not null;uniqueIndex:idx_meal_date_dish" json:"date"`
	DishID   uint   `gorm:"not null;uniqueIndex:idx_meal_date_dish" json:"dishId"`
}

// DishFeedback is one user's rating of one dish on one day. Level columns are
// nullable; LikeFlag is required.
type DishFeedback struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;uniqueIndex:idx_feedback_user_meal" json:"userId"`
	MealDishID   uint      `gorm:"not null;uniqueIndex:idx_feedback_user_meal" json:"mealDishId"`
	LikeFlag     int       `gorm:"not null" json:"like_flag"`
	SaltLevel    *int      `json:"salt_level"`
	TempLevel    *int      `json:"temp_level"`
	PortionLevel *int      `json:"portion_level"`
	TextureLevel *int      `json:"texture_level"`
	KeepText     string    `json:"keep_text"`
	ImproveText  string    `json:"improve_text"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName returns the feedback table name.
func (DishFeedback) TableName() string {
	return "dish_feedback"
}
