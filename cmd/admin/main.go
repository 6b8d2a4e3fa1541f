// Package main provides admin management utilities for Schoolboard.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"schoolboard/internal/config"
	"schoolboard/internal/database"
	"schoolboard/internal/models"
	"schoolboard/internal/repository"

	"gorm.io/gorm"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage:")
		fmt.Println("  go run ./cmd/admin promote <login_id>   - Grant admin rights")
		fmt.Println("  go run ./cmd/admin demote <login_id>    - Revoke admin rights")
		fmt.Println("  go run ./cmd/admin list-admins          - List all admins")
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()
	switch command := os.Args[1]; command {
	case "promote", "demote":
		if len(os.Args) < 3 {
			fmt.Printf("Usage: go run ./cmd/admin %s <login_id>\n", command)
			os.Exit(1)
		}
		setAdmin(ctx, repository.NewUserRepository(db), os.Args[2], command == "promote")
	case "list-admins":
		listAdmins(ctx, db)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		os.Exit(1)
	}
}

func setAdmin(ctx context.Context, users repository.UserRepository, loginID string, admin bool) {
	user, err := users.GetByLoginID(ctx, loginID)
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == models.CodeNotFound {
			fmt.Printf("User %s not found\n", loginID)
			os.Exit(1)
		}
		log.Fatalf("Database error: %v", err)
	}

	if user.IsAdmin == admin {
		fmt.Printf("User %s (%s) already has admin=%t\n", user.UserID, user.Name, admin)
		return
	}
	if err := users.SetAdmin(ctx, user.ID, admin); err != nil {
		log.Fatalf("Failed to update user: %v", err)
	}
	fmt.Printf("✅ Set admin=%t for %s (%s)\n", admin, user.UserID, user.Name)
}

func listAdmins(ctx context.Context, db *gorm.DB) {
	var admins []models.User
	if err := db.WithContext(ctx).Where("is_admin = ?", true).Order("id").Find(&admins).Error; err != nil {
		log.Fatalf("Failed to fetch admins: %v", err)
	}

	if len(admins) == 0 {
		fmt.Println("No admins found in the system")
		return
	}

	fmt.Printf("Found %d admin(s):\n", len(admins))
	for _, a := range admins {
		fmt.Printf("  - %s (%s, student %s)\n", a.UserID, a.Name, a.StudentID)
	}
}
