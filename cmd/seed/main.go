// Command seed fills the database with demo users, posts and engagement.
package main

import (
	"context"
	"flag"
	"log"

	"schoolboard/internal/config"
	"schoolboard/internal/database"
	"schoolboard/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 30, "Number of users to create")
	numPosts := flag.Int("posts", 120, "Number of posts to create")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	maxDays := flag.Int("days", 30, "Spread post creation times over this many days")
	fast := flag.Bool("fast", false, "Store the demo password as legacy plaintext (upgraded on first login)")
	randSeed := flag.Int64("rand-seed", 0, "Random seed for reproducible data (0 picks one)")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")
	log.Printf("Target: %d users, %d posts, clean=%v\n", *numUsers, *numPosts, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	s := seed.NewSeeder(db, seed.Options{
		NumUsers:    *numUsers,
		NumPosts:    *numPosts,
		ShouldClean: *shouldClean,
		MaxDays:     *maxDays,
		SkipBcrypt:  *fast,
		RandSeed:    *randSeed,
	})
	if err := s.Run(context.Background()); err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Println("✨ All done! Your database is now populated with test data.")
	log.Printf("📧 All test users have the password: %s\n", seed.DemoPassword)
}
