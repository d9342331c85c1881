// Command main runs the database seeder.
package main

import (
	"flag"
	"log"
	"log/slog"
	"os"

	"groupfeed/internal/config"
	"groupfeed/internal/database"
	"groupfeed/internal/observability"
	"groupfeed/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 20, "Number of users to create")
	numGroups := flag.Int("groups", 4, "Number of groups to create")
	postsPerGroup := flag.Int("posts", 25, "Number of posts per group")
	maxDays := flag.Int("days", 30, "Spread post timestamps over this many past days")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	preset := flag.String("preset", "", "Apply a YAML preset file instead of random data")
	seedValue := flag.Int64("seed", 0, "Random seed; 0 picks one")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := observability.NewLogger(os.Stdout, cfg.Env)
	observability.SetGlobalLogger(logger)

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	s, err := seed.NewSeeder(db, *seedValue)
	if err != nil {
		log.Fatalf("Failed to create seeder: %v", err)
	}

	if *shouldClean {
		if err := s.ClearAll(); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	if *preset != "" {
		logger.Info("Applying preset", slog.String("file", *preset))
		p, err := seed.LoadPreset(*preset)
		if err != nil {
			log.Fatalf("Preset load failed: %v", err)
		}
		res, err := s.ApplyPreset(p)
		if err != nil {
			log.Fatalf("Preset seeding failed: %v", err)
		}
		logger.Info("Preset applied",
			slog.Int("users", len(res.Users)),
			slog.Int("groups", len(res.Groups)),
			slog.Int("posts", res.Posts))
		return
	}

	if _, err := s.Seed(seed.Options{
		NumUsers:      *numUsers,
		NumGroups:     *numGroups,
		PostsPerGroup: *postsPerGroup,
		MaxDays:       *maxDays,
	}); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	logger.Info("All generated users have the default password", slog.String("password", seed.DefaultPassword))
}
