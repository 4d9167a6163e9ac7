// Command main runs the database seeder for Chirper.
package main

import (
	"flag"
	"log"

	"chirper/internal/config"
	"chirper/internal/database"
	"chirper/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 25, "Number of users to create")
	numMessages := flag.Int("messages", 200, "Number of messages to create")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	log.Println("Database Seeder")
	log.Printf("Target: %d users, %d messages, clean=%v\n", *numUsers, *numMessages, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if _, err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := seed.Run(database.DB, seed.Options{
		NumUsers:    *numUsers,
		NumMessages: *numMessages,
		ShouldClean: *shouldClean,
	}); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Println("Seeding complete")
}
