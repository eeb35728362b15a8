package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/locvowork/wage_calculator/internal/bootstrap"
	"github.com/locvowork/wage_calculator/internal/config"
	"github.com/locvowork/wage_calculator/internal/database"
	"github.com/locvowork/wage_calculator/internal/logger"
)

func main() {
	// Define flags
	action := flag.String("action", "seed", "Action to perform: seed, clear")
	preset := flag.String("preset", "medium", "Data preset: small, medium, large")
	count := flag.Int("count", 0, "Number of demo sessions (overrides preset)")
	seed := flag.Int64("seed", 0, "Random seed for reproducible sessions (0 = time based)")
	yes := flag.Bool("yes", false, "Skip the confirmation prompt of clear")

	flag.Parse()

	ctx := context.Background()

	fmt.Println("🚀 Wage Session Seeder")
	fmt.Println(strings.Repeat("=", 50))

	// Initialize stores
	fmt.Println("📡 Initializing session store...")
	app := bootstrap.NewApp()
	if err := app.InitStores(ctx); err != nil {
		logger.ErrorLog(ctx, "Failed to initialize application: %v", err)
		log.Fatal(err)
	}
	defer app.Close()
	fmt.Printf("🗄️  Using %s store\n", config.DefaultEnvConfig.SESSION_STORE)

	// Create seeder
	seeder := database.NewDataSeeder(app.Sessions, app.Engine)
	if *seed != 0 {
		seeder.WithSeed(*seed)
	}

	// Execute action
	switch *action {
	case "seed":
		performSeed(ctx, seeder, *preset, *count)

	case "clear":
		performClear(ctx, seeder, *yes)

	default:
		fmt.Printf("❌ Unknown action: %s\n", *action)
		flag.PrintDefaults()
		return
	}

	fmt.Println("\n✅ Done!")
}

func performSeed(ctx context.Context, seeder *database.DataSeeder, preset string, count int) {
	if count > 0 {
		fmt.Printf("📊 Using custom count: %d sessions\n", count)
	} else {
		count = database.GetPresetCount(database.SeedPreset(preset))
		fmt.Printf("📊 Using preset: %s (%d sessions)\n", preset, count)
	}

	if err := seeder.SeedSessions(ctx, count); err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}
}

func performClear(ctx context.Context, seeder *database.DataSeeder, skipPrompt bool) {
	if !skipPrompt {
		fmt.Println("⚠️  This will delete all demo sessions!")
		fmt.Print("Continue? (yes/no): ")

		var response string
		fmt.Scanln(&response)
		if response != "yes" {
			fmt.Println("Cancelled.")
			return
		}
	}

	if _, err := seeder.ClearSessions(ctx); err != nil {
		log.Fatalf("❌ Clear failed: %v", err)
	}
}
