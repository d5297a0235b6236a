package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/abcgaming/loyalty-engine/internal/loyalty"
	"github.com/abcgaming/loyalty-engine/internal/models"
	"github.com/abcgaming/loyalty-engine/pkg/config"
	"github.com/abcgaming/loyalty-engine/pkg/database"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: migrate [up|down|seed]")
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	db, err := database.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	command := os.Args[1]

	switch command {
	case "up":
		if err := runMigrations(db); err != nil {
			logrus.Fatalf("Failed to run migrations: %v", err)
		}
		logrus.Info("Migrations completed successfully")

	case "down":
		if err := dropTables(db); err != nil {
			logrus.Fatalf("Failed to drop tables: %v", err)
		}
		logrus.Info("Tables dropped successfully")

	case "seed":
		if err := seedData(db); err != nil {
			logrus.Fatalf("Failed to seed data: %v", err)
		}
		logrus.Info("Data seeded successfully")

	default:
		log.Fatalf("Unknown command: %s", command)
	}
}

func runMigrations(db *database.DB) error {
	isPostgres := db.Dialector.Name() == "postgres"

	// Enable UUID extension for PostgreSQL
	if isPostgres {
		if err := db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"").Error; err != nil {
			return fmt.Errorf("failed to create UUID extension: %w", err)
		}
	}

	// Auto migrate all models
	if err := db.AutoMigrate(
		&models.Dataset{},
		&models.ActivityRecord{},
		&models.PlayerScore{},
		&models.BonusRun{},
		&models.BonusAllocation{},
	); err != nil {
		return fmt.Errorf("failed to migrate models: %w", err)
	}

	// Create indexes
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_records_dataset_game ON activity_records(dataset_id, game_type)",
		"CREATE INDEX IF NOT EXISTS idx_records_dataset_slot ON activity_records(dataset_id, time_slot)",
		"CREATE INDEX IF NOT EXISTS idx_scores_leaderboard ON player_scores(dataset_id, period, loyalty_points DESC)",
		"CREATE INDEX IF NOT EXISTS idx_allocations_run_rank ON bonus_allocations(run_id, rank)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

func dropTables(db *database.DB) error {
	suffix := ""
	if db.Dialector.Name() == "postgres" {
		suffix = " CASCADE"
	}

	// Drop tables in reverse order to handle foreign key constraints
	tables := []string{
		"bonus_allocations",
		"bonus_runs",
		"player_scores",
		"activity_records",
		"datasets",
	}

	for _, table := range tables {
		if err := db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s%s", table, suffix)).Error; err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}

	return nil
}

func seedData(db *database.DB) error {
	// Create a demo dataset so the dashboard has something to show
	dataset := &models.Dataset{
		PublicID:   uuid.New().String(),
		Filename:   "demo_activity.csv",
		Format:     "csv",
		SizeBytes:  4096,
		Status:     models.DatasetStatusReady,
		UploadedAt: time.Now().UTC(),
	}

	if err := db.Create(dataset).Error; err != nil {
		return fmt.Errorf("failed to create demo dataset: %w", err)
	}

	players := []string{"P1001", "P1002", "P1003", "P1004", "P1005", "P1006", "P1007", "P1008"}
	gameTypes := []string{"slots", "poker", "blackjack", "roulette"}
	base := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

	records := make([]models.ActivityRecord, 0, len(players)*12)
	for i, playerID := range players {
		for j := 0; j < 12; j++ {
			ts := base.AddDate(0, j/6, j%6).Add(time.Duration((i*5+j*3)%24) * time.Hour)
			wagered := float64(50 + i*40 + j*15)
			won := float64((i*25 + j*10) % 180)
			records = append(records, models.ActivityRecord{
				DatasetID:     dataset.ID,
				PlayerID:      playerID,
				GameType:      gameTypes[(i+j)%len(gameTypes)],
				AmountWagered: wagered,
				AmountWon:     won,
				Timestamp:     ts,
				TimeSlot:      models.DeriveTimeSlot(ts),
			})
		}
	}

	if err := db.Create(&records).Error; err != nil {
		return fmt.Errorf("failed to create demo records: %w", err)
	}

	// Score the demo data so the leaderboard renders without a recompute
	calc := loyalty.NewCalculator(loyalty.DefaultWeights())
	scores := calc.Score(records)
	for i := range scores {
		scores[i].DatasetID = dataset.ID
	}
	if err := db.Create(&scores).Error; err != nil {
		return fmt.Errorf("failed to create demo scores: %w", err)
	}

	dataset.RowCount = len(records)
	dataset.PlayerCount = len(scores)
	if err := db.Save(dataset).Error; err != nil {
		return fmt.Errorf("failed to finalize demo dataset: %w", err)
	}

	logrus.Infof("Seeded demo dataset %s with %d records for %d players", dataset.PublicID, len(records), len(scores))
	return nil
}
