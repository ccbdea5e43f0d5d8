package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/licitabot/backend/internal/config"
	"github.com/licitabot/backend/internal/db"
	"github.com/licitabot/backend/internal/importer"
	"github.com/licitabot/backend/internal/models"
)

func main() {
	var (
		month       = flag.String("month", previousMonth(), "archive month to import (YYYY-MM)")
		force       = flag.Bool("force", false, "re-import even when rows for the month already exist")
		partition   = flag.Bool("partition", false, "convert historical_bids to a range-partitioned table instead of importing")
		confirmDrop = flag.Bool("confirm-drop", false, "drop the flat table after a successful partition copy")
	)
	flag.Parse()

	log.Println("Starting manual historical import...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	conn, dialect, err := db.Connect(cfg)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	if err := db.Migrate(conn, dialect); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	ctx := context.Background()

	if *partition {
		if err := db.PartitionHistoricalBids(conn, dialect, *confirmDrop); err != nil {
			log.Fatalf("partition migration failed: %v", err)
		}
		log.Println("Partition migration completed successfully.")
		return
	}

	imp := importer.New(conn, dialect, cfg)
	result, err := imp.Import(ctx, *month, *force)
	if err != nil {
		log.Fatalf("import of %s failed: %v", *month, err)
	}
	if result.Cancelled {
		log.Printf("Import of %s cancelled: rows already present (use -force to override)", *month)
		return
	}

	var total int64
	if err := conn.Model(&models.HistoricalBid{}).Count(&total).Error; err == nil {
		log.Printf("Historical bids stored: %d", total)
	} else {
		log.Printf("Failed to count historical bids: %v", err)
	}

	log.Printf("Import of %s completed: %d inserted, %d skipped in %s.",
		result.Month, result.Inserted, result.Skipped, result.Duration.Round(time.Second))
}

// previousMonth is the default import target: the newest finished month.
func previousMonth() string {
	return time.Now().AddDate(0, -1, 0).Format("2006-01")
}
