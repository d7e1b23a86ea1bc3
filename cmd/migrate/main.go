package main

import (
	"log"

	"placarcerto-be/internal/config"
	"placarcerto-be/internal/model"
	"placarcerto-be/pkg/database"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()
	if cfg.Database.Connection == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	// 2. Connect to Database using existing GORM helpers
	db, err := database.NewGormDBFromDSN(cfg.Database.Connection, true)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Starting GORM Migration...")

	// 3. Pre-Migration: Extensions
	log.Println("Step 1: Setting up Extensions...")
	setupSQL := []string{
		`CREATE EXTENSION IF NOT EXISTS pgcrypto;`,
	}
	for _, sql := range setupSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute setup SQL: %v. Continuing...", err)
		}
	}

	// 4. AutoMigrate
	log.Println("Step 2: Running AutoMigrate...")
	models := []interface{}{
		&model.User{},
		&model.Subscription{},
		&model.Payment{},
	}
	if err := db.AutoMigrate(models...); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	// 5. Post-Migration: constraints AutoMigrate cannot express
	log.Println("Step 3: Creating partial indexes and views...")
	postMigrationSQL := []string{
		// At most one live paid subscription per user. Freemium rows are exempt.
		`CREATE UNIQUE INDEX IF NOT EXISTS uniq_active_subscription_per_user
		 ON subscriptions (user_id)
		 WHERE status = 'active' AND plan_slug <> 'freemium';`,

		`CREATE INDEX IF NOT EXISTS idx_payments_pending_created
		 ON payments (created_at)
		 WHERE status = 'pending';`,

		// View: user_payment_history
		`CREATE OR REPLACE VIEW user_payment_history AS
		 SELECT p.user_id, u.email, s.plan_slug, p.amount, p.currency, p.status,
		        p.transaction_reference, p.provider_id, p.created_at AS payment_date
		 FROM payments p
		 JOIN users u ON p.user_id = u.id
		 LEFT JOIN subscriptions s ON p.subscription_id = s.id
		 ORDER BY p.created_at DESC;`,
	}
	for _, sql := range postMigrationSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Fatalf("Error: Failed to execute post-migration SQL: %v", err)
		}
	}

	log.Println("✅ Success: Database migration completed successfully via GORM.")
}
