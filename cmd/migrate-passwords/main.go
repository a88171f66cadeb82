// Migration script to hash plaintext passwords left in admin_users and reviewers
// cmd/migrate-passwords/main.go
package main

import (
	"log"

	"paper-submission-api/config"
	"paper-submission-api/models"
	"paper-submission-api/utils"

	"gorm.io/gorm"
)

type account struct {
	ID       string
	Username string
	Password string
}

func main() {
	settings, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := config.InitLogger(settings)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	db, err := config.InitDB(settings, logger)
	if err != nil {
		log.Fatalf("database: %v", err)
	}

	migrated := migrateTable(db, models.AdminUser{}.TableName())
	migrated += migrateTable(db, models.Reviewer{}.TableName())

	log.Printf("Password migration completed! %d account(s) updated", migrated)
}

func migrateTable(db *gorm.DB, table string) int {
	var rows []account
	if err := db.Table(table).Select("id, username, password").Find(&rows).Error; err != nil {
		log.Fatalf("Failed to fetch %s: %v", table, err)
	}

	updated := 0
	for _, row := range rows {
		// Skip if already hashed
		if utils.IsBcryptHash(row.Password) {
			log.Printf("%s %s already has hashed password, skipping", table, row.Username)
			continue
		}

		hashed, err := utils.HashPassword(row.Password)
		if err != nil {
			log.Printf("Failed to hash password for %s %s: %v", table, row.Username, err)
			continue
		}

		if err := db.Table(table).Where("id = ?", row.ID).Update("password", hashed).Error; err != nil {
			log.Printf("Failed to update password for %s %s: %v", table, row.Username, err)
			continue
		}

		log.Printf("Successfully updated password for %s %s", table, row.Username)
		updated++
	}
	return updated
}
