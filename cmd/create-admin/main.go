// Provisions a super_admin account.
// Usage: go run ./cmd/create-admin -username chair -name "Program Chair" -email chair@example.org
// The password is read from ADMIN_PASSWORD, or generated and printed once.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"paper-submission-api/config"
	"paper-submission-api/models"
	"paper-submission-api/services"
	"paper-submission-api/utils"

	"github.com/google/uuid"
)

func main() {
	username := flag.String("username", os.Getenv("ADMIN_USERNAME"), "login name")
	name := flag.String("name", os.Getenv("ADMIN_NAME"), "display name")
	email := flag.String("email", os.Getenv("ADMIN_EMAIL"), "contact email")
	flag.Parse()

	log.Println("🔐 Provisioning admin account...")

	settings, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if settings.DBDriver == "memory" {
		log.Fatal("DB_DRIVER=memory has nothing to provision; point the command at mysql or postgres")
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
	if settings.DBAutoMigrate {
		if err := models.AutoMigrate(db); err != nil {
			log.Fatalf("migrate: %v", err)
		}
	}
	repo := services.NewGormRepository(db)

	login := strings.ToLower(utils.SanitizeInput(*username))
	if !utils.ValidateUsername(login) {
		log.Fatalf("invalid username %q", login)
	}
	if *email != "" && !utils.ValidateEmail(*email) {
		log.Fatalf("invalid email %q", *email)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := repo.FindAdminByUsername(ctx, login); err == nil {
		log.Fatalf("admin %q already exists", login)
	} else if !errors.Is(err, services.ErrAdminNotFound) {
		log.Fatalf("lookup admin: %v", err)
	}
	if _, err := repo.FindReviewerByUsername(ctx, login); err == nil {
		log.Fatalf("username %q belongs to a reviewer", login)
	}

	password := os.Getenv("ADMIN_PASSWORD")
	generated := password == ""
	if generated {
		if password, err = utils.GeneratePassword(16); err != nil {
			log.Fatalf("generate password: %v", err)
		}
	} else if ok, msg := utils.ValidatePassword(password); !ok {
		log.Fatal(msg)
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	now := time.Now()
	admin := &models.AdminUser{
		ID:           uuid.NewString(),
		Name:         utils.SanitizeInput(*name),
		Email:        strings.ToLower(strings.TrimSpace(*email)),
		Username:     login,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if admin.Name == "" {
		admin.Name = login
	}
	if err := repo.InsertAdmin(ctx, admin); err != nil {
		log.Fatalf("❌ insert admin: %v", err)
	}

	log.Printf("✅ Admin %s created (id %s)", admin.Username, admin.ID)
	if generated {
		log.Printf("Generated password: %s", password)
	}
}
