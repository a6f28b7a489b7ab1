package main

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/savannahealth/mamatoto/config"
	"github.com/savannahealth/mamatoto/pkg/helpers"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := sql.Open("pgx", cfg.PostgresDSN())
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	defer func() { _ = db.Close() }()

	// Demo facility first so user seed has a valid KMHFL code.
	kmhflCode := "13023"
	if _, err := db.Exec(`
		INSERT INTO facilities (kmhfl_code, name, county)
		VALUES ($1, $2, $3)
		ON CONFLICT (kmhfl_code) DO UPDATE SET name = EXCLUDED.name, updated_at = now()
	`, kmhflCode, "Mama Lucy Kibaki Hospital", "Nairobi"); err != nil {
		log.Fatalf("failed to seed facility: %v", err)
	}
	fmt.Printf("seeded facility: kmhfl_code=%s\n", kmhflCode)

	email := "admin@mamatoto.local"
	password := "password123"
	names := "System Administrator"
	hash, err := helpers.HashPassword(password)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	var id string
	err = db.QueryRow(`
		INSERT INTO users (email, names, role, password, verified, data)
		VALUES ($1, $2, 'ADMINISTRATOR', $3, true, '{}')
		ON CONFLICT (email) DO UPDATE SET names = EXCLUDED.names, updated_at = now()
		RETURNING id
	`, email, names, hash).Scan(&id)
	if err != nil {
		log.Fatalf("failed to seed user: %v", err)
	}
	fmt.Printf("seeded user: id=%s email=%s password=%s\n", id, email, password)
}
