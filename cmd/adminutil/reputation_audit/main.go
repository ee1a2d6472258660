package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/acadswap/backend/internal/config"
	"github.com/acadswap/backend/internal/db"
)

// reputation_audit recomputes a user's reputation score from
// reputation_history and reports drift against users.reputation_score.
// History deltas are applied in order with the same zero floor the live
// handlers use. Pass -repair to write the recomputed score back.
//
// Usage:
//   go run cmd/adminutil/reputation_audit/main.go -email user@example.com [-repair]
func main() {
	email := flag.String("email", "", "Email of the user to audit")
	repair := flag.Bool("repair", false, "Write the recomputed score back when it drifts")
	flag.Parse()

	if *email == "" {
		log.Fatalf("usage: go run cmd/adminutil/reputation_audit/main.go -email user@example.com [-repair]")
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()

	var userID string
	var stored int
	err = pool.QueryRow(ctx,
		`SELECT id::text, COALESCE(reputation_score, 0) FROM users WHERE email = $1`, *email).
		Scan(&userID, &stored)
	if err != nil {
		log.Fatalf("no user found with email %s: %v", *email, err)
	}

	rows, err := pool.Query(ctx, `
        SELECT change_amount
        FROM reputation_history
        WHERE user_id = $1
        ORDER BY created_at ASC`, userID)
	if err != nil {
		log.Fatalf("failed to load reputation history: %v", err)
	}
	defer rows.Close()

	recomputed := 0
	events := 0
	for rows.Next() {
		var delta int
		if err := rows.Scan(&delta); err != nil {
			log.Fatalf("failed to read history row: %v", err)
		}
		recomputed += delta
		if recomputed < 0 {
			recomputed = 0
		}
		events++
	}
	if err := rows.Err(); err != nil {
		log.Fatalf("failed to read reputation history: %v", err)
	}

	fmt.Printf("User %s (%s)\n", *email, userID)
	fmt.Printf("  history events:    %d\n", events)
	fmt.Printf("  recomputed score:  %d\n", recomputed)
	fmt.Printf("  stored score:      %d\n", stored)

	if recomputed == stored {
		fmt.Println("  no drift detected.")
		return
	}

	fmt.Printf("  drift:             %+d\n", stored-recomputed)
	if !*repair {
		fmt.Println("  run with -repair to write the recomputed score back.")
		return
	}

	ct, err := pool.Exec(ctx,
		`UPDATE users SET reputation_score = $1 WHERE id = $2`, recomputed, userID)
	if err != nil {
		log.Fatalf("failed to repair score: %v", err)
	}
	if ct.RowsAffected() == 0 {
		log.Fatalf("user %s disappeared during repair", userID)
	}
	fmt.Printf("  repaired: reputation_score set to %d.\n", recomputed)
}
