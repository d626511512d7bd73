package seeders

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"site-entry/internal/entities"
	"site-entry/pkg/service"
)

// SeedDictionaries fills the classification types and the mandatory
// document rules. Safe to repeat.
func SeedDictionaries(db *pgxpool.Pool) {
	ctx := context.Background()
	log.Println("▶️  seeding dictionaries...")

	if err := seedClassificationTypes(ctx, db); err != nil {
		log.Fatalf("❌ failed to seed classification types: %v", err)
	}
	if err := seedRequiredDocuments(ctx, db); err != nil {
		log.Fatalf("❌ failed to seed required documents: %v", err)
	}
	log.Println("✅ dictionaries seeded")
}

// SeedDemo creates one owner, BP and EP company with users, equipment and
// workers whose documents are all valid. Requires SeedDictionaries.
func SeedDemo(db *pgxpool.Pool) {
	ctx := context.Background()
	log.Println("▶️  seeding demo companies and resources...")

	if err := seedDemo(ctx, db); err != nil {
		log.Fatalf("❌ failed to seed demo data: %v", err)
	}
	log.Println("✅ demo data seeded")
}

// DemoTokens mints an access token for every demo user.
func DemoTokens(jwtSvc service.JWTService) ([]string, error) {
	lines := make([]string, 0, len(demoUsersData))
	for _, u := range demoUsersData {
		access, _, err := jwtSvc.GenerateTokens(entities.Actor{UserID: u.ID, Role: u.Role, CompanyID: u.CompanyID})
		if err != nil {
			return nil, fmt.Errorf("token for user %d: %w", u.ID, err)
		}
		lines = append(lines, fmt.Sprintf("%-6s %-18s %s", u.Role, u.Name, access))
	}
	return lines, nil
}
