package main

import (
	"context"
	"flag"
	"log"

	"site-entry/pkg/config"
	"site-entry/pkg/database/migrations"
	"site-entry/pkg/database/postgresql"
	applogger "site-entry/pkg/logger"
	"site-entry/pkg/service"
	"site-entry/seeders"
)

func main() {
	log.Println("======================================================")
	log.Println("               🌱 database seeders                    ")
	log.Println("======================================================")

	runCore := flag.Bool("core", false, "seed classification types and mandatory document rules")
	runDemo := flag.Bool("demo", false, "seed demo companies, users, equipment and workers")
	runTokens := flag.Bool("tokens", false, "print access tokens for the demo users")
	runAll := flag.Bool("all", false, "run every seeder (same as -core -demo -tokens)")

	flag.Parse()

	if !*runCore && !*runDemo && !*runTokens && !*runAll {
		log.Println("❌ no seeder selected.")
		log.Println("")
		log.Println("flags:")
		flag.PrintDefaults()
		log.Println("")
		log.Println("examples:")
		log.Println("  go run ./seeders/cmd/seed -core")
		log.Println("  go run ./seeders/cmd/seed -all")
		log.Println("======================================================")
		return
	}

	cfg := config.New()
	logger := applogger.NewLogger(cfg.LogLevel)
	ctx := context.Background()

	if *runAll || *runCore || *runDemo {
		dbPool, err := postgresql.ConnectDB(ctx, cfg.Postgres, logger)
		if err != nil {
			log.Fatalf("❌ %v", err)
		}
		defer dbPool.Close()

		if err := migrations.Up(ctx, dbPool, logger); err != nil {
			log.Fatalf("❌ %v", err)
		}
		log.Println("======================================================")

		if *runAll || *runCore {
			seeders.SeedDictionaries(dbPool)
			log.Println("======================================================")
		}
		if *runAll || *runDemo {
			// demo resources reference the dictionaries
			seeders.SeedDemo(dbPool)
			log.Println("======================================================")
		}
	}

	if *runAll || *runTokens {
		jwtSvc := service.NewJWTService(cfg.JWT.SecretKey, cfg.JWT.AccessTokenTTL, cfg.JWT.RefreshTokenTTL, logger)
		lines, err := seeders.DemoTokens(jwtSvc)
		if err != nil {
			log.Fatalf("❌ %v", err)
		}
		log.Println("🔑 demo access tokens:")
		for _, l := range lines {
			log.Println("  " + l)
		}
		log.Println("======================================================")
	}

	log.Println("✅ seeding finished")
}
