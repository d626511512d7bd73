package seeders

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"site-entry/internal/entities"
)

// fullSyncDictionaries wipes the type tables before seeding when true;
// otherwise only missing rows are added.
const fullSyncDictionaries = false

func seedClassificationTypes(ctx context.Context, db *pgxpool.Pool) error {
	log.Println("  - seeding 'equipment_types' and 'worker_types'...")

	tx, err := db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if fullSyncDictionaries {
		log.Println("    - strategy: full rewrite (TRUNCATE)")
		if _, err := tx.Exec(ctx, "TRUNCATE TABLE required_documents, equipment_types, worker_types RESTART IDENTITY CASCADE"); err != nil {
			return err
		}
	}

	for _, name := range equipmentTypesData {
		if _, err := tx.Exec(ctx, `INSERT INTO equipment_types (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, name); err != nil {
			return err
		}
	}
	for _, name := range workerTypesData {
		if _, err := tx.Exec(ctx, `INSERT INTO worker_types (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, name); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func seedRequiredDocuments(ctx context.Context, db *pgxpool.Pool) error {
	log.Println("  - seeding 'required_documents'...")

	tx, err := db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `INSERT INTO required_documents (target_type, classification_id, doc_name, is_mandatory)
			  VALUES ($1, $2, $3, TRUE)
			  ON CONFLICT (target_type, classification_id, doc_name) DO NOTHING`

	for _, rule := range requiredDocumentsData {
		typeID, err := classificationTypeID(ctx, tx, rule.TargetType, rule.TypeName)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, query, string(rule.TargetType), typeID, rule.DocName); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func classificationTypeID(ctx context.Context, tx pgx.Tx, targetType entities.TargetType, name string) (int64, error) {
	table := "equipment_types"
	if targetType == entities.TargetWorker {
		table = "worker_types"
	}
	var id int64
	if err := tx.QueryRow(ctx, "SELECT id FROM "+table+" WHERE name = $1", name).Scan(&id); err != nil {
		return 0, fmt.Errorf("type %q not found in %s: %w", name, table, err)
	}
	return id, nil
}
