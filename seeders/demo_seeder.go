package seeders

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"site-entry/internal/entities"
)

// The demo rows use fixed ids so tokens printed by the seeder stay valid
// across re-runs.
func seedDemoCompanies(ctx context.Context, tx pgx.Tx) error {
	log.Println("  - seeding 'companies' and 'users'...")

	for _, c := range demoCompaniesData {
		if _, err := tx.Exec(ctx,
			`INSERT INTO companies (id, name, kind) VALUES ($1, $2, $3) ON CONFLICT (id) DO NOTHING`,
			c.ID, c.Name, string(c.Kind)); err != nil {
			return err
		}
	}
	for _, u := range demoUsersData {
		var companyID *int64
		if u.CompanyID != 0 {
			id := u.CompanyID
			companyID = &id
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO users (id, company_id, role, name) VALUES ($1, $2, $3, $4) ON CONFLICT (id) DO NOTHING`,
			u.ID, companyID, string(u.Role), u.Name); err != nil {
			return err
		}
	}
	return nil
}

func seedDemoResources(ctx context.Context, tx pgx.Tx, ownerCompanyID int64) error {
	log.Println("  - seeding 'equipment', 'workers' and 'compliance_documents'...")

	expiry := time.Now().UTC().AddDate(0, 0, demoDocumentsValidFor)

	for _, eq := range demoEquipmentData {
		typeID, err := classificationTypeID(ctx, tx, entities.TargetEquipment, eq.TypeName)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO equipment (id, owner_company_id, equipment_type_id, name) VALUES ($1, $2, $3, $4) ON CONFLICT (id) DO NOTHING`,
			eq.ID, ownerCompanyID, typeID, eq.Name); err != nil {
			return err
		}
		if err := seedDocumentsFor(ctx, tx, entities.TargetEquipment, eq.ID, typeID, expiry); err != nil {
			return err
		}
	}

	for _, w := range demoWorkersData {
		typeID, err := classificationTypeID(ctx, tx, entities.TargetWorker, w.TypeName)
		if err != nil {
			return err
		}
		var userID *int64
		if w.UserID != 0 {
			id := w.UserID
			userID = &id
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO workers (id, owner_company_id, worker_type_id, user_id, name) VALUES ($1, $2, $3, $4, $5) ON CONFLICT (id) DO NOTHING`,
			w.ID, ownerCompanyID, typeID, userID, w.Name); err != nil {
			return err
		}
		if err := seedDocumentsFor(ctx, tx, entities.TargetWorker, w.ID, typeID, expiry); err != nil {
			return err
		}
	}
	return nil
}

// seedDocumentsFor uploads one valid document per mandatory rule that the
// target does not have yet.
func seedDocumentsFor(ctx context.Context, tx pgx.Tx, targetType entities.TargetType, targetID, classificationID int64, expiry time.Time) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO compliance_documents (target_type, target_id, doc_type, file_url, expiry_date)
		SELECT rd.target_type, $2, rd.doc_name, '/uploads/demo/' || rd.doc_name || '.pdf', $4
		FROM required_documents rd
		WHERE rd.target_type = $1 AND rd.classification_id = $3 AND rd.is_mandatory
		  AND NOT EXISTS (
			SELECT 1 FROM compliance_documents cd
			WHERE cd.target_type = rd.target_type AND cd.target_id = $2 AND cd.doc_type = rd.doc_name
		  )`,
		string(targetType), targetID, classificationID, expiry)
	return err
}

// resetSequences moves serial counters past the fixed demo ids.
func resetSequences(ctx context.Context, tx pgx.Tx) error {
	for _, table := range []string{"companies", "users", "equipment", "workers"} {
		if _, err := tx.Exec(ctx,
			"SELECT setval(pg_get_serial_sequence($1, 'id'), GREATEST((SELECT COALESCE(MAX(id), 1) FROM "+table+"), 1))",
			table); err != nil {
			return err
		}
	}
	return nil
}

func seedDemo(ctx context.Context, db *pgxpool.Pool) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := seedDemoCompanies(ctx, tx); err != nil {
		return err
	}
	if err := seedDemoResources(ctx, tx, demoCompaniesData[0].ID); err != nil {
		return err
	}
	if err := resetSequences(ctx, tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
