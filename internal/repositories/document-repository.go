package repositories

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"site-entry/internal/entities"
)

// DocumentRepositoryInterface is the compliance document store: mandatory
// document rules per classification and uploaded credentials per target.
type DocumentRepositoryInterface interface {
	ListMandatoryDocs(ctx context.Context, targetType entities.TargetType, classificationIDs []int64) ([]entities.RequiredDocumentRule, error)
	ListUploadedDocs(ctx context.Context, targetType entities.TargetType, targetIDs []int64) ([]entities.ComplianceDocument, error)
}

type documentRepository struct {
	storage *pgxpool.Pool
}

func NewDocumentRepository(storage *pgxpool.Pool) DocumentRepositoryInterface {
	return &documentRepository{storage: storage}
}

func (r *documentRepository) ListMandatoryDocs(ctx context.Context, targetType entities.TargetType, classificationIDs []int64) ([]entities.RequiredDocumentRule, error) {
	rules := make([]entities.RequiredDocumentRule, 0)
	if len(classificationIDs) == 0 {
		return rules, nil
	}

	query, args, err := psql.Select("target_type", "classification_id", "doc_name", "is_mandatory").
		From("required_documents").
		Where(sq.Eq{"target_type": string(targetType), "classification_id": classificationIDs, "is_mandatory": true}).
		OrderBy("classification_id", "doc_name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build mandatory docs query: %w", err)
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch mandatory documents: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rule entities.RequiredDocumentRule
		var tt string
		if err := rows.Scan(&tt, &rule.ClassificationID, &rule.DocName, &rule.IsMandatory); err != nil {
			return nil, fmt.Errorf("failed to scan required document: %w", err)
		}
		if rule.TargetType, err = entities.ParseTargetType(tt); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func (r *documentRepository) ListUploadedDocs(ctx context.Context, targetType entities.TargetType, targetIDs []int64) ([]entities.ComplianceDocument, error) {
	docs := make([]entities.ComplianceDocument, 0)
	if len(targetIDs) == 0 {
		return docs, nil
	}

	query, args, err := psql.Select("target_type", "target_id", "doc_type", "file_url", "expiry_date").
		From("compliance_documents").
		Where(sq.Eq{"target_type": string(targetType), "target_id": targetIDs}).
		OrderBy("target_id", "doc_type", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build uploaded docs query: %w", err)
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch uploaded documents: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var d entities.ComplianceDocument
		var tt string
		if err := rows.Scan(&tt, &d.TargetID, &d.DocType, &d.FileURL, &d.ExpiryDate); err != nil {
			return nil, fmt.Errorf("failed to scan compliance document: %w", err)
		}
		if d.TargetType, err = entities.ParseTargetType(tt); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}
