package services

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"site-entry/internal/dto"
	"site-entry/internal/entities"
)

const (
	deploymentSheet     = "Deployments"
	exportPageSize      = 500
	maxExportDeployment = 20000
)

var deploymentReportHeaders = []string{
	"ID", "Entry request", "Equipment", "Worker", "Owner company", "BP company", "EP company",
	"Start", "Planned end", "Actual end", "Status", "Site", "Work", "Daily rate", "Overtime rate", "Monthly rate",
}

type DeploymentReportServiceInterface interface {
	BuildXLSX(ctx context.Context, q dto.DeploymentListQuery) (*excelize.File, error)
}

type DeploymentReportService struct {
	deployments DeploymentServiceInterface
	logger      *zap.Logger
}

func NewDeploymentReportService(deployments DeploymentServiceInterface, logger *zap.Logger) *DeploymentReportService {
	return &DeploymentReportService{deployments: deployments, logger: logger}
}

// BuildXLSX exports every deployment the caller can see under the filter.
func (s *DeploymentReportService) BuildXLSX(ctx context.Context, q dto.DeploymentListQuery) (*excelize.File, error) {
	rows := make([]*entities.Deployment, 0)
	q.Limit, q.Offset = exportPageSize, 0
	for {
		page, total, err := s.deployments.List(ctx, q)
		if err != nil {
			return nil, err
		}
		rows = append(rows, page...)
		if len(page) == 0 || uint64(len(rows)) >= total || len(rows) >= maxExportDeployment {
			break
		}
		q.Offset += exportPageSize
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", deploymentSheet); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(deploymentSheet, "A1", &deploymentReportHeaders); err != nil {
		return nil, err
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(deploymentReportHeaders), 1)
	if err := f.SetCellStyle(deploymentSheet, "A1", lastHeader, style); err != nil {
		return nil, err
	}

	for i, d := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := deploymentRow(d)
		if err := f.SetSheetRow(deploymentSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}
	_ = f.SetColWidth(deploymentSheet, "H", "J", 14)
	_ = f.SetColWidth(deploymentSheet, "L", "M", 30)

	s.logger.Info("deployment export built", zap.Int("rows", len(rows)))
	return f, nil
}

func deploymentRow(d *entities.Deployment) []interface{} {
	const dateFmt = "2006-01-02"
	optInt := func(v *int64) interface{} {
		if v == nil {
			return ""
		}
		return *v
	}
	optFloat := func(v *float64) interface{} {
		if v == nil {
			return ""
		}
		return *v
	}
	actualEnd := ""
	if d.ActualEndDate != nil {
		actualEnd = d.ActualEndDate.Format(dateFmt)
	}
	return []interface{}{
		d.ID, d.EntryRequestID, d.EquipmentID, optInt(d.WorkerID), d.OwnerID, d.BpCompanyID, optInt(d.EpCompanyID),
		d.StartDate.Format(dateFmt), d.PlannedEndDate.Format(dateFmt), actualEnd, string(d.Status),
		d.SiteName, d.WorkDescription, optFloat(d.Rates.Daily), optFloat(d.Rates.Overtime), optFloat(d.Rates.Monthly),
	}
}
