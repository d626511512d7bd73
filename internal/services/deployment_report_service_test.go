package services

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"site-entry/internal/dto"
	"site-entry/internal/entities"
)

func TestDeploymentReportService_BuildXLSX(t *testing.T) {
	f := newFixture(t)
	first := f.seedDeployment(testNow.AddDate(0, 0, -5))
	second := f.seedDeployment(testNow)
	daily := 300.0
	dep := f.deployRepo.deployments[second]
	dep.Rates.Daily = &daily
	dep.SiteName = "Pier 4"
	f.deployRepo.deployments[second] = dep

	report := NewDeploymentReportService(f.deployments, zap.NewNop())
	file, err := report.BuildXLSX(bpCtx, dto.DeploymentListQuery{})
	require.NoError(t, err)
	defer file.Close()

	rows, err := file.GetRows(deploymentSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, deploymentReportHeaders, rows[0])

	// Newest start first.
	assert.Equal(t, strconv.FormatInt(second, 10), rows[1][0])
	assert.Equal(t, "Pier 4", rows[1][11])
	assert.Equal(t, "300", rows[1][13])
	assert.Equal(t, strconv.FormatInt(first, 10), rows[2][0])
	assert.Equal(t, string(entities.DeploymentActive), rows[2][10])
}

func TestDeploymentReportService_RespectsScope(t *testing.T) {
	f := newFixture(t)
	f.seedDeployment(testNow)

	report := NewDeploymentReportService(f.deployments, zap.NewNop())
	file, err := report.BuildXLSX(actorCtx(entities.RoleBP, 99, 50), dto.DeploymentListQuery{})
	require.NoError(t, err)
	defer file.Close()

	rows, err := file.GetRows(deploymentSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
