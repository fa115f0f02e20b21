package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"foodmap-api/internal/models"
	"foodmap-api/internal/pipeline"
)

type MockBatchGeocoder struct {
	mock.Mock
}

func (m *MockBatchGeocoder) Run(ctx context.Context, counts models.AddressCount) (map[string]*models.LatLon, error) {
	args := m.Called(ctx, counts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]*models.LatLon), args.Error(1)
}

type MockArtifactStore struct {
	mock.Mock
}

func (m *MockArtifactStore) SaveArtifact(ctx context.Context, art models.Artifact) error {
	args := m.Called(ctx, art)
	return args.Error(0)
}

func factoryFor(batch BatchGeocoder) BatchGeocoderFactory {
	return func(rps float64) (BatchGeocoder, error) {
		return batch, nil
	}
}

// One clean row, one missing zip, one PO Box.
const sampleCSV = `Street Address,City,State,Zip Code
123 Main St,Atlanta,GA,30303
456 Oak Ave,Atlanta,GA,
PO Box 12,Atlanta,GA,30303
`

func newTestFilter() *pipeline.AddressFilter {
	return pipeline.NewAddressFilter("GA", "Georgia")
}

func TestPipelineRun(t *testing.T) {
	mockBatch := new(MockBatchGeocoder)
	mockStore := new(MockArtifactStore)

	mockBatch.On("Run", mock.Anything, models.AddressCount{"123 Main St, Atlanta, GA 30303": 1}).
		Return(map[string]*models.LatLon{
			"123 Main St, Atlanta, GA 30303": {Lat: 33.7489954, Lon: -84.3879824},
		}, nil)
	mockStore.On("SaveArtifact", mock.Anything, mock.MatchedBy(func(art models.Artifact) bool {
		return art.KAnonymity == 5 && art.RPS == 2 && !art.CapPerAddress &&
			art.Body != nil && len(art.Body.Features) == 1
	})).Return(nil)

	svc := NewPipelineService(newTestFilter(), factoryFor(mockBatch), mockStore, 2)
	result, err := svc.Run(context.Background(), "upload.csv", sampleCSV, models.RunOptions{RPS: 2, KAnonymity: 5})
	require.NoError(t, err)

	assert.True(t, result.OK)
	assert.Equal(t, "upload.csv", result.Filename)
	assert.Equal(t, 1, result.UniqueAddresses)
	assert.Equal(t, 1, result.Geocoded)
	// A weight-1 bin is below k=5, so the output has no bins but the run
	// still succeeds.
	assert.Equal(t, 0, result.Bins)
	require.NotNil(t, result.KAnonymity)
	assert.Equal(t, 5, *result.KAnonymity)
	assert.Regexp(t, regexp.MustCompile(`^/data/heatmap-.+-k5-r2-cap0\.geojson$`), result.GeoJSONURL)

	mockBatch.AssertExpectations(t)
	mockStore.AssertExpectations(t)
}

func TestPipelineRun_NoThreshold(t *testing.T) {
	mockBatch := new(MockBatchGeocoder)
	mockStore := new(MockArtifactStore)

	mockBatch.On("Run", mock.Anything, mock.Anything).
		Return(map[string]*models.LatLon{
			"123 Main St, Atlanta, GA 30303": {Lat: 33.7489954, Lon: -84.3879824},
		}, nil)
	mockStore.On("SaveArtifact", mock.Anything, mock.Anything).Return(nil)

	svc := NewPipelineService(newTestFilter(), factoryFor(mockBatch), mockStore, 2)
	result, err := svc.Run(context.Background(), "upload.csv", sampleCSV, models.RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Bins)
	assert.Nil(t, result.KAnonymity)
}

func TestPipelineRun_FailedGeocodesAreSkipped(t *testing.T) {
	csv := `Street Address,City,Zip Code
123 Main St,Atlanta,30303
456 Oak Ave,Atlanta,30305
`
	mockBatch := new(MockBatchGeocoder)
	mockStore := new(MockArtifactStore)

	mockBatch.On("Run", mock.Anything, mock.Anything).
		Return(map[string]*models.LatLon{
			"123 Main St, Atlanta, GA 30303": {Lat: 33.7489954, Lon: -84.3879824},
			"456 Oak Ave, Atlanta, GA 30305": nil,
		}, nil)
	mockStore.On("SaveArtifact", mock.Anything, mock.Anything).Return(nil)

	svc := NewPipelineService(newTestFilter(), factoryFor(mockBatch), mockStore, 2)
	result, err := svc.Run(context.Background(), "upload.csv", csv, models.RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 2, result.UniqueAddresses)
	assert.Equal(t, 1, result.Geocoded)
	assert.Equal(t, 1, result.Bins)
}

func TestPipelineRun_CredentialCheckHappensFirst(t *testing.T) {
	credErr := errors.New("api key missing")
	factory := func(rps float64) (BatchGeocoder, error) {
		return nil, credErr
	}
	mockStore := new(MockArtifactStore)

	svc := NewPipelineService(newTestFilter(), factory, mockStore, 2)
	_, err := svc.Run(context.Background(), "upload.csv", sampleCSV, models.RunOptions{})
	assert.ErrorIs(t, err, credErr)
	mockStore.AssertNotCalled(t, "SaveArtifact", mock.Anything, mock.Anything)
}

func TestPipelineRun_StoreFailureSurfacesError(t *testing.T) {
	mockBatch := new(MockBatchGeocoder)
	mockStore := new(MockArtifactStore)

	mockBatch.On("Run", mock.Anything, mock.Anything).
		Return(map[string]*models.LatLon{}, nil)
	mockStore.On("SaveArtifact", mock.Anything, mock.Anything).Return(errors.New("db down"))

	svc := NewPipelineService(newTestFilter(), factoryFor(mockBatch), mockStore, 2)
	_, err := svc.Run(context.Background(), "upload.csv", sampleCSV, models.RunOptions{})
	assert.Error(t, err)
}

func TestPipelineRun_DefaultRPSApplied(t *testing.T) {
	var seenRPS float64
	factory := func(rps float64) (BatchGeocoder, error) {
		seenRPS = rps
		mockBatch := new(MockBatchGeocoder)
		mockBatch.On("Run", mock.Anything, mock.Anything).Return(map[string]*models.LatLon{}, nil)
		return mockBatch, nil
	}
	mockStore := new(MockArtifactStore)
	mockStore.On("SaveArtifact", mock.Anything, mock.Anything).Return(nil)

	svc := NewPipelineService(newTestFilter(), factory, mockStore, 3)
	_, err := svc.Run(context.Background(), "upload.csv", sampleCSV, models.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3.0, seenRPS)
}

func TestDryRun(t *testing.T) {
	svc := NewPipelineService(newTestFilter(), nil, nil, 2)

	result := svc.DryRun("upload.csv", sampleCSV)
	assert.True(t, result.OK)
	assert.Equal(t, "upload.csv", result.Filename)
	assert.Equal(t, 3, result.TotalRows)
	assert.Equal(t, 1, result.KeptRows)
	assert.Equal(t, 2, result.DroppedRows)
	assert.Equal(t, 0, result.DuplicateRows)
	assert.Equal(t, 1, result.UniqueToSend)
	require.Len(t, result.Sample, 1)
	assert.Equal(t, "123 Main St, Atlanta, GA 30303", result.Sample[0].Address)
	assert.Equal(t, 1, result.Sample[0].Count)
}

func TestDryRun_Duplicates(t *testing.T) {
	csv := `Street Address,City,Zip Code
123 Main St,Atlanta,30303
123 Main St,Atlanta,30303
456 Oak Ave,Atlanta,30305
`
	svc := NewPipelineService(newTestFilter(), nil, nil, 2)

	result := svc.DryRun("upload.csv", csv)
	assert.Equal(t, 3, result.KeptRows)
	assert.Equal(t, 1, result.DuplicateRows)
	assert.Equal(t, 2, result.UniqueToSend)
	// Highest count first, then address order.
	require.Len(t, result.Sample, 2)
	assert.Equal(t, "123 Main St, Atlanta, GA 30303", result.Sample[0].Address)
	assert.Equal(t, 2, result.Sample[0].Count)
}

func TestArtifactName(t *testing.T) {
	ts := time.Date(2025, 10, 12, 4, 4, 48, 925_000_000, time.UTC)

	assert.Equal(t, "heatmap-2025-10-12T04-04-48-925Z-k5-r2-cap1.geojson", artifactName(ts, 5, 2, true))
	assert.Equal(t, "heatmap-2025-10-12T04-04-48-925Z-k0-r0.5-cap0.geojson", artifactName(ts, 0, 0.5, false))
}
