package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Himanshu-Kasyap/openbiz-sub001/internal/domain"
)

func testSnapshot(source, domHash string) *domain.SchemaSnapshot {
	return &domain.SchemaSnapshot{
		Source:      source,
		Version:     "1.0.0",
		DOMHash:     domHash,
		FieldsFound: 2,
		Schema: &domain.FormSchema{
			Version:          "1.0.0",
			GeneratedAt:      time.Now().UTC(),
			SourceIdentifier: source,
			Metadata: domain.SchemaMetadata{
				TotalSteps:       1,
				TotalFields:      2,
				StepFieldCounts:  map[string]int{"step1": 2},
				StepDescriptions: map[string]string{"step1": "Aadhaar Number & OTP Verification"},
			},
			Steps: map[string][]domain.NormalizedField{
				"step1": {
					{ID: "txtadharno", Name: "txtadharno", Kind: domain.KindText, StepName: "step1", FieldCategory: domain.CategoryIdentityAadhaar, ValidationRules: []domain.ValidationRule{}},
					{ID: "txtownername", Name: "txtownername", Kind: domain.KindText, StepName: "step1", FieldIndex: 1, FieldCategory: domain.CategoryPersonalName, ValidationRules: []domain.ValidationRule{}},
				},
			},
			GlobalValidationRules: map[domain.FieldCategory]domain.ValidationRule{},
			FieldCategories: map[string][]string{
				"identity": {"step1.txtadharno"},
				"personal": {"step1.txtownername"},
			},
			Statistics: domain.SchemaStatistics{
				TotalFields:      2,
				FieldsByKind:     map[domain.FieldKind]int{domain.KindText: 2},
				FieldsByCategory: map[domain.FieldCategory]int{domain.CategoryIdentityAadhaar: 1, domain.CategoryPersonalName: 1},
				RulesByType:      map[domain.RuleType]int{},
			},
		},
	}
}

func TestSnapshotRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := SetupTestDB(t)
	defer testDB.Cleanup(t)

	db := sqlx.NewDb(testDB.DB, "postgres")
	repo := NewSnapshotRepository(db)
	ctx := context.Background()

	const source = "https://udyamregistration.gov.in/UdyamRegistration.aspx"

	t.Run("Create", func(t *testing.T) {
		testDB.TruncateTables(t)

		snapshot := testSnapshot(source, "abc123def4567890")
		err := repo.Create(ctx, snapshot)
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, snapshot.ID)
		assert.False(t, snapshot.CreatedAt.IsZero())

		fetched, err := repo.GetByID(ctx, snapshot.ID)
		require.NoError(t, err)
		assert.Equal(t, snapshot.Source, fetched.Source)
		assert.Equal(t, snapshot.DOMHash, fetched.DOMHash)
		assert.Equal(t, snapshot.FieldsFound, fetched.FieldsFound)
		require.NotNil(t, fetched.Schema)
		assert.Equal(t, 2, fetched.Schema.Statistics.TotalFields)
		assert.Len(t, fetched.Schema.Steps["step1"], 2)
	})

	t.Run("GetByID_NotFound", func(t *testing.T) {
		testDB.TruncateTables(t)

		_, err := repo.GetByID(ctx, uuid.New())
		require.Error(t, err)

		derr, ok := err.(*domain.DomainError)
		require.True(t, ok)
		assert.Equal(t, domain.ErrCodeNotFound, derr.Code)
	})

	t.Run("GetLatest", func(t *testing.T) {
		testDB.TruncateTables(t)

		older := testSnapshot(source, "older00000000000")
		require.NoError(t, repo.Create(ctx, older))

		time.Sleep(10 * time.Millisecond)

		newer := testSnapshot(source, "newer00000000000")
		require.NoError(t, repo.Create(ctx, newer))

		latest, err := repo.GetLatest(ctx, source)
		require.NoError(t, err)
		assert.Equal(t, newer.ID, latest.ID)
		assert.Equal(t, "newer00000000000", latest.DOMHash)
	})

	t.Run("GetLatest_NoSnapshots", func(t *testing.T) {
		testDB.TruncateTables(t)

		_, err := repo.GetLatest(ctx, source)
		require.Error(t, err)

		derr, ok := err.(*domain.DomainError)
		require.True(t, ok)
		assert.Equal(t, domain.ErrCodeNotFound, derr.Code)
	})

	t.Run("List", func(t *testing.T) {
		testDB.TruncateTables(t)

		for i := 0; i < 5; i++ {
			require.NoError(t, repo.Create(ctx, testSnapshot(source, "hash")))
			time.Sleep(5 * time.Millisecond)
		}
		require.NoError(t, repo.Create(ctx, testSnapshot("https://other.example", "hash")))

		snapshots, err := repo.List(ctx, source, 3)
		require.NoError(t, err)
		assert.Len(t, snapshots, 3)

		all, err := repo.List(ctx, source, 0)
		require.NoError(t, err)
		assert.Len(t, all, 5, "default limit applies and other sources are excluded")

		for i := 1; i < len(all); i++ {
			assert.False(t, all[i-1].CreatedAt.Before(all[i].CreatedAt), "newest first")
		}
	})

	t.Run("LatestDOMHash", func(t *testing.T) {
		testDB.TruncateTables(t)

		hash, err := repo.LatestDOMHash(ctx, source)
		require.NoError(t, err)
		assert.Empty(t, hash, "no snapshots yields empty hash, not an error")

		require.NoError(t, repo.Create(ctx, testSnapshot(source, "feedfacecafebeef")))

		hash, err = repo.LatestDOMHash(ctx, source)
		require.NoError(t, err)
		assert.Equal(t, "feedfacecafebeef", hash)
	})

	t.Run("DeleteOlderThan", func(t *testing.T) {
		testDB.TruncateTables(t)

		require.NoError(t, repo.Create(ctx, testSnapshot(source, "old0000000000000")))
		cutoff := time.Now().Add(time.Minute)

		deleted, err := repo.DeleteOlderThan(ctx, cutoff)
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted)

		_, err = repo.GetLatest(ctx, source)
		require.Error(t, err)
	})
}
