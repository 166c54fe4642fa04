package backup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flowoff/assistente/internal/database/testutil"
	"github.com/flowoff/assistente/internal/models"
)

func TestLedgerRecordListAndPrune(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate(), testutil.WithFile())
	ledger := NewLedger(db)
	ctx := context.Background()

	older := Artifact{Kind: models.ArtifactKindDatabase, Name: DatabaseArtifactName(fixedNow.Add(-time.Hour)), Path: "/b/1", SizeBytes: 10, CreatedAt: fixedNow.Add(-time.Hour)}
	newer := Artifact{Kind: models.ArtifactKindFiles, Name: FilesArtifactName(fixedNow), Path: "/b/2", SizeBytes: 20, CreatedAt: fixedNow}
	require.NoError(t, ledger.Record(ctx, older))
	require.NoError(t, ledger.Record(ctx, newer))

	older.SizeBytes = 15
	require.NoError(t, ledger.Record(ctx, older))

	rows, err := ledger.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, newer.Name, rows[0].Name)
	require.Equal(t, int64(15), rows[1].SizeBytes)

	rows, err = ledger.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	require.NoError(t, ledger.MarkPruned(ctx, []string{older.Name}, fixedNow))
	rows, err = ledger.List(ctx, 0)
	require.NoError(t, err)
	require.Nil(t, rows[0].PrunedAt)
	require.NotNil(t, rows[1].PrunedAt)
}

func TestNilLedgerIsNoop(t *testing.T) {
	var ledger *Ledger
	require.Nil(t, NewLedger(nil))
	require.NoError(t, ledger.Record(context.Background(), Artifact{}))
	require.NoError(t, ledger.MarkPruned(context.Background(), []string{"x"}, time.Now()))
	_, err := ledger.List(context.Background(), 0)
	require.Error(t, err)
}

func TestLedgerRecordUpsertsByName(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	ledger := NewLedger(db)
	ctx := context.Background()

	artifact := Artifact{Kind: models.ArtifactKindDatabase, Name: DatabaseArtifactName(fixedNow), Path: "/old/place", SizeBytes: 1, CreatedAt: fixedNow}
	require.NoError(t, ledger.Record(ctx, artifact))

	rows, err := ledger.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	firstID := rows[0].ID

	artifact.Path = "/new/place"
	artifact.SizeBytes = 99
	artifact.CreatedAt = fixedNow.Add(time.Hour)
	require.NoError(t, ledger.Record(ctx, artifact))

	rows, err = ledger.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, firstID, rows[0].ID)
	require.Equal(t, "/new/place", rows[0].Path)
	require.Equal(t, int64(99), rows[0].SizeBytes)
	require.True(t, rows[0].CreatedAt.Equal(fixedNow), "created_at moved to %s", rows[0].CreatedAt)
}
