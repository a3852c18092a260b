package repository

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"entgo.io/ent/dialect"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/medical-docs/internal/core/index"
	"github.com/joseph-ayodele/medical-docs/internal/core/llm/mocks"
	"github.com/joseph-ayodele/medical-docs/internal/entity"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func sampleDoc(id, patient string) entity.IndexedDocument {
	return entity.IndexedDocument{
		ID:        id,
		Text:      "text for " + patient,
		Embedding: []float32{0.25, -1, 3.5},
		Record: entity.StructuredRecord{
			PatientName:  patient,
			Prescription: []entity.Medication{{MedicineName: "Aspirin", Dosage: "81mg"}},
			RecordType:   "prescription",
			DocumentType: "prescription",
		},
		IndexedAt: time.Date(2024, 3, 4, 5, 6, 7, 8, time.UTC),
	}
}

func newSQLiteStore(t *testing.T) *SQLIndexStore {
	t.Helper()
	db, err := OpenSQLite(":memory:", quiet)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store, err := NewSQLIndexStore(context.Background(), db, dialect.SQLite, quiet)
	require.NoError(t, err)
	return store
}

func TestSQLiteIndexStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)

	n, err := store.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.NoError(t, store.Append(ctx, sampleDoc("b", "Bob")))
	require.NoError(t, store.Append(ctx, sampleDoc("a", "Alice")))

	docs, err := store.All(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "b", docs[0].ID)
	assert.Equal(t, "a", docs[1].ID)
	assert.Equal(t, sampleDoc("b", "Bob"), docs[0])

	n, err = store.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, store.Reset(ctx))
	docs, err = store.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestSQLiteIndexStore_DuplicateIDRejected(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)
	require.NoError(t, store.Append(ctx, sampleDoc("same", "A")))
	assert.Error(t, store.Append(ctx, sampleDoc("same", "B")))
}

func TestSQLiteIndexStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := t.TempDir() + "/index.db"

	db, err := OpenSQLite(path, quiet)
	require.NoError(t, err)
	store, err := NewSQLIndexStore(ctx, db, dialect.SQLite, quiet)
	require.NoError(t, err)
	require.NoError(t, store.Append(ctx, sampleDoc("persisted", "Carol")))
	require.NoError(t, db.Close())

	db, err = OpenSQLite(path, quiet)
	require.NoError(t, err)
	defer db.Close()
	store, err = NewSQLIndexStore(ctx, db, dialect.SQLite, quiet)
	require.NoError(t, err)

	docs, err := store.All(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Carol", docs[0].Record.PatientName)
}

func TestSQLiteIndexStore_BacksSimilaritySearch(t *testing.T) {
	ctx := context.Background()
	svc := index.New(mocks.NewMockEmbedder(), newSQLiteStore(t), index.Config{}, quiet)

	_, err := svc.Index(ctx, "persistent cough and wheezing", entity.StructuredRecord{PatientName: "Dana"})
	require.NoError(t, err)
	_, err = svc.Index(ctx, "ankle sprain", entity.StructuredRecord{PatientName: "Eli"})
	require.NoError(t, err)

	matches, err := svc.Search(ctx, "cough", 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "Dana", matches[0].Document.Record.PatientName)
}

func TestPostgresIndexStore_Queries(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS indexed_documents")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	store, err := NewSQLIndexStore(ctx, db, dialect.Postgres, quiet)
	require.NoError(t, err)

	doc := sampleDoc("id-1", "Alice")
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "indexed_documents"`)).
		WithArgs("id-1", doc.Text, "[0.25,-1,3.5]", sqlmock.AnyArg(), doc.IndexedAt.UnixNano()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, store.Append(ctx, doc))

	rows := sqlmock.NewRows(indexColumns).
		AddRow("id-1", doc.Text, "[0.25,-1,3.5]", `{"patientName":"Alice","prescription":[]}`, doc.IndexedAt.UnixNano())
	mock.ExpectQuery(`SELECT .+ FROM "indexed_documents" ORDER BY "indexed_documents"\."seq"`).WillReturnRows(rows)
	docs, err := store.All(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Alice", docs[0].Record.PatientName)
	assert.Equal(t, []float32{0.25, -1, 3.5}, docs[0].Embedding)
	assert.True(t, doc.IndexedAt.Equal(docs[0].IndexedAt))

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM "indexed_documents"`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	n, err := store.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "indexed_documents"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, store.Reset(ctx))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewSQLIndexStore_UnknownDialect(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	_, err = NewSQLIndexStore(context.Background(), db, "mysql", quiet)
	assert.Error(t, err)
}
