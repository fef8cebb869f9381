package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/convertfix/audit-service/internal/audit"
)

func testRecord() audit.CompletionRecord {
	return audit.CompletionRecord{
		JobID:       "job-1",
		URL:         "https://example.com",
		Email:       "founder@example.com",
		Tier:        audit.TierQuick,
		Score:       58,
		ReportURI:   "file:///reports/job-1/abc.pdf",
		CompletedAt: time.Unix(1700000000, 0).UTC(),
	}
}

func TestMemoryLedgerIdempotence(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	ctx := context.Background()

	done, err := m.Completed(ctx, "job-1")
	require.NoError(t, err)
	require.False(t, done)

	rec := testRecord()
	require.NoError(t, m.MarkCompleted(ctx, rec))

	done, err = m.Completed(ctx, "job-1")
	require.NoError(t, err)
	require.True(t, done)

	// Second mark keeps the first record.
	second := rec
	second.Score = 99
	require.NoError(t, m.MarkCompleted(ctx, second))
	stored, ok := m.Record("job-1")
	require.True(t, ok)
	require.Equal(t, 58, stored.Score)
}

func TestPostgresMarkCompletedInsertsRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	ledger, err := NewPostgresWithPool(mock, "audit_completions")
	require.NoError(t, err)

	rec := testRecord()
	mock.ExpectExec("INSERT INTO audit_completions").
		WithArgs(
			rec.JobID,
			rec.URL,
			rec.Email,
			string(rec.Tier),
			rec.Score,
			rec.ReportURI,
			rec.CompletedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, ledger.MarkCompleted(context.Background(), rec))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCompletedQueriesExistence(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	ledger, err := NewPostgresWithPool(mock, "audit_completions")
	require.NoError(t, err)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("job-1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	done, err := ledger.Completed(context.Background(), "job-1")
	require.NoError(t, err)
	require.True(t, done)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresValidatesInputs(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewPostgresWithPool(nil, "t")
	require.Error(t, err)

	_, err = NewPostgresWithPool(mock, "bad;table")
	require.Error(t, err)

	ledger, err := NewPostgresWithPool(mock, "")
	require.NoError(t, err)

	_, err = ledger.Completed(context.Background(), "")
	require.Error(t, err)

	err = ledger.MarkCompleted(context.Background(), audit.CompletionRecord{})
	require.Error(t, err)
}
