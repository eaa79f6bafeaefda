package attendance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"beaconattend/internal/apperr"
	"beaconattend/internal/directory"
)

func seed(t *testing.T, repo *directory.MemoryRepository, kind directory.Kind, name, beacon string) *directory.Identity {
	t.Helper()
	ident := &directory.Identity{Kind: kind, Name: name, Email: name + "@school.test", BeaconID: beacon}
	require.NoError(t, repo.Create(context.Background(), ident))
	return ident
}

func newTestService(t *testing.T) (*Service, *directory.MemoryRepository, *MemoryLedger) {
	t.Helper()
	repo := directory.NewMemoryRepository()
	ledger := NewMemoryLedger()
	return NewService(repo, ledger, zerolog.Nop()), repo, ledger
}

func ledgerCount(t *testing.T, l Ledger) int {
	t.Helper()
	n, err := l.Count(context.Background())
	require.NoError(t, err)
	return n
}

func TestMarkAttendanceScenario(t *testing.T) {
	svc, repo, ledger := newTestService(t)
	seed(t, repo, directory.KindStudent, "Jane", "AA:BB:CC:DD:EE:FF")

	res, err := svc.MarkAttendance(context.Background(), []string{"AA:BB:CC:DD:EE:FF", "00:11:22:33:44:55"})
	require.NoError(t, err)
	require.Equal(t, MarkResult{
		MatchedCount: 1,
		Matched:      []MatchedIdentity{{DisplayName: "Jane", BeaconID: "AA:BB:CC:DD:EE:FF"}},
	}, res)
	require.Equal(t, 1, ledgerCount(t, ledger))
}

func TestMarkAttendanceNoKnownIdentifiers(t *testing.T) {
	tests := []struct {
		name  string
		input []string
	}{
		{"empty", []string{}},
		{"unknown", []string{"00:00:00:00:00:01", "00:00:00:00:00:02"}},
		{"unknown repeated", []string{"00:00:00:00:00:01", "00:00:00:00:00:01"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, ledger := newTestService(t)
			seed(t, repo, directory.KindStudent, "Jane", "AA:BB:CC:DD:EE:FF")

			res, err := svc.MarkAttendance(context.Background(), tt.input)
			require.NoError(t, err)
			require.Equal(t, 0, res.MatchedCount)
			require.Empty(t, res.Matched)
			require.NotNil(t, res.Matched)
			require.Equal(t, 0, ledgerCount(t, ledger))
		})
	}
}

func TestMarkAttendanceTwoKnownIdentities(t *testing.T) {
	svc, repo, ledger := newTestService(t)
	a := seed(t, repo, directory.KindStudent, "Alice", "AA")
	b := seed(t, repo, directory.KindStudent, "Bob", "BB")

	res, err := svc.MarkAttendance(context.Background(), []string{"AA", "BB"})
	require.NoError(t, err)
	require.Equal(t, 2, res.MatchedCount)
	require.Len(t, res.Matched, 2)

	entries, err := ledger.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	names := map[string]string{}
	for _, e := range entries {
		names[e.IdentityID] = e.CapturedName
		require.False(t, e.CapturedAt.IsZero())
		require.NotEmpty(t, e.ID)
	}
	require.Equal(t, map[string]string{a.ID: "Alice", b.ID: "Bob"}, names)
}

// Duplicate identifiers within one submission are not collapsed: each
// occurrence produces its own entry.
func TestMarkAttendanceDuplicateIdentifierCreatesTwoEntries(t *testing.T) {
	svc, repo, ledger := newTestService(t)
	jane := seed(t, repo, directory.KindStudent, "Jane", "AA:BB:CC:DD:EE:FF")

	res, err := svc.MarkAttendance(context.Background(), []string{"AA:BB:CC:DD:EE:FF", "AA:BB:CC:DD:EE:FF"})
	require.NoError(t, err)
	require.Equal(t, 2, res.MatchedCount)
	require.Equal(t, []MatchedIdentity{{DisplayName: "Jane", BeaconID: "AA:BB:CC:DD:EE:FF"}}, res.Matched)

	entries, err := ledger.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, jane.ID, entries[0].IdentityID)
	require.Equal(t, jane.ID, entries[1].IdentityID)
	require.NotEqual(t, entries[0].ID, entries[1].ID)
}

func TestMarkAttendanceIgnoresTeachers(t *testing.T) {
	svc, repo, ledger := newTestService(t)
	seed(t, repo, directory.KindTeacher, "Mr. Brown", "TT:TT")

	res, err := svc.MarkAttendance(context.Background(), []string{"TT:TT"})
	require.NoError(t, err)
	require.Equal(t, 0, res.MatchedCount)
	require.Equal(t, 0, ledgerCount(t, ledger))
}

func TestMarkAttendanceRejectsMissingList(t *testing.T) {
	svc, _, ledger := newTestService(t)

	_, err := svc.MarkAttendance(context.Background(), nil)
	require.True(t, apperr.IsValidation(err))
	require.Equal(t, 0, ledgerCount(t, ledger))
}

func TestCapturedNameSurvivesRename(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	jane := seed(t, repo, directory.KindStudent, "Jane", "AA")

	_, err := svc.MarkAttendance(ctx, []string{"AA"})
	require.NoError(t, err)

	jane.Name = "Jane Doe"
	require.NoError(t, repo.Update(ctx, jane))

	records, err := svc.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "Jane", records[0].StudentName)
	require.NotNil(t, records[0].Student)
	require.Equal(t, "Jane Doe", records[0].Student.Name)
	require.Equal(t, jane.ID, records[0].Student.ID)
}

func TestListAfterIdentityDeleted(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	jane := seed(t, repo, directory.KindStudent, "Jane", "AA")

	_, err := svc.MarkAttendance(ctx, []string{"AA"})
	require.NoError(t, err)
	require.NoError(t, repo.Delete(ctx, directory.KindStudent, jane.ID))

	records, err := svc.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "Jane", records[0].StudentName)
	require.Nil(t, records[0].Student)
}

func TestListNewestFirstWithLimit(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	seed(t, repo, directory.KindStudent, "Alice", "AA")
	seed(t, repo, directory.KindStudent, "Bob", "BB")

	base := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }
	_, err := svc.MarkAttendance(ctx, []string{"AA"})
	require.NoError(t, err)
	svc.now = func() time.Time { return base.Add(time.Minute) }
	_, err = svc.MarkAttendance(ctx, []string{"BB"})
	require.NoError(t, err)

	records, err := svc.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "Bob", records[0].StudentName)

	n, err := svc.CountSince(ctx, base.Add(30*time.Second))
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

type flakyLedger struct {
	*MemoryLedger
	calls  int
	failOn map[int]bool
}

func (f *flakyLedger) Append(ctx context.Context, e Entry) (Entry, error) {
	f.calls++
	if f.failOn[f.calls] {
		return Entry{}, errors.New("connection reset")
	}
	return f.MemoryLedger.Append(ctx, e)
}

func TestMarkAttendancePartialFailureKeepsCommittedEntries(t *testing.T) {
	repo := directory.NewMemoryRepository()
	ledger := &flakyLedger{MemoryLedger: NewMemoryLedger(), failOn: map[int]bool{2: true}}
	svc := NewService(repo, ledger, zerolog.Nop())
	seed(t, repo, directory.KindStudent, "Alice", "AA")
	seed(t, repo, directory.KindStudent, "Bob", "BB")
	seed(t, repo, directory.KindStudent, "Cara", "CC")

	res, err := svc.MarkAttendance(context.Background(), []string{"AA", "BB", "CC"})
	require.Error(t, err)
	var se *apperr.StorageError
	require.ErrorAs(t, err, &se)
	require.Equal(t, 2, res.MatchedCount)
	require.Len(t, res.Matched, 3)
	require.Equal(t, 2, ledgerCount(t, ledger))
}

type brokenDirectory struct{}

func (brokenDirectory) FindByBeaconIDs(context.Context, directory.Kind, []string) ([]directory.Identity, error) {
	return nil, errors.New("dial tcp: connection refused")
}

func (brokenDirectory) FindByIDs(context.Context, []string) ([]directory.Identity, error) {
	return nil, errors.New("dial tcp: connection refused")
}

func TestMarkAttendanceStorageUnavailable(t *testing.T) {
	ledger := NewMemoryLedger()
	svc := NewService(brokenDirectory{}, ledger, zerolog.Nop())

	_, err := svc.MarkAttendance(context.Background(), []string{"AA"})
	var se *apperr.StorageError
	require.ErrorAs(t, err, &se)
	require.Equal(t, 0, ledgerCount(t, ledger))
}

func TestParseBeaconList(t *testing.T) {
	text := "AA:BB:CC:DD:EE:FF\n   \n  00:11:22:33:44:55  \r\n\nAA:BB:CC:DD:EE:FF\n"
	require.Equal(t, []string{"AA:BB:CC:DD:EE:FF", "00:11:22:33:44:55", "AA:BB:CC:DD:EE:FF"}, ParseBeaconList(text))
	require.Empty(t, ParseBeaconList(" \n\t\n"))
}
