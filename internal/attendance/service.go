package attendance

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"beaconattend/internal/apperr"
	"beaconattend/internal/directory"
	"beaconattend/internal/observability"
)

// Directory is the read side of the identity directory used for matching.
type Directory interface {
	FindByBeaconIDs(ctx context.Context, kind directory.Kind, ids []string) ([]directory.Identity, error)
	FindByIDs(ctx context.Context, ids []string) ([]directory.Identity, error)
}

// MatchedIdentity is reported back for every identity a submission matched.
type MatchedIdentity struct {
	DisplayName string `json:"name"`
	BeaconID    string `json:"bluetoothId"`
}

// MarkResult summarises one markAttendance call. MatchedCount counts entries
// actually written; Matched lists each matched identity once.
type MarkResult struct {
	MatchedCount int               `json:"count"`
	Matched      []MatchedIdentity `json:"students"`
}

// IdentitySnapshot is the current directory view of an entry's identity.
type IdentitySnapshot struct {
	ID       string `json:"_id"`
	Name     string `json:"name"`
	BeaconID string `json:"bluetoothId"`
}

// Record is a ledger entry as listed to clients. Student is nil once the
// identity has been deleted.
type Record struct {
	ID          string            `json:"_id"`
	Time        time.Time         `json:"time"`
	StudentName string            `json:"studentName"`
	Student     *IdentitySnapshot `json:"student"`
}

// Service matches beacon identifiers against the student directory and
// appends ledger entries.
type Service struct {
	directory Directory
	ledger    Ledger
	logger    zerolog.Logger
	now       func() time.Time
}

// NewService creates the matcher.
func NewService(dir Directory, ledger Ledger, logger zerolog.Logger) *Service {
	return &Service{
		directory: dir,
		ledger:    ledger,
		logger:    logger.With().Str("component", "attendance").Logger(),
		now:       time.Now,
	}
}

// MarkAttendance resolves beaconIDs against students by exact match and
// writes one entry per matching occurrence in the input, so an identifier
// submitted twice yields two entries. Teachers are never matched.
//
// Writes are independent: a failed write is logged and skipped and the
// result still counts every entry that was committed. If any write failed,
// the returned error is a StorageError alongside the partial result.
func (s *Service) MarkAttendance(ctx context.Context, beaconIDs []string) (MarkResult, error) {
	result := MarkResult{Matched: []MatchedIdentity{}}
	if beaconIDs == nil {
		return result, apperr.Validation("devices must be a list of beacon identifiers")
	}
	observability.BeaconIDsReceived().Add(float64(len(beaconIDs)))
	if len(beaconIDs) == 0 {
		return result, nil
	}

	query := make([]string, 0, len(beaconIDs))
	seen := make(map[string]struct{}, len(beaconIDs))
	for _, id := range beaconIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		query = append(query, id)
	}

	// TODO: include KindTeacher here once the school confirms teachers should be auto-marked.
	identities, err := s.directory.FindByBeaconIDs(ctx, directory.KindStudent, query)
	if err != nil {
		return result, apperr.Storage("resolve beacon ids", err)
	}
	byBeacon := make(map[string]directory.Identity, len(identities))
	for _, ident := range identities {
		byBeacon[ident.BeaconID] = ident
	}

	reported := make(map[string]struct{}, len(identities))
	var failures []error
	for _, beaconID := range beaconIDs {
		ident, ok := byBeacon[beaconID]
		if !ok {
			continue
		}
		if _, done := reported[ident.ID]; !done {
			reported[ident.ID] = struct{}{}
			result.Matched = append(result.Matched, MatchedIdentity{DisplayName: ident.Name, BeaconID: ident.BeaconID})
		}

		entry := Entry{
			IdentityID:   ident.ID,
			CapturedName: ident.Name,
			CapturedAt:   s.now().UTC(),
		}
		if _, err := s.ledger.Append(ctx, entry); err != nil {
			observability.AttendanceEntries().WithLabelValues("failed").Inc()
			s.logger.Error().Err(err).Str("identity_id", ident.ID).Str("beacon_id", beaconID).Msg("attendance entry write failed")
			failures = append(failures, err)
			continue
		}
		observability.AttendanceEntries().WithLabelValues("created").Inc()
		result.MatchedCount++
	}

	s.logger.Info().
		Int("submitted", len(beaconIDs)).
		Int("matched_identities", len(result.Matched)).
		Int("entries_created", result.MatchedCount).
		Int("entries_failed", len(failures)).
		Msg("attendance marked")

	if len(failures) > 0 {
		return result, apperr.Storage("append attendance entries", errors.Join(failures...))
	}
	return result, nil
}

// List returns ledger entries newest first together with a snapshot of each
// referenced identity as it is now.
func (s *Service) List(ctx context.Context, limit int) ([]Record, error) {
	entries, err := s.ledger.List(ctx, limit)
	if err != nil {
		return nil, apperr.Storage("list attendance", err)
	}

	refs := make([]string, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if _, ok := seen[e.IdentityID]; ok {
			continue
		}
		seen[e.IdentityID] = struct{}{}
		refs = append(refs, e.IdentityID)
	}
	identities, err := s.directory.FindByIDs(ctx, refs)
	if err != nil {
		return nil, apperr.Storage("resolve attendance identities", err)
	}
	byID := make(map[string]directory.Identity, len(identities))
	for _, ident := range identities {
		byID[ident.ID] = ident
	}

	records := make([]Record, 0, len(entries))
	for _, e := range entries {
		rec := Record{ID: e.ID, Time: e.CapturedAt, StudentName: e.CapturedName}
		if ident, ok := byID[e.IdentityID]; ok {
			rec.Student = &IdentitySnapshot{ID: ident.ID, Name: ident.Name, BeaconID: ident.BeaconID}
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.ledger.Count(ctx)
}

func (s *Service) CountSince(ctx context.Context, since time.Time) (int, error) {
	return s.ledger.CountSince(ctx, since)
}

// ParseBeaconList turns operator free text into beacon identifiers: one per
// line, trimmed, blank lines dropped.
func ParseBeaconList(text string) []string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
