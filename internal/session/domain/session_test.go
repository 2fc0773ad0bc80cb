package domain

import (
	"fmt"
	"testing"
	"time"
)

var base = time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

func record(id string, createdOffset time.Duration, ttl time.Duration) Record {
	return Record{
		SessionID:        id,
		RefreshTokenHash: "hash-" + id,
		CreatedAt:        base.Add(createdOffset),
		LastUsedAt:       base.Add(createdOffset),
		ExpiresAt:        base.Add(ttl),
	}
}

func ids(rs Records) []string {
	out := make([]string, len(rs))
	for i, rec := range rs {
		out[i] = rec.SessionID
	}
	return out
}

func TestRecords_PruneExpired(t *testing.T) {
	rs := Records{
		record("live", 0, time.Hour),
		record("expired", 0, -time.Minute),
		record("boundary", 0, 0), // expiresAt == now counts as expired
	}
	rs.PruneExpired(base)
	if len(rs) != 1 || rs[0].SessionID != "live" {
		t.Errorf("PruneExpired left %v, want [live]", ids(rs))
	}
}

func TestRecords_EnforceCap_EvictsOldestFirst(t *testing.T) {
	var rs Records
	for i := 0; i < 5; i++ {
		rs = append(rs, record(fmt.Sprintf("s%d", i+1), time.Duration(i)*time.Minute, time.Hour))
	}
	rs.EnforceCap(5, base.Add(10*time.Minute))
	if len(rs) != 4 {
		t.Fatalf("EnforceCap left %d records, want 4", len(rs))
	}
	if rs.Find("s1") != nil {
		t.Error("EnforceCap should evict the oldest record (s1)")
	}
	for _, id := range []string{"s2", "s3", "s4", "s5"} {
		if rs.Find(id) == nil {
			t.Errorf("EnforceCap evicted %s, want only s1 gone", id)
		}
	}
}

func TestRecords_EnforceCap_PrefersExpiredPruning(t *testing.T) {
	rs := Records{
		record("old-expired", 0, -time.Minute),
		record("s2", time.Minute, time.Hour),
		record("s3", 2*time.Minute, time.Hour),
	}
	rs.EnforceCap(3, base)
	// Pruning the expired record brings the count under the cap; no live
	// record should be evicted.
	if rs.Find("s2") == nil || rs.Find("s3") == nil {
		t.Errorf("EnforceCap evicted a live record: %v", ids(rs))
	}
	if rs.Find("old-expired") != nil {
		t.Error("EnforceCap should prune expired records")
	}
}

func TestRecords_EnforceCap_TieBreaksByPosition(t *testing.T) {
	rs := Records{
		record("first", 0, time.Hour),
		record("second", 0, time.Hour), // same CreatedAt
	}
	rs.EnforceCap(2, base)
	if len(rs) != 1 || rs[0].SessionID != "second" {
		t.Errorf("EnforceCap tie-break left %v, want [second]", ids(rs))
	}
}

func TestRecords_Add_RejectsEmptyID(t *testing.T) {
	var rs Records
	if err := rs.Add(Record{}); err != ErrInvalidRecord {
		t.Errorf("Add empty id: want ErrInvalidRecord, got %v", err)
	}
}

func TestRecords_Add_UpsertsInPlace(t *testing.T) {
	rs := Records{record("s1", 0, time.Hour)}
	created := rs[0].CreatedAt

	updated := record("s1", time.Minute, 2*time.Hour)
	updated.RefreshTokenHash = "new-hash"
	if err := rs.Add(updated); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if len(rs) != 1 {
		t.Fatalf("Add duplicate id appended; len = %d, want 1", len(rs))
	}
	if rs[0].RefreshTokenHash != "new-hash" {
		t.Errorf("Add did not update hash: %q", rs[0].RefreshTokenHash)
	}
	if !rs[0].CreatedAt.Equal(created) {
		t.Error("Add must preserve CreatedAt on in-place update")
	}
}

func TestRecords_Rotate(t *testing.T) {
	rs := Records{record("s1", 0, time.Hour)}
	now := base.Add(30 * time.Minute)
	newExp := base.Add(48 * time.Hour)

	if !rs.Rotate("s1", "rotated-hash", newExp, now) {
		t.Fatal("Rotate returned false for existing session")
	}
	if rs[0].RefreshTokenHash != "rotated-hash" {
		t.Errorf("Rotate hash = %q", rs[0].RefreshTokenHash)
	}
	if !rs[0].ExpiresAt.Equal(newExp) {
		t.Errorf("Rotate expiry = %v, want %v", rs[0].ExpiresAt, newExp)
	}
	if !rs[0].LastUsedAt.Equal(now) {
		t.Errorf("Rotate LastUsedAt = %v, want %v", rs[0].LastUsedAt, now)
	}

	if rs.Rotate("missing", "h", newExp, now) {
		t.Error("Rotate returned true for missing session")
	}
}

func TestRecords_RevokeAndRevokeAll(t *testing.T) {
	rs := Records{record("s1", 0, time.Hour), record("s2", time.Minute, time.Hour)}
	rs.Revoke("s1")
	if rs.Find("s1") != nil || rs.Find("s2") == nil {
		t.Errorf("Revoke left %v, want [s2]", ids(rs))
	}
	rs.Revoke("missing") // no-op
	if len(rs) != 1 {
		t.Errorf("Revoke of missing id changed the collection: %v", ids(rs))
	}
	rs.RevokeAll()
	if len(rs) != 0 {
		t.Errorf("RevokeAll left %v", ids(rs))
	}
}

func TestRecords_Normalize_CollapsesDuplicates(t *testing.T) {
	older := record("dup", 0, time.Hour)
	newer := record("dup", 0, time.Hour)
	newer.LastUsedAt = base.Add(time.Minute)
	newer.RefreshTokenHash = "newer-hash"

	rs := Records{older, record("", 0, time.Hour), newer}
	rs.Normalize()
	if len(rs) != 1 {
		t.Fatalf("Normalize left %d records, want 1", len(rs))
	}
	if rs[0].RefreshTokenHash != "newer-hash" {
		t.Error("Normalize should keep the most-recently-used duplicate")
	}
}

func TestRecords_Live(t *testing.T) {
	rs := Records{
		record("live", 0, time.Hour),
		record("dead", 0, -time.Minute),
	}
	if got := rs.Live(base); got != 1 {
		t.Errorf("Live = %d, want 1", got)
	}
}
