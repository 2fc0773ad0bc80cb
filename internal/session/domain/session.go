// Package domain holds the per-identity session record collection and the
// pure data operations on it: pruning, cap enforcement, rotation, revocation.
// Nothing here performs I/O; the identity aggregate embeds Records and the
// repository persists them with the rest of the identity.
package domain

import (
	"errors"
	"time"
)

// DefaultMaxRecords is the default cap on live session records per identity.
const DefaultMaxRecords = 5

// ErrInvalidRecord is returned when a record without a session id is added.
var ErrInvalidRecord = errors.New("session record has no session id")

// Record represents one authenticated device or browser.
// RefreshTokenHash is the only stored form of the refresh token; the raw
// token never touches persistence or logs.
type Record struct {
	SessionID        string
	RefreshTokenHash string
	ExpiresAt        time.Time
	CreatedAt        time.Time
	LastUsedAt       time.Time
	UserAgent        string
	IP               string
}

// Expired reports whether the record is past its expiry at now.
func (r Record) Expired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}

// Records is an identity's collection of active session records.
type Records []Record

// Normalize drops records with an empty session id and collapses duplicate
// session ids to the most-recently-used record. Runs on load and after every
// structural mutation as defense in depth against earlier store bugs.
func (rs *Records) Normalize() {
	if rs == nil || len(*rs) == 0 {
		return
	}
	out := (*rs)[:0]
	index := make(map[string]int, len(*rs))
	for _, rec := range *rs {
		if rec.SessionID == "" {
			continue
		}
		if i, ok := index[rec.SessionID]; ok {
			if !rec.LastUsedAt.Before(out[i].LastUsedAt) {
				out[i] = rec
			}
			continue
		}
		index[rec.SessionID] = len(out)
		out = append(out, rec)
	}
	*rs = out
}

// PruneExpired removes every record whose expiry is at or before now.
func (rs *Records) PruneExpired(now time.Time) {
	rs.Normalize()
	out := (*rs)[:0]
	for _, rec := range *rs {
		if !rec.Expired(now) {
			out = append(out, rec)
		}
	}
	*rs = out
}

// EnforceCap prunes expired records and then evicts oldest-first (smallest
// CreatedAt, ties by position) until fewer than max live records remain.
// Callers run this before Add so the count after the add stays within max.
func (rs *Records) EnforceCap(max int, now time.Time) {
	if max < 1 {
		max = DefaultMaxRecords
	}
	rs.PruneExpired(now)
	for len(*rs) >= max {
		oldest := 0
		for i, rec := range *rs {
			if rec.CreatedAt.Before((*rs)[oldest].CreatedAt) {
				oldest = i
			}
		}
		*rs = append((*rs)[:oldest], (*rs)[oldest+1:]...)
	}
}

// Add appends rec, or updates the existing record in place when the session
// id is already present (duplicate concurrent logins reusing a session id).
// The original CreatedAt survives an in-place update so eviction ordering is
// stable. Returns ErrInvalidRecord for an empty session id.
func (rs *Records) Add(rec Record) error {
	if rec.SessionID == "" {
		return ErrInvalidRecord
	}
	rs.Normalize()
	for i := range *rs {
		if (*rs)[i].SessionID == rec.SessionID {
			(*rs)[i].RefreshTokenHash = rec.RefreshTokenHash
			(*rs)[i].ExpiresAt = rec.ExpiresAt
			(*rs)[i].LastUsedAt = rec.LastUsedAt
			(*rs)[i].UserAgent = rec.UserAgent
			(*rs)[i].IP = rec.IP
			return nil
		}
	}
	*rs = append(*rs, rec)
	return nil
}

// Rotate replaces the record's refresh hash and expiry and stamps LastUsedAt.
// Returns false when no record has the session id; callers treat that as a
// missing session.
func (rs *Records) Rotate(sessionID, newHash string, newExpiresAt, now time.Time) bool {
	rs.Normalize()
	for i := range *rs {
		if (*rs)[i].SessionID == sessionID {
			(*rs)[i].RefreshTokenHash = newHash
			(*rs)[i].ExpiresAt = newExpiresAt
			(*rs)[i].LastUsedAt = now
			return true
		}
	}
	return false
}

// Revoke removes the record with the given session id; no-op when absent.
func (rs *Records) Revoke(sessionID string) {
	rs.Normalize()
	out := (*rs)[:0]
	for _, rec := range *rs {
		if rec.SessionID != sessionID {
			out = append(out, rec)
		}
	}
	*rs = out
}

// RevokeAll clears the collection (password change, "log out everywhere").
func (rs *Records) RevokeAll() {
	*rs = (*rs)[:0]
}

// Find returns a pointer to the record with the given session id, or nil.
// The pointer aliases the collection; mutations through it are visible.
func (rs Records) Find(sessionID string) *Record {
	for i := range rs {
		if rs[i].SessionID == sessionID {
			return &rs[i]
		}
	}
	return nil
}

// Live counts records that are not expired at now.
func (rs Records) Live(now time.Time) int {
	n := 0
	for _, rec := range rs {
		if !rec.Expired(now) {
			n++
		}
	}
	return n
}
