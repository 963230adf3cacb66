package storage

import (
	"crypto/subtle"
	"time"

	"github.com/rryowa/authsession/internal/models"
)

// HashesEqual compares two hex digests in constant time.
func HashesEqual(a, b string) bool {
	if a == "" || b == "" || len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// MatchCredential runs the two-tier lookup on an already loaded session:
// current credential first, then the previous one while its grace window is open.
func MatchCredential(s *models.Session, hash string, now time.Time) (usedPrevious bool, ok bool) {
	if HashesEqual(s.Current.Hash, hash) {
		return false, true
	}
	if s.GraceOpen(now) && HashesEqual(s.Previous.Hash, hash) {
		return true, true
	}
	return false, false
}
