package entity

import (
	"strings"
	"time"
)

// User is a registered reader. PasswordHash holds a bcrypt hash and never leaves the server.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Preferences  Preference
	CreatedAt    time.Time
}

// Preference is the set of interests used to filter a user's feed.
// The three sets are independent; an empty set means "no constraint".
type Preference struct {
	Topics   []string
	Sources  []string
	Keywords []string
}

// IsEmpty reports whether no preference category has any value.
func (p Preference) IsEmpty() bool {
	return len(p.Topics) == 0 && len(p.Sources) == 0 && len(p.Keywords) == 0
}

// Normalize trims entries, drops blanks and duplicates (first occurrence wins),
// and turns nil sets into empty ones.
func (p Preference) Normalize() Preference {
	return Preference{
		Topics:   normalizeSet(p.Topics),
		Sources:  normalizeSet(p.Sources),
		Keywords: normalizeSet(p.Keywords),
	}
}

func normalizeSet(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
