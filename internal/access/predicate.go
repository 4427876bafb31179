// Package access decides which part of the item catalogue a caller may see. The decision is a
// Predicate: a closed set of scopes that can be checked in memory or compiled to a SQL filter.
package access

import (
	"fmt"
	"time"
)

// Kind names an access scope.
type Kind string

const (
	DenyAll          Kind = "DENY_ALL"
	PublicStolenOnly Kind = "PUBLIC_STOLEN_ONLY"
	OwnerScoped      Kind = "OWNER_SCOPED"
	StationScoped    Kind = "STATION_SCOPED"
	Unrestricted     Kind = "UNRESTRICTED"
)

// Predicate is a resolved access scope. IdentityID is set only for OwnerScoped and Station only
// for StationScoped. The zero value denies everything.
type Predicate struct {
	Kind       Kind
	IdentityID string
	Station    string
}

// Item is the subset of a catalogue row that access decisions look at.
type Item struct {
	OwnerID       string
	PoliceStation string
	StolenAt      *time.Time
	DeletedAt     *time.Time
}

// Allows reports whether the predicate admits it. Deleted items are never admitted here; callers that
// list deleted items for privileged roles use SQL with IncludeDeleted.
func (p Predicate) Allows(it Item) bool {
	if it.DeletedAt != nil {
		return false
	}
	switch p.Kind {
	case PublicStolenOnly:
		return it.StolenAt != nil
	case OwnerScoped:
		return p.IdentityID != "" && it.OwnerID == p.IdentityID
	case StationScoped:
		return p.Station != "" && it.StolenAt != nil && it.PoliceStation == p.Station
	case Unrestricted:
		return true
	default:
		return false
	}
}

// FilterOptions adjusts SQL compilation.
type FilterOptions struct {
	// IncludeDeleted keeps soft-deleted rows. Honored only for Unrestricted.
	IncludeDeleted bool
	// ArgOffset is the number of placeholders already used by the surrounding query.
	ArgOffset int
}

// SQL compiles the predicate to a WHERE clause over the items table and its arguments. Values are
// always passed as placeholders, never interpolated.
func (p Predicate) SQL(opts FilterOptions) (string, []any) {
	ph := func(n int) string { return fmt.Sprintf("$%d", opts.ArgOffset+n) }
	switch p.Kind {
	case PublicStolenOnly:
		return "stolen_at IS NOT NULL AND deleted_at IS NULL", nil
	case OwnerScoped:
		if p.IdentityID == "" {
			break
		}
		return "owner_id = " + ph(1) + " AND deleted_at IS NULL", []any{p.IdentityID}
	case StationScoped:
		if p.Station == "" {
			break
		}
		return "police_station = " + ph(1) + " AND stolen_at IS NOT NULL AND deleted_at IS NULL", []any{p.Station}
	case Unrestricted:
		if opts.IncludeDeleted {
			return "TRUE", nil
		}
		return "deleted_at IS NULL", nil
	}
	return "FALSE", nil
}
