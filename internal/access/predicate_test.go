package access

import (
	"fmt"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
)

func TestPredicate_Allows(t *testing.T) {
	at := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	stolen := Item{OwnerID: "owner-1", PoliceStation: "Colombo Fort", StolenAt: &at}
	clean := Item{OwnerID: "owner-1", PoliceStation: "Colombo Fort"}
	stolenElsewhere := Item{OwnerID: "owner-2", PoliceStation: "Kandy", StolenAt: &at}
	deletedStolen := Item{OwnerID: "owner-1", PoliceStation: "Colombo Fort", StolenAt: &at, DeletedAt: &at}

	tests := []struct {
		name string
		p    Predicate
		want map[string]bool
	}{
		{"public", Predicate{Kind: PublicStolenOnly}, map[string]bool{"stolen": true, "clean": false, "elsewhere": true, "deleted": false}},
		{"owner", Predicate{Kind: OwnerScoped, IdentityID: "owner-1"}, map[string]bool{"stolen": true, "clean": true, "elsewhere": false, "deleted": false}},
		{"owner without id", Predicate{Kind: OwnerScoped}, map[string]bool{"stolen": false, "clean": false, "elsewhere": false, "deleted": false}},
		{"station", Predicate{Kind: StationScoped, Station: "Colombo Fort"}, map[string]bool{"stolen": true, "clean": false, "elsewhere": false, "deleted": false}},
		{"unrestricted", Predicate{Kind: Unrestricted}, map[string]bool{"stolen": true, "clean": true, "elsewhere": true, "deleted": false}},
		{"deny", Predicate{Kind: DenyAll}, map[string]bool{"stolen": false, "clean": false, "elsewhere": false, "deleted": false}},
		{"zero value", Predicate{}, map[string]bool{"stolen": false, "clean": false, "elsewhere": false, "deleted": false}},
	}
	items := map[string]Item{"stolen": stolen, "clean": clean, "elsewhere": stolenElsewhere, "deleted": deletedStolen}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for name, it := range items {
				assert.Equal(t, tt.want[name], tt.p.Allows(it), name)
			}
		})
	}
}

func TestPredicate_SQLGolden(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	tests := []struct {
		name string
		p    Predicate
		opts FilterOptions
	}{
		{"deny_all", Predicate{Kind: DenyAll}, FilterOptions{}},
		{"public_stolen_only", Predicate{Kind: PublicStolenOnly}, FilterOptions{IncludeDeleted: true}},
		{"owner_scoped", Predicate{Kind: OwnerScoped, IdentityID: "id-1"}, FilterOptions{}},
		{"owner_scoped_offset", Predicate{Kind: OwnerScoped, IdentityID: "id-1"}, FilterOptions{ArgOffset: 2}},
		{"owner_scoped_missing_id", Predicate{Kind: OwnerScoped}, FilterOptions{}},
		{"station_scoped", Predicate{Kind: StationScoped, Station: "Colombo Fort"}, FilterOptions{}},
		{"unrestricted", Predicate{Kind: Unrestricted}, FilterOptions{}},
		{"unrestricted_include_deleted", Predicate{Kind: Unrestricted}, FilterOptions{IncludeDeleted: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args := tt.p.SQL(tt.opts)
			g.Assert(t, tt.name, []byte(fmt.Sprintf("%s\n%v\n", where, args)))
		})
	}
}
