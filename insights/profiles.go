package insights

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/warp/kol-dashboard/reconcile"
)

// =============================================================================
// PROFILES
// =============================================================================

// Profile is the look-up card of one entity.
type Profile struct {
	EntityID       reconcile.EntityID
	Name           string
	Region         string
	Country        string
	ContractStart  reconcile.Date
	ContractEnd    reconcile.Date
	ElapsedPercent decimal.Decimal
	Rows           []reconcile.DashboardRow
}

// Names returns the sorted distinct entity names on the dashboard.
func Names(rows []reconcile.DashboardRow) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range rows {
		if _, ok := seen[r.Name]; ok || r.Name == "" {
			continue
		}
		seen[r.Name] = struct{}{}
		out = append(out, r.Name)
	}
	sort.Strings(out)
	return out
}

// FindProfile collects the rows of the entity called name. The card header
// comes from the first matching row. Returns ErrEntityNotFound when no row
// carries that name.
func FindProfile(rows []reconcile.DashboardRow, name string) (*Profile, error) {
	name = strings.TrimSpace(name)
	var p *Profile
	for _, r := range rows {
		if r.Name != name {
			continue
		}
		if p == nil {
			p = &Profile{
				EntityID:       r.EntityID,
				Name:           r.Name,
				Region:         r.Region,
				Country:        r.Country,
				ContractStart:  r.ContractStart,
				ContractEnd:    r.ContractEnd,
				ElapsedPercent: r.ElapsedPercent,
			}
		}
		p.Rows = append(p.Rows, r)
	}
	if p == nil {
		return nil, fmt.Errorf("%w: %q", reconcile.ErrEntityNotFound, name)
	}
	return p, nil
}

// =============================================================================
// ACTIVITY LOG
// =============================================================================

// All disables an ActivityLog filter.
const All = "All"

// ActivityFilter narrows the activity log. Empty or All fields match
// everything.
type ActivityFilter struct {
	Region string
	Month  string
}

func (f ActivityFilter) matches(field, want string) bool {
	want = strings.TrimSpace(want)
	return want == "" || want == All || strings.TrimSpace(field) == want
}

// ActivityLog returns the raw activity records matching f, in input order.
func ActivityLog(acts []reconcile.ActivityRecord, f ActivityFilter) []reconcile.ActivityRecord {
	out := make([]reconcile.ActivityRecord, 0, len(acts))
	for _, a := range acts {
		if f.matches(a.Region, f.Region) && f.matches(a.Month, f.Month) {
			out = append(out, a)
		}
	}
	return out
}

// ActivityRegions lists the distinct non-blank regions of acts, sorted.
func ActivityRegions(acts []reconcile.ActivityRecord) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, a := range acts {
		region := strings.TrimSpace(a.Region)
		if region == "" {
			continue
		}
		if _, ok := seen[region]; ok {
			continue
		}
		seen[region] = struct{}{}
		out = append(out, region)
	}
	sort.Strings(out)
	return out
}
