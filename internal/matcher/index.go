package matcher

import "tracker-sync/internal/model"

// Index maps normalized plates to vehicles for O(1) exact lookups and keeps the
// full list for fuzzy scans.
type Index struct {
	byPlate    map[string]Vehicle
	vehicles   []Vehicle
	duplicates []Vehicle
}

// NewIndex normalizes every vehicle plate. When two vehicles share a key the
// first one keeps it; the rest are reported by Duplicates.
func NewIndex(records []model.VehicleRecord) *Index {
	idx := &Index{
		byPlate:  make(map[string]Vehicle, len(records)),
		vehicles: make([]Vehicle, 0, len(records)),
	}
	for _, record := range records {
		v := NewVehicle(record)
		idx.vehicles = append(idx.vehicles, v)
		if v.Normalized == "" {
			continue
		}
		if _, exists := idx.byPlate[v.Normalized]; exists {
			idx.duplicates = append(idx.duplicates, v)
			continue
		}
		idx.byPlate[v.Normalized] = v
	}
	return idx
}

func (idx *Index) Exact(normalized string) (Vehicle, bool) {
	if normalized == "" {
		return Vehicle{}, false
	}
	v, ok := idx.byPlate[normalized]
	return v, ok
}

func (idx *Index) Candidates(devicePlate, normalized string) []model.MatchCandidate {
	return FindCandidates(devicePlate, normalized, idx.vehicles)
}

func (idx *Index) Duplicates() []Vehicle {
	return idx.duplicates
}

func (idx *Index) Len() int {
	return len(idx.vehicles)
}
