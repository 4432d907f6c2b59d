package annotation

import "titanroof/pkg/geometry"

// DirectionStats summarizes one roof direction.
type DirectionStats struct {
	TestSquareHits    int     `json:"tsHits"`
	TestSquareMaxHail float64 `json:"tsMaxHail"`
	WindCreased       int     `json:"windCreased"`
	WindTornMissing   int     `json:"windTornMissing"`
	AppurtenanceMax   float64 `json:"aptMax"`
	DownspoutMax      float64 `json:"dsMax"`
}

// Dashboard computes per-direction statistics for items. Items with a
// direction outside Directions are ignored.
func Dashboard(items []*Item) map[string]*DirectionStats {
	stats := make(map[string]*DirectionStats, len(Directions))
	for _, d := range Directions {
		stats[d] = &DirectionStats{}
	}

	for _, it := range items {
		switch d := it.Data.(type) {
		case *TestSquare:
			st, ok := stats[d.Dir]
			if !ok {
				continue
			}
			st.TestSquareHits += len(d.Bruises)
			for _, b := range d.Bruises {
				if sz := geometry.ParseSizeToken(b.Size); sz > st.TestSquareMaxHail {
					st.TestSquareMaxHail = sz
				}
			}
		case *WindMarker:
			st, ok := stats[d.Dir]
			if !ok {
				continue
			}
			st.WindCreased += d.CreasedCount
			st.WindTornMissing += d.TornMissingCount
		case *Appurtenance:
			if st, ok := stats[d.Dir]; ok {
				st.AppurtenanceMax = max(st.AppurtenanceMax, maxEntrySize(d.DamageEntries))
			}
		case *Downspout:
			if st, ok := stats[d.Dir]; ok {
				st.DownspoutMax = max(st.DownspoutMax, maxEntrySize(d.DamageEntries))
			}
		}
	}
	return stats
}

func maxEntrySize(entries []DamageEntry) float64 {
	var mx float64
	for _, e := range entries {
		if sz := geometry.ParseSizeToken(e.Size); sz > mx {
			mx = sz
		}
	}
	return mx
}

// HailIndicator is the largest spatter and dent size seen.
type HailIndicator struct {
	Spatter float64 `json:"spatter"`
	Dent    float64 `json:"dent"`
}

// IndicatorSummary holds appurtenance and downspout indicators for one
// cardinal direction.
type IndicatorSummary struct {
	Appurtenance HailIndicator `json:"apt"`
	Downspout    HailIndicator `json:"ds"`
}

// HailIndicators summarizes damage entries per cardinal direction.
func HailIndicators(items []*Item) map[string]*IndicatorSummary {
	out := make(map[string]*IndicatorSummary, len(CardinalDirections))
	for _, d := range CardinalDirections {
		out[d] = &IndicatorSummary{}
	}

	for _, it := range items {
		var (
			dir     string
			entries []DamageEntry
			target  func(*IndicatorSummary) *HailIndicator
		)
		switch d := it.Data.(type) {
		case *Appurtenance:
			dir, entries = d.Dir, d.DamageEntries
			target = func(s *IndicatorSummary) *HailIndicator { return &s.Appurtenance }
		case *Downspout:
			dir, entries = d.Dir, d.DamageEntries
			target = func(s *IndicatorSummary) *HailIndicator { return &s.Downspout }
		default:
			continue
		}
		sum, ok := out[dir]
		if !ok {
			continue
		}
		ind := target(sum)
		for _, e := range entries {
			size := geometry.ParseSizeToken(e.Size)
			if (e.Mode == DamageSpatter || e.Mode == DamageBoth) && size > ind.Spatter {
				ind.Spatter = size
			}
			if (e.Mode == DamageDent || e.Mode == DamageBoth) && size > ind.Dent {
				ind.Dent = size
			}
		}
	}
	return out
}
