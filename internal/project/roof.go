package project

import "titanroof/internal/annotation"

// Roof covering kinds.
const (
	CoveringShingle = "SHINGLE"
	CoveringMetal   = "METAL"
	CoveringOther   = "OTHER"
)

// Choices offered for the report fields.
var (
	Orientations = []string{"North", "South", "East", "West", "Northeast", "Northwest", "Southeast", "Southwest"}
	Coverings    = []annotation.Code{
		{Code: CoveringShingle, Label: "Shingle"},
		{Code: CoveringMetal, Label: "Metal"},
		{Code: CoveringOther, Label: "Other"},
	}
	ShingleKinds = []annotation.Code{
		{Code: "LAM", Label: "Laminate Shingles"},
		{Code: "3TB", Label: "3-Tab Shingles"},
	}
	ShingleLengths   = []string{"36 inch width", "Other / Unknown"}
	ShingleExposures = []string{"5 inch exposure", "5-5/8 inch exposure", "6 inch exposure", "Other / Unknown"}
	MetalKinds       = []annotation.Code{
		{Code: "SS", Label: "Standing Seam"},
		{Code: "RP", Label: "R-Panel"},
		{Code: "COR", Label: "Corrugated"},
		{Code: "OTH", Label: "Other"},
	}
	MetalPanelWidths = []string{"12 inch", "16 inch", "24 inch", "Other / Unknown"}
)

func codeLabel(codes []annotation.Code, code, fallback string) string {
	for _, c := range codes {
		if c.Code == code {
			return c.Label
		}
	}
	return fallback
}

// Summary describes the covering on one line, e.g.
// "Laminate Shingles  36 inch width  5 inch exposure".
func (r Roof) Summary() string {
	switch r.Covering {
	case CoveringShingle:
		return codeLabel(ShingleKinds, r.ShingleKind, "Shingles") + "  " + r.ShingleLength + "  " + r.ShingleExposure
	case CoveringMetal:
		return codeLabel(MetalKinds, r.MetalKind, "Metal") + "  " + r.MetalPanelWidth
	}
	if r.OtherDesc != "" {
		return "Other  " + r.OtherDesc
	}
	return "Other"
}
