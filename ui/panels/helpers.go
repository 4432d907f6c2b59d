package panels

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"titanroof/internal/annotation"
)

// naturalLess compares two strings using natural numeric ordering.
// "TS-2" < "TS-10", "DS-1" < "DS-2" < "DS-10", etc.
func naturalLess(a, b string) bool {
	chunksA := splitNatural(a)
	chunksB := splitNatural(b)
	for i := 0; i < len(chunksA) && i < len(chunksB); i++ {
		ca, cb := chunksA[i], chunksB[i]
		if isNumeric(ca) && isNumeric(cb) {
			na := parseNum(ca)
			nb := parseNum(cb)
			if na != nb {
				return na < nb
			}
		} else {
			cmp := strings.Compare(strings.ToUpper(ca), strings.ToUpper(cb))
			if cmp != 0 {
				return cmp < 0
			}
		}
	}
	return len(chunksA) < len(chunksB)
}

func splitNatural(s string) []string {
	var chunks []string
	var current strings.Builder
	wasDigit := false
	for i, r := range s {
		isDigit := r >= '0' && r <= '9'
		if i > 0 && isDigit != wasDigit {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		current.WriteRune(r)
		wasDigit = isDigit
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

func parseNum(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n = n*10 + int(r-'0')
		}
	}
	return n
}

// typeRank orders item types the way the toolbar lists them.
func typeRank(t annotation.Type) int {
	for i, v := range annotation.Types {
		if v == t {
			return i
		}
	}
	return len(annotation.Types)
}

// sortItems orders items by type, then by name.
func sortItems(items []*annotation.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		ri, rj := typeRank(items[i].Type), typeRank(items[j].Type)
		if ri != rj {
			return ri < rj
		}
		return naturalLess(items[i].Name, items[j].Name)
	})
}

// isDamaged reports whether an appurtenance or downspout has hail evidence.
func isDamaged(it *annotation.Item) bool {
	switch d := it.Data.(type) {
	case *annotation.Appurtenance:
		return len(d.DamageEntries) > 0
	case *annotation.Downspout:
		return len(d.DamageEntries) > 0
	}
	return false
}

// damageSummary lists damage entries as `spatter 1/4"  dent 1/2"`.
func damageSummary(it *annotation.Item) string {
	var entries []annotation.DamageEntry
	switch d := it.Data.(type) {
	case *annotation.Appurtenance:
		entries = d.DamageEntries
	case *annotation.Downspout:
		entries = d.DamageEntries
	default:
		return ""
	}
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Mode == annotation.DamageBoth {
			parts = append(parts, fmt.Sprintf("spatter + dent %s\"", e.Size))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %s\"", e.Mode, e.Size))
	}
	return strings.Join(parts, "  ")
}

// itemSummary is the one-line description shown in the item list.
func itemSummary(it *annotation.Item) string {
	var detail string
	switch d := it.Data.(type) {
	case *annotation.TestSquare:
		detail = fmt.Sprintf("%s  %d hits", d.Dir, len(d.Bruises))
	case *annotation.Appurtenance:
		detail = d.Kind + "  " + d.Dir
	case *annotation.Downspout:
		detail = fmt.Sprintf("#%d  %s", d.Index, d.Dir)
	case *annotation.WindMarker:
		detail = fmt.Sprintf("%s  C%d T%d", d.Dir, d.CreasedCount, d.TornMissingCount)
	case *annotation.Observation:
		detail = d.Code + "  " + string(d.Kind)
	}
	if s := damageSummary(it); s != "" {
		detail += "  " + s
	}
	if it.Locked() {
		detail += "  (locked)"
	}
	return strings.TrimSpace(it.Name + "  " + detail)
}

// formatSize renders a hail size in inches, "-" for none.
func formatSize(v float64) string {
	if v <= 0 {
		return "-"
	}
	return strconv.FormatFloat(v, 'f', -1, 64) + "\""
}

// codeOptions renders codes as "EF - Exhaust Fan".
func codeOptions(codes []annotation.Code) []string {
	out := make([]string, len(codes))
	for i, c := range codes {
		out[i] = c.Code + " - " + c.Label
	}
	return out
}

// codeOption returns the option for code, or code itself when unknown.
func codeOption(codes []annotation.Code, code string) string {
	for _, c := range codes {
		if c.Code == code {
			return c.Code + " - " + c.Label
		}
	}
	return code
}

// optionCode extracts the code from an option string.
func optionCode(option string) string {
	code, _, _ := strings.Cut(option, " - ")
	return code
}

func photoLabel(p *annotation.Photo) string {
	if p == nil {
		return "No photo"
	}
	return p.Name
}
