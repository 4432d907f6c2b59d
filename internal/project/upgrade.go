package project

import (
	"strconv"
	"strings"

	"titanroof/internal/annotation"
)

// upgradeItem rewrites a decoded item in place into the current shape.
// Older files used "app" for appurtenances, per-mode damage flags,
// single-count wind markers and observations without a kind.
func upgradeItem(it map[string]any, fallbackPageID string) {
	typ, _ := it["type"].(string)
	name, _ := it["name"].(string)
	if typ == "app" {
		typ = string(annotation.TypeAppurtenance)
		if strings.HasPrefix(name, "APP-") {
			name = "APT-" + strings.TrimPrefix(name, "APP-")
		}
	}
	it["type"] = typ
	it["name"] = name
	if page, _ := it["pageId"].(string); page == "" {
		it["pageId"] = fallbackPageID
	}

	data, _ := it["data"].(map[string]any)
	if data == nil {
		data = map[string]any{}
	}
	it["data"] = data

	switch annotation.Type(typ) {
	case annotation.TypeTestSquare:
		ensureList(data, "bruises")
		ensureList(data, "conditions")
	case annotation.TypeAppurtenance, annotation.TypeDownspout:
		upgradeDamage(data)
		if typ == string(annotation.TypeDownspout) && data["index"] == nil {
			data["index"] = downspoutIndex(name)
		}
	case annotation.TypeWind:
		upgradeWind(data)
	case annotation.TypeObservation:
		if s, _ := data["kind"].(string); s == "" {
			if pts, _ := data["points"].([]any); len(pts) > 0 {
				data["kind"] = string(annotation.ObservationArea)
			} else {
				data["kind"] = string(annotation.ObservationPin)
			}
		}
		defaultString(data, "label", "")
		defaultString(data, "arrowType", annotation.DefaultArrowType)
		defaultString(data, "arrowLabelPosition", annotation.DefaultArrowLabel)
	}
}

// upgradeDamage fills damage entry defaults and converts the legacy
// spatter/dent flags when no entries exist.
func upgradeDamage(data map[string]any) {
	entries, _ := data["damageEntries"].([]any)
	out := make([]any, 0, len(entries))
	for _, e := range entries {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		defaultString(m, "id", annotation.NewID())
		defaultString(m, "mode", string(annotation.DamageSpatter))
		defaultString(m, "size", annotation.DefaultSize)
		out = append(out, m)
	}
	if len(out) == 0 {
		for _, mode := range []annotation.DamageMode{annotation.DamageSpatter, annotation.DamageDent} {
			legacy, _ := data[string(mode)].(map[string]any)
			if on, _ := legacy["on"].(bool); !on {
				continue
			}
			size, _ := legacy["size"].(string)
			if size == "" {
				size = annotation.DefaultSize
			}
			out = append(out, map[string]any{
				"id":    annotation.NewID(),
				"mode":  string(mode),
				"size":  size,
				"photo": legacy["photo"],
			})
		}
	}
	data["damageEntries"] = out
	delete(data, "spatter")
	delete(data, "dent")
	delete(data, "damageMode")
}

func upgradeWind(data map[string]any) {
	if data["overviewPhoto"] == nil {
		data["overviewPhoto"] = data["photo"]
	}
	if data["creasedCount"] == nil && data["tornMissingCount"] == nil {
		count := 1
		if n, ok := data["count"].(float64); ok && n != 0 {
			count = int(n)
		}
		if cond, _ := data["cond"].(string); cond == "torn_missing" {
			data["creasedCount"] = 0
			data["tornMissingCount"] = count
		} else {
			data["creasedCount"] = count
			data["tornMissingCount"] = 0
		}
	}
	if data["caption"] == nil {
		data["caption"] = ""
	}
	delete(data, "cond")
	delete(data, "count")
	delete(data, "photo")
}

// downspoutIndex reads the integer after the first dash of a name, or 1.
func downspoutIndex(name string) int {
	parts := strings.Split(name, "-")
	if len(parts) < 2 {
		return 1
	}
	s := strings.TrimSpace(parts[1])
	end := 0
	if end < len(s) && s[end] == '+' {
		end++
	}
	start := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == start {
		return 1
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 1
	}
	return n
}

func ensureList(m map[string]any, key string) {
	if _, ok := m[key].([]any); !ok {
		m[key] = []any{}
	}
}

func defaultString(m map[string]any, key, def string) {
	if s, _ := m[key].(string); s == "" {
		m[key] = def
	}
}
