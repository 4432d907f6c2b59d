package interact

import "titanroof/internal/annotation"

// Tool is the armed placement tool. The zero value means no tool.
type Tool string

const (
	ToolNone         Tool = ""
	ToolTestSquare   Tool = Tool(annotation.TypeTestSquare)
	ToolAppurtenance Tool = Tool(annotation.TypeAppurtenance)
	ToolDownspout    Tool = Tool(annotation.TypeDownspout)
	ToolWind         Tool = Tool(annotation.TypeWind)
	ToolObservation  Tool = Tool(annotation.TypeObservation)
)

// ItemType returns the annotation type the tool places.
func (t Tool) ItemType() annotation.Type {
	return annotation.Type(t)
}

// ObservationTool selects how an armed observation tool draws.
type ObservationTool string

const (
	ObsDot   ObservationTool = "dot"
	ObsArrow ObservationTool = "arrow"
	ObsPoly  ObservationTool = "poly"
)

// Tools tracks the armed tool and the observation palette.
type Tools struct {
	tool        Tool
	obsTool     ObservationTool
	paletteOpen bool
}

// NewTools returns an unarmed tool set placing observation pins.
func NewTools() *Tools {
	return &Tools{obsTool: ObsDot}
}

// Current returns the armed tool.
func (t *Tools) Current() Tool { return t.tool }

// ObservationTool returns the observation sub-tool.
func (t *Tools) ObservationTool() ObservationTool { return t.obsTool }

// PaletteOpen reports whether the observation palette is showing.
func (t *Tools) PaletteOpen() bool { return t.paletteOpen }

// Select handles a toolbar press. Non-observation tools toggle and close the
// palette. The observation tool arms and opens the palette on first press,
// disarms when pressed with the palette open, and reopens the palette when
// armed with it closed.
func (t *Tools) Select(key Tool) {
	if key != ToolObservation {
		t.paletteOpen = false
		if t.tool == key {
			t.tool = ToolNone
		} else {
			t.tool = key
		}
		return
	}
	if t.tool != ToolObservation {
		t.tool = ToolObservation
		t.paletteOpen = true
		return
	}
	if t.paletteOpen {
		t.paletteOpen = false
		t.tool = ToolNone
		return
	}
	t.paletteOpen = true
}

// SetObservationTool picks the observation sub-tool and closes the palette.
func (t *Tools) SetObservationTool(o ObservationTool) {
	t.obsTool = o
	t.paletteOpen = false
}

// ClosePalette hides the observation palette without disarming.
func (t *Tools) ClosePalette() {
	t.paletteOpen = false
}

// Disarm clears the tool and closes the palette.
func (t *Tools) Disarm() {
	t.tool = ToolNone
	t.paletteOpen = false
}
