package panels

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"titanroof/internal/annotation"
	"titanroof/internal/app"
	"titanroof/internal/project"
	"titanroof/ui/prefs"
)

// ReportPanel edits the report fields and shows the hail summary for the
// active page.
type ReportPanel struct {
	state  *app.State
	prefs  *prefs.Prefs
	window fyne.Window

	container fyne.CanvasObject

	residence  *widget.Entry
	frontFaces *widget.Select
	roofBox    *fyne.Container
	summary    *widget.Label
	dashboard  *fyne.Container
	indicators *fyne.Container
	exterior   *fyne.Container
	syncing    bool
}

// NewReportPanel creates the report panel.
func NewReportPanel(state *app.State, p *prefs.Prefs) *ReportPanel {
	rp := &ReportPanel{
		state:      state,
		prefs:      p,
		roofBox:    container.NewVBox(),
		summary:    widget.NewLabel(""),
		dashboard:  container.NewGridWithColumns(7),
		indicators: container.NewGridWithColumns(5),
		exterior:   container.NewVBox(),
	}
	rp.summary.Wrapping = fyne.TextWrapWord

	rp.residence = widget.NewEntry()
	rp.residence.SetPlaceHolder("Enter name or property")
	rp.residence.OnChanged = func(s string) {
		if !rp.syncing {
			state.SetResidence(s, "")
		}
	}
	rp.frontFaces = widget.NewSelect(project.Orientations, func(s string) {
		if !rp.syncing {
			name, _, _ := state.Report()
			state.SetResidence(name, s)
		}
	})

	addExterior := widget.NewButton("Add Exterior Photo", func() {
		state.AddExteriorPhoto()
		rp.reloadExterior()
	})

	rp.container = container.NewVScroll(container.NewVBox(
		widget.NewCard("Property", "", widget.NewForm(
			widget.NewFormItem("Residence", rp.residence),
			widget.NewFormItem("Front Faces", rp.frontFaces),
		)),
		widget.NewCard("Roof Covering", "", container.NewVBox(rp.roofBox, rp.summary)),
		widget.NewCard("Dashboard", "Active page", rp.dashboard),
		widget.NewCard("Hail Indicators", "Appurtenances and downspouts", rp.indicators),
		widget.NewCard("Exterior Photos", "", container.NewVBox(rp.exterior, addExterior)),
	))

	state.On(app.EventProjectLoaded, func(interface{}) { rp.Reload() })
	state.On(app.EventCleared, func(interface{}) { rp.Reload() })
	state.On(app.EventItemsChanged, func(interface{}) { rp.reloadStats() })
	state.On(app.EventPagesChanged, func(interface{}) { rp.reloadStats() })

	rp.Reload()
	return rp
}

// SetWindow sets the parent window for dialogs.
func (rp *ReportPanel) SetWindow(w fyne.Window) {
	rp.window = w
}

// Container returns the panel container.
func (rp *ReportPanel) Container() fyne.CanvasObject {
	return rp.container
}

// Reload rereads every report field.
func (rp *ReportPanel) Reload() {
	rp.syncing = true
	name, front, _ := rp.state.Report()
	rp.residence.SetText(name)
	rp.frontFaces.SetSelected(front)
	rp.syncing = false

	rp.reloadRoof()
	rp.reloadStats()
	rp.reloadExterior()
}

func (rp *ReportPanel) reloadRoof() {
	_, _, roof := rp.state.Report()
	rp.summary.SetText(roof.Summary())

	set := func(fn func(r *project.Roof)) {
		rp.state.UpdateRoof(fn)
		_, _, r := rp.state.Report()
		rp.summary.SetText(r.Summary())
	}

	covering := newSelect(codeOptions(project.Coverings), codeOption(project.Coverings, roof.Covering), func(s string) {
		set(func(r *project.Roof) { r.Covering = optionCode(s) })
		rp.reloadRoof()
	})
	form := widget.NewForm(widget.NewFormItem("Covering", covering))

	switch roof.Covering {
	case project.CoveringShingle:
		form.Append("Shingle Type", newSelect(codeOptions(project.ShingleKinds), codeOption(project.ShingleKinds, roof.ShingleKind), func(s string) {
			set(func(r *project.Roof) { r.ShingleKind = optionCode(s) })
		}))
		form.Append("Length", newSelect(project.ShingleLengths, roof.ShingleLength, func(s string) {
			set(func(r *project.Roof) { r.ShingleLength = s })
		}))
		form.Append("Exposure", newSelect(project.ShingleExposures, roof.ShingleExposure, func(s string) {
			set(func(r *project.Roof) { r.ShingleExposure = s })
		}))
	case project.CoveringMetal:
		form.Append("Metal Type", newSelect(codeOptions(project.MetalKinds), codeOption(project.MetalKinds, roof.MetalKind), func(s string) {
			set(func(r *project.Roof) { r.MetalKind = optionCode(s) })
		}))
		form.Append("Panel Width", newSelect(project.MetalPanelWidths, roof.MetalPanelWidth, func(s string) {
			set(func(r *project.Roof) { r.MetalPanelWidth = s })
		}))
	default:
		desc := newEntry(roof.OtherDesc, func(s string) {
			set(func(r *project.Roof) { r.OtherDesc = s })
		})
		desc.SetPlaceHolder("e.g., TPO, mod-bit, tile, etc.")
		form.Append("Describe", desc)
	}

	rp.roofBox.Objects = []fyne.CanvasObject{form}
	rp.roofBox.Refresh()
}

func (rp *ReportPanel) reloadStats() {
	stats := rp.state.Dashboard()
	cells := []fyne.CanvasObject{
		header("Dir"), header("TS Hits"), header("TS Max"),
		header("Creased"), header("Torn"), header("APT Max"), header("DS Max"),
	}
	for _, dir := range annotation.Directions {
		st := stats[dir]
		cells = append(cells,
			widget.NewLabel(dir),
			widget.NewLabel(fmt.Sprint(st.TestSquareHits)),
			widget.NewLabel(formatSize(st.TestSquareMaxHail)),
			widget.NewLabel(fmt.Sprint(st.WindCreased)),
			widget.NewLabel(fmt.Sprint(st.WindTornMissing)),
			widget.NewLabel(formatSize(st.AppurtenanceMax)),
			widget.NewLabel(formatSize(st.DownspoutMax)),
		)
	}
	rp.dashboard.Objects = cells
	rp.dashboard.Refresh()

	hail := rp.state.HailIndicators()
	cells = []fyne.CanvasObject{
		header("Dir"), header("APT Spatter"), header("APT Dent"), header("DS Spatter"), header("DS Dent"),
	}
	for _, dir := range annotation.CardinalDirections {
		h := hail[dir]
		cells = append(cells,
			widget.NewLabel(dir),
			widget.NewLabel(formatSize(h.Appurtenance.Spatter)),
			widget.NewLabel(formatSize(h.Appurtenance.Dent)),
			widget.NewLabel(formatSize(h.Downspout.Spatter)),
			widget.NewLabel(formatSize(h.Downspout.Dent)),
		)
	}
	rp.indicators.Objects = cells
	rp.indicators.Refresh()
}

func (rp *ReportPanel) reloadExterior() {
	var rows []fyne.CanvasObject
	for _, e := range rp.state.ExteriorPhotoList() {
		id := e.ID
		orientation := newSelect(project.Orientations, e.Orientation, func(s string) {
			rp.updateExterior(id, func(p *project.ExteriorPhoto) { p.Orientation = s }, false)
		})
		notes := newEntry(e.Notes, func(s string) {
			rp.updateExterior(id, func(p *project.ExteriorPhoto) { p.Notes = s }, false)
		})
		notes.SetPlaceHolder("Notes")

		label := widget.NewLabel(photoLabel(e.Photo))
		label.Truncation = fyne.TextTruncateEllipsis
		attach := widget.NewButton("Attach...", func() {
			pickPhoto(rp.window, rp.prefs, func(photo *annotation.Photo) {
				rp.updateExterior(id, func(p *project.ExteriorPhoto) { p.Photo = photo }, true)
			})
		})
		remove := widget.NewButton("Remove", func() {
			rp.state.RemoveExteriorPhoto(id)
			rp.reloadExterior()
		})
		rows = append(rows, widget.NewCard("", "", container.NewVBox(
			orientation,
			notes,
			container.NewBorder(nil, nil, nil, container.NewHBox(attach, remove), label),
		)))
	}
	if len(rows) == 0 {
		rows = append(rows, widget.NewLabel("No exterior photos."))
	}
	rp.exterior.Objects = rows
	rp.exterior.Refresh()
}

func (rp *ReportPanel) updateExterior(id string, patch func(p *project.ExteriorPhoto), rebuild bool) {
	if err := rp.state.UpdateExteriorPhoto(id, patch); err != nil {
		if rp.window != nil {
			dialog.ShowError(err, rp.window)
		}
		return
	}
	if rebuild {
		rp.reloadExterior()
	}
}

func header(text string) fyne.CanvasObject {
	return widget.NewLabelWithStyle(text, fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
}
