package panels

import (
	"fmt"
	"log"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"titanroof/internal/annotation"
	"titanroof/internal/app"
	"titanroof/internal/interact"
	"titanroof/ui/canvas"
	"titanroof/ui/prefs"
)

var arrowTypes = []string{"triangle", "circle", "box", "double"}

var damageModes = []string{
	string(annotation.DamageSpatter),
	string(annotation.DamageDent),
	string(annotation.DamageBoth),
}

// PropertySheet edits the selected item.
type PropertySheet struct {
	state  *app.State
	canvas *canvas.SheetCanvas
	prefs  *prefs.Prefs
	window fyne.Window
	logger *log.Logger

	box    *fyne.Container
	scroll *container.Scroll
	itemID string
}

// NewPropertySheet creates the property editor. It rebuilds when the
// selection changes or a project is loaded.
func NewPropertySheet(state *app.State, cvs *canvas.SheetCanvas, p *prefs.Prefs, logger *log.Logger) *PropertySheet {
	if logger == nil {
		logger = log.Default()
	}
	ps := &PropertySheet{
		state:  state,
		canvas: cvs,
		prefs:  p,
		logger: logger,
		box:    container.NewVBox(),
	}
	ps.scroll = container.NewVScroll(ps.box)
	ps.show("")

	state.On(app.EventSelectionChanged, func(data interface{}) {
		id, _ := data.(string)
		ps.show(id)
	})
	state.On(app.EventProjectLoaded, func(interface{}) { ps.show("") })
	state.On(app.EventCleared, func(interface{}) { ps.show("") })
	state.On(app.EventItemsChanged, func(data interface{}) {
		if data != nil || ps.itemID == "" {
			return
		}
		// Canvas edits only move geometry; rebuild if the item went away.
		if _, ok := state.Items.Get(ps.itemID); !ok {
			ps.show("")
		}
	})
	return ps
}

// SetWindow sets the parent window for dialogs.
func (ps *PropertySheet) SetWindow(w fyne.Window) {
	ps.window = w
}

// Container returns the panel container.
func (ps *PropertySheet) Container() fyne.CanvasObject {
	return ps.scroll
}

// ItemID returns the item being edited.
func (ps *PropertySheet) ItemID() string {
	return ps.itemID
}

func (ps *PropertySheet) show(id string) {
	ps.itemID = id
	it, ok := ps.state.Items.Get(id)
	if id == "" || !ok {
		ps.itemID = ""
		ps.box.Objects = []fyne.CanvasObject{
			widget.NewLabel("Select an item on the diagram."),
		}
		ps.box.Refresh()
		return
	}
	ps.box.Objects = ps.build(it)
	ps.box.Refresh()
}

// edit applies a field change to the item being shown.
func (ps *PropertySheet) edit(fn func(it *annotation.Item)) {
	id := ps.itemID
	err := ps.state.Items.Update(id, func(it *annotation.Item) error {
		fn(it)
		return nil
	})
	ps.changed(id, err, false)
}

// structural runs an edit that adds or removes rows, then rebuilds.
func (ps *PropertySheet) structural(fn func(id string) error) {
	id := ps.itemID
	ps.changed(id, fn(id), true)
}

func (ps *PropertySheet) changed(id string, err error, rebuild bool) {
	if err != nil {
		ps.logger.Printf("Properties: %s: %v", id, err)
		if ps.window != nil {
			dialog.ShowError(err, ps.window)
		}
		return
	}
	ps.state.ItemEdited(id)
	if rebuild {
		ps.show(id)
	}
	if ps.canvas != nil {
		ps.canvas.Refresh()
	}
}

func (ps *PropertySheet) build(it *annotation.Item) []fyne.CanvasObject {
	name := newEntry(it.Name, func(s string) {
		id := ps.itemID
		ps.changed(id, ps.state.Items.Rename(id, s), false)
	})
	locked := widget.NewCheck("Locked", nil)
	locked.SetChecked(it.Locked())
	locked.OnChanged = func(v bool) {
		id := ps.itemID
		ps.changed(id, ps.state.Items.SetLocked(id, v), false)
	}

	header := widget.NewCard(it.Type.Label(), "", container.NewVBox(
		widget.NewForm(widget.NewFormItem("Name", name)),
		locked,
	))

	objs := []fyne.CanvasObject{header}
	switch d := it.Data.(type) {
	case *annotation.TestSquare:
		objs = append(objs, ps.testSquare(d)...)
	case *annotation.Appurtenance:
		objs = append(objs, ps.appurtenance(d)...)
	case *annotation.Downspout:
		objs = append(objs, ps.downspout(d)...)
	case *annotation.WindMarker:
		objs = append(objs, ps.wind(d)...)
	case *annotation.Observation:
		objs = append(objs, ps.observation(d)...)
	}

	objs = append(objs, widget.NewButton("Delete "+it.Type.Label(), func() {
		if ps.canvas == nil {
			return
		}
		ps.canvas.Do(func(ctl *interact.Controller) {
			if err := ctl.DeleteSelected(); err != nil {
				ps.logger.Printf("Properties: delete: %v", err)
			}
		})
	}))
	return objs
}

func (ps *PropertySheet) testSquare(d *annotation.TestSquare) []fyne.CanvasObject {
	dir := newSelect(annotation.Directions, d.Dir, func(s string) {
		ps.edit(func(it *annotation.Item) { it.Data.(*annotation.TestSquare).Dir = s })
	})
	caption := ps.caption(d.Caption, func(it *annotation.Item, s string) {
		it.Data.(*annotation.TestSquare).Caption = s
	})

	bruises := container.NewVBox()
	for i, b := range d.Bruises {
		bruiseID := b.ID
		size := newSelect(annotation.HailSizes, b.Size, func(s string) {
			ps.changed(ps.itemID, ps.state.Items.SetBruiseSize(ps.itemID, bruiseID, s), false)
		})
		bruises.Add(container.NewBorder(nil, nil,
			widget.NewLabel(fmt.Sprintf("Hit %d", i+1)),
			widget.NewButton("Remove", func() {
				ps.structural(func(id string) error { return ps.state.Items.DeleteBruise(id, bruiseID) })
			}),
			container.NewVBox(size, ps.photoRow("Photo", b.Photo, annotation.Slot{Field: annotation.FieldBruise, EntryID: bruiseID})),
		))
	}
	addBruise := widget.NewButton("Add Hit", func() {
		ps.structural(func(id string) error {
			_, err := ps.state.Items.AddBruise(id)
			return err
		})
	})

	conditions := container.NewVBox()
	for _, c := range d.Conditions {
		condID := c.ID
		code := newSelect(codeOptions(annotation.TestSquareConditions), codeOption(annotation.TestSquareConditions, c.Code), func(s string) {
			ps.changed(ps.itemID, ps.state.Items.SetConditionCode(ps.itemID, condID, optionCode(s)), false)
		})
		conditions.Add(container.NewBorder(nil, nil, nil,
			widget.NewButton("Remove", func() {
				ps.structural(func(id string) error { return ps.state.Items.DeleteCondition(id, condID) })
			}),
			container.NewVBox(code, ps.photoRow("Photo", c.Photo, annotation.Slot{Field: annotation.FieldCondition, EntryID: condID})),
		))
	}
	addCondition := widget.NewButton("Add Condition", func() {
		ps.structural(func(id string) error {
			_, err := ps.state.Items.AddCondition(id)
			return err
		})
	})

	return []fyne.CanvasObject{
		widget.NewForm(
			widget.NewFormItem("Direction", dir),
			widget.NewFormItem("Notes", caption),
		),
		ps.photoRow("Overview", d.OverviewPhoto, annotation.Slot{Field: annotation.FieldOverview}),
		widget.NewCard("Hail Hits", fmt.Sprintf("%d recorded", len(d.Bruises)), container.NewVBox(bruises, addBruise)),
		widget.NewCard("Conditions", "", container.NewVBox(conditions, addCondition)),
	}
}

func (ps *PropertySheet) appurtenance(d *annotation.Appurtenance) []fyne.CanvasObject {
	kind := newSelect(codeOptions(annotation.AppurtenanceKinds), codeOption(annotation.AppurtenanceKinds, d.Kind), func(s string) {
		ps.edit(func(it *annotation.Item) { it.Data.(*annotation.Appurtenance).Kind = optionCode(s) })
	})
	dir := newSelect(annotation.Directions, d.Dir, func(s string) {
		ps.edit(func(it *annotation.Item) { it.Data.(*annotation.Appurtenance).Dir = s })
	})
	caption := ps.caption(d.Caption, func(it *annotation.Item, s string) {
		it.Data.(*annotation.Appurtenance).Caption = s
	})
	return []fyne.CanvasObject{
		widget.NewForm(
			widget.NewFormItem("Type", kind),
			widget.NewFormItem("Direction", dir),
			widget.NewFormItem("Notes", caption),
		),
		ps.photoRow("Detail", d.DetailPhoto, annotation.Slot{Field: annotation.FieldDetail}),
		ps.photoRow("Overview", d.OverviewPhoto, annotation.Slot{Field: annotation.FieldOverview}),
		ps.damageCard(d.DamageEntries),
	}
}

func (ps *PropertySheet) downspout(d *annotation.Downspout) []fyne.CanvasObject {
	index := newIntEntry(d.Index, func(n int) {
		ps.edit(func(it *annotation.Item) { it.Data.(*annotation.Downspout).Index = n })
	})
	dir := newSelect(annotation.Directions, d.Dir, func(s string) {
		ps.edit(func(it *annotation.Item) { it.Data.(*annotation.Downspout).Dir = s })
	})
	material := newSelect(annotation.DownspoutMaterials, d.Material, func(s string) {
		ps.edit(func(it *annotation.Item) { it.Data.(*annotation.Downspout).Material = s })
	})
	style := newSelect(annotation.DownspoutStyles, d.Style, func(s string) {
		ps.edit(func(it *annotation.Item) { it.Data.(*annotation.Downspout).Style = s })
	})
	termination := newSelect(annotation.DownspoutTerminations, d.Termination, func(s string) {
		ps.edit(func(it *annotation.Item) { it.Data.(*annotation.Downspout).Termination = s })
	})
	caption := ps.caption(d.Caption, func(it *annotation.Item, s string) {
		it.Data.(*annotation.Downspout).Caption = s
	})
	return []fyne.CanvasObject{
		widget.NewForm(
			widget.NewFormItem("Number", index),
			widget.NewFormItem("Direction", dir),
			widget.NewFormItem("Material", material),
			widget.NewFormItem("Style", style),
			widget.NewFormItem("Termination", termination),
			widget.NewFormItem("Notes", caption),
		),
		ps.photoRow("Detail", d.DetailPhoto, annotation.Slot{Field: annotation.FieldDetail}),
		ps.photoRow("Overview", d.OverviewPhoto, annotation.Slot{Field: annotation.FieldOverview}),
		ps.damageCard(d.DamageEntries),
	}
}

func (ps *PropertySheet) wind(d *annotation.WindMarker) []fyne.CanvasObject {
	dir := newSelect(annotation.Directions, d.Dir, func(s string) {
		ps.edit(func(it *annotation.Item) { it.Data.(*annotation.WindMarker).Dir = s })
	})
	creased := newIntEntry(d.CreasedCount, func(n int) {
		ps.edit(func(it *annotation.Item) { it.Data.(*annotation.WindMarker).CreasedCount = n })
	})
	torn := newIntEntry(d.TornMissingCount, func(n int) {
		ps.edit(func(it *annotation.Item) { it.Data.(*annotation.WindMarker).TornMissingCount = n })
	})
	caption := ps.caption(d.Caption, func(it *annotation.Item, s string) {
		it.Data.(*annotation.WindMarker).Caption = s
	})
	return []fyne.CanvasObject{
		widget.NewForm(
			widget.NewFormItem("Direction", dir),
			widget.NewFormItem("Creased", creased),
			widget.NewFormItem("Torn/Missing", torn),
			widget.NewFormItem("Notes", caption),
		),
		ps.photoRow("Overview", d.OverviewPhoto, annotation.Slot{Field: annotation.FieldOverview}),
		ps.photoRow("Creased", d.CreasedPhoto, annotation.Slot{Field: annotation.FieldCreased}),
		ps.photoRow("Torn/Missing", d.TornMissingPhoto, annotation.Slot{Field: annotation.FieldTornMissing}),
	}
}

func (ps *PropertySheet) observation(d *annotation.Observation) []fyne.CanvasObject {
	code := newSelect(codeOptions(annotation.ObservationCodes), codeOption(annotation.ObservationCodes, d.Code), func(s string) {
		ps.structural(func(id string) error {
			return ps.state.Items.Update(id, func(it *annotation.Item) error {
				it.Data.(*annotation.Observation).Code = optionCode(s)
				return nil
			})
		})
	})
	caption := ps.caption(d.Caption, func(it *annotation.Item, s string) {
		it.Data.(*annotation.Observation).Caption = s
	})
	form := widget.NewForm(
		widget.NewFormItem("Shape", widget.NewLabel(string(d.Kind))),
		widget.NewFormItem("Code", code),
	)
	objs := []fyne.CanvasObject{form}
	if d.Code == "DDM" {
		notice := widget.NewLabel("Deferred maintenance observations require a photo and caption.")
		notice.Wrapping = fyne.TextWrapWord
		objs = append(objs, notice)
	}

	if d.Kind == annotation.ObservationArrow {
		label := newEntry(d.Label, func(s string) {
			ps.edit(func(it *annotation.Item) { it.Data.(*annotation.Observation).Label = s })
		})
		label.SetPlaceHolder("e.g., Front entry, garage impact")
		position := widget.NewRadioGroup([]string{"start", "end"}, nil)
		position.Horizontal = true
		pos := d.ArrowLabelPosition
		if pos == "" {
			pos = annotation.DefaultArrowLabel
		}
		position.SetSelected(pos)
		position.OnChanged = func(s string) {
			if s == "" {
				return
			}
			ps.edit(func(it *annotation.Item) { it.Data.(*annotation.Observation).ArrowLabelPosition = s })
		}
		head := newSelect(arrowTypes, d.ArrowType, func(s string) {
			ps.edit(func(it *annotation.Item) { it.Data.(*annotation.Observation).ArrowType = s })
		})
		form.Append("Arrow Label", label)
		form.Append("Label At", position)
		form.Append("Arrow End", head)
	}
	form.Append("Notes", caption)

	return append(objs, ps.photoRow("Photo", d.Photo, annotation.Slot{Field: annotation.FieldPhoto}))
}

func (ps *PropertySheet) damageCard(entries []annotation.DamageEntry) fyne.CanvasObject {
	rows := container.NewVBox()
	for _, e := range entries {
		entryID := e.ID
		mode := newSelect(damageModes, string(e.Mode), func(s string) {
			ps.changed(ps.itemID, ps.state.Items.UpdateDamageEntry(ps.itemID, entryID, func(d *annotation.DamageEntry) {
				d.Mode = annotation.DamageMode(s)
			}), false)
		})
		size := newSelect(annotation.HailSizes, e.Size, func(s string) {
			ps.changed(ps.itemID, ps.state.Items.UpdateDamageEntry(ps.itemID, entryID, func(d *annotation.DamageEntry) {
				d.Size = s
			}), false)
		})
		rows.Add(container.NewBorder(nil, nil, nil,
			widget.NewButton("Remove", func() {
				ps.structural(func(id string) error { return ps.state.Items.DeleteDamageEntry(id, entryID) })
			}),
			container.NewVBox(
				container.NewGridWithColumns(2, mode, size),
				ps.photoRow("Photo", e.Photo, annotation.Slot{Field: annotation.FieldDamage, EntryID: entryID}),
			),
		))
	}
	add := widget.NewButton("Add Damage", func() {
		ps.structural(func(id string) error {
			_, err := ps.state.Items.AddDamageEntry(id, annotation.DamageSpatter)
			return err
		})
	})
	return widget.NewCard("Hail Damage", "", container.NewVBox(rows, add))
}

func (ps *PropertySheet) caption(text string, set func(it *annotation.Item, s string)) *widget.Entry {
	e := widget.NewMultiLineEntry()
	e.SetText(text)
	e.SetPlaceHolder("Short, objective note...")
	e.Wrapping = fyne.TextWrapWord
	e.OnChanged = func(s string) {
		ps.edit(func(it *annotation.Item) { set(it, s) })
	}
	return e
}

func (ps *PropertySheet) photoRow(title string, photo *annotation.Photo, slot annotation.Slot) fyne.CanvasObject {
	label := widget.NewLabel(photoLabel(photo))
	label.Truncation = fyne.TextTruncateEllipsis
	attach := widget.NewButton("Attach...", func() {
		pickPhoto(ps.window, ps.prefs, func(p *annotation.Photo) {
			ps.structural(func(id string) error { return ps.state.Items.SetPhoto(id, slot, p) })
		})
	})
	remove := widget.NewButton("Clear", func() {
		ps.structural(func(id string) error { return ps.state.Items.SetPhoto(id, slot, nil) })
	})
	if photo == nil {
		remove.Disable()
	}
	return container.NewBorder(nil, nil, widget.NewLabel(title+":"), container.NewHBox(attach, remove), label)
}

func newEntry(text string, onChanged func(string)) *widget.Entry {
	e := widget.NewEntry()
	e.SetText(text)
	e.OnChanged = onChanged
	return e
}

func newSelect(options []string, selected string, onChanged func(string)) *widget.Select {
	s := widget.NewSelect(options, nil)
	s.SetSelected(selected)
	s.OnChanged = onChanged
	return s
}

// newIntEntry edits a non-negative count. Invalid text is ignored.
func newIntEntry(value int, onChanged func(int)) *widget.Entry {
	e := widget.NewEntry()
	e.SetText(strconv.Itoa(value))
	e.OnChanged = func(s string) {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return
		}
		onChanged(n)
	}
	return e
}
