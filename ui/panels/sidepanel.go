// Package panels provides UI panels for the application.
package panels

import (
	"fmt"
	"log"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"titanroof/internal/annotation"
	"titanroof/internal/app"
	"titanroof/internal/document"
	"titanroof/internal/interact"
	"titanroof/ui/canvas"
	"titanroof/ui/prefs"
)

// SidePanel provides the main side panel with tabbed sections.
type SidePanel struct {
	state     *app.State
	canvas    *canvas.SheetCanvas
	container *container.AppTabs

	// Tab content
	itemsPanel  *ItemsPanel
	properties  *PropertySheet
	pagesPanel  *PagesPanel
	reportPanel *ReportPanel
}

// NewSidePanel creates a new side panel.
func NewSidePanel(state *app.State, cvs *canvas.SheetCanvas, p *prefs.Prefs, logger *log.Logger) *SidePanel {
	sp := &SidePanel{
		state:  state,
		canvas: cvs,
	}

	// Create individual panels
	sp.itemsPanel = NewItemsPanel(state, cvs)
	sp.properties = NewPropertySheet(state, cvs, p, logger)
	sp.pagesPanel = NewPagesPanel(state, cvs)
	sp.reportPanel = NewReportPanel(state, p)

	// Create tabbed container
	propsTab := container.NewTabItem("Properties", sp.properties.Container())
	sp.container = container.NewAppTabs(
		container.NewTabItem("Items", sp.itemsPanel.Container()),
		propsTab,
		container.NewTabItem("Pages", sp.pagesPanel.Container()),
		container.NewTabItem("Report", sp.reportPanel.Container()),
	)

	// Jump to the editor when something new is selected on the sheet.
	state.On(app.EventSelectionChanged, func(data interface{}) {
		if id, _ := data.(string); id != "" {
			sp.container.Select(propsTab)
		}
	})

	return sp
}

// Container returns the panel container.
func (sp *SidePanel) Container() fyne.CanvasObject {
	return sp.container
}

// SetWindow sets the parent window for dialogs.
func (sp *SidePanel) SetWindow(w fyne.Window) {
	sp.properties.SetWindow(w)
	sp.reportPanel.SetWindow(w)
}

// Properties returns the item editor.
func (sp *SidePanel) Properties() *PropertySheet {
	return sp.properties
}

// ItemsPanel lists the items on the active page.
type ItemsPanel struct {
	state     *app.State
	canvas    *canvas.SheetCanvas
	container fyne.CanvasObject

	list    *widget.List
	summary *widget.Label
	items   []*annotation.Item
	syncing bool
}

// NewItemsPanel creates the item list.
func NewItemsPanel(state *app.State, cvs *canvas.SheetCanvas) *ItemsPanel {
	ip := &ItemsPanel{
		state:   state,
		canvas:  cvs,
		summary: widget.NewLabel(""),
	}

	ip.list = widget.NewList(
		func() int {
			return len(ip.items)
		},
		func() fyne.CanvasObject {
			return widget.NewLabel("Item")
		},
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			if id < len(ip.items) {
				obj.(*widget.Label).SetText(itemSummary(ip.items[id]))
			}
		},
	)

	ip.list.OnSelected = func(id widget.ListItemID) {
		if ip.syncing || id >= len(ip.items) {
			return
		}
		itemID := ip.items[id].ID
		if state.Controller.Selected() == itemID || ip.canvas == nil {
			return
		}
		ip.canvas.Do(func(ctl *interact.Controller) { ctl.Select(itemID) })
	}

	ip.container = container.NewBorder(ip.summary, nil, nil, nil, ip.list)

	state.On(app.EventItemsChanged, func(interface{}) { ip.Reload() })
	state.On(app.EventPagesChanged, func(interface{}) { ip.Reload() })
	state.On(app.EventSelectionChanged, func(data interface{}) {
		id, _ := data.(string)
		ip.syncSelection(id)
	})

	ip.Reload()
	return ip
}

// Container returns the panel container.
func (ip *ItemsPanel) Container() fyne.CanvasObject {
	return ip.container
}

// Reload rereads the active page's items.
func (ip *ItemsPanel) Reload() {
	items := ip.state.ActiveItems()
	sortItems(items)
	ip.items = items

	damaged := 0
	for _, it := range items {
		if isDamaged(it) {
			damaged++
		}
	}
	ip.summary.SetText(fmt.Sprintf("%d items, %d with hail damage", len(items), damaged))
	ip.list.Refresh()
	ip.syncSelection(ip.state.Controller.Selected())
}

// Items returns the listed items in display order.
func (ip *ItemsPanel) Items() []*annotation.Item {
	return ip.items
}

func (ip *ItemsPanel) syncSelection(id string) {
	ip.syncing = true
	defer func() { ip.syncing = false }()
	for i, it := range ip.items {
		if it.ID == id {
			ip.list.Select(i)
			return
		}
	}
	ip.list.UnselectAll()
}

// PagesPanel manages the page list and the active page's map background.
type PagesPanel struct {
	state     *app.State
	canvas    *canvas.SheetCanvas
	container fyne.CanvasObject

	list  *widget.List
	pages []*document.Page

	nameEntry  *widget.Entry
	mapEnabled *widget.Check
	mapAddress *widget.Entry
	mapZoom    *widget.Slider
	mapType    *widget.RadioGroup
	syncing    bool
}

// NewPagesPanel creates the page panel.
func NewPagesPanel(state *app.State, cvs *canvas.SheetCanvas) *PagesPanel {
	pp := &PagesPanel{
		state:  state,
		canvas: cvs,
	}

	pp.list = widget.NewList(
		func() int {
			return len(pp.pages)
		},
		func() fyne.CanvasObject {
			return widget.NewLabel("Page")
		},
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			if id < len(pp.pages) {
				obj.(*widget.Label).SetText(pageLabel(id, pp.pages[id]))
			}
		},
	)
	pp.list.OnSelected = func(id widget.ListItemID) {
		if pp.syncing || id >= len(pp.pages) {
			return
		}
		pp.activate(pp.pages[id].ID)
	}

	pp.nameEntry = widget.NewEntry()
	pp.nameEntry.OnSubmitted = func(name string) {
		if err := state.Document.RenamePage(state.Document.ActivePageID(), name); err == nil {
			state.PagesChanged()
		}
	}

	pp.mapEnabled = widget.NewCheck("Use map as background", func(v bool) {
		pp.updateMap(func(m *document.Map) { m.Enabled = v })
	})
	pp.mapAddress = widget.NewEntry()
	pp.mapAddress.SetPlaceHolder("Street address")
	pp.mapAddress.OnSubmitted = func(s string) {
		pp.updateMap(func(m *document.Map) { m.Address = s })
	}
	pp.mapZoom = widget.NewSlider(document.MinMapZoom, document.MaxMapZoom)
	pp.mapZoom.Step = 1
	pp.mapZoom.OnChanged = func(v float64) {
		pp.updateMap(func(m *document.Map) { m.Zoom = int(v) })
	}
	pp.mapType = widget.NewRadioGroup([]string{string(document.MapRoadmap), string(document.MapSatellite)}, func(s string) {
		if s != "" {
			pp.updateMap(func(m *document.Map) { m.Type = document.MapType(s) })
		}
	})
	pp.mapType.Horizontal = true

	prevBtn := widget.NewButton("Prev", func() {
		if state.Document.Prev() {
			pp.pageSwitched()
		}
	})
	nextBtn := widget.NewButton("Next", func() {
		if state.Document.Next() {
			pp.pageSwitched()
		}
	})
	insertBtn := widget.NewButton("Insert Blank", func() {
		state.Document.InsertBlankPageAfter()
		pp.pageSwitched()
	})
	rotateBtn := widget.NewButton("Rotate", func() {
		state.Document.RotateActivePage()
		state.PagesChanged()
		pp.refreshCanvas()
	})

	pp.container = container.NewBorder(
		container.NewVBox(
			container.NewGridWithColumns(4, prevBtn, nextBtn, insertBtn, rotateBtn),
			widget.NewForm(widget.NewFormItem("Name", pp.nameEntry)),
		),
		widget.NewCard("Map Background", "", container.NewVBox(
			pp.mapEnabled,
			pp.mapAddress,
			widget.NewLabel("Zoom:"),
			pp.mapZoom,
			pp.mapType,
		)),
		nil, nil,
		pp.list,
	)

	state.On(app.EventPagesChanged, func(interface{}) { pp.Reload() })
	pp.Reload()
	return pp
}

// Container returns the panel container.
func (pp *PagesPanel) Container() fyne.CanvasObject {
	return pp.container
}

// Reload rereads pages and the active page's settings.
func (pp *PagesPanel) Reload() {
	pp.syncing = true
	defer func() { pp.syncing = false }()

	pp.pages = pp.state.Document.Pages()
	pp.list.Refresh()
	pp.list.Select(pp.state.Document.ActiveIndex())

	page := pp.state.Document.ActivePage()
	if page == nil {
		return
	}
	pp.nameEntry.SetText(page.Name)
	pp.mapEnabled.SetChecked(page.Map.Enabled)
	pp.mapAddress.SetText(page.Map.Address)
	pp.mapZoom.SetValue(float64(page.Map.Zoom))
	pp.mapType.SetSelected(string(page.Map.Type))
}

func (pp *PagesPanel) activate(id string) {
	if id == pp.state.Document.ActivePageID() {
		return
	}
	if err := pp.state.Document.SetActive(id); err != nil {
		return
	}
	pp.pageSwitched()
}

// pageSwitched drops a selection left on the previous page.
func (pp *PagesPanel) pageSwitched() {
	if pp.canvas != nil {
		pp.canvas.Do(func(ctl *interact.Controller) {
			ctl.Escape()
			ctl.ClearSelection()
		})
	}
	pp.state.PagesChanged()
}

func (pp *PagesPanel) updateMap(patch func(m *document.Map)) {
	if pp.syncing {
		return
	}
	if err := pp.state.Document.UpdateMap(pp.state.Document.ActivePageID(), patch); err != nil {
		return
	}
	pp.state.PagesChanged()
	pp.refreshCanvas()
}

func (pp *PagesPanel) refreshCanvas() {
	if pp.canvas != nil {
		pp.canvas.Refresh()
	}
}

func pageLabel(i int, p *document.Page) string {
	label := fmt.Sprintf("%d. %s", i+1, p.Name)
	switch document.ActiveVisual(p) {
	case document.VisualMap:
		label += "  (map)"
	case document.VisualNone:
		label += "  (blank)"
	}
	if p.Rotation != 0 {
		label += fmt.Sprintf("  %d°", p.Rotation)
	}
	return label
}
