// Package mainwindow provides the main application window.
package mainwindow

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"titanroof/internal/app"
	roofimage "titanroof/internal/image"
	"titanroof/internal/interact"
	"titanroof/internal/project"
	"titanroof/internal/version"
	"titanroof/pkg/geometry"
	"titanroof/ui/canvas"
	"titanroof/ui/panels"
	"titanroof/ui/prefs"
)

// MainWindow is the primary application window.
type MainWindow struct {
	fyne.Window
	app       fyne.App
	state     *app.State
	prefs     *prefs.Prefs
	logger    *log.Logger
	canvas    *canvas.SheetCanvas
	sidePanel *panels.SidePanel

	statusBar   *widget.Label
	cursorLabel *widget.Label
	savedLabel  *widget.Label

	toolButtons map[interact.Tool]*widget.Button
	obsPalette  *widget.RadioGroup
	split       *container.Split
}

// Options tunes the window. Zero values use defaults.
type Options struct {
	ResizeDebounce time.Duration
	Logger         *log.Logger
}

var toolOrder = []struct {
	tool  interact.Tool
	label string
}{
	{interact.ToolTestSquare, "Test Square"},
	{interact.ToolAppurtenance, "Appurtenance"},
	{interact.ToolDownspout, "Downspout"},
	{interact.ToolWind, "Wind"},
	{interact.ToolObservation, "Observation"},
}

var obsTools = []struct {
	tool  interact.ObservationTool
	label string
}{
	{interact.ObsDot, "Pin"},
	{interact.ObsArrow, "Arrow"},
	{interact.ObsPoly, "Area"},
}

// New creates a new main window.
func New(fyneApp fyne.App, state *app.State, p *prefs.Prefs, opts Options) *MainWindow {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	win := fyneApp.NewWindow(version.AppName())

	mw := &MainWindow{
		Window: win,
		app:    fyneApp,
		state:  state,
		prefs:  p,
		logger: opts.Logger,
	}

	mw.setupUI(opts.ResizeDebounce)
	mw.setupMenus()
	mw.setupKeys()
	mw.setupEventHandlers()
	mw.restoreObservationTool()
	mw.updateTitle()
	mw.updateSaveMark()

	return mw
}

// SheetCanvas returns the sheet widget.
func (mw *MainWindow) SheetCanvas() *canvas.SheetCanvas {
	return mw.canvas
}

// setupUI creates the main UI layout.
func (mw *MainWindow) setupUI(debounce time.Duration) {
	mw.canvas = canvas.NewSheetCanvas(mw.state, debounce, mw.logger)

	// Create the side panel with tabs
	mw.sidePanel = panels.NewSidePanel(mw.state, mw.canvas, mw.prefs, mw.logger)
	mw.sidePanel.SetWindow(mw.Window)

	// Create status bar
	mw.statusBar = widget.NewLabel("Ready")
	mw.cursorLabel = widget.NewLabel("")
	mw.savedLabel = widget.NewLabel("")
	mw.canvas.OnCursor(func(norm geometry.Point2D, ok bool) {
		if !ok {
			mw.cursorLabel.SetText("")
			return
		}
		mw.cursorLabel.SetText(fmt.Sprintf("x %.3f  y %.3f", norm.X, norm.Y))
	})

	// Canvas area with toolbar on top
	canvasArea := container.NewBorder(
		mw.createToolbar(), // top
		nil,                // bottom
		nil,                // left
		nil,                // right
		mw.canvas,          // center
	)

	// Create main layout: side panel | canvas area
	mw.split = container.NewHSplit(
		mw.sidePanel.Container(),
		canvasArea,
	)
	offset := 0.25
	if mw.prefs != nil {
		offset = mw.prefs.FloatWithFallback(prefs.KeySplitOffset, offset)
	}
	mw.split.SetOffset(offset)

	// Main container with status bar at bottom
	status := container.NewBorder(nil, nil, nil,
		container.NewHBox(mw.cursorLabel, mw.savedLabel),
		mw.statusBar,
	)
	content := container.NewBorder(
		nil,                         // top
		container.NewPadded(status), // bottom
		nil,                         // left
		nil,                         // right
		mw.split,                    // center
	)

	mw.SetContent(content)
}

// createToolbar creates the tool buttons, observation palette and zoom
// controls.
func (mw *MainWindow) createToolbar() fyne.CanvasObject {
	mw.toolButtons = make(map[interact.Tool]*widget.Button)
	tools := container.NewHBox()
	for _, t := range toolOrder {
		tool := t.tool
		btn := widget.NewButton(t.label, func() { mw.onSelectTool(tool) })
		mw.toolButtons[tool] = btn
		tools.Add(btn)
	}

	labels := make([]string, len(obsTools))
	for i, o := range obsTools {
		labels[i] = o.label
	}
	mw.obsPalette = widget.NewRadioGroup(labels, nil)
	mw.obsPalette.Horizontal = true
	mw.obsPalette.OnChanged = func(label string) {
		for _, o := range obsTools {
			if o.label == label {
				mw.onObservationTool(o.tool)
			}
		}
	}
	mw.obsPalette.Hide()

	zoomOutBtn := widget.NewButton("-", mw.onZoomOut)
	zoomInBtn := widget.NewButton("+", mw.onZoomIn)
	fitBtn := widget.NewButton("Fit", mw.onZoomFit)
	actualBtn := widget.NewButton("1:1", mw.onActualSize)

	return container.NewVBox(
		container.NewBorder(nil, nil, tools, container.NewHBox(
			widget.NewLabel("Zoom:"),
			zoomOutBtn,
			zoomInBtn,
			fitBtn,
			actualBtn,
		)),
		mw.obsPalette,
	)
}

// setupMenus creates the application menus.
func (mw *MainWindow) setupMenus() {
	// File menu
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("New Diagram", mw.onNewDiagram),
		fyne.NewMenuItem("Open Project...", mw.onOpenProject),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Add Pages...", mw.onAddPages),
		fyne.NewMenuItem("Set Page Background...", mw.onSetBackground),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Save", mw.onSave),
		fyne.NewMenuItem("Export Project...", mw.onExportProject),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Quit", func() { mw.app.Quit() }),
	)

	// Edit menu
	editMenu := fyne.NewMenu("Edit",
		fyne.NewMenuItem("Delete Selected", mw.onDeleteSelected),
		fyne.NewMenuItem("Cancel Tool", mw.onEscape),
	)

	viewMenu := fyne.NewMenu("View",
		fyne.NewMenuItem("Zoom In", mw.onZoomIn),
		fyne.NewMenuItem("Zoom Out", mw.onZoomOut),
		fyne.NewMenuItem("Fit to Window", mw.onZoomFit),
		fyne.NewMenuItem("Actual Size", mw.onActualSize),
	)

	// Tools menu
	var toolItems []*fyne.MenuItem
	for _, t := range toolOrder {
		tool := t.tool
		toolItems = append(toolItems, fyne.NewMenuItem(t.label, func() { mw.onSelectTool(tool) }))
	}
	toolItems = append(toolItems, fyne.NewMenuItemSeparator())
	for _, o := range obsTools {
		obs := o.tool
		toolItems = append(toolItems, fyne.NewMenuItem("Observation "+o.label, func() {
			mw.canvas.Do(func(ctl *interact.Controller) {
				if ctl.Tools().Current() != interact.ToolObservation {
					ctl.Tools().Select(interact.ToolObservation)
				}
			})
			mw.onObservationTool(obs)
		}))
	}
	toolsMenu := fyne.NewMenu("Tools", toolItems...)

	pagesMenu := fyne.NewMenu("Pages",
		fyne.NewMenuItem("Previous Page", func() { mw.stepPage(mw.state.Document.Prev) }),
		fyne.NewMenuItem("Next Page", func() { mw.stepPage(mw.state.Document.Next) }),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Insert Blank Page", func() {
			mw.stepPage(func() bool {
				mw.state.Document.InsertBlankPageAfter()
				return true
			})
		}),
		fyne.NewMenuItem("Rotate Page", func() {
			deg := mw.state.Document.RotateActivePage()
			mw.state.PagesChanged()
			mw.updateStatus(fmt.Sprintf("Page rotated to %d°", deg))
		}),
	)

	// Help menu
	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mw.onAbout),
	)

	mainMenu := fyne.NewMainMenu(fileMenu, editMenu, viewMenu, toolsMenu, pagesMenu, helpMenu)
	mw.SetMainMenu(mainMenu)
}

func (mw *MainWindow) setupKeys() {
	mw.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		switch ev.Name {
		case fyne.KeyEscape:
			mw.onEscape()
		case fyne.KeyDelete, fyne.KeyBackspace:
			mw.onDeleteSelected()
		}
	})
}

// setupEventHandlers registers for application events.
func (mw *MainWindow) setupEventHandlers() {
	mw.state.On(app.EventProjectLoaded, func(data interface{}) {
		source, _ := data.(string)
		mw.updateTitle()
		mw.updateSaveMark()
		mw.canvas.Refresh()
		switch source {
		case app.SourceRestored:
			mw.updateStatus("Restored autosaved diagram")
		default:
			mw.updateStatus("Project loaded")
		}
	})

	mw.state.On(app.EventProjectSaved, func(data interface{}) {
		mw.updateSaveMark()
		mw.updateTitle()
		if path, ok := data.(string); ok && strings.HasSuffix(path, project.Extension) {
			mw.updateStatus("Exported " + filepath.Base(path))
		}
	})

	mw.state.On(app.EventModified, func(interface{}) { mw.updateTitle() })
	mw.state.On(app.EventItemsChanged, func(interface{}) {
		mw.canvas.Refresh()
		mw.syncTools()
	})
	mw.state.On(app.EventPagesChanged, func(interface{}) { mw.canvas.Refresh() })
	mw.state.On(app.EventCleared, func(interface{}) {
		mw.updateSaveMark()
		mw.updateStatus("Diagram cleared")
	})
}

// updateStatus updates the status bar text.
func (mw *MainWindow) updateStatus(text string) {
	mw.statusBar.SetText(text)
}

func (mw *MainWindow) updateTitle() {
	name, _, _ := mw.state.Report()
	title := version.AppName() + " - " + name
	if mw.state.IsModified() {
		title += " *"
	}
	mw.SetTitle(title)
}

func (mw *MainWindow) updateSaveMark() {
	mark := mw.state.SaveMark()
	if mark == nil {
		mw.savedLabel.SetText("Not saved")
		return
	}
	mw.savedLabel.SetText(fmt.Sprintf("Saved %s (%s)", mark.At.Format("15:04:05"), mark.Source))
}

// syncTools highlights the armed tool and shows the observation palette.
func (mw *MainWindow) syncTools() {
	tools := mw.state.Controller.Tools()
	for tool, btn := range mw.toolButtons {
		want := widget.MediumImportance
		if tools.Current() == tool {
			want = widget.HighImportance
		}
		if btn.Importance != want {
			btn.Importance = want
			btn.Refresh()
		}
	}
	if tools.PaletteOpen() {
		for _, o := range obsTools {
			if o.tool == tools.ObservationTool() && mw.obsPalette.Selected != o.label {
				onChanged := mw.obsPalette.OnChanged
				mw.obsPalette.OnChanged = nil
				mw.obsPalette.SetSelected(o.label)
				mw.obsPalette.OnChanged = onChanged
			}
		}
		mw.obsPalette.Show()
	} else {
		mw.obsPalette.Hide()
	}
}

func (mw *MainWindow) restoreObservationTool() {
	if mw.prefs == nil {
		return
	}
	saved := interact.ObservationTool(mw.prefs.String(prefs.KeyObservationTool))
	for _, o := range obsTools {
		if o.tool == saved {
			mw.canvas.Do(func(ctl *interact.Controller) { ctl.Tools().SetObservationTool(saved) })
		}
	}
}

// Menu action handlers

func (mw *MainWindow) onSelectTool(tool interact.Tool) {
	mw.canvas.Do(func(ctl *interact.Controller) { ctl.Tools().Select(tool) })
	mw.syncTools()
}

func (mw *MainWindow) onObservationTool(tool interact.ObservationTool) {
	mw.canvas.Do(func(ctl *interact.Controller) { ctl.Tools().SetObservationTool(tool) })
	if mw.prefs != nil {
		mw.prefs.SetString(prefs.KeyObservationTool, string(tool))
		if err := mw.prefs.Save(); err != nil {
			mw.logger.Printf("Prefs: %v", err)
		}
	}
	mw.syncTools()
}

func (mw *MainWindow) onEscape() {
	mw.canvas.Do(func(ctl *interact.Controller) { ctl.Escape() })
	mw.syncTools()
}

func (mw *MainWindow) onDeleteSelected() {
	var err error
	mw.canvas.Do(func(ctl *interact.Controller) { err = ctl.DeleteSelected() })
	if err != nil {
		dialog.ShowError(err, mw.Window)
	}
}

func (mw *MainWindow) stepPage(step func() bool) {
	if !step() {
		return
	}
	mw.canvas.Do(func(ctl *interact.Controller) {
		ctl.Escape()
		ctl.ClearSelection()
	})
	mw.state.PagesChanged()
	mw.syncTools()
}

func (mw *MainWindow) onNewDiagram() {
	dialog.ShowConfirm("New Diagram",
		"Remove every page and item and discard the autosaved diagram?\nReport fields are kept.",
		func(ok bool) {
			if !ok {
				return
			}
			if err := mw.state.ClearDiagram(context.Background()); err != nil {
				dialog.ShowError(err, mw.Window)
			}
			mw.syncTools()
		}, mw.Window)
}

func (mw *MainWindow) onOpenProject() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		reader.Close()
		path := reader.URI().Path()
		panels.SaveLastDir(mw.prefs, reader.URI())
		if err := mw.state.LoadProject(context.Background(), path); err != nil {
			dialog.ShowError(err, mw.Window)
		}
	}, mw.Window)
	fd.SetFilter(storage.NewExtensionFileFilter([]string{project.Extension, ".json"}))
	if loc := panels.LastDir(mw.prefs); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onAddPages() {
	panels.ShowOpen(mw.Window, mw.prefs, roofimage.SupportedExtensions(), func(f roofimage.File) {
		n := mw.state.Document.AddPagesFromFiles(context.Background(), []roofimage.File{f})
		if n == 0 {
			dialog.ShowError(fmt.Errorf("%s: no pages added", f.Name), mw.Window)
			return
		}
		mw.pagesAdded(fmt.Sprintf("Added %d page(s) from %s", n, f.Name))
	})
}

func (mw *MainWindow) onSetBackground() {
	panels.ShowOpen(mw.Window, mw.prefs, roofimage.SupportedExtensions(), func(f roofimage.File) {
		n := mw.state.Document.SetBackground(context.Background(), f)
		if n == 0 {
			dialog.ShowError(fmt.Errorf("%s: not usable as a background", f.Name), mw.Window)
			return
		}
		mw.pagesAdded("Background set from " + f.Name)
	})
}

// pagesAdded refreshes after a page import. Uploaded PDFs are already
// rasterized by the document.
func (mw *MainWindow) pagesAdded(status string) {
	mw.canvas.Do(func(ctl *interact.Controller) { ctl.ClearSelection() })
	mw.state.PagesChanged()
	mw.updateStatus(status)
}

func (mw *MainWindow) onSave() {
	if err := mw.state.Save(context.Background(), app.SourceManual); err != nil {
		dialog.ShowError(err, mw.Window)
		return
	}
	mw.updateStatus("Saved")
}

func (mw *MainWindow) onExportProject() {
	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			return
		}
		writer.Close()
		path := writer.URI().Path()
		if filepath.Ext(path) != project.Extension {
			path += project.Extension
		}
		panels.SaveLastDir(mw.prefs, writer.URI())
		if err := mw.state.SaveProject(path); err != nil {
			dialog.ShowError(err, mw.Window)
		}
	}, mw.Window)
	fd.SetFileName(mw.state.ExportName())
	if loc := panels.LastDir(mw.prefs); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onZoomIn() {
	mw.canvas.ZoomIn()
}

func (mw *MainWindow) onZoomOut() {
	mw.canvas.ZoomOut()
}

func (mw *MainWindow) onZoomFit() {
	mw.canvas.ZoomFit()
}

func (mw *MainWindow) onActualSize() {
	mw.canvas.ZoomReset()
}

// SaveLayout remembers the side panel width.
func (mw *MainWindow) SaveLayout() {
	if mw.prefs == nil {
		return
	}
	mw.prefs.SetFloat(prefs.KeySplitOffset, mw.split.Offset)
	if err := mw.prefs.Save(); err != nil {
		mw.logger.Printf("Prefs: %v", err)
	}
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About TitanRoof",
		fmt.Sprintf("%s\n\n"+
			"Roof inspection diagrams: test squares, appurtenances,\n"+
			"downspouts, wind damage and observations.\n\n"+
			"Built: %s\n"+
			"Commit: %s",
			version.AppName(), version.BuildTime, version.GitCommit),
		mw.Window)
}
