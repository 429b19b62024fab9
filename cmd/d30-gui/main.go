package main

import (
	"context"
	"fmt"
	"image"
	"net/url"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
	"github.com/rs/zerolog"

	"d30-print/internal/config"
	"d30-print/internal/imaging"
	"d30-print/internal/printer"
	"d30-print/internal/protocol"
	"d30-print/internal/raster"
)

const (
	AppVersion = "0.3.0"
	AppName    = "D30 Label Print"
)

type App struct {
	fyneApp    fyne.App
	window     fyne.Window
	store      *config.Store
	log        zerolog.Logger
	ctx        context.Context
	cancel     context.CancelFunc
	sourceImg  image.Image
	previewImg *canvas.Image

	// Widgets that need updating
	statusLabel    *widget.Label
	printBtn       *widget.Button
	textEntry      *widget.Entry
	fontEntry      *widget.Entry
	fontSizeSlider *widget.Slider
	fruitCheck     *widget.Check
	deviceEntry    *widget.Entry
	adapterEntry   *widget.Entry
	thresholdSlide *widget.Slider
	ditherCheck    *widget.Check
	invertCheck    *widget.Check

	// Image tab keeps its own source so switching tabs does not lose it
	loadedImg image.Image
	imageMode bool

	applying bool // widgets are being set from reloaded preferences
}

func main() {
	a := app.New()
	w := a.NewWindow(fmt.Sprintf("%s v%s", AppName, AppVersion))
	w.Resize(fyne.NewSize(700, 520))

	store, err := config.NewStore(config.DefaultConfigPath())
	if err != nil {
		// a broken preferences file should not keep the app from starting
		store, _ = config.NewStore("")
	}

	ctx, cancel := context.WithCancel(context.Background())
	d30App := &App{
		fyneApp: a,
		window:  w,
		store:   store,
		log:     config.NewLogger(store.Get().LogLevel),
		ctx:     ctx,
		cancel:  cancel,
	}
	if err != nil {
		d30App.log.Warn().Err(err).Msg("preferences not loaded, using defaults")
	}

	w.SetMainMenu(d30App.buildMenu())
	w.SetContent(d30App.buildUI())
	d30App.watchPreferences()
	w.SetOnClosed(func() {
		d30App.cleanup()
	})
	w.ShowAndRun()
}

func (a *App) buildMenu() *fyne.MainMenu {
	aboutItem := fyne.NewMenuItem("About", func() {
		a.showAboutDialog()
	})

	helpMenu := fyne.NewMenu("Help", aboutItem)

	return fyne.NewMainMenu(helpMenu)
}

func (a *App) showAboutDialog() {
	content := container.NewVBox(
		widget.NewLabelWithStyle(AppName, fyne.TextAlignCenter, fyne.TextStyle{Bold: true}),
		widget.NewLabel(fmt.Sprintf("Version %s", AppVersion)),
		widget.NewSeparator(),
		widget.NewLabel("A label printing app for the Phomemo D30 thermal printer."),
		widget.NewLabel(""),
		widget.NewLabel("Protocol notes from:"),
		widget.NewHyperlink("polskafan/phomemo_d30", parseURL("https://github.com/polskafan/phomemo_d30")),
		widget.NewLabel(""),
		widget.NewLabel("Built with Fyne and Go"),
	)

	dialog.ShowCustom("About", "Close", content, a.window)
}

func parseURL(urlStr string) *url.URL {
	u, _ := url.Parse(urlStr)
	return u
}

func (a *App) cleanup() {
	a.cancel()
}

func (a *App) buildUI() fyne.CanvasObject {
	cfg := a.store.Get()

	a.statusLabel = widget.NewLabel("Ready")

	// === PRINTER SECTION ===
	a.deviceEntry = widget.NewEntry()
	a.deviceEntry.SetPlaceHolder("AA:BB:CC:DD:EE:FF")
	a.deviceEntry.SetText(cfg.DeviceMAC)
	a.deviceEntry.OnChanged = func(s string) {
		a.savePreferences()
	}

	a.adapterEntry = widget.NewEntry()
	a.adapterEntry.SetPlaceHolder("11:22:33:44:55:66")
	a.adapterEntry.SetText(cfg.AdapterMAC)
	a.adapterEntry.OnChanged = func(s string) {
		a.savePreferences()
	}

	printerForm := widget.NewForm(
		widget.NewFormItem("Printer MAC", a.deviceEntry),
		widget.NewFormItem("Adapter MAC", a.adapterEntry),
	)

	// === TEXT TAB ===
	a.textEntry = widget.NewMultiLineEntry()
	a.textEntry.SetPlaceHolder("Enter label text...")
	a.textEntry.SetMinRowsVisible(3)
	a.textEntry.OnChanged = func(s string) {
		a.updateTextPreview()
	}

	a.fontEntry = widget.NewEntry()
	a.fontEntry.SetPlaceHolder("Go Regular")
	a.fontEntry.SetText(cfg.FontPath)
	a.fontEntry.OnChanged = func(s string) {
		a.savePreferences()
		a.updateTextPreview()
	}
	browseBtn := widget.NewButton("Browse", func() {
		a.browseFont()
	})
	fontRow := container.NewBorder(nil, nil, nil, browseBtn, a.fontEntry)

	a.fontSizeSlider = widget.NewSlider(8, 96)
	a.fontSizeSlider.Value = cfg.FontSize
	a.fontSizeSlider.OnChanged = func(f float64) {
		a.savePreferences()
		a.updateTextPreview()
	}

	a.fruitCheck = widget.NewCheck("Fruit label", func(b bool) {
		a.savePreferences()
		a.updateTextPreview()
	})
	a.fruitCheck.Checked = cfg.Fruit

	previewBtn := widget.NewButton("Preview", func() {
		a.imageMode = false
		a.updateTextPreview()
	})

	textSettings := widget.NewForm(
		widget.NewFormItem("Font", fontRow),
		widget.NewFormItem("Font Size", a.fontSizeSlider),
		widget.NewFormItem("", a.fruitCheck),
	)

	textTab := container.NewVBox(
		a.textEntry,
		textSettings,
		previewBtn,
	)

	// === IMAGE TAB ===
	loadBtn := widget.NewButton("Load Image", func() {
		a.loadImage()
	})

	imageTab := container.NewVBox(
		loadBtn,
		widget.NewLabel("Landscape images are rotated to fit the 12mm head."),
	)

	tabs := container.NewAppTabs(
		container.NewTabItem("Text", textTab),
		container.NewTabItem("Image", imageTab),
	)
	tabs.OnSelected = func(t *container.TabItem) {
		a.imageMode = t.Text == "Image"
		if a.imageMode {
			a.sourceImg = a.loadedImg
			a.updatePreview()
		} else {
			a.updateTextPreview()
		}
	}

	// === CONVERSION SETTINGS ===
	a.thresholdSlide = widget.NewSlider(0, 255)
	a.thresholdSlide.Value = float64(cfg.Threshold)
	a.thresholdSlide.OnChanged = func(f float64) {
		a.savePreferences()
		a.updatePreview()
	}

	a.ditherCheck = widget.NewCheck("Dither", func(b bool) {
		a.savePreferences()
		a.updatePreview()
	})
	a.ditherCheck.Checked = cfg.Dither

	a.invertCheck = widget.NewCheck("Invert", func(b bool) {
		a.savePreferences()
		a.updatePreview()
	})
	a.invertCheck.Checked = cfg.Invert

	// Print button
	a.printBtn = widget.NewButton("Print", func() {
		a.print()
	})
	a.printBtn.Importance = widget.HighImportance
	a.printBtn.Disable()

	// Preview
	a.previewImg = canvas.NewImageFromImage(nil)
	a.previewImg.SetMinSize(fyne.NewSize(320, 96))
	a.previewImg.FillMode = canvas.ImageFillContain
	a.previewImg.ScaleMode = canvas.ImageScalePixels

	leftPanel := container.NewVBox(
		widget.NewLabel("Bluetooth Printer"),
		printerForm,
		widget.NewSeparator(),
		widget.NewLabel("Threshold"),
		a.thresholdSlide,
		a.ditherCheck,
		a.invertCheck,
		widget.NewSeparator(),
		a.printBtn,
	)

	rightPanel := container.NewBorder(
		tabs,
		nil, nil, nil,
		container.NewCenter(a.previewImg),
	)

	content := container.NewHSplit(leftPanel, rightPanel)
	content.SetOffset(0.36)

	return container.NewBorder(
		nil,
		container.NewHBox(a.statusLabel),
		nil, nil,
		content,
	)
}

// currentConfig folds the widget state into the stored preferences
func (a *App) currentConfig() config.Config {
	cfg := a.store.Get()
	cfg.DeviceMAC = a.deviceEntry.Text
	cfg.AdapterMAC = a.adapterEntry.Text
	cfg.FontPath = a.fontEntry.Text
	cfg.FontSize = a.fontSizeSlider.Value
	cfg.Fruit = a.fruitCheck.Checked
	cfg.Threshold = int(a.thresholdSlide.Value)
	cfg.Dither = a.ditherCheck.Checked
	cfg.Invert = a.invertCheck.Checked
	return cfg
}

func (a *App) savePreferences() {
	// widgets fire OnChanged while the UI is still being built
	if a.invertCheck == nil || a.applying {
		return
	}
	if err := a.store.Update(a.currentConfig()); err != nil {
		a.log.Warn().Err(err).Msg("save preferences")
	}
}

// watchPreferences picks up edits made to the config file while the app runs
func (a *App) watchPreferences() {
	path := a.store.Path()
	if path == "" {
		return
	}
	err := config.Watch(a.ctx, path, a.log, func(config.FileConfig) {
		if err := a.store.Reload(); err != nil {
			a.log.Warn().Err(err).Msg("reload preferences")
			return
		}
		cfg := a.store.Get()
		if a.currentConfig() == cfg {
			return // our own save
		}
		a.applyConfig(cfg)
		a.statusLabel.SetText("Preferences reloaded")
	})
	if err != nil {
		a.log.Warn().Err(err).Msg("preferences watcher disabled")
	}
}

func (a *App) applyConfig(cfg config.Config) {
	a.applying = true
	defer func() { a.applying = false }()
	a.deviceEntry.SetText(cfg.DeviceMAC)
	a.adapterEntry.SetText(cfg.AdapterMAC)
	a.fontEntry.SetText(cfg.FontPath)
	a.fontSizeSlider.SetValue(cfg.FontSize)
	a.fruitCheck.SetChecked(cfg.Fruit)
	a.thresholdSlide.SetValue(float64(cfg.Threshold))
	a.ditherCheck.SetChecked(cfg.Dither)
	a.invertCheck.SetChecked(cfg.Invert)
}

func (a *App) browseFont() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, a.window)
			return
		}
		if reader == nil {
			return
		}
		defer reader.Close()
		a.fontEntry.SetText(reader.URI().Path())
	}, a.window)

	fd.SetFilter(storage.NewExtensionFileFilter([]string{".ttf", ".otf"}))
	fd.Show()
}

func (a *App) loadImage() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, a.window)
			return
		}
		if reader == nil {
			return
		}
		defer reader.Close()

		img, _, err := image.Decode(reader)
		if err != nil {
			dialog.ShowError(err, a.window)
			return
		}

		a.loadedImg = img
		a.sourceImg = img
		a.imageMode = true
		a.updatePreview()
	}, a.window)

	fd.SetFilter(storage.NewExtensionFileFilter([]string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".webp"}))
	fd.Show()
}

// printable returns the source image upright for the print head
func (a *App) printable() image.Image {
	if a.sourceImg == nil {
		return nil
	}
	b := a.sourceImg.Bounds()
	if b.Dx() > b.Dy() {
		return imaging.ForPrint(a.sourceImg)
	}
	return a.sourceImg
}

func (a *App) normalize(cfg config.Config, width int) (*raster.Raster, error) {
	return imaging.Normalize(a.printable(), width, imaging.NormalizeOptions{
		Threshold: uint8(cfg.Threshold),
		Dither:    cfg.Dither,
		Invert:    cfg.Invert,
	})
}

func (a *App) updatePreview() {
	if a.sourceImg == nil || a.previewImg == nil {
		return
	}
	cfg := a.currentConfig()
	r, err := a.normalize(cfg, protocol.D30.DotWidth)
	if err != nil {
		a.statusLabel.SetText(fmt.Sprintf("Preview error: %v", err))
		return
	}

	// show the label the way it reads on the tape
	a.previewImg.Image = rotateForDisplay(imaging.Preview(r))
	a.previewImg.Refresh()
	a.printBtn.Enable()
}

func (a *App) updateTextPreview() {
	if a.textEntry == nil || a.imageMode {
		return
	}
	text := a.textEntry.Text
	if text == "" {
		return
	}
	cfg := a.currentConfig()
	size := imaging.StandardLabel
	if cfg.Fruit {
		size = imaging.FruitLabel
	}

	img, err := imaging.RenderLabel(text, imaging.LabelOptions{
		FontPath: cfg.FontPath,
		FontSize: cfg.FontSize,
		Size:     size,
	})
	if err != nil {
		a.statusLabel.SetText(fmt.Sprintf("Render error: %v", err))
		return
	}

	a.sourceImg = img
	a.updatePreview()
}

func (a *App) print() {
	if a.sourceImg == nil {
		dialog.ShowError(fmt.Errorf("nothing to print"), a.window)
		return
	}

	cfg := a.currentConfig()
	if err := cfg.ValidateForPrint(); err != nil {
		dialog.ShowError(err, a.window)
		return
	}
	profile, err := cfg.Profile()
	if err != nil {
		dialog.ShowError(err, a.window)
		return
	}
	r, err := a.normalize(cfg, profile.DotWidth)
	if err != nil {
		dialog.ShowError(err, a.window)
		return
	}
	enc, err := protocol.NewEncoder(profile)
	if err != nil {
		dialog.ShowError(err, a.window)
		return
	}

	var d printer.Dialer = printer.RFCOMMDialer{Channel: profile.Channel}
	if cfg.Transport == config.TransportSerial {
		d = printer.SerialDialer{BaudRate: cfg.BaudRate}
	}
	job := &printer.Job{
		Dialer:  d,
		Encoder: enc,
		Adapter: cfg.AdapterMAC,
		Device:  cfg.Remote(),
		Logger:  a.log,
	}

	a.statusLabel.SetText(fmt.Sprintf("Printing to %s...", cfg.Remote()))
	a.printBtn.Disable()

	go func() {
		err := job.Run(a.ctx, r)

		if err != nil {
			a.statusLabel.SetText(fmt.Sprintf("Print error: %v", err))
		} else {
			a.statusLabel.SetText("Print complete! " + strconv.Itoa(r.Height()) + " rows sent")
		}
		a.printBtn.Enable()
	}()
}

// rotateForDisplay turns the upright print raster back into reading
// orientation.
func rotateForDisplay(src image.Image) image.Image {
	b := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dy(), b.Dx()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			// inverse of a counter-clockwise turn
			dst.Set(b.Max.Y-1-y, x-b.Min.X, src.At(x, y))
		}
	}
	return dst
}
