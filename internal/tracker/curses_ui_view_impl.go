package tracker

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/lowaak/fitkage/fitkage-app/internal/fillglass"
	"github.com/lowaak/fitkage/fitkage-app/internal/steps"
)

const progressBarWidth = 24

// CursesUIViewImpl implements UIViewImpl using tview (curses-based terminal UI)
type CursesUIViewImpl struct {
	logger *log.Logger
	app    *tview.Application
	model  *UIModel
	glass  *fillglass.Glass
	clock  func() time.Time

	mainFlex *tview.Flex

	statsPanel *tview.TextView
	toastView  *tview.TextView
	helpView   *tview.TextView
	glassView  *GlassPrimitive
	logView    *tview.TextView

	mu          sync.Mutex
	stats       steps.Stats
	sensorState SensorStatus
}

func NewCursesUIView(logger *log.Logger, app *tview.Application, model *UIModel, glass *fillglass.Glass, clock func() time.Time) *CursesUIViewImpl {
	if clock == nil {
		clock = time.Now
	}
	return &CursesUIViewImpl{
		logger: logger,
		app:    app,
		model:  model,
		glass:  glass,
		clock:  clock,
	}
}

// Initialize sets up the tview widgets
func (ui *CursesUIViewImpl) Initialize(controller *UIController) {
	// Note: Don't use SetChangedFunc with app.Draw() - it can cause hangs during shutdown.
	// The BaseUIView's event listeners already call Draw() after updating content.
	ui.logView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false)
	ui.logView.SetBorder(true).SetTitle(" Logs ")

	ui.statsPanel = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	ui.statsPanel.SetBorder(true).SetTitle(" Steps ")
	ui.statsPanel.SetMouseCapture(func(action tview.MouseAction, event *tcell.EventMouse) (tview.MouseAction, *tcell.EventMouse) {
		switch action {
		case tview.MouseLeftDown:
			controller.OnStepsPress(true, ui.clock())
		case tview.MouseLeftUp:
			controller.OnStepsPress(false, ui.clock())
		}
		return action, event
	})
	ui.renderStats()

	ui.toastView = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)

	ui.helpView = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	ui.helpView.SetText(formatKeyBindings(KeyBindings))

	ui.glassView = NewGlassPrimitive(ui.glass, ui.clock)
	ui.glassView.SetBorder(true).SetTitle(" Water ")

	leftColumn := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(ui.statsPanel, 0, 1, true).
		AddItem(ui.toastView, 1, 0, false).
		AddItem(ui.helpView, 1, 0, false)

	top := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(leftColumn, 0, 1, true).
		AddItem(ui.glassView, 0, 1, false)

	ui.mainFlex = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(top, 0, 2, true).
		AddItem(ui.logView, 0, 1, false)
}

func formatKeyBindings(bindings []KeyBinding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		parts = append(parts, fmt.Sprintf("[yellow]%s[white] %s", b.Key, b.Description))
	}
	return strings.Join(parts, "  |  ")
}

// SetupKeyboardHandlers sets up keyboard event handlers
func (ui *CursesUIViewImpl) SetupKeyboardHandlers(controller *UIController) {
	ui.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEscape {
			controller.OnEscapeKey()
			return nil
		}

		if event.Key() == tcell.KeyRune {
			switch event.Rune() {
			case 'd', 'D':
				controller.OnDrinkKey()
				return nil
			case 's':
				controller.OnStepsTapped()
				return nil
			case 'R', 'S':
				controller.OnStepsLongPressed()
				return nil
			}
		}

		return event
	})
}

// GetLogViewHeight returns the visible height of the log view
func (ui *CursesUIViewImpl) GetLogViewHeight() int {
	_, _, _, height := ui.logView.GetInnerRect()
	return height
}

// ClearLogView clears the log view
func (ui *CursesUIViewImpl) ClearLogView() {
	ui.logView.Clear()
}

// WriteLogLine writes a line to the log view
func (ui *CursesUIViewImpl) WriteLogLine(line string) error {
	_, err := fmt.Fprint(ui.logView, tview.Escape(line))
	return err
}

// UpdateStats updates the steps panel
func (ui *CursesUIViewImpl) UpdateStats(stats steps.Stats) {
	ui.mu.Lock()
	ui.stats = stats
	ui.mu.Unlock()
	ui.renderStats()
}

// UpdateSensorStatus updates the sensor line of the steps panel
func (ui *CursesUIViewImpl) UpdateSensorStatus(status SensorStatus) {
	ui.mu.Lock()
	ui.sensorState = status
	ui.mu.Unlock()
	ui.renderStats()
}

func (ui *CursesUIViewImpl) renderStats() {
	if ui.statsPanel == nil {
		return
	}
	ui.mu.Lock()
	text := formatStatsPanel(ui.stats, ui.sensorState)
	ui.mu.Unlock()
	ui.statsPanel.SetText(text)
}

// formatStatsPanel renders the steps panel text
func formatStatsPanel(stats steps.Stats, sensor SensorStatus) string {
	var b strings.Builder
	b.WriteString("\n")
	fmt.Fprintf(&b, "  [gray]Steps:[white]    [yellow]%d[white]\n\n", stats.Steps)
	fmt.Fprintf(&b, "  [gray]Distance:[white] [yellow]%s[white]\n\n", steps.FormatDistance(stats.DistanceMetres))
	fmt.Fprintf(&b, "  [gray]Time:[white]     [yellow]%s[white]\n\n", steps.FormatElapsed(stats.Elapsed))

	if stats.Goal > 0 {
		fmt.Fprintf(&b, "  [gray]Goal:[white]     %s %d / %d\n", progressBar(stats.Steps, stats.Goal, progressBarWidth), stats.Steps, stats.Goal)
		if stats.GoalReached {
			b.WriteString("            [green]Goal reached[white]\n")
		}
	} else {
		b.WriteString("  [gray]Goal:[white]     [gray]none[white]\n")
	}

	b.WriteString("\n")
	switch {
	case sensor.Name == "":
		b.WriteString("  [gray]Sensor: starting...[white]\n")
	case sensor.Available:
		fmt.Fprintf(&b, "  [green]●[white] %s\n", tview.Escape(sensor.Name))
	default:
		fmt.Fprintf(&b, "  [red]●[white] %s [gray](%s)[white]\n", tview.Escape(sensor.Name), tview.Escape(sensor.Detail))
	}
	return b.String()
}

// progressBar draws value against total as a fixed-width bar.
func progressBar(value, total, width int) string {
	if total <= 0 || width <= 0 {
		return ""
	}
	filled := value * width / total
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}
	return "[green]" + strings.Repeat("█", filled) + "[gray]" + strings.Repeat("░", width-filled) + "[white]"
}

// ShowToast shows a toast below the steps panel
func (ui *CursesUIViewImpl) ShowToast(toast Toast) {
	ui.toastView.SetText("[black:yellow] " + tview.Escape(toast.Message) + " [-:-]")
}

// ClearToast hides the toast
func (ui *CursesUIViewImpl) ClearToast() {
	ui.toastView.Clear()
}

// Draw refreshes/redraws the UI
func (ui *CursesUIViewImpl) Draw() error {
	ui.app.Draw()
	return nil
}

// Run starts the UI and blocks until it exits
func (ui *CursesUIViewImpl) Run() error {
	// SetRoot must be called before setting focus, otherwise focus may be reset
	ui.app.SetRoot(ui.mainFlex, true).EnableMouse(true)
	ui.app.SetFocus(ui.statsPanel)
	return ui.app.Run()
}

// Stop stops the UI framework
func (ui *CursesUIViewImpl) Stop() {
	ui.app.Stop()
}
