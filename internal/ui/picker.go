package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ARMmbed/mbl-cli/internal/discovery"
)

// ErrPickerCancelled is returned by RunPicker when the user quits without
// choosing a device.
var ErrPickerCancelled = errors.New("no device chosen")

// ScanFunc runs one discovery window.
type ScanFunc func(ctx context.Context) ([]discovery.Device, error)

type scanCompleteMsg struct {
	devices []discovery.Device
	err     error
}

type pickerKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Choose key.Binding
	Rescan key.Binding
	Quit   key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k pickerKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Choose, k.Rescan, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k pickerKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Choose},
		{k.Rescan, k.Quit},
	}
}

type scanningKeyMap struct {
	Quit key.Binding
}

func (k scanningKeyMap) ShortHelp() []key.Binding  { return []key.Binding{k.Quit} }
func (k scanningKeyMap) FullHelp() [][]key.Binding { return [][]key.Binding{{k.Quit}} }

// deviceItem wraps a Device for use with bubbles/list. index is the
// 1-based position in discovery order, which filtering does not change.
type deviceItem struct {
	index  int
	device discovery.Device
}

func (d deviceItem) Title() string {
	return fmt.Sprintf("%d: %s", d.index, d.device.Name)
}

func (d deviceItem) Description() string { return d.device.Address }

func (d deviceItem) FilterValue() string {
	return d.device.Name + " " + d.device.Address
}

// PickerModel discovers devices and lets the user choose one.
type PickerModel struct {
	Scanning  bool
	ScanStart time.Time
	Window    time.Duration
	Devices   list.Model
	Err       error

	// Chosen is the 1-based index of the chosen device, 0 until one is chosen.
	Chosen int

	Width        int
	Height       int
	Spinner      spinner.Model
	ProgressBar  progress.Model
	Help         help.Model
	Keys         pickerKeyMap
	ScanningKeys scanningKeyMap

	ctx  context.Context
	scan ScanFunc
}

// NewPickerModel creates a picker that runs scan for each discovery window.
// window is only used for the progress display.
func NewPickerModel(ctx context.Context, scan ScanFunc, window time.Duration) PickerModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	progressBar := progress.New(progress.WithDefaultGradient())
	progressBar.Width = 40

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.Foreground(HighlightColor).BorderForeground(HighlightColor)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.Foreground(MutedColor).BorderForeground(HighlightColor)

	width, height := GetTerminalSize()
	devices := list.New([]list.Item{}, delegate, width, listHeight(height))
	devices.Title = "Discovered Devices"
	devices.Styles.Title = TitleStyle
	devices.SetShowStatusBar(false)
	devices.SetShowHelp(false)
	devices.SetFilteringEnabled(true)

	return PickerModel{
		Scanning:    true,
		ScanStart:   time.Now(),
		Window:      window,
		Devices:     devices,
		Width:       width,
		Height:      height,
		Spinner:     s,
		ProgressBar: progressBar,
		Help:        help.New(),
		Keys: pickerKeyMap{
			Up: key.NewBinding(
				key.WithKeys("up", "k"),
				key.WithHelp("↑/k", "move up"),
			),
			Down: key.NewBinding(
				key.WithKeys("down", "j"),
				key.WithHelp("↓/j", "move down"),
			),
			Choose: key.NewBinding(
				key.WithKeys("enter"),
				key.WithHelp("enter", "select"),
			),
			Rescan: key.NewBinding(
				key.WithKeys("r"),
				key.WithHelp("r", "rescan"),
			),
			// esc is left to the list: it clears a filter, or quits when unfiltered.
			Quit: key.NewBinding(
				key.WithKeys("q", "ctrl+c"),
				key.WithHelp("q", "quit"),
			),
		},
		ScanningKeys: scanningKeyMap{
			Quit: key.NewBinding(
				key.WithKeys("q", "esc", "ctrl+c"),
				key.WithHelp("q", "quit"),
			),
		},
		ctx:  ctx,
		scan: scan,
	}
}

func listHeight(height int) int {
	return max(height-8, 6)
}

// Init starts the first discovery window
func (m PickerModel) Init() tea.Cmd {
	return tea.Batch(m.scanCmd(), m.Spinner.Tick)
}

func (m PickerModel) scanCmd() tea.Cmd {
	ctx, scan := m.ctx, m.scan
	return func() tea.Msg {
		devices, err := scan(ctx)
		return scanCompleteMsg{devices: devices, err: err}
	}
}

// Update handles messages and updates the model
func (m PickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.Scanning {
			if key.Matches(msg, m.ScanningKeys.Quit) {
				return m, tea.Quit
			}
			return m, nil
		}
		if m.Devices.FilterState() != list.Filtering {
			switch {
			case key.Matches(msg, m.Keys.Quit):
				return m, tea.Quit
			case key.Matches(msg, m.Keys.Choose):
				if item, ok := m.Devices.SelectedItem().(deviceItem); ok {
					m.Chosen = item.index
					return m, tea.Quit
				}
				return m, nil
			case key.Matches(msg, m.Keys.Rescan):
				m.Scanning = true
				m.ScanStart = time.Now()
				m.Err = nil
				return m, tea.Batch(m.Devices.SetItems(nil), m.scanCmd(), m.Spinner.Tick)
			}
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Devices.SetSize(msg.Width-4, listHeight(msg.Height))
		return m, nil

	case scanCompleteMsg:
		m.Scanning = false
		m.Err = msg.err
		items := make([]list.Item, len(msg.devices))
		for i, d := range msg.devices {
			items[i] = deviceItem{index: i + 1, device: d}
		}
		return m, m.Devices.SetItems(items)

	case spinner.TickMsg:
		if !m.Scanning {
			return m, nil
		}
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	if !m.Scanning {
		m.Devices, cmd = m.Devices.Update(msg)
	}
	return m, cmd
}

// View renders the picker
func (m PickerModel) View() string {
	width := m.Width
	if width == 0 {
		width = MinTerminalWidth
	}

	var b strings.Builder
	if m.Scanning {
		b.WriteString(m.renderScanning(width))
		b.WriteString("\n")
		b.WriteString(m.Help.View(m.ScanningKeys))
		return b.String()
	}

	if len(m.Devices.Items()) == 0 {
		b.WriteString("\n  ")
		b.WriteString(WarningTitleStyle.Render(WarningMarker + " No devices found!"))
		b.WriteString("\n")
		if m.Err != nil && !errors.Is(m.Err, discovery.ErrNoDevices) {
			b.WriteString("  " + SubtitleStyle.Render(m.Err.Error()) + "\n")
		}
		b.WriteString("\n")
	} else {
		b.WriteString(m.Devices.View())
		b.WriteString("\n")
		if m.Err != nil {
			b.WriteString("  " + WarningTitleStyle.Render(WarningMarker+" Some advertisements were skipped") + "\n")
		}
	}

	b.WriteString(m.Help.View(m.Keys))
	return b.String()
}

func (m PickerModel) renderScanning(width int) string {
	elapsed := time.Since(m.ScanStart)
	fraction := 1.0
	if m.Window > 0 {
		fraction = min(1.0, float64(elapsed)/float64(m.Window))
	}

	content := lipgloss.JoinVertical(lipgloss.Center,
		"",
		TitleStyle.Render(m.Spinner.View()+" DISCOVERING DEVICES"),
		"",
		SubtitleStyle.Render(fmt.Sprintf("This will take up to %d seconds.", int(m.Window/time.Second))),
		"",
		m.ProgressBar.ViewAs(fraction),
		"",
	)
	return lipgloss.Place(width, 0, lipgloss.Center, lipgloss.Top, content)
}

// Selected returns the chosen device, if any
func (m PickerModel) Selected() (discovery.Device, bool) {
	if m.Chosen == 0 {
		return discovery.Device{}, false
	}
	for _, it := range m.Devices.Items() {
		if item, ok := it.(deviceItem); ok && item.index == m.Chosen {
			return item.device, true
		}
	}
	return discovery.Device{}, false
}

// RunPicker runs the picker until the user chooses a device or quits.
// Quitting returns ErrPickerCancelled, or the discovery error when nothing
// was found.
func RunPicker(ctx context.Context, scan ScanFunc, window time.Duration, opts ...tea.ProgramOption) (discovery.Device, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	final, err := tea.NewProgram(NewPickerModel(ctx, scan, window), opts...).Run()
	if err != nil {
		return discovery.Device{}, fmt.Errorf("device picker failed: %w", err)
	}

	m, ok := final.(PickerModel)
	if !ok {
		return discovery.Device{}, ErrPickerCancelled
	}
	if d, ok := m.Selected(); ok {
		return d, nil
	}
	if len(m.Devices.Items()) == 0 && m.Err != nil {
		return discovery.Device{}, m.Err
	}
	return discovery.Device{}, ErrPickerCancelled
}
