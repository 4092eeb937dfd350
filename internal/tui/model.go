// Package tui is the interactive piano: the keyboard view, the record/play
// button and the status lines, driven by a bubbletea program.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/audiolibrelab/jampiano/internal/keyboard"
	"github.com/audiolibrelab/jampiano/internal/midi"
	"github.com/audiolibrelab/jampiano/internal/service"
	"github.com/audiolibrelab/jampiano/internal/session"
)

// Screen geometry, in cells from the top-left corner
const (
	margin      = 1
	keyboardTop = 2
	buttonRow   = keyboardTop + keyboard.KeyRows + 1

	resetLabel = "[ RESET ]"
	noticeTTL  = 3 * time.Second
)

// Input is a source of hardware keyboard notes and hot-plug events
type Input interface {
	Notes() <-chan midi.NoteEvent
	Events() <-chan midi.DeviceEvent
}

// Model is the root bubbletea model
type Model struct {
	svc     service.Service
	input   Input
	release time.Duration

	// note -> generation of the key press holding it
	held    map[int]uint64
	holdGen uint64

	mouseNote int

	device    string
	notice    string
	noticeGen uint64

	width    int
	height   int
	quitting bool
}

// New creates the model. input may be nil when no hardware keyboard is watched.
func New(svc service.Service, input Input) Model {
	release := time.Duration(svc.GetConfig().MIDI.ReleaseMs) * time.Millisecond
	if release <= 0 {
		release = 400 * time.Millisecond
	}
	return Model{
		svc:       svc,
		input:     input,
		release:   release,
		held:      make(map[int]uint64),
		mouseNote: -1,
	}
}

// Init starts listening for playback completions and hardware input
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{listenForCompletions(m.svc.Completions())}
	if m.input != nil {
		cmds = append(cmds, listenForNotes(m.input.Notes()), listenForDevices(m.input.Events()))
	}
	return tea.Batch(cmds...)
}

func listenForCompletions(ch <-chan session.Completion) tea.Cmd {
	return func() tea.Msg {
		c := <-ch
		return PlaybackDoneMsg{Completion: c}
	}
}

func listenForNotes(ch <-chan midi.NoteEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return ExternalNoteMsg(ev)
	}
}

func listenForDevices(ch <-chan midi.DeviceEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return DeviceEventMsg(ev)
	}
}

func releaseCmd(d time.Duration, note int, gen uint64) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return releaseMsg{note: note, gen: gen}
	})
}

func clearNoticeCmd(gen uint64) tea.Cmd {
	return tea.Tick(noticeTTL, func(time.Time) tea.Msg {
		return clearNoticeMsg{gen: gen}
	})
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case PlaybackDoneMsg:
		m.svc.HandleCompletion(msg.Completion)
		return m, listenForCompletions(m.svc.Completions())

	case releaseMsg:
		if gen, ok := m.held[msg.note]; ok && gen == msg.gen {
			delete(m.held, msg.note)
			m.svc.NoteOff(msg.note)
		}
		return m, nil

	case ExternalNoteMsg:
		if msg.On {
			m.svc.NoteOnVelocity(int(msg.Note), int(msg.Velocity))
		} else {
			m.svc.NoteOff(int(msg.Note))
		}
		return m, listenForNotes(m.input.Notes())

	case DeviceEventMsg:
		if msg.Type == midi.DeviceConnected {
			m.device = msg.Name
		} else if m.device == msg.Name {
			m.device = ""
		}
		cmd := m.setNotice(fmt.Sprintf("Keyboard %s: %s", msg.Type, msg.Name))
		return m, tea.Batch(cmd, listenForDevices(m.input.Events()))

	case clearNoticeMsg:
		if msg.gen == m.noticeGen {
			m.notice = ""
		}
		return m, nil
	}

	return m, nil
}

// handleKey processes key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	switch key {
	case KeyQuit, KeyCtrlC:
		m.quitting = true
		return m, tea.Quit

	case KeyPrimary:
		m.svc.PressPrimaryButton()
		return m, nil

	case KeyReset, KeyResetAlt:
		m.svc.Reset()
		cmd := m.setNotice("Session reset")
		return m, cmd

	case KeyOctaveDown, KeyLeft:
		cmd := m.shiftOctave(keyboard.Down)
		return m, cmd

	case KeyOctaveUp, KeyRight:
		cmd := m.shiftOctave(keyboard.Up)
		return m, cmd

	case KeySave:
		cmd := m.save()
		return m, cmd
	}

	if note, ok := m.svc.Keyboard().NoteForKey(key); ok {
		cmd := m.hold(note)
		return m, cmd
	}
	return m, nil
}

// hold starts a note, or keeps a held one sounding on key repeat
func (m *Model) hold(note int) tea.Cmd {
	if _, ok := m.held[note]; !ok {
		m.svc.NoteOn(note)
	}
	m.holdGen++
	m.held[note] = m.holdGen
	return releaseCmd(m.release, note, m.holdGen)
}

// handleMouse plays keys and presses the buttons
func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return m, nil
		}
		if key, ok := m.svc.Keyboard().HitTest(msg.X-margin, msg.Y-keyboardTop); ok {
			m.releaseMouse()
			m.mouseNote = key.Note
			m.svc.NoteOn(key.Note)
			return m, nil
		}
		if msg.Y == buttonRow {
			primary := primaryButton(m.svc.Status().Label)
			resetX := margin + len(primary) + 1
			switch {
			case msg.X >= margin && msg.X < margin+len(primary):
				m.svc.PressPrimaryButton()
			case msg.X >= resetX && msg.X < resetX+len(resetLabel):
				m.svc.Reset()
				cmd := m.setNotice("Session reset")
				return m, cmd
			}
		}

	case tea.MouseActionRelease:
		m.releaseMouse()
	}
	return m, nil
}

func (m *Model) releaseMouse() {
	if m.mouseNote >= 0 {
		m.svc.NoteOff(m.mouseNote)
		m.mouseNote = -1
	}
}

func (m *Model) shiftOctave(dir keyboard.Direction) tea.Cmd {
	if notice := m.svc.OctaveShift(dir); notice != "" {
		return m.setNotice(notice)
	}
	return nil
}

func (m *Model) save() tea.Cmd {
	rec, err := m.svc.Save(context.Background())
	if err != nil {
		if errors.Is(err, service.ErrNothingToSave) {
			return m.setNotice("Record a take before saving")
		}
		slog.Error("Save failed", "error", err)
		return nil
	}
	return m.setNotice(fmt.Sprintf("Saved recording %d to %s", rec.Number, filepath.Base(rec.Path)))
}

func (m *Model) setNotice(text string) tea.Cmd {
	m.noticeGen++
	m.notice = text
	return clearNoticeCmd(m.noticeGen)
}

func primaryButton(label string) string {
	return fmt.Sprintf("[ %-6s ]", label)
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	status := m.svc.Status()
	pad := strings.Repeat(" ", margin)

	var lines []string

	title := titleStyle.Render("jampiano")
	if profile := m.svc.GetConfig().Profile; profile != "" {
		title += statusStyle.Render("  " + profile)
	}
	lines = append(lines, pad+title, "")

	for _, row := range m.renderKeyboard() {
		lines = append(lines, pad+row)
	}
	lines = append(lines, "")

	// Buttons
	lines = append(lines, pad+m.renderPrimary(status)+" "+resetButtonStyle.Render(resetLabel))

	// Duration, octave and input device
	kb := m.svc.Keyboard()
	keys := kb.Keys()
	info := fmt.Sprintf("%-10s  octave %d  %s-%s", status.Info, status.Octave,
		keyboard.NoteName(keys[0].Note), keyboard.NoteName(keys[len(keys)-1].Note))
	if m.device != "" {
		info += "  midi in: " + m.device
	}
	if status.Recordings > 0 {
		info += fmt.Sprintf("  saved: %d", status.Recordings)
	}
	lines = append(lines, pad+statusStyle.Render(info))

	switch {
	case status.LastError != "":
		lines = append(lines, pad+errorStyle.Render(status.LastError))
	case m.notice != "":
		lines = append(lines, pad+noticeStyle.Render(m.notice))
	default:
		lines = append(lines, "")
	}

	help := "keys:play  space:" + strings.ToLower(status.Label) + "  bksp:reset  z/x:octave  v:save  q:quit"
	lines = append(lines, "", pad+dimStyle.Render(help))

	return strings.Join(lines, "\n") + "\n"
}

func (m Model) renderPrimary(status service.Status) string {
	text := primaryButton(status.Label)
	switch status.State {
	case session.ReadyToRecord:
		return recordButtonStyle.Render(text)
	case session.ReadyToPlay:
		return playButtonStyle.Render(text)
	default:
		return stopButtonStyle.Render(text)
	}
}

// renderKeyboard draws KeyRows rows, black keys overlapping the top of the white ones
func (m Model) renderKeyboard() []string {
	kb := m.svc.Keyboard()
	width := kb.Width()

	rows := make([]string, 0, keyboard.KeyRows)
	for row := 0; row < keyboard.KeyRows; row++ {
		var b strings.Builder
		for x := 0; x < width; x++ {
			b.WriteString(m.renderCell(kb, x, row))
		}
		rows = append(rows, b.String())
	}
	return rows
}

func (m Model) renderCell(kb *keyboard.Keyboard, x, row int) string {
	key, ok := kb.HitTest(x, row)
	if !ok {
		return whiteKeyEdgeStyle.Render("│")
	}
	_, pressed := m.held[key.Note]
	pressed = pressed || key.Note == m.mouseNote

	// Black keys are centered on a white key boundary
	boundary := x%keyboard.WhiteKeyWidth == 0

	if key.Accidental {
		ch := " "
		if row == keyboard.BlackKeyRows-1 && boundary {
			ch = key.Binding
		}
		if pressed {
			return pressedKeyStyle.Render(ch)
		}
		return blackKeyStyle.Render(ch)
	}

	if boundary {
		return whiteKeyEdgeStyle.Render("│")
	}
	ch := " "
	if row == keyboard.KeyRows-1 && x%keyboard.WhiteKeyWidth == keyboard.WhiteKeyWidth/2 {
		ch = key.Binding
	}
	if pressed {
		return pressedKeyStyle.Render(ch)
	}
	return whiteKeyStyle.Render(ch)
}
