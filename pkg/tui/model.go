package tui

import (
	"context"
	"time"

	"acctview/pkg/chain"
	"acctview/pkg/config"
	"acctview/pkg/models"
	"acctview/pkg/session"
	"acctview/pkg/watcher"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Version is set by Start()
var Version = "dev"

// maxHistory bounds the total history kept for the graph.
const maxHistory = 500

// View is the part of the session the terminal UI drives.
type View interface {
	Snapshot() models.Snapshot
	Subscribe() session.Subscriber
	Unsubscribe(session.Subscriber)
	ToggleFavorite(ctx context.Context, address string) error
	SetFilter(filter string)
	Capabilities() chain.Capabilities
}

// AccountEditor adds and removes accounts.
type AccountEditor interface {
	Add(acc models.Account) error
	Remove(address string) error
}

// Options wires the UI to the running session.
type Options struct {
	View     View
	Accounts AccountEditor
	Watcher  *watcher.Watcher
	Chain    config.ChainConfig
	Global   config.GlobalConfig
	Version  string
}

// --- Messages ---

type clearStatusMsg struct{}
type sessionClosedMsg struct{}
type statusMsg string
type errMsg struct{ err error }

// --- Model ---

type model struct {
	view     View
	editor   AccountEditor
	watcher  *watcher.Watcher
	chain    config.ChainConfig
	config   config.GlobalConfig
	snapSub  session.Subscriber
	watchSub watcher.Subscriber

	snap       models.Snapshot
	cursor     int
	history    []float64
	lastRound  watcher.RoundStatus
	lastUpdate time.Time

	width         int
	height        int
	spinner       spinner.Model
	statusMessage string

	filtering     bool
	filterInput   textinput.Model
	adding        bool
	addInputs     []textinput.Model
	addFocus      int
	confirmRemove bool
	showGraph     bool
	showHelp      bool
	privacyMode   bool
}

func initialModel(opts Options) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	fi := textinput.New()
	fi.Placeholder = "name, address or tag"
	fi.Prompt = "/ "
	fi.Width = 40

	ais := make([]textinput.Model, 3)
	for i := range ais {
		ais[i] = textinput.New()
		ais[i].Width = 50
	}
	ais[0].Placeholder = "Address"
	ais[1].Placeholder = "Name (Optional)"
	ais[2].Placeholder = "Tags, comma separated (Optional)"

	m := model{
		view:        opts.View,
		editor:      opts.Accounts,
		watcher:     opts.Watcher,
		chain:       opts.Chain.WithDefaults(),
		config:      opts.Global,
		snap:        opts.View.Snapshot(),
		spinner:     s,
		filterInput: fi,
		addInputs:   ais,
	}
	m.snapSub = opts.View.Subscribe()
	if opts.Watcher != nil {
		m.watchSub = opts.Watcher.Subscribe()
	}
	return m
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{listenForSnapshots(m.snapSub), m.spinner.Tick}
	if m.watchSub != nil {
		cmds = append(cmds, listenForWatcher(m.watchSub))
	}
	return tea.Batch(cmds...)
}
