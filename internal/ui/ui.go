package ui

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/lovewrapped/internal/models"
	"github.com/desertthunder/lovewrapped/internal/profile"
	"github.com/desertthunder/lovewrapped/internal/shared"
	"github.com/desertthunder/lovewrapped/internal/store"
)

// Side is the cassette side currently shown.
type Side int

const (
	SideA Side = iota
	SideB
	MergedSide
)

func (s Side) String() string {
	switch s {
	case SideA:
		return "Side A"
	case SideB:
		return "Side B"
	default:
		return "Merged"
	}
}

// Source loads stored profiles. [profile.Service] implements it.
type Source interface {
	Load(ctx context.Context, slot store.Slot) (*models.Profile, error)
}

// Model represents the TUI application state.
type Model struct {
	ctx        context.Context
	source     Source
	side       Side
	loading    bool
	me         *models.Profile
	meErr      error
	partner    *models.Profile
	partnerErr error
	width      int
	height     int
	help       help.Model
	keys       keyMap
}

// NewModel creates a new TUI model reading from source.
func NewModel(ctx context.Context, source Source) *Model {
	return &Model{
		ctx:     ctx,
		source:  source,
		side:    SideA,
		loading: true,
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Init loads both profiles.
func (m *Model) Init() tea.Cmd {
	return m.load()
}

// Side returns the side currently shown.
func (m *Model) Side() Side {
	return m.side
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case profilesLoadedMsg:
		m.loading = false
		m.me, m.meErr = msg.me, msg.meErr
		m.partner, m.partnerErr = msg.partner, msg.partnerErr
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.flip):
			if m.side == SideA {
				m.side = SideB
			} else {
				m.side = SideA
			}
		case key.Matches(msg, m.keys.merge):
			m.side = MergedSide
		case key.Matches(msg, m.keys.reload):
			m.loading = true
			return m, m.load()
		case key.Matches(msg, m.keys.help):
			m.help.ShowAll = !m.help.ShowAll
		}
	}
	return m, nil
}

// View renders the current side.
func (m *Model) View() string {
	header := styles.title.Render(fmt.Sprintf("Mixtape for You 💖 - %s", m.side))
	helpView := m.help.View(m.keys)

	if m.loading {
		return fmt.Sprintf("%s\n%s\n\n%s", header, styles.help.Render("loading profiles..."), helpView)
	}

	var body string
	switch m.side {
	case SideA:
		body = m.renderSlot(m.me, m.meErr, "Run `wrapped profile build` to record Side A.")
	case SideB:
		body = m.renderSlot(m.partner, m.partnerErr, "Run `wrapped partner import <file>` to add Side B.")
	case MergedSide:
		body = m.renderMerged()
	}
	return fmt.Sprintf("%s\n%s\n\n%s", header, body, helpView)
}

func (m *Model) renderSlot(p *models.Profile, err error, hint string) string {
	if err != nil {
		if errors.Is(err, shared.ErrProfileNotFound) || errors.Is(err, shared.ErrNoPartner) {
			return styles.warn.Render("This side is blank.\n" + hint)
		}
		return styles.err.Render(fmt.Sprintf("Error: %v", err))
	}
	if p == nil {
		return styles.warn.Render(hint)
	}
	return RenderProfile(*p)
}

func (m *Model) renderMerged() string {
	if m.me == nil {
		return styles.warn.Render("Record Side A before merging.")
	}
	if m.partner == nil {
		return styles.warn.Render("No partner profile yet; import one to see your match.")
	}
	return RenderMerged(*m.me, *m.partner, profile.Merge(*m.me, *m.partner))
}

func (m *Model) load() tea.Cmd {
	return func() tea.Msg {
		var msg profilesLoadedMsg
		msg.me, msg.meErr = m.source.Load(m.ctx, store.SlotSelf)
		msg.partner, msg.partnerErr = m.source.Load(m.ctx, store.SlotPartner)
		return msg
	}
}
