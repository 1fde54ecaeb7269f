package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/lovewrapped/internal/models"
)

var (
	_ tea.Msg = profilesLoadedMsg{}
)

// profilesLoadedMsg carries the result of one load through [Source].
//
// A nil partner with a nil partnerErr never happens; partnerErr is set instead.
type profilesLoadedMsg struct {
	me         *models.Profile
	meErr      error
	partner    *models.Profile
	partnerErr error
}
