package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/haricheung/taskrank/internal/render"
)

var (
	colorHigh   = lipgloss.Color("#f7768e")
	colorMedium = lipgloss.Color("#e0af68")
	colorLow    = lipgloss.Color("#9ece6a")
	colorMuted  = lipgloss.Color("#565f89")
	colorAccent = lipgloss.Color("#7aa2f7")
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	accentStyle  = lipgloss.NewStyle().Foreground(colorAccent)
	bannerStyle  = lipgloss.NewStyle().Foreground(colorHigh).Bold(true)
	noticeStyle  = lipgloss.NewStyle().Foreground(colorMedium).Bold(true)
	badgeBase    = lipgloss.NewStyle().Bold(true).Width(5).Align(lipgloss.Right)
	explainStyle = lipgloss.NewStyle().Italic(true)
)

var tierColor = map[render.Tier]lipgloss.Color{
	render.TierHigh:   colorHigh,
	render.TierMedium: colorMedium,
	render.TierLow:    colorLow,
}

func badgeStyle(t render.Tier) lipgloss.Style {
	c, ok := tierColor[t]
	if !ok {
		c = colorMuted
	}
	return badgeBase.Foreground(c)
}
