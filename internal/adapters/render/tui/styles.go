package tui

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title      lipgloss.Style
	header     lipgloss.Style
	label      lipgloss.Style
	focused    lipgloss.Style
	message    lipgloss.Style
	alert      lipgloss.Style
	success    lipgloss.Style
	hint       lipgloss.Style
	section    lipgloss.Style
	barBracket lipgloss.Style
	barFill    lipgloss.Style
	barEmpty   lipgloss.Style
	percent    lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		header:     lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		label:      lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		focused:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("69")),
		message:    lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		alert:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		success:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("78")),
		hint:       lipgloss.NewStyle().Faint(true),
		section:    lipgloss.NewStyle().MarginTop(1),
		barBracket: lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		barFill:    lipgloss.NewStyle().Foreground(lipgloss.Color("159")),
		barEmpty:   lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
		percent:    lipgloss.NewStyle().Foreground(lipgloss.Color("255")),
	}
}
