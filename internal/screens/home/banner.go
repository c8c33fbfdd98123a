package home

import (
	"charm.land/lipgloss/v2"

	"github.com/abhisek/cclprep/internal/ui/theme"
)

const bannerArt = `
  ██████╗ ██████╗██╗         ██████╗ ██████╗ ███████╗██████╗
 ██╔════╝██╔════╝██║         ██╔══██╗██╔══██╗██╔════╝██╔══██╗
 ██║     ██║     ██║         ██████╔╝██████╔╝█████╗  ██████╔╝
 ██║     ██║     ██║         ██╔═══╝ ██╔══██╗██╔══╝  ██╔═══╝
 ╚██████╗╚██████╗███████╗    ██║     ██║  ██║███████╗██║
  ╚═════╝ ╚═════╝╚══════╝    ╚═╝     ╚═╝  ╚═╝╚══════╝╚═╝`

const bannerCompact = "C C L   P R E P"

// RenderBanner returns the banner styled in the primary color. Terminals
// narrower than 64 columns get the compact form.
func RenderBanner(width int) string {
	style := lipgloss.NewStyle().
		Foreground(theme.Primary).
		Bold(true)

	if width < 64 {
		return style.Render(bannerCompact)
	}
	return style.Render(bannerArt)
}
