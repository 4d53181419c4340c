package banner

import (
	"github.com/charmbracelet/lipgloss"

	"authload/internal/tui/styles"
)

const ascii = `
               __  __    __                __
  ____ ___  __/ /_/ /_  / /___  ____ _____/ /
 / __ '/ / / / __/ __ \/ / __ \/ __ '/ __  / 
/ /_/ / /_/ / /_/ / / / / /_/ / /_/ / /_/ /  
\__,_/\__,_/\__/_/ /_/_/\____/\__,_/\__,_/   `

// GetString returns the banner shown above --help output.
func GetString() string {
	style := lipgloss.DefaultRenderer().NewStyle().
		Foreground(styles.ColorBanner).
		Bold(true)

	return "\n" + style.Render(ascii) + "\n"
}
