package cli

// ANSI color codes
const (
	ColorReset      = "\033[0m"
	ColorLightBrown = "\033[38;5;180m" // the user's request
	ColorOrange     = "\033[38;5;208m" // progress
	ColorGray       = "\033[90m"
	ColorGreen      = "\033[32m"
	ColorRed        = "\033[31m"
)

// Paint wraps s in color and a reset
func Paint(color, s string) string {
	return color + s + ColorReset
}
