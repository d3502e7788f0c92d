package theme

import (
	"fmt"
)

// Banner returns the fidscope startup banner.
func Banner() string {
	const cyan = "\033[36m"
	const magenta = "\033[35m"
	const yellow = "\033[33m"
	const reset = "\033[0m"

	art := "" +
		"   ◉ ◎   " + magenta + "FIDSCOPE" + reset + "   ◎ ◉\n" +
		cyan + "   ▄████▄  ▄▄ ▄▄▄  ▄████▄\n" + reset +
		cyan + "  ▐██▀▀██▌ ██ ██▌ ▐██▀▀██▌\n" + reset +
		cyan + "   ▀████▀  ██ ██▌  ▀████▀\n" + reset +
		yellow + "   ─────────────────────────\n" + reset +
		"   a spam & reputation lens for Farcaster accounts\n"

	return art
}

// PrintBanner prints the banner to stdout.
func PrintBanner() {
	fmt.Print(Banner())
}
