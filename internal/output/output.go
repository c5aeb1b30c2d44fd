package output

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// PrintRight rewrites the current terminal line with text aligned right.
func PrintRight(text string) {
	width, _, err := term.GetSize(int(os.Stderr.Fd()))
	if err != nil {
		width = 80
	}

	padding := width - len(text)
	if padding < 0 {
		padding = 0
	}

	fmt.Fprintf(os.Stderr, "\r%s%s", spaces(padding), text)
}

func spaces(n int) string {
	return fmt.Sprintf("%*s", n, "")
}
