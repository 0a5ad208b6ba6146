package statuscolor

import (
	"fmt"
	"net/http"

	"github.com/hopguard/hopguard/internal/fetch"
)

const (
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorGray   = "\033[90m"
	colorReset  = "\033[0m"
)

func colorFor(status int) string {
	switch {
	case status == 0:
		return colorReset
	case status >= http.StatusBadRequest:
		return colorRed
	case status >= http.StatusMultipleChoices:
		return colorYellow
	default:
		return colorGreen
	}
}

// Sprint returns a colorized status code string (2xx green, 3xx yellow,
// 4xx/5xx red).
func Sprint(status int) string {
	if status == 0 {
		return fmt.Sprintf("%s—%s", colorGray, colorReset)
	}
	return fmt.Sprintf("%s%d%s", colorFor(status), status, colorReset)
}

// WrapByStatus wraps the provided text with the color that corresponds to the
// supplied status code.
func WrapByStatus(text string, status int) string {
	return fmt.Sprintf("%s%s%s", colorFor(status), text, colorReset)
}

// Gray wraps the provided text with a gray ANSI color.
func Gray(text string) string {
	return fmt.Sprintf("%s%s%s", colorGray, text, colorReset)
}

// PrintChain prints a followed redirect chain with color-coded statuses.
func PrintChain(chain []fetch.Hop) {
	for _, h := range chain {
		if h.Final {
			fmt.Printf("[%d] %s %s (%dms)\n", h.Index, h.Source, Sprint(h.Status), h.TimeMs)
			continue
		}
		fmt.Printf("[%d] %s %s (%dms) %s %s\n",
			h.Index, h.Source, Sprint(h.Status), h.TimeMs, Gray("->"), h.Target)
	}
}
