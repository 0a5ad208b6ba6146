package banner

import (
	"github.com/common-nighthawk/go-figure"
	"github.com/fatih/color"
)

func PrintBanner(version string) {
	myFigure := figure.NewColorFigure("HOPGUARD", "doom", "cyan", true)
	myFigure.Print()

	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen)

	_, _ = cyan.Println("════════════════════════════════════════════════")
	_, _ = green.Println("    SSRF-safe fetcher and feed aggregator | " + version)
	_, _ = cyan.Println("════════════════════════════════════════════════")
}
