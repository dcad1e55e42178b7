// lingo/utils/color/color.go
package color

import (
	"github.com/fatih/color"
)

var (
	promptColor      = color.New(color.FgCyan, color.Bold)
	infoColor        = color.New(color.FgGreen)
	presenceColor    = color.New(color.FgHiBlack)
	errorColor       = color.New(color.FgRed, color.Bold)
	speakerColor     = color.New(color.FgHiYellow, color.Bold)
	translationColor = color.New(color.FgMagenta)
)

func ColorPrompt(s string) string {
	return promptColor.Sprint(s)
}

func ColorInfo(s string) string {
	return infoColor.Sprint(s)
}

func ColorPresence(s string) string {
	return presenceColor.Sprint(s)
}

func ColorError(s string) string {
	return errorColor.Sprint(s)
}

func ColorSpeaker(s string) string {
	return speakerColor.Sprint(s)
}

func ColorTranslation(s string) string {
	return translationColor.Sprint(s)
}
