package ui

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
)

func TestDetectColorProfile_HonorsNoColor(t *testing.T) {
	previous := lipgloss.ColorProfile()
	t.Cleanup(func() { lipgloss.SetColorProfile(previous) })
	t.Setenv("NO_COLOR", "1")

	DetectColorProfile()

	assert.Equal(t, termenv.Ascii, lipgloss.ColorProfile())
}
