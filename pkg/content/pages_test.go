package content

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageWindow_HeaderMarker(t *testing.T) {
	fullText := "Vorspann\nS. 1234\nHier beginnt die Rede des Abgeordneten.\n" +
		strings.Repeat("Weiterer Text. ", 50)
	text, err := PageWindow(fullText, "1234", 80)
	require.NoError(t, err)
	assert.Contains(t, text, "Hier beginnt die Rede")
	assert.LessOrEqual(t, len(text), 80)
}

func TestPageWindow_BareLineMarker(t *testing.T) {
	fullText := "Einleitung\n1234\nRedetext auf der Seite."
	text, err := PageWindow(fullText, "1234", 0)
	require.NoError(t, err)
	assert.Contains(t, text, "Redetext auf der Seite.")
}

func TestPageWindow_MarkerNotFound(t *testing.T) {
	_, err := PageWindow("kein Marker hier", "999", 100)
	assert.Error(t, err)
}

func TestPageWindow_DoesNotMatchInsideNumbers(t *testing.T) {
	// "234" embedded in "1234" on the same line must not match.
	fullText := "Zeile mit 1234 mittendrin\n234\nGesuchter Text."
	text, err := PageWindow(fullText, "234", 100)
	require.NoError(t, err)
	assert.Contains(t, text, "Gesuchter Text.")
}

func TestTextFromHTML_Fallback(t *testing.T) {
	html := `<html><head><title>Plenarprotokoll 20/123</title></head>
	<body><nav>Navigation</nav><p>Beginn der Sitzung um 9 Uhr.</p></body></html>`
	text, err := TextFromHTML(html)
	require.NoError(t, err)
	assert.Contains(t, text, "Beginn der Sitzung")

	title, err := TitleFromHTML(html)
	require.NoError(t, err)
	assert.Equal(t, "Plenarprotokoll 20/123", title)
}
