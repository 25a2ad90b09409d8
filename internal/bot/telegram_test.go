package bot

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obscurecore/eduscan/internal/session"
)

func TestSplitMessageShortTextUnchanged(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"привет"}, splitMessage("привет", 4000))
	assert.Equal(t, []string{""}, splitMessage("", 4000))
}

func TestSplitMessagePrefersLineBoundaries(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("строка учреждения\n", 40)
	chunks := splitMessage(text, 100)
	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks[:len(chunks)-1] {
		assert.True(t, strings.HasSuffix(chunk, "\n"))
		assert.LessOrEqual(t, len([]rune(chunk)), 100)
	}
	assert.Equal(t, text, strings.Join(chunks, ""))
}

func TestSplitMessageHardCutWithoutNewlines(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("а", 250)
	chunks := splitMessage(text, 100)
	require.Len(t, chunks, 3)
	assert.Equal(t, 100, len([]rune(chunks[0])))
	assert.Equal(t, 50, len([]rune(chunks[2])))
	assert.Equal(t, text, strings.Join(chunks, ""))
}

func TestDistrictKeyboardMarksSelection(t *testing.T) {
	t.Parallel()

	markup := districtKeyboard([]string{"AVIA", "SOVI"})
	// 7 districts at 3 per row plus the control row.
	require.Len(t, markup.Keyboard, 4)

	var labels []string
	for _, row := range markup.Keyboard {
		for _, btn := range row {
			labels = append(labels, btn.Text)
		}
	}
	assert.Contains(t, labels, "✔️ AVIA")
	assert.Contains(t, labels, "✔️ SOVI")
	assert.Contains(t, labels, "VAHI")
	assert.Contains(t, labels, "Готово")
	assert.Contains(t, labels, "🏠 Главное меню")
	assert.NotContains(t, labels, "AVIA")
}

func TestReplyKeyboardTags(t *testing.T) {
	t.Parallel()

	_, ok := replyKeyboard(session.KeyboardNone, nil)
	assert.False(t, ok)

	main, ok := replyKeyboard(session.KeyboardMain, nil)
	require.True(t, ok)
	require.Len(t, main.Keyboard, 3)
	assert.Equal(t, "📊 Скрапить учреждения", main.Keyboard[0][0].Text)

	format, ok := replyKeyboard(session.KeyboardFormat, nil)
	require.True(t, ok)
	require.Len(t, format.Keyboard, 2)
	assert.Equal(t, "Текст", format.Keyboard[0][0].Text)
	assert.Equal(t, "Excel", format.Keyboard[0][1].Text)

	back, ok := replyKeyboard(session.KeyboardBackToMenu, nil)
	require.True(t, ok)
	require.Len(t, back.Keyboard, 1)
}
