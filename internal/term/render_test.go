package term

import (
	"bytes"
	"strings"
	"testing"

	"github.com/jaminalder/codex-reversi/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderPlainOpening(t *testing.T) {
	g, err := domain.New(4, domain.StandardRuleID, domain.Player1, false)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, g, Options{Plain: true}))

	want := strings.Join([]string{
		"    0 1 2 3",
		" 0  . . . .",
		" 1  . O X .",
		" 2  . X O .",
		" 3  . . . .",
		"player1 (X) 2 - 2 player2 (O) | player1 to move",
		"",
	}, "\n")
	assert.Equal(t, want, buf.String())
}

func TestRenderHints(t *testing.T) {
	g, err := domain.New(4, domain.StandardRuleID, domain.Player1, false)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, g, Options{Plain: true, Hints: true}))
	assert.Equal(t, 4, strings.Count(buf.String(), "·"))
}

func TestStatusAfterForfeit(t *testing.T) {
	g, err := domain.New(8, domain.StandardRuleID, domain.Player1, false)
	require.NoError(t, err)
	require.NoError(t, g.Forfeit(domain.Player1))
	assert.Equal(t, "player1 (X) 2 - 2 player2 (O) | game over (forfeited): player2 wins", Status(g))
}

func TestStatusTie(t *testing.T) {
	g, err := domain.New(2, domain.StandardRuleID, domain.Player1, false)
	require.NoError(t, err)
	assert.Contains(t, Status(g), "tie")
}
