package workflow

import (
	"testing"

	"formflow/internal/step"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_AppendsDefaultEndScreen(t *testing.T) {
	raw := []step.Step{step.New(step.TypeText), step.New(step.TypeEmail)}

	out := Normalize(raw)

	require.Len(t, out, 3)
	assert.Equal(t, step.TypeEndScreen, out[len(out)-1].Type)
	// input untouched
	assert.Len(t, raw, 2)
}

func TestNormalize_ExternalBrowserSupersedesEndScreen(t *testing.T) {
	ext := step.New(step.TypeExternalBrowser)
	raw := []step.Step{step.New(step.TypeText), step.New(step.TypeEndScreen), ext}

	out := Normalize(raw)

	require.Len(t, out, 2)
	assert.Equal(t, step.TypeExternalBrowser, out[1].Type)
	assert.Equal(t, ext.ID, out[1].ID)
	for _, s := range out {
		assert.NotEqual(t, step.TypeEndScreen, s.Type)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	cases := [][]step.Step{
		nil,
		{step.New(step.TypeText)},
		{step.New(step.TypeText), step.New(step.TypeEndScreen)},
		{step.New(step.TypeEndScreen), step.New(step.TypeText)},
		{step.New(step.TypeExternalBrowser), step.New(step.TypeEndScreen)},
		{step.New(step.TypeText), step.New(step.TypeExternalBrowser)},
	}

	for _, raw := range cases {
		once := Normalize(raw)
		twice := Normalize(once)
		assert.Equal(t, once, twice)
	}
}

func TestNormalize_TerminalUniqueAndLast(t *testing.T) {
	cases := [][]step.Step{
		nil,
		{step.New(step.TypeText)},
		{step.New(step.TypeEndScreen), step.New(step.TypeText)},
		{step.New(step.TypeEndScreen), step.New(step.TypeEndScreen)},
		{step.New(step.TypeExternalBrowser), step.New(step.TypeExternalBrowser)},
		{step.New(step.TypeText), step.New(step.TypeEndScreen), step.New(step.TypeExternalBrowser)},
	}

	for _, raw := range cases {
		out := Normalize(raw)
		terminals := 0
		for _, s := range out {
			if s.IsTerminal() {
				terminals++
			}
		}
		require.Equal(t, 1, terminals)
		assert.True(t, out[len(out)-1].IsTerminal())
	}
}

func TestNormalize_MovesStragglersBeforeEndScreen(t *testing.T) {
	text := step.New(step.TypeText)
	raw := []step.Step{step.New(step.TypeEndScreen), text}

	out := Normalize(raw)

	require.Len(t, out, 2)
	assert.Equal(t, text.ID, out[0].ID)
	assert.Equal(t, step.TypeEndScreen, out[1].Type)
}
