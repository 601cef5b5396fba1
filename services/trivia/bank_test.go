package trivia

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultBank(t *testing.T) {
	bank, err := DefaultBank()
	require.NoError(t, err)
	assert.Equal(t, []string{"american_music", "general", "old_ads", "pop_culture"}, bank.Categories())

	q := bank.Pick("general", 1)
	assert.NotEmpty(t, q.Text)
	assert.NotEmpty(t, q.Answer)
}

func TestBankPickFallbacks(t *testing.T) {
	bank, err := ParseBank([]byte(`
fallback: pop
categories:
  pop:
    1:
      - q: "pop one"
        a: "one"
    5:
      - q: "pop five"
        a: "five"
  music:
    1:
      - q: "music one"
        a: "uno"
`))
	require.NoError(t, err)

	assert.Equal(t, "pop one", bank.Pick("unknown", 1).Text)
	assert.Equal(t, "pop five", bank.Pick("unknown", 99).Text, "levels clamp to max")
	assert.Equal(t, "pop one", bank.Pick("pop", -3).Text, "levels clamp to min")
	assert.Equal(t, "music one", bank.Pick("music", 4).Text, "missing level uses level 1")
}

func TestParseBankRejectsBadInput(t *testing.T) {
	_, err := ParseBank([]byte(`categories: {}`))
	assert.Error(t, err)

	_, err = ParseBank([]byte(`
fallback: nope
categories:
  pop:
    1:
      - q: "x"
        a: "y"
`))
	assert.Error(t, err)

	_, err = ParseBank([]byte(`
fallback: pop
categories:
  pop:
    2:
      - q: "x"
        a: "y"
`))
	assert.Error(t, err, "level 1 is required")
}

func TestLoadBankFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bank.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
fallback: only
categories:
  only:
    1:
      - q: "Capital of France?"
        a: "Paris"
`), 0o644))

	bank, err := LoadBank(path)
	require.NoError(t, err)
	assert.Equal(t, "Paris", bank.Pick("anything", 3).Answer)

	_, err = LoadBank(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRandomLevelInRange(t *testing.T) {
	bank, err := DefaultBank()
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		lvl := bank.RandomLevel()
		assert.GreaterOrEqual(t, lvl, MinLevel)
		assert.LessOrEqual(t, lvl, MaxLevel)
		assert.True(t, bank.Has(bank.RandomCategory()))
	}
}
