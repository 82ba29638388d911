package questions_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"millionaire-bot/internal/domain"
	"millionaire-bot/internal/questions"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	bank, err := questions.Default()
	require.NoError(t, err)

	for level := uint8(0); level < questions.LevelsCount; level++ {
		require.Greater(t, bank.Count(level), 1, "уровень %d", level)
		for i := 0; i < bank.Count(level); i++ {
			q, err := bank.Get(level, i)
			require.NoError(t, err)
			assert.True(t, q.RightVariant.Valid())
			assert.NotEmpty(t, q.RightAnswer())
		}
	}
	assert.Equal(t, 0, bank.Count(questions.LevelsCount))
}

func TestGet_OutOfRange(t *testing.T) {
	bank, err := questions.Default()
	require.NoError(t, err)

	_, err = bank.Get(0, 100)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	_, err = bank.Get(20, 0)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.False(t, bank.Contains(0, -1))
	assert.True(t, bank.Contains(14, 0))
}

func levelJSON(q string) string {
	levels := make([]string, questions.LevelsCount)
	for i := range levels {
		levels[i] = "[" + q + "]"
	}
	return "[" + strings.Join(levels, ",") + "]"
}

func TestParse_Validation(t *testing.T) {
	valid := `{"text":"?","a":"1","b":"2","c":"3","d":"4","right":"b"}`

	t.Run("valid", func(t *testing.T) {
		bank, err := questions.Parse(strings.NewReader(levelJSON(valid)))
		require.NoError(t, err)
		q, err := bank.Get(3, 0)
		require.NoError(t, err)
		assert.Equal(t, domain.VariantB, q.RightVariant)
	})

	cases := map[string]string{
		"broken json":    `[[`,
		"too few levels": `[[` + valid + `]]`,
		"empty level":    strings.Replace(levelJSON(valid), "["+valid+"]", "[]", 1),
		"bad right":      levelJSON(`{"text":"?","a":"1","b":"2","c":"3","d":"4","right":"E"}`),
		"empty answer":   levelJSON(`{"text":"?","a":"","b":"2","c":"3","d":"4","right":"A"}`),
		"empty text":     levelJSON(`{"text":" ","a":"1","b":"2","c":"3","d":"4","right":"A"}`),
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := questions.Parse(strings.NewReader(input))
			assert.True(t, errors.Is(err, domain.ErrInvalidQuestionBank), "ошибка: %v", err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "q.json")
	require.NoError(t, os.WriteFile(path, []byte(levelJSON(`{"text":"Файл","a":"1","b":"2","c":"3","d":"4","right":"A"}`)), 0o600))

	bank, err := questions.LoadFile(path)
	require.NoError(t, err)
	q, err := bank.Get(0, 0)
	require.NoError(t, err)
	assert.Equal(t, "Файл", q.Text)

	_, err = questions.LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	bank, err = questions.LoadFile("")
	require.NoError(t, err)
	assert.Equal(t, 3, bank.Count(0))
}
