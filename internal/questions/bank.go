package questions

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"millionaire-bot/internal/domain"
)

// LevelsCount - количество уровней в игре.
const LevelsCount = domain.MaxLevel + 1

//go:embed questions.json
var defaultQuestions []byte

// Bank - неизменяемый банк вопросов, сгруппированный по уровням сложности.
type Bank struct {
	levels [][]domain.Question
}

type questionDTO struct {
	Text  string `json:"text"`
	A     string `json:"a"`
	B     string `json:"b"`
	C     string `json:"c"`
	D     string `json:"d"`
	Right string `json:"right"`
}

// Default возвращает встроенный банк вопросов.
func Default() (*Bank, error) {
	return Parse(bytes.NewReader(defaultQuestions))
}

// LoadFile загружает банк из файла. Пустой путь - встроенный банк.
func LoadFile(path string) (*Bank, error) {
	if path == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть файл вопросов %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse читает JSON-массив уровней и проверяет его.
func Parse(r io.Reader) (*Bank, error) {
	var raw [][]questionDTO
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidQuestionBank, err)
	}
	if len(raw) != LevelsCount {
		return nil, fmt.Errorf("%w: ожидалось %d уровней, получено %d", domain.ErrInvalidQuestionBank, LevelsCount, len(raw))
	}

	levels := make([][]domain.Question, len(raw))
	for level, items := range raw {
		if len(items) == 0 {
			return nil, fmt.Errorf("%w: на уровне %d нет вопросов", domain.ErrInvalidQuestionBank, level)
		}
		levels[level] = make([]domain.Question, len(items))
		for i, dto := range items {
			q, err := dto.toQuestion()
			if err != nil {
				return nil, fmt.Errorf("%w: уровень %d, вопрос %d: %v", domain.ErrInvalidQuestionBank, level, i, err)
			}
			levels[level][i] = q
		}
	}
	return &Bank{levels: levels}, nil
}

func (d questionDTO) toQuestion() (domain.Question, error) {
	if strings.TrimSpace(d.Text) == "" {
		return domain.Question{}, fmt.Errorf("пустой текст вопроса")
	}
	for _, answer := range []string{d.A, d.B, d.C, d.D} {
		if strings.TrimSpace(answer) == "" {
			return domain.Question{}, fmt.Errorf("пустой вариант ответа")
		}
	}
	right, ok := domain.ParseVariant(strings.TrimSpace(d.Right))
	if !ok {
		return domain.Question{}, fmt.Errorf("неверный правильный вариант %q", d.Right)
	}
	return domain.Question{Text: d.Text, A: d.A, B: d.B, C: d.C, D: d.D, RightVariant: right}, nil
}

// Count - количество вопросов на уровне. Для несуществующего уровня 0.
func (b *Bank) Count(level uint8) int {
	if int(level) >= len(b.levels) {
		return 0
	}
	return len(b.levels[level])
}

// Get возвращает вопрос по уровню и индексу.
func (b *Bank) Get(level uint8, index int) (domain.Question, error) {
	if int(level) >= len(b.levels) || index < 0 || index >= len(b.levels[level]) {
		return domain.Question{}, fmt.Errorf("%w: вопрос %d уровня %d", domain.ErrNotFound, index, level)
	}
	return b.levels[level][index], nil
}
