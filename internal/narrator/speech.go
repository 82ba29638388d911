package narrator

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"millionaire-bot/internal/domain"
)

//go:embed speech.json
var defaultSpeech []byte

// Speech - наборы равнозначных реплик ведущего. Из каждого набора реплика выбирается случайно.
//
// Подстановки: {user} имя игрока, {question} вопрос с вариантами, {no} номер вопроса,
// {sum} стоимость вопроса, {earned} заработанная сумма, {variant}/{answer} буква и текст
// варианта, {friend} имя друга.
type Speech struct {
	StartGame       []string `json:"start_game"`
	FirstQuestion   []string `json:"first_question"`
	AskQuestion     []string `json:"ask_question"`
	RightAnswer     []string `json:"right_answer"`
	EarnedCantFire  []string `json:"earned_cant_fire"`
	WrongAnswer     []string `json:"wrong_answer"`
	Win             []string `json:"win"`
	TryAgain        []string `json:"try_again"`
	CallFriend      []string `json:"call_friend"`
	FriendsNames    []string `json:"friends_names"`
	PeopleHelp      []string `json:"people_help"`
	FiftyFifty      []string `json:"fifty_fifty"`
	TwoAnswersStep1 []string `json:"two_answers_step1"`
	TwoAnswersStep2 []string `json:"two_answers_step2"`
	NewQuestion     []string `json:"new_question"`
}

// DefaultSpeech возвращает встроенные реплики.
func DefaultSpeech() (*Speech, error) {
	return ParseSpeech(bytes.NewReader(defaultSpeech))
}

// LoadSpeechFile читает реплики из файла. Пустой путь - встроенные реплики.
func LoadSpeechFile(path string) (*Speech, error) {
	if path == "" {
		return DefaultSpeech()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть файл реплик %s: %w", path, err)
	}
	defer f.Close()
	return ParseSpeech(f)
}

// ParseSpeech разбирает JSON и проверяет, что ни один набор не пуст.
func ParseSpeech(r io.Reader) (*Speech, error) {
	var s Speech
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSpeech, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate проверяет, что в каждой категории есть хотя бы одна реплика.
func (s *Speech) Validate() error {
	pools := map[string][]string{
		"start_game":        s.StartGame,
		"first_question":    s.FirstQuestion,
		"ask_question":      s.AskQuestion,
		"right_answer":      s.RightAnswer,
		"earned_cant_fire":  s.EarnedCantFire,
		"wrong_answer":      s.WrongAnswer,
		"win":               s.Win,
		"try_again":         s.TryAgain,
		"call_friend":       s.CallFriend,
		"friends_names":     s.FriendsNames,
		"people_help":       s.PeopleHelp,
		"fifty_fifty":       s.FiftyFifty,
		"two_answers_step1": s.TwoAnswersStep1,
		"two_answers_step2": s.TwoAnswersStep2,
		"new_question":      s.NewQuestion,
	}
	for name, pool := range pools {
		if len(pool) == 0 {
			return fmt.Errorf("%w: пустая категория %s", domain.ErrInvalidSpeech, name)
		}
	}
	return nil
}
