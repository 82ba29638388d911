package domain

import "errors"

// Общие ошибки приложения
var (
	// ErrNotFound возвращается хранилищем, если записи для чата нет.
	ErrNotFound = errors.New("resource not found")

	// ErrUnknownState означает повреждённую запись сессии (неизвестный тег состояния).
	ErrUnknownState = errors.New("unknown session state tag")

	// ErrInvalidVariant - вариант ответа вне A-D.
	ErrInvalidVariant = errors.New("invalid answer variant")

	// ErrInvalidQuestionBank - банк вопросов не прошёл валидацию при загрузке.
	ErrInvalidQuestionBank = errors.New("invalid question bank")

	// ErrInvalidSpeech - в наборе реплик ведущего не хватает категорий.
	ErrInvalidSpeech = errors.New("invalid speech pools")
)
