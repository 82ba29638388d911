package domain

import "fmt"

// Variant - буква варианта ответа (A, B, C, D).
type Variant byte

const (
	VariantA Variant = 'A'
	VariantB Variant = 'B'
	VariantC Variant = 'C'
	VariantD Variant = 'D'
)

// AllVariants - все варианты в порядке отображения.
var AllVariants = [4]Variant{VariantA, VariantB, VariantC, VariantD}

// Valid сообщает, является ли v одной из букв A-D.
func (v Variant) Valid() bool {
	return v >= VariantA && v <= VariantD
}

func (v Variant) String() string {
	if v == 0 {
		return ""
	}
	return string(rune(v))
}

// ParseVariant разбирает одну букву ответа. Регистр не важен,
// кириллические А, В, С принимаются как латинские A, B, C.
func ParseVariant(s string) (Variant, bool) {
	switch s {
	case "a", "A", "а", "А":
		return VariantA, true
	case "b", "B", "в", "В":
		return VariantB, true
	case "c", "C", "с", "С":
		return VariantC, true
	case "d", "D":
		return VariantD, true
	}
	return 0, false
}

// Question - вопрос с четырьмя вариантами ответа. Загружается один раз и не меняется.
type Question struct {
	Text         string  `json:"text"`
	A            string  `json:"a"`
	B            string  `json:"b"`
	C            string  `json:"c"`
	D            string  `json:"d"`
	RightVariant Variant `json:"-"`
}

// AnswerOf возвращает текст варианта.
func (q Question) AnswerOf(v Variant) (string, error) {
	switch v {
	case VariantA:
		return q.A, nil
	case VariantB:
		return q.B, nil
	case VariantC:
		return q.C, nil
	case VariantD:
		return q.D, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidVariant, v.String())
}

// RightAnswer возвращает текст правильного варианта.
func (q Question) RightAnswer() string {
	text, _ := q.AnswerOf(q.RightVariant)
	return text
}
