package domain

// StateKind - тег состояния игры. Значения совпадают с тегом в хранилище.
type StateKind uint8

const (
	StatePlaying             StateKind = 0
	StateWaitingSecondAnswer StateKind = 1
	StateOver                StateKind = 2
)

func (k StateKind) String() string {
	switch k {
	case StatePlaying:
		return "playing"
	case StateWaitingSecondAnswer:
		return "waiting_second_answer"
	case StateOver:
		return "over"
	}
	return "unknown"
}

// Hints - битовая маска использованных подсказок.
type Hints uint8

const (
	HintFiftyFifty  Hints = 1 << 0
	HintPeopleHelp  Hints = 1 << 1
	HintCallFriend  Hints = 1 << 2
	HintTwoAnswers  Hints = 1 << 3
	HintNewQuestion Hints = 1 << 4

	allHints = HintFiftyFifty | HintPeopleHelp | HintCallFriend | HintTwoAnswers | HintNewQuestion
)

// AllHints - подсказки в порядке отображения на клавиатуре.
var AllHints = [5]Hints{HintFiftyFifty, HintPeopleHelp, HintCallFriend, HintTwoAnswers, HintNewQuestion}

// Has сообщает, установлен ли флаг h.
func (h Hints) Has(flag Hints) bool {
	return h&flag != 0
}

// Valid - в маске нет неизвестных битов.
func (h Hints) Valid() bool {
	return h&^allHints == 0
}

// Tag - короткое имя подсказки для аналитики и метрик.
func (h Hints) Tag() string {
	switch h {
	case HintFiftyFifty:
		return "fifty_fifty"
	case HintPeopleHelp:
		return "people_help"
	case HintCallFriend:
		return "call_friend"
	case HintTwoAnswers:
		return "two_answers"
	case HintNewQuestion:
		return "new_question"
	}
	return "unknown"
}

// MaxLevel - последний (пятнадцатый) вопрос.
const MaxLevel = 14

// GameState - состояние игры в чате. Вместо иерархии классов используется
// одна структура с тегом Kind: поля Playing заполнены для StatePlaying и
// StateWaitingSecondAnswer, FirstAnswer имеет смысл только во втором случае.
// Для StateOver все поля нулевые.
type GameState struct {
	Kind      StateKind
	Level     uint8
	Question  int
	UsedHints Hints
	// Removed1/Removed2 - варианты, убранные подсказкой 50/50 (0 - нет).
	Removed1 Variant
	Removed2 Variant
	// FirstAnswer - первый ответ при подсказке "два ответа" (0 - ещё не дан).
	FirstAnswer Variant
}

// NewPlaying создаёт состояние нового вопроса на уровне level.
func NewPlaying(level uint8, question int, usedHints Hints) GameState {
	return GameState{
		Kind:      StatePlaying,
		Level:     level,
		Question:  question,
		UsedHints: usedHints,
	}
}

// NewOver возвращает терминальное состояние.
func NewOver() GameState {
	return GameState{Kind: StateOver}
}

// InGame - игрок отвечает на вопрос (Playing или WaitingSecondAnswer).
func (s GameState) InGame() bool {
	return s.Kind == StatePlaying || s.Kind == StateWaitingSecondAnswer
}

// IsRemoved сообщает, убран ли вариант подсказкой 50/50.
func (s GameState) IsRemoved(v Variant) bool {
	return v != 0 && (v == s.Removed1 || v == s.Removed2)
}

// AvailableVariants - варианты, оставшиеся после 50/50.
func (s GameState) AvailableVariants() []Variant {
	available := make([]Variant, 0, len(AllVariants))
	for _, v := range AllVariants {
		if !s.IsRemoved(v) {
			available = append(available, v)
		}
	}
	return available
}

// WithHint возвращает копию состояния с отмеченной подсказкой.
func (s GameState) WithHint(h Hints) GameState {
	s.UsedHints |= h
	return s
}

// WaitingTwoAnswers переводит Playing в ожидание двух ответов.
func (s GameState) WaitingTwoAnswers() GameState {
	s.Kind = StateWaitingSecondAnswer
	s.UsedHints |= HintTwoAnswers
	s.FirstAnswer = 0
	return s
}
