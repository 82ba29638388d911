package narrator

import (
	"fmt"
	"strconv"
	"strings"

	"millionaire-bot/internal/domain"
)

// ScoreTable - выигрыш после правильного ответа на вопрос уровня i-1. Индекс - уровень.
var ScoreTable = [domain.MaxLevel + 2]int{
	0, 100, 200, 300, 500, 1000, 2000, 4000, 8000, 16000,
	32000, 64000, 125000, 250000, 500000, 1000000,
}

// Несгораемые уровни.
const (
	firstSafeLevel  = 5
	secondSafeLevel = 10
)

// Вероятность того, что зал угадает правильный ответ, по уровням.
var peopleHelpCurve = [domain.MaxLevel + 1]float64{
	.6, .55, .5, .45, .4, .35, .3, .25, .2, .2, .15, .15, .1, .1, .05,
}

// Вероятность того, что друг угадает правильный ответ. На каждом уровне выше, чем у зала.
var callFriendCurve = [domain.MaxLevel + 1]float64{
	.9, .85, .85, .7, .7, .6, .55, .5, .45, .4, .35, .3, .3, .25, .2,
}

// PeopleHelpVotes - количество голосов зала.
const PeopleHelpVotes = 100

// Narrator формирует все тексты для игрока и разыгрывает исходы подсказок.
// Состояния не хранит, безопасен для параллельного использования, если безопасен Random.
type Narrator struct {
	speech *Speech
	rnd    Random
}

// New создаёт ведущего.
func New(speech *Speech, rnd Random) *Narrator {
	return &Narrator{speech: speech, rnd: rnd}
}

// SafeAmount - несгораемая сумма, которую игрок получает при ошибке на уровне level.
// 0 означает, что игрок ничего не заработал.
func SafeAmount(level uint8) int {
	switch {
	case level >= secondSafeLevel:
		return ScoreTable[secondSafeLevel]
	case level >= firstSafeLevel:
		return ScoreTable[firstSafeLevel]
	}
	return 0
}

// PeopleHelpProbability - вероятность правильного ответа зала на уровне.
func PeopleHelpProbability(level uint8) float64 {
	return peopleHelpCurve[clampLevel(level)]
}

// CallFriendProbability - вероятность правильного ответа друга на уровне.
func CallFriendProbability(level uint8) float64 {
	return callFriendCurve[clampLevel(level)]
}

func clampLevel(level uint8) uint8 {
	if level > domain.MaxLevel {
		return domain.MaxLevel
	}
	return level
}

// PickIndex выбирает случайный индекс в [0, n).
func (n *Narrator) PickIndex(count int) int {
	if count <= 1 {
		return 0
	}
	return n.rnd.IntN(count)
}

func (n *Narrator) pick(pool []string) string {
	return pool[n.PickIndex(len(pool))]
}

// Help - правила игры с таблицей выигрышей.
func (n *Narrator) Help() string {
	var table strings.Builder
	table.WriteString("```\n вопр. │ выигрыш\n")
	for level := 1; level < len(ScoreTable); level++ {
		fmt.Fprintf(&table, "%6d │ %s₽\n", level, formatMoney(ScoreTable[level]))
	}
	table.WriteString("```")
	return fmt.Sprintf(helpText, table.String())
}

// Greetings - приветствие в начале игры.
func (n *Narrator) Greetings(userName string) string {
	return fill(n.pick(n.speech.StartGame), "{user}", userName)
}

// AskQuestion - текст вопроса уровня level. Для первого вопроса отдельный набор реплик.
func (n *Narrator) AskQuestion(userName string, level uint8, q domain.Question) string {
	pool := n.speech.AskQuestion
	if level == 0 {
		pool = n.speech.FirstQuestion
	}
	return fill(n.pick(pool),
		"{question}", FormatQuestion(q, 0, 0),
		"{user}", userName,
		"{no}", strconv.Itoa(int(level)+1),
		"{sum}", strconv.Itoa(ScoreTable[clampLevel(level)+1]),
		"{earned}", strconv.Itoa(ScoreTable[clampLevel(level)]),
	)
}

// RightAnswer - реакция на правильный ответ. newLevel - уровень, на который перешёл игрок;
// на 5 и 10 объявляется несгораемая сумма.
func (n *Narrator) RightAnswer(newLevel uint8, q domain.Question) string {
	pool := n.speech.RightAnswer
	if newLevel == firstSafeLevel || newLevel == secondSafeLevel {
		pool = n.speech.EarnedCantFire
	}
	return fill(n.pick(pool),
		"{variant}", q.RightVariant.String(),
		"{answer}", q.RightAnswer(),
		"{earned}", strconv.Itoa(ScoreTable[clampLevel(newLevel)]),
	)
}

// WrongAnswer - реакция на ошибку с упоминанием несгораемой суммы, если она есть.
func (n *Narrator) WrongAnswer(level uint8, q domain.Question) string {
	text := fill(n.pick(n.speech.WrongAnswer),
		"{variant}", q.RightVariant.String(),
		"{answer}", q.RightAnswer(),
	)
	if earned := SafeAmount(level); earned > 0 {
		text = fmt.Sprintf("%s\nНо вы заработали %d рублей, поздравляю!", text, earned)
	}
	return text
}

// Win - победа после 15-го вопроса.
func (n *Narrator) Win() string {
	return n.pick(n.speech.Win)
}

// TryAgain - предложение сыграть снова.
func (n *Narrator) TryAgain() string {
	return n.pick(n.speech.TryAgain)
}

// FormatQuestion выводит текст вопроса и варианты, пропуская убранные.
func FormatQuestion(q domain.Question, removed1, removed2 domain.Variant) string {
	var b strings.Builder
	b.WriteString(q.Text)
	for _, v := range domain.AllVariants {
		if v == removed1 || v == removed2 {
			continue
		}
		answer, _ := q.AnswerOf(v)
		fmt.Fprintf(&b, "\n• %s: %s", v, answer)
	}
	return b.String()
}

// FiftyFifty убирает два случайных неправильных варианта.
func (n *Narrator) FiftyFifty(q domain.Question) (text string, removed1, removed2 domain.Variant) {
	wrong := make([]domain.Variant, 0, 3)
	for _, v := range domain.AllVariants {
		if v != q.RightVariant {
			wrong = append(wrong, v)
		}
	}
	i := n.PickIndex(len(wrong))
	removed1 = wrong[i]
	wrong = append(wrong[:i], wrong[i+1:]...)
	removed2 = wrong[n.PickIndex(len(wrong))]

	text = n.pick(n.speech.FiftyFifty) + "\n" + FormatQuestion(q, removed1, removed2)
	return text, removed1, removed2
}

// Guess - догадка зрителя или друга: с вероятностью p правильный вариант, иначе
// случайный из оставшихся. Правильный среди оставшихся тоже может выпасть.
func (n *Narrator) Guess(p float64, available []domain.Variant, right domain.Variant) domain.Variant {
	if len(available) == 0 || n.rnd.Float64() < p {
		return right
	}
	return available[n.PickIndex(len(available))]
}

// PeopleVotes разыгрывает 100 голосов зала. Индекс результата - позиция варианта в AllVariants.
func (n *Narrator) PeopleVotes(level uint8, available []domain.Variant, right domain.Variant) [4]int {
	var votes [4]int
	p := PeopleHelpProbability(level)
	for i := 0; i < PeopleHelpVotes; i++ {
		guess := n.Guess(p, available, right)
		votes[guess-domain.VariantA]++
	}
	return votes
}

// PeopleHelp - результаты голосования зала в виде гистограммы.
func (n *Narrator) PeopleHelp(userName string, level uint8, q domain.Question, available []domain.Variant) string {
	votes := n.PeopleVotes(level, available, q.RightVariant)

	var b strings.Builder
	b.WriteString(fill(n.pick(n.speech.PeopleHelp), "{user}", userName, "{question}", q.Text))
	for i, v := range domain.AllVariants {
		fmt.Fprintf(&b, "\n%s |%s %d%%", v, strings.Repeat("-", votes[i]/5), votes[i])
	}
	return b.String()
}

// CallFriend - разговор с другом и его вариант.
func (n *Narrator) CallFriend(userName string, level uint8, q domain.Question, available []domain.Variant) string {
	friend := n.pick(n.speech.FriendsNames)
	guess := n.Guess(CallFriendProbability(level), available, q.RightVariant)
	answer, _ := q.AnswerOf(guess)
	return fill(n.pick(n.speech.CallFriend),
		"{user}", userName,
		"{friend}", friend,
		"{question}", q.Text,
		"{variant}", guess.String(),
		"{answer}", answer,
	)
}

// TwoAnswersStep1 - просьба назвать первый вариант.
func (n *Narrator) TwoAnswersStep1() string {
	return n.pick(n.speech.TwoAnswersStep1)
}

// TwoAnswersStep2 - первый вариант неверный, просьба назвать второй.
func (n *Narrator) TwoAnswersStep2() string {
	return n.pick(n.speech.TwoAnswersStep2)
}

// NewQuestion - замена вопроса. Сумма не объявляется.
func (n *Narrator) NewQuestion(level uint8, q domain.Question) string {
	return fill(n.pick(n.speech.NewQuestion),
		"{no}", strconv.Itoa(int(level)+1),
		"{question}", FormatQuestion(q, 0, 0),
	)
}

func fill(template string, oldnew ...string) string {
	return strings.NewReplacer(oldnew...).Replace(template)
}

// formatMoney разбивает сумму на тройки разрядов: 125000 -> "125 000".
func formatMoney(amount int) string {
	s := strconv.Itoa(amount)
	if len(s) <= 4 {
		return s
	}
	var b strings.Builder
	head := len(s) % 3
	if head > 0 {
		b.WriteString(s[:head])
	}
	for i := head; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
