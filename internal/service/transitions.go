package service

import (
	"fmt"

	"millionaire-bot/internal/domain"
	"millionaire-bot/internal/metrics"
	"millionaire-bot/internal/narrator"

	"go.uber.org/zap"
)

// Команды и ответы после нормализации (нижний регистр, без пробелов по краям).
const (
	cmdStart  = "/start"
	cmdHelp   = "/help"
	answerYes = "да"
	answerNo  = "нет"
)

// game - контекст одного перехода.
type game struct {
	engine *GameEngine
	msg    domain.IncomingMessage
	state  domain.GameState
	log    *zap.Logger
}

func (g *game) userName() string {
	return g.msg.User.DisplayName()
}

func (g *game) help() *turn {
	return &turn{text: g.engine.narrator.Help(), markdown: true}
}

// onNew - в чате ещё не было игры. Любой текст, кроме отказа, начинает игру.
func (g *game) onNew() *turn {
	if normalize(g.msg.Text) == answerNo {
		return &turn{text: narrator.Goodbye, keyboard: removeKeyboard()}
	}
	t, err := g.startGame()
	if err != nil {
		// банк вопросов проверяется при загрузке, сюда попасть нельзя
		g.log.Error("Failed to start game", zap.Error(err))
		return &turn{text: narrator.Goodbye}
	}
	return t
}

func (g *game) dispatch() (*turn, error) {
	switch g.state.Kind {
	case domain.StatePlaying:
		return g.onPlaying()
	case domain.StateWaitingSecondAnswer:
		return g.onWaiting()
	case domain.StateOver:
		return g.onOver(), nil
	}
	return nil, fmt.Errorf("%w: %d", domain.ErrUnknownState, g.state.Kind)
}

func (g *game) startGame() (*turn, error) {
	idx, q, err := g.engine.randomQuestion(0)
	if err != nil {
		return nil, err
	}
	next := domain.NewPlaying(0, idx, 0)
	narr := g.engine.narrator
	text := narr.Greetings(g.userName()) + "\n\n" + narr.AskQuestion(g.userName(), 0, q)

	chatID, user := g.msg.ChatID, g.msg.User
	return (&turn{text: text, keyboard: gameKeyboard(next), next: &next}).then(func() {
		metrics.GamesStartedTotal.Inc()
		g.engine.events.RecordGameStart(chatID, user)
	}), nil
}

// currentQuestion возвращает вопрос текущего состояния. Если банк вопросов
// сменился и вопроса больше нет, вызывающий начинает игру заново.
func (g *game) currentQuestion() (domain.Question, bool) {
	q, err := g.engine.bank.Get(g.state.Level, g.state.Question)
	if err != nil {
		g.log.Warn("Session refers to missing question, restarting game",
			zap.Uint8("level", g.state.Level),
			zap.Int("question", g.state.Question),
			zap.Error(err))
		return domain.Question{}, false
	}
	return q, true
}

func (g *game) onPlaying() (*turn, error) {
	q, ok := g.currentQuestion()
	if !ok {
		return g.startGame()
	}
	text := normalize(g.msg.Text)

	if text == cmdStart {
		return &turn{text: narrator.AlreadyPlaying, keyboard: gameKeyboard(g.state)}, nil
	}
	if hint, ok := parseHint(text); ok {
		return g.useHint(hint, q)
	}
	if v, ok := domain.ParseVariant(text); ok {
		return g.checkAnswer(q, v, 0)
	}
	return &turn{text: narrator.AnswerWithLetter, keyboard: gameKeyboard(g.state)}, nil
}

// onWaiting - подсказка "два ответа": принимаются только буквы.
// На уже использованную подсказку отвечает предупреждением, новые подсказки не принимает.
func (g *game) onWaiting() (*turn, error) {
	q, ok := g.currentQuestion()
	if !ok {
		return g.startGame()
	}
	text := normalize(g.msg.Text)

	if text == cmdStart {
		return &turn{text: narrator.AlreadyPlaying, keyboard: answerKeyboard(g.state)}, nil
	}
	if hint, ok := parseHint(text); ok && g.state.UsedHints.Has(hint) {
		return &turn{text: narrator.HintAlreadyUsed[hint], keyboard: answerKeyboard(g.state)}, nil
	}
	v, ok := domain.ParseVariant(text)
	if !ok {
		return &turn{text: narrator.AnswerWithLetter, keyboard: answerKeyboard(g.state)}, nil
	}

	first := g.state.FirstAnswer
	switch {
	case first == 0 && v == q.RightVariant:
		return g.checkAnswer(q, v, 0)
	case first == 0:
		next := g.state
		next.FirstAnswer = v
		return &turn{
			text:     g.engine.narrator.TwoAnswersStep2(),
			keyboard: answerKeyboard(next),
			next:     &next,
		}, nil
	case v == first:
		return &turn{text: narrator.DuplicateAnswer, keyboard: answerKeyboard(g.state)}, nil
	}
	return g.checkAnswer(q, first, v)
}

func (g *game) onOver() *turn {
	switch normalize(g.msg.Text) {
	case answerYes, cmdStart:
		t, err := g.startGame()
		if err != nil {
			g.log.Error("Failed to restart game", zap.Error(err))
			return &turn{text: narrator.Goodbye}
		}
		return t
	case answerNo:
		return &turn{text: narrator.Goodbye, keyboard: removeKeyboard(), remove: true}
	}
	return &turn{text: narrator.AnswerYesOrNo, keyboard: yesNoKeyboard()}
}

// checkAnswer засчитывает ответ, если хотя бы один из вариантов правильный.
// answer2 равен 0, если вариант один.
func (g *game) checkAnswer(q domain.Question, answer1, answer2 domain.Variant) (*turn, error) {
	narr := g.engine.narrator
	level := g.state.Level
	correct := answer1 == q.RightVariant || answer2 == q.RightVariant

	chatID, question := g.msg.ChatID, g.state.Question
	record := func(result string) func() {
		return func() {
			metrics.AnswersTotal.WithLabelValues(result).Inc()
			g.engine.events.RecordAnswer(chatID, level, question, answer1, answer2, correct)
		}
	}

	if !correct {
		next := domain.NewOver()
		text := narr.WrongAnswer(level, q) + "\n\n" + narr.TryAgain()
		return (&turn{text: text, keyboard: yesNoKeyboard(), next: &next}).then(record("wrong")), nil
	}

	if level >= domain.MaxLevel {
		next := domain.NewOver()
		text := narr.Win() + "\n\n" + narr.TryAgain()
		return (&turn{text: text, keyboard: yesNoKeyboard(), next: &next}).then(record("win")), nil
	}

	newLevel := level + 1
	idx, nq, err := g.engine.randomQuestion(newLevel)
	if err != nil {
		return nil, fmt.Errorf("нет вопроса для уровня %d: %w", newLevel, err)
	}
	next := domain.NewPlaying(newLevel, idx, g.state.UsedHints)
	text := narr.RightAnswer(newLevel, q) + "\n\n" + narr.AskQuestion(g.userName(), newLevel, nq)
	return (&turn{text: text, keyboard: gameKeyboard(next), next: &next}).then(record("right")), nil
}
