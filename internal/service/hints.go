package service

import (
	"millionaire-bot/internal/domain"
	"millionaire-bot/internal/metrics"
	"millionaire-bot/internal/narrator"

	"go.uber.org/zap"
)

// Подписи кнопок подсказок.
const (
	labelFiftyFifty  = "50/50"
	labelPeopleHelp  = "Помощь зала"
	labelCallFriend  = "Звонок другу"
	labelTwoAnswers  = "Два ответа"
	labelNewQuestion = "Замена вопроса"
)

var hintLabels = map[domain.Hints]string{
	domain.HintFiftyFifty:  labelFiftyFifty,
	domain.HintPeopleHelp:  labelPeopleHelp,
	domain.HintCallFriend:  labelCallFriend,
	domain.HintTwoAnswers:  labelTwoAnswers,
	domain.HintNewQuestion: labelNewQuestion,
}

var hintsByText = func() map[string]domain.Hints {
	m := make(map[string]domain.Hints, len(hintLabels))
	for h, label := range hintLabels {
		m[normalize(label)] = h
	}
	return m
}()

func parseHint(text string) (domain.Hints, bool) {
	h, ok := hintsByText[text]
	return h, ok
}

// useHint применяет подсказку. Повторное использование не меняет состояние.
func (g *game) useHint(hint domain.Hints, q domain.Question) (*turn, error) {
	if g.state.UsedHints.Has(hint) {
		return &turn{text: narrator.HintAlreadyUsed[hint], keyboard: gameKeyboard(g.state)}, nil
	}

	narr := g.engine.narrator
	name := g.userName()
	next := g.state.WithHint(hint)
	var t *turn

	switch hint {
	case domain.HintFiftyFifty:
		text, r1, r2 := narr.FiftyFifty(q)
		next.Removed1, next.Removed2 = r1, r2
		t = &turn{text: text, keyboard: gameKeyboard(next), next: &next}

	case domain.HintPeopleHelp:
		text := narr.PeopleHelp(name, g.state.Level, q, g.state.AvailableVariants())
		t = &turn{text: text, keyboard: gameKeyboard(next), next: &next}

	case domain.HintCallFriend:
		text := narr.CallFriend(name, g.state.Level, q, g.state.AvailableVariants())
		t = &turn{text: text, keyboard: gameKeyboard(next), next: &next}

	case domain.HintTwoAnswers:
		next = g.state.WaitingTwoAnswers()
		t = &turn{text: narr.TwoAnswersStep1(), keyboard: answerKeyboard(next), next: &next}

	case domain.HintNewQuestion:
		count := g.engine.bank.Count(g.state.Level)
		if count < 2 {
			return &turn{text: narrator.NoOtherQuestion, keyboard: gameKeyboard(g.state)}, nil
		}
		// равномерно среди остальных вопросов уровня
		idx := narr.PickIndex(count - 1)
		if idx >= g.state.Question {
			idx++
		}
		nq, err := g.engine.bank.Get(g.state.Level, idx)
		if err != nil {
			return nil, err
		}
		next = domain.NewPlaying(g.state.Level, idx, g.state.UsedHints|domain.HintNewQuestion)
		t = &turn{text: narr.NewQuestion(g.state.Level, nq), keyboard: gameKeyboard(next), next: &next}
	}

	g.log.Debug("Hint used", zap.String("hint", hint.Tag()), zap.Uint8("level", g.state.Level))
	chatID, level, question := g.msg.ChatID, g.state.Level, g.state.Question
	return t.then(func() {
		metrics.HintsTotal.WithLabelValues(hint.Tag()).Inc()
		g.engine.events.RecordHint(chatID, level, question, hint)
	}), nil
}
