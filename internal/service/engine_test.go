package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"millionaire-bot/internal/domain"
	"millionaire-bot/internal/events"
	eventMocks "millionaire-bot/internal/events/mocks"
	"millionaire-bot/internal/narrator"
	"millionaire-bot/internal/questions"
	"millionaire-bot/internal/repository"
	repoMocks "millionaire-bot/internal/repository/mocks"
	"millionaire-bot/internal/service"
	serviceMocks "millionaire-bot/internal/service/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const chatID int64 = 1001

// fixedRandom всегда выбирает первый элемент, Float64 задаётся тестом.
type fixedRandom struct {
	mu sync.Mutex
	f  float64
}

func (r *fixedRandom) IntN(int) int { return 0 }

func (r *fixedRandom) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.f
}

func testSpeech() *narrator.Speech {
	return &narrator.Speech{
		StartGame:       []string{"Hello {user}!"},
		FirstQuestion:   []string{"First {no}: {question}"},
		AskQuestion:     []string{"Question {no} for {sum}: {question}"},
		RightAnswer:     []string{"right {variant}"},
		EarnedCantFire:  []string{"safe {earned}"},
		WrongAnswer:     []string{"wrong, right was {variant}"},
		Win:             []string{"win"},
		TryAgain:        []string{"again?"},
		CallFriend:      []string{"{friend}: {variant}"},
		FriendsNames:    []string{"Bob"},
		PeopleHelp:      []string{"people:"},
		FiftyFifty:      []string{"fifty"},
		TwoAnswersStep1: []string{"first?"},
		TwoAnswersStep2: []string{"second?"},
		NewQuestion:     []string{"new {no}: {question}"},
	}
}

// testBank: на уровнях 0-13 по два вопроса (первый с ответом A, второй с ответом B),
// на последнем уровне один вопрос с ответом A.
func testBank(t *testing.T) *questions.Bank {
	t.Helper()
	type dto struct {
		Text  string `json:"text"`
		A     string `json:"a"`
		B     string `json:"b"`
		C     string `json:"c"`
		D     string `json:"d"`
		Right string `json:"right"`
	}
	levels := make([][]dto, questions.LevelsCount)
	for level := range levels {
		levels[level] = append(levels[level], dto{
			Text: fmt.Sprintf("L%d Q0", level), A: "a0", B: "b0", C: "c0", D: "d0", Right: "A",
		})
		if level < domain.MaxLevel {
			levels[level] = append(levels[level], dto{
				Text: fmt.Sprintf("L%d Q1", level), A: "a1", B: "b1", C: "c1", D: "d1", Right: "B",
			})
		}
	}
	raw, err := json.Marshal(levels)
	require.NoError(t, err)
	bank, err := questions.Parse(strings.NewReader(string(raw)))
	require.NoError(t, err)
	return bank
}

type fixture struct {
	engine    *service.GameEngine
	store     *repository.MemorySessionRepository
	messenger *serviceMocks.Messenger
	rnd       *fixedRandom
}

func newFixture(t *testing.T, sink events.EventSink) *fixture {
	t.Helper()
	f := &fixture{
		store:     repository.NewMemorySessionRepository(zap.NewNop()),
		messenger: new(serviceMocks.Messenger),
		rnd:       &fixedRandom{},
	}
	f.messenger.On("Send", mock.Anything, mock.Anything).Return(nil)
	narr := narrator.New(testSpeech(), f.rnd)
	f.engine = service.NewGameEngine(f.store, testBank(t), narr, f.messenger, sink, zap.NewNop())
	return f
}

func (f *fixture) send(t *testing.T, text string) *domain.Reply {
	t.Helper()
	reply, err := f.engine.HandleMessage(context.Background(), domain.IncomingMessage{
		ChatID: chatID,
		User:   domain.User{ID: 7, FirstName: "Иван"},
		Text:   text,
	})
	require.NoError(t, err)
	require.NotNil(t, reply)
	return reply
}

func (f *fixture) put(t *testing.T, s domain.GameState) {
	t.Helper()
	require.NoError(t, f.store.Upsert(context.Background(), chatID, s))
}

func (f *fixture) state(t *testing.T) domain.GameState {
	t.Helper()
	s, err := f.store.Get(context.Background(), chatID)
	require.NoError(t, err)
	return s
}

func (f *fixture) hasSession(t *testing.T) bool {
	t.Helper()
	_, err := f.store.Get(context.Background(), chatID)
	if errors.Is(err, domain.ErrNotFound) {
		return false
	}
	require.NoError(t, err)
	return true
}

func keyboardTexts(kb *domain.Keyboard) []string {
	if kb == nil {
		return nil
	}
	var out []string
	for _, row := range kb.Rows {
		out = append(out, row...)
	}
	return out
}

func TestHandleMessage_NewChat(t *testing.T) {
	t.Run("start begins game at level 0", func(t *testing.T) {
		sink := new(eventMocks.EventSink)
		sink.On("RecordGameStart", chatID, mock.MatchedBy(func(u domain.User) bool { return u.ID == 7 })).Once()
		f := newFixture(t, sink)

		reply := f.send(t, "/start")

		assert.Equal(t, domain.NewPlaying(0, 0, 0), f.state(t))
		assert.Contains(t, reply.Text, "Hello Иван!")
		assert.Contains(t, reply.Text, "First 1: L0 Q0")
		require.NotNil(t, reply.Keyboard)
		assert.Equal(t, []string{"A", "B"}, reply.Keyboard.Rows[0])
		assert.Equal(t, []string{"C", "D"}, reply.Keyboard.Rows[1])
		assert.Contains(t, keyboardTexts(reply.Keyboard), "50/50")
		assert.Contains(t, keyboardTexts(reply.Keyboard), "Замена вопроса")
		sink.AssertExpectations(t)
		f.messenger.AssertNumberOfCalls(t, "Send", 1)
	})

	t.Run("any text begins game", func(t *testing.T) {
		f := newFixture(t, nil)
		f.send(t, "привет")
		assert.Equal(t, domain.StatePlaying, f.state(t).Kind)
	})

	t.Run("decline stores nothing", func(t *testing.T) {
		f := newFixture(t, nil)
		reply := f.send(t, " Нет ")
		assert.Equal(t, narrator.Goodbye, reply.Text)
		assert.False(t, f.hasSession(t))
	})

	t.Run("help stores nothing", func(t *testing.T) {
		f := newFixture(t, nil)
		reply := f.send(t, "/help")
		assert.True(t, reply.Markdown)
		assert.Contains(t, reply.Text, "Правила игры")
		assert.False(t, f.hasSession(t))
	})
}

func TestHandleMessage_Answers(t *testing.T) {
	t.Run("right answer raises level and keeps hints", func(t *testing.T) {
		sink := new(eventMocks.EventSink)
		sink.On("RecordAnswer", chatID, uint8(3), 0, domain.VariantA, domain.Variant(0), true).Once()
		f := newFixture(t, sink)
		f.put(t, domain.NewPlaying(3, 0, domain.HintFiftyFifty|domain.HintCallFriend))

		reply := f.send(t, "a")

		s := f.state(t)
		assert.Equal(t, uint8(4), s.Level)
		assert.Equal(t, domain.HintFiftyFifty|domain.HintCallFriend, s.UsedHints)
		assert.Contains(t, reply.Text, "right A")
		assert.Contains(t, reply.Text, "Question 5 for 1000: L4 Q0")
		assert.NotContains(t, keyboardTexts(reply.Keyboard), "50/50")
		sink.AssertExpectations(t)
	})

	t.Run("cyrillic letter is accepted", func(t *testing.T) {
		f := newFixture(t, nil)
		f.put(t, domain.NewPlaying(0, 0, 0))
		f.send(t, "А")
		assert.Equal(t, uint8(1), f.state(t).Level)
	})

	t.Run("reaching safe level announces earned sum", func(t *testing.T) {
		f := newFixture(t, nil)
		f.put(t, domain.NewPlaying(4, 0, 0))
		reply := f.send(t, "A")
		assert.Contains(t, reply.Text, "safe 1000")
	})

	t.Run("right answer on last level wins", func(t *testing.T) {
		f := newFixture(t, nil)
		f.put(t, domain.NewPlaying(domain.MaxLevel, 0, 0))

		reply := f.send(t, "a")

		assert.Equal(t, domain.NewOver(), f.state(t))
		assert.Contains(t, reply.Text, "win")
		assert.Equal(t, [][]string{{"Да", "Нет"}}, reply.Keyboard.Rows)
	})

	for _, tc := range []struct {
		level  uint8
		earned string
	}{
		{level: 12, earned: "Но вы заработали 32000 рублей"},
		{level: 7, earned: "Но вы заработали 1000 рублей"},
		{level: 2, earned: ""},
	} {
		t.Run(fmt.Sprintf("wrong answer on level %d", tc.level), func(t *testing.T) {
			f := newFixture(t, nil)
			f.put(t, domain.NewPlaying(tc.level, 0, 0))

			reply := f.send(t, "b")

			assert.Equal(t, domain.NewOver(), f.state(t))
			assert.Contains(t, reply.Text, "wrong, right was A")
			if tc.earned == "" {
				assert.NotContains(t, reply.Text, "заработали")
			} else {
				assert.Contains(t, reply.Text, tc.earned)
			}
		})
	}

	t.Run("garbage input keeps state", func(t *testing.T) {
		f := newFixture(t, nil)
		start := domain.NewPlaying(2, 1, domain.HintPeopleHelp)
		f.put(t, start)

		reply := f.send(t, "может быть B?")

		assert.Equal(t, narrator.AnswerWithLetter, reply.Text)
		assert.Equal(t, start, f.state(t))
	})

	t.Run("start while playing", func(t *testing.T) {
		f := newFixture(t, nil)
		start := domain.NewPlaying(2, 1, 0)
		f.put(t, start)

		reply := f.send(t, "/start")

		assert.Equal(t, narrator.AlreadyPlaying, reply.Text)
		assert.Equal(t, start, f.state(t))
	})

	t.Run("removed letter still counts as wrong answer", func(t *testing.T) {
		f := newFixture(t, nil)
		s := domain.NewPlaying(1, 0, domain.HintFiftyFifty)
		s.Removed1, s.Removed2 = domain.VariantB, domain.VariantC
		f.put(t, s)

		f.send(t, "c")
		assert.Equal(t, domain.StateOver, f.state(t).Kind)
	})
}

func TestHandleMessage_Hints(t *testing.T) {
	t.Run("fifty fifty twice", func(t *testing.T) {
		sink := new(eventMocks.EventSink)
		sink.On("RecordHint", chatID, uint8(2), 0, domain.HintFiftyFifty).Once()
		f := newFixture(t, sink)
		f.put(t, domain.NewPlaying(2, 0, 0))

		reply := f.send(t, "50/50")
		s := f.state(t)
		assert.True(t, s.UsedHints.Has(domain.HintFiftyFifty))
		assert.NotEqual(t, domain.VariantA, s.Removed1)
		assert.NotEqual(t, domain.VariantA, s.Removed2)
		assert.NotEqual(t, s.Removed1, s.Removed2)
		assert.NotContains(t, keyboardTexts(reply.Keyboard), s.Removed1.String())
		assert.NotContains(t, keyboardTexts(reply.Keyboard), s.Removed2.String())
		assert.NotContains(t, keyboardTexts(reply.Keyboard), "50/50")
		assert.Contains(t, reply.Text, "fifty")

		reply = f.send(t, "50/50")
		assert.Equal(t, narrator.HintAlreadyUsed[domain.HintFiftyFifty], reply.Text)
		assert.Equal(t, s, f.state(t))
		sink.AssertExpectations(t)
	})

	t.Run("people help", func(t *testing.T) {
		f := newFixture(t, nil)
		f.put(t, domain.NewPlaying(0, 0, 0))

		reply := f.send(t, "помощь зала")

		assert.True(t, f.state(t).UsedHints.Has(domain.HintPeopleHelp))
		assert.Contains(t, reply.Text, "A |")
		assert.Contains(t, reply.Text, "100%")
	})

	t.Run("call friend", func(t *testing.T) {
		f := newFixture(t, nil)
		f.put(t, domain.NewPlaying(0, 0, 0))

		reply := f.send(t, "Звонок другу")

		assert.True(t, f.state(t).UsedHints.Has(domain.HintCallFriend))
		assert.Equal(t, "Bob: A", reply.Text)
	})

	t.Run("new question", func(t *testing.T) {
		f := newFixture(t, nil)
		s := domain.NewPlaying(3, 0, domain.HintFiftyFifty)
		s.Removed1, s.Removed2 = domain.VariantB, domain.VariantC
		f.put(t, s)

		reply := f.send(t, "Замена вопроса")

		assert.Equal(t, domain.NewPlaying(3, 1, domain.HintFiftyFifty|domain.HintNewQuestion), f.state(t))
		assert.Equal(t, "new 4: L3 Q1\n• A: a1\n• B: b1\n• C: c1\n• D: d1", reply.Text)
	})

	t.Run("new question on single question level is not consumed", func(t *testing.T) {
		f := newFixture(t, nil)
		start := domain.NewPlaying(domain.MaxLevel, 0, 0)
		f.put(t, start)

		reply := f.send(t, "замена вопроса")

		assert.Equal(t, narrator.NoOtherQuestion, reply.Text)
		assert.Equal(t, start, f.state(t))
	})
}

func TestHandleMessage_TwoAnswers(t *testing.T) {
	t.Run("wrong then right", func(t *testing.T) {
		sink := new(eventMocks.EventSink)
		sink.On("RecordHint", chatID, uint8(1), 0, domain.HintTwoAnswers).Once()
		sink.On("RecordAnswer", chatID, uint8(1), 0, domain.VariantB, domain.VariantA, true).Once()
		f := newFixture(t, sink)
		f.put(t, domain.NewPlaying(1, 0, 0))

		reply := f.send(t, "два ответа")
		s := f.state(t)
		assert.Equal(t, domain.StateWaitingSecondAnswer, s.Kind)
		assert.Equal(t, domain.Variant(0), s.FirstAnswer)
		assert.Equal(t, "first?", reply.Text)
		assert.Equal(t, []string{"A", "B", "C", "D"}, keyboardTexts(reply.Keyboard))

		reply = f.send(t, "50/50")
		assert.Equal(t, narrator.AnswerWithLetter, reply.Text)

		reply = f.send(t, "b")
		s = f.state(t)
		assert.Equal(t, domain.VariantB, s.FirstAnswer)
		assert.Equal(t, "second?", reply.Text)
		assert.NotContains(t, keyboardTexts(reply.Keyboard), "B")

		reply = f.send(t, "b")
		assert.Equal(t, narrator.DuplicateAnswer, reply.Text)
		assert.Equal(t, s, f.state(t))

		f.send(t, "a")
		s = f.state(t)
		assert.Equal(t, domain.StatePlaying, s.Kind)
		assert.Equal(t, uint8(2), s.Level)
		assert.True(t, s.UsedHints.Has(domain.HintTwoAnswers))
		sink.AssertExpectations(t)
	})

	t.Run("used hint while waiting warns and keeps state", func(t *testing.T) {
		f := newFixture(t, nil)
		waiting := domain.NewPlaying(1, 0, domain.HintFiftyFifty).WaitingTwoAnswers()
		waiting.FirstAnswer = domain.VariantC
		f.put(t, waiting)

		reply := f.send(t, "Два ответа")
		assert.Equal(t, narrator.HintAlreadyUsed[domain.HintTwoAnswers], reply.Text)
		assert.NotContains(t, keyboardTexts(reply.Keyboard), "C")
		assert.Equal(t, waiting, f.state(t))

		reply = f.send(t, "50/50")
		assert.Equal(t, narrator.HintAlreadyUsed[domain.HintFiftyFifty], reply.Text)
		assert.Equal(t, waiting, f.state(t))

		reply = f.send(t, "звонок другу")
		assert.Equal(t, narrator.AnswerWithLetter, reply.Text)
		assert.Equal(t, waiting, f.state(t))
	})

	t.Run("right on first guess", func(t *testing.T) {
		f := newFixture(t, nil)
		f.put(t, domain.NewPlaying(1, 0, 0).WaitingTwoAnswers())

		f.send(t, "a")
		assert.Equal(t, uint8(2), f.state(t).Level)
	})

	t.Run("both wrong ends game", func(t *testing.T) {
		f := newFixture(t, nil)
		f.put(t, domain.NewPlaying(1, 0, 0).WaitingTwoAnswers())

		f.send(t, "c")
		f.send(t, "d")
		assert.Equal(t, domain.NewOver(), f.state(t))
	})

	t.Run("hint is single use", func(t *testing.T) {
		f := newFixture(t, nil)
		start := domain.NewPlaying(1, 0, domain.HintTwoAnswers)
		f.put(t, start)

		reply := f.send(t, "Два ответа")
		assert.Equal(t, narrator.HintAlreadyUsed[domain.HintTwoAnswers], reply.Text)
		assert.Equal(t, start, f.state(t))
	})
}

func TestHandleMessage_Over(t *testing.T) {
	t.Run("yes starts new game", func(t *testing.T) {
		f := newFixture(t, nil)
		f.put(t, domain.NewOver())
		f.send(t, "Да")
		assert.Equal(t, domain.NewPlaying(0, 0, 0), f.state(t))
	})

	t.Run("start starts new game", func(t *testing.T) {
		f := newFixture(t, nil)
		f.put(t, domain.NewOver())
		f.send(t, "/start")
		assert.Equal(t, domain.StatePlaying, f.state(t).Kind)
	})

	t.Run("no removes session", func(t *testing.T) {
		f := newFixture(t, nil)
		f.put(t, domain.NewOver())

		reply := f.send(t, "нет")

		assert.Equal(t, narrator.Goodbye, reply.Text)
		require.NotNil(t, reply.Keyboard)
		assert.True(t, reply.Keyboard.Remove)
		assert.False(t, f.hasSession(t))
	})

	t.Run("message after no starts fresh game", func(t *testing.T) {
		f := newFixture(t, nil)
		f.put(t, domain.NewOver())

		f.send(t, "нет")
		require.False(t, f.hasSession(t))

		reply := f.send(t, "привет")

		assert.Equal(t, domain.NewPlaying(0, 0, 0), f.state(t))
		assert.Contains(t, reply.Text, "Hello Иван!")
		assert.Contains(t, reply.Text, "First 1: L0 Q0")
		assert.Contains(t, keyboardTexts(reply.Keyboard), "50/50")
		assert.Contains(t, keyboardTexts(reply.Keyboard), "Замена вопроса")
	})

	t.Run("anything else asks yes or no", func(t *testing.T) {
		f := newFixture(t, nil)
		f.put(t, domain.NewOver())

		reply := f.send(t, "a")

		assert.Equal(t, narrator.AnswerYesOrNo, reply.Text)
		assert.Equal(t, domain.NewOver(), f.state(t))
	})

	t.Run("help keeps state", func(t *testing.T) {
		f := newFixture(t, nil)
		f.put(t, domain.NewOver())
		f.send(t, "/help")
		assert.Equal(t, domain.NewOver(), f.state(t))
	})
}

func TestHandleMessage_Failures(t *testing.T) {
	t.Run("delivery failure keeps committed state", func(t *testing.T) {
		store := repository.NewMemorySessionRepository(zap.NewNop())
		messenger := new(serviceMocks.Messenger)
		messenger.On("Send", mock.Anything, mock.Anything).Return(errors.New("telegram down"))
		engine := service.NewGameEngine(store, testBank(t), narrator.New(testSpeech(), &fixedRandom{}), messenger, nil, zap.NewNop())

		reply, err := engine.HandleMessage(context.Background(), domain.IncomingMessage{ChatID: chatID, Text: "/start"})

		require.NoError(t, err)
		require.NotNil(t, reply)
		s, err := store.Get(context.Background(), chatID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatePlaying, s.Kind)
	})

	t.Run("store failure is returned and nothing is sent", func(t *testing.T) {
		store := new(repoMocks.SessionStore)
		dbErr := errors.New("connection refused")
		store.On("Get", mock.Anything, chatID).Return(domain.GameState{}, dbErr).Once()
		messenger := new(serviceMocks.Messenger)
		engine := service.NewGameEngine(store, testBank(t), narrator.New(testSpeech(), &fixedRandom{}), messenger, nil, zap.NewNop())

		_, err := engine.HandleMessage(context.Background(), domain.IncomingMessage{ChatID: chatID, Text: "a"})

		assert.ErrorIs(t, err, dbErr)
		messenger.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})

	t.Run("upsert failure is returned and nothing is sent", func(t *testing.T) {
		store := new(repoMocks.SessionStore)
		dbErr := errors.New("disk full")
		store.On("Get", mock.Anything, chatID).Return(domain.NewPlaying(0, 0, 0), nil).Once()
		store.On("Upsert", mock.Anything, chatID, mock.Anything).Return(dbErr).Once()
		messenger := new(serviceMocks.Messenger)
		sink := new(eventMocks.EventSink)
		engine := service.NewGameEngine(store, testBank(t), narrator.New(testSpeech(), &fixedRandom{}), messenger, sink, zap.NewNop())

		_, err := engine.HandleMessage(context.Background(), domain.IncomingMessage{ChatID: chatID, Text: "a"})

		assert.ErrorIs(t, err, dbErr)
		messenger.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
		sink.AssertNotCalled(t, "RecordAnswer", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing question restarts game", func(t *testing.T) {
		f := newFixture(t, nil)
		f.put(t, domain.NewPlaying(5, 9, domain.HintPeopleHelp))

		f.send(t, "a")
		assert.Equal(t, domain.NewPlaying(0, 0, 0), f.state(t))
	})
}

func TestHandleMessage_SameChatIsSerialized(t *testing.T) {
	f := newFixture(t, nil)
	f.put(t, domain.NewPlaying(0, 0, 0))

	const answers = 10
	var wg sync.WaitGroup
	for i := 0; i < answers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.HandleMessage(context.Background(), domain.IncomingMessage{ChatID: chatID, Text: "a"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, uint8(answers), f.state(t).Level)
}
