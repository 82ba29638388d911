package narrator

import "millionaire-bot/internal/domain"

// Фиксированные ответы на служебные ситуации.
const (
	AlreadyPlaying   = "Вы уже в игре!"
	AnswerWithLetter = "Отвечайте буквами A, B, C или D"
	AnswerYesOrNo    = "Отвечайте \"да\" или \"нет\""
	Goodbye          = "Спасибо за игру! Чтобы начать заново, напишите /start"
	DuplicateAnswer  = "Этот вариант вы уже называли. Выберите другой."
	NoOtherQuestion  = "На этом уровне нет другого вопроса, подсказка не использована."
)

// HintAlreadyUsed - предупреждение о повторной подсказке.
var HintAlreadyUsed = map[domain.Hints]string{
	domain.HintFiftyFifty:  "Вы уже использовали подсказку 50/50!",
	domain.HintPeopleHelp:  "Вы уже спрашивали зал!",
	domain.HintCallFriend:  "Вы уже звонили другу!",
	domain.HintTwoAnswers:  "Вы уже использовали право на ошибку!",
	domain.HintNewQuestion: "Вы уже меняли вопрос!",
}

const helpText = `*Правила игры*
Чтобы заработать миллион рублей, нужно ответить на 15 вопросов.
У каждого вопроса 4 варианта ответа, верный только один.
Каждый правильный ответ повышает сумму выигрыша:
%s
Суммы за 5-й и 10-й вопросы несгораемые: они останутся у игрока даже после неверного ответа.
При неверном ответе игра заканчивается, а выигрыш равен последней несгораемой сумме.
Подсказки, каждую можно использовать один раз:
• «50/50» убирает два неправильных варианта.
• «Помощь зала» показывает, как проголосовали зрители.
• «Звонок другу» даёт совет виртуального друга.
• «Два ответа» позволяет назвать два варианта.
• «Замена вопроса» меняет вопрос на другой такой же сложности.
Отвечайте буквами A, B, C или D.
/start начать игру
/help правила`
