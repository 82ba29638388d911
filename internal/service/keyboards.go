package service

import "millionaire-bot/internal/domain"

// answerRows - буквы A B / C D без убранных вариантов и без exclude.
func answerRows(s domain.GameState, exclude domain.Variant) [][]string {
	var rows [][]string
	for i := 0; i < len(domain.AllVariants); i += 2 {
		var row []string
		for _, v := range domain.AllVariants[i : i+2] {
			if s.IsRemoved(v) || v == exclude {
				continue
			}
			row = append(row, v.String())
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}
	return rows
}

// gameKeyboard - буквы и ещё не использованные подсказки.
func gameKeyboard(s domain.GameState) *domain.Keyboard {
	rows := answerRows(s, 0)
	var hints []string
	for _, h := range domain.AllHints {
		if !s.UsedHints.Has(h) {
			hints = append(hints, hintLabels[h])
		}
	}
	// не больше трёх подсказок в ряду
	for len(hints) > 3 {
		rows = append(rows, hints[:3])
		hints = hints[3:]
	}
	if len(hints) > 0 {
		rows = append(rows, hints)
	}
	return &domain.Keyboard{Rows: rows}
}

// answerKeyboard - только буквы, для подсказки "два ответа".
func answerKeyboard(s domain.GameState) *domain.Keyboard {
	return &domain.Keyboard{Rows: answerRows(s, s.FirstAnswer)}
}

func yesNoKeyboard() *domain.Keyboard {
	return &domain.Keyboard{Rows: [][]string{{"Да", "Нет"}}, OneTime: true}
}

func removeKeyboard() *domain.Keyboard {
	return &domain.Keyboard{Remove: true}
}
