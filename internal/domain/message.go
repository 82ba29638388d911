package domain

// IncomingMessage - входящее текстовое сообщение, уже извлечённое из апдейта транспорта.
type IncomingMessage struct {
	ChatID int64
	User   User
	Text   string
}

// User - профиль отправителя для аналитики.
type User struct {
	ID           int64  `json:"id" db:"id"`
	IsBot        bool   `json:"is_bot" db:"is_bot"`
	FirstName    string `json:"first_name" db:"first_name"`
	LastName     string `json:"last_name,omitempty" db:"last_name"`
	Username     string `json:"username,omitempty" db:"username"`
	LanguageCode string `json:"language_code,omitempty" db:"language_code"`
}

// DisplayName - имя, которым ведущий обращается к игроку.
func (u User) DisplayName() string {
	switch {
	case u.FirstName != "":
		return u.FirstName
	case u.Username != "":
		return u.Username
	}
	return "игрок"
}

// Keyboard - сетка кнопок ответа.
// Nil означает "клавиатуру не трогать", Remove - убрать клавиатуру у пользователя.
type Keyboard struct {
	Rows    [][]string
	OneTime bool
	Remove  bool
}

// Reply - исходящее сообщение игроку.
type Reply struct {
	ChatID   int64
	Text     string
	Keyboard *Keyboard
	// Markdown - текст размечен Markdown (правила с таблицей выигрышей).
	Markdown bool
}
