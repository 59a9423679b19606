package domain

import (
	"strconv"
	"strings"
)

// Cursor хранит непрозрачный токен "since" фида. Нулевое значение означает
// запрос всех активных появлений.
type Cursor struct {
	value string
	set   bool
}

// NewCursor создаёт курсор. Пустая строка даёт незаданный курсор.
func NewCursor(value string) Cursor {
	value = strings.TrimSpace(value)
	if value == "" {
		return Cursor{}
	}
	return Cursor{value: value, set: true}
}

// Value возвращает значение курсора и признак, задан ли он.
func (c Cursor) Value() (string, bool) {
	return c.value, c.set
}

// IsSet сообщает, задан ли курсор.
func (c Cursor) IsSet() bool {
	return c.set
}

func (c Cursor) String() string {
	if !c.set {
		return "<unset>"
	}
	return c.value
}

// Advance возвращает курсор, который следует хранить после успешного опроса.
// Незаданный следующий курсор не затирает текущий; числовые курсоры не откатываются назад.
func (c Cursor) Advance(next Cursor) Cursor {
	if !next.set {
		return c
	}
	if !c.set {
		return next
	}
	cur, errCur := strconv.ParseInt(c.value, 10, 64)
	nxt, errNext := strconv.ParseInt(next.value, 10, 64)
	if errCur == nil && errNext == nil && nxt < cur {
		return c
	}
	return next
}
