package bot

import (
	"strconv"
	"strings"
	"unicode"

	"tg-sighting-bot/internal/domain"
)

// Command: распознанная команда и её аргумент.
type Command struct {
	Name string
	Args string
}

const (
	cmdStart       = "start"
	cmdHelp        = "help"
	cmdSetLoc      = "setloc"
	cmdSetRadius   = "setradius"
	cmdFilterIV    = "filteriv"
	cmdClearFilter = "clearfilter"
	cmdMonitor     = "monitor"
	cmdStop        = "stop"
	cmdSettings    = "settings"
	cmdList        = "list"
	cmdMore        = "more"
)

var knownCommands = map[string]struct{}{
	cmdStart: {}, cmdHelp: {}, cmdSetLoc: {}, cmdSetRadius: {}, cmdFilterIV: {},
	cmdClearFilter: {}, cmdMonitor: {}, cmdStop: {}, cmdSettings: {}, cmdList: {}, cmdMore: {},
}

const (
	defaultRadiusKm  = 1.0
	defaultThreshold = 80
)

// ParseCommand делит текст на ключевое слово и остаток по первому пробелу.
// Ключевое слово сравнивается целиком и с учётом регистра; суффикс @BotName
// отбрасывается. Возвращает ErrUnknownCommand для текста без известной команды.
func ParseCommand(text string) (Command, error) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return Command{}, domain.ErrUnknownCommand
	}
	keyword, rest := text, ""
	if i := strings.IndexFunc(text, unicode.IsSpace); i >= 0 {
		keyword, rest = text[:i], strings.TrimSpace(text[i:])
	}
	keyword = strings.TrimPrefix(keyword, "/")
	if at := strings.IndexByte(keyword, '@'); at >= 0 {
		keyword = keyword[:at]
	}
	if _, ok := knownCommands[keyword]; !ok {
		return Command{Name: keyword}, domain.ErrUnknownCommand
	}
	return Command{Name: keyword, Args: rest}, nil
}

// ParseRadius разбирает аргумент /setradius. Пустой аргумент означает 1 км,
// суффикс "km" допускается.
func ParseRadius(arg string) (float64, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return defaultRadiusKm, nil
	}
	lower := strings.ToLower(arg)
	lower = strings.TrimSpace(strings.TrimSuffix(lower, "km"))
	km, err := strconv.ParseFloat(lower, 64)
	if err != nil {
		return 0, domain.ErrInvalidRadius
	}
	if err := domain.ValidateRadius(km); err != nil {
		return 0, err
	}
	return km, nil
}

// ParseThreshold разбирает аргумент /filteriv. Пустой аргумент означает 80,
// суффикс "%" допускается.
func ParseThreshold(arg string) (int, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return defaultThreshold, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(strings.TrimSuffix(arg, "%")))
	if err != nil || n < 0 || n > 100 {
		return 0, domain.ErrInvalidThreshold
	}
	return n, nil
}
