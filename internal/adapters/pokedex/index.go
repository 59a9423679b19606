package pokedex

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"tg-sighting-bot/internal/domain"
)

// Index: справочник имён: строка N файла соответствует идентификатору N.
type Index struct {
	names  []string
	byName map[string]int
}

// Parse читает справочник по одному имени на строку.
func Parse(r io.Reader) (*Index, error) {
	idx := &Index{byName: make(map[string]int)}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		idx.names = append(idx.names, name)
		if name != "" {
			if _, dup := idx.byName[strings.ToLower(name)]; !dup {
				idx.byName[strings.ToLower(name)] = len(idx.names)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("чтение справочника: %w", err)
	}
	for len(idx.names) > 0 && idx.names[len(idx.names)-1] == "" {
		idx.names = idx.names[:len(idx.names)-1]
	}
	if len(idx.names) == 0 {
		return nil, fmt.Errorf("справочник пуст")
	}
	return idx, nil
}

// Load читает справочник из файла.
func Load(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("открытие справочника: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Name возвращает имя по идентификатору.
func (i *Index) Name(entityID int) (string, error) {
	if entityID < 1 || entityID > len(i.names) || i.names[entityID-1] == "" {
		return "", fmt.Errorf("%w: %d", domain.ErrUnknownEntity, entityID)
	}
	return i.names[entityID-1], nil
}

// Len возвращает размер справочника.
func (i *Index) Len() int {
	return len(i.names)
}

// Resolve переводит имена в идентификаторы. Неизвестное имя: ошибка.
func (i *Index) Resolve(names []string) ([]int, error) {
	ids := make([]int, 0, len(names))
	seen := make(map[int]struct{}, len(names))
	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		id, ok := i.byName[key]
		if !ok {
			return nil, fmt.Errorf("%w: %q", domain.ErrUnknownEntity, name)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

// LoadWatchList читает список отслеживаемых имён (по одному на строку) и
// переводит его в идентификаторы. Пустой путь означает «без фильтра».
func (i *Index) LoadWatchList(path string) ([]int, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение списка отслеживания: %w", err)
	}
	return i.Resolve(strings.Split(string(data), "\n"))
}
