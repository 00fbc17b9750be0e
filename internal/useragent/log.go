// Package useragent - сервис, который записывает заголовки User-Agent в файл
// и отдает по ним агрегированную статистику.
package useragent

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileLog хранит user-agent'ы JSON-массивом строк в одном файле.
type FileLog struct {
	mu   sync.Mutex
	path string
}

// NewFileLog не создает файл: отсутствующий файл читается как пустой лог.
func NewFileLog(path string) *FileLog {
	return &FileLog{path: path}
}

// Append дописывает строку в конец лога. Файл перезаписывается атомарно.
func (l *FileLog) Append(userAgent string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.read()
	if err != nil {
		return err
	}
	entries = append(entries, userAgent)

	b, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomic(l.path, b)
}

// Entries возвращает все записи по порядку.
func (l *FileLog) Entries() ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.read()
}

func (l *FileLog) read() ([]string, error) {
	b, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read user-agent log: %w", err)
	}
	if len(strings.TrimSpace(string(b))) == 0 {
		return []string{}, nil
	}
	var entries []string
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, fmt.Errorf("parse user-agent log %s: %w", l.path, err)
	}
	return entries, nil
}

func writeAtomic(path string, b []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".ualog-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// LastToken возвращает часть строки после последнего пробела;
// строка без пробелов возвращается целиком.
func LastToken(userAgent string) string {
	if i := strings.LastIndex(userAgent, " "); i >= 0 {
		return userAgent[i+1:]
	}
	return userAgent
}

// Graph считает, сколько раз встречается каждый LastToken.
func Graph(entries []string) map[string]int {
	counts := make(map[string]int)
	for _, ua := range entries {
		counts[LastToken(ua)]++
	}
	return counts
}
