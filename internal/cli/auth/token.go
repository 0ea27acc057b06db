package auth

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// Store: файловое хранилище auth-токена и логина для CLI.
// Логин лежит рядом с токеном в файле <path>.login.
type Store struct {
	Path string
}

func NewStore(path string) Store { return Store{Path: path} }

func (s Store) loginPath() string { return s.Path + ".login" }

// SaveToken сохраняет токен, создавая каталог при необходимости.
func (s Store) SaveToken(token string) error {
	if token == "" {
		return errors.New("empty token")
	}
	return s.write(s.Path, token)
}

// LoadToken читает токен; отсутствие файла: ошибка.
func (s Store) LoadToken() (string, error) {
	return s.read(s.Path, "empty token file")
}

// SaveLogin запоминает последний успешный логин.
func (s Store) SaveLogin(login string) error {
	if login == "" {
		return errors.New("empty login")
	}
	return s.write(s.loginPath(), login)
}

func (s Store) LoadLogin() (string, error) {
	return s.read(s.loginPath(), "no stored login")
}

// Clear удаляет токен и логин; отсутствующие файлы не ошибка.
func (s Store) Clear() error {
	var errs []error
	for _, p := range []string{s.Path, s.loginPath()} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s Store) write(p, v string) error {
	if s.Path == "" {
		return errors.New("token file path is not configured")
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return err
	}
	return os.WriteFile(p, []byte(v), 0o600)
}

func (s Store) read(p, emptyMsg string) (string, error) {
	if s.Path == "" {
		return "", errors.New("token file path is not configured")
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return "", err
	}
	v := strings.TrimSpace(string(b))
	if v == "" {
		return "", errors.New(emptyMsg)
	}
	return v, nil
}
