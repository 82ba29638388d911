package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// SecretsDir - каталог Docker Secrets. Переопределяется в тестах.
var SecretsDir = "/run/secrets"

// readSecret читает секрет из файла Docker Secrets, при его отсутствии - из переменной окружения envKey.
// Пустой файл считается ошибкой конфигурации.
func readSecret(name, envKey string) (string, error) {
	filePath := filepath.Join(SecretsDir, name)
	secretBytes, err := os.ReadFile(filePath)
	switch {
	case err == nil:
		secret := strings.TrimSpace(string(secretBytes))
		if secret == "" {
			return "", fmt.Errorf("secret file %s is empty", filePath)
		}
		return secret, nil
	case errors.Is(err, fs.ErrNotExist):
		return strings.TrimSpace(os.Getenv(envKey)), nil
	default:
		return "", fmt.Errorf("failed to read secret file %s: %w", filePath, err)
	}
}
