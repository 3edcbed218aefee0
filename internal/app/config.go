package app

import (
	"os"
	"strings"
)

// Config описывает настройки запуска приложения.
type Config struct {
	// HTTPAddr — адрес HTTP API.
	HTTPAddr string
	// MetricsAddr — адрес служебного HTTP-сервера (метрики и health checks).
	MetricsAddr string
	// PostgresDSN — строка подключения к PostgreSQL. Пустая строка означает
	// in-memory хранилище (режим разработки и тестов).
	PostgresDSN string
	// KafkaBrokers — список брокеров через запятую. Пустая строка отключает
	// публикацию событий.
	KafkaBrokers string
	// BasicAuthAccounts — пары логин/пароль для basic auth API. Пустая карта
	// отключает аутентификацию.
	BasicAuthAccounts map[string]string
}

// DefaultConfig возвращает базовые адреса для API и метрик.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:    ":8080",
		MetricsAddr: ":9090",
	}
}

// ReadConfig формирует конфигурацию из переменных окружения RESTO_*.
func ReadConfig() Config {
	cfg := DefaultConfig()
	if v := os.Getenv("RESTO_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("RESTO_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	cfg.PostgresDSN = strings.TrimSpace(os.Getenv("RESTO_POSTGRES_DSN"))
	cfg.KafkaBrokers = strings.TrimSpace(os.Getenv("RESTO_KAFKA_BROKERS"))
	cfg.BasicAuthAccounts = parseAccounts(os.Getenv("RESTO_BASIC_AUTH"))
	return cfg
}

// parseAccounts разбирает строку вида "user:pass,user2:pass2".
// Записи без двоеточия или с пустым логином игнорируются.
func parseAccounts(raw string) map[string]string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	accounts := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		user, pass, ok := strings.Cut(pair, ":")
		user = strings.TrimSpace(user)
		if !ok || user == "" {
			continue
		}
		accounts[user] = pass
	}
	if len(accounts) == 0 {
		return nil
	}
	return accounts
}
