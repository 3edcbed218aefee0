// Пакет version хранит метаданные сборки resto-server,
// заполняемые при сборке через -ldflags.
package version

import "fmt"

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Info возвращает версию, коммит и дату сборки.
func Info() (v, c, d string) { return version, commit, date }

// Version возвращает версию сборки.
func Version() string { return version }

// Commit возвращает хеш коммита сборки.
func Commit() string { return commit }

// Date возвращает дату сборки.
func Date() string { return date }

// String собирает строку версии для стартового лога.
func String() string {
	return fmt.Sprintf("version=%s commit=%s date=%s", version, commit, date)
}
