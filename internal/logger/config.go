// internal/logger/config.go
package logger

// Config controls console and file output.
type Config struct {
	// File is the rotated JSON log; empty disables file output.
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"`    // мегабайты
	MaxAge     int    `mapstructure:"max_age"`     // дни
	MaxBackups int    `mapstructure:"max_backups"` // количество файлов
	Compress   bool   `mapstructure:"compress"`    // сжимать ротированные файлы
	// Development enables debug level and the development encoder.
	Development bool `mapstructure:"development"`
	// Pretty switches the console to the short colored format.
	Pretty bool `mapstructure:"pretty"`
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() Config {
	return Config{
		File:       "logs/bot.log",
		MaxSize:    100, // 100 MB
		MaxAge:     7,   // 7 дней
		MaxBackups: 3,   // 3 файла
		Compress:   true,
	}
}
