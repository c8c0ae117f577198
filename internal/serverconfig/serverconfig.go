package serverconfig

import (
	"flag"
	"os"
)

type ConfigStore struct {
	FlagRunAddr      string
	FlagDatabase     string
	FlagUploadURL    string
	FlagUploadPreset string
}

func NewConfigStore() *ConfigStore {
	return &ConfigStore{
		FlagRunAddr:      "",
		FlagDatabase:     "",
		FlagUploadURL:    "",
		FlagUploadPreset: "",
	}
}

// ParseFlags обрабатывает аргументы командной строки
// и сохраняет их значения в соответствующих переменных
func (configStore *ConfigStore) ParseFlags() {
	// регистрируем переменную flagRunAddr
	// как аргумент -a со значением :8080 по умолчанию
	flag.StringVar(&configStore.FlagRunAddr, "a", ":8080", "address and port to run server")
	flag.StringVar(&configStore.FlagDatabase, "d", "", "data for connecting to db")
	flag.StringVar(&configStore.FlagUploadURL, "u", "", "image upload service url")
	flag.StringVar(&configStore.FlagUploadPreset, "p", "", "image upload preset")
	// парсим переданные серверу аргументы в зарегистрированные переменные
	flag.Parse()

	if envRunAddr := os.Getenv("RUN_ADDRESS"); envRunAddr != "" {
		configStore.FlagRunAddr = envRunAddr
	}

	if envDatabase := os.Getenv("DATABASE_URI"); envDatabase != "" {
		configStore.FlagDatabase = envDatabase
	}

	if envUploadURL := os.Getenv("UPLOAD_URL"); envUploadURL != "" {
		configStore.FlagUploadURL = envUploadURL
	}

	if envUploadPreset := os.Getenv("UPLOAD_PRESET"); envUploadPreset != "" {
		configStore.FlagUploadPreset = envUploadPreset
	}
}
