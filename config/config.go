package config

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Server       Server
	Database     Database
	JWT          JWT
	Storage      Storage
	GeminiApiKey string
}

type Server struct {
	Port string
	Mode string // "debug" or "release"
}

type Database struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type JWT struct {
	Secret            string
	AccessExpiryMins  int
	RefreshExpiryMins int
}

type Storage struct {
	Provider      string // "local" or "minio"
	LocalPath     string
	MinioEndpoint string
	MinioAccessID string
	MinioSecret   string
	MinioBucket   string
}

func NewConfig() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		log.Warn().Err(err).Msg("Error reading config file")
	}

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_MODE", "debug")
	viper.SetDefault("JWT_ACCESS_EXPIRY_MINS", 60)
	viper.SetDefault("JWT_REFRESH_EXPIRY_MINS", 60*24*7)
	viper.SetDefault("STORAGE_PROVIDER", "local")
	viper.SetDefault("STORAGE_LOCAL_PATH", "uploads")

	var config Config

	config.Server.Port = viper.GetString("SERVER_PORT")
	config.Server.Mode = viper.GetString("SERVER_MODE")
	config.Database.Host = viper.GetString("DATABASE_HOST")
	config.Database.Port = viper.GetString("DATABASE_PORT")
	config.Database.User = viper.GetString("DATABASE_USER")
	config.Database.Password = viper.GetString("DATABASE_PASSWORD")
	config.Database.Name = viper.GetString("DATABASE_NAME")

	config.JWT.Secret = viper.GetString("JWT_SECRET")
	config.JWT.AccessExpiryMins = viper.GetInt("JWT_ACCESS_EXPIRY_MINS")
	config.JWT.RefreshExpiryMins = viper.GetInt("JWT_REFRESH_EXPIRY_MINS")

	config.Storage.Provider = viper.GetString("STORAGE_PROVIDER")
	config.Storage.LocalPath = viper.GetString("STORAGE_LOCAL_PATH")
	config.Storage.MinioEndpoint = viper.GetString("MINIO_ENDPOINT")
	config.Storage.MinioAccessID = viper.GetString("MINIO_ACCESS_ID")
	config.Storage.MinioSecret = viper.GetString("MINIO_SECRET")
	config.Storage.MinioBucket = viper.GetString("MINIO_BUCKET")

	config.GeminiApiKey = viper.GetString("GEMINI_API_KEY")

	log.Info().Str("port", config.Server.Port).Str("mode", config.Server.Mode).Msg("Config loaded")
	return &config, nil
}
