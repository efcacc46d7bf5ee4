package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Env         string
	ServerPort  int
	FrontendURL string
	JWTSecret   string
	UploadsDir  string
	Database    DatabaseConfig
	Mail        MailConfig
	Storage     StorageConfig
	Notify      NotifyConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	UseSSL   bool
}

type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// SupportAddr receives contact form messages.
	SupportAddr string
}

type StorageConfig struct {
	Backend string
	Folder  string
	Minio   MinioConfig
	GCS     GCSConfig
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicBaseURL overrides the endpoint-derived URL recorded on
	// uploaded images, e.g. a CDN in front of the bucket.
	PublicBaseURL string
}

type GCSConfig struct {
	Bucket          string
	ProjectID       string
	CredentialsFile string
}

type NotifyConfig struct {
	Backend  string
	Channel  string
	RabbitMQ RabbitMQConfig
	PubSub   PubSubConfig
}

type RabbitMQConfig struct {
	URL             string
	QueueDurable    bool
	QueueAutoDelete bool
}

type PubSubConfig struct {
	ProjectID       string
	CredentialsFile string
}

func LoadConfig() Config {
	if os.Getenv("ENV") == "dev" {
		godotenv.Load()
	}

	dbConfig := DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnvInt("DB_PORT", 5432),
		User:     getEnv("DB_USER", "pinvent"),
		Password: getEnv("DB_PASSWORD", "password"),
		DBName:   getEnv("DB_NAME", "pinvent_db"),
		UseSSL:   getEnvBool("DB_USE_SSL", false),
	}

	mailUser := getEnv("EMAIL_USER", "")
	mailConfig := MailConfig{
		Host:        getEnv("EMAIL_HOST", "localhost"),
		Port:        getEnvInt("EMAIL_PORT", 587),
		Username:    mailUser,
		Password:    getEnv("EMAIL_PASS", ""),
		From:        getEnv("EMAIL_FROM", mailUser),
		SupportAddr: getEnv("EMAIL_SUPPORT", mailUser),
	}

	storageConfig := StorageConfig{
		Backend: strings.ToLower(getEnv("STORAGE_BACKEND", "minio")),
		Folder:  getEnv("STORAGE_FOLDER", "pinvent-app"),
		Minio: MinioConfig{
			Endpoint:      getEnv("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey:     getEnv("MINIO_ACCESS_KEY", "minioadmin"),
			SecretKey:     getEnv("MINIO_SECRET_KEY", "minioadmin"),
			Bucket:        getEnv("MINIO_BUCKET", "pinvent-images"),
			UseSSL:        getEnvBool("MINIO_USE_SSL", false),
			PublicBaseURL: getEnv("MINIO_PUBLIC_URL", ""),
		},
		GCS: GCSConfig{
			Bucket:          getEnv("GCS_BUCKET", ""),
			ProjectID:       getEnv("GCS_PROJECT_ID", ""),
			CredentialsFile: getEnv("GCS_CREDENTIALS_FILE", ""),
		},
	}

	notifyConfig := NotifyConfig{
		Backend: strings.ToLower(getEnv("NOTIFY_BACKEND", "")),
		Channel: getEnv("NOTIFY_CHANNEL", "pinvent-events"),
		RabbitMQ: RabbitMQConfig{
			URL:             getEnv("RABBITMQ_URL", ""),
			QueueDurable:    getEnvBool("RABBITMQ_QUEUE_DURABLE", true),
			QueueAutoDelete: getEnvBool("RABBITMQ_QUEUE_AUTO_DELETE", false),
		},
		PubSub: PubSubConfig{
			ProjectID:       getEnv("PUBSUB_PROJECT_ID", ""),
			CredentialsFile: getEnv("PUBSUB_CREDENTIALS_FILE", ""),
		},
	}

	return Config{
		Env:         getEnv("ENV", "production"),
		ServerPort:  getEnvInt("PORT", 5000),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),
		JWTSecret:   getEnv("JWT_SECRET", ""),
		UploadsDir:  getEnv("UPLOADS_DIR", "uploads"),
		Database:    dbConfig,
		Mail:        mailConfig,
		Storage:     storageConfig,
		Notify:      notifyConfig,
	}
}

// IsDev reports whether the server runs in development mode. Error
// responses include stack traces only in this mode.
func (c Config) IsDev() bool {
	return c.Env == "dev"
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		var value int
		fmt.Sscanf(valueStr, "%d", &value)
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(key); exists {
		switch strings.ToLower(strings.TrimSpace(valueStr)) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return defaultValue
}
