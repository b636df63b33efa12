package config

import (
	"flag"
	"log"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env        string     `yaml:"env" env:"ENV" env-default:"production"`
	Mongo      Mongo      `yaml:"mongo" env-required:"true"`
	MinIO      MinIO      `yaml:"minio" env-required:"true"`
	Redis      Redis      `yaml:"redis" env-required:"true"`
	HTTPServer HTTPServer `yaml:"http_server" env-required:"true"`
	Sweeper    Sweeper    `yaml:"sweeper"`
	SMTP       SMTP       `yaml:"smtp"`
	JWTSecret  string     `yaml:"jwt_secret" env:"JWT_SECRET" env-required:"true"`
}

// SMTP configures the verification mailer. When Host is empty the service
// logs verification links instead of sending mail.
type SMTP struct {
	Host     string `yaml:"host" env:"SMTP_HOST"`
	Port     int    `yaml:"port" env-default:"587"`
	Username string `yaml:"username" env:"SMTP_USERNAME"`
	Password string `yaml:"password" env:"SMTP_PASSWORD"`
	From     string `yaml:"from" env-default:"no-reply@festival.local"`
	BaseURL  string `yaml:"base_url" env-default:"http://localhost:8080"`
}

type HTTPServer struct {
	Address string `yaml:"address" env-default:"localhost:8080"`
}

type Mongo struct {
	URI      string `yaml:"uri" env:"MONGO_URI" env-default:"mongodb://localhost:27017"`
	Database string `yaml:"database" env-default:"festival"`
}

type MinIO struct {
	Endpoint        string `yaml:"endpoint" env-default:"localhost:9000"`
	AccessKeyID     string `yaml:"access_key_id" env:"MINIO_ACCESS_KEY"`
	SecretAccessKey string `yaml:"secret_access_key" env:"MINIO_SECRET_KEY"`
	UseSSL          bool   `yaml:"use_ssl" env-default:"false"`
	BucketName      string `yaml:"bucket_name" env-default:"festival-submissions"`
}

type Redis struct {
	Address  string `yaml:"address" env-default:"localhost:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env-default:"0"`
}

// Sweeper configures the orphaned-upload cleanup worker. The grace period
// must comfortably exceed the longest plausible upload so that in-flight
// submissions are never swept.
type Sweeper struct {
	IntervalMinutes    int `yaml:"interval_minutes" env-default:"30"`
	GracePeriodMinutes int `yaml:"grace_period_minutes" env-default:"120"`
}

func MustLoad() *Config {
	var configPath string

	configPath = os.Getenv("CONFIG_PATH")

	if configPath == "" {
		flags := flag.String("config", "", "Path to config file")
		flag.Parse()
		configPath = *flags

		if configPath == "" {
			log.Fatal("config path must be provided")
		}
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("config file does not exist at path: %s", configPath)
	}

	var cfg Config

	err := cleanenv.ReadConfig(configPath, &cfg)

	if err != nil {
		log.Fatalf("failed to read config: %s", err)
	}

	return &cfg
}
