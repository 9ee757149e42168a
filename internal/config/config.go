package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every runtime setting. It is parsed from the environment once
// in main and passed by reference to the components that need it.
type Config struct {
	AppName  string `env:"APP_NAME"  envDefault:"haper-auth"`
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8888"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`

	JWTSecret     string        `env:"JWT_SECRET,required"`
	JWTTTL        time.Duration `env:"JWT_TTL"         envDefault:"720h"`
	JWTCookieName string        `env:"JWT_COOKIE_NAME" envDefault:"haper_auth"`

	MongoURI      string `env:"MONGO_URI"      envDefault:"mongodb://localhost:27017"`
	MongoDatabase string `env:"MONGO_DATABASE" envDefault:"haper"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`

	SQSQueueURL        string `env:"SQS_REPORT_UPDATE_QUEUE_URL"`
	SQSRegion          string `env:"SQS_REGION" envDefault:"us-east-1"`
	SQSEndpoint        string `env:"SQS_ENDPOINT"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`

	ConsulAddr  string `env:"CONSUL_ADDR"`
	ServiceHost string `env:"SERVICE_HOST" envDefault:"localhost"`
}

// Load parses the configuration from environment variables.
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}
