package config

import (
	"errors"
	"fmt"
	"github.com/ilyakaznacheev/cleanenv"
	"log"
	"os"
	"qrpass/entity"
	"qrpass/lib/validate"
	"sync"
	"time"
)

const (
	DriverMongo  = "mongo"
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

type Listen struct {
	BindIp string `yaml:"bind_ip" env:"BIND_IP" env-default:"0.0.0.0"`
	Port   string `yaml:"port" env:"PORT" env-default:"3000"`
}

type StoreConfig struct {
	Driver string `yaml:"driver" env:"STORE_DRIVER" env-default:"mongo" validate:"oneof=mongo mysql sqlite memory"`
}

type MongoConfig struct {
	URI                    string        `yaml:"uri" env:"MONGODB_URI" env-default:""`
	Database               string        `yaml:"database" env:"DB_NAME" env-default:"qrpasses"`
	MaxPoolSize            uint64        `yaml:"max_pool_size" env-default:"5" validate:"min=1"`
	ConnectTimeout         time.Duration `yaml:"connect_timeout" env-default:"10s"`
	ServerSelectionTimeout time.Duration `yaml:"server_selection_timeout" env-default:"12s"`
	SocketTimeout          time.Duration `yaml:"socket_timeout" env-default:"60s"`
	ConnectAttempts        int           `yaml:"connect_attempts" env-default:"4" validate:"min=1,max=10"`
	RetryDelay             time.Duration `yaml:"retry_delay" env-default:"1s"`
}

type SQLConfig struct {
	DSN             string        `yaml:"dsn" env:"SQL_DSN" env-default:""`
	MaxOpenConns    int           `yaml:"max_open_conns" env-default:"10" validate:"min=1"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env-default:"5"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env-default:"1h"`
	PingAttempts    int           `yaml:"ping_attempts" env-default:"4" validate:"min=1,max=10"`
	RetryDelay      time.Duration `yaml:"retry_delay" env-default:"1s"`
}

type RedemptionConfig struct {
	IdempotencyWindow time.Duration `yaml:"idempotency_window" env:"IDEMPOTENCY_WINDOW" env-default:"15s" validate:"min=0"`
	RequestTimeout    time.Duration `yaml:"request_timeout" env-default:"5s"`
}

type ProvisionConfig struct {
	BaseURL string `yaml:"base_url" env:"SITE_BASE" env-default:"http://localhost:3000/p?token="`
	Input   string `yaml:"input" env:"GUESTS_CSV" env-default:"guests.csv"`
	OutDir  string `yaml:"out_dir" env:"QR_OUT" env-default:"qr_out"`
	QRSize  int    `yaml:"qr_size" env-default:"600" validate:"min=64,max=4096"`
}

type OperatorConfig struct {
	Operators []entity.Operator `yaml:"operators" validate:"dive"`
}

type TelegramConfig struct {
	Enabled    bool   `yaml:"enabled" env:"TELEGRAM_ENABLED" env-default:"false"`
	ApiKey     string `yaml:"api_key" env:"TELEGRAM_API_KEY" env-default:""`
	AlertLevel int    `yaml:"alert_level" env-default:"8"`
}

type Config struct {
	Env        string           `yaml:"env" env:"ENV" env-default:"local" validate:"oneof=local dev prod"`
	Listen     Listen           `yaml:"listen"`
	Store      StoreConfig      `yaml:"store"`
	Mongo      MongoConfig      `yaml:"mongo"`
	SQL        SQLConfig        `yaml:"sql"`
	Redemption RedemptionConfig `yaml:"redemption"`
	Provision  ProvisionConfig  `yaml:"provision"`
	Operator   OperatorConfig   `yaml:"operator"`
	Telegram   TelegramConfig   `yaml:"telegram"`
}

var instance *Config
var once sync.Once

func MustLoad(path string) *Config {
	once.Do(func() {
		conf, err := Load(path)
		if err != nil {
			desc, _ := cleanenv.GetDescription(&Config{}, nil)
			log.Fatal(fmt.Errorf("config: %s; %s", err, desc))
		}
		instance = conf
	})
	return instance
}

// Load reads the YAML file at path overlaid by the environment.
// A missing file is not an error: deployments may be configured by environment alone.
func Load(path string) (*Config, error) {
	conf := &Config{}
	var err error
	if _, statErr := os.Stat(path); path != "" && statErr == nil {
		err = cleanenv.ReadConfig(path, conf)
	} else {
		err = cleanenv.ReadEnv(conf)
	}
	if err != nil {
		return nil, err
	}
	if err = conf.validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func (c *Config) validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	switch c.Store.Driver {
	case DriverMongo:
		if c.Mongo.URI == "" {
			return errors.New("mongo uri is required for the mongo store")
		}
	case DriverMySQL, DriverSQLite:
		if c.SQL.DSN == "" {
			return fmt.Errorf("sql dsn is required for the %s store", c.Store.Driver)
		}
	}
	return nil
}
