// Package config loads process settings from env files, the environment and
// command line flags.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/iidesho/bragi/sbragi"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var log = sbragi.WithLocalScope(sbragi.LevelInfo)

const (
	BackendRedis  = "redis"
	BackendNuts   = "nutsdb"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// Keys are read from the environment both as written and in upper snake case,
// so mysql.dsn can also be given as MYSQL_DSN.
const (
	KeySchedulerPeriod = "scheduler.period"
	KeyBufferBackend   = "buffer.backend"
	KeyRedisAddr       = "redis.addr"
	KeyRedisPassword   = "redis.password"
	KeyRedisDB         = "redis.db"
	KeyNutsDir         = "nuts.dir"
	KeyBadgerDir       = "badger.dir"
	KeyMySQLDSN        = "mysql.dsn"
	KeyMongoURI        = "mongo.uri"
	KeyMongoDatabase   = "mongo.database"
	KeyWebserverPort   = "webserver.port"
	KeyShutdownTimeout = "shutdown.timeout"
	KeyLogDir          = "log.dir"
	KeyMetricsPushURL  = "metrics.push_url"
)

var defaults = map[string]any{
	KeySchedulerPeriod: 10 * time.Second,
	KeyBufferBackend:   BackendNuts,
	KeyRedisAddr:       "localhost:6379",
	KeyRedisPassword:   "",
	KeyRedisDB:         0,
	KeyNutsDir:         "./data/buffer",
	KeyBadgerDir:       "./data/badger",
	KeyMySQLDSN:        "",
	KeyMongoURI:        "mongodb://localhost:27017",
	KeyMongoDatabase:   "auditflow",
	KeyWebserverPort:   3030,
	KeyShutdownTimeout: 30 * time.Second,
	KeyLogDir:          "",
	KeyMetricsPushURL:  "",
}

type Config struct {
	SchedulerPeriod time.Duration
	BufferBackend   string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	NutsDir         string
	BadgerDir       string
	MySQLDSN        string
	MongoURI        string
	MongoDatabase   string
	WebserverPort   uint16
	ShutdownTimeout time.Duration
	LogDir          string
	MetricsPushURL  string
}

// LoadEnvFiles reads local_override.properties, or .env when that is missing,
// into the process environment. Variables already set are kept.
func LoadEnvFiles() {
	err := godotenv.Load("local_override.properties")
	if err == nil {
		return
	}
	sbragi.WithoutEscalation().WithError(err).
		Debug("Error loading local_override.properties file", "file", "local_override.properties")
	err = godotenv.Load(".env")
	if err != nil {
		sbragi.WithoutEscalation().WithError(err).
			Debug("Error loading .env file", "file", ".env")
	}
}

// Bind registers defaults and environment names for every key on v.
func Bind(v *viper.Viper) {
	for key, val := range defaults {
		v.SetDefault(key, val)
		v.BindEnv(key, key, envName(key))
	}
}

func envName(key string) string {
	return strings.ToUpper(strings.NewReplacer(".", "_").Replace(key))
}

// Load reads the configuration from v, which should already have flags bound.
func Load(v *viper.Viper) (Config, error) {
	Bind(v)
	c := Config{
		SchedulerPeriod: v.GetDuration(KeySchedulerPeriod),
		BufferBackend:   strings.ToLower(v.GetString(KeyBufferBackend)),
		RedisAddr:       v.GetString(KeyRedisAddr),
		RedisPassword:   v.GetString(KeyRedisPassword),
		RedisDB:         v.GetInt(KeyRedisDB),
		NutsDir:         v.GetString(KeyNutsDir),
		BadgerDir:       v.GetString(KeyBadgerDir),
		MySQLDSN:        v.GetString(KeyMySQLDSN),
		MongoURI:        v.GetString(KeyMongoURI),
		MongoDatabase:   v.GetString(KeyMongoDatabase),
		WebserverPort:   v.GetUint16(KeyWebserverPort),
		ShutdownTimeout: v.GetDuration(KeyShutdownTimeout),
		LogDir:          v.GetString(KeyLogDir),
		MetricsPushURL:  v.GetString(KeyMetricsPushURL),
	}
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	log.Debug("loaded config", "backend", c.BufferBackend, "period", c.SchedulerPeriod)
	return c, nil
}

func (c Config) validate() error {
	switch c.BufferBackend {
	case BackendRedis, BackendNuts, BackendBadger, BackendMemory:
	default:
		return fmt.Errorf("%s: unsupported buffer backend %q", KeyBufferBackend, c.BufferBackend)
	}
	if c.SchedulerPeriod <= 0 {
		return fmt.Errorf("%s: period must be positive, got %s", KeySchedulerPeriod, c.SchedulerPeriod)
	}
	if c.ShutdownTimeout < 0 {
		return fmt.Errorf("%s: timeout can not be negative, got %s", KeyShutdownTimeout, c.ShutdownTimeout)
	}
	return nil
}
