package api_gateway_config

import (
	"time"

	"github.com/graphetch/graphetch/internal/obs"
	pg "github.com/graphetch/graphetch/internal/repository/postgres"
	"github.com/graphetch/graphetch/internal/repository/redisstore"
)

type App struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

type Server struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	GracefulTimeout time.Duration `mapstructure:"graceful_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

type OTEL struct {
	Enable       bool    `mapstructure:"enable"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

func (oc *OTEL) AsOTELConfig() obs.OTELConfig {
	return obs.OTELConfig{
		Enable:      oc.Enable,
		Endpoint:    oc.OTLPEndpoint,
		ServiceName: oc.ServiceName,
		SampleRatio: oc.SampleRatio,
	}
}

type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type Kafka struct {
	Enable  bool     `mapstructure:"enable"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// Auth carries the signing secret, token lifetimes, google client
// configuration and refresh-cookie attributes. Secret and the google values
// are opaque; the loader only requires them to be non-empty.
type Auth struct {
	JWTSecret          string        `mapstructure:"jwt_secret"`
	AccessTTL          time.Duration `mapstructure:"access_ttl"`
	RefreshTTL         time.Duration `mapstructure:"refresh_ttl"`
	CookieName         string        `mapstructure:"cookie_name"`
	CookieDomain       string        `mapstructure:"cookie_domain"`
	CookiePath         string        `mapstructure:"cookie_path"`
	CookieSecure       bool          `mapstructure:"cookie_secure"`
	GoogleClientID     string        `mapstructure:"google_client_id"`
	GoogleClientSecret string        `mapstructure:"google_client_secret"`
	GoogleRedirectURI  string        `mapstructure:"google_redirect_uri"`
}

type Config struct {
	App    App               `mapstructure:"app"`
	Server Server            `mapstructure:"server"`
	DB     pg.Config         `mapstructure:"db"`
	Redis  redisstore.Config `mapstructure:"redis"`
	Kafka  Kafka             `mapstructure:"kafka"`
	OTEL   OTEL              `mapstructure:"otel"`
	Log    Log               `mapstructure:"log"`
	Auth   Auth              `mapstructure:"auth"`
}
