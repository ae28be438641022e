package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

type Config struct {
	Mode   string `mapstructure:"mode"`
	Dotenv string `mapstructure:"dotenv"`
	Server struct {
		HTTPPort     string        `mapstructure:"HTTPPort"`
		Timeout      time.Duration `mapstructure:"HTTPTimeout"`
		ReadTimeout  time.Duration `mapstructure:"ReadTimeout"`
		WriteTimeout time.Duration `mapstructure:"WriteTimeout"`
		IdleTimeout  time.Duration `mapstructure:"IdleTimeout"`

		// AllowedOrigins feeds CORS; empty allows any origin.
		AllowedOrigins []string `mapstructure:"allowedOrigins"`
	} `mapstructure:"server"`
	Observability struct {
		ServiceName string `mapstructure:"serviceName"`
		MetricsPort string `mapstructure:"metricsPort"`
	} `mapstructure:"observability"`
	Providers Providers `mapstructure:"providers"`
	LLM       LLM       `mapstructure:"llm"`
}

type Providers struct {
	Amadeus     Amadeus     `mapstructure:"amadeus"`
	Viator      Viator      `mapstructure:"viator"`
	OpenWeather OpenWeather `mapstructure:"openWeather"`
	Qloo        Qloo        `mapstructure:"qloo"`
	Geocoder    Geocoder    `mapstructure:"geocoder"`
}

type Amadeus struct {
	BaseURL         string        `mapstructure:"baseURL"`
	ClientID        string        `mapstructure:"clientID"`
	ClientSecret    string        `mapstructure:"clientSecret"`
	Timeout         time.Duration `mapstructure:"timeout"`
	OffersTimeout   time.Duration `mapstructure:"offersTimeout"`
	RadiusKm        int           `mapstructure:"radiusKm"`
	BatchSize       int           `mapstructure:"batchSize"`
	BatchPause      time.Duration `mapstructure:"batchPause"`
	DefaultCurrency string        `mapstructure:"defaultCurrency"`
}

type Viator struct {
	BaseURL         string        `mapstructure:"baseURL"`
	APIKey          string        `mapstructure:"apiKey"`
	Timeout         time.Duration `mapstructure:"timeout"`
	PageSize        int           `mapstructure:"pageSize"`
	DefaultCurrency string        `mapstructure:"defaultCurrency"`
}

type OpenWeather struct {
	BaseURL string        `mapstructure:"baseURL"`
	APIKey  string        `mapstructure:"apiKey"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type Qloo struct {
	BaseURL    string        `mapstructure:"baseURL"`
	APIKey     string        `mapstructure:"apiKey"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Take       int           `mapstructure:"take"`
	FilterType string        `mapstructure:"filterType"`
}

type Geocoder struct {
	BaseURL   string        `mapstructure:"baseURL"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"userAgent"`
	Language  string        `mapstructure:"language"`
}

type LLM struct {
	APIKey      string  `mapstructure:"apiKey"`
	Model       string  `mapstructure:"model"`
	Temperature float32 `mapstructure:"temperature"`
}

// secretEnv maps config keys to the environment variables holding provider credentials.
var secretEnv = map[string]string{
	"providers.amadeus.clientID":     "AMADEUS_CLIENT_ID",
	"providers.amadeus.clientSecret": "AMADEUS_CLIENT_SECRET",
	"providers.viator.apiKey":        "VIATOR_API_KEY",
	"providers.openWeather.apiKey":   "OPENWEATHER_KEY",
	"providers.qloo.apiKey":          "QLOO_API_KEY",
	"providers.qloo.baseURL":         "QLOO_API_URL",
	"llm.apiKey":                     "GOOGLE_GEMINI_API_KEY",
}

func InitConfig() (Config, error) {
	v := viper.New()

	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	// TASTETRAIL_PROVIDERS_AMADEUS_BATCHSIZE overrides providers.amadeus.batchSize
	v.SetEnvPrefix("tastetrail")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, env := range secretEnv {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %w", err)
		}
	}

	var config Config
	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return config, nil
}

// Embedded returns the configuration compiled into the binary, without any file or
// environment overrides.
func Embedded() (Config, error) {
	v := viper.New()
	v.SetConfigType("yml")
	if err := v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
		return Config{}, fmt.Errorf("failed to read embedded config: %w", err)
	}
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return config, nil
}
