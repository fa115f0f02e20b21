package config

import "github.com/spf13/viper"

// Config holds all runtime configuration, loaded from app.env with real
// environment variables taking precedence.
type Config struct {
	ServerAddress string  `mapstructure:"SERVER_ADDRESS"`
	DBSource      string  `mapstructure:"DB_SOURCE"`
	LocationIQKey string  `mapstructure:"LOCATIONIQ_KEY"`
	LocationIQURL string  `mapstructure:"LOCATIONIQ_URL"`
	RegionCode    string  `mapstructure:"REGION_CODE"`
	RegionName    string  `mapstructure:"REGION_NAME"`
	BoundaryDir   string  `mapstructure:"BOUNDARY_DIR"`
	DefaultRPS    float64 `mapstructure:"DEFAULT_RPS"`
}

// LoadConfig reads configuration from app.env in the given path. The file is
// optional; defaults and the process environment cover everything else.
func LoadConfig(path string) (Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("app")
	viper.SetConfigType("env")
	viper.AutomaticEnv()

	viper.SetDefault("SERVER_ADDRESS", "0.0.0.0:8080")
	viper.SetDefault("LOCATIONIQ_URL", "https://us1.locationiq.com/v1/search")
	viper.SetDefault("REGION_CODE", "GA")
	viper.SetDefault("REGION_NAME", "Georgia")
	viper.SetDefault("BOUNDARY_DIR", "./data/boundaries")
	viper.SetDefault("DEFAULT_RPS", 2.0)
	viper.BindEnv("DB_SOURCE")
	viper.BindEnv("LOCATIONIQ_KEY")

	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return Config{}, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
