package util

import (
	"fmt"

	"github.com/spf13/viper"
)

// ReadConfig loads config.yaml from configPath (default ./data/) into the
// global viper instance. Missing file is not fatal for callers that rely on
// defaults only, so they get the error and decide.
func ReadConfig(configPath string) error {
	viper.SetConfigName("config")
	if configPath == "" {
		configPath = "./data/"
	}
	viper.AddConfigPath(configPath)

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("fatal error config file: %w", err)
	}
	return nil
}
