package config

import (
	"fmt"

	saltconfig "github.com/goto/salt/config"
	"github.com/mcuadros/go-defaults"
	"github.com/spf13/viper"
)

const (
	configFileName = "vigil"
	configFileType = "yaml"
	envPrefix      = "VIGIL"
)

// LoadServerConfig reads server configuration from the given file, or from
// ./vigil.yaml when no path is given, with VIGIL_* environment variables
// taking precedence. A missing default file is not an error, everything has
// a usable default.
func LoadServerConfig(filePath string) (*ServerConfig, error) {
	opts := []saltconfig.LoaderOption{
		saltconfig.WithViper(viper.New()),
		saltconfig.WithEnvPrefix(envPrefix),
		saltconfig.WithEnvKeyReplacer(".", "_"),
	}
	if filePath != "" {
		opts = append(opts, saltconfig.WithFile(filePath))
	} else {
		opts = append(opts,
			saltconfig.WithName(configFileName),
			saltconfig.WithType(configFileType),
			saltconfig.WithPath("."),
		)
	}

	var conf ServerConfig
	defaults.SetDefaults(&conf)
	if err := saltconfig.NewLoader(opts...).Load(&conf); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && filePath == "" { //nolint: errorlint
			return &conf, nil
		}
		return nil, fmt.Errorf("unable to load server config: %w", err)
	}
	return &conf, nil
}
