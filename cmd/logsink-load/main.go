package main

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/logsink-io/logsink/internal/common"
	"github.com/logsink-io/logsink/internal/loadtest"
	"github.com/logsink-io/logsink/internal/loadtest/configuration"
)

const CustomConfigLocation string = "config"

func init() {
	pflag.StringSlice(CustomConfigLocation, []string{}, "Fully qualified path to application configuration file (for multiple config files repeat this arg or separate paths with commas)")
	pflag.Parse()
}

func main() {
	common.ConfigureLogging()
	common.BindCommandlineArguments()

	var config configuration.LoadTestConfiguration
	userSpecifiedConfigs := viper.GetStringSlice(CustomConfigLocation)

	common.LoadConfig(&config, "./config/logsink-load", userSpecifiedConfigs)
	loadtest.Run(&config)
}
