package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	globalPrefix       = "webtime"
	errorMessagePrefix = "error mapping environment variables to command flags"
)

// checkEnvironmentVariables fills flags that were not given on the command
// line from the environment. Command specific variables
// (WEBTIME_<COMMAND>_<FLAG>) win over global ones (WEBTIME_<FLAG>).
func checkEnvironmentVariables(command *cobra.Command) error {
	var errs []string

	global := viper.New()
	global.SetEnvPrefix(globalPrefix)
	global.AutomaticEnv()

	local := global
	if command.Name() != globalPrefix {
		local = viper.New()
		local.SetEnvPrefix(fmt.Sprintf("%s_%s", globalPrefix, command.Name()))
		local.AutomaticEnv()
	}

	command.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			return
		}
		configName := strings.ReplaceAll(f.Name, "-", "_")

		var val any
		switch {
		case local.IsSet(configName):
			val = local.Get(configName)
		case global.IsSet(configName):
			val = global.Get(configName)
		default:
			return
		}
		if err := command.Flags().Set(f.Name, fmt.Sprintf("%v", val)); err != nil {
			errs = append(errs, err.Error())
		}
	})

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%s: %s", errorMessagePrefix, strings.Join(errs, "; "))
}
