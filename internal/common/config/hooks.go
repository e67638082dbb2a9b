package config

import (
	"reflect"

	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/logsink-io/logsink/pkg/backend"
)

// CustomHooks decodes the string forms used in YAML config into their typed
// equivalents. Passed to viper.Unmarshal by the binaries; includes the
// default duration and slice hooks viper would otherwise apply.
var CustomHooks = viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
	mapstructure.StringToTimeDurationHookFunc(),
	mapstructure.StringToSliceHookFunc(","),
	BackendKindHookFunc(),
	LogrusLevelHookFunc(),
))

// BackendKindHookFunc decodes "clickhouse", "kafka" etc. into backend.Kind.
func BackendKindHookFunc() mapstructure.DecodeHookFuncType {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(backend.KindNoop) {
			return data, nil
		}
		return backend.ParseKind(data.(string))
	}
}

// LogrusLevelHookFunc decodes "error", "warning" etc. into logrus.Level.
func LogrusLevelHookFunc() mapstructure.DecodeHookFuncType {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(logrus.InfoLevel) {
			return data, nil
		}
		return logrus.ParseLevel(data.(string))
	}
}
