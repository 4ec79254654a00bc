package config

import (
	"log"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// LoadAndWatch reads config/{service}.yaml into out, applies environment
// overrides and hot-reloads the struct on file changes.
func LoadAndWatch(service string, out interface{}) (*viper.Viper, error) {
	v := viper.New()
	// Convention: config/{service}.yaml
	v.SetConfigName(service)
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".") // fallback, current directory works too

	// Environment overrides, for example:
	//   BACKTEST_DATA_SNAPS overrides data.snaps
	//   BACKTEST_LOG_LEVEL overrides log.level
	v.SetEnvPrefix(strings.ToUpper(service))
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	if err := v.Unmarshal(out); err != nil {
		return nil, err
	}

	log.Printf("[%s] config loaded from %s", service, v.ConfigFileUsed())

	// Watch for file changes and hot-reload into out.
	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		log.Printf("[%s] config file changed: %s", service, e.Name)

		if err := v.Unmarshal(out); err != nil {
			log.Printf("[%s] reload config error: %v", service, err)
			return
		}
		log.Printf("[%s] config reloaded OK", service)
	})

	return v, nil
}
