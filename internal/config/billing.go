package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// BillingDefaults are the firm-level defaults applied when a service
// description is created: the hourly rate new topics start with, the currency
// shown on documents and the overage rate suggested for retainer documents.
type BillingDefaults struct {
	Currency           string  `mapstructure:"currency"`
	DefaultHourlyRate  float64 `mapstructure:"defaultHourlyRate"`
	DefaultOverageRate float64 `mapstructure:"defaultOverageRate"`
}

func DefaultBillingDefaults() BillingDefaults {
	return BillingDefaults{
		Currency:           "EUR",
		DefaultHourlyRate:  150,
		DefaultOverageRate: 0,
	}
}

// BillingDefaultsHolder hot-reloads billing defaults from billing.yml.
type BillingDefaultsHolder struct {
	current atomic.Value // holds BillingDefaults
}

func NewBillingDefaultsHolder() (*BillingDefaultsHolder, error) {
	v := viper.New()

	v.SetConfigName("billing")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/vedalegal")
	v.AddConfigPath(".")

	v.SetEnvPrefix("VEDALEGAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
		defaults := DefaultBillingDefaults()
		v.SetDefault("billing.currency", defaults.Currency)
		v.SetDefault("billing.defaultHourlyRate", defaults.DefaultHourlyRate)
		v.SetDefault("billing.defaultOverageRate", defaults.DefaultOverageRate)
	}

	var cfg BillingDefaults
	if err := v.UnmarshalKey("billing", &cfg); err != nil {
		return nil, err
	}
	if err := validateBillingDefaults(cfg); err != nil {
		return nil, err
	}

	holder := &BillingDefaultsHolder{}
	holder.current.Store(cfg)

	if !fileFound {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated BillingDefaults
		if err := v.UnmarshalKey("billing", &updated); err != nil {
			log.Printf("[billing-config] reload failed: %v", err)
			return
		}
		if err := validateBillingDefaults(updated); err != nil {
			log.Printf("[billing-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[billing-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *BillingDefaultsHolder) Get() BillingDefaults {
	return h.current.Load().(BillingDefaults)
}

func validateBillingDefaults(cfg BillingDefaults) error {
	if strings.TrimSpace(cfg.Currency) == "" {
		return errors.New("billing.currency cannot be empty")
	}
	if cfg.DefaultHourlyRate < 0 {
		return errors.New("billing.defaultHourlyRate cannot be negative")
	}
	if cfg.DefaultOverageRate < 0 {
		return errors.New("billing.defaultOverageRate cannot be negative")
	}
	return nil
}
