package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// AdmissionPolicy controls the sales window and walk-in behavior.
// Amounts of time are minutes relative to the room's scheduled start.
type AdmissionPolicy struct {
	// SalesCutoffMinutes closes advance ticket sales once the current
	// time is within this many minutes of the scheduled start.
	SalesCutoffMinutes int `mapstructure:"salesCutoffMinutes"`
	// WalkInsEnabled disables on-arrival admission entirely when false.
	WalkInsEnabled bool `mapstructure:"walkInsEnabled"`
}

func DefaultAdmissionPolicy() AdmissionPolicy {
	return AdmissionPolicy{
		SalesCutoffMinutes: 120,
		WalkInsEnabled:     true,
	}
}

// AdmissionPolicyHolder exposes the current policy and hot-reloads it
// when the config file changes on disk.
type AdmissionPolicyHolder struct {
	current atomic.Value // holds AdmissionPolicy
}

func NewAdmissionPolicyHolder() (*AdmissionPolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("admission")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/doorman/config") // Volume-mounted config
	v.AddConfigPath("/etc/doorman")            // System config
	v.AddConfigPath(".")                       // Current directory (dev mode)

	v.SetEnvPrefix("DOORMAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultAdmissionPolicy()
		v.SetDefault("admission.salesCutoffMinutes", defaults.SalesCutoffMinutes)
		v.SetDefault("admission.walkInsEnabled", defaults.WalkInsEnabled)
	}

	var policy AdmissionPolicy
	if err := v.UnmarshalKey("admission", &policy); err != nil {
		return nil, err
	}
	if err := validateAdmissionPolicy(policy); err != nil {
		return nil, err
	}

	holder := &AdmissionPolicyHolder{}
	holder.current.Store(policy)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated AdmissionPolicy
		if err := v.UnmarshalKey("admission", &updated); err != nil {
			log.Printf("[admission-config] reload failed: %v", err)
			return
		}
		if err := validateAdmissionPolicy(updated); err != nil {
			log.Printf("[admission-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[admission-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticAdmissionPolicyHolder returns a holder pinned to the given
// policy. Used by tests and seeds.
func NewStaticAdmissionPolicyHolder(policy AdmissionPolicy) *AdmissionPolicyHolder {
	holder := &AdmissionPolicyHolder{}
	holder.current.Store(policy)
	return holder
}

func (h *AdmissionPolicyHolder) Current() AdmissionPolicy {
	if h == nil {
		return DefaultAdmissionPolicy()
	}
	if policy, ok := h.current.Load().(AdmissionPolicy); ok {
		return policy
	}
	return DefaultAdmissionPolicy()
}

func validateAdmissionPolicy(policy AdmissionPolicy) error {
	if policy.SalesCutoffMinutes < 0 {
		return errors.New("admission.salesCutoffMinutes must not be negative")
	}
	return nil
}
