package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Catalog lists the labels donors and staff may pick from. It is reloaded
// from catalog.yml without a restart.
type Catalog struct {
	Units            []string `mapstructure:"units"`
	BeneficiaryTypes []string `mapstructure:"beneficiaryTypes"`
}

func DefaultCatalog() Catalog {
	return Catalog{
		Units: []string{"unidade", "kg", "litro", "caixa", "pacote", "par"},
		BeneficiaryTypes: []string{
			"familia",
			"individuo",
			"instituicao",
			"comunidade",
		},
	}
}

// HasUnit reports whether unit is allowed. An empty list allows any unit.
func (c Catalog) HasUnit(unit string) bool {
	if len(c.Units) == 0 {
		return true
	}
	return contains(c.Units, unit)
}

func (c Catalog) HasBeneficiaryType(tag string) bool {
	return contains(c.BeneficiaryTypes, tag)
}

func contains(values []string, candidate string) bool {
	candidate = strings.ToLower(strings.TrimSpace(candidate))
	for _, value := range values {
		if strings.ToLower(strings.TrimSpace(value)) == candidate {
			return true
		}
	}
	return false
}

type CatalogHolder struct {
	current atomic.Value // holds Catalog
}

// NewStaticCatalogHolder serves a fixed catalog.
func NewStaticCatalogHolder(catalog Catalog) *CatalogHolder {
	holder := &CatalogHolder{}
	holder.current.Store(catalog)
	return holder
}

func NewCatalogHolder(log *zap.Logger) (*CatalogHolder, error) {
	log = log.Named("config.catalog")
	v := viper.New()

	v.SetConfigName("catalog")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/donare/config")
	v.AddConfigPath("/etc/donare")
	v.AddConfigPath(".")

	v.SetEnvPrefix("DONARE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultCatalog()
	v.SetDefault("catalog.units", defaults.Units)
	v.SetDefault("catalog.beneficiaryTypes", defaults.BeneficiaryTypes)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	var cfg Catalog
	if err := v.UnmarshalKey("catalog", &cfg); err != nil {
		return nil, err
	}
	if err := validateCatalog(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticCatalogHolder(cfg)
	if !fileFound {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated Catalog
		if err := v.UnmarshalKey("catalog", &updated); err != nil {
			log.Warn("catalog reload failed", zap.Error(err))
			return
		}
		if err := validateCatalog(updated); err != nil {
			log.Warn("invalid catalog ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("catalog reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *CatalogHolder) Get() Catalog {
	return h.current.Load().(Catalog)
}

func validateCatalog(cfg Catalog) error {
	if len(cfg.BeneficiaryTypes) == 0 {
		return errors.New("catalog.beneficiaryTypes cannot be empty")
	}
	for _, tag := range cfg.BeneficiaryTypes {
		if strings.TrimSpace(tag) == "" {
			return errors.New("catalog.beneficiaryTypes contains an empty tag")
		}
	}
	return nil
}
