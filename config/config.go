package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/asaskevich/govalidator"
	"github.com/spf13/viper"

	"github.com/digitorus/efirma-pdfsign/sign"
)

// DefaultLocation is the config file read when no path is given on the
// command line and the file exists.
const DefaultLocation = "./efirma-pdfsign.toml"

// EnvPrefix prefixes every environment override, e.g.
// EFIRMA_SIGNATURE_REASON or EFIRMA_LOG_LEVEL.
const EnvPrefix = "EFIRMA"

// Config is the root of the config
type Config struct {
	Log       LogConfig       `toml:"log"`
	Signature SignatureConfig `toml:"signature"`

	// Password unlocks the key material. It is only read from the
	// environment (EFIRMA_PASSWORD).
	Password string `toml:"-" json:"-" yaml:"-"`
}

// LogConfig selects the log output.
type LogConfig struct {
	Env   string `toml:"env" valid:"in(development|production)"`
	Level string `toml:"level" valid:"in(trace|debug|info|warn|error)"`
}

// SignatureConfig holds the defaults of every signature.
type SignatureConfig struct {
	Reason             string  `toml:"reason" valid:"runelength(1|256)"`
	Location           string  `toml:"location" valid:"runelength(1|256)"`
	Contact            string  `toml:"contact" valid:"runelength(1|256)"`
	CertificationLevel int     `toml:"certification_level" valid:"range(0|3)"`
	Visible            bool    `toml:"visible"`
	Page               int     `toml:"page" valid:"range(0|100000)"`
	X                  float64 `toml:"x" valid:"range(0|14400)"`
	Y                  float64 `toml:"y" valid:"range(0|14400)"`
	IncludeTimestamp   bool    `toml:"include_timestamp"`
	Capacity           int     `toml:"capacity" valid:"range(0|1048576)"`
	EmbedChain         bool    `toml:"embed_chain"`
	UpdateInfo         bool    `toml:"update_info"`
	Producer           string  `toml:"producer" valid:"runelength(1|256)"`
}

// Default returns the configuration used when nothing is configured.
func Default() *Config {
	opts := sign.DefaultOptions()
	return &Config{
		Log: LogConfig{
			Env:   "production",
			Level: "info",
		},
		Signature: SignatureConfig{
			Reason:             opts.Reason,
			Location:           opts.Location,
			CertificationLevel: int(opts.CertificationLevel),
			Visible:            opts.Visible,
			Page:               opts.Page,
			X:                  opts.X,
			Y:                  opts.Y,
			IncludeTimestamp:   opts.IncludeTimestamp,
			EmbedChain:         opts.EmbedChain,
			UpdateInfo:         opts.UpdateInfo,
			Producer:           opts.Producer,
		},
	}
}

// ValidateFields validates all the fields of the config
func (c Config) ValidateFields() error {
	_, err := govalidator.ValidateStruct(c)
	if err != nil {
		return err
	}
	return nil
}

// Load reads the TOML file at path over the defaults, applies the
// environment overrides and validates the result. An empty path skips the
// file.
func Load(path string) (*Config, error) {
	c := Default()

	if path != "" {
		md, err := toml.DecodeFile(path, c)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("config %s: unknown keys %v", path, undecoded)
		}
	}

	applyEnv(c, newEnv())

	if err := c.ValidateFields(); err != nil {
		return nil, fmt.Errorf("config is not valid: %w", err)
	}
	return c, nil
}

func newEnv() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// applyEnv overrides c with the environment variables known to v.
func applyEnv(c *Config, v *viper.Viper) {
	setString(v, "log.env", &c.Log.Env)
	setString(v, "log.level", &c.Log.Level)

	s := &c.Signature
	setString(v, "signature.reason", &s.Reason)
	setString(v, "signature.location", &s.Location)
	setString(v, "signature.contact", &s.Contact)
	setInt(v, "signature.certification_level", &s.CertificationLevel)
	setBool(v, "signature.visible", &s.Visible)
	setInt(v, "signature.page", &s.Page)
	setFloat(v, "signature.x", &s.X)
	setFloat(v, "signature.y", &s.Y)
	setBool(v, "signature.include_timestamp", &s.IncludeTimestamp)
	setInt(v, "signature.capacity", &s.Capacity)
	setBool(v, "signature.embed_chain", &s.EmbedChain)
	setBool(v, "signature.update_info", &s.UpdateInfo)
	setString(v, "signature.producer", &s.Producer)

	setString(v, "password", &c.Password)
}

func setString(v *viper.Viper, key string, dst *string) {
	if v.IsSet(key) {
		*dst = v.GetString(key)
	}
}

func setInt(v *viper.Viper, key string, dst *int) {
	if v.IsSet(key) {
		*dst = v.GetInt(key)
	}
}

func setFloat(v *viper.Viper, key string, dst *float64) {
	if v.IsSet(key) {
		*dst = v.GetFloat64(key)
	}
}

func setBool(v *viper.Viper, key string, dst *bool) {
	if v.IsSet(key) {
		*dst = v.GetBool(key)
	}
}

// SignOptions returns the signing options described by the signature
// section.
func (c *Config) SignOptions() sign.Options {
	opts := sign.DefaultOptions()
	s := c.Signature
	opts.Reason = s.Reason
	opts.Location = s.Location
	opts.ContactInfo = s.Contact
	opts.CertificationLevel = sign.CertificationLevel(s.CertificationLevel)
	opts.Visible = s.Visible
	opts.Page = s.Page
	opts.X = s.X
	opts.Y = s.Y
	opts.IncludeTimestamp = s.IncludeTimestamp
	opts.Capacity = s.Capacity
	opts.EmbedChain = s.EmbedChain
	opts.UpdateInfo = s.UpdateInfo
	opts.Producer = s.Producer
	return opts
}
