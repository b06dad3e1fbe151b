package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/atikulmunna/colorlog/internal/matcher"
	"github.com/atikulmunna/colorlog/internal/pager"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Setting keys shared by flags, the config file and COLORLOG_* variables.
const (
	KeyLess      = "less"
	KeyFollow    = "follow"
	KeyColor     = "color"
	KeyPolicy    = "policy"
	KeySummary   = "summary"
	KeyShowRules = "show-rules"
	KeyPager     = "pager"
	KeyVerbose   = "verbose"
)

// Color modes.
const (
	ColorAlways = "always"
	ColorAuto   = "auto"
	ColorNever  = "never"
)

// Config is the resolved runtime configuration.
type Config struct {
	Less      bool   `mapstructure:"less"`
	Follow    bool   `mapstructure:"follow"`
	Color     string `mapstructure:"color" validate:"oneof=always auto never"`
	Policy    string `mapstructure:"policy" validate:"oneof=leftmost priority"`
	Summary   bool   `mapstructure:"summary"`
	ShowRules bool   `mapstructure:"show-rules"`
	Pager     string `mapstructure:"pager" validate:"required_if=Less true,pager"`
	Verbose   bool   `mapstructure:"verbose"`
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyLess, false)
	v.SetDefault(KeyFollow, false)
	v.SetDefault(KeyColor, ColorAlways)
	v.SetDefault(KeyPolicy, string(matcher.Leftmost))
	v.SetDefault(KeySummary, false)
	v.SetDefault(KeyShowRules, false)
	v.SetDefault(KeyPager, pager.DefaultCommand)
	v.SetDefault(KeyVerbose, false)
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Color = strings.ToLower(strings.TrimSpace(cfg.Color))
	cfg.Policy = strings.ToLower(strings.TrimSpace(cfg.Policy))

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

var validate *validator.Validate

func init() {
	validate = validator.New()

	if err := validate.RegisterValidation("pager", validatePager); err != nil {
		panic(err)
	}

	// Report fields by their setting key rather than the Go field name.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// validatePager accepts any command with at least one word.
func validatePager(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // emptiness is required_if's business
	}
	return len(strings.Fields(value)) > 0
}

// Validate checks cfg and reports every invalid field.
func Validate(cfg Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var validatorErrs validator.ValidationErrors
	if !errors.As(err, &validatorErrs) {
		return err
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("invalid configuration (%d error(s)):", len(validatorErrs)))
	for _, e := range validatorErrs {
		sb.WriteString("\n  ")
		sb.WriteString(validationMessage(e))
	}
	return errors.New(sb.String())
}

func validationMessage(e validator.FieldError) string {
	field := e.Field()
	switch e.Tag() {
	case "oneof":
		return fmt.Sprintf("%s: %q is not one of [%s]", field, e.Value(), strings.ReplaceAll(e.Param(), " ", ", "))
	case "required_if":
		return fmt.Sprintf("%s: required when the pager is enabled", field)
	case "pager":
		return fmt.Sprintf("%s: %q is not a command", field, e.Value())
	default:
		return fmt.Sprintf("%s: failed %q check", field, e.Tag())
	}
}
