package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/gss-opera-matcher/internal/match"
	"github.com/gss-opera-matcher/internal/similarity"
)

const envPrefix = "MATCHER"

// newViper layers settings in order of precedence: flags, MATCHER_*
// environment variables, the YAML profile, then defaults. Without an
// explicit file, .matcher.yaml is looked up in the working directory and
// $HOME.
func newViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", configFile, err)
		}
		return v, nil
	}

	v.SetConfigName(".matcher")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	return v, nil
}

func setDefaults(v *viper.Viper) {
	d := match.DefaultConfig()
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("debug", false)

	v.SetDefault("primary_last", d.PrimaryLast)
	v.SetDefault("primary_first", d.PrimaryFirst)
	v.SetDefault("primary_date", d.PrimaryDate)
	v.SetDefault("primary_itr", d.PrimaryITR)
	v.SetDefault("secondary_last", d.SecondaryLast)
	v.SetDefault("secondary_first", d.SecondaryFirst)
	v.SetDefault("secondary_date", d.SecondaryDate)
	v.SetDefault("secondary_id", d.SecondaryID)

	v.SetDefault("algorithm", d.Algorithm.String())
	v.SetDefault("threshold", d.Threshold)
	v.SetDefault("date_tolerance_days", d.DateToleranceDays)

	v.SetDefault("pre_normalize", d.PreNormalize)
	v.SetDefault("enhanced_fuzzy", d.EnhancedFuzzy)
	v.SetDefault("date_bonus", d.DateBonus)
	v.SetDefault("phonetic", d.Phonetic)
	v.SetDefault("nickname_variants", d.NicknameVariants)
	v.SetDefault("compound_surnames", d.CompoundSurnames)
	v.SetDefault("safe_missing", d.SafeMissing)
	v.SetDefault("show_all_matches", d.ShowAllMatches)
	v.SetDefault("multi_pass", d.MultiPass)
}

// addMatchFlags registers one flag per match setting. Flag names are the
// setting keys with hyphens.
func addMatchFlags(flags *pflag.FlagSet) {
	d := match.DefaultConfig()

	flags.String("primary-last", d.PrimaryLast, "GSS last name column")
	flags.String("primary-first", d.PrimaryFirst, "GSS first name column")
	flags.String("primary-date", d.PrimaryDate, "GSS date column")
	flags.String("primary-itr", d.PrimaryITR, "GSS intent-to-return score column (optional)")
	flags.String("secondary-last", d.SecondaryLast, "Opera last name column")
	flags.String("secondary-first", d.SecondaryFirst, "Opera first name column")
	flags.String("secondary-date", d.SecondaryDate, "Opera date column")
	flags.String("secondary-id", d.SecondaryID, "Opera identifier column")

	flags.StringP("algorithm", "a", d.Algorithm.String(), "name similarity algorithm")
	flags.IntP("threshold", "t", d.Threshold, "combined score needed for a High match (0-100)")
	flags.Int("date-tolerance-days", d.DateToleranceDays, "maximum date difference in days")

	flags.Bool("pre-normalize", d.PreNormalize, "normalize names before scoring")
	flags.Bool("enhanced-fuzzy", d.EnhancedFuzzy, "blend several fuzzy ratios")
	flags.Bool("date-bonus", d.DateBonus, "boost scores of close dates")
	flags.Bool("phonetic", d.Phonetic, "rescue phonetically equal last names")
	flags.Bool("nickname-variants", d.NicknameVariants, "map nicknames to canonical first names")
	flags.Bool("compound-surnames", d.CompoundSurnames, "join surname particles such as 'de la'")
	flags.Bool("safe-missing", d.SafeMissing, "score on last name alone when a first name is missing")
	flags.Bool("show-all-matches", d.ShowAllMatches, "emit every pair above threshold and No Match rows")
	flags.Bool("multi-pass", d.MultiPass, "classify with relaxed passes for close dates")
}

// bindFlags binds every flag of cmd, including inherited ones, to the
// setting key of the same name.
func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	var bindErr error
	bind := func(f *pflag.Flag) {
		if err := v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f); err != nil && bindErr == nil {
			bindErr = err
		}
	}
	cmd.Flags().VisitAll(bind)
	cmd.InheritedFlags().VisitAll(bind)
	return bindErr
}

// matchConfig builds and validates a run configuration from settings.
func matchConfig(v *viper.Viper) (match.Config, error) {
	alg, err := similarity.ParseAlgorithm(v.GetString("algorithm"))
	if err != nil {
		return match.Config{}, fmt.Errorf("%w: %v", match.ErrInvalidConfig, err)
	}

	cfg := match.Config{
		PrimaryLast:       v.GetString("primary_last"),
		PrimaryFirst:      v.GetString("primary_first"),
		PrimaryDate:       v.GetString("primary_date"),
		PrimaryITR:        v.GetString("primary_itr"),
		SecondaryLast:     v.GetString("secondary_last"),
		SecondaryFirst:    v.GetString("secondary_first"),
		SecondaryDate:     v.GetString("secondary_date"),
		SecondaryID:       v.GetString("secondary_id"),
		Algorithm:         alg,
		Threshold:         v.GetInt("threshold"),
		DateToleranceDays: v.GetInt("date_tolerance_days"),
		PreNormalize:      v.GetBool("pre_normalize"),
		EnhancedFuzzy:     v.GetBool("enhanced_fuzzy"),
		DateBonus:         v.GetBool("date_bonus"),
		Phonetic:          v.GetBool("phonetic"),
		NicknameVariants:  v.GetBool("nickname_variants"),
		CompoundSurnames:  v.GetBool("compound_surnames"),
		SafeMissing:       v.GetBool("safe_missing"),
		ShowAllMatches:    v.GetBool("show_all_matches"),
		MultiPass:         v.GetBool("multi_pass"),
		Debug:             v.GetBool("debug"),
	}

	if v.IsSet("tuning") {
		tuning := match.DefaultTuning()
		if err := v.UnmarshalKey("tuning", tuning); err != nil {
			return match.Config{}, fmt.Errorf("%w: tuning: %v", match.ErrInvalidConfig, err)
		}
		cfg.Tuning = tuning
	}

	if err := cfg.Validate(); err != nil {
		return match.Config{}, err
	}
	return cfg, nil
}
