package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Kashuab/readerpool/internal/config"
	"github.com/Kashuab/readerpool/internal/dataset"
	"github.com/Kashuab/readerpool/internal/factory"
	"github.com/Kashuab/readerpool/internal/identity"
	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile  string
	logLevel string

	cfg    *config.Config
	opener dataset.Opener
	pool   *factory.Factory
)

var rootCmd = &cobra.Command{
	Use:   "readerpool",
	Short: "Pooled, lockable dataset readers",
	Long: `readerpool keeps a bounded pool of open dataset readers per dataset and lets
administrative tasks take an exclusive lock on a dataset, closing its idle readers.
The commands here drive a pool against a LevelDB, Badger or in-memory backend.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip pool init for help commands
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}

		v := viper.New()
		config.SetDefaults(v)
		v.SetEnvPrefix("READERPOOL")
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()

		explicit := cfgFile
		if explicit == "" {
			explicit = os.Getenv("READERPOOL_CONFIG")
		}
		if explicit != "" {
			v.SetConfigFile(explicit)
		} else {
			v.SetConfigName("readerpool")
			v.SetConfigType("yaml")
			v.AddConfigPath(".")
			home, _ := os.UserHomeDir()
			if home != "" {
				v.AddConfigPath(home + "/.config/readerpool")
			}
		}

		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if explicit != "" || !errors.As(err, &notFound) {
				return fmt.Errorf("failed to read config: %w", err)
			}
		}
		if logLevel != "" {
			v.Set("log.level", logLevel)
		}

		var err error
		cfg, err = config.Load(v)
		if err != nil {
			return err
		}

		logger := newLogger(cfg.Log)
		logger.WithField("config", v.ConfigFileUsed()).Debug("configuration loaded")

		opener, err = newOpener(cfg.Backend)
		if err != nil {
			return fmt.Errorf("failed to create dataset opener: %w", err)
		}

		holder := cfg.Lock.Holder
		if holder == "" {
			holder = identity.Holder(cmd.Name())
		}

		pool, err = factory.New(opener, cfg.Pool.MaxEntries,
			factory.WithShards(cfg.Pool.Shards),
			factory.WithHolder(holder),
			factory.WithLogger(logrus.NewEntry(logger)),
		)
		if err != nil {
			return fmt.Errorf("failed to create reader pool: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		var errs []error
		if pool != nil {
			if err := pool.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		if opener != nil {
			if err := opener.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		if len(errs) > 0 {
			return fmt.Errorf("close errors: %v", errs)
		}
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (default: ./readerpool.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level, overrides log.level")
}

func newLogger(c config.LogConfig) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	// validated by config.Load
	lv, _ := logrus.ParseLevel(c.Level)
	logger.SetLevel(lv)
	if c.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

// metadataFor describes a dataset by name, applying any configured path override.
func metadataFor(name string) dataset.Metadata {
	return dataset.Metadata{Name: name, Path: cfg.Backend.PathFor(name)}
}

// lockBackOff returns the retry policy for lock attempts.
func lockBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.Lock.InitialInterval
	b.MaxInterval = cfg.Lock.MaxInterval
	b.MaxElapsedTime = cfg.Lock.MaxElapsed
	b.Reset()
	return b
}
