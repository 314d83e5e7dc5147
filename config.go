package main

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"wordvec/embed"
	"wordvec/skipgram"
	"wordvec/vocab"
)

// TrainConfig holds everything the train command needs. Values come from
// flags, optionally overlaid by a config file.
type TrainConfig struct {
	Corpus    string  `mapstructure:"corpus"`
	Out       string  `mapstructure:"out"`
	Size      int     `mapstructure:"size"`
	Dim       int     `mapstructure:"dim"`
	Window    int     `mapstructure:"window"`
	Negatives float64 `mapstructure:"negatives"`
	Sampling  float64 `mapstructure:"sampling"`
	Epochs    int     `mapstructure:"epochs"`
	Batch     int     `mapstructure:"batch"`
	LR        float64 `mapstructure:"lr"`
	Seed      int64   `mapstructure:"seed"`
}

func DefaultTrainConfig() TrainConfig {
	ec := embed.DefaultTrainConfig()
	return TrainConfig{
		Size:      vocab.DefaultSize,
		Dim:       ec.Dim,
		Window:    3,
		Negatives: 1.0,
		Epochs:    ec.Epochs,
		Batch:     ec.Batch,
		LR:        ec.LearnRate,
		Seed:      ec.Seed,
	}
}

func (c TrainConfig) Validate() error {
	if c.Corpus == "" || c.Out == "" {
		return errors.New("--corpus and --out are required")
	}
	if c.Size <= 0 {
		return fmt.Errorf("%w: %d", vocab.ErrInvalidSize, c.Size)
	}
	if c.Sampling < 0 {
		return fmt.Errorf("sampling factor must not be negative, got %v", c.Sampling)
	}
	if err := c.skipgramConfig(c.Size).Validate(); err != nil {
		return err
	}
	return c.embedConfig(nil).Validate()
}

func (c TrainConfig) skipgramConfig(vocabSize int) skipgram.Config {
	cfg := skipgram.Config{
		VocabSize:     vocabSize,
		Window:        c.Window,
		NegativeRatio: c.Negatives,
		Shuffle:       true,
	}
	if c.Sampling > 0 && vocabSize > 0 {
		cfg.SamplingTable = skipgram.SamplingTable(vocabSize, c.Sampling)
	}
	return cfg
}

func (c TrainConfig) embedConfig(log logrus.FieldLogger) embed.TrainConfig {
	return embed.TrainConfig{
		Dim:       c.Dim,
		Batch:     c.Batch,
		Epochs:    c.Epochs,
		LearnRate: c.LR,
		Seed:      c.Seed,
		Logger:    log,
	}
}

func addTrainFlags(cmd *cobra.Command) {
	d := DefaultTrainConfig()
	fs := cmd.Flags()
	fs.String("corpus", "", "Path to training corpus, one document per line (required)")
	fs.String("out", "", "Output directory for the model (required)")
	fs.Int("size", d.Size, "Vocabulary size")
	fs.Int("dim", d.Dim, "Embedding dimension")
	fs.Int("window", d.Window, "Skip-gram context window on each side")
	fs.Float64("negatives", d.Negatives, "Negative pairs per positive pair")
	fs.Float64("sampling", d.Sampling, "Subsampling factor for frequent words (0 disables)")
	fs.Int("epochs", d.Epochs, "Number of epochs")
	fs.Int("batch", d.Batch, "Batch size")
	fs.Float64("lr", d.LR, "Learning rate")
	fs.Int64("seed", d.Seed, "Random seed")
	fs.String("config", "", "Optional config file (yaml, json or toml)")
}

// loadTrainConfig merges flags with the optional --config file. Flags set
// explicitly on the command line win over the file.
func loadTrainConfig(cmd *cobra.Command) (TrainConfig, error) {
	v := viper.New()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return TrainConfig{}, err
	}
	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return TrainConfig{}, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg TrainConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return TrainConfig{}, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, cfg.Validate()
}
