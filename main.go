package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"wordvec/corpus"
	"wordvec/vocab"
)

var logger = logrus.New()

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var level string
	root := &cobra.Command{
		Use:           "wordvec",
		Short:         "Term encoding and skip-gram word embeddings",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setupLogger(logger, level, cmd.ErrOrStderr())
		},
	}
	root.PersistentFlags().StringVar(&level, "log-level", "info", "Log level (debug, info, warn, error)")

	root.AddCommand(
		newVocabCmd(),
		newEncodeCmd(),
		newDecodeCmd(),
		newTrainCmd(),
		newSimilarCmd(),
	)
	return root
}

func setupLogger(l *logrus.Logger, level string, out io.Writer) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	l.SetLevel(lvl)
	l.SetOutput(out)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return nil
}

func newVocabCmd() *cobra.Command {
	var corpusPath, out string
	var size int
	cmd := &cobra.Command{
		Use:   "vocab",
		Short: "Build a term dictionary from a corpus",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := os.Open(corpusPath)
			if err != nil {
				return err
			}
			defer f.Close()

			docs, err := corpus.ReadDocuments(f)
			if err != nil {
				return err
			}
			dict, err := corpus.BuildDictionary(docs, size)
			if err != nil {
				return err
			}
			if err := vocab.WriteFile(out, dict); err != nil {
				return err
			}
			logger.WithFields(logrus.Fields{"terms": dict.Len(), "size": dict.Size(), "out": out}).Info("dictionary saved")
			return nil
		},
	}
	cmd.Flags().StringVar(&corpusPath, "corpus", "", "Path to corpus, one document per line")
	cmd.Flags().StringVar(&out, "out", "vocab.txt", "Output file")
	cmd.Flags().IntVar(&size, "size", vocab.DefaultSize, "Vocabulary size")
	cmd.MarkFlagRequired("corpus")
	return cmd
}

func newEncodeCmd() *cobra.Command {
	var vocabPath string
	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Encode stdin lines to codes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			dict, err := vocab.ReadFile(vocabPath)
			if err != nil {
				return err
			}
			return encodeLines(vocab.NewEncoder(dict), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&vocabPath, "vocab", "vocab.txt", "Dictionary file")
	return cmd
}

func newDecodeCmd() *cobra.Command {
	var vocabPath string
	cmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode stdin lines of codes to terms",
		RunE: func(cmd *cobra.Command, _ []string) error {
			dict, err := vocab.ReadFile(vocabPath)
			if err != nil {
				return err
			}
			return decodeLines(vocab.NewEncoder(dict), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&vocabPath, "vocab", "vocab.txt", "Dictionary file")
	return cmd
}

func newTrainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train skip-gram embeddings from a corpus",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadTrainConfig(cmd)
			if err != nil {
				return err
			}
			_, err = trainModel(cmd.Context(), cfg, logger)
			return err
		},
	}
	addTrainFlags(cmd)
	return cmd
}

func newSimilarCmd() *cobra.Command {
	var dir string
	var k int
	cmd := &cobra.Command{
		Use:   "similar TERM...",
		Short: "Print the nearest terms in embedding space",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var manifest Manifest
			if err := loadJSON(filepath.Join(dir, manifestFile), &manifest); err != nil {
				return fmt.Errorf("reading manifest: %w", err)
			}
			model, err := loadModel(dir)
			if err != nil {
				return err
			}
			logger.WithFields(logrus.Fields{"run_id": manifest.RunID, "dim": manifest.Dim}).Debug("model loaded")

			out := cmd.OutOrStdout()
			for _, term := range args {
				terms, sims, err := model.Similar(term, k)
				if err != nil {
					logger.Warn(err)
					continue
				}
				parts := make([]string, len(terms))
				for i := range terms {
					parts[i] = fmt.Sprintf("%s (%.3f)", terms[i], sims[i])
				}
				fmt.Fprintf(out, "%s: %s\n", term, strings.Join(parts, ", "))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "model", "", "Model directory written by train")
	cmd.Flags().IntVar(&k, "k", 8, "Number of neighbours")
	cmd.MarkFlagRequired("model")
	return cmd
}

// encodeLines normalizes each input line and prints its codes separated by
// spaces.
func encodeLines(enc *vocab.Encoder, r io.Reader, w io.Writer) error {
	scanner := corpus.NewLineScanner(r)
	bw := bufio.NewWriter(w)
	for scanner.Scan() {
		codes := enc.Encode(corpus.Tokenize(scanner.Text()))
		parts := make([]string, len(codes))
		for i, c := range codes {
			parts[i] = strconv.Itoa(int(c))
		}
		fmt.Fprintln(bw, strings.Join(parts, " "))
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return bw.Flush()
}

// decodeLines prints the terms for each line of space separated codes.
// Lines decoded before a failing line are still written.
func decodeLines(enc *vocab.Encoder, r io.Reader, w io.Writer) (err error) {
	scanner := corpus.NewLineScanner(r)
	bw := bufio.NewWriter(w)
	defer func() {
		if ferr := bw.Flush(); err == nil {
			err = ferr
		}
	}()
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		codes := make([]vocab.Code, len(fields))
		for i, f := range fields {
			n, err := strconv.Atoi(f)
			if err != nil {
				return fmt.Errorf("line %d: %w", line, err)
			}
			codes[i] = vocab.Code(n)
		}
		terms, err := enc.Decode(codes)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		fmt.Fprintln(bw, strings.Join(terms, " "))
	}
	return scanner.Err()
}
