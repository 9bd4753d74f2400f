package main

import (
	"cmp"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/klauspost/compress/zstd"
	"github.com/spf13/cobra"

	"lionrepo/internal/codec"
	"lionrepo/internal/config"
	"lionrepo/internal/domain"
	"lionrepo/internal/loader"
	"lionrepo/internal/repository"
	"lionrepo/internal/service"
	"lionrepo/internal/validator"
)

type chunkValidator interface {
	Validate(*domain.Chunk) (*validator.Result, error)
}

func newValidateCmd() *cobra.Command {
	var (
		partition   bool
		tree        bool
		partitionOf []string
	)
	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a chunk file for structural errors",
		Long: `Check a chunk file for structural errors.

By default the file is checked as a plain chunk. --partition requires a
single complete partition; --tree checks the nodes as one rooted tree, and
with --partition-classifier the root must be an instance of one of the
given classifiers, written language:version:key.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chunk, _, err := loader.ReadFile(args[0], nil)
			if err != nil {
				return err
			}
			var v chunkValidator = validator.ChunkValidator{}
			switch {
			case partition:
				v = validator.PartitionChunkValidator{}
			case tree:
				treeValidator := validator.NodeTreeValidator{}
				if len(partitionOf) > 0 {
					classifiers, err := parseClassifiers(partitionOf)
					if err != nil {
						return err
					}
					treeValidator.IsPartition = validator.PartitionSet(classifiers)
				}
				v = treeChunkValidator{treeValidator}
			}
			result, err := v.Validate(chunk)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, issue := range result.Issues() {
				fmt.Fprintln(out, issue.String())
			}
			if !result.IsSuccessful() {
				return fmt.Errorf("%s: %d issues", args[0], result.Len())
			}
			fmt.Fprintf(out, "%s: %s nodes, ok\n", args[0], humanize.Comma(int64(chunk.Len())))
			return nil
		},
	}
	flags := cmd.Flags()
	flags.BoolVar(&partition, "partition", false, "require a single complete partition")
	flags.BoolVar(&tree, "tree", false, "check the nodes as a single rooted tree")
	flags.StringSliceVar(&partitionOf, "partition-classifier", nil, "classifier allowed for the tree root, as language:version:key (repeatable)")
	cmd.MarkFlagsMutuallyExclusive("partition", "tree")
	return cmd
}

type treeChunkValidator struct {
	validator.NodeTreeValidator
}

func (v treeChunkValidator) Validate(chunk *domain.Chunk) (*validator.Result, error) {
	return v.ValidateChunk(chunk)
}

// parseClassifiers reads language:version:key triples.
func parseClassifiers(values []string) (map[*domain.MetaPointer]struct{}, error) {
	out := make(map[*domain.MetaPointer]struct{}, len(values))
	for _, value := range values {
		parts := strings.SplitN(value, ":", 3)
		if len(parts) != 3 || parts[2] == "" {
			return nil, fmt.Errorf("invalid classifier %q: want language:version:key", value)
		}
		out[domain.NewMetaPointer(parts[0], parts[1], parts[2])] = struct{}{}
	}
	return out, nil
}

func newConvertCmd(a *app) *cobra.Command {
	var level string
	cmd := &cobra.Command{
		Use:   "convert <in> <out>",
		Short: "Rewrite a chunk file in the format implied by the output extension",
		Long: `Rewrite a chunk file in another format.

Formats follow the file extension: .json, .yaml or .yml, each optionally
followed by .zst for zstd compression.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			enc, err := codec.ForPath(args[1], nil)
			if err != nil {
				return err
			}
			if level != "" {
				zc, ok := enc.(*codec.ZstdCodec)
				if !ok {
					return fmt.Errorf("--zstd-level needs a .zst output, got %s", args[1])
				}
				ok, l := zstd.EncoderLevelFromString(level)
				if !ok {
					return fmt.Errorf("unknown zstd level %q: want fastest, default, better or best", level)
				}
				zc.WithLevel(l)
			}
			chunk, size, err := loader.ReadFile(args[0], nil)
			if err != nil {
				return err
			}
			f, err := os.Create(args[1])
			if err != nil {
				return err
			}
			if err := enc.Encode(chunk, f); err != nil {
				f.Close()
				return fmt.Errorf("failed to write %s: %w", args[1], err)
			}
			if err := f.Close(); err != nil {
				return err
			}
			a.logger.Info("chunk converted",
				"from", args[0], "to", args[1],
				"nodes", chunk.Len(), "read", humanize.Bytes(size))
			return nil
		},
	}
	cmd.Flags().StringVar(&level, "zstd-level", "", "zstd compression level for .zst output: fastest, default, better or best")
	return cmd
}

func newInitConfigCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init-config [path]",
		Short: "Write the effective configuration to a file",
		Long: `Write the effective configuration (defaults, config file, environment and
flags combined) as YAML. Without a path it goes to the user config
directory.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.DefaultConfigPath()
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite", path)
			}
			if err := a.cfg.Save(path); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
	return cmd
}

func newInspectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file>",
		Short: "Summarize the nodes of a chunk file per classifier and language",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			const name = "inspect"
			ctx := cmd.Context()
			svc := service.NewServer(service.WithLogger(a.logger))
			if err := svc.CreateRepository(ctx, repository.Configuration{Name: name, LionWebVersion: config.DefaultLionWebVersion}); err != nil {
				return err
			}
			report, err := loader.New(svc, nil, a.logger).Load(ctx, name, args[0])
			if err != nil {
				return err
			}
			classifiers, err := svc.NodesByClassifier(ctx, name, 0)
			if err != nil {
				return err
			}
			languages, err := svc.NodesByLanguage(ctx, name, 0)
			if err != nil {
				return err
			}
			result, err := svc.CheckConsistency(ctx, name)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %s nodes in %d partitions, %s\n\n",
				args[0], humanize.Comma(int64(report.Nodes)), len(report.Created), humanize.Bytes(report.Bytes))
			renderClassifiers(out, classifiers)
			fmt.Fprintln(out)
			renderLanguages(out, languages)
			for _, issue := range result.Issues() {
				fmt.Fprintln(out, issue.String())
			}
			return nil
		},
	}
}

func renderClassifiers(w io.Writer, groups map[repository.ClassifierKey]repository.Group) {
	keys := make([]repository.ClassifierKey, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	slices.SortFunc(keys, func(a, b repository.ClassifierKey) int {
		return cmp.Or(cmp.Compare(a.Language, b.Language), cmp.Compare(a.Classifier, b.Classifier))
	})

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Language", "Classifier", "Nodes"})
	total := 0
	for _, key := range keys {
		size := groups[key].Size
		total += size
		t.AppendRow(table.Row{key.Language, key.Classifier, humanize.Comma(int64(size))})
	}
	t.AppendFooter(table.Row{"", "Total", humanize.Comma(int64(total))})
	t.Render()
}

func renderLanguages(w io.Writer, groups map[string]repository.Group) {
	languages := make([]string, 0, len(groups))
	for language := range groups {
		languages = append(languages, language)
	}
	slices.Sort(languages)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Language", "Nodes"})
	for _, language := range languages {
		t.AppendRow(table.Row{language, humanize.Comma(int64(groups[language].Size))})
	}
	t.Render()
}
