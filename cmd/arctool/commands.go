package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/proteus-engine/proteus/internal/config"
	"github.com/proteus-engine/proteus/pkg/archive"
	"github.com/proteus-engine/proteus/pkg/filemanager"
)

func cmdPack(g *globalFlags) *cobra.Command {
	var (
		storeExts []string
		minSize   int64
		jobs      int
	)
	cmd := &cobra.Command{
		Use:   "pack [input-dir] [output-base]",
		Short: "Pack a directory into output-base.arc and output-base.fat",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, err := archive.CodecByName(g.codec)
			if err != nil {
				return err
			}

			files, err := archive.ScanFiles(args[0])
			if err != nil {
				return fmt.Errorf("scan files: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Found %d files\n", len(files))

			b := archive.NewBuilder(args[1],
				archive.WithCodec(codec),
				archive.WithConcurrency(jobs),
				archive.WithSkipCompression(archive.DefaultSkipCompression(minSize), archive.SkipExtensions(storeExts...)),
				archive.WithBuilderLogger(g.logger(cmd)),
			)
			for _, f := range files {
				if err := b.AddFile(f); err != nil {
					return err
				}
			}

			idx, err := b.Build(cmd.Context())
			if err != nil {
				return fmt.Errorf("build: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Build complete: %d entries written to %s%s\n", idx.Len(), args[1], archive.IndexExt)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&storeExts, "store-ext", nil, "Extensions to store without compression (repeatable)")
	cmd.Flags().Int64Var(&minSize, "min-size", 64, "Store files smaller than this many bytes without compression")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "Files compressed in parallel (0 = GOMAXPROCS)")
	return cmd
}

func openArchive(g *globalFlags, base string) (*archive.Archive, error) {
	codec, err := archive.CodecByName(g.codec)
	if err != nil {
		return nil, err
	}
	return archive.Open(strings.TrimSuffix(strings.TrimSuffix(base, archive.IndexExt), archive.DataExt), codec)
}

func cmdList(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list [archive-base]",
		Short: "List the entries of an archive in hash order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openArchive(g, args[0])
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			for _, e := range a.Index().Entries() {
				fmt.Fprintln(out, e.String())
			}
			fmt.Fprintf(out, "%d entries, %d data bytes\n", a.Index().Len(), a.DataSize())
			return nil
		},
	}
}

func cmdCat(g *globalFlags) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "cat [archive-base...] --file name",
		Short: "Mount archives in order and write one file to stdout",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, err := archive.CodecByName(g.codec)
			if err != nil {
				return err
			}
			m := filemanager.New(
				filemanager.WithCodec(codec),
				filemanager.WithMaxArchives(len(args)),
				filemanager.WithLogger(g.logger(cmd)),
			)
			defer m.Close()

			for _, base := range args {
				if err := m.RegisterArchive(base); err != nil {
					return err
				}
			}
			m.SetRegistrationComplete()

			ok, size := m.Exists(name)
			if !ok {
				return fmt.Errorf("%s: %w", name, filemanager.ErrNotFound)
			}
			buf := make([]byte, size)
			if _, err := m.Read(buf, m.Hash(name)); err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(buf)
			return err
		},
	}
	cmd.Flags().StringVarP(&name, "file", "f", "", "Logical name of the file to print")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func cmdExtract(g *globalFlags) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "extract [archive-base] [output-dir]",
		Short: "Write every entry of an archive under output-dir",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputDir := args[1]
			if err := prepareOutputDir(outputDir, force); err != nil {
				return err
			}

			a, err := openArchive(g, args[0])
			if err != nil {
				return err
			}
			defer a.Close()

			createdDirs := make(map[string]struct{})
			for _, e := range a.Index().Entries() {
				name := e.Name()
				if name == "" || !filepath.IsLocal(filepath.FromSlash(name)) {
					name = fmt.Sprintf("%08x", e.Hash)
				}
				filePath := filepath.Join(outputDir, filepath.FromSlash(name))

				dir := filepath.Dir(filePath)
				if _, exists := createdDirs[dir]; !exists {
					if err := os.MkdirAll(dir, 0755); err != nil {
						return fmt.Errorf("create dir %s: %w", dir, err)
					}
					createdDirs[dir] = struct{}{}
				}

				data, err := a.ReadAll(e)
				if err != nil {
					return err
				}
				if err := os.WriteFile(filePath, data, 0644); err != nil {
					return fmt.Errorf("write file %s: %w", filePath, err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Extraction complete: %d files written to %s\n", a.Index().Len(), outputDir)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Allow non-empty output directory")
	return cmd
}

func prepareOutputDir(outputDir string, force bool) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if force {
		return nil
	}
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		return fmt.Errorf("check output directory: %w", err)
	}
	if len(entries) > 0 {
		return errors.New("output directory is not empty (use --force to override)")
	}
	return nil
}

func cmdVerify(g *globalFlags) *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "verify --config mount.yaml",
		Short: "Mount archives from a config file and read every entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Default()
			if configPath != "" {
				var err error
				if cfg, err = config.Load(configPath); err != nil {
					return err
				}
			}
			if len(cfg.Archives) == 0 {
				return errors.New("no archives configured")
			}

			m, err := cfg.Open(g.logger(cmd))
			if err != nil {
				return err
			}
			defer m.Close()
			if m.Count() != len(cfg.Archives) {
				return fmt.Errorf("mounted %d of %d archives", m.Count(), len(cfg.Archives))
			}

			type winner struct {
				slot int
				size uint32
			}
			winners := make(map[uint32]winner)
			m.Walk(func(info filemanager.ArchiveInfo, e *archive.Entry) bool {
				winners[e.Hash] = winner{slot: info.Slot, size: e.FileSize}
				return true
			})

			var checked, shadowed int
			var readErr error
			m.Walk(func(info filemanager.ArchiveInfo, e *archive.Entry) bool {
				if _, err := m.ReadSlot(info.Slot, e); err != nil {
					readErr = fmt.Errorf("%s: %w", info.Name, err)
					return false
				}
				checked++
				if winners[e.Hash].slot != info.Slot {
					shadowed++
				}
				return true
			})
			if readErr != nil {
				return readErr
			}

			// Lookups by hash must resolve to the last archive holding it.
			for hash, w := range winners {
				buf := make([]byte, w.size)
				n, err := m.Read(buf, hash)
				if err != nil {
					return err
				}
				if n != int(w.size) {
					return fmt.Errorf("read %08x: got %d of %d bytes", hash, n, w.size)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Verified %d entries in %d archives (%d shadowed)\n", checked, m.Count(), shadowed)
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "YAML mount configuration")
	return cmd
}
