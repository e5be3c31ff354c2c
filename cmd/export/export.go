// Package export implements the bulk export subcommand.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/muzzleid/muzzle-go/internal/conf"
	"github.com/muzzleid/muzzle-go/internal/export"
	"github.com/muzzleid/muzzle-go/internal/logging"
	"github.com/muzzleid/muzzle-go/internal/registry"
)

// Command creates the export command which writes the registry contents to
// a metadata CSV and a media archive on disk.
func Command(settings *conf.Settings) *cobra.Command {
	var (
		outputDir string
		idPrefix  string
		name      string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export registry records to a metadata CSV and media archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(settings, outputDir, idPrefix, name)
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", ".", "Directory to write the export files to")
	cmd.Flags().StringVar(&idPrefix, "id-prefix", "", "Only export subjects whose identifier starts with this prefix")
	cmd.Flags().StringVar(&name, "name", "", "Only export subjects whose name contains this text")

	return cmd
}

func runExport(settings *conf.Settings, outputDir, idPrefix, name string) error {
	logger := logging.ForService("export")

	store := registry.New(settings)
	if err := store.Open(); err != nil {
		return fmt.Errorf("opening registry store: %w", err)
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	var (
		subjects []registry.Subject
		err      error
	)
	if idPrefix == "" && name == "" {
		subjects, err = store.All(ctx)
	} else {
		subjects, err = store.Search(ctx, registry.SearchFilters{
			IDPrefix:     idPrefix,
			NameContains: name,
			Limit:        registry.MaxSearchLimit,
		})
	}
	if err != nil {
		return fmt.Errorf("selecting subjects: %w", err)
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	metadataPath := filepath.Join(outputDir, "metadata.csv")
	if err := writeFile(metadataPath, func(f *os.File) error {
		return export.WriteMetadataCSV(f, subjects)
	}); err != nil {
		return err
	}

	archivePath := filepath.Join(outputDir, "media.zip")
	if err := writeFile(archivePath, func(f *os.File) error {
		return export.WriteArchive(f, subjects)
	}); err != nil {
		return err
	}

	logger.Info("export complete",
		"subjects", len(subjects),
		"metadata", metadataPath,
		"archive", archivePath)
	fmt.Printf("Exported %d subjects to %s\n", len(subjects), outputDir)
	return nil
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}
