package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/iwvelando/boom-bust/internal/content"
)

func newContentCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "content",
		Short: "Inspect the campaign content tables",
	}
	cmd.AddCommand(newContentValidateCommand())
	return cmd
}

func newContentValidateCommand() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate phases, scenes and sequences",
		Long: `Validate the campaign tables. With --dir, phases.yaml, scenes.yaml and
sequences.yaml are read from that directory; otherwise the built-in tables
are checked.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateContent(cmd.OutOrStdout(), dir)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "directory holding the content YAML files")
	return cmd
}

func validateContent(w io.Writer, dir string) error {
	var (
		tables *content.Tables
		err    error
	)
	if dir == "" {
		tables, err = content.Load()
	} else {
		tables, err = loadContentDir(dir)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "content ok: %d phases, %d scenes\n", len(content.PhaseOrder), len(tables.SceneIDs()))
	return err
}

func loadContentDir(dir string) (*content.Tables, error) {
	var docs [3][]byte
	for i, name := range []string{"phases.yaml", "scenes.yaml", "sequences.yaml"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		docs[i] = data
	}
	return content.Parse(docs[0], docs[1], docs[2])
}
