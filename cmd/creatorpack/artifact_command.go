package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"creatorpack/internal/config"
	"creatorpack/internal/fileutil"
)

func newArtifactCommand(ctx *commandContext) *cobra.Command {
	artifactCmd := &cobra.Command{
		Use:   "artifact",
		Short: "Download job artifacts",
	}
	artifactCmd.AddCommand(newArtifactGetCommand(ctx))
	return artifactCmd
}

func newArtifactGetCommand(ctx *commandContext) *cobra.Command {
	var output string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "get <job-id> <name>",
		Short: "Download an artifact (use -o - for stdout)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, name := args[0], args[1]
			client := ctx.client()

			if output == "-" {
				_, err := client.DownloadArtifact(cmd.Context(), id, name, cmd.OutOrStdout())
				return err
			}

			target := strings.TrimSpace(output)
			if target == "" {
				target = name
			}
			target, err := config.ExpandPath(target)
			if err != nil {
				return fmt.Errorf("resolve output path: %w", err)
			}
			if info, err := os.Stat(target); err == nil {
				if info.IsDir() {
					target = filepath.Join(target, name)
				} else if !overwrite {
					return fmt.Errorf("%s already exists (use --overwrite to replace it)", target)
				}
			} else if !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("check output path: %w", err)
			}

			var buf bytes.Buffer
			size, err := client.DownloadArtifact(cmd.Context(), id, name, &buf)
			if err != nil {
				return err
			}
			if err := fileutil.WriteFileAtomic(target, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("save artifact: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%s) to %s\n", name, formatBytes(size), target)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination file or directory (defaults to the artifact name)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing file")
	return cmd
}
