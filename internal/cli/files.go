package cli

import (
	"chat-workspace/internal/export"
	"chat-workspace/internal/repository/db"
	"chat-workspace/pkg/validation"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "Inspect and export a session's file workspace",
}

var filesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List workspace files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer closeApp(c)

		files, err := c.Store.Files(targetSession(c))
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(files) == 0 {
			fmt.Fprintln(out, metaStyle.Render("No files"))
			return nil
		}
		for _, f := range files {
			fmt.Fprintf(out, "%s  %s\n", f.Name, metaStyle.Render(fmt.Sprintf("%s, %d bytes", f.Language, len(f.Content))))
		}
		return nil
	},
}

var filesCatCmd = &cobra.Command{
	Use:   "cat <name>",
	Short: "Print one file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer closeApp(c)

		f, err := c.Store.File(targetSession(c), args[0])
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		fmt.Fprint(cmd.OutOrStdout(), f.Content)
		return nil
	},
}

var filesPullCmd = &cobra.Command{
	Use:   "pull <dir>",
	Short: "Write every workspace file under a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer closeApp(c)

		files, err := c.Store.Files(targetSession(c))
		if err != nil {
			return err
		}
		n, err := pullFiles(args[0], files)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render(fmt.Sprintf("wrote %d files to %s", n, args[0])))
		return nil
	},
}

// pullFiles writes files under dir, refusing names that would escape it
func pullFiles(dir string, files []db.FileArtifact) (int, error) {
	v := validation.NewChatRequestValidator()
	written := 0
	for _, f := range files {
		if err := v.ValidateFileName(f.Name); err != nil {
			return written, fmt.Errorf("refusing to write %q: %w", f.Name, err)
		}
		target := filepath.Join(dir, filepath.FromSlash(f.Name))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return written, fmt.Errorf("failed to create directory: %w", err)
		}
		if err := os.WriteFile(target, []byte(f.Content), 0o644); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", f.Name, err)
		}
		written++
	}
	return written, nil
}

var (
	exportFormat string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a session as json, jsonl, yaml or md",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer closeApp(c)

		s, err := c.Store.Session(targetSession(c))
		if err != nil {
			return err
		}
		return exportSession(cmd.OutOrStdout(), &s, exportFormat, exportOutput)
	},
}

func exportSession(stdout io.Writer, s *db.Session, format, output string) error {
	exporter, err := export.NewExporter(format)
	if err != nil {
		return err
	}
	if output == "" {
		return exporter.Export(s, stdout)
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", output, err)
	}
	if err := exporter.Export(s, f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintln(stdout, okStyle.Render("exported "+s.Title+" to "+output))
	return nil
}

func init() {
	filesCmd.AddCommand(filesListCmd, filesCatCmd, filesPullCmd)
	rootCmd.AddCommand(filesCmd)

	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "md", "Export format: json, jsonl, yaml or md")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (defaults to stdout)")
	rootCmd.AddCommand(exportCmd)
}
