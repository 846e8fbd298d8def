package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chriserin/ftspec/internal/config"
	"github.com/chriserin/ftspec/internal/db"
	"github.com/chriserin/ftspec/internal/ui"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize ftspec in the current directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunInit(cmd.OutOrStdout(), configPath, cfg)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}

// RunInit writes the configuration file, creates the run history database and
// keeps the database out of git. Existing files are left alone.
func RunInit(w io.Writer, cfgPath string, cfg *config.Config) error {
	// configuration
	if _, err := os.Stat(cfgPath); err == nil {
		ui.ExistsLine(w, cfgPath)
	} else {
		if err := cfg.Save(cfgPath); err != nil {
			return err
		}
		ui.CreatedLine(w, cfgPath)
	}

	// database
	_, err := os.Stat(cfg.Database)
	dbExists := err == nil
	sqlDB, err := db.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	sqlDB.Close()
	if dbExists {
		ui.ExistsLine(w, cfg.Database)
	} else {
		ui.CreatedLine(w, cfg.Database)
	}

	// gitignore
	added, err := ensureGitignore(gitignoreEntry(cfg.Database))
	if err != nil {
		return fmt.Errorf("updating .gitignore: %w", err)
	}
	if added {
		ui.CreatedLine(w, ".gitignore entry "+gitignoreEntry(cfg.Database))
	} else {
		ui.ExistsLine(w, ".gitignore entry "+gitignoreEntry(cfg.Database))
	}

	return nil
}

// gitignoreEntry ignores the database directory when it has one of its own,
// so the WAL and shared memory files are covered too.
func gitignoreEntry(dbPath string) string {
	dir := filepath.ToSlash(filepath.Dir(dbPath))
	if dir == "." {
		return filepath.ToSlash(dbPath) + "*"
	}
	return dir + "/"
}

func ensureGitignore(entry string) (bool, error) {
	data, err := os.ReadFile(".gitignore")
	if os.IsNotExist(err) {
		return true, os.WriteFile(".gitignore", []byte(entry+"\n"), 0o644)
	}
	if err != nil {
		return false, err
	}

	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == entry {
			return false, nil
		}
	}

	content := string(data)
	if len(content) > 0 && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	content += entry + "\n"

	return true, os.WriteFile(".gitignore", []byte(content), 0o644)
}

// requireDatabase fails when ftspec has not been initialized.
func requireDatabase(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("no run history at %s: run `ftspec init` first", path)
	}
	return nil
}
