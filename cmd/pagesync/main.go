package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"pagesync/internal/app"
	"pagesync/internal/auth"
	"pagesync/internal/cms"
	"pagesync/internal/config"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config from the default (or overridden) location.
func loadConfig() (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}
	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

// newApp reads the config and creates an App. The caller must defer
// a.Close(). operation identifies the CLI command being run.
func newApp(cmd *cobra.Command, operation string) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	passphrase := ""
	if cfg.Store.Type == "github" {
		passphrase, err = getPassphrase("Passphrase: ")
		if err != nil {
			return nil, err
		}
	}

	a, err := app.NewApp(cmd.Context(), cfg, operation, passphrase)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// getPassphrase reads the credential passphrase from PAGESYNC_PASSPHRASE
// or prompts for it without echo.
func getPassphrase(prompt string) (string, error) {
	if p := os.Getenv("PAGESYNC_PASSPHRASE"); p != "" {
		return p, nil
	}
	fmt.Fprint(os.Stderr, prompt)
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(raw), nil
}

var rootCmd = &cobra.Command{
	Use:   "pagesync",
	Short: "Edit and synchronize CMS pages stored in a content repository",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		fmt.Println("Edit the [store] section to point at your content repository.")
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:  %s\n", cfg.LogDir)
		fmt.Printf("Store:    %s", cfg.Store.Type)
		if cfg.Store.Type == "github" {
			fmt.Printf(" (%s/%s@%s)", cfg.Store.Owner, cfg.Store.Repo, cfg.Store.Branch)
		}
		fmt.Println()
		return nil
	},
}

// login / logout / whoami
var loginCmd = &cobra.Command{
	Use:   "login USERNAME",
	Short: "Store credentials for the content repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		fmt.Fprint(os.Stderr, "Bearer token: ")
		rawToken, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return fmt.Errorf("reading token: %w", err)
		}

		passphrase, err := getPassphrase("New passphrase: ")
		if err != nil {
			return err
		}

		gate := auth.NewFileGate(cfg.Auth)
		session, err := gate.Login(cmd.Context(), cms.Credentials{
			User:       args[0],
			Token:      strings.TrimSpace(string(rawToken)),
			Passphrase: passphrase,
		})
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}

		fmt.Printf("Logged in as %s\n", session.User)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove stored credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := auth.NewFileGate(cfg.Auth).Logout(); err != nil {
			return fmt.Errorf("logout failed: %w", err)
		}
		fmt.Println("Logged out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		user := auth.NewFileGate(cfg.Auth).CurrentUser()
		if user == nil {
			fmt.Println("Not logged in.")
			return nil
		}
		fmt.Println(user.Name)
		return nil
	},
}

// pages command
var pagesCmd = &cobra.Command{
	Use:   "pages",
	Short: "List editable pages",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "ListPages")
		if err != nil {
			return err
		}
		defer a.Close()

		pages, err := a.ListPages(cmd.Context())
		if err != nil {
			return err
		}

		if len(pages) == 0 {
			fmt.Println("No pages found.")
			return nil
		}
		for _, p := range pages {
			fmt.Printf("%-6s %s\n", p.Kind, p.Path)
		}
		return nil
	},
}

// get command
var getCmd = &cobra.Command{
	Use:   "get PATH",
	Short: "Print a page and its revision token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "GetPage")
		if err != nil {
			return err
		}
		defer a.Close()

		page, draft, err := a.GetPage(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "# %s  token=%s\n", page.Entry.Path, page.Token)
		if draft != nil {
			fmt.Fprintf(os.Stderr, "# local draft from %s exists (base token %s); see 'pagesync drafts'\n",
				draft.UpdatedAt.Format("2006-01-02 15:04:05"), draft.BaseToken)
		}
		fmt.Print(string(page.Content))
		return nil
	},
}

// put command
var putCmd = &cobra.Command{
	Use:   "put PATH",
	Short: "Save edited content to a page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		message, _ := cmd.Flags().GetString("message")
		create, _ := cmd.Flags().GetBool("create")

		content, err := readContentArg(file)
		if err != nil {
			return err
		}

		a, err := newApp(cmd, "SavePage")
		if err != nil {
			return err
		}
		defer a.Close()

		if create {
			if err := a.CreatePage(cmd.Context(), args[0], content, message); err != nil {
				a.SetStatus("error")
				return err
			}
			fmt.Printf("Created %s\n", args[0])
			return nil
		}

		if err := a.SavePage(cmd.Context(), args[0], content, message); err != nil {
			a.SetStatus("error")
			return err
		}
		fmt.Printf("Saved %s\n", args[0])
		return nil
	},
}

// set command
var setCmd = &cobra.Command{
	Use:   "set PATH FIELD VALUE",
	Short: "Update a single field of a JSON page",
	Long: `Update a single field of a JSON page in place.

FIELD is a dot-separated path into the document; array elements are
addressed by index. VALUE is parsed as JSON, so numbers, booleans and
quoted structures work; anything that does not parse is taken as a
plain string.

  pagesync set home.json title "Welcome"
  pagesync set home.json sections.0.heading "Intro"
  pagesync set settings.json maxItems 25`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		message, _ := cmd.Flags().GetString("message")

		a, err := newApp(cmd, "SetPageValue")
		if err != nil {
			return err
		}
		defer a.Close()

		var value any
		if err := json.Unmarshal([]byte(args[2]), &value); err != nil {
			value = args[2] // bare strings need no quoting
		}

		segments := strings.Split(args[1], ".")
		if err := a.SetPageValue(cmd.Context(), args[0], segments, value, message); err != nil {
			a.SetStatus("error")
			return err
		}
		fmt.Printf("Updated %s in %s\n", args[1], args[0])
		return nil
	},
}

// readContentArg reads the new page content from a file or stdin.
func readContentArg(file string) ([]byte, error) {
	if file == "" || file == "-" {
		content, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return content, nil
	}
	content, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", file, err)
	}
	return content, nil
}

// media command
var mediaCmd = &cobra.Command{
	Use:   "media",
	Short: "Manage media assets",
}

var mediaUploadCmd = &cobra.Command{
	Use:   "upload FOLDER FILE",
	Short: "Upload a media file, optionally replacing an old asset",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		replaces, _ := cmd.Flags().GetString("replaces")

		a, err := newApp(cmd, "UploadMedia")
		if err != nil {
			return err
		}
		defer a.Close()

		newPath, err := a.UploadMedia(cmd.Context(), args[0], args[1], replaces)
		if err != nil {
			a.SetStatus("error")
			return err
		}
		fmt.Println(newPath)
		return nil
	},
}

var mediaRmCmd = &cobra.Command{
	Use:   "rm FOLDER NAME",
	Short: "Delete a media file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "DeleteMedia")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.DeleteMedia(cmd.Context(), args[0], args[1]); err != nil {
			a.SetStatus("error")
			return err
		}
		fmt.Printf("Deleted %s/%s\n", args[0], args[1])
		return nil
	},
}

// drafts command
var draftsCmd = &cobra.Command{
	Use:   "drafts",
	Short: "List local drafts kept from failed or abandoned saves",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "ListDrafts")
		if err != nil {
			return err
		}
		defer a.Close()

		drafts, err := a.Drafts()
		if err != nil {
			return err
		}
		if len(drafts) == 0 {
			fmt.Println("No drafts.")
			return nil
		}
		for _, d := range drafts {
			fmt.Printf("%s  %s  base:%s  %d bytes\n",
				d.Path, d.UpdatedAt.Format("2006-01-02 15:04:05"), d.BaseToken, len(d.Content))
		}
		return nil
	},
}

var draftsApplyCmd = &cobra.Command{
	Use:   "apply PATH",
	Short: "Retry a draft against the store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		message, _ := cmd.Flags().GetString("message")

		a, err := newApp(cmd, "ApplyDraft")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.ApplyDraft(cmd.Context(), args[0], message); err != nil {
			a.SetStatus("error")
			return err
		}
		fmt.Printf("Applied draft for %s\n", args[0])
		return nil
	},
}

var draftsRmCmd = &cobra.Command{
	Use:   "rm PATH",
	Short: "Discard a draft",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "DeleteDraft")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.DeleteDraft(args[0]); err != nil {
			a.SetStatus("error")
			return err
		}
		fmt.Printf("Discarded draft for %s\n", args[0])
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View edit operation history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd, "GetHistory")
		if err != nil {
			return err
		}
		defer a.Close()

		ops, err := a.History(limit)
		if err != nil {
			return err
		}
		if len(ops) == 0 {
			fmt.Println("No operations recorded.")
			return nil
		}

		for _, op := range ops {
			duration := ""
			if op.FinishedAt.Valid {
				d := op.FinishedAt.Time.Sub(op.StartedAt)
				duration = d.Truncate(time.Millisecond).String()
			}
			fmt.Printf("#%d  %-12s  %s  %-8s  %s  %s\n",
				op.ID,
				op.Operation,
				op.StartedAt.Format("2006-01-02 15:04:05"),
				op.Status,
				duration,
				op.Parameters,
			)
		}
		return nil
	},
}

// serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API for the browser editor",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")

		a, err := newApp(cmd, "Serve")
		if err != nil {
			return err
		}
		defer a.Close()

		return a.Serve(addr)
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// drafts subcommands
	draftsCmd.AddCommand(draftsApplyCmd)
	draftsApplyCmd.Flags().StringP("message", "m", "", "Commit message")
	draftsCmd.AddCommand(draftsRmCmd)

	// media subcommands
	mediaCmd.AddCommand(mediaUploadCmd)
	mediaUploadCmd.Flags().String("replaces", "", "Old asset reference to retire after upload")
	mediaCmd.AddCommand(mediaRmCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(pagesCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(putCmd)
	putCmd.Flags().StringP("file", "f", "", "File with the new content (default: stdin)")
	putCmd.Flags().StringP("message", "m", "", "Commit message")
	putCmd.Flags().Bool("create", false, "Create a new page instead of updating")
	rootCmd.AddCommand(setCmd)
	setCmd.Flags().StringP("message", "m", "", "Commit message")
	rootCmd.AddCommand(mediaCmd)
	rootCmd.AddCommand(draftsCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")
	rootCmd.AddCommand(serveCmd)
}
