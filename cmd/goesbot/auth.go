package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"goesbot/pkg/auth"
	"goesbot/pkg/config"
	"goesbot/pkg/logger"
	"goesbot/pkg/twitter"
)

// authCmd groups the credential commands
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Twitter API credentials",
	Long: `Manage stored Twitter API credentials.

Profiles are stored using:
  - System keychain (when available)
  - One AES-GCM encrypted file per profile, keyed from GOESBOT_PASSPHRASE

Keys in the settings file or GOESBOT_* variables take precedence over
stored profiles.`,
}

var loginCmd = &cobra.Command{
	Use:   "login [profile]",
	Short: "Store Twitter API keys securely",
	Long: `Store the four OAuth 1.0a keys the bot posts with.

You will be prompted for the consumer key and secret and the access token and
secret. Secrets are not echoed. The keys are checked against the API and the
account they post as is saved with the profile.`,
	Example: `  # Store the default profile
  goesbot auth login

  # Store a named profile
  goesbot auth login staging`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

var skipCheck bool

var logoutCmd = &cobra.Command{
	Use:   "logout [profile]",
	Short: "Remove a stored profile",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLogout,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "List stored profiles with masked keys",
	Args:  cobra.NoArgs,
	RunE:  runShow,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(showCmd)

	loginCmd.Flags().BoolVar(&skipCheck, "skip-check", false, "save the keys without checking them against the API")
}

// checkAccount asks the API which account creds belong to
func checkAccount(ctx context.Context, creds config.Credentials) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	user, err := twitter.NewClient(ctx, creds, 30*time.Second, logger.NewNopLogger()).VerifyCredentials(ctx)
	if err != nil {
		return "", err
	}
	return user.ScreenName, nil
}

func profileArg(args []string) string {
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return strings.TrimSpace(args[0])
	}
	return auth.DefaultProfile
}

func runLogin(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	out := cmd.OutOrStdout()
	reader := bufio.NewReader(cmd.InOrStdin())
	name := profileArg(args)

	auth.ShowKeysGuide(out)

	if existing, _ := manager.Load(name); existing != nil {
		fmt.Fprintf(out, "Profile '%s' already exists. Replace it? (y/N): ", name)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return nil
		}
	}

	p := &auth.Profile{Name: name}
	prompts := []struct {
		label  string
		target *string
		secret bool
	}{
		{"Consumer key (API key)", &p.ConsumerKey, false},
		{"Consumer secret", &p.ConsumerSecret, true},
		{"Access token", &p.AccessToken, false},
		{"Access secret", &p.AccessSecret, true},
	}
	for _, prompt := range prompts {
		fmt.Fprintf(out, "%s: ", prompt.label)
		value, err := readValue(reader, out, prompt.secret)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", strings.ToLower(prompt.label), err)
		}
		*prompt.target = value
	}
	check := auth.AccountCheck(checkAccount)
	if skipCheck {
		check = nil
	}
	if err := manager.Login(cmd.Context(), p, check); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	fmt.Fprintln(out)
	if p.ScreenName != "" {
		printSuccess(out, "Profile '%s' saved for @%s.", name, p.ScreenName)
	} else {
		printSuccess(out, "Profile '%s' saved.", name)
	}
	if name != auth.DefaultProfile {
		fmt.Fprintf(out, "Use it with: goesbot --profile %s\n", name)
	}
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	name := profileArg(args)
	if err := manager.Remove(name); err != nil {
		if errors.Is(err, auth.ErrCredentialsNotFound) {
			fmt.Fprintf(cmd.OutOrStdout(), "No stored profile '%s'\n", name)
			return nil
		}
		return fmt.Errorf("failed to remove profile: %w", err)
	}

	printSuccess(cmd.OutOrStdout(), "Profile removed: %s", name)
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	profiles, err := manager.Profiles()
	if err != nil {
		return fmt.Errorf("failed to list profiles: %w", err)
	}
	printProfiles(cmd.OutOrStdout(), profiles)
	return nil
}

func printProfiles(w io.Writer, profiles []*auth.Profile) {
	if len(profiles) == 0 {
		fmt.Fprintln(w, "No stored profiles. Use 'goesbot auth login' to add one.")
		return
	}

	for i, p := range profiles {
		masked := auth.Masked(p)
		fmt.Fprintf(w, "%d. Profile: %s\n", i+1, masked.Name)
		if masked.ScreenName != "" {
			fmt.Fprintf(w, "   Account: @%s\n", masked.ScreenName)
		}
		fmt.Fprintf(w, "   Consumer key: %s\n", masked.ConsumerKey)
		fmt.Fprintf(w, "   Consumer secret: %s\n", masked.ConsumerSecret)
		fmt.Fprintf(w, "   Access token: %s\n", masked.AccessToken)
		fmt.Fprintf(w, "   Access secret: %s\n", masked.AccessSecret)
		if !masked.SavedAt.IsZero() {
			fmt.Fprintf(w, "   Saved: %s\n", masked.SavedAt.Format("2006-01-02 15:04:05"))
		}
		fmt.Fprintln(w)
	}
}

// readValue reads one line, without echo for secrets on a terminal
func readValue(reader *bufio.Reader, out io.Writer, secret bool) (string, error) {
	fd := int(os.Stdin.Fd())
	if secret && term.IsTerminal(fd) {
		value, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		if err == nil {
			return strings.TrimSpace(string(value)), nil
		}
	}

	input, err := reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && input != "") {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
