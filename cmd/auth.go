package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/vempat/vempat/internal/auth"
	"github.com/vempat/vempat/internal/config"
	"github.com/vempat/vempat/internal/output"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in on this device",
	Long: `Signs in against the remote identity service and caches the profile
locally. When the remote cannot be reached, a user who signed in online
before can still sign in from the cache.`,
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")

		if (email == "" || password == "") && output.IsTerminal() {
			if err := promptCredentials(&email, &password); err != nil {
				return err
			}
		}
		if email == "" || password == "" {
			return fail(errors.New("email and password are required"))
		}

		a, err := openApp(nil)
		if err != nil {
			return fail(err)
		}
		defer a.Close()

		rc, err := openRemote()
		if err != nil {
			return fail(err)
		}
		defer rc.Close()

		svc := auth.NewService(rc.identity, a.db, auth.Options{})
		sess, err := svc.Login(cmd.Context(), email, password)
		if err != nil {
			return fail(err)
		}

		p := sess.Profile
		if err := config.SaveSession(&config.Session{
			UID:        p.UID,
			Email:      p.Email,
			Name:       p.Name,
			Role:       string(p.Role),
			Offline:    sess.Offline,
			LoggedInAt: time.Now().UTC(),
		}); err != nil {
			return fail(fmt.Errorf("save session: %w", err))
		}

		if sess.Offline {
			output.Warning("Signed in offline as %s (%s) from the cached profile", p.Email, p.Role)
		} else {
			output.Success("Signed in as %s (%s)", p.Email, p.Role)
		}
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:     "logout",
	Short:   "Sign out on this device",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.ClearSession(); err != nil {
			return fail(err)
		}
		output.Success("Signed out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:     "whoami",
	Short:   "Show who is signed in",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := config.LoadSession()
		if err != nil {
			return fail(err)
		}
		if sess == nil {
			fmt.Println("Not signed in")
			return nil
		}
		return printJSONOr(cmd, sess, func() {
			mode := "online"
			if sess.Offline {
				mode = "offline"
			}
			fmt.Printf("%s <%s>  %s  signed in %s (%s)\n",
				sess.Name, sess.Email, sess.Role, output.Ago(sess.LoggedInAt, time.Now()), mode)
		})
	},
}

func promptCredentials(email, password *string) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Value(email),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(password),
		),
	).Run()
}

func init() {
	loginCmd.Flags().String("email", "", "Account email")
	loginCmd.Flags().String("password", "", "Account password (prompted when omitted)")
	whoamiCmd.Flags().Bool("json", false, "Output as JSON")

	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd)
}
