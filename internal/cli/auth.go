package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/pratik-mahalle/jobtrail/internal/auth"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authentication commands",
	}

	cmd.AddCommand(newAuthTokenCmd())
	cmd.AddCommand(newAuthLogoutCmd())
	cmd.AddCommand(newAuthWhoamiCmd())

	return cmd
}

func newAuthTokenCmd() *cobra.Command {
	var userID, email string
	var ttl time.Duration
	var printOnly bool

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development access token with the server's JWT secret",
		Long: `Mint an HS256 access token for a user id and store it in the CLI config.
The secret is read from JOBTRAIL_JWT_SECRET or prompted for.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				userID = promptInput("User ID: ")
			}
			if userID == "" {
				return fmt.Errorf("user id is required")
			}

			secret := viper.GetString("jwt_secret")
			if secret == "" {
				secret = promptPassword("JWT secret: ")
			}
			if secret == "" {
				return fmt.Errorf("JWT secret is required")
			}

			token, err := auth.MintToken(userID, email, secret, ttl)
			if err != nil {
				return fmt.Errorf("failed to mint token: %w", err)
			}

			if printOnly {
				fmt.Println(token)
				return nil
			}

			viper.Set("auth.token", token)
			viper.Set("auth.user_id", userID)
			viper.Set("auth.email", email)
			if err := writeConfig(); err != nil {
				return fmt.Errorf("failed to save credentials: %w", err)
			}

			fmt.Printf("Token stored for %s (expires in %s)\n", userID, ttl)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user-id", "", "user id to put in the token subject")
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	cmd.Flags().BoolVar(&printOnly, "print", false, "print the token instead of storing it")

	return cmd
}

func newAuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			viper.Set("auth.token", "")
			viper.Set("auth.user_id", "")
			viper.Set("auth.email", "")

			if err := writeConfig(); err != nil {
				return fmt.Errorf("failed to clear credentials: %w", err)
			}

			fmt.Println("Logged out successfully")
			return nil
		},
	}
}

func newAuthWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show current user info",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			user, err := apiClient.Users().Me(ctx)
			if err != nil {
				return fmt.Errorf("failed to get user info: %w", err)
			}

			format := getOutputFormat()
			if format != "table" {
				return printOutput(user)
			}

			fmt.Printf("ID:       %s\n", user.ID)
			fmt.Printf("Email:    %s\n", user.Email)
			if name := strings.TrimSpace(user.FirstName + " " + user.LastName); name != "" {
				fmt.Printf("Name:     %s\n", name)
			}
			fmt.Printf("Plan:     %s\n", user.Plan)
			return nil
		},
	}
}

func promptInput(prompt string) string {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func promptPassword(prompt string) string {
	fmt.Print(prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return ""
	}
	return string(password)
}
