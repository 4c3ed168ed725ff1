package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ironledgerdev/medmap-backend-sub001/authentication"
	"github.com/ironledgerdev/medmap-backend-sub001/configuration"
	"github.com/ironledgerdev/medmap-backend-sub001/models"
	"github.com/ironledgerdev/medmap-backend-sub001/payfast"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func openDB() (*gorm.DB, error) {
	cfg := configuration.LoadConfig()
	if cfg.DBDSN == "" {
		return nil, errors.New("DB_DSN is not set")
	}
	db, err := gorm.Open(postgres.Open(cfg.DBDSN), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return db, nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			if err := configuration.Migrate(db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Database schema is up to date")
			return nil
		},
	}
}

func createAdminCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create a superuser, or promote an existing account",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			created, err := createAdmin(db, email, password)
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "Superuser %s created\n", email)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "User %s promoted to superuser\n", email)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "admin email address")
	cmd.Flags().StringVar(&password, "password", "", "admin password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func resetPasswordCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a new password for an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			if err := resetPassword(db, email, password); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Password for %s has been reset\n", email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email address")
	cmd.Flags().StringVar(&password, "password", "", "new password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func payfastSignCmd() *cobra.Command {
	var passphrase string
	var ordered bool
	cmd := &cobra.Command{
		Use:   "payfast-sign key=value...",
		Short: "Print the PayFast signature of a set of fields",
		Long: `Computes the signature PayFast expects for the given fields.

Examples:
  medmapctl payfast-sign merchant_id=10000100 amount=39.00 item_name="Premium membership (quarterly)"
  medmapctl payfast-sign --ordered --passphrase secret m_payment_id=abc pf_payment_id=1089250`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			signature, err := payfastSign(args, passphrase, ordered)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), signature)
			return nil
		},
	}
	cmd.Flags().StringVar(&passphrase, "passphrase", "", "merchant passphrase")
	cmd.Flags().BoolVar(&ordered, "ordered", false, "keep the given field order, as for notifications")
	return cmd
}

func createAdmin(db *gorm.DB, email, password string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return false, errors.New("email and password are required")
	}
	hash, err := authentication.HashPassword(password)
	if err != nil {
		return false, err
	}

	var user models.User
	err = db.Where("email = ?", email).First(&user).Error
	if err == nil {
		return false, db.Model(&user).Updates(map[string]any{
			"password":       hash,
			"is_staff":       true,
			"is_superuser":   true,
			"email_verified": true,
		}).Error
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	user = models.User{
		Username:      email,
		Email:         email,
		Password:      hash,
		IsStaff:       true,
		IsSuperuser:   true,
		EmailVerified: true,
	}
	if err := db.Create(&user).Error; err != nil {
		return false, fmt.Errorf("create admin: %w", err)
	}
	return true, nil
}

func resetPassword(db *gorm.DB, email, password string) error {
	if password == "" {
		return errors.New("password is required")
	}
	hash, err := authentication.HashPassword(password)
	if err != nil {
		return err
	}
	result := db.Model(&models.User{}).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).Update("password", hash)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("no user with email %s", email)
	}
	return nil
}

func payfastSign(args []string, passphrase string, ordered bool) (string, error) {
	fields := make(payfast.Fields, 0, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return "", fmt.Errorf("expected key=value, got %q", arg)
		}
		fields = append(fields, payfast.Field{Key: key, Value: value})
	}
	if ordered {
		return payfast.SignatureOrdered(fields, passphrase), nil
	}
	return payfast.Signature(fields.Map(), passphrase), nil
}
