package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/spec-kit/servicedesk/internal/api/dto"
	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/service"
)

// cliActor performs catalogue changes issued from the command line.
var cliActor = domain.Actor{ID: "cli", Role: domain.UserRoleManager, Name: "servicedesk cli"}

// CreateUserOptions holds flags for the create-user command.
type CreateUserOptions struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// NewCreateUserCommand creates the create-user command.
func NewCreateUserCommand(opts *RootOptions) *cobra.Command {
	userOpts := &CreateUserOptions{}

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create a requester, agent or manager account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := bootstrap(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer app.Close()

			user, err := app.auth.CreateUser(cmd.Context(), service.CreateUserInput{
				FullName: userOpts.Name,
				Email:    userOpts.Email,
				Password: userOpts.Password,
				Role:     domain.UserRole(userOpts.Role),
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), dto.NewUserResponse(user))
		},
	}

	cmd.Flags().StringVar(&userOpts.Name, "name", "", "full name")
	cmd.Flags().StringVar(&userOpts.Email, "email", "", "login email")
	cmd.Flags().StringVar(&userOpts.Password, "password", "", "initial password")
	cmd.Flags().StringVar(&userOpts.Role, "role", string(domain.UserRoleRequester), "requester, agent or manager")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

// CreateCategoryOptions holds flags for the create-category command.
type CreateCategoryOptions struct {
	Name               string
	Description        string
	FirstResponseHours float64
	ResolutionHours    float64
	FieldsFile         string
}

// NewCreateCategoryCommand creates the create-category command.
func NewCreateCategoryCommand(opts *RootOptions) *cobra.Command {
	catOpts := &CreateCategoryOptions{}

	cmd := &cobra.Command{
		Use:   "create-category",
		Short: "Create a ticket category with its SLA policy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := catOpts.input()
			if err != nil {
				return err
			}
			app, err := bootstrap(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer app.Close()

			cat, err := app.categories.CreateCategory(cmd.Context(), cliActor, input)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), dto.NewCategoryResponse(cat))
		},
	}

	cmd.Flags().StringVar(&catOpts.Name, "name", "", "category name")
	cmd.Flags().StringVar(&catOpts.Description, "description", "", "category description")
	cmd.Flags().Float64Var(&catOpts.FirstResponseHours, "first-response-hours", 4, "first response target in hours")
	cmd.Flags().Float64Var(&catOpts.ResolutionHours, "resolution-hours", 24, "resolution target in hours")
	cmd.Flags().StringVar(&catOpts.FieldsFile, "fields-file", "", "JSON file with additional field definitions")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func (o *CreateCategoryOptions) input() (service.CategoryInput, error) {
	fields, err := loadFieldDefinitions(o.FieldsFile)
	if err != nil {
		return service.CategoryInput{}, err
	}
	return service.CategoryInput{
		Name:        o.Name,
		Description: o.Description,
		SLA: domain.SLAPolicy{
			FirstResponseHours: o.FirstResponseHours,
			ResolutionHours:    o.ResolutionHours,
		},
		AdditionalFields: fields,
	}, nil
}

func loadFieldDefinitions(path string) ([]domain.CategoryField, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fields file: %w", err)
	}
	var fields []domain.CategoryField
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("parse fields file %s: %w", path, err)
	}
	return fields, nil
}

func contextWithTimeout(cmd *cobra.Command, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, timeout)
}
