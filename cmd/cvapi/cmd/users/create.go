package users

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"strings"

	"github.com/spf13/cobra"

	"github.com/duongduc025/CV-Management-sub000/cmd/cvapi/internal/auth"
	"github.com/duongduc025/CV-Management-sub000/cmd/cvapi/internal/config"
	"github.com/duongduc025/CV-Management-sub000/cmd/cvapi/internal/db/bunx"
	"github.com/duongduc025/CV-Management-sub000/cmd/cvapi/internal/db/models"
	"github.com/duongduc025/CV-Management-sub000/cmd/cvapi/internal/repository"
)

var (
	emailFlag        string
	employeeCodeFlag string
	fullNameFlag     string
	passwordFlag     string
	departmentFlag   string
	rolesInput       []string
	stdinFlag        bool
)

// createInput is a validated-on-use request to create an account.
type createInput struct {
	Email        string
	EmployeeCode string
	FullName     string
	Password     string
	DepartmentID string
	Roles        []string
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an employee account with explicit roles",
	RunE: func(cmd *cobra.Command, args []string) error {
		password := passwordFlag
		if stdinFlag {
			var err error
			if password, err = readPassword(cmd.InOrStdin(), cmd.ErrOrStderr()); err != nil {
				return err
			}
		}

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		ctx := context.Background()
		db, err := bunx.NewDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer bunx.Close(db)

		user, err := createUser(ctx,
			repository.NewBunUserRepository(db),
			repository.NewBunRoleRepository(db),
			repository.NewBunDepartmentRepository(db),
			createInput{
				Email:        emailFlag,
				EmployeeCode: employeeCodeFlag,
				FullName:     fullNameFlag,
				Password:     password,
				DepartmentID: departmentFlag,
				Roles:        rolesInput,
			})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "User created successfully!")
		fmt.Fprintln(out, "----------------------------------------")
		fmt.Fprintf(out, "User ID: %s\n", user.ID)
		fmt.Fprintf(out, "Employee code: %s\n", user.EmployeeCode)
		fmt.Fprintf(out, "Email: %s\n", user.Email)
		fmt.Fprintf(out, "Roles: %s\n", strings.Join(user.RoleNames(), ", "))
		fmt.Fprintln(out, "----------------------------------------")
		return nil
	},
}

func readPassword(in io.Reader, prompt io.Writer) (string, error) {
	fmt.Fprint(prompt, "Enter password: ")
	scanner := bufio.NewScanner(in)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return "", nil
}

func createUser(ctx context.Context, users repository.UserRepository, roles repository.RoleRepository, depts repository.DepartmentRepository, in createInput) (*models.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	switch {
	case in.Email == "":
		return nil, errors.New("--email flag is required")
	case strings.TrimSpace(in.EmployeeCode) == "":
		return nil, errors.New("--employee-code flag is required")
	case strings.TrimSpace(in.FullName) == "":
		return nil, errors.New("--full-name flag is required")
	case len(in.Roles) == 0:
		return nil, errors.New("at least one role must be specified using --role")
	case in.Password == "":
		return nil, errors.New("password is required (use --password or --stdin)")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, fmt.Errorf("invalid email format: %w", err)
	}

	if _, err := roles.GetByNames(ctx, in.Roles); err != nil {
		if errors.Is(err, repository.ErrUnknownRole) {
			return nil, fmt.Errorf("%w\nValid roles are: %s", err, validRoleNames(ctx, roles))
		}
		return nil, fmt.Errorf("failed to fetch roles: %w", err)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		EmployeeCode: strings.TrimSpace(in.EmployeeCode),
		FullName:     strings.TrimSpace(in.FullName),
		Email:        in.Email,
		PasswordHash: hash,
	}
	if in.DepartmentID != "" {
		if _, err := depts.GetByID(ctx, in.DepartmentID); err != nil {
			return nil, fmt.Errorf("department %q: %w", in.DepartmentID, err)
		}
		user.DepartmentID = &in.DepartmentID
	}

	if err := users.Create(ctx, user, in.Roles); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("user with email %q or employee code %q already exists", user.Email, user.EmployeeCode)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return users.GetByID(ctx, user.ID)
}

func validRoleNames(ctx context.Context, roles repository.RoleRepository) string {
	list, err := roles.List(ctx)
	if err != nil {
		return "unknown"
	}
	names := make([]string, 0, len(list))
	for _, r := range list {
		names = append(names, r.Name)
	}
	return strings.Join(names, ", ")
}
