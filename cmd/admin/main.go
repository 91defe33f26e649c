package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"grievancedesk/backend/internal/api/handler"
	"grievancedesk/backend/internal/config"
	"grievancedesk/backend/internal/logger"
	"grievancedesk/backend/internal/models"
	"grievancedesk/backend/internal/storage"
)

const usage = `Usage: admin <command> [args]

Commands:
  migrate
  create-department <code> <name>
  create-category <name>
  create-user <email> <first_name> <last_name> <role> [department_id]
  set-role <user_id> <role> [department_id]
  issue-token <user_id>
  purge-notifications <days>`

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}
	logger.Init(cfg)

	db, err := storage.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Log.Fatalf("failed to connect database: %v", err)
	}
	storageSvc := storage.NewStorageService(db, nil) // No redis needed for admin CLI
	ctx := context.Background()

	args := os.Args[2:]
	switch command := os.Args[1]; command {
	case "migrate":
		if err := storage.Migrate(db); err != nil {
			logger.Log.Fatalf("Error running migrations: %v", err)
		}
		fmt.Println("Migrations complete.")
	case "create-department":
		need(args, 2, "create-department <code> <name>")
		d := &models.Department{Code: args[0], Name: args[1]}
		if err := storageSvc.CreateDepartment(ctx, d); err != nil {
			logger.Log.Fatalf("Error creating department: %v", err)
		}
		fmt.Printf("Department %s created with id %d.\n", d.Code, d.ID)
	case "create-category":
		need(args, 1, "create-category <name>")
		c := &models.Category{Name: args[0], IsActive: true}
		if err := storageSvc.CreateCategory(ctx, c); err != nil {
			logger.Log.Fatalf("Error creating category: %v", err)
		}
		fmt.Printf("Category %q created with id %d.\n", c.Name, c.ID)
	case "create-user":
		need(args, 4, "create-user <email> <first_name> <last_name> <role> [department_id]")
		u, err := createUser(ctx, storageSvc, args)
		if err != nil {
			logger.Log.Fatalf("Error creating user: %v", err)
		}
		fmt.Printf("User %d (%s) created, external id %s.\n", u.ID, u.Role, u.ExternalID)
	case "set-role":
		need(args, 2, "set-role <user_id> <role> [department_id]")
		if err := setRole(ctx, storageSvc, args); err != nil {
			logger.Log.Fatalf("Error setting role: %v", err)
		}
		fmt.Printf("User %s is now %s.\n", args[0], args[1])
	case "issue-token":
		need(args, 1, "issue-token <user_id>")
		token, err := issueToken(ctx, storageSvc, []byte(cfg.JWTSecret), args[0])
		if err != nil {
			logger.Log.Fatalf("Error issuing token: %v", err)
		}
		fmt.Println(token)
	case "purge-notifications":
		need(args, 1, "purge-notifications <days>")
		days, err := strconv.Atoi(args[0])
		if err != nil || days <= 0 {
			fmt.Println("Invalid number of days. Please provide a positive integer.")
			os.Exit(1)
		}
		n, err := storageSvc.PurgeNotificationsBefore(ctx, time.Now().AddDate(0, 0, -days))
		if err != nil {
			logger.Log.Fatalf("Error purging notifications: %v", err)
		}
		fmt.Printf("Deleted %d notifications older than %d days.\n", n, days)
	default:
		fmt.Println("Unknown command")
		fmt.Println(usage)
		os.Exit(1)
	}
}

func need(args []string, n int, form string) {
	if len(args) < n {
		fmt.Println("Usage: admin " + form)
		os.Exit(1)
	}
}

func parseID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return uint(id), nil
}

// optionalDepartment parses args[i] as a department id if present.
func optionalDepartment(ctx context.Context, s storage.Storage, args []string, i int) (*uint, error) {
	if len(args) <= i {
		return nil, nil
	}
	id, err := parseID(args[i])
	if err != nil {
		return nil, err
	}
	if _, err := s.GetDepartment(ctx, id); err != nil {
		return nil, fmt.Errorf("department %d: %w", id, err)
	}
	return &id, nil
}

func createUser(ctx context.Context, s storage.Storage, args []string) (*models.User, error) {
	role, err := models.ParseRole(args[3])
	if err != nil {
		return nil, err
	}
	dept, err := optionalDepartment(ctx, s, args, 4)
	if err != nil {
		return nil, err
	}
	u := &models.User{
		Email:        args[0],
		FirstName:    args[1],
		LastName:     args[2],
		Role:         role,
		DepartmentID: dept,
		IsActive:     true,
	}
	return u, s.CreateUser(ctx, u)
}

func setRole(ctx context.Context, s storage.Storage, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	role, err := models.ParseRole(args[1])
	if err != nil {
		return err
	}
	user, err := s.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	dept, err := optionalDepartment(ctx, s, args, 2)
	if err != nil {
		return err
	}
	user.Role = role
	if dept != nil {
		user.DepartmentID = dept
	}
	return s.UpdateUser(ctx, user)
}

func issueToken(ctx context.Context, s storage.Storage, secret []byte, rawID string) (string, error) {
	id, err := parseID(rawID)
	if err != nil {
		return "", err
	}
	user, err := s.GetUserByID(ctx, id)
	if err != nil {
		return "", err
	}
	return handler.IssueToken(secret, user, config.TokenTTL)
}
