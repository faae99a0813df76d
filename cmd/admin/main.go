// Command admin performs administrative tasks, such as creating groups.
//
// Usage:
//
//	admin create-group -title T -slug S [-description D]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"

	"github.com/anonto42/yatube/backend/internal/models"
	"github.com/anonto42/yatube/backend/internal/repositories"
	"github.com/anonto42/yatube/backend/pkg/config"
	"github.com/anonto42/yatube/backend/pkg/logging"
)

var slugPattern = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

func main() {
	logging.Setup()
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		slog.Error("admin command failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New("usage: admin create-group -title T -slug S [-description D]")
	}
	switch args[0] {
	case "create-group":
		group, err := parseGroup(args[1:])
		if err != nil {
			return err
		}

		cfg := config.Load()
		if cfg.StorageDriver != config.StoragePostgres {
			return fmt.Errorf("create-group needs STORAGE_DRIVER=%s", config.StoragePostgres)
		}
		db, err := config.InitDB(&config.Config{StorageDriver: cfg.StorageDriver, PostgresConnStr: cfg.PostgresConnStr})
		if err != nil {
			return err
		}
		defer db.CloseDB()
		if err := repositories.AutoMigrate(db.Postgres); err != nil {
			return err
		}

		return createGroup(ctx, repositories.NewPostgresGroupRepository(db.Postgres), group, out)
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func parseGroup(args []string) (*models.Group, error) {
	fs := flag.NewFlagSet("create-group", flag.ContinueOnError)
	title := fs.String("title", "", "group title")
	slug := fs.String("slug", "", "unique URL identifier")
	description := fs.String("description", "", "group description")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if *title == "" || *slug == "" {
		return nil, errors.New("-title and -slug are required")
	}
	if !slugPattern.MatchString(*slug) {
		return nil, fmt.Errorf("invalid slug %q: use letters, numbers, underscores or hyphens", *slug)
	}
	return &models.Group{Title: *title, Slug: *slug, Description: *description}, nil
}

func createGroup(ctx context.Context, groups repositories.GroupRepository, group *models.Group, out io.Writer) error {
	if err := groups.CreateGroup(ctx, group); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return fmt.Errorf("group with slug %q already exists", group.Slug)
		}
		return err
	}
	fmt.Fprintf(out, "created group %d %q (/group/%s/)\n", group.ID, group.Title, group.Slug)
	return nil
}
