// roomctl runs maintenance tasks against the stores the server uses.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/roomledger/roomledger/internal/config"
	"github.com/roomledger/roomledger/internal/repository"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var version = "dev"

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.WarnLevel)

	app := &cli.App{
		Name:    "roomctl",
		Usage:   "RoomLedger maintenance commands",
		Version: version,
		Commands: []*cli.Command{
			{
				Name:  "clean-sessions",
				Usage: "Delete expired sessions from Redis",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Show what would be deleted without actually deleting",
					},
					&cli.BoolFlag{
						Name:  "verbose",
						Usage: "Show detailed information about deleted sessions",
					},
				},
				Action: func(c *cli.Context) error {
					cfg, err := config.Load()
					if err != nil {
						return err
					}
					client, err := repository.NewRedisClient(c.Context, &cfg.Redis, logger)
					if err != nil {
						return err
					}
					defer client.Close()

					store := repository.NewSessionRepository(client, logger)
					return cleanSessions(c.Context, store, time.Now(), c.Bool("dry-run"), c.Bool("verbose"), c.App.Writer)
				},
			},
			{
				Name:  "create-table",
				Usage: "Create the DynamoDB table and its indexes",
				Action: func(c *cli.Context) error {
					cfg, err := config.Load()
					if err != nil {
						return err
					}
					client, err := repository.NewDynamoClient(c.Context, &cfg.DynamoDB, logger)
					if err != nil {
						return err
					}
					if err := repository.CreateTable(c.Context, client, cfg.DynamoDB.TableName); err != nil {
						return fmt.Errorf("create table %s: %w", cfg.DynamoDB.TableName, err)
					}
					fmt.Fprintf(c.App.Writer, "Created table %s\n", cfg.DynamoDB.TableName)
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type sessionCleaner interface {
	CleanExpired(ctx context.Context, now time.Time, dryRun bool) ([]string, error)
}

// verboseLimit caps how many ids a dry run lists.
const verboseLimit = 5

func cleanSessions(ctx context.Context, store sessionCleaner, now time.Time, dryRun, verbose bool, out io.Writer) error {
	ids, err := store.CleanExpired(ctx, now, dryRun)
	if err != nil {
		return err
	}

	if len(ids) == 0 {
		fmt.Fprintln(out, "No expired sessions found to delete")
		return nil
	}

	if dryRun {
		fmt.Fprintf(out, "DRY RUN: Would delete %d expired sessions\n", len(ids))
		if verbose {
			for _, id := range ids[:min(len(ids), verboseLimit)] {
				fmt.Fprintf(out, "  - %s\n", id)
			}
		}
		return nil
	}

	fmt.Fprintf(out, "Successfully deleted %d expired sessions\n", len(ids))
	if verbose {
		fmt.Fprintln(out, "Expired sessions have been cleaned up")
	}
	return nil
}
