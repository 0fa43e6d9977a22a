// Command akavache administers a persistent cache database from the
// terminal: inserting and reading raw blobs, listing and invalidating
// keys, running maintenance, and browsing the cache interactively.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/akavache-go/akavache/internal/cache"
	"github.com/akavache-go/akavache/internal/config"
	"github.com/akavache-go/akavache/internal/errors"
	"github.com/akavache-go/akavache/internal/tui"

	"github.com/urfave/cli"
)

func main() {
	app := commandStart()
	if err := app.Run(os.Args); err != nil {
		if ae := errors.Explain(err); ae != nil {
			fmt.Fprintln(os.Stderr, ae.FormatWithSuggestions())
		} else {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func commandStart() *cli.App {
	app := cli.NewApp()
	app.Name = "akavache"
	app.Usage = "Inspect and administer an akavache persistent cache database"
	app.Version = "0.1.0"

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "db, d",
			Usage: "path to the cache database",
		},
	}

	app.Commands = []cli.Command{
		{
			Name:      "insert",
			Usage:     "Insert a raw value under a key",
			ArgsUsage: "KEY VALUE",
			Flags: []cli.Flag{
				cli.DurationFlag{Name: "ttl", Usage: "time until expiration (0 means never)"},
			},
			Action: withCache(func(ctx context.Context, c *cli.Context, store cache.Cache) error {
				args := c.Args()
				if len(args) < 2 {
					return fmt.Errorf("insert requires KEY and VALUE")
				}
				var expiration time.Time
				if ttl := c.Duration("ttl"); ttl > 0 {
					expiration = time.Now().UTC().Add(ttl)
				}
				return store.Insert(ctx, args[0], []byte(args[1]), expiration)
			}),
		},
		{
			Name:      "insert-many",
			Usage:     "Insert several raw key/value pairs atomically",
			ArgsUsage: "KEY VALUE [KEY VALUE ...]",
			Flags: []cli.Flag{
				cli.DurationFlag{Name: "ttl", Usage: "time until expiration (0 means never)"},
			},
			Action: withCache(func(ctx context.Context, c *cli.Context, store cache.Cache) error {
				args := []string(c.Args())
				if len(args) == 0 || len(args)%2 != 0 {
					return fmt.Errorf("insert-many requires an even number of KEY VALUE arguments")
				}
				var expiration time.Time
				if ttl := c.Duration("ttl"); ttl > 0 {
					expiration = time.Now().UTC().Add(ttl)
				}
				items := make(map[string][]byte, len(args)/2)
				for i := 0; i < len(args); i += 2 {
					items[args[i]] = []byte(args[i+1])
				}
				return store.InsertMany(ctx, items, expiration)
			}),
		},
		{
			Name:      "get",
			Usage:     "Print the value stored under a key",
			ArgsUsage: "KEY",
			Action: withCache(func(ctx context.Context, c *cli.Context, store cache.Cache) error {
				key := c.Args().First()
				if key == "" {
					return fmt.Errorf("get requires KEY")
				}
				value, ok, err := store.Get(ctx, key)
				if err != nil {
					return err
				}
				if !ok {
					return errors.NotFound(key)
				}
				fmt.Println(string(value))
				return nil
			}),
		},
		{
			Name:      "get-many",
			Usage:     "Print the values stored under several keys",
			ArgsUsage: "KEY...",
			Action: withCache(func(ctx context.Context, c *cli.Context, store cache.Cache) error {
				keys := []string(c.Args())
				values, err := store.GetMany(ctx, keys)
				if err != nil {
					return err
				}
				for _, key := range keys {
					value, ok := values[key]
					if !ok {
						fmt.Printf("%s: (not found)\n", key)
						continue
					}
					fmt.Printf("%s: %s\n", key, value)
				}
				return nil
			}),
		},
		{
			Name:      "get-created-at",
			Usage:     "Print the instant a key was last inserted",
			ArgsUsage: "KEY",
			Action: withCache(func(ctx context.Context, c *cli.Context, store cache.Cache) error {
				key := c.Args().First()
				if key == "" {
					return fmt.Errorf("get-created-at requires KEY")
				}
				createdAt, ok, err := store.GetCreatedAt(ctx, key)
				if err != nil {
					return err
				}
				if !ok {
					return errors.NotFound(key)
				}
				fmt.Println(createdAt.Format(time.RFC3339Nano))
				return nil
			}),
		},
		{
			Name:  "keys",
			Usage: "List every live key in the cache",
			Action: withCache(func(ctx context.Context, c *cli.Context, store cache.Cache) error {
				keys, err := store.GetAllKeys(ctx)
				if err != nil {
					return err
				}
				for _, key := range keys {
					fmt.Println(key)
				}
				return nil
			}),
		},
		{
			Name:      "invalidate",
			Usage:     "Remove a key",
			ArgsUsage: "KEY",
			Action: withCache(func(ctx context.Context, c *cli.Context, store cache.Cache) error {
				key := c.Args().First()
				if key == "" {
					return fmt.Errorf("invalidate requires KEY")
				}
				return store.Invalidate(ctx, key)
			}),
		},
		{
			Name:      "invalidate-many",
			Usage:     "Remove several keys",
			ArgsUsage: "KEY...",
			Action: withCache(func(ctx context.Context, c *cli.Context, store cache.Cache) error {
				return store.InvalidateMany(ctx, []string(c.Args()))
			}),
		},
		{
			Name:  "invalidate-all",
			Usage: "Remove every key",
			Action: withCache(func(ctx context.Context, c *cli.Context, store cache.Cache) error {
				return store.InvalidateAll(ctx)
			}),
		},
		{
			Name:  "flush",
			Usage: "Wait for every queued operation to apply",
			Action: withCache(func(ctx context.Context, c *cli.Context, store cache.Cache) error {
				return store.Flush(ctx)
			}),
		},
		{
			Name:  "vacuum",
			Usage: "Reclaim space freed by invalidated entries",
			Action: withCache(func(ctx context.Context, c *cli.Context, store cache.Cache) error {
				pc, ok := store.(*cache.PersistentCache)
				if !ok {
					return fmt.Errorf("vacuum requires a persistent cache database")
				}
				return pc.Vacuum(ctx)
			}),
		},
		{
			Name:  "migrate",
			Usage: "Open the database, applying any pending schema migration",
			Action: withCache(func(ctx context.Context, c *cli.Context, store cache.Cache) error {
				fmt.Println("schema up to date")
				return nil
			}),
		},
		{
			Name:  "browse",
			Usage: "Interactively browse keys and values",
			Action: withCache(func(ctx context.Context, c *cli.Context, store cache.Cache) error {
				_, err := tui.New(ctx, store).Run()
				return err
			}),
		},
	}

	return app
}

// withCache resolves the --db flag (or the application's default
// database path) into an open PersistentCache, runs action against it,
// and closes it afterward regardless of the outcome.
func withCache(action func(context.Context, *cli.Context, cache.Cache) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		path, err := resolveDBPath(c)
		if err != nil {
			return err
		}

		store, err := cache.NewPersistent(path, 0)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		return action(ctx, c, store)
	}
}

func resolveDBPath(c *cli.Context) (string, error) {
	if path := c.GlobalString("db"); path != "" {
		return path, nil
	}
	cfg := config.Default()
	dir, err := cfg.EnsureBaseDir()
	if err != nil {
		return "", err
	}
	return dir + "/cache.db", nil
}
