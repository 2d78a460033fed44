package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/starford/ansuz/internal"
	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/query"
	"github.com/starford/ansuz/internal/transfer"
)

func stdout(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func stderr(cmd *cli.Command) io.Writer {
	if w := cmd.Root().ErrWriter; w != nil {
		return w
	}
	return os.Stderr
}

// report prints OK, or one NOK line per cause.
func report(cmd *cli.Command, err error) error {
	w := stdout(cmd)
	if err != nil {
		for _, c := range apperr.Causes(err) {
			fmt.Fprintf(w, "NOK: %s\n", c)
		}
		return errReported
	}
	fmt.Fprintln(w, "OK")
	return nil
}

// withApp opens the application for one command and reports its outcome.
// Command logs stay quiet below warnings unless the config asks for debug.
func withApp(ctx context.Context, cmd *cli.Command, fn func(context.Context, *internal.App) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return report(cmd, err)
	}
	if cfg.App.LogLevel > slog.LevelDebug && cfg.App.LogLevel < slog.LevelWarn {
		cfg.App.LogLevel = slog.LevelWarn
	}
	app, err := internal.Open(ctx, internal.WithConfig(cfg), internal.WithLogOutput(stderr(cmd)))
	if err != nil {
		return report(cmd, err)
	}
	defer app.Close()
	return report(cmd, fn(ctx, app))
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search content by keywords, digest, uuid or data",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "sall", Usage: "Keywords matched against all fields"},
			&cli.StringFlag{Name: "stag", Usage: "Keywords matched against tags"},
			&cli.StringFlag{Name: "sgrp", Usage: "Keywords matched against groups"},
			&cli.StringFlag{Name: "scat", Usage: "Categories: snippet, solution or all", Value: "all"},
			&cli.StringFlag{Name: "digest", Usage: "Digest prefix"},
			&cli.StringFlag{Name: "uuid", Usage: "Exact UUID"},
			&cli.StringFlag{Name: "data", Usage: "Content data prefix"},
			&cli.StringFlag{Name: "sort", Usage: "Sort fields, '-' for descending"},
			&cli.IntFlag{Name: "limit", Usage: "Page size, 0 uses the configured default"},
			&cli.IntFlag{Name: "offset", Usage: "Page offset"},
			&cli.StringFlag{Name: "filter", Usage: "Regular expression applied to the results"},
			&cli.StringFlag{Name: "format", Usage: "Output format: text, json or yaml", Value: "text"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withApp(ctx, cmd, func(ctx context.Context, app *internal.App) error {
				cats, err := models.ParseCategories(cmd.String("scat"))
				if err != nil {
					return err
				}
				col, err := app.Service.Search(ctx, query.Request{
					Categories:    cats,
					AllKeywords:   query.SplitKeywords(cmd.String("sall")),
					TagKeywords:   query.SplitKeywords(cmd.String("stag")),
					GroupKeywords: query.SplitKeywords(cmd.String("sgrp")),
					DigestPrefix:  strings.TrimSpace(cmd.String("digest")),
					UUID:          strings.TrimSpace(cmd.String("uuid")),
					DataPrefix:    cmd.String("data"),
					Sort:          query.ParseSort(cmd.String("sort")),
					Limit:         int(cmd.Int("limit")),
					Offset:        int(cmd.Int("offset")),
					Filter:        cmd.String("filter"),
				})
				if err != nil {
					return err
				}
				if col.Len() == 0 {
					return apperr.NotFound("cannot find content with given search criteria")
				}
				return printRecords(stdout(cmd), cmd.String("format"), col)
			})
		},
	}
}

func printRecords(w io.Writer, format string, col *models.Collection) error {
	recs := col.Records()
	switch format {
	case "json", "yaml":
		out, err := transfer.Encode(transfer.Format(format), recs, transfer.Meta{Updated: models.Now(time.Now())})
		if err != nil {
			return err
		}
		_, _ = w.Write(out)
	case "text", "":
		for i, r := range recs {
			out, err := transfer.EncodeText(r)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%d. %s\n%s\n", i+1, r.Digest[:16], out)
		}
		fmt.Fprintf(w, "# %d of %d\n", col.Len(), col.Total())
	default:
		return apperr.Validation("unknown output format %q", format)
	}
	return nil
}

func createCommand() *cli.Command {
	return &cli.Command{
		Name:      "create",
		Usage:     "Store a snippet or solution; arguments are data lines",
		ArgsUsage: "<line>...",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "category", Aliases: []string{"scat"}, Value: string(models.Snippet)},
			&cli.StringFlag{Name: "brief", Aliases: []string{"b"}},
			&cli.StringFlag{Name: "description"},
			&cli.StringFlag{Name: "groups", Aliases: []string{"g"}},
			&cli.StringFlag{Name: "tags", Aliases: []string{"t"}, Usage: "Comma separated tags"},
			&cli.StringFlag{Name: "links", Usage: "Space separated links"},
			&cli.StringFlag{Name: "source"},
			&cli.StringFlag{Name: "versions", Usage: "Comma separated versions"},
			&cli.StringFlag{Name: "filename"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withApp(ctx, cmd, func(ctx context.Context, app *internal.App) error {
				cat, err := models.ParseCategory(cmd.String("category"))
				if err != nil {
					return err
				}
				rec, err := app.Service.Create(ctx, &models.Record{
					Category:    cat,
					Data:        cmd.Args().Slice(),
					Brief:       cmd.String("brief"),
					Description: cmd.String("description"),
					Group:       cmd.String("groups"),
					Tags:        models.SplitTags(cmd.String("tags")),
					Links:       strings.Fields(cmd.String("links")),
					Source:      cmd.String("source"),
					Versions:    models.SplitVersions(cmd.String("versions")),
					Filename:    cmd.String("filename"),
				})
				if err != nil {
					return err
				}
				fmt.Fprintln(stdout(cmd), rec.Digest)
				return nil
			})
		},
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import a file or glob pattern from the transfer directory",
		ArgsUsage: "<pattern>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withApp(ctx, cmd, func(ctx context.Context, app *internal.App) error {
				pattern := cmd.Args().First()
				if pattern == "" {
					return apperr.Validation("import needs a file name or pattern")
				}
				rep, err := app.Transfer.Import(ctx, pattern)
				if rep.Files > 0 {
					fmt.Fprintf(stdout(cmd), "imported %d of %d from %d file(s)\n", rep.Stored, rep.Total, rep.Files)
				}
				return err
			})
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Export content to a file in the transfer directory",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "scat", Usage: "Categories: snippet, solution or all", Value: "all"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withApp(ctx, cmd, func(ctx context.Context, app *internal.App) error {
				name := cmd.Args().First()
				if name == "" {
					return apperr.Validation("export needs a file name")
				}
				cats, err := models.ParseCategories(cmd.String("scat"))
				if err != nil {
					return err
				}
				n, err := app.Transfer.Export(ctx, name, cats...)
				if err != nil {
					return err
				}
				fmt.Fprintf(stdout(cmd), "exported %d\n", n)
				return nil
			})
		},
	}
}

func deleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete content by digest prefix",
		ArgsUsage: "<digest>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withApp(ctx, cmd, func(ctx context.Context, app *internal.App) error {
				rec, err := app.Service.Delete(ctx, cmd.Args().First())
				if err != nil {
					return err
				}
				fmt.Fprintln(stdout(cmd), rec.Digest)
				return nil
			})
		},
	}
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Count stored content per category",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withApp(ctx, cmd, func(ctx context.Context, app *internal.App) error {
				st, err := app.Service.Stats(ctx)
				if err != nil {
					return err
				}
				w := stdout(cmd)
				for _, c := range models.Categories() {
					fmt.Fprintf(w, "%s: %d\n", c, st.Categories[c])
				}
				fmt.Fprintf(w, "total: %d\n", st.Total)
				return nil
			})
		},
	}
}
