package cli

import (
	"brickcore/internal/core"
	"brickcore/internal/ingest"
	logpkg "brickcore/internal/log"
	"brickcore/internal/report"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func (a *app) ingestCommand() *cobra.Command {
	var snapshot string
	var extend bool
	cmd := &cobra.Command{
		Use:   "ingest FILE...",
		Short: "Push batch files into a snapshot",
		Long: `Parse YAML or JSON batch files concurrently, push their item requests in
file order and save the result as a snapshot. With --extend the snapshot is
loaded first and the batches are added to it.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if extend {
				if err := a.svc.Load(ctx, snapshot); err != nil {
					return err
				}
			}
			sum, err := a.pipeline().Run(ctx, args...)
			if err != nil {
				return err
			}
			info, err := a.svc.Save(ctx, snapshot)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(a.stdout, "%s: %d file(s), %d request(s), %d merged, %d instance(s) added (%d cascaded); %d items, %d instances total\n",
				info.Name, sum.Files, sum.Requests, sum.Merged, sum.Instances, sum.Cascaded, info.Items, info.Instances)
			return err
		},
	}
	cmd.Flags().StringVarP(&snapshot, "snapshot", "s", "", "snapshot name to save")
	cmd.Flags().BoolVar(&extend, "extend", false, "load the snapshot before ingesting")
	_ = cmd.MarkFlagRequired("snapshot")
	return withService(cmd)
}

func (a *app) importCommand() *cobra.Command {
	var snapshot, format string
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Replay a serialized inventory document into a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			f, err := documentFormat(format, args[0])
			if err != nil {
				return err
			}
			file, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer file.Close()
			doc, err := core.DecodeDocument(file, f)
			if err != nil {
				return err
			}
			if err := a.svc.Import(ctx, doc); err != nil {
				return err
			}
			info, err := a.svc.Save(ctx, snapshot)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(a.stdout, "%s: imported %d items, %d instances\n", info.Name, info.Items, info.Instances)
			return err
		},
	}
	cmd.Flags().StringVarP(&snapshot, "snapshot", "s", "", "snapshot name to save")
	cmd.Flags().StringVarP(&format, "format", "f", "", "json|yaml (default from extension)")
	_ = cmd.MarkFlagRequired("snapshot")
	return withService(cmd)
}

func (a *app) exportCommand() *cobra.Command {
	var format, out string
	var publish bool
	cmd := &cobra.Command{
		Use:   "export NAME",
		Short: "Write a snapshot as a serialized document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			f, err := core.ParseFormat(format)
			if err != nil {
				return err
			}
			doc, err := a.svc.Document(ctx, args[0])
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := core.EncodeDocument(&buf, doc, f); err != nil {
				return err
			}
			if publish {
				pub, err := a.publisher(ctx)
				if err != nil {
					return err
				}
				info, err := pub.Put(ctx, args[0], string(f), buf.Bytes())
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(a.stdout, info.Key)
				return err
			}
			if out != "" {
				return os.WriteFile(out, buf.Bytes(), 0o644)
			}
			_, err = a.stdout.Write(buf.Bytes())
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "json|yaml")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write to this file instead of stdout")
	cmd.Flags().BoolVar(&publish, "publish", false, "write to the artifact store")
	cmd.MarkFlagsMutuallyExclusive("out", "publish")
	return withService(cmd)
}

func (a *app) treeCommand() *cobra.Command {
	var item string
	cmd := &cobra.Command{
		Use:   "tree NAME",
		Short: "Print a snapshot as an indented text tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.svc.Load(cmd.Context(), args[0]); err != nil {
				return err
			}
			return a.svc.View(func(inv *core.Inventory) error {
				if item == "" {
					return report.WriteTree(a.stdout, inv)
				}
				ci, ok := inv.FindItemByID(item)
				if !ok {
					return fmt.Errorf("item %s not in snapshot %s", item, args[0])
				}
				_, err := fmt.Fprintln(a.stdout, report.ItemTree(ci))
				return err
			})
		},
	}
	cmd.Flags().StringVar(&item, "item", "", "only this item id (e.g. part:3001:5)")
	return withService(cmd)
}

func (a *app) reportCommand() *cobra.Command {
	var format, item string
	var flat, publish bool
	cmd := &cobra.Command{
		Use:   "report NAME",
		Short: "Render a snapshot as a Markdown outline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if format != "markdown" && format != "terminal" {
				return fmt.Errorf("unknown report format %q", format)
			}
			if err := a.svc.Load(ctx, args[0]); err != nil {
				return err
			}
			opts := report.OutlineOptions{ByKind: !flat, Item: item}
			var markdown string
			var pub report.Publication
			err := a.svc.View(func(inv *core.Inventory) error {
				if publish {
					p, err := a.publisher(ctx)
					if err != nil {
						return err
					}
					pub, err = p.Publish(ctx, args[0], inv)
					return err
				}
				var b strings.Builder
				if err := report.WriteOutline(&b, inv, opts); err != nil {
					return err
				}
				markdown = b.String()
				return nil
			})
			if err != nil {
				return err
			}
			if publish {
				for _, info := range []string{pub.Document.Key, pub.Tree.Key, pub.Outline.Key} {
					if _, err := fmt.Fprintln(a.stdout, info); err != nil {
						return err
					}
				}
				return nil
			}
			if format == "terminal" {
				r, err := report.NewRenderer(a.cfg.Report)
				if err != nil {
					return err
				}
				if markdown, err = r.Render(markdown); err != nil {
					return err
				}
			}
			_, err = io.WriteString(a.stdout, markdown)
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "markdown", "markdown|terminal")
	cmd.Flags().StringVar(&item, "item", "", "only this item id")
	cmd.Flags().BoolVar(&flat, "flat", false, "do not group items by kind")
	cmd.Flags().BoolVar(&publish, "publish", false, "publish document, tree and outline to the artifact store")
	return withService(cmd)
}

func (a *app) verifyCommand() *cobra.Command {
	return withService(&cobra.Command{
		Use:   "verify NAME",
		Short: "Check that a snapshot survives a serialize and restore round trip",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.svc.Load(ctx, args[0]); err != nil {
				return err
			}
			if err := a.svc.Verify(ctx); err != nil {
				return err
			}
			stats := a.svc.Stats()
			_, err := fmt.Fprintf(a.stdout, "%s: ok (%d items, %d instances)\n", args[0], stats.Items, stats.Instances)
			return err
		},
	})
}

func (a *app) snapshotsCommand() *cobra.Command {
	return withService(&cobra.Command{
		Use:   "snapshots",
		Short: "List stored snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := a.svc.Snapshots(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tITEMS\tINSTANCES\tSAVED")
			for _, s := range list {
				fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", s.Name, s.Items, s.Instances, s.SavedAt.Format(time.RFC3339))
			}
			return tw.Flush()
		},
	})
}

func (a *app) resolveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve URL",
		Short: "Resolve a BrickLink inventory URL to an item identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			id, err := a.scheme.ParseSourceURL(args[0])
			if err != nil {
				return err
			}
			catalog, _ := a.scheme.CatalogURL(id)
			image, _ := a.scheme.ImageURL(id)
			_, err = fmt.Fprintf(a.stdout, "kind: %s\nnum: %s\nvariant: %d\nid: %s\nname: %s\ncatalog: %s\nimage: %s\n",
				id.Kind, id.Num, id.Variant, id.IDString(), id.DisplayName(), catalog, image)
			return err
		},
	}
}

func (a *app) watchCommand() *cobra.Command {
	var snapshot string
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch FILE...",
		Short: "Rebuild a snapshot whenever its batch files change",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			rebuild := func(ctx context.Context) error {
				a.svc.Reset()
				sum, err := a.pipeline().Run(ctx, args...)
				if err != nil {
					return err
				}
				info, err := a.svc.Save(ctx, snapshot)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(a.stdout, "%s rebuilt: %d items, %d instances (%d cascaded)\n", info.Name, info.Items, info.Instances, sum.Cascaded)
				return err
			}
			if err := rebuild(ctx); err != nil {
				return err
			}
			w, err := ingest.NewWatcher(args, debounce, logpkg.For(a.logger, logpkg.CompIngest))
			if err != nil {
				return err
			}
			defer w.Close()
			abs := make([]string, len(args))
			for i, p := range args {
				abs[i], _ = filepath.Abs(p)
			}
			a.logger.Info().Strs("files", abs).Str("snapshot", snapshot).Msg("watching")
			return w.Run(ctx, rebuild)
		},
	}
	cmd.Flags().StringVarP(&snapshot, "snapshot", "s", "", "snapshot name to save")
	cmd.Flags().DurationVar(&debounce, "debounce", ingest.DefaultDebounce, "quiet period before rebuilding")
	_ = cmd.MarkFlagRequired("snapshot")
	return withService(cmd)
}

func (a *app) pipeline() *ingest.Pipeline {
	return ingest.NewPipeline(a.svc, ingest.WithLogger(logpkg.For(a.logger, logpkg.CompIngest)))
}

func documentFormat(flag, path string) (core.Format, error) {
	if flag != "" {
		return core.ParseFormat(flag)
	}
	f, err := ingest.FormatForPath(path)
	if err != nil {
		return "", errors.New("cannot infer document format; pass --format")
	}
	return f, nil
}
