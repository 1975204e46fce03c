package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"site2apk/internal/blob"
	"site2apk/internal/builder"
	"site2apk/internal/convert"
	"site2apk/internal/i18n"
	"site2apk/internal/notify"
	"site2apk/internal/progress"
	"site2apk/internal/validate"
)

type convertOptions struct {
	zip     string
	icon    string
	name    string
	version string
	out     string
	lang    string
}

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var opts convertOptions

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Build an APK from a site archive and an icon",
		Example: `  site2apk convert --zip site.zip --icon icon.png --name "My App" --version 1.0.0
  site2apk convert --zip site.zip --icon icon.png --name "My App" --version 1.0.0 --out dist`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			if err := i18n.LoadTranslations(); err != nil {
				return fmt.Errorf("load translations: %w", err)
			}

			catalog := i18n.GetTranslations(opts.language())
			console := notify.Console{Out: cmd.OutOrStdout()}
			runCtx := commandContextOrBackground(cmd)

			form, err := fillForm(cmd, opts, catalog, console)
			if err != nil {
				return err
			}

			resolver, err := cfg.Resolver()
			if err != nil {
				return err
			}

			sinks := notify.Multi{console}
			if ntfy := notify.NewNtfy(cfg.NtfyTopic, 0); ntfy != nil {
				sinks = append(sinks, ntfy)
			}

			pbar := newBar(cmd.ErrOrStderr())
			saver := &convert.DirSaver{Dir: opts.out}

			orch, err := convert.New(convert.Deps{
				Resolver:         resolver,
				Builder:          builder.NewClient(cfg.RequestTimeout.Duration),
				Saver:            saver,
				Sink:             sinks,
				Catalog:          catalog,
				ProgressInterval: cfg.ProgressInterval.Duration,
				ProgressStep:     cfg.ProgressStep,
				OnProgress:       pbar.set,
				OnPhase: func(p convert.Phase) {
					slog.Debug("Phase changed", "phase", p)
				},
			})
			if err != nil {
				return err
			}

			_, err = orch.Run(runCtx, form.Request())
			pbar.finish()

			if err != nil {
				// The failure toast is already on screen.
				return errSilent{err}
			}

			fmt.Fprintln(cmd.OutOrStdout(), saver.Written)

			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.zip, "zip", "", "Site archive (.zip)")
	flags.StringVar(&opts.icon, "icon", "", "Launcher icon (512x512 PNG)")
	flags.StringVarP(&opts.name, "name", "n", "", "Application name")
	flags.StringVarP(&opts.version, "version", "v", "", "Application version")
	flags.StringVarP(&opts.out, "out", "o", ".", "Directory the APK is written to")
	flags.StringVar(&opts.lang, "lang", "", "Message language (default from $LANG)")

	return cmd
}

func (o convertOptions) language() string {
	if lang := strings.TrimSpace(o.lang); lang != "" {
		return i18n.Negotiate(lang)
	}

	// LANG looks like ru_RU.UTF-8.
	env := strings.SplitN(os.Getenv("LANG"), ".", 2)[0]

	return i18n.Negotiate(strings.ReplaceAll(env, "_", "-"))
}

// fillForm mirrors picking files in the browser: a rejected file is reported
// and left out, so the attempt later fails as incomplete.
func fillForm(cmd *cobra.Command, opts convertOptions, catalog convert.Catalog, console notify.Console) (*convert.Form, error) {
	ctx := commandContextOrBackground(cmd)

	var form convert.Form

	form.SetName(opts.name)
	form.SetVersion(opts.version)

	reject := func(err error) error {
		return console.Notify(ctx, convert.ToastFor(catalog, convert.Classify(err), nil, ""))
	}

	if path := strings.TrimSpace(opts.zip); path != "" {
		archive, err := blob.FromPath(path)
		if err != nil {
			return nil, err
		}

		if err := form.SetArchive(archive); err != nil {
			if nerr := reject(err); nerr != nil {
				return nil, nerr
			}
		} else if err := validate.ArchiveContents(archive); err != nil {
			_ = console.Notify(ctx, notify.Toast{Title: catalog.Text("toast_archive_warning_title"), Description: catalog.Text("zip_hint")})
		}
	}

	if path := strings.TrimSpace(opts.icon); path != "" {
		icon, err := blob.FromPath(path)
		if err != nil {
			return nil, err
		}

		if err := form.SetIcon(ctx, icon); err != nil {
			if nerr := reject(err); nerr != nil {
				return nil, nerr
			}
		}
	}

	return &form, nil
}

// bar draws attempt progress when stderr is a terminal.
type bar struct {
	pb *progressbar.ProgressBar
}

func newBar(w io.Writer) *bar {
	f, ok := w.(*os.File)
	if !ok || !(isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return &bar{}
	}

	return &bar{pb: progressbar.NewOptions(progress.Done,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Building"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionClearOnFinish(),
	)}
}

func (b *bar) set(v int) {
	if b.pb != nil {
		_ = b.pb.Set(v)
	}
}

func (b *bar) finish() {
	if b.pb != nil {
		_ = b.pb.Exit()
	}
}

// errSilent marks an error the user has already been shown.
type errSilent struct{ err error }

func (e errSilent) Error() string { return e.err.Error() }
func (e errSilent) Unwrap() error { return e.err }

// IsSilent reports whether err was already reported to the user.
func IsSilent(err error) bool {
	var s errSilent
	return errors.As(err, &s)
}
