// Command storefront реализует терминальную витрину: корзина, checkout и служебные
// команды для checkout proxy (миграции, повтор DLQ).
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vladislavdragonenkov/storefront/internal/app"
)

// cli хранит состояние, общее для всех подкоманд.
type cli struct {
	configPath string
	profile    string
	logLevel   string

	cfg    app.Config
	out    io.Writer
	errOut io.Writer
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	c := &cli{out: out, errOut: errOut}

	rootCmd := &cobra.Command{
		Use:   "storefront",
		Short: "Carrinho da loja no terminal",
		Long: `storefront хранит корзину покупателя между запусками, считает итог
и создаёт платёжную ссылку через checkout proxy.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.load()
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "path to YAML config (fallback: "+app.EnvConfigPath+")")
	flags.StringVar(&c.profile, "profile", "", "cart profile; each profile keeps its own cart")
	flags.StringVar(&c.logLevel, "log-level", "", "log level: debug|info|warn|error")

	rootCmd.AddCommand(
		addCmd(c),
		removeCmd(c),
		qtyCmd(c),
		showCmd(c),
		totalCmd(c),
		checkoutCmd(c),
		welcomeCmd(c),
		migrateCmd(c),
		dlqCmd(c),
		versionCmd(c),
	)
	return rootCmd
}

func (c *cli) load() error {
	cfg, err := app.LoadConfig(c.configPath)
	if err != nil {
		return err
	}
	if c.profile != "" {
		cfg.Cart.Profile = c.profile
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}

	log.SetOutput(c.errOut)
	app.SetupLogger(cfg.LogLevel)
	c.cfg = cfg
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		var reported reportedError
		if !errors.As(err, &reported) {
			_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		stop()
		os.Exit(1)
	}
}
