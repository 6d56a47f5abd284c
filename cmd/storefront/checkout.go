package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vladislavdragonenkov/storefront/internal/cart"
	"github.com/vladislavdragonenkov/storefront/internal/checkout"
)

const checkoutLabel = "Finalizar Compra"

// terminalTrigger изображает кнопку checkout в терминале, смена надписи печатается в w.
type terminalTrigger struct {
	w       io.Writer
	label   string
	enabled bool
}

func newTerminalTrigger(w io.Writer) *terminalTrigger {
	return &terminalTrigger{w: w, label: checkoutLabel, enabled: true}
}

func (t *terminalTrigger) Label() string { return t.label }

func (t *terminalTrigger) SetLabel(label string) {
	t.label = label
	_, _ = fmt.Fprintf(t.w, "[%s]\n", label)
}

func (t *terminalTrigger) SetEnabled(enabled bool) { t.enabled = enabled }

// checkoutFlags задаёт, куда и с каким таймаутом отправляется корзина.
type checkoutFlags struct {
	endpoint string
	timeout  time.Duration
}

func (f *checkoutFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.endpoint, "endpoint", "", "checkout endpoint (default from config)")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 30*time.Second, "checkout request timeout")
}

// submitCheckout отправляет корзину store и печатает ссылку на оплату. Об
// ошибке покупателю сообщается в errOut.
func (c *cli) submitCheckout(ctx context.Context, store *cart.Store, flags checkoutFlags) error {
	endpoint := flags.endpoint
	if endpoint == "" {
		endpoint = c.cfg.Cart.CheckoutEndpoint
	}

	logger := log.WithField("component", "storefront-cli")
	client := checkout.NewClient(endpoint,
		checkout.WithHTTPClient(&http.Client{Timeout: flags.timeout}),
		checkout.WithClientLogger(logger),
	)
	svc := checkout.NewService(store, client, checkout.Config{
		Handle:      c.cfg.Cart.Handle,
		RedirectURL: checkout.SuccessURL(c.cfg.Cart.Origin),
	}, checkout.WithServiceLogger(logger))

	link, err := svc.Submit(ctx, newTerminalTrigger(c.errOut))
	if err != nil {
		_, _ = fmt.Fprintln(c.errOut, checkout.UserMessage(err))
		return reportedError{err: err}
	}

	_, err = fmt.Fprintln(c.out, link.URL)
	return err
}

func checkoutCmd(c *cli) *cobra.Command {
	var flags checkoutFlags

	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Create a payment link for the cart",
		Long: `Отправляет корзину в checkout endpoint и печатает ссылку на оплату.
Корзина не меняется; при ошибке повторите команду.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			storage, err := openCartStorage(cmd.Context(), c.cfg)
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, storage.Close()) }()

			store := cart.NewStore(storage)
			if err := store.Initialize(); err != nil {
				return err
			}
			return c.submitCheckout(cmd.Context(), store, flags)
		},
	}

	flags.register(cmd)
	return cmd
}

// reportedError помечает ошибку, о которой покупателю уже сообщили.
type reportedError struct {
	err error
}

func (e reportedError) Error() string { return e.err.Error() }
func (e reportedError) Unwrap() error { return e.err }
