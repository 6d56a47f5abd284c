package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vladislavdragonenkov/storefront/internal/app"
	"github.com/vladislavdragonenkov/storefront/internal/cart"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/render"
)

// openCartStorage открывает хранилище корзины; тесты подменяют его.
var openCartStorage = app.OpenCartStorage

// session держит открытую корзину текущего профиля.
type session struct {
	store   *cart.Store
	count   *lastCount
	badge   *render.Badge
	storage app.CartStorage
}

// Close печатает итоговый счётчик и закрывает хранилище.
func (s *session) Close() error {
	s.badge.ShowCount(s.count.n)
	return s.storage.Close()
}

// lastCount запоминает последнее значение счётчика: за один запуск команды
// он печатается один раз.
type lastCount struct {
	n int
}

func (l *lastCount) ShowCount(count int) { l.n = count }

// openSession открывает хранилище и загружает корзину. Панель пишет в stdout
// команды.
func (c *cli) openSession(ctx context.Context, options ...cart.Option) (*session, error) {
	storage, err := openCartStorage(ctx, c.cfg)
	if err != nil {
		return nil, err
	}

	count := &lastCount{}
	opts := append([]cart.Option{
		cart.WithBadge(count),
		cart.WithDetailView(render.NewPanel(c.out)),
	}, options...)

	store := cart.NewStore(storage, opts...)
	if err := store.Initialize(); err != nil {
		return nil, errors.Join(err, storage.Close())
	}
	return &session{store: store, count: count, badge: render.NewBadge(c.out), storage: storage}, nil
}

func addCmd(c *cli) *cobra.Command {
	var (
		image  string
		open   bool
		buyNow bool
		flags  checkoutFlags
	)

	cmd := &cobra.Command{
		Use:   "add ID NAME PRICE",
		Short: "Add a product to the cart",
		Long: `Добавляет товар в корзину. Повторное добавление того же ID
увеличивает количество; цена записывается в первый раз.`,
		Example: `  storefront add sku1 "Camiseta Drop" 29.90
  storefront add sku1 "Camiseta Drop" 29.90 --buy-now`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			price, err := domain.ParsePrice(args[2])
			if err != nil {
				return err
			}

			s, err := c.openSession(cmd.Context(), cart.WithOpenOnAdd(open))
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, s.Close()) }()

			if err := s.store.AddItem(args[0], args[1], price, image); err != nil {
				return err
			}
			if !buyNow {
				return nil
			}
			// "Comprar agora": показать корзину и сразу запросить ссылку на оплату
			s.store.OpenView()
			return c.submitCheckout(cmd.Context(), s.store, flags)
		},
	}

	cmd.Flags().StringVar(&image, "image", "", "product image URL")
	cmd.Flags().BoolVar(&open, "open", false, "show the cart panel after adding")
	cmd.Flags().BoolVar(&buyNow, "buy-now", false, "open the cart and create a payment link right away")
	flags.register(cmd)
	return cmd
}

func removeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "remove N",
		Short: "Remove the N-th line from the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			index, err := parsePosition(args[0])
			if err != nil {
				return err
			}

			s, err := c.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, s.Close()) }()

			if err := s.store.RemoveItem(index); err != nil {
				return err
			}
			s.store.OpenView()
			return nil
		},
	}
}

func qtyCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "qty N DELTA",
		Short: "Change quantity of the N-th line by DELTA",
		Long: `Меняет количество позиции на DELTA (+1 или -1). Позиция, количество
которой стало нулевым, удаляется.`,
		Example: `  storefront qty 1 +1
  storefront qty 2 -1`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			index, err := parsePosition(args[0])
			if err != nil {
				return err
			}
			delta, err := strconv.Atoi(strings.TrimPrefix(args[1], "+"))
			if err != nil || delta == 0 {
				return fmt.Errorf("delta must be a non-zero integer, got %q", args[1])
			}

			s, err := c.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, s.Close()) }()

			if err := s.store.UpdateQuantity(index, delta); err != nil {
				return err
			}
			s.store.OpenView()
			return nil
		},
	}
	// "-1" после номера позиции считается аргументом, а не флагом
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func showCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the cart panel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			s, err := c.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, s.Close()) }()

			s.store.OpenView()
			return nil
		},
	}
}

func totalCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "total",
		Short: "Print cart total and unit count",
		Args:  cobra.NoArgs,
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
			_, err = fmt.Fprintf(c.out, "%s (%d)\n", render.FormatBRL(store.Total()), store.Count())
			return err
		},
	}
}

// parsePosition переводит номер позиции, как его видит покупатель (с 1),
// в индекс Store.
func parsePosition(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: position must be a number starting at 1, got %q", domain.ErrIndexOutOfRange, raw)
	}
	return n - 1, nil
}
