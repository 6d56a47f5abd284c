package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/service/dlq"
)

func dlqCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dlq",
		Short: "Inspect and replay the checkout dead letter queue",
	}
	cmd.AddCommand(dlqReplayCmd(c))
	return cmd
}

func dlqReplayCmd(c *cli) *cobra.Command {
	var (
		brokers     string
		targetTopic string
		cfg         dlq.Config
	)

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay checkout events from the DLQ",
		Long: `Читает события из DLQ и публикует исходные события checkout обратно
в основной topic. По умолчанию dry-run: кандидаты только логируются.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			conf := c.cfg
			if brokers != "" {
				conf.KafkaBrokers = brokers
			}
			if targetTopic == "" {
				targetTopic = conf.OutboxTopic
			}
			if cfg.SourceTopic == "" {
				cfg.SourceTopic = conf.DLQTopic
			}

			brokerList := conf.Brokers()
			if len(brokerList) == 0 {
				return errors.New("kafka brokers are required (--brokers or KAFKA_BROKERS)")
			}

			source, err := dlq.OpenSource(brokerList)
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, source.Close()) }()

			var publisher domain.OutboxPublisher
			if cfg.Execute {
				producer, perr := kafka.NewProducer(brokerList)
				if perr != nil {
					return perr
				}
				defer func() { err = errors.Join(err, producer.Close()) }()
				publisher = kafka.NewOutboxPublisher(producer, targetTopic)
			}

			replayer, err := dlq.NewReplayer(source.Client, source.Consumer, publisher, cfg)
			if err != nil {
				return err
			}

			stats, err := replayer.Run(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(c.out, formatStats(stats, cfg.Execute))
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&brokers, "brokers", "", "Kafka brokers as comma-separated list (default from config)")
	flags.StringVar(&cfg.SourceTopic, "source-topic", "", "DLQ source topic (default from config)")
	flags.StringVar(&targetTopic, "target-topic", "", "target topic for replay (default from config)")
	flags.IntVar(&cfg.Limit, "limit", dlq.DefaultLimit, "max number of messages to scan/replay")
	flags.BoolVar(&cfg.Execute, "execute", false, "execute replay; default is dry-run")
	flags.BoolVar(&cfg.FromNewest, "from-newest", false, "scan latest messages first (bounded by limit)")
	flags.DurationVar(&cfg.IdleTimeout, "idle-timeout", dlq.DefaultIdleTimeout, "idle timeout per partition")
	return cmd
}

func formatStats(stats dlq.Stats, execute bool) string {
	mode := "dry-run"
	if execute {
		mode = "execute"
	}
	return fmt.Sprintf("%s: processed=%d replayed=%d skipped=%d", mode, stats.Processed, stats.Replayed, stats.Skipped)
}
