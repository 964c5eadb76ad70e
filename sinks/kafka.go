package sinks

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaSink produces each row to one topic, keyed by stream name so a
// stream's records stay ordered within a partition.
type KafkaSink struct {
	sinkName string

	bootstrapServers string
	topic            string

	client *kgo.Client
}

func (k *KafkaSink) Init(args SinkConfig) error {
	k.sinkName = args.Name

	if args.Config["bootstrap_servers"] == "" || args.Config["topic"] == "" {
		log.Error().Msg("Error missing config values")
		return fmt.Errorf("error missing config values")
	}
	log.Debug().
		Str("bootstrap_servers", args.Config["bootstrap_servers"]).
		Str("topic", args.Config["topic"]).
		Send()

	k.bootstrapServers = args.Config["bootstrap_servers"]
	k.topic = args.Config["topic"]
	return nil
}

func (k *KafkaSink) Connect(ctx context.Context) error {
	log.Trace().Msg("Connecting to kafka cluster as a sink...")
	opts := []kgo.Opt{
		kgo.SeedBrokers(k.bootstrapServers),
		kgo.DefaultProduceTopic(k.topic),
		kgo.AllowAutoTopicCreation(),
	}
	client, err := kgo.NewClient(opts...)
	if err != nil {
		log.Err(err).Msg("Error when creating a kafka producer!")
		return err
	}
	k.client = client
	return nil
}

func (k *KafkaSink) Write(ctx context.Context, row Row) error {
	record := &kgo.Record{Key: []byte(row.Stream), Value: row.Data}
	// Synchronous produce: the pipeline persists bookmarks only after rows
	// reached the sink, so fire-and-forget would break resumption.
	res := k.client.ProduceSync(ctx, record)
	if err := res.FirstErr(); err != nil {
		log.Err(err).Str("stream", row.Stream).Msg("record had a produce error")
		return err
	}
	log.Trace().Str("stream", row.Stream).Msg("produced record")
	return nil
}

func (k *KafkaSink) Disconnect() error {
	log.Info().Msg("Disconnecting kafka sink")
	if k.client != nil {
		k.client.Close()
	}
	return nil
}

func (k *KafkaSink) Name() string { return k.sinkName }

func (k *KafkaSink) Info() string {
	return fmt.Sprintf("Name:%s|Type:kafka|Topic:%s", k.sinkName, k.topic)
}
